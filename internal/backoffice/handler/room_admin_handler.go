package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/khelzone/gameroom/internal/config"
	"github.com/khelzone/gameroom/internal/domain"
	"github.com/khelzone/gameroom/internal/repository"
	"github.com/khelzone/gameroom/internal/service"
)

// RoomAdminHandler serves /admin/rooms endpoints, including the winner
// correction protocol.
type RoomAdminHandler struct {
	roomSvc       *service.RoomService
	correctionSvc *service.CorrectionService
	roomRepo      *repository.RoomRepository
	cfg           *config.Config
}

// NewRoomAdminHandler creates a RoomAdminHandler.
func NewRoomAdminHandler(
	roomSvc *service.RoomService,
	correctionSvc *service.CorrectionService,
	roomRepo *repository.RoomRepository,
	cfg *config.Config,
) *RoomAdminHandler {
	return &RoomAdminHandler{
		roomSvc:       roomSvc,
		correctionSvc: correctionSvc,
		roomRepo:      roomRepo,
		cfg:           cfg,
	}
}

// List godoc
// GET /admin/rooms?status=playing&page=1&limit=50
func (h *RoomAdminHandler) List(c *gin.Context) {
	status := c.DefaultQuery("status", "")
	page, limit := adminPagination(c)
	offset := (page - 1) * limit

	rooms, err := h.roomRepo.ListByStatus(c.Request.Context(), status, limit, offset)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", err.Error())
		return
	}
	respondList(c, rooms, len(rooms), page, limit)
}

// Detail godoc
// GET /admin/rooms/:code
func (h *RoomAdminHandler) Detail(c *gin.Context) {
	room, err := h.roomSvc.GetRoom(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, http.StatusNotFound, "ERR_NOT_FOUND", err.Error())
		return
	}
	respondSuccess(c, http.StatusOK, room)
}

// Cancel godoc
// POST /admin/rooms/:code/cancel
// Body: {"reason": "dispute raised by players"}
func (h *RoomAdminHandler) Cancel(c *gin.Context) {
	var body struct {
		Reason string `json:"reason" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", "reason is required")
		return
	}

	room, err := h.roomSvc.CancelRoom(c.Request.Context(), c.Param("code"), body.Reason)
	if err != nil {
		switch err {
		case domain.ErrRoomNotFound:
			respondError(c, http.StatusNotFound, "ERR_NOT_FOUND", err.Error())
		case domain.ErrRoomNotWaiting:
			respondError(c, http.StatusConflict, "ERR_ROOM_NOT_WAITING", err.Error())
		default:
			respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", err.Error())
		}
		return
	}
	respondSuccess(c, http.StatusOK, room)
}

// CorrectWinner godoc
// POST /admin/rooms/:code/correct-winner
// Body: {"new_winner_id":"uuid","reason":"original declaration was disputed"}
func (h *RoomAdminHandler) CorrectWinner(c *gin.Context) {
	var body struct {
		NewWinnerID string `json:"new_winner_id" binding:"required"`
		Reason      string `json:"reason"        binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}
	newWinnerID, err := uuid.Parse(body.NewWinnerID)
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_WINNER_ID", "invalid new_winner_id format")
		return
	}

	room, err := h.correctionSvc.CorrectWinner(
		c.Request.Context(), c.Param("code"), adminUserID(c), newWinnerID, body.Reason,
	)
	if err != nil {
		// ErrRetriesExhausted arrives wrapped with the last conflict error.
		if errors.Is(err, domain.ErrRetriesExhausted) {
			respondError(c, http.StatusConflict, "ERR_RETRIES_EXHAUSTED", err.Error())
			return
		}
		switch err {
		case domain.ErrRoomNotFound:
			respondError(c, http.StatusNotFound, "ERR_NOT_FOUND", err.Error())
		case domain.ErrRoomNotCompleted:
			respondError(c, http.StatusConflict, "ERR_ROOM_NOT_COMPLETED", err.Error())
		case domain.ErrWinnerNotAPlayer:
			respondError(c, http.StatusBadRequest, "ERR_WINNER_NOT_A_PLAYER", err.Error())
		case domain.ErrSameWinner:
			respondError(c, http.StatusConflict, "ERR_SAME_WINNER", err.Error())
		case domain.ErrInsufficientBalanceForReversal:
			respondError(c, http.StatusConflict, "ERR_REVERSAL_BALANCE", err.Error())
		default:
			respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", err.Error())
		}
		return
	}
	respondSuccess(c, http.StatusOK, room)
}
