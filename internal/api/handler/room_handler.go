package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/khelzone/gameroom/internal/api/middleware"
	"github.com/khelzone/gameroom/internal/domain"
	"github.com/khelzone/gameroom/internal/service"
	"github.com/shopspring/decimal"
)

// RoomHandler serves game room lifecycle endpoints.
type RoomHandler struct {
	roomSvc *service.RoomService
}

// NewRoomHandler creates a RoomHandler.
func NewRoomHandler(roomSvc *service.RoomService) *RoomHandler {
	return &RoomHandler{roomSvc: roomSvc}
}

// CreateRoom godoc
// POST /api/rooms [JWT]
// Body: {"entry_amount":"100.00","max_players":4,"game_type":"ludo"}
func (h *RoomHandler) CreateRoom(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var body struct {
		EntryAmount string `json:"entry_amount" binding:"required"`
		MaxPlayers  int    `json:"max_players"  binding:"required"`
		GameType    string `json:"game_type"    binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}

	amount, err := decimal.NewFromString(body.EntryAmount)
	if err != nil || amount.IsNegative() || amount.IsZero() {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_AMOUNT", "entry_amount must be a positive decimal string")
		return
	}

	room, err := h.roomSvc.CreateRoom(c.Request.Context(), userID, amount, body.MaxPlayers, body.GameType)
	if err != nil {
		switch err {
		case domain.ErrEntryAmountOutOfBounds:
			respondError(c, http.StatusBadRequest, "ERR_AMOUNT_OUT_OF_BOUNDS", err.Error())
		case domain.ErrInvalidPlayerCount:
			respondError(c, http.StatusBadRequest, "ERR_INVALID_PLAYER_COUNT", err.Error())
		case domain.ErrInsufficientBalance:
			respondError(c, http.StatusPaymentRequired, "ERR_INSUFFICIENT_BALANCE", err.Error())
		case domain.ErrUserInactive:
			respondError(c, http.StatusForbidden, "ERR_ACCOUNT_DISABLED", err.Error())
		default:
			respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not create room")
		}
		return
	}
	respondSuccess(c, http.StatusCreated, room.ToResponse())
}

// JoinRoom godoc
// POST /api/rooms/:code/join [JWT]
func (h *RoomHandler) JoinRoom(c *gin.Context) {
	userID := middleware.GetUserID(c)
	code := c.Param("code")

	room, err := h.roomSvc.JoinRoom(c.Request.Context(), code, userID)
	if err != nil {
		switch err {
		case domain.ErrRoomNotFound:
			respondError(c, http.StatusNotFound, "ERR_ROOM_NOT_FOUND", err.Error())
		case domain.ErrRoomNotWaiting:
			respondError(c, http.StatusConflict, "ERR_ROOM_NOT_WAITING", err.Error())
		case domain.ErrRoomFull:
			respondError(c, http.StatusConflict, "ERR_ROOM_FULL", err.Error())
		case domain.ErrAlreadyJoined:
			respondError(c, http.StatusConflict, "ERR_ALREADY_JOINED", err.Error())
		case domain.ErrInsufficientBalance:
			respondError(c, http.StatusPaymentRequired, "ERR_INSUFFICIENT_BALANCE", err.Error())
		case domain.ErrUserInactive:
			respondError(c, http.StatusForbidden, "ERR_ACCOUNT_DISABLED", err.Error())
		default:
			respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not join room")
		}
		return
	}
	respondSuccess(c, http.StatusOK, room.ToResponse())
}

// LeaveRoom godoc
// POST /api/rooms/:code/leave [JWT]
func (h *RoomHandler) LeaveRoom(c *gin.Context) {
	userID := middleware.GetUserID(c)
	code := c.Param("code")

	room, err := h.roomSvc.LeaveRoom(c.Request.Context(), code, userID)
	if err != nil {
		switch err {
		case domain.ErrRoomNotFound:
			respondError(c, http.StatusNotFound, "ERR_ROOM_NOT_FOUND", err.Error())
		case domain.ErrRoomNotWaiting:
			respondError(c, http.StatusConflict, "ERR_ROOM_NOT_WAITING", err.Error())
		case domain.ErrNotAPlayer:
			respondError(c, http.StatusConflict, "ERR_NOT_A_PLAYER", err.Error())
		default:
			respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not leave room")
		}
		return
	}
	respondSuccess(c, http.StatusOK, room.ToResponse())
}

// DeclareWinner godoc
// POST /api/rooms/:code/winner [JWT]
// Body: {"winner_id":"uuid"}
func (h *RoomHandler) DeclareWinner(c *gin.Context) {
	userID := middleware.GetUserID(c)
	code := c.Param("code")

	var body struct {
		WinnerID string `json:"winner_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}
	winnerID, err := uuid.Parse(body.WinnerID)
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_WINNER_ID", "invalid winner_id format")
		return
	}

	room, err := h.roomSvc.DeclareWinner(c.Request.Context(), code, userID, winnerID)
	if err != nil {
		switch err {
		case domain.ErrRoomNotFound:
			respondError(c, http.StatusNotFound, "ERR_ROOM_NOT_FOUND", err.Error())
		case domain.ErrRoomNotPlaying:
			respondError(c, http.StatusConflict, "ERR_ROOM_NOT_PLAYING", err.Error())
		case domain.ErrNotAPlayer:
			respondError(c, http.StatusForbidden, "ERR_NOT_A_PLAYER", err.Error())
		case domain.ErrWinnerNotAPlayer:
			respondError(c, http.StatusBadRequest, "ERR_WINNER_NOT_A_PLAYER", err.Error())
		default:
			respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not declare winner")
		}
		return
	}
	respondSuccess(c, http.StatusOK, room.ToResponse())
}

// GetLobby godoc
// GET /api/rooms/lobby?page=1&limit=20
func (h *RoomHandler) GetLobby(c *gin.Context) {
	page, limit := parsePagination(c)
	offset := (page - 1) * limit

	rooms, err := h.roomSvc.ListOpenRooms(c.Request.Context(), limit, offset)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not fetch lobby")
		return
	}
	out := make([]domain.RoomResponse, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, r.ToResponse())
	}
	respondList(c, out, len(out), page, limit)
}

// GetMyRooms godoc
// GET /api/rooms/my?page=1&limit=20 [JWT]
func (h *RoomHandler) GetMyRooms(c *gin.Context) {
	userID := middleware.GetUserID(c)
	page, limit := parsePagination(c)
	offset := (page - 1) * limit

	rooms, err := h.roomSvc.MyRooms(c.Request.Context(), userID, limit, offset)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not fetch rooms")
		return
	}
	out := make([]domain.RoomResponse, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, r.ToResponse())
	}
	respondList(c, out, len(out), page, limit)
}

// GetRoom godoc
// GET /api/rooms/:code
func (h *RoomHandler) GetRoom(c *gin.Context) {
	room, err := h.roomSvc.GetRoom(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, http.StatusNotFound, "ERR_ROOM_NOT_FOUND", err.Error())
		return
	}
	respondSuccess(c, http.StatusOK, room.ToResponse())
}

// ── Pagination helper ─────────────────────────────────────────────────────────

// parsePagination extracts ?page= and ?limit= query parameters with sane
// defaults (page 1, limit 20, max limit 100).
func parsePagination(c *gin.Context) (page, limit int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit
}
