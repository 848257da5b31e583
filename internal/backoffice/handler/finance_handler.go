package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/khelzone/gameroom/internal/config"
	"github.com/khelzone/gameroom/internal/domain"
	"github.com/khelzone/gameroom/internal/repository"
	"github.com/khelzone/gameroom/internal/service"
)

// FinanceHandler serves /admin/finance endpoints: the withdrawal approval
// queue and ledger inspection tools.
type FinanceHandler struct {
	withdrawalSvc *service.WithdrawalService
	walletSvc     *service.WalletService
	ledgerRepo    *repository.LedgerRepository
	cfg           *config.Config
}

// NewFinanceHandler creates a FinanceHandler.
func NewFinanceHandler(
	withdrawalSvc *service.WithdrawalService,
	walletSvc *service.WalletService,
	ledgerRepo *repository.LedgerRepository,
	cfg *config.Config,
) *FinanceHandler {
	return &FinanceHandler{
		withdrawalSvc: withdrawalSvc,
		walletSvc:     walletSvc,
		ledgerRepo:    ledgerRepo,
		cfg:           cfg,
	}
}

// Withdrawals godoc
// GET /admin/finance/withdrawals?status=pending&page=1&limit=50
func (h *FinanceHandler) Withdrawals(c *gin.Context) {
	status := c.DefaultQuery("status", "")
	page, limit := adminPagination(c)
	offset := (page - 1) * limit

	reqs, err := h.withdrawalSvc.Queue(c.Request.Context(), status, limit, offset)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", err.Error())
		return
	}
	respondList(c, reqs, len(reqs), page, limit)
}

// ApproveWithdrawal godoc
// POST /admin/finance/withdrawals/:id/approve
// Body: {"notes": "paid via UPI ref 12345"}
func (h *FinanceHandler) ApproveWithdrawal(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid withdrawal id")
		return
	}
	var body struct {
		Notes string `json:"notes"`
	}
	_ = c.ShouldBindJSON(&body) // notes are optional

	req, err := h.withdrawalSvc.Approve(c.Request.Context(), id, adminUserID(c), body.Notes)
	if err != nil {
		switch err {
		case domain.ErrWithdrawalNotFound:
			respondError(c, http.StatusNotFound, "ERR_NOT_FOUND", err.Error())
		case domain.ErrWithdrawalNotPending:
			respondError(c, http.StatusConflict, "ERR_NOT_PENDING", err.Error())
		default:
			respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", err.Error())
		}
		return
	}
	respondSuccess(c, http.StatusOK, req)
}

// RejectWithdrawal godoc
// POST /admin/finance/withdrawals/:id/reject
// Body: {"reason": "UPI ID does not resolve"}
func (h *FinanceHandler) RejectWithdrawal(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid withdrawal id")
		return
	}
	var body struct {
		Reason string `json:"reason" binding:"required"`
	}
	if err = c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", "reason is required")
		return
	}

	req, err := h.withdrawalSvc.Reject(c.Request.Context(), id, adminUserID(c), body.Reason)
	if err != nil {
		switch err {
		case domain.ErrWithdrawalNotFound:
			respondError(c, http.StatusNotFound, "ERR_NOT_FOUND", err.Error())
		case domain.ErrWithdrawalNotPending:
			respondError(c, http.StatusConflict, "ERR_NOT_PENDING", err.Error())
		default:
			respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", err.Error())
		}
		return
	}
	respondSuccess(c, http.StatusOK, req)
}

// Reconcile godoc
// GET /admin/finance/reconcile/:user_id
// Replays the user's full ledger and reports any drift against the live balance.
func (h *FinanceHandler) Reconcile(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid user id")
		return
	}

	report, err := h.walletSvc.Reconcile(c.Request.Context(), userID)
	if err != nil {
		if err == domain.ErrUserNotFound {
			respondError(c, http.StatusNotFound, "ERR_NOT_FOUND", err.Error())
			return
		}
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", err.Error())
		return
	}
	respondSuccess(c, http.StatusOK, report)
}

// UserLedger godoc
// GET /admin/finance/ledger/:user_id?page=1&limit=50&type=game_win
func (h *FinanceHandler) UserLedger(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("user_id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_ID", "invalid user id")
		return
	}
	page, limit := adminPagination(c)
	offset := (page - 1) * limit

	f := domain.LedgerFilter{
		Type:     domain.EntryType(c.Query("type")),
		Status:   domain.EntryStatus(c.Query("status")),
		RoomCode: c.Query("room"),
	}
	entries, err := h.ledgerRepo.ListByUser(c.Request.Context(), userID, f, limit, offset)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", err.Error())
		return
	}
	respondList(c, entries, len(entries), page, limit)
}

// RoomLedger godoc
// GET /admin/finance/rooms/:code/ledger
// Every entry that touched the room: entry fees, payout, refunds, corrections.
func (h *FinanceHandler) RoomLedger(c *gin.Context) {
	entries, err := h.ledgerRepo.ListByRoom(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", err.Error())
		return
	}
	respondSuccess(c, http.StatusOK, entries)
}
