package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/khelzone/gameroom/internal/api/middleware"
	"github.com/khelzone/gameroom/internal/domain"
	"github.com/khelzone/gameroom/internal/service"
	"github.com/shopspring/decimal"
)

// WalletHandler serves balance, transaction history, deposit, and withdrawal
// endpoints.
type WalletHandler struct {
	walletSvc     *service.WalletService
	withdrawalSvc *service.WithdrawalService
}

// NewWalletHandler creates a WalletHandler.
func NewWalletHandler(walletSvc *service.WalletService, withdrawalSvc *service.WithdrawalService) *WalletHandler {
	return &WalletHandler{walletSvc: walletSvc, withdrawalSvc: withdrawalSvc}
}

// GetBalance godoc
// GET /api/wallet/balance [JWT]
func (h *WalletHandler) GetBalance(c *gin.Context) {
	userID := middleware.GetUserID(c)
	balance, err := h.walletSvc.GetBalance(c.Request.Context(), userID)
	if err != nil {
		respondError(c, http.StatusNotFound, "ERR_USER_NOT_FOUND", err.Error())
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"balance": balance})
}

// GetTransactions godoc
// GET /api/wallet/transactions?page=1&limit=20&type=deposit&status=completed&room=RM-XXXXXX&from=2026-01-01&to=2026-02-01 [JWT]
func (h *WalletHandler) GetTransactions(c *gin.Context) {
	userID := middleware.GetUserID(c)
	page, limit := parsePagination(c)
	offset := (page - 1) * limit

	f := domain.LedgerFilter{
		Type:     domain.EntryType(c.Query("type")),
		Status:   domain.EntryStatus(c.Query("status")),
		RoomCode: c.Query("room"),
	}
	if v := c.Query("from"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			respondError(c, http.StatusBadRequest, "ERR_VALIDATION", "from must be YYYY-MM-DD")
			return
		}
		f.From = t
	}
	if v := c.Query("to"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			respondError(c, http.StatusBadRequest, "ERR_VALIDATION", "to must be YYYY-MM-DD")
			return
		}
		f.To = t
	}

	entries, err := h.walletSvc.GetTransactions(c.Request.Context(), userID, f, limit, offset)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not fetch transactions")
		return
	}
	respondList(c, entries, len(entries), page, limit)
}

// Deposit godoc
// POST /api/wallet/deposit [JWT]
// Body: {"amount":"500.00","gateway_ref":"pay_abc123"}
func (h *WalletHandler) Deposit(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var body struct {
		Amount     string `json:"amount"      binding:"required"`
		GatewayRef string `json:"gateway_ref" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}

	amount, err := decimal.NewFromString(body.Amount)
	if err != nil || amount.IsNegative() || amount.IsZero() {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_AMOUNT", "amount must be a positive decimal string")
		return
	}

	entry, err := h.walletSvc.Deposit(c.Request.Context(), userID, amount, body.GatewayRef)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not process deposit")
		return
	}
	respondSuccess(c, http.StatusCreated, entry)
}

// Withdraw godoc
// POST /api/wallet/withdraw [JWT]
// Body: {"amount":"1000.00","upi_id":"name@bank"}
func (h *WalletHandler) Withdraw(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var body struct {
		Amount string `json:"amount" binding:"required"`
		UpiID  string `json:"upi_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, http.StatusBadRequest, "ERR_VALIDATION", err.Error())
		return
	}

	amount, err := decimal.NewFromString(body.Amount)
	if err != nil || amount.IsNegative() || amount.IsZero() {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_AMOUNT", "amount must be a positive decimal string")
		return
	}

	req, err := h.withdrawalSvc.Submit(c.Request.Context(), userID, amount, body.UpiID)
	if err != nil {
		switch err {
		case domain.ErrWithdrawalOutOfBounds:
			respondError(c, http.StatusBadRequest, "ERR_AMOUNT_OUT_OF_BOUNDS", err.Error())
		case domain.ErrInvalidUpiID:
			respondError(c, http.StatusBadRequest, "ERR_INVALID_UPI_ID", err.Error())
		case domain.ErrPendingWithdrawalExists:
			respondError(c, http.StatusConflict, "ERR_PENDING_WITHDRAWAL_EXISTS", err.Error())
		case domain.ErrInsufficientBalance:
			respondError(c, http.StatusPaymentRequired, "ERR_INSUFFICIENT_BALANCE", err.Error())
		default:
			respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not create withdrawal request")
		}
		return
	}
	respondSuccess(c, http.StatusCreated, req)
}

// CancelWithdrawal godoc
// POST /api/wallet/withdraw/:id/cancel [JWT]
func (h *WalletHandler) CancelWithdrawal(c *gin.Context) {
	userID := middleware.GetUserID(c)

	requestID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "ERR_INVALID_REQUEST_ID", "invalid withdrawal request id")
		return
	}

	req, err := h.withdrawalSvc.Cancel(c.Request.Context(), requestID, userID)
	if err != nil {
		switch err {
		case domain.ErrWithdrawalNotFound:
			respondError(c, http.StatusNotFound, "ERR_NOT_FOUND", err.Error())
		case domain.ErrForbidden:
			respondError(c, http.StatusForbidden, "ERR_FORBIDDEN", "this withdrawal request does not belong to you")
		case domain.ErrWithdrawalNotPending:
			respondError(c, http.StatusConflict, "ERR_NOT_PENDING", err.Error())
		default:
			respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not cancel withdrawal request")
		}
		return
	}
	respondSuccess(c, http.StatusOK, req)
}

// GetWithdrawStatus godoc
// GET /api/wallet/withdraw/status?page=1&limit=20 [JWT]
func (h *WalletHandler) GetWithdrawStatus(c *gin.Context) {
	userID := middleware.GetUserID(c)
	page, limit := parsePagination(c)
	offset := (page - 1) * limit

	reqs, err := h.withdrawalSvc.MyRequests(c.Request.Context(), userID, limit, offset)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "ERR_INTERNAL", "could not fetch withdrawal requests")
		return
	}
	respondList(c, reqs, len(reqs), page, limit)
}
