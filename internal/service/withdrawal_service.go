package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/khelzone/gameroom/internal/cache"
	"github.com/khelzone/gameroom/internal/config"
	"github.com/khelzone/gameroom/internal/domain"
	"github.com/khelzone/gameroom/internal/repository"
	"github.com/shopspring/decimal"
)

// WithdrawalService runs the held-funds payout workflow: the wallet is
// debited the moment a request is submitted, so the money is out of the
// spendable balance before any admin looks at it.  Approval confirms the
// external UPI payout; reject/cancel refund the held amount.
type WithdrawalService struct {
	db             *sqlx.DB
	withdrawalRepo *repository.WithdrawalRepository
	ledgerRepo     *repository.LedgerRepository
	walletSvc      *WalletService
	cache          cache.Cache
	cfg            *config.Config
}

// NewWithdrawalService creates a WithdrawalService.
func NewWithdrawalService(
	db *sqlx.DB,
	withdrawalRepo *repository.WithdrawalRepository,
	ledgerRepo *repository.LedgerRepository,
	walletSvc *WalletService,
	c cache.Cache,
	cfg *config.Config,
) *WithdrawalService {
	if c == nil {
		c = cache.NoOp{}
	}
	return &WithdrawalService{
		db:             db,
		withdrawalRepo: withdrawalRepo,
		ledgerRepo:     ledgerRepo,
		walletSvc:      walletSvc,
		cache:          c,
		cfg:            cfg,
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Submit
// ──────────────────────────────────────────────────────────────────────────────

// Submit validates bounds and UPI format, enforces the single-pending-request
// invariant, debits the wallet (ledger entry status pending), and creates the
// request referencing that entry — debit and request in one transaction.
func (s *WithdrawalService) Submit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, upiID string) (*domain.WithdrawalRequest, error) {
	minW := decimal.NewFromFloat(s.cfg.Wallet.MinWithdraw)
	maxW := decimal.NewFromFloat(s.cfg.Wallet.MaxWithdraw)
	if amount.LessThan(minW) || amount.GreaterThan(maxW) {
		return nil, domain.ErrWithdrawalOutOfBounds
	}
	if !domain.IsValidUpiID(upiID) {
		return nil, domain.ErrInvalidUpiID
	}

	// Early check for a friendlier error; the partial unique index is the
	// authoritative guard under concurrency.
	pending, err := s.withdrawalRepo.HasPending(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("withdrawal_service.Submit: %w", err)
	}
	if pending {
		return nil, domain.ErrPendingWithdrawalExists
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("withdrawal_service.Submit: begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	entry, err := s.walletSvc.ApplyChangeInTx(ctx, tx, BalanceChange{
		UserID:      userID,
		Type:        domain.EntryWithdrawal,
		Amount:      amount,
		Status:      domain.EntryPending, // held funds: completes on approval
		UpiID:       &upiID,
		Description: fmt.Sprintf("Withdrawal to %s", upiID),
		Metadata:    domain.Metadata{"event": "withdrawal_submit"},
	})
	if err != nil {
		return nil, err
	}

	req := &domain.WithdrawalRequest{
		ID:            uuid.New(),
		UserID:        userID,
		LedgerEntryID: entry.ID,
		TransactionID: entry.TransactionID,
		Amount:        amount,
		UpiID:         upiID,
		Status:        domain.WithdrawalPending,
		RequestedAt:   entry.CreatedAt,
	}
	if err = s.withdrawalRepo.Create(ctx, tx, req); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("withdrawal_service.Submit: commit: %w", err)
	}

	s.cache.Invalidate(cache.BalanceKey(userID.String()))
	return req, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Approve
// ──────────────────────────────────────────────────────────────────────────────

// Approve confirms the external payout was executed.  No balance movement —
// the debit already happened at submit time; the linked ledger entry just
// transitions pending → completed.
func (s *WithdrawalService) Approve(ctx context.Context, requestID, adminID uuid.UUID, notes string) (*domain.WithdrawalRequest, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("withdrawal_service.Approve: begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	req, err := s.withdrawalRepo.LockByID(ctx, tx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != domain.WithdrawalPending {
		err = domain.ErrWithdrawalNotPending
		return nil, err
	}

	if err = s.ledgerRepo.UpdateStatus(ctx, tx, req.LedgerEntryID, domain.EntryCompleted); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err = s.withdrawalRepo.SetDecision(ctx, tx, req.ID, domain.WithdrawalApproved, &adminID, notes, "", now); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("withdrawal_service.Approve: commit: %w", err)
	}

	req.Status = domain.WithdrawalApproved
	req.ProcessedBy = &adminID
	req.ProcessedAt = &now
	req.AdminNotes = notes
	return req, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Reject / Cancel
// ──────────────────────────────────────────────────────────────────────────────

// Reject refuses a pending request: the linked ledger entry is marked failed
// and the held amount refunded, atomically with the request's transition.
func (s *WithdrawalService) Reject(ctx context.Context, requestID, adminID uuid.UUID, reason string) (*domain.WithdrawalRequest, error) {
	return s.refund(ctx, requestID, &adminID, nil, domain.WithdrawalRejected, domain.EntryFailed, reason)
}

// Cancel is the user's self-service version of Reject: the caller must own
// the request and no rejection reason is recorded.  The linked entry is
// marked cancelled instead of failed.
func (s *WithdrawalService) Cancel(ctx context.Context, requestID, userID uuid.UUID) (*domain.WithdrawalRequest, error) {
	return s.refund(ctx, requestID, nil, &userID, domain.WithdrawalCancelled, domain.EntryCancelled, "")
}

// refund marks the linked entry with entryStatus, credits back the held
// amount, and moves the request to reqStatus — one transaction.  When owner
// is non-nil the request must belong to that user (self-service cancel).
func (s *WithdrawalService) refund(
	ctx context.Context,
	requestID uuid.UUID,
	adminID *uuid.UUID,
	owner *uuid.UUID,
	reqStatus domain.WithdrawalStatus,
	entryStatus domain.EntryStatus,
	reason string,
) (*domain.WithdrawalRequest, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("withdrawal_service.refund: begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	req, err := s.withdrawalRepo.LockByID(ctx, tx, requestID)
	if err != nil {
		return nil, err
	}
	if owner != nil && req.UserID != *owner {
		err = domain.ErrForbidden
		return nil, err
	}
	if req.Status != domain.WithdrawalPending {
		err = domain.ErrWithdrawalNotPending
		return nil, err
	}

	if err = s.ledgerRepo.UpdateStatus(ctx, tx, req.LedgerEntryID, entryStatus); err != nil {
		return nil, err
	}

	if _, err = s.walletSvc.ApplyChangeInTx(ctx, tx, BalanceChange{
		UserID:      req.UserID,
		Type:        domain.EntryRefund,
		Amount:      req.Amount,
		Description: fmt.Sprintf("Refund: withdrawal %s %s", req.TransactionID, string(reqStatus)),
		Metadata:    domain.Metadata{"event": "withdrawal_" + string(reqStatus), "withdrawal_txn": req.TransactionID},
	}); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err = s.withdrawalRepo.SetDecision(ctx, tx, req.ID, reqStatus, adminID, "", reason, now); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("withdrawal_service.refund: commit: %w", err)
	}

	s.cache.Invalidate(cache.BalanceKey(req.UserID.String()))

	req.Status = reqStatus
	req.ProcessedBy = adminID
	req.ProcessedAt = &now
	req.RejectionReason = reason
	return req, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Queries
// ──────────────────────────────────────────────────────────────────────────────

// MyRequests returns a user's withdrawal history, paginated.
func (s *WithdrawalService) MyRequests(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.WithdrawalRequest, error) {
	return s.withdrawalRepo.ListByUser(ctx, userID, limit, offset)
}

// Queue returns the back-office withdrawal queue filtered by status.
func (s *WithdrawalService) Queue(ctx context.Context, status string, limit, offset int) ([]*domain.WithdrawalRequest, error) {
	return s.withdrawalRepo.List(ctx, status, limit, offset)
}
