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

// ──────────────────────────────────────────────────────────────────────────────
// BalanceChange — input to the Balance Mutator
// ──────────────────────────────────────────────────────────────────────────────

// BalanceChange carries the validated inputs for one balance mutation.
type BalanceChange struct {
	UserID      uuid.UUID
	Type        domain.EntryType
	Amount      decimal.Decimal // must be positive; the type fixes the sign
	Status      domain.EntryStatus
	RoomCode    *string
	UpiID       *string
	Description string
	Metadata    domain.Metadata
}

// ──────────────────────────────────────────────────────────────────────────────
// WalletService — the Balance Mutator
// ──────────────────────────────────────────────────────────────────────────────

// WalletService is the single choke point through which every balance change
// flows.  It knows nothing about rooms or withdrawals; higher-level workflows
// compose repeated ApplyChangeInTx calls inside their own transactions.
type WalletService struct {
	db         *sqlx.DB
	userRepo   *repository.UserRepository
	ledgerRepo *repository.LedgerRepository
	cache      cache.Cache
	cfg        *config.Config
}

// NewWalletService creates a WalletService.
func NewWalletService(
	db *sqlx.DB,
	userRepo *repository.UserRepository,
	ledgerRepo *repository.LedgerRepository,
	c cache.Cache,
	cfg *config.Config,
) *WalletService {
	if c == nil {
		c = cache.NoOp{}
	}
	return &WalletService{db: db, userRepo: userRepo, ledgerRepo: ledgerRepo, cache: c, cfg: cfg}
}

// ApplyBalanceChange runs one balance mutation in its own transaction.
// On success the user's new balance and the ledger entry have committed
// together; on any error nothing was written.
func (s *WalletService) ApplyBalanceChange(ctx context.Context, change BalanceChange) (*domain.LedgerEntry, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("wallet_service.ApplyBalanceChange: begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	entry, err := s.ApplyChangeInTx(ctx, tx, change)
	if err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("wallet_service.ApplyBalanceChange: commit: %w", err)
	}

	s.cache.Invalidate(cache.BalanceKey(change.UserID.String()))
	return entry, nil
}

// ApplyChangeInTx performs the atomic read-compute-write-append unit inside a
// caller-owned transaction:
//
//	(a) lock the user's balance row (FOR UPDATE),
//	(b) compute the new balance from the signed amount,
//	(c) abort with ErrInsufficientBalance if a debit would go negative,
//	(d) write the new balance,
//	(e) append the ledger entry snapshotting before/after.
//
// Concurrent invocations against the same user serialise on the row lock, so
// two debits of 80 against a balance of 100 can never both succeed.  The
// caller owns commit/rollback; on error nothing in the transaction is kept.
func (s *WalletService) ApplyChangeInTx(ctx context.Context, tx *sqlx.Tx, change BalanceChange) (*domain.LedgerEntry, error) {
	if !change.Amount.IsPositive() || !change.Type.IsValid() {
		return nil, domain.ErrInvalidAmount
	}

	before, err := s.userRepo.LockBalance(ctx, tx, change.UserID)
	if err != nil {
		return nil, err
	}

	var after decimal.Decimal
	if change.Type.IsDebit() {
		after = before.Sub(change.Amount)
		if after.IsNegative() {
			return nil, domain.ErrInsufficientBalance
		}
	} else {
		after = before.Add(change.Amount)
	}

	if err = s.userRepo.SetBalance(ctx, tx, change.UserID, after); err != nil {
		return nil, err
	}

	status := change.Status
	if status == "" {
		status = domain.EntryCompleted
	}
	now := time.Now().UTC()
	entry := &domain.LedgerEntry{
		ID:            uuid.New(),
		TransactionID: domain.NewTransactionID(now),
		UserID:        change.UserID,
		Type:          change.Type,
		Amount:        change.Amount,
		BalanceBefore: before,
		BalanceAfter:  after,
		Status:        status,
		RoomCode:      change.RoomCode,
		UpiID:         change.UpiID,
		Description:   change.Description,
		Metadata:      change.Metadata,
		CreatedAt:     now,
	}
	if err = s.ledgerRepo.Insert(ctx, tx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Deposit
// ──────────────────────────────────────────────────────────────────────────────

// Deposit credits a gateway-confirmed amount to the user's wallet.
func (s *WalletService) Deposit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, gatewayRef string) (*domain.LedgerEntry, error) {
	entry, err := s.ApplyBalanceChange(ctx, BalanceChange{
		UserID:      userID,
		Type:        domain.EntryDeposit,
		Amount:      amount,
		Description: "Wallet deposit",
		Metadata:    domain.Metadata{"gateway_ref": gatewayRef},
	})
	if err != nil {
		return nil, fmt.Errorf("wallet_service.Deposit: %w", err)
	}
	return entry, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Queries
// ──────────────────────────────────────────────────────────────────────────────

// GetBalance returns the live balance, reading through the cache.
func (s *WalletService) GetBalance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	key := cache.BalanceKey(userID.String())
	if v, ok := s.cache.Get(key); ok {
		if d, err := decimal.NewFromString(v); err == nil {
			return d, nil
		}
	}
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("wallet_service.GetBalance: %w", err)
	}
	s.cache.Set(key, user.Balance.String(), 30*time.Second)
	return user.Balance, nil
}

// GetTransactions returns a user's ledger history, newest-first.
func (s *WalletService) GetTransactions(ctx context.Context, userID uuid.UUID, f domain.LedgerFilter, limit, offset int) ([]*domain.LedgerEntry, error) {
	entries, err := s.ledgerRepo.ListByUser(ctx, userID, f, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("wallet_service.GetTransactions: %w", err)
	}
	return entries, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Reconciliation
// ──────────────────────────────────────────────────────────────────────────────

// ReconcileReport is the outcome of replaying a user's ledger.
type ReconcileReport struct {
	UserID          uuid.UUID       `json:"user_id"`
	EntryCount      int             `json:"entry_count"`
	ReplayedBalance decimal.Decimal `json:"replayed_balance"`
	LiveBalance     decimal.Decimal `json:"live_balance"`
	Drift           decimal.Decimal `json:"drift"` // live − replayed; zero when consistent
	BrokenEntries   []string        `json:"broken_entries,omitempty"`
}

// Consistent reports whether the replay reproduced the live balance and every
// entry conserved its amount.
func (r *ReconcileReport) Consistent() bool {
	return r.Drift.IsZero() && len(r.BrokenEntries) == 0
}

// Reconcile folds every ledger entry for a user in creation order from a zero
// balance and compares the result with the live balance.  Every entry mutated
// the balance at creation time regardless of its later status (a rejected
// withdrawal keeps its debit and is compensated by a refund entry), so the
// fold covers all statuses.  Entries whose before/after snapshot does not
// match their signed amount are reported individually.
func (s *WalletService) Reconcile(ctx context.Context, userID uuid.UUID) (*ReconcileReport, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("wallet_service.Reconcile: %w", err)
	}
	entries, err := s.ledgerRepo.ReplayByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("wallet_service.Reconcile: %w", err)
	}

	report := &ReconcileReport{UserID: userID, EntryCount: len(entries), LiveBalance: user.Balance}
	replayed := decimal.Zero
	for _, e := range entries {
		if !e.Conserves() {
			report.BrokenEntries = append(report.BrokenEntries, e.TransactionID)
		}
		replayed = replayed.Add(e.SignedAmount())
	}
	report.ReplayedBalance = replayed
	report.Drift = user.Balance.Sub(replayed)
	return report, nil
}
