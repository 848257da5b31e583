package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/khelzone/gameroom/internal/cache"
	"github.com/khelzone/gameroom/internal/config"
	"github.com/khelzone/gameroom/internal/domain"
	"github.com/khelzone/gameroom/internal/repository"
	"github.com/lib/pq"
)

// CorrectionService implements the admin winner-correction protocol: a
// double-entry reversal (debit the old winner, credit the new one) against a
// room that already completed, preserving ledger auditability instead of
// overwriting history.
type CorrectionService struct {
	db        *sqlx.DB
	roomRepo  *repository.RoomRepository
	userRepo  *repository.UserRepository
	walletSvc *WalletService
	cache     cache.Cache
	cfg       *config.Config
}

// NewCorrectionService creates a CorrectionService.
func NewCorrectionService(
	db *sqlx.DB,
	roomRepo *repository.RoomRepository,
	userRepo *repository.UserRepository,
	walletSvc *WalletService,
	c cache.Cache,
	cfg *config.Config,
) *CorrectionService {
	if c == nil {
		c = cache.NoOp{}
	}
	return &CorrectionService{
		db:        db,
		roomRepo:  roomRepo,
		userRepo:  userRepo,
		walletSvc: walletSvc,
		cache:     c,
		cfg:       cfg,
	}
}

// CorrectWinner reassigns the winner of a completed room.  The whole atomic
// unit — old winner debit, new winner credit, both counter adjustments, and
// the room's winner update — runs in one transaction.  Because it
// read-modify-writes two user rows plus the room, concurrent unrelated
// operations on the same users can produce transient serialisation conflicts;
// the unit is retried a bounded number of times with doubling backoff, and
// every attempt re-reads fresh state (the old winner's balance may have
// changed between attempts).
func (s *CorrectionService) CorrectWinner(ctx context.Context, code string, adminID, newWinnerID uuid.UUID, reason string) (*domain.GameRoom, error) {
	backoff := s.cfg.Wallet.CorrectionBackoff
	var lastErr error

	for attempt := 1; attempt <= s.cfg.Wallet.CorrectionRetries; attempt++ {
		room, err := s.correctOnce(ctx, code, adminID, newWinnerID, reason)
		if err == nil {
			return room, nil
		}
		if !isTransientConflict(err) {
			return nil, err
		}
		lastErr = err
		slog.Warn("winner correction hit write conflict, retrying",
			"room", code, "attempt", attempt, "err", err)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return nil, fmt.Errorf("%w: %v", domain.ErrRetriesExhausted, lastErr)
}

// correctOnce runs a single attempt of the correction atomic unit against
// fresh state.
func (s *CorrectionService) correctOnce(ctx context.Context, code string, adminID, newWinnerID uuid.UUID, reason string) (*domain.GameRoom, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("correction_service.CorrectWinner: begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	room, err := s.roomRepo.LockByCode(ctx, tx, code)
	if err != nil {
		return nil, err
	}
	if room.Status != domain.RoomCompleted || room.WinnerID == nil {
		err = domain.ErrRoomNotCompleted
		return nil, err
	}
	if !room.HasPlayer(newWinnerID) {
		err = domain.ErrWinnerNotAPlayer
		return nil, err
	}
	oldWinnerID := *room.WinnerID
	if oldWinnerID == newWinnerID {
		err = domain.ErrSameWinner
		return nil, err
	}

	// Frozen at game start; corrections reuse it verbatim.
	winnerAmount := *room.WinnerAmount

	// Reversal debit.  ApplyChangeInTx locks the old winner's row and fails
	// the whole unit when the payout can no longer be clawed back.
	_, err = s.walletSvc.ApplyChangeInTx(ctx, tx, BalanceChange{
		UserID:      oldWinnerID,
		Type:        domain.EntryWithdrawal,
		Amount:      winnerAmount,
		RoomCode:    &room.Code,
		Description: fmt.Sprintf("Reversal: winnings of room %s reassigned", room.Code),
		Metadata: domain.Metadata{
			"event":    "admin_reversal",
			"admin_id": adminID.String(),
			"reason":   reason,
		},
	})
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientBalance) {
			err = domain.ErrInsufficientBalanceForReversal
		}
		return nil, err
	}

	// Correction credit for the same frozen amount.
	if _, err = s.walletSvc.ApplyChangeInTx(ctx, tx, BalanceChange{
		UserID:      newWinnerID,
		Type:        domain.EntryGameWin,
		Amount:      winnerAmount,
		RoomCode:    &room.Code,
		Description: fmt.Sprintf("Correction: winnings of room %s", room.Code),
		Metadata: domain.Metadata{
			"event":    "admin_correction",
			"admin_id": adminID.String(),
			"reason":   reason,
		},
	}); err != nil {
		return nil, err
	}

	if err = s.userRepo.AddWin(ctx, tx, oldWinnerID, -1, winnerAmount.Neg()); err != nil {
		return nil, err
	}
	if err = s.userRepo.AddWin(ctx, tx, newWinnerID, 1, winnerAmount); err != nil {
		return nil, err
	}
	if err = s.roomRepo.SetWinner(ctx, tx, room.ID, newWinnerID); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("correction_service.CorrectWinner: commit: %w", err)
	}

	s.cache.Invalidate(
		cache.BalanceKey(oldWinnerID.String()),
		cache.BalanceKey(newWinnerID.String()),
		cache.RoomKey(room.Code),
	)

	room.WinnerID = &newWinnerID
	return room, nil
}

// isTransientConflict classifies PostgreSQL serialisation failures (40001)
// and deadlocks (40P01) as retryable.  Context timeouts on a single round
// trip are also eligible for the bounded retry.
func isTransientConflict(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "40001" || pqErr.Code == "40P01"
	}
	return errors.Is(err, context.DeadlineExceeded)
}
