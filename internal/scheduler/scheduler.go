// Package scheduler manages the two background goroutines that keep the
// platform tidy:
//  1. staleRoomSweepLoop – cancels (and refunds) waiting rooms that never
//     filled within the configured TTL.
//  2. reconcileLoop      – samples recently active users and replays their
//     ledgers, alerting on any drift against the live balance.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/khelzone/gameroom/internal/config"
	"github.com/khelzone/gameroom/internal/repository"
	"github.com/khelzone/gameroom/internal/service"
)

// reconcileSampleSize bounds how many users one reconciliation pass inspects.
const reconcileSampleSize = 50

// ──────────────────────────────────────────────────────────────────────────────
// Scheduler
// ──────────────────────────────────────────────────────────────────────────────

// Scheduler runs the background maintenance goroutines.  Call Start(ctx) once
// from main(); cancel the context to shut it down gracefully.
type Scheduler struct {
	roomSvc    *service.RoomService
	walletSvc  *service.WalletService
	ledgerRepo *repository.LedgerRepository
	cfg        *config.Config
	logger     *slog.Logger
}

// NewScheduler creates a Scheduler.
func NewScheduler(
	roomSvc *service.RoomService,
	walletSvc *service.WalletService,
	ledgerRepo *repository.LedgerRepository,
	cfg *config.Config,
	logger *slog.Logger,
) *Scheduler {
	return &Scheduler{
		roomSvc:    roomSvc,
		walletSvc:  walletSvc,
		ledgerRepo: ledgerRepo,
		cfg:        cfg,
		logger:     logger,
	}
}

// Start launches the background goroutines.  It returns immediately; all
// loops run until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	go s.staleRoomSweepLoop(ctx)
	if s.cfg.Wallet.ReconcileInterval > 0 {
		go s.reconcileLoop(ctx)
	}
	s.logger.Info("scheduler started")
}

// ──────────────────────────────────────────────────────────────────────────────
// staleRoomSweepLoop
// ──────────────────────────────────────────────────────────────────────────────

// staleRoomSweepLoop cancels waiting rooms older than the configured TTL on
// every sweep interval.  Cancellation refunds every seated player.
func (s *Scheduler) staleRoomSweepLoop(ctx context.Context) {
	defer s.recoverAndLog("staleRoomSweepLoop")

	ticker := time.NewTicker(s.cfg.Game.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("staleRoomSweepLoop: shutting down")
			return
		case <-ticker.C:
			n, err := s.roomSvc.SweepStaleRooms(ctx)
			if err != nil {
				s.logger.Error("staleRoomSweepLoop: sweep failed", "err", err)
				continue
			}
			if n > 0 {
				s.logger.Info("stale rooms cancelled", "count", n)
			}
		}
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// reconcileLoop
// ──────────────────────────────────────────────────────────────────────────────

// reconcileLoop periodically replays the ledgers of recently active users.
// It is an alerting mechanism only; it never mutates balances.
func (s *Scheduler) reconcileLoop(ctx context.Context) {
	defer s.recoverAndLog("reconcileLoop")

	ticker := time.NewTicker(s.cfg.Wallet.ReconcileInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("reconcileLoop: shutting down")
			return
		case <-ticker.C:
			s.reconcileRecent(ctx)
		}
	}
}

// reconcileRecent replays the ledger of every user with entries since the
// last pass and logs an error for each drifting account.
func (s *Scheduler) reconcileRecent(ctx context.Context) {
	since := time.Now().UTC().Add(-s.cfg.Wallet.ReconcileInterval)
	userIDs, err := s.ledgerRepo.RecentUserIDs(ctx, since, reconcileSampleSize)
	if err != nil {
		s.logger.Error("reconcileLoop: could not list recent users", "err", err)
		return
	}

	drifting := 0
	for _, userID := range userIDs {
		report, err := s.walletSvc.Reconcile(ctx, userID)
		if err != nil {
			s.logger.Warn("reconcileLoop: replay failed", "user", userID, "err", err)
			continue
		}
		if !report.Drift.IsZero() || len(report.BrokenEntries) > 0 {
			drifting++
			s.logger.Error("LEDGER DRIFT detected",
				"user", userID,
				"live_balance", report.LiveBalance,
				"replayed_balance", report.ReplayedBalance,
				"drift", report.Drift,
				"broken_entries", report.BrokenEntries,
			)
		}
	}

	if len(userIDs) > 0 {
		s.logger.Info("reconciliation pass complete",
			"sampled", len(userIDs), "drifting", drifting)
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Panic recovery
// ──────────────────────────────────────────────────────────────────────────────

// recoverAndLog is deferred inside each goroutine to catch unexpected panics,
// log them, and allow the scheduler to continue running.
func (s *Scheduler) recoverAndLog(loop string) {
	if r := recover(); r != nil {
		s.logger.Error("PANIC recovered in scheduler loop",
			"loop", loop, "panic", r)
	}
}
