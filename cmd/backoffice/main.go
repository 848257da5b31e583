// Package main is the entry point for the khelzone back-office admin server.
// Runs on its own port and exposes admin-only endpoints protected by RBAC.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/khelzone/gameroom/internal/backoffice"
	"github.com/khelzone/gameroom/internal/cache"
	"github.com/khelzone/gameroom/internal/config"
	"github.com/khelzone/gameroom/internal/repository"
	"github.com/khelzone/gameroom/internal/service"
)

func main() {
	// ── Logger ────────────────────────────────────────────────────────────────
	cfg := config.MustLoad()

	var logHandler slog.Handler
	if cfg.IsProd() {
		logHandler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	} else {
		logHandler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	logger := slog.New(logHandler)
	slog.SetDefault(logger)

	logger.Info("starting khelzone backoffice server",
		"env", cfg.Server.Env, "port", cfg.Server.BackofficePort)

	// ── Database ──────────────────────────────────────────────────────────────
	db, err := sqlx.Connect("postgres", cfg.DB.DSN)
	if err != nil {
		logger.Error("database connection failed", "err", err)
		os.Exit(1)
	}
	db.SetMaxOpenConns(cfg.DB.MaxOpenConns)
	db.SetMaxIdleConns(cfg.DB.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.DB.ConnMaxLifetime)

	if err = db.Ping(); err != nil {
		logger.Error("database ping failed", "err", err)
		os.Exit(1)
	}
	logger.Info("database connected")

	// ── Repositories ──────────────────────────────────────────────────────────
	userRepo := repository.NewUserRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	roomRepo := repository.NewRoomRepository(db)
	withdrawalRepo := repository.NewWithdrawalRepository(db)

	// ── Services ──────────────────────────────────────────────────────────────
	// The backoffice shares the users table with the API server, so balance
	// caching is left off here; every admin read hits the database.
	walletSvc := service.NewWalletService(db, userRepo, ledgerRepo, cache.NoOp{}, cfg)
	roomSvc := service.NewRoomService(db, roomRepo, userRepo, walletSvc, cache.NoOp{}, cfg)
	withdrawalSvc := service.NewWithdrawalService(db, withdrawalRepo, ledgerRepo, walletSvc, cache.NoOp{}, cfg)
	correctionSvc := service.NewCorrectionService(db, roomRepo, userRepo, walletSvc, cache.NoOp{}, cfg)
	authSvc := service.NewAuthService(db, userRepo, walletSvc, cfg)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Router ────────────────────────────────────────────────────────────────
	router := backoffice.SetupBackofficeRouter(backoffice.BackofficeDeps{
		AuthSvc:       authSvc,
		RoomSvc:       roomSvc,
		WalletSvc:     walletSvc,
		WithdrawalSvc: withdrawalSvc,
		CorrectionSvc: correctionSvc,
		UserRepo:      userRepo,
		RoomRepo:      roomRepo,
		LedgerRepo:    ledgerRepo,
		Cfg:           cfg,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.BackofficePort,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// ── Start ─────────────────────────────────────────────────────────────────
	go func() {
		logger.Info("backoffice http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("backoffice server error", "err", err)
			stop()
		}
	}()

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err = srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("backoffice shutdown error", "err", err)
	}

	db.Close()
	logger.Info("backoffice server stopped cleanly")
}
