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
	"github.com/shopspring/decimal"
)

// ──────────────────────────────────────────────────────────────────────────────
// Interfaces injected into RoomService to avoid import cycles
// ──────────────────────────────────────────────────────────────────────────────

// Broadcaster is the minimal interface RoomService needs from the WS hub.
// Implemented by ws.Hub.
type Broadcaster interface {
	BroadcastPlayerJoined(roomCode string, userID uuid.UUID, playerName string, seated, maxPlayers int)
	BroadcastGameStarted(roomCode string, pot domain.Pot)
	BroadcastWinnerDeclared(roomCode string, winnerID uuid.UUID, amount decimal.Decimal)
	BroadcastRoomCancelled(roomCode, reason string)
}

// roomCreateRetries bounds code-collision retries at creation.
const roomCreateRetries = 3

// ──────────────────────────────────────────────────────────────────────────────
// RoomService — the Room Settlement Engine
// ──────────────────────────────────────────────────────────────────────────────

// RoomService governs the room state machine: entry-fee collection, pot
// freezing, winner payout, and cancellation refunds.  Every transition that
// moves money wraps its Balance Mutator calls and the room write in a single
// PostgreSQL transaction, with the room row locked FOR UPDATE.
type RoomService struct {
	db          *sqlx.DB
	roomRepo    *repository.RoomRepository
	userRepo    *repository.UserRepository
	walletSvc   *WalletService
	cache       cache.Cache
	cfg         *config.Config
	broadcaster Broadcaster // injected after the WS hub is built
}

// NewRoomService creates a RoomService.
func NewRoomService(
	db *sqlx.DB,
	roomRepo *repository.RoomRepository,
	userRepo *repository.UserRepository,
	walletSvc *WalletService,
	c cache.Cache,
	cfg *config.Config,
) *RoomService {
	if c == nil {
		c = cache.NoOp{}
	}
	return &RoomService{
		db:        db,
		roomRepo:  roomRepo,
		userRepo:  userRepo,
		walletSvc: walletSvc,
		cache:     c,
		cfg:       cfg,
	}
}

// SetBroadcaster injects the WS hub dependency post-construction.
func (s *RoomService) SetBroadcaster(b Broadcaster) { s.broadcaster = b }

// ──────────────────────────────────────────────────────────────────────────────
// CreateRoom
// ──────────────────────────────────────────────────────────────────────────────

// CreateRoom validates the entry bounds, debits the creator's entry fee, and
// persists the room with the creator as sole player — debit and room insert
// commit together or not at all.  Code collisions retry with a fresh code.
func (s *RoomService) CreateRoom(ctx context.Context, creatorID uuid.UUID, amount decimal.Decimal, maxPlayers int, gameType string) (*domain.GameRoom, error) {
	if amount.LessThan(domain.MinEntryAmount) || amount.GreaterThan(domain.MaxEntryAmount) {
		return nil, domain.ErrEntryAmountOutOfBounds
	}
	if maxPlayers < domain.MinPlayers || maxPlayers > domain.MaxPlayers {
		return nil, domain.ErrInvalidPlayerCount
	}

	creator, err := s.userRepo.GetByID(ctx, creatorID)
	if err != nil {
		return nil, err
	}
	if !creator.IsActive {
		return nil, domain.ErrUserInactive
	}

	var room *domain.GameRoom
	for attempt := 0; attempt < roomCreateRetries; attempt++ {
		room, err = s.createOnce(ctx, creator, amount, maxPlayers, gameType)
		if err == nil {
			break
		}
		if !errors.Is(err, domain.ErrDuplicateRoomCode) {
			return nil, err
		}
	}
	if err != nil {
		return nil, err
	}

	s.cache.Invalidate(cache.BalanceKey(creatorID.String()))
	return room, nil
}

func (s *RoomService) createOnce(ctx context.Context, creator *domain.User, amount decimal.Decimal, maxPlayers int, gameType string) (*domain.GameRoom, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("room_service.CreateRoom: begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	code := domain.NewRoomCode()

	if _, err = s.walletSvc.ApplyChangeInTx(ctx, tx, BalanceChange{
		UserID:      creator.ID,
		Type:        domain.EntryGameLoss,
		Amount:      amount,
		RoomCode:    &code,
		Description: fmt.Sprintf("Entry fee for room %s", code),
		Metadata:    domain.Metadata{"event": "room_create"},
	}); err != nil {
		return nil, err
	}

	room := &domain.GameRoom{
		ID:         uuid.New(),
		Code:       code,
		GameType:   gameType,
		Amount:     amount,
		MaxPlayers: maxPlayers,
		Status:     domain.RoomWaiting,
		CreatedBy:  creator.ID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err = s.roomRepo.Create(ctx, tx, room); err != nil {
		return nil, err
	}

	seat := &domain.RoomPlayer{
		RoomID:   room.ID,
		UserID:   creator.ID,
		Name:     creator.Name,
		Position: 0,
		JoinedAt: now,
	}
	if err = s.roomRepo.AddPlayer(ctx, tx, seat); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("room_service.CreateRoom: commit: %w", err)
	}

	room.Players = []domain.RoomPlayer{*seat}
	return room, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// JoinRoom
// ──────────────────────────────────────────────────────────────────────────────

// JoinRoom takes a seat in a waiting room: the room row is locked FOR UPDATE,
// the joiner's entry fee is debited, and the seat appended, all in one
// transaction.  When the last seat fills, the pot is computed once, frozen on
// the room, and the room transitions to playing in the same transaction — two
// simultaneous joins for the last seat serialise on the room lock, so exactly
// one succeeds and exactly one entry fee is debited.
func (s *RoomService) JoinRoom(ctx context.Context, code string, userID uuid.UUID) (*domain.GameRoom, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, domain.ErrUserInactive
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("room_service.JoinRoom: begin tx: %w", err)
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
	if room.Status != domain.RoomWaiting {
		err = domain.ErrRoomNotWaiting
		return nil, err
	}
	if room.HasPlayer(userID) {
		err = domain.ErrAlreadyJoined
		return nil, err
	}
	if room.IsFull() {
		err = domain.ErrRoomFull
		return nil, err
	}

	if _, err = s.walletSvc.ApplyChangeInTx(ctx, tx, BalanceChange{
		UserID:      userID,
		Type:        domain.EntryGameLoss,
		Amount:      room.Amount,
		RoomCode:    &room.Code,
		Description: fmt.Sprintf("Entry fee for room %s", room.Code),
		Metadata:    domain.Metadata{"event": "room_join"},
	}); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	seat := &domain.RoomPlayer{
		RoomID:   room.ID,
		UserID:   userID,
		Name:     user.Name,
		Position: len(room.Players),
		JoinedAt: now,
	}
	if err = s.roomRepo.AddPlayer(ctx, tx, seat); err != nil {
		return nil, err
	}
	room.Players = append(room.Players, *seat)

	var startedPot *domain.Pot
	if room.IsFull() {
		pot := domain.ComputePot(room.Amount, len(room.Players), s.cfg.Game.FeePercent)
		if err = s.roomRepo.Start(ctx, tx, room.ID, pot, now); err != nil {
			return nil, err
		}
		room.Status = domain.RoomPlaying
		room.TotalPrizePool = &pot.TotalPrizePool
		room.PlatformFee = &pot.PlatformFee
		room.WinnerAmount = &pot.WinnerAmount
		room.StartedAt = &now
		startedPot = &pot
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("room_service.JoinRoom: commit: %w", err)
	}

	s.cache.Invalidate(cache.BalanceKey(userID.String()), cache.RoomKey(room.Code))
	if s.broadcaster != nil {
		s.broadcaster.BroadcastPlayerJoined(room.Code, userID, user.Name, len(room.Players), room.MaxPlayers)
		if startedPot != nil {
			s.broadcaster.BroadcastGameStarted(room.Code, *startedPot)
		}
	}
	return room, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// DeclareWinner
// ──────────────────────────────────────────────────────────────────────────────

// DeclareWinner settles a playing room: the declarer and the winner must both
// hold seats, the winner is credited the frozen winner amount, the room
// transitions to completed, and the winner's lifetime counters update — all in
// one transaction.  The crediting is immediate; there is no intermediate
// admin-verification state.  Losing players' game counters are best-effort
// statistics applied after commit (they touch no balance).
func (s *RoomService) DeclareWinner(ctx context.Context, code string, declarerID, winnerID uuid.UUID) (*domain.GameRoom, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("room_service.DeclareWinner: begin tx: %w", err)
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
	if room.Status != domain.RoomPlaying {
		err = domain.ErrRoomNotPlaying
		return nil, err
	}
	if !room.HasPlayer(declarerID) {
		err = domain.ErrNotAPlayer
		return nil, err
	}
	if !room.HasPlayer(winnerID) {
		err = domain.ErrWinnerNotAPlayer
		return nil, err
	}

	// Frozen at the waiting→playing transition; never re-derived here.
	winnerAmount := *room.WinnerAmount

	if _, err = s.walletSvc.ApplyChangeInTx(ctx, tx, BalanceChange{
		UserID:      winnerID,
		Type:        domain.EntryGameWin,
		Amount:      winnerAmount,
		RoomCode:    &room.Code,
		Description: fmt.Sprintf("Winnings for room %s", room.Code),
		Metadata: domain.Metadata{
			"event":        "winner_declared",
			"prize_pool":   room.TotalPrizePool.String(),
			"platform_fee": room.PlatformFee.String(),
		},
	}); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err = s.roomRepo.Complete(ctx, tx, room.ID, winnerID, now); err != nil {
		return nil, err
	}
	if err = s.userRepo.AddWin(ctx, tx, winnerID, 1, winnerAmount); err != nil {
		return nil, err
	}
	if err = s.userRepo.IncrementGamesTx(ctx, tx, winnerID); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("room_service.DeclareWinner: commit: %w", err)
	}

	room.Status = domain.RoomCompleted
	room.WinnerID = &winnerID
	room.CompletedAt = &now

	// Loss statistics for the other players, outside the atomic boundary.
	var losers []uuid.UUID
	for _, p := range room.Players {
		if p.UserID != winnerID {
			losers = append(losers, p.UserID)
		}
	}
	if err := s.userRepo.IncrementGames(ctx, losers); err != nil {
		slog.Warn("loss counters not updated", "room", room.Code, "err", err)
	}

	s.cache.Invalidate(cache.BalanceKey(winnerID.String()), cache.RoomKey(room.Code))
	if s.broadcaster != nil {
		s.broadcaster.BroadcastWinnerDeclared(room.Code, winnerID, winnerAmount)
	}
	return room, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// LeaveRoom
// ──────────────────────────────────────────────────────────────────────────────

// LeaveRoom frees a seat while the room is still waiting.  If the leaver owns
// the room, ownership passes to the next seated player; if the room empties,
// it is cancelled.  The entry fee is not refunded on leave (matching the
// product's current behaviour for voluntary exits).
func (s *RoomService) LeaveRoom(ctx context.Context, code string, userID uuid.UUID) (*domain.GameRoom, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("room_service.LeaveRoom: begin tx: %w", err)
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
	if room.Status != domain.RoomWaiting {
		err = domain.ErrRoomNotWaiting
		return nil, err
	}
	if !room.HasPlayer(userID) {
		err = domain.ErrNotAPlayer
		return nil, err
	}

	if err = s.roomRepo.RemovePlayer(ctx, tx, room.ID, userID); err != nil {
		return nil, err
	}

	remaining := room.Players[:0]
	for _, p := range room.Players {
		if p.UserID != userID {
			remaining = append(remaining, p)
		}
	}
	room.Players = remaining

	now := time.Now().UTC()
	if len(room.Players) == 0 {
		if err = s.roomRepo.Cancel(ctx, tx, room.ID, "all players left", now); err != nil {
			return nil, err
		}
		room.Status = domain.RoomCancelled
		room.CancelledAt = &now
	} else if room.CreatedBy == userID {
		// Creator left: hand the room to the earliest remaining seat.
		next := room.Players[0].UserID
		if err = s.roomRepo.SetCreator(ctx, tx, room.ID, next); err != nil {
			return nil, err
		}
		room.CreatedBy = next
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("room_service.LeaveRoom: commit: %w", err)
	}

	s.cache.Invalidate(cache.RoomKey(room.Code))
	return room, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// CancelRoom
// ──────────────────────────────────────────────────────────────────────────────

// CancelRoom aborts a waiting or playing room and refunds every seated player
// their entry fee.  All refunds plus the state transition form one atomic
// unit — a partial refund set is never observable.  Used by the back-office
// and by the stale-room sweeper.
func (s *RoomService) CancelRoom(ctx context.Context, code, reason string) (*domain.GameRoom, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("room_service.CancelRoom: begin tx: %w", err)
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
	if room.Status.IsTerminal() {
		err = domain.ErrRoomNotWaiting
		return nil, err
	}

	for _, p := range room.Players {
		if _, err = s.walletSvc.ApplyChangeInTx(ctx, tx, BalanceChange{
			UserID:      p.UserID,
			Type:        domain.EntryRefund,
			Amount:      room.Amount,
			RoomCode:    &room.Code,
			Description: fmt.Sprintf("Refund: room %s cancelled", room.Code),
			Metadata:    domain.Metadata{"event": "room_cancelled", "reason": reason},
		}); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	if err = s.roomRepo.Cancel(ctx, tx, room.ID, reason, now); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("room_service.CancelRoom: commit: %w", err)
	}

	room.Status = domain.RoomCancelled
	room.CancelReason = reason
	room.CancelledAt = &now

	keys := []string{cache.RoomKey(room.Code)}
	for _, p := range room.Players {
		keys = append(keys, cache.BalanceKey(p.UserID.String()))
	}
	s.cache.Invalidate(keys...)
	if s.broadcaster != nil {
		s.broadcaster.BroadcastRoomCancelled(room.Code, reason)
	}
	return room, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Query helpers
// ──────────────────────────────────────────────────────────────────────────────

// GetRoom fetches a room by code without locking.
func (s *RoomService) GetRoom(ctx context.Context, code string) (*domain.GameRoom, error) {
	return s.roomRepo.GetByCode(ctx, code)
}

// ListOpenRooms returns the public lobby, paginated.
func (s *RoomService) ListOpenRooms(ctx context.Context, limit, offset int) ([]*domain.GameRoom, error) {
	return s.roomRepo.ListOpen(ctx, limit, offset)
}

// MyRooms returns paginated rooms in which the user holds or held a seat.
func (s *RoomService) MyRooms(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.GameRoom, error) {
	return s.roomRepo.ListByUser(ctx, userID, limit, offset)
}

// SweepStaleRooms cancels waiting rooms older than the configured TTL,
// refunding their players.  One failing room does not block the others.
// Returns the number of rooms cancelled.
func (s *RoomService) SweepStaleRooms(ctx context.Context) (int, error) {
	cutoff := time.Now().UTC().Add(-s.cfg.Game.WaitingRoomTTL)
	codes, err := s.roomRepo.StaleWaitingCodes(ctx, cutoff, 100)
	if err != nil {
		return 0, fmt.Errorf("room_service.SweepStaleRooms: %w", err)
	}
	cancelled := 0
	for _, code := range codes {
		if _, err := s.CancelRoom(ctx, code, "expired while waiting for players"); err != nil {
			slog.Warn("stale room not cancelled", "room", code, "err", err)
			continue
		}
		cancelled++
	}
	return cancelled, nil
}
