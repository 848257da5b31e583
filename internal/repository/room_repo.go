package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/khelzone/gameroom/internal/domain"
)

// RoomRepository handles all database operations for GameRooms and their
// player seats.
type RoomRepository struct {
	db *sqlx.DB
}

// NewRoomRepository creates a new RoomRepository.
func NewRoomRepository(db *sqlx.DB) *RoomRepository {
	return &RoomRepository{db: db}
}

// Create inserts a room row inside an existing transaction.
func (r *RoomRepository) Create(ctx context.Context, tx *sqlx.Tx, room *domain.GameRoom) error {
	query := `
		INSERT INTO game_rooms
			(id, code, game_type, amount, max_players, status, created_by,
			 cancel_reason, created_at, updated_at)
		VALUES
			(:id, :code, :game_type, :amount, :max_players, :status, :created_by,
			 :cancel_reason, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, query, room); err != nil {
		if isPgUniqueViolation(err, "game_rooms_code_key") {
			return domain.ErrDuplicateRoomCode
		}
		return fmt.Errorf("room_repo.Create: %w", err)
	}
	return nil
}

// GetByCode fetches a room and its players without locking.
func (r *RoomRepository) GetByCode(ctx context.Context, code string) (*domain.GameRoom, error) {
	var room domain.GameRoom
	err := r.db.GetContext(ctx, &room, `SELECT * FROM game_rooms WHERE code = $1`, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrRoomNotFound
		}
		return nil, fmt.Errorf("room_repo.GetByCode: %w", err)
	}
	if room.Players, err = r.playersOf(ctx, r.db, room.ID); err != nil {
		return nil, err
	}
	return &room, nil
}

// LockByCode fetches a room FOR UPDATE inside a transaction, then loads its
// players.  Every state transition goes through this lock so that concurrent
// joins, winner declarations, and cancellations serialise on the room row —
// two simultaneous joins for the last seat cannot both see a free seat.
func (r *RoomRepository) LockByCode(ctx context.Context, tx *sqlx.Tx, code string) (*domain.GameRoom, error) {
	var room domain.GameRoom
	err := tx.GetContext(ctx, &room, `SELECT * FROM game_rooms WHERE code = $1 FOR UPDATE`, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrRoomNotFound
		}
		return nil, fmt.Errorf("room_repo.LockByCode: %w", err)
	}
	if room.Players, err = r.playersOf(ctx, tx, room.ID); err != nil {
		return nil, err
	}
	return &room, nil
}

// queryer lets playersOf run against either the pool or an open transaction.
type queryer interface {
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

func (r *RoomRepository) playersOf(ctx context.Context, q queryer, roomID uuid.UUID) ([]domain.RoomPlayer, error) {
	var players []domain.RoomPlayer
	err := q.SelectContext(ctx, &players,
		`SELECT * FROM room_players WHERE room_id = $1 ORDER BY position ASC`, roomID)
	if err != nil {
		return nil, fmt.Errorf("room_repo.playersOf: %w", err)
	}
	return players, nil
}

// AddPlayer appends a seat inside an existing transaction.
func (r *RoomRepository) AddPlayer(ctx context.Context, tx *sqlx.Tx, p *domain.RoomPlayer) error {
	query := `
		INSERT INTO room_players (room_id, user_id, name, position, joined_at)
		VALUES (:room_id, :user_id, :name, :position, :joined_at)`
	if _, err := tx.NamedExecContext(ctx, query, p); err != nil {
		if isPgUniqueViolation(err, "room_players_pkey") {
			return domain.ErrAlreadyJoined
		}
		return fmt.Errorf("room_repo.AddPlayer: %w", err)
	}
	return nil
}

// RemovePlayer frees a seat inside an existing transaction.
func (r *RoomRepository) RemovePlayer(ctx context.Context, tx *sqlx.Tx, roomID, userID uuid.UUID) error {
	res, err := tx.ExecContext(ctx,
		`DELETE FROM room_players WHERE room_id = $1 AND user_id = $2`, roomID, userID)
	if err != nil {
		return fmt.Errorf("room_repo.RemovePlayer: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotAPlayer
	}
	return nil
}

// Start freezes the pot figures and transitions waiting → playing.
func (r *RoomRepository) Start(ctx context.Context, tx *sqlx.Tx, roomID uuid.UUID, pot domain.Pot, startedAt time.Time) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE game_rooms
		SET status           = 'playing',
		    total_prize_pool = $1,
		    platform_fee     = $2,
		    winner_amount    = $3,
		    started_at       = $4,
		    updated_at       = now()
		WHERE id = $5`,
		pot.TotalPrizePool, pot.PlatformFee, pot.WinnerAmount, startedAt, roomID)
	if err != nil {
		return fmt.Errorf("room_repo.Start: %w", err)
	}
	return nil
}

// Complete records the winner and transitions playing → completed.
func (r *RoomRepository) Complete(ctx context.Context, tx *sqlx.Tx, roomID, winnerID uuid.UUID, completedAt time.Time) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE game_rooms
		SET status       = 'completed',
		    winner_id    = $1,
		    completed_at = $2,
		    updated_at   = now()
		WHERE id = $3`,
		winnerID, completedAt, roomID)
	if err != nil {
		return fmt.Errorf("room_repo.Complete: %w", err)
	}
	return nil
}

// Cancel transitions a room to cancelled with a reason.
func (r *RoomRepository) Cancel(ctx context.Context, tx *sqlx.Tx, roomID uuid.UUID, reason string, cancelledAt time.Time) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE game_rooms
		SET status        = 'cancelled',
		    cancel_reason = $1,
		    cancelled_at  = $2,
		    updated_at    = now()
		WHERE id = $3`,
		reason, cancelledAt, roomID)
	if err != nil {
		return fmt.Errorf("room_repo.Cancel: %w", err)
	}
	return nil
}

// SetCreator reassigns room ownership, used when the creator leaves a waiting
// room that still has seated players.
func (r *RoomRepository) SetCreator(ctx context.Context, tx *sqlx.Tx, roomID, userID uuid.UUID) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE game_rooms SET created_by = $1, updated_at = now() WHERE id = $2`,
		userID, roomID)
	if err != nil {
		return fmt.Errorf("room_repo.SetCreator: %w", err)
	}
	return nil
}

// SetWinner overwrites the winner reference on a completed room.  Reserved for
// the admin correction protocol.
func (r *RoomRepository) SetWinner(ctx context.Context, tx *sqlx.Tx, roomID, winnerID uuid.UUID) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE game_rooms SET winner_id = $1, updated_at = now() WHERE id = $2`,
		winnerID, roomID)
	if err != nil {
		return fmt.Errorf("room_repo.SetWinner: %w", err)
	}
	return nil
}

// ListOpen returns waiting rooms newest-first, paginated (the public lobby).
func (r *RoomRepository) ListOpen(ctx context.Context, limit, offset int) ([]*domain.GameRoom, error) {
	return r.list(ctx,
		`SELECT * FROM game_rooms WHERE status = 'waiting' ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset)
}

// ListByUser returns rooms in which the user holds or held a seat.
func (r *RoomRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.GameRoom, error) {
	return r.list(ctx, `
		SELECT g.* FROM game_rooms g
		JOIN room_players p ON p.room_id = g.id
		WHERE p.user_id = $3
		ORDER BY g.created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset, userID)
}

// ListByStatus returns rooms filtered by status, newest-first (back-office).
// status="" means all statuses.
func (r *RoomRepository) ListByStatus(ctx context.Context, status string, limit, offset int) ([]*domain.GameRoom, error) {
	if status == "" {
		return r.list(ctx,
			`SELECT * FROM game_rooms ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
			limit, offset)
	}
	return r.list(ctx,
		`SELECT * FROM game_rooms WHERE status = $3 ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset, status)
}

// StaleWaitingCodes returns codes of waiting rooms created before the cutoff,
// for the background sweeper.
func (r *RoomRepository) StaleWaitingCodes(ctx context.Context, cutoff time.Time, limit int) ([]string, error) {
	var codes []string
	err := r.db.SelectContext(ctx, &codes, `
		SELECT code FROM game_rooms
		WHERE status = 'waiting' AND created_at < $1
		ORDER BY created_at ASC LIMIT $2`,
		cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("room_repo.StaleWaitingCodes: %w", err)
	}
	return codes, nil
}

func (r *RoomRepository) list(ctx context.Context, query string, args ...interface{}) ([]*domain.GameRoom, error) {
	var rooms []*domain.GameRoom
	if err := r.db.SelectContext(ctx, &rooms, query, args...); err != nil {
		return nil, fmt.Errorf("room_repo.list: %w", err)
	}
	for _, room := range rooms {
		players, err := r.playersOf(ctx, r.db, room.ID)
		if err != nil {
			return nil, err
		}
		room.Players = players
	}
	return rooms, nil
}
