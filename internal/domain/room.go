package domain

import (
	"crypto/rand"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ──────────────────────────────────────────────────────────────────────────────
// Types & constants
// ──────────────────────────────────────────────────────────────────────────────

// RoomStatus represents the lifecycle state of a game room.
//
//	waiting → playing → completed
//	waiting → cancelled
//	playing → cancelled
//
// completed and cancelled are terminal; the only exception is the admin
// winner-correction protocol, which amends a completed room's winner without
// reopening it.
type RoomStatus string

const (
	RoomWaiting   RoomStatus = "waiting"
	RoomPlaying   RoomStatus = "playing"
	RoomCompleted RoomStatus = "completed"
	RoomCancelled RoomStatus = "cancelled"
)

// IsTerminal returns true for completed and cancelled rooms.
func (s RoomStatus) IsTerminal() bool {
	return s == RoomCompleted || s == RoomCancelled
}

// Room size and entry-fee bounds enforced at creation.
const (
	MinPlayers = 2
	MaxPlayers = 4
)

var (
	MinEntryAmount = decimal.NewFromInt(10)
	MaxEntryAmount = decimal.NewFromInt(10000)
)

// ──────────────────────────────────────────────────────────────────────────────
// RoomPlayer
// ──────────────────────────────────────────────────────────────────────────────

// RoomPlayer is a seat in a room.  Position preserves join order; the room's
// CreatedBy field tracks current ownership.
type RoomPlayer struct {
	RoomID   uuid.UUID `json:"-"         db:"room_id"`
	UserID   uuid.UUID `json:"user_id"   db:"user_id"`
	Name     string    `json:"name"      db:"name"`
	Position int       `json:"position"  db:"position"`
	JoinedAt time.Time `json:"joined_at" db:"joined_at"`
}

// ──────────────────────────────────────────────────────────────────────────────
// GameRoom
// ──────────────────────────────────────────────────────────────────────────────

// GameRoom is a state machine instance.  TotalPrizePool, PlatformFee, and
// WinnerAmount are computed exactly once at the waiting→playing transition
// and never re-derived afterwards, so later corrections reuse the frozen
// figures.
type GameRoom struct {
	ID             uuid.UUID        `json:"id"               db:"id"`
	Code           string           `json:"code"             db:"code"` // human-facing, unique
	GameType       string           `json:"game_type"        db:"game_type"`
	Amount         decimal.Decimal  `json:"amount"           db:"amount"` // entry fee per player
	MaxPlayers     int              `json:"max_players"      db:"max_players"`
	Status         RoomStatus       `json:"status"           db:"status"`
	CreatedBy      uuid.UUID        `json:"created_by"       db:"created_by"`
	WinnerID       *uuid.UUID       `json:"winner_id"        db:"winner_id"`
	TotalPrizePool *decimal.Decimal `json:"total_prize_pool" db:"total_prize_pool"`
	PlatformFee    *decimal.Decimal `json:"platform_fee"     db:"platform_fee"`
	WinnerAmount   *decimal.Decimal `json:"winner_amount"    db:"winner_amount"`
	CancelReason   string           `json:"cancel_reason"    db:"cancel_reason"`
	StartedAt      *time.Time       `json:"started_at"       db:"started_at"`
	CompletedAt    *time.Time       `json:"completed_at"     db:"completed_at"`
	CancelledAt    *time.Time       `json:"cancelled_at"     db:"cancelled_at"`
	CreatedAt      time.Time        `json:"created_at"       db:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"       db:"updated_at"`

	// Players is loaded separately from room_players; not a DB column.
	Players []RoomPlayer `json:"players" db:"-"`
}

// HasPlayer reports whether userID holds a seat in the room.
func (r *GameRoom) HasPlayer(userID uuid.UUID) bool {
	for _, p := range r.Players {
		if p.UserID == userID {
			return true
		}
	}
	return false
}

// IsFull reports whether every seat is taken.
func (r *GameRoom) IsFull() bool {
	return len(r.Players) >= r.MaxPlayers
}

// ──────────────────────────────────────────────────────────────────────────────
// Pot arithmetic
// ──────────────────────────────────────────────────────────────────────────────

// Pot holds the frozen settlement figures for a started room.
// Invariant: WinnerAmount + PlatformFee == TotalPrizePool exactly.
type Pot struct {
	TotalPrizePool decimal.Decimal
	PlatformFee    decimal.Decimal
	WinnerAmount   decimal.Decimal
}

// ComputePot derives the settlement split for a full room:
//
//	totalPrizePool = amount × playerCount
//	platformFee    = floor(totalPrizePool × feePercent / 100)
//	winnerAmount   = totalPrizePool − platformFee
//
// The fee is floored to a whole currency unit so no fraction leaks out of the
// pot: floor guarantees conservation with integer amounts.
func ComputePot(amount decimal.Decimal, playerCount int, feePercent int64) Pot {
	total := amount.Mul(decimal.NewFromInt(int64(playerCount)))
	fee := total.Mul(decimal.NewFromInt(feePercent)).Div(decimal.NewFromInt(100)).Floor()
	return Pot{
		TotalPrizePool: total,
		PlatformFee:    fee,
		WinnerAmount:   total.Sub(fee),
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Room codes
// ──────────────────────────────────────────────────────────────────────────────

// roomCodeAlphabet omits 0/O and 1/I to keep codes readable over the phone.
const roomCodeAlphabet = "23456789ABCDEFGHJKLMNPQRSTUVWXYZ"

// NewRoomCode generates a human-readable room code, e.g. "RM-7KQ2XF".
// Uniqueness is enforced by the DB; callers retry on collision.
func NewRoomCode() string {
	var b [6]byte
	_, _ = rand.Read(b[:])
	code := make([]byte, 6)
	for i, v := range b {
		code[i] = roomCodeAlphabet[int(v)%len(roomCodeAlphabet)]
	}
	return "RM-" + string(code)
}

// ──────────────────────────────────────────────────────────────────────────────
// API views
// ──────────────────────────────────────────────────────────────────────────────

// RoomResponse is the API-safe view of a room.
type RoomResponse struct {
	Code           string           `json:"code"`
	GameType       string           `json:"game_type"`
	Amount         decimal.Decimal  `json:"amount"`
	MaxPlayers     int              `json:"max_players"`
	Status         RoomStatus       `json:"status"`
	Players        []RoomPlayer     `json:"players"`
	WinnerID       *uuid.UUID       `json:"winner_id,omitempty"`
	TotalPrizePool *decimal.Decimal `json:"total_prize_pool,omitempty"`
	PlatformFee    *decimal.Decimal `json:"platform_fee,omitempty"`
	WinnerAmount   *decimal.Decimal `json:"winner_amount,omitempty"`
	StartedAt      *time.Time       `json:"started_at,omitempty"`
	CompletedAt    *time.Time       `json:"completed_at,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
}

// ToResponse converts a GameRoom to its API response form.
func (r *GameRoom) ToResponse() RoomResponse {
	return RoomResponse{
		Code:           r.Code,
		GameType:       r.GameType,
		Amount:         r.Amount,
		MaxPlayers:     r.MaxPlayers,
		Status:         r.Status,
		Players:        r.Players,
		WinnerID:       r.WinnerID,
		TotalPrizePool: r.TotalPrizePool,
		PlatformFee:    r.PlatformFee,
		WinnerAmount:   r.WinnerAmount,
		StartedAt:      r.StartedAt,
		CompletedAt:    r.CompletedAt,
		CreatedAt:      r.CreatedAt,
	}
}
