// Package ws holds WebSocket message types and the Hub implementation.
// messages.go defines all message structs broadcast to connected clients.
package ws

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MsgType identifies the kind of WS message so clients can switch on it.
type MsgType string

const (
	MsgTypePlayerJoined   MsgType = "player_joined"
	MsgTypeGameStarted    MsgType = "game_started"
	MsgTypeWinnerDeclared MsgType = "winner_declared"
	MsgTypeRoomCancelled  MsgType = "room_cancelled"
	MsgTypeError          MsgType = "error"
)

// ──────────────────────────────────────────────────────────────────────────────
// PlayerJoinedMessage — broadcast when a player takes a seat in a waiting room.
// ──────────────────────────────────────────────────────────────────────────────

// PlayerJoinedMessage carries the new seat count so lobby views can update.
type PlayerJoinedMessage struct {
	Type       MsgType   `json:"type"`
	RoomCode   string    `json:"room_code"`
	UserID     uuid.UUID `json:"user_id"`
	PlayerName string    `json:"player_name"`
	Seated     int       `json:"seated"`
	MaxPlayers int       `json:"max_players"`
	Timestamp  time.Time `json:"timestamp"`
}

// ──────────────────────────────────────────────────────────────────────────────
// GameStartedMessage — broadcast when the last seat fills and the pot freezes.
// ──────────────────────────────────────────────────────────────────────────────

// GameStartedMessage tells clients the room left the lobby and what the
// frozen payout figures are.
type GameStartedMessage struct {
	Type           MsgType         `json:"type"`
	RoomCode       string          `json:"room_code"`
	TotalPrizePool decimal.Decimal `json:"total_prize_pool"`
	PlatformFee    decimal.Decimal `json:"platform_fee"`
	WinnerAmount   decimal.Decimal `json:"winner_amount"`
	Timestamp      time.Time       `json:"timestamp"`
}

// ──────────────────────────────────────────────────────────────────────────────
// WinnerDeclaredMessage — broadcast when a room settles.
// ──────────────────────────────────────────────────────────────────────────────

// WinnerDeclaredMessage tells clients who won and how much was paid out.
type WinnerDeclaredMessage struct {
	Type      MsgType         `json:"type"`
	RoomCode  string          `json:"room_code"`
	WinnerID  uuid.UUID       `json:"winner_id"`
	Amount    decimal.Decimal `json:"amount"`
	Timestamp time.Time       `json:"timestamp"`
}

// ──────────────────────────────────────────────────────────────────────────────
// RoomCancelledMessage — broadcast when a room is cancelled and refunded.
// ──────────────────────────────────────────────────────────────────────────────

// RoomCancelledMessage carries the cancellation reason shown to players.
type RoomCancelledMessage struct {
	Type      MsgType   `json:"type"`
	RoomCode  string    `json:"room_code"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

// ──────────────────────────────────────────────────────────────────────────────
// ErrorMessage — sent to a single client on a non-fatal error.
// ──────────────────────────────────────────────────────────────────────────────

// ErrorMessage is sent directly to one client (not broadcast).
type ErrorMessage struct {
	Type    MsgType `json:"type"`
	Code    string  `json:"code"`
	Message string  `json:"message"`
}
