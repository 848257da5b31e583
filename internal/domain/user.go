package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ──────────────────────────────────────────────────────────────────────────────
// UserRole
// ──────────────────────────────────────────────────────────────────────────────

// UserRole controls access levels in the back-office.
type UserRole string

const (
	RoleUser     UserRole = "user"     // standard player
	RoleAdmin    UserRole = "admin"    // full back-office access
	RoleFinance  UserRole = "finance"  // withdrawal queue, ledger reports
	RoleOps      UserRole = "ops"      // operations: room management
	RoleReadOnly UserRole = "readonly" // read-only back-office access
)

// CanAccessBackoffice returns true for all non-standard roles.
func (r UserRole) CanAccessBackoffice() bool {
	return r != RoleUser
}

// IsAdmin returns true only for the full admin role.
func (r UserRole) IsAdmin() bool {
	return r == RoleAdmin
}

// ──────────────────────────────────────────────────────────────────────────────
// User
// ──────────────────────────────────────────────────────────────────────────────

// User is the domain entity for registered accounts.  Balance is the single
// point of contention in the system: it may only be written through
// WalletService.ApplyBalanceChange, never directly by handlers or other
// services.  Invariant: balance >= 0 at all times.
type User struct {
	ID            uuid.UUID       `json:"id"             db:"id"`
	Phone         string          `json:"phone"          db:"phone"`
	Name          string          `json:"name"           db:"name"`
	PasswordHash  string          `json:"-"              db:"password_hash"` // never serialised
	Role          UserRole        `json:"role"           db:"role"`
	Balance       decimal.Decimal `json:"balance"        db:"balance"`
	TotalGames    int             `json:"total_games"    db:"total_games"`
	TotalWins     int             `json:"total_wins"     db:"total_wins"`
	TotalWinnings decimal.Decimal `json:"total_winnings" db:"total_winnings"`
	IsActive      bool            `json:"is_active"      db:"is_active"`
	CreatedAt     time.Time       `json:"created_at"     db:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"     db:"updated_at"`
}

// PublicProfile returns a user view safe to expose via API (no password hash).
type PublicProfile struct {
	ID            uuid.UUID       `json:"id"`
	Phone         string          `json:"phone"`
	Name          string          `json:"name"`
	Role          UserRole        `json:"role"`
	Balance       decimal.Decimal `json:"balance"`
	TotalGames    int             `json:"total_games"`
	TotalWins     int             `json:"total_wins"`
	TotalWinnings decimal.Decimal `json:"total_winnings"`
	IsActive      bool            `json:"is_active"`
	CreatedAt     time.Time       `json:"created_at"`
}

// ToPublicProfile converts a User to its public-safe representation.
func (u *User) ToPublicProfile() PublicProfile {
	return PublicProfile{
		ID:            u.ID,
		Phone:         u.Phone,
		Name:          u.Name,
		Role:          u.Role,
		Balance:       u.Balance,
		TotalGames:    u.TotalGames,
		TotalWins:     u.TotalWins,
		TotalWinnings: u.TotalWinnings,
		IsActive:      u.IsActive,
		CreatedAt:     u.CreatedAt,
	}
}
