package domain

import (
	"crypto/rand"
	"database/sql/driver"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ──────────────────────────────────────────────────────────────────────────────
// Types & constants
// ──────────────────────────────────────────────────────────────────────────────

// EntryType enumerates ledger entry types.  The type fixes the sign convention
// applied to the balance: deposit, game_win, and refund are credits;
// withdrawal and game_loss are debits.
type EntryType string

const (
	EntryDeposit    EntryType = "deposit"
	EntryWithdrawal EntryType = "withdrawal"
	EntryGameLoss   EntryType = "game_loss"
	EntryGameWin    EntryType = "game_win"
	EntryRefund     EntryType = "refund"
)

// IsCredit returns true when the entry type increases the balance.
func (t EntryType) IsCredit() bool {
	return t == EntryDeposit || t == EntryGameWin || t == EntryRefund
}

// IsDebit returns true when the entry type decreases the balance.
func (t EntryType) IsDebit() bool {
	return t == EntryWithdrawal || t == EntryGameLoss
}

// IsValid returns true for a recognised entry type.
func (t EntryType) IsValid() bool {
	return t.IsCredit() || t.IsDebit()
}

// EntryStatus tracks external settlement of an entry.  The balance mutation
// always happens at entry creation; status transitions never move money by
// themselves (a rejected withdrawal is compensated by a separate refund entry).
type EntryStatus string

const (
	EntryPending   EntryStatus = "pending"
	EntryCompleted EntryStatus = "completed"
	EntryFailed    EntryStatus = "failed"
	EntryCancelled EntryStatus = "cancelled"
)

// ──────────────────────────────────────────────────────────────────────────────
// Metadata
// ──────────────────────────────────────────────────────────────────────────────

// Metadata is a free-form string map stored as JSONB alongside a ledger entry.
type Metadata map[string]string

// Value implements driver.Valuer so Metadata can be written with sqlx.
func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner for reading JSONB columns.
func (m *Metadata) Scan(src interface{}) error {
	if src == nil {
		*m = nil
		return nil
	}
	b, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("metadata: cannot scan %T", src)
	}
	return json.Unmarshal(b, m)
}

// ──────────────────────────────────────────────────────────────────────────────
// LedgerEntry
// ──────────────────────────────────────────────────────────────────────────────

// LedgerEntry is an immutable audit record for exactly one balance change.
// BalanceBefore/BalanceAfter snapshot the wallet around the mutation, so each
// entry is auditable on its own and the whole ledger can be replayed to
// reconstruct the live balance (see WalletService.Reconcile).
type LedgerEntry struct {
	ID            uuid.UUID       `json:"id"             db:"id"`
	TransactionID string          `json:"transaction_id" db:"transaction_id"` // human-facing code
	UserID        uuid.UUID       `json:"user_id"        db:"user_id"`
	Type          EntryType       `json:"type"           db:"type"`
	Amount        decimal.Decimal `json:"amount"         db:"amount"` // always positive
	BalanceBefore decimal.Decimal `json:"balance_before" db:"balance_before"`
	BalanceAfter  decimal.Decimal `json:"balance_after"  db:"balance_after"`
	Status        EntryStatus     `json:"status"         db:"status"`
	RoomCode      *string         `json:"room_code"      db:"room_code"` // set for game_loss / game_win / room refunds
	UpiID         *string         `json:"upi_id"         db:"upi_id"`    // set for withdrawal entries
	Description   string          `json:"description"    db:"description"`
	Metadata      Metadata        `json:"metadata"       db:"metadata"`
	CreatedAt     time.Time       `json:"created_at"     db:"created_at"`
}

// SignedAmount returns the amount with the sign implied by the entry type.
func (e *LedgerEntry) SignedAmount() decimal.Decimal {
	if e.Type.IsDebit() {
		return e.Amount.Neg()
	}
	return e.Amount
}

// Conserves reports whether balance_after - balance_before matches the signed
// amount exactly.  Every entry written by the Balance Mutator satisfies this.
func (e *LedgerEntry) Conserves() bool {
	return e.BalanceAfter.Sub(e.BalanceBefore).Equal(e.SignedAmount())
}

// NewTransactionID derives a globally unique human-facing transaction code
// from the current time plus random bytes, e.g. "TXN20250114-3fa29be1".
// It is used for display and external correlation, never as a concurrency key.
func NewTransactionID(now time.Time) string {
	var b [4]byte
	_, _ = rand.Read(b[:])
	return fmt.Sprintf("TXN%s-%s", now.UTC().Format("20060102150405"), hex.EncodeToString(b[:]))
}

// ──────────────────────────────────────────────────────────────────────────────
// LedgerFilter — range queries over the entry store
// ──────────────────────────────────────────────────────────────────────────────

// LedgerFilter narrows ledger queries.  Zero values mean "no constraint".
type LedgerFilter struct {
	Type     EntryType
	Status   EntryStatus
	RoomCode string
	From     time.Time
	To       time.Time
}
