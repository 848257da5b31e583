package domain

import (
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ──────────────────────────────────────────────────────────────────────────────
// Types & constants
// ──────────────────────────────────────────────────────────────────────────────

// WithdrawalStatus represents the lifecycle of a withdrawal request.
// pending is the only non-terminal state.
type WithdrawalStatus string

const (
	WithdrawalPending   WithdrawalStatus = "pending"
	WithdrawalApproved  WithdrawalStatus = "approved"
	WithdrawalRejected  WithdrawalStatus = "rejected"
	WithdrawalCancelled WithdrawalStatus = "cancelled"
)

// IsTerminal returns true once a request has been decided.
func (s WithdrawalStatus) IsTerminal() bool {
	return s != WithdrawalPending
}

// ──────────────────────────────────────────────────────────────────────────────
// WithdrawalRequest
// ──────────────────────────────────────────────────────────────────────────────

// WithdrawalRequest is submitted by a user who wants to cash out.  The funds
// are held: the wallet is debited the instant the request is created (the
// linked ledger entry carries status pending), so approval never moves money —
// it only confirms the external UPI payout, while reject/cancel issue a
// compensating refund entry.
//
// Invariant: at most one pending request per user (partial unique index).
type WithdrawalRequest struct {
	ID              uuid.UUID        `json:"id"               db:"id"`
	UserID          uuid.UUID        `json:"user_id"          db:"user_id"`
	LedgerEntryID   uuid.UUID        `json:"ledger_entry_id"  db:"ledger_entry_id"`
	TransactionID   string           `json:"transaction_id"   db:"transaction_id"` // human code of the debit entry
	Amount          decimal.Decimal  `json:"amount"           db:"amount"`
	UpiID           string           `json:"upi_id"           db:"upi_id"`
	Status          WithdrawalStatus `json:"status"           db:"status"`
	ProcessedBy     *uuid.UUID       `json:"processed_by"     db:"processed_by"`
	ProcessedAt     *time.Time       `json:"processed_at"     db:"processed_at"`
	AdminNotes      string           `json:"admin_notes"      db:"admin_notes"`
	RejectionReason string           `json:"rejection_reason" db:"rejection_reason"`
	RequestedAt     time.Time        `json:"requested_at"     db:"requested_at"`
}

// ──────────────────────────────────────────────────────────────────────────────
// UPI validation
// ──────────────────────────────────────────────────────────────────────────────

// upiPattern matches "local-part@handle": an alphanumeric local part with
// dots/underscores/hyphens, followed by an alphabetic PSP handle.
var upiPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]{1,255}@[a-zA-Z]{2,64}$`)

// IsValidUpiID performs a structural check on a UPI virtual payment address.
func IsValidUpiID(upi string) bool {
	return upiPattern.MatchString(upi)
}
