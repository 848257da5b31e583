package domain_test

import (
	"strings"
	"testing"
	"time"

	"github.com/khelzone/gameroom/internal/domain"
	"github.com/shopspring/decimal"
)

// TestSignedAmount checks the sign convention per entry type: credits carry
// the raw amount, debits carry its negation.
func TestSignedAmount(t *testing.T) {
	amount := decimal.NewFromInt(150)

	credits := []domain.EntryType{domain.EntryDeposit, domain.EntryGameWin, domain.EntryRefund}
	for _, typ := range credits {
		e := &domain.LedgerEntry{Type: typ, Amount: amount}
		if !e.SignedAmount().Equal(amount) {
			t.Errorf("%s: signed = %s, want %s", typ, e.SignedAmount(), amount)
		}
	}

	debits := []domain.EntryType{domain.EntryWithdrawal, domain.EntryGameLoss}
	for _, typ := range debits {
		e := &domain.LedgerEntry{Type: typ, Amount: amount}
		if !e.SignedAmount().Equal(amount.Neg()) {
			t.Errorf("%s: signed = %s, want %s", typ, e.SignedAmount(), amount.Neg())
		}
	}
}

// TestConserves exercises the per-entry conservation check: the balance delta
// must equal the signed amount exactly.
func TestConserves(t *testing.T) {
	cases := []struct {
		name   string
		typ    domain.EntryType
		amount int64
		before int64
		after  int64
		want   bool
	}{
		{"deposit credit", domain.EntryDeposit, 100, 50, 150, true},
		{"game loss debit", domain.EntryGameLoss, 100, 150, 50, true},
		{"withdrawal debit", domain.EntryWithdrawal, 75, 200, 125, true},
		{"credit with wrong delta", domain.EntryDeposit, 100, 50, 140, false},
		{"debit recorded as credit", domain.EntryGameLoss, 100, 50, 150, false},
		{"off by one", domain.EntryGameWin, 360, 0, 361, false},
	}

	for _, tc := range cases {
		e := &domain.LedgerEntry{
			Type:          tc.typ,
			Amount:        decimal.NewFromInt(tc.amount),
			BalanceBefore: decimal.NewFromInt(tc.before),
			BalanceAfter:  decimal.NewFromInt(tc.after),
		}
		if got := e.Conserves(); got != tc.want {
			t.Errorf("%s: Conserves() = %v, want %v", tc.name, got, tc.want)
		}
	}
}

// TestEntryTypeClassification pins down the credit/debit partition.
func TestEntryTypeClassification(t *testing.T) {
	all := []domain.EntryType{
		domain.EntryDeposit, domain.EntryWithdrawal, domain.EntryGameLoss,
		domain.EntryGameWin, domain.EntryRefund,
	}
	for _, typ := range all {
		if typ.IsCredit() == typ.IsDebit() {
			t.Errorf("%s: IsCredit and IsDebit must disagree", typ)
		}
		if !typ.IsValid() {
			t.Errorf("%s: expected valid", typ)
		}
	}
	if domain.EntryType("bonus").IsValid() {
		t.Error("unknown entry type reported valid")
	}
}

// TestNewTransactionID verifies the human-facing code shape:
// "TXN" + UTC timestamp (14 digits) + "-" + 8 hex chars.
func TestNewTransactionID(t *testing.T) {
	now := time.Date(2026, 3, 15, 9, 30, 0, 0, time.UTC)

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := domain.NewTransactionID(now)
		if !strings.HasPrefix(id, "TXN20260315093000-") {
			t.Fatalf("id %q: want prefix TXN20260315093000-", id)
		}
		if len(id) != len("TXN20260315093000-")+8 {
			t.Fatalf("id %q: want 8 hex chars after the dash", id)
		}
		seen[id] = true
	}
	if len(seen) < 100 {
		t.Errorf("duplicate transaction IDs within one timestamp: %d distinct of 100", len(seen))
	}
}

// TestIsValidUpiID covers accepted and rejected UPI address shapes.
func TestIsValidUpiID(t *testing.T) {
	valid := []string{
		"ravi@upi",
		"ravi.kumar@okhdfcbank",
		"player_99@ybl",
		"a-b.c_d@paytm",
		"9876543210@apl",
	}
	for _, upi := range valid {
		if !domain.IsValidUpiID(upi) {
			t.Errorf("%q: expected valid", upi)
		}
	}

	invalid := []string{
		"",
		"noatsign",
		"@ybl",
		"ravi@",
		"ravi@123",       // numeric PSP handle
		"ravi@ok hdfc",   // space in handle
		".ravi@upi",      // leading dot in local part
		"ravi kumar@upi", // space in local part
		"ravi@upi@extra", // second @
	}
	for _, upi := range invalid {
		if domain.IsValidUpiID(upi) {
			t.Errorf("%q: expected invalid", upi)
		}
	}
}

// TestStatusTerminality checks which withdrawal and room states are final.
func TestStatusTerminality(t *testing.T) {
	if domain.WithdrawalPending.IsTerminal() {
		t.Error("pending withdrawal must not be terminal")
	}
	for _, s := range []domain.WithdrawalStatus{
		domain.WithdrawalApproved, domain.WithdrawalRejected, domain.WithdrawalCancelled,
	} {
		if !s.IsTerminal() {
			t.Errorf("%s: expected terminal", s)
		}
	}

	for _, s := range []domain.RoomStatus{domain.RoomWaiting, domain.RoomPlaying} {
		if s.IsTerminal() {
			t.Errorf("%s: room status must not be terminal", s)
		}
	}
	for _, s := range []domain.RoomStatus{domain.RoomCompleted, domain.RoomCancelled} {
		if !s.IsTerminal() {
			t.Errorf("%s: expected terminal", s)
		}
	}
}
