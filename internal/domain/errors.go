package domain

import (
	"errors"
)

// ──────────────────────────────────────────────────────────────────────────────
// Sentinel errors — compare with errors.Is()
// ──────────────────────────────────────────────────────────────────────────────

// Wallet / ledger errors
var (
	// ErrUserNotFound is returned when no user matches the given criteria.
	ErrUserNotFound = errors.New("user not found")

	// ErrInsufficientBalance is returned when a debit would drive the balance
	// below zero.  The whole atomic unit aborts; no ledger entry is written.
	ErrInsufficientBalance = errors.New("insufficient wallet balance")

	// ErrInvalidAmount is returned when a balance change amount is zero or
	// negative, or the entry type is unknown.
	ErrInvalidAmount = errors.New("amount must be a positive value")

	// ErrEntryNotFound is returned when no ledger entry matches the given id.
	ErrEntryNotFound = errors.New("ledger entry not found")
)

// Room errors
var (
	// ErrRoomNotFound is returned when no room matches the given code.
	ErrRoomNotFound = errors.New("room not found")

	// ErrDuplicateRoomCode is returned when generated room codes keep
	// colliding with existing rooms.
	ErrDuplicateRoomCode = errors.New("could not allocate a unique room code")

	// ErrRoomNotWaiting is returned when a join/leave is attempted on a room
	// that has already started, completed, or been cancelled.
	ErrRoomNotWaiting = errors.New("room is not accepting players")

	// ErrRoomNotPlaying is returned when a winner is declared for a room that
	// is not in progress.
	ErrRoomNotPlaying = errors.New("room is not in progress")

	// ErrRoomNotCompleted is returned when a winner correction targets a room
	// that never completed.
	ErrRoomNotCompleted = errors.New("room is not completed")

	// ErrRoomFull is returned when every seat is already taken.
	ErrRoomFull = errors.New("room is full")

	// ErrAlreadyJoined is returned when a user tries to take a second seat in
	// the same room.
	ErrAlreadyJoined = errors.New("user already joined this room")

	// ErrNotAPlayer is returned when the caller does not hold a seat in the room.
	ErrNotAPlayer = errors.New("user is not a player in this room")

	// ErrWinnerNotAPlayer is returned when the declared winner is not seated.
	ErrWinnerNotAPlayer = errors.New("declared winner is not a player in this room")

	// ErrSameWinner is returned when a correction names the already-recorded winner.
	ErrSameWinner = errors.New("new winner is the same as the current winner")

	// ErrEntryAmountOutOfBounds is returned when the entry fee is outside the
	// configured 10–10,000 range.
	ErrEntryAmountOutOfBounds = errors.New("entry amount is out of bounds")

	// ErrInvalidPlayerCount is returned when max players is outside 2–4.
	ErrInvalidPlayerCount = errors.New("player count must be between 2 and 4")
)

// Withdrawal errors
var (
	// ErrWithdrawalNotFound is returned when no request matches the given id.
	ErrWithdrawalNotFound = errors.New("withdrawal request not found")

	// ErrWithdrawalNotPending is returned when approving/rejecting/cancelling
	// an already-decided request.  The transition fails without side effects.
	ErrWithdrawalNotPending = errors.New("withdrawal request is not pending")

	// ErrPendingWithdrawalExists enforces the single-outstanding-request
	// invariant: one pending withdrawal per user at a time.
	ErrPendingWithdrawalExists = errors.New("a pending withdrawal request already exists")

	// ErrWithdrawalOutOfBounds is returned when the amount is outside the
	// configured min/max withdrawal bounds.
	ErrWithdrawalOutOfBounds = errors.New("withdrawal amount is out of bounds")

	// ErrInvalidUpiID is returned when the UPI address fails the structural check.
	ErrInvalidUpiID = errors.New("invalid UPI id: expected local-part@handle")
)

// Correction errors
var (
	// ErrInsufficientBalanceForReversal is returned when the recorded winner
	// no longer holds enough balance to reverse the payout.
	ErrInsufficientBalanceForReversal = errors.New("old winner balance is insufficient for reversal")

	// ErrRetriesExhausted is returned after the bounded retry loop gives up on
	// transient write conflicts.
	ErrRetriesExhausted = errors.New("operation failed after retries on write conflicts")
)

// Auth errors
var (
	// ErrUnauthorized is returned when a valid token is not present.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden is returned when the authenticated user lacks the required role.
	ErrForbidden = errors.New("forbidden: insufficient permissions")

	// ErrPhoneTaken is returned on registration when the phone already exists.
	ErrPhoneTaken = errors.New("phone number is already registered")

	// ErrInvalidCredentials is returned when login credentials are wrong.
	ErrInvalidCredentials = errors.New("invalid phone or password")

	// ErrUserInactive is returned when a suspended user attempts an action.
	ErrUserInactive = errors.New("user account is inactive")

	// ErrTokenExpired is returned when a JWT has passed its TTL.
	ErrTokenExpired = errors.New("token has expired")

	// ErrTokenInvalid is returned when a token cannot be parsed or its
	// signature does not match.
	ErrTokenInvalid = errors.New("token is invalid")
)

// ──────────────────────────────────────────────────────────────────────────────
// Helper predicates
// ──────────────────────────────────────────────────────────────────────────────

// notFoundErrors collects all "entity not found" sentinel errors so that
// IsNotFound can stay in sync automatically.
var notFoundErrors = []error{
	ErrUserNotFound,
	ErrRoomNotFound,
	ErrWithdrawalNotFound,
	ErrEntryNotFound,
}

// IsNotFound returns true when err (or any error in its chain) is one of the
// domain "not found" errors.  Use this instead of comparing error values
// directly when translating domain errors to HTTP 404 responses.
func IsNotFound(err error) bool {
	for _, target := range notFoundErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsConflict returns true for errors that represent a state conflict (wrong
// state-machine state, duplicate join, already-decided request).
func IsConflict(err error) bool {
	conflictErrors := []error{
		ErrRoomNotWaiting,
		ErrRoomNotPlaying,
		ErrRoomNotCompleted,
		ErrRoomFull,
		ErrAlreadyJoined,
		ErrSameWinner,
		ErrWithdrawalNotPending,
		ErrPendingWithdrawalExists,
		ErrPhoneTaken,
	}
	for _, target := range conflictErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsValidation returns true for precondition failures rejected before any
// state change.
func IsValidation(err error) bool {
	validationErrors := []error{
		ErrInvalidAmount,
		ErrEntryAmountOutOfBounds,
		ErrInvalidPlayerCount,
		ErrWithdrawalOutOfBounds,
		ErrInvalidUpiID,
	}
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsAuthError returns true for authentication/authorisation errors.
func IsAuthError(err error) bool {
	authErrors := []error{
		ErrUnauthorized,
		ErrForbidden,
		ErrTokenExpired,
		ErrTokenInvalid,
		ErrInvalidCredentials,
	}
	for _, target := range authErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
