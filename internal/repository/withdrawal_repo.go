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

// WithdrawalRepository handles all database operations for WithdrawalRequests.
type WithdrawalRepository struct {
	db *sqlx.DB
}

// NewWithdrawalRepository creates a new WithdrawalRepository.
func NewWithdrawalRepository(db *sqlx.DB) *WithdrawalRepository {
	return &WithdrawalRepository{db: db}
}

// Create inserts a request inside an existing transaction (the same one that
// holds the held-funds debit).  The partial unique index on (user_id) WHERE
// status='pending' backs the single-outstanding-request invariant.
func (r *WithdrawalRepository) Create(ctx context.Context, tx *sqlx.Tx, req *domain.WithdrawalRequest) error {
	query := `
		INSERT INTO withdrawal_requests
			(id, user_id, ledger_entry_id, transaction_id, amount, upi_id, status,
			 admin_notes, rejection_reason, requested_at)
		VALUES
			(:id, :user_id, :ledger_entry_id, :transaction_id, :amount, :upi_id, :status,
			 :admin_notes, :rejection_reason, :requested_at)`
	if _, err := tx.NamedExecContext(ctx, query, req); err != nil {
		if isPgUniqueViolation(err, "withdrawal_requests_one_pending") {
			return domain.ErrPendingWithdrawalExists
		}
		return fmt.Errorf("withdrawal_repo.Create: %w", err)
	}
	return nil
}

// LockByID fetches a request FOR UPDATE inside a transaction so terminal
// transitions are idempotent under concurrent admin/user actions.
func (r *WithdrawalRepository) LockByID(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*domain.WithdrawalRequest, error) {
	var req domain.WithdrawalRequest
	err := tx.GetContext(ctx, &req,
		`SELECT * FROM withdrawal_requests WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrWithdrawalNotFound
		}
		return nil, fmt.Errorf("withdrawal_repo.LockByID: %w", err)
	}
	return &req, nil
}

// HasPending reports whether the user already has an outstanding request.
func (r *WithdrawalRepository) HasPending(ctx context.Context, userID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `
		SELECT EXISTS (
			SELECT 1 FROM withdrawal_requests WHERE user_id = $1 AND status = 'pending'
		)`, userID)
	if err != nil {
		return false, fmt.Errorf("withdrawal_repo.HasPending: %w", err)
	}
	return exists, nil
}

// SetDecision writes a terminal status plus the reviewing admin's details,
// inside an existing transaction.
func (r *WithdrawalRepository) SetDecision(
	ctx context.Context,
	tx *sqlx.Tx,
	id uuid.UUID,
	status domain.WithdrawalStatus,
	processedBy *uuid.UUID,
	notes, reason string,
	processedAt time.Time,
) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE withdrawal_requests
		SET status           = $1,
		    processed_by     = $2,
		    processed_at     = $3,
		    admin_notes      = $4,
		    rejection_reason = $5
		WHERE id = $6`,
		string(status), processedBy, processedAt, notes, reason, id)
	if err != nil {
		return fmt.Errorf("withdrawal_repo.SetDecision: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrWithdrawalNotFound
	}
	return nil
}

// ListByUser returns a user's requests newest-first, paginated.
func (r *WithdrawalRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.WithdrawalRequest, error) {
	var reqs []*domain.WithdrawalRequest
	err := r.db.SelectContext(ctx, &reqs, `
		SELECT * FROM withdrawal_requests
		WHERE user_id = $1
		ORDER BY requested_at DESC
		LIMIT $2 OFFSET $3`,
		userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("withdrawal_repo.ListByUser: %w", err)
	}
	return reqs, nil
}

// List returns paginated requests filtered by status (back-office queue).
// status="" means all statuses.
func (r *WithdrawalRepository) List(ctx context.Context, status string, limit, offset int) ([]*domain.WithdrawalRequest, error) {
	var reqs []*domain.WithdrawalRequest
	var err error
	if status != "" {
		err = r.db.SelectContext(ctx, &reqs, `
			SELECT * FROM withdrawal_requests
			WHERE status = $1
			ORDER BY requested_at DESC
			LIMIT $2 OFFSET $3`,
			status, limit, offset)
	} else {
		err = r.db.SelectContext(ctx, &reqs, `
			SELECT * FROM withdrawal_requests
			ORDER BY requested_at DESC
			LIMIT $1 OFFSET $2`,
			limit, offset)
	}
	if err != nil {
		return nil, fmt.Errorf("withdrawal_repo.List: %w", err)
	}
	return reqs, nil
}
