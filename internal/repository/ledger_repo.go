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

// LedgerRepository handles the append-only ledger_entries store.  Entries are
// never updated after insertion except their status field, which only the
// withdrawal and correction workflows may transition.
type LedgerRepository struct {
	db *sqlx.DB
}

// NewLedgerRepository creates a new LedgerRepository.
func NewLedgerRepository(db *sqlx.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// Insert appends a new entry inside an existing transaction.  Only the
// Balance Mutator calls this, in the same transaction as the balance write.
func (r *LedgerRepository) Insert(ctx context.Context, tx *sqlx.Tx, e *domain.LedgerEntry) error {
	query := `
		INSERT INTO ledger_entries
			(id, transaction_id, user_id, type, amount, balance_before, balance_after,
			 status, room_code, upi_id, description, metadata, created_at)
		VALUES
			(:id, :transaction_id, :user_id, :type, :amount, :balance_before, :balance_after,
			 :status, :room_code, :upi_id, :description, :metadata, :created_at)`
	if _, err := tx.NamedExecContext(ctx, query, e); err != nil {
		return fmt.Errorf("ledger_repo.Insert: %w", err)
	}
	return nil
}

// GetByID fetches one entry by primary key.
func (r *LedgerRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.LedgerEntry, error) {
	var e domain.LedgerEntry
	err := r.db.GetContext(ctx, &e, `SELECT * FROM ledger_entries WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrEntryNotFound
		}
		return nil, fmt.Errorf("ledger_repo.GetByID: %w", err)
	}
	return &e, nil
}

// UpdateStatus transitions an entry's status inside an existing transaction.
// Reserved for the withdrawal workflow (pending → completed/failed/cancelled).
func (r *LedgerRepository) UpdateStatus(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, status domain.EntryStatus) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE ledger_entries SET status = $1 WHERE id = $2`,
		string(status), id)
	if err != nil {
		return fmt.Errorf("ledger_repo.UpdateStatus: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrEntryNotFound
	}
	return nil
}

// ListByUser returns a user's entries newest-first with optional filters,
// paginated.
func (r *LedgerRepository) ListByUser(ctx context.Context, userID uuid.UUID, f domain.LedgerFilter, limit, offset int) ([]*domain.LedgerEntry, error) {
	query := `SELECT * FROM ledger_entries WHERE user_id = $1`
	args := []interface{}{userID}

	if f.Type != "" {
		args = append(args, string(f.Type))
		query += fmt.Sprintf(" AND type = $%d", len(args))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if f.RoomCode != "" {
		args = append(args, f.RoomCode)
		query += fmt.Sprintf(" AND room_code = $%d", len(args))
	}
	if !f.From.IsZero() {
		args = append(args, f.From)
		query += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}
	if !f.To.IsZero() {
		args = append(args, f.To)
		query += fmt.Sprintf(" AND created_at < $%d", len(args))
	}

	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))
	args = append(args, offset)
	query += fmt.Sprintf(" OFFSET $%d", len(args))

	var entries []*domain.LedgerEntry
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("ledger_repo.ListByUser: %w", err)
	}
	return entries, nil
}

// ReplayByUser returns every entry for a user oldest-first.  Used by the
// reconciliation check: folding the signed amounts from a zero balance must
// reproduce the live users.balance field exactly.
func (r *LedgerRepository) ReplayByUser(ctx context.Context, userID uuid.UUID) ([]*domain.LedgerEntry, error) {
	var entries []*domain.LedgerEntry
	err := r.db.SelectContext(ctx, &entries,
		`SELECT * FROM ledger_entries WHERE user_id = $1 ORDER BY created_at ASC, id ASC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("ledger_repo.ReplayByUser: %w", err)
	}
	return entries, nil
}

// ListByRoom returns all entries tagged with a room code, oldest-first.
func (r *LedgerRepository) ListByRoom(ctx context.Context, roomCode string) ([]*domain.LedgerEntry, error) {
	var entries []*domain.LedgerEntry
	err := r.db.SelectContext(ctx, &entries,
		`SELECT * FROM ledger_entries WHERE room_code = $1 ORDER BY created_at ASC`,
		roomCode)
	if err != nil {
		return nil, fmt.Errorf("ledger_repo.ListByRoom: %w", err)
	}
	return entries, nil
}

// RecentUserIDs returns distinct users with ledger activity in the given
// window, for the background reconciliation sampler.
func (r *LedgerRepository) RecentUserIDs(ctx context.Context, since time.Time, limit int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.SelectContext(ctx, &ids, `
		SELECT DISTINCT user_id
		FROM ledger_entries
		WHERE created_at >= $1
		LIMIT $2`,
		since, limit)
	if err != nil {
		return nil, fmt.Errorf("ledger_repo.RecentUserIDs: %w", err)
	}
	return ids, nil
}
