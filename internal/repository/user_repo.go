package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/khelzone/gameroom/internal/domain"
	"github.com/shopspring/decimal"
)

// UserRepository handles all database operations for Users.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user row inside an existing transaction.
func (r *UserRepository) Create(ctx context.Context, tx *sqlx.Tx, u *domain.User) error {
	query := `
		INSERT INTO users
			(id, phone, name, password_hash, role, balance, total_games, total_wins,
			 total_winnings, is_active, created_at, updated_at)
		VALUES
			(:id, :phone, :name, :password_hash, :role, :balance, :total_games, :total_wins,
			 :total_winnings, :is_active, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, query, u); err != nil {
		if isPgUniqueViolation(err, "users_phone_key") {
			return domain.ErrPhoneTaken
		}
		return fmt.Errorf("user_repo.Create: %w", err)
	}
	return nil
}

// GetByID fetches a user by primary key.
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var u domain.User
	err := r.db.GetContext(ctx, &u, `SELECT * FROM users WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("user_repo.GetByID: %w", err)
	}
	return &u, nil
}

// GetByPhone fetches a user by phone number (used for login).
func (r *UserRepository) GetByPhone(ctx context.Context, phone string) (*domain.User, error) {
	var u domain.User
	err := r.db.GetContext(ctx, &u, `SELECT * FROM users WHERE phone = $1`, phone)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("user_repo.GetByPhone: %w", err)
	}
	return &u, nil
}

// LockBalance loads a user's current balance with a FOR UPDATE row lock so
// concurrent balance changes against the same user serialise on the row.
// This is the Balance Mutator's serialisation point.
func (r *UserRepository) LockBalance(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := tx.GetContext(ctx, &balance,
		`SELECT balance FROM users WHERE id = $1 FOR UPDATE`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, domain.ErrUserNotFound
		}
		return decimal.Zero, fmt.Errorf("user_repo.LockBalance: %w", err)
	}
	return balance, nil
}

// SetBalance writes a new balance for a user whose row is already locked by
// LockBalance in the same transaction.  Never call this outside the Balance
// Mutator.
func (r *UserRepository) SetBalance(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, balance decimal.Decimal) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE users SET balance = $1, updated_at = now() WHERE id = $2`,
		balance, userID)
	if err != nil {
		return fmt.Errorf("user_repo.SetBalance: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// AddWin increments lifetime win counters inside a transaction (winner side of
// a settlement or correction; pass a negative winnings delta for reversals).
func (r *UserRepository) AddWin(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, wins int, winnings decimal.Decimal) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE users
		SET total_wins     = total_wins + $1,
		    total_winnings = total_winnings + $2,
		    updated_at     = now()
		WHERE id = $3`,
		wins, winnings, userID)
	if err != nil {
		return fmt.Errorf("user_repo.AddWin: %w", err)
	}
	return nil
}

// IncrementGames bumps the lifetime game counter for a set of users.  Used for
// the best-effort loss statistics outside the settlement transaction.
func (r *UserRepository) IncrementGames(ctx context.Context, userIDs []uuid.UUID) error {
	if len(userIDs) == 0 {
		return nil
	}
	query, args, err := sqlx.In(
		`UPDATE users SET total_games = total_games + 1, updated_at = now() WHERE id IN (?)`,
		userIDs)
	if err != nil {
		return fmt.Errorf("user_repo.IncrementGames: build: %w", err)
	}
	if _, err = r.db.ExecContext(ctx, r.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("user_repo.IncrementGames: %w", err)
	}
	return nil
}

// IncrementGamesTx is the in-transaction variant used for the winner, whose
// counter update must commit with the payout.
func (r *UserRepository) IncrementGamesTx(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE users SET total_games = total_games + 1, updated_at = now() WHERE id = $1`,
		userID)
	if err != nil {
		return fmt.Errorf("user_repo.IncrementGamesTx: %w", err)
	}
	return nil
}

// List returns a paginated list of all users.
// Returns (users, totalCount, error).
func (r *UserRepository) List(ctx context.Context, limit, offset int) ([]*domain.User, int, error) {
	var users []*domain.User
	var total int

	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM users`); err != nil {
		return nil, 0, fmt.Errorf("user_repo.List count: %w", err)
	}
	if err := r.db.SelectContext(ctx, &users,
		`SELECT * FROM users ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("user_repo.List select: %w", err)
	}
	return users, total, nil
}

// SetActive activates or deactivates a user account.
func (r *UserRepository) SetActive(ctx context.Context, userID uuid.UUID, active bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET is_active = $1, updated_at = now() WHERE id = $2`,
		active, userID)
	if err != nil {
		return fmt.Errorf("user_repo.SetActive: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// isPgUniqueViolation checks whether err is a PostgreSQL unique constraint
// violation for the given constraint name.
func isPgUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "unique constraint") && strings.Contains(msg, constraintName)
}
