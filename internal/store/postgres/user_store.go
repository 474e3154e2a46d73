package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Tolujoh-n/bitcoinworld/internal/domain"
)

// UserStore implements domain.UserStore using PostgreSQL.
type UserStore struct {
	pool *pgxpool.Pool
}

// NewUserStore creates a new UserStore backed by the given connection pool.
func NewUserStore(pool *pgxpool.Pool) *UserStore {
	return &UserStore{pool: pool}
}

const userSelectCols = `id, username, COALESCE(email, ''), COALESCE(wallet_address, ''),
	COALESCE(password_hash, ''), is_admin, balance, created_at`

func scanUser(row pgx.Row) (domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID, &u.Username, &u.Email, &u.WalletAddress,
		&u.PasswordHash, &u.IsAdmin, &u.Balance, &u.CreatedAt,
	)
	return u, err
}

// Create inserts a new user.
func (s *UserStore) Create(ctx context.Context, u domain.User) error {
	const query = `
		INSERT INTO users (
			id, username, email, wallet_address, password_hash,
			is_admin, balance, created_at
		) VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), $6, $7, $8)`
	_, err := s.pool.Exec(ctx, query,
		u.ID, u.Username, u.Email, u.WalletAddress, u.PasswordHash,
		u.IsAdmin, u.Balance, u.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("postgres: create user: %w", err)
	}
	return nil
}

func (s *UserStore) getBy(ctx context.Context, column, value string) (domain.User, error) {
	query := `SELECT ` + userSelectCols + ` FROM users WHERE ` + column + ` = $1`
	u, err := scanUser(s.pool.QueryRow(ctx, query, value))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, fmt.Errorf("postgres: get user by %s: %w", column, err)
	}
	return u, nil
}

// GetByID returns one user by ID.
func (s *UserStore) GetByID(ctx context.Context, id string) (domain.User, error) {
	return s.getBy(ctx, "id", id)
}

// GetByUsername returns one user by username.
func (s *UserStore) GetByUsername(ctx context.Context, username string) (domain.User, error) {
	return s.getBy(ctx, "username", username)
}

// GetByWallet returns one user by wallet principal.
func (s *UserStore) GetByWallet(ctx context.Context, address string) (domain.User, error) {
	return s.getBy(ctx, "wallet_address", address)
}

// UpdateBalance applies a signed delta to the user's display balance.
func (s *UserStore) UpdateBalance(ctx context.Context, id string, delta float64) error {
	tag, err := s.pool.Exec(ctx,
		"UPDATE users SET balance = balance + $2 WHERE id = $1", id, delta)
	if err != nil {
		return fmt.Errorf("postgres: update user %s balance: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// AttachWallet binds a wallet principal to an existing account.
func (s *UserStore) AttachWallet(ctx context.Context, id, address string) error {
	tag, err := s.pool.Exec(ctx,
		"UPDATE users SET wallet_address = $2 WHERE id = $1", id, address)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("postgres: attach wallet to user %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Compile-time interface check.
var _ domain.UserStore = (*UserStore)(nil)
