package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Tolujoh-n/bitcoinworld/internal/domain"
)

// TradeStore implements domain.TradeStore using PostgreSQL. Trades are
// append-only; the unique tx_id constraint makes a retried ledger write
// for the same confirmed transaction idempotent.
type TradeStore struct {
	pool *pgxpool.Pool
}

// NewTradeStore creates a new TradeStore backed by the given connection pool.
func NewTradeStore(pool *pgxpool.Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

const tradeSelectCols = `t.id, t.poll_id, t.user_id, COALESCE(u.username, ''),
	t.side, t.option_index, t.option_text, t.amount, t.price, t.order_type,
	t.tx_id, t.created_at`

const tradeFrom = ` FROM trades t LEFT JOIN users u ON u.id = t.user_id`

func scanTradeRows(rows pgx.Rows) ([]domain.Trade, error) {
	var trades []domain.Trade
	for rows.Next() {
		var t domain.Trade
		if err := rows.Scan(
			&t.ID, &t.PollID, &t.UserID, &t.Username,
			&t.Side, &t.OptionIndex, &t.OptionText, &t.Amount, &t.Price,
			&t.OrderType, &t.TxID, &t.CreatedAt,
		); err != nil {
			return nil, err
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// Insert persists one confirmed trade.
func (s *TradeStore) Insert(ctx context.Context, t domain.Trade) error {
	const query = `
		INSERT INTO trades (
			id, poll_id, user_id, side, option_index, option_text,
			amount, price, order_type, tx_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := s.pool.Exec(ctx, query,
		t.ID, t.PollID, t.UserID, t.Side, t.OptionIndex, t.OptionText,
		t.Amount, t.Price, t.OrderType, t.TxID, t.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("postgres: insert trade: %w", err)
	}
	return nil
}

// ListByPoll returns a poll's trades, newest first.
func (s *TradeStore) ListByPoll(ctx context.Context, pollID string, opts domain.ListOpts) ([]domain.Trade, error) {
	query := `SELECT ` + tradeSelectCols + tradeFrom + ` WHERE t.poll_id = $1 ORDER BY t.created_at DESC`
	args := []any{pollID}
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if opts.Offset > 0 {
		args = append(args, opts.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list trades by poll: %w", err)
	}
	defer rows.Close()

	trades, err := scanTradeRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan trades by poll: %w", err)
	}
	return trades, nil
}

// ListByUser returns a user's trades, newest first.
func (s *TradeStore) ListByUser(ctx context.Context, userID string, opts domain.ListOpts) ([]domain.Trade, error) {
	query := `SELECT ` + tradeSelectCols + tradeFrom + ` WHERE t.user_id = $1 ORDER BY t.created_at DESC`
	args := []any{userID}
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if opts.Offset > 0 {
		args = append(args, opts.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list trades by user: %w", err)
	}
	defer rows.Close()

	trades, err := scanTradeRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan trades by user: %w", err)
	}
	return trades, nil
}

// CountByPoll returns the number of trades on a poll.
func (s *TradeStore) CountByPoll(ctx context.Context, pollID string) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM trades WHERE poll_id = $1", pollID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("postgres: count trades: %w", err)
	}
	return n, nil
}

// ListByPollSince returns trades for chart bucketing, oldest first.
func (s *TradeStore) ListByPollSince(ctx context.Context, pollID string, since time.Time) ([]domain.Trade, error) {
	query := `SELECT ` + tradeSelectCols + tradeFrom +
		` WHERE t.poll_id = $1 AND t.created_at >= $2 ORDER BY t.created_at ASC`
	rows, err := s.pool.Query(ctx, query, pollID, since)
	if err != nil {
		return nil, fmt.Errorf("postgres: list trades since: %w", err)
	}
	defer rows.Close()
	return scanTradeRows(rows)
}

// MarkRewardClaimed records a confirmed redemption exactly once.
func (s *TradeStore) MarkRewardClaimed(ctx context.Context, claim domain.RewardClaim) error {
	const query = `
		INSERT INTO reward_claims (poll_id, user_id, tx_id, claimed_at)
		VALUES ($1, $2, $3, $4)`
	_, err := s.pool.Exec(ctx, query, claim.PollID, claim.UserID, claim.TxID, claim.ClaimedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyClaimed
		}
		return fmt.Errorf("postgres: mark reward claimed: %w", err)
	}
	return nil
}

// RewardClaimed reports whether the user already redeemed on this poll.
func (s *TradeStore) RewardClaimed(ctx context.Context, pollID, userID string) (bool, error) {
	var claimed bool
	err := s.pool.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM reward_claims WHERE poll_id = $1 AND user_id = $2)",
		pollID, userID,
	).Scan(&claimed)
	if err != nil {
		return false, fmt.Errorf("postgres: reward claimed: %w", err)
	}
	return claimed, nil
}

// ListBefore returns all trades on polls resolved before the cutoff, for
// archival.
func (s *TradeStore) ListBefore(ctx context.Context, before time.Time) ([]domain.Trade, error) {
	query := `SELECT ` + tradeSelectCols + tradeFrom + `
		JOIN polls p ON p.id = t.poll_id
		WHERE p.is_resolved = TRUE AND p.updated_at < $1
		ORDER BY t.created_at ASC`
	rows, err := s.pool.Query(ctx, query, before)
	if err != nil {
		return nil, fmt.Errorf("postgres: list trades before: %w", err)
	}
	defer rows.Close()
	return scanTradeRows(rows)
}

// isUniqueViolation reports whether err is a PostgreSQL unique constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// Compile-time interface check.
var _ domain.TradeStore = (*TradeStore)(nil)
