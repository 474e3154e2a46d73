package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Tolujoh-n/bitcoinworld/internal/domain"
)

// PollStore implements domain.PollStore using PostgreSQL.
type PollStore struct {
	pool *pgxpool.Pool
}

// NewPollStore creates a new PollStore backed by the given connection pool.
func NewPollStore(pool *pgxpool.Pool) *PollStore {
	return &PollStore{pool: pool}
}

const pollSelectCols = `id, title, description, category, sub_category, image_url,
	options, market_id, end_date, is_resolved, winning_option, total_volume,
	COALESCE(created_by::text, ''), created_at, updated_at`

func scanPoll(row pgx.Row) (domain.Poll, error) {
	var p domain.Poll
	err := row.Scan(
		&p.ID, &p.Title, &p.Description, &p.Category, &p.SubCategory,
		&p.ImageURL, &p.Options, &p.MarketID, &p.EndDate, &p.IsResolved,
		&p.WinningOption, &p.TotalVolume, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}

func scanPollRows(rows pgx.Rows) ([]domain.Poll, error) {
	var polls []domain.Poll
	for rows.Next() {
		p, err := scanPoll(rows)
		if err != nil {
			return nil, err
		}
		polls = append(polls, p)
	}
	return polls, rows.Err()
}

// Create inserts a new poll.
func (s *PollStore) Create(ctx context.Context, p domain.Poll) error {
	const query = `
		INSERT INTO polls (
			id, title, description, category, sub_category, image_url,
			options, market_id, end_date, is_resolved, winning_option,
			total_volume, created_by, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10, $11,
			$12, NULLIF($13, '')::uuid, $14, $15
		)`
	_, err := s.pool.Exec(ctx, query,
		p.ID, p.Title, p.Description, p.Category, p.SubCategory, p.ImageURL,
		p.Options, p.MarketID, p.EndDate, p.IsResolved, p.WinningOption,
		p.TotalVolume, p.CreatedBy, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("postgres: create poll: %w", err)
	}
	return nil
}

// Update rewrites mutable poll metadata. Resolution state is not touched
// here; Resolve owns that transition.
func (s *PollStore) Update(ctx context.Context, p domain.Poll) error {
	const query = `
		UPDATE polls SET
			title = $2, description = $3, category = $4, sub_category = $5,
			image_url = $6, options = $7, market_id = $8, end_date = $9,
			updated_at = NOW()
		WHERE id = $1`
	tag, err := s.pool.Exec(ctx, query,
		p.ID, p.Title, p.Description, p.Category, p.SubCategory,
		p.ImageURL, p.Options, p.MarketID, p.EndDate,
	)
	if err != nil {
		return fmt.Errorf("postgres: update poll %s: %w", p.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetByID returns one poll.
func (s *PollStore) GetByID(ctx context.Context, id string) (domain.Poll, error) {
	query := `SELECT ` + pollSelectCols + ` FROM polls WHERE id = $1`
	p, err := scanPoll(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Poll{}, domain.ErrNotFound
		}
		return domain.Poll{}, fmt.Errorf("postgres: get poll %s: %w", id, err)
	}
	return p, nil
}

func pollFilterClause(filter domain.PollFilter, args *[]any) string {
	clause := " WHERE 1=1"
	if filter.Category != "" {
		*args = append(*args, filter.Category)
		clause += fmt.Sprintf(" AND category = $%d", len(*args))
	}
	if filter.SubCategory != "" {
		*args = append(*args, filter.SubCategory)
		clause += fmt.Sprintf(" AND sub_category = $%d", len(*args))
	}
	if filter.Resolved != nil {
		*args = append(*args, *filter.Resolved)
		clause += fmt.Sprintf(" AND is_resolved = $%d", len(*args))
	}
	return clause
}

// List returns polls matching the filter, newest first.
func (s *PollStore) List(ctx context.Context, filter domain.PollFilter, opts domain.ListOpts) ([]domain.Poll, error) {
	var args []any
	query := `SELECT ` + pollSelectCols + ` FROM polls` + pollFilterClause(filter, &args)
	query += " ORDER BY created_at DESC"
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
		return nil, fmt.Errorf("postgres: list polls: %w", err)
	}
	defer rows.Close()

	polls, err := scanPollRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan polls: %w", err)
	}
	return polls, nil
}

// Count returns the number of polls matching the filter.
func (s *PollStore) Count(ctx context.Context, filter domain.PollFilter) (int64, error) {
	var args []any
	query := `SELECT COUNT(*) FROM polls` + pollFilterClause(filter, &args)

	var n int64
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("postgres: count polls: %w", err)
	}
	return n, nil
}

// Resolve marks the winner exactly once.
func (s *PollStore) Resolve(ctx context.Context, id string, winningOption int) error {
	const query = `
		UPDATE polls
		SET is_resolved = TRUE, winning_option = $2, updated_at = NOW()
		WHERE id = $1 AND is_resolved = FALSE`
	tag, err := s.pool.Exec(ctx, query, id, winningOption)
	if err != nil {
		return fmt.Errorf("postgres: resolve poll %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		// Distinguish "missing" from "already resolved".
		var resolved bool
		err := s.pool.QueryRow(ctx, "SELECT is_resolved FROM polls WHERE id = $1", id).Scan(&resolved)
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("postgres: resolve poll %s: %w", id, err)
		}
		return domain.ErrPollResolved
	}
	return nil
}

// SetOptionPercentages overwrites each option's display percentage.
func (s *PollStore) SetOptionPercentages(ctx context.Context, id string, percentages []float64) error {
	poll, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if len(percentages) != len(poll.Options) {
		return fmt.Errorf("postgres: poll %s has %d options, got %d percentages", id, len(poll.Options), len(percentages))
	}
	for i := range poll.Options {
		poll.Options[i].Percentage = percentages[i]
	}

	const query = `UPDATE polls SET options = $2, updated_at = NOW() WHERE id = $1`
	if _, err := s.pool.Exec(ctx, query, id, poll.Options); err != nil {
		return fmt.Errorf("postgres: set poll %s percentages: %w", id, err)
	}
	return nil
}

// AddVolume increments the poll's running trade volume.
func (s *PollStore) AddVolume(ctx context.Context, id string, amount float64) error {
	const query = `UPDATE polls SET total_volume = total_volume + $2, updated_at = NOW() WHERE id = $1`
	tag, err := s.pool.Exec(ctx, query, id, amount)
	if err != nil {
		return fmt.Errorf("postgres: add poll %s volume: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListResolvedBefore returns polls resolved before the cutoff, oldest first.
func (s *PollStore) ListResolvedBefore(ctx context.Context, cutoff time.Time, opts domain.ListOpts) ([]domain.Poll, error) {
	query := `SELECT ` + pollSelectCols + ` FROM polls
		WHERE is_resolved = TRUE AND updated_at < $1
		ORDER BY updated_at ASC`
	args := []any{cutoff}
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list resolved polls: %w", err)
	}
	defer rows.Close()
	return scanPollRows(rows)
}

// Compile-time interface check.
var _ domain.PollStore = (*PollStore)(nil)
