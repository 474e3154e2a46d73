package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Tolujoh-n/bitcoinworld/internal/domain"
)

// CommentStore implements domain.CommentStore using PostgreSQL.
type CommentStore struct {
	pool *pgxpool.Pool
}

// NewCommentStore creates a new CommentStore backed by the given pool.
func NewCommentStore(pool *pgxpool.Pool) *CommentStore {
	return &CommentStore{pool: pool}
}

// Create inserts a comment.
func (s *CommentStore) Create(ctx context.Context, c domain.Comment) error {
	const query = `
		INSERT INTO comments (id, poll_id, user_id, body, created_at)
		VALUES ($1, $2, $3, $4, $5)`
	if _, err := s.pool.Exec(ctx, query, c.ID, c.PollID, c.UserID, c.Body, c.CreatedAt); err != nil {
		return fmt.Errorf("postgres: create comment: %w", err)
	}
	return nil
}

// ListByPoll returns a poll's comments, newest first.
func (s *CommentStore) ListByPoll(ctx context.Context, pollID string, opts domain.ListOpts) ([]domain.Comment, error) {
	query := `
		SELECT c.id, c.poll_id, c.user_id, COALESCE(u.username, ''), c.body, c.created_at
		FROM comments c
		LEFT JOIN users u ON u.id = c.user_id
		WHERE c.poll_id = $1
		ORDER BY c.created_at DESC`
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
		return nil, fmt.Errorf("postgres: list comments: %w", err)
	}
	defer rows.Close()

	var comments []domain.Comment
	for rows.Next() {
		var c domain.Comment
		if err := rows.Scan(&c.ID, &c.PollID, &c.UserID, &c.Username, &c.Body, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan comment: %w", err)
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: scan comments: %w", err)
	}
	return comments, nil
}

// Delete removes a comment owned by userID. Deleting someone else's
// comment is reported as not found rather than forbidden so the handler
// leaks nothing about other users' comment IDs.
func (s *CommentStore) Delete(ctx context.Context, id, userID string) error {
	tag, err := s.pool.Exec(ctx,
		"DELETE FROM comments WHERE id = $1 AND user_id = $2", id, userID)
	if err != nil {
		return fmt.Errorf("postgres: delete comment %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Compile-time interface check.
var _ domain.CommentStore = (*CommentStore)(nil)
