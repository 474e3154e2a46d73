package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Tolujoh-n/bitcoinworld/internal/domain"
)

// AuditStore implements domain.AuditStore using PostgreSQL. The ledger
// write failure path depends on this table: it is the only durable record
// of a confirmed transaction the ledger failed to absorb.
type AuditStore struct {
	pool *pgxpool.Pool
}

// NewAuditStore creates a new AuditStore backed by the given pool.
func NewAuditStore(pool *pgxpool.Pool) *AuditStore {
	return &AuditStore{pool: pool}
}

// Record appends one audit entry.
func (s *AuditStore) Record(ctx context.Context, e domain.AuditEntry) error {
	const query = `
		INSERT INTO audit_log (kind, actor, poll_id, tx_id, detail, created_at)
		VALUES ($1, $2, $3, $4, $5, COALESCE($6, NOW()))`
	var createdAt any
	if !e.CreatedAt.IsZero() {
		createdAt = e.CreatedAt
	}
	if _, err := s.pool.Exec(ctx, query, e.Kind, e.Actor, e.PollID, e.TxID, e.Detail, createdAt); err != nil {
		return fmt.Errorf("postgres: record audit %s: %w", e.Kind, err)
	}
	return nil
}

// List returns audit entries, newest first, optionally filtered by kind.
func (s *AuditStore) List(ctx context.Context, kind string, opts domain.ListOpts) ([]domain.AuditEntry, error) {
	query := `SELECT id, kind, actor, poll_id, tx_id, detail, created_at FROM audit_log`
	var args []any
	if kind != "" {
		args = append(args, kind)
		query += fmt.Sprintf(" WHERE kind = $%d", len(args))
	}
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
		return nil, fmt.Errorf("postgres: list audit: %w", err)
	}
	defer rows.Close()

	var entries []domain.AuditEntry
	for rows.Next() {
		var e domain.AuditEntry
		if err := rows.Scan(&e.ID, &e.Kind, &e.Actor, &e.PollID, &e.TxID, &e.Detail, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan audit entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: scan audit: %w", err)
	}
	return entries, nil
}

// Compile-time interface check.
var _ domain.AuditStore = (*AuditStore)(nil)
