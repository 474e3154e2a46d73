package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Tolujoh-n/bitcoinworld/internal/domain"
)

// Narrow store interfaces for archival. The Postgres stores satisfy them
// through their time-ranged queries; the archiver needs nothing else.

// TradeArchiveStore reads trades belonging to resolved polls.
type TradeArchiveStore interface {
	// ListBefore returns all trades on polls resolved strictly before the
	// cutoff.
	ListBefore(ctx context.Context, before time.Time) ([]domain.Trade, error)
}

// PollArchiveStore reads resolved polls for archival.
type PollArchiveStore interface {
	ListResolvedBefore(ctx context.Context, cutoff time.Time, opts domain.ListOpts) ([]domain.Poll, error)
}

// ArchiveImpl implements domain.Archiver: resolved polls and their trade
// history are serialized to JSONL and uploaded to object storage. The
// ledger rows stay in place; deletion is a separate operator step taken
// after the archive has been verified.
type ArchiveImpl struct {
	writer domain.BlobWriter
	trades TradeArchiveStore
	polls  PollArchiveStore
	audit  domain.AuditStore
}

// NewArchiver creates a new ArchiveImpl.
func NewArchiver(
	writer domain.BlobWriter,
	trades TradeArchiveStore,
	polls PollArchiveStore,
	audit domain.AuditStore,
) *ArchiveImpl {
	return &ArchiveImpl{
		writer: writer,
		trades: trades,
		polls:  polls,
		audit:  audit,
	}
}

// ArchiveResolvedPolls uploads every poll resolved before the cutoff and
// all of its trades as JSONL files partitioned by year-month, records the
// run in the audit log and returns the number of archived trades.
func (a *ArchiveImpl) ArchiveResolvedPolls(ctx context.Context, resolvedBefore time.Time) (int64, error) {
	polls, err := a.polls.ListResolvedBefore(ctx, resolvedBefore, domain.ListOpts{})
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive polls query: %w", err)
	}
	if len(polls) == 0 {
		return 0, nil
	}

	trades, err := a.trades.ListBefore(ctx, resolvedBefore)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive trades query: %w", err)
	}

	pollsBuf, err := marshalJSONL(polls)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive polls marshal: %w", err)
	}
	pollsPath := archivePath("polls", resolvedBefore)
	if err := a.writer.Put(ctx, pollsPath, bytes.NewReader(pollsBuf), "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: archive polls upload: %w", err)
	}

	tradesPath := archivePath("trades", resolvedBefore)
	if len(trades) > 0 {
		tradesBuf, err := marshalJSONL(trades)
		if err != nil {
			return 0, fmt.Errorf("s3blob: archive trades marshal: %w", err)
		}
		if err := a.writer.Put(ctx, tradesPath, bytes.NewReader(tradesBuf), "application/x-ndjson"); err != nil {
			return 0, fmt.Errorf("s3blob: archive trades upload: %w", err)
		}
	}

	count := int64(len(trades))
	entry := domain.AuditEntry{
		Kind: "archive",
		Detail: map[string]any{
			"polls_path":  pollsPath,
			"trades_path": tradesPath,
			"polls":       len(polls),
			"trades":      count,
			"before":      resolvedBefore.Format(time.RFC3339),
		},
	}
	if err := a.audit.Record(ctx, entry); err != nil {
		return count, fmt.Errorf("s3blob: archive audit record: %w", err)
	}
	return count, nil
}

// archivePath builds the object key for an archive file, partitioned by
// the year-month of the cutoff:
//
//	archive/polls/2025-01.jsonl
//	archive/trades/2025-01.jsonl
func archivePath(kind string, before time.Time) string {
	return fmt.Sprintf("archive/%s/%s.jsonl", kind, before.Format("2006-01"))
}

// marshalJSONL serialises records as newline-delimited JSON.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

// Compile-time interface check.
var _ domain.Archiver = (*ArchiveImpl)(nil)
