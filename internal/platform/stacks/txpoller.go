package stacks

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Tolujoh-n/bitcoinworld/internal/domain"
)

// TxPoller polls the node API until a transaction reaches a terminal
// status. It implements domain.TxWatcher.
type TxPoller struct {
	baseURL     string
	interval    time.Duration
	maxAttempts int
	httpClient  *http.Client
	logger      *slog.Logger
}

var _ domain.TxWatcher = (*TxPoller)(nil)

// NewTxPoller creates a TxPoller. interval and maxAttempts bound the
// total wait; a zero value falls back to 5s x 60 attempts.
func NewTxPoller(baseURL string, interval time.Duration, maxAttempts int, timeout time.Duration, logger *slog.Logger) *TxPoller {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if maxAttempts <= 0 {
		maxAttempts = 60
	}
	return &TxPoller{
		baseURL:     strings.TrimRight(baseURL, "/"),
		interval:    interval,
		maxAttempts: maxAttempts,
		httpClient:  &http.Client{Timeout: timeout},
		logger:      logger.With(slog.String("component", "tx_poller")),
	}
}

// txAPIResponse is the subset of the node's transaction payload we need.
type txAPIResponse struct {
	TxID     string `json:"tx_id"`
	TxStatus string `json:"tx_status"`
	TxResult struct {
		Hex  string `json:"hex"`
		Repr string `json:"repr"`
	} `json:"tx_result"`
	BlockHeight int64 `json:"block_height"`
}

// WaitForConfirmation blocks until the transaction reaches a terminal
// status, the attempt budget is exhausted (ErrTxTimeout), or ctx is
// done. Transient fetch errors consume an attempt and the loop
// continues; the budget keeps the wait bounded either way.
func (p *TxPoller) WaitForConfirmation(ctx context.Context, txID string) (domain.TxRecord, error) {
	if txID == "" {
		return domain.TxRecord{}, domain.ErrNoTxID
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		rec, err := p.fetch(ctx, txID)
		if err != nil {
			if ctx.Err() != nil {
				return domain.TxRecord{}, ctx.Err()
			}
			p.logger.WarnContext(ctx, "stacks: tx status fetch failed",
				slog.String("tx_id", txID),
				slog.Int("attempt", attempt),
				slog.String("error", err.Error()),
			)
		} else if rec.Status.Terminal() {
			p.logger.InfoContext(ctx, "stacks: tx reached terminal status",
				slog.String("tx_id", txID),
				slog.String("status", string(rec.Status)),
				slog.Int("attempt", attempt),
			)
			return rec, nil
		}

		if attempt == p.maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return domain.TxRecord{}, ctx.Err()
		case <-ticker.C:
		}
	}

	return domain.TxRecord{TxID: txID, Status: domain.TxPending}, domain.ErrTxTimeout
}

// Status retrieves the current transaction record without waiting.
func (p *TxPoller) Status(ctx context.Context, txID string) (domain.TxRecord, error) {
	if txID == "" {
		return domain.TxRecord{}, domain.ErrNoTxID
	}
	return p.fetch(ctx, txID)
}

// fetch retrieves the current transaction record once.
func (p *TxPoller) fetch(ctx context.Context, txID string) (domain.TxRecord, error) {
	url := fmt.Sprintf("%s/extended/v1/tx/%s", p.baseURL, txID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return domain.TxRecord{}, fmt.Errorf("stacks: build tx request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return domain.TxRecord{}, fmt.Errorf("stacks: fetch tx %s: %w", txID, err)
	}
	defer resp.Body.Close()

	// A mempool transaction can 404 briefly before the API indexes it;
	// treat that as still pending rather than an error.
	if resp.StatusCode == http.StatusNotFound {
		return domain.TxRecord{TxID: txID, Status: domain.TxPending, SeenAt: time.Now().UTC()}, nil
	}
	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.TxRecord{}, fmt.Errorf("stacks: fetch tx %s: status %d: %s", txID, resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var out txAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return domain.TxRecord{}, fmt.Errorf("stacks: decode tx %s: %w", txID, err)
	}

	status := domain.TxStatus(out.TxStatus)
	switch status {
	case domain.TxPending, domain.TxSuccess, domain.TxAbortByResponse, domain.TxAbortByPostCondition, domain.TxFailed:
	default:
		// Unknown statuses (e.g. dropped_*) are treated as failed.
		status = domain.TxFailed
	}

	result := out.TxResult.Repr
	if result == "" {
		result = out.TxResult.Hex
	}
	return domain.TxRecord{
		TxID:        out.TxID,
		Status:      status,
		Result:      result,
		BlockHeight: out.BlockHeight,
		SeenAt:      time.Now().UTC(),
	}, nil
}
