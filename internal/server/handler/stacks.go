package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/Tolujoh-n/bitcoinworld/internal/domain"
)

// TxStatusReader is the one-shot status surface of the confirmation
// poller, used by the transaction proxy endpoint.
type TxStatusReader interface {
	Status(ctx context.Context, txID string) (domain.TxRecord, error)
}

// StacksHandler proxies transaction status lookups to the node API so
// browser clients never talk to it directly.
type StacksHandler struct {
	txs    TxStatusReader
	logger *slog.Logger
}

// NewStacksHandler creates a StacksHandler.
func NewStacksHandler(txs TxStatusReader, logger *slog.Logger) *StacksHandler {
	return &StacksHandler{txs: txs, logger: logHandler(logger, "stacks")}
}

// TxStatus returns the current status of one transaction.
// GET /api/stacks/tx/{txId}
func (h *StacksHandler) TxStatus(w http.ResponseWriter, r *http.Request) {
	txID := pathParam(r, "txId")
	if txID == "" {
		writeError(w, http.StatusBadRequest, "txId is required")
		return
	}

	record, err := h.txs.Status(r.Context(), txID)
	if err != nil {
		h.logger.WarnContext(r.Context(), "tx status lookup failed",
			slog.String("tx_id", txID),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}
