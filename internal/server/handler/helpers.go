package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Tolujoh-n/bitcoinworld/internal/domain"
)

// writeJSON marshals v as JSON and writes it to the response with the given
// HTTP status code. If marshaling fails, it falls back to a plain-text 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data)
}

// writeError sends a JSON-formatted error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// parseListOpts extracts standard pagination parameters from the query string.
// Defaults: limit=50 (max 500), offset=0.
func parseListOpts(r *http.Request) domain.ListOpts {
	q := r.URL.Query()

	limit := 50
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > 500 {
		limit = 500
	}

	offset := 0
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	return domain.ListOpts{
		Limit:  limit,
		Offset: offset,
	}
}

// pathParam extracts a named path parameter from the request using Go 1.22+
// built-in routing (http.Request.PathValue).
func pathParam(r *http.Request, name string) string {
	return r.PathValue(name)
}

// logHandler is a convenience to attach slog fields in handler code.
func logHandler(logger *slog.Logger, handler string) *slog.Logger {
	return logger.With(slog.String("handler", handler))
}

// writeDomainError maps the error taxonomy onto HTTP statuses. Wallet
// cancellations and chain rejections are client-visible outcomes, not
// server faults; only unknown errors become a 500.
func writeDomainError(w http.ResponseWriter, err error) {
	var (
		vErr      *domain.ValidationError
		chainErr  *domain.ChainCallError
		ledgerErr *domain.LedgerWriteError
	)
	switch {
	case errors.As(err, &vErr):
		writeError(w, http.StatusBadRequest, vErr.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrAlreadyExists):
		writeError(w, http.StatusConflict, "already exists")
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, domain.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
	case errors.Is(err, domain.ErrWalletNotConnected):
		writeError(w, http.StatusBadRequest, "wallet not connected")
	case errors.Is(err, domain.ErrUserCancelled):
		writeError(w, http.StatusConflict, "user cancelled the wallet prompt")
	case errors.Is(err, domain.ErrPromptTimeout):
		writeError(w, http.StatusRequestTimeout, "wallet prompt expired")
	case errors.Is(err, domain.ErrPollResolved):
		writeError(w, http.StatusConflict, "poll already resolved")
	case errors.Is(err, domain.ErrAlreadyClaimed):
		writeError(w, http.StatusConflict, "reward already claimed")
	case errors.Is(err, domain.ErrTxTimeout):
		writeError(w, http.StatusGatewayTimeout, "transaction confirmation timed out: status unknown")
	case errors.As(err, &chainErr):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":  "transaction rejected on chain",
			"txId":   chainErr.TxID,
			"status": string(chainErr.Status),
			"result": chainErr.Result,
		})
	case errors.As(err, &ledgerErr):
		// The chain accepted the transaction; the client must not retry.
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error": "trade confirmed but recording failed; support has been notified",
			"txId":  ledgerErr.TxID,
		})
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
