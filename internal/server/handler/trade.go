package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/Tolujoh-n/bitcoinworld/internal/domain"
	"github.com/Tolujoh-n/bitcoinworld/internal/server/middleware"
	"github.com/Tolujoh-n/bitcoinworld/internal/service"
)

// TradeHandler serves trade execution, redemption and history.
type TradeHandler struct {
	trades *service.TradeService
	logger *slog.Logger
}

// NewTradeHandler creates a TradeHandler.
func NewTradeHandler(trades *service.TradeService, logger *slog.Logger) *TradeHandler {
	return &TradeHandler{trades: trades, logger: logHandler(logger, "trade")}
}

// Execute runs one trade end to end: wallet prompt, chain confirmation,
// ledger write. The response is the confirmed ledger row.
// POST /api/trades
func (h *TradeHandler) Execute(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFrom(r.Context())

	var req domain.TradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	trade, err := h.trades.Execute(r.Context(), user, req)
	if err != nil {
		h.logTradeFailure(r, req, err)
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, trade)
}

// History returns a poll's recent trades.
// GET /api/trades/{pollId}
func (h *TradeHandler) History(w http.ResponseWriter, r *http.Request) {
	trades, err := h.trades.History(r.Context(), pathParam(r, "pollId"), parseListOpts(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"trades": trades})
}

// UserHistory returns the session user's trades.
// GET /api/trades
func (h *TradeHandler) UserHistory(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFrom(r.Context())

	trades, err := h.trades.UserHistory(r.Context(), user.ID, parseListOpts(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"trades": trades})
}

// Claimed reports whether the session user already redeemed on a poll.
// GET /api/trades/claimed/{pollId}
func (h *TradeHandler) Claimed(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFrom(r.Context())

	claimed, err := h.trades.Claimed(r.Context(), pathParam(r, "pollId"), user.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"claimed": claimed})
}

// redeemRequest is the body of the redemption endpoint.
type redeemRequest struct {
	PollID string `json:"pollId"`
}

// Redeem claims the session user's winnings on a resolved poll.
// POST /api/trades/redeem
func (h *TradeHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFrom(r.Context())

	var req redeemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.PollID == "" {
		writeError(w, http.StatusBadRequest, "pollId is required")
		return
	}

	claim, err := h.trades.Redeem(r.Context(), user, req.PollID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, claim)
}

// logTradeFailure keeps reconciliation-relevant failures loud and
// expected outcomes quiet.
func (h *TradeHandler) logTradeFailure(r *http.Request, req domain.TradeRequest, err error) {
	var ledgerErr *domain.LedgerWriteError
	switch {
	case errors.As(err, &ledgerErr):
		h.logger.ErrorContext(r.Context(), "trade confirmed but not recorded",
			slog.String("poll_id", req.PollID),
			slog.String("tx_id", ledgerErr.TxID),
			slog.String("error", err.Error()),
		)
	case errors.Is(err, domain.ErrUserCancelled):
		h.logger.InfoContext(r.Context(), "trade cancelled at wallet",
			slog.String("poll_id", req.PollID))
	default:
		h.logger.WarnContext(r.Context(), "trade failed",
			slog.String("poll_id", req.PollID),
			slog.String("error", err.Error()),
		)
	}
}
