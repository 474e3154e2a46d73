package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/Tolujoh-n/bitcoinworld/internal/domain"
	"github.com/Tolujoh-n/bitcoinworld/internal/server/middleware"
	"github.com/Tolujoh-n/bitcoinworld/internal/service"
)

// PollHandler serves poll CRUD, detail assembly and resolution.
type PollHandler struct {
	polls  *service.PollService
	trades *service.TradeService
	logger *slog.Logger
}

// NewPollHandler creates a PollHandler.
func NewPollHandler(polls *service.PollService, trades *service.TradeService, logger *slog.Logger) *PollHandler {
	return &PollHandler{polls: polls, trades: trades, logger: logHandler(logger, "poll")}
}

// List returns polls filtered by category and resolution state.
// GET /api/polls
func (h *PollHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.PollFilter{
		Category:    q.Get("category"),
		SubCategory: q.Get("subCategory"),
	}
	if v := q.Get("resolved"); v == "true" || v == "false" {
		resolved := v == "true"
		filter.Resolved = &resolved
	}

	polls, err := h.polls.List(r.Context(), filter, parseListOpts(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list polls failed", slog.String("error", err.Error()))
		writeDomainError(w, err)
		return
	}
	total, err := h.polls.Count(r.Context(), filter)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "count polls failed", slog.String("error", err.Error()))
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"polls": polls,
		"total": total,
	})
}

// Get returns one poll with its live market view: snapshot, recent
// trades, order book and chart series.
// GET /api/polls/{id}
func (h *PollHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")

	poll, err := h.polls.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	detail := map[string]any{"poll": poll}

	if poll.OnChain() {
		principal := ""
		if user, ok := middleware.UserFrom(r.Context()); ok {
			principal = user.WalletAddress
		}
		snap, err := h.polls.Snapshot(r.Context(), *poll.MarketID, principal)
		if err != nil {
			h.logger.WarnContext(r.Context(), "snapshot failed",
				slog.String("poll_id", id),
				slog.String("error", err.Error()))
		} else {
			detail["market"] = snap
		}
	}

	if trades, err := h.trades.History(r.Context(), id, domain.ListOpts{}); err == nil {
		detail["trades"] = trades
	}
	if book, err := h.trades.OrderBook(r.Context(), id); err == nil {
		detail["orderBook"] = book
	}
	if series, err := h.trades.Series(r.Context(), id); err == nil {
		detail["series"] = series
	}

	writeJSON(w, http.StatusOK, detail)
}

// Create makes a new poll.
// POST /api/polls
func (h *PollHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFrom(r.Context())

	var poll domain.Poll
	if err := json.NewDecoder(r.Body).Decode(&poll); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	created, err := h.polls.Create(r.Context(), user, poll)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// Update edits poll metadata.
// PUT /api/polls/{id}
func (h *PollHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFrom(r.Context())

	var poll domain.Poll
	if err := json.NewDecoder(r.Body).Decode(&poll); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	poll.ID = pathParam(r, "id")

	updated, err := h.polls.Update(r.Context(), user, poll)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// resolveRequest is the body of the resolution endpoint.
type resolveRequest struct {
	WinningOption int `json:"winningOption"`
}

// Resolve marks the winner exactly once.
// POST /api/polls/{id}/resolve
func (h *PollHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFrom(r.Context())

	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	poll, err := h.polls.Resolve(r.Context(), user, pathParam(r, "id"), req.WinningOption)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, poll)
}
