package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/Tolujoh-n/bitcoinworld/internal/server/middleware"
	"github.com/Tolujoh-n/bitcoinworld/internal/service"
)

// CommentHandler serves poll discussion threads.
type CommentHandler struct {
	comments *service.CommentService
	logger   *slog.Logger
}

// NewCommentHandler creates a CommentHandler.
func NewCommentHandler(comments *service.CommentService, logger *slog.Logger) *CommentHandler {
	return &CommentHandler{comments: comments, logger: logHandler(logger, "comment")}
}

// List returns a poll's comments.
// GET /api/comments/{pollId}
func (h *CommentHandler) List(w http.ResponseWriter, r *http.Request) {
	comments, err := h.comments.List(r.Context(), pathParam(r, "pollId"), parseListOpts(r))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"comments": comments})
}

// commentRequest is the body of the comment creation endpoint.
type commentRequest struct {
	PollID string `json:"pollId"`
	Body   string `json:"body"`
}

// Create posts a comment.
// POST /api/comments
func (h *CommentHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFrom(r.Context())

	var req commentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	comment, err := h.comments.Add(r.Context(), user, req.PollID, req.Body)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, comment)
}

// Delete removes the session user's own comment.
// DELETE /api/comments/{id}
func (h *CommentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFrom(r.Context())

	if err := h.comments.Delete(r.Context(), user, pathParam(r, "id")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
