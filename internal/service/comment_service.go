package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Tolujoh-n/bitcoinworld/internal/domain"
)

// CommentService manages poll discussion threads.
type CommentService struct {
	comments domain.CommentStore
	polls    domain.PollStore
	logger   *slog.Logger
}

// NewCommentService creates a CommentService.
func NewCommentService(comments domain.CommentStore, polls domain.PollStore, logger *slog.Logger) *CommentService {
	return &CommentService{comments: comments, polls: polls, logger: logger}
}

// Add posts a comment on an existing poll.
func (s *CommentService) Add(ctx context.Context, user domain.User, pollID, body string) (domain.Comment, error) {
	if _, err := s.polls.GetByID(ctx, pollID); err != nil {
		return domain.Comment{}, fmt.Errorf("comment_service: add: %w", err)
	}

	comment := domain.Comment{
		ID:        uuid.NewString(),
		PollID:    pollID,
		UserID:    user.ID,
		Username:  user.Username,
		Body:      body,
		CreatedAt: time.Now().UTC(),
	}
	if err := comment.Validate(); err != nil {
		return domain.Comment{}, err
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return domain.Comment{}, fmt.Errorf("comment_service: create: %w", err)
	}
	return comment, nil
}

// List returns a poll's comments, newest first.
func (s *CommentService) List(ctx context.Context, pollID string, opts domain.ListOpts) ([]domain.Comment, error) {
	comments, err := s.comments.ListByPoll(ctx, pollID, opts)
	if err != nil {
		return nil, fmt.Errorf("comment_service: list %s: %w", pollID, err)
	}
	return comments, nil
}

// Delete removes the user's own comment.
func (s *CommentService) Delete(ctx context.Context, user domain.User, id string) error {
	if err := s.comments.Delete(ctx, id, user.ID); err != nil {
		return fmt.Errorf("comment_service: delete %s: %w", id, err)
	}
	s.logger.InfoContext(ctx, "comment_service: comment deleted",
		slog.String("comment_id", id),
		slog.String("user_id", user.ID),
	)
	return nil
}
