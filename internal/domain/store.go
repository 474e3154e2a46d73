package domain

import (
	"context"
	"time"
)

// ListOpts carries standard pagination parameters.
type ListOpts struct {
	Limit  int
	Offset int
}

// PollFilter narrows poll listings.
type PollFilter struct {
	Category    string
	SubCategory string
	Resolved    *bool
}

// PollStore persists polls.
type PollStore interface {
	Create(ctx context.Context, p Poll) error
	Update(ctx context.Context, p Poll) error
	GetByID(ctx context.Context, id string) (Poll, error)
	List(ctx context.Context, filter PollFilter, opts ListOpts) ([]Poll, error)
	Count(ctx context.Context, filter PollFilter) (int64, error)

	// Resolve marks the winner. It fails with ErrPollResolved when the
	// poll was already resolved.
	Resolve(ctx context.Context, id string, winningOption int) error

	// SetOptionPercentages overwrites display percentages after a price
	// refresh.
	SetOptionPercentages(ctx context.Context, id string, percentages []float64) error

	// AddVolume increments the poll's running trade volume.
	AddVolume(ctx context.Context, id string, amount float64) error

	// ListResolvedBefore returns polls resolved before the cutoff, for
	// archival.
	ListResolvedBefore(ctx context.Context, cutoff time.Time, opts ListOpts) ([]Poll, error)
}

// TradeStore persists confirmed trades and reward claims. Insert is the
// only write path for trades; rows are never updated.
type TradeStore interface {
	Insert(ctx context.Context, t Trade) error
	ListByPoll(ctx context.Context, pollID string, opts ListOpts) ([]Trade, error)
	ListByUser(ctx context.Context, userID string, opts ListOpts) ([]Trade, error)
	CountByPoll(ctx context.Context, pollID string) (int64, error)

	// ListByPollSince returns trades for chart bucketing, oldest first.
	ListByPollSince(ctx context.Context, pollID string, since time.Time) ([]Trade, error)

	MarkRewardClaimed(ctx context.Context, claim RewardClaim) error
	RewardClaimed(ctx context.Context, pollID, userID string) (bool, error)
}

// UserStore persists accounts.
type UserStore interface {
	Create(ctx context.Context, u User) error
	GetByID(ctx context.Context, id string) (User, error)
	GetByUsername(ctx context.Context, username string) (User, error)
	GetByWallet(ctx context.Context, address string) (User, error)
	UpdateBalance(ctx context.Context, id string, delta float64) error
	AttachWallet(ctx context.Context, id, address string) error
}

// CommentStore persists poll comments.
type CommentStore interface {
	Create(ctx context.Context, c Comment) error
	ListByPoll(ctx context.Context, pollID string, opts ListOpts) ([]Comment, error)
	Delete(ctx context.Context, id, userID string) error
}

// AuditEntry is one operator-visible event in the audit trail.
type AuditEntry struct {
	ID        int64          `json:"id"`
	Kind      string         `json:"kind"`
	Actor     string         `json:"actor,omitempty"`
	PollID    string         `json:"pollId,omitempty"`
	TxID      string         `json:"txId,omitempty"`
	Detail    map[string]any `json:"detail,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

// AuditStore records reconciliation-relevant events, most importantly
// ledger writes that failed after a confirmed transaction.
type AuditStore interface {
	Record(ctx context.Context, e AuditEntry) error
	List(ctx context.Context, kind string, opts ListOpts) ([]AuditEntry, error)
}
