package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/Tolujoh-n/bitcoinworld/internal/domain"
)

// RoomTracker reports which polls currently have live subscribers. The
// WebSocket hub implements it.
type RoomTracker interface {
	ActivePolls() []string
}

// SnapshotRefresher periodically re-reads chain state for open on-chain
// polls, refreshes cached snapshots and stored percentages, and pushes
// poll-updated events to live rooms.
type SnapshotRefresher struct {
	polls    domain.PollStore
	service  *PollService
	rooms    RoomTracker
	interval time.Duration
	logger   *slog.Logger
}

// NewSnapshotRefresher creates a SnapshotRefresher. rooms may be nil, in
// which case every open on-chain poll is refreshed each tick.
func NewSnapshotRefresher(
	polls domain.PollStore,
	service *PollService,
	rooms RoomTracker,
	interval time.Duration,
	logger *slog.Logger,
) *SnapshotRefresher {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &SnapshotRefresher{
		polls:    polls,
		service:  service,
		rooms:    rooms,
		interval: interval,
		logger:   logger.With(slog.String("component", "snapshot_refresher")),
	}
}

// Run refreshes until ctx is cancelled.
func (r *SnapshotRefresher) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.InfoContext(ctx, "snapshot refresher started",
		slog.Duration("interval", r.interval))

	for {
		select {
		case <-ctx.Done():
			r.logger.InfoContext(ctx, "snapshot refresher stopped")
			return ctx.Err()
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

func (r *SnapshotRefresher) tick(ctx context.Context) {
	polls, err := r.candidates(ctx)
	if err != nil {
		r.logger.WarnContext(ctx, "refresh candidates failed",
			slog.String("error", err.Error()))
		return
	}

	for _, poll := range polls {
		if err := r.service.RefreshPrices(ctx, poll); err != nil {
			r.logger.WarnContext(ctx, "poll refresh failed",
				slog.String("poll_id", poll.ID),
				slog.String("error", err.Error()),
			)
		}
	}
}

// candidates picks the polls worth a chain round trip this tick: polls
// with live rooms when a tracker is wired, otherwise all open on-chain
// polls.
func (r *SnapshotRefresher) candidates(ctx context.Context) ([]domain.Poll, error) {
	if r.rooms != nil {
		ids := r.rooms.ActivePolls()
		polls := make([]domain.Poll, 0, len(ids))
		for _, id := range ids {
			poll, err := r.polls.GetByID(ctx, id)
			if err != nil {
				r.logger.WarnContext(ctx, "active poll lookup failed",
					slog.String("poll_id", id),
					slog.String("error", err.Error()))
				continue
			}
			if poll.OnChain() && !poll.IsResolved {
				polls = append(polls, poll)
			}
		}
		return polls, nil
	}

	resolved := false
	return r.polls.List(ctx, domain.PollFilter{Resolved: &resolved}, domain.ListOpts{})
}
