// Package service holds the application services behind the HTTP and
// WebSocket surfaces. Services own authorization and cross-store
// orchestration; single-trade execution lives in the workflow package.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Tolujoh-n/bitcoinworld/internal/domain"
	"github.com/Tolujoh-n/bitcoinworld/internal/pricing"
	"github.com/Tolujoh-n/bitcoinworld/internal/workflow"
)

// resolveLockTTL bounds how long a resolution lock may be held before it
// expires on its own.
const resolveLockTTL = 30 * time.Second

// PollService manages poll lifecycle: creation, listing, detail assembly
// and the one-time resolution transition.
type PollService struct {
	polls    domain.PollStore
	trades   domain.TradeStore
	reader   domain.MarketReader
	cache    domain.SnapshotCache
	bus      domain.SignalBus
	locks    domain.LockManager
	audit    domain.AuditStore
	notif    workflow.Notifier
	pricer   *pricing.Reconciler
	cacheTTL time.Duration
	logger   *slog.Logger
}

// NewPollService creates a PollService with all required dependencies.
func NewPollService(
	polls domain.PollStore,
	trades domain.TradeStore,
	reader domain.MarketReader,
	cache domain.SnapshotCache,
	bus domain.SignalBus,
	locks domain.LockManager,
	audit domain.AuditStore,
	notif workflow.Notifier,
	pricer *pricing.Reconciler,
	cacheTTL time.Duration,
	logger *slog.Logger,
) *PollService {
	return &PollService{
		polls:    polls,
		trades:   trades,
		reader:   reader,
		cache:    cache,
		bus:      bus,
		locks:    locks,
		audit:    audit,
		notif:    notif,
		pricer:   pricer,
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

// Create validates and persists a new poll.
func (s *PollService) Create(ctx context.Context, user domain.User, poll domain.Poll) (domain.Poll, error) {
	if !user.IsAdmin {
		return domain.Poll{}, domain.ErrForbidden
	}
	if err := poll.Validate(); err != nil {
		return domain.Poll{}, err
	}

	now := time.Now().UTC()
	poll.ID = uuid.NewString()
	poll.IsResolved = false
	poll.WinningOption = nil
	poll.TotalVolume = 0
	poll.CreatedBy = user.ID
	poll.CreatedAt = now
	poll.UpdatedAt = now

	// New polls start at even odds until the ledger says otherwise.
	even := 100.0 / float64(len(poll.Options))
	for i := range poll.Options {
		poll.Options[i].Percentage = even
	}

	if err := s.polls.Create(ctx, poll); err != nil {
		return domain.Poll{}, fmt.Errorf("poll_service: create: %w", err)
	}
	s.logger.InfoContext(ctx, "poll_service: poll created",
		slog.String("poll_id", poll.ID),
		slog.String("title", poll.Title),
	)
	return poll, nil
}

// Update rewrites poll metadata. Only admins may edit.
func (s *PollService) Update(ctx context.Context, user domain.User, poll domain.Poll) (domain.Poll, error) {
	if !user.IsAdmin {
		return domain.Poll{}, domain.ErrForbidden
	}
	if err := poll.Validate(); err != nil {
		return domain.Poll{}, err
	}
	if err := s.polls.Update(ctx, poll); err != nil {
		return domain.Poll{}, fmt.Errorf("poll_service: update %s: %w", poll.ID, err)
	}

	updated, err := s.polls.GetByID(ctx, poll.ID)
	if err != nil {
		return domain.Poll{}, fmt.Errorf("poll_service: reload %s: %w", poll.ID, err)
	}
	s.publishPollUpdated(ctx, updated)
	return updated, nil
}

// Get returns one poll.
func (s *PollService) Get(ctx context.Context, id string) (domain.Poll, error) {
	poll, err := s.polls.GetByID(ctx, id)
	if err != nil {
		return domain.Poll{}, fmt.Errorf("poll_service: get %s: %w", id, err)
	}
	return poll, nil
}

// List returns polls matching the filter.
func (s *PollService) List(ctx context.Context, filter domain.PollFilter, opts domain.ListOpts) ([]domain.Poll, error) {
	polls, err := s.polls.List(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("poll_service: list: %w", err)
	}
	return polls, nil
}

// Count returns the number of polls matching the filter.
func (s *PollService) Count(ctx context.Context, filter domain.PollFilter) (int64, error) {
	n, err := s.polls.Count(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("poll_service: count: %w", err)
	}
	return n, nil
}

// Snapshot returns the chain snapshot for a market, cache-first. Per-user
// reads bypass the cache because cached snapshots carry no user fields.
func (s *PollService) Snapshot(ctx context.Context, marketID int64, principal string) (domain.MarketSnapshot, error) {
	if principal == "" {
		if snap, err := s.cache.Get(ctx, marketID); err == nil {
			return snap, nil
		}
	}

	snap, err := s.reader.Snapshot(ctx, marketID, principal)
	if err != nil {
		return domain.MarketSnapshot{}, fmt.Errorf("poll_service: snapshot market %d: %w", marketID, err)
	}
	if !snap.Degraded {
		if cacheErr := s.cache.Set(ctx, snap, s.cacheTTL); cacheErr != nil {
			s.logger.WarnContext(ctx, "poll_service: snapshot cache set failed",
				slog.Int64("market_id", marketID),
				slog.String("error", cacheErr.Error()),
			)
		}
	}
	return snap, nil
}

// Resolve marks the winner exactly once and broadcasts the result. The
// winning option index is authoritative; the contract outcome string is
// never used to pick the winner.
func (s *PollService) Resolve(ctx context.Context, user domain.User, pollID string, winningOption int) (domain.Poll, error) {
	if !user.IsAdmin {
		return domain.Poll{}, domain.ErrForbidden
	}

	release, err := s.locks.Acquire(ctx, "resolve:"+pollID, resolveLockTTL)
	if err != nil {
		return domain.Poll{}, fmt.Errorf("poll_service: resolve %s: %w", pollID, err)
	}
	defer release()

	poll, err := s.polls.GetByID(ctx, pollID)
	if err != nil {
		return domain.Poll{}, fmt.Errorf("poll_service: resolve %s: %w", pollID, err)
	}
	if winningOption < 0 || winningOption >= len(poll.Options) {
		return domain.Poll{}, domain.Validationf("winningOption", "poll has %d options, got %d", len(poll.Options), winningOption)
	}

	if err := s.polls.Resolve(ctx, pollID, winningOption); err != nil {
		return domain.Poll{}, fmt.Errorf("poll_service: resolve %s: %w", pollID, err)
	}

	poll, err = s.polls.GetByID(ctx, pollID)
	if err != nil {
		return domain.Poll{}, fmt.Errorf("poll_service: reload %s: %w", pollID, err)
	}

	s.logger.InfoContext(ctx, "poll_service: poll resolved",
		slog.String("poll_id", pollID),
		slog.Int("winning_option", winningOption),
	)

	if entryErr := s.audit.Record(ctx, domain.AuditEntry{
		Kind:   workflow.EventPollResolvedAlert,
		Actor:  user.ID,
		PollID: pollID,
		Detail: map[string]any{"winning_option": winningOption},
	}); entryErr != nil {
		s.logger.WarnContext(ctx, "poll_service: audit record failed",
			slog.String("error", entryErr.Error()))
	}

	payload := domain.PollResolvedPayload{
		WinningOption: winningOption,
		WinningText:   poll.Options[winningOption].Text,
	}
	s.publish(ctx, domain.EventPollResolved, poll.ID, payload)

	if s.notif != nil {
		msg := fmt.Sprintf("%q resolved: %s", poll.Title, payload.WinningText)
		if err := s.notif.Notify(ctx, workflow.EventPollResolvedAlert, "Poll resolved", msg); err != nil {
			s.logger.WarnContext(ctx, "poll_service: notify failed",
				slog.String("error", err.Error()))
		}
	}
	return poll, nil
}

// RefreshPrices recomputes and stores display percentages for one
// on-chain poll from a fresh snapshot, then broadcasts the update.
func (s *PollService) RefreshPrices(ctx context.Context, poll domain.Poll) error {
	if !poll.OnChain() || poll.IsResolved {
		return nil
	}

	snap, err := s.reader.Snapshot(ctx, *poll.MarketID, "")
	if err != nil {
		return fmt.Errorf("poll_service: refresh %s: %w", poll.ID, err)
	}
	if cacheErr := s.cache.Set(ctx, snap, s.cacheTTL); cacheErr != nil {
		s.logger.WarnContext(ctx, "poll_service: snapshot cache set failed",
			slog.Int64("market_id", *poll.MarketID),
			slog.String("error", cacheErr.Error()),
		)
	}
	if snap.Degraded {
		// Keep the last stored percentages rather than publishing
		// half-read prices.
		return nil
	}

	percentages := s.pricer.OptionPercentages(snap, poll)
	if err := s.polls.SetOptionPercentages(ctx, poll.ID, percentages); err != nil {
		return fmt.Errorf("poll_service: store %s percentages: %w", poll.ID, err)
	}

	updated, err := s.polls.GetByID(ctx, poll.ID)
	if err != nil {
		return fmt.Errorf("poll_service: reload %s: %w", poll.ID, err)
	}
	s.publishPollUpdated(ctx, updated)
	return nil
}

func (s *PollService) publishPollUpdated(ctx context.Context, poll domain.Poll) {
	s.publish(ctx, domain.EventPollUpdated, poll.ID, domain.PollUpdatedPayload{Poll: poll})
}

func (s *PollService) publish(ctx context.Context, eventType, pollID string, payload any) {
	ev, err := domain.NewEvent(eventType, pollID, payload)
	if err != nil {
		s.logger.WarnContext(ctx, "poll_service: event marshal failed",
			slog.String("error", err.Error()))
		return
	}
	raw, err := json.Marshal(ev)
	if err != nil {
		s.logger.WarnContext(ctx, "poll_service: event marshal failed",
			slog.String("error", err.Error()))
		return
	}
	if err := s.bus.Publish(ctx, domain.PollChannel(pollID), raw); err != nil {
		s.logger.WarnContext(ctx, "poll_service: event publish failed",
			slog.String("poll_id", pollID),
			slog.String("event", eventType),
			slog.String("error", err.Error()),
		)
	}
}
