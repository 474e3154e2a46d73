package domain

import (
	"context"
	"time"
)

// SignalBus fans events out between service instances. The WebSocket hub
// subscribes per poll channel; services publish after ledger writes.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error

	// Subscribe delivers messages for the channel until ctx is done or
	// the returned stop function is called.
	Subscribe(ctx context.Context, channel string, handler func(payload []byte)) (stop func(), err error)
}

// SnapshotCache holds the most recent chain snapshot per market so read
// traffic does not hammer the node API.
type SnapshotCache interface {
	Get(ctx context.Context, marketID int64) (MarketSnapshot, error)
	Set(ctx context.Context, snap MarketSnapshot, ttl time.Duration) error
	Invalidate(ctx context.Context, marketID int64) error
}

// SessionStore maps opaque bearer tokens to user IDs.
type SessionStore interface {
	Create(ctx context.Context, token, userID string, ttl time.Duration) error
	Get(ctx context.Context, token string) (string, error)
	Delete(ctx context.Context, token string) error
}

// RateLimiter bounds per-key action frequency.
type RateLimiter interface {
	// Allow reports whether the key may perform another action within
	// the window.
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// LockManager provides best-effort distributed mutual exclusion, used to
// serialize poll resolution across instances.
type LockManager interface {
	// Acquire returns a release function, or ErrLockHeld.
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), err error)
}
