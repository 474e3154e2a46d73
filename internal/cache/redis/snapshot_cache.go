package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/Tolujoh-n/bitcoinworld/internal/domain"
	"github.com/redis/go-redis/v9"
)

// SnapshotCache implements domain.SnapshotCache with JSON-serialized
// market snapshots.
//
// Key schema:
//
//	snapshot:{marketID} - JSON MarketSnapshot without per-user fields
type SnapshotCache struct {
	rdb *redis.Client
}

// NewSnapshotCache creates a SnapshotCache backed by the given Client.
func NewSnapshotCache(c *Client) *SnapshotCache {
	return &SnapshotCache{rdb: c.Underlying()}
}

func snapshotKey(marketID int64) string {
	return "snapshot:" + strconv.FormatInt(marketID, 10)
}

// Set stores a snapshot with the given TTL. Per-user fields are stripped
// first; the cache holds only the shared market view.
func (sc *SnapshotCache) Set(ctx context.Context, snap domain.MarketSnapshot, ttl time.Duration) error {
	snap.Principal = ""
	snap.YesBalance = nil
	snap.NoBalance = nil
	snap.RewardClaimed = false

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("redis: marshal snapshot %d: %w", snap.MarketID, err)
	}
	if err := sc.rdb.Set(ctx, snapshotKey(snap.MarketID), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis: set snapshot %d: %w", snap.MarketID, err)
	}
	return nil
}

// Get retrieves a snapshot by market ID. It returns domain.ErrNotFound
// when the key does not exist or has expired.
func (sc *SnapshotCache) Get(ctx context.Context, marketID int64) (domain.MarketSnapshot, error) {
	data, err := sc.rdb.Get(ctx, snapshotKey(marketID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.MarketSnapshot{}, domain.ErrNotFound
		}
		return domain.MarketSnapshot{}, fmt.Errorf("redis: get snapshot %d: %w", marketID, err)
	}

	var snap domain.MarketSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return domain.MarketSnapshot{}, fmt.Errorf("redis: unmarshal snapshot %d: %w", marketID, err)
	}
	return snap, nil
}

// Invalidate removes a cached snapshot, forcing the next read through to
// the chain.
func (sc *SnapshotCache) Invalidate(ctx context.Context, marketID int64) error {
	if err := sc.rdb.Del(ctx, snapshotKey(marketID)).Err(); err != nil {
		return fmt.Errorf("redis: invalidate snapshot %d: %w", marketID, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.SnapshotCache = (*SnapshotCache)(nil)
