package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Tolujoh-n/bitcoinworld/internal/domain"
	"github.com/redis/go-redis/v9"
)

// SessionStore implements domain.SessionStore with opaque bearer tokens.
//
// Key schema:
//
//	session:{token} - string user ID, TTL-bound
type SessionStore struct {
	rdb *redis.Client
}

// NewSessionStore creates a SessionStore backed by the given Client.
func NewSessionStore(c *Client) *SessionStore {
	return &SessionStore{rdb: c.Underlying()}
}

func sessionKey(token string) string {
	return "session:" + token
}

// Create binds a token to a user ID for the given TTL.
func (ss *SessionStore) Create(ctx context.Context, token, userID string, ttl time.Duration) error {
	if err := ss.rdb.Set(ctx, sessionKey(token), userID, ttl).Err(); err != nil {
		return fmt.Errorf("redis: create session: %w", err)
	}
	return nil
}

// Get resolves a token to its user ID. It returns domain.ErrUnauthorized
// for unknown or expired tokens so handlers can map it straight to 401.
func (ss *SessionStore) Get(ctx context.Context, token string) (string, error) {
	userID, err := ss.rdb.Get(ctx, sessionKey(token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", domain.ErrUnauthorized
		}
		return "", fmt.Errorf("redis: get session: %w", err)
	}
	return userID, nil
}

// Delete revokes a token. Deleting an unknown token is not an error.
func (ss *SessionStore) Delete(ctx context.Context, token string) error {
	if err := ss.rdb.Del(ctx, sessionKey(token)).Err(); err != nil {
		return fmt.Errorf("redis: delete session: %w", err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.SessionStore = (*SessionStore)(nil)
