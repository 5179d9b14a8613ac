package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// RevocationPrefix is the prefix for session revocation keys
	RevocationPrefix = "session:revoked:"
)

// SessionRevocationCache mirrors session invalidations into Redis so that
// other instances can reject a revoked token before hitting the database.
// Entries expire together with the session they shadow.
type SessionRevocationCache struct {
	client *redis.Client
}

// NewSessionRevocationCache creates a cache backed by the provided client
func NewSessionRevocationCache(client *redis.Client) *SessionRevocationCache {
	return &SessionRevocationCache{client: client}
}

// RevokeSession records a session id as revoked for the given TTL
func (c *SessionRevocationCache) RevokeSession(ctx context.Context, sessionID string, ttl time.Duration) error {
	key := RevocationPrefix + sessionID
	if err := c.client.Set(ctx, key, "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to store session revocation: %w", err)
	}
	return nil
}

// IsSessionRevoked reports whether a session id has been revoked
func (c *SessionRevocationCache) IsSessionRevoked(ctx context.Context, sessionID string) (bool, error) {
	key := RevocationPrefix + sessionID
	n, err := c.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check session revocation: %w", err)
	}
	return n > 0, nil
}
