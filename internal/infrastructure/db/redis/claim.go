package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultClaimTTL = 2 * time.Minute

// ClaimStore grants exclusive processing rights over a message using SET NX.
// Key format: relay:claim:<message_id>
// A claim expires after its TTL so a crashed worker never blocks a message forever.
type ClaimStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewClaimStore creates a ClaimStore wrapping the given Redis client.
func NewClaimStore(client *redis.Client, ttl time.Duration) *ClaimStore {
	if ttl <= 0 {
		ttl = defaultClaimTTL
	}
	return &ClaimStore{client: client, ttl: ttl}
}

// Claim reports whether the caller now owns the message.
func (c *ClaimStore) Claim(ctx context.Context, messageID int64) (bool, error) {
	ok, err := c.client.SetNX(ctx, c.key(messageID), "1", c.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim: %w", err)
	}
	return ok, nil
}

// Release drops the claim so a later sweep may retry the message.
func (c *ClaimStore) Release(ctx context.Context, messageID int64) error {
	if err := c.client.Del(ctx, c.key(messageID)).Err(); err != nil {
		return fmt.Errorf("release claim: %w", err)
	}
	return nil
}

func (c *ClaimStore) key(messageID int64) string {
	return fmt.Sprintf("relay:claim:%d", messageID)
}
