package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	defaultMaxAttempts = 5
	defaultWindow      = time.Minute
)

// LoginLimiter counts failed logins per username in a Redis sorted set
// scored by attempt time, giving a sliding window.
// Key format: login:fail:<username>
type LoginLimiter struct {
	client      *redis.Client
	maxAttempts int
	window      time.Duration
	now         func() time.Time
}

// NewLoginLimiter creates a limiter allowing maxAttempts failures per window.
func NewLoginLimiter(client *redis.Client, maxAttempts int, window time.Duration) *LoginLimiter {
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	if window <= 0 {
		window = defaultWindow
	}
	return &LoginLimiter{client: client, maxAttempts: maxAttempts, window: window, now: time.Now}
}

// Allow reports whether another login attempt may be made for username.
func (l *LoginLimiter) Allow(ctx context.Context, username string) (bool, error) {
	key := l.key(username)
	now := l.now()
	threshold := fmt.Sprintf("%d", now.Add(-l.window).UnixNano())

	if err := l.client.ZRemRangeByScore(ctx, key, "-inf", threshold).Err(); err != nil {
		return false, fmt.Errorf("redis zremrangebyscore: %w", err)
	}
	count, err := l.client.ZCount(ctx, key, threshold, "+inf").Result()
	if err != nil {
		return false, fmt.Errorf("redis zcount: %w", err)
	}
	return int(count) < l.maxAttempts, nil
}

// RecordFailure stores one failed attempt for username.
func (l *LoginLimiter) RecordFailure(ctx context.Context, username string) error {
	key := l.key(username)
	at := l.now()
	member := redis.Z{Score: float64(at.UnixNano()), Member: fmt.Sprintf("%d:%s", at.UnixNano(), uuid.NewString())}

	pipe := l.client.TxPipeline()
	pipe.ZAdd(ctx, key, member)
	pipe.Expire(ctx, key, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record login failure: %w", err)
	}
	return nil
}

// Reset clears the failures of username, typically after a successful login.
func (l *LoginLimiter) Reset(ctx context.Context, username string) error {
	if err := l.client.Del(ctx, l.key(username)).Err(); err != nil {
		return fmt.Errorf("reset login failures: %w", err)
	}
	return nil
}

func (l *LoginLimiter) key(username string) string {
	return "login:fail:" + strings.TrimSpace(username)
}
