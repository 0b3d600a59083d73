package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// LoginLimiter throttles repeated failed logins per email.
type LoginLimiter interface {
	Allow(ctx context.Context, email string) (bool, error)
	RecordFailure(ctx context.Context, email string) error
	Reset(ctx context.Context, email string) error
}

// NoopLimiter never throttles.
type NoopLimiter struct{}

func (NoopLimiter) Allow(context.Context, string) (bool, error) { return true, nil }
func (NoopLimiter) RecordFailure(context.Context, string) error { return nil }
func (NoopLimiter) Reset(context.Context, string) error         { return nil }

const loginAttemptsPrefix = "login_attempts:"

// RedisLimiter counts failures in Redis with a fixed window per email.
type RedisLimiter struct {
	client      redis.Cmdable
	maxAttempts int64
	window      time.Duration
}

// NewRedisLimiter builds a limiter allowing maxAttempts failures per window.
func NewRedisLimiter(client redis.Cmdable, maxAttempts int, window time.Duration) *RedisLimiter {
	if window <= 0 {
		window = 15 * time.Minute
	}
	return &RedisLimiter{client: client, maxAttempts: int64(maxAttempts), window: window}
}

// Allow reports whether another attempt may be made for email.
func (l *RedisLimiter) Allow(ctx context.Context, email string) (bool, error) {
	count, err := l.client.Get(ctx, attemptsKey(email)).Int64()
	if errors.Is(err, redis.Nil) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("read login attempts: %w", err)
	}
	return count < l.maxAttempts, nil
}

// RecordFailure counts one failed attempt. The window starts at the first failure.
func (l *RedisLimiter) RecordFailure(ctx context.Context, email string) error {
	key := attemptsKey(email)
	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("count login attempt: %w", err)
	}
	if count == 1 {
		if err := l.client.Expire(ctx, key, l.window).Err(); err != nil {
			return fmt.Errorf("set login attempt window: %w", err)
		}
	}
	return nil
}

// Reset clears the failure count for email.
func (l *RedisLimiter) Reset(ctx context.Context, email string) error {
	if err := l.client.Del(ctx, attemptsKey(email)).Err(); err != nil {
		return fmt.Errorf("reset login attempts: %w", err)
	}
	return nil
}

func attemptsKey(email string) string {
	return loginAttemptsPrefix + strings.ToLower(strings.TrimSpace(email))
}
