// Package limiter throttles password guessing per username.
package limiter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/nizamla/internal/common"
	"github.com/redis/go-redis/v9"
)

// ErrLimiterUnavailable indicates the limiter backend is unreachable.
var ErrLimiterUnavailable = errors.New("login limiter backend unavailable")

// LoginLimiter counts failed logins.
type LoginLimiter interface {
	// Check returns common.ErrTooManyAttempts while username is locked out.
	Check(ctx context.Context, username string) error
	RecordFailure(ctx context.Context, username string) error
	Reset(ctx context.Context, username string) error
}

// Config for RedisLoginLimiter. MaxAttempts of zero disables the limiter.
type Config struct {
	MaxAttempts int
	Lockout     time.Duration
}

// RedisLoginLimiter keeps one counter per username. The counter expires
// Lockout after the first failure in a window.
type RedisLoginLimiter struct {
	redis  redis.UniversalClient
	config Config
}

func NewRedisLoginLimiter(redisClient redis.UniversalClient, cfg Config) *RedisLoginLimiter {
	return &RedisLoginLimiter{redis: redisClient, config: cfg}
}

func (l *RedisLoginLimiter) key(username string) string {
	return "login:fail:" + strings.ToLower(username)
}

func (l *RedisLoginLimiter) Check(ctx context.Context, username string) error {
	if l.config.MaxAttempts <= 0 || username == "" {
		return nil
	}

	count, err := l.redis.Get(ctx, l.key(username)).Int64()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLimiterUnavailable, err)
	}

	if count >= int64(l.config.MaxAttempts) {
		return common.ErrTooManyAttempts
	}
	return nil
}

func (l *RedisLoginLimiter) RecordFailure(ctx context.Context, username string) error {
	if l.config.MaxAttempts <= 0 || username == "" {
		return nil
	}

	count, err := l.redis.Incr(ctx, l.key(username)).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLimiterUnavailable, err)
	}

	if count == 1 {
		if err := l.redis.Expire(ctx, l.key(username), l.config.Lockout).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrLimiterUnavailable, err)
		}
	}
	return nil
}

func (l *RedisLoginLimiter) Reset(ctx context.Context, username string) error {
	if l.config.MaxAttempts <= 0 || username == "" {
		return nil
	}

	if err := l.redis.Del(ctx, l.key(username)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrLimiterUnavailable, err)
	}
	return nil
}

// Nop never limits. It is used when no Redis address is configured.
type Nop struct{}

func (Nop) Check(context.Context, string) error         { return nil }
func (Nop) RecordFailure(context.Context, string) error { return nil }
func (Nop) Reset(context.Context, string) error         { return nil }
