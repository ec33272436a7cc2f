package sessions

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sfbridge/sfbridge/internal/config"
	"github.com/sfbridge/sfbridge/internal/errors"
)

const (
	maxConnectAttempts = 5
	baseRetryDelay     = 500 * time.Millisecond
	maxRetryDelay      = 8 * time.Second
)

// RetryDelay is the backoff policy for session store connection attempts:
// exponential from baseRetryDelay, capped at maxRetryDelay. Pure function of
// the attempt number (first attempt is 0).
func RetryDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	delay := baseRetryDelay << uint(attempt)
	if delay <= 0 || delay > maxRetryDelay {
		return maxRetryDelay
	}
	return delay
}

// Connect dials Redis with bounded retries and returns the durable repo.
// It never falls back silently: on exhausted retries it returns an error and
// the caller decides whether to downgrade to the in-memory store (and logs
// that downgrade loudly).
func Connect(ctx context.Context, cfg config.SessionConfig) (*RedisRepo, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.GetRedisAddr(),
		Password: cfg.GetRedisPassword(),
		DB:       cfg.GetRedisDB(),
	})

	var lastErr error
	for attempt := 0; attempt < maxConnectAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				_ = client.Close()
				return nil, errors.Wrapf(errors.ErrSessionPersistence, "connect cancelled: %v", ctx.Err())
			case <-time.After(RetryDelay(attempt - 1)):
			}
		}
		if lastErr = client.Ping(ctx).Err(); lastErr == nil {
			return NewRedisRepo(client, cfg.GetSessionTTL()), nil
		}
	}

	_ = client.Close()
	return nil, errors.Wrapf(errors.ErrSessionPersistence,
		"redis unreachable at %s after %d attempts: %v", cfg.GetRedisAddr(), maxConnectAttempts, lastErr)
}
