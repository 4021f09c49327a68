package models

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// AttemptLimiter counts verification attempts per key within a fixed
// window.
type AttemptLimiter interface {
	// RegisterAttempt increments the counter for key and returns the new
	// count. The window starts at the first attempt.
	RegisterAttempt(ctx context.Context, key string, window time.Duration) (int64, error)
	ResetAttempts(ctx context.Context, key string) error
}

func attemptKey(key string) string {
	return "otp_attempts:" + key
}

func (r *RedisRepo) RegisterAttempt(ctx context.Context, key string, window time.Duration) (int64, error) {
	var incr *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, attemptKey(key))
		pipe.ExpireNX(ctx, attemptKey(key), window)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("error registering attempt: %w", err)
	}
	return incr.Val(), nil
}

func (r *RedisRepo) ResetAttempts(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, attemptKey(key)).Err(); err != nil {
		return fmt.Errorf("error resetting attempts: %w", err)
	}
	return nil
}
