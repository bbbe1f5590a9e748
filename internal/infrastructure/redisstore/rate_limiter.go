package redisstore

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RateLimiter ventana fija por clave (INCR + EXPIRE en la primera petición de la ventana).
type RateLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
	prefix string
}

// NewRateLimiter permite limit peticiones por window y clave.
func NewRateLimiter(client *redis.Client, limit int, window time.Duration) *RateLimiter {
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{client: client, limit: limit, window: window, prefix: "ratelimit"}
}

// Allow consume una petición de la ventana actual de key.
func (l *RateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if l.limit <= 0 {
		return true, nil
	}
	k := fmt.Sprintf("%s:%s:%d", l.prefix, key, time.Now().UnixNano()/int64(l.window))
	n, err := l.client.Incr(ctx, k).Result()
	if err != nil {
		return false, fmt.Errorf("redis incr: %w", err)
	}
	if n == 1 {
		if err := l.client.Expire(ctx, k, l.window).Err(); err != nil {
			return false, fmt.Errorf("redis expire: %w", err)
		}
	}
	return n <= int64(l.limit), nil
}
