package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// LoginThrottle counts failed logins per client within a fixed window.
type LoginThrottle struct {
	rdb    *redis.Client
	max    int
	window time.Duration
}

func NewLoginThrottle(rdb *redis.Client, max int, window time.Duration) *LoginThrottle {
	return &LoginThrottle{rdb: rdb, max: max, window: window}
}

func throttleKey(client string) string { return fmt.Sprintf("app:login_fail:%s", client) }

// Allow reports whether client may try again. A max of zero disables it.
func (t *LoginThrottle) Allow(ctx context.Context, client string) (bool, error) {
	if t.max <= 0 {
		return true, nil
	}
	n, err := t.rdb.Get(ctx, throttleKey(client)).Int()
	if errors.Is(err, redis.Nil) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return n < t.max, nil
}

// Fail records a failed attempt; the window starts at the first failure.
func (t *LoginThrottle) Fail(ctx context.Context, client string) error {
	n, err := t.rdb.Incr(ctx, throttleKey(client)).Result()
	if err != nil {
		return err
	}
	if n == 1 {
		return t.rdb.Expire(ctx, throttleKey(client), t.window).Err()
	}
	return nil
}

func (t *LoginThrottle) Reset(ctx context.Context, client string) error {
	return t.rdb.Del(ctx, throttleKey(client)).Err()
}
