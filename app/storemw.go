// app/storemw.go
package app

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"tool_custody/config"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

type pinger interface {
	Ping(ctx context.Context) error
}

// StoreGuard answers 503 while the store is unreachable. The store is pinged
// at most once per interval per instance.
func StoreGuard(store pinger, rdb *redis.Client, instanceID string, interval time.Duration, m *Metrics) gin.HandlerFunc {
	var down atomic.Bool
	key := "app:store_check:" + instanceID
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		// Redis 不可用时每次都直接探测
		if ok, err := rdb.SetNX(ctx, key, "1", interval).Result(); err != nil || ok {
			err := store.Ping(ctx)
			if err != nil && !down.Load() {
				config.Error("store unavailable: %v", err)
			}
			if err == nil && down.Load() {
				config.Info("store reachable again")
			}
			down.Store(err != nil)
			m.SetStoreUp(err == nil)
		}
		if down.Load() {
			AbortJSON(c, http.StatusServiceUnavailable, CodeStoreUnavailable, "store unavailable")
			return
		}
		c.Next()
	}
}
