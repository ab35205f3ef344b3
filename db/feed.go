package db

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const ChangesChannel = "custody:changes"

// ChangeFeed announces committed batches over Redis Pub/Sub. Messages carry
// only a timestamp; listeners re-read the store.
type ChangeFeed struct {
	rdb     *redis.Client
	channel string
}

func NewChangeFeed(rdb *redis.Client) *ChangeFeed {
	return &ChangeFeed{rdb: rdb, channel: ChangesChannel}
}

func (f *ChangeFeed) Publish(ctx context.Context) error {
	return f.rdb.Publish(ctx, f.channel, time.Now().UTC().Format(time.RFC3339Nano)).Err()
}

// Listen returns a channel that ticks (coalesced) after every announcement
// and closes when ctx ends.
func (f *ChangeFeed) Listen(ctx context.Context) (<-chan struct{}, error) {
	ps := f.rdb.Subscribe(ctx, f.channel)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, err
	}

	out := make(chan struct{}, 1)
	go func() {
		defer close(out)
		defer ps.Close()
		msgs := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-msgs:
				if !ok {
					return
				}
				select {
				case out <- struct{}{}:
				default:
				}
			}
		}
	}()
	return out, nil
}
