package db

import (
	"context"
	"database/sql"
	"fmt"

	"tool_custody/config"
	"tool_custody/models"

	"gorm.io/gorm"
)

var _ Store = (*Repo)(nil)

// Repo is the Postgres Store. Committed batches are announced on the
// change feed so every process can refresh its subscribers.
type Repo struct {
	DB   *gorm.DB
	feed *ChangeFeed
}

func NewRepo(db *gorm.DB, feed *ChangeFeed) *Repo { return &Repo{DB: db, feed: feed} }

func (r *Repo) Ping(ctx context.Context) error {
	sqlDB, err := r.DB.DB()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Snapshot reads all three tables inside one read-only transaction.
func (r *Repo) Snapshot(ctx context.Context) (models.Snapshot, error) {
	var s models.Snapshot
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Order("created_at, id").Find(&s.Items).Error; err != nil {
			return err
		}
		if err := tx.Order("created_at, id").Find(&s.Trainers).Error; err != nil {
			return err
		}
		return tx.Order("checkout_time, id").Find(&s.Transactions).Error
	}, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return models.Snapshot{}, translate(err)
	}
	return s, nil
}

func (r *Repo) Update(ctx context.Context, fn func(tx Tx) error) error {
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTx{db: tx})
	})
	if err != nil {
		return translate(err)
	}
	r.announce(ctx)
	return nil
}

// announce runs after commit, so it must not be cut short by the caller
// going away.
func (r *Repo) announce(ctx context.Context) {
	if r.feed == nil {
		return
	}
	if err := r.feed.Publish(context.WithoutCancel(ctx)); err != nil {
		config.Warning("publish change: %v", err)
	}
}

// Subscribe re-reads the snapshot whenever the change feed fires.
func (r *Repo) Subscribe(ctx context.Context) (<-chan models.Snapshot, error) {
	if r.feed == nil {
		return nil, ErrNoChangeFeed
	}
	ticks, err := r.feed.Listen(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	first, err := r.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	out := make(chan models.Snapshot, 1)
	out <- first
	go func() {
		defer close(out)
		for range ticks {
			snap, err := r.Snapshot(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				config.Warning("refresh snapshot: %v", err)
				continue
			}
			offer(out, snap)
		}
	}()
	return out, nil
}

type gormTx struct{ db *gorm.DB }
