package db

import (
	"context"
	"errors"

	"tool_custody/models"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("conflict")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrNoChangeFeed     = errors.New("store has no change feed")
)

// Store holds the Items, Trainers and Transactions collections.
//
// Update runs fn as one all-or-nothing batch: reads made through the Tx see
// the latest committed state (row-locked where the backend supports it) and
// every write is discarded if fn returns an error. Subscribers receive the
// full current snapshot immediately and again after every committed batch.
type Store interface {
	Snapshot(ctx context.Context) (models.Snapshot, error)
	Update(ctx context.Context, fn func(tx Tx) error) error
	Subscribe(ctx context.Context) (<-chan models.Snapshot, error)
	Ping(ctx context.Context) error
}

// Tx is the read/write view handed to a batch. Lookups of missing ids
// return ErrNotFound.
type Tx interface {
	Item(id string) (models.Item, error)
	CreateItem(it *models.Item) error
	SetItemStatus(id string, status models.ItemStatus) error

	Trainer(id string) (models.Trainer, error)
	CreateTrainer(t *models.Trainer) error
	SetTrainerPassword(id, hash string) error
	DeleteTrainer(id string) error

	Transaction(id string) (models.Transaction, error)
	ActiveByTrainer(trainerID string) ([]models.Transaction, error)
	ActiveByItem(itemID string) (*models.Transaction, error)
	CreateTransaction(t *models.Transaction) error
	// SaveTransactionState writes IsActive, ReturnRequested and ReturnTime only.
	SaveTransactionState(t models.Transaction) error
}

// offer replaces any undelivered snapshot so slow readers only see the latest.
func offer(ch chan models.Snapshot, s models.Snapshot) {
	select {
	case ch <- s:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- s:
	default:
	}
}
