// Package custody implements the tool check-out / check-in lifecycle on top
// of a db.Store. Every compound operation runs as one store batch.
package custody

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tool_custody/config"
	"tool_custody/db"
	"tool_custody/models"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type Engine struct {
	store           db.Store
	now             func() time.Time
	newID           func() string
	bcryptCost      int
	defaultPassword string
	defaultCategory string
	observe         func(op string, err error)
}

type Option func(*Engine)

func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }
func WithIDGenerator(gen func() string) Option { return func(e *Engine) { e.newID = gen } }
func WithBcryptCost(cost int) Option { return func(e *Engine) { e.bcryptCost = cost } }
func WithDefaultPassword(pw string) Option { return func(e *Engine) { e.defaultPassword = pw } }
func WithDefaultCategory(category string) Option { return func(e *Engine) { e.defaultCategory = category } }
func WithObserver(fn func(op string, err error)) Option { return func(e *Engine) { e.observe = fn } }

func New(store db.Store, opts ...Option) *Engine {
	e := &Engine{
		store:           store,
		now:             func() time.Time { return time.Now().UTC() },
		newID:           uuid.NewString,
		bcryptCost:      bcrypt.DefaultCost,
		defaultPassword: "1234",
		defaultCategory: "عام",
		observe:         func(string, error) {},
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

func (e *Engine) Snapshot(ctx context.Context) (models.Snapshot, error) {
	return e.store.Snapshot(ctx)
}

func (e *Engine) Subscribe(ctx context.Context) (<-chan models.Snapshot, error) {
	return e.store.Subscribe(ctx)
}

func (e *Engine) Ping(ctx context.Context) error { return e.store.Ping(ctx) }

func (e *Engine) update(ctx context.Context, op string, fn func(tx db.Tx) error) error {
	err := e.store.Update(ctx, fn)
	e.observe(op, err)
	return err
}

// Checkout lends an AVAILABLE item to a trainer.
func (e *Engine) Checkout(ctx context.Context, itemID, trainerID string) (models.Transaction, error) {
	var out models.Transaction
	err := e.update(ctx, "checkout", func(tx db.Tx) error {
		it, err := tx.Item(itemID)
		if err != nil {
			return err
		}
		tr, err := tx.Trainer(trainerID)
		if err != nil {
			return err
		}
		if it.Status != models.ItemAvailable {
			return fmt.Errorf("%w: item %s is %s", ErrItemUnavailable, it.ID, it.Status)
		}
		open, err := tx.ActiveByItem(it.ID)
		if err != nil {
			return err
		}
		if open != nil {
			return fmt.Errorf("%w: item %s is held by transaction %s", ErrItemUnavailable, it.ID, open.ID)
		}

		out = models.Transaction{
			ID:           e.newID(),
			ItemID:       it.ID,
			ItemName:     it.Name,
			TrainerID:    tr.ID,
			TrainerName:  tr.Name,
			CheckoutTime: e.now(),
			IsActive:     true,
		}
		if err := tx.CreateTransaction(&out); err != nil {
			return err
		}
		return tx.SetItemStatus(it.ID, models.ItemCheckedOut)
	})
	if errors.Is(err, db.ErrConflict) {
		return models.Transaction{}, fmt.Errorf("%w: item %s was checked out concurrently", ErrItemUnavailable, itemID)
	}
	if err != nil {
		return models.Transaction{}, err
	}
	return out, nil
}

// RequestReturn flags an open loan as awaiting approval. A non-empty
// trainerID restricts the call to that trainer's own loans.
func (e *Engine) RequestReturn(ctx context.Context, transactionID, trainerID string) (models.Transaction, error) {
	var out models.Transaction
	err := e.update(ctx, "request_return", func(tx db.Tx) error {
		t, err := tx.Transaction(transactionID)
		if err != nil {
			return err
		}
		if trainerID != "" && t.TrainerID != trainerID {
			return fmt.Errorf("transaction %s: %w", transactionID, ErrNotFound)
		}
		if !t.IsActive {
			return fmt.Errorf("%w: transaction %s", ErrTransactionClosed, t.ID)
		}
		out = t
		if t.ReturnRequested {
			return nil
		}
		out.ReturnRequested = true
		return tx.SaveTransactionState(out)
	})
	if err != nil {
		return models.Transaction{}, err
	}
	return out, nil
}

// ApproveReturn closes an open loan, requested or not, and frees the item.
func (e *Engine) ApproveReturn(ctx context.Context, transactionID string) (models.Transaction, error) {
	var out models.Transaction
	err := e.update(ctx, "approve_return", func(tx db.Tx) error {
		t, err := tx.Transaction(transactionID)
		if err != nil {
			return err
		}
		if !t.IsActive {
			return fmt.Errorf("%w: transaction %s", ErrTransactionClosed, t.ID)
		}
		if err := e.closeLoan(tx, &t); err != nil {
			return err
		}
		out = t
		return nil
	})
	if err != nil {
		return models.Transaction{}, err
	}
	return out, nil
}

// closeLoan tolerates an item that no longer exists.
func (e *Engine) closeLoan(tx db.Tx, t *models.Transaction) error {
	now := e.now()
	t.IsActive = false
	t.ReturnRequested = false
	t.ReturnTime = &now
	if err := tx.SaveTransactionState(*t); err != nil {
		return err
	}
	if err := tx.SetItemStatus(t.ItemID, models.ItemAvailable); err != nil {
		if !errors.Is(err, ErrNotFound) {
			return err
		}
		config.Warning("closing transaction %s: item %s no longer exists", t.ID, t.ItemID)
	}
	return nil
}

// DeleteTrainer closes every active loan of the trainer, frees the items
// and removes the trainer. It returns the loans it closed.
func (e *Engine) DeleteTrainer(ctx context.Context, trainerID string) ([]models.Transaction, error) {
	var closed []models.Transaction
	err := e.update(ctx, "delete_trainer", func(tx db.Tx) error {
		closed = nil
		if _, err := tx.Trainer(trainerID); err != nil {
			return err
		}
		loans, err := tx.ActiveByTrainer(trainerID)
		if err != nil {
			return err
		}
		for i := range loans {
			if err := e.closeLoan(tx, &loans[i]); err != nil {
				return err
			}
			closed = append(closed, loans[i])
		}
		return tx.DeleteTrainer(trainerID)
	})
	if err != nil {
		return nil, err
	}
	config.Info("trainer %s deleted, %d loan(s) closed", trainerID, len(closed))
	return closed, nil
}

func (e *Engine) AddItem(ctx context.Context, name, category string) (models.Item, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Item{}, fmt.Errorf("%w: item name is required", ErrValidation)
	}
	category = strings.TrimSpace(category)
	if category == "" {
		category = e.defaultCategory
	}

	it := models.Item{ID: e.newID(), Name: name, Category: category, Status: models.ItemAvailable}
	err := e.update(ctx, "add_item", func(tx db.Tx) error {
		return tx.CreateItem(&it)
	})
	if err != nil {
		return models.Item{}, err
	}
	return it, nil
}

// SetMaintenance moves an item between AVAILABLE and MAINTENANCE.
func (e *Engine) SetMaintenance(ctx context.Context, itemID string, on bool) (models.Item, error) {
	from, to := models.ItemAvailable, models.ItemMaintenance
	if !on {
		from, to = to, from
	}

	var out models.Item
	err := e.update(ctx, "set_maintenance", func(tx db.Tx) error {
		it, err := tx.Item(itemID)
		if err != nil {
			return err
		}
		if it.Status == to {
			out = it
			return nil
		}
		if it.Status != from {
			return fmt.Errorf("%w: item %s is %s", ErrItemUnavailable, it.ID, it.Status)
		}
		if err := tx.SetItemStatus(it.ID, to); err != nil {
			return err
		}
		it.Status = to
		out = it
		return nil
	})
	if err != nil {
		return models.Item{}, err
	}
	return out, nil
}

func (e *Engine) AddTrainer(ctx context.Context, name string) (models.Trainer, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Trainer{}, fmt.Errorf("%w: trainer name is required", ErrValidation)
	}
	hash, err := e.hashPassword(e.defaultPassword)
	if err != nil {
		return models.Trainer{}, err
	}

	tr := models.Trainer{ID: e.newID(), Name: name, PasswordHash: hash}
	err = e.update(ctx, "add_trainer", func(tx db.Tx) error {
		return tx.CreateTrainer(&tr)
	})
	if err != nil {
		return models.Trainer{}, err
	}
	return tr, nil
}

// ChangePassword is the trainer's self-service change.
func (e *Engine) ChangePassword(ctx context.Context, trainerID, password string) error {
	pw, err := normalizePassword(password, minTrainerPassword)
	if err != nil {
		return err
	}
	return e.setPassword(ctx, "change_password", trainerID, pw)
}

// ResetPassword is the admin override; any non-blank password is accepted.
func (e *Engine) ResetPassword(ctx context.Context, trainerID, password string) error {
	pw, err := normalizePassword(password, 1)
	if err != nil {
		return err
	}
	return e.setPassword(ctx, "reset_password", trainerID, pw)
}

func (e *Engine) setPassword(ctx context.Context, op, trainerID, pw string) error {
	hash, err := e.hashPassword(pw)
	if err != nil {
		return err
	}
	return e.update(ctx, op, func(tx db.Tx) error {
		return tx.SetTrainerPassword(trainerID, hash)
	})
}

func (e *Engine) Authenticate(ctx context.Context, trainerID, password string) (models.Trainer, error) {
	pw := strings.TrimSpace(password)
	if pw == "" {
		return models.Trainer{}, fmt.Errorf("%w: password is required", ErrValidation)
	}
	snap, err := e.store.Snapshot(ctx)
	if err != nil {
		return models.Trainer{}, err
	}
	for _, tr := range snap.Trainers {
		if tr.ID == trainerID {
			if checkPassword(tr.PasswordHash, pw) {
				e.observe("authenticate", nil)
				return tr, nil
			}
			break
		}
	}
	e.observe("authenticate", ErrInvalidCredentials)
	return models.Trainer{}, ErrInvalidCredentials
}

// TrainerExists reports whether the trainer is still on the roster.
func (e *Engine) TrainerExists(ctx context.Context, trainerID string) (bool, error) {
	snap, err := e.store.Snapshot(ctx)
	if err != nil {
		return false, err
	}
	for _, tr := range snap.Trainers {
		if tr.ID == trainerID {
			return true, nil
		}
	}
	return false, nil
}

// Seed inserts the initial trainers and items when the store is empty.
// It reports whether anything was written.
func (e *Engine) Seed(ctx context.Context) (bool, error) {
	snap, err := e.store.Snapshot(ctx)
	if err != nil {
		return false, err
	}
	if len(snap.Items) > 0 || len(snap.Trainers) > 0 {
		return false, nil
	}

	trainers := make([]models.Trainer, 0, len(models.SeedTrainers))
	for i, st := range models.SeedTrainers {
		hash, err := e.hashPassword(st.Password)
		if err != nil {
			return false, err
		}
		trainers = append(trainers, models.Trainer{
			ID: st.ID, Name: st.Name, PasswordHash: hash, CreatedAt: models.SeedCreatedAt(i),
		})
	}

	err = e.update(ctx, "seed", func(tx db.Tx) error {
		for i := range trainers {
			if err := tx.CreateTrainer(&trainers[i]); err != nil {
				return err
			}
		}
		for i, it := range models.SeedItems {
			it.CreatedAt = models.SeedCreatedAt(i)
			if err := tx.CreateItem(&it); err != nil {
				return err
			}
		}
		return nil
	})
	if errors.Is(err, db.ErrConflict) {
		// 另一个实例已完成初始化
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
