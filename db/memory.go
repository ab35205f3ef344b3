package db

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"tool_custody/models"
)

var _ Store = (*MemStore)(nil)

// MemStore is an in-process Store for tests and STORE_DRIVER=memory.
// Batches run against a clone that replaces the state only on success.
type MemStore struct {
	mu          sync.Mutex
	state       models.Snapshot
	subs        map[int]chan models.Snapshot
	nextSub     int
	unavailable bool
	now         func() time.Time
}

func NewMemStore() *MemStore {
	return &MemStore{subs: make(map[int]chan models.Snapshot), now: time.Now}
}

// SetUnavailable makes every call fail with ErrStoreUnavailable.
func (s *MemStore) SetUnavailable(down bool) {
	s.mu.Lock()
	s.unavailable = down
	s.mu.Unlock()
}

func (s *MemStore) Ping(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unavailable {
		return ErrStoreUnavailable
	}
	return nil
}

func (s *MemStore) Snapshot(context.Context) (models.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unavailable {
		return models.Snapshot{}, ErrStoreUnavailable
	}
	return s.state.Clone(), nil
}

func (s *MemStore) Update(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unavailable {
		return ErrStoreUnavailable
	}

	work := s.state.Clone()
	if err := fn(&memTx{s: &work, now: s.now}); err != nil {
		return err
	}
	sort.SliceStable(work.Transactions, func(i, j int) bool {
		return work.Transactions[i].CheckoutTime.Before(work.Transactions[j].CheckoutTime)
	})
	s.state = work
	for _, ch := range s.subs {
		offer(ch, work.Clone())
	}
	return nil
}

func (s *MemStore) Subscribe(ctx context.Context) (<-chan models.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unavailable {
		return nil, ErrStoreUnavailable
	}

	ch := make(chan models.Snapshot, 1)
	ch <- s.state.Clone()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subs, id)
		close(ch)
		s.mu.Unlock()
	}()
	return ch, nil
}

type memTx struct {
	s   *models.Snapshot
	now func() time.Time
}

func (t *memTx) itemIndex(id string) int {
	for i := range t.s.Items {
		if t.s.Items[i].ID == id {
			return i
		}
	}
	return -1
}

func (t *memTx) trainerIndex(id string) int {
	for i := range t.s.Trainers {
		if t.s.Trainers[i].ID == id {
			return i
		}
	}
	return -1
}

func (t *memTx) transactionIndex(id string) int {
	for i := range t.s.Transactions {
		if t.s.Transactions[i].ID == id {
			return i
		}
	}
	return -1
}

func (t *memTx) Item(id string) (models.Item, error) {
	i := t.itemIndex(id)
	if i < 0 {
		return models.Item{}, fmt.Errorf("item %s: %w", id, ErrNotFound)
	}
	return t.s.Items[i], nil
}

func (t *memTx) CreateItem(it *models.Item) error {
	if t.itemIndex(it.ID) >= 0 {
		return fmt.Errorf("item %s: %w", it.ID, ErrConflict)
	}
	now := t.now()
	if it.CreatedAt.IsZero() {
		it.CreatedAt = now
	}
	it.UpdatedAt = now
	t.s.Items = append(t.s.Items, *it)
	return nil
}

func (t *memTx) SetItemStatus(id string, status models.ItemStatus) error {
	i := t.itemIndex(id)
	if i < 0 {
		return fmt.Errorf("item %s: %w", id, ErrNotFound)
	}
	t.s.Items[i].Status = status
	t.s.Items[i].UpdatedAt = t.now()
	return nil
}

func (t *memTx) Trainer(id string) (models.Trainer, error) {
	i := t.trainerIndex(id)
	if i < 0 {
		return models.Trainer{}, fmt.Errorf("trainer %s: %w", id, ErrNotFound)
	}
	return t.s.Trainers[i], nil
}

func (t *memTx) CreateTrainer(tr *models.Trainer) error {
	if t.trainerIndex(tr.ID) >= 0 {
		return fmt.Errorf("trainer %s: %w", tr.ID, ErrConflict)
	}
	now := t.now()
	if tr.CreatedAt.IsZero() {
		tr.CreatedAt = now
	}
	tr.UpdatedAt = now
	t.s.Trainers = append(t.s.Trainers, *tr)
	return nil
}

func (t *memTx) SetTrainerPassword(id, hash string) error {
	i := t.trainerIndex(id)
	if i < 0 {
		return fmt.Errorf("trainer %s: %w", id, ErrNotFound)
	}
	t.s.Trainers[i].PasswordHash = hash
	t.s.Trainers[i].UpdatedAt = t.now()
	return nil
}

func (t *memTx) DeleteTrainer(id string) error {
	i := t.trainerIndex(id)
	if i < 0 {
		return fmt.Errorf("trainer %s: %w", id, ErrNotFound)
	}
	t.s.Trainers = append(t.s.Trainers[:i], t.s.Trainers[i+1:]...)
	return nil
}

func (t *memTx) Transaction(id string) (models.Transaction, error) {
	i := t.transactionIndex(id)
	if i < 0 {
		return models.Transaction{}, fmt.Errorf("transaction %s: %w", id, ErrNotFound)
	}
	return t.s.Transactions[i], nil
}

func (t *memTx) ActiveByTrainer(trainerID string) ([]models.Transaction, error) {
	var out []models.Transaction
	for _, tx := range t.s.Transactions {
		if tx.IsActive && tx.TrainerID == trainerID {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (t *memTx) ActiveByItem(itemID string) (*models.Transaction, error) {
	for _, tx := range t.s.Transactions {
		if tx.IsActive && tx.ItemID == itemID {
			found := tx
			return &found, nil
		}
	}
	return nil, nil
}

func (t *memTx) CreateTransaction(tx *models.Transaction) error {
	if t.transactionIndex(tx.ID) >= 0 {
		return fmt.Errorf("transaction %s: %w", tx.ID, ErrConflict)
	}
	if tx.IsActive {
		if open, _ := t.ActiveByItem(tx.ItemID); open != nil {
			return fmt.Errorf("item %s already has an active transaction: %w", tx.ItemID, ErrConflict)
		}
	}
	t.s.Transactions = append(t.s.Transactions, *tx)
	return nil
}

func (t *memTx) SaveTransactionState(tx models.Transaction) error {
	i := t.transactionIndex(tx.ID)
	if i < 0 {
		return fmt.Errorf("transaction %s: %w", tx.ID, ErrNotFound)
	}
	cur := &t.s.Transactions[i]
	cur.IsActive = tx.IsActive
	cur.ReturnRequested = tx.ReturnRequested
	cur.ReturnTime = nil
	if tx.ReturnTime != nil {
		rt := *tx.ReturnTime
		cur.ReturnTime = &rt
	}
	return nil
}
