package custody

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"tool_custody/db"
	"tool_custody/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fixture struct {
	store  *db.MemStore
	engine *Engine
	now    time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{store: db.NewMemStore(), now: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)}
	var mu sync.Mutex
	seq := 0
	f.engine = New(f.store,
		WithBcryptCost(bcrypt.MinCost),
		WithClock(func() time.Time {
			mu.Lock()
			defer mu.Unlock()
			f.now = f.now.Add(time.Minute)
			return f.now
		}),
		WithIDGenerator(func() string {
			mu.Lock()
			defer mu.Unlock()
			seq++
			return fmt.Sprintf("id-%d", seq)
		}),
	)
	return f
}

func (f *fixture) item(t *testing.T, name string) models.Item {
	t.Helper()
	it, err := f.engine.AddItem(context.Background(), name, "")
	require.NoError(t, err)
	return it
}

func (f *fixture) trainer(t *testing.T, name string) models.Trainer {
	t.Helper()
	tr, err := f.engine.AddTrainer(context.Background(), name)
	require.NoError(t, err)
	return tr
}

func (f *fixture) snapshot(t *testing.T) models.Snapshot {
	t.Helper()
	s, err := f.store.Snapshot(context.Background())
	require.NoError(t, err)
	return s
}

func findItem(s models.Snapshot, id string) (models.Item, bool) {
	for _, it := range s.Items {
		if it.ID == id {
			return it, true
		}
	}
	return models.Item{}, false
}

func findTransaction(s models.Snapshot, id string) (models.Transaction, bool) {
	for _, tr := range s.Transactions {
		if tr.ID == id {
			return tr, true
		}
	}
	return models.Transaction{}, false
}

// assertInvariants checks the properties that must hold after any batch.
func assertInvariants(t *testing.T, s models.Snapshot) {
	t.Helper()
	active := map[string]int{}
	for _, tr := range s.Transactions {
		if tr.IsActive {
			active[tr.ItemID]++
		}
		assert.False(t, tr.ReturnRequested && !tr.IsActive, "closed transaction %s still requested", tr.ID)
	}
	for itemID, n := range active {
		assert.LessOrEqual(t, n, 1, "item %s has %d active transactions", itemID, n)
	}
}

func TestCheckoutRequestApprove(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	scanner := f.item(t, "Scanner")
	ali := f.trainer(t, "Ali")

	// checkout
	tx, err := f.engine.Checkout(ctx, scanner.ID, ali.ID)
	require.NoError(t, err)
	assert.True(t, tx.IsActive)
	assert.False(t, tx.ReturnRequested)
	assert.Equal(t, "Scanner", tx.ItemName)
	assert.Equal(t, "Ali", tx.TrainerName)
	assert.Nil(t, tx.ReturnTime)

	s := f.snapshot(t)
	it, _ := findItem(s, scanner.ID)
	assert.Equal(t, models.ItemCheckedOut, it.Status)
	require.Len(t, s.Transactions, 1)

	// trainer asks to return
	req, err := f.engine.RequestReturn(ctx, tx.ID, ali.ID)
	require.NoError(t, err)
	assert.True(t, req.ReturnRequested)
	assert.True(t, req.IsActive)
	s = f.snapshot(t)
	it, _ = findItem(s, scanner.ID)
	assert.Equal(t, models.ItemCheckedOut, it.Status)

	// admin approves
	done, err := f.engine.ApproveReturn(ctx, tx.ID)
	require.NoError(t, err)
	assert.False(t, done.IsActive)
	assert.False(t, done.ReturnRequested)
	require.NotNil(t, done.ReturnTime)

	s = f.snapshot(t)
	it, _ = findItem(s, scanner.ID)
	assert.Equal(t, models.ItemAvailable, it.Status)
	stored, ok := findTransaction(s, tx.ID)
	require.True(t, ok)
	assert.False(t, stored.IsActive)
	assert.NotNil(t, stored.ReturnTime)
	assertInvariants(t, s)
}

func TestCheckoutFailures(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	it := f.item(t, "Drill")
	tr := f.trainer(t, "Sara")

	_, err := f.engine.Checkout(ctx, "missing", tr.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.engine.Checkout(ctx, it.ID, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, f.snapshot(t).Transactions)

	_, err = f.engine.Checkout(ctx, it.ID, tr.ID)
	require.NoError(t, err)
	_, err = f.engine.Checkout(ctx, it.ID, tr.ID)
	assert.ErrorIs(t, err, ErrItemUnavailable)
	assert.Len(t, f.snapshot(t).Transactions, 1)

	other := f.item(t, "Jack")
	_, err = f.engine.SetMaintenance(ctx, other.ID, true)
	require.NoError(t, err)
	_, err = f.engine.Checkout(ctx, other.ID, tr.ID)
	assert.ErrorIs(t, err, ErrItemUnavailable)
}

func TestRequestReturnIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	it := f.item(t, "Wrench")
	tr := f.trainer(t, "Omar")
	tx, err := f.engine.Checkout(ctx, it.ID, tr.ID)
	require.NoError(t, err)

	_, err = f.engine.RequestReturn(ctx, tx.ID, "")
	require.NoError(t, err)
	once := f.snapshot(t)

	_, err = f.engine.RequestReturn(ctx, tx.ID, "")
	require.NoError(t, err)
	assert.Equal(t, once, f.snapshot(t))
}

func TestRequestReturnOwnershipAndClosed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	it := f.item(t, "Meter")
	owner := f.trainer(t, "Owner")
	other := f.trainer(t, "Other")
	tx, err := f.engine.Checkout(ctx, it.ID, owner.ID)
	require.NoError(t, err)

	_, err = f.engine.RequestReturn(ctx, tx.ID, other.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.engine.ApproveReturn(ctx, tx.ID)
	require.NoError(t, err)

	_, err = f.engine.RequestReturn(ctx, tx.ID, owner.ID)
	assert.ErrorIs(t, err, ErrTransactionClosed)
	_, err = f.engine.ApproveReturn(ctx, tx.ID)
	assert.ErrorIs(t, err, ErrTransactionClosed)
	_, err = f.engine.ApproveReturn(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	assertInvariants(t, f.snapshot(t))
}

func TestApproveWithoutRequest(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	it := f.item(t, "Cart")
	tr := f.trainer(t, "Huda")
	tx, err := f.engine.Checkout(ctx, it.ID, tr.ID)
	require.NoError(t, err)

	done, err := f.engine.ApproveReturn(ctx, tx.ID)
	require.NoError(t, err)
	assert.False(t, done.IsActive)
	got, _ := findItem(f.snapshot(t), it.ID)
	assert.Equal(t, models.ItemAvailable, got.Status)
}

func TestDeleteTrainerCascade(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	x := f.item(t, "X")
	y := f.item(t, "Y")
	z := f.item(t, "Z")
	ali := f.trainer(t, "Ali")
	sam := f.trainer(t, "Sam")

	tx1, err := f.engine.Checkout(ctx, x.ID, ali.ID)
	require.NoError(t, err)
	tx2, err := f.engine.Checkout(ctx, y.ID, ali.ID)
	require.NoError(t, err)
	_, err = f.engine.RequestReturn(ctx, tx2.ID, ali.ID)
	require.NoError(t, err)
	tx3, err := f.engine.Checkout(ctx, z.ID, sam.ID)
	require.NoError(t, err)
	before := len(f.snapshot(t).Transactions)

	closed, err := f.engine.DeleteTrainer(ctx, ali.ID)
	require.NoError(t, err)
	require.Len(t, closed, 2)

	s := f.snapshot(t)
	assert.Len(t, s.Transactions, before)
	for _, id := range []string{tx1.ID, tx2.ID} {
		got, ok := findTransaction(s, id)
		require.True(t, ok)
		assert.False(t, got.IsActive)
		assert.False(t, got.ReturnRequested)
		assert.NotNil(t, got.ReturnTime)
		assert.Equal(t, "Ali", got.TrainerName)
	}
	for _, id := range []string{x.ID, y.ID} {
		got, _ := findItem(s, id)
		assert.Equal(t, models.ItemAvailable, got.Status)
	}
	untouched, _ := findTransaction(s, tx3.ID)
	assert.True(t, untouched.IsActive)
	zItem, _ := findItem(s, z.ID)
	assert.Equal(t, models.ItemCheckedOut, zItem.Status)

	for _, tr := range s.Trainers {
		assert.NotEqual(t, ali.ID, tr.ID)
	}
	assertInvariants(t, s)

	_, err = f.engine.DeleteTrainer(ctx, ali.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCloseToleratesMissingItem(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tr := f.trainer(t, "Ghost holder")

	// a ledger row pointing at an item that no longer exists
	err := f.store.Update(ctx, func(tx db.Tx) error {
		return tx.CreateTransaction(&models.Transaction{
			ID: "orphan", ItemID: "gone", ItemName: "Old lift",
			TrainerID: tr.ID, TrainerName: tr.Name, CheckoutTime: f.now, IsActive: true,
		})
	})
	require.NoError(t, err)

	closed, err := f.engine.DeleteTrainer(ctx, tr.ID)
	require.NoError(t, err)
	require.Len(t, closed, 1)
	got, _ := findTransaction(f.snapshot(t), "orphan")
	assert.False(t, got.IsActive)
}

func TestFailedBatchLeavesNoWrites(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	it := f.item(t, "Lift")
	before := f.snapshot(t)

	boom := errors.New("boom")
	err := f.store.Update(ctx, func(tx db.Tx) error {
		if err := tx.SetItemStatus(it.ID, models.ItemCheckedOut); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, before, f.snapshot(t))
}

func TestConcurrentCheckoutOneWinner(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	it := f.item(t, "Only one")
	a := f.trainer(t, "A")
	b := f.trainer(t, "B")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, tr := range []models.Trainer{a, b} {
		wg.Add(1)
		go func(i int, trainerID string) {
			defer wg.Done()
			_, errs[i] = f.engine.Checkout(ctx, it.ID, trainerID)
		}(i, tr.ID)
	}
	wg.Wait()

	var ok, unavailable int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrItemUnavailable):
			unavailable++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, unavailable)
	assertInvariants(t, f.snapshot(t))
}

func TestAddItemDefaultsAndValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	it, err := f.engine.AddItem(ctx, "  Torque wrench  ", "  ")
	require.NoError(t, err)
	assert.Equal(t, "Torque wrench", it.Name)
	assert.Equal(t, "عام", it.Category)
	assert.Equal(t, models.ItemAvailable, it.Status)

	_, err = f.engine.AddItem(ctx, "   ", "x")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestMaintenanceToggle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	it := f.item(t, "Compressor")
	tr := f.trainer(t, "Lina")

	got, err := f.engine.SetMaintenance(ctx, it.ID, true)
	require.NoError(t, err)
	assert.Equal(t, models.ItemMaintenance, got.Status)
	got, err = f.engine.SetMaintenance(ctx, it.ID, false)
	require.NoError(t, err)
	assert.Equal(t, models.ItemAvailable, got.Status)

	_, err = f.engine.Checkout(ctx, it.ID, tr.ID)
	require.NoError(t, err)
	_, err = f.engine.SetMaintenance(ctx, it.ID, true)
	assert.ErrorIs(t, err, ErrItemUnavailable)
}

func TestPasswords(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tr := f.trainer(t, "Nora")

	_, err := f.engine.Authenticate(ctx, tr.ID, " 1234 ")
	require.NoError(t, err)
	_, err = f.engine.Authenticate(ctx, tr.ID, "nope")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.engine.Authenticate(ctx, "missing", "1234")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.engine.Authenticate(ctx, tr.ID, "  ")
	assert.ErrorIs(t, err, ErrValidation)

	assert.ErrorIs(t, f.engine.ChangePassword(ctx, tr.ID, "abc"), ErrValidation)
	require.NoError(t, f.engine.ChangePassword(ctx, tr.ID, "abcd"))
	_, err = f.engine.Authenticate(ctx, tr.ID, "abcd")
	require.NoError(t, err)

	require.NoError(t, f.engine.ResetPassword(ctx, tr.ID, "9"))
	_, err = f.engine.Authenticate(ctx, tr.ID, "9")
	require.NoError(t, err)
	assert.ErrorIs(t, f.engine.ResetPassword(ctx, "missing", "9999"), ErrNotFound)
}

func TestSeedOnlyWhenEmpty(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	seeded, err := f.engine.Seed(ctx)
	require.NoError(t, err)
	assert.True(t, seeded)

	s := f.snapshot(t)
	assert.Len(t, s.Trainers, len(models.SeedTrainers))
	assert.Len(t, s.Items, len(models.SeedItems))
	_, err = f.engine.Authenticate(ctx, "t1", "13950")
	require.NoError(t, err)

	seeded, err = f.engine.Seed(ctx)
	require.NoError(t, err)
	assert.False(t, seeded)
}

func TestStoreUnavailable(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.store.SetUnavailable(true)

	_, err := f.engine.AddItem(ctx, "Any", "")
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.ErrorIs(t, f.engine.Ping(ctx), ErrStoreUnavailable)
}

func TestObserverSeesEveryBatch(t *testing.T) {
	ctx := context.Background()
	var ops []string
	e := New(db.NewMemStore(), WithBcryptCost(bcrypt.MinCost), WithObserver(func(op string, err error) {
		ops = append(ops, op)
	}))
	_, err := e.AddItem(ctx, "Item", "")
	require.NoError(t, err)
	_, err = e.ApproveReturn(ctx, "missing")
	require.Error(t, err)
	assert.Equal(t, []string{"add_item", "approve_return"}, ops)
}

func TestAsyncDeliversResult(t *testing.T) {
	f := newFixture(t)
	ch := Async(context.Background(), func(ctx context.Context) (models.Item, error) {
		return f.engine.AddItem(ctx, "Async tool", "")
	})
	res, ok := <-ch
	require.True(t, ok)
	require.NoError(t, res.Err)
	assert.Equal(t, "Async tool", res.Value.Name)
	_, ok = <-ch
	assert.False(t, ok)
}

func TestSubscribeSeesCommittedBatches(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f := newFixture(t)

	ch, err := f.engine.Subscribe(ctx)
	require.NoError(t, err)
	first := <-ch
	assert.Empty(t, first.Items)

	f.item(t, "Pushed")
	select {
	case s := <-ch:
		require.Len(t, s.Items, 1)
		assert.Equal(t, "Pushed", s.Items[0].Name)
	case <-time.After(time.Second):
		t.Fatal("no snapshot after update")
	}
}

func TestTrainerExists(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	tr := f.trainer(t, "Ali")

	ok, err := f.engine.TrainerExists(ctx, tr.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = f.engine.DeleteTrainer(ctx, tr.ID)
	require.NoError(t, err)
	ok, err = f.engine.TrainerExists(ctx, tr.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}
