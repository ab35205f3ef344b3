package db_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"tool_custody/custody"
	"tool_custody/db"
	"tool_custody/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// openRepo connects to TEST_DATABASE_URL, migrates and empties the tables.
func openRepo(t *testing.T) *db.Repo {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))
	require.NoError(t, gdb.Exec(fmt.Sprintf("TRUNCATE %s, %s, %s",
		models.TransactionTable, models.ItemTable, models.TrainerTable)).Error)
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db.NewRepo(gdb, nil)
}

func newEngine(store db.Store) *custody.Engine {
	return custody.New(store, custody.WithBcryptCost(bcrypt.MinCost))
}

func TestRepoConcurrentCheckoutOneWins(t *testing.T) {
	ctx := context.Background()
	e := newEngine(openRepo(t))
	it, err := e.AddItem(ctx, "Torque wrench", "")
	require.NoError(t, err)
	a, err := e.AddTrainer(ctx, "Ali")
	require.NoError(t, err)
	b, err := e.AddTrainer(ctx, "Sara")
	require.NoError(t, err)

	var wg sync.WaitGroup
	start := make(chan struct{})
	errs := make([]error, 2)
	for i, tr := range []models.Trainer{a, b} {
		wg.Add(1)
		go func(i int, trainerID string) {
			defer wg.Done()
			<-start
			_, errs[i] = e.Checkout(ctx, it.ID, trainerID)
		}(i, tr.ID)
	}
	close(start)
	wg.Wait()

	ok, unavailable := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, custody.ErrItemUnavailable):
			unavailable++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, unavailable)

	snap, err := e.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Transactions, 1)
	assert.Equal(t, models.ItemCheckedOut, snap.Items[0].Status)
}

func TestRepoSecondActiveLoanIsConflict(t *testing.T) {
	ctx := context.Background()
	r := openRepo(t)
	now := time.Now().UTC()

	err := r.Update(ctx, func(tx db.Tx) error {
		if err := tx.CreateTransaction(&models.Transaction{ID: "a", ItemID: "i1", ItemName: "x", TrainerID: "t1", TrainerName: "y", CheckoutTime: now, IsActive: true}); err != nil {
			return err
		}
		return tx.CreateTransaction(&models.Transaction{ID: "b", ItemID: "i1", ItemName: "x", TrainerID: "t2", TrainerName: "z", CheckoutTime: now, IsActive: true})
	})
	assert.ErrorIs(t, err, db.ErrConflict)

	snap, err := r.Snapshot(ctx)
	require.NoError(t, err)
	assert.Empty(t, snap.Transactions)

	// closed rows are outside the partial index
	err = r.Update(ctx, func(tx db.Tx) error {
		if err := tx.CreateTransaction(&models.Transaction{ID: "c", ItemID: "i1", ItemName: "x", TrainerID: "t1", TrainerName: "y", CheckoutTime: now, ReturnTime: &now}); err != nil {
			return err
		}
		return tx.CreateTransaction(&models.Transaction{ID: "d", ItemID: "i1", ItemName: "x", TrainerID: "t1", TrainerName: "y", CheckoutTime: now, IsActive: true})
	})
	require.NoError(t, err)
	snap, err = r.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Transactions, 2)
	assert.False(t, snap.Transactions[0].IsActive)
}

func TestRepoRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	r := openRepo(t)
	require.NoError(t, r.Update(ctx, func(tx db.Tx) error {
		return tx.CreateItem(&models.Item{ID: "i1", Name: "Jack", Category: "c", Status: models.ItemAvailable})
	}))

	boom := errors.New("boom")
	err := r.Update(ctx, func(tx db.Tx) error {
		if err := tx.SetItemStatus("i1", models.ItemCheckedOut); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	snap, err := r.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.ItemAvailable, snap.Items[0].Status)
}

func TestRepoMissingRowsAreNotFound(t *testing.T) {
	ctx := context.Background()
	r := openRepo(t)
	err := r.Update(ctx, func(tx db.Tx) error {
		_, err := tx.Item("nope")
		assert.ErrorIs(t, err, db.ErrNotFound)
		_, err = tx.Trainer("nope")
		assert.ErrorIs(t, err, db.ErrNotFound)
		_, err = tx.Transaction("nope")
		assert.ErrorIs(t, err, db.ErrNotFound)
		assert.ErrorIs(t, tx.SetItemStatus("nope", models.ItemAvailable), db.ErrNotFound)
		assert.ErrorIs(t, tx.SetTrainerPassword("nope", "h"), db.ErrNotFound)
		assert.ErrorIs(t, tx.DeleteTrainer("nope"), db.ErrNotFound)

		open, err := tx.ActiveByItem("nope")
		assert.NoError(t, err)
		assert.Nil(t, open)
		return nil
	})
	require.NoError(t, err)
}

func TestRepoCascadeToleratesMissingItem(t *testing.T) {
	ctx := context.Background()
	r := openRepo(t)
	e := newEngine(r)
	tr, err := e.AddTrainer(ctx, "Ali")
	require.NoError(t, err)
	kept, err := e.AddItem(ctx, "Scanner", "")
	require.NoError(t, err)
	_, err = e.Checkout(ctx, kept.ID, tr.ID)
	require.NoError(t, err)

	// loan on a tool whose row is gone
	require.NoError(t, r.Update(ctx, func(tx db.Tx) error {
		return tx.CreateTransaction(&models.Transaction{
			ID: "orphan", ItemID: "gone", ItemName: "Old drill",
			TrainerID: tr.ID, TrainerName: tr.Name, CheckoutTime: time.Now().UTC(), IsActive: true,
		})
	}))

	closed, err := e.DeleteTrainer(ctx, tr.ID)
	require.NoError(t, err)
	assert.Len(t, closed, 2)

	snap, err := e.Snapshot(ctx)
	require.NoError(t, err)
	assert.Empty(t, snap.Trainers)
	assert.Equal(t, models.ItemAvailable, snap.Items[0].Status)
	for _, tx := range snap.Transactions {
		assert.False(t, tx.IsActive)
		assert.NotNil(t, tx.ReturnTime)
		assert.Equal(t, "Ali", tx.TrainerName)
	}
}

func TestRepoSaveTransactionStateWritesStateOnly(t *testing.T) {
	ctx := context.Background()
	r := openRepo(t)
	out := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	orig := models.Transaction{ID: "x", ItemID: "i1", ItemName: "Jack", TrainerID: "t1", TrainerName: "Ali", CheckoutTime: out, IsActive: true}
	require.NoError(t, r.Update(ctx, func(tx db.Tx) error { return tx.CreateTransaction(&orig) }))

	back := out.Add(time.Hour)
	changed := orig
	changed.ItemName = "renamed"
	changed.TrainerID = "t2"
	changed.CheckoutTime = back
	changed.IsActive = false
	changed.ReturnTime = &back
	require.NoError(t, r.Update(ctx, func(tx db.Tx) error { return tx.SaveTransactionState(changed) }))

	snap, err := r.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Transactions, 1)
	got := snap.Transactions[0]
	assert.Equal(t, "Jack", got.ItemName)
	assert.Equal(t, "t1", got.TrainerID)
	assert.True(t, got.CheckoutTime.Equal(out))
	assert.False(t, got.IsActive)
	require.NotNil(t, got.ReturnTime)
	assert.True(t, got.ReturnTime.Equal(back))
}

func TestRepoSubscribeSeesCommits(t *testing.T) {
	base := openRepo(t)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	r := db.NewRepo(base.DB, db.NewChangeFeed(rdb))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	snaps, err := r.Subscribe(ctx)
	require.NoError(t, err)
	first := <-snaps
	assert.Empty(t, first.Items)

	require.NoError(t, r.Update(ctx, func(tx db.Tx) error {
		return tx.CreateItem(&models.Item{ID: "i1", Name: "Jack", Category: "c", Status: models.ItemAvailable})
	}))
	select {
	case s := <-snaps:
		assert.Len(t, s.Items, 1)
	case <-time.After(3 * time.Second):
		t.Fatal("no snapshot after commit")
	}
}
