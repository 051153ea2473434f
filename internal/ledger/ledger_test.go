package ledger

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"mint-backend/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func testOrder(id string, ts int64) *models.Order {
	return &models.Order{
		ID:            id,
		WalletAddress: "0x70997970c51812dc3a010c7d01b50e0d17dc79c8",
		ShippingInfo: models.ShippingInfo{
			Name:    "Test User",
			Email:   "test@example.com",
			Address: "1 Main St",
			Country: "US",
		},
		Timestamp: ts,
	}
}

func newTestGormStore(t *testing.T) *GormStore {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "orders.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Order{}))
	return NewGormStore(db)
}

func newTestFallbackStore(t *testing.T) *FallbackStore {
	t.Helper()
	store, err := NewFallbackStore(filepath.Join(t.TempDir(), "fallback.db"))
	require.NoError(t, err)
	return store
}

func TestGormStoreRoundTrip(t *testing.T) {
	store := newTestGormStore(t)
	ctx := context.Background()

	require.NoError(t, store.Record(ctx, testOrder("a", 100)))
	require.NoError(t, store.Record(ctx, testOrder("b", 200)))

	orders, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	// newest first
	assert.Equal(t, "b", orders[0].ID)
	assert.Equal(t, "a", orders[1].ID)
	assert.Equal(t, "Test User", orders[1].ShippingInfo.Name)

	require.NoError(t, store.AttachTokenIDs(ctx, "a", []string{"42", "43"}))
	orders, err = store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.StringList{"42", "43"}, orders[1].TokenIDs)

	err = store.AttachTokenIDs(ctx, "missing", []string{"1"})
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestGormStoreRecordIfAbsent(t *testing.T) {
	store := newTestGormStore(t)
	ctx := context.Background()

	require.NoError(t, store.Record(ctx, testOrder("a", 100)))
	// a duplicate insert is a no-op, not an error
	require.NoError(t, store.RecordIfAbsent(ctx, testOrder("a", 100)))

	orders, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, orders, 1)
}

func TestFallbackStoreRoundTrip(t *testing.T) {
	store := newTestFallbackStore(t)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, testOrder("a", 100)))
	require.NoError(t, store.Append(ctx, testOrder("b", 200)))

	orders, err := store.Orders(ctx)
	require.NoError(t, err)
	require.Len(t, orders, 2)

	require.NoError(t, store.AttachTokenIDs(ctx, "b", []string{"7"}))
	orders, err = store.Orders(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.StringList{"7"}, orders[1].TokenIDs)

	assert.ErrorIs(t, store.AttachTokenIDs(ctx, "missing", []string{"1"}), ErrOrderNotFound)

	require.NoError(t, store.Remove(ctx, "a"))
	orders, err = store.Orders(ctx)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "b", orders[0].ID)

	assert.ErrorIs(t, store.Remove(ctx, "a"), ErrOrderNotFound)
}

// flakyPrimary in-memory primary that can be switched off
type flakyPrimary struct {
	down   bool
	orders map[string]models.Order
}

func newFlakyPrimary() *flakyPrimary {
	return &flakyPrimary{orders: make(map[string]models.Order)}
}

func (p *flakyPrimary) Record(ctx context.Context, order *models.Order) error {
	if p.down {
		return errors.New("connection refused")
	}
	p.orders[order.ID] = *order
	return nil
}

func (p *flakyPrimary) RecordIfAbsent(ctx context.Context, order *models.Order) error {
	if p.down {
		return errors.New("connection refused")
	}
	if _, ok := p.orders[order.ID]; !ok {
		p.orders[order.ID] = *order
	}
	return nil
}

func (p *flakyPrimary) AttachTokenIDs(ctx context.Context, orderID string, tokenIDs []string) error {
	if p.down {
		return errors.New("connection refused")
	}
	order, ok := p.orders[orderID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	order.TokenIDs = models.StringList(tokenIDs)
	p.orders[orderID] = order
	return nil
}

func (p *flakyPrimary) List(ctx context.Context) ([]models.Order, error) {
	if p.down {
		return nil, errors.New("connection refused")
	}
	out := make([]models.Order, 0, len(p.orders))
	for _, o := range p.orders {
		out = append(out, o)
	}
	return out, nil
}

func TestLedgerRecordPrefersPrimary(t *testing.T) {
	primary := newFlakyPrimary()
	fallback := newTestFallbackStore(t)
	ledger := NewLedger(primary, fallback, nil, testLogger())
	ctx := context.Background()

	require.NoError(t, ledger.Record(ctx, testOrder("a", 100)))

	assert.Contains(t, primary.orders, "a")
	parked, err := fallback.Orders(ctx)
	require.NoError(t, err)
	assert.Empty(t, parked)
}

func TestLedgerRecordFallsBack(t *testing.T) {
	primary := newFlakyPrimary()
	primary.down = true
	fallback := newTestFallbackStore(t)
	ledger := NewLedger(primary, fallback, nil, testLogger())
	ctx := context.Background()

	require.NoError(t, ledger.Record(ctx, testOrder("a", 100)))

	assert.Empty(t, primary.orders)
	parked, err := fallback.Orders(ctx)
	require.NoError(t, err)
	require.Len(t, parked, 1)
	assert.Equal(t, "a", parked[0].ID)
}

func TestLedgerRecordWithoutPrimary(t *testing.T) {
	fallback := newTestFallbackStore(t)
	ledger := NewLedger(nil, fallback, nil, testLogger())
	ctx := context.Background()

	require.NoError(t, ledger.Record(ctx, testOrder("a", 100)))
	parked, err := fallback.Orders(ctx)
	require.NoError(t, err)
	assert.Len(t, parked, 1)
}

func TestLedgerFlushMigratesExactlyOnce(t *testing.T) {
	primary := newFlakyPrimary()
	primary.down = true
	fallback := newTestFallbackStore(t)
	ledger := NewLedger(primary, fallback, nil, testLogger())
	ctx := context.Background()

	require.NoError(t, ledger.Record(ctx, testOrder("a", 100)))
	require.NoError(t, ledger.Record(ctx, testOrder("b", 200)))

	// primary still down, nothing moves
	ledger.Flush(ctx)
	parked, err := fallback.Orders(ctx)
	require.NoError(t, err)
	assert.Len(t, parked, 2)

	primary.down = false
	ledger.Flush(ctx)

	parked, err = fallback.Orders(ctx)
	require.NoError(t, err)
	assert.Empty(t, parked)
	assert.Len(t, primary.orders, 2)

	// a second flush is a no-op
	ledger.Flush(ctx)
	assert.Len(t, primary.orders, 2)
}

func TestLedgerListMergesAndDeduplicates(t *testing.T) {
	primary := newFlakyPrimary()
	fallback := newTestFallbackStore(t)
	ledger := NewLedger(primary, fallback, nil, testLogger())
	ctx := context.Background()

	require.NoError(t, primary.Record(ctx, testOrder("a", 300)))
	require.NoError(t, fallback.Append(ctx, testOrder("b", 100)))
	// mid-migration: same order visible in both stores
	require.NoError(t, fallback.Append(ctx, testOrder("a", 300)))

	orders, err := ledger.List(ctx)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, "a", orders[0].ID)
	assert.Equal(t, "b", orders[1].ID)
}

func TestLedgerAttachTokenIDsFallsThrough(t *testing.T) {
	primary := newFlakyPrimary()
	fallback := newTestFallbackStore(t)
	ledger := NewLedger(primary, fallback, nil, testLogger())
	ctx := context.Background()

	require.NoError(t, fallback.Append(ctx, testOrder("a", 100)))
	require.NoError(t, ledger.AttachTokenIDs(ctx, "a", []string{"9"}))

	parked, err := fallback.Orders(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.StringList{"9"}, parked[0].TokenIDs)

	err = ledger.AttachTokenIDs(ctx, "missing", []string{"1"})
	require.Error(t, err)
}

func TestLedgerFlushLoopStopsOnCancel(t *testing.T) {
	fallback := newTestFallbackStore(t)
	ledger := NewLedger(newFlakyPrimary(), fallback, nil, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		ledger.FlushLoop(ctx, time.Millisecond)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("flush loop did not stop")
	}
}
