package checkout

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/promoquoter/internal/cart"
	"github.com/noah-isme/promoquoter/internal/catalog"
	"github.com/noah-isme/promoquoter/internal/common"
	"github.com/noah-isme/promoquoter/internal/order"
	"github.com/noah-isme/promoquoter/internal/promo"
)

type stubCatalog struct {
	mu       sync.Mutex
	products map[uuid.UUID]catalog.Product
}

func (s *stubCatalog) GetByIDs(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]catalog.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[uuid.UUID]catalog.Product, len(ids))
	for _, id := range ids {
		if p, ok := s.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

type stubPromotions struct {
	promotions []promo.Promotion
}

func (s *stubPromotions) ListActive(context.Context) ([]promo.Promotion, error) {
	return s.promotions, nil
}

type memOrders struct {
	mu   sync.Mutex
	byID map[uuid.UUID]order.Order
}

func newMemOrders() *memOrders {
	return &memOrders{byID: map[uuid.UUID]order.Order{}}
}

func (m *memOrders) FindByID(_ context.Context, id uuid.UUID) (order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o, ok := m.byID[id]; ok {
		return o, nil
	}
	return order.Order{}, order.ErrNotFound
}

func (m *memOrders) FindByIdempotencyKey(_ context.Context, key string) (order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.findByKeyLocked(key)
}

func (m *memOrders) findByKeyLocked(key string) (order.Order, error) {
	for _, o := range m.byID {
		if o.IdempotencyKey == key {
			return o, nil
		}
	}
	return order.Order{}, order.ErrNotFound
}

// memTx emulates serialized transactions over the in-memory stores.
type memTx struct {
	mu            sync.Mutex
	catalog       *stubCatalog
	orders        *memOrders
	conflictCount int
	beforeCreate  func()
}

func (t *memTx) InTx(_ context.Context, fn func(TxOps) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return fn(&memTxOps{tx: t})
}

type memTxOps struct {
	tx *memTx
}

func (o *memTxOps) FindOrderByKeyForUpdate(_ context.Context, key string) (order.Order, error) {
	o.tx.orders.mu.Lock()
	defer o.tx.orders.mu.Unlock()
	return o.tx.orders.findByKeyLocked(key)
}

func (o *memTxOps) GetProductForUpdate(_ context.Context, id uuid.UUID) (catalog.Product, error) {
	o.tx.catalog.mu.Lock()
	defer o.tx.catalog.mu.Unlock()
	p, ok := o.tx.catalog.products[id]
	if !ok {
		return catalog.Product{}, catalog.ErrNotFound
	}
	return p, nil
}

func (o *memTxOps) AdjustStock(_ context.Context, id uuid.UUID, delta int32, expectedVersion int64) error {
	if o.tx.conflictCount > 0 {
		o.tx.conflictCount--
		return catalog.ErrVersionConflict
	}
	o.tx.catalog.mu.Lock()
	defer o.tx.catalog.mu.Unlock()
	p, ok := o.tx.catalog.products[id]
	if !ok {
		return catalog.ErrNotFound
	}
	if p.Version != expectedVersion {
		return catalog.ErrVersionConflict
	}
	if p.Stock+delta < 0 {
		return catalog.ErrInsufficientStock
	}
	p.Stock += delta
	p.Version++
	o.tx.catalog.products[id] = p
	return nil
}

func (o *memTxOps) CreateOrder(_ context.Context, in order.Order) (order.Order, error) {
	if o.tx.beforeCreate != nil {
		o.tx.beforeCreate()
	}
	o.tx.orders.mu.Lock()
	defer o.tx.orders.mu.Unlock()
	if in.IdempotencyKey != "" {
		if _, err := o.tx.orders.findByKeyLocked(in.IdempotencyKey); err == nil {
			return order.Order{}, order.ErrDuplicateKey
		}
	}
	in.CreatedAt = time.Now()
	o.tx.orders.byID[in.ID] = in
	return in, nil
}

type fixture struct {
	coordinator *Coordinator
	catalog     *stubCatalog
	promotions  *stubPromotions
	orders      *memOrders
	tx          *memTx
	productID   uuid.UUID
	sleeps      *[]time.Duration
}

func newFixture(t *testing.T, stock int32) fixture {
	t.Helper()
	productID := uuid.New()
	cat := &stubCatalog{products: map[uuid.UUID]catalog.Product{
		productID: {
			ID:       productID,
			Name:     "Mechanical Keyboard",
			Category: catalog.CategoryElectronics,
			Price:    25000,
			Stock:    stock,
		},
	}}
	promotions := &stubPromotions{}
	orders := newMemOrders()
	tx := &memTx{catalog: cat, orders: orders}
	quoter := &cart.Service{
		Catalog:    cat,
		Promotions: promotions,
		Engine:     &promo.Engine{Registry: promo.NewRegistry(), Logger: zerolog.Nop()},
		Logger:     zerolog.Nop(),
	}
	sleeps := &[]time.Duration{}
	return fixture{
		coordinator: &Coordinator{
			Catalog:      cat,
			Quoter:       quoter,
			Orders:       orders,
			Tx:           tx,
			Logger:       zerolog.Nop(),
			MaxAttempts:  3,
			RetryBackoff: 100 * time.Millisecond,
			Sleep:        func(d time.Duration) { *sleeps = append(*sleeps, d) },
		},
		catalog:    cat,
		promotions: promotions,
		orders:     orders,
		tx:         tx,
		productID:  productID,
		sleeps:     sleeps,
	}
}

func (f fixture) stock() int32 {
	f.catalog.mu.Lock()
	defer f.catalog.mu.Unlock()
	return f.catalog.products[f.productID].Stock
}

func confirmInput(key string, productID uuid.UUID, qty int32) cart.ConfirmInput {
	return cart.ConfirmInput{
		IdempotencyKey: key,
		Lines:          []cart.Line{{ProductID: productID, Qty: qty}},
	}
}

func TestConfirmCreatesOrderThenReplays(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()

	first, created, err := f.coordinator.Confirm(ctx, confirmInput("key-1", f.productID, 3))
	require.NoError(t, err)
	require.True(t, created)
	require.Equal(t, order.StatusConfirmed, first.Order.Status)
	require.EqualValues(t, 75000, first.Order.Total)
	require.EqualValues(t, 7, f.stock())

	second, created, err := f.coordinator.Confirm(ctx, confirmInput("key-1", f.productID, 3))
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, first.Order.ID, second.Order.ID)
	require.EqualValues(t, 7, f.stock(), "replay must not debit stock again")
}

func TestConfirmWithoutKeyCreatesNewOrderEachTime(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()

	first, created, err := f.coordinator.Confirm(ctx, confirmInput("", f.productID, 2))
	require.NoError(t, err)
	require.True(t, created)

	second, created, err := f.coordinator.Confirm(ctx, confirmInput("  ", f.productID, 2))
	require.NoError(t, err)
	require.True(t, created)

	require.NotEqual(t, first.Order.ID, second.Order.ID)
	require.Empty(t, first.Order.IdempotencyKey)
	require.EqualValues(t, 6, f.stock(), "each keyless confirmation debits stock")

	f.orders.mu.Lock()
	require.Len(t, f.orders.byID, 2)
	f.orders.mu.Unlock()
}

func TestConfirmIncludesAppliedPromotionDescriptions(t *testing.T) {
	f := newFixture(t, 10)
	category := string(catalog.CategoryElectronics)
	bps := int32(1000)
	f.promotions.promotions = []promo.Promotion{{
		ID:         uuid.New(),
		Name:       "10% off electronics",
		Kind:       promo.KindPercentOffCategory,
		Category:   &category,
		PercentBps: &bps,
		Active:     true,
	}}
	ctx := context.Background()

	first, created, err := f.coordinator.Confirm(ctx, confirmInput("key-promo", f.productID, 2))
	require.NoError(t, err)
	require.True(t, created)
	require.Len(t, first.AppliedPromotions, 1)
	require.EqualValues(t, 45000, first.Order.Total)

	second, created, err := f.coordinator.Confirm(ctx, confirmInput("key-promo", f.productID, 2))
	require.NoError(t, err)
	require.False(t, created)
	require.NotNil(t, second.AppliedPromotions)
	require.Empty(t, second.AppliedPromotions, "replays do not reconstruct promotion descriptions")
}

func TestConfirmOutOfStockLeavesStockUntouched(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()

	_, created, err := f.coordinator.Confirm(ctx, confirmInput("key-oos", f.productID, 5))
	require.Error(t, err)
	require.False(t, created)
	require.ErrorIs(t, err, ErrOutOfStock)

	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "OUT_OF_STOCK", appErr.Code)
	require.Equal(t, 409, appErr.HTTPStatus)
	require.EqualValues(t, 2, f.stock())
	require.Empty(t, *f.sleeps, "out of stock is not retried")
}

func TestConfirmRetriesWithLinearBackoffThenConflicts(t *testing.T) {
	f := newFixture(t, 10)
	f.tx.conflictCount = 3
	ctx := context.Background()

	_, created, err := f.coordinator.Confirm(ctx, confirmInput("key-conflict", f.productID, 1))
	require.Error(t, err)
	require.False(t, created)
	require.ErrorIs(t, err, ErrConcurrentModification)

	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "CONCURRENT_MODIFICATION", appErr.Code)
	require.Equal(t,
		[]time.Duration{100 * time.Millisecond, 200 * time.Millisecond},
		*f.sleeps,
		"backoff grows linearly and the final attempt does not sleep")
	require.EqualValues(t, 10, f.stock())
}

func TestConfirmRecoversAfterSingleConflict(t *testing.T) {
	f := newFixture(t, 10)
	f.tx.conflictCount = 1
	ctx := context.Background()

	confirmed, created, err := f.coordinator.Confirm(ctx, confirmInput("key-retry", f.productID, 2))
	require.NoError(t, err)
	require.True(t, created)
	require.EqualValues(t, 8, f.stock())
	require.Len(t, *f.sleeps, 1)
	require.Len(t, confirmed.Order.Items, 1)
	require.EqualValues(t, 50000, confirmed.Order.Items[0].LineTotal)
	require.EqualValues(t, 0, confirmed.Order.Items[0].LineDiscount)
}

func TestConfirmResolvesCreateRaceToExistingOrder(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()

	// A competing confirmation lands between the key lookup and the insert.
	competitor := order.Order{
		ID:             uuid.New(),
		IdempotencyKey: "key-race",
		Status:         order.StatusConfirmed,
		Total:          25000,
	}
	raced := false
	f.tx.beforeCreate = func() {
		if raced {
			return
		}
		raced = true
		f.orders.mu.Lock()
		f.orders.byID[competitor.ID] = competitor
		f.orders.mu.Unlock()
	}

	resolved, created, err := f.coordinator.Confirm(ctx, confirmInput("key-race", f.productID, 1))
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, competitor.ID, resolved.Order.ID)
}

func TestConfirmConcurrentSameKeyCreatesOneOrder(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make([]bool, 2)
	errs := make([]error, 2)
	ids := make([]uuid.UUID, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			confirmed, created, err := f.coordinator.Confirm(ctx, confirmInput("key-shared", f.productID, 2))
			results[i] = created
			errs[i] = err
			ids[i] = confirmed.Order.ID
		}(i)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	require.Equal(t, ids[0], ids[1])
	require.NotEqual(t, results[0], results[1], "exactly one caller creates the order")
	require.EqualValues(t, 8, f.stock(), "stock debited exactly once")

	f.orders.mu.Lock()
	require.Len(t, f.orders.byID, 1)
	f.orders.mu.Unlock()
}

func TestConfirmCollapsesDuplicateLines(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()

	in := cart.ConfirmInput{
		IdempotencyKey: "key-collapse",
		Lines: []cart.Line{
			{ProductID: f.productID, Qty: 2},
			{ProductID: f.productID, Qty: 3},
		},
	}
	confirmed, created, err := f.coordinator.Confirm(ctx, in)
	require.NoError(t, err)
	require.True(t, created)
	require.Len(t, confirmed.Order.Items, 1)
	require.EqualValues(t, 5, confirmed.Order.Items[0].Qty)
	require.EqualValues(t, 5, f.stock())
}

func TestConfirmRejectsEmptyCart(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()

	_, _, err := f.coordinator.Confirm(ctx, cart.ConfirmInput{IdempotencyKey: "key-empty"})
	require.Error(t, err)

	_, _, err = f.coordinator.Confirm(ctx, confirmInput("key-zero", f.productID, 0))
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrOutOfStock))
}
