package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/promoquoter/internal/events"
)

type stubStore struct {
	products map[uuid.UUID]Product
	listed   int
}

func newStubStore() *stubStore {
	return &stubStore{products: map[uuid.UUID]Product{}}
}

func (s *stubStore) Create(_ context.Context, p Product) (Product, error) {
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	s.products[p.ID] = p
	return p, nil
}

func (s *stubStore) GetByID(_ context.Context, id uuid.UUID) (Product, error) {
	if p, ok := s.products[id]; ok {
		return p, nil
	}
	return Product{}, ErrNotFound
}

func (s *stubStore) GetByIDs(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]Product, error) {
	out := make(map[uuid.UUID]Product, len(ids))
	for _, id := range ids {
		if p, ok := s.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (s *stubStore) List(context.Context) ([]Product, error) {
	s.listed++
	out := make([]Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, p)
	}
	return out, nil
}

type stubEventStore struct {
	inserted []events.Event
}

func (s *stubEventStore) InsertEvent(_ context.Context, topic string, aggregateID uuid.UUID, payload []byte) (events.Event, error) {
	ev := events.Event{ID: uuid.New(), Topic: topic, AggregateID: aggregateID, Payload: payload, OccurredAt: time.Now()}
	s.inserted = append(s.inserted, ev)
	return ev, nil
}

func newTestService(t *testing.T) (*Service, *stubStore, *stubEventStore) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store := newStubStore()
	evStore := &stubEventStore{}
	svc := &Service{
		Store:  store,
		Cache:  NewCache(client, time.Minute),
		Events: &events.Bus{Store: evStore},
		Logger: zerolog.Nop(),
	}
	return svc, store, evStore
}

func TestCreateBatchValidatesAndEmits(t *testing.T) {
	svc, store, evStore := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateBatch(ctx, []ProductInput{
		{Name: "Laptop Stand", Category: "electronics", Price: 45000, Stock: 12},
		{Name: "Paperback", Category: "BOOKS", Price: 1500, Stock: 40},
	})
	require.NoError(t, err)
	require.Len(t, created, 2)
	require.Equal(t, CategoryElectronics, created[0].Category)
	require.Len(t, store.products, 2)
	require.Len(t, evStore.inserted, 2)
	require.Equal(t, events.TopicProductCreated, evStore.inserted[0].Topic)
}

func TestCreateBatchRejectsUnknownCategory(t *testing.T) {
	svc, store, _ := newTestService(t)

	_, err := svc.CreateBatch(context.Background(), []ProductInput{
		{Name: "Widget", Category: "GADGETS", Price: 100, Stock: 1},
	})
	require.Error(t, err)
	require.Empty(t, store.products, "invalid batch writes nothing")
}

func TestListServedFromCache(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateBatch(ctx, []ProductInput{
		{Name: "Desk Lamp", Category: "HOME", Price: 3000, Stock: 5},
	})
	require.NoError(t, err)

	first, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, first, 1)
	require.Equal(t, 1, store.listed)

	second, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, second, 1)
	require.Equal(t, 1, store.listed, "second list comes from cache")
}

func TestGetMissesReturnNotFound(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Get(context.Background(), uuid.New())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestParseCategory(t *testing.T) {
	c, err := ParseCategory(" grocery ")
	require.NoError(t, err)
	require.Equal(t, CategoryGrocery, c)

	_, err = ParseCategory("TOYS")
	require.Error(t, err)
}
