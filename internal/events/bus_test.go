package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	events []Event
	err    error
}

func (m *memoryStore) InsertEvent(_ context.Context, topic string, aggregateID uuid.UUID, payload []byte) (Event, error) {
	if m.err != nil {
		return Event{}, m.err
	}
	ev := Event{
		ID:          uuid.New(),
		Topic:       topic,
		AggregateID: aggregateID,
		Payload:     payload,
		OccurredAt:  time.Now(),
	}
	m.events = append(m.events, ev)
	return ev, nil
}

type recordingNotifier struct {
	seen []Event
	err  error
}

func (r *recordingNotifier) Notify(_ context.Context, event Event) error {
	r.seen = append(r.seen, event)
	return r.err
}

func TestEmitPersistsAndNotifies(t *testing.T) {
	store := &memoryStore{}
	notifier := &recordingNotifier{}
	bus := &Bus{Store: store, Notifiers: []Notifier{notifier}}

	aggregate := uuid.New()
	ev, err := bus.Emit(context.Background(), TopicOrderConfirmed, aggregate, map[string]any{"total": 1500})
	require.NoError(t, err)
	require.Equal(t, TopicOrderConfirmed, ev.Topic)
	require.Equal(t, aggregate, ev.AggregateID)
	require.JSONEq(t, `{"total":1500}`, string(ev.Payload))
	require.Len(t, store.events, 1)
	require.Len(t, notifier.seen, 1)
}

func TestEmitRejectsInvalidInput(t *testing.T) {
	bus := &Bus{Store: &memoryStore{}}

	_, err := bus.Emit(context.Background(), "  ", uuid.New(), nil)
	require.Error(t, err)

	_, err = bus.Emit(context.Background(), TopicOrderConfirmed, uuid.Nil, nil)
	require.Error(t, err)

	_, err = bus.Emit(context.Background(), TopicOrderConfirmed, uuid.New(), "not-json")
	require.Error(t, err)
}

func TestEmitSurfacesNotifierErrors(t *testing.T) {
	store := &memoryStore{}
	failing := &recordingNotifier{err: errors.New("downstream unavailable")}
	bus := &Bus{Store: store, Notifiers: []Notifier{failing}}

	_, err := bus.Emit(context.Background(), TopicOrderConfirmed, uuid.New(), nil)
	require.Error(t, err)
	require.Len(t, store.events, 1, "event persists even when a notifier fails")
}

func TestEmitNilPayloadDefaultsToEmptyObject(t *testing.T) {
	store := &memoryStore{}
	bus := &Bus{Store: store}

	ev, err := bus.Emit(context.Background(), TopicProductCreated, uuid.New(), nil)
	require.NoError(t, err)
	require.Equal(t, "{}", string(ev.Payload))
}
