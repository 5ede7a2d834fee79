package audit

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "casefile/pkg/domain"
)

type fakeBroker struct {
	mu      sync.Mutex
	batches [][]Event
	fail    error
}

func (b *fakeBroker) Publish(_ context.Context, events []Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fail != nil {
		return b.fail
	}
	b.batches = append(b.batches, append([]Event(nil), events...))
	return nil
}

func (b *fakeBroker) published() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, batch := range b.batches {
		n += len(batch)
	}
	return n
}

func seedEvents(t *testing.T, store *InMemoryStore, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		err := store.Append(context.Background(), Event{
			Action:  ActionCaseCreated,
			CaseID:  id.NewCaseID(),
			ActorID: id.NewPrincipalID(),
		})
		require.NoError(t, err)
	}
}

func TestRelayDrainsPendingEvents(t *testing.T) {
	store := NewMemory()
	broker := &fakeBroker{}
	relay := NewRelay(store, broker)
	seedEvents(t, store, 3)

	require.NoError(t, relay.DrainOnce(context.Background()))
	assert.Equal(t, 3, broker.published())

	// Drained events stay drained.
	require.NoError(t, relay.DrainOnce(context.Background()))
	assert.Equal(t, 3, broker.published())
}

func TestRelayRespectsBatchSize(t *testing.T) {
	store := NewMemory()
	broker := &fakeBroker{}
	relay := NewRelay(store, broker, WithRelayBatchSize(2))
	seedEvents(t, store, 5)

	require.NoError(t, relay.DrainOnce(context.Background()))
	assert.Equal(t, 2, broker.published())

	require.NoError(t, relay.DrainOnce(context.Background()))
	require.NoError(t, relay.DrainOnce(context.Background()))
	assert.Equal(t, 5, broker.published())
}

func TestRelayRetriesAfterBrokerFailure(t *testing.T) {
	store := NewMemory()
	broker := &fakeBroker{fail: errors.New("broker down")}
	relay := NewRelay(store, broker)
	seedEvents(t, store, 2)

	err := relay.DrainOnce(context.Background())
	require.Error(t, err)
	assert.Zero(t, broker.published())

	// Failed batch stays in the outbox; the next drain delivers it.
	broker.mu.Lock()
	broker.fail = nil
	broker.mu.Unlock()

	require.NoError(t, relay.DrainOnce(context.Background()))
	assert.Equal(t, 2, broker.published())
}

func TestRelayEmptyOutboxIsNoOp(t *testing.T) {
	relay := NewRelay(NewMemory(), &fakeBroker{})
	require.NoError(t, relay.DrainOnce(context.Background()))
}
