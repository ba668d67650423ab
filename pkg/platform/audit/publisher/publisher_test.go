package publisher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "purposepay/pkg/platform/audit"
	"purposepay/pkg/platform/audit/store/memory"
)

const subject = "0xC000000000000000000000000000000000000001"

type recordingSink struct {
	mu     sync.Mutex
	events []audit.Event
	err    error
	closed bool
}

func (s *recordingSink) Publish(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return s.err
}

func (s *recordingSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func TestPublisher_SyncMode(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	err := pub.Emit(context.Background(), audit.Event{
		Subject: subject,
		Action:  string(audit.EventBeneficiaryAdded),
	})
	require.NoError(t, err)

	events, err := pub.List(context.Background(), subject)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, string(audit.EventBeneficiaryAdded), events[0].Action)
	assert.Equal(t, audit.CategoryCompliance, events[0].Category)
	assert.NotEqual(t, [16]byte{}, [16]byte(events[0].ID))
}

func TestPublisher_AsyncDrainsOnClose(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(100))

	for range 10 {
		err := pub.Emit(context.Background(), audit.Event{
			Subject: subject,
			Action:  string(audit.EventTransferRecorded),
		})
		require.NoError(t, err)
	}

	require.NoError(t, pub.Close())

	events, err := store.ListBySubject(context.Background(), subject)
	require.NoError(t, err)
	assert.Len(t, events, 10, "all events should be drained on close")

	err = pub.Emit(context.Background(), audit.Event{Subject: subject, Action: "late"})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestPublisher_BufferFullDoesNotBlock(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(1))
	defer pub.Close()

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := pub.Emit(context.Background(), audit.Event{Subject: subject, Action: string(audit.EventTransferRecorded)})
			if err != nil {
				assert.ErrorIs(t, err, ErrBufferFull)
			}
		}()
	}
	wg.Wait()
}

func TestPublisher_Timestamps(t *testing.T) {
	t.Run("sets missing timestamp", func(t *testing.T) {
		pub := NewPublisher(memory.NewInMemoryStore())
		defer pub.Close()

		before := time.Now()
		require.NoError(t, pub.Emit(context.Background(), audit.Event{Subject: subject, Action: "x"}))
		after := time.Now()

		events, err := pub.List(context.Background(), subject)
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.False(t, events[0].Timestamp.Before(before))
		assert.False(t, events[0].Timestamp.After(after))
	})

	t.Run("preserves existing timestamp", func(t *testing.T) {
		pub := NewPublisher(memory.NewInMemoryStore())
		defer pub.Close()

		custom := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
		require.NoError(t, pub.Emit(context.Background(), audit.Event{Subject: subject, Action: "x", Timestamp: custom}))

		events, err := pub.List(context.Background(), subject)
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, custom, events[0].Timestamp)
	})
}

func TestPublisher_CancelledContextInAsyncMode(t *testing.T) {
	pub := NewPublisher(memory.NewInMemoryStore(), WithAsyncBuffer(1))
	defer pub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := pub.Emit(ctx, audit.Event{Subject: subject, Action: "x"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPublisher_Sinks(t *testing.T) {
	healthy := &recordingSink{}
	failing := &recordingSink{err: errors.New("broker down")}
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithSinks(healthy, failing))

	err := pub.Emit(context.Background(), audit.Event{Subject: subject, Action: string(audit.EventMerchantAdded)})
	require.NoError(t, err, "sink failures do not fail the emit")
	require.NoError(t, pub.Close())

	assert.Len(t, healthy.events, 1)
	assert.Len(t, failing.events, 1)
	assert.True(t, healthy.closed)

	recent, err := pub.Recent(context.Background(), 5)
	require.NoError(t, err)
	assert.Len(t, recent, 1)
}
