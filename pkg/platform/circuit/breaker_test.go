package circuit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// event is one Record call and what the caller should observe.
type event struct {
	fail    bool
	usePrim bool // RecordSuccess result; ignored for failures
	useFall bool // RecordFailure result; ignored for successes
	opened  bool
	closed  bool
	open    bool // state after the call
}

func fail(useFallback, opened bool) event {
	return event{fail: true, useFall: useFallback, opened: opened, open: useFallback}
}

func succeed(usePrimary, closed, stillOpen bool) event {
	return event{usePrim: usePrimary, closed: closed, open: stillOpen}
}

func TestBreakerTransitions(t *testing.T) {
	tests := []struct {
		name   string
		opts   []Option
		events []event
	}{
		{
			name: "opens on the threshold failure",
			opts: []Option{WithFailureThreshold(3)},
			events: []event{
				fail(false, false),
				fail(false, false),
				fail(true, true),
			},
		},
		{
			name: "further failures while open report no transition",
			opts: []Option{WithFailureThreshold(1)},
			events: []event{
				fail(true, true),
				fail(true, false),
			},
		},
		{
			name: "closes after consecutive successes",
			opts: []Option{WithFailureThreshold(1), WithSuccessThreshold(2)},
			events: []event{
				fail(true, true),
				succeed(false, false, true),
				succeed(true, true, false),
			},
		},
		{
			name: "success while closed clears the failure streak",
			opts: []Option{WithFailureThreshold(3)},
			events: []event{
				fail(false, false),
				fail(false, false),
				succeed(true, false, false),
				fail(false, false),
				fail(false, false),
				fail(true, true),
			},
		},
		{
			name: "failure while open clears the success streak",
			opts: []Option{WithFailureThreshold(1), WithSuccessThreshold(3)},
			events: []event{
				fail(true, true),
				succeed(false, false, true),
				succeed(false, false, true),
				fail(true, false),
				succeed(false, false, true),
				succeed(false, false, true),
				succeed(true, true, false),
			},
		},
		{
			name: "non-positive thresholds keep the defaults",
			opts: []Option{WithFailureThreshold(0), WithSuccessThreshold(-1)},
			events: []event{
				fail(false, false),
				fail(false, false),
				fail(false, false),
				fail(false, false),
				fail(true, true),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New("ratelimit-redis", tt.opts...)
			for i, ev := range tt.events {
				if ev.fail {
					useFallback, change := b.RecordFailure()
					assert.Equal(t, ev.useFall, useFallback, "event %d fallback", i)
					assert.Equal(t, ev.opened, change.Opened, "event %d opened", i)
					assert.False(t, change.Closed, "event %d closed", i)
				} else {
					usePrimary, change := b.RecordSuccess()
					assert.Equal(t, ev.usePrim, usePrimary, "event %d primary", i)
					assert.Equal(t, ev.closed, change.Closed, "event %d closed", i)
					assert.False(t, change.Opened, "event %d opened", i)
				}
				require.Equal(t, ev.open, b.IsOpen(), "event %d state", i)
			}
		})
	}
}

func TestBreakerReset(t *testing.T) {
	b := New("ratelimit-redis", WithFailureThreshold(1))
	assert.Equal(t, "ratelimit-redis", b.Name())
	assert.Equal(t, StateClosed, b.State())

	b.RecordFailure()
	require.Equal(t, StateOpen, b.State())
	assert.Equal(t, "open", b.State().String())

	b.Reset()
	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, "closed", b.State().String())

	usePrimary, change := b.RecordSuccess()
	assert.True(t, usePrimary)
	assert.Equal(t, StateChange{}, change)
}
