package input

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBindsBus_PublishSubscribe(t *testing.T) {
	b := NewBindsBus()
	assert.Equal(t, 0, b.Subscribers())

	ch, cancel := b.Subscribe()
	defer cancel()
	assert.Equal(t, 1, b.Subscribers())

	b.Publish([]string{"F10: screenshot"})
	assert.Equal(t, []string{"F10: screenshot"}, <-ch)
}

func TestBindsBus_SlowSubscriberGetsLatest(t *testing.T) {
	b := NewBindsBus()
	ch, cancel := b.Subscribe()
	defer cancel()

	// Three publishes without a read in between: only the newest snapshot
	// survives, the publisher never blocks.
	b.Publish([]string{"one"})
	b.Publish([]string{"two"})
	b.Publish([]string{"three"})

	assert.Equal(t, []string{"three"}, <-ch)
	select {
	case extra := <-ch:
		t.Fatalf("unexpected extra snapshot %v", extra)
	default:
	}
}

func TestBindsBus_Unsubscribe(t *testing.T) {
	b := NewBindsBus()
	ch, cancel := b.Subscribe()

	cancel()
	assert.Equal(t, 0, b.Subscribers())

	// The channel closes on unsubscribe.
	_, open := <-ch
	assert.False(t, open)

	// A second cancel is harmless.
	cancel()
}

func TestBindsBus_IndependentSubscribers(t *testing.T) {
	b := NewBindsBus()
	ch1, cancel1 := b.Subscribe()
	defer cancel1()
	ch2, cancel2 := b.Subscribe()
	defer cancel2()

	b.Publish([]string{"a: move"})
	require.Equal(t, []string{"a: move"}, <-ch1)
	require.Equal(t, []string{"a: move"}, <-ch2)
}
