package job

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskQueue_FIFO(t *testing.T) {
	q := newTaskQueue()

	ids := make([]uuid.UUID, 3)
	for i := range ids {
		ids[i] = uuid.New()
		require.True(t, q.Enqueue(&task{id: ids[i]}))
	}
	assert.Equal(t, 3, q.Len())

	for _, want := range ids {
		got, ok := q.TryDequeue()
		require.True(t, ok)
		assert.Equal(t, want, got.id)
	}

	_, ok := q.TryDequeue()
	assert.False(t, ok)
	assert.Equal(t, 0, q.Len())
}

func TestTaskQueue_SignalCoalesces(t *testing.T) {
	q := newTaskQueue()

	q.Enqueue(&task{id: uuid.New()})
	q.Enqueue(&task{id: uuid.New()})

	// Two enqueues, one pending wake-up.
	<-q.Wait()
	select {
	case <-q.Wait():
		t.Fatal("second wake-up should not be pending")
	default:
	}
}

func TestTaskQueue_Close(t *testing.T) {
	q := newTaskQueue()
	require.True(t, q.Enqueue(&task{id: uuid.New()}))

	q.Close()
	q.Close() // idempotent

	assert.False(t, q.Enqueue(&task{id: uuid.New()}))

	// The closed signal channel wakes every waiter immediately.
	<-q.Wait()
	<-q.Wait()

	// Tasks enqueued before the close still drain.
	_, ok := q.TryDequeue()
	assert.True(t, ok)
}

func TestCompletionQueue_FIFO(t *testing.T) {
	q := newCompletionQueue()

	for i := 0; i < 3; i++ {
		q.Push(completion{t: &task{id: uuid.New()}, res: Result{Value: i}})
	}
	assert.Equal(t, 3, q.Len())

	for i := 0; i < 3; i++ {
		c, ok := q.Pop()
		require.True(t, ok)
		assert.Equal(t, i, c.res.Value)
	}

	_, ok := q.Pop()
	assert.False(t, ok)
}
