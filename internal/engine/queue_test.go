package engine

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tally/internal/counter"
)

func TestEventQueue_FIFO(t *testing.T) {
	q := newEventQueue()

	for i := int64(1); i <= 3; i++ {
		require.True(t, q.Enqueue(Event{Action: counter.Inc(i)}))
	}
	assert.Equal(t, 3, q.Len())

	for i := int64(1); i <= 3; i++ {
		ev, ok := q.TryDequeue()
		require.True(t, ok)
		assert.Equal(t, counter.Inc(i), ev.Action)
	}

	_, ok := q.TryDequeue()
	assert.False(t, ok)
}

func TestEventQueue_SignalCoalesces(t *testing.T) {
	q := newEventQueue()
	q.Enqueue(Event{Action: counter.Inc(1)})
	q.Enqueue(Event{Action: counter.Inc(2)})

	<-q.Wait()
	select {
	case <-q.Wait():
		t.Fatal("expected a single buffered signal")
	default:
	}
	assert.Equal(t, 2, q.Len())
}

func TestEventQueue_Close(t *testing.T) {
	q := newEventQueue()
	q.Enqueue(Event{Action: counter.ResetAction()})
	q.Close()
	q.Close()

	assert.False(t, q.Enqueue(Event{Action: counter.Inc(1)}))

	// Wait is closed, so it fires repeatedly.
	<-q.Wait()
	<-q.Wait()

	drained := q.Drain()
	require.Len(t, drained, 1)
	assert.Equal(t, 0, q.Len())
}

func TestEventQueue_ConcurrentEnqueue(t *testing.T) {
	q := newEventQueue()
	const producers = 10
	const perProducer = 100

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Enqueue(Event{Action: counter.Inc(1)})
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, producers*perProducer, q.Len())
}
