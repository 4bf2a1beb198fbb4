package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tally/internal/counter"
	"github.com/roach88/tally/internal/journal"
	"github.com/roach88/tally/internal/state"
)

func TestMain(m *testing.M) {
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
	os.Exit(m.Run())
}

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	opts = append([]Option{WithSessionGenerator(NewFixedGenerator("session-test"))}, opts...)
	return New(nil, opts...)
}

func startEngine(t *testing.T, e *Engine) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func TestNew_InitialState(t *testing.T) {
	e := newTestEngine(t)

	assert.Equal(t, "session-test", e.Session())
	assert.Equal(t, state.Root{Todos: []int64{1, 2, 3}, Counter: 0}, e.State())
	assert.Equal(t, int64(0), e.Counter())
	assert.Equal(t, int64(0), e.Clock().Current())
}

func TestNew_CopiesTodos(t *testing.T) {
	todos := []int64{9}
	e := New(todos, WithSessionGenerator(NewFixedGenerator("s")))
	todos[0] = 100

	assert.Equal(t, []int64{9}, e.State().Todos)
}

func TestNew_DefaultSessionIsUUID(t *testing.T) {
	a := New(nil)
	b := New(nil)

	assert.Len(t, a.Session(), 36)
	assert.NotEqual(t, a.Session(), b.Session())
}

func TestProcess_Sequence(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	steps := []struct {
		action counter.Action
		want   int64
	}{
		{counter.Inc(5), 5},
		{counter.Dec(2), 3},
		{counter.ResetAction(), 0},
		{counter.Dec(7), -7},
	}

	for i, s := range steps {
		got, err := e.Process(ctx, s.action)
		require.NoError(t, err)
		assert.Equal(t, s.want, state.SelectCounter(got.Root), "step %d", i)
		assert.Equal(t, []int64{1, 2, 3}, got.Todos, "todos never change")
	}
	assert.Equal(t, int64(len(steps)), e.Clock().Current())
}

func TestProcess_ReturnsSeq(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	assert.Equal(t, int64(0), e.Snapshot().Seq)

	first, err := e.Process(ctx, counter.Inc(4))
	require.NoError(t, err)
	second, err := e.Process(ctx, counter.Dec(1))
	require.NoError(t, err)

	assert.Equal(t, int64(1), first.Seq)
	assert.Equal(t, int64(2), second.Seq)
	assert.Equal(t, second, e.Snapshot())
	assert.Equal(t, int64(3), state.SelectCounter(e.State()))
}

func TestProcess_NilAction(t *testing.T) {
	e := newTestEngine(t)

	got, err := e.Process(context.Background(), nil)
	require.Error(t, err)

	var re *RuntimeError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, ErrCodeInvalidAction, re.Code)
	assert.Equal(t, int64(0), state.SelectCounter(got.Root))
	assert.Equal(t, int64(0), e.Clock().Current(), "rejected actions do not advance the clock")
}

func TestProcess_RejectedWhileRunning(t *testing.T) {
	e := newTestEngine(t)
	startEngine(t, e)

	require.Eventually(t, func() bool { return e.running.Load() }, time.Second, time.Millisecond)

	_, err := e.Process(context.Background(), counter.Inc(1))
	var re *RuntimeError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, ErrCodeWriterActive, re.Code)
}

func TestProcess_AfterStop(t *testing.T) {
	e := newTestEngine(t)
	e.Stop()

	_, err := e.Process(context.Background(), counter.Inc(1))
	assert.True(t, IsStoppedError(err))
	assert.False(t, e.Enqueue(counter.Inc(1)))
}

func TestDispatch_AppliesInOrder(t *testing.T) {
	e := newTestEngine(t)
	startEngine(t, e)
	ctx := context.Background()

	got, err := e.Dispatch(ctx, counter.Inc(10))
	require.NoError(t, err)
	assert.Equal(t, int64(10), state.SelectCounter(got.Root))

	got, err = e.Dispatch(ctx, counter.Dec(3))
	require.NoError(t, err)
	assert.Equal(t, int64(7), state.SelectCounter(got.Root))

	assert.Equal(t, int64(7), e.Counter())
}

func TestDispatch_NilAction(t *testing.T) {
	e := newTestEngine(t)
	startEngine(t, e)

	_, err := e.Dispatch(context.Background(), nil)
	var re *RuntimeError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, ErrCodeInvalidAction, re.Code)
}

func TestDispatch_Concurrent(t *testing.T) {
	e := newTestEngine(t)
	startEngine(t, e)
	ctx := context.Background()

	const workers = 20
	const perWorker = 50

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				snap, err := e.Dispatch(ctx, counter.Inc(1))
				assert.NoError(t, err)
				assert.Equal(t, snap.Seq, state.SelectCounter(snap.Root), "seq and counter come from one transition")

				pub := e.Snapshot()
				assert.Equal(t, pub.Seq, state.SelectCounter(pub.Root), "published snapshot is consistent")
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(workers*perWorker), e.Counter())
	assert.Equal(t, int64(workers*perWorker), e.Clock().Current())
}

func TestDispatch_ContextCancelled(t *testing.T) {
	e := newTestEngine(t)

	// No Run loop: the action waits in the queue.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Dispatch(ctx, counter.Inc(1))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, e.queue.Len())
}

func TestRun_StopDrainsQueue(t *testing.T) {
	e := newTestEngine(t)

	for i := 0; i < 5; i++ {
		require.True(t, e.Enqueue(counter.Inc(2)))
	}
	e.Stop()

	require.NoError(t, e.Run(context.Background()))
	assert.Equal(t, int64(10), e.Counter())
	assert.Equal(t, 0, e.queue.Len())
}

func TestRun_CancelFailsPending(t *testing.T) {
	e := newTestEngine(t)

	reply := make(chan Result, 1)
	require.True(t, e.queue.Enqueue(Event{Action: counter.Inc(1), Reply: reply}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// The queued event may or may not be processed before cancellation is
	// observed; either outcome answers the reply.
	err := e.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	r := <-reply
	if r.Err != nil {
		assert.True(t, IsStoppedError(r.Err))
	} else {
		assert.Equal(t, int64(1), state.SelectCounter(r.Snapshot.Root))
	}

	_, err = e.Dispatch(context.Background(), counter.Inc(1))
	assert.True(t, IsStoppedError(err))
}

func TestRun_OnlyOneWriter(t *testing.T) {
	e := newTestEngine(t)
	startEngine(t, e)

	require.Eventually(t, func() bool { return e.running.Load() }, time.Second, time.Millisecond)

	err := e.Run(context.Background())
	var re *RuntimeError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, ErrCodeWriterActive, re.Code)
}

func TestSubscribe(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	var seen []int64
	unsubscribe := e.Subscribe(func(r state.Root) {
		seen = append(seen, state.SelectCounter(r))
	})

	_, _ = e.Process(ctx, counter.Inc(1))
	_, _ = e.Process(ctx, counter.Inc(1))
	unsubscribe()
	unsubscribe()
	_, _ = e.Process(ctx, counter.Inc(1))

	assert.Equal(t, []int64{1, 2}, seen)
}

func TestSubscribe_OrderPreserved(t *testing.T) {
	e := newTestEngine(t)

	var calls []string
	e.Subscribe(func(state.Root) { calls = append(calls, "a") })
	unsubB := e.Subscribe(func(state.Root) { calls = append(calls, "b") })
	e.Subscribe(func(state.Root) { calls = append(calls, "c") })
	unsubB()

	_, _ = e.Process(context.Background(), counter.ResetAction())
	assert.Equal(t, []string{"a", "c"}, calls)
}

func TestSnapshot_NotAffectedByLaterActions(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	first, err := e.Process(ctx, counter.Inc(1))
	require.NoError(t, err)
	_, err = e.Process(ctx, counter.Inc(1))
	require.NoError(t, err)

	assert.Equal(t, int64(1), state.SelectCounter(first.Root))
	assert.Equal(t, int64(2), e.Counter())
}

func TestJournal_RecordsEveryTransition(t *testing.T) {
	j, err := journal.Open(journal.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })

	e := newTestEngine(t, WithRecorder(j))
	ctx := context.Background()

	for _, a := range []counter.Action{counter.Inc(5), counter.Dec(2), counter.ResetAction()} {
		_, err := e.Process(ctx, a)
		require.NoError(t, err)
	}

	s, err := j.ReadSession(ctx, "session-test")
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, s.Todos)

	entries, err := j.ReadEntries(ctx, "session-test")
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, "counter/increment", entries[0].Type)
	assert.Equal(t, int64(5), entries[0].Counter)
	assert.Equal(t, int64(1), entries[0].Seq)
	assert.Equal(t, "counter/decrement", entries[1].Type)
	assert.Equal(t, int64(3), entries[1].Counter)
	assert.Equal(t, "counter/reset", entries[2].Type)
	assert.Equal(t, int64(0), entries[2].Counter)
	assert.Equal(t, e.State().Hash(), entries[2].StateHash)
}

type failingRecorder struct{}

func (failingRecorder) WriteSession(context.Context, journal.Session) error {
	return errors.New("disk on fire")
}

func (failingRecorder) WriteEntry(context.Context, journal.Entry) error {
	return errors.New("disk on fire")
}

func TestJournal_FailureDoesNotBlockTransition(t *testing.T) {
	e := newTestEngine(t, WithRecorder(failingRecorder{}))

	got, err := e.Process(context.Background(), counter.Inc(3))
	require.NoError(t, err)
	assert.Equal(t, int64(3), state.SelectCounter(got.Root))
}

func TestWithClock(t *testing.T) {
	e := newTestEngine(t, WithClock(NewClockAt(41)))

	_, err := e.Process(context.Background(), counter.Inc(1))
	require.NoError(t, err)
	assert.Equal(t, int64(42), e.Clock().Current())
	assert.Equal(t, int64(42), e.Snapshot().Seq)
}
