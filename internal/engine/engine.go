package engine

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/roach88/tally/internal/counter"
	"github.com/roach88/tally/internal/ir"
	"github.com/roach88/tally/internal/journal"
	"github.com/roach88/tally/internal/state"
)

// SessionGenerator produces the token identifying one engine instance.
// Implemented by UUIDv7Generator (production) and FixedGenerator (tests).
type SessionGenerator interface {
	Generate() string
}

// Recorder receives one entry per applied action. Implemented by
// *journal.Journal.
type Recorder interface {
	WriteSession(ctx context.Context, s journal.Session) error
	WriteEntry(ctx context.Context, e journal.Entry) error
}

// Listener is called with every new snapshot.
type Listener func(state.Root)

// Snapshot is a published state together with the seq of the transition
// that produced it. The initial snapshot has Seq equal to the clock's
// starting position.
type Snapshot struct {
	state.Root
	Seq int64
}

type subscription struct {
	id int
	fn Listener
}

// Engine owns the composite state and applies actions to it one at a time.
//
// Thread-safety model:
//   - State, Enqueue, Dispatch, Subscribe, Stop: safe from any goroutine
//   - Run: exactly one goroutine
//   - Process: only from the goroutine that owns the engine, never while
//     Run is active
type Engine struct {
	session  string
	todos    []int64
	clock    *Clock
	queue    *eventQueue
	recorder Recorder
	current  atomic.Pointer[Snapshot]

	running atomic.Bool
	stopped atomic.Bool

	// Only touched by the writer.
	sessionRecorded bool

	mu        sync.Mutex
	listeners []subscription
	nextSubID int
}

// Option configures an Engine.
type Option func(*options)

type options struct {
	recorder Recorder
	gen      SessionGenerator
	clock    *Clock
}

// WithRecorder journals every applied action to r.
func WithRecorder(r Recorder) Option {
	return func(o *options) { o.recorder = r }
}

// WithSessionGenerator overrides the session token source.
// Default: UUIDv7Generator.
func WithSessionGenerator(g SessionGenerator) Option {
	return func(o *options) { o.gen = g }
}

// WithClock starts the engine from an existing clock position.
func WithClock(c *Clock) Option {
	return func(o *options) { o.clock = c }
}

// New creates an engine whose composite state holds a copy of todos and a
// counter at 0. A nil todos uses state.DefaultTodos.
func New(todos []int64, opts ...Option) *Engine {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.gen == nil {
		o.gen = UUIDv7Generator{}
	}
	if o.clock == nil {
		o.clock = NewClock()
	}

	initial := state.New(todos)
	e := &Engine{
		session:  o.gen.Generate(),
		todos:    initial.Todos,
		clock:    o.clock,
		queue:    newEventQueue(),
		recorder: o.recorder,
	}
	e.current.Store(&Snapshot{Root: initial, Seq: o.clock.Current()})
	return e
}

// Session returns the token identifying this engine instance.
func (e *Engine) Session() string {
	return e.session
}

// Clock returns the engine's logical clock.
func (e *Engine) Clock() *Clock {
	return e.clock
}

// Snapshot returns the latest published state and its seq as one value.
// The Todos slice is shared; callers must not modify it.
func (e *Engine) Snapshot() Snapshot {
	return *e.current.Load()
}

// State returns the latest published composite state.
func (e *Engine) State() state.Root {
	return e.Snapshot().Root
}

// Counter is shorthand for state.SelectCounter(e.State()).
func (e *Engine) Counter() int64 {
	return state.SelectCounter(e.State())
}

// Subscribe registers fn to be called after every transition. The
// returned function removes it; calling it more than once is harmless.
func (e *Engine) Subscribe(fn Listener) (unsubscribe func()) {
	e.mu.Lock()
	id := e.nextSubID
	e.nextSubID++
	e.listeners = append(e.listeners, subscription{id: id, fn: fn})
	e.mu.Unlock()

	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		for i, s := range e.listeners {
			if s.id == id {
				e.listeners = append(e.listeners[:i:i], e.listeners[i+1:]...)
				return
			}
		}
	}
}

// Process applies a directly on the calling goroutine and returns the
// snapshot it produced.
func (e *Engine) Process(ctx context.Context, a counter.Action) (Snapshot, error) {
	if e.stopped.Load() {
		return e.Snapshot(), newStoppedError(e.session)
	}
	if e.running.Load() {
		return e.Snapshot(), newWriterActiveError(e.session)
	}
	return e.apply(ctx, a)
}

// Enqueue submits a for the Run loop without waiting.
// Returns false once the engine has stopped.
func (e *Engine) Enqueue(a counter.Action) bool {
	if a == nil {
		return false
	}
	return e.queue.Enqueue(Event{Action: a})
}

// Dispatch submits a to the Run loop and waits for the snapshot it
// produced.
//
// If ctx ends first Dispatch returns ctx.Err(), but the action stays
// queued and will still be applied.
func (e *Engine) Dispatch(ctx context.Context, a counter.Action) (Snapshot, error) {
	if a == nil {
		return e.Snapshot(), newInvalidActionError(e.session)
	}

	reply := make(chan Result, 1)
	if !e.queue.Enqueue(Event{Action: a, Reply: reply}) {
		return e.Snapshot(), newStoppedError(e.session)
	}

	select {
	case <-ctx.Done():
		return e.Snapshot(), ctx.Err()
	case r := <-reply:
		return r.Snapshot, r.Err
	}
}

// Run is the single-writer loop. It blocks until ctx is cancelled or Stop
// is called. After Stop, actions already queued are applied before Run
// returns nil; after cancellation they are answered with ENGINE_STOPPED.
func (e *Engine) Run(ctx context.Context) error {
	if !e.running.CompareAndSwap(false, true) {
		return newWriterActiveError(e.session)
	}
	defer e.running.Store(false)

	slog.Info("engine starting", "session", e.session)

	for {
		if ev, ok := e.queue.TryDequeue(); ok {
			e.handle(ctx, ev)
			continue
		}

		select {
		case <-ctx.Done():
			slog.Info("engine stopping: context cancelled", "session", e.session)
			e.stop()
			e.failPending()
			return ctx.Err()

		case <-e.queue.Wait():
			// A stale signal can arrive after its event was already
			// drained; only a closed, empty queue ends the loop.
			if e.stopped.Load() && e.queue.Len() == 0 {
				slog.Info("engine stopping: queue closed", "session", e.session)
				return nil
			}
		}
	}
}

// Stop closes the queue. Further Enqueue, Dispatch and Process calls fail.
func (e *Engine) Stop() {
	e.stop()
}

func (e *Engine) stop() {
	e.stopped.Store(true)
	e.queue.Close()
}

func (e *Engine) handle(ctx context.Context, ev Event) {
	snap, err := e.apply(ctx, ev.Action)
	if ev.Reply != nil {
		ev.Reply <- Result{Snapshot: snap, Err: err}
	}
}

func (e *Engine) failPending() {
	for _, ev := range e.queue.Drain() {
		if ev.Reply != nil {
			ev.Reply <- Result{Snapshot: e.Snapshot(), Err: newStoppedError(e.session)}
		}
	}
}

// apply is the only place the state changes. Called by exactly one
// goroutine at a time.
func (e *Engine) apply(ctx context.Context, a counter.Action) (Snapshot, error) {
	if a == nil {
		return e.Snapshot(), newInvalidActionError(e.session)
	}

	next := state.Reduce(e.State(), a)
	seq := e.clock.Next()
	snap := Snapshot{Root: next, Seq: seq}
	e.current.Store(&snap)

	slog.Debug("action applied",
		"session", e.session,
		"seq", seq,
		"type", a.Type(),
		"counter", next.Counter,
	)

	e.record(ctx, seq, a, next)
	e.notify(next)

	return snap, nil
}

// record journals one transition. Journal failures are logged and the
// transition stands.
func (e *Engine) record(ctx context.Context, seq int64, a counter.Action, next state.Root) {
	if e.recorder == nil {
		return
	}

	if !e.sessionRecorded {
		err := e.recorder.WriteSession(ctx, journal.Session{
			ID:            e.session,
			EngineVersion: ir.EngineVersion,
			SchemaVersion: ir.SchemaVersion,
			Todos:         e.todos,
		})
		if err != nil {
			slog.Error("journal session write failed", "session", e.session, "error", err)
			return
		}
		e.sessionRecorded = true
	}

	args := a.Args()
	id, err := ir.EntryID(e.session, string(a.Type()), args, seq)
	if err != nil {
		slog.Error("journal entry id failed", "session", e.session, "seq", seq, "error", err)
		return
	}

	entry := journal.Entry{
		ID:        id,
		Session:   e.session,
		Seq:       seq,
		Type:      string(a.Type()),
		Args:      args,
		Counter:   state.SelectCounter(next),
		StateHash: next.Hash(),
	}
	if err := e.recorder.WriteEntry(ctx, entry); err != nil {
		slog.Error("journal entry write failed",
			"session", e.session,
			"seq", seq,
			"type", entry.Type,
			"error", err,
		)
	}
}

func (e *Engine) notify(next state.Root) {
	e.mu.Lock()
	subs := make([]subscription, len(e.listeners))
	copy(subs, e.listeners)
	e.mu.Unlock()

	for _, s := range subs {
		s.fn(next)
	}
}
