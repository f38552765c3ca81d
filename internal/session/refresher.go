package session

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrStale is returned by Refresh when a newer refresh started before this
// one finished. The stale result is discarded.
var ErrStale = errors.New("stale response discarded")

// Func fetches and parses one view. On failure it returns the view's defaults
// together with the error; both are committed.
type Func[T any] func(ctx context.Context) (T, error)

type State[T any] struct {
	Key       string
	Value     T
	Err       error
	Seq       uint64
	UpdatedAt time.Time
}

// Loaded reports whether any refresh has committed yet.
func (s State[T]) Loaded() bool {
	return s.Seq > 0
}

type Option[T any] func(*Refresher[T])

// KeepValueOnError commits a failed refresh's error but leaves the last
// committed value in place. Before the first commit the failed call's value
// is used.
func KeepValueOnError[T any]() Option[T] {
	return func(r *Refresher[T]) { r.keepOnError = true }
}

// OnCommit runs fn with every committed state, in commit order. fn runs while
// the refresher is locked and must not call back into it.
func OnCommit[T any](fn func(State[T])) Option[T] {
	return func(r *Refresher[T]) { r.onCommit = append(r.onCommit, fn) }
}

// Refresher serialises refreshes of one view. Only the most recently started
// call may commit; starting a call cancels the one in flight.
type Refresher[T any] struct {
	fn          Func[T]
	now         func() time.Time
	key         string
	keepOnError bool
	onCommit    []func(State[T])

	mu      sync.Mutex
	seq     uint64
	cancel  context.CancelFunc
	current State[T]
}

func NewRefresher[T any](fn Func[T], opts ...Option[T]) *Refresher[T] {
	r := &Refresher[T]{fn: fn, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Refresher[T]) Refresh(ctx context.Context) (T, error) {
	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
	}
	r.seq++
	seq := r.seq
	callCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.mu.Unlock()
	defer cancel()

	value, err := r.fn(callCtx)

	r.mu.Lock()
	defer r.mu.Unlock()
	if seq != r.seq {
		var zero T
		return zero, ErrStale
	}
	r.cancel = nil
	if err != nil && r.keepOnError && r.current.Loaded() {
		value = r.current.Value
	}
	r.current = State[T]{Key: r.key, Value: value, Err: err, Seq: seq, UpdatedAt: r.now()}
	for _, fn := range r.onCommit {
		fn(r.current)
	}
	return value, err
}

func (r *Refresher[T]) Snapshot() State[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Group holds one Refresher per key, created on first use. Every refresher
// gets the group's options; committed states carry their key.
type Group[T any] struct {
	fn   func(ctx context.Context, key string) (T, error)
	opts []Option[T]

	mu    sync.Mutex
	items map[string]*Refresher[T]
}

func NewGroup[T any](fn func(ctx context.Context, key string) (T, error), opts ...Option[T]) *Group[T] {
	return &Group[T]{fn: fn, opts: opts, items: map[string]*Refresher[T]{}}
}

func (g *Group[T]) Get(key string) *Refresher[T] {
	g.mu.Lock()
	defer g.mu.Unlock()
	if r, ok := g.items[key]; ok {
		return r
	}
	r := NewRefresher(func(ctx context.Context) (T, error) {
		return g.fn(ctx, key)
	}, g.opts...)
	r.key = key
	g.items[key] = r
	return r
}

// Keys lists the keys with a refresher, in no particular order.
func (g *Group[T]) Keys() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]string, 0, len(g.items))
	for key := range g.items {
		out = append(out, key)
	}
	return out
}
