package tilecache

import (
	"context"
	"sync"
)

// Future is a deferred result resolved exactly once with a value or an
// error. It is the cached unit of work: concurrent requests for the same
// tile share one Future, so at most one producer runs per key.
type Future[V any] struct {
	once sync.Once
	done chan struct{}
	val  V
	err  error
}

// NewFuture creates an unresolved future.
func NewFuture[V any]() *Future[V] {
	return &Future[V]{done: make(chan struct{})}
}

// Resolve completes the future with a value. Later completions are ignored.
func (f *Future[V]) Resolve(v V) {
	f.once.Do(func() {
		f.val = v
		close(f.done)
	})
}

// Reject completes the future with an error. Later completions are ignored.
func (f *Future[V]) Reject(err error) {
	f.once.Do(func() {
		f.err = err
		close(f.done)
	})
}

// Wait blocks until the future completes or the context is canceled.
// Cancellation abandons only this wait; the shared work keeps running and
// its result stays cached for the next caller.
func (f *Future[V]) Wait(ctx context.Context) (V, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero V
		return zero, ctx.Err()
	}
}

// Done reports completion without blocking.
func (f *Future[V]) Done() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}
