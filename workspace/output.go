package workspace

import (
	"context"
	"sync"
)

// Output is a lazily-resolved, memoized value with an associated freshness
// predicate. Resolving the same Output concurrently runs the underlying
// computation at most once; a memoized value is recomputed only when the
// freshness predicate reports it stale.
type Output[T any] struct {
	mu       sync.Mutex
	resolved bool
	value    T
	err      error

	fresh   func(ctx context.Context) bool
	resolve func(ctx context.Context) (T, error)
}

// NewOutput creates an output backed by the given resolve function. A nil
// fresh predicate keeps a resolved value for the process lifetime.
func NewOutput[T any](fresh func(ctx context.Context) bool, resolve func(ctx context.Context) (T, error)) *Output[T] {
	return &Output[T]{fresh: fresh, resolve: resolve}
}

// Value wraps an already-known value as a resolved output.
func Value[T any](value T) *Output[T] {
	return &Output[T]{resolved: true, value: value}
}

// Resolve returns the output value, computing it when unresolved or stale.
func (o *Output[T]) Resolve(ctx context.Context) (T, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.resolved && o.err == nil && (o.fresh == nil || o.fresh(ctx)) {
		return o.value, nil
	}
	o.value, o.err = o.resolve(ctx)
	o.resolved = true
	return o.value, o.err
}
