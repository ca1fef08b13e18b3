package cache

import (
	"context"
	"time"
)

// FetchFn is the fallback signature Service expects when a key misses: it
// computes the value from the source of truth. Declared as an alias so
// backend packages can implement Service without importing this one.
type FetchFn = func(ctx context.Context) (any, error)

// BatchFetchFn computes the value for the i-th key of a FetchMany call.
type BatchFetchFn = func(ctx context.Context, i int) (any, error)

// Service is the pluggable cache adapter: read-through fetch with TTL,
// batched fetch for homogeneous collections, and invalidation. A ttl of zero
// means no expiration. An absent Service is never an error for callers; it
// simply means compute directly.
type Service interface {
	// Fetch returns the cached value for key if present and unexpired;
	// otherwise it invokes fn, stores the result with ttl, and returns it.
	Fetch(ctx context.Context, key string, ttl time.Duration, fn FetchFn) (any, error)

	// FetchMany behaves like Fetch applied to each key in order, but lets the
	// backend batch reads and writes. Observed order, content, and per-miss
	// fallback invocation must match the unbatched behavior.
	FetchMany(ctx context.Context, keys []string, ttl time.Duration, fn BatchFetchFn) ([]any, error)

	// Delete removes key so the next Fetch hits the source of truth.
	Delete(ctx context.Context, key string) error
}

// Fetch is a type-safe wrapper over Service.Fetch for callers that know the
// concrete value type.
func Fetch[T any](ctx context.Context, service Service, key string, ttl time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	result, err := service.Fetch(ctx, key, ttl, func(ctx context.Context) (any, error) {
		return fn(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	v, _ := result.(T)
	return v, nil
}

// FetchEach is the reference FetchMany implementation: fetch each key in
// order through Service.Fetch. Backends without native batching can delegate
// to it and stay contract-correct.
func FetchEach(ctx context.Context, service Service, keys []string, ttl time.Duration, fn BatchFetchFn) ([]any, error) {
	out := make([]any, len(keys))
	for i, key := range keys {
		i := i
		v, err := service.Fetch(ctx, key, ttl, func(ctx context.Context) (any, error) {
			return fn(ctx, i)
		})
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
