// Package cache provides the caching contract and key derivation used by the
// serialization core.
//
// # Overview
//
// The package exports two main interfaces and their default implementations:
//
//   - Service: a read-through cache adapter with TTL, batched fetch, and
//     invalidation
//   - KeySerializer: builds stable cache keys from a name and arguments
//
// The serialization core treats a Service as optional: whenever resolution
// finds no service, it computes directly. Cache unavailability is never a
// core-originated failure.
//
// # Basic Usage
//
// The simplest setup installs the bundled in-memory service as the process
// default at startup:
//
//	svc, err := cache.NewService(cache.DefaultConfig())
//	if err != nil {
//		// configuration error
//	}
//	cache.SetDefault(svc)
//
// Read-through access is a single call; the fallback runs only on a miss:
//
//	doc, err := cache.Fetch(ctx, svc, key, 2*time.Second, func(ctx context.Context) (serializer.Document, error) {
//		return computeDocument(ctx)
//	})
//
// # Key Derivation Strategy
//
// The default key serializer uses reflection to handle various Go types:
//
//   - Values implementing CacheKeyer: their stable key, always preferred
//   - Basic types: direct string representation
//   - Slices/arrays: recursive encoding of elements
//   - Maps: entries sorted by encoded key for deterministic output
//   - Structs: exported fields as name:value pairs
//   - Function pointers: %p formatting, stable within one process
//   - Anything else: JSON fallback with error handling
//
// Keys longer than MaxKeyLength are compacted to the name prefix plus an
// xxhash digest of the full key, so backends with key-size limits keep
// working and equal inputs still map to equal keys.
//
// # Warnings for Pointer-Bearing Values
//
// Reflective keys containing function or channel pointers are stable only
// within a single process lifetime. For distributed caching, give source
// values a CacheKey method and the derived key becomes process-independent.
//
// # Custom Services
//
// Any backend can implement Service. FetchMany must preserve the order of the
// requested keys and invoke the fallback exactly once per miss; backends
// without native batching can delegate to FetchEach, which guarantees both.
//
// # TTL Semantics
//
// A ttl of zero means no expiration. TTL is cache-store metadata, not a
// computation deadline; nothing in this package cancels or times out a
// fallback.
//
// # See Also
//
// For the serialization engine consuming this contract, see the serializer
// package.
package cache
