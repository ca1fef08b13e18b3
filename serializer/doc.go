// Package serializer converts in-memory domain values into plain key-value
// documents for API request/response boundaries.
//
// # Overview
//
// Fields are declared explicitly per serializer type; there is no whole-graph
// reflective walker. A Type holds an ordered field registry that derived
// types inherit and may override, remove from, or extend. A Serializer binds
// one source value and an option bag to a Type and produces a Document; a
// Collection applies one Type across a sequence and produces an array.
//
// The design privileges per-request throughput: a call-scoped dedup memo
// collapses structurally identical branches into one computation, circular
// references fail fast instead of recursing, and resolved sub-trees can be
// memoized across requests through the cache package.
//
// # Declaring Types
//
//	user := serializer.Define("user", nil).
//		Attributes("id", "name").
//		MustDeclare(serializer.Options{"optional": true}, "description")
//
//	post := serializer.Define("post", nil).
//		Attributes("id", "title").
//		MustDeclare(serializer.Options{
//			"serializer": user,
//		}, "author")
//
// Declarations happen at startup; once a type has served its first document
// its registry is frozen and further declarations fail with a
// *ConfigurationError.
//
// # Producing Documents
//
//	s := serializer.New(post, somePost, serializer.Options{
//		"include": []string{"description"},
//	})
//	doc, err := s.Document(ctx)   // map[string]any, or nil for an absent source
//	body, err := s.Encode(ctx, codec.JSON())
//
// Optional fields render only when named in the include option; excluded
// fields never render. Both accept a flat name list or a per-field map whose
// values are forwarded to the nested serializer for that field.
//
// # Sources
//
// A source can satisfy the lookup in any of four ways, tried in order: a
// descriptor-level Value override, the Attributer capability, a plain
// map[string]any, or reflection over niladic methods and exported struct
// fields. Values implementing cache.CacheKeyer additionally get stable,
// process-independent cache keys.
//
// # Scopes, Deduplication, and Cycles
//
// Every top-level Document call runs inside a scope carried on the context.
// Within one scope, equal (type, source, options) triples resolve to a single
// serializer instance and a single computation. A source value that reappears
// while it is still being resolved fails immediately with a
// *CircularReferenceError.
//
// Several top-level serializers can share one scope by deriving the context
// up front:
//
//	ctx := serializer.WithScope(ctx)
//
// A scope must never be shared between concurrent top-level calls;
// independent calls on the same parent context automatically get independent
// scopes.
//
// # Caching
//
// Cache policy resolves instance options first, then the type chain, then the
// process-wide default installed via cache.SetDefault. A cacheable type's
// document is fetched by derived key with the configured TTL; a cacheable
// collection issues one batched fetch for all elements. No service resolved
// means compute directly, never an error.
package serializer
