package serializer

import (
	"context"
	"sync"
	"time"

	"github.com/goliatone/go-serializer/cache"
	"github.com/goliatone/go-serializer/codec"
)

// Document is the plain mapping a serializer produces. A nil Document is the
// absent marker, distinct from an empty mapping: it means the source value
// itself was absent. Documents are immutable once computed and therefore
// safely shareable for reads, including through a shared cache.
type Document map[string]any

// Serializer binds one source value and an option set to a serializer type.
// Instances are immutable after construction; the computed document is
// memoized, so repeated Document calls return the identical result.
type Serializer struct {
	typ    *Type
	source any
	opts   Options

	mu       sync.Mutex
	resolved bool
	doc      Document
	err      error
}

// New constructs a serializer over source. opts may be nil.
func New(typ *Type, source any, opts Options) *Serializer {
	return &Serializer{typ: typ, source: source, opts: opts}
}

// Type returns the serializer type this instance is bound to.
func (s *Serializer) Type() *Type { return s.typ }

// Source returns the bound source value.
func (s *Serializer) Source() any { return s.source }

// Option returns a caller-supplied option and whether it was present.
func (s *Serializer) Option(key string) (any, bool) {
	return s.opts.Option(key)
}

// Cacheable resolves the cache flag: instance option, then the type chain,
// then false.
func (s *Serializer) Cacheable() bool {
	return resolveCacheable(s.opts, s.typ)
}

// CacheTTL resolves the cache entry lifetime; zero means no expiration.
func (s *Serializer) CacheTTL() time.Duration {
	return resolveCacheTTL(s.opts, s.typ)
}

// CacheService resolves the cache service: instance option, type chain, then
// the process-wide default. nil means compute directly.
func (s *Serializer) CacheService() cache.Service {
	return resolveCacheService(s.opts, s.typ)
}

// CacheKey derives the deterministic cache identity of this instance from the
// type name, the source value (honoring cache.CacheKeyer), and the
// shape-affecting options in canonical form.
func (s *Serializer) CacheKey() string {
	name := ""
	if s.typ != nil {
		name = s.typ.name
	}
	return keyer.SerializeKey(name, s.source, map[string]any(canonicalOptions(s.opts)))
}

// Document computes the output mapping, or nil for an absent source. The
// first call resolves fields inside the active (or a fresh) scope, consulting
// the cache when the resolved policy says so; later calls return the memoized
// result.
func (s *Serializer) Document(ctx context.Context) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.resolved {
		return s.doc, s.err
	}

	ctx, sc := ensureScope(ctx)

	// Collapse into an equal instance the scope already resolved or adopted.
	// The delegated result is memoized here too, so this instance keeps the
	// same identity after the scope is gone.
	if canonical := sc.adopt(s); canonical != s {
		s.doc, s.err = canonical.Document(ctx)
		s.resolved = true
		return s.doc, s.err
	}

	s.doc, s.err = s.fetchOrCompute(ctx, sc)
	s.resolved = true
	return s.doc, s.err
}

// documentDirect resolves without consulting the cache. It backs cache
// fallbacks, where the caller is already on the miss path.
func (s *Serializer) documentDirect(ctx context.Context, sc *Scope) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.resolved {
		return s.doc, s.err
	}
	s.doc, s.err = s.compute(ctx, sc)
	s.resolved = true
	return s.doc, s.err
}

func (s *Serializer) fetchOrCompute(ctx context.Context, sc *Scope) (Document, error) {
	if isNil(s.source) {
		return nil, nil
	}

	svc := s.CacheService()
	if !s.Cacheable() || svc == nil {
		return s.compute(ctx, sc)
	}

	v, err := svc.Fetch(ctx, s.CacheKey(), s.CacheTTL(), func(context.Context) (any, error) {
		return s.compute(ctx, sc)
	})
	if err != nil {
		return nil, err
	}
	doc, ok := v.(Document)
	if !ok {
		// A foreign value under this key (a collision, or a backend shared
		// with other writers) must not masquerade as an absent document.
		return s.compute(ctx, sc)
	}
	return doc, nil
}

// compute runs field resolution under the cycle guard. Callers hold s.mu.
func (s *Serializer) compute(ctx context.Context, sc *Scope) (Document, error) {
	if isNil(s.source) {
		return nil, nil
	}

	var doc Document
	err := sc.guard(s.source, func() error {
		var rerr error
		doc, rerr = s.resolveFields(ctx, sc)
		return rerr
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// resolveFields walks the effective registry in order: optional fields render
// only when included, fields excluded by name never render (a per-field
// exclude mapping forwards into the nested serializer instead), conditions
// veto, and everything else is read, converted, and stored under the output
// name.
func (s *Serializer) resolveFields(ctx context.Context, sc *Scope) (Document, error) {
	include := newFieldSet(s.opts[OptInclude])
	exclude := newFieldSet(s.opts[OptExclude])

	fields := s.typ.fields()
	doc := make(Document, len(fields))

	for _, d := range fields {
		if d.Optional && !include.has(d.Name) {
			continue
		}
		if exclude.terminal(d.Name) {
			continue
		}
		if d.If != nil && !d.If(s) {
			continue
		}

		if d.Serializer != nil {
			v, err := s.resolveNested(ctx, sc, d, include, exclude)
			if err != nil {
				return nil, err
			}
			doc[d.Name] = v
			continue
		}

		raw, err := s.readAttribute(d)
		if err != nil {
			return nil, err
		}
		doc[d.Name] = convertValue(raw)
	}

	return doc, nil
}

// resolveNested renders a nested-serializer field through the scope's dedup
// and cycle machinery, merging the descriptor's static options with whatever
// the caller forwarded for this field. The caller wins on conflict.
func (s *Serializer) resolveNested(ctx context.Context, sc *Scope, d Descriptor, include, exclude fieldSet) (any, error) {
	raw, err := s.readAttribute(d)
	if err != nil {
		return nil, err
	}

	merged := mergeOptions(d.SerializerOptions, forwardedOptions(d.Name, include, exclude))

	if d.Enumerable {
		return NewCollection(d.Serializer, raw, merged).Document(ctx)
	}

	if isNil(raw) {
		return nil, nil
	}
	return sc.document(ctx, d.Serializer, raw, merged)
}

// Encode renders the document through a wire encoder. A nil encoder means
// JSON.
func (s *Serializer) Encode(ctx context.Context, enc codec.Encoder) ([]byte, error) {
	doc, err := s.Document(ctx)
	if err != nil {
		return nil, err
	}
	if enc == nil {
		enc = codec.JSON()
	}
	return enc.Marshal(doc)
}

// MarshalJSON renders the document as JSON using a background context. It
// exists so a resolved serializer can be dropped straight into an API
// response payload.
func (s *Serializer) MarshalJSON() ([]byte, error) {
	return s.Encode(context.Background(), codec.JSON())
}
