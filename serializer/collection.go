package serializer

import (
	"context"
	"reflect"
	"sync"
	"time"

	"github.com/goliatone/go-serializer/cache"
	"github.com/goliatone/go-serializer/codec"
)

// Collection applies one serializer type across a sequence. Its output is an
// array, not a mapping: nil for an absent sequence, an empty slice for an
// empty one. All elements share a single scope, and when the collection is
// cacheable the cache is consulted once for the whole batch.
type Collection struct {
	typ   *Type
	items any
	opts  Options

	mu       sync.Mutex
	resolved bool
	doc      []any
	err      error
}

// NewCollection wraps a sequence. typ is the per-element serializer type and
// may be nil, in which case elements are value-converted directly. A
// non-sequence input is treated as a one-element sequence.
func NewCollection(typ *Type, items any, opts Options) *Collection {
	return &Collection{typ: typ, items: items, opts: opts}
}

// Option returns a caller-supplied option and whether it was present.
func (c *Collection) Option(key string) (any, bool) {
	return c.opts.Option(key)
}

// Cacheable delegates to the bound element type when one is set, after the
// collection's own options.
func (c *Collection) Cacheable() bool {
	return resolveCacheable(c.opts, c.typ)
}

// CacheTTL resolves the cache entry lifetime; zero means no expiration.
func (c *Collection) CacheTTL() time.Duration {
	return resolveCacheTTL(c.opts, c.typ)
}

// CacheService resolves the cache service used for batched lookups.
func (c *Collection) CacheService() cache.Service {
	return resolveCacheService(c.opts, c.typ)
}

// Document renders the sequence. The result is memoized; repeated calls
// return the identical slice.
func (c *Collection) Document(ctx context.Context) ([]any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.resolved {
		return c.doc, c.err
	}
	c.doc, c.err = c.render(ctx)
	c.resolved = true
	return c.doc, c.err
}

func (c *Collection) render(ctx context.Context) ([]any, error) {
	if isNil(c.items) {
		return nil, nil
	}

	elems := sequenceOf(c.items)
	if len(elems) == 0 {
		return []any{}, nil
	}

	ctx, sc := ensureScope(ctx)

	if c.typ == nil {
		out := make([]any, len(elems))
		for i, item := range elems {
			out[i] = convertValue(item)
		}
		return out, nil
	}

	svc := c.CacheService()
	if c.Cacheable() && svc != nil {
		return c.fetchBatch(ctx, sc, svc, elems)
	}

	out := make([]any, len(elems))
	for i, item := range elems {
		doc, err := sc.document(ctx, c.typ, item, c.opts)
		if err != nil {
			return nil, err
		}
		out[i] = doc
	}
	return out, nil
}

// fetchBatch consults the cache once for all elements. The fallback runs
// exactly once per miss and bypasses per-element cache resolution, since the
// batch is already the cache path. Order follows the input sequence.
func (c *Collection) fetchBatch(ctx context.Context, sc *Scope, svc cache.Service, elems []any) ([]any, error) {
	sers := make([]*Serializer, len(elems))
	keys := make([]string, len(elems))
	for i, item := range elems {
		// An element still being resolved higher up the call chain must fail
		// here, before the fetch fallback re-enters its in-flight instance.
		if sc.onStack(item) {
			return nil, &CircularReferenceError{Value: item}
		}
		sers[i] = sc.load(c.typ, item, c.opts)
		keys[i] = sers[i].CacheKey()
	}

	vals, err := svc.FetchMany(ctx, keys, c.CacheTTL(), func(_ context.Context, i int) (any, error) {
		return sers[i].documentDirect(ctx, sc)
	})
	if err != nil {
		return nil, err
	}

	out := make([]any, len(vals))
	for i, v := range vals {
		doc, ok := v.(Document)
		if !ok {
			// A foreign value under this key (a collision, or a backend shared
			// with other writers) must not masquerade as an absent document.
			doc, err = sers[i].documentDirect(ctx, sc)
			if err != nil {
				return nil, err
			}
		}
		out[i] = doc
	}
	return out, nil
}

// Encode renders the array through a wire encoder. A nil encoder means JSON.
func (c *Collection) Encode(ctx context.Context, enc codec.Encoder) ([]byte, error) {
	doc, err := c.Document(ctx)
	if err != nil {
		return nil, err
	}
	if enc == nil {
		enc = codec.JSON()
	}
	return enc.Marshal(doc)
}

// MarshalJSON renders the array as JSON using a background context.
func (c *Collection) MarshalJSON() ([]byte, error) {
	return c.Encode(context.Background(), codec.JSON())
}

// sequenceOf flattens a slice or array into []any; anything else becomes a
// one-element sequence.
func sequenceOf(items any) []any {
	if s, ok := items.([]any); ok {
		return s
	}
	rv := reflect.ValueOf(items)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = rv.Index(i).Interface()
		}
		return out
	}
	return []any{items}
}
