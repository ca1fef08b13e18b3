package serializer

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-serializer/cache"
)

// batchingCacheService records FetchMany traffic so tests can assert batching
// behavior: one call per collection, one fallback per distinct miss.
type batchingCacheService struct {
	mu        sync.Mutex
	store     map[string]any
	batches   [][]string
	fallbacks int
}

func newBatchingCacheService() *batchingCacheService {
	return &batchingCacheService{store: make(map[string]any)}
}

func (b *batchingCacheService) Fetch(ctx context.Context, key string, ttl time.Duration, fn cache.FetchFn) (any, error) {
	vals, err := b.FetchMany(ctx, []string{key}, ttl, func(ctx context.Context, _ int) (any, error) {
		return fn(ctx)
	})
	if err != nil {
		return nil, err
	}
	return vals[0], nil
}

func (b *batchingCacheService) FetchMany(ctx context.Context, keys []string, ttl time.Duration, fn cache.BatchFetchFn) ([]any, error) {
	b.mu.Lock()
	b.batches = append(b.batches, append([]string(nil), keys...))
	b.mu.Unlock()

	out := make([]any, len(keys))
	filled := make(map[string]any, len(keys))
	for i, key := range keys {
		b.mu.Lock()
		v, ok := b.store[key]
		b.mu.Unlock()
		if !ok {
			if v, ok = filled[key]; !ok {
				var err error
				v, err = fn(ctx, i)
				if err != nil {
					return nil, err
				}
				b.mu.Lock()
				b.fallbacks++
				b.store[key] = v
				b.mu.Unlock()
				filled[key] = v
			}
		}
		out[i] = v
	}
	return out, nil
}

func (b *batchingCacheService) Delete(ctx context.Context, key string) error {
	b.mu.Lock()
	delete(b.store, key)
	b.mu.Unlock()
	return nil
}

func (b *batchingCacheService) stats() (batches int, fallbacks int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.batches), b.fallbacks
}

func TestCollectionDocument_AbsentAndEmpty(t *testing.T) {
	typ := Define("coll_item", nil).Attributes("id")

	doc, err := NewCollection(typ, nil, nil).Document(context.Background())
	if err != nil {
		t.Fatalf("Document() error = %v", err)
	}
	if doc != nil {
		t.Errorf("absent sequence rendered %v, want nil", doc)
	}

	doc, err = NewCollection(typ, []any{}, nil).Document(context.Background())
	if err != nil {
		t.Fatalf("Document() error = %v", err)
	}
	if doc == nil || len(doc) != 0 {
		t.Errorf("empty sequence rendered %v, want []", doc)
	}
}

func TestCollectionDocument_PerElement(t *testing.T) {
	typ := Define("coll_row", nil).Attributes("id", "name")
	items := []any{
		map[string]any{"id": 1, "name": "a"},
		map[string]any{"id": 2, "name": "b"},
	}

	doc, err := NewCollection(typ, items, nil).Document(context.Background())
	if err != nil {
		t.Fatalf("Document() error = %v", err)
	}

	want := []any{
		Document{"id": 1, "name": "a"},
		Document{"id": 2, "name": "b"},
	}
	if !reflect.DeepEqual(doc, want) {
		t.Errorf("Document() = %v, want %v", doc, want)
	}
}

func TestCollectionDocument_NilType(t *testing.T) {
	doc, err := NewCollection(nil, []any{1, "two"}, nil).Document(context.Background())
	if err != nil {
		t.Fatalf("Document() error = %v", err)
	}
	if !reflect.DeepEqual(doc, []any{1, "two"}) {
		t.Errorf("Document() = %v, want value passthrough", doc)
	}
}

func TestCollectionDocument_TypedSlice(t *testing.T) {
	typ := Define("coll_typed", nil).Attributes("id")
	items := []map[string]any{{"id": 1}, {"id": 2}}

	doc, err := NewCollection(typ, items, nil).Document(context.Background())
	if err != nil {
		t.Fatalf("Document() error = %v", err)
	}
	if len(doc) != 2 {
		t.Fatalf("Document() rendered %d elements, want 2", len(doc))
	}
}

func TestCollectionDocument_SingleValueWraps(t *testing.T) {
	typ := Define("coll_single", nil).Attributes("id")

	doc, err := NewCollection(typ, map[string]any{"id": 1}, nil).Document(context.Background())
	if err != nil {
		t.Fatalf("Document() error = %v", err)
	}
	if !reflect.DeepEqual(doc, []any{Document{"id": 1}}) {
		t.Errorf("Document() = %v, want a one-element sequence", doc)
	}
}

func TestCollectionDocument_Batched(t *testing.T) {
	svc := newBatchingCacheService()
	typ := Define("coll_cached", nil).
		Attributes("id").
		SetCacheable(true).
		SetCacheService(svc)

	warm := map[string]any{"id": 1}
	if _, err := New(typ, warm, nil).Document(context.Background()); err != nil {
		t.Fatalf("warmup Document() error = %v", err)
	}

	items := []any{warm, map[string]any{"id": 2}, map[string]any{"id": 3}}
	doc, err := NewCollection(typ, items, nil).Document(context.Background())
	if err != nil {
		t.Fatalf("Document() error = %v", err)
	}

	want := []any{Document{"id": 1}, Document{"id": 2}, Document{"id": 3}}
	if !reflect.DeepEqual(doc, want) {
		t.Errorf("Document() = %v, want %v", doc, want)
	}

	batches, fallbacks := svc.stats()
	if batches != 2 {
		t.Errorf("cache saw %d batch calls, want 2 (warmup + collection)", batches)
	}
	// The warmup already cached id 1, so only the two cold elements fall back.
	if fallbacks != 3 {
		t.Errorf("fallback ran %d times total, want 3 (1 warmup + 2 misses)", fallbacks)
	}
}

func TestCollectionDocument_BatchedCycleFails(t *testing.T) {
	svc := newBatchingCacheService()
	typ := Define("coll_cyclic", nil).
		Attributes("id").
		SetCacheable(true).
		SetCacheService(svc)
	typ.MustDeclare(Options{"serializer": typ, "enumerable": true}, "children")

	source := map[string]any{"id": 1}
	source["children"] = []any{source}

	done := make(chan error, 1)
	go func() {
		_, err := New(typ, source, nil).Document(context.Background())
		done <- err
	}()

	select {
	case err := <-done:
		var cycErr *CircularReferenceError
		if !errors.As(err, &cycErr) {
			t.Fatalf("Document() error = %v, want *CircularReferenceError", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Document() hung on a cyclic source via the batched cache path")
	}
}

func TestCollectionDocument_BatchedForeignValue(t *testing.T) {
	svc := newBatchingCacheService()
	typ := Define("coll_collided", nil).
		Attributes("id").
		SetCacheable(true).
		SetCacheService(svc)

	item := map[string]any{"id": 1}
	svc.mu.Lock()
	svc.store[New(typ, item, nil).CacheKey()] = 42
	svc.mu.Unlock()

	doc, err := NewCollection(typ, []any{item}, nil).Document(context.Background())
	if err != nil {
		t.Fatalf("Document() error = %v", err)
	}
	if !reflect.DeepEqual(doc, []any{Document{"id": 1}}) {
		t.Errorf("Document() = %v, want direct computation past the foreign entry", doc)
	}
}

func TestCollectionDocument_Memoized(t *testing.T) {
	typ := Define("coll_memo", nil).Attributes("id")
	c := NewCollection(typ, []any{map[string]any{"id": 1}}, nil)

	first, err := c.Document(context.Background())
	if err != nil {
		t.Fatalf("Document() error = %v", err)
	}
	second, err := c.Document(context.Background())
	if err != nil {
		t.Fatalf("Document() error = %v", err)
	}
	if reflect.ValueOf(first).Pointer() != reflect.ValueOf(second).Pointer() {
		t.Errorf("repeated Document() returned a different slice")
	}
}

func TestCollectionEncode_JSON(t *testing.T) {
	typ := Define("coll_encoded", nil).Attributes("id")
	body, err := NewCollection(typ, []any{map[string]any{"id": 1}}, nil).Encode(context.Background(), nil)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if string(body) != `[{"id":1}]` {
		t.Errorf("Encode() = %s, want [{\"id\":1}]", body)
	}
}
