package cache

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"
)

// memoryService is a minimal Service for exercising the package-level
// helpers. FetchMany delegates to FetchEach, the reference implementation.
type memoryService struct {
	mu     sync.Mutex
	store  map[string]any
	misses []string
}

func newMemoryService() *memoryService {
	return &memoryService{store: make(map[string]any)}
}

func (m *memoryService) Fetch(ctx context.Context, key string, ttl time.Duration, fn FetchFn) (any, error) {
	m.mu.Lock()
	if v, ok := m.store[key]; ok {
		m.mu.Unlock()
		return v, nil
	}
	m.misses = append(m.misses, key)
	m.mu.Unlock()

	v, err := fn(ctx)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.store[key] = v
	m.mu.Unlock()
	return v, nil
}

func (m *memoryService) FetchMany(ctx context.Context, keys []string, ttl time.Duration, fn BatchFetchFn) ([]any, error) {
	return FetchEach(ctx, m, keys, ttl, fn)
}

func (m *memoryService) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	delete(m.store, key)
	m.mu.Unlock()
	return nil
}

type userRecord struct {
	ID   string
	Name string
}

func TestFetch_TypedWrapper(t *testing.T) {
	svc := newMemoryService()
	calls := 0

	fetch := func(ctx context.Context) (userRecord, error) {
		calls++
		return userRecord{ID: "u1", Name: "ada"}, nil
	}

	got, err := Fetch(context.Background(), svc, "user::u1", time.Minute, fetch)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if got.Name != "ada" {
		t.Errorf("Fetch() = %+v, want the computed record", got)
	}

	again, err := Fetch(context.Background(), svc, "user::u1", time.Minute, fetch)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if !reflect.DeepEqual(again, got) {
		t.Errorf("second Fetch() = %+v, want cached %+v", again, got)
	}
	if calls != 1 {
		t.Errorf("fallback ran %d times, want 1", calls)
	}
}

func TestFetch_ErrorPropagates(t *testing.T) {
	svc := newMemoryService()
	wantErr := errors.New("source down")

	_, err := Fetch(context.Background(), svc, "user::u2", time.Minute, func(ctx context.Context) (userRecord, error) {
		return userRecord{}, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Errorf("Fetch() error = %v, want %v", err, wantErr)
	}
}

func TestFetchEach(t *testing.T) {
	svc := newMemoryService()

	// Warm one key so the batch mixes hits and misses.
	if _, err := svc.Fetch(context.Background(), "item::1", time.Minute, func(context.Context) (any, error) {
		return "one", nil
	}); err != nil {
		t.Fatalf("warmup Fetch() error = %v", err)
	}

	var fallbackIdx []int
	keys := []string{"item::1", "item::2", "item::3"}
	got, err := FetchEach(context.Background(), svc, keys, time.Minute, func(_ context.Context, i int) (any, error) {
		fallbackIdx = append(fallbackIdx, i)
		return fmt.Sprintf("value-%d", i), nil
	})
	if err != nil {
		t.Fatalf("FetchEach() error = %v", err)
	}

	want := []any{"one", "value-1", "value-2"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("FetchEach() = %v, want %v", got, want)
	}
	if !reflect.DeepEqual(fallbackIdx, []int{1, 2}) {
		t.Errorf("fallback indices = %v, want misses only in order", fallbackIdx)
	}
}

func TestFetchEach_StopsOnError(t *testing.T) {
	svc := newMemoryService()
	wantErr := errors.New("boom")

	_, err := FetchEach(context.Background(), svc, []string{"a", "b"}, time.Minute, func(_ context.Context, i int) (any, error) {
		if i == 1 {
			return nil, wantErr
		}
		return "ok", nil
	})
	if !errors.Is(err, wantErr) {
		t.Errorf("FetchEach() error = %v, want %v", err, wantErr)
	}
}
