package cacheinfra

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/viccon/sturdyc"
)

// noExpirationTTL backs entries stored with a zero ttl. sturdyc has no
// "never expires" mode, so the no-expiration bucket gets a lifetime far
// beyond any process.
const noExpirationTTL = 10 * 365 * 24 * time.Hour

// Config holds the configuration for the sturdyc cache adapter. Capacity,
// NumShards, and EvictionPercentage apply per TTL bucket: the adapter keeps
// one sturdyc client per distinct ttl it sees, because sturdyc fixes the
// entry lifetime at client construction.
type Config struct {
	// Capacity defines the maximum number of entries a TTL bucket can store.
	// Must be greater than 0.
	Capacity int

	// NumShards determines the number of cache shards for concurrent access.
	// Higher values improve concurrency but increase memory overhead.
	// Must be greater than 0.
	NumShards int

	// EvictionPercentage specifies what percentage of entries to evict when a
	// bucket reaches its capacity. Must be between 1-100.
	EvictionPercentage int

	// EarlyRefresh configures early refresh behavior for cached entries.
	// If nil, early refresh is disabled. Leave it disabled when fallbacks
	// capture per-call state: refreshes run on background goroutines.
	EarlyRefresh *EarlyRefreshConfig

	// MissingRecordStorage enables storage for missing record flags, so keys
	// that produced no result are not recomputed on every fetch.
	MissingRecordStorage bool

	// EvictionInterval sets how often buckets check for expired entries.
	// Zero value uses the sturdyc default.
	EvictionInterval time.Duration
}

// EarlyRefreshConfig mirrors sturdyc's early refresh options, which prevent
// stampedes by refreshing frequently accessed entries before expiry.
type EarlyRefreshConfig struct {
	// MinAsyncRefreshTime is the minimum time after which an async refresh can occur.
	MinAsyncRefreshTime time.Duration

	// MaxAsyncRefreshTime is the maximum time after which an async refresh can occur.
	MaxAsyncRefreshTime time.Duration

	// SyncRefreshTime is when a refresh becomes synchronous instead of async.
	SyncRefreshTime time.Duration

	// RetryBaseDelay is the base delay for retry attempts when early refresh fails.
	RetryBaseDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults. Early refresh stays
// disabled by default; document resolution fallbacks are bound to the calling
// request and must not rerun on a background goroutine.
func DefaultConfig() Config {
	return Config{
		Capacity:             10000,
		NumShards:            256,
		EvictionPercentage:   10,
		MissingRecordStorage: false,
		EvictionInterval:     0,
	}
}

// Validate checks the configuration values.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Capacity, validation.Required, validation.Min(1)),
		validation.Field(&c.NumShards, validation.Required, validation.Min(1)),
		validation.Field(&c.EvictionPercentage, validation.Required, validation.Min(1), validation.Max(100)),
		validation.Field(&c.EvictionInterval, validation.Min(time.Duration(0))),
		validation.Field(&c.EarlyRefresh),
	)
}

// Validate checks the early refresh windows. All four are required and the
// async window must close before the synchronous threshold.
func (c EarlyRefreshConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.MinAsyncRefreshTime, validation.Required),
		validation.Field(&c.MaxAsyncRefreshTime, validation.Required, validation.Min(c.MinAsyncRefreshTime)),
		validation.Field(&c.SyncRefreshTime, validation.Required, validation.Min(c.MaxAsyncRefreshTime)),
		validation.Field(&c.RetryBaseDelay, validation.Required),
	)
}

// toSturdycOptions maps the config to sturdyc options shared by every bucket.
func (c Config) toSturdycOptions() []sturdyc.Option {
	var options []sturdyc.Option

	if c.EarlyRefresh != nil {
		options = append(options, sturdyc.WithEarlyRefreshes(
			c.EarlyRefresh.MinAsyncRefreshTime,
			c.EarlyRefresh.MaxAsyncRefreshTime,
			c.EarlyRefresh.SyncRefreshTime,
			c.EarlyRefresh.RetryBaseDelay,
		))
	}

	if c.MissingRecordStorage {
		options = append(options, sturdyc.WithMissingRecordStorage())
	}

	if c.EvictionInterval > 0 {
		options = append(options, sturdyc.WithEvictionInterval(c.EvictionInterval))
	}

	return options
}

// sturdycService implements the cache service contract on top of sturdyc,
// bucketing clients by TTL so per-fetch lifetimes work against a library that
// fixes TTL per client.
type sturdycService struct {
	cfg     Config
	clients *xsync.MapOf[time.Duration, *sturdyc.Client[any]]
}

// NewSturdycService validates cfg and builds the adapter. Buckets are created
// lazily on first use of each distinct ttl.
func NewSturdycService(cfg Config) (*sturdycService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &sturdycService{
		cfg:     cfg,
		clients: xsync.NewMapOf[time.Duration, *sturdyc.Client[any]](),
	}, nil
}

func (s *sturdycService) clientFor(ttl time.Duration) *sturdyc.Client[any] {
	if ttl <= 0 {
		ttl = noExpirationTTL
	}
	client, _ := s.clients.LoadOrCompute(ttl, func() *sturdyc.Client[any] {
		return sturdyc.New[any](
			s.cfg.Capacity,
			s.cfg.NumShards,
			ttl,
			s.cfg.EvictionPercentage,
			s.cfg.toSturdycOptions()...,
		)
	})
	return client
}

// Fetch implements the read-through path: cached value if present and
// unexpired, else fn computes, the result is stored with ttl, and returned.
func (s *sturdycService) Fetch(ctx context.Context, key string, ttl time.Duration, fn func(ctx context.Context) (any, error)) (any, error) {
	return s.clientFor(ttl).GetOrFetch(ctx, key, fn)
}

// FetchMany batches the lookup through sturdyc: one read pass, then a single
// fallback round covering only the missing keys. Duplicate keys collapse to
// one fallback invocation, which matches what sequential fetching would
// observe. The returned slice follows the order of keys.
func (s *sturdycService) FetchMany(ctx context.Context, keys []string, ttl time.Duration, fn func(ctx context.Context, i int) (any, error)) ([]any, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	firstIndex := make(map[string]int, len(keys))
	unique := make([]string, 0, len(keys))
	for i, key := range keys {
		if _, seen := firstIndex[key]; !seen {
			firstIndex[key] = i
			unique = append(unique, key)
		}
	}

	identity := func(id string) string { return id }
	fetched, err := s.clientFor(ttl).GetOrFetchBatch(ctx, unique, identity,
		func(ctx context.Context, missing []string) (map[string]any, error) {
			out := make(map[string]any, len(missing))
			for _, id := range missing {
				v, err := fn(ctx, firstIndex[id])
				if err != nil {
					return nil, err
				}
				out[id] = v
			}
			return out, nil
		})
	if err != nil {
		return nil, err
	}

	out := make([]any, len(keys))
	for i, key := range keys {
		out[i] = fetched[key]
	}
	return out, nil
}

// Delete removes key from every TTL bucket.
func (s *sturdycService) Delete(ctx context.Context, key string) error {
	s.clients.Range(func(_ time.Duration, client *sturdyc.Client[any]) bool {
		client.Delete(key)
		return true
	})
	return nil
}
