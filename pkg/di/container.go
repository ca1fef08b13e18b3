package di

import (
	"github.com/goliatone/go-serializer/cache"
	"github.com/goliatone/go-serializer/serializer"
)

// Container provides dependency injection for serialization components. It
// manages singleton instances of the cache service and key serializer, and
// provides factory methods for cache-bound serializers.
type Container struct {
	cacheService  cache.Service
	keySerializer cache.KeySerializer
	config        cache.Config
}

// NewContainer creates a new DI container with the provided cache
// configuration. It initializes the bundled cache service and sets up the
// default key serializer.
func NewContainer(config cache.Config) (*Container, error) {
	cacheService, err := cache.NewService(config)
	if err != nil {
		return nil, err
	}

	return &Container{
		cacheService:  cacheService,
		keySerializer: cache.NewDefaultKeySerializer(),
		config:        config,
	}, nil
}

// NewContainerWithDefaults creates a new DI container using default
// configuration. This is a convenience constructor for typical use cases
// where custom configuration is not required.
func NewContainerWithDefaults() (*Container, error) {
	return NewContainer(cache.DefaultConfig())
}

// CacheService returns the singleton cache service instance.
func (c *Container) CacheService() cache.Service {
	return c.cacheService
}

// KeySerializer returns the singleton key serializer instance.
func (c *Container) KeySerializer() cache.KeySerializer {
	return c.keySerializer
}

// Config returns a copy of the cache configuration used by this container.
func (c *Container) Config() cache.Config {
	return c.config
}

// InstallDefault registers the container's cache service as the process-wide
// default, so every cacheable serializer type without its own service uses
// it. Call once at startup.
func (c *Container) InstallDefault() {
	cache.SetDefault(c.cacheService)
}

// Serializer constructs a serializer bound to the container's cache service,
// regardless of the process default.
func (c *Container) Serializer(typ *serializer.Type, source any, opts serializer.Options) *serializer.Serializer {
	return serializer.New(typ, source, c.bind(opts))
}

// Collection constructs a collection serializer bound to the container's
// cache service.
func (c *Container) Collection(typ *serializer.Type, items any, opts serializer.Options) *serializer.Collection {
	return serializer.NewCollection(typ, items, c.bind(opts))
}

func (c *Container) bind(opts serializer.Options) serializer.Options {
	bound := make(serializer.Options, len(opts)+1)
	for k, v := range opts {
		bound[k] = v
	}
	bound[serializer.OptCache] = c.cacheService
	return bound
}
