package serializer

import (
	"sync"
	"time"

	"github.com/goliatone/go-serializer/cache"
)

// Type is a serializer type: an ordered, de-duplicated field registry plus its
// cache policy. Types form a parent chain; a derived type inherits the parent
// registry and may override, remove, or append fields.
//
// Declarations happen at startup. Once a type has been used to serialize (its
// effective registry is resolved and frozen), further declarations fail.
type Type struct {
	name   string
	parent *Type

	mu      sync.Mutex
	decls   []Descriptor
	removed map[string]struct{}
	frozen  bool

	resolveOnce sync.Once
	effective   []Descriptor

	cacheable *bool
	cacheTTL  *time.Duration
	cacheSvc  cache.Service

	policyOnce sync.Once
	policy     typePolicy
}

// Define creates a serializer type. parent may be nil for a root type.
func Define(name string, parent *Type) *Type {
	return &Type{name: name, parent: parent}
}

// Name returns the type name used in derived cache keys.
func (t *Type) Name() string { return t.name }

// Parent returns the parent type, or nil.
func (t *Type) Parent() *Type { return t.parent }

// Declare adds one descriptor per name, configured by opts. Redeclaring a name
// replaces its settings but keeps the original position. Declaring "as" with
// more than one name, supplying an unsupported option key, or declaring on a
// frozen type fails with a *ConfigurationError.
func (t *Type) Declare(opts Options, names ...string) error {
	tpl, err := parseFieldOptions(opts, names)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.frozen {
		return &ConfigurationError{Field: t.name, Message: "type already resolved, declare fields before first use"}
	}

	for _, declared := range names {
		d := tpl.describe(declared)
		if i := t.indexOf(d.Name); i >= 0 {
			t.decls[i] = d
			continue
		}
		t.decls = append(t.decls, d)
		delete(t.removed, d.Name)
	}
	return nil
}

// MustDeclare is Declare, panicking on error. Intended for package-level type
// definitions where a declaration error is a programming mistake.
func (t *Type) MustDeclare(opts Options, names ...string) *Type {
	if err := t.Declare(opts, names...); err != nil {
		panic(err)
	}
	return t
}

// Attributes declares plain passthrough fields for each name.
func (t *Type) Attributes(names ...string) *Type {
	return t.MustDeclare(nil, names...)
}

// Remove deletes fields by output name, both own declarations and inherited
// ones. Unknown names are a no-op.
func (t *Type) Remove(names ...string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.frozen {
		return &ConfigurationError{Field: t.name, Message: "type already resolved, remove fields before first use"}
	}

	for _, name := range names {
		if i := t.indexOf(name); i >= 0 {
			t.decls = append(t.decls[:i], t.decls[i+1:]...)
		}
		if t.removed == nil {
			t.removed = make(map[string]struct{})
		}
		t.removed[name] = struct{}{}
	}
	return nil
}

// indexOf returns the position of name among own declarations, or -1.
// Callers must hold t.mu.
func (t *Type) indexOf(name string) int {
	for i, d := range t.decls {
		if d.Name == name {
			return i
		}
	}
	return -1
}

// fields resolves and freezes the effective registry on first use: the parent
// snapshot with overridden names replaced in place, removed names deleted, and
// new names appended. Resolving also freezes every ancestor, so later parent
// mutation cannot retroactively change a child snapshot.
func (t *Type) fields() []Descriptor {
	t.resolveOnce.Do(func() {
		var base []Descriptor
		if t.parent != nil {
			base = t.parent.fields()
		}

		t.mu.Lock()
		defer t.mu.Unlock()
		t.frozen = true

		effective := make([]Descriptor, 0, len(base)+len(t.decls))
		index := make(map[string]int, len(base)+len(t.decls))
		for _, d := range base {
			if _, gone := t.removed[d.Name]; gone {
				continue
			}
			index[d.Name] = len(effective)
			effective = append(effective, d)
		}
		for _, d := range t.decls {
			if i, ok := index[d.Name]; ok {
				effective[i] = d
				continue
			}
			index[d.Name] = len(effective)
			effective = append(effective, d)
		}
		t.effective = effective
	})
	return t.effective
}

// Fields returns a copy of the effective registry in resolution order.
func (t *Type) Fields() []Descriptor {
	return append([]Descriptor(nil), t.fields()...)
}

// SetCacheable declares whether documents of this type are cache-backed.
func (t *Type) SetCacheable(v bool) *Type {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cacheable = &v
	return t
}

// SetCacheTTL declares the cache entry lifetime for this type. Zero means no
// expiration.
func (t *Type) SetCacheTTL(ttl time.Duration) *Type {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cacheTTL = &ttl
	return t
}

// SetCacheService binds a cache service to this type, overriding the process
// default for it and its descendants.
func (t *Type) SetCacheService(svc cache.Service) *Type {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cacheSvc = svc
	return t
}

// typePolicy is the memoized result of walking the parent chain for cache
// configuration: the nearest present value wins for each knob independently.
type typePolicy struct {
	cacheable *bool
	ttl       *time.Duration
	svc       cache.Service
}

func (t *Type) resolvePolicy() typePolicy {
	t.policyOnce.Do(func() {
		var p typePolicy
		for a := t; a != nil; a = a.parent {
			a.mu.Lock()
			if p.cacheable == nil && a.cacheable != nil {
				p.cacheable = a.cacheable
			}
			if p.ttl == nil && a.cacheTTL != nil {
				p.ttl = a.cacheTTL
			}
			if p.svc == nil && a.cacheSvc != nil {
				p.svc = a.cacheSvc
			}
			a.mu.Unlock()
		}
		t.policy = p
	})
	return t.policy
}

// resolveCacheable answers instance override -> type chain -> default (false).
func resolveCacheable(opts Options, typ *Type) bool {
	if v, ok := opts[OptCacheable].(bool); ok {
		return v
	}
	if typ != nil {
		if p := typ.resolvePolicy(); p.cacheable != nil {
			return *p.cacheable
		}
	}
	return false
}

// resolveCacheTTL answers instance override -> type chain -> default (0, no
// expiration).
func resolveCacheTTL(opts Options, typ *Type) time.Duration {
	if v, ok := opts[OptCacheTTL].(time.Duration); ok {
		return v
	}
	if typ != nil {
		if p := typ.resolvePolicy(); p.ttl != nil {
			return *p.ttl
		}
	}
	return 0
}

// resolveCacheService answers instance override -> type chain -> process-wide
// default. The global slot is consulted at call time, never memoized, so a
// service installed after type definition is still picked up.
func resolveCacheService(opts Options, typ *Type) cache.Service {
	if v, ok := opts[OptCache].(cache.Service); ok {
		return v
	}
	if typ != nil {
		if p := typ.resolvePolicy(); p.svc != nil {
			return p.svc
		}
	}
	return cache.Default()
}
