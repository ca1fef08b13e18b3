package serializer

import (
	"fmt"
	"sort"
)

// Reserved option keys understood by the core. Any other key is carried
// untouched and is visible to accessors and predicates via Option.
const (
	OptInclude   = "include"
	OptExclude   = "exclude"
	OptCacheable = "cacheable"
	OptCache     = "cache"
	OptCacheTTL  = "cache_ttl"
)

// Options is the per-instance option bag. The reserved keys above control
// filtering and cache behaviour; arbitrary caller keys (for example "scope")
// pass through untouched.
type Options map[string]any

// Option returns the value stored under key and whether it was present.
func (o Options) Option(key string) (any, bool) {
	if o == nil {
		return nil, false
	}
	v, ok := o[key]
	return v, ok
}

func (o Options) clone() Options {
	if o == nil {
		return nil
	}
	out := make(Options, len(o))
	for k, v := range o {
		out[k] = v
	}
	return out
}

// fieldSet is the normalized form of an include or exclude specification.
// A flat set ("include": []string{"a", "b"}) selects fields by name; a
// per-field mapping ("include": map[string]any{"comments": []string{"author"}})
// selects the field and forwards the mapped value to its nested serializer.
type fieldSet struct {
	names   map[string]struct{}
	forward map[string]any
}

func newFieldSet(spec any) fieldSet {
	fs := fieldSet{}
	add := func(name string) {
		if fs.names == nil {
			fs.names = make(map[string]struct{})
		}
		fs.names[name] = struct{}{}
	}

	switch v := spec.(type) {
	case nil:
	case string:
		add(v)
	case []string:
		for _, name := range v {
			add(name)
		}
	case []any:
		for _, item := range v {
			add(fmt.Sprint(item))
		}
	case Options:
		fs = newFieldSet(map[string]any(v))
	case map[string]any:
		fs.forward = make(map[string]any, len(v))
		for name, sub := range v {
			add(name)
			fs.forward[name] = sub
		}
	}
	return fs
}

func (f fieldSet) has(name string) bool {
	_, ok := f.names[name]
	return ok
}

// terminal reports whether name is named outright, rather than carrying a
// nested specification. An exclude entry with a forwarded subtree keeps the
// field and filters inside it; only terminal entries drop the field itself.
func (f fieldSet) terminal(name string) bool {
	if _, ok := f.forward[name]; ok {
		return false
	}
	return f.has(name)
}

// forwarded returns the nested specification attached to name, if any.
func (f fieldSet) forwarded(name string) (any, bool) {
	v, ok := f.forward[name]
	return v, ok
}

// forwardedOptions builds the option fragment a nested serializer inherits
// from the caller: the per-field include/exclude subtrees addressed to name.
func forwardedOptions(name string, include, exclude fieldSet) Options {
	var out Options
	if sub, ok := include.forwarded(name); ok {
		out = Options{OptInclude: sub}
	}
	if sub, ok := exclude.forwarded(name); ok {
		if out == nil {
			out = Options{}
		}
		out[OptExclude] = sub
	}
	return out
}

// mergeOptions deep-merges overlay on top of static. The overlay wins on
// conflicts; nested maps are merged recursively. Neither input is mutated.
func mergeOptions(static, overlay Options) Options {
	if len(overlay) == 0 {
		return static.clone()
	}
	if len(static) == 0 {
		return overlay.clone()
	}
	out := static.clone()
	for k, v := range overlay {
		if base, ok := out[k]; ok {
			if baseMap, ok1 := asOptionMap(base); ok1 {
				if overMap, ok2 := asOptionMap(v); ok2 {
					out[k] = map[string]any(mergeOptions(baseMap, overMap))
					continue
				}
			}
		}
		out[k] = v
	}
	return out
}

func asOptionMap(v any) (Options, bool) {
	switch m := v.(type) {
	case Options:
		return m, true
	case map[string]any:
		return Options(m), true
	}
	return nil, false
}

// canonicalOptions reduces an option bag to its shape-affecting keys in a
// deterministic form. Cache-control keys never change the produced document,
// so they are stripped; include/exclude sets are sorted so that declaration
// order does not leak into derived cache keys or dedup identities.
func canonicalOptions(o Options) Options {
	if len(o) == 0 {
		return nil
	}
	out := make(Options, len(o))
	for k, v := range o {
		switch k {
		case OptCacheable, OptCache, OptCacheTTL:
			continue
		case OptInclude, OptExclude:
			out[k] = canonicalFieldSpec(v)
		default:
			out[k] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func canonicalFieldSpec(spec any) any {
	switch v := spec.(type) {
	case nil:
		return nil
	case string:
		return []string{v}
	case []string:
		names := append([]string(nil), v...)
		sort.Strings(names)
		return names
	case []any:
		names := make([]string, len(v))
		for i, item := range v {
			names[i] = fmt.Sprint(item)
		}
		sort.Strings(names)
		return names
	case Options:
		return canonicalFieldSpec(map[string]any(v))
	case map[string]any:
		out := make(map[string]any, len(v))
		for name, sub := range v {
			out[name] = canonicalFieldSpec(sub)
		}
		return out
	default:
		return spec
	}
}
