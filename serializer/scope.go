package serializer

import (
	"context"

	"github.com/goliatone/go-serializer/cache"
)

type scopeContextKey struct{}

// keyer derives the deterministic identity strings used by dedup memoization,
// cycle detection, and cache keys.
var keyer = cache.NewDefaultKeySerializer()

// Scope is the call-scoped state of one top-level serialization: a memo of
// serializer instances keyed by (type, source value, options), and the stack
// of source values currently being resolved. A scope lives on the context; it
// must never be shared by concurrent top-level calls.
type Scope struct {
	memo   map[string]*Serializer
	stack  []string
	active map[string]struct{}
}

func newScope() *Scope {
	return &Scope{
		memo:   make(map[string]*Serializer),
		active: make(map[string]struct{}),
	}
}

// WithScope returns a context carrying a serialization scope. Document calls
// establish one automatically; attaching a scope up front lets several
// top-level serializers share dedup and cycle detection. Reattaching is a
// no-op, so only the outermost call owns the scope.
func WithScope(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := scopeFrom(ctx); ok {
		return ctx
	}
	return context.WithValue(ctx, scopeContextKey{}, newScope())
}

func scopeFrom(ctx context.Context) (*Scope, bool) {
	if ctx == nil {
		return nil, false
	}
	sc, ok := ctx.Value(scopeContextKey{}).(*Scope)
	return sc, ok
}

// ensureScope reuses the active scope or establishes a fresh one on a derived
// context. The caller's context is never mutated, so independent top-level
// calls on the same parent context get independent scopes.
func ensureScope(ctx context.Context) (context.Context, *Scope) {
	if ctx == nil {
		ctx = context.Background()
	}
	if sc, ok := scopeFrom(ctx); ok {
		return ctx, sc
	}
	sc := newScope()
	return context.WithValue(ctx, scopeContextKey{}, sc), sc
}

// refToken is the value-identity string used for both memoization and the
// reference stack.
func refToken(source any) string {
	return keyer.SerializeKey("ref", source)
}

func (sc *Scope) memoKey(typ *Type, source any, opts Options) string {
	name := ""
	if typ != nil {
		name = typ.name
	}
	return keyer.SerializeKey(name, source, map[string]any(canonicalOptions(opts)))
}

// load returns the memoized serializer for the (type, source, options) triple,
// constructing it on first request. Structurally identical branches reached
// via different paths collapse to one computation.
func (sc *Scope) load(typ *Type, source any, opts Options) *Serializer {
	key := sc.memoKey(typ, source, opts)
	if s, ok := sc.memo[key]; ok {
		return s
	}
	s := New(typ, source, opts)
	sc.memo[key] = s
	return s
}

// adopt registers a caller-constructed serializer in the memo, or returns the
// instance an equal triple already resolved to.
func (sc *Scope) adopt(s *Serializer) *Serializer {
	key := sc.memoKey(s.typ, s.source, s.opts)
	if existing, ok := sc.memo[key]; ok {
		return existing
	}
	sc.memo[key] = s
	return s
}

// onStack reports whether source is currently being resolved.
func (sc *Scope) onStack(source any) bool {
	_, ok := sc.active[refToken(source)]
	return ok
}

// guard pushes source onto the reference stack for the duration of body,
// popping on every exit path. A source already on the stack fails immediately
// with a *CircularReferenceError, before any recursion happens.
func (sc *Scope) guard(source any, body func() error) error {
	tok := refToken(source)
	if _, ok := sc.active[tok]; ok {
		return &CircularReferenceError{Value: source}
	}

	sc.active[tok] = struct{}{}
	sc.stack = append(sc.stack, tok)
	defer func() {
		sc.stack = sc.stack[:len(sc.stack)-1]
		delete(sc.active, tok)
	}()

	return body()
}

// document resolves a nested serializer through the scope: dedup first, cycle
// check before touching the instance so a self-reference fails instead of
// recursing.
func (sc *Scope) document(ctx context.Context, typ *Type, source any, opts Options) (Document, error) {
	if sc.onStack(source) {
		return nil, &CircularReferenceError{Value: source}
	}
	return sc.load(typ, source, opts).Document(ctx)
}
