package cache

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// KeySeparator delimits cache key segments.
const KeySeparator = "::"

// MaxKeyLength is the length above which derived keys are compacted to a
// digest. Backends tend to cap key sizes, and a serialized option bag or a
// wide source value can blow well past them.
const MaxKeyLength = 200

// maxEncodeDepth bounds reflective encoding. Self-referential values must
// produce a finite, stable token instead of recursing forever; anything
// nested deeper than this encodes as an opaque depth marker.
const maxEncodeDepth = 32

// CacheKeyer is the stable-key capability for source values. Values that
// implement it short-circuit reflective encoding, which is the only way to
// get keys that survive process restarts for values containing pointers.
type CacheKeyer interface {
	CacheKey() string
}

// KeySerializer builds a cache key from a name plus arbitrary args. It is
// responsible for producing stable keys across calls: equal inputs must map
// to equal keys, and equal keys should imply equal documents.
type KeySerializer interface {
	SerializeKey(name string, args ...any) string
}

// defaultKeySerializer implements KeySerializer using reflection-based
// encoding: sorted map keys, recursive sequences, JSON as a last resort, and
// xxhash compaction for oversized keys.
type defaultKeySerializer struct{}

// NewDefaultKeySerializer creates the default key serializer.
func NewDefaultKeySerializer() KeySerializer {
	return &defaultKeySerializer{}
}

// SerializeKey joins name and the deterministic encoding of each arg. Keys
// longer than MaxKeyLength keep the name prefix and replace the rest with a
// digest of the full key.
func (s *defaultKeySerializer) SerializeKey(name string, args ...any) string {
	if len(args) == 0 {
		return name
	}

	parts := make([]string, 0, len(args)+1)
	parts = append(parts, name)
	for _, arg := range args {
		parts = append(parts, s.serializeValue(arg, 0))
	}

	key := strings.Join(parts, KeySeparator)
	if len(key) <= MaxKeyLength {
		return key
	}
	return name + KeySeparator + fmt.Sprintf("x%016x", xxhash.Sum64String(key))
}

// serializeValue encodes a single value based on its dynamic type.
func (s *defaultKeySerializer) serializeValue(v any, depth int) string {
	if v == nil {
		return "nil"
	}

	rv := reflect.ValueOf(v)
	rt := rv.Type()

	if k, ok := v.(CacheKeyer); ok {
		// A typed nil pointer still satisfies the interface; treat it as absent
		// instead of calling through it.
		if rt.Kind() != reflect.Pointer || !rv.IsNil() {
			return "key:" + k.CacheKey()
		}
	}

	if depth > maxEncodeDepth {
		return "deep:" + rt.String()
	}

	switch rt.Kind() {
	case reflect.Func:
		// Stable only within one process lifetime.
		return fmt.Sprintf("func:%p", v)
	case reflect.Chan:
		return fmt.Sprintf("chan:%p", v)
	case reflect.Pointer:
		if rv.IsNil() {
			return "nil"
		}
		return s.serializeValue(rv.Elem().Interface(), depth+1)
	case reflect.Interface:
		if rv.IsNil() {
			return "nil"
		}
		return s.serializeValue(rv.Elem().Interface(), depth+1)
	case reflect.Slice:
		if rv.IsNil() {
			return "slice:nil"
		}
		return s.serializeSequence("slice", rv, depth)
	case reflect.Array:
		return s.serializeSequence("array", rv, depth)
	case reflect.Map:
		if rv.IsNil() {
			return "map:nil"
		}
		return s.serializeMap(rv, depth)
	case reflect.Struct:
		return s.serializeStruct(rv, rt, depth)
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64,
		reflect.Complex64, reflect.Complex128,
		reflect.String:
		return fmt.Sprintf("%v", v)
	}

	return s.jsonFallback(v)
}

func (s *defaultKeySerializer) serializeSequence(kind string, rv reflect.Value, depth int) string {
	length := rv.Len()
	parts := make([]string, length)
	for i := 0; i < length; i++ {
		parts[i] = s.serializeValue(rv.Index(i).Interface(), depth+1)
	}
	return fmt.Sprintf("%s[%d]:{%s}", kind, length, strings.Join(parts, ","))
}

// serializeMap sorts entries by their serialized key for determinism.
func (s *defaultKeySerializer) serializeMap(rv reflect.Value, depth int) string {
	pairs := make([]string, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		pairs = append(pairs, s.serializeValue(iter.Key().Interface(), depth+1)+"="+s.serializeValue(iter.Value().Interface(), depth+1))
	}
	sort.Strings(pairs)
	return fmt.Sprintf("map[%d]:{%s}", len(pairs), strings.Join(pairs, ","))
}

// serializeStruct encodes exported fields as name:value pairs in declaration
// order.
func (s *defaultKeySerializer) serializeStruct(rv reflect.Value, rt reflect.Type, depth int) string {
	parts := make([]string, 0, rv.NumField())
	for i := 0; i < rv.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		fv := rv.Field(i)
		if !fv.CanInterface() {
			continue
		}
		parts = append(parts, field.Name+":"+s.serializeValue(fv.Interface(), depth+1))
	}
	return fmt.Sprintf("struct:{%s}", strings.Join(parts, ","))
}

// jsonFallback covers anything the switch above cannot encode. Stability wins
// over fidelity here: a failed marshal degrades to type information rather
// than failing the cache operation.
func (s *defaultKeySerializer) jsonFallback(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "fallback:" + reflect.TypeOf(v).String()
	}
	return "json:" + string(data)
}
