package serializer

import (
	"fmt"
	"reflect"
	"time"
)

// Documenter is the "to document" capability: a value that knows how to render
// itself as a plain mapping. It is the last conversion strategy tried before
// passing a value through unchanged.
type Documenter interface {
	ToDocument() map[string]any
}

// convertValue prepares a raw attribute value for a document. Scalars pass
// through, instants are normalized to UTC, containers convert element-wise,
// and values carrying the Documenter capability are delegated to it. It never
// fails; anything unrecognized passes through for the wire encoder to handle.
func convertValue(v any) any {
	out, _ := convert(v)
	return out
}

// convert reports whether the converted value differs from its input so that
// container conversions can alias the original when nothing changed.
func convert(v any) (any, bool) {
	switch x := v.(type) {
	case nil:
		return nil, false
	case time.Time:
		if x.Location() == time.UTC {
			return x, false
		}
		return x.UTC(), true
	case Document:
		out, changed := convertStringMap(x)
		if !changed {
			return x, false
		}
		return Document(out), true
	case map[string]any:
		out, changed := convertStringMap(x)
		if !changed {
			return x, false
		}
		return out, true
	case []byte, string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return v, false
	}

	if d, ok := v.(Documenter); ok {
		return d.ToDocument(), true
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer:
		if rv.IsNil() {
			return nil, true
		}
		elem, changed := convert(rv.Elem().Interface())
		if !changed {
			return v, false
		}
		return elem, true
	case reflect.Slice:
		if rv.IsNil() {
			return nil, true
		}
		return convertSequence(rv)
	case reflect.Array:
		return convertSequence(rv)
	case reflect.Map:
		if rv.IsNil() {
			return nil, true
		}
		return convertReflectedMap(rv)
	}

	return v, false
}

func convertStringMap(m map[string]any) (map[string]any, bool) {
	changed := false
	for _, v := range m {
		if _, c := convert(v); c {
			changed = true
			break
		}
	}
	if !changed {
		return m, false
	}

	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k], _ = convert(v)
	}
	return out, true
}

// convertSequence converts element-wise, allocating a new []any only when at
// least one element changed.
func convertSequence(rv reflect.Value) (any, bool) {
	n := rv.Len()
	changed := false
	for i := 0; i < n; i++ {
		if _, c := convert(rv.Index(i).Interface()); c {
			changed = true
			break
		}
	}
	if !changed {
		return rv.Interface(), false
	}

	out := make([]any, n)
	for i := 0; i < n; i++ {
		out[i], _ = convert(rv.Index(i).Interface())
	}
	return out, true
}

// convertReflectedMap handles non-map[string]any mappings. Unchanged maps are
// returned as-is; a changed map is rebuilt as map[string]any with stringified
// keys, which is what wire encoders expect anyway.
func convertReflectedMap(rv reflect.Value) (any, bool) {
	changed := false
	iter := rv.MapRange()
	for iter.Next() {
		if _, c := convert(iter.Value().Interface()); c {
			changed = true
			break
		}
	}
	if !changed {
		return rv.Interface(), false
	}

	out := make(map[string]any, rv.Len())
	iter = rv.MapRange()
	for iter.Next() {
		v, _ := convert(iter.Value().Interface())
		out[fmt.Sprint(iter.Key().Interface())] = v
	}
	return out, true
}

// isNil reports whether a value is semantically absent: a nil interface or a
// typed nil pointer, map, slice, channel, or function.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
