package serializer

import "reflect"

// Attributer is the explicit source capability: a value that can hand out
// named attributes without reflection. It is consulted before any fallback;
// returning ok=false falls through to the remaining lookup strategies.
type Attributer interface {
	Attribute(name string) (any, bool)
}

// readAttribute resolves a field value from the source. Lookup order: the
// descriptor's Value override, the Attributer capability, a plain
// map[string]any key, then reflection over methods and struct fields using
// the exported-name candidates for the declared accessor name.
func (s *Serializer) readAttribute(d Descriptor) (any, error) {
	if d.Value != nil {
		return d.Value(s)
	}

	if a, ok := s.source.(Attributer); ok {
		if v, found := a.Attribute(d.Key); found {
			return v, nil
		}
	}

	if m, ok := s.source.(map[string]any); ok {
		return m[d.Key], nil
	}

	if v, ok := reflectAttribute(s.source, d.Key); ok {
		return v, nil
	}

	return nil, &ConfigurationError{Field: d.Key, Message: "no accessor on source " + reflect.TypeOf(s.source).String()}
}

// reflectAttribute reads an attribute from an arbitrary value: a niladic
// single-result method wins over a struct field of the same name.
func reflectAttribute(source any, name string) (any, bool) {
	rv := reflect.ValueOf(source)
	if !rv.IsValid() {
		return nil, false
	}

	candidates := exportedNames(name)

	// Methods are looked up on the original value so pointer receivers work.
	for _, candidate := range candidates {
		m := rv.MethodByName(candidate)
		if m.IsValid() && m.Type().NumIn() == 0 && m.Type().NumOut() == 1 {
			return m.Call(nil)[0].Interface(), true
		}
	}

	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, false
	}

	for _, candidate := range candidates {
		f := rv.FieldByName(candidate)
		if f.IsValid() && f.CanInterface() {
			return f.Interface(), true
		}
	}

	return nil, false
}
