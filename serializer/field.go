package serializer

// Predicate decides whether a conditional field is rendered. It runs against
// the owning serializer instance, so it can inspect both the source value and
// the caller-supplied options.
type Predicate func(s *Serializer) bool

// Accessor overrides how a field value is read from the source. When set on a
// descriptor it replaces the default by-name lookup entirely.
type Accessor func(s *Serializer) (any, error)

// Descriptor is the declarative metadata for one output field.
type Descriptor struct {
	// Name is the output key, unique within a registry.
	Name string

	// Key is the accessor name used to read the source value. It defaults to
	// the declared name and diverges when the field was declared with "as"
	// (declared name stays the accessor) or "key" (declared name stays the
	// output name).
	Key string

	// Optional fields are rendered only when named in the include option.
	Optional bool

	// If, when set, must return true for the field to be rendered.
	If Predicate

	// Serializer binds the field to a nested serializer type.
	Serializer *Type

	// SerializerOptions are static options handed to the nested serializer,
	// deep-merged with whatever the caller forwards; the caller wins.
	SerializerOptions Options

	// Enumerable wraps each element of a sequence in the nested serializer
	// instead of the sequence as a whole.
	Enumerable bool

	// Value, when set, is a user override replacing the by-name source read.
	Value Accessor
}

// Declaration option keys accepted by Type.Declare.
const (
	declAs                = "as"
	declKey               = "key"
	declOptional          = "optional"
	declIf                = "if"
	declSerializer        = "serializer"
	declSerializerOptions = "serializer_options"
	declEnumerable        = "enumerable"
	declValue             = "value"
)

// parseFieldOptions validates a declaration option bag and folds it into a
// descriptor template shared by every name in the declaration.
func parseFieldOptions(opts Options, names []string) (Descriptor, error) {
	var tpl Descriptor

	for key, raw := range opts {
		switch key {
		case declAs:
			name, ok := raw.(string)
			if !ok || name == "" {
				return tpl, &ConfigurationError{Field: declAs, Message: "must be a non-empty string"}
			}
			if len(names) > 1 {
				return tpl, &ConfigurationError{Field: declAs, Message: "cannot alias more than one field"}
			}
			tpl.Name = name
		case declKey:
			name, ok := raw.(string)
			if !ok || name == "" {
				return tpl, &ConfigurationError{Field: declKey, Message: "must be a non-empty string"}
			}
			if len(names) > 1 {
				return tpl, &ConfigurationError{Field: declKey, Message: "cannot redirect more than one field"}
			}
			tpl.Key = name
		case declOptional:
			v, ok := raw.(bool)
			if !ok {
				return tpl, &ConfigurationError{Field: declOptional, Message: "must be a bool"}
			}
			tpl.Optional = v
		case declIf:
			switch fn := raw.(type) {
			case Predicate:
				tpl.If = fn
			case func(*Serializer) bool:
				tpl.If = fn
			default:
				return tpl, &ConfigurationError{Field: declIf, Message: "must be a Predicate"}
			}
		case declSerializer:
			t, ok := raw.(*Type)
			if !ok || t == nil {
				return tpl, &ConfigurationError{Field: declSerializer, Message: "must be a *Type"}
			}
			tpl.Serializer = t
		case declSerializerOptions:
			m, ok := asOptionMap(raw)
			if !ok {
				return tpl, &ConfigurationError{Field: declSerializerOptions, Message: "must be an Options map"}
			}
			tpl.SerializerOptions = m.clone()
		case declEnumerable:
			v, ok := raw.(bool)
			if !ok {
				return tpl, &ConfigurationError{Field: declEnumerable, Message: "must be a bool"}
			}
			tpl.Enumerable = v
		case declValue:
			switch fn := raw.(type) {
			case Accessor:
				tpl.Value = fn
			case func(*Serializer) (any, error):
				tpl.Value = fn
			default:
				return tpl, &ConfigurationError{Field: declValue, Message: "must be an Accessor"}
			}
		default:
			return tpl, &ConfigurationError{Field: key, Message: "unsupported declaration option"}
		}
	}

	return tpl, nil
}

// describe materializes the descriptor for a single declared name.
func (tpl Descriptor) describe(declared string) Descriptor {
	d := tpl
	if d.Key == "" {
		d.Key = declared
	}
	if d.Name == "" {
		d.Name = declared
	}
	return d
}
