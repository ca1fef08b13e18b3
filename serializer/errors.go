package serializer

import "fmt"

// ConfigurationError reports an invalid field declaration or an invalid use of
// a serializer type. It is always a caller bug, never a data problem.
type ConfigurationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	return "serializer: configuration error in " + e.Field + ": " + e.Message
}

// CircularReferenceError is returned the moment a source value that is already
// being resolved shows up again deeper in the same resolution. The whole
// top-level call fails; callers must break self-referential graphs beforehand,
// typically with an exclude option.
type CircularReferenceError struct {
	Value any
}

// Error implements the error interface. The offending value is reported by
// type only: rendering a self-referential value would itself never terminate.
func (e *CircularReferenceError) Error() string {
	return fmt.Sprintf("serializer: circular reference detected for %T value", e.Value)
}
