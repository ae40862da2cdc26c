package docmap

import (
	"errors"
	"fmt"
)

// Stable error codes carried by FieldError.
const (
	CodeRequired             = "required"
	CodeInvalidType          = "invalid_type"
	CodeInvalidEnum          = "invalid_enum"
	CodeInvalidFormat        = "invalid_format"
	CodeConversion           = "conversion"
	CodeValidator            = "validator"
	CodeDiscriminatorUnknown = "discriminator_unknown"
	CodeDuplicateField       = "duplicate_field"
)

// FieldError is a field-scoped validation or conversion failure. Field is
// empty only when the failure cannot be attributed to a single slot.
type FieldError struct {
	Field   string
	Code    string
	Message string
	Cause   error
}

func (e *FieldError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s at %s: %s", e.Code, e.Field, e.Message)
}

func (e *FieldError) Unwrap() error { return e.Cause }

// NewFieldError builds a FieldError with a formatted message.
func NewFieldError(field, code, format string, args ...any) *FieldError {
	return &FieldError{Field: field, Code: code, Message: fmt.Sprintf(format, args...)}
}

// ConversionError reports a value that could not be parsed into the field's
// target type. It is a FieldError with CodeConversion and a cause attached.
func ConversionError(field string, v any, cause error) *FieldError {
	return &FieldError{
		Field:   field,
		Code:    CodeConversion,
		Message: fmt.Sprintf("cannot convert %v (%T)", v, v),
		Cause:   cause,
	}
}

// AsFieldError extracts a *FieldError using errors.As internally.
func AsFieldError(err error) (*FieldError, bool) {
	var fe *FieldError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

// UnresolvedTypeError reports a schema name that could not be found in the
// registry, including after the short-name fallback lookup.
type UnresolvedTypeError struct {
	Name string
}

func (e *UnresolvedTypeError) Error() string {
	return fmt.Sprintf("no schema registered for %q", e.Name)
}

// IndexConstraintError is raised before any mutating index call when a
// declared index violates a structural constraint (for example a TTL index
// spanning more than one key).
type IndexConstraintError struct {
	Index  string
	Reason string
}

func (e *IndexConstraintError) Error() string {
	return fmt.Sprintf("index %s: %s", e.Index, e.Reason)
}

// MetadataConflictError is raised at assembly time when mixin metadata
// cannot be merged unambiguously.
type MetadataConflictError struct {
	Schema string
	Field  string
}

func (e *MetadataConflictError) Error() string {
	return fmt.Sprintf("schema %s: conflicting declarations for field %q", e.Schema, e.Field)
}
