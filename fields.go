package docmap

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/goccy/go-json"
)

// String declares a free-form string slot.
func String(opts ...Option) Field {
	return &stringField{base: newBase(opts)}
}

type stringField struct {
	base
}

func (f *stringField) Kind() Kind { return KindString }

func (f *stringField) Validate(v any) error {
	if err := f.runValidators(v); err != nil {
		return err
	}
	if v == nil {
		return nil
	}
	if _, ok := v.(string); !ok {
		return NewFieldError(f.name, CodeInvalidType, "string expected, %v (%T) given", v, v)
	}
	return nil
}

func (f *stringField) PrepareAssign(v any) (any, error) { return v, nil }
func (f *stringField) ToStore(v any) (any, error)       { return v, nil }
func (f *stringField) FromStore(v any) (any, error)     { return v, nil }
func (f *stringField) ToJSON(v any) (any, error)        { return v, nil }
func (f *stringField) FromJSON(v any) (any, error)      { return f.ToStore(v) }

var (
	urlPattern = regexp.MustCompile(`(?i)^(?:http|ftp)s?://` +
		`(?:(?:[A-Z0-9](?:[A-Z0-9-]{0,61}[A-Z0-9])?\.)+(?:[A-Z]{2,6}\.?|[A-Z0-9-]{2,}\.?)|` +
		`localhost|` +
		`\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3})` +
		`(?::\d+)?` +
		`(?:/?|[/?]\S+)$`)
	httpURLPattern = regexp.MustCompile(`(?i)^(?:http)s?://` +
		`(?:(?:[A-Z0-9](?:[A-Z0-9-]{0,61}[A-Z0-9])?\.)+(?:[A-Z]{2,6}\.?|[A-Z0-9-]{2,}\.?)|` +
		`localhost|` +
		`\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3})` +
		`(?::\d+)?` +
		`(?:/?|[/?]\S+)$`)
)

// URL declares a string slot restricted to http(s) and ftp(s) URLs.
func URL(opts ...Option) Field {
	return &urlField{stringField: stringField{base: newBase(opts)}, pattern: urlPattern}
}

// HTTPURL declares a string slot restricted to http(s) URLs.
func HTTPURL(opts ...Option) Field {
	return &urlField{stringField: stringField{base: newBase(opts)}, pattern: httpURLPattern}
}

type urlField struct {
	stringField
	pattern *regexp.Regexp
}

func (f *urlField) Kind() Kind { return KindURL }

func (f *urlField) Validate(v any) error {
	if err := f.stringField.Validate(v); err != nil {
		return err
	}
	if v == nil {
		return nil
	}
	if s, ok := v.(string); ok && !f.pattern.MatchString(s) {
		return NewFieldError(f.name, CodeInvalidFormat, "invalid url %s", s)
	}
	return nil
}

// Int declares an integer slot. The storage form is int64.
func Int(opts ...Option) Field {
	return &intField{base: newBase(opts)}
}

type intField struct {
	base
}

func (f *intField) Kind() Kind { return KindInt }

func (f *intField) Validate(v any) error {
	if err := f.runValidators(v); err != nil {
		return err
	}
	if v == nil {
		return nil
	}
	if _, err := coerceInt64(v); err != nil {
		return NewFieldError(f.name, CodeInvalidType, "couldn't convert %v to int", v)
	}
	return nil
}

func (f *intField) PrepareAssign(v any) (any, error) { return v, nil }

func (f *intField) ToStore(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	n, err := coerceInt64(v)
	if err != nil {
		return nil, ConversionError(f.name, v, err)
	}
	return n, nil
}

func (f *intField) FromStore(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	n, err := coerceInt64(v)
	if err != nil {
		return nil, ConversionError(f.name, v, err)
	}
	return n, nil
}

func (f *intField) ToJSON(v any) (any, error)   { return v, nil }
func (f *intField) FromJSON(v any) (any, error) { return f.ToStore(v) }

// Float declares a floating point slot. Integers coerce on the way in.
func Float(opts ...Option) Field {
	return &floatField{base: newBase(opts)}
}

type floatField struct {
	base
}

func (f *floatField) Kind() Kind { return KindFloat }

func (f *floatField) Validate(v any) error {
	if err := f.runValidators(v); err != nil {
		return err
	}
	if v == nil {
		return nil
	}
	// Strings coerce in FromJSON but are not valid in-memory values.
	if _, ok := v.(string); ok {
		return NewFieldError(f.name, CodeInvalidType, "can't convert %v (string) to float", v)
	}
	if _, err := coerceFloat64(v); err != nil {
		return NewFieldError(f.name, CodeInvalidType, "can't convert %v (%T) to float", v, v)
	}
	return nil
}

func (f *floatField) PrepareAssign(v any) (any, error) { return v, nil }

func (f *floatField) ToStore(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	n, err := coerceFloat64(v)
	if err != nil {
		return nil, ConversionError(f.name, v, err)
	}
	return n, nil
}

func (f *floatField) FromStore(v any) (any, error) { return f.ToStore(v) }
func (f *floatField) ToJSON(v any) (any, error)    { return v, nil }
func (f *floatField) FromJSON(v any) (any, error)  { return f.ToStore(v) }

// Bool declares a boolean slot.
func Bool(opts ...Option) Field {
	return &boolField{base: newBase(opts)}
}

type boolField struct {
	base
}

func (f *boolField) Kind() Kind { return KindBool }

func (f *boolField) Validate(v any) error {
	if err := f.runValidators(v); err != nil {
		return err
	}
	if v == nil {
		return nil
	}
	if _, ok := v.(bool); !ok {
		return NewFieldError(f.name, CodeInvalidType, "only bool values can be used, %v (%T) given", v, v)
	}
	return nil
}

func (f *boolField) PrepareAssign(v any) (any, error) { return v, nil }
func (f *boolField) ToStore(v any) (any, error)       { return v, nil }
func (f *boolField) FromStore(v any) (any, error)     { return v, nil }
func (f *boolField) ToJSON(v any) (any, error)        { return v, nil }
func (f *boolField) FromJSON(v any) (any, error)      { return f.ToStore(v) }

func coerceInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case json.Number:
		return n.Int64()
	case float64:
		if n == float64(int64(n)) {
			return int64(n), nil
		}
		return 0, fmt.Errorf("float %v is not integral", n)
	}
	return 0, fmt.Errorf("unsupported integer source %T", v)
}

func coerceFloat64(v any) (float64, error) {
	switch n := v.(type) {
	case float32:
		return float64(n), nil
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case json.Number:
		return n.Float64()
	case string:
		return strconv.ParseFloat(n, 64)
	}
	return 0, fmt.Errorf("unsupported float source %T", v)
}
