package docmap

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// DateTime declares a timestamp slot. Memory and storage form are both
// time.Time; the JSON form is RFC3339 with offset. Assigning a string is
// allowed and parsed at conversion time; a date-only string expands to
// midnight UTC.
func DateTime(opts ...Option) Field {
	return &dateTimeField{base: newBase(opts)}
}

type dateTimeField struct {
	base
}

func (f *dateTimeField) Kind() Kind { return KindDateTime }

func (f *dateTimeField) Validate(v any) error {
	if err := f.runValidators(v); err != nil {
		return err
	}
	switch t := v.(type) {
	case nil, time.Time:
		return nil
	case string:
		if _, err := parseTimestamp(t); err != nil {
			return NewFieldError(f.name, CodeConversion, "unable to convert %v to datetime: %v", t, err)
		}
		return nil
	}
	return NewFieldError(f.name, CodeInvalidType, "datetime expected, %v (%T) given", v, v)
}

func (f *dateTimeField) PrepareAssign(v any) (any, error) { return v, nil }

func (f *dateTimeField) ToStore(v any) (any, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case time.Time:
		return t, nil
	case string:
		parsed, err := parseTimestamp(t)
		if err != nil {
			return nil, ConversionError(f.name, v, err)
		}
		return parsed, nil
	}
	return nil, ConversionError(f.name, v, fmt.Errorf("unsupported datetime source %T", v))
}

func (f *dateTimeField) FromStore(v any) (any, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case time.Time:
		return t.UTC(), nil
	case bson.DateTime:
		return t.Time().UTC(), nil
	}
	return nil, ConversionError(f.name, v, fmt.Errorf("unsupported datetime source %T", v))
}

func (f *dateTimeField) ToJSON(v any) (any, error) {
	sv, err := f.ToStore(v)
	if err != nil {
		return nil, err
	}
	if sv == nil {
		return nil, nil
	}
	return sv.(time.Time).Format(time.RFC3339), nil
}

func (f *dateTimeField) FromJSON(v any) (any, error) { return f.ToStore(v) }

// timestampLayouts are tried in order. The date-only layout yields midnight,
// matching the "date expands to midnight" rule.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
