package docmap

import (
	"bytes"
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/goccy/go-json"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// Document is one value conforming to a Schema. It owns a single mutable
// mapping from field name to converted value. Construction applies declared
// defaults immediately; validation is on demand and side-effect-free.
type Document struct {
	schema *Schema
	data   map[string]any
}

// New constructs an empty instance and applies defaults. A generator
// default is invoked here, per instance, so timestamp defaults capture the
// construction time. When schema assembly fails the instance is bare and
// the assembly error surfaces from NewFrom, Validate and the conversion
// entry points.
func (s *Schema) New() *Document {
	d := &Document{schema: s, data: map[string]any{}}
	meta, err := s.Metadata()
	if err != nil {
		return d
	}
	for name, f := range meta.Defaults {
		if v, has := f.Default(); has {
			d.data[name] = v
		}
	}
	return d
}

// NewFrom constructs an instance from a raw mapping. Every known key runs
// through its field's PrepareAssign conversion; unknown keys are ignored.
func (s *Schema) NewFrom(values map[string]any) (*Document, error) {
	if _, err := s.Metadata(); err != nil {
		return nil, err
	}
	d := s.New()
	for name, v := range values {
		if _, known := s.FieldByName(name); !known {
			continue
		}
		if err := d.Set(name, v); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func (d *Document) Schema() *Schema { return d.schema }

// Get returns the current value of a slot, nil when unset.
func (d *Document) Get(name string) any { return d.data[name] }

// Set assigns a slot, re-running the field's prepare conversion. Assigning
// a raw mapping to a nested-document slot promotes it to an instance here,
// not at validation time.
func (d *Document) Set(name string, v any) error {
	f, ok := d.schema.FieldByName(name)
	if !ok {
		return NewFieldError(name, CodeInvalidType, "schema %s has no field %q", d.schema.name, name)
	}
	prepared, err := f.PrepareAssign(v)
	if err != nil {
		return err
	}
	d.data[name] = prepared
	return nil
}

// ID returns the identifier value, or nil when the instance has not been
// persisted (or constructed from persisted data).
func (d *Document) ID() any { return d.data[IDFieldName] }

// SetID assigns the identifier slot directly.
func (d *Document) SetID(id bson.ObjectID) { d.data[IDFieldName] = id }

// Validate checks required fields, choice sets and per-field rules. It
// does not mutate the instance and is safe to call repeatedly.
func (d *Document) Validate() error {
	meta, err := d.schema.Metadata()
	if err != nil {
		return err
	}
	for name := range meta.Required {
		if d.data[name] == nil {
			return NewFieldError(name, CodeRequired, "field %s is missing", name)
		}
	}
	for name, choices := range meta.Choices {
		v, present := d.data[name]
		if !present || v == nil {
			continue
		}
		if !within(v, choices) {
			return NewFieldError(name, CodeInvalidEnum,
				"field %s value %v is not included in %v", name, v, choices)
		}
	}
	for name, v := range d.data {
		if v == nil {
			continue
		}
		if f, ok := d.schema.FieldByName(name); ok {
			if err := f.Validate(v); err != nil {
				return err
			}
		}
	}
	return nil
}

// ToStore converts the instance to its storage form, skipping nil slots.
func (d *Document) ToStore() (bson.M, error) {
	result := bson.M{}
	for name, v := range d.data {
		if v == nil {
			continue
		}
		f, ok := d.schema.FieldByName(name)
		if !ok {
			continue
		}
		sv, err := f.ToStore(v)
		if err != nil {
			return nil, err
		}
		if sv != nil {
			result[name] = sv
		}
	}
	return result, nil
}

// ToJSON converts the instance to a JSON-safe mapping. The identifier slot
// is emitted under "id" as a hex string.
func (d *Document) ToJSON() (map[string]any, error) {
	result := map[string]any{}
	for name, v := range d.data {
		if v == nil {
			continue
		}
		f, ok := d.schema.FieldByName(name)
		if !ok {
			continue
		}
		jv, err := f.ToJSON(v)
		if err != nil {
			return nil, err
		}
		if jv == nil {
			continue
		}
		if name == IDFieldName {
			result["id"] = jv
			continue
		}
		result[name] = jv
	}
	return result, nil
}

// MarshalJSON implements json.Marshaler over the JSON form.
func (d *Document) MarshalJSON() ([]byte, error) {
	m, err := d.ToJSON()
	if err != nil {
		return nil, err
	}
	return json.Marshal(m)
}

// FromStore reconstructs an instance from its storage form. A nil payload
// yields a nil instance.
func (s *Schema) FromStore(payload bson.M) (*Document, error) {
	if payload == nil {
		return nil, nil
	}
	if _, err := s.Metadata(); err != nil {
		return nil, err
	}
	d := s.New()
	for name, v := range payload {
		f, ok := s.FieldByName(name)
		if !ok {
			continue
		}
		mv, err := f.FromStore(v)
		if err != nil {
			return nil, err
		}
		d.data[name] = mv
	}
	return d, nil
}

// FromJSONMap builds an instance from an external textual payload already
// decoded into a mapping. The identifier accepts both "id" and "_id".
// Conversion failures surface as field-scoped errors.
func (s *Schema) FromJSONMap(payload map[string]any) (*Document, error) {
	values := map[string]any{}
	for name, v := range payload {
		if name == "id" || name == IDFieldName {
			if v == nil {
				continue
			}
			idf, err := s.idField()
			if err != nil {
				return nil, err
			}
			sv, err := idf.FromJSON(v)
			if err != nil {
				return nil, err
			}
			values[IDFieldName] = sv
			continue
		}
		f, ok := s.FieldByName(name)
		if !ok {
			continue
		}
		sv, err := f.FromJSON(v)
		if err != nil {
			if _, isField := AsFieldError(err); isField {
				return nil, err
			}
			return nil, ConversionError(name, v, err)
		}
		values[name] = sv
	}
	return s.NewFrom(values)
}

// FromJSONBytes decodes raw JSON and builds an instance from it. Numbers
// decode as json.Number so integer and decimal fields keep precision.
func (s *Schema) FromJSONBytes(data []byte) (*Document, error) {
	var payload map[string]any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil {
		return nil, err
	}
	return s.FromJSONMap(payload)
}

// Copy produces a detached duplicate: same data, identifier stripped. The
// copy is a template for creating a new persisted record.
func (d *Document) Copy() *Document {
	data := deepCopyValue(d.data).(map[string]any)
	delete(data, IDFieldName)
	return &Document{schema: d.schema, data: data}
}

// CopyInPlace replaces this instance's data with a deep copy of another's.
func (d *Document) CopyInPlace(other *Document) {
	d.data = deepCopyValue(other.data).(map[string]any)
}

// Equal reports identity: same schema and same non-nil identifier. An
// instance without an identifier equals nothing, itself included.
func (d *Document) Equal(other *Document) bool {
	if other == nil || d.schema != other.schema {
		return false
	}
	if d.ID() == nil {
		return false
	}
	return d.ID() == other.ID()
}

// Hash returns an identity hash. Instances without an identifier are
// unhashable so they cannot end up in identity-keyed containers before
// persistence.
func (d *Document) Hash() (uint64, error) {
	id, ok := d.ID().(bson.ObjectID)
	if !ok {
		return 0, fmt.Errorf("documents without id are unhashable")
	}
	return xxhash.Sum64String(d.schema.name + ":" + id.Hex()), nil
}

func (d *Document) String() string {
	return fmt.Sprintf("%s:%v", shortName(d.schema.name), d.ID())
}

// idField resolves the identifier slot, propagating an assembly failure
// instead of handing back a nil field.
func (s *Schema) idField() (Field, error) {
	if err := s.assemble(); err != nil {
		return nil, err
	}
	return s.byName[IDFieldName], nil
}

func within(v any, choices []any) bool {
	for _, c := range choices {
		if v == c {
			return true
		}
	}
	return false
}

func deepCopyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = deepCopyValue(item)
		}
		return out
	case bson.M:
		out := make(bson.M, len(t))
		for k, item := range t {
			out[k] = deepCopyValue(item)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = deepCopyValue(item)
		}
		return out
	case *Document:
		if t == nil {
			return (*Document)(nil)
		}
		return &Document{schema: t.schema, data: deepCopyValue(t.data).(map[string]any)}
	}
	return v
}
