package docmap

import (
	"go.mongodb.org/mongo-driver/v2/bson"
)

// List declares an ordered sequence slot. Every element is independently
// validated and converted through the element field.
func List(elem Field, opts ...Option) Field {
	return &listField{base: newBase(opts), elem: elem}
}

type listField struct {
	base
	elem Field
}

func (f *listField) Kind() Kind { return KindList }

func (f *listField) Validate(v any) error {
	if err := f.runValidators(v); err != nil {
		return err
	}
	if v == nil {
		return nil
	}
	items, ok := asSlice(v)
	if !ok {
		return NewFieldError(f.name, CodeInvalidType, "sequence expected, %v (%T) given", v, v)
	}
	for _, item := range items {
		if err := f.elem.Validate(item); err != nil {
			return err
		}
	}
	return nil
}

func (f *listField) PrepareAssign(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	items, ok := asSlice(v)
	if !ok {
		return v, nil
	}
	out := make([]any, len(items))
	for i, item := range items {
		prepared, err := f.elem.PrepareAssign(item)
		if err != nil {
			return nil, err
		}
		out[i] = prepared
	}
	return out, nil
}

func (f *listField) ToStore(v any) (any, error)   { return f.convert(v, f.elem.ToStore) }
func (f *listField) FromStore(v any) (any, error) { return f.convert(v, f.elem.FromStore) }
func (f *listField) ToJSON(v any) (any, error)    { return f.convert(v, f.elem.ToJSON) }
func (f *listField) FromJSON(v any) (any, error)  { return f.convert(v, f.elem.FromJSON) }

func (f *listField) convert(v any, conv func(any) (any, error)) (any, error) {
	if v == nil {
		return nil, nil
	}
	items, ok := asSlice(v)
	if !ok {
		return nil, NewFieldError(f.name, CodeInvalidType, "sequence expected, %v (%T) given", v, v)
	}
	out := make([]any, len(items))
	for i, item := range items {
		cv, err := conv(item)
		if err != nil {
			return nil, err
		}
		out[i] = cv
	}
	return out, nil
}

// Map declares a string-keyed mapping slot with per-value conversion.
func Map(elem Field, opts ...Option) Field {
	return &mapField{base: newBase(opts), elem: elem}
}

type mapField struct {
	base
	elem Field
}

func (f *mapField) Kind() Kind { return KindMap }

func (f *mapField) Validate(v any) error {
	if err := f.runValidators(v); err != nil {
		return err
	}
	if v == nil {
		return nil
	}
	m, ok := asMap(v)
	if !ok {
		return NewFieldError(f.name, CodeInvalidType, "mapping expected, %v (%T) given", v, v)
	}
	for _, item := range m {
		if err := f.elem.Validate(item); err != nil {
			return err
		}
	}
	return nil
}

func (f *mapField) PrepareAssign(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	m, ok := asMap(v)
	if !ok {
		return v, nil
	}
	out := make(map[string]any, len(m))
	for k, item := range m {
		prepared, err := f.elem.PrepareAssign(item)
		if err != nil {
			return nil, err
		}
		out[k] = prepared
	}
	return out, nil
}

func (f *mapField) ToStore(v any) (any, error)   { return f.convert(v, f.elem.ToStore) }
func (f *mapField) FromStore(v any) (any, error) { return f.convert(v, f.elem.FromStore) }
func (f *mapField) ToJSON(v any) (any, error)    { return f.convert(v, f.elem.ToJSON) }
func (f *mapField) FromJSON(v any) (any, error)  { return f.convert(v, f.elem.FromJSON) }

func (f *mapField) convert(v any, conv func(any) (any, error)) (any, error) {
	if v == nil {
		return nil, nil
	}
	m, ok := asMap(v)
	if !ok {
		return nil, NewFieldError(f.name, CodeInvalidType, "mapping expected, %v (%T) given", v, v)
	}
	out := make(map[string]any, len(m))
	for k, item := range m {
		cv, err := conv(item)
		if err != nil {
			return nil, err
		}
		out[k] = cv
	}
	return out, nil
}

// Doc declares a nested document slot bound to a schema known at
// declaration time.
func Doc(schema *Schema, opts ...Option) Field {
	return &docField{base: newBase(opts), schema: schema}
}

// DocNamed declares a nested document slot bound by schema name, resolved
// lazily through the registry. This is the forward/self-reference form; a
// ResolveAll pass turns unresolved names into hard failures.
func DocNamed(schemaName string, opts ...Option) Field {
	return &docField{base: newBase(opts), schemaName: schemaName}
}

type docField struct {
	base
	schema     *Schema
	schemaName string
}

func (f *docField) Kind() Kind { return KindDoc }

func (f *docField) resolveRefs() error {
	_, err := f.target()
	return err
}

func (f *docField) target() (*Schema, error) {
	if f.schema != nil {
		return f.schema, nil
	}
	s, err := LookupSchema(f.schemaName)
	if err != nil {
		return nil, err
	}
	f.schema = s
	return s, nil
}

// promote turns the conversion-boundary input into an instance: it is
// either an already-typed *Document or a raw mapping to construct.
func (f *docField) promote(v any) (*Document, error) {
	target, err := f.target()
	if err != nil {
		return nil, err
	}
	switch t := v.(type) {
	case *Document:
		return t, nil
	case map[string]any:
		return target.NewFrom(t)
	case bson.M:
		return target.NewFrom(map[string]any(t))
	}
	return nil, NewFieldError(f.name, CodeInvalidType,
		"%s instance or mapping accepted, %v (%T) given", f.targetName(), v, v)
}

func (f *docField) targetName() string {
	if f.schema != nil {
		return f.schema.name
	}
	return f.schemaName
}

func (f *docField) Validate(v any) error {
	if err := f.runValidators(v); err != nil {
		return err
	}
	if v == nil {
		return nil
	}
	d, err := f.promote(v)
	if err != nil {
		return err
	}
	return d.Validate()
}

func (f *docField) PrepareAssign(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	return f.promote(v)
}

func (f *docField) ToStore(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	d, err := f.promote(v)
	if err != nil {
		return nil, err
	}
	return d.ToStore()
}

func (f *docField) FromStore(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	target, err := f.target()
	if err != nil {
		return nil, err
	}
	payload, ok := asMap(v)
	if !ok {
		return nil, NewFieldError(f.name, CodeInvalidType, "mapping expected, %v (%T) given", v, v)
	}
	return target.FromStore(bson.M(payload))
}

func (f *docField) ToJSON(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	d, err := f.promote(v)
	if err != nil {
		return nil, err
	}
	return d.ToJSON()
}

func (f *docField) FromJSON(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	target, err := f.target()
	if err != nil {
		return nil, err
	}
	payload, ok := asMap(v)
	if !ok {
		return nil, NewFieldError(f.name, CodeInvalidType, "mapping expected, %v (%T) given", v, v)
	}
	return target.FromJSONMap(payload)
}

// Polymorphic declares a nested document slot whose concrete schema is
// chosen by reading a discriminator attribute from the raw payload and
// looking it up in the variant map.
func Polymorphic(discriminator string, variants map[any]*Schema, opts ...Option) Field {
	return &polyField{base: newBase(opts), discriminator: discriminator, variants: variants}
}

type polyField struct {
	base
	discriminator string
	variants      map[any]*Schema
}

func (f *polyField) Kind() Kind { return KindPolymorphic }

func (f *polyField) schemaFor(payload map[string]any) (*Schema, error) {
	attr := payload[f.discriminator]
	if s, ok := f.variants[attr]; ok {
		return s, nil
	}
	return nil, NewFieldError(f.name, CodeDiscriminatorUnknown,
		"no class for %s:%v", f.discriminator, attr)
}

func (f *polyField) promote(v any) (*Document, error) {
	switch t := v.(type) {
	case *Document:
		for _, s := range f.variants {
			if t.schema == s {
				return t, nil
			}
		}
		return nil, NewFieldError(f.name, CodeInvalidType,
			"%s is not a declared variant", t.schema.name)
	case map[string]any:
		s, err := f.schemaFor(t)
		if err != nil {
			return nil, err
		}
		return s.NewFrom(t)
	case bson.M:
		return f.promote(map[string]any(t))
	}
	return nil, NewFieldError(f.name, CodeInvalidType,
		"variant instance or mapping accepted, %v (%T) given", v, v)
}

func (f *polyField) Validate(v any) error {
	if err := f.runValidators(v); err != nil {
		return err
	}
	if v == nil {
		return nil
	}
	d, err := f.promote(v)
	if err != nil {
		return err
	}
	return d.Validate()
}

func (f *polyField) PrepareAssign(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	return f.promote(v)
}

func (f *polyField) ToStore(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	d, err := f.promote(v)
	if err != nil {
		return nil, err
	}
	return d.ToStore()
}

func (f *polyField) FromStore(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	payload, ok := asMap(v)
	if !ok {
		return nil, NewFieldError(f.name, CodeInvalidType, "mapping expected, %v (%T) given", v, v)
	}
	s, err := f.schemaFor(payload)
	if err != nil {
		return nil, err
	}
	return s.FromStore(bson.M(payload))
}

func (f *polyField) ToJSON(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	d, err := f.promote(v)
	if err != nil {
		return nil, err
	}
	return d.ToJSON()
}

func (f *polyField) FromJSON(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	payload, ok := asMap(v)
	if !ok {
		return nil, NewFieldError(f.name, CodeInvalidType, "mapping expected, %v (%T) given", v, v)
	}
	s, err := f.schemaFor(payload)
	if err != nil {
		return nil, err
	}
	return s.FromJSONMap(payload)
}

func asSlice(v any) ([]any, bool) {
	switch t := v.(type) {
	case []any:
		return t, true
	case bson.A:
		return []any(t), true
	}
	return nil, false
}

func asMap(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case map[string]any:
		return t, true
	case bson.M:
		return map[string]any(t), true
	}
	return nil, false
}
