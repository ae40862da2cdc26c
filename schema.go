package docmap

import (
	"strings"
	"sync"
)

// IDFieldName is the reserved identifier slot present on every schema.
const IDFieldName = "_id"

// Builder assembles a Schema. Declaration order is preserved; mixins merge
// ahead of the builder's own fields, so own declarations win on conflict.
type Builder struct {
	name       string
	collection string
	mixins     []*Schema
	fields     []Field
	indexes    []IndexSpec
	err        error
}

// Define starts a schema declaration. The name should be fully qualified
// ("billing.Payment"); the short form after the last dot is used for the
// registry fallback lookup and the default collection name.
func Define(name string) *Builder {
	return &Builder{name: name}
}

// Collection overrides the default collection name.
func (b *Builder) Collection(name string) *Builder {
	b.collection = name
	return b
}

// Mixin merges other schemas' fields into this one at build time. Later
// mixins override earlier ones by field name; own fields override all.
func (b *Builder) Mixin(ms ...*Schema) *Builder {
	b.mixins = append(b.mixins, ms...)
	return b
}

// Field declares a named slot. The field's name attribute, when not set by
// the declarer, is filled from the declaration slot.
func (b *Builder) Field(name string, f Field) *Builder {
	f.bind(name)
	b.fields = append(b.fields, f)
	return b
}

// Indexes declares the secondary indexes kept in sync for this schema's
// collection.
func (b *Builder) Indexes(specs ...IndexSpec) *Builder {
	b.indexes = append(b.indexes, specs...)
	return b
}

// Build finalizes the schema and registers it under its name. Duplicate
// own-field names fail; a mixin field shadowed by an own field does not.
func (b *Builder) Build() (*Schema, error) {
	seen := make(map[string]struct{}, len(b.fields))
	for _, f := range b.fields {
		if _, dup := seen[f.Name()]; dup {
			return nil, NewFieldError(f.Name(), CodeDuplicateField,
				"field %q declared twice on %s", f.Name(), b.name)
		}
		seen[f.Name()] = struct{}{}
	}

	s := &Schema{
		name:       b.name,
		collection: b.collection,
		mixins:     b.mixins,
		own:        b.fields,
		indexes:    b.indexes,
	}
	if s.collection == "" {
		s.collection = strings.ToLower(shortName(b.name))
	}
	registerSchema(s)
	return s, nil
}

// MustBuild is Build for package-level declarations.
func (b *Builder) MustBuild() *Schema {
	s, err := b.Build()
	if err != nil {
		panic(err)
	}
	return s
}

// Schema is the immutable description of one document type: its ordered
// fields (own plus mixins), its collection and its declared indexes.
// Merged fields and metadata are computed at most once, on first use.
type Schema struct {
	name       string
	collection string
	mixins     []*Schema
	own        []Field
	indexes    []IndexSpec

	assembleOnce sync.Once
	merged       []Field
	byName       map[string]Field
	meta         *Metadata
	assembleErr  error
}

// Metadata is the per-type aggregate computed once at assembly. Required is
// the union across mixins and own declarations: a redeclaration cannot
// un-require an inherited name. Defaults and Choices merge per name, the
// most specific declaration winning; an inherited entry survives a
// redeclaration that does not carry its own.
type Metadata struct {
	Required map[string]struct{}
	Defaults map[string]Field
	Choices  map[string][]any
}

func (s *Schema) Name() string         { return s.name }
func (s *Schema) Collection() string   { return s.collection }
func (s *Schema) Indexes() []IndexSpec { return s.indexes }

// Fields returns the merged, ordered field list: mixin fields in mixin
// declaration order, then own fields, with later declarations replacing
// earlier ones of the same name in place.
func (s *Schema) Fields() ([]Field, error) {
	if err := s.assemble(); err != nil {
		return nil, err
	}
	return s.merged, nil
}

// FieldByName resolves one slot of the merged field list.
func (s *Schema) FieldByName(name string) (Field, bool) {
	if err := s.assemble(); err != nil {
		return nil, false
	}
	f, ok := s.byName[name]
	return f, ok
}

// Metadata returns the merged required/default/choice aggregate.
func (s *Schema) Metadata() (*Metadata, error) {
	if err := s.assemble(); err != nil {
		return nil, err
	}
	return s.meta, nil
}

func (s *Schema) assemble() error {
	s.assembleOnce.Do(func() { s.assembleErr = s.doAssemble() })
	return s.assembleErr
}

func (s *Schema) doAssemble() error {
	var order []string
	byName := map[string]Field{}
	// origin tracks which mixin contributed a name, to distinguish a child
	// override (fine) from two sibling mixins colliding (a conflict when
	// their kinds disagree).
	origin := map[string]int{}

	merge := func(fields []Field, mixinIdx int) error {
		for _, f := range fields {
			name := f.Name()
			prev, exists := byName[name]
			if !exists {
				order = append(order, name)
			} else if mixinIdx >= 0 && origin[name] >= 0 && origin[name] != mixinIdx {
				if prev.Kind() != f.Kind() {
					return &MetadataConflictError{Schema: s.name, Field: name}
				}
			}
			byName[name] = f
			origin[name] = mixinIdx
		}
		return nil
	}

	for i, m := range s.mixins {
		mixinFields, err := m.Fields()
		if err != nil {
			return err
		}
		if err := merge(mixinFields, i); err != nil {
			return err
		}
	}
	if err := merge(s.own, -1); err != nil {
		return err
	}

	if _, ok := byName[IDFieldName]; !ok {
		id := ObjectID()
		id.bind(IDFieldName)
		byName[IDFieldName] = id
		order = append([]string{IDFieldName}, order...)
	}

	merged := make([]Field, 0, len(order))
	for _, name := range order {
		merged = append(merged, byName[name])
	}

	// Metadata merges independently of the field merge: the surviving Field
	// per name does not decide required-ness or choices on its own.
	meta := &Metadata{
		Required: map[string]struct{}{},
		Defaults: map[string]Field{},
		Choices:  map[string][]any{},
	}
	for _, m := range s.mixins {
		mm, err := m.Metadata()
		if err != nil {
			return err
		}
		for name := range mm.Required {
			meta.Required[name] = struct{}{}
		}
		for name, f := range mm.Defaults {
			meta.Defaults[name] = f
		}
		for name, cs := range mm.Choices {
			meta.Choices[name] = cs
		}
	}
	for _, f := range s.own {
		if f.IsRequired() {
			meta.Required[f.Name()] = struct{}{}
		}
		if _, ok := f.Default(); ok {
			meta.Defaults[f.Name()] = f
		}
		if cs := f.Choices(); len(cs) > 0 {
			meta.Choices[f.Name()] = cs
		}
	}

	s.merged = merged
	s.byName = byName
	s.meta = meta
	return nil
}

func shortName(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i+1:]
	}
	return name
}
