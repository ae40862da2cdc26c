package docmap

// Kind identifies a field's concrete type. It drives the structural checks
// that cannot be expressed through the Field interface alone, such as the
// TTL rule that an expiring index must target a date/time slot.
type Kind int

const (
	KindString Kind = iota
	KindURL
	KindInt
	KindFloat
	KindDecimal
	KindBool
	KindDateTime
	KindUUID
	KindObjectID
	KindList
	KindMap
	KindDoc
	KindPolymorphic
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindURL:
		return "url"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindDecimal:
		return "decimal"
	case KindBool:
		return "bool"
	case KindDateTime:
		return "datetime"
	case KindUUID:
		return "uuid"
	case KindObjectID:
		return "objectid"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	case KindDoc:
		return "doc"
	case KindPolymorphic:
		return "polymorphic"
	}
	return "unknown"
}

// Field is the conversion and validation contract for one named schema slot.
// A nil value skips the type-specific checks of Validate; whether nil is
// acceptable at all is decided by the owning schema's required set.
//
// ToStore produces the storage-native form, FromStore its inverse. ToJSON
// produces JSON-safe scalars. FromJSON converts an external textual payload
// toward the storage form; most fields reuse ToStore for this, identifier
// and date fields do the extra string casting.
type Field interface {
	Name() string
	Kind() Kind
	IsRequired() bool
	Default() (any, bool)
	Choices() []any

	Validate(v any) error
	PrepareAssign(v any) (any, error)
	ToStore(v any) (any, error)
	FromStore(v any) (any, error)
	ToJSON(v any) (any, error)
	FromJSON(v any) (any, error)

	// bind assigns the declaration-slot name once, at assembly time.
	bind(name string)
}

// Validator is a pure predicate over a single field value. Message returns
// a template formatted with {field} and {value} on failure.
type Validator interface {
	Check(v any) bool
	Message() string
}

// Option configures a field at declaration time.
type Option func(*base)

// Required marks the field as required.
func Required() Option { return func(b *base) { b.required = true } }

// Default sets a constant default applied at instance construction.
func Default(v any) Option { return func(b *base) { b.def = v } }

// DefaultFunc sets a generator default invoked per instance, not at
// declaration time. Timestamp defaults must capture "now" per instance.
func DefaultFunc(fn func() any) Option { return func(b *base) { b.defFn = fn } }

// Choices restricts the field to the given set of allowed values.
func Choices(vs ...any) Option { return func(b *base) { b.choices = vs } }

// Validated appends validators run ahead of the type-specific checks.
func Validated(vs ...Validator) Option {
	return func(b *base) { b.validators = append(b.validators, vs...) }
}

// base carries the per-slot options shared by every field type.
type base struct {
	name       string
	required   bool
	def        any
	defFn      func() any
	choices    []any
	validators []Validator
}

func newBase(opts []Option) base {
	var b base
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

func (b *base) Name() string     { return b.name }
func (b *base) IsRequired() bool { return b.required }
func (b *base) Choices() []any   { return b.choices }
func (b *base) bind(name string) {
	if b.name == "" {
		b.name = name
	}
}

// Default reports the declared default. A generator is invoked here, so the
// caller receives a fresh value per call.
func (b *base) Default() (any, bool) {
	if b.defFn != nil {
		return b.defFn(), true
	}
	if b.def != nil {
		return b.def, true
	}
	return nil, false
}

// runValidators applies the declared validators in order. Nil values pass;
// required-ness is enforced by the schema, not here.
func (b *base) runValidators(v any) error {
	if v == nil {
		return nil
	}
	for _, val := range b.validators {
		if !val.Check(v) {
			return &FieldError{
				Field:   b.name,
				Code:    CodeValidator,
				Message: formatMessage(val.Message(), b.name, v),
			}
		}
	}
	return nil
}
