package docmap

import (
	"fmt"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// ObjectID declares a slot holding a store-native object identifier.
func ObjectID(opts ...Option) Field {
	return &objectIDField{base: newBase(opts)}
}

type objectIDField struct {
	base
}

func (f *objectIDField) Kind() Kind { return KindObjectID }

func (f *objectIDField) Validate(v any) error {
	if err := f.runValidators(v); err != nil {
		return err
	}
	if v == nil {
		return nil
	}
	if _, ok := v.(bson.ObjectID); !ok {
		return NewFieldError(f.name, CodeInvalidType, "invalid value for ObjectID %v (%T)", v, v)
	}
	return nil
}

func (f *objectIDField) PrepareAssign(v any) (any, error) { return v, nil }

func (f *objectIDField) ToStore(v any) (any, error) {
	switch id := v.(type) {
	case nil:
		return nil, nil
	case bson.ObjectID:
		return id, nil
	case string:
		oid, err := bson.ObjectIDFromHex(id)
		if err != nil {
			return nil, ConversionError(f.name, v, err)
		}
		return oid, nil
	}
	return nil, ConversionError(f.name, v, fmt.Errorf("unsupported ObjectID source %T", v))
}

func (f *objectIDField) FromStore(v any) (any, error) { return f.ToStore(v) }

func (f *objectIDField) ToJSON(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	if id, ok := v.(bson.ObjectID); ok {
		return id.Hex(), nil
	}
	return nil, ConversionError(f.name, v, fmt.Errorf("unsupported ObjectID source %T", v))
}

func (f *objectIDField) FromJSON(v any) (any, error) { return f.ToStore(v) }

// UUID declares a slot holding a UUID. The storage form is the store's
// native binary subtype 4; the JSON form is the canonical textual form.
func UUID(opts ...Option) Field {
	return &uuidField{base: newBase(opts)}
}

type uuidField struct {
	base
}

func (f *uuidField) Kind() Kind { return KindUUID }

func (f *uuidField) Validate(v any) error {
	if err := f.runValidators(v); err != nil {
		return err
	}
	if v == nil {
		return nil
	}
	if _, ok := v.(uuid.UUID); !ok {
		return NewFieldError(f.name, CodeInvalidType, "cannot convert to UUID %v (%T)", v, v)
	}
	return nil
}

func (f *uuidField) PrepareAssign(v any) (any, error) { return v, nil }

func (f *uuidField) ToStore(v any) (any, error) {
	switch u := v.(type) {
	case nil:
		return nil, nil
	case uuid.UUID:
		return bson.Binary{Subtype: bson.TypeBinaryUUID, Data: u[:]}, nil
	case string:
		parsed, err := uuid.Parse(u)
		if err != nil {
			return nil, ConversionError(f.name, v, err)
		}
		return bson.Binary{Subtype: bson.TypeBinaryUUID, Data: parsed[:]}, nil
	}
	return nil, ConversionError(f.name, v, fmt.Errorf("unsupported UUID source %T", v))
}

func (f *uuidField) FromStore(v any) (any, error) {
	switch u := v.(type) {
	case nil:
		return nil, nil
	case bson.Binary:
		parsed, err := uuid.FromBytes(u.Data)
		if err != nil {
			return nil, ConversionError(f.name, v, err)
		}
		return parsed, nil
	case string:
		parsed, err := uuid.Parse(u)
		if err != nil {
			return nil, ConversionError(f.name, v, err)
		}
		return parsed, nil
	}
	return nil, ConversionError(f.name, v, fmt.Errorf("unsupported UUID source %T", v))
}

func (f *uuidField) ToJSON(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	if u, ok := v.(uuid.UUID); ok {
		return u.String(), nil
	}
	return nil, ConversionError(f.name, v, fmt.Errorf("unsupported UUID source %T", v))
}

func (f *uuidField) FromJSON(v any) (any, error) { return f.ToStore(v) }

// Decimal declares an arbitrary-precision decimal slot. The memory form is
// bson.Decimal128 and the storage form is its canonical string, so full
// precision survives the round trip.
func Decimal(opts ...Option) Field {
	return &decimalField{base: newBase(opts)}
}

type decimalField struct {
	base
}

func (f *decimalField) Kind() Kind { return KindDecimal }

func (f *decimalField) Validate(v any) error {
	if err := f.runValidators(v); err != nil {
		return err
	}
	if v == nil {
		return nil
	}
	if _, err := coerceDecimal(v); err != nil {
		return NewFieldError(f.name, CodeInvalidType, "can't convert %v (%T) to decimal", v, v)
	}
	return nil
}

func (f *decimalField) PrepareAssign(v any) (any, error) { return v, nil }

func (f *decimalField) ToStore(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	d, err := coerceDecimal(v)
	if err != nil {
		return nil, ConversionError(f.name, v, err)
	}
	return d.String(), nil
}

func (f *decimalField) FromStore(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	d, err := coerceDecimal(v)
	if err != nil {
		return nil, ConversionError(f.name, v, err)
	}
	return d, nil
}

func (f *decimalField) ToJSON(v any) (any, error)   { return f.ToStore(v) }
func (f *decimalField) FromJSON(v any) (any, error) { return f.ToStore(v) }

func coerceDecimal(v any) (bson.Decimal128, error) {
	switch d := v.(type) {
	case bson.Decimal128:
		return d, nil
	case string:
		return bson.ParseDecimal128(d)
	case json.Number:
		return bson.ParseDecimal128(d.String())
	case int:
		return bson.ParseDecimal128(strconv.Itoa(d))
	case int64:
		return bson.ParseDecimal128(strconv.FormatInt(d, 10))
	case float64:
		return bson.ParseDecimal128(strconv.FormatFloat(d, 'g', -1, 64))
	}
	return bson.Decimal128{}, fmt.Errorf("unsupported decimal source %T", v)
}
