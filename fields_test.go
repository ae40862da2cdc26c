package docmap

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
)

func named(f Field, name string) Field {
	f.bind(name)
	return f
}

func TestScalarTypeChecks(t *testing.T) {
	cases := []struct {
		name  string
		field Field
		good  any
		bad   any
	}{
		{"string", String(), "ok", 1},
		{"int", Int(), int64(3), "x"},
		{"float", Float(), 3.5, "x"},
		{"bool", Bool(), true, 1},
		{"datetime", DateTime(), time.Now(), 1},
		{"uuid", UUID(), uuid.New(), "not-a-uuid-value"},
		{"objectid", ObjectID(), bson.NewObjectID(), 1},
	}
	for _, tc := range cases {
		f := named(tc.field, tc.name)
		if err := f.Validate(tc.good); err != nil {
			t.Fatalf("%s: valid value rejected: %v", tc.name, err)
		}
		if err := f.Validate(tc.bad); err == nil {
			t.Fatalf("%s: invalid value accepted", tc.name)
		}
		if err := f.Validate(nil); err != nil {
			t.Fatalf("%s: nil must skip type checks: %v", tc.name, err)
		}
	}
}

func TestIntConversion(t *testing.T) {
	f := named(Int(), "n")
	v, err := f.ToStore(int32(5))
	if err != nil || v != int64(5) {
		t.Fatalf("expected int64 storage form, got %v, %v", v, err)
	}
	if _, err := f.ToStore("five"); err == nil {
		t.Fatalf("non-numeric input must fail conversion")
	}
}

func TestDecimalRoundTripExact(t *testing.T) {
	const in = "3.1415926535897932384"
	f := named(Decimal(), "pi")

	stored, err := f.ToStore(in)
	if err != nil {
		t.Fatalf("to store err: %v", err)
	}
	if stored != in {
		t.Fatalf("canonical string form lost precision: %v", stored)
	}

	mem, err := f.FromStore(stored)
	if err != nil {
		t.Fatalf("from store err: %v", err)
	}
	d, ok := mem.(bson.Decimal128)
	if !ok {
		t.Fatalf("memory form must be Decimal128, got %T", mem)
	}
	if d.String() != in {
		t.Fatalf("round trip lost precision: %s", d.String())
	}
}

func TestDecimalRejectsGarbage(t *testing.T) {
	f := named(Decimal(), "d")
	if err := f.Validate("not a number"); err == nil {
		t.Fatalf("unparsable decimal accepted")
	}
}

func TestDateTimeAcceptsDateOnlyString(t *testing.T) {
	f := named(DateTime(), "at")
	v, err := f.ToStore("2025-06-15")
	if err != nil {
		t.Fatalf("to store err: %v", err)
	}
	want := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	if !v.(time.Time).Equal(want) {
		t.Fatalf("date must expand to midnight, got %v", v)
	}
}

func TestDateTimeRejectsUnparsable(t *testing.T) {
	f := named(DateTime(), "at")
	_, err := f.ToStore("tomorrow-ish")
	fe, ok := AsFieldError(err)
	if !ok || fe.Field != "at" {
		t.Fatalf("expected field-scoped conversion error, got %v", err)
	}
	if _, err := f.ToStore(12345); err == nil {
		t.Fatalf("wrong-typed input must fail conversion")
	}
}

func TestDateTimeJSONForm(t *testing.T) {
	f := named(DateTime(), "at")
	v, err := f.ToJSON(time.Date(2025, 6, 15, 8, 30, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("to json err: %v", err)
	}
	if v != "2025-06-15T08:30:00Z" {
		t.Fatalf("unexpected json form: %v", v)
	}
}

func TestUUIDStorageForm(t *testing.T) {
	f := named(UUID(), "u")
	u := uuid.New()

	stored, err := f.ToStore(u)
	if err != nil {
		t.Fatalf("to store err: %v", err)
	}
	bin, ok := stored.(bson.Binary)
	if !ok || bin.Subtype != bson.TypeBinaryUUID {
		t.Fatalf("expected uuid binary subtype, got %v", stored)
	}

	mem, err := f.FromStore(stored)
	if err != nil || mem != u {
		t.Fatalf("uuid round trip failed: %v, %v", mem, err)
	}

	jv, err := f.ToJSON(u)
	if err != nil || jv != u.String() {
		t.Fatalf("uuid json form must be the canonical string: %v", jv)
	}
}

func TestUUIDFromString(t *testing.T) {
	f := named(UUID(), "u")
	u := uuid.New()
	stored, err := f.ToStore(u.String())
	if err != nil {
		t.Fatalf("to store err: %v", err)
	}
	mem, _ := f.FromStore(stored)
	if mem != u {
		t.Fatalf("string input must parse to the same uuid")
	}
	if _, err := f.ToStore("garbage"); err == nil {
		t.Fatalf("unparsable uuid accepted")
	}
}

func TestObjectIDConversion(t *testing.T) {
	f := named(ObjectID(), "_id")
	id := bson.NewObjectID()

	v, err := f.ToStore(id.Hex())
	if err != nil || v != id {
		t.Fatalf("hex input must parse: %v, %v", v, err)
	}
	if _, err := f.ToStore("zzz"); err == nil {
		t.Fatalf("invalid hex accepted")
	}
	jv, err := f.ToJSON(id)
	if err != nil || jv != id.Hex() {
		t.Fatalf("json form must be hex: %v", jv)
	}
}

func TestURLValidation(t *testing.T) {
	f := named(URL(), "link")
	for _, ok := range []string{
		"http://example.com",
		"https://example.com/path?q=1",
		"ftp://files.example.com/pub",
		"http://localhost:8080/",
	} {
		if err := f.Validate(ok); err != nil {
			t.Fatalf("%s rejected: %v", ok, err)
		}
	}
	for _, bad := range []string{"example.com", "httpx://nope", "not a url"} {
		if err := f.Validate(bad); err == nil {
			t.Fatalf("%s accepted", bad)
		}
	}

	httpOnly := named(HTTPURL(), "link")
	if err := httpOnly.Validate("ftp://files.example.com"); err == nil {
		t.Fatalf("ftp scheme must fail the http-only field")
	}
}

func TestValidators(t *testing.T) {
	if !(Email{}).Check("user@example.com") {
		t.Fatalf("valid email rejected")
	}
	if (Email{}).Check("nope") {
		t.Fatalf("invalid email accepted")
	}

	cases := map[string]bool{
		"09:30": true,
		"23:59": true,
		"24:00": true,
		"24:01": false,
		"25:00": false,
		"9:61":  false,
		"soon":  false,
	}
	for in, want := range cases {
		if got := (TimeOfDay{}).Check(in); got != want {
			t.Fatalf("TimeOfDay(%q) = %v, want %v", in, got, want)
		}
	}

	if !(MaxLength{Limit: 3}).Check("abc") || (MaxLength{Limit: 3}).Check("abcd") {
		t.Fatalf("MaxLength misbehaves")
	}
}
