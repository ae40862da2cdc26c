package docmap

import (
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

var (
	compInner = Define("comptest.Inner").
			Field("field1", DateTime()).
			MustBuild()

	compOuter = Define("comptest.Outer").
			Field("field2", List(Doc(compInner))).
			MustBuild()
)

func TestListFieldConvertsElements(t *testing.T) {
	f := named(List(DateTime()), "dates")
	v, err := f.ToStore([]any{"2025-01-01", "2025-01-02"})
	if err != nil {
		t.Fatalf("to store err: %v", err)
	}
	items := v.([]any)
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if !items[0].(time.Time).Equal(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("element conversion failed: %v", items[0])
	}
}

func TestListFieldRejectsNonSequence(t *testing.T) {
	f := named(List(String()), "tags")
	if err := f.Validate("nope"); err == nil {
		t.Fatalf("non-sequence accepted")
	}
	if err := f.Validate([]any{"a", 1}); err == nil {
		t.Fatalf("bad element accepted")
	}
}

func TestMapFieldConvertsValues(t *testing.T) {
	f := named(Map(Int()), "counts")
	v, err := f.ToStore(map[string]any{"a": int32(1), "b": int64(2)})
	if err != nil {
		t.Fatalf("to store err: %v", err)
	}
	m := v.(map[string]any)
	if m["a"] != int64(1) || m["b"] != int64(2) {
		t.Fatalf("value conversion failed: %v", m)
	}
}

func TestDocFieldPromotesRawMapping(t *testing.T) {
	f := named(Doc(compInner), "inner")
	prepared, err := f.PrepareAssign(map[string]any{"field1": "2025-01-01"})
	if err != nil {
		t.Fatalf("prepare err: %v", err)
	}
	if _, ok := prepared.(*Document); !ok {
		t.Fatalf("raw mapping must promote to an instance at assignment, got %T", prepared)
	}
}

func TestDocFieldRejectsScalars(t *testing.T) {
	f := named(Doc(compInner), "inner")
	if err := f.Validate(42); err == nil {
		t.Fatalf("scalar accepted for nested document slot")
	}
}

func TestNestedFromStoreHierarchy(t *testing.T) {
	when := time.Date(2025, 5, 20, 10, 0, 0, 0, time.UTC)
	doc, err := compOuter.FromStore(bson.M{
		"field2": bson.A{bson.M{"field1": when}},
	})
	if err != nil {
		t.Fatalf("from store err: %v", err)
	}
	items, ok := doc.Get("field2").([]any)
	if !ok || len(items) != 1 {
		t.Fatalf("expected one nested element, got %v", doc.Get("field2"))
	}
	inner, ok := items[0].(*Document)
	if !ok {
		t.Fatalf("nested element must be an instance, got %T", items[0])
	}
	if !inner.Get("field1").(time.Time).Equal(when) {
		t.Fatalf("nested value mismatch: %v", inner.Get("field1"))
	}
}

func TestDeepNestedToStore(t *testing.T) {
	leaf := Define("comptest.Leaf").
		Field("name", String()).
		MustBuild()
	middle := Define("comptest.Middle").
		Field("leaves", Map(Doc(leaf))).
		MustBuild()
	root := Define("comptest.Root").
		Field("middle", Doc(middle)).
		MustBuild()

	d := root.New()
	if err := d.Set("middle", map[string]any{
		"leaves": map[string]any{"a": map[string]any{"name": "x"}},
	}); err != nil {
		t.Fatalf("set err: %v", err)
	}
	if err := d.Validate(); err != nil {
		t.Fatalf("validate err: %v", err)
	}
	row, err := d.ToStore()
	if err != nil {
		t.Fatalf("to store err: %v", err)
	}
	mid := row["middle"].(bson.M)
	leaves := mid["leaves"].(map[string]any)
	if leaves["a"].(bson.M)["name"] != "x" {
		t.Fatalf("deep conversion failed: %v", row)
	}
}

func TestForwardReferenceResolution(t *testing.T) {
	owner := Define("comptest.TreeNode").
		Field("label", String()).
		Field("next", DocNamed("comptest.TreeNode")).
		MustBuild()

	if err := ResolveAll(); err != nil {
		t.Fatalf("resolve err: %v", err)
	}

	d := owner.New()
	if err := d.Set("next", map[string]any{"label": "child"}); err != nil {
		t.Fatalf("set err: %v", err)
	}
	child := d.Get("next").(*Document)
	if child.Get("label") != "child" {
		t.Fatalf("self reference did not resolve: %v", child)
	}
}

func TestUnresolvedReference(t *testing.T) {
	f := named(DocNamed("comptest.NeverDeclared"), "ghost")
	_, err := f.FromStore(bson.M{})
	if _, ok := err.(*UnresolvedTypeError); !ok {
		t.Fatalf("expected UnresolvedTypeError, got %v", err)
	}
}

var (
	polyCat = Define("comptest.Cat").
		Field("kind", String()).
		Field("meows", Bool()).
		MustBuild()
	polyDog = Define("comptest.Dog").
		Field("kind", String()).
		Field("barks", Bool()).
		MustBuild()
)

func polyPet(name string) Field {
	return named(Polymorphic("kind", map[any]*Schema{
		"cat": polyCat,
		"dog": polyDog,
	}), name)
}

func TestPolymorphicDispatch(t *testing.T) {
	f := polyPet("pet")
	v, err := f.FromStore(bson.M{"kind": "dog", "barks": true})
	if err != nil {
		t.Fatalf("from store err: %v", err)
	}
	d := v.(*Document)
	if d.Schema() != polyDog {
		t.Fatalf("discriminator routed to %s", d.Schema().Name())
	}
	if d.Get("barks") != true {
		t.Fatalf("variant payload lost: %v", d)
	}
}

func TestPolymorphicUnknownDiscriminator(t *testing.T) {
	f := polyPet("pet")
	_, err := f.FromStore(bson.M{"kind": "ferret"})
	fe, ok := AsFieldError(err)
	if !ok || fe.Code != CodeDiscriminatorUnknown {
		t.Fatalf("expected discriminator_unknown, got %v", err)
	}
}

func TestPolymorphicAcceptsTypedVariant(t *testing.T) {
	f := polyPet("pet")
	cat := polyCat.New()
	mustSet(t, cat, "kind", "cat")
	mustSet(t, cat, "meows", true)
	if err := f.Validate(cat); err != nil {
		t.Fatalf("typed variant rejected: %v", err)
	}

	stranger := compInner.New()
	if err := f.Validate(stranger); err == nil {
		t.Fatalf("non-variant instance accepted")
	}
}
