package docmap

// Package docmap maps typed document schemas onto a document store.
//
// It provides:
//
// - Composable field types with validation and bidirectional conversion
//   (storage form / JSON form), including nested, list, map and
//   discriminator-dispatched document fields
// - Schema assembly with mixin metadata merging, computed once per type
// - Document instances with defaults, on-demand validation and identity
//   semantics tied to the persisted identifier
// - A declarative index specification with a minimal create/drop
//   reconciliation against live index metadata
// - A process-wide name registry for forward and self-referential schemas
//
// Design policy:
// - Keep the schema surface in the root package; the store-driver layer
//   lives under mongostore/ and is the only package doing I/O.
// - Conversion and validation are synchronous and side-effect-free; all
//   blocking calls take a context and happen in mongostore.
//
// Typical usage:
//
//	user := docmap.Define("app.User").
//		Field("email", docmap.String(docmap.Required(), docmap.Validated(docmap.Email{}))).
//		Field("joined", docmap.DateTime(docmap.DefaultFunc(func() any { return time.Now().UTC() }))).
//		MustBuild()
//
//	d := user.New()
//	_ = d.Set("email", "u@example.com")
//	if err := d.Validate(); err != nil { ... }
//	row, _ := d.ToStore()
