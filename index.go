package docmap

import (
	"strconv"
	"strings"
)

// IndexKey is one component of an index key specification.
type IndexKey struct {
	Field string
	Order int // 1 ascending, -1 descending
}

// IndexSpec declares one secondary index. Background defaults to true when
// nil, so a spec that leaves it unset compares equal to live metadata that
// omits it. The canonical name is derived from the key spec, which is what
// makes structural diffing possible without persisting extra bookkeeping.
type IndexSpec struct {
	Keys               []IndexKey
	Background         *bool
	Unique             bool
	ExpireAfterSeconds *int32
}

// IndexName derives the deterministic name: field and order of every key
// pair, underscore-joined.
func (s IndexSpec) IndexName() string {
	parts := make([]string, 0, len(s.Keys)*2)
	for _, k := range s.Keys {
		parts = append(parts, k.Field, strconv.Itoa(k.Order))
	}
	return strings.Join(parts, "_")
}

// LiveIndex is the store's reported metadata for one existing index, with
// the primary identifier index already excluded.
type LiveIndex struct {
	Name               string
	Keys               []IndexKey
	Background         *bool
	Unique             bool
	ExpireAfterSeconds *int32
}

// IndexPlan is the minimal reconciliation: indexes whose normalized shape
// is unchanged appear in neither set.
type IndexPlan struct {
	Create []IndexSpec
	Drop   []string
}

// indexShape is the comparable 5-tuple both sides normalize into.
type indexShape struct {
	name       string
	keys       string
	background bool
	unique     bool
	hasTTL     bool
	ttl        int32
}

func shapeOf(name string, keys []IndexKey, background *bool, unique bool, ttl *int32) indexShape {
	parts := make([]string, 0, len(keys)*2)
	for _, k := range keys {
		parts = append(parts, k.Field, strconv.Itoa(k.Order))
	}
	sh := indexShape{
		name:       name,
		keys:       strings.Join(parts, ","),
		background: background == nil || *background,
		unique:     unique,
	}
	if ttl != nil {
		sh.hasTTL = true
		sh.ttl = *ttl
	}
	return sh
}

// DiffIndexes computes the create/drop sets converging live state to the
// declared specification. TTL constraints are validated for every declared
// index before the plan is produced, so a bad entry fails the whole call
// without any mutation.
func DiffIndexes(s *Schema, declared []IndexSpec, live []LiveIndex) (IndexPlan, error) {
	for _, spec := range declared {
		if err := checkTTL(s, spec); err != nil {
			return IndexPlan{}, err
		}
	}

	declaredByShape := make(map[indexShape]IndexSpec, len(declared))
	for _, spec := range declared {
		sh := shapeOf(spec.IndexName(), spec.Keys, spec.Background, spec.Unique, spec.ExpireAfterSeconds)
		declaredByShape[sh] = spec
	}
	liveByShape := make(map[indexShape]LiveIndex, len(live))
	for _, li := range live {
		sh := shapeOf(li.Name, li.Keys, li.Background, li.Unique, li.ExpireAfterSeconds)
		liveByShape[sh] = li
	}

	var plan IndexPlan
	for sh, li := range liveByShape {
		if _, keep := declaredByShape[sh]; !keep {
			plan.Drop = append(plan.Drop, li.Name)
		}
	}
	for sh, spec := range declaredByShape {
		if _, exists := liveByShape[sh]; !exists {
			plan.Create = append(plan.Create, spec)
		}
	}
	return plan, nil
}

// checkTTL enforces the expiring-index shape: exactly one key component,
// targeting a date/time-typed field.
func checkTTL(s *Schema, spec IndexSpec) error {
	if spec.ExpireAfterSeconds == nil {
		return nil
	}
	name := spec.IndexName()
	if len(spec.Keys) != 1 {
		return &IndexConstraintError{
			Index:  name,
			Reason: "expireAfterSeconds requires a single-key index",
		}
	}
	f, ok := s.FieldByName(spec.Keys[0].Field)
	if !ok {
		return &IndexConstraintError{
			Index:  name,
			Reason: "expireAfterSeconds target field " + spec.Keys[0].Field + " is not declared",
		}
	}
	if f.Kind() != KindDateTime {
		return &IndexConstraintError{
			Index:  name,
			Reason: "expireAfterSeconds target field " + spec.Keys[0].Field + " is not a datetime field",
		}
	}
	return nil
}
