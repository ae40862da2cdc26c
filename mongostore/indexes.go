package mongostore

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"

	"github.com/reoring/docmap"
)

// SyncResult reports what one synchronization call changed.
type SyncResult struct {
	Created []string
	Dropped []string
}

// SynchronizeIndexes converges the collection's live indexes to the
// schema's declared specification. Unchanged indexes are left alone. The
// call is idempotent and convergent, so a partial failure is recovered by
// re-running it. Drops run before creates: a structurally-changed index
// keeps its derived name, and the store rejects a create under a name that
// is still taken.
func (c *Collection) SynchronizeIndexes(ctx context.Context) (*SyncResult, error) {
	declared := c.schema.Indexes()
	result := &SyncResult{}
	if len(declared) == 0 {
		return result, nil
	}

	live, err := c.liveIndexes(ctx)
	if err != nil {
		return nil, err
	}

	plan, err := docmap.DiffIndexes(c.schema, declared, live)
	if err != nil {
		return nil, err
	}

	for _, name := range plan.Drop {
		if err := c.coll.Indexes().DropOne(ctx, name); err != nil {
			return nil, err
		}
		c.log.Info("dropped index",
			zap.String("collection", c.Name()),
			zap.String("index", name))
		result.Dropped = append(result.Dropped, name)
	}

	for _, spec := range plan.Create {
		keys := bson.D{}
		for _, k := range spec.Keys {
			keys = append(keys, bson.E{Key: k.Field, Value: k.Order})
		}
		// Background is diffing-only state: index builds are always
		// non-blocking since MongoDB 4.2 and the driver dropped the option.
		opts := options.Index().SetName(spec.IndexName())
		if spec.Unique {
			opts.SetUnique(true)
		}
		if spec.ExpireAfterSeconds != nil {
			opts.SetExpireAfterSeconds(*spec.ExpireAfterSeconds)
		}
		name, err := c.coll.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: keys, Options: opts})
		if err != nil {
			return nil, err
		}
		c.log.Info("created index",
			zap.String("collection", c.Name()),
			zap.String("index", name))
		result.Created = append(result.Created, name)
	}
	return result, nil
}

// liveIndexes reads the store's index metadata, excluding the primary
// identifier index, which is never managed.
func (c *Collection) liveIndexes(ctx context.Context) ([]docmap.LiveIndex, error) {
	cur, err := c.coll.Indexes().List(ctx)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []docmap.LiveIndex
	for cur.Next(ctx) {
		var doc bson.M
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		if li, ok := parseLiveIndex(doc); ok {
			out = append(out, li)
		}
	}
	return out, cur.Err()
}

// parseLiveIndex extracts the normalized shape from one raw index document.
func parseLiveIndex(doc bson.M) (docmap.LiveIndex, bool) {
	name, _ := doc["name"].(string)
	if name == "" || name == "_id_" {
		return docmap.LiveIndex{}, false
	}
	li := docmap.LiveIndex{Name: name}

	switch key := doc["key"].(type) {
	case bson.D:
		for _, e := range key {
			li.Keys = append(li.Keys, docmap.IndexKey{Field: e.Key, Order: asOrder(e.Value)})
		}
	case bson.M:
		for field, order := range key {
			li.Keys = append(li.Keys, docmap.IndexKey{Field: field, Order: asOrder(order)})
		}
	default:
		return docmap.LiveIndex{}, false
	}

	if bg, ok := doc["background"].(bool); ok {
		li.Background = &bg
	}
	if unique, ok := doc["unique"].(bool); ok {
		li.Unique = unique
	}
	if ttl, ok := asInt32(doc["expireAfterSeconds"]); ok {
		li.ExpireAfterSeconds = &ttl
	}
	return li, true
}

func asOrder(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int32:
		return int(n)
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return 1
}

func asInt32(v any) (int32, bool) {
	switch n := v.(type) {
	case int:
		return int32(n), true
	case int32:
		return n, true
	case int64:
		return int32(n), true
	case float64:
		return int32(n), true
	}
	return 0, false
}
