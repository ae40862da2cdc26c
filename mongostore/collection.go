package mongostore

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"

	"github.com/reoring/docmap"
)

// ErrNotFound reports a lookup that matched nothing.
var ErrNotFound = errors.New("document does not exist")

// Collection stores and retrieves documents of one schema. Every read runs
// rows through the schema's FromStore pipeline; every write validates and
// converts through ToStore first.
type Collection struct {
	schema *docmap.Schema
	coll   *mongo.Collection
	log    *zap.Logger
}

// NewCollection binds a schema to its collection in the given database. A
// nil logger disables logging.
func NewCollection(db *mongo.Database, schema *docmap.Schema, log *zap.Logger) *Collection {
	if log == nil {
		log = zap.NewNop()
	}
	return &Collection{
		schema: schema,
		coll:   db.Collection(schema.Collection()),
		log:    log,
	}
}

func (c *Collection) Schema() *docmap.Schema { return c.schema }
func (c *Collection) Name() string           { return c.coll.Name() }

// FindOptions narrows a Find call.
type FindOptions struct {
	Projection bson.M
	Sort       bson.D
	Skip       int64
	Limit      int64
}

// Find returns every matching document, decoded through the schema.
func (c *Collection) Find(ctx context.Context, filter bson.M, opts *FindOptions) ([]*docmap.Document, error) {
	if filter == nil {
		filter = bson.M{}
	}
	fo := options.Find()
	if opts != nil {
		if opts.Projection != nil {
			fo.SetProjection(opts.Projection)
		}
		if opts.Sort != nil {
			fo.SetSort(opts.Sort)
		}
		if opts.Skip > 0 {
			fo.SetSkip(opts.Skip)
		}
		if opts.Limit > 0 {
			fo.SetLimit(opts.Limit)
		}
	}
	cur, err := c.coll.Find(ctx, filter, fo)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []*docmap.Document
	for cur.Next(ctx) {
		var row bson.M
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		doc, err := c.schema.FromStore(row)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, cur.Err()
}

// Get fetches a single document by id or filter; nil when nothing matched.
func (c *Collection) Get(ctx context.Context, idOrFilter any) (*docmap.Document, error) {
	filter, err := asFilter(idOrFilter)
	if err != nil {
		return nil, err
	}
	var row bson.M
	err = c.coll.FindOne(ctx, filter).Decode(&row)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c.schema.FromStore(row)
}

// GetOrErr is Get failing with ErrNotFound instead of returning nil.
func (c *Collection) GetOrErr(ctx context.Context, idOrFilter any) (*docmap.Document, error) {
	doc, err := c.Get(ctx, idOrFilter)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, ErrNotFound
	}
	return doc, nil
}

// Count counts matching documents.
func (c *Collection) Count(ctx context.Context, filter bson.M) (int64, error) {
	if filter == nil {
		filter = bson.M{}
	}
	return c.coll.CountDocuments(ctx, filter)
}

// Create builds a document from raw values, validates and inserts it.
func (c *Collection) Create(ctx context.Context, values map[string]any) (*docmap.Document, error) {
	doc, err := c.schema.NewFrom(values)
	if err != nil {
		return nil, err
	}
	if err := c.Save(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Insert validates and inserts documents, writing generated identifiers
// back onto each instance.
func (c *Collection) Insert(ctx context.Context, docs ...*docmap.Document) error {
	rows := make([]any, 0, len(docs))
	for _, doc := range docs {
		if err := doc.Validate(); err != nil {
			return err
		}
		row, err := doc.ToStore()
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}
	res, err := c.coll.InsertMany(ctx, rows)
	if err != nil {
		c.log.Error("insert failed", zap.String("collection", c.Name()), zap.Error(err))
		return err
	}
	for i, id := range res.InsertedIDs {
		if oid, ok := id.(bson.ObjectID); ok && docs[i].ID() == nil {
			docs[i].SetID(oid)
		}
	}
	return nil
}

// Save validates the document, then inserts it or replaces the persisted
// row by identifier. A generated identifier is written back.
func (c *Collection) Save(ctx context.Context, doc *docmap.Document) error {
	if err := doc.Validate(); err != nil {
		return err
	}
	row, err := doc.ToStore()
	if err != nil {
		return err
	}
	if doc.ID() == nil {
		res, err := c.coll.InsertOne(ctx, row)
		if err != nil {
			c.log.Error("save failed", zap.String("collection", c.Name()), zap.Error(err))
			return err
		}
		if oid, ok := res.InsertedID.(bson.ObjectID); ok {
			doc.SetID(oid)
		}
		return nil
	}
	_, err = c.coll.ReplaceOne(ctx, bson.M{"_id": doc.ID()}, row, options.Replace().SetUpsert(true))
	if err != nil {
		c.log.Error("save failed", zap.String("collection", c.Name()), zap.Error(err))
	}
	return err
}

// Update applies a raw modifier document ({"$set": ...}) to every match.
func (c *Collection) Update(ctx context.Context, idOrFilter any, update bson.M, multi bool) (int64, error) {
	filter, err := asFilter(idOrFilter)
	if err != nil {
		return 0, err
	}
	var res *mongo.UpdateResult
	if multi {
		res, err = c.coll.UpdateMany(ctx, filter, update)
	} else {
		res, err = c.coll.UpdateOne(ctx, filter, update)
	}
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// FindOneAndUpdate applies a modifier and returns the resulting document
// (the updated version when returnNew is set). Nil when nothing matched.
func (c *Collection) FindOneAndUpdate(ctx context.Context, idOrFilter any, update bson.M, returnNew bool) (*docmap.Document, error) {
	filter, err := asFilter(idOrFilter)
	if err != nil {
		return nil, err
	}
	opts := options.FindOneAndUpdate()
	if returnNew {
		opts.SetReturnDocument(options.After)
	}
	var row bson.M
	err = c.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&row)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c.schema.FromStore(row)
}

// Remove deletes by document, id or filter and reports the deleted count.
func (c *Collection) Remove(ctx context.Context, target any) (int64, error) {
	if doc, ok := target.(*docmap.Document); ok {
		target = doc.ID()
	}
	filter, err := asFilter(target)
	if err != nil {
		return 0, err
	}
	res, err := c.coll.DeleteMany(ctx, filter)
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// Aggregate runs a pipeline and returns raw rows; aggregation output does
// not generally conform to the schema.
func (c *Collection) Aggregate(ctx context.Context, pipeline any) ([]bson.M, error) {
	cur, err := c.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []bson.M
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GenerateNextID returns max(field)+1 over the collection, for schemas
// using a numeric sequence alongside the object identifier.
func (c *Collection) GenerateNextID(ctx context.Context, field string) (int64, error) {
	rows, err := c.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id": "0",
			"max": bson.M{"$max": "$" + field},
		}}},
	})
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 1, nil
	}
	switch n := rows[0]["max"].(type) {
	case int32:
		return int64(n) + 1, nil
	case int64:
		return n + 1, nil
	case float64:
		return int64(n) + 1, nil
	case nil:
		return 1, nil
	}
	return 0, fmt.Errorf("non-numeric max for %s", field)
}

// asFilter normalizes an id (ObjectID or hex string), a document or a raw
// filter into a query filter.
func asFilter(idOrFilter any) (bson.M, error) {
	switch t := idOrFilter.(type) {
	case nil:
		return bson.M{}, nil
	case bson.M:
		return t, nil
	case map[string]any:
		return bson.M(t), nil
	case bson.ObjectID:
		return bson.M{"_id": t}, nil
	case string:
		oid, err := bson.ObjectIDFromHex(t)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q: %w", t, err)
		}
		return bson.M{"_id": oid}, nil
	}
	return nil, fmt.Errorf("unsupported filter %T", idOrFilter)
}
