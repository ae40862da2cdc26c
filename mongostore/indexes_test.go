package mongostore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/reoring/docmap"
)

func TestParseLiveIndex(t *testing.T) {
	li, ok := parseLiveIndex(bson.M{
		"name":   "kind_1_created_at_-1",
		"key":    bson.D{{Key: "kind", Value: int32(1)}, {Key: "created_at", Value: int32(-1)}},
		"unique": true,
	})
	require.True(t, ok)
	assert.Equal(t, "kind_1_created_at_-1", li.Name)
	assert.Equal(t, []docmap.IndexKey{
		{Field: "kind", Order: 1},
		{Field: "created_at", Order: -1},
	}, li.Keys)
	assert.True(t, li.Unique)
	assert.Nil(t, li.Background)
	assert.Nil(t, li.ExpireAfterSeconds)
}

func TestParseLiveIndexExcludesIdentifierIndex(t *testing.T) {
	_, ok := parseLiveIndex(bson.M{
		"name": "_id_",
		"key":  bson.D{{Key: "_id", Value: int32(1)}},
	})
	assert.False(t, ok)
}

func TestParseLiveIndexTTL(t *testing.T) {
	li, ok := parseLiveIndex(bson.M{
		"name":               "created_at_1",
		"key":                bson.D{{Key: "created_at", Value: int32(1)}},
		"expireAfterSeconds": int32(3600),
		"background":         true,
	})
	require.True(t, ok)
	require.NotNil(t, li.ExpireAfterSeconds)
	assert.Equal(t, int32(3600), *li.ExpireAfterSeconds)
	require.NotNil(t, li.Background)
	assert.True(t, *li.Background)
}

func TestParseLiveIndexMapKeys(t *testing.T) {
	li, ok := parseLiveIndex(bson.M{
		"name": "actor_1",
		"key":  bson.M{"actor": int32(1)},
	})
	require.True(t, ok)
	require.Len(t, li.Keys, 1)
	assert.Equal(t, docmap.IndexKey{Field: "actor", Order: 1}, li.Keys[0])
}

func TestParseLiveIndexUnparsableKeyShape(t *testing.T) {
	_, ok := parseLiveIndex(bson.M{
		"name": "weird",
		"key":  "not-a-document",
	})
	assert.False(t, ok)
}

func TestAsFilter(t *testing.T) {
	id := bson.NewObjectID()

	f, err := asFilter(id)
	require.NoError(t, err)
	assert.Equal(t, bson.M{"_id": id}, f)

	f, err = asFilter(id.Hex())
	require.NoError(t, err)
	assert.Equal(t, bson.M{"_id": id}, f)

	f, err = asFilter(bson.M{"kind": "x"})
	require.NoError(t, err)
	assert.Equal(t, bson.M{"kind": "x"}, f)

	f, err = asFilter(nil)
	require.NoError(t, err)
	assert.Equal(t, bson.M{}, f)

	_, err = asFilter("not-hex")
	require.Error(t, err)

	_, err = asFilter(42)
	require.Error(t, err)
}
