package odm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestBadgerFindOneByKey(t *testing.T) {
	b, err := OpenBadger("", "badger_test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close(context.Background()) })
	ctx := context.Background()
	coll := b.Collection("things")

	id := primitive.NewObjectID()
	require.NoError(t, coll.InsertOne(ctx, Document{IDPath: id, "name": "a"}))
	require.NoError(t, coll.InsertOne(ctx, Document{IDPath: primitive.NewObjectID(), "name": "b"}))

	key, ok := coll.(*BadgerCollection).idKey(Document{IDPath: id})
	require.True(t, ok)
	assert.Equal(t, "things/doc/"+id.Hex(), string(key))
	_, ok = coll.(*BadgerCollection).idKey(Document{IDPath: id, "name": "a"})
	assert.False(t, ok)

	doc, err := coll.FindOne(ctx, Document{IDPath: id})
	require.NoError(t, err)
	assert.Equal(t, "a", doc["name"])
	assert.Equal(t, id, doc[IDPath])

	_, err = coll.FindOne(ctx, Document{IDPath: primitive.NewObjectID()})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = coll.FindOne(ctx, Document{IDPath: id, "name": "b"})
	assert.ErrorIs(t, err, ErrNotFound)
}
