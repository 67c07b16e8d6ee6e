package admin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestConvertFilter(t *testing.T) {
	db := newTestDatabase(t)
	contacts := newTestResource(t, db, "Contact")
	id := primitive.NewObjectID().Hex()

	f := NewFilter(map[string]any{
		"email":  "a.b+c",
		"seen":   map[string]any{"from": "2024-01-01", "to": ""},
		"active": true,
		"_id":    id,
		"bogus":  "dropped",
	}, contacts)
	require.Len(t, f.Elements, 4)

	q, ok := ConvertFilter(f)
	require.True(t, ok)
	assert.Equal(t, bson.M{
		"email":  bson.M{"$regex": `a\.b\+c`, "$options": "i"},
		"seen":   bson.M{"$gte": "2024-01-01"},
		"active": true,
		"_id":    id,
	}, q)
}

func TestConvertFilterInvalidID(t *testing.T) {
	users := userResource(t)
	_, ok := ConvertFilter(NewFilter(map[string]any{"_id": "nope", "email": "x"}, users))
	assert.False(t, ok)
}

func TestConvertFilterEmptyRange(t *testing.T) {
	contacts := newTestResource(t, newTestDatabase(t), "Contact")
	q, ok := ConvertFilter(NewFilter(map[string]any{"seen": map[string]any{"from": "", "to": nil}}, contacts))
	require.True(t, ok)
	assert.Empty(t, q)
}

func TestConvertFilterNil(t *testing.T) {
	q, ok := ConvertFilter(nil)
	assert.True(t, ok)
	assert.Empty(t, q)
}

func TestSuggestProperty(t *testing.T) {
	users := userResource(t)
	s, ok := users.SuggestProperty("emial")
	require.True(t, ok)
	assert.Equal(t, "email", s)
	_, ok = users.SuggestProperty("completelyunrelatedname")
	assert.False(t, ok)
}
