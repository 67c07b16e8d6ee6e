package admin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestParseParamsScenarios(t *testing.T) {
	users := userResource(t)

	assert.Equal(t, "", users.ParseParams(map[string]any{"genre": ""})["genre"])
	assert.Equal(t, []any{}, users.ParseParams(map[string]any{"family": ""})["family"])
	assert.Equal(t, []any{}, users.ParseParams(map[string]any{"arrayed": ""})["arrayed"])

	out := users.ParseParams(map[string]any{"_id": ""})
	v, ok := out["_id"]
	assert.True(t, ok)
	assert.Nil(t, v)
}

func TestParseParamsIdentifiersBecomeStrings(t *testing.T) {
	articles := newTestResource(t, newTestDatabase(t), "Article")
	id := primitive.NewObjectID()
	out := articles.ParseParams(map[string]any{
		"createdBy": id,
		"owners.0":  id,
		"owners.1":  "",
	})
	assert.Equal(t, id.Hex(), out["createdBy"])
	assert.Equal(t, id.Hex(), out["owners.0"])
	assert.Nil(t, out["owners.1"])
}

func TestParseParamsEmbedded(t *testing.T) {
	users := userResource(t)
	id := primitive.NewObjectID()
	in := map[string]any{
		"parent":                      "",
		"family.0":                    "",
		"family.1.name":               "Bob",
		"family.1._id":                id,
		"family.1.nestedObject":       "",
		"family.1.nestedArray.0._id":  "",
		"family.1.nestedArray":        "",
		"family.3.nestedObject._id":   id,
		"family.3.nestedArray.0.name": "x",
	}
	out := users.ParseParams(in)
	assert.Equal(t, map[string]any{}, out["parent"])
	assert.Equal(t, map[string]any{}, out["family.0"])
	assert.Equal(t, "Bob", out["family.1.name"])
	assert.Equal(t, id.Hex(), out["family.1._id"])
	assert.Equal(t, map[string]any{}, out["family.1.nestedObject"])
	assert.Equal(t, []any{}, out["family.1.nestedArray"])
	// indexes after a gap are still normalized
	assert.Equal(t, id.Hex(), out["family.3.nestedObject._id"])

	// input left untouched
	assert.Equal(t, "", in["parent"])
	assert.Equal(t, id, in["family.1._id"])
}

func TestParseParamsIdempotent(t *testing.T) {
	users := userResource(t)
	in := map[string]any{
		"email":          "a@b.pl",
		"_id":            "",
		"family.0":       "",
		"family.1.name":  "Bob",
		"family.1._id":   primitive.NewObjectID(),
		"parent":         "",
		"arrayed":        "",
		"parent.surname": "x",
	}
	once := users.ParseParams(in)
	assert.Equal(t, once, users.ParseParams(once))
}

func TestArrayIndices(t *testing.T) {
	params := map[string]any{
		"family.2.name": "a",
		"family.0":      "",
		"family.0.age":  1,
		"family.x":      "ignored",
		"familyName":    "ignored",
		"family.10":     "b",
	}
	assert.Equal(t, []int{0, 2, 10}, arrayIndices(params, "family"))
	assert.Empty(t, arrayIndices(params, "owners"))
}
