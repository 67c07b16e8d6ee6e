package admin

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStringifyIDReachesNestedIdentifiers(t *testing.T) {
	id, child, ref := primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()
	price, err := primitive.ParseDecimal128("9.99")
	require.NoError(t, err)
	out, err := StringifyID(map[string]any{
		"_id":    id,
		"parent": map[string]any{"_id": child},
		"owners": []any{ref},
		"price":  price,
	})
	require.NoError(t, err)
	assert.Equal(t, id.Hex(), out["_id"])
	assert.Equal(t, child.Hex(), out["parent"].(map[string]any)["_id"])
	assert.Equal(t, []any{ref.Hex()}, out["owners"])
	assert.Equal(t, "9.99", out["price"])
}

func testRecords(t *testing.T) []*Record {
	users := userResource(t)
	return []*Record{
		NewRecord(map[string]any{"_id": "a1", "email": "x@y.pl", "family": []any{map[string]any{"name": "Bob"}}}, users),
		NewRecord(map[string]any{"_id": "a2", "email": "z@y.pl", "arrayed": []any{"p", "q"}}, users),
	}
}

func TestRecordsJSONLines(t *testing.T) {
	recs := testRecords(t)
	var buf bytes.Buffer
	require.NoError(t, WriteRecordsJSONL(&buf, recs))
	assert.Equal(t, 2, strings.Count(buf.String(), "\n"))

	var docs []map[string]any
	require.NoError(t, ReadRecordsJSONL(&buf, func(doc map[string]any) error {
		docs = append(docs, doc)
		return nil
	}))
	require.Len(t, docs, 2)
	assert.Equal(t, recs[0].Document(), docs[0])
	assert.Equal(t, []any{"p", "q"}, docs[1]["arrayed"])
}

func TestRecordsMsgpack(t *testing.T) {
	recs := testRecords(t)
	var buf bytes.Buffer
	require.NoError(t, WriteRecordsMsgpack(&buf, recs))

	var docs []map[string]any
	require.NoError(t, ReadRecordsMsgpack(&buf, func(doc map[string]any) error {
		docs = append(docs, doc)
		return nil
	}))
	require.Len(t, docs, 2)
	assert.Equal(t, "a1", docs[0]["_id"])
	assert.Equal(t, "Bob", docs[0]["family"].([]any)[0].(map[string]any)["name"])
}

func TestRecordsCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteRecordsCSV(&buf, testRecords(t)))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "_id,arrayed.0,arrayed.1,email,family.0.name", lines[0])
	assert.Equal(t, "a1,,,x@y.pl,Bob", lines[1])
}
