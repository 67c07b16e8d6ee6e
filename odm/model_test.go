package odm

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// backends runs fn against every embedded backend.
func backends(t *testing.T, fn func(t *testing.T, conn *Connection)) {
	catalog := loadTestCatalog(t)
	t.Run("memory", func(t *testing.T) {
		conn := NewConnection(ConnectionConfig{Catalog: catalog, Backend: NewMemoryBackend("test"), Logger: zerolog.Nop()})
		require.NoError(t, conn.EnsureIndexes(context.Background()))
		fn(t, conn)
	})
	t.Run("badger", func(t *testing.T) {
		b, err := OpenBadger("", "test")
		require.NoError(t, err)
		conn := NewConnection(ConnectionConfig{Catalog: catalog, Backend: b, Logger: zerolog.Nop()})
		t.Cleanup(func() { _ = conn.Close(context.Background()) })
		require.NoError(t, conn.EnsureIndexes(context.Background()))
		fn(t, conn)
	})
}

func mustModel(t *testing.T, conn *Connection, name string) *Model {
	t.Helper()
	m, err := conn.Lookup(name)
	require.NoError(t, err)
	return m
}

func TestModelSaveAndFind(t *testing.T) {
	backends(t, func(t *testing.T, conn *Connection) {
		ctx := context.Background()
		users := mustModel(t, conn, "User")
		saved, err := users.Save(ctx, map[string]any{"email": "john@doe1.com", "passwordHash": "h", "arrayed": []any{"a", "b"}})
		require.NoError(t, err)
		assert.Equal(t, float64(0), saved[VersionKeyPath])

		id := saved[IDPath].(primitive.ObjectID)
		found, err := users.FindByID(ctx, id.Hex())
		require.NoError(t, err)
		assert.Equal(t, "john@doe1.com", found["email"])
		assert.Equal(t, []any{"a", "b"}, found["arrayed"])

		_, err = users.FindByID(ctx, primitive.NewObjectID())
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = users.FindByID(ctx, "not-an-id")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestModelSaveValidation(t *testing.T) {
	backends(t, func(t *testing.T, conn *Connection) {
		_, err := mustModel(t, conn, "User").Save(context.Background(), map[string]any{})
		var ve *ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "User", ve.Model)
		assert.Contains(t, ve.Errors, "email")
		assert.Contains(t, ve.Errors, "passwordHash")
	})
}

func TestModelFindSortAndPage(t *testing.T) {
	backends(t, func(t *testing.T, conn *Connection) {
		ctx := context.Background()
		articles := mustModel(t, conn, "Article")
		for _, c := range []string{"b", "c", "a", "d"} {
			_, err := articles.Save(ctx, map[string]any{"content": c})
			require.NoError(t, err)
		}
		docs, err := articles.Find(ctx, nil, FindOptions{Sort: bson.D{{Key: "content", Value: 1}}, Skip: 1, Limit: 2})
		require.NoError(t, err)
		require.Len(t, docs, 2)
		assert.Equal(t, "b", docs[0]["content"])
		assert.Equal(t, "c", docs[1]["content"])

		n, err := articles.CountDocuments(ctx, map[string]any{"content": map[string]any{"$regex": "[ab]", "$options": "i"}})
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
	})
}

func TestModelFindMany(t *testing.T) {
	backends(t, func(t *testing.T, conn *Connection) {
		ctx := context.Background()
		users := mustModel(t, conn, "User")
		var ids []any
		for _, e := range []string{"a@a.pl", "b@b.pl", "c@c.pl"} {
			doc, err := users.Save(ctx, map[string]any{"email": e, "passwordHash": "h"})
			require.NoError(t, err)
			ids = append(ids, doc[IDPath].(primitive.ObjectID).Hex())
		}
		docs, err := users.FindMany(ctx, []any{ids[0], ids[2], "bogus"})
		require.NoError(t, err)
		assert.Len(t, docs, 2)
	})
}

func TestModelFindOneAndUpdate(t *testing.T) {
	backends(t, func(t *testing.T, conn *Connection) {
		ctx := context.Background()
		articles := mustModel(t, conn, "Article")
		doc, err := articles.Save(ctx, map[string]any{"content": "Test content"})
		require.NoError(t, err)

		updated, err := articles.FindOneAndUpdate(ctx, doc[IDPath], map[string]any{"content": "Updated content"})
		require.NoError(t, err)
		assert.Equal(t, "Updated content", updated["content"])

		_, err = articles.FindOneAndUpdate(ctx, doc[IDPath], map[string]any{"createdBy": "zzz"})
		var ce *CastError
		require.ErrorAs(t, err, &ce)
		assert.Equal(t, "createdBy", ce.Path)

		_, err = articles.FindOneAndUpdate(ctx, primitive.NewObjectID(), map[string]any{"content": "x"})
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestModelUpdateNestedLeaves(t *testing.T) {
	backends(t, func(t *testing.T, conn *Connection) {
		ctx := context.Background()
		users := mustModel(t, conn, "User")
		doc, err := users.Save(ctx, map[string]any{
			"email":        "x@y.pl",
			"passwordHash": "h",
			"parent":       map[string]any{"name": "Ann", "age": 30},
			"family":       []any{map[string]any{"name": "Bob"}, map[string]any{"name": "Eve"}},
		})
		require.NoError(t, err)
		parentID, _ := GetPath(doc, "parent._id")

		updated, err := users.FindOneAndUpdate(ctx, doc[IDPath], map[string]any{
			"parent.age":       "31",
			"family.1.surname": "X",
		})
		require.NoError(t, err)

		age, _ := GetPath(updated, "parent.age")
		assert.Equal(t, float64(31), age)
		name, _ := GetPath(updated, "parent.name")
		assert.Equal(t, "Ann", name)
		id, _ := GetPath(updated, "parent._id")
		assert.Equal(t, parentID, id)

		family, ok := asList(updated["family"])
		require.True(t, ok)
		require.Len(t, family, 2)
		first, _ := GetPath(updated, "family.0.name")
		assert.Equal(t, "Bob", first)
		second, _ := GetPath(updated, "family.1.name")
		assert.Equal(t, "Eve", second)
		surname, _ := GetPath(updated, "family.1.surname")
		assert.Equal(t, "X", surname)
	})
}

func TestModelUpdateNestedCastError(t *testing.T) {
	backends(t, func(t *testing.T, conn *Connection) {
		ctx := context.Background()
		users := mustModel(t, conn, "User")
		doc, err := users.Save(ctx, map[string]any{"email": "x@y.pl", "passwordHash": "h"})
		require.NoError(t, err)
		_, err = users.FindOneAndUpdate(ctx, doc[IDPath], map[string]any{"family.0.age": "old"})
		var ce *CastError
		require.ErrorAs(t, err, &ce)
		assert.Equal(t, "age", ce.Path)
		assert.Equal(t, "family.0.age", ce.FullPath)
	})
}

func TestModelUpdateRunsValidators(t *testing.T) {
	backends(t, func(t *testing.T, conn *Connection) {
		ctx := context.Background()
		users := mustModel(t, conn, "User")
		doc, err := users.Save(ctx, map[string]any{"email": "x@y.pl", "passwordHash": "h"})
		require.NoError(t, err)
		_, err = users.FindOneAndUpdate(ctx, doc[IDPath], map[string]any{"genre": "robot"})
		var ve *ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Contains(t, ve.Errors, "genre")
	})
}

func TestModelFindOneAndDelete(t *testing.T) {
	backends(t, func(t *testing.T, conn *Connection) {
		ctx := context.Background()
		articles := mustModel(t, conn, "Article")
		doc, err := articles.Save(ctx, map[string]any{"content": "bye"})
		require.NoError(t, err)
		removed, err := articles.FindOneAndDelete(ctx, doc[IDPath])
		require.NoError(t, err)
		assert.Equal(t, "bye", removed["content"])
		n, err := articles.CountDocuments(ctx, nil)
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}

func TestUniqueViolation(t *testing.T) {
	catalog := loadTestCatalog(t)
	ctx := context.Background()

	conn := NewConnection(ConnectionConfig{Catalog: catalog, Backend: NewMemoryBackend("test"), Logger: zerolog.Nop()})
	require.NoError(t, conn.EnsureIndexes(ctx))
	pesels := mustModel(t, conn, "Pesel")
	_, err := pesels.Save(ctx, map[string]any{"pesel": "1"})
	require.NoError(t, err)
	_, err = pesels.Save(ctx, map[string]any{"pesel": "1"})
	var dup *DuplicateKeyError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, DuplicateKeyCode, dup.Code)
	assert.Equal(t, map[string]any{"pesel": "1"}, dup.KeyValue)

	b, err := OpenBadger("", "test")
	require.NoError(t, err)
	defer b.Close(ctx)
	conn = NewConnection(ConnectionConfig{Catalog: catalog, Backend: b, Logger: zerolog.Nop()})
	require.NoError(t, conn.EnsureIndexes(ctx))
	pesels = mustModel(t, conn, "Pesel")
	_, err = pesels.Save(ctx, map[string]any{"pesel": "1"})
	require.NoError(t, err)
	_, err = pesels.Save(ctx, map[string]any{"pesel": "1"})
	require.ErrorAs(t, err, &dup)
	assert.Nil(t, dup.KeyValue)
	assert.Contains(t, dup.Message, "E11000")
	assert.Contains(t, dup.Message, "pesel")
}

func TestConnectionRegistry(t *testing.T) {
	conn := NewConnection(ConnectionConfig{Catalog: loadTestCatalog(t), Backend: NewMemoryBackend("db"), Logger: zerolog.Nop()})
	var reg Registry = conn
	assert.Equal(t, []string{"Article", "Contact", "Nested", "Pesel", "User"}, reg.ModelNames())
	_, ok := reg.Model("Nope")
	assert.False(t, ok)
	_, err := conn.Lookup("Nope")
	assert.ErrorIs(t, err, ErrUnknownModel)
	assert.Equal(t, "db", conn.DatabaseName())
}
