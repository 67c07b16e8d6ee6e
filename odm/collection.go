package odm

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
)

// FindOptions controls paging and ordering of Find.
type FindOptions struct {
	Skip       int64
	Limit      int64
	Sort       bson.D
	Projection []string
}

// Collection is the raw document store a Model writes to.
type Collection interface {
	Name() string
	InsertOne(ctx context.Context, doc Document) error
	// FindOne returns ErrNotFound when nothing matches.
	FindOne(ctx context.Context, filter Document) (Document, error)
	Find(ctx context.Context, filter Document, opts FindOptions) ([]Document, error)
	CountDocuments(ctx context.Context, filter Document) (int64, error)
	// UpdateOne applies set as a $set update and reports whether a document matched.
	UpdateOne(ctx context.Context, filter Document, set Document) (bool, error)
	DeleteOne(ctx context.Context, filter Document) (int64, error)
	// EnsureUnique declares sparse unique indexes on paths.
	EnsureUnique(ctx context.Context, paths []string) error
}

// Backend opens collections of one database.
type Backend interface {
	DatabaseName() string
	Collection(name string) Collection
	Close(ctx context.Context) error
}

// applySet writes the dotted keys of set into doc.
func applySet(doc Document, set Document) {
	for k, v := range set {
		SetPath(doc, k, v)
	}
}

// uniqueConflict returns the first unique path whose value in doc is
// already held by another document of docs.
func uniqueConflict(doc Document, docs []Document, unique []string) (string, any, bool) {
	id := doc[IDPath]
	for _, path := range unique {
		v, ok := GetPath(doc, path)
		if !ok || v == nil {
			continue
		}
		for _, other := range docs {
			if c, ok := compareValues(other[IDPath], id); ok && c == 0 {
				continue
			}
			ov, ok := GetPath(other, path)
			if !ok {
				continue
			}
			if c, ok := compareValues(ov, v); ok && c == 0 {
				return path, v, true
			}
		}
	}
	return "", nil, false
}

func project(doc Document, fields []string) Document {
	if len(fields) == 0 {
		return doc
	}
	out := Document{}
	for _, f := range fields {
		if v, ok := GetPath(doc, f); ok {
			SetPath(out, f, v)
		}
	}
	if id, ok := doc[IDPath]; ok {
		out[IDPath] = id
	}
	return out
}
