package odm

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// Model binds a schema to the collection its documents live in.
type Model struct {
	Name       string
	Schema     *Schema
	Collection Collection
	logger     zerolog.Logger
}

func NewModel(name string, schema *Schema, coll Collection, logger zerolog.Logger) *Model {
	return &Model{
		Name:       name,
		Schema:     schema,
		Collection: coll,
		logger:     logger.With().Str("model", name).Logger(),
	}
}

// castID coerces id to the declared type of the identifier path.
func (m *Model) castID(id any) (any, error) {
	inst := ObjectID
	if t := m.Schema.Path(IDPath); t != nil {
		inst = t.Instance
	}
	c, ok := castValue(inst, id)
	if !ok || c == nil {
		return nil, fmt.Errorf("%s %v: %w", m.Name, id, ErrNotFound)
	}
	return c, nil
}

// Save casts and validates doc, then inserts it. The stored document is
// returned with its generated identifier and version key.
func (m *Model) Save(ctx context.Context, doc map[string]any) (Document, error) {
	cast, errs := m.Schema.Cast(doc)
	if len(errs) > 0 {
		return nil, &ValidationError{Model: m.Name, Errors: errs}
	}
	if m.Schema.Path(VersionKeyPath) != nil {
		cast[VersionKeyPath] = float64(0)
	}
	m.logger.Debug().Interface("id", cast[IDPath]).Msg("insert")
	if err := m.Collection.InsertOne(ctx, cast); err != nil {
		return nil, err
	}
	return cast, nil
}

func (m *Model) FindByID(ctx context.Context, id any) (Document, error) {
	oid, err := m.castID(id)
	if err != nil {
		return nil, err
	}
	doc, err := m.Collection.FindOne(ctx, Document{IDPath: oid})
	if err != nil {
		return nil, fmt.Errorf("%s %v: %w", m.Name, id, err)
	}
	return doc, nil
}

// Find casts filter against the schema before querying.
func (m *Model) Find(ctx context.Context, filter map[string]any, opts FindOptions) ([]Document, error) {
	q, err := m.Schema.CastQuery(filter)
	if err != nil {
		return nil, err
	}
	m.logger.Debug().Interface("filter", q).Int64("skip", opts.Skip).Int64("limit", opts.Limit).Msg("find")
	return m.Collection.Find(ctx, q, opts)
}

// FindMany loads the documents whose identifiers are in ids. Identifiers
// that cannot be cast are skipped.
func (m *Model) FindMany(ctx context.Context, ids []any) ([]Document, error) {
	cast := make([]any, 0, len(ids))
	for _, id := range ids {
		if c, err := m.castID(id); err == nil {
			cast = append(cast, c)
		}
	}
	if len(cast) == 0 {
		return nil, nil
	}
	return m.Collection.Find(ctx, Document{IDPath: Document{"$in": cast}}, FindOptions{})
}

func (m *Model) CountDocuments(ctx context.Context, filter map[string]any) (int64, error) {
	q, err := m.Schema.CastQuery(filter)
	if err != nil {
		return 0, err
	}
	return m.Collection.CountDocuments(ctx, q)
}

// FindOneAndUpdate applies set as a $set update with validators and
// returns the updated document. Keys of set are dotted paths; only the
// named leaves change. A value that cannot be cast fails with
// *CastError; validator failures with *ValidationError.
func (m *Model) FindOneAndUpdate(ctx context.Context, id any, set map[string]any) (Document, error) {
	oid, err := m.castID(id)
	if err != nil {
		return nil, err
	}
	errs := map[string]*ValidatorError{}
	upd, cerr := m.Schema.castUpdate(set, errs)
	if cerr != nil {
		return nil, cerr
	}
	if len(errs) > 0 {
		return nil, &ValidationError{Model: m.Name, Errors: errs}
	}
	filter := Document{IDPath: oid}
	if len(upd) > 0 {
		m.logger.Debug().Interface("id", oid).Int("paths", len(upd)).Msg("update")
		matched, err := m.Collection.UpdateOne(ctx, filter, upd)
		if err != nil {
			return nil, err
		}
		if !matched {
			return nil, fmt.Errorf("%s %v: %w", m.Name, id, ErrNotFound)
		}
	}
	return m.Collection.FindOne(ctx, filter)
}

// FindOneAndDelete removes the document and returns it as it was.
func (m *Model) FindOneAndDelete(ctx context.Context, id any) (Document, error) {
	doc, err := m.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	m.logger.Debug().Interface("id", doc[IDPath]).Msg("delete")
	if _, err := m.Collection.DeleteOne(ctx, Document{IDPath: doc[IDPath]}); err != nil {
		return nil, err
	}
	return doc, nil
}

// EnsureIndexes declares the unique indexes of the schema.
func (m *Model) EnsureIndexes(ctx context.Context) error {
	return m.Collection.EnsureUnique(ctx, m.Schema.UniquePaths())
}
