package admin

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/pedrohavay/mongoadmin/odm"
)

// DatabaseType is reported by every resource of this adapter.
const DatabaseType = "mongodb"

// DefaultLimit is the page size of Find when none is given.
const DefaultLimit = 20

type ResourceConfig struct {
	DatabaseName string
	Logger       zerolog.Logger
}

// Resource exposes one model to the admin panel.
type Resource struct {
	model        *odm.Model
	databaseName string
	logger       zerolog.Logger
}

func NewResource(model *odm.Model, cfg ResourceConfig) *Resource {
	return &Resource{
		model:        model,
		databaseName: cfg.DatabaseName,
		logger:       cfg.Logger.With().Str("component", "admin").Str("resource", model.Name).Logger(),
	}
}

// IsAdapterFor reports whether v is something a Resource can wrap.
func IsAdapterFor(v any) bool {
	m, ok := v.(*odm.Model)
	return ok && m != nil && m.Schema != nil
}

func (r *Resource) Model() *odm.Model    { return r.model }
func (r *Resource) DatabaseName() string { return r.databaseName }
func (r *Resource) DatabaseType() string { return DatabaseType }
func (r *Resource) Name() string         { return r.model.Name }
func (r *Resource) ID() string           { return strings.ToLower(r.model.Name) }

// Properties reflects every schema path, positioned in schema order.
func (r *Resource) Properties() []*Property {
	paths := r.model.Schema.Paths()
	out := make([]*Property, 0, len(paths))
	for i, d := range paths {
		p := NewProperty(d, i)
		if _, err := p.ResolveType(); err != nil {
			r.logger.Warn().Err(err).Str("path", d.Path).Msg("unhandled type, using string")
		}
		out = append(out, p)
	}
	return out
}

// Property returns the property at path, or nil.
func (r *Resource) Property(path string) *Property {
	for i, d := range r.model.Schema.Paths() {
		if d.Path == path {
			return NewProperty(d, i)
		}
	}
	return nil
}

// SuggestProperty returns the property name closest to name.
func (r *Resource) SuggestProperty(name string) (string, bool) {
	best, bestDist := "", -1
	for _, n := range r.model.Schema.PathNames() {
		d := levenshtein.ComputeDistance(strings.ToLower(name), strings.ToLower(n))
		if bestDist < 0 || d < bestDist {
			best, bestDist = n, d
		}
	}
	if bestDist < 0 || bestDist > len(name)/2+1 {
		return "", false
	}
	return best, true
}

// ParseParams normalizes flat form params against the properties.
func (r *Resource) ParseParams(params map[string]any) map[string]any {
	return NormalizeParams(params, r.Properties())
}

func (r *Resource) Count(ctx context.Context, f *Filter) (int64, error) {
	q, ok := ConvertFilter(f)
	if !ok {
		return 0, nil
	}
	return r.model.CountDocuments(ctx, q)
}

// Sort orders a Find by one property. Direction is "asc" or "desc".
type Sort struct {
	SortBy    string
	Direction string
}

type FindOptions struct {
	Limit  int64
	Offset int64
	Sort   *Sort
}

// Find lists records matching f. Limit defaults to DefaultLimit.
func (r *Resource) Find(ctx context.Context, f *Filter, opts FindOptions) ([]*Record, error) {
	q, ok := ConvertFilter(f)
	if !ok {
		return []*Record{}, nil
	}
	fo := odm.FindOptions{Skip: opts.Offset, Limit: opts.Limit}
	if fo.Limit <= 0 {
		fo.Limit = DefaultLimit
	}
	if opts.Sort != nil && opts.Sort.SortBy != "" {
		dir := 1
		if strings.EqualFold(opts.Sort.Direction, "desc") || opts.Sort.Direction == "-1" {
			dir = -1
		}
		fo.Sort = bson.D{{Key: opts.Sort.SortBy, Value: dir}}
	}
	docs, err := r.model.Find(ctx, q, fo)
	if err != nil {
		return nil, err
	}
	return r.records(docs)
}

// FindOne returns the record with id. A missing or malformed id fails
// with an error wrapping odm.ErrNotFound.
func (r *Resource) FindOne(ctx context.Context, id string) (*Record, error) {
	doc, err := r.model.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	plain, err := StringifyID(doc)
	if err != nil {
		return nil, err
	}
	return NewRecord(plain, r), nil
}

func (r *Resource) FindMany(ctx context.Context, ids []string) ([]*Record, error) {
	in := make([]any, 0, len(ids))
	for _, id := range ids {
		in = append(in, id)
	}
	docs, err := r.model.FindMany(ctx, in)
	if err != nil {
		return nil, err
	}
	return r.records(docs)
}

func (r *Resource) records(docs []odm.Document) ([]*Record, error) {
	out := make([]*Record, 0, len(docs))
	for _, doc := range docs {
		plain, err := StringifyID(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, NewRecord(plain, r))
	}
	return out, nil
}

// Build wraps params in an unsaved record.
func (r *Resource) Build(params map[string]any) *Record {
	return &Record{
		Params:    Flatten(params),
		Populated: map[string]*Record{},
		Errors:    map[string]PropertyError{},
		resource:  r,
	}
}

// Create saves a new document and returns it with string identifiers.
func (r *Resource) Create(ctx context.Context, params map[string]any) (map[string]any, error) {
	flat := r.ParseParams(Flatten(params))
	saved, err := r.model.Save(ctx, Unflatten(flat))
	if err != nil {
		return nil, r.translateError(err, flat)
	}
	return StringifyID(saved)
}

// Update sets the given params on the document with id, running
// validators, and returns the updated document. Params stay flat so only
// the named paths change.
func (r *Resource) Update(ctx context.Context, id string, params map[string]any) (map[string]any, error) {
	flat := r.ParseParams(Flatten(params))
	updated, err := r.model.FindOneAndUpdate(ctx, id, flat)
	if err != nil {
		return nil, r.translateError(err, flat)
	}
	return StringifyID(updated)
}

func (r *Resource) Delete(ctx context.Context, id string) error {
	_, err := r.model.FindOneAndDelete(ctx, id)
	return err
}

// Populate loads the records referenced by prop from this resource and
// attaches them to each source record under the property path, indexed
// for arrays. All identifiers are fetched with one FindMany. prop must be
// a reference property.
func (r *Resource) Populate(ctx context.Context, records []*Record, prop *Property) ([]*Record, error) {
	if prop == nil || prop.Reference() == "" {
		return nil, errors.New("populate needs a reference property")
	}
	type ref struct {
		rec *Record
		key string
		id  string
	}
	var refs []ref
	seen := map[string]bool{}
	var ids []string
	add := func(rec *Record, key string) {
		v := rec.Params[key]
		if v == nil {
			return
		}
		id := idString(v)
		if id == "" {
			return
		}
		refs = append(refs, ref{rec: rec, key: key, id: id})
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for _, rec := range records {
		if prop.IsArray() {
			for _, i := range arrayIndices(rec.Params, prop.Name()) {
				add(rec, prop.Name()+"."+strconv.Itoa(i))
			}
			continue
		}
		add(rec, prop.Name())
	}
	if len(ids) == 0 {
		return records, nil
	}
	found, err := r.FindMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*Record, len(found))
	for _, f := range found {
		byID[f.ID()] = f
	}
	for _, ref := range refs {
		if target, ok := byID[ref.id]; ok {
			ref.rec.Populated[ref.key] = target
		}
	}
	r.logger.Debug().Str("property", prop.Name()).Int("ids", len(ids)).Int("found", len(found)).Msg("populate")
	return records, nil
}

// translateError maps validation, cast and duplicate key failures to a
// *ValidationError. Anything else is returned unchanged.
func (r *Resource) translateError(err error, params map[string]any) error {
	var (
		ve  *odm.ValidationError
		ce  *odm.CastError
		dup *odm.DuplicateKeyError
	)
	switch {
	case errors.As(err, &ve):
		out := FromValidationFailure(ve)
		r.logger.Warn().Str("error", out.Error()).Msg("validation failed")
		return out
	case errors.As(err, &ce):
		out, terr := FromCastFailure(ce, params)
		if terr != nil {
			r.logger.Error().Err(terr).Msg("cast failure")
			return terr
		}
		r.logger.Warn().Str("error", out.Error()).Msg("cast failed")
		return out
	case errors.As(err, &dup):
		out, terr := FromDuplicateKeyFailure(dup, params)
		if terr != nil {
			r.logger.Error().Err(terr).Msg("duplicate key")
			return terr
		}
		r.logger.Warn().Str("error", out.Error()).Msg("duplicate key")
		return out
	}
	return err
}
