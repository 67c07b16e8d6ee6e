package admin

import (
	"encoding/json"
	"fmt"

	"github.com/pedrohavay/mongoadmin/odm"
)

// Record is one document as the admin panel sees it: flattened params with
// string identifiers, populated references and field errors.
type Record struct {
	Params    map[string]any
	Populated map[string]*Record
	Errors    map[string]PropertyError

	resource *Resource
}

// NewRecord flattens doc into a record of r.
func NewRecord(doc map[string]any, r *Resource) *Record {
	return &Record{
		Params:    Flatten(doc),
		Populated: map[string]*Record{},
		Errors:    map[string]PropertyError{},
		resource:  r,
	}
}

func (rec *Record) Resource() *Resource { return rec.resource }

// Param returns the flattened value at key.
func (rec *Record) Param(key string) any { return rec.Params[key] }

// ID returns the identifier as a string, or "".
func (rec *Record) ID() string {
	switch v := rec.Params[odm.IDPath].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// Document rebuilds the nested document from the params.
func (rec *Record) Document() map[string]any { return Unflatten(rec.Params) }

// ToDict is the JSON shape sent to the panel.
func (rec *Record) ToDict() map[string]any {
	populated := make(map[string]any, len(rec.Populated))
	for k, p := range rec.Populated {
		if p != nil {
			populated[k] = p.ToDict()
		}
	}
	out := map[string]any{
		"id":        rec.ID(),
		"params":    rec.Params,
		"populated": populated,
		"errors":    rec.Errors,
	}
	if rec.resource != nil {
		out["resourceId"] = rec.resource.ID()
	}
	return out
}

// StringifyID reduces every identifier in doc, at any depth, to its string
// form by encoding the document to JSON and decoding it back.
func StringifyID(doc map[string]any) (map[string]any, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("stringify id: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("stringify id: %w", err)
	}
	return out, nil
}
