package admin

import (
	"fmt"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/pedrohavay/mongoadmin/odm"
)

// PropertyType is the semantic type the admin panel renders a property as.
// Implementations are stateless and shared.
type PropertyType interface {
	Name() string
	Label() string
	Sortable() bool
	// Condition adds the query predicate for a filter value on path to q.
	// It returns false when the value can never match.
	Condition(q bson.M, path string, value any) bool
}

// BaseType offers default implementations.
type BaseType struct {
	name     string
	label    string
	sortable bool
}

func (b BaseType) Name() string   { return b.name }
func (b BaseType) Label() string  { return b.label }
func (b BaseType) Sortable() bool { return b.sortable }
func (b BaseType) Condition(q bson.M, path string, value any) bool {
	q[path] = value
	return true
}

// StringType filters by case-insensitive partial match.
type StringType struct{ BaseType }

func NewStringType() *StringType {
	return &StringType{BaseType{name: "string", label: "String", sortable: true}}
}
func (t *StringType) Condition(q bson.M, path string, value any) bool {
	q[path] = bson.M{"$regex": regexp.QuoteMeta(fmt.Sprint(value)), "$options": "i"}
	return true
}

// DateTimeType filters by an inclusive range.
type DateTimeType struct{ BaseType }

func NewDateTimeType() *DateTimeType {
	return &DateTimeType{BaseType{name: "datetime", label: "Date and time", sortable: true}}
}
func (t *DateTimeType) Condition(q bson.M, path string, value any) bool {
	r, ok := value.(Range)
	if !ok {
		q[path] = value
		return true
	}
	cond := bson.M{}
	if !isBlank(r.From) {
		cond["$gte"] = r.From
	}
	if !isBlank(r.To) {
		cond["$lte"] = r.To
	}
	if len(cond) > 0 {
		q[path] = cond
	}
	return true
}

// IDType only passes well-formed identifiers to the store.
type IDType struct{ BaseType }

func NewIDType() *IDType {
	return &IDType{BaseType{name: "id", label: "Identifier", sortable: true}}
}
func (t *IDType) Condition(q bson.M, path string, value any) bool {
	switch v := value.(type) {
	case primitive.ObjectID:
		q[path] = v
		return true
	case string:
		if primitive.IsValidObjectID(v) {
			q[path] = v
			return true
		}
	}
	return false
}

// Registry holds the semantic property types.
type Registry struct {
	String    *StringType
	Number    PropertyType
	Boolean   PropertyType
	DateTime  *DateTimeType
	Float     PropertyType
	ID        *IDType
	Reference PropertyType
	Mixed     PropertyType

	types map[string]PropertyType
}

func NewRegistry() *Registry {
	r := &Registry{
		String:    NewStringType(),
		Number:    BaseType{name: "number", label: "Number", sortable: true},
		Boolean:   BaseType{name: "boolean", label: "Boolean", sortable: true},
		DateTime:  NewDateTimeType(),
		Float:     BaseType{name: "float", label: "Float", sortable: true},
		ID:        NewIDType(),
		Reference: BaseType{name: "reference", label: "Reference", sortable: true},
		Mixed:     BaseType{name: "mixed", label: "Mixed"},
		types:     map[string]PropertyType{},
	}
	for _, t := range []PropertyType{r.String, r.Number, r.Boolean, r.DateTime, r.Float, r.ID, r.Reference, r.Mixed} {
		r.types[t.Name()] = t
	}
	return r
}

func (r *Registry) Get(name string) PropertyType { return r.types[name] }

// ForInstance maps a storage kind to its semantic type. ObjectID resolves to
// reference when the property points at another model.
func (r *Registry) ForInstance(inst odm.Instance, isReference bool) (PropertyType, error) {
	switch inst {
	case odm.String:
		return r.String, nil
	case odm.Boolean:
		return r.Boolean, nil
	case odm.Number:
		return r.Number, nil
	case odm.Date:
		return r.DateTime, nil
	case odm.Decimal128:
		return r.Float, nil
	case odm.ObjectID:
		if isReference {
			return r.Reference, nil
		}
		return r.ID, nil
	case odm.Embedded:
		return r.Mixed, nil
	}
	return nil, fmt.Errorf("%w: %q", odm.ErrUnknownInstance, inst.String())
}

var registry = NewRegistry()

// Types returns the shared type registry.
func Types() *Registry { return registry }

func isBlank(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}
