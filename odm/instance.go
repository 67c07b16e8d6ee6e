package odm

import (
	"errors"
	"fmt"
)

// ErrUnknownInstance is returned for a field kind outside the supported set.
var ErrUnknownInstance = errors.New("unknown schema instance")

// Instance is the storage kind of a schema path.
type Instance int

const (
	// InstanceNone marks a caster that only carries a nested schema
	// (array of embedded documents).
	InstanceNone Instance = iota
	String
	Number
	Boolean
	Date
	ObjectID
	Decimal128
	Array
	Embedded
)

var instanceNames = map[Instance]string{
	String:     "String",
	Number:     "Number",
	Boolean:    "Boolean",
	Date:       "Date",
	ObjectID:   "ObjectID",
	Decimal128: "Decimal128",
	Array:      "Array",
	Embedded:   "Embedded",
}

func (i Instance) String() string {
	if n, ok := instanceNames[i]; ok {
		return n
	}
	return ""
}

// Kind is the tag used on cast failures for this instance.
func (i Instance) Kind() string {
	if i == ObjectID {
		return "ObjectId"
	}
	return i.String()
}

// ParseInstance maps a schema file type name to an Instance.
func ParseInstance(name string) (Instance, error) {
	switch name {
	case "String", "string":
		return String, nil
	case "Number", "number":
		return Number, nil
	case "Boolean", "boolean", "Bool":
		return Boolean, nil
	case "Date", "date":
		return Date, nil
	case "ObjectID", "ObjectId", "objectId":
		return ObjectID, nil
	case "Decimal128", "decimal":
		return Decimal128, nil
	case "Array", "array":
		return Array, nil
	case "Embedded", "embedded":
		return Embedded, nil
	}
	return InstanceNone, fmt.Errorf("%w: %q", ErrUnknownInstance, name)
}
