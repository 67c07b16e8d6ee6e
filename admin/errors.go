package admin

import (
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/pedrohavay/mongoadmin/odm"
)

// DuplicateType is the error type reported for unique index violations.
const DuplicateType = "duplicate"

// PropertyError is the failure of one field.
type PropertyError struct {
	Message string `json:"message" msgpack:"message"`
	Type    string `json:"type" msgpack:"type"`
}

// ValidationError is the per-field error the admin panel renders, whatever
// the store failure it was translated from.
type ValidationError struct {
	Message        string
	PropertyErrors map[string]PropertyError
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.PropertyErrors))
	for k := range e.PropertyErrors {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.PropertyErrors[k].Message)
	}
	msg := e.Message
	if msg == "" {
		msg = "validation failed"
	}
	return msg + ": " + strings.Join(parts, ", ")
}

// UntranslatableError wraps a store failure whose field could not be
// resolved.
type UntranslatableError struct {
	Reason string
	Err    error
}

func (e *UntranslatableError) Error() string {
	return fmt.Sprintf("untranslatable error: %s: %v", e.Reason, e.Err)
}

func (e *UntranslatableError) Unwrap() error { return e.Err }

// FromValidationFailure keeps every field of err, typed by the validator
// kind or, without one, the error name.
func FromValidationFailure(err *odm.ValidationError) *ValidationError {
	out := &ValidationError{PropertyErrors: make(map[string]PropertyError, len(err.Errors))}
	if err.Model != "" {
		out.Message = err.Model + " validation failed"
	}
	for key, e := range err.Errors {
		typ := e.Kind
		if typ == "" {
			typ = e.Name
		}
		out.PropertyErrors[key] = PropertyError{Message: e.Message, Type: typ}
	}
	return out
}

// FromCastFailure resolves the field a cast failure belongs to. The dotted
// path recorded on the error wins; otherwise params is searched for a key
// holding the failed value whose last segments are the error path,
// optionally followed by an array index.
func FromCastFailure(err *odm.CastError, params map[string]any) (*ValidationError, error) {
	key := err.FullPath
	if key == "" {
		var ok bool
		if key, ok = findCastKey(err, params); !ok {
			return nil, &UntranslatableError{Reason: fmt.Sprintf("no parameter matches cast path %q", err.Path), Err: err}
		}
	}
	typ := err.Kind
	if typ == "" {
		typ = "CastError"
	}
	return &ValidationError{PropertyErrors: map[string]PropertyError{
		key: {Message: err.Message, Type: typ},
	}}, nil
}

func findCastKey(err *odm.CastError, params map[string]any) (string, bool) {
	re := regexp.MustCompile(`(^|\.)` + regexp.QuoteMeta(err.Path) + `(\.\d+)?$`)
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if reflect.DeepEqual(params[k], err.Value) && re.MatchString(k) {
			return k, true
		}
	}
	return "", false
}

// FromDuplicateKeyFailure names the duplicated field from the structured
// key of err or, when the store only sent a message, from the first key of
// doc found in that message.
func FromDuplicateKeyFailure(err *odm.DuplicateKeyError, doc map[string]any) (*ValidationError, error) {
	field := ""
	if len(err.KeyValue) > 0 {
		keys := make([]string, 0, len(err.KeyValue))
		for k := range err.KeyValue {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		field = keys[0]
	} else {
		keys := make([]string, 0, len(doc))
		for k := range doc {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if strings.Contains(err.Message, k) {
				field = k
				break
			}
		}
	}
	if field == "" {
		return nil, &UntranslatableError{Reason: "duplicate key names no known field", Err: err}
	}
	return &ValidationError{PropertyErrors: map[string]PropertyError{
		field: {Type: DuplicateType, Message: fmt.Sprintf("Record with that %s already exists", field)},
	}}, nil
}
