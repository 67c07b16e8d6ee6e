package odm

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// DuplicateKeyCode is the server error code for unique index violations.
const DuplicateKeyCode = 11000

var (
	ErrNotFound     = errors.New("document not found")
	ErrUnknownModel = errors.New("unknown model")
)

// ValidatorError is a single failed path inside a ValidationError.
type ValidatorError struct {
	Path    string
	Message string
	Kind    string // validator type or cast target kind, may be empty
	Name    string // ValidatorError, CastError or ValidationError
	Value   any
}

func (e *ValidatorError) Error() string { return e.Message }

// ValidationError reports every path of a document that failed casting or
// validation.
type ValidationError struct {
	Model  string
	Errors map[string]*ValidatorError
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Errors))
	for k := range e.Errors {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Errors[k].Message)
	}
	prefix := "Validation failed"
	if e.Model != "" {
		prefix = e.Model + " validation failed"
	}
	return prefix + ": " + strings.Join(parts, ", ")
}

// CastError is raised by updates when a value cannot be coerced. Path is
// relative to the sub-schema that owns the field; FullPath is the dotted
// key that was written, when known.
type CastError struct {
	Path     string
	FullPath string
	Value    any
	Kind     string
	Message  string
}

func (e *CastError) Error() string { return e.Message }

func newCastError(path string, value any, inst Instance) *CastError {
	return &CastError{
		Path:    path,
		Value:   value,
		Kind:    inst.Kind(),
		Message: fmt.Sprintf("Cast to %s failed for value %q (type %T) at path %q", inst.Kind(), fmt.Sprint(value), value, path),
	}
}

// DuplicateKeyError is a unique index violation. KeyValue is empty when the
// backend only reports the free-text message.
type DuplicateKeyError struct {
	Code     int
	KeyValue map[string]any
	Message  string
}

func (e *DuplicateKeyError) Error() string { return e.Message }

func duplicateMessage(collection, path string, value any) string {
	return fmt.Sprintf("E11000 duplicate key error collection: %s index: %s_1 dup key: { %s: %q }", collection, path, path, fmt.Sprint(value))
}
