package admin

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/pedrohavay/mongoadmin/odm"
)

// Database exposes every model of a registry as a resource.
type Database struct {
	registry odm.Registry
	name     string
	logger   zerolog.Logger
}

func NewDatabase(reg odm.Registry, name string, logger zerolog.Logger) *Database {
	return &Database{registry: reg, name: name, logger: logger}
}

// IsDatabaseAdapterFor reports whether v is a model registry.
func IsDatabaseAdapterFor(v any) bool {
	_, ok := v.(odm.Registry)
	return ok
}

func (d *Database) Name() string { return d.name }

// Resources returns one resource per model, in registry order.
func (d *Database) Resources() []*Resource {
	names := d.registry.ModelNames()
	out := make([]*Resource, 0, len(names))
	for _, n := range names {
		if m, ok := d.registry.Model(n); ok {
			out = append(out, NewResource(m, ResourceConfig{DatabaseName: d.name, Logger: d.logger}))
		}
	}
	return out
}

// Resource returns the resource for a model name or resource id.
func (d *Database) Resource(name string) (*Resource, error) {
	if m, ok := d.registry.Model(name); ok {
		return NewResource(m, ResourceConfig{DatabaseName: d.name, Logger: d.logger}), nil
	}
	for _, r := range d.Resources() {
		if r.ID() == name {
			return r, nil
		}
	}
	return nil, fmt.Errorf("resource %q: %w", name, odm.ErrUnknownModel)
}
