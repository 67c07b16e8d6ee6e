package odm

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// Registry resolves models by name.
type Registry interface {
	ModelNames() []string
	Model(name string) (*Model, bool)
}

type ConnectionConfig struct {
	Catalog *Catalog
	Backend Backend
	Logger  zerolog.Logger
}

// Connection is a Registry over the models of one catalog, each bound to a
// collection of the backend.
type Connection struct {
	backend Backend
	names   []string
	models  map[string]*Model
	logger  zerolog.Logger
}

func NewConnection(cfg ConnectionConfig) *Connection {
	c := &Connection{
		backend: cfg.Backend,
		names:   cfg.Catalog.ModelNames(),
		models:  make(map[string]*Model, len(cfg.Catalog.Models)),
		logger:  cfg.Logger.With().Str("component", "odm").Logger(),
	}
	for _, name := range c.names {
		def := cfg.Catalog.Models[name]
		c.models[name] = NewModel(name, def.Schema, cfg.Backend.Collection(def.Collection), c.logger)
	}
	c.logger.Debug().Str("database", cfg.Backend.DatabaseName()).Int("models", len(c.names)).Msg("connection ready")
	return c
}

func (c *Connection) ModelNames() []string {
	return append([]string(nil), c.names...)
}

func (c *Connection) Model(name string) (*Model, bool) {
	m, ok := c.models[name]
	return m, ok
}

// Lookup is Model with an error for unknown names.
func (c *Connection) Lookup(name string) (*Model, error) {
	m, ok := c.models[name]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrUnknownModel)
	}
	return m, nil
}

func (c *Connection) DatabaseName() string { return c.backend.DatabaseName() }

// EnsureIndexes declares unique indexes for every model.
func (c *Connection) EnsureIndexes(ctx context.Context) error {
	for _, name := range c.names {
		if err := c.models[name].EnsureIndexes(ctx); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

func (c *Connection) Close(ctx context.Context) error { return c.backend.Close(ctx) }
