// Package config handles mongoadmin configuration.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// CurrentConfigVersion is the current version of the config file format.
const CurrentConfigVersion = 1

// Backend kinds.
const (
	BackendMongo  = "mongo"
	BackendBadger = "badger"
	BackendMemory = "memory"
)

// Config represents the mongoadmin.yaml configuration file.
type Config struct {
	Version int     `yaml:"version"`
	Schemas string  `yaml:"schemas"`
	Backend Backend `yaml:"backend"`
	Log     Log     `yaml:"log"`
}

type Backend struct {
	Kind     string `yaml:"kind"`
	URI      string `yaml:"uri,omitempty"`
	Database string `yaml:"database"`
	// Path is the badger directory; empty keeps badger in memory.
	Path string `yaml:"path,omitempty"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // console or json
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Version: CurrentConfigVersion,
		Schemas: "schemas",
		Backend: Backend{Kind: BackendMongo, URI: "mongodb://localhost:27017", Database: "admin"},
		Log:     Log{Level: "info", Format: "console"},
	}
}

// Load reads a Config from a file path on top of the defaults.
func Load(path string) (*Config, error) {
	f, err := os.Open(path) //nolint:gosec // path is provided by caller
	if err != nil {
		return nil, err
	}
	defer f.Close() //nolint:errcheck

	cfg := Default()
	if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the Config to a file path.
func (c *Config) Save(path string) error {
	f, err := os.Create(path) //nolint:gosec // path is provided by caller
	if err != nil {
		return err
	}
	defer f.Close() //nolint:errcheck

	enc := yaml.NewEncoder(f)
	enc.SetIndent(2)
	return enc.Encode(c)
}

// ApplyEnv overrides fields from MONGOADMIN_* environment variables.
func (c *Config) ApplyEnv() {
	for env, field := range map[string]*string{
		"MONGOADMIN_SCHEMAS":     &c.Schemas,
		"MONGOADMIN_BACKEND":     &c.Backend.Kind,
		"MONGOADMIN_URI":         &c.Backend.URI,
		"MONGOADMIN_DATABASE":    &c.Backend.Database,
		"MONGOADMIN_BADGER_PATH": &c.Backend.Path,
		"MONGOADMIN_LOG_LEVEL":   &c.Log.Level,
		"MONGOADMIN_LOG_FORMAT":  &c.Log.Format,
	} {
		if v := os.Getenv(env); v != "" {
			*field = v
		}
	}
}

// Validate checks the configuration for required fields and valid values.
func (c *Config) Validate() error {
	if c.Version != CurrentConfigVersion {
		return errors.New("unsupported config version")
	}
	if c.Schemas == "" {
		return errors.New("schemas directory is required")
	}
	switch c.Backend.Kind {
	case BackendMongo:
		if c.Backend.URI == "" {
			return errors.New("mongo backend requires a uri")
		}
	case BackendBadger, BackendMemory:
	default:
		return fmt.Errorf("unknown backend kind %q", c.Backend.Kind)
	}
	if c.Backend.Database == "" {
		return errors.New("database name is required")
	}
	switch c.Log.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	return nil
}
