package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_LoadAndSave(t *testing.T) {
	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "mongoadmin.yaml")

	cfg := Default()
	cfg.Schemas = "models"
	cfg.Backend = Backend{Kind: BackendBadger, URI: "mongodb://db:27017", Database: "shop", Path: "data"}

	require.NoError(t, cfg.Save(cfgPath))

	loaded, err := Load(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestConfig_LoadKeepsDefaults(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "mongoadmin.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("version: 1\nbackend:\n  kind: memory\n  database: x\n"), 0o644))

	loaded, err := Load(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, "schemas", loaded.Schemas)
	assert.Equal(t, "info", loaded.Log.Level)
	assert.Equal(t, BackendMemory, loaded.Backend.Kind)
}

func TestConfig_ApplyEnv(t *testing.T) {
	t.Setenv("MONGOADMIN_BACKEND", "memory")
	t.Setenv("MONGOADMIN_DATABASE", "envdb")
	cfg := Default()
	cfg.ApplyEnv()
	assert.Equal(t, BackendMemory, cfg.Backend.Kind)
	assert.Equal(t, "envdb", cfg.Backend.Database)
	assert.Equal(t, "schemas", cfg.Schemas)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid config", mutate: func(*Config) {}},
		{name: "unsupported version", mutate: func(c *Config) { c.Version = 99 }, wantErr: "unsupported config version"},
		{name: "missing schemas", mutate: func(c *Config) { c.Schemas = "" }, wantErr: "schemas directory"},
		{name: "unknown backend", mutate: func(c *Config) { c.Backend.Kind = "redis" }, wantErr: "unknown backend"},
		{name: "mongo without uri", mutate: func(c *Config) { c.Backend.URI = "" }, wantErr: "requires a uri"},
		{name: "missing database", mutate: func(c *Config) { c.Backend.Database = "" }, wantErr: "database name"},
		{name: "bad log format", mutate: func(c *Config) { c.Log.Format = "xml" }, wantErr: "log format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}
