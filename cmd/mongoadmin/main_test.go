package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	base := []string{
		"--backend", "memory",
		"--database", "cli_test",
		"--schemas", filepath.Join("..", "..", "admin", "testdata", "schemas"),
		"--log-level", "error",
	}
	root.SetArgs(append(base, args...))
	err := root.Execute()
	return out.String(), err
}

func TestModelsCommand(t *testing.T) {
	out, err := execute(t, "models")
	require.NoError(t, err)
	assert.Contains(t, out, "pesel")
	assert.Contains(t, out, "User")
}

func TestPropertiesCommand(t *testing.T) {
	out, err := execute(t, "properties", "article")
	require.NoError(t, err)
	var props []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &props))
	byName := map[string]map[string]any{}
	for _, p := range props {
		byName[p["name"].(string)] = p
	}
	require.Contains(t, byName, "createdBy")
	assert.Equal(t, "reference", byName["createdBy"]["type"])
	assert.Equal(t, "User", byName["createdBy"]["reference"])
}

func TestCreateCommandValidation(t *testing.T) {
	_, err := execute(t, "create", "user", "genre=robot")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "email")
}

func TestCreateCommand(t *testing.T) {
	out, err := execute(t, "create", "pesel", "pesel=123")
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "123", doc["pesel"])
}

func TestParseAssignments(t *testing.T) {
	got, err := parseAssignments([]string{"email=a@b", "seen=2024-01-01..2024-02-01"}, true)
	require.NoError(t, err)
	assert.Equal(t, "a@b", got["email"])
	assert.Equal(t, map[string]any{"from": "2024-01-01", "to": "2024-02-01"}, got["seen"])

	_, err = parseAssignments([]string{"novalue"}, false)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "key=value"))
}

func TestReadParamsMergesJSON(t *testing.T) {
	got, err := readParams(`{"parent":{"name":"Ann"}}`, []string{"email=x"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"parent.name": "Ann", "email": "x"}, got)
}
