package admin

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/pedrohavay/mongoadmin/odm"
)

func newTestDatabase(t *testing.T) *Database {
	t.Helper()
	catalog, err := odm.LoadCatalog("testdata/schemas")
	require.NoError(t, err)
	conn := odm.NewConnection(odm.ConnectionConfig{Catalog: catalog, Backend: odm.NewMemoryBackend("admin_test"), Logger: zerolog.Nop()})
	require.NoError(t, conn.EnsureIndexes(context.Background()))
	return NewDatabase(conn, conn.DatabaseName(), zerolog.Nop())
}

func newTestResource(t *testing.T, db *Database, name string) *Resource {
	t.Helper()
	r, err := db.Resource(name)
	require.NoError(t, err)
	return r
}

func userResource(t *testing.T) *Resource {
	return newTestResource(t, newTestDatabase(t), "User")
}
