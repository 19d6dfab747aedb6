package sqlite_test

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"patient-payments/internal/adapter/storage/sqlite"

	"github.com/stretchr/testify/require"
)

// openTestDB returns an in-memory audit database with production pragmas and
// schema, closed when the test finishes.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	name := "test_" + strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	conn, err := sqlite.OpenMemory(context.Background(), name)
	require.NoError(t, err)

	t.Cleanup(func() { conn.Close() })
	return conn
}

// newTestWriter returns a Worker backed by conn, closed when the test finishes.
func newTestWriter(t *testing.T, conn *sql.DB) *sqlite.Worker {
	t.Helper()

	w := sqlite.NewWorker(conn)
	t.Cleanup(w.Close)
	return w
}

func newTestStore(t *testing.T) (*sqlite.AuditStore, *sql.DB) {
	t.Helper()
	conn := openTestDB(t)
	return sqlite.NewAuditStore(conn, newTestWriter(t, conn)), conn
}
