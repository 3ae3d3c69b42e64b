package export

import (
	"context"
	"database/sql"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/inovacc/recstore/internal/action"
	"github.com/inovacc/recstore/internal/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T) *engine.DB {
	t.Helper()

	db, err := engine.Open(filepath.Join(t.TempDir(), "src.bolt"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.CreateCollection(engine.CollectionSchema{Name: "users", KeyPath: engine.Path("id")}))
	require.NoError(t, db.CreateCollection(engine.CollectionSchema{Name: `odd "name"`, AutoIncrement: true}))

	for _, doc := range []map[string]any{{"id": "b", "n": 2}, {"id": "a", "n": 1}} {
		ex, err := action.New(action.Write, db, "users")
		require.NoError(t, err)

		_, err = ex.WithPayload(doc).Execute(context.Background())
		require.NoError(t, err)
	}

	return db
}

func docs(t *testing.T, path, table string) []map[string]any {
	t.Helper()

	out, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer func() { _ = out.Close() }()

	rows, err := out.Query("SELECT doc FROM " + quoteIdent(table) + " ORDER BY seq")
	require.NoError(t, err)
	defer func() { _ = rows.Close() }()

	var result []map[string]any

	for rows.Next() {
		var raw string
		require.NoError(t, rows.Scan(&raw))

		var doc map[string]any
		require.NoError(t, json.Unmarshal([]byte(raw), &doc))
		result = append(result, doc)
	}

	require.NoError(t, rows.Err())

	return result
}

func TestToSQLite(t *testing.T) {
	db := seed(t)
	dest := filepath.Join(t.TempDir(), "out", "export.sqlite")

	counts, err := ToSQLite(context.Background(), db, dest, Options{})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"users": 2, `odd "name"`: 0}, counts)

	assert.Equal(t, []map[string]any{{"id": "a", "n": 1.0}, {"id": "b", "n": 2.0}}, docs(t, dest, "users"))
	assert.Empty(t, docs(t, dest, `odd "name"`))
}

func TestToSQLite_ReplacesTable(t *testing.T) {
	db := seed(t)
	dest := filepath.Join(t.TempDir(), "export.sqlite")

	_, err := ToSQLite(context.Background(), db, dest, Options{}, "users")
	require.NoError(t, err)

	ex, err := action.New(action.Delete, db, "users")
	require.NoError(t, err)
	_, err = ex.WithDeleteKey("a").Execute(context.Background())
	require.NoError(t, err)

	counts, err := ToSQLite(context.Background(), db, dest, Options{}, "users")
	require.NoError(t, err)
	assert.Equal(t, 1, counts["users"])
	assert.Len(t, docs(t, dest, "users"), 1)
}

func TestToSQLite_UnknownCollection(t *testing.T) {
	db := seed(t)

	_, err := ToSQLite(context.Background(), db, filepath.Join(t.TempDir(), "x.sqlite"), Options{}, "nope")
	assert.ErrorIs(t, err, engine.ErrNotFound)
}
