package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/setfield/internal/querysql"
	"github.com/roach88/setfield/internal/schema"
	"github.com/roach88/setfield/internal/setfield"
)

func TestOpen_CreatesTables(t *testing.T) {
	s := createTestStore(t)

	var tables []string
	err := s.DB().Select(&tables,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	require.NoError(t, err)

	assert.Contains(t, tables, "tests_testmodel")
	assert.Contains(t, tables, "tests_testmodelwithdefault")
	assert.Contains(t, tables, "setfield_options")
	assert.Contains(t, tables, "goose_db_version")
	assert.Equal(t, querysql.DialectSQLite, s.Dialect())
}

func TestOpen_Pragmas(t *testing.T) {
	s := createTestStore(t)

	var mode string
	require.NoError(t, s.DB().Get(&mode, "PRAGMA journal_mode"))
	assert.Equal(t, "wal", mode)

	var timeout int
	require.NoError(t, s.DB().Get(&timeout, "PRAGMA busy_timeout"))
	assert.Equal(t, 5000, timeout)
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	sch := createTestSchema(t)

	s1, err := Open(path, sch)
	require.NoError(t, err)
	_, err = s1.Create(context.Background(), testModel, map[string]any{"tags": []string{"NANA"}})
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := Open(path, sch)
	require.NoError(t, err)
	defer s2.Close()

	n, err := s2.Count(context.Background(), testModel, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestOpen_RequiresSchema(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "x.db"), nil)
	assert.Error(t, err)
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := OpenWith(Options{Driver: "mysql", DSN: "x", Schema: createTestSchema(t)})
	assert.ErrorContains(t, err, "unsupported driver")
}

func TestOpen_DefaultColumnValue(t *testing.T) {
	s := createTestStore(t)

	// Rows inserted behind the store's back still get the field default.
	_, err := s.DB().Exec(`INSERT INTO tests_testmodelwithdefault DEFAULT VALUES`)
	require.NoError(t, err)

	records, err := s.All(context.Background(), testModelDefault)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].Fields["tags"].Equal(setfield.NewSet("TOMTOM")))
}

func TestOpen_RejectsNegativeColumnValue(t *testing.T) {
	s := createTestStore(t)

	_, err := s.DB().Exec(`INSERT INTO tests_testmodel (tags) VALUES (-1)`)
	assert.Error(t, err, "CHECK constraint keeps stored masks non-negative")
}

func TestOptionsLock_AppendAllowed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lock.db")
	ctx := context.Background()

	s1, err := Open(path, createTestSchema(t))
	require.NoError(t, err)
	_, err = s1.Create(ctx, testModel, map[string]any{"tags": "NANA"})
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	extended, err := schema.New(
		schema.NewModel(testModel, setfield.MustNew("tags", []string{"TOMTOM", "NANA", "LULU"})),
	)
	require.NoError(t, err)

	s2, err := Open(path, extended)
	require.NoError(t, err)
	defer s2.Close()

	records, err := s2.All(ctx, testModel)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].Fields["tags"].Equal(setfield.NewSet("NANA")))

	var recorded string
	require.NoError(t, s2.DB().Get(&recorded,
		`SELECT options FROM setfield_options WHERE model_table = 'tests_testmodel' AND field_name = 'tags'`))
	assert.JSONEq(t, `["TOMTOM","NANA","LULU"]`, recorded)
}

func TestOptionsLock_RejectsReorderAndRemoval(t *testing.T) {
	tests := []struct {
		name    string
		options []string
	}{
		{name: "reordered", options: []string{"NANA", "TOMTOM"}},
		{name: "removed", options: []string{"TOMTOM"}},
		{name: "replaced", options: []string{"TOMTOM", "LULU"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "lock.db")

			s1, err := Open(path, createTestSchema(t))
			require.NoError(t, err)
			require.NoError(t, s1.Close())

			changed, err := schema.New(schema.NewModel(testModel, setfield.MustNew("tags", tt.options)))
			require.NoError(t, err)

			_, err = Open(path, changed)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrOptionsChanged), "got %v", err)
		})
	}
}

func TestTableDDL(t *testing.T) {
	s := createTestStore(t)
	m, err := s.Schema().Model(testModelDefault)
	require.NoError(t, err)

	assert.Equal(t,
		"CREATE TABLE IF NOT EXISTS tests_testmodelwithdefault (\n"+
			"    id INTEGER PRIMARY KEY AUTOINCREMENT,\n"+
			"    tags INTEGER NOT NULL DEFAULT 1 CHECK (tags >= 0)\n)",
		s.tableDDL(m))

	pg := &Store{dialect: querysql.DialectPostgres}
	assert.Contains(t, pg.tableDDL(m), "id BIGSERIAL PRIMARY KEY")
	assert.Contains(t, pg.tableDDL(m), "tags BIGINT NOT NULL DEFAULT 1")
}

func TestIsPrefix(t *testing.T) {
	assert.True(t, isPrefix(nil, []string{"a"}))
	assert.True(t, isPrefix([]string{"a"}, []string{"a", "b"}))
	assert.True(t, isPrefix([]string{"a", "b"}, []string{"a", "b"}))
	assert.False(t, isPrefix([]string{"b"}, []string{"a", "b"}))
	assert.False(t, isPrefix([]string{"a", "b"}, []string{"a"}))
}
