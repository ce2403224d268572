package querysql

import (
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/setfield/internal/queryir"
)

func TestCompile_SelectBitAnd(t *testing.T) {
	compiler := NewSQLCompiler(DialectSQLite)

	query := queryir.Select{
		From:    "tests_testmodel",
		Columns: []string{"id", "tags"},
		Filter:  queryir.BitAnd{Field: "tags", Mask: 2},
	}

	sql, params, err := compiler.Compile(query)
	require.NoError(t, err)

	assert.Equal(t, "SELECT id, tags FROM tests_testmodel WHERE (tags & ?) > 0 ORDER BY id ASC", sql)
	assert.Equal(t, []any{int64(2)}, params)
}

func TestCompile_SelectPointer(t *testing.T) {
	compiler := NewSQLCompiler(DialectSQLite)

	sql, params, err := compiler.Compile(&queryir.Select{
		From:   "tests_testmodel",
		Filter: &queryir.Equals{Field: "id", Value: 7},
	})
	require.NoError(t, err)

	assert.Equal(t, "SELECT * FROM tests_testmodel WHERE id = ? ORDER BY id ASC", sql)
	assert.Equal(t, []any{int64(7)}, params)
}

func TestCompile_OrderByMandatory(t *testing.T) {
	compiler := NewSQLCompiler(DialectSQLite)

	queries := []queryir.Query{
		queryir.Select{From: "t"},
		queryir.Select{From: "t", Columns: []string{"id"}},
		queryir.Select{From: "t", Filter: queryir.BitAnd{Field: "tags", Mask: 1}},
		queryir.Select{From: "t", Filter: queryir.Or{}},
	}

	for i, q := range queries {
		t.Run(fmt.Sprintf("query_%d", i), func(t *testing.T) {
			sql, _, err := compiler.Compile(q)
			require.NoError(t, err)
			assert.Contains(t, sql, "ORDER BY id ASC")
		})
	}
}

func TestCompile_Count(t *testing.T) {
	compiler := NewSQLCompiler(DialectSQLite)

	sql, params, err := compiler.Compile(queryir.Count{
		From:   "tests_testmodel",
		Filter: queryir.BitAnd{Field: "tags", Mask: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, "SELECT COUNT(*) FROM tests_testmodel WHERE (tags & ?) > 0", sql)
	assert.Equal(t, []any{int64(1)}, params)

	sql, params, err = compiler.Compile(&queryir.Count{From: "tests_testmodel"})
	require.NoError(t, err)
	assert.Equal(t, "SELECT COUNT(*) FROM tests_testmodel", sql)
	assert.Empty(t, params)
}

func TestCompile_NoStringInterpolation(t *testing.T) {
	compiler := NewSQLCompiler(DialectSQLite)

	dangerousValue := "'; DROP TABLE tests_testmodel; --"

	sql, params, err := compiler.Compile(queryir.Select{
		From:   "tests_testmodel",
		Filter: queryir.Equals{Field: "name", Value: dangerousValue},
	})
	require.NoError(t, err)

	assert.NotContains(t, sql, dangerousValue,
		"Value MUST NOT be interpolated into SQL (SQL injection risk)")
	assert.Contains(t, params, dangerousValue)
}

func TestCompile_RejectsInvalidQueries(t *testing.T) {
	compiler := NewSQLCompiler(DialectSQLite)

	tests := []struct {
		name  string
		query queryir.Query
	}{
		{name: "nil", query: nil},
		{name: "bad table", query: queryir.Select{From: "t; DROP"}},
		{name: "zero mask", query: queryir.Select{From: "t", Filter: queryir.BitAnd{Field: "tags"}}},
		{name: "float", query: queryir.Count{From: "t", Filter: queryir.Equals{Field: "id", Value: 1.0}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := compiler.Compile(tt.query)
			assert.Error(t, err)
		})
	}
}

func TestCompile_EmptyJunctions(t *testing.T) {
	compiler := NewSQLCompiler(DialectSQLite)

	sql, _, err := compiler.CompilePredicate(queryir.And{})
	require.NoError(t, err)
	assert.Equal(t, "1 = 1", sql)

	sql, _, err = compiler.CompilePredicate(queryir.Or{})
	require.NoError(t, err)
	assert.Equal(t, "1 = 0", sql)

	sql, _, err = compiler.CompilePredicate(nil)
	require.NoError(t, err)
	assert.Equal(t, "1 = 1", sql)
}

func TestCompile_SingleOperandJunctionUnwrapped(t *testing.T) {
	compiler := NewSQLCompiler(DialectSQLite)

	sql, params, err := compiler.CompilePredicate(queryir.And{Predicates: []queryir.Predicate{
		queryir.BitAnd{Field: "tags", Mask: 4},
	}})
	require.NoError(t, err)
	assert.Equal(t, "(tags & ?) > 0", sql)
	assert.Equal(t, []any{int64(4)}, params)
}

func TestCompile_PostgresPlaceholders(t *testing.T) {
	compiler := NewSQLCompiler(DialectPostgres)

	sql, params, err := compiler.Compile(queryir.Select{
		From:    "tests_testmodel",
		Columns: []string{"id", "tags"},
		Filter: queryir.And{Predicates: []queryir.Predicate{
			queryir.BitAnd{Field: "tags", Mask: 1},
			queryir.BitAnd{Field: "tags", Mask: 2},
		}},
	})
	require.NoError(t, err)

	assert.Equal(t,
		"SELECT id, tags FROM tests_testmodel WHERE ((tags & $1) > 0) AND ((tags & $2) > 0) ORDER BY id ASC",
		sql)
	assert.Equal(t, []any{int64(1), int64(2)}, params)
}

func TestDialectForDriver(t *testing.T) {
	d, err := DialectForDriver("sqlite3")
	require.NoError(t, err)
	assert.Equal(t, DialectSQLite, d)
	assert.Equal(t, "sqlite", d.String())

	d, err = DialectForDriver("postgres")
	require.NoError(t, err)
	assert.Equal(t, DialectPostgres, d)
	assert.Equal(t, "postgres", d.String())

	_, err = DialectForDriver("mysql")
	assert.Error(t, err)
}

// TestCompile_Golden pins the SQL emitted for the lookups the admin filter
// and CLI build, in both dialects.
func TestCompile_Golden(t *testing.T) {
	filter := queryir.And{Predicates: []queryir.Predicate{
		queryir.BitAnd{Field: "tags", Mask: 2},
		queryir.Not{Predicate: queryir.BitAnd{Field: "tags", Mask: 1}},
		queryir.Or{Predicates: []queryir.Predicate{
			queryir.Equals{Field: "tags", Value: int64(3)},
			queryir.Equals{Field: "id", Value: int64(9)},
		}},
	}}
	query := queryir.Select{
		From:    "tests_testmodel",
		Columns: []string{"id", "tags"},
		Filter:  filter,
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)

	for _, dialect := range []Dialect{DialectSQLite, DialectPostgres} {
		sql, params, err := NewSQLCompiler(dialect).Compile(query)
		require.NoError(t, err)
		g.Assert(t, "select_"+dialect.String(), []byte(fmt.Sprintf("%s\n%v\n", sql, params)))
	}
}
