package setfield

import (
	"database/sql"
	"database/sql/driver"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ sql.Scanner   = (*Column)(nil)
	_ driver.Valuer = (*Column)(nil)
)

func TestColumn_Value(t *testing.T) {
	f := newTestField(t)

	s := NewSet("NANA")
	v, err := f.Column(&s).Value()
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)

	bad := NewSet("???")
	_, err = f.Column(&bad).Value()
	assert.True(t, IsValidationError(err))
}

func TestColumn_Scan(t *testing.T) {
	f := newTestField(t)

	tests := []struct {
		name string
		src  any
		want Set
	}{
		{name: "nil", src: nil, want: NewSet()},
		{name: "int64", src: int64(3), want: NewSet("TOMTOM", "NANA")},
		{name: "bytes", src: []byte("2"), want: NewSet("NANA")},
		{name: "string", src: "1", want: NewSet("TOMTOM")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s Set
			require.NoError(t, f.Column(&s).Scan(tt.src))
			assert.True(t, tt.want.Equal(s), "got %v", s)
		})
	}
}

func TestColumn_ScanErrors(t *testing.T) {
	f := newTestField(t)
	var s Set

	assert.Error(t, f.Column(&s).Scan(1.5))
	assert.Error(t, f.Column(&s).Scan([]byte("x")))
	assert.ErrorIs(t, f.Column(&s).Scan(int64(-4)), ErrNegativeMask)
}

func TestColumn_SQLite(t *testing.T) {
	f := newTestField(t)

	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "column.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`CREATE TABLE items (id INTEGER PRIMARY KEY, tags INTEGER NOT NULL)`)
	require.NoError(t, err)

	in := NewSet("NANA", "TOMTOM")
	_, err = db.Exec(`INSERT INTO items (id, tags) VALUES (?, ?)`, 1, f.Column(&in))
	require.NoError(t, err)

	var raw int64
	require.NoError(t, db.QueryRow(`SELECT tags FROM items WHERE id = 1`).Scan(&raw))
	assert.Equal(t, int64(3), raw)

	var out Set
	require.NoError(t, db.QueryRow(`SELECT tags FROM items WHERE id = 1`).Scan(f.Column(&out)))
	assert.True(t, in.Equal(out))

	bad := NewSet("???")
	_, err = db.Exec(`INSERT INTO items (id, tags) VALUES (?, ?)`, 2, f.Column(&bad))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a valid choice")

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM items`).Scan(&count))
	assert.Equal(t, 1, count, "invalid set must not be stored")
}
