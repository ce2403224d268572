package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/setfield/internal/schema"
	"github.com/roach88/setfield/internal/setfield"
)

const (
	testModel        = "tests.testmodel"
	testModelDefault = "tests.testmodelwithdefault"
)

var testOptions = []string{"TOMTOM", "NANA"}

// createTestSchema mirrors the two models used throughout the store tests.
func createTestSchema(t *testing.T) *schema.Schema {
	t.Helper()
	sch, err := schema.New(
		schema.NewModel(testModel,
			setfield.MustNew("tags", testOptions)),
		schema.NewModel(testModelDefault,
			setfield.MustNew("tags", testOptions, setfield.WithDefault(testOptions[0]))),
	)
	require.NoError(t, err)
	return sch
}

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, createTestSchema(t))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}
