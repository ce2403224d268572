package admin

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/setfield/internal/schema"
	"github.com/roach88/setfield/internal/setfield"
	"github.com/roach88/setfield/internal/store"
)

const testModel = "tests.testmodel"

var testOptions = []string{"TOMTOM", "NANA", "BOBO"}

func testTags() *setfield.Field {
	return setfield.MustNew("tags", testOptions, setfield.WithColors(map[string]string{
		"TOMTOM": "#e9c46a",
		"NANA":   "#2a9d8f",
	}))
}

func createTestStore(t *testing.T) *store.Store {
	t.Helper()
	sch, err := schema.New(schema.NewModel(testModel, testTags()))
	require.NoError(t, err)

	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"), sch)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// seed creates one row per tag list and returns their primary keys.
func seed(t *testing.T, s *store.Store, sets ...[]string) []int64 {
	t.Helper()
	ids := make([]int64, len(sets))
	for i, tags := range sets {
		rec, err := s.Create(context.Background(), testModel, map[string]any{"tags": tags})
		require.NoError(t, err)
		ids[i] = rec.PK
	}
	return ids
}
