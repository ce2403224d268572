package setfield

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestSet_Operations(t *testing.T) {
	s := NewSet("b")
	s.Add("a", "c")
	s.Remove("c")
	s.Remove("missing")

	assert.Equal(t, 2, s.Len())
	assert.True(t, s.Has("a"))
	assert.False(t, s.Has("c"))
	assert.Equal(t, []string{"a", "b"}, s.Sorted())
	assert.Equal(t, "[a b]", s.String())
}

func TestSet_NilIsEmpty(t *testing.T) {
	var s Set

	assert.Equal(t, 0, s.Len())
	assert.False(t, s.Has("a"))
	assert.Equal(t, []string{}, s.Sorted())
	assert.True(t, s.Equal(NewSet()))
	assert.NotNil(t, s.Clone())
}

func TestSet_Equal(t *testing.T) {
	assert.True(t, NewSet("a", "b").Equal(NewSet("b", "a")))
	assert.False(t, NewSet("a").Equal(NewSet("b")))
	assert.False(t, NewSet("a").Equal(NewSet("a", "b")))
}

func TestSet_JSON(t *testing.T) {
	data, err := json.Marshal(NewSet("TOMTOM", "NANA"))
	require.NoError(t, err)
	assert.JSONEq(t, `["NANA","TOMTOM"]`, string(data))

	var empty Set
	data, err = json.Marshal(empty)
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(data))

	var decoded Set
	require.NoError(t, json.Unmarshal([]byte(`["NANA","NANA"]`), &decoded))
	assert.True(t, decoded.Equal(NewSet("NANA")))

	require.NoError(t, json.Unmarshal([]byte(`null`), &decoded))
	assert.Equal(t, 0, decoded.Len())

	assert.Error(t, json.Unmarshal([]byte(`"NANA"`), &decoded))
}

func TestSet_JSONInStruct(t *testing.T) {
	type row struct {
		Tags Set `json:"tags"`
	}
	var r row
	require.NoError(t, json.Unmarshal([]byte(`{"tags":["TOMTOM"]}`), &r))
	assert.True(t, r.Tags.Has("TOMTOM"))
}

func TestSet_YAML(t *testing.T) {
	data, err := yaml.Marshal(map[string]Set{"tags": NewSet("TOMTOM", "NANA")})
	require.NoError(t, err)
	assert.Equal(t, "tags:\n    - NANA\n    - TOMTOM\n", string(data))

	var decoded map[string]Set
	require.NoError(t, yaml.Unmarshal(data, &decoded))
	assert.True(t, decoded["tags"].Equal(NewSet("NANA", "TOMTOM")))

	assert.Error(t, yaml.Unmarshal([]byte("tags: {a: 1}\n"), &decoded))
}
