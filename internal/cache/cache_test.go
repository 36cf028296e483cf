package cache

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseStore(t *testing.T, s Store) {
	t.Helper()

	_, ok := s.Get("missing")
	assert.False(t, ok)

	require.NoError(t, s.Set("image_web", "registry.local/demo:abc"))
	v, ok := s.Get("image_web")
	require.True(t, ok)
	assert.Equal(t, "registry.local/demo:abc", v)

	require.NoError(t, s.Merge(map[string]string{
		"image_web": "registry.local/demo:def",
		"registry":  "registry.local",
	}))
	v, _ = s.Get("image_web")
	assert.Equal(t, "registry.local/demo:def", v)
	v, _ = s.Get("registry")
	assert.Equal(t, "registry.local", v)
}

func TestMemory(t *testing.T) {
	m := NewMemory()
	exerciseStore(t, m)

	require.NoError(t, m.Set("empty", ""))
	v, ok := m.Get("empty")
	assert.True(t, ok)
	assert.Empty(t, v)
	assert.Equal(t, []string{"empty", "image_web", "registry"}, m.Keys())
	assert.NoError(t, m.Close())
}

func TestBolt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", FileName)
	b, err := OpenBolt(path)
	require.NoError(t, err)
	assert.Equal(t, path, b.Path())
	exerciseStore(t, b)
	require.NoError(t, b.Close())

	reopened, err := OpenBolt(path)
	require.NoError(t, err)
	defer reopened.Close()
	v, ok := reopened.Get("registry")
	require.True(t, ok)
	assert.Equal(t, "registry.local", v)
}
