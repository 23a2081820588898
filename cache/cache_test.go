package cache

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBackends(t *testing.T) map[string]Cache {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cache.db")
	bolt, err := Open(path, ModeNew)
	require.NoError(t, err)
	t.Cleanup(func() { bolt.Close() })

	return map[string]Cache{
		"memory": NewMemory(),
		"bolt":   bolt,
	}
}

func TestCacheGetPutContains(t *testing.T) {
	for name, c := range newBackends(t) {
		t.Run(name, func(t *testing.T) {
			assert.False(t, c.Contains("golang"))

			require.NoError(t, c.Put("golang", 42))
			assert.True(t, c.Contains("golang"))

			v, ok := c.Get("golang")
			assert.True(t, ok)
			assert.Equal(t, 42, v)

			_, ok = c.Get("missing")
			assert.False(t, ok)
		})
	}
}

func TestCacheUpdateBulkImports(t *testing.T) {
	for name, c := range newBackends(t) {
		t.Run(name, func(t *testing.T) {
			src := NewMemory()
			require.NoError(t, src.Put("a", 1))
			require.NoError(t, src.Put("b", 2))

			require.NoError(t, c.Update(src))
			assert.Equal(t, 2, c.Len())

			v, ok := c.Get("b")
			assert.True(t, ok)
			assert.Equal(t, 2, v)
		})
	}
}

func TestCacheReset(t *testing.T) {
	for name, c := range newBackends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, c.Put("a", 1))
			require.NoError(t, c.Reset())
			assert.Equal(t, 0, c.Len())
			assert.False(t, c.Contains("a"))
		})
	}
}

func TestBoltPersistsAcrossReopenAfterSync(t *testing.T) {
	path := filepath.Join(t.TempDir(), "persist.db")

	c, err := Open(path, ModeNew)
	require.NoError(t, err)
	require.NoError(t, c.Put("golang", 7))
	require.NoError(t, c.Sync())
	require.NoError(t, c.Close())

	reopened, err := Open(path, ModeUpdate)
	require.NoError(t, err)
	defer reopened.Close()

	v, ok := reopened.Get("golang")
	assert.True(t, ok)
	assert.Equal(t, 7, v)
}

func TestBoltReadModeBuffersWritesWithoutPersisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "readonly.db")

	seed, err := Open(path, ModeNew)
	require.NoError(t, err)
	require.NoError(t, seed.Put("golang", 1))
	require.NoError(t, seed.Sync())
	require.NoError(t, seed.Close())

	reader, err := Open(path, ModeRead)
	require.NoError(t, err)

	require.NoError(t, reader.Put("rust", 2))
	require.NoError(t, reader.Sync())
	require.NoError(t, reader.Close())

	reopened, err := Open(path, ModeUpdate)
	require.NoError(t, err)
	defer reopened.Close()

	assert.False(t, reopened.Contains("rust"))
}

func TestOpenReadModeRequiresExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.db")
	_, err := Open(path, ModeRead)
	assert.Error(t, err)
}
