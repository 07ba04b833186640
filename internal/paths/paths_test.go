package paths

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigDirOverride(t *testing.T) {
	t.Setenv("JELLYWATCH_CONFIG_DIR", "/tmp/jw-config-override")

	dir, err := ConfigDir()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/jw-config-override", dir)
}

func TestConfigDirDefault(t *testing.T) {
	t.Setenv("JELLYWATCH_CONFIG_DIR", "")
	t.Setenv("SUDO_USER", "")

	dir, err := ConfigDir()
	require.NoError(t, err)
	assert.Equal(t, "jellywatch", filepath.Base(dir))
}

func TestCacheDirOverride(t *testing.T) {
	t.Setenv("JELLYWATCH_CACHE_DIR", "/tmp/jw-cache-override")

	dir, err := CacheDir()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/jw-cache-override", dir)
}
