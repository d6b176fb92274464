package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePaths_Default(t *testing.T) {
	t.Setenv("MARKETMIND_HOME", "")

	paths, err := ResolvePaths()
	require.NoError(t, err)

	home, _ := os.UserHomeDir()
	assert.Equal(t, filepath.Join(home, ".marketmind"), paths.Base)
	assert.Equal(t, filepath.Join(home, ".marketmind", "config.yaml"), paths.Config)
	assert.Equal(t, filepath.Join(home, ".marketmind", "logs"), paths.Logs)
	assert.Equal(t, filepath.Join(home, ".marketmind", "data"), paths.Data)
}

func TestResolvePaths_CustomHome(t *testing.T) {
	t.Setenv("MARKETMIND_HOME", "/tmp/mm")

	paths, err := ResolvePaths()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/mm", paths.Base)
	assert.Equal(t, "/tmp/mm/config.yaml", paths.Config)
	assert.Equal(t, "/tmp/mm/data", paths.Data)
}

func TestDatabasePath(t *testing.T) {
	p := Paths{Data: "/tmp/mm/data"}
	assert.Equal(t, "/tmp/mm/data/marketmind.db", p.DatabasePath(StoreConfig{}))
	assert.Equal(t, "/srv/chat.db", p.DatabasePath(StoreConfig{Path: "/srv/chat.db"}))
}

func TestEnsureDirs(t *testing.T) {
	tmpDir := t.TempDir()
	paths := Paths{
		Base: tmpDir,
		Logs: filepath.Join(tmpDir, "logs"),
		Data: filepath.Join(tmpDir, "data"),
	}

	require.NoError(t, paths.EnsureDirs())
	require.NoError(t, paths.EnsureDirs())

	for _, dir := range []string{paths.Base, paths.Logs, paths.Data} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}
