package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "none.toml"))
	require.NoError(t, err)
	assert.Nil(t, cfg.Game.Chunk)
	assert.Nil(t, cfg.Log.Level)
}

func TestLoadConfigEmptyPath(t *testing.T) {
	_, err := LoadConfig("")
	assert.Error(t, err)
}

func TestLoadConfigValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `
[game]
chunk = 4
per-digit-ms = 500
seed = 99

[log]
level = "debug"
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.NotNil(t, cfg.Game.Chunk)
	assert.Equal(t, 4, *cfg.Game.Chunk)
	require.NotNil(t, cfg.Game.PerDigitMs)
	assert.Equal(t, 500, *cfg.Game.PerDigitMs)
	assert.Nil(t, cfg.Game.MinShowMs)
	require.NotNil(t, cfg.Game.Seed)
	assert.Equal(t, int64(99), *cfg.Game.Seed)
	require.NotNil(t, cfg.Log.Level)
	assert.Equal(t, "debug", *cfg.Log.Level)
}

func TestLoadConfigRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[game]\nchunks = 3\n"), 0o644))
	_, err := LoadConfig(path)
	assert.ErrorContains(t, err, "game.chunks")
}

func TestDefaultPathsFollowXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/cfg")
	t.Setenv("XDG_DATA_HOME", "/tmp/data")
	assert.Equal(t, filepath.Join("/tmp/cfg", "recall", "config.toml"), DefaultConfigPath())
	assert.Equal(t, filepath.Join("/tmp/data", "recall", "recall.db"), DefaultDBPath())
	assert.Equal(t, filepath.Join("/tmp/data", "recall", "recall.log"), DefaultLogPath())
}
