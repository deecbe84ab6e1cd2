package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/splanck/viper-sub011/internal/config"
)

func TestLoadDefaultsWithNoFile(t *testing.T) {
	d, err := config.Load("")
	require.NoError(t, err)
	require.True(t, d.RuntimeClassBridge)
	require.False(t, d.TrapOnMissingMetadata)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "oopc.yaml")
	require.NoError(t, os.WriteFile(path, []byte("runtime_class_bridge: false\ntrap_on_missing_metadata: true\n"), 0o644))

	d, err := config.Load(path)
	require.NoError(t, err)
	require.False(t, d.RuntimeClassBridge)
	require.True(t, d.TrapOnMissingMetadata)
}

func TestLoadMissingFileFallsBackToDefaults(t *testing.T) {
	d, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	require.Equal(t, config.Default(), d)
}
