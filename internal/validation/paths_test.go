package validation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPathHandler_Defaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	ph := NewSecurePathHandler()

	cfgPath, err := ph.GetSecureConfigPath("")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".config", "pixl", "config.toml"), cfgPath)

	logPath, err := ph.GetSecureLogPath("")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".pixl", "pixl.log"), logPath)

	info, err := os.Stat(filepath.Dir(logPath))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestPathHandler_RejectsOutsidePaths(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	ph := NewSecurePathHandler()

	_, err := ph.GetSecureConfigPath("/etc/pixl.toml")
	assert.Error(t, err)
	_, err = ph.GetSecureLogPath("/var/log/pixl.log")
	assert.Error(t, err)
}

func TestPathHandler_Permissive(t *testing.T) {
	dir := t.TempDir()
	ph := NewPermissivePathHandler()

	logPath, err := ph.GetSecureLogPath(filepath.Join(dir, "logs", "pixl.log"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "logs", "pixl.log"), logPath)

	_, err = os.Stat(filepath.Join(dir, "logs"))
	assert.NoError(t, err)
}
