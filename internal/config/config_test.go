package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "gemini-2.0-flash", cfg.AssistantModel)
	assert.Equal(t, "gemini-1.5-flash", cfg.TestModel)
	assert.Equal(t, filepath.Join(dir, "prompts.sqlite"), cfg.DatabasePath)

	timeout, err := cfg.CallTimeout()
	require.NoError(t, err)
	assert.Equal(t, 120*time.Second, timeout)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
addr: "127.0.0.1:8099"
api_key: file-key
assistant_model: gemini-x
test_model: gemini-y
timeout: 30s
database_path: data.sqlite
debug: true
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:8099", cfg.Addr)
	assert.Equal(t, "file-key", cfg.APIKey)
	assert.Equal(t, "gemini-x", cfg.AssistantModel)
	assert.Equal(t, "gemini-y", cfg.TestModel)
	assert.True(t, cfg.Debug)
	assert.Equal(t, filepath.Join(dir, "data.sqlite"), cfg.DatabasePath, "relative paths resolve against the config dir")
}

func TestEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api_key: file-key\n"), 0o644))

	t.Setenv("GEMINI_API_KEY", "env-key")
	t.Setenv("SMARTADL_ADDR", "127.0.0.1:9000")
	t.Setenv("SMARTADL_DB", "/tmp/elsewhere.sqlite")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "env-key", cfg.APIKey)
	assert.Equal(t, "127.0.0.1:9000", cfg.Addr)
	assert.Equal(t, "/tmp/elsewhere.sqlite", cfg.DatabasePath)
}

func TestLoadBadTimeout(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("timeout: soon\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}
