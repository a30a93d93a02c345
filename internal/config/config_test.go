package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv(EnvPath, "")
	return home
}

func TestLoadDefaults(t *testing.T) {
	home := setHome(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "text", cfg.Format)
	assert.Equal(t, 0.5, cfg.Debounce)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, filepath.Join(home, "notebooklogs"), cfg.LogsRoot)
	assert.Equal(t, []string{"**/*_io.log", "**/*.jsonl"}, cfg.LogPatterns)
	assert.Empty(t, cfg.Path)
}

func TestLoadFileOverrides(t *testing.T) {
	home := setHome(t)
	path := DefaultPath(home)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(`
format = "jsonl"
debounce = 1.25
log_level = "debug"
logs_root = "~/lineage"
log_patterns = ["*.jsonl"]
`), 0o644))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, path, cfg.Path)
	assert.Equal(t, "jsonl", cfg.Format)
	assert.Equal(t, 1.25, cfg.Debounce)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat, "unset keys keep defaults")
	assert.Equal(t, filepath.Join(home, "lineage"), cfg.LogsRoot)
	assert.Equal(t, []string{"*.jsonl"}, cfg.LogPatterns)
}

func TestLoadExplicitPath(t *testing.T) {
	home := setHome(t)

	_, err := Load(filepath.Join(home, "nope.toml"))
	assert.Error(t, err, "explicit path must exist")

	path := filepath.Join(home, "custom.toml")
	require.NoError(t, os.WriteFile(path, []byte(`db_path = "~/x.db"`), 0o644))
	t.Setenv(EnvPath, path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "x.db"), cfg.DBPath)
}

func TestLoadRejectsBadValues(t *testing.T) {
	home := setHome(t)

	bad := filepath.Join(home, "bad.toml")
	require.NoError(t, os.WriteFile(bad, []byte(`debounce = -1`), 0o644))
	_, err := Load(bad)
	assert.Error(t, err)

	broken := filepath.Join(home, "broken.toml")
	require.NoError(t, os.WriteFile(broken, []byte(`format = `), 0o644))
	_, err = Load(broken)
	assert.Error(t, err)
}

func TestExpandHome(t *testing.T) {
	assert.Equal(t, "/h/a/b", expandHome("~/a/b", "/h"))
	assert.Equal(t, "/abs", expandHome("/abs", "/h"))
	assert.Equal(t, "~", expandHome("~", "/h"))
}
