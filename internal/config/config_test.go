package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyleking/primitive-db/internal/errors"
)

// isolate points the config file lookup at a temp dir so a developer's own
// config never leaks into tests
func isolate(t *testing.T) string {
	t.Helper()

	configPath := filepath.Join(t.TempDir(), "config.json")
	t.Setenv(EnvPrefix+"CONFIG", configPath)

	return configPath
}

func writeConfigFile(t *testing.T, path string, content map[string]interface{}) {
	t.Helper()

	data, err := json.MarshalIndent(content, "", "  ")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0600))
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "file", cfg.Storage.Backend)
	assert.Equal(t, ".", cfg.Storage.Directory)
	assert.Equal(t, "db_meta.json", cfg.Storage.MetaFile)
	assert.Equal(t, "data", cfg.Storage.DataDir)
	assert.Equal(t, "json", cfg.Storage.Format)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, "table", cfg.Cache.Scope)
	assert.True(t, cfg.Session.ShowTiming)
	assert.False(t, cfg.Session.AutoConfirm)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "stderr", cfg.Logging.Output)
	assert.NoError(t, validateConfig(cfg))
}

func TestLoadConfigWithoutFile(t *testing.T) {
	isolate(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfigFromFile(t *testing.T) {
	configPath := isolate(t)
	writeConfigFile(t, configPath, map[string]interface{}{
		"storage": map[string]interface{}{
			"backend": "duckdb",
			"format":  "bson",
		},
		"session": map[string]interface{}{
			"show_timing": false,
		},
		"logging": map[string]interface{}{
			"level":  "debug",
			"format": "json",
		},
	})

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "duckdb", cfg.Storage.Backend)
	assert.Equal(t, "bson", cfg.Storage.Format)
	assert.False(t, cfg.Session.ShowTiming)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)

	// keys absent from the file keep their defaults
	assert.Equal(t, "db_meta.json", cfg.Storage.MetaFile)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, "stderr", cfg.Logging.Output)
}

func TestLoadConfigFromFileInvalidJSON(t *testing.T) {
	configPath := isolate(t)
	require.NoError(t, os.WriteFile(configPath, []byte("{not json"), 0600))

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load config file")
}

func TestApplyEnvironmentOverrides(t *testing.T) {
	configPath := isolate(t)
	writeConfigFile(t, configPath, map[string]interface{}{
		"storage": map[string]interface{}{"format": "bson"},
	})

	t.Setenv("PRIMDB_FORMAT", "json")
	t.Setenv("PRIMDB_DB_DIR", "/tmp/primdb")
	t.Setenv("PRIMDB_CACHE_ENABLED", "false")
	t.Setenv("PRIMDB_AUTO_CONFIRM", "true")
	t.Setenv("PRIMDB_LOG_LEVEL", "error")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "json", cfg.Storage.Format)
	assert.Equal(t, "/tmp/primdb", cfg.Storage.Directory)
	assert.False(t, cfg.Cache.Enabled)
	assert.True(t, cfg.Session.AutoConfirm)
	assert.Equal(t, "error", cfg.Logging.Level)
}

func TestApplyFlagOverrides(t *testing.T) {
	cfg := DefaultConfig()

	applyFlagOverrides(cfg, map[string]interface{}{
		"db-dir":    "/data",
		"backend":   "duckdb",
		"log-level": "info",
		"yes":       true,
		"no-cache":  true,
		"no-timing": true,
		"format":    "",
	})

	assert.Equal(t, "/data", cfg.Storage.Directory)
	assert.Equal(t, "duckdb", cfg.Storage.Backend)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.True(t, cfg.Session.AutoConfirm)
	assert.False(t, cfg.Cache.Enabled)
	assert.False(t, cfg.Session.ShowTiming)
	assert.Equal(t, "json", cfg.Storage.Format)
}

func TestDebugFlagRaisesLogLevel(t *testing.T) {
	cfg := DefaultConfig()
	applyFlagOverrides(cfg, map[string]interface{}{"debug": true})

	assert.True(t, cfg.Debug.Enabled)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestFlagsBeatEnvironment(t *testing.T) {
	isolate(t)
	t.Setenv("PRIMDB_BACKEND", "duckdb")

	cfg, err := LoadConfigWithOverrides(map[string]interface{}{"backend": "file"})
	require.NoError(t, err)
	assert.Equal(t, "file", cfg.Storage.Backend)
}

func TestConfigFlagSelectsFile(t *testing.T) {
	isolate(t)

	other := filepath.Join(t.TempDir(), "other.json")
	writeConfigFile(t, other, map[string]interface{}{
		"cache": map[string]interface{}{"scope": "all"},
	})

	cfg, err := LoadConfigWithOverrides(map[string]interface{}{"config": other})
	require.NoError(t, err)
	assert.Equal(t, "all", cfg.Cache.Scope)
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		field  string
	}{
		{"bad backend", func(c *Config) { c.Storage.Backend = "sqlite" }, "storage.backend"},
		{"bad format", func(c *Config) { c.Storage.Format = "yaml" }, "storage.format"},
		{"bad scope", func(c *Config) { c.Cache.Scope = "row" }, "cache.scope"},
		{"bad level", func(c *Config) { c.Logging.Level = "trace" }, "logging.level"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"bad output", func(c *Config) { c.Logging.Output = "syslog" }, "logging.output"},
		{"empty directory", func(c *Config) { c.Storage.Directory = " " }, "storage.directory"},
		{"nested meta file", func(c *Config) { c.Storage.MetaFile = "a/b.json" }, "storage.meta_file"},
		{"file output without path", func(c *Config) {
			c.Logging.Output = "file"
			c.Logging.File = ""
		}, "logging.file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)

			err := validateConfig(cfg)
			require.Error(t, err)
			assert.True(t, errors.IsType(err, errors.ErrTypeConfig))
			assert.Contains(t, err.Error(), tt.field)
		})
	}

	cfg := DefaultConfig()
	cfg.Storage.Backend = "DuckDB"
	assert.NoError(t, validateConfig(cfg), "enumerations are case-insensitive")
}

func TestExpandPath(t *testing.T) {
	homeDir, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, homeDir, expandPath("~"))
	assert.Equal(t, filepath.Join(homeDir, "db"), expandPath("~/db"))
	assert.Equal(t, "/abs/path", expandPath("/abs/path"))
	assert.Equal(t, "relative", expandPath("relative"))
	assert.Equal(t, "~user/x", expandPath("~user/x"))
}

func TestDuckDBFile(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Storage.Directory = "/var/db"

	assert.Equal(t, filepath.Join("/var/db", "primitive.duckdb"), cfg.DuckDBFile())

	cfg.Storage.DuckDBPath = "/elsewhere/x.duckdb"
	assert.Equal(t, "/elsewhere/x.duckdb", cfg.DuckDBFile())
}

func TestSaveConfig(t *testing.T) {
	configPath := isolate(t)

	cfg := DefaultConfig()
	cfg.Storage.Backend = "duckdb"
	require.NoError(t, SaveConfig(cfg))

	info, err := os.Stat(configPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "duckdb", loaded.Storage.Backend)
	assert.Equal(t, ConfigPath(), configPath)
}

func TestEnsureDirectories(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Storage.Directory = filepath.Join(t.TempDir(), "nested", "db")

	require.NoError(t, cfg.EnsureDirectories())

	info, err := os.Stat(cfg.Storage.Directory)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
