package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"

	"github.com/kyleking/primitive-db/internal/errors"
)

// EnvPrefix is prepended to every environment variable name
const EnvPrefix = "PRIMDB_"

// Config represents the application configuration
type Config struct {
	Storage StorageConfig `json:"storage"`
	Cache   CacheConfig   `json:"cache"`
	Session SessionConfig `json:"session"`
	Logging LoggingConfig `json:"logging"`
	Debug   DebugConfig   `json:"debug"`
}

// StorageConfig selects and configures the persistence backend
type StorageConfig struct {
	Backend    string `json:"backend"     env:"BACKEND"`     // file, duckdb
	Directory  string `json:"directory"   env:"DB_DIR"`      // database root directory
	MetaFile   string `json:"meta_file"   env:"META_FILE"`   // catalog file, relative to Directory
	DataDir    string `json:"data_dir"    env:"DATA_DIR"`    // table data directory, relative to Directory
	Format     string `json:"format"      env:"FORMAT"`      // json, bson
	DuckDBPath string `json:"duckdb_path" env:"DUCKDB_PATH"` // relative paths resolve against Directory
}

// CacheConfig represents select result caching
type CacheConfig struct {
	Enabled bool   `json:"enabled" env:"CACHE_ENABLED"`
	Scope   string `json:"scope"   env:"CACHE_SCOPE"` // table, all
}

// SessionConfig controls the interactive behaviour
type SessionConfig struct {
	AutoConfirm bool   `json:"auto_confirm" env:"AUTO_CONFIRM"`
	ShowTiming  bool   `json:"show_timing"  env:"SHOW_TIMING"`
	Prompt      string `json:"prompt"       env:"PROMPT"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `json:"level"  env:"LOG_LEVEL"`  // debug, info, warn, error
	Format string `json:"format" env:"LOG_FORMAT"` // text, json
	Output string `json:"output" env:"LOG_OUTPUT"` // stdout, stderr, file
	File   string `json:"file"   env:"LOG_FILE"`   // log file path when output is file
}

// DebugConfig represents debug configuration
type DebugConfig struct {
	Enabled bool `json:"enabled" env:"DEBUG"`
	Verbose bool `json:"verbose" env:"VERBOSE"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			Backend:    "file",
			Directory:  ".",
			MetaFile:   "db_meta.json",
			DataDir:    "data",
			Format:     "json",
			DuckDBPath: "primitive.duckdb",
		},
		Cache: CacheConfig{
			Enabled: true,
			Scope:   "table",
		},
		Session: SessionConfig{
			ShowTiming: true,
			Prompt:     "primitive-db> ",
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "text",
			Output: "stderr",
			File:   "~/.config/primitive-db/logs/primitive-db.log",
		},
	}
}

// LoadConfig loads configuration from file, environment variables, and command-line flags
func LoadConfig() (*Config, error) {
	return LoadConfigWithOverrides(nil)
}

// LoadConfigWithOverrides loads configuration with optional command-line flag
// overrides. Later sources win: defaults, config file, environment, flags.
func LoadConfigWithOverrides(flagOverrides map[string]interface{}) (*Config, error) {
	config := DefaultConfig()

	configPath := getConfigPath()
	if path, ok := flagOverrides["config"].(string); ok && path != "" {
		configPath = expandPath(path)
	}

	if _, err := os.Stat(configPath); err == nil {
		if err := loadConfigFromFile(config, configPath); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := env.ParseWithOptions(config, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}

	if flagOverrides != nil {
		applyFlagOverrides(config, flagOverrides)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// loadConfigFromFile decodes a JSON file on top of the current values, so
// keys absent from the file keep their defaults
func loadConfigFromFile(config *Config, configPath string) error {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := json.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// applyFlagOverrides applies command-line flag overrides to configuration
func applyFlagOverrides(config *Config, overrides map[string]interface{}) {
	for key, value := range overrides {
		switch key {
		case "db-dir":
			if str, ok := value.(string); ok && str != "" {
				config.Storage.Directory = str
			}
		case "backend":
			if str, ok := value.(string); ok && str != "" {
				config.Storage.Backend = str
			}
		case "format":
			if str, ok := value.(string); ok && str != "" {
				config.Storage.Format = str
			}
		case "log-level":
			if str, ok := value.(string); ok && str != "" {
				config.Logging.Level = str
			}
		case "cache-scope":
			if str, ok := value.(string); ok && str != "" {
				config.Cache.Scope = str
			}
		case "yes":
			if b, ok := value.(bool); ok && b {
				config.Session.AutoConfirm = true
			}
		case "no-cache":
			if b, ok := value.(bool); ok && b {
				config.Cache.Enabled = false
			}
		case "no-timing":
			if b, ok := value.(bool); ok && b {
				config.Session.ShowTiming = false
			}
		case "verbose":
			if b, ok := value.(bool); ok {
				config.Debug.Verbose = b
			}
		case "debug":
			if b, ok := value.(bool); ok {
				config.Debug.Enabled = b
			}
		}
	}

	if config.Debug.Enabled {
		config.Logging.Level = "debug"
	}
}

// validateConfig validates the configuration for common errors
func validateConfig(config *Config) error {
	checks := []struct {
		field   string
		value   string
		allowed []string
	}{
		{"storage.backend", config.Storage.Backend, []string{"file", "duckdb"}},
		{"storage.format", config.Storage.Format, []string{"json", "bson"}},
		{"cache.scope", config.Cache.Scope, []string{"table", "all"}},
		{"logging.level", config.Logging.Level, []string{"debug", "info", "warn", "error"}},
		{"logging.format", config.Logging.Format, []string{"text", "json"}},
		{"logging.output", config.Logging.Output, []string{"stdout", "stderr", "file"}},
	}

	for _, check := range checks {
		if !contains(check.allowed, strings.ToLower(check.value)) {
			return errors.NewConfigError(
				fmt.Sprintf("invalid value %q (must be one of %s)", check.value, strings.Join(check.allowed, ", ")),
				check.field,
			)
		}
	}

	if strings.TrimSpace(config.Storage.Directory) == "" {
		return errors.NewConfigError("database directory must not be empty", "storage.directory")
	}

	if strings.ContainsAny(config.Storage.MetaFile, `/\`) || config.Storage.MetaFile == "" {
		return errors.NewConfigError("meta file must be a plain file name", "storage.meta_file")
	}

	if strings.EqualFold(config.Logging.Output, "file") && config.Logging.File == "" {
		return errors.NewConfigError("log file path is required when output is 'file'", "logging.file")
	}

	return nil
}

func contains(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}

	return false
}

// SaveConfig saves configuration to the default config file
func SaveConfig(config *Config) error {
	return SaveConfigTo(config, getConfigPath())
}

// SaveConfigTo saves configuration to a specific file
func SaveConfigTo(config *Config, configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ConfigPath returns the file LoadConfig reads
func ConfigPath() string {
	return getConfigPath()
}

// getConfigPath returns the path to the configuration file
func getConfigPath() string {
	if configPath := os.Getenv(EnvPrefix + "CONFIG"); configPath != "" {
		return expandPath(configPath)
	}

	return filepath.Join(GetConfigDir(), "config.json")
}

// expandPath expands ~ to home directory in file paths
func expandPath(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	if path == "~" {
		return homeDir
	}

	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir, path[2:])
	}

	return path
}

// ExpandAllPaths expands all paths in the configuration
func (c *Config) ExpandAllPaths() {
	c.Storage.Directory = expandPath(c.Storage.Directory)
	c.Storage.DuckDBPath = expandPath(c.Storage.DuckDBPath)
	c.Logging.File = expandPath(c.Logging.File)
}

// DuckDBFile returns the DuckDB database path, resolved against the
// database directory when relative
func (c *Config) DuckDBFile() string {
	if filepath.IsAbs(c.Storage.DuckDBPath) {
		return c.Storage.DuckDBPath
	}

	return filepath.Join(c.Storage.Directory, c.Storage.DuckDBPath)
}

// GetConfigDir returns the configuration directory
func GetConfigDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".config/primitive-db"
	}

	return filepath.Join(homeDir, ".config", "primitive-db")
}

// GetLogDir returns the log directory
func GetLogDir() string {
	return filepath.Join(GetConfigDir(), "logs")
}

// EnsureDirectories creates necessary directories for the configuration
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Storage.Directory}
	if strings.EqualFold(c.Logging.Output, "file") {
		dirs = append(dirs, filepath.Dir(c.Logging.File))
	}

	for _, dir := range dirs {
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("failed to create directory %s: %w", dir, err)
			}
		}
	}

	return nil
}
