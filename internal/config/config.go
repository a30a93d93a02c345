package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// EnvPath overrides the config file location.
const EnvPath = "NBTRACK_CONFIG"

type Config struct {
	Format      string   `toml:"format"`   // "text" or "jsonl"
	Debounce    float64  `toml:"debounce"` // seconds
	LogLevel    string   `toml:"log_level"`
	LogFormat   string   `toml:"log_format"` // "text" or "json"
	LogsRoot    string   `toml:"logs_root"`
	LogPatterns []string `toml:"log_patterns"`
	DBPath      string   `toml:"db_path"`

	// Path is the file the config was read from, empty if none existed.
	Path string `toml:"-"`
}

// Default returns the configuration used when no file is present.
func Default(home string) *Config {
	return &Config{
		Format:      "text",
		Debounce:    0.5,
		LogLevel:    "info",
		LogFormat:   "text",
		LogsRoot:    filepath.Join(home, "notebooklogs"),
		LogPatterns: []string{"**/*_io.log", "**/*.jsonl"},
		DBPath:      filepath.Join(home, ".config", "nbtrack", "nbtrack.db"),
	}
}

// DefaultPath is ~/.config/nbtrack/config.toml.
func DefaultPath(home string) string {
	return filepath.Join(home, ".config", "nbtrack", "config.toml")
}

// Load reads the config file at path, or at $NBTRACK_CONFIG, or at the
// default location, on top of the defaults. A missing file is not an error
// unless path was given explicitly.
func Load(path string) (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	cfg := Default(home)

	explicit := path != ""
	if !explicit {
		path = os.Getenv(EnvPath)
		explicit = path != ""
	}
	if !explicit {
		path = DefaultPath(home)
	}
	path = expandHome(path, home)

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
		cfg.Path = path
	} else if explicit {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}

	if cfg.Debounce < 0 {
		return nil, fmt.Errorf("config %s: debounce must be >= 0, got %v", path, cfg.Debounce)
	}

	// expand ~ in paths
	cfg.LogsRoot = expandHome(cfg.LogsRoot, home)
	cfg.DBPath = expandHome(cfg.DBPath, home)

	return cfg, nil
}

func expandHome(path, home string) string {
	if len(path) > 1 && path[0] == '~' && path[1] == '/' {
		return filepath.Join(home, path[2:])
	}
	return path
}
