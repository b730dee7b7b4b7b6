package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// Config represents the gridscan configuration file
// (~/.config/gridscan/config.yaml).
type Config struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// DisabledFormats lists file types or families to treat as
	// unavailable on top of the build tags.
	DisabledFormats []string `yaml:"disabled_formats"`

	ServerAddress string `yaml:"server_address"`
	MaxCursors    *int64 `yaml:"max_cursors"`
}

// configPath is --config or $GRIDSCAN_CONFIG, else the user config dir.
func configPath() string {
	if configFile != "" {
		return configFile
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "gridscan", "config.yaml")
}

// loadedConfig is the config read by the root Before hook.
var loadedConfig Config

// LoadConfig reads the config file. A missing file yields a zero Config;
// a file that does not parse is an error.
func LoadConfig(path string) (Config, error) {
	if path == "" {
		return Config{}, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Config{}, nil
	}
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// applyGlobalConfig applies config file defaults to the global flags that
// were not set on the command line.
func applyGlobalConfig(c *cli.Command, cfg Config) {
	loadedConfig = cfg
	if cfg.LogLevel != "" && !c.IsSet("log-level") {
		logLevel = cfg.LogLevel
	}
	if cfg.LogFormat != "" && !c.IsSet("log-format") {
		logFormat = cfg.LogFormat
	}
	if len(cfg.DisabledFormats) > 0 && !c.IsSet("disable") {
		disabledFormats = cfg.DisabledFormats
	}
}

// applyServeConfig applies config file defaults to serve command variables.
func applyServeConfig(c *cli.Command, cfg Config, addr *string, maxCursors *int64) {
	if cfg.ServerAddress != "" && !c.IsSet("addr") {
		*addr = cfg.ServerAddress
	}
	if cfg.MaxCursors != nil && !c.IsSet("max-cursors") {
		*maxCursors = *cfg.MaxCursors
	}
}
