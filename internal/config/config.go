// Package config handles loading and managing sigmedia configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the sigmedia configuration.
type Config struct {
	Export ExportConfig `toml:"export"`

	// Computed paths (not from config file)
	HomeDir string `toml:"-"`
}

// ExportConfig holds defaults for the dump-media command.
type ExportConfig struct {
	OutputDir string `toml:"output_dir"` // default export destination
	Overwrite bool   `toml:"overwrite"`  // allow exporting into non-empty directories
}

// DefaultHome returns the default sigmedia home directory.
// Respects the SIGMEDIA_HOME environment variable.
func DefaultHome() string {
	if h := os.Getenv("SIGMEDIA_HOME"); h != "" {
		return h
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".sigmedia"
	}
	return filepath.Join(home, ".sigmedia")
}

// Load reads the configuration from the specified file.
// If path is empty, uses the default location (~/.sigmedia/config.toml).
// The config file is optional; defaults apply when it is absent.
func Load(path string) (*Config, error) {
	homeDir := DefaultHome()

	if path == "" {
		path = filepath.Join(homeDir, "config.toml")
	}

	cfg := &Config{
		HomeDir: homeDir,
		Export: ExportConfig{
			OutputDir: "media",
		},
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg.Export.OutputDir = expandPath(cfg.Export.OutputDir)

	return cfg, nil
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if path == "" {
		return path
	}
	if path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[1:])
	}
	return path
}
