// Package config provides configuration loading and structs for compendium.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug   bool          `yaml:"debug"`
	Server  ServerConfig  `yaml:"server"`
	Content ContentConfig `yaml:"content"`
	Search  SearchConfig  `yaml:"search"`
	Export  ExportConfig  `yaml:"export"`
	Watch   WatchConfig   `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// ContentConfig selects the bundles to load. An empty Path means the bundle
// compiled into the binary.
type ContentConfig struct {
	Path     string          `yaml:"path"`
	Siblings []SiblingConfig `yaml:"siblings"`
}

// SiblingConfig is another bundle consulted when resolving cross-references.
// Name defaults to the bundle's module name.
type SiblingConfig struct {
	Name string `yaml:"name"`
	Path string `yaml:"path"`
}

// SearchConfig holds query settings.
type SearchConfig struct {
	TokenIndex    *bool `yaml:"token_index"`
	SnippetLength int   `yaml:"snippet_length"`
}

// TokenIndexOrDefault returns whether to build the token index; defaults to true when unset.
func (s *SearchConfig) TokenIndexOrDefault() bool {
	if s.TokenIndex != nil {
		return *s.TokenIndex
	}
	return true
}

// ExportConfig holds default output paths for exports.
type ExportConfig struct {
	SQLitePath    string `yaml:"sqlite_path"`
	InventoryPath string `yaml:"inventory_path"`
}

// WatchConfig holds settings for re-validating bundles on change.
type WatchConfig struct {
	DebounceMS int      `yaml:"debounce_ms"`
	Extensions []string `yaml:"extensions"`
}

// Debounce returns the debounce window.
func (w *WatchConfig) Debounce() time.Duration {
	return time.Duration(w.DebounceMS) * time.Millisecond
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	if cfg.Content.Path != "" {
		cfg.Content.Path = expandPath(cfg.Content.Path, configDir)
	}
	for i := range cfg.Content.Siblings {
		cfg.Content.Siblings[i].Path = expandPath(cfg.Content.Siblings[i].Path, configDir)
	}
	cfg.Export.SQLitePath = expandPath(cfg.Export.SQLitePath, configDir)
	cfg.Export.InventoryPath = expandPath(cfg.Export.InventoryPath, configDir)

	return &cfg, nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
