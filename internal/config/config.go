// Package config loads and persists keep.toml, the per-store configuration
// file, and watches it for external edits.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/hughpyle/keep/internal/logging"
)

// ConfigFileName is the name of the config file inside a store directory.
const ConfigFileName = "keep.toml"

// ProviderConfig names a provider implementation and carries its
// implementation-specific parameters.
type ProviderConfig struct {
	Name   string            `toml:"name"`
	Params map[string]string `toml:"params,omitempty"`
}

// LoggingConfig mirrors logging.Config with toml tags, kept separate to
// avoid internal/config depending on internal/logging's struct layout
// changing independently.
type LoggingConfig struct {
	DebugMode  bool            `toml:"debug_mode"`
	Categories map[string]bool `toml:"categories,omitempty"`
	Level      string          `toml:"level"`
}

// Config is the full contents of a store's keep.toml.
type Config struct {
	Path    string `toml:"path"`
	Version int    `toml:"version"`

	Collection string `toml:"collection"`

	Embedding     ProviderConfig `toml:"embedding"`
	Summarization ProviderConfig `toml:"summarization"`
	Document      ProviderConfig `toml:"document"`
	Analyzer      ProviderConfig `toml:"analyzer"`

	// LocalMode selects synchronous inline computation (embedding,
	// summarization) over deferring it to the pending-task queue.
	LocalMode bool `toml:"local_mode"`

	DecayHalfLifeDays float64 `toml:"decay_half_life_days"`

	Logging LoggingConfig `toml:"logging"`
}

// DefaultConfig returns the configuration keep uses when no keep.toml
// exists yet. Provider names are fixed here; no availability probing is
// done.
func DefaultConfig(storePath string) *Config {
	return &Config{
		Path:       storePath,
		Version:    1,
		Collection: "default",
		Embedding: ProviderConfig{
			Name:   "ollama",
			Params: map[string]string{"endpoint": "http://localhost:11434", "model": "embeddinggemma"},
		},
		Summarization:     ProviderConfig{Name: "truncate"},
		Document:          ProviderConfig{Name: "composite"},
		Analyzer:          ProviderConfig{Name: "chunk"},
		LocalMode:         true,
		DecayHalfLifeDays: 30.0,
		Logging: LoggingConfig{
			DebugMode: false,
			Level:     "info",
		},
	}
}

// Load reads keep.toml from storeDir, returning defaults overlaid onto a
// fresh Config if the file does not yet exist.
func Load(storeDir string) (*Config, error) {
	cfg := DefaultConfig(storeDir)
	path := filepath.Join(storeDir, ConfigFileName)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logging.Config("no %s found in %s, using defaults", ConfigFileName, storeDir)
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	logging.Config("loaded %s: embedding=%s decay_half_life_days=%.1f", path, cfg.Embedding.Name, cfg.DecayHalfLifeDays)
	return cfg, nil
}

// Save writes c to storeDir/keep.toml, creating storeDir if needed.
func (c *Config) Save(storeDir string) error {
	if err := os.MkdirAll(storeDir, 0755); err != nil {
		return fmt.Errorf("create store directory %s: %w", storeDir, err)
	}
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	path := filepath.Join(storeDir, ConfigFileName)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}

// LoadOrCreate loads an existing keep.toml or writes and returns defaults
// if none exists yet.
func LoadOrCreate(storeDir string) (*Config, error) {
	path := filepath.Join(storeDir, ConfigFileName)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := DefaultConfig(storeDir)
		if err := cfg.Save(storeDir); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	return Load(storeDir)
}

// ToLoggingConfig adapts the embedded logging section to logging.Config.
func (c *Config) ToLoggingConfig() logging.Config {
	return logging.Config{
		DebugMode:  c.Logging.DebugMode,
		Categories: c.Logging.Categories,
		Level:      c.Logging.Level,
	}
}
