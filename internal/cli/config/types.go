// Package config provides configuration management for the fieldalias CLI.
package config

import "github.com/leapstack-labs/fieldalias/pkg/core"

// TargetConfig is the database connection datasets are opened on.
type TargetConfig struct {
	Type     string            `koanf:"type"`
	Database string            `koanf:"database"`
	Host     string            `koanf:"host"`
	Port     int               `koanf:"port"`
	User     string            `koanf:"user"`
	Password string            `koanf:"password"`
	Schema   string            `koanf:"schema"`
	Options  map[string]string `koanf:"options"`
	Params   map[string]any    `koanf:"params"`
}

// AdapterConfig converts the target into the adapter connection config.
func (t *TargetConfig) AdapterConfig() core.AdapterConfig {
	if t == nil {
		return core.AdapterConfig{}
	}
	return core.AdapterConfig{
		Type:     t.Type,
		Path:     t.Database,
		Database: t.Database,
		Host:     t.Host,
		Port:     t.Port,
		Username: t.User,
		Password: t.Password,
		Schema:   t.Schema,
		Options:  t.Options,
		Params:   t.Params,
	}
}

// HistoryConfig controls run recording.
type HistoryConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path"`
}

// MappingConfig holds the CSV parsing defaults.
type MappingConfig struct {
	Delimiter  string `koanf:"delimiter"`
	Encoding   string `koanf:"encoding"`
	SkipHeader bool   `koanf:"skip_header"`
	TrimSpace  bool   `koanf:"trim_space"`
}

// Config holds all CLI configuration options.
type Config struct {
	Environment  string               `koanf:"environment"`
	Verbose      bool                 `koanf:"verbose"`
	OutputFormat string               `koanf:"output"`
	Target       *TargetConfig        `koanf:"target"`
	History      HistoryConfig        `koanf:"history"`
	Mapping      MappingConfig        `koanf:"mapping"`
	Environments map[string]EnvConfig `koanf:"environments"`

	// ProjectRoot is the directory holding fieldalias.yaml, or the working directory.
	ProjectRoot string `koanf:"-"`
}

// EnvConfig holds environment-specific configuration overrides.
type EnvConfig struct {
	Target *TargetConfig `koanf:"target"`
}

// Default configuration values.
const (
	ConfigFileName  = "fieldalias.yaml"
	DefaultEnv      = "dev"
	DefaultOutput   = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultHistory  = ".fieldalias/history.db"
	DefaultEncoding = "utf-8"
)
