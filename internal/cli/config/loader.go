package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/leapstack-labs/fieldalias/internal/mapping"
	"github.com/leapstack-labs/fieldalias/pkg/adapter"
	"github.com/spf13/pflag"
)

// loggerKey is used to store logger in context.
type loggerKey struct{}

// configKey is used to store the loaded config in context.
type configKey struct{}

// maxUpwardSearchLevels limits how far up the directory tree to search for config files.
const maxUpwardSearchLevels = 10

// EnvPrefix prefixes environment variables. A double underscore separates
// nesting levels: FIELDALIAS_TARGET__PASSWORD sets target.password.
const EnvPrefix = "FIELDALIAS_"

// flagKeys maps CLI flag names to config keys. Other flags are command options.
var flagKeys = map[string]string{
	"type":         "target.type",
	"database":     "target.database",
	"schema":       "target.schema",
	"history-path": "history.path",
	"verbose":      "verbose",
	"output":       "output",
	"delimiter":    "mapping.delimiter",
	"encoding":     "mapping.encoding",
	"skip-header":  "mapping.skip_header",
	"trim-space":   "mapping.trim_space",
}

// fileTargetTypes are the target types whose database setting is a file path.
var fileTargetTypes = map[string]bool{
	"geopackage": true,
	"duckdb":     true,
}

var configFileUsed string

// findProjectRootUpward searches upward from startDir for fieldalias.yaml.
// Returns empty string if not found within maxUpwardSearchLevels.
func findProjectRootUpward(startDir string) string {
	dir := startDir
	for i := 0; i < maxUpwardSearchLevels; i++ {
		if _, err := os.Stat(filepath.Join(dir, ConfigFileName)); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root
			break
		}
		dir = parent
	}
	return ""
}

// resolvePathRelativeTo resolves a path relative to baseDir if it's not absolute.
// Returns the path unchanged if it's empty, in-memory or already absolute.
func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || path == ":memory:" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// Load loads configuration from defaults, the config file, environment
// variables and flags, in increasing precedence. targetOverride selects an
// entry of environments whose target is merged over the base target.
func Load(cfgFile string, targetOverride string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")
	configFileUsed = ""

	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}

	// 1. Load defaults
	if err := k.Load(confmap.Provider(map[string]interface{}{
		"environment":      DefaultEnv,
		"verbose":          false,
		"output":           DefaultOutput,
		"history.enabled":  true,
		"history.path":     DefaultHistory,
		"mapping.encoding": DefaultEncoding,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Find and load config file
	projectRoot := cwd
	if cfgFile == "" {
		if root := findProjectRootUpward(cwd); root != "" {
			projectRoot = root
			cfgFile = filepath.Join(root, ConfigFileName)
		}
	} else if abs, err := filepath.Abs(cfgFile); err == nil {
		projectRoot = filepath.Dir(abs)
	}
	if cfgFile != "" {
		if err := k.Load(file.Provider(cfgFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", cfgFile, err)
		}
		configFileUsed = cfgFile
	}

	// 3. Load environment variables
	// Transform: FIELDALIAS_TARGET__TYPE -> target.type
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Load flags (highest priority - overrides env vars and config file)
	var flagDatabase string
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			// Only load flags that were explicitly set
			if !f.Changed {
				return "", nil
			}
			if f.Name == "no-history" {
				return "history.enabled", !isTrue(f.Value.String())
			}
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}

		if f := flags.Lookup("database"); f != nil && f.Changed {
			flagDatabase = f.Value.String()
		}
	}

	// 5. Unmarshal into Config struct
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.ProjectRoot = projectRoot

	// Determine which environment to use for target selection
	envForTarget := cfg.Environment
	if targetOverride != "" {
		envForTarget = targetOverride
		if _, ok := cfg.Environments[targetOverride]; !ok {
			return nil, fmt.Errorf("unknown target environment %q\nHint: define environments.%s in %s", targetOverride, targetOverride, ConfigFileName)
		}
	}
	if envCfg, ok := cfg.Environments[envForTarget]; ok && envCfg.Target != nil {
		cfg.Target = MergeTargetConfig(cfg.Target, envCfg.Target)
	}
	// an explicit --database is never replaced by an environment target
	if flagDatabase != "" && cfg.Target != nil {
		cfg.Target.Database = flagDatabase
	}

	if cfg.Target == nil {
		cfg.Target = &TargetConfig{}
	}
	cfg.Target.Type = strings.ToLower(cfg.Target.Type)

	// Expand environment variables in target
	expandTargetEnvVars(cfg.Target)

	// Paths from flags are relative to the working directory,
	// paths from the config file to the project root.
	if fileTargetTypes[cfg.Target.Type] {
		base := projectRoot
		if flagDatabase != "" {
			base = cwd
		}
		cfg.Target.Database = resolvePathRelativeTo(cfg.Target.Database, base)
	}
	historyBase := projectRoot
	if flags != nil && flags.Changed("history-path") {
		historyBase = cwd
	}
	cfg.History.Path = resolvePathRelativeTo(cfg.History.Path, historyBase)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func isTrue(s string) bool {
	return s == "true" || s == "1"
}

// Validate checks the target and mapping settings.
func (c *Config) Validate() error {
	if c.Target != nil && c.Target.Type != "" && !adapter.IsRegistered(c.Target.Type) {
		return fmt.Errorf("invalid target configuration: %w", &adapter.UnknownAdapterError{
			Type:      c.Target.Type,
			Available: adapter.ListAdapters(),
		})
	}
	if _, err := mapping.ParseDelimiter(c.Mapping.Delimiter); err != nil {
		return fmt.Errorf("invalid mapping configuration: %w", err)
	}
	return nil
}

// GetConfigFileUsed returns the path to the config file loaded by the last Load, if any.
func GetConfigFileUsed() string {
	return configFileUsed
}

// WithConfig returns ctx carrying cfg.
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// FromContext returns the config stored by WithConfig, or the defaults
// when none was loaded.
func FromContext(ctx context.Context) *Config {
	if ctx != nil {
		if c, ok := ctx.Value(configKey{}).(*Config); ok {
			return c
		}
	}
	return &Config{
		Environment:  DefaultEnv,
		OutputFormat: DefaultOutput,
		Target:       &TargetConfig{},
		History:      HistoryConfig{Enabled: true, Path: DefaultHistory},
		Mapping:      MappingConfig{Encoding: DefaultEncoding},
	}
}

// LoggerKey returns the context key used for storing the logger.
// This allows the commands package to retrieve the logger from context
// without creating an import cycle with the cli package.
func LoggerKey() interface{} {
	return loggerKey{}
}

// WithLogger returns ctx carrying logger.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return slog.New(slog.DiscardHandler)
	}
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	// Return discard logger as safe fallback
	return slog.New(slog.DiscardHandler)
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars expands ${VAR} patterns in a string with environment variable values.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match // Return original if not found
	})
}

// expandTargetEnvVars expands environment variables in sensitive target fields.
func expandTargetEnvVars(t *TargetConfig) {
	if t == nil {
		return
	}
	t.Password = expandEnvVars(t.Password)
	t.User = expandEnvVars(t.User)
	t.Host = expandEnvVars(t.Host)
	t.Database = expandEnvVars(t.Database)
}

// MergeTargetConfig merges two target configs, with override taking precedence.
func MergeTargetConfig(base, override *TargetConfig) *TargetConfig {
	if base == nil {
		return override
	}
	if override == nil {
		return base
	}

	merged := &TargetConfig{
		Type:     base.Type,
		Database: base.Database,
		Host:     base.Host,
		Port:     base.Port,
		User:     base.User,
		Password: base.Password,
		Schema:   base.Schema,
		Options:  make(map[string]string),
		Params:   make(map[string]any),
	}
	for k, v := range base.Options {
		merged.Options[k] = v
	}
	for k, v := range base.Params {
		merged.Params[k] = v
	}

	if override.Type != "" {
		merged.Type = override.Type
	}
	if override.Database != "" {
		merged.Database = override.Database
	}
	if override.Host != "" {
		merged.Host = override.Host
	}
	if override.Port != 0 {
		merged.Port = override.Port
	}
	if override.User != "" {
		merged.User = override.User
	}
	if override.Password != "" {
		merged.Password = override.Password
	}
	if override.Schema != "" {
		merged.Schema = override.Schema
	}
	for k, v := range override.Options {
		merged.Options[k] = v
	}
	for k, v := range override.Params {
		merged.Params[k] = v
	}

	return merged
}
