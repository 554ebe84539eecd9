// Package commands implements the fieldalias CLI commands.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/leapstack-labs/fieldalias/internal/cli/config"
	"github.com/leapstack-labs/fieldalias/internal/cli/output"
	"github.com/leapstack-labs/fieldalias/internal/history"
	"github.com/leapstack-labs/fieldalias/internal/mapping"
	"github.com/leapstack-labs/fieldalias/pkg/adapter"
	"github.com/leapstack-labs/fieldalias/pkg/core"
	"github.com/spf13/cobra"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext from the command's context.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	cfg := config.FromContext(cmd.Context())
	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(cmd.Context()),
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat)),
	}
}

// OpenedDataset is a connected dataset and the adapter type it was opened with.
type OpenedDataset struct {
	*adapter.Dataset
	Ref     core.DatasetRef
	Adapter string
	close   func() error
}

// Close releases the connection.
func (d *OpenedDataset) Close() error {
	if d.close == nil {
		return nil
	}
	return d.close()
}

// OpenDataset connects to the dataset named by ref. File references
// (<file>.gpkg/<table>) pick the adapter from the extension; anything else
// is a table on the configured target.
func (c *CommandContext) OpenDataset(ctx context.Context, ref string) (*OpenedDataset, error) {
	parsed, err := core.ParseDatasetRef(ref)
	if err != nil {
		return nil, err
	}

	target := c.Cfg.Target
	if target == nil {
		target = &config.TargetConfig{}
	}
	acfg := target.AdapterConfig()

	if parsed.Type != "" {
		path, err := filepath.Abs(parsed.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s: %w", parsed.Path, err)
		}
		if acfg.Type != parsed.Type {
			// params of another adapter type do not apply
			acfg.Params = nil
			acfg.Options = nil
		}
		acfg.Type = parsed.Type
		acfg.Path = path
		acfg.Database = path
	} else if acfg.Type == "" {
		return nil, fmt.Errorf("no target configured for dataset %s\nHint: use <file>.gpkg/<table>, set target.type in %s or pass --type", ref, config.ConfigFileName)
	}

	c.Logger.Debug("opening dataset",
		slog.String("dataset", ref),
		slog.String("adapter", acfg.Type),
		slog.String("table", parsed.Table))

	ds, closeFn, err := adapter.Open(ctx, acfg, parsed.Table, ref, c.Logger)
	if err != nil {
		return nil, err
	}
	return &OpenedDataset{Dataset: ds, Ref: parsed, Adapter: acfg.Type, close: closeFn}, nil
}

// MappingOptions returns the CSV options from the loaded configuration.
// An unusable delimiter or encoding is an *core.InputError.
func (c *CommandContext) MappingOptions() (mapping.Options, error) {
	m := c.Cfg.Mapping
	delim, err := mapping.ParseDelimiter(m.Delimiter)
	if err != nil {
		return mapping.Options{}, &core.InputError{Err: err}
	}
	opts := mapping.Options{
		Delimiter:  delim,
		Encoding:   m.Encoding,
		SkipHeader: m.SkipHeader,
		TrimSpace:  m.TrimSpace,
	}
	if err := opts.Validate(); err != nil {
		return mapping.Options{}, &core.InputError{Err: err}
	}
	return opts, nil
}

// OpenHistory opens the history store, or returns nil when history is disabled.
func (c *CommandContext) OpenHistory() (*history.Store, error) {
	if !c.Cfg.History.Enabled {
		return nil, nil
	}
	store := history.NewStore(c.Logger)
	if err := store.Open(c.Cfg.History.Path); err != nil {
		return nil, err
	}
	return store, nil
}

// RequireHistory opens the history store and fails when history is disabled.
func (c *CommandContext) RequireHistory() (*history.Store, error) {
	if !c.Cfg.History.Enabled {
		return nil, fmt.Errorf("history is disabled\nHint: set history.enabled: true in %s", config.ConfigFileName)
	}
	return c.OpenHistory()
}
