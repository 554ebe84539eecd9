// Package cli provides the command-line interface for fieldalias.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/leapstack-labs/fieldalias/internal/cli/commands"
	"github.com/leapstack-labs/fieldalias/internal/cli/config"
	"github.com/leapstack-labs/fieldalias/internal/cli/output"
	"github.com/spf13/cobra"

	// Register the database adapters
	_ "github.com/leapstack-labs/fieldalias/pkg/adapters/duckdb"
	_ "github.com/leapstack-labs/fieldalias/pkg/adapters/geopackage"
	_ "github.com/leapstack-labs/fieldalias/pkg/adapters/postgres"
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	var (
		cfgFile    string
		targetFlag string
	)

	rootCmd := &cobra.Command{
		Use:   "fieldalias",
		Short: "fieldalias - batch update field aliases from CSV",
		Long: `fieldalias updates the aliases of a dataset's fields from a two-column
CSV file mapping field names to aliases.

Datasets are GeoPackage layers (data.gpkg/layer), DuckDB tables
(warehouse.duckdb/table) or tables on the target configured in
fieldalias.yaml, such as a PostgreSQL/PostGIS database.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Skip config loading for help and completion commands
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}

			// Local flags of the running command can override mapping settings
			cfg, err := config.Load(cfgFile, targetFlag, cmd.Flags())
			if err != nil {
				return err
			}

			logger := newLogger(cmd.ErrOrStderr(), cfg.Verbose)
			if used := config.GetConfigFileUsed(); used != "" {
				logger.Debug("using config file", slog.String("path", used))
			}
			if targetFlag != "" {
				logger.Debug("using target", slog.String("target", targetFlag))
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx = config.WithConfig(ctx, cfg)
			ctx = config.WithLogger(ctx, logger)
			cmd.SetContext(ctx)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Set version template
	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
`)

	// Global persistent flags
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: fieldalias.yaml in this or a parent directory)")
	pf.StringVarP(&targetFlag, "target", "t", "", "Target environment to use (e.g., dev, staging, prod)")
	pf.String("type", "", "Target adapter type (geopackage|duckdb|postgres)")
	pf.String("database", "", "Target database: file path or PostgreSQL database name")
	pf.String("schema", "", "Default schema for unqualified table names")
	pf.String("history-path", "", "Path to the history database")
	pf.Bool("no-history", false, "Do not record this run")
	pf.BoolP("verbose", "v", false, "Verbose output")
	pf.StringP("output", "o", "", "Output format (auto|text|markdown|json)")

	// Register completion for output flag
	_ = rootCmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return output.Modes, cobra.ShellCompDirectiveNoFileComp
	})

	// Register completion for type flag
	_ = rootCmd.RegisterFlagCompletionFunc("type", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"geopackage", "duckdb", "postgres"}, cobra.ShellCompDirectiveNoFileComp
	})

	// Register completion for target flag
	_ = rootCmd.RegisterFlagCompletionFunc("target", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"dev", "staging", "prod"}, cobra.ShellCompDirectiveNoFileComp
	})

	// Add subcommands
	rootCmd.AddCommand(commands.NewApplyCommand())
	rootCmd.AddCommand(commands.NewFieldsCommand())
	rootCmd.AddCommand(commands.NewExportCommand())
	rootCmd.AddCommand(commands.NewHistoryCommand())
	rootCmd.AddCommand(commands.NewRevertCommand())
	rootCmd.AddCommand(commands.NewInitCommand())
	rootCmd.AddCommand(commands.NewAdaptersCommand())
	rootCmd.AddCommand(commands.NewVersionCommand(Version, GitCommit, BuildDate))
	rootCmd.AddCommand(NewCompletionCommand())

	return rootCmd
}

// newLogger returns the CLI logger: debug when verbose, warnings otherwise.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// Execute runs the root command. The context is cancelled on SIGINT or SIGTERM.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := NewRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// NewCompletionCommand creates the completion command.
func NewCompletionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for fieldalias.

To load completions:

Bash:
  $ source <(fieldalias completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ fieldalias completion bash > /etc/bash_completion.d/fieldalias
  # macOS:
  $ fieldalias completion bash > $(brew --prefix)/etc/bash_completion.d/fieldalias

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. Execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ fieldalias completion zsh > "${fpath[1]}/_fieldalias"

Fish:
  $ fieldalias completion fish | source

  # To load completions for each session, execute once:
  $ fieldalias completion fish > ~/.config/fish/completions/fieldalias.fish

PowerShell:
  PS> fieldalias completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
			return nil
		},
	}
	return cmd
}
