package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/fieldalias/internal/cli/config"
	"github.com/leapstack-labs/fieldalias/internal/cli/output"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// scaffold is the fieldalias.yaml written by init.
type scaffold struct {
	Target       scaffoldTarget            `yaml:"target"`
	History      scaffoldHistory           `yaml:"history"`
	Mapping      scaffoldMapping           `yaml:"mapping"`
	Environments map[string]scaffoldTarget `yaml:"environments,omitempty"`
}

type scaffoldTarget struct {
	Type     string         `yaml:"type,omitempty"`
	Database string         `yaml:"database,omitempty"`
	Host     string         `yaml:"host,omitempty"`
	Port     int            `yaml:"port,omitempty"`
	User     string         `yaml:"user,omitempty"`
	Password string         `yaml:"password,omitempty"`
	Schema   string         `yaml:"schema,omitempty"`
	Params   map[string]any `yaml:"params,omitempty"`
}

type scaffoldHistory struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type scaffoldMapping struct {
	Delimiter  string `yaml:"delimiter"`
	Encoding   string `yaml:"encoding"`
	SkipHeader bool   `yaml:"skip_header"`
	TrimSpace  bool   `yaml:"trim_space"`
}

// DefaultInitType is the target type written when --type is not given.
const DefaultInitType = "geopackage"

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Create a fieldalias.yaml configuration",
		Long: `Create a fieldalias.yaml configuration file for a target database.

The global --type and --database flags select the target written to the
file (default type: geopackage). A postgres target is written with
connection placeholders reading the password from ${PGPASSWORD}.`,
		Example: `  # GeoPackage target in the current directory
  fieldalias init --database data/parcels.gpkg

  # PostgreSQL target in a new directory
  fieldalias init gis-aliases --type postgres --database gis

  # Force overwrite existing config
  fieldalias init --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			return runInit(cmd, dir, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing configuration")

	return cmd
}

// buildScaffold returns the configuration for a target type and database.
func buildScaffold(typ, database string) scaffold {
	if typ == "" {
		typ = DefaultInitType
	}
	target := scaffoldTarget{Type: typ, Database: database}

	switch typ {
	case "geopackage":
		if target.Database == "" {
			target.Database = "data.gpkg"
		}
		target.Params = map[string]any{
			"alias_column":            "name",
			"create_schema_extension": true,
		}
	case "duckdb":
		if target.Database == "" {
			target.Database = "warehouse.duckdb"
		}
		target.Schema = "main"
	case "postgres":
		if target.Database == "" {
			target.Database = "postgres"
		}
		target.Host = "localhost"
		target.Port = 5432
		target.User = "${PGUSER}"
		target.Password = "${PGPASSWORD}"
		target.Schema = "public"
	}

	return scaffold{
		Target:  target,
		History: scaffoldHistory{Enabled: true, Path: config.DefaultHistory},
		Mapping: scaffoldMapping{Delimiter: ",", Encoding: config.DefaultEncoding},
	}
}

func runInit(cmd *cobra.Command, dir string, force bool) error {
	c := NewCommandContext(cmd)
	r := c.Renderer

	path := filepath.Join(dir, config.ConfigFileName)
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists\nHint: use --force to overwrite", path)
	}

	// --database is taken as typed, not resolved against an existing project
	database, _ := cmd.Flags().GetString("database")
	typ := ""
	if c.Cfg.Target != nil {
		typ = c.Cfg.Target.Type
	}

	data, err := yaml.Marshal(buildScaffold(typ, database))
	if err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(map[string]string{"config": path})
	case output.ModeMarkdown:
		r.Println(output.FormatHeader(1, "Initialized"))
		r.Println("")
		r.Println(output.FormatKeyValue("Config", path))
	default:
		r.Success("Created " + path)
		r.Muted("Next: fieldalias fields <dataset>")
	}
	return nil
}
