package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/leapstack-labs/fieldalias/internal/mapping"
	"github.com/spf13/cobra"
)

// NewExportCommand creates the export command.
func NewExportCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "export <dataset> [csv_path]",
		Short: "Write a name,alias CSV template for a dataset",
		Long: `Write one row per field with its current alias, ready to be edited and
passed to apply. Without csv_path the template is written to stdout.

A header row is only written with --skip-header, matching how apply reads it.`,
		Example: `  fieldalias export data/parcels.gpkg/parcels aliases.csv
  fieldalias export gis.parcels --delimiter ';' > aliases.csv`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 2 {
				path = args[1]
			}
			return runExport(cmd, args[0], path, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing CSV file")
	cmd.Flags().String("delimiter", "", "CSV column delimiter, a single character or \"tab\" (default \",\")")
	cmd.Flags().String("encoding", "", "CSV encoding label (default \"utf-8\")")
	cmd.Flags().Bool("skip-header", false, "Write a header row")

	return cmd
}

func runExport(cmd *cobra.Command, ref, path string, force bool) error {
	c := NewCommandContext(cmd)

	ds, err := c.OpenDataset(cmd.Context(), ref)
	if err != nil {
		return err
	}
	defer func() { _ = ds.Close() }()

	fields, err := ds.ListFields(cmd.Context())
	if err != nil {
		return err
	}

	opts, err := c.MappingOptions()
	if err != nil {
		return err
	}
	if path == "" {
		return mapping.Write(cmd.OutOrStdout(), fields, opts)
	}

	flag := os.O_WRONLY | os.O_CREATE | os.O_EXCL
	if force {
		flag = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}
	f, err := os.OpenFile(path, flag, 0o644)
	if os.IsExist(err) {
		return fmt.Errorf("%s already exists\nHint: use --force to overwrite", path)
	}
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	if err := writeAndClose(f, func(w io.Writer) error { return mapping.Write(w, fields, opts) }); err != nil {
		return err
	}

	c.Renderer.Success(fmt.Sprintf("Wrote %d fields to %s", len(fields), path))
	return nil
}

func writeAndClose(f *os.File, write func(io.Writer) error) error {
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", f.Name(), err)
	}
	return nil
}
