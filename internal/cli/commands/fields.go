package commands

import (
	"strconv"

	"github.com/leapstack-labs/fieldalias/internal/cli/output"
	"github.com/spf13/cobra"
)

// NewFieldsCommand creates the fields command.
func NewFieldsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "fields <dataset>",
		Short: "List a dataset's fields and their current aliases",
		Example: `  fieldalias fields data/parcels.gpkg/parcels
  fieldalias fields gis.parcels --target prod -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFields(cmd, args[0])
		},
	}
}

func runFields(cmd *cobra.Command, ref string) error {
	c := NewCommandContext(cmd)
	r := c.Renderer

	ds, err := c.OpenDataset(cmd.Context(), ref)
	if err != nil {
		return err
	}
	defer func() { _ = ds.Close() }()

	fields, err := ds.ListFields(cmd.Context())
	if err != nil {
		return err
	}

	mode := r.EffectiveMode()
	if mode == output.ModeJSON {
		return r.JSON(output.FieldsOutput{Dataset: ds.Name(), Adapter: ds.Adapter, Fields: fields})
	}

	if mode == output.ModeMarkdown {
		r.Println(output.FormatHeader(1, "Fields"))
		r.Println("")
		r.Println(output.FormatKeyValue("Dataset", ds.Name()))
		r.Println(output.FormatKeyValue("Adapter", ds.Adapter))
		r.Println("")
	} else {
		r.Header(1, "Fields: "+ds.Name())
	}

	rows := make([][]string, 0, len(fields))
	for _, f := range fields {
		rows = append(rows, []string{strconv.Itoa(f.Position), f.Name, f.Type, f.Alias})
	}
	r.Table([]string{"#", "Field", "Type", "Alias"}, rows)

	if mode == output.ModeText {
		r.Muted(strconv.Itoa(len(fields)) + " fields")
	}
	return nil
}
