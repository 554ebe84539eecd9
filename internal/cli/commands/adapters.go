package commands

import (
	"strconv"

	"github.com/leapstack-labs/fieldalias/internal/cli/output"
	"github.com/leapstack-labs/fieldalias/pkg/adapter"
	"github.com/spf13/cobra"
)

// NewAdaptersCommand creates the adapters command.
func NewAdaptersCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "adapters",
		Short: "List the registered database adapters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAdapters(cmd)
		},
	}
}

func runAdapters(cmd *cobra.Command) error {
	c := NewCommandContext(cmd)
	r := c.Renderer

	infos := make([]output.AdapterInfo, 0)
	for _, info := range adapter.Describe() {
		infos = append(infos, output.AdapterInfo{Name: info.Name, CaseSensitive: info.CaseSensitive})
	}

	mode := r.EffectiveMode()
	switch mode {
	case output.ModeJSON:
		return r.JSON(output.AdaptersOutput{Adapters: infos})
	case output.ModeMarkdown:
		r.Println(output.FormatHeader(1, "Adapters"))
		r.Println("")
	default:
		r.Header(1, "Adapters")
	}

	rows := make([][]string, 0, len(infos))
	for _, info := range infos {
		rows = append(rows, []string{info.Name, strconv.FormatBool(info.CaseSensitive)})
	}
	r.Table([]string{"Adapter", "Case sensitive"}, rows)
	return nil
}
