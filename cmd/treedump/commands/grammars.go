package commands

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/treedump/pkg/grammar"
)

func newGrammarsCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "grammars",
		Short: "List the grammars compiled into the binary",
		Long: `List the grammars compiled into the binary. Other names known to
go-sitter-forest are loaded on demand by dump --grammar.`,
		Args: cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			tbl := table.NewWriter()
			tbl.SetOutputMirror(app.Stdout)
			tbl.SetStyle(table.StyleLight)
			tbl.Style().Options.DrawBorder = false
			tbl.Style().Options.SeparateColumns = false
			tbl.AppendHeader(table.Row{"Grammar"})

			for _, name := range grammar.Names() {
				tbl.AppendRow(table.Row{name})
			}

			tbl.AppendFooter(table.Row{fmt.Sprintf("Total: %d", len(grammar.Names()))})
			tbl.Render()
		},
	}
}
