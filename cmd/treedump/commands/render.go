package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/treedump/pkg/cst"
)

func newRenderCommand(app *App) *cobra.Command {
	var showSource bool

	cmd := &cobra.Command{
		Use:   "render <artifact|->",
		Short: "Print the readable tree of an artifact",
		Long: `Load an artifact in any supported format and print its readable tree.

Examples:
  treedump render src/temp/python_ast.json
  treedump render out.yaml.lz4
  cat a.json | treedump render -`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return app.runRender(args[0], showSource)
		},
	}

	cmd.Flags().BoolVar(&showSource, "source", false, "print the source code before the tree")

	return cmd
}

func (a *App) runRender(path string, showSource bool) error {
	doc, err := a.loadArtifact(path)
	if err != nil {
		return err
	}

	if showSource {
		fmt.Fprintf(a.Stdout, "%s\n", doc.SourceCode)
	}

	err = cst.RenderTo(a.Stdout, doc.AST)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}

	fmt.Fprintln(a.Stdout)

	return nil
}
