package commands

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/treedump/pkg/artifact"
	"github.com/Sumatoshi-tech/treedump/pkg/cst"
)

// ErrInvalidArtifact is returned when an artifact fails validation.
var ErrInvalidArtifact = errors.New("artifact is invalid")

func newValidateCommand(app *App) *cobra.Command {
	var colorize, nocolor bool

	cmd := &cobra.Command{
		Use:   "validate <artifact|->",
		Short: "Validate an artifact against the schema and tree invariants",
		Long: `Validate an artifact against the artifact JSON Schema, then check the
tree invariants: non-empty types, ordered spans, children inside their
parent and not overlapping.

Examples:
  treedump validate src/temp/python_ast.json
  treedump validate - < python_ast.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			setColor(colorize, nocolor)

			return app.runValidate(args[0])
		},
	}

	cmd.Flags().BoolVar(&colorize, "color", false, "force colored output")
	cmd.Flags().BoolVar(&nocolor, "no-color", false, "disable colored output")

	return cmd
}

func setColor(colorize, nocolor bool) {
	if nocolor {
		color.NoColor = true //nolint:reassign // intentional override of library global
	} else if colorize {
		color.NoColor = false //nolint:reassign // intentional override of library global
	}
}

func (a *App) runValidate(path string) error {
	data, label, err := a.readArtifactJSON(path)
	if err != nil {
		return err
	}

	label = sanitizeForTerminal(label)

	violations, err := artifact.Validate(data)
	if err != nil {
		return err
	}

	if len(violations) > 0 {
		reportFailure(a.Stdout, label, "schema", describeViolations(violations))

		return fmt.Errorf("%w: %w", ErrInvalidArtifact, artifact.ValidationError(violations))
	}

	doc, err := artifact.NewJSONCodec().Decode(bytes.NewReader(data))
	if err != nil {
		reportFailure(a.Stdout, label, "decode", []string{err.Error()})

		return fmt.Errorf("%w: %w", ErrInvalidArtifact, err)
	}

	err = cst.Check(doc.AST)
	if err != nil {
		reportFailure(a.Stdout, label, "tree", splitJoined(err))

		return fmt.Errorf("%w: %w", ErrInvalidArtifact, err)
	}

	stats := cst.Stats(doc.AST)

	if !a.quiet {
		color.New(color.FgGreen).Fprintf(a.Stdout, "Artifact is valid (%s)\n", label)
		fmt.Fprintf(a.Stdout, "  Root: %s\n  Nodes: %d (%d leaves)\n  Max depth: %d\n",
			doc.AST.Type, stats.Nodes, stats.Leaves, stats.MaxDepth)
	}

	return nil
}

func describeViolations(violations []artifact.Violation) []string {
	lines := make([]string, 0, len(violations))
	for _, violation := range violations {
		lines = append(lines, violation.String())
	}

	return lines
}

// splitJoined flattens an errors.Join result into its messages.
func splitJoined(err error) []string {
	var joined interface{ Unwrap() []error }
	if !errors.As(err, &joined) {
		return []string{err.Error()}
	}

	var lines []string
	for _, inner := range joined.Unwrap() {
		lines = append(lines, inner.Error())
	}

	return lines
}

func reportFailure(w io.Writer, label, stage string, problems []string) {
	color.New(color.FgRed).Fprintf(w, "Artifact validation failed (%s)\n", label)
	color.New(color.FgYellow).Fprintf(w, "  Stage: %s\n", stage)

	fmt.Fprintf(w, "\nErrors:\n")

	for _, problem := range problems {
		color.New(color.FgRed).Fprintf(w, "  - %s\n", problem)
	}
}
