package commands

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/treedump/pkg/cst"
)

// diffArgCount is the number of arguments expected by the diff command.
const diffArgCount = 2

// ErrTreesDiffer is returned when the compared artifacts differ.
var ErrTreesDiffer = errors.New("trees differ")

// lineDiff is one rendered line and how it changed.
type lineDiff struct {
	op   diffmatchpatch.Operation
	text string
}

// diffStats counts changed lines.
type diffStats struct {
	Added   int
	Removed int
	Same    int
}

func newDiffCommand(app *App) *cobra.Command {
	var colorize, nocolor, changesOnly bool

	cmd := &cobra.Command{
		Use:   "diff <artifact-a> <artifact-b>",
		Short: "Compare the trees of two artifacts",
		Long: `Compare two artifacts line by line on their readable trees. Exits with
status 1 when they differ.

Examples:
  treedump diff before.json after.json
  treedump diff --changes-only a.yaml b.json.lz4`,
		Args: cobra.ExactArgs(diffArgCount),
		RunE: func(_ *cobra.Command, args []string) error {
			setColor(colorize, nocolor)

			return app.runDiff(args[0], args[1], changesOnly)
		},
	}

	cmd.Flags().BoolVar(&changesOnly, "changes-only", false, "print only added and removed lines")
	cmd.Flags().BoolVar(&colorize, "color", false, "force colored output")
	cmd.Flags().BoolVar(&nocolor, "no-color", false, "disable colored output")

	return cmd
}

func (a *App) runDiff(pathA, pathB string, changesOnly bool) error {
	docA, err := a.loadArtifact(pathA)
	if err != nil {
		return err
	}

	docB, err := a.loadArtifact(pathB)
	if err != nil {
		return err
	}

	lines := diffRenderings(cst.Render(docA.AST), cst.Render(docB.AST))
	stats := printLineDiff(a.Stdout, lines, changesOnly)

	fmt.Fprintf(a.Stdout, "\n%d added, %d removed, %d unchanged\n", stats.Added, stats.Removed, stats.Same)

	if stats.Added > 0 || stats.Removed > 0 {
		return ErrTreesDiffer
	}

	return nil
}

// diffRenderings computes a line-level diff of two renderings.
func diffRenderings(before, after string) []lineDiff {
	dmp := diffmatchpatch.New()

	charsA, charsB, lineArray := dmp.DiffLinesToChars(before+"\n", after+"\n")
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(charsA, charsB, false), lineArray)

	var lines []lineDiff

	for _, d := range diffs {
		for line := range strings.SplitSeq(strings.TrimSuffix(d.Text, "\n"), "\n") {
			lines = append(lines, lineDiff{op: d.Type, text: line})
		}
	}

	return lines
}

func printLineDiff(w io.Writer, lines []lineDiff, changesOnly bool) diffStats {
	var stats diffStats

	added := color.New(color.FgGreen)
	removed := color.New(color.FgRed)

	for _, line := range lines {
		switch line.op {
		case diffmatchpatch.DiffInsert:
			stats.Added++

			added.Fprintf(w, "+ %s\n", line.text)
		case diffmatchpatch.DiffDelete:
			stats.Removed++

			removed.Fprintf(w, "- %s\n", line.text)
		case diffmatchpatch.DiffEqual:
			stats.Same++

			if !changesOnly {
				fmt.Fprintf(w, "  %s\n", line.text)
			}
		}
	}

	return stats
}
