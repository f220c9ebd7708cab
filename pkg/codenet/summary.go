package codenet

import (
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
)

// WriteSummary prints the extraction counters as a table.
func WriteSummary(w io.Writer, s *Summary) {
	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false
	tbl.SetTitle("CodeNet Parallel Pair Extractor")

	tbl.AppendRows([]table.Row{
		{"Problems", humanize.Comma(int64(s.Problems))},
		{"Pairs extracted", humanize.Comma(int64(s.Pairs))},
		{"Skipped (no dirs)", humanize.Comma(int64(s.SkippedNoDirs))},
		{"Skipped (no accepted)", humanize.Comma(int64(s.SkippedNoAccepted))},
		{"Elapsed", s.Elapsed.Round(time.Millisecond).String()},
		{"Output file", s.Output},
	})

	tbl.Render()
}
