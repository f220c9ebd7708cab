package codenet

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/afero"
)

// Metadata column names.
const (
	colProblemID    = "id"
	colSubmissionID = "submission_id"
	colLanguage     = "language"
	colStatus       = "status"
	colCodeSize     = "code_size"
)

var errMissingColumn = errors.New("missing column")

// csvTable is a CSV file with a header row, addressed by column name.
type csvTable struct {
	columns map[string]int
	rows    [][]string
}

func readCSV(fs afero.Fs, path string) (*csvTable, error) {
	file, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header of %s: %w", path, err)
	}

	table := &csvTable{columns: make(map[string]int, len(header))}

	for idx, name := range header {
		table.columns[strings.TrimSpace(name)] = idx
	}

	for {
		record, readErr := reader.Read()
		if errors.Is(readErr, io.EOF) {
			break
		}

		if readErr != nil {
			return nil, fmt.Errorf("read %s: %w", path, readErr)
		}

		table.rows = append(table.rows, record)
	}

	return table, nil
}

// column returns the index of name, or an error when the header lacks it.
func (t *csvTable) column(name string) (int, error) {
	idx, ok := t.columns[name]
	if !ok {
		return 0, fmt.Errorf("%w %q", errMissingColumn, name)
	}

	return idx, nil
}

// value returns the cell at column idx, empty for short rows.
func value(row []string, idx int) string {
	if idx >= len(row) {
		return ""
	}

	return row[idx]
}

// problemIDs lists the non-empty ids of a problem list.
func problemIDs(fs afero.Fs, path string) ([]string, error) {
	table, err := readCSV(fs, path)
	if err != nil {
		return nil, err
	}

	idCol, err := table.column(colProblemID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	ids := make([]string, 0, len(table.rows))

	for _, row := range table.rows {
		if id := strings.TrimSpace(value(row, idCol)); id != "" {
			ids = append(ids, id)
		}
	}

	return ids, nil
}

// submission is one accepted metadata row.
type submission struct {
	id   string
	size float64
}

// acceptedSubmissions returns the rows of a problem's metadata matching
// language and status, ordered by code size. Rows whose size is not a number
// are dropped; equal sizes keep file order.
func acceptedSubmissions(fs afero.Fs, path, language, status string) ([]submission, error) {
	table, err := readCSV(fs, path)
	if err != nil {
		return nil, err
	}

	cols := make(map[string]int, 4)

	for _, name := range []string{colSubmissionID, colLanguage, colStatus, colCodeSize} {
		idx, colErr := table.column(name)
		if colErr != nil {
			return nil, fmt.Errorf("%s: %w", path, colErr)
		}

		cols[name] = idx
	}

	var accepted []submission

	for _, row := range table.rows {
		if value(row, cols[colLanguage]) != language || value(row, cols[colStatus]) != status {
			continue
		}

		size, parseErr := strconv.ParseFloat(strings.TrimSpace(value(row, cols[colCodeSize])), 64)
		if parseErr != nil {
			continue
		}

		accepted = append(accepted, submission{id: value(row, cols[colSubmissionID]), size: size})
	}

	slices.SortStableFunc(accepted, func(a, b submission) int {
		switch {
		case a.size < b.size:
			return -1
		case a.size > b.size:
			return 1
		default:
			return 0
		}
	})

	return accepted, nil
}
