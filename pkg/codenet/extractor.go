// Package codenet builds a paired-language corpus from a Project CodeNet
// checkout: for every problem, the shortest accepted submission in each of two
// languages, written as JSON lines.
package codenet

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/progress"
	"github.com/spf13/afero"

	"github.com/Sumatoshi-tech/treedump/pkg/artifact"
	"github.com/Sumatoshi-tech/treedump/pkg/config"
	"github.com/Sumatoshi-tech/treedump/pkg/cst"
)

// ErrProblemListNotFound is returned when metadata/problem_list.csv is absent.
var ErrProblemListNotFound = errors.New("problem list not found")

// Dataset layout, relative to the CodeNet root.
const (
	metadataDir     = "metadata"
	dataDir         = "data"
	problemListFile = "problem_list.csv"
	descriptionFile = "description.html"

	progressTrackerLength = 30
	progressUpdateEvery   = 100 * time.Millisecond
	progressPollEvery     = 10 * time.Millisecond
)

// Language is one side of the extracted pair.
type Language struct {
	// Name as used in the metadata and in the data directory names ("Python").
	Name string
	// Ext is the submission file extension without the dot ("py").
	Ext string
}

// Field returns the record key holding this language's code.
func (l Language) Field() string {
	return strings.ToLower(l.Name) + "_code"
}

// Options configures an Extractor.
type Options struct {
	Root   string
	Output string
	Status string
	Source Language
	Target Language
}

// OptionsFromConfig derives extractor options from cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Root:   cfg.Paths.CodeNetRoot,
		Output: cfg.Paths.CorpusOutput,
		Status: cfg.Extract.Status,
		Source: Language{Name: cfg.Extract.SourceLanguage, Ext: cfg.Extract.SourceExt},
		Target: Language{Name: cfg.Extract.TargetLanguage, Ext: cfg.Extract.TargetExt},
	}
}

// Summary counts the outcome of an extraction.
type Summary struct {
	Output            string
	Problems          int
	Pairs             int
	SkippedNoDirs     int
	SkippedNoAccepted int
	Elapsed           time.Duration
}

// Extractor scans a CodeNet tree and writes the pair corpus.
type Extractor struct {
	fs       afero.Fs
	writer   *artifact.Writer
	logger   *slog.Logger
	progress io.Writer
	opts     Options
}

// NewExtractor creates an Extractor over fs. A nil fs means the OS
// filesystem; a nil progress writer disables the progress bar.
func NewExtractor(fs afero.Fs, opts Options, logger *slog.Logger, progressOut io.Writer) *Extractor {
	writer := artifact.NewWriter(fs)

	if logger == nil {
		logger = slog.Default()
	}

	return &Extractor{
		fs:       writer.Fs(),
		writer:   writer,
		logger:   logger,
		progress: progressOut,
		opts:     opts,
	}
}

// Run extracts every pair and writes the corpus atomically. Cancellation is
// checked between problems; a canceled run leaves any previous corpus intact.
func (e *Extractor) Run(ctx context.Context) (*Summary, error) {
	started := time.Now()

	listPath := filepath.Join(e.opts.Root, metadataDir, problemListFile)

	exists, err := afero.Exists(e.fs, listPath)
	if err != nil || !exists {
		return nil, fmt.Errorf("%w at %s", ErrProblemListNotFound, listPath)
	}

	ids, err := problemIDs(e.fs, listPath)
	if err != nil {
		return nil, err
	}

	e.logger.InfoContext(ctx, "extracting pairs",
		"problems", len(ids), "source", e.opts.Source.Name, "target", e.opts.Target.Name)

	summary := &Summary{Output: e.opts.Output, Problems: len(ids)}

	tracker, stop := e.startProgress(len(ids))
	defer stop()

	err = e.writer.WriteFunc(e.opts.Output, func(w io.Writer) error {
		for _, id := range ids {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return fmt.Errorf("extraction interrupted: %w", ctxErr)
			}

			writeErr := e.processProblem(w, id, summary)

			tracker.Increment(1)

			if writeErr != nil {
				return writeErr
			}
		}

		return nil
	})
	if err != nil {
		tracker.MarkAsErrored()

		return nil, err
	}

	tracker.MarkAsDone()

	summary.Elapsed = time.Since(started)

	e.logger.InfoContext(ctx, "extraction done",
		"pairs", summary.Pairs,
		"skipped_no_dirs", summary.SkippedNoDirs,
		"skipped_no_accepted", summary.SkippedNoAccepted,
		"output", summary.Output,
	)

	return summary, nil
}

func (e *Extractor) processProblem(w io.Writer, id string, summary *Summary) error {
	sourceDir := filepath.Join(e.opts.Root, dataDir, id, e.opts.Source.Name)
	targetDir := filepath.Join(e.opts.Root, dataDir, id, e.opts.Target.Name)

	if !e.isDir(sourceDir) || !e.isDir(targetDir) {
		summary.SkippedNoDirs++

		return nil
	}

	sourceCode, sourceOK := e.shortestAccepted(id, e.opts.Source, sourceDir)
	targetCode, targetOK := e.shortestAccepted(id, e.opts.Target, targetDir)

	if !sourceOK || !targetOK {
		summary.SkippedNoAccepted++

		return nil
	}

	err := writeRecord(w, []field{
		{key: "problem_id", value: id},
		{key: e.opts.Source.Field(), value: sourceCode},
		{key: e.opts.Target.Field(), value: targetCode},
		{key: "problem_description", value: e.description(id)},
	})
	if err != nil {
		return err
	}

	summary.Pairs++

	return nil
}

// shortestAccepted returns the code of the smallest accepted submission whose
// file exists and reads. Unreadable metadata yields no candidate.
func (e *Extractor) shortestAccepted(id string, lang Language, langDir string) (string, bool) {
	metaPath := filepath.Join(e.opts.Root, metadataDir, id+".csv")

	candidates, err := acceptedSubmissions(e.fs, metaPath, lang.Name, e.opts.Status)
	if err != nil {
		e.logger.Debug("no metadata", "problem", id, "language", lang.Name, "error", err)

		return "", false
	}

	for _, sub := range candidates {
		code, readErr := afero.ReadFile(e.fs, filepath.Join(langDir, sub.id+"."+lang.Ext))
		if readErr != nil {
			continue
		}

		return cst.DecodeText(code), true
	}

	return "", false
}

func (e *Extractor) description(id string) string {
	data, err := afero.ReadFile(e.fs, filepath.Join(e.opts.Root, dataDir, id, descriptionFile))
	if err != nil {
		return ""
	}

	return cst.DecodeText(data)
}

func (e *Extractor) isDir(path string) bool {
	ok, err := afero.DirExists(e.fs, path)

	return err == nil && ok
}

// startProgress renders a bar on the progress writer. The returned tracker
// is usable even when progress is disabled.
func (e *Extractor) startProgress(total int) (*progress.Tracker, func()) {
	tracker := &progress.Tracker{
		Message: "Processing problems",
		Total:   int64(total),
		Units:   progress.UnitsDefault,
	}

	if e.progress == nil {
		return tracker, func() {}
	}

	pw := progress.NewWriter()
	pw.SetOutputWriter(e.progress)
	pw.SetTrackerLength(progressTrackerLength)
	pw.SetUpdateFrequency(progressUpdateEvery)
	pw.SetStyle(progress.StyleDefault)
	pw.Style().Visibility.ETA = true
	pw.AppendTracker(tracker)

	go pw.Render()

	for !pw.IsRenderInProgress() {
		time.Sleep(progressPollEvery)
	}

	return tracker, func() {
		pw.Stop()

		for pw.IsRenderInProgress() {
			time.Sleep(progressPollEvery)
		}
	}
}

type field struct {
	key   string
	value string
}

// writeRecord writes one JSON line with keys in the given order, using the
// ", " and ": " separators and keeping non-ASCII text as is.
func writeRecord(w io.Writer, fields []field) error {
	_, err := io.WriteString(w, "{")
	if err != nil {
		return fmt.Errorf("write record: %w", err)
	}

	for idx, f := range fields {
		if idx > 0 {
			if _, err = io.WriteString(w, ", "); err != nil {
				return fmt.Errorf("write record: %w", err)
			}
		}

		if err = cst.WriteString(w, f.key); err != nil {
			return err
		}

		if _, err = io.WriteString(w, ": "); err != nil {
			return fmt.Errorf("write record: %w", err)
		}

		if err = cst.WriteString(w, f.value); err != nil {
			return err
		}
	}

	_, err = io.WriteString(w, "}\n")
	if err != nil {
		return fmt.Errorf("write record: %w", err)
	}

	return nil
}
