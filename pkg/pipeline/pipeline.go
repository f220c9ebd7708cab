// Package pipeline runs the parse, snapshot, render and write steps for one
// or many source files.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/spf13/afero"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/Sumatoshi-tech/treedump/pkg/artifact"
	"github.com/Sumatoshi-tech/treedump/pkg/config"
	"github.com/Sumatoshi-tech/treedump/pkg/cst"
	"github.com/Sumatoshi-tech/treedump/pkg/grammar"
	"github.com/Sumatoshi-tech/treedump/pkg/observability"
)

// Pipeline errors.
var (
	ErrInputNotFound = errors.New("input not found")
	ErrFileTooLarge  = errors.New("input exceeds max file size")
	ErrNoGrammar     = errors.New("no grammar could be resolved")

	ErrOutputCollision = errors.New("batch inputs share an artifact path")
)

// Pipeline stages, used as span names and error metric labels.
const (
	stageRead     = "read"
	stageParse    = "parse"
	stageSnapshot = "snapshot"
	stageRender   = "render"
	stageWrite    = "write"

	spanRun = "treedump.run"

	attrPath    = "treedump.path"
	attrGrammar = "treedump.grammar"
	attrRunID   = "treedump.run_id"
	attrNodes   = "treedump.nodes"
)

// Input is one source to process. A nil Source is read from Path.
type Input struct {
	// Path of the source file. Used for grammar detection even when Source is set.
	Path string
	// Source bytes; nil means read Path.
	Source []byte
	// Grammar overrides detection when non-empty.
	Grammar string
	// Output overrides the artifact path when non-empty.
	Output string
}

// Result is the outcome of processing one Input.
type Result struct {
	Tree         *cst.SyntaxTree
	Rendering    string
	ArtifactPath string
	Grammar      string
	RunID        string
	Stats        cst.TreeStats
	// Lines is the number of source lines.
	Lines int
}

// Pipeline processes inputs. It is safe for concurrent use.
type Pipeline struct {
	cfg       *config.Config
	writer    *artifact.Writer
	codec     artifact.Codec
	tracer    trace.Tracer
	metrics   *observability.PipelineMetrics
	logger    *slog.Logger
	progress  func(done, total int, path string)
	parsers   sync.Map
	outputDir string
	maxSize   uint64
	render    bool
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithFs sets the filesystem sources are read from and artifacts written to.
func WithFs(filesystem afero.Fs) Option {
	return func(p *Pipeline) { p.writer = artifact.NewWriter(filesystem) }
}

// WithCodec overrides the artifact codec selected from the configuration.
func WithCodec(codec artifact.Codec) Option {
	return func(p *Pipeline) { p.codec = codec }
}

// WithTracer sets the tracer used for stage spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(p *Pipeline) { p.tracer = tracer }
}

// WithMetrics sets the instruments recorded per file.
func WithMetrics(metrics *observability.PipelineMetrics) Option {
	return func(p *Pipeline) { p.metrics = metrics }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = logger }
}

// WithoutRender skips building the readable rendering.
func WithoutRender() Option {
	return func(p *Pipeline) { p.render = false }
}

// WithOutputDir sets where RunBatch writes artifacts. Defaults to the
// configured temp dir.
func WithOutputDir(dir string) Option {
	return func(p *Pipeline) { p.outputDir = dir }
}

// WithProgress registers a callback invoked after each file of a batch.
func WithProgress(fn func(done, total int, path string)) Option {
	return func(p *Pipeline) { p.progress = fn }
}

// New builds a Pipeline from cfg.
func New(cfg *config.Config, opts ...Option) (*Pipeline, error) {
	maxSize, err := cfg.Parse.MaxFileSizeBytes()
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		cfg:     cfg,
		maxSize: maxSize,
		render:  true,
		tracer:  nooptrace.NewTracerProvider().Tracer(""),
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.writer == nil {
		p.writer = artifact.NewWriter(nil)
	}

	if p.codec == nil {
		p.codec, err = artifact.CodecFor(cfg.Parse.Format, cfg.Parse.Compress)
		if err != nil {
			return nil, err
		}
	}

	return p, nil
}

// Codec returns the artifact codec in use.
func (p *Pipeline) Codec() artifact.Codec {
	return p.codec
}

// Run processes one input: read, parse, snapshot, render, write. A missing
// input fails before anything is written.
func (p *Pipeline) Run(ctx context.Context, in Input) (*Result, error) {
	runID := uuid.NewString()

	ctx, span := p.tracer.Start(ctx, spanRun, trace.WithAttributes(
		attribute.String(attrPath, in.Path),
		attribute.String(attrRunID, runID),
	))
	defer span.End()

	res, stage, err := p.run(ctx, in, runID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, stage)
		p.metrics.RecordError(ctx, res.Grammar, stage)
		observability.FileLogger(p.logger, runID, in.Path, res.Grammar).
			ErrorContext(ctx, "pipeline failed", "stage", stage, "error", err)

		return nil, err
	}

	span.SetAttributes(attribute.String(attrGrammar, res.Grammar), attribute.Int(attrNodes, res.Stats.Nodes))

	return res, nil
}

func (p *Pipeline) run(ctx context.Context, in Input, runID string) (*Result, string, error) {
	res := &Result{RunID: runID}

	src, err := p.readSource(ctx, in)
	if err != nil {
		return res, stageRead, err
	}

	res.Grammar, err = p.resolveGrammar(in, src)
	if err != nil {
		return res, stageParse, err
	}

	res.Lines = countLines(src)

	logger := observability.FileLogger(p.logger, runID, in.Path, res.Grammar)
	logger.DebugContext(ctx, "parsing", "size", humanize.Bytes(uint64(len(src))), "lines", res.Lines)

	if looksBinary(src) {
		logger.WarnContext(ctx, "source looks binary; invalid UTF-8 becomes U+FFFD")
	}

	parseStart := time.Now()

	tree, err := p.parse(ctx, res.Grammar, src)
	if err != nil {
		return res, stageParse, err
	}

	parseDuration := time.Since(parseStart)

	_, snapSpan := p.tracer.Start(ctx, stageSnapshot)
	res.Tree = snapshotAndClose(tree, src)
	snapSpan.End()

	res.Stats = cst.Stats(res.Tree.Root)

	if p.render {
		_, renderSpan := p.tracer.Start(ctx, stageRender)
		res.Rendering = cst.Render(res.Tree.Root)
		renderSpan.End()
	}

	if err = ctx.Err(); err != nil {
		return res, stageWrite, fmt.Errorf("before write: %w", err)
	}

	res.ArtifactPath = in.Output
	if res.ArtifactPath == "" {
		res.ArtifactPath = p.cfg.Paths.ArtifactPath(res.Grammar, p.codec.Extension())
	}

	_, writeSpan := p.tracer.Start(ctx, stageWrite)
	err = p.writer.WriteDocument(res.ArtifactPath, p.codec, artifact.NewDocument(res.Tree))
	writeSpan.End()

	if err != nil {
		return res, stageWrite, err
	}

	p.metrics.RecordFile(ctx, observability.FileStats{
		Grammar:       res.Grammar,
		ParseDuration: parseDuration,
		Nodes:         res.Stats.Nodes,
		SourceBytes:   len(src),
	})

	logger.InfoContext(ctx, "artifact written",
		"artifact", res.ArtifactPath,
		"nodes", res.Stats.Nodes,
		"depth", res.Stats.MaxDepth,
		"parse_ms", parseDuration.Milliseconds(),
	)

	return res, "", nil
}

func (p *Pipeline) readSource(ctx context.Context, in Input) ([]byte, error) {
	if in.Source != nil {
		return in.Source, p.checkSize(in.Path, uint64(len(in.Source)))
	}

	_, span := p.tracer.Start(ctx, stageRead)
	defer span.End()

	filesystem := p.writer.Fs()

	info, err := filesystem.Stat(in.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrInputNotFound, in.Path)
	}

	if err != nil {
		return nil, &artifact.IOError{Op: "stat", Path: in.Path, Err: err}
	}

	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrInputNotFound, in.Path)
	}

	err = p.checkSize(in.Path, uint64(info.Size())) //nolint:gosec // file sizes are non-negative.
	if err != nil {
		return nil, err
	}

	src, err := afero.ReadFile(filesystem, in.Path)
	if err != nil {
		return nil, &artifact.IOError{Op: "read", Path: in.Path, Err: err}
	}

	return src, nil
}

func (p *Pipeline) checkSize(path string, size uint64) error {
	if p.maxSize > 0 && size > p.maxSize {
		return fmt.Errorf("%w: %s is %s, limit %s",
			ErrFileTooLarge, path, humanize.Bytes(size), humanize.Bytes(p.maxSize))
	}

	return nil
}

// resolveGrammar picks the explicit grammar, then the detected one, then the
// configured default.
func (p *Pipeline) resolveGrammar(in Input, src []byte) (string, error) {
	if in.Grammar != "" {
		return in.Grammar, nil
	}

	if in.Path != "" {
		if detected := grammar.Detect(in.Path, src); detected != "" {
			return detected, nil
		}
	}

	if p.cfg.Parse.Grammar != "" {
		return p.cfg.Parse.Grammar, nil
	}

	return "", fmt.Errorf("%w for %s", ErrNoGrammar, in.Path)
}

func (p *Pipeline) parse(ctx context.Context, name string, src []byte) (*grammar.Tree, error) {
	ctx, span := p.tracer.Start(ctx, stageParse, trace.WithAttributes(attribute.String(attrGrammar, name)))
	defer span.End()

	parser, err := p.parser(name)
	if err != nil {
		return nil, err
	}

	return parser.Parse(ctx, src)
}

// parser returns the cached parser for name. Each TreeSitter pools its
// engine parsers, so concurrent workers never share one.
func (p *Pipeline) parser(name string) (*grammar.TreeSitter, error) {
	if cached, ok := p.parsers.Load(name); ok {
		ts, _ := cached.(*grammar.TreeSitter)

		return ts, nil
	}

	ts, err := grammar.NewTreeSitter(name)
	if err != nil {
		return nil, err
	}

	actual, _ := p.parsers.LoadOrStore(name, ts)
	ts, _ = actual.(*grammar.TreeSitter)

	return ts, nil
}

// liveTree is an engine tree that must be released after use.
type liveTree interface {
	Root() cst.View
	Close()
}

// snapshotAndClose copies the live tree into plain nodes and releases the
// engine tree, even if the copy panics.
func snapshotAndClose(tree liveTree, src []byte) *cst.SyntaxTree {
	defer tree.Close()

	return cst.SnapshotTree(cst.DecodeText(src), tree.Root())
}

// BatchOutput returns the artifact path of a batch input: the source base
// name plus the codec extension, inside dir.
func BatchOutput(dir, path string, codec artifact.Codec) string {
	return filepath.Join(dir, filepath.Base(path)+codec.Extension())
}
