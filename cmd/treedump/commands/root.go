// Package commands implements the treedump CLI commands.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/treedump/pkg/config"
	"github.com/Sumatoshi-tech/treedump/pkg/observability"
	"github.com/Sumatoshi-tech/treedump/pkg/pipeline"
	"github.com/Sumatoshi-tech/treedump/pkg/version"
)

const (
	exitOK      = 0
	exitFailure = 1

	logFormatJSON = "json"
)

// App holds the state shared by all commands of one invocation.
type App struct {
	Stdout io.Writer
	Stderr io.Writer
	Stdin  io.Reader
	Fs     afero.Fs

	// Config is loaded by the root pre-run unless already set.
	Config *config.Config

	Logger  *slog.Logger
	Tracer  trace.Tracer
	Metrics *observability.PipelineMetrics

	shutdown   func(context.Context) error
	configPath string
	verbose    bool
	quiet      bool
	logJSON    bool
}

// NewApp returns an App bound to the process streams and the OS filesystem.
func NewApp() *App {
	return &App{
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		Stdin:  os.Stdin,
		Fs:     afero.NewOsFs(),
	}
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := NewApp()

	return app.Run(ctx, os.Args[1:])
}

// Run executes args against a fresh command tree and returns the exit code.
// Telemetry is flushed before returning.
func (a *App) Run(ctx context.Context, args []string) int {
	root := NewRootCommand(a)
	root.SetArgs(args)
	root.SetOut(a.Stdout)
	root.SetErr(a.Stderr)
	root.SetIn(a.Stdin)

	err := root.ExecuteContext(ctx)

	shutdownErr := a.Shutdown(context.WithoutCancel(ctx))
	if shutdownErr != nil {
		fmt.Fprintf(a.Stderr, "Error: flush telemetry: %v\n", shutdownErr)
	}

	if err == nil {
		return exitOK
	}

	// A differing diff is a result, not a failure to report.
	if !errors.Is(err, ErrTreesDiffer) {
		fmt.Fprintf(a.Stderr, "Error: %v\n", err)
	}

	return exitFailure
}

// NewRootCommand builds the command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "treedump",
		Short: "Dump tree-sitter concrete syntax trees as JSON artifacts",
		Long: `treedump parses source code with tree-sitter and writes the concrete
syntax tree as a deterministic {source_code, ast} artifact, printing an
indented readable form along the way.

Commands:
  dump      Parse files (or a built-in sample) and write artifacts
  render    Print the readable form of an artifact
  validate  Check an artifact against the schema and tree invariants
  diff      Compare two artifacts
  watch     Re-dump a file on every change
  extract   Build the CodeNet paired-language corpus
  grammars  List linked grammars`,
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return app.setup(cmd)
		},
	}

	rootCmd.PersistentFlags().StringVar(&app.configPath, "config", "", "config file (default: ./treedump.yaml or ./config/treedump.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&app.verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVarP(&app.quiet, "quiet", "q", false, "suppress output")
	rootCmd.PersistentFlags().BoolVar(&app.logJSON, "log-json", false, "log as JSON")

	rootCmd.AddCommand(
		newDumpCommand(app),
		newRenderCommand(app),
		newValidateCommand(app),
		newDiffCommand(app),
		newWatchCommand(app),
		newExtractCommand(app),
		newGrammarsCommand(app),
		newVersionCommand(app),
	)

	return rootCmd
}

// setup loads configuration and starts telemetry once per invocation.
func (a *App) setup(cmd *cobra.Command) error {
	if a.Config == nil {
		cfg, err := config.LoadConfig(a.configPath)
		if err != nil {
			return err
		}

		a.Config = cfg
	}

	if a.Fs == nil {
		a.Fs = afero.NewOsFs()
	}

	if a.shutdown != nil {
		return nil
	}

	obsCfg := a.observabilityConfig(cmd.Name())

	providers, err := observability.Init(obsCfg)
	if err != nil {
		return fmt.Errorf("init observability: %w", err)
	}

	a.shutdown = providers.Shutdown
	a.Logger = providers.Logger
	a.Tracer = providers.Tracer

	a.Metrics, err = observability.NewPipelineMetrics(providers.Meter)
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}

	return nil
}

func (a *App) observabilityConfig(command string) observability.Config {
	obsCfg := observability.DefaultConfig()
	obsCfg.ServiceVersion = version.Version
	obsCfg.LogWriter = a.Stderr
	obsCfg.LogLevel = observability.ParseLevel(a.Config.Logging.Level)
	obsCfg.LogJSON = a.logJSON || a.Config.Logging.Format == logFormatJSON
	obsCfg.OTLPEndpoint = a.Config.Telemetry.OTLPEndpoint
	obsCfg.OTLPInsecure = a.Config.Telemetry.OTLPInsecure
	obsCfg.OTLPHeaders = observability.ParseOTLPHeaders(os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"))
	obsCfg.MetricsFile = a.Config.Telemetry.MetricsFile
	obsCfg.SampleRatio = a.Config.Telemetry.SampleRatio

	if command == "watch" {
		obsCfg.Mode = observability.ModeWatch
	}

	switch {
	case a.verbose:
		obsCfg.LogLevel = slog.LevelDebug
	case a.quiet:
		obsCfg.LogLevel = slog.LevelError
	}

	return obsCfg
}

// Shutdown flushes telemetry. It is safe to call when setup never ran.
func (a *App) Shutdown(ctx context.Context) error {
	if a.shutdown == nil {
		return nil
	}

	shutdown := a.shutdown
	a.shutdown = nil

	return shutdown(ctx)
}

// newPipeline builds a pipeline over the app filesystem and telemetry.
func (a *App) newPipeline(opts ...pipeline.Option) (*pipeline.Pipeline, error) {
	base := []pipeline.Option{
		pipeline.WithFs(a.Fs),
		pipeline.WithLogger(a.Logger),
		pipeline.WithTracer(a.Tracer),
		pipeline.WithMetrics(a.Metrics),
	}

	return pipeline.New(a.Config, append(base, opts...)...)
}

// printf writes to stdout unless --quiet is set.
func (a *App) printf(format string, args ...any) {
	if a.quiet {
		return
	}

	fmt.Fprintf(a.Stdout, format, args...)
}
