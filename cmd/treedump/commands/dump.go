package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/treedump/pkg/pipeline"
)

const readableHeader = "--- CST (readable) ---"

type dumpOptions struct {
	grammar  string
	output   string
	format   string
	workers  int
	compress bool
	noRender bool
}

func newDumpCommand(app *App) *cobra.Command {
	var opts dumpOptions

	cmd := &cobra.Command{
		Use:   "dump [file...]",
		Short: "Parse source files and write CST artifacts",
		Long: `Parse source files with tree-sitter, print the readable tree and write
the {source_code, ast} artifact.

Without a file a built-in Python sample is parsed. With several files they
are processed in parallel and each artifact is written to the output
directory as <file name><ext>.

Examples:
  treedump dump                         # Parse the built-in sample
  treedump dump main.py                 # Writes <temp_dir>/python_ast.json
  treedump dump -g go -o out.json x.txt # Force grammar and output path
  treedump dump -f yaml --compress a.py # YAML artifact, LZ4 compressed
  treedump dump -w 8 -o out/ src/*.go   # Batch mode`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app.applyParseFlags(cmd, opts.format, opts.compress)

			return app.runDump(cmd.Context(), args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.grammar, "grammar", "g", "", "grammar name (default: detected, then parse.grammar)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "artifact path; output directory in batch mode")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "json", "artifact format (json, yaml)")
	cmd.Flags().BoolVar(&opts.compress, "compress", false, "LZ4-compress the artifact")
	cmd.Flags().BoolVar(&opts.noRender, "no-render", false, "do not print the readable tree")
	cmd.Flags().IntVarP(&opts.workers, "workers", "w", 0, "parallel workers in batch mode (default: parse.workers)")

	return cmd
}

// applyParseFlags lets explicitly set flags override the configured format.
func (a *App) applyParseFlags(cmd *cobra.Command, format string, compress bool) {
	if cmd.Flags().Changed("format") {
		a.Config.Parse.Format = format
	}

	if cmd.Flags().Changed("compress") {
		a.Config.Parse.Compress = compress
	}
}

func (a *App) runDump(ctx context.Context, files []string, opts dumpOptions) error {
	var pipeOpts []pipeline.Option
	if opts.noRender {
		pipeOpts = append(pipeOpts, pipeline.WithoutRender())
	}

	if len(files) > 1 {
		return a.runDumpBatch(ctx, files, opts, pipeOpts)
	}

	p, err := a.newPipeline(pipeOpts...)
	if err != nil {
		return err
	}

	input := pipeline.Sample()

	if len(files) == 1 {
		input, err = userInput(files[0], opts.grammar)
		if err != nil {
			return err
		}

		a.printf("Parsing: %s\n", sanitizeForTerminal(input.Path))
	} else {
		a.printf("No file provided, using built-in sample code.\n")

		if opts.grammar != "" {
			input.Grammar = opts.grammar
		}
	}

	if opts.output != "" {
		input.Output, err = cleanUserPath(opts.output)
		if err != nil {
			return err
		}
	}

	res, err := p.Run(ctx, input)
	if err != nil {
		return err
	}

	if !opts.noRender {
		a.printf("\n%s\n\n%s\n", readableHeader, res.Rendering)
	}

	a.printf("\nArtifact saved to: %s\n", res.ArtifactPath)

	return nil
}

func (a *App) runDumpBatch(ctx context.Context, files []string, opts dumpOptions, pipeOpts []pipeline.Option) error {
	inputs := make([]pipeline.Input, 0, len(files))

	for _, file := range files {
		input, err := userInput(file, opts.grammar)
		if err != nil {
			return err
		}

		inputs = append(inputs, input)
	}

	if opts.output != "" {
		dir, err := cleanUserPath(opts.output)
		if err != nil {
			return err
		}

		pipeOpts = append(pipeOpts, pipeline.WithOutputDir(dir))
	}

	pipeOpts = append(pipeOpts, pipeline.WithoutRender(), pipeline.WithProgress(func(done, total int, path string) {
		a.Logger.Debug("dumped", "done", done, "total", total, "path", path)
	}))

	p, err := a.newPipeline(pipeOpts...)
	if err != nil {
		return err
	}

	workers := opts.workers
	if workers <= 0 {
		workers = a.Config.Parse.Workers
	}

	results, err := p.RunBatch(ctx, inputs, workers)
	if err != nil {
		return err
	}

	for idx, res := range results {
		a.printf("%s -> %s (%s, %d nodes)\n",
			sanitizeForTerminal(inputs[idx].Path), res.ArtifactPath, res.Grammar, res.Stats.Nodes)
	}

	return nil
}

func userInput(path, grammarName string) (pipeline.Input, error) {
	absPath, err := cleanUserPath(path)
	if err != nil {
		return pipeline.Input{}, fmt.Errorf("input: %w", err)
	}

	return pipeline.Input{Path: absPath, Grammar: grammarName}, nil
}
