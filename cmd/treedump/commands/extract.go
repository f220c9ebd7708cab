package commands

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/treedump/pkg/codenet"
)

type extractFlags struct {
	root           string
	output         string
	sourceLanguage string
	sourceExt      string
	targetLanguage string
	targetExt      string
	noProgress     bool
}

func newExtractCommand(app *App) *cobra.Command {
	var flags extractFlags

	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Extract paired-language solutions from Project CodeNet",
		Long: `For every CodeNet problem with accepted submissions in both languages,
pick the shortest accepted submission of each and write the pair, with the
problem description, as one JSON line.

Examples:
  treedump extract
  treedump extract --root /data/Project_CodeNet --output pairs.jsonl
  treedump extract --source-lang C++ --source-ext cpp`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.runExtract(cmd.Context(), flags)
		},
	}

	cmd.Flags().StringVar(&flags.root, "root", "", "CodeNet root (default: paths.codenet_root)")
	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "JSONL output (default: paths.corpus_output)")
	cmd.Flags().StringVar(&flags.sourceLanguage, "source-lang", "", "first language as named in the metadata")
	cmd.Flags().StringVar(&flags.sourceExt, "source-ext", "", "first language file extension")
	cmd.Flags().StringVar(&flags.targetLanguage, "target-lang", "", "second language as named in the metadata")
	cmd.Flags().StringVar(&flags.targetExt, "target-ext", "", "second language file extension")
	cmd.Flags().BoolVar(&flags.noProgress, "no-progress", false, "disable the progress bar")

	return cmd
}

func (a *App) runExtract(ctx context.Context, flags extractFlags) error {
	opts := codenet.OptionsFromConfig(a.Config)

	overrides := []struct {
		flag   string
		target *string
	}{
		{flags.root, &opts.Root},
		{flags.output, &opts.Output},
		{flags.sourceLanguage, &opts.Source.Name},
		{flags.sourceExt, &opts.Source.Ext},
		{flags.targetLanguage, &opts.Target.Name},
		{flags.targetExt, &opts.Target.Ext},
	}

	for _, override := range overrides {
		if override.flag != "" {
			*override.target = override.flag
		}
	}

	var progressOut io.Writer
	if !flags.noProgress && !a.quiet {
		progressOut = a.Stderr
	}

	summary, err := codenet.NewExtractor(a.Fs, opts, a.Logger, progressOut).Run(ctx)
	if err != nil {
		return err
	}

	if !a.quiet {
		codenet.WriteSummary(a.Stdout, summary)
	}

	return nil
}
