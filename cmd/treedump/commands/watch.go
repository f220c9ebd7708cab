package commands

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

const defaultDebounce = 250 * time.Millisecond

func newWatchCommand(app *App) *cobra.Command {
	var opts dumpOptions

	var debounce time.Duration

	cmd := &cobra.Command{
		Use:   "watch <file>",
		Short: "Re-dump a file whenever it changes",
		Long: `Dump a file, then dump it again after every change until interrupted.
Bursts of filesystem events are collapsed into one run.

Examples:
  treedump watch main.py
  treedump watch --no-render -o out.json main.py`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app.applyParseFlags(cmd, opts.format, opts.compress)

			return app.runWatch(cmd.Context(), args[0], opts, debounce)
		},
	}

	cmd.Flags().StringVarP(&opts.grammar, "grammar", "g", "", "grammar name (default: detected, then parse.grammar)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "artifact path")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "json", "artifact format (json, yaml)")
	cmd.Flags().BoolVar(&opts.compress, "compress", false, "LZ4-compress the artifact")
	cmd.Flags().BoolVar(&opts.noRender, "no-render", false, "do not print the readable tree")
	cmd.Flags().DurationVar(&debounce, "debounce", defaultDebounce, "quiet period before re-running")

	return cmd
}

func (a *App) runWatch(ctx context.Context, path string, opts dumpOptions, debounce time.Duration) error {
	absPath, err := cleanUserPath(path)
	if err != nil {
		return err
	}

	dump := func() {
		dumpErr := a.runDump(ctx, []string{absPath}, opts)
		if dumpErr != nil {
			a.Logger.ErrorContext(ctx, "dump failed", "path", absPath, "error", dumpErr)
		}
	}

	// The first run must succeed so a typo in the path is reported at once.
	err = a.runDump(ctx, []string{absPath}, opts)
	if err != nil {
		return err
	}

	a.Logger.InfoContext(ctx, "watching", "path", absPath)

	return watchFile(ctx, absPath, debounce, dump)
}

// watchFile calls onChange after writes to path settle for debounce. The
// parent directory is watched so editors that replace the file by renaming
// are seen too. It returns when ctx is done.
func watchFile(ctx context.Context, path string, debounce time.Duration, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	err = watcher.Add(filepath.Dir(path))
	if err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}

	if debounce <= 0 {
		debounce = defaultDebounce
	}

	timer := time.NewTimer(debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			timer.Stop()

			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if filepath.Clean(event.Name) != path {
				continue
			}

			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}

			timer.Reset(debounce)
		case <-timer.C:
			onChange()
		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			return fmt.Errorf("watch %s: %w", path, watchErr)
		}
	}
}
