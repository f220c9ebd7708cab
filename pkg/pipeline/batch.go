package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
)

type indexedInput struct {
	input Input
	index int
}

// RunBatch processes inputs with a pool of workers. Inputs without an explicit
// Output are written to the batch output directory as <base name><ext>. Results are returned in
// input order; the first error cancels the remaining work and is returned.
// Inputs that would share an artifact path fail with ErrOutputCollision
// before any file is read.
func (p *Pipeline) RunBatch(ctx context.Context, inputs []Input, workers int) ([]*Result, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	if workers > len(inputs) {
		workers = len(inputs)
	}

	outputDir := p.outputDir
	if outputDir == "" {
		outputDir = p.cfg.Paths.TempDir
	}

	inputs, err := p.assignOutputs(inputs, outputDir)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([]*Result, len(inputs))
	inputCh := make(chan indexedInput, workers)
	total := len(inputs)

	var (
		firstErr  atomic.Value
		completed atomic.Int64
		wg        sync.WaitGroup
	)

	for range workers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for item := range inputCh {
				if firstErr.Load() != nil {
					continue
				}

				in := item.input

				res, err := p.Run(ctx, in)
				if err != nil {
					if firstErr.CompareAndSwap(nil, fmt.Errorf("%s: %w", in.Path, err)) {
						cancel()
					}

					continue
				}

				results[item.index] = res

				done := completed.Add(1)
				if p.progress != nil {
					p.progress(int(done), total, in.Path)
				}
			}
		}()
	}

feed:
	for idx, in := range inputs {
		select {
		case inputCh <- indexedInput{input: in, index: idx}:
		case <-ctx.Done():
			break feed
		}
	}

	close(inputCh)
	wg.Wait()

	if errVal := firstErr.Load(); errVal != nil {
		if err, ok := errVal.(error); ok {
			return results, err
		}
	}

	err = ctx.Err()
	if err != nil {
		return results, fmt.Errorf("batch canceled: %w", err)
	}

	return results, nil
}

// assignOutputs returns a copy of inputs with every Output filled in and
// rejects two inputs that resolve to the same artifact.
func (p *Pipeline) assignOutputs(inputs []Input, outputDir string) ([]Input, error) {
	assigned := make([]Input, len(inputs))
	owners := make(map[string]string, len(inputs))

	for idx, in := range inputs {
		if in.Output == "" {
			in.Output = BatchOutput(outputDir, in.Path, p.codec)
		}

		key := filepath.Clean(in.Output)
		if prev, dup := owners[key]; dup {
			return nil, fmt.Errorf("%w: %s and %s both write %s", ErrOutputCollision, prev, in.Path, key)
		}

		owners[key] = in.Path
		assigned[idx] = in
	}

	return assigned, nil
}
