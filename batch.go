package xnb

import (
	"context"
	"log"

	"golang.org/x/sync/errgroup"
)

// Batch runs file pairs on a bounded pool of workers. A failing file is
// logged and the batch moves on.
type Batch struct {
	Options
	// Log defaults to log.Default().
	Log *log.Logger
}

func (b *Batch) logger() *log.Logger {
	if b.Log == nil {
		return log.Default()
	}
	return b.Log
}

// Run processes every pair and returns their results in order. Pairs not
// started when ctx is canceled are reported as KindCanceled.
func (b *Batch) Run(ctx context.Context, pairs []FilePair) []Result {
	results := make([]Result, len(pairs))
	workers := b.Config.Workers
	if workers < 1 {
		workers = 1
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, pair := range pairs {
		g.Go(func() error {
			results[i] = b.run(ctx, pair)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (b *Batch) run(ctx context.Context, pair FilePair) Result {
	if err := ctx.Err(); err != nil {
		return newResult(pair, nil, err)
	}

	lg := b.logger()
	var r Result
	switch pair.Mode {
	case ModeExtract:
		lg.Printf("Extracting: %s", pair.Input)
		r = Extract(ctx, pair, b.Options)
	default:
		lg.Printf("Converting: %s", pair.Input)
		r = Convert(ctx, pair, b.Options)
	}

	for _, w := range r.Warnings {
		lg.Printf("Warning: %s: %s", pair.Input, w)
	}
	switch r.Kind {
	case KindSuccess, KindCanceled:
	case KindSkipped:
		lg.Printf("Skipped: %s: %v", pair.Input, r.Err)
	default:
		lg.Printf("Error: %s: %v", pair.Input, r.Err)
	}
	return r
}

// Tally counts results by kind.
func Tally(results []Result) map[Kind]int {
	counts := make(map[Kind]int)
	for _, r := range results {
		counts[r.Kind]++
	}
	return counts
}
