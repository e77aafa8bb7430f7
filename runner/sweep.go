package runner

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/sarchlab/cachesim/mem/cache"
	"github.com/sarchlab/cachesim/mem/tracefile"
	"golang.org/x/sync/errgroup"
)

// A Variant is one configuration of a sweep.
type Variant struct {
	Name    string
	Builder cache.Builder
}

// SweepResult is the outcome of one variant.
type SweepResult struct {
	Name        string       `json:"name"`
	Config      cache.Config `json:"config"`
	Run         Result       `json:"run"`
	Instruction cache.Stats  `json:"instruction"`
	Data        cache.Stats  `json:"data"`
}

// TraceOpener opens a fresh copy of the trace for each variant.
type TraceOpener func(ctx context.Context) (io.ReadCloser, error)

// SweepOptions tunes a sweep.
type SweepOptions struct {
	// Parallel bounds the number of variants simulated at the same time.
	// Zero or less means no bound.
	Parallel int
	Filter   *tracefile.Filter
	NoFlush  bool
	Logger   *slog.Logger
}

// Sweep simulates every variant over the same trace. Each variant has its own
// simulator. The results are in the order of variants. The first error
// cancels the remaining variants.
func Sweep(
	ctx context.Context,
	variants []Variant,
	open TraceOpener,
	opts SweepOptions,
) ([]SweepResult, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	results := make([]SweepResult, len(variants))

	g, ctx := errgroup.WithContext(ctx)
	if opts.Parallel > 0 {
		g.SetLimit(opts.Parallel)
	}

	for i, v := range variants {
		g.Go(func() error {
			res, err := runVariant(ctx, v, open, opts, logger)
			if err != nil {
				return fmt.Errorf("%s: %w", v.Name, err)
			}

			results[i] = res

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

func runVariant(
	ctx context.Context,
	v Variant,
	open TraceOpener,
	opts SweepOptions,
	logger *slog.Logger,
) (SweepResult, error) {
	logger = logger.With("variant", v.Name)

	sim, err := v.Builder.WithLogger(logger).Build()
	if err != nil {
		return SweepResult{}, err
	}

	trace, err := open(ctx)
	if err != nil {
		return SweepResult{}, err
	}
	defer trace.Close()

	b := MakeBuilder().
		WithSimulator(sim).
		WithFilter(opts.Filter).
		WithLogger(logger)
	if opts.NoFlush {
		b = b.WithoutFlush()
	}

	run, err := b.Build().Run(ctx, trace)
	if err != nil {
		return SweepResult{}, err
	}

	return SweepResult{
		Name:        v.Name,
		Config:      sim.Config(),
		Run:         run,
		Instruction: sim.Statistics(cache.StreamInstruction),
		Data:        sim.Statistics(cache.StreamData),
	}, nil
}
