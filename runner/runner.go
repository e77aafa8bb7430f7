// Package runner drives memory reference traces through cache simulators.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/sarchlab/cachesim/mem/cache"
	"github.com/sarchlab/cachesim/mem/tracefile"
	"github.com/sarchlab/cachesim/monitoring"
)

// cancelCheckInterval is how many records are processed between two checks
// of the context.
const cancelCheckInterval = 1024

// Result summarizes a run.
type Result struct {
	Records uint64 `json:"records"`
	Skipped uint64 `json:"skipped"`
}

// A ProgressOwner shows progress bars and takes them down when a run ends.
// monitoring.Monitor is one.
type ProgressOwner interface {
	CompleteProgressBar(pb *monitoring.ProgressBar)
}

// A Runner feeds the records of a trace into a simulator. The simulator may
// be inspected from other goroutines while the runner is running.
type Runner struct {
	lock sync.Mutex
	sim  *cache.Simulator

	filter      *tracefile.Filter
	logger      *slog.Logger
	noFlush     bool
	progressBar   *monitoring.ProgressBar
	progressOwner ProgressOwner

	records atomic.Uint64
	skipped atomic.Uint64
}

// Inspect calls fn while no access is being processed.
func (r *Runner) Inspect(fn func(s *cache.Simulator)) {
	r.lock.Lock()
	defer r.lock.Unlock()

	fn(r.sim)
}

// Simulator returns the simulator driven by the runner.
func (r *Runner) Simulator() *cache.Simulator {
	return r.sim
}

// Progress returns how many records have been processed and skipped so far.
func (r *Runner) Progress() Result {
	return Result{
		Records: r.records.Load(),
		Skipped: r.skipped.Load(),
	}
}

// Run processes every record of trace and then flushes the caches. It stops
// early if ctx is cancelled or the trace is malformed; in that case the
// caches are not flushed.
func (r *Runner) Run(ctx context.Context, trace io.Reader) (Result, error) {
	if r.progressBar != nil && r.progressOwner != nil {
		defer r.progressOwner.CompleteProgressBar(r.progressBar)
	}

	reader := tracefile.NewReader(trace)

	r.logger.Debug("trace started")

	for n := 0; ; n++ {
		if n%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return r.Progress(), err
			}
		}

		rec, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return r.Progress(), err
		}

		if err := r.process(rec); err != nil {
			return r.Progress(), err
		}
	}

	if !r.noFlush {
		r.Inspect(func(s *cache.Simulator) { s.Flush() })
	}

	result := r.Progress()

	r.logger.Info("trace completed",
		"records", result.Records,
		"skipped", result.Skipped,
		"lines", reader.LinesRead(),
	)

	return result, nil
}

func (r *Runner) process(rec tracefile.Record) error {
	if r.filter != nil {
		match, err := r.filter.Match(rec)
		if err != nil {
			return fmt.Errorf("line %d: %w", rec.Line, err)
		}

		if !match {
			r.skipped.Add(1)
			return nil
		}
	}

	r.lock.Lock()
	r.sim.ProcessAccess(rec.Address, rec.Kind)
	r.lock.Unlock()

	r.records.Add(1)

	if r.progressBar != nil {
		r.progressBar.IncrementFinished(1)
	}

	return nil
}
