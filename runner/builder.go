package runner

import (
	"log/slog"

	"github.com/sarchlab/cachesim/mem/cache"
	"github.com/sarchlab/cachesim/mem/tracefile"
	"github.com/sarchlab/cachesim/monitoring"
)

// Builder can build runners.
type Builder struct {
	sim           *cache.Simulator
	filter        *tracefile.Filter
	logger        *slog.Logger
	noFlush       bool
	progressBar   *monitoring.ProgressBar
	progressOwner ProgressOwner
}

// MakeBuilder creates a new builder.
func MakeBuilder() Builder {
	return Builder{}
}

// WithSimulator sets the simulator to drive.
func (b Builder) WithSimulator(sim *cache.Simulator) Builder {
	b.sim = sim
	return b
}

// WithFilter skips the records the filter does not match.
func (b Builder) WithFilter(filter *tracefile.Filter) Builder {
	b.filter = filter
	return b
}

// WithLogger sets the logger.
func (b Builder) WithLogger(logger *slog.Logger) Builder {
	b.logger = logger
	return b
}

// WithoutFlush leaves the caches as they are at the end of the trace.
func (b Builder) WithoutFlush() Builder {
	b.noFlush = true
	return b
}

// WithProgressBar reports every processed record to bar. When owner is not
// nil, the bar is handed back to it once the run returns.
func (b Builder) WithProgressBar(
	bar *monitoring.ProgressBar,
	owner ProgressOwner,
) Builder {
	b.progressBar = bar
	b.progressOwner = owner

	return b
}

// Build creates a runner. It panics if no simulator is given.
func (b Builder) Build() *Runner {
	if b.sim == nil {
		panic("runner needs a simulator")
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Runner{
		sim:           b.sim,
		filter:        b.filter,
		logger:        logger,
		noFlush:       b.noFlush,
		progressBar:   b.progressBar,
		progressOwner: b.progressOwner,
	}
}
