package cache

import (
	"log/slog"

	"github.com/sarchlab/cachesim/sim/hooking"
)

// Builder can build cache simulators.
type Builder struct {
	config Config
	params []param
	logger *slog.Logger
	hooks  []hooking.Hook
}

type param struct {
	kind  ParamKind
	value int
}

// MakeBuilder creates a new builder with the default configuration.
func MakeBuilder() Builder {
	return Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b Builder) WithConfig(config Config) Builder {
	b.config = config
	return b
}

// WithParameter records a parameter to apply, in order, at build time.
func (b Builder) WithParameter(kind ParamKind, value int) Builder {
	b.params = append(append([]param(nil), b.params...), param{kind, value})
	return b
}

// WithBlockSize sets the block size in bytes.
func (b Builder) WithBlockSize(blockSize int) Builder {
	return b.WithParameter(ParamBlockSize, blockSize)
}

// WithUnifiedSize selects a unified cache of the given size in bytes.
func (b Builder) WithUnifiedSize(size int) Builder {
	return b.WithParameter(ParamUnifiedSize, size)
}

// WithSplitSizes selects separate instruction and data caches.
func (b Builder) WithSplitSizes(instructionSize, dataSize int) Builder {
	return b.
		WithParameter(ParamInstructionSize, instructionSize).
		WithParameter(ParamDataSize, dataSize)
}

// WithAssociativity sets the number of lines per set.
func (b Builder) WithAssociativity(ways int) Builder {
	return b.WithParameter(ParamAssociativity, ways)
}

// WithWriteBack selects write-back (true) or write-through (false).
func (b Builder) WithWriteBack(writeBack bool) Builder {
	if writeBack {
		return b.WithParameter(ParamWriteBack, 0)
	}

	return b.WithParameter(ParamWriteThrough, 0)
}

// WithWriteAllocate selects write-allocate (true) or no-write-allocate
// (false).
func (b Builder) WithWriteAllocate(writeAllocate bool) Builder {
	if writeAllocate {
		return b.WithParameter(ParamWriteAllocate, 0)
	}

	return b.WithParameter(ParamNoWriteAllocate, 0)
}

// WithLogger sets the logger of the simulator.
func (b Builder) WithLogger(logger *slog.Logger) Builder {
	b.logger = logger
	return b
}

// WithHook registers a hook on the simulator.
func (b Builder) WithHook(hook hooking.Hook) Builder {
	b.hooks = append(append([]hooking.Hook(nil), b.hooks...), hook)
	return b
}

// Build applies the parameters and returns an initialized simulator.
func (b Builder) Build() (*Simulator, error) {
	s := NewSimulator(b.config)
	s.SetLogger(b.logger)

	for _, p := range b.params {
		if err := s.Configure(p.kind, p.value); err != nil {
			return nil, err
		}
	}

	if err := s.Initialize(); err != nil {
		return nil, err
	}

	for _, h := range b.hooks {
		s.AcceptHook(h)
	}

	return s, nil
}
