package cache

import (
	"fmt"
	"strings"

	"github.com/sarchlab/cachesim/mem/cache/internal/tagging"
)

// WordSize is the number of bytes in a word. Traffic is counted in words.
const WordSize = 4

// Defaults used when a parameter is never set.
const (
	DefaultCacheSize     = 8 * 1024
	DefaultBlockSize     = 16
	DefaultAssociativity = 1
	DefaultWriteBack     = true
	DefaultWriteAlloc    = true
)

// MaxLines bounds the number of lines a single cache may have.
const MaxLines = 1 << 26

// Mode tells whether instructions and data share a cache.
type Mode int

// The modes a configuration can be in. ModeUnset behaves as ModeUnified but
// can still be switched by the first size parameter.
const (
	ModeUnset Mode = iota
	ModeUnified
	ModeSplit
)

func (m Mode) String() string {
	switch m {
	case ModeUnset:
		return "unset"
	case ModeUnified:
		return "unified"
	case ModeSplit:
		return "split"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParamKind names a configuration parameter.
type ParamKind int

// Parameter kinds accepted by SetParameter.
const (
	ParamBlockSize ParamKind = iota
	ParamUnifiedSize
	ParamInstructionSize
	ParamDataSize
	ParamAssociativity
	ParamWriteBack
	ParamWriteThrough
	ParamWriteAllocate
	ParamNoWriteAllocate
	ParamUnified
	ParamSplit
)

var paramNames = map[ParamKind]string{
	ParamBlockSize:       "bs",
	ParamUnifiedSize:     "us",
	ParamInstructionSize: "is",
	ParamDataSize:        "ds",
	ParamAssociativity:   "a",
	ParamWriteBack:       "wb",
	ParamWriteThrough:    "wt",
	ParamWriteAllocate:   "wa",
	ParamNoWriteAllocate: "nw",
	ParamUnified:         "unified",
	ParamSplit:           "split",
}

func (k ParamKind) String() string {
	if name, ok := paramNames[k]; ok {
		return name
	}

	return fmt.Sprintf("ParamKind(%d)", int(k))
}

// ParseParamKind maps the short names used on the command line ("bs", "us",
// "is", "ds", "a", "wb", "wt", "wa", "nw", "unified", "split") to a kind.
func ParseParamKind(name string) (ParamKind, error) {
	name = strings.TrimLeft(strings.ToLower(name), "-")
	for kind, n := range paramNames {
		if n == name {
			return kind, nil
		}
	}

	return 0, &ConfigurationError{Param: name, Err: ErrUnknownParameter}
}

// Config holds the policy knobs of a simulation.
type Config struct {
	Mode            Mode
	UnifiedSize     int
	InstructionSize int
	DataSize        int
	BlockSize       int
	Associativity   int
	WriteBack       bool
	WriteAllocate   bool
}

// DefaultConfig returns a unified 8 KiB direct-mapped cache with 16-byte
// blocks, write-back and write-allocate.
func DefaultConfig() Config {
	return Config{
		Mode:            ModeUnset,
		UnifiedSize:     DefaultCacheSize,
		InstructionSize: DefaultCacheSize,
		DataSize:        DefaultCacheSize,
		BlockSize:       DefaultBlockSize,
		Associativity:   DefaultAssociativity,
		WriteBack:       DefaultWriteBack,
		WriteAllocate:   DefaultWriteAlloc,
	}
}

// Split reports whether instructions and data use separate caches.
func (c Config) Split() bool {
	return c.Mode == ModeSplit
}

// WordsPerBlock returns the block size in words.
func (c Config) WordsPerBlock() int {
	return c.BlockSize / WordSize
}

// SetParameter changes one parameter. The write and allocate policy kinds
// ignore value.
func (c *Config) SetParameter(kind ParamKind, value int) error {
	switch kind {
	case ParamBlockSize:
		return c.setBlockSize(value)
	case ParamUnifiedSize:
		return c.setSize(kind, ModeUnified, &c.UnifiedSize, value)
	case ParamInstructionSize:
		return c.setSize(kind, ModeSplit, &c.InstructionSize, value)
	case ParamDataSize:
		return c.setSize(kind, ModeSplit, &c.DataSize, value)
	case ParamAssociativity:
		if value <= 0 {
			return configErr(kind.String(), value, ErrInvalidValue)
		}

		c.Associativity = value
	case ParamWriteBack:
		c.WriteBack = true
	case ParamWriteThrough:
		c.WriteBack = false
	case ParamWriteAllocate:
		c.WriteAllocate = true
	case ParamNoWriteAllocate:
		c.WriteAllocate = false
	case ParamUnified:
		return c.selectMode(kind, ModeUnified, 0)
	case ParamSplit:
		return c.selectMode(kind, ModeSplit, 0)
	default:
		return configErr(kind.String(), value, ErrUnknownParameter)
	}

	return nil
}

func (c *Config) setBlockSize(value int) error {
	if value <= 0 {
		return configErr(ParamBlockSize.String(), value, ErrInvalidValue)
	}

	if value < WordSize || !tagging.IsPowerOfTwo(uint64(value)) {
		return configErr(ParamBlockSize.String(), value, ErrNotPowerOfTwo)
	}

	c.BlockSize = value

	return nil
}

func (c *Config) setSize(kind ParamKind, mode Mode, dst *int, value int) error {
	if value <= 0 {
		return configErr(kind.String(), value, ErrInvalidValue)
	}

	if err := c.selectMode(kind, mode, value); err != nil {
		return err
	}

	*dst = value

	return nil
}

func (c *Config) selectMode(kind ParamKind, mode Mode, value int) error {
	if c.Mode != ModeUnset && c.Mode != mode {
		return configErr(kind.String(), value,
			fmt.Errorf("%w: already %s, cannot become %s",
				ErrModeConflict, c.Mode, mode))
	}

	c.Mode = mode

	return nil
}

// Validate checks that every cache in use can be built.
func (c Config) Validate() error {
	if c.BlockSize < WordSize || !tagging.IsPowerOfTwo(uint64(c.BlockSize)) {
		return configErr(ParamBlockSize.String(), c.BlockSize, ErrNotPowerOfTwo)
	}

	if c.Associativity <= 0 {
		return configErr(ParamAssociativity.String(), c.Associativity,
			ErrInvalidValue)
	}

	if !c.Split() {
		_, err := c.NumSets(ParamUnifiedSize, c.UnifiedSize)
		return err
	}

	if _, err := c.NumSets(ParamInstructionSize, c.InstructionSize); err != nil {
		return err
	}

	_, err := c.NumSets(ParamDataSize, c.DataSize)

	return err
}

// NumSets derives the number of sets of a cache of the given size.
func (c Config) NumSets(kind ParamKind, size int) (int, error) {
	if size <= 0 {
		return 0, configErr(kind.String(), size, ErrInvalidValue)
	}

	setSize := c.BlockSize * c.Associativity
	if size%setSize != 0 {
		return 0, configErr(kind.String(), size, ErrPartialSet)
	}

	numSets := size / setSize
	if !tagging.IsPowerOfTwo(uint64(numSets)) {
		return 0, configErr(kind.String(), size,
			fmt.Errorf("%w: %d sets", ErrNotPowerOfTwo, numSets))
	}

	if numSets*c.Associativity > MaxLines {
		return 0, configErr(kind.String(), size, ErrTooLarge)
	}

	return numSets, nil
}
