package cache

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownParameter is reported for a parameter kind the configuration
	// does not know.
	ErrUnknownParameter = errors.New("unknown parameter")

	// ErrInvalidValue is reported for non-positive sizes and associativity.
	ErrInvalidValue = errors.New("value must be positive")

	// ErrNotPowerOfTwo is reported when the block size or a derived set
	// count is not a power of two.
	ErrNotPowerOfTwo = errors.New("not a power of two")

	// ErrPartialSet is reported when a cache size is not a multiple of
	// block size times associativity.
	ErrPartialSet = errors.New("cache must have an integer number of sets")

	// ErrModeConflict is reported when unified and split parameters are
	// mixed.
	ErrModeConflict = errors.New("unified and split parameters are mixed")

	// ErrTooLarge is reported when a geometry needs more lines than the
	// simulator is willing to allocate.
	ErrTooLarge = errors.New("cache has too many lines")

	// ErrAlreadyInitialized is reported when configuring a simulator that has
	// been initialized.
	ErrAlreadyInitialized = errors.New("simulator already initialized")
)

// A ConfigurationError describes a parameter that cannot be accepted.
type ConfigurationError struct {
	Param string
	Value int
	Err   error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s=%d: %v", e.Param, e.Value, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

func configErr(param string, value int, err error) error {
	return &ConfigurationError{Param: param, Value: value, Err: err}
}
