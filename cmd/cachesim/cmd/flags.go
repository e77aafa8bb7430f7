package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/sarchlab/cachesim/mem/cache"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// envPrefix prefixes the environment variables that give cache parameters a
// default, e.g. CACHESIM_BS=32.
const envPrefix = "CACHESIM_"

var sizeParams = []struct {
	kind  cache.ParamKind
	usage string
}{
	{cache.ParamBlockSize, "Block size in bytes."},
	{cache.ParamUnifiedSize, "Unified cache size in bytes."},
	{cache.ParamInstructionSize, "Instruction cache size in bytes (split)."},
	{cache.ParamDataSize, "Data cache size in bytes (split)."},
	{cache.ParamAssociativity, "Number of lines per set."},
}

var policyParams = []struct {
	kind  cache.ParamKind
	usage string
}{
	{cache.ParamWriteBack, "Write back dirty lines on eviction."},
	{cache.ParamWriteThrough, "Write every store to memory."},
	{cache.ParamWriteAllocate, "Allocate a line on a store miss."},
	{cache.ParamNoWriteAllocate, "Send store misses straight to memory."},
}

func addCacheFlags(cmd *cobra.Command) {
	flags := cmd.Flags()

	for _, p := range sizeParams {
		flags.Int(p.kind.String(), 0, p.usage)
	}

	for _, p := range policyParams {
		flags.Bool(p.kind.String(), false, p.usage)
	}

	cmd.MarkFlagsMutuallyExclusive(
		cache.ParamWriteBack.String(), cache.ParamWriteThrough.String())
	cmd.MarkFlagsMutuallyExclusive(
		cache.ParamWriteAllocate.String(), cache.ParamNoWriteAllocate.String())
}

// cacheBuilder turns the cache flags into a builder. Parameters given in the
// environment come first so that flags override them.
func cacheBuilder(flags *pflag.FlagSet) (cache.Builder, error) {
	b := cache.MakeBuilder()

	b, err := applyEnvironment(b, flags)
	if err != nil {
		return b, err
	}

	for _, p := range sizeParams {
		name := p.kind.String()
		if !flags.Changed(name) {
			continue
		}

		value, err := flags.GetInt(name)
		if err != nil {
			return b, err
		}

		b = b.WithParameter(p.kind, value)
	}

	for _, p := range policyParams {
		name := p.kind.String()
		if !flags.Changed(name) {
			continue
		}

		if set, _ := flags.GetBool(name); set {
			b = b.WithParameter(p.kind, 0)
		}
	}

	return b, nil
}

func applyEnvironment(
	b cache.Builder,
	flags *pflag.FlagSet,
) (cache.Builder, error) {
	flagMode := sizeMode(flags)

	for _, p := range sizeParams {
		name := p.kind.String()
		if flags.Changed(name) {
			continue
		}

		// A size of the other mode would contradict the sizes on the
		// command line.
		if mode := paramMode(p.kind); flagMode != cache.ModeUnset &&
			mode != cache.ModeUnset && mode != flagMode {
			continue
		}

		env := envPrefix + strings.ToUpper(name)

		text, ok := os.LookupEnv(env)
		if !ok || text == "" {
			continue
		}

		value, err := strconv.Atoi(text)
		if err != nil {
			return b, fmt.Errorf("%s: %w", env, err)
		}

		b = b.WithParameter(p.kind, value)
	}

	for _, p := range policyParams {
		env := envPrefix + strings.ToUpper(p.kind.String())

		if set, _ := strconv.ParseBool(os.Getenv(env)); set {
			b = b.WithParameter(p.kind, 0)
		}
	}

	return b, nil
}

// sizeMode returns the mode selected by the size flags given on the command
// line.
func sizeMode(flags *pflag.FlagSet) cache.Mode {
	for _, p := range sizeParams {
		if !flags.Changed(p.kind.String()) {
			continue
		}

		if mode := paramMode(p.kind); mode != cache.ModeUnset {
			return mode
		}
	}

	return cache.ModeUnset
}

func paramMode(kind cache.ParamKind) cache.Mode {
	switch kind {
	case cache.ParamUnifiedSize:
		return cache.ModeUnified
	case cache.ParamInstructionSize, cache.ParamDataSize:
		return cache.ModeSplit
	default:
		return cache.ModeUnset
	}
}
