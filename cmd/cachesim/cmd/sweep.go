package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"

	"github.com/sarchlab/cachesim/mem/cache"
	"github.com/sarchlab/cachesim/mem/tracefile"
	"github.com/sarchlab/cachesim/report"
	"github.com/sarchlab/cachesim/runner"
	"github.com/spf13/cobra"
)

func newSweepCmd() *cobra.Command {
	sweepCmd := &cobra.Command{
		Use:   "sweep trace",
		Short: "Run a trace through several cache configurations.",
		Long: "Run a trace through every combination of the listed " +
			"associativities and block sizes. The other cache flags are " +
			"shared by all the configurations.",
		Args: cobra.ExactArgs(1),
		RunE: runSweep,
	}

	addCacheFlags(sweepCmd)
	addTraceFlags(sweepCmd)

	flags := sweepCmd.Flags()
	flags.IntSlice("assoc-list", nil, "Associativities to try.")
	flags.IntSlice("bs-list", nil, "Block sizes to try.")
	flags.Int("parallel", runtime.GOMAXPROCS(0),
		"Maximum number of configurations simulated at the same time.")

	return sweepCmd
}

func runSweep(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	location := args[0]

	if location == "-" {
		return errors.New("sweep reads the trace once per configuration " +
			"and cannot use stdin")
	}

	opts, err := parseTraceFlags(cmd)
	if err != nil {
		return err
	}

	base, err := cacheBuilder(flags)
	if err != nil {
		return err
	}

	assocs, _ := flags.GetIntSlice("assoc-list")
	blockSizes, _ := flags.GetIntSlice("bs-list")
	parallel, _ := flags.GetInt("parallel")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	results, err := runner.Sweep(ctx,
		sweepVariants(base, assocs, blockSizes),
		func(ctx context.Context) (io.ReadCloser, error) {
			return tracefile.Open(ctx, location)
		},
		runner.SweepOptions{
			Parallel: parallel,
			Filter:   opts.filter,
			NoFlush:  opts.noFlush,
			Logger:   slog.Default(),
		})
	if err != nil {
		return err
	}

	if opts.format == "json" {
		return report.WriteJSON(cmd.OutOrStdout(), results)
	}

	return report.PrintSweep(cmd.OutOrStdout(), results)
}

// sweepVariants lists every combination of assocs and blockSizes. An empty
// list keeps the base value.
func sweepVariants(
	base cache.Builder,
	assocs, blockSizes []int,
) []runner.Variant {
	if len(assocs) == 0 {
		assocs = []int{0}
	}

	if len(blockSizes) == 0 {
		blockSizes = []int{0}
	}

	var variants []runner.Variant

	for _, bs := range blockSizes {
		for _, a := range assocs {
			b := base
			name := "base"

			if bs != 0 {
				b = b.WithBlockSize(bs)
				name = fmt.Sprintf("bs=%d", bs)
			}

			if a != 0 {
				b = b.WithAssociativity(a)
				if bs != 0 {
					name = fmt.Sprintf("bs=%d,a=%d", bs, a)
				} else {
					name = fmt.Sprintf("a=%d", a)
				}
			}

			variants = append(variants, runner.Variant{Name: name, Builder: b})
		}
	}

	return variants
}
