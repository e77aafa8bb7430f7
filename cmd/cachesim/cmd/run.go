package cmd

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"

	"github.com/pkg/browser"
	"github.com/rs/xid"
	"github.com/sarchlab/cachesim/analysis"
	"github.com/sarchlab/cachesim/datarecording"
	"github.com/sarchlab/cachesim/mem/cache"
	"github.com/sarchlab/cachesim/mem/trace"
	"github.com/sarchlab/cachesim/mem/tracefile"
	"github.com/sarchlab/cachesim/monitoring"
	"github.com/sarchlab/cachesim/report"
	"github.com/sarchlab/cachesim/runner"
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run [trace]",
		Short: "Run a trace through the cache and print the statistics.",
		Long: "Run a trace through the cache and print the statistics. The " +
			"trace is a local file, - for stdin, or s3://bucket/key, and may " +
			"be compressed with gzip, zstd or lz4.",
		Args: cobra.MaximumNArgs(1),
		RunE: runTrace,
	}

	addCacheFlags(runCmd)
	addTraceFlags(runCmd)

	flags := runCmd.Flags()
	flags.String("record", "",
		"Record every access into an SQLite database with this name, or "+
			"into ClickHouse when given a clickhouse://host:port/db URL.")
	flags.Bool("classify", false,
		"Split misses into compulsory, capacity and conflict misses.")
	flags.Bool("print-accesses", false, "Print every access to stderr.")
	flags.Int("monitor", 0, "Serve the monitor on this port.")
	flags.Lookup("monitor").NoOptDefVal = "-1"
	flags.Bool("open", false, "Open the monitor in a browser.")

	return runCmd
}

func addTraceFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.String("filter", "",
		"Only simulate records matching this CEL expression over addr, kind "+
			"and line.")
	flags.String("format", "text", "Output format: text or json.")
	flags.Bool("no-flush", false,
		"Do not write back dirty lines at the end of the trace.")
}

type traceOptions struct {
	filter  *tracefile.Filter
	format  string
	noFlush bool
}

func parseTraceFlags(cmd *cobra.Command) (traceOptions, error) {
	flags := cmd.Flags()

	var opts traceOptions

	opts.format, _ = flags.GetString("format")
	if opts.format != "text" && opts.format != "json" {
		return opts, fmt.Errorf("unknown format %q", opts.format)
	}

	opts.noFlush, _ = flags.GetBool("no-flush")

	expr, _ := flags.GetString("filter")
	if expr != "" {
		filter, err := tracefile.NewFilter(expr)
		if err != nil {
			return opts, err
		}

		opts.filter = filter
	}

	return opts, nil
}

func traceLocation(args []string) string {
	if len(args) == 0 {
		return "-"
	}

	return args[0]
}

func runTrace(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()

	opts, err := parseTraceFlags(cmd)
	if err != nil {
		return err
	}

	builder, err := cacheBuilder(flags)
	if err != nil {
		return err
	}

	sim, err := builder.WithLogger(slog.Default()).Build()
	if err != nil {
		return err
	}

	var classifier *analysis.MissClassifier
	if classify, _ := flags.GetBool("classify"); classify {
		classifier = analysis.NewMissClassifier(sim)
		sim.AcceptHook(classifier)
	}

	if printAccesses, _ := flags.GetBool("print-accesses"); printAccesses {
		sim.AcceptHook(trace.NewTracer(log.New(cmd.ErrOrStderr(), "", 0)))
	}

	finishRecording, err := startRecording(cmd, sim)
	if err != nil {
		return err
	}
	defer finishRecording()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	location := traceLocation(args)

	src, err := tracefile.Open(ctx, location)
	if err != nil {
		return err
	}
	defer src.Close()

	rb := runner.MakeBuilder().
		WithSimulator(sim).
		WithFilter(opts.filter).
		WithLogger(slog.Default().With("trace", location))
	if opts.noFlush {
		rb = rb.WithoutFlush()
	}

	r := startMonitor(cmd, sim, rb, location)

	result, err := r.Run(ctx, src)
	if err != nil {
		return err
	}

	rep := report.Collect(sim, result, classifier)
	if opts.format == "json" {
		return report.WriteJSON(cmd.OutOrStdout(), rep)
	}

	report.Print(cmd.OutOrStdout(), rep)

	return nil
}

// startRecording attaches a database tracer if --record is given and returns
// the function that completes the recording. Failed runs are completed too.
func startRecording(
	cmd *cobra.Command,
	sim *cache.Simulator,
) (func(), error) {
	if !cmd.Flags().Changed("record") {
		return func() {}, nil
	}

	location, _ := cmd.Flags().GetString("record")

	recorder, err := datarecording.Open(location)
	if err != nil {
		return nil, err
	}
	runID := xid.New().String()

	execRecorder := datarecording.NewExecRecorder(recorder)
	execRecorder.Start()
	execRecorder.Record("Run ID", runID)
	execRecorder.Record("Settings", sim.DescribeConfiguration())

	sim.AcceptHook(trace.NewDBTracer(recorder, runID))

	return func() {
		trace.RecordStats(recorder, runID, sim)
		execRecorder.End()
	}, nil
}

// startMonitor builds the runner and, if --monitor is given, serves it.
func startMonitor(
	cmd *cobra.Command,
	sim *cache.Simulator,
	rb runner.Builder,
	location string,
) *runner.Runner {
	flags := cmd.Flags()
	if !flags.Changed("monitor") {
		return rb.Build()
	}

	port, _ := flags.GetInt("monitor")
	if port < 0 {
		port = 0
	}

	m := monitoring.NewMonitor().WithPortNumber(port)
	sim.AcceptHook(monitoring.NewMetricsHook(m.Registry(), "cachesim", nil))

	r := rb.WithProgressBar(m.CreateProgressBar(location, 0), m).Build()
	m.RegisterInspector(r)

	url := m.StartServer()

	if open, _ := flags.GetBool("open"); open {
		if err := browser.OpenURL(url); err != nil {
			slog.Warn("cannot open browser", "url", url, "error", err)
		}
	}

	return r
}
