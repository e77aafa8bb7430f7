// Package report prints the outcome of a simulation.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/sarchlab/cachesim/analysis"
	"github.com/sarchlab/cachesim/mem/cache"
	"github.com/sarchlab/cachesim/runner"
)

// A Report collects everything printed after a run.
type Report struct {
	Settings    string        `json:"-"`
	Config      cache.Config  `json:"config"`
	Instruction cache.Stats   `json:"instruction"`
	Data        cache.Stats   `json:"data"`
	Traffic     Traffic       `json:"traffic"`
	Run         runner.Result `json:"run"`

	Misses *MissBreakdown `json:"miss_classes,omitempty"`
}

// Traffic is the memory traffic of both streams, in words.
type Traffic struct {
	DemandFetches uint64 `json:"demand_fetches"`
	CopiesBack    uint64 `json:"copies_back"`
}

// MissBreakdown holds the miss classes of both streams.
type MissBreakdown struct {
	Instruction analysis.Breakdown `json:"instruction"`
	Data        analysis.Breakdown `json:"data"`
}

// Collect builds a report from a simulator that has finished its trace. The
// classifier may be nil.
func Collect(
	sim *cache.Simulator,
	run runner.Result,
	classifier *analysis.MissClassifier,
) Report {
	r := Report{
		Settings:    sim.DescribeConfiguration(),
		Config:      sim.Config(),
		Instruction: sim.Statistics(cache.StreamInstruction),
		Data:        sim.Statistics(cache.StreamData),
		Run:         run,
	}

	r.Traffic.DemandFetches, r.Traffic.CopiesBack = sim.Traffic()

	if classifier != nil {
		r.Misses = &MissBreakdown{
			Instruction: classifier.Breakdown(cache.StreamInstruction),
			Data:        classifier.Breakdown(cache.StreamData),
		}
	}

	return r
}

// PrintSettings writes the configuration dump.
func PrintSettings(w io.Writer, r Report) {
	fmt.Fprint(w, r.Settings)
}

// PrintStats writes the per-stream counters and the total traffic.
func PrintStats(w io.Writer, r Report) {
	fmt.Fprintf(w, "\n*** CACHE STATISTICS ***\n")

	printStream(w, "INSTRUCTIONS", r.Instruction)
	printStream(w, "DATA", r.Data)

	fmt.Fprintf(w, " TRAFFIC (in words)\n")
	fmt.Fprintf(w, "  demand fetch:  %d\n", r.Traffic.DemandFetches)
	fmt.Fprintf(w, "  copies back:   %d\n", r.Traffic.CopiesBack)

	if r.Misses != nil {
		fmt.Fprintf(w, " MISS CLASSES\n")
		printBreakdown(w, "instructions", r.Misses.Instruction)
		printBreakdown(w, "data", r.Misses.Data)
	}
}

func printStream(w io.Writer, title string, s cache.Stats) {
	fmt.Fprintf(w, " %s\n", title)
	fmt.Fprintf(w, "  accesses:  %d\n", s.Accesses)
	fmt.Fprintf(w, "  misses:    %d\n", s.Misses)

	if s.Accesses == 0 {
		fmt.Fprintf(w, "  miss rate: 0 (0)\n")
	} else {
		fmt.Fprintf(w, "  miss rate: %2.4f (hit rate %2.4f)\n",
			s.MissRate(), s.HitRate())
	}

	fmt.Fprintf(w, "  replace:   %d\n", s.Replacements)
}

func printBreakdown(w io.Writer, title string, b analysis.Breakdown) {
	fmt.Fprintf(w, "  %-13s compulsory %d, capacity %d, conflict %d\n",
		title+":", b.Compulsory, b.Capacity, b.Conflict)
}

// Print writes the settings followed by the statistics.
func Print(w io.Writer, r Report) {
	PrintSettings(w, r)
	PrintStats(w, r)
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}

// PrintSweep writes one row per variant.
func PrintSweep(w io.Writer, results []runner.SweepResult) error {
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)

	fmt.Fprintln(tw,
		"variant\ti-accesses\ti-miss rate\td-accesses\td-miss rate\tdemand fetch\tcopies back")

	for _, r := range results {
		total := r.Instruction.Add(r.Data)
		fmt.Fprintf(tw, "%s\t%d\t%.4f\t%d\t%.4f\t%d\t%d\n",
			r.Name,
			r.Instruction.Accesses, r.Instruction.MissRate(),
			r.Data.Accesses, r.Data.MissRate(),
			total.DemandFetches, total.CopiesBack)
	}

	return tw.Flush()
}
