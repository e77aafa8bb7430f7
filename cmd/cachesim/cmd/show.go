package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/sarchlab/cachesim/datarecording"
	"github.com/sarchlab/cachesim/mem/trace"
	"github.com/spf13/cobra"
)

func newShowCmd() *cobra.Command {
	showCmd := &cobra.Command{
		Use:   "show database",
		Short: "Print the statistics stored in a recording.",
		Args:  cobra.ExactArgs(1),
		RunE:  showRecording,
	}

	showCmd.Flags().Int("accesses", 0,
		"Also print the first N recorded accesses of each run.")

	return showCmd
}

func showRecording(cmd *cobra.Command, args []string) error {
	reader, err := datarecording.NewReader(args[0])
	if err != nil {
		return err
	}
	defer reader.Close()

	trace.MapTables(reader)

	ctx := cmd.Context()

	rows, _, err := reader.Query(ctx, trace.StatsTableName,
		datarecording.QueryParams{OrderBy: "RunID, Stream"})
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "run\tstream\taccesses\tmisses\tmiss rate\treplace\t"+
		"demand fetch\tcopies back")

	var runIDs []string

	for _, row := range rows {
		s := row.(*trace.StatsEntry)
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%.4f\t%d\t%d\t%d\n",
			s.RunID, s.Stream, s.Accesses, s.Misses, s.MissRate,
			s.Replacements, s.DemandFetches, s.CopiesBack)

		if len(runIDs) == 0 || runIDs[len(runIDs)-1] != s.RunID {
			runIDs = append(runIDs, s.RunID)
		}
	}

	if err := tw.Flush(); err != nil {
		return err
	}

	n, _ := cmd.Flags().GetInt("accesses")
	if n <= 0 {
		return nil
	}

	for _, runID := range runIDs {
		accesses, total, err := reader.Query(ctx, trace.AccessTableName,
			datarecording.QueryParams{
				Where:   "RunID = ?",
				Args:    []any{runID},
				OrderBy: "Seq",
				Limit:   n,
			})
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "\n%s: %d accesses\n", runID, total)

		for _, row := range accesses {
			a := row.(*trace.AccessEntry)
			fmt.Fprintf(cmd.OutOrStdout(), "  %d %s %s 0x%x set %d %s\n",
				a.Seq, a.Stream, a.Kind, a.Address, a.SetID, a.Outcome)
		}
	}

	return nil
}
