package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/pipewright/internal/pipeline"
)

var consensusCmd = &cobra.Command{
	Use:   "consensus <project> <phase>",
	Short: "Show consensus round history for a phase",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, ok := pipeline.ParsePhase(args[1])
		if !ok {
			return fmt.Errorf("unknown phase %q", args[1])
		}
		if !p.IsConsensus() {
			return fmt.Errorf("%s is not a consensus phase", p)
		}

		d, err := openDB()
		if err != nil {
			return err
		}
		defer d.Close()

		rounds, err := d.ConsensusHistory(args[0], p)
		if err != nil {
			return err
		}

		format, _ := cmd.Flags().GetString("format")
		if format == "json" {
			return writeJSON(cmd, rounds)
		}

		if len(rounds) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No consensus rounds recorded.")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ROUND\tSTATUS\tSCORE\tREVIEWERS\tTIME")
		for _, r := range rounds {
			round := r.RoundID
			if len(round) > 8 {
				round = round[:8]
			}
			fmt.Fprintf(w, "%s\t%s\t%.2f\t%d\t%s\n",
				round, r.Status, r.WeightedScore, r.Participating, r.Timestamp)
		}
		return w.Flush()
	},
}

func init() {
	consensusCmd.Flags().String("format", "text", "Output format: text or json")
}
