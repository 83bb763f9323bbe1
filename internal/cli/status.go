package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/pipewright/internal/pipeline"
)

var statusCmd = &cobra.Command{
	Use:   "status [project]",
	Short: "Show pipeline status, for one project or all of them",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := storeFromCmd(cmd)
		if err != nil {
			return err
		}

		if len(args) == 1 {
			return printStatus(cmd, store, args[0])
		}

		phaseFilter, _ := cmd.Flags().GetString("phase")
		pipelines, err := store.List(pipeline.Phase(phaseFilter))
		if err != nil {
			return err
		}

		format, _ := cmd.Flags().GetString("format")
		if format == "json" {
			return writeJSON(cmd, pipelines)
		}

		if len(pipelines) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No pipelines found.")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "PROJECT\tPHASE\tRECOVERY\tARTIFACTS\tUPDATED")
		for _, ps := range pipelines {
			fmt.Fprintf(w, "%s\t%s\t%d/%d\t%d\t%s\n",
				ps.Project, ps.Phase, ps.RecoveryCount, ps.MaxRecoveryIterations,
				len(ps.Artifacts), ps.UpdatedAt)
		}
		return w.Flush()
	},
}

func printStatus(cmd *cobra.Command, store *pipeline.Store, project string) error {
	ps, err := store.Get(project)
	if err != nil {
		return err
	}

	format, _ := cmd.Flags().GetString("format")
	if format == "json" {
		return writeJSON(cmd, ps)
	}

	hash := ps.ConstitutionHash
	if len(hash) > 12 {
		hash = hash[:12]
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Pipeline %s\n", ps.Project)
	fmt.Fprintf(w, "  Phase:         %s\n", ps.Phase)
	fmt.Fprintf(w, "  Project Dir:   %s\n", ps.ProjectDir)
	fmt.Fprintf(w, "  Recovery:      %d of %d\n", ps.RecoveryCount, ps.MaxRecoveryIterations)
	if ps.RecoveryPhase != "" {
		fmt.Fprintf(w, "  Failed Phase:  %s\n", ps.RecoveryPhase)
	}
	fmt.Fprintf(w, "  Constitution:  %s\n", hash)
	fmt.Fprintf(w, "  Artifacts:     %d\n", len(ps.Artifacts))
	fmt.Fprintf(w, "  Created:       %s\n", ps.CreatedAt)
	fmt.Fprintf(w, "  Updated:       %s\n", ps.UpdatedAt)

	if len(ps.PendingChangeRequests) > 0 {
		fmt.Fprintln(w, "  Change Requests:")
		for _, cr := range ps.PendingChangeRequests {
			fmt.Fprintf(w, "    [%s] %s -> %s: %s\n", cr.Status, cr.Type, cr.TargetPhase, cr.Title)
		}
	}

	if len(ps.PhaseLog) > 0 {
		fmt.Fprintln(w, "  Phase Log:")
		for _, entry := range ps.PhaseLog {
			verdict := "fail"
			if entry.Passed {
				verdict = "pass"
			}
			fmt.Fprintf(w, "    %s: %s (%d blockers, %s) -> %s\n",
				entry.Phase, verdict, entry.Blockers, entry.Duration, entry.Next)
		}
	}
	return nil
}

func init() {
	statusCmd.Flags().String("phase", "", "Filter the listing by phase (e.g. IMPLEMENTATION, STUCK)")
	statusCmd.Flags().String("format", "text", "Output format: text or json")
}
