package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/pipewright/internal/artifact"
	"github.com/lucasnoah/pipewright/internal/pipeline"
)

var artifactCmd = &cobra.Command{
	Use:   "artifact",
	Short: "Inspect stored pipeline artifacts",
}

var artifactListCmd = &cobra.Command{
	Use:   "list <project>",
	Short: "List artifact versions for a pipeline",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := storeFromCmd(cmd)
		if err != nil {
			return err
		}
		ps, err := store.Get(args[0])
		if err != nil {
			return err
		}

		arts := artifact.NewStore(store.ProjectDir(ps.Project))
		arts.Load(ps.Artifacts)

		typeFilter, _ := cmd.Flags().GetString("type")
		entries := arts.List(pipeline.ArtifactType(typeFilter))

		format, _ := cmd.Flags().GetString("format")
		if format == "json" {
			return writeJSON(cmd, entries)
		}

		if len(entries) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No artifacts found.")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "TYPE\tVERSION\tPHASE\tHASH\tPATH")
		for _, e := range entries {
			hash := e.Hash
			if len(hash) > 12 {
				hash = hash[:12]
			}
			fmt.Fprintf(w, "%s\tv%d\t%s\t%s\t%s\n", e.Type, e.Version, e.Phase, hash, e.Path)
		}
		return w.Flush()
	},
}

var artifactVerifyCmd = &cobra.Command{
	Use:   "verify <project>",
	Short: "Recompute every artifact hash and report tampering",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := storeFromCmd(cmd)
		if err != nil {
			return err
		}
		ps, err := store.Get(args[0])
		if err != nil {
			return err
		}

		arts := artifact.NewStore(store.ProjectDir(ps.Project))
		arts.Load(ps.Artifacts)

		w := cmd.OutOrStdout()
		failed := 0
		for i := range ps.Artifacts {
			entry := &ps.Artifacts[i]
			if arts.Verify(entry) {
				fmt.Fprintf(w, "ok    %s\n", artifact.Ref(entry))
			} else {
				failed++
				fmt.Fprintf(w, "FAIL  %s (%s)\n", artifact.Ref(entry), entry.Path)
			}
		}

		if failed > 0 {
			return fmt.Errorf("%d of %d artifact(s) failed verification", failed, len(ps.Artifacts))
		}
		fmt.Fprintf(w, "All %d artifact(s) verified.\n", len(ps.Artifacts))
		return nil
	},
}

func init() {
	artifactListCmd.Flags().String("type", "", "Filter by artifact type (e.g. master_plan, rca_report)")
	artifactListCmd.Flags().String("format", "text", "Output format: text or json")

	artifactCmd.AddCommand(artifactListCmd)
	artifactCmd.AddCommand(artifactVerifyCmd)
}
