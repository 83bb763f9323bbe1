package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Drive the pipeline until DONE, STUCK, or a step limit",
	RunE: func(cmd *cobra.Command, args []string) error {
		project, _ := cmd.Flags().GetString("project")
		steps, _ := cmd.Flags().GetInt("steps")

		orch, cleanup, err := newOrchestrator(cmd, project)
		if err != nil {
			return err
		}
		defer cleanup()

		res, err := orch.Run(cmd.Context(), steps)
		if err != nil {
			return err
		}
		if res == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "Nothing to do.")
			return nil
		}

		format, _ := cmd.Flags().GetString("format")
		if format == "json" {
			return writeJSON(cmd, res)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s -> %s (%s)\n", res.Project, res.Phase, res.Next, res.Action)
		return nil
	},
}

func init() {
	runCmd.Flags().String("project", "", "Project name (default: project.name from config)")
	runCmd.Flags().Int("steps", 0, "Maximum number of steps (0 = until terminal)")
	runCmd.Flags().String("format", "text", "Output format: text or json")
}
