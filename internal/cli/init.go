package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a pipeline at INTAKE and capture the constitution hash",
	RunE: func(cmd *cobra.Command, args []string) error {
		orch, cleanup, err := newOrchestrator(cmd, "")
		if err != nil {
			return err
		}
		defer cleanup()

		ps, err := orch.Init()
		if err != nil {
			return err
		}

		hash := ps.ConstitutionHash
		if len(hash) > 12 {
			hash = hash[:12]
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Pipeline %s created at %s (constitution %s)\n",
			ps.Project, ps.Phase, hash)
		return nil
	},
}
