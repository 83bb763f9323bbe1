package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/pipewright/internal/artifact"
	"github.com/lucasnoah/pipewright/internal/gate"
	"github.com/lucasnoah/pipewright/internal/orchestrator"
	"github.com/lucasnoah/pipewright/internal/pipeline"
)

var gateCmd = &cobra.Command{
	Use:   "gate <project>",
	Short: "Re-evaluate a phase gate without advancing the pipeline",
	Long: `Runs the gate evaluator against the persisted state and prints the
verdict. Evaluation is read-only: nothing is saved, no phase handler runs,
so this is safe to use for auditing an in-flight or finished pipeline.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		store, err := openStore(cfg)
		if err != nil {
			return err
		}
		ps, err := store.Get(args[0])
		if err != nil {
			return err
		}

		p := ps.Phase
		if flagPhase, _ := cmd.Flags().GetString("phase"); flagPhase != "" {
			parsed, ok := pipeline.ParsePhase(flagPhase)
			if !ok {
				return fmt.Errorf("unknown phase %q", flagPhase)
			}
			p = parsed
		}

		arts := artifact.NewStore(store.ProjectDir(ps.Project))
		arts.Load(ps.Artifacts)
		overrides := orchestrator.VerifyConstitution(ps, arts, cfg.ConstitutionPath())
		result := gate.Evaluate(p, ps, arts, overrides)

		format, _ := cmd.Flags().GetString("format")
		if format == "json" {
			return writeJSON(cmd, result)
		}

		w := cmd.OutOrStdout()
		verdict := "FAIL"
		if result.Passed {
			verdict = "PASS"
		}
		fmt.Fprintf(w, "%s gate for %s: %s\n", p, ps.Project, verdict)
		if result.Score != nil {
			fmt.Fprintf(w, "  Score: %.2f\n", *result.Score)
		}
		for _, b := range result.Blockers {
			fmt.Fprintf(w, "  - %s\n", b)
		}
		return nil
	},
}

func init() {
	gateCmd.Flags().String("phase", "", "Phase to evaluate (default: the pipeline's current phase)")
	gateCmd.Flags().String("format", "text", "Output format: text or json")
}
