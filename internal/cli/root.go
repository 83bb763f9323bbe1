// Package cli wires the pipewright commands.
package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var version = "dev"

func SetVersion(v string) {
	version = v
}

var rootCmd = &cobra.Command{
	Use:   "pipewright",
	Short: "pipewright — governed delivery pipeline engine",
	Long: `pipewright drives a software project through a phased delivery pipeline:
plan, multi-reviewer consensus, implementation, QA, review, audit, and a
production gate, with bounded recovery when a gate fails.

All state is stored in ~/.pipewright/ (SQLite for events, JSON for pipeline
state, content-addressed artifacts under each pipeline's docs/ tree).`,
}

func Execute() error {
	return rootCmd.Execute()
}

func writeJSON(cmd *cobra.Command, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to config YAML (default: ./pipewright.yaml, ~/.pipewright/config.yaml)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(gateCmd)
	rootCmd.AddCommand(artifactCmd)
	rootCmd.AddCommand(consensusCmd)
	rootCmd.AddCommand(dbCmd)
}
