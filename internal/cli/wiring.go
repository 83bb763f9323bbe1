package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/pipewright/internal/checks"
	"github.com/lucasnoah/pipewright/internal/config"
	"github.com/lucasnoah/pipewright/internal/consensus"
	"github.com/lucasnoah/pipewright/internal/db"
	"github.com/lucasnoah/pipewright/internal/gate"
	"github.com/lucasnoah/pipewright/internal/orchestrator"
	"github.com/lucasnoah/pipewright/internal/phase"
	"github.com/lucasnoah/pipewright/internal/pipeline"
	"github.com/lucasnoah/pipewright/internal/qa"
	"github.com/lucasnoah/pipewright/internal/snapshot"
)

// loadConfig reads the config named by --config, or searches the
// default locations, and rejects invalid configs up front.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")

	var cfg *config.Config
	var err error
	if path != "" {
		cfg, err = config.Load(path)
	} else {
		cfg, err = config.LoadDefault()
	}
	if err != nil {
		return nil, err
	}

	if errs := config.Validate(cfg); len(errs) > 0 {
		for _, e := range errs {
			fmt.Fprintf(cmd.ErrOrStderr(), "config: %s\n", e.Error())
		}
		return nil, fmt.Errorf("config has %d validation error(s)", len(errs))
	}
	return cfg, nil
}

// openStore opens the pipeline store at the configured base dir, or
// the default under ~/.pipewright.
func openStore(cfg *config.Config) (*pipeline.Store, error) {
	if cfg != nil && cfg.Pipeline.BaseDir != "" {
		if err := os.MkdirAll(cfg.Pipeline.BaseDir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir %s: %w", cfg.Pipeline.BaseDir, err)
		}
		return pipeline.NewStore(cfg.Pipeline.BaseDir), nil
	}
	return pipeline.DefaultStore()
}

// storeFromCmd opens the pipeline store for read-only commands, which
// should work even without a config file.
func storeFromCmd(cmd *cobra.Command) (*pipeline.Store, error) {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		cfg, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		return openStore(cfg)
	}
	if cfg, err := config.LoadDefault(); err == nil {
		return openStore(cfg)
	}
	return pipeline.DefaultStore()
}

// openDB opens the event database and applies any pending migrations.
func openDB() (*db.DB, error) {
	path, err := db.DefaultDBPath()
	if err != nil {
		return nil, err
	}
	d, err := db.Open(path)
	if err != nil {
		return nil, err
	}
	if err := d.Migrate(); err != nil {
		d.Close()
		return nil, err
	}
	return d, nil
}

// checkConfigs resolves commands for a phase's required checks: the
// config stanza wins, and checks it leaves out fall back to commands
// derived from the project's toolchain.
func checkConfigs(cfg *config.Config, det *qa.Detection, required []pipeline.CheckType) []checks.Config {
	configured := make(map[pipeline.CheckType]bool)
	out := cfg.CheckConfigs(required)
	for _, c := range out {
		configured[c.Type] = true
	}

	for _, ct := range required {
		if configured[ct] {
			continue
		}
		cmd, ok := det.Command(ct)
		if !ok {
			continue
		}
		parser := "generic"
		switch ct {
		case pipeline.CheckTest:
			if det.Toolchain == qa.ToolchainGo {
				parser = "gotest"
			}
		case pipeline.CheckPlaceholderScan:
			parser = "placeholder"
		}
		out = append(out, checks.Config{Type: ct, Command: cmd, Parser: parser})
	}
	return out
}

// buildRegistry registers the built-in handlers: check runners on the
// phases that gate on checks (with a worktree snapshot ahead of the
// implementation checks), reviewer polling on the consensus phases.
func buildRegistry(cfg *config.Config) *phase.Registry {
	reg := phase.NewRegistry()

	det := qa.Detect(cfg.Project.Dir)
	runner := checks.NewRunner(&checks.ExecRunner{})
	for _, p := range gate.ForwardPhases() {
		def, _ := gate.Lookup(p)
		if len(def.RequiredChecks) == 0 {
			continue
		}
		h := phase.ChecksHandler(runner, checkConfigs(cfg, det, def.RequiredChecks))
		if p == pipeline.PhaseImplementation {
			h = phase.Sequence(snapshot.NewHandler(&snapshot.ExecGit{}), h)
		}
		reg.Register(p, h)
	}

	var reviewers []consensus.Reviewer
	for _, r := range cfg.Consensus.Reviewers {
		reviewers = append(reviewers, consensus.NewExecReviewer(r.ID, r.Provider, r.Model))
	}
	opts := consensus.PollOpts{Timeout: cfg.ReviewerTimeout(), Retry: cfg.RetryPolicy()}
	for _, p := range pipeline.AllPhases {
		if p.IsConsensus() {
			reg.Register(p, phase.ConsensusHandler(reviewers, opts))
		}
	}
	return reg
}

// newOrchestrator wires a fully configured orchestrator. The returned
// cleanup closes the event database.
func newOrchestrator(cmd *cobra.Command, project string) (*orchestrator.Orchestrator, func(), error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	if project == "" {
		project = cfg.Project.Name
	}

	store, err := openStore(cfg)
	if err != nil {
		return nil, nil, err
	}
	d, err := openDB()
	if err != nil {
		return nil, nil, err
	}

	orch := orchestrator.New(orchestrator.Options{
		Project:  project,
		Store:    store,
		Events:   d,
		Registry: buildRegistry(cfg),
		Config:   cfg,
		Progress: cmd.OutOrStdout(),
	})
	return orch, func() { d.Close() }, nil
}
