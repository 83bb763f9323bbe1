package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lucasnoah/pipewright/internal/config"
	"github.com/lucasnoah/pipewright/internal/consensus"
	"github.com/lucasnoah/pipewright/internal/phase"
	"github.com/lucasnoah/pipewright/internal/pipeline"
	"github.com/lucasnoah/pipewright/internal/recovery"
)

func testConfig(t *testing.T, maxRecovery int) *config.Config {
	t.Helper()

	projectDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(projectDir, "CONSTITUTION.md"), []byte("# Rules\nShip working software.\n"), 0o644); err != nil {
		t.Fatalf("write constitution: %v", err)
	}

	cfg := &config.Config{}
	cfg.Project.Name = "widget"
	cfg.Project.Dir = projectDir
	cfg.Project.Constitution = "CONSTITUTION.md"
	cfg.Pipeline.MaxRecoveryIterations = maxRecovery
	cfg.Consensus.Threshold = 0.85
	cfg.Consensus.Quorum = 2
	return cfg
}

func newTestOrchestrator(t *testing.T, cfg *config.Config, reg *phase.Registry) (*Orchestrator, *pipeline.Store) {
	t.Helper()

	store := pipeline.NewStore(t.TempDir())
	orch := New(Options{
		Project:  "widget",
		Store:    store,
		Registry: reg,
		Config:   cfg,
	})
	return orch, store
}

// artifactHandler produces one text artifact per type, plus passing
// results for the given checks.
func artifactHandler(types []pipeline.ArtifactType, checks []pipeline.CheckType) phase.Handler {
	return phase.Func(func(ctx context.Context, st *pipeline.PipelineState, env phase.Env) (*phase.Result, error) {
		res := &phase.Result{}
		for _, typ := range types {
			entry, err := env.Artifacts.CreateText(typ, st.Phase, "content for "+string(typ), "")
			if err != nil {
				return nil, err
			}
			res.Artifacts = append(res.Artifacts, *entry)
		}
		for _, c := range checks {
			res.CheckResults = append(res.CheckResults, pipeline.CheckResult{Type: c, Status: "pass"})
		}
		return res, nil
	})
}

func approvingVotes() phase.Handler {
	return phase.Func(func(ctx context.Context, st *pipeline.PipelineState, env phase.Env) (*phase.Result, error) {
		return &phase.Result{Votes: []consensus.ReviewerVote{
			{ReviewerID: "security", Vote: consensus.VoteApprove, Confidence: 1.0},
			{ReviewerID: "architecture", Vote: consensus.VoteApprove, Confidence: 1.0},
		}}, nil
	})
}

// happyRegistry wires handlers that satisfy every forward gate.
func happyRegistry() *phase.Registry {
	reg := phase.NewRegistry()
	reg.Register(pipeline.PhaseIntake,
		artifactHandler([]pipeline.ArtifactType{pipeline.ArtifactMasterPlan}, nil))
	reg.Register(pipeline.PhaseArchitecture,
		artifactHandler([]pipeline.ArtifactType{pipeline.ArtifactArchitecture, pipeline.ArtifactDependencyGraph}, nil))
	reg.Register(pipeline.PhaseRolePlanning,
		artifactHandler([]pipeline.ArtifactType{pipeline.ArtifactRolePlan}, nil))
	reg.Register(pipeline.PhaseImplementation,
		artifactHandler([]pipeline.ArtifactType{pipeline.ArtifactImplementationLog, pipeline.ArtifactRepoSnapshot},
			[]pipeline.CheckType{pipeline.CheckBuild, pipeline.CheckLint, pipeline.CheckTypecheck}))
	reg.Register(pipeline.PhaseQAValidation,
		artifactHandler([]pipeline.ArtifactType{pipeline.ArtifactQAValidation},
			[]pipeline.CheckType{pipeline.CheckTest, pipeline.CheckPlaceholderScan, pipeline.CheckEnv}))
	reg.Register(pipeline.PhaseReview,
		artifactHandler([]pipeline.ArtifactType{pipeline.ArtifactReviewDecision}, nil))
	reg.Register(pipeline.PhaseAudit,
		artifactHandler([]pipeline.ArtifactType{pipeline.ArtifactAuditReport}, nil))
	reg.Register(pipeline.PhaseProductionGate,
		artifactHandler([]pipeline.ArtifactType{pipeline.ArtifactProductionReadiness, pipeline.ArtifactReleaseNotes},
			[]pipeline.CheckType{pipeline.CheckBuild, pipeline.CheckTest, pipeline.CheckStart, pipeline.CheckMigration}))

	for _, p := range pipeline.AllPhases {
		if p.IsConsensus() {
			reg.Register(p, approvingVotes())
		}
	}
	return reg
}

func TestInitCapturesConstitution(t *testing.T) {
	cfg := testConfig(t, 0)
	orch, store := newTestOrchestrator(t, cfg, phase.NewRegistry())

	ps, err := orch.Init()
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if ps.Phase != pipeline.PhaseIntake {
		t.Errorf("Phase = %s, want INTAKE", ps.Phase)
	}
	if ps.ConstitutionHash == "" {
		t.Error("ConstitutionHash should be captured")
	}
	if ps.LatestArtifact(pipeline.ArtifactConstitution) == nil {
		t.Error("constitution artifact should be stored at init")
	}

	got, err := store.Get("widget")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ConstitutionHash != ps.ConstitutionHash {
		t.Error("constitution hash should be persisted")
	}
}

func TestFullForwardRunReachesDone(t *testing.T) {
	cfg := testConfig(t, 0)
	orch, store := newTestOrchestrator(t, cfg, happyRegistry())

	if _, err := orch.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}

	last, err := orch.Run(context.Background(), 0)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if last == nil || last.Next != pipeline.PhaseDone {
		t.Fatalf("last step = %+v, want DONE", last)
	}

	ps, err := store.Get("widget")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ps.Phase != pipeline.PhaseDone {
		t.Errorf("final phase = %s, want DONE", ps.Phase)
	}
	if ps.RecoveryCount != 0 {
		t.Errorf("RecoveryCount = %d, want 0 on a clean run", ps.RecoveryCount)
	}
	if len(ps.PhaseLog) != 11 {
		t.Errorf("PhaseLog has %d entries, want 11 forward phases", len(ps.PhaseLog))
	}
	for _, entry := range ps.PhaseLog {
		if !entry.Passed {
			t.Errorf("phase %s did not pass: %+v", entry.Phase, entry)
		}
	}

	// Consensus phases carry their scored rounds and echoed scores.
	for _, p := range pipeline.AllPhases {
		if !p.IsConsensus() {
			continue
		}
		rec := ps.Consensus[p]
		if rec == nil {
			t.Errorf("no consensus record for %s", p)
			continue
		}
		if rec.WeightedScore != 1.0 || rec.Status != consensus.StatusApproved {
			t.Errorf("%s consensus = %+v", p, rec)
		}
		gr := ps.GateResults[p]
		if gr == nil || gr.Score == nil || *gr.Score != 1.0 {
			t.Errorf("%s gate result missing echoed score: %+v", p, gr)
		}
	}

	// The artifact index is regenerated alongside the state.
	if _, err := os.Stat(filepath.Join(store.ProjectDir("widget"), "docs", "INDEX.md")); err != nil {
		t.Errorf("docs/INDEX.md missing: %v", err)
	}
}

func TestAlwaysFailingPipelineGetsStuck(t *testing.T) {
	cfg := testConfig(t, 3)
	// No handlers at all: every gate fails on missing artifacts.
	orch, store := newTestOrchestrator(t, cfg, phase.NewRegistry())

	if _, err := orch.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}

	last, err := orch.Run(context.Background(), 50)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if last.Next != pipeline.PhaseStuck {
		t.Fatalf("last step next = %s, want STUCK", last.Next)
	}

	ps, err := store.Get("widget")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ps.Phase != pipeline.PhaseStuck {
		t.Errorf("final phase = %s, want STUCK", ps.Phase)
	}
	if ps.RecoveryCount != 3 {
		t.Errorf("RecoveryCount = %d, want the full budget of 3", ps.RecoveryCount)
	}
	// The first failure was remembered, not overwritten by the recovery
	// loop's own failures.
	if ps.RecoveryPhase != pipeline.PhaseIntake {
		t.Errorf("RecoveryPhase = %s, want INTAKE", ps.RecoveryPhase)
	}
}

func TestStuckPipelineStaysStuck(t *testing.T) {
	cfg := testConfig(t, 1)
	orch, store := newTestOrchestrator(t, cfg, phase.NewRegistry())

	if _, err := orch.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if _, err := orch.Run(context.Background(), 50); err != nil {
		t.Fatalf("Run: %v", err)
	}

	res, err := orch.Step(context.Background())
	if err != nil {
		t.Fatalf("Step on terminal: %v", err)
	}
	if res.Action != "terminal" || res.Next != pipeline.PhaseStuck {
		t.Errorf("step on STUCK = %+v, want a terminal no-op", res)
	}

	ps, _ := store.Get("widget")
	if ps.Phase != pipeline.PhaseStuck {
		t.Errorf("phase = %s after terminal step", ps.Phase)
	}
}

func TestChangeRequestPreemptsAuditSuccessor(t *testing.T) {
	cfg := testConfig(t, 0)

	reg := phase.NewRegistry()
	reg.Register(pipeline.PhaseAudit, phase.Func(func(ctx context.Context, st *pipeline.PipelineState, env phase.Env) (*phase.Result, error) {
		entry, err := env.Artifacts.CreateText(pipeline.ArtifactAuditReport, st.Phase, "audit ok", "")
		if err != nil {
			return nil, err
		}
		return &phase.Result{
			Artifacts: []pipeline.ArtifactEntry{*entry},
			ChangeRequests: []pipeline.ChangeRequest{{
				ID:     "cr-1",
				Type:   pipeline.ChangeArchitecture,
				Status: pipeline.CRProposed,
				Title:  "event schema drifted",
			}},
		}, nil
	}))

	orch, store := newTestOrchestrator(t, cfg, reg)
	if _, err := orch.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := store.Update("widget", func(ps *pipeline.PipelineState) {
		ps.Phase = pipeline.PhaseAudit
	}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	res, err := orch.Step(context.Background())
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if !res.Passed {
		t.Fatalf("audit gate failed: %v", res.Blockers)
	}
	if res.Action != "routed" {
		t.Errorf("Action = %q, want routed", res.Action)
	}
	if res.Next != pipeline.PhaseConsensusArchitecture {
		t.Errorf("Next = %s, want CONSENSUS_ARCHITECTURE — the CR pre-empts PRODUCTION_GATE", res.Next)
	}

	ps, _ := store.Get("widget")
	if ps.Phase != pipeline.PhaseConsensusArchitecture {
		t.Errorf("phase = %s", ps.Phase)
	}
	if len(ps.PendingChangeRequests) != 1 || ps.PendingChangeRequests[0].Status != pipeline.CRApproved {
		t.Errorf("change request not approved: %+v", ps.PendingChangeRequests)
	}
}

func TestRecoveryResumesAtRewindTarget(t *testing.T) {
	cfg := testConfig(t, 0)

	reg := phase.NewRegistry()
	reg.Register(pipeline.PhaseRecoveryLoop, phase.Func(func(ctx context.Context, st *pipeline.PipelineState, env phase.Env) (*phase.Result, error) {
		rca, err := env.Artifacts.CreateJSON(pipeline.ArtifactRCAReport, st.Phase,
			recovery.RCAReport{RootCause: "wrong data model", RequiresPhaseRewindTo: "ARCHITECTURE"}, "")
		if err != nil {
			return nil, err
		}
		log, err := env.Artifacts.CreateText(pipeline.ArtifactRecoveryLog, st.Phase, "rolled back migration", "")
		if err != nil {
			return nil, err
		}
		return &phase.Result{Artifacts: []pipeline.ArtifactEntry{*rca, *log}}, nil
	}))

	orch, store := newTestOrchestrator(t, cfg, reg)
	if _, err := orch.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := store.Update("widget", func(ps *pipeline.PipelineState) {
		ps.Phase = pipeline.PhaseRecoveryLoop
		ps.RecoveryPhase = pipeline.PhaseImplementation
		ps.RecoveryCount = 1
	}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	res, err := orch.Step(context.Background())
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if !res.Passed {
		t.Fatalf("recovery gate failed: %v", res.Blockers)
	}
	if res.Next != pipeline.PhaseArchitecture {
		t.Errorf("Next = %s, want the RCA rewind target ARCHITECTURE", res.Next)
	}

	ps, _ := store.Get("widget")
	if ps.RecoveryPhase != "" {
		t.Errorf("RecoveryPhase = %s, want cleared after resume", ps.RecoveryPhase)
	}
	if ps.RecoveryCount != 1 {
		t.Errorf("RecoveryCount = %d, a successful recovery does not refund the budget", ps.RecoveryCount)
	}
}

func TestConstitutionTamperVetoesGate(t *testing.T) {
	cfg := testConfig(t, 0)
	orch, _ := newTestOrchestrator(t, cfg, happyRegistry())

	if _, err := orch.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}

	// Rewrite the governance document after intake.
	if err := os.WriteFile(cfg.ConstitutionPath(), []byte("# Rules\nShip whatever.\n"), 0o644); err != nil {
		t.Fatalf("tamper: %v", err)
	}

	res, err := orch.Step(context.Background())
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if res.Passed {
		t.Fatal("tampered constitution must veto the gate")
	}
	found := false
	for _, b := range res.Blockers {
		if strings.HasPrefix(b, "constitution:") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a constitution-prefixed blocker, got %v", res.Blockers)
	}
	if res.Action != "recovery" {
		t.Errorf("Action = %q, want recovery", res.Action)
	}
}

func TestStoredConsensusScoreSurvivesReEvaluation(t *testing.T) {
	cfg := testConfig(t, 0)
	orch, store := newTestOrchestrator(t, cfg, happyRegistry())

	if _, err := orch.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}

	// Advance through INTAKE and the master-plan consensus round.
	for i := 0; i < 2; i++ {
		if _, err := orch.Step(context.Background()); err != nil {
			t.Fatalf("Step %d: %v", i, err)
		}
	}

	ps, _ := store.Get("widget")
	gr := ps.GateResults[pipeline.PhaseConsensusMasterPlan]
	if gr == nil || gr.Score == nil || *gr.Score != 1.0 {
		t.Fatalf("consensus gate result = %+v, want score 1.0", gr)
	}

	// Wipe the consensus record and re-run the phase: the fresh
	// evaluation fails, but the paid-for score is carried forward.
	if err := store.Update("widget", func(ps *pipeline.PipelineState) {
		ps.Phase = pipeline.PhaseConsensusMasterPlan
		delete(ps.Consensus, pipeline.PhaseConsensusMasterPlan)
	}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	// A registry without the consensus handler, so no new round runs.
	orch2 := New(Options{Project: "widget", Store: store, Registry: phase.NewRegistry(), Config: cfg})

	res, err := orch2.Step(context.Background())
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if res.Passed {
		t.Fatal("gate should fail with the round wiped")
	}

	ps, _ = store.Get("widget")
	gr = ps.GateResults[pipeline.PhaseConsensusMasterPlan]
	if gr == nil || gr.Score == nil || *gr.Score != 1.0 {
		t.Errorf("stored score lost on re-evaluation: %+v", gr)
	}
	if gr != nil && gr.Passed {
		t.Error("Passed must reflect the fresh evaluation")
	}
}
