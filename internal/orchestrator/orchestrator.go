// Package orchestrator drives a project pipeline through its phases:
// run the phase handler, evaluate the gate, route failures through
// recovery and drift through change requests, until DONE or STUCK.
package orchestrator

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/lucasnoah/pipewright/internal/artifact"
	"github.com/lucasnoah/pipewright/internal/change"
	"github.com/lucasnoah/pipewright/internal/config"
	"github.com/lucasnoah/pipewright/internal/consensus"
	"github.com/lucasnoah/pipewright/internal/db"
	"github.com/lucasnoah/pipewright/internal/gate"
	"github.com/lucasnoah/pipewright/internal/phase"
	"github.com/lucasnoah/pipewright/internal/pipeline"
	"github.com/lucasnoah/pipewright/internal/recovery"
)

// Orchestrator drives one project's pipeline. The loop is sequential:
// exactly one phase is current at a time and only this type mutates
// the pipeline state, so no locking is needed on it.
type Orchestrator struct {
	project  string
	store    *pipeline.Store
	events   *db.DB
	registry *phase.Registry
	cfg      *config.Config
	progress io.Writer
}

// Options wires an Orchestrator. Events may be nil to skip the event
// log (tests do this).
type Options struct {
	Project  string
	Store    *pipeline.Store
	Events   *db.DB
	Registry *phase.Registry
	Config   *config.Config
	Progress io.Writer
}

// New creates an Orchestrator for one project.
func New(opts Options) *Orchestrator {
	return &Orchestrator{
		project:  opts.Project,
		store:    opts.Store,
		events:   opts.Events,
		registry: opts.Registry,
		cfg:      opts.Config,
		progress: opts.Progress,
	}
}

// logf prints a progress message if a writer is set.
func (o *Orchestrator) logf(format string, args ...any) {
	if o.progress != nil {
		fmt.Fprintf(o.progress, format+"\n", args...)
	}
}

// logEvent records an event row, best effort.
func (o *Orchestrator) logEvent(event string, p pipeline.Phase, detail string) {
	if o.events != nil {
		_ = o.events.LogPipelineEvent(o.project, event, p, detail)
	}
}

// Init creates the pipeline at INTAKE and captures the constitution
// hash — the once-per-project governance anchor every later gate
// re-verifies.
func (o *Orchestrator) Init() (*pipeline.PipelineState, error) {
	_, err := o.store.Create(pipeline.CreateOpts{
		Project:               o.project,
		ProjectDir:            o.cfg.Project.Dir,
		MaxRecoveryIterations: o.cfg.Pipeline.MaxRecoveryIterations,
	})
	if err != nil {
		return nil, fmt.Errorf("create pipeline: %w", err)
	}

	hash, err := HashFile(o.cfg.ConstitutionPath())
	if err != nil {
		return nil, fmt.Errorf("capture constitution: %w", err)
	}

	arts := artifact.NewStore(o.store.ProjectDir(o.project))
	data, err := os.ReadFile(o.cfg.ConstitutionPath())
	if err != nil {
		return nil, fmt.Errorf("read constitution: %w", err)
	}
	entry, err := arts.CreateText(pipeline.ArtifactConstitution, pipeline.PhaseIntake, string(data), "")
	if err != nil {
		return nil, fmt.Errorf("store constitution artifact: %w", err)
	}

	err = o.store.Update(o.project, func(ps *pipeline.PipelineState) {
		ps.ConstitutionHash = hash
		ps.Artifacts = append(ps.Artifacts, *entry)
	})
	if err != nil {
		return nil, fmt.Errorf("record constitution: %w", err)
	}

	o.logEvent("created", pipeline.PhaseIntake, "constitution "+hash[:12])
	o.logf("pipeline %s created at INTAKE (constitution %s)", o.project, hash[:12])
	return o.store.Get(o.project)
}

// StepResult describes what one orchestrator iteration did.
type StepResult struct {
	Project  string          `json:"project"`
	Phase    pipeline.Phase  `json:"phase"`
	Passed   bool            `json:"passed"`
	Blockers []string        `json:"blockers,omitempty"`
	Next     pipeline.Phase  `json:"next"`
	Action   string          `json:"action"` // "advanced", "recovery", "stuck", "routed", "completed", "terminal"
	Routed   *pipeline.Phase `json:"routed,omitempty"`
}

// Step runs one full iteration for the current phase: handler, gate,
// merge, persist, and transition. It is safe to interrupt a pipeline
// between Step calls and resume later from persisted state alone.
func (o *Orchestrator) Step(ctx context.Context) (*StepResult, error) {
	ps, err := o.store.Get(o.project)
	if err != nil {
		return nil, fmt.Errorf("get pipeline: %w", err)
	}

	if ps.Phase.IsTerminal() {
		return &StepResult{Project: o.project, Phase: ps.Phase, Next: ps.Phase, Action: "terminal"}, nil
	}

	started := time.Now()
	current := ps.Phase

	arts := artifact.NewStore(o.store.ProjectDir(o.project))
	arts.Load(ps.Artifacts)
	env := phase.Env{ProjectDir: ps.ProjectDir, Artifacts: arts}

	// 1. Invoke the phase handler, if one is registered. A phase with
	// no handler is evaluated against whatever state already exists —
	// that is what makes cold resume and re-auditing possible.
	if handler, ok := o.registry.Handler(current); ok {
		result, err := handler.Run(ctx, ps, env)
		if err != nil {
			return nil, fmt.Errorf("run %s handler: %w", current, err)
		}
		o.absorb(ps, arts, current, result)
	}

	// 2. Re-verify the constitution and evaluate the gate.
	overrides := VerifyConstitution(ps, arts, o.cfg.ConstitutionPath())
	if !overrides.ConstitutionValid {
		o.logEvent("governance_violation", current, overrides.ConstitutionReason)
	}

	fresh := gate.Evaluate(current, ps, arts, overrides)

	// 3. Merge with any stored result: a consensus score, once paid
	// for, survives re-evaluation even when the verdict changes.
	merged := gate.Merge(ps.GateResults[current], fresh)
	merged.EvaluatedAt = time.Now().UTC().Format(time.RFC3339)
	ps.GateResults[current] = merged

	next, action, routedTo := o.transition(ps, arts, current, merged)

	ps.PhaseLog = append(ps.PhaseLog, pipeline.PhaseLogEntry{
		Phase:    current,
		Passed:   merged.Passed,
		Blockers: len(merged.Blockers),
		Next:     next,
		Duration: time.Since(started).Round(time.Millisecond).String(),
		At:       time.Now().UTC().Format(time.RFC3339),
	})
	ps.Phase = next

	if err := arts.WriteIndex(ps.Artifacts); err != nil {
		return nil, fmt.Errorf("write artifact index: %w", err)
	}
	if err := o.store.Save(ps); err != nil {
		return nil, fmt.Errorf("persist state: %w", err)
	}

	o.logEvent("phase_step", current, fmt.Sprintf("passed=%t next=%s", merged.Passed, next))
	o.logf("%s: %s passed=%t -> %s", o.project, current, merged.Passed, next)

	res := &StepResult{
		Project:  o.project,
		Phase:    current,
		Passed:   merged.Passed,
		Blockers: merged.Blockers,
		Next:     next,
		Action:   action,
	}
	if routedTo != "" {
		res.Routed = &routedTo
	}
	return res, nil
}

// absorb folds a handler's outputs into state: artifacts, check
// results, change requests, and — on consensus phases — the scored
// round plus its consensus artifact.
func (o *Orchestrator) absorb(ps *pipeline.PipelineState, arts *artifact.Store, current pipeline.Phase, result *phase.Result) {
	if result == nil {
		return
	}

	ps.Artifacts = append(ps.Artifacts, result.Artifacts...)

	if len(result.CheckResults) > 0 {
		ps.GateChecks[current] = append(ps.GateChecks[current], result.CheckResults...)
		if o.events != nil {
			for _, cr := range result.CheckResults {
				_ = o.events.LogCheckRun(o.project, current, cr, "")
			}
		}
	}

	ps.PendingChangeRequests = append(ps.PendingChangeRequests, result.ChangeRequests...)

	if current.IsConsensus() && (len(result.Votes) > 0 || result.Arbitration != nil) {
		outcome := consensus.Score(result.Votes, o.cfg.Rules(), result.Arbitration)
		roundID := uuid.NewString()

		ps.Consensus[current] = &pipeline.ConsensusRecord{
			Phase:         current,
			Status:        outcome.Status,
			WeightedScore: outcome.WeightedScore,
			Participating: outcome.Participating,
			RoundID:       roundID,
			CompletedAt:   time.Now().UTC().Format(time.RFC3339),
		}

		if entry, err := arts.CreateJSON(pipeline.ArtifactConsensus, current, outcome, ""); err == nil {
			ps.Artifacts = append(ps.Artifacts, *entry)
		}
		if o.events != nil {
			_ = o.events.LogConsensusRound(o.project, current, roundID, outcome)
		}
	}
}

// transition computes the next phase from a merged gate result.
func (o *Orchestrator) transition(ps *pipeline.PipelineState, arts *artifact.Store, current pipeline.Phase, merged *pipeline.GateResult) (next pipeline.Phase, action string, routedTo pipeline.Phase) {
	if !merged.Passed {
		dec := recovery.OnGateFailure(ps)
		if dec.Exhausted {
			o.logEvent("stuck", current, fmt.Sprintf("recovery budget exhausted after %d iterations", ps.RecoveryCount))
			return pipeline.PhaseStuck, "stuck", ""
		}
		if current != pipeline.PhaseRecoveryLoop {
			ps.RecoveryPhase = current
		}
		ps.RecoveryCount++
		o.logEvent("recovery_entered", current, fmt.Sprintf("count=%d", ps.RecoveryCount))
		return dec.Next, "recovery", ""
	}

	// A successful recovery resumes at the RCA's rewind target, the
	// remembered failed phase, or QA as a last resort.
	if current == pipeline.PhaseRecoveryLoop {
		resume, err := recovery.ResumePhase(ps, arts)
		if err != nil {
			o.logEvent("rca_unusable", current, err.Error())
		}
		ps.RecoveryPhase = ""
		o.logEvent("recovery_resumed", resume, "")
		return resume, "advanced", ""
	}

	// Only REVIEW and AUDIT may route drift, and only one change
	// request per passing gate.
	if current == pipeline.PhaseReview || current == pipeline.PhaseAudit {
		if routed, ok := change.Route(ps); ok {
			ps.PendingChangeRequests[routed.Index].Status = pipeline.CRApproved
			o.logEvent("change_routed", routed.Target, routed.CR.ID)
			return routed.Target, "routed", routed.Target
		}
	}

	def, _ := gate.Lookup(current)
	if def.Next == pipeline.PhaseDone {
		o.logEvent("completed", current, "")
		return pipeline.PhaseDone, "completed", ""
	}
	return def.Next, "advanced", ""
}

// Run steps the pipeline until it reaches a terminal phase or maxSteps
// iterations have run (0 means no step limit).
func (o *Orchestrator) Run(ctx context.Context, maxSteps int) (*StepResult, error) {
	var last *StepResult
	for steps := 0; maxSteps <= 0 || steps < maxSteps; steps++ {
		if err := ctx.Err(); err != nil {
			return last, err
		}
		res, err := o.Step(ctx)
		if err != nil {
			return last, err
		}
		last = res
		if res.Action == "terminal" || res.Next.IsTerminal() {
			break
		}
	}
	return last, nil
}
