// Package recovery decides whether a failed phase retries through the
// recovery loop or the pipeline gives up, and where a successful
// recovery resumes.
package recovery

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lucasnoah/pipewright/internal/pipeline"
)

// ErrMalformedRCA marks an rca_report artifact that failed schema
// validation.
var ErrMalformedRCA = errors.New("malformed rca report")

// RCAReport is the diagnostic record a recovery phase produces. The
// rewind target, when present, names the phase whose decision actually
// caused the failure — an implementation bug traced to a wrong
// architectural call rewinds to ARCHITECTURE, not IMPLEMENTATION.
type RCAReport struct {
	RootCause             string   `json:"root_cause"`
	RequiresPhaseRewindTo string   `json:"requires_phase_rewind_to,omitempty"`
	Findings              []string `json:"findings,omitempty"`
	ProposedFix           string   `json:"proposed_fix,omitempty"`
}

// ParseRCA validates raw RCA output. AI-produced JSON is checked at the
// boundary: a rewind target that is not a real forward phase is
// rejected, never silently dropped.
func ParseRCA(data []byte) (*RCAReport, error) {
	var r RCAReport
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRCA, err)
	}
	if r.RootCause == "" {
		return nil, fmt.Errorf("%w: missing root_cause", ErrMalformedRCA)
	}
	if r.RequiresPhaseRewindTo != "" {
		p, ok := pipeline.ParsePhase(r.RequiresPhaseRewindTo)
		if !ok || p.IsTerminal() || p == pipeline.PhaseRecoveryLoop {
			return nil, fmt.Errorf("%w: invalid rewind target %q", ErrMalformedRCA, r.RequiresPhaseRewindTo)
		}
	}
	return &r, nil
}

// Decision says where the pipeline goes after a gate failure and what
// bookkeeping the orchestrator must apply.
type Decision struct {
	Next      pipeline.Phase
	Exhausted bool // recovery budget spent, pipeline is STUCK
}

// OnGateFailure applies the bounded-recovery rule: once the recovery
// counter reaches the configured maximum the pipeline is STUCK — the
// system's only unconditional failure exit. Otherwise the failed phase
// is remembered and the pipeline enters the recovery loop. State is
// read-only here; the orchestrator records the counter and phase.
func OnGateFailure(st *pipeline.PipelineState) Decision {
	maxIter := st.MaxRecoveryIterations
	if maxIter <= 0 {
		maxIter = pipeline.DefaultMaxRecoveryIterations
	}
	if st.RecoveryCount >= maxIter {
		return Decision{Next: pipeline.PhaseStuck, Exhausted: true}
	}
	return Decision{Next: pipeline.PhaseRecoveryLoop}
}

// Reader is the artifact access the resume logic needs; the artifact
// store implements it.
type Reader interface {
	ReadJSON(*pipeline.ArtifactEntry, interface{}) error
}

// ResumePhase decides where a successful recovery resumes: the rewind
// target named by the most recent rca_report if one exists, else the
// remembered failed phase, else QA_VALIDATION. A malformed RCA falls
// back to the remembered phase and surfaces the parse error so the
// operator can tell diagnosis failure apart from a plain retry.
func ResumePhase(st *pipeline.PipelineState, store Reader) (pipeline.Phase, error) {
	fallback := st.RecoveryPhase
	if fallback == "" || fallback == pipeline.PhaseRecoveryLoop {
		fallback = pipeline.PhaseQAValidation
	}

	entry := st.LatestArtifact(pipeline.ArtifactRCAReport)
	if entry == nil {
		return fallback, nil
	}

	var raw json.RawMessage
	if err := store.ReadJSON(entry, &raw); err != nil {
		return fallback, fmt.Errorf("read rca report: %w", err)
	}
	rca, err := ParseRCA(raw)
	if err != nil {
		return fallback, err
	}

	if rca.RequiresPhaseRewindTo != "" {
		if p, ok := pipeline.ParsePhase(rca.RequiresPhaseRewindTo); ok {
			return p, nil
		}
	}
	return fallback, nil
}
