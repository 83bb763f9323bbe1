// Package change routes approved drift back to the consensus phase that
// must re-approve it.
package change

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lucasnoah/pipewright/internal/pipeline"
)

// targets maps each change type to the consensus phase that re-approves
// it. Scope and requirement drift reopen the master plan; architecture
// drift reopens the architecture consensus; dependency drift reopens
// role plans; config drift only needs QA revalidation.
var targets = map[pipeline.ChangeType]pipeline.Phase{
	pipeline.ChangeScope:        pipeline.PhaseConsensusMasterPlan,
	pipeline.ChangeRequirement:  pipeline.PhaseConsensusMasterPlan,
	pipeline.ChangeArchitecture: pipeline.PhaseConsensusArchitecture,
	pipeline.ChangeDependency:   pipeline.PhaseConsensusRolePlans,
	pipeline.ChangeConfig:       pipeline.PhaseQAValidation,
}

// TargetPhase returns the re-approval phase for a change type.
func TargetPhase(t pipeline.ChangeType) (pipeline.Phase, bool) {
	p, ok := targets[t]
	return p, ok
}

// New builds a proposed change request with its target phase resolved
// from the change type.
func New(t pipeline.ChangeType, title, impact string) (*pipeline.ChangeRequest, error) {
	target, ok := TargetPhase(t)
	if !ok {
		return nil, fmt.Errorf("unknown change type %q", t)
	}
	return &pipeline.ChangeRequest{
		ID:          uuid.NewString(),
		Type:        t,
		TargetPhase: target,
		Status:      pipeline.CRProposed,
		Title:       title,
		Impact:      impact,
		CreatedAt:   time.Now().UTC().Format(time.RFC3339),
	}, nil
}

// Routed names the change request picked for routing and where the
// pipeline must go next.
type Routed struct {
	Index  int
	CR     pipeline.ChangeRequest
	Target pipeline.Phase
}

// Route scans pending change requests for the first proposed one, in
// insertion order, and returns it with its target phase. It reads state
// only; the orchestrator applies the status transition. Exactly one
// request routes per passing REVIEW/AUDIT gate — the rest stay proposed
// until the next pass.
func Route(st *pipeline.PipelineState) (*Routed, bool) {
	for i, cr := range st.PendingChangeRequests {
		if cr.Status != pipeline.CRProposed {
			continue
		}
		target := cr.TargetPhase
		if target == "" {
			if t, ok := TargetPhase(cr.Type); ok {
				target = t
			}
		}
		if target == "" {
			continue
		}
		return &Routed{Index: i, CR: cr, Target: target}, true
	}
	return nil, false
}
