package pipeline

// Phase identifies one stage of the delivery pipeline state machine.
type Phase string

const (
	PhaseIntake                Phase = "INTAKE"
	PhaseConsensusMasterPlan   Phase = "CONSENSUS_MASTER_PLAN"
	PhaseArchitecture          Phase = "ARCHITECTURE"
	PhaseConsensusArchitecture Phase = "CONSENSUS_ARCHITECTURE"
	PhaseRolePlanning          Phase = "ROLE_PLANNING"
	PhaseConsensusRolePlans    Phase = "CONSENSUS_ROLE_PLANS"
	PhaseImplementation        Phase = "IMPLEMENTATION"
	PhaseQAValidation          Phase = "QA_VALIDATION"
	PhaseReview                Phase = "REVIEW"
	PhaseAudit                 Phase = "AUDIT"
	PhaseProductionGate        Phase = "PRODUCTION_GATE"
	PhaseRecoveryLoop          Phase = "RECOVERY_LOOP"
	PhaseDone                  Phase = "DONE"
	PhaseStuck                 Phase = "STUCK"
)

// AllPhases lists every phase in forward order, terminals last.
var AllPhases = []Phase{
	PhaseIntake,
	PhaseConsensusMasterPlan,
	PhaseArchitecture,
	PhaseConsensusArchitecture,
	PhaseRolePlanning,
	PhaseConsensusRolePlans,
	PhaseImplementation,
	PhaseQAValidation,
	PhaseReview,
	PhaseAudit,
	PhaseProductionGate,
	PhaseRecoveryLoop,
	PhaseDone,
	PhaseStuck,
}

// IsTerminal reports whether no transition leaves the phase.
func (p Phase) IsTerminal() bool {
	return p == PhaseDone || p == PhaseStuck
}

// IsConsensus reports whether the phase gates on a multi-reviewer consensus round.
func (p Phase) IsConsensus() bool {
	switch p {
	case PhaseConsensusMasterPlan, PhaseConsensusArchitecture, PhaseConsensusRolePlans:
		return true
	}
	return false
}

// Valid reports whether p is one of the known phases.
func (p Phase) Valid() bool {
	for _, known := range AllPhases {
		if p == known {
			return true
		}
	}
	return false
}

// ParsePhase returns the phase named by s, or ok=false if unknown.
func ParsePhase(s string) (Phase, bool) {
	p := Phase(s)
	if p.Valid() {
		return p, true
	}
	return "", false
}
