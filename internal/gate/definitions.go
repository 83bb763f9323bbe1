// Package gate defines the per-phase gate table and the pure evaluator
// that decides whether a phase may hand off to its successor.
package gate

import (
	"github.com/lucasnoah/pipewright/internal/pipeline"
)

// Definition is the static gate for one phase: what must exist, what
// must pass, and where the pipeline goes next.
type Definition struct {
	Phase              pipeline.Phase
	RequiredArtifacts  []pipeline.ArtifactType
	RequiredChecks     []pipeline.CheckType
	ConsensusThreshold float64
	Quorum             int
	Next               pipeline.Phase
	OnFail             pipeline.Phase
}

// definitions is the full transition table. Every non-terminal phase
// fails into RECOVERY_LOOP; RECOVERY_LOOP's own successor is computed
// by the recovery handler, so Next is empty there.
var definitions = map[pipeline.Phase]Definition{
	pipeline.PhaseIntake: {
		Phase:             pipeline.PhaseIntake,
		RequiredArtifacts: []pipeline.ArtifactType{pipeline.ArtifactConstitution, pipeline.ArtifactMasterPlan},
		Next:              pipeline.PhaseConsensusMasterPlan,
		OnFail:            pipeline.PhaseRecoveryLoop,
	},
	pipeline.PhaseConsensusMasterPlan: {
		Phase:              pipeline.PhaseConsensusMasterPlan,
		RequiredArtifacts:  []pipeline.ArtifactType{pipeline.ArtifactConsensus},
		ConsensusThreshold: 0.85,
		Quorum:             2,
		Next:               pipeline.PhaseArchitecture,
		OnFail:             pipeline.PhaseRecoveryLoop,
	},
	pipeline.PhaseArchitecture: {
		Phase:             pipeline.PhaseArchitecture,
		RequiredArtifacts: []pipeline.ArtifactType{pipeline.ArtifactArchitecture, pipeline.ArtifactDependencyGraph},
		Next:              pipeline.PhaseConsensusArchitecture,
		OnFail:            pipeline.PhaseRecoveryLoop,
	},
	pipeline.PhaseConsensusArchitecture: {
		Phase:              pipeline.PhaseConsensusArchitecture,
		RequiredArtifacts:  []pipeline.ArtifactType{pipeline.ArtifactConsensus},
		ConsensusThreshold: 0.85,
		Quorum:             2,
		Next:               pipeline.PhaseRolePlanning,
		OnFail:             pipeline.PhaseRecoveryLoop,
	},
	pipeline.PhaseRolePlanning: {
		Phase:             pipeline.PhaseRolePlanning,
		RequiredArtifacts: []pipeline.ArtifactType{pipeline.ArtifactRolePlan},
		Next:              pipeline.PhaseConsensusRolePlans,
		OnFail:            pipeline.PhaseRecoveryLoop,
	},
	pipeline.PhaseConsensusRolePlans: {
		Phase:              pipeline.PhaseConsensusRolePlans,
		RequiredArtifacts:  []pipeline.ArtifactType{pipeline.ArtifactConsensus},
		ConsensusThreshold: 0.85,
		Quorum:             2,
		Next:               pipeline.PhaseImplementation,
		OnFail:             pipeline.PhaseRecoveryLoop,
	},
	pipeline.PhaseImplementation: {
		Phase:             pipeline.PhaseImplementation,
		RequiredArtifacts: []pipeline.ArtifactType{pipeline.ArtifactImplementationLog, pipeline.ArtifactRepoSnapshot},
		RequiredChecks:    []pipeline.CheckType{pipeline.CheckBuild, pipeline.CheckLint, pipeline.CheckTypecheck},
		Next:              pipeline.PhaseQAValidation,
		OnFail:            pipeline.PhaseRecoveryLoop,
	},
	pipeline.PhaseQAValidation: {
		Phase:             pipeline.PhaseQAValidation,
		RequiredArtifacts: []pipeline.ArtifactType{pipeline.ArtifactQAValidation},
		RequiredChecks:    []pipeline.CheckType{pipeline.CheckTest, pipeline.CheckPlaceholderScan, pipeline.CheckEnv},
		Next:              pipeline.PhaseReview,
		OnFail:            pipeline.PhaseRecoveryLoop,
	},
	pipeline.PhaseReview: {
		Phase:             pipeline.PhaseReview,
		RequiredArtifacts: []pipeline.ArtifactType{pipeline.ArtifactReviewDecision},
		Next:              pipeline.PhaseAudit,
		OnFail:            pipeline.PhaseRecoveryLoop,
	},
	pipeline.PhaseAudit: {
		Phase:             pipeline.PhaseAudit,
		RequiredArtifacts: []pipeline.ArtifactType{pipeline.ArtifactAuditReport},
		Next:              pipeline.PhaseProductionGate,
		OnFail:            pipeline.PhaseRecoveryLoop,
	},
	pipeline.PhaseProductionGate: {
		Phase:             pipeline.PhaseProductionGate,
		RequiredArtifacts: []pipeline.ArtifactType{pipeline.ArtifactProductionReadiness, pipeline.ArtifactReleaseNotes},
		RequiredChecks:    []pipeline.CheckType{pipeline.CheckBuild, pipeline.CheckTest, pipeline.CheckStart, pipeline.CheckMigration},
		Next:              pipeline.PhaseDone,
		OnFail:            pipeline.PhaseRecoveryLoop,
	},
	pipeline.PhaseRecoveryLoop: {
		Phase:             pipeline.PhaseRecoveryLoop,
		RequiredArtifacts: []pipeline.ArtifactType{pipeline.ArtifactRCAReport, pipeline.ArtifactRecoveryLog},
		OnFail:            pipeline.PhaseRecoveryLoop,
	},
}

// Lookup returns the gate definition for a phase. Terminal phases have
// no definition.
func Lookup(p pipeline.Phase) (Definition, bool) {
	def, ok := definitions[p]
	return def, ok
}

// ForwardPhases returns the 11 forward phases in gate order, ending at
// PRODUCTION_GATE whose successor is DONE.
func ForwardPhases() []pipeline.Phase {
	return []pipeline.Phase{
		pipeline.PhaseIntake,
		pipeline.PhaseConsensusMasterPlan,
		pipeline.PhaseArchitecture,
		pipeline.PhaseConsensusArchitecture,
		pipeline.PhaseRolePlanning,
		pipeline.PhaseConsensusRolePlans,
		pipeline.PhaseImplementation,
		pipeline.PhaseQAValidation,
		pipeline.PhaseReview,
		pipeline.PhaseAudit,
		pipeline.PhaseProductionGate,
	}
}
