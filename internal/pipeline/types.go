package pipeline

// ArtifactType classifies a pipeline document.
type ArtifactType string

const (
	ArtifactMasterPlan          ArtifactType = "master_plan"
	ArtifactArchitecture        ArtifactType = "architecture"
	ArtifactRolePlan            ArtifactType = "role_plan"
	ArtifactConsensus           ArtifactType = "consensus"
	ArtifactRepoSnapshot        ArtifactType = "repo_snapshot"
	ArtifactRCAReport           ArtifactType = "rca_report"
	ArtifactAuditReport         ArtifactType = "audit_report"
	ArtifactQAValidation        ArtifactType = "qa_validation"
	ArtifactReviewDecision      ArtifactType = "review_decision"
	ArtifactProductionReadiness ArtifactType = "production_readiness"
	ArtifactConstitution        ArtifactType = "constitution"
	ArtifactChangeRequest       ArtifactType = "change_request"
	ArtifactReleaseNotes        ArtifactType = "release_notes"
	ArtifactJournalistUpdate    ArtifactType = "journalist_update"
	ArtifactDependencyGraph     ArtifactType = "dependency_graph"
	ArtifactImplementationLog   ArtifactType = "implementation_log"
	ArtifactRecoveryLog         ArtifactType = "recovery_log"
	ArtifactSkillDefinition     ArtifactType = "skill_definition"
)

// ContentKind says how artifact bytes should be interpreted.
type ContentKind string

const (
	KindText ContentKind = "text"
	KindJSON ContentKind = "json"
)

// ArtifactEntry is an immutable record of one stored document version.
// Within a group, versions form a gap-free chain linked by PreviousID.
type ArtifactEntry struct {
	ID         string       `json:"id"`
	Type       ArtifactType `json:"type"`
	Phase      Phase        `json:"phase"`
	GroupID    string       `json:"group_id"`
	Version    int          `json:"version"`
	Path       string       `json:"path"`
	Hash       string       `json:"hash"`
	Kind       ContentKind  `json:"kind"`
	Immutable  bool         `json:"immutable"`
	PreviousID string       `json:"previous_id,omitempty"`
	CreatedAt  string       `json:"created_at"`
}

// CheckType names a deterministic check the check runner can execute.
type CheckType string

const (
	CheckBuild           CheckType = "build"
	CheckTest            CheckType = "test"
	CheckLint            CheckType = "lint"
	CheckTypecheck       CheckType = "typecheck"
	CheckStart           CheckType = "start"
	CheckEnv             CheckType = "env_check"
	CheckMigration       CheckType = "migration"
	CheckPlaceholderScan CheckType = "placeholder_scan"
)

// AllCheckTypes lists every check type the runner understands.
var AllCheckTypes = []CheckType{
	CheckBuild, CheckTest, CheckLint, CheckTypecheck,
	CheckStart, CheckEnv, CheckMigration, CheckPlaceholderScan,
}

// CheckResult records the outcome of one check run for gating purposes.
type CheckResult struct {
	Type       CheckType `json:"type"`
	Status     string    `json:"status"` // "pass", "fail"
	ExitCode   int       `json:"exit_code"`
	DurationMs int       `json:"duration_ms"`
	Summary    string    `json:"summary,omitempty"`
	Timestamp  string    `json:"timestamp"`
}

// GateResult is the stored outcome of evaluating a phase gate.
// Score and ConsensusScore are supplied by the consensus scorer, never by
// the gate engine; once stored they survive later re-evaluations.
type GateResult struct {
	Phase            Phase    `json:"phase"`
	Passed           bool     `json:"passed"`
	Blockers         []string `json:"blockers"`
	MissingArtifacts []string `json:"missing_artifacts,omitempty"`
	FailedChecks     []string `json:"failed_checks,omitempty"`
	Score            *float64 `json:"score,omitempty"`
	ConsensusScore   *float64 `json:"consensus_score,omitempty"`
	EvaluatedAt      string   `json:"evaluated_at,omitempty"`
}

// ConsensusRecord is the stored summary of a completed consensus round,
// read by the gate engine when evaluating consensus phases.
type ConsensusRecord struct {
	Phase         Phase   `json:"phase"`
	Status        string  `json:"status"` // "APPROVED", "REJECTED", "ARBITRATED"
	WeightedScore float64 `json:"weighted_score"`
	Participating int     `json:"participating"`
	RoundID       string  `json:"round_id"`
	CompletedAt   string  `json:"completed_at"`
}

// ChangeType categorizes the drift a change request captures.
type ChangeType string

const (
	ChangeScope        ChangeType = "scope"
	ChangeArchitecture ChangeType = "architecture"
	ChangeDependency   ChangeType = "dependency"
	ChangeConfig       ChangeType = "config"
	ChangeRequirement  ChangeType = "requirement"
)

// Change request lifecycle states.
const (
	CRProposed = "proposed"
	CRApproved = "approved"
	CRRejected = "rejected"
)

// ChangeRequest is a flagged drift that must be re-approved by an earlier
// consensus phase before work continues.
type ChangeRequest struct {
	ID          string     `json:"id"`
	Type        ChangeType `json:"change_type"`
	TargetPhase Phase      `json:"target_phase"`
	Status      string     `json:"status"`
	Title       string     `json:"title"`
	Impact      string     `json:"impact,omitempty"`
	CreatedAt   string     `json:"created_at"`
}

// PhaseLogEntry records one orchestrator iteration for a phase.
type PhaseLogEntry struct {
	Phase    Phase  `json:"phase"`
	Passed   bool   `json:"passed"`
	Blockers int    `json:"blockers"`
	Next     Phase  `json:"next"`
	Duration string `json:"duration"`
	At       string `json:"at"`
}

// PipelineState is the aggregate root for a single project pipeline.
// Only the orchestrator mutates it; every other component treats it as
// a read-only input. Phase handlers contribute artifacts, never edits.
type PipelineState struct {
	Project               string                     `json:"project"`
	ProjectDir            string                     `json:"project_dir"`
	Phase                 Phase                      `json:"phase"`
	Artifacts             []ArtifactEntry            `json:"artifacts"`
	GateResults           map[Phase]*GateResult      `json:"gate_results"`
	GateChecks            map[Phase][]CheckResult    `json:"gate_checks"`
	Consensus             map[Phase]*ConsensusRecord `json:"consensus"`
	ActiveRoles           []string                   `json:"active_roles,omitempty"`
	RecoveryCount         int                        `json:"recovery_count"`
	MaxRecoveryIterations int                        `json:"max_recovery_iterations"`
	RecoveryPhase         Phase                      `json:"recovery_phase,omitempty"`
	ConstitutionHash      string                     `json:"constitution_hash"`
	PendingChangeRequests []ChangeRequest            `json:"pending_change_requests"`
	SessionGuidance       string                     `json:"session_guidance,omitempty"`
	PhaseLog              []PhaseLogEntry            `json:"phase_log"`
	CreatedAt             string                     `json:"created_at"`
	UpdatedAt             string                     `json:"updated_at"`
}

// ArtifactsByType returns all artifact entries of the given type, in
// insertion order.
func (ps *PipelineState) ArtifactsByType(t ArtifactType) []ArtifactEntry {
	var out []ArtifactEntry
	for _, a := range ps.Artifacts {
		if a.Type == t {
			out = append(out, a)
		}
	}
	return out
}

// LatestArtifact returns the most recently added artifact of the given
// type, or nil if none exists.
func (ps *PipelineState) LatestArtifact(t ArtifactType) *ArtifactEntry {
	for i := len(ps.Artifacts) - 1; i >= 0; i-- {
		if ps.Artifacts[i].Type == t {
			return &ps.Artifacts[i]
		}
	}
	return nil
}

// ArtifactByID looks up an artifact entry by id.
func (ps *PipelineState) ArtifactByID(id string) *ArtifactEntry {
	for i := range ps.Artifacts {
		if ps.Artifacts[i].ID == id {
			return &ps.Artifacts[i]
		}
	}
	return nil
}

// CheckPassed reports whether the given check type has a passing result
// recorded for the phase.
func (ps *PipelineState) CheckPassed(phase Phase, check CheckType) bool {
	for _, cr := range ps.GateChecks[phase] {
		if cr.Type == check && cr.Status == "pass" {
			return true
		}
	}
	return false
}
