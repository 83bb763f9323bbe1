package gate

import (
	"fmt"

	"github.com/lucasnoah/pipewright/internal/pipeline"
)

// Verifier checks that an artifact's stored bytes still match its
// recorded hash. The artifact store implements this.
type Verifier interface {
	Verify(*pipeline.ArtifactEntry) bool
}

// Overrides carries the orchestrator's constitution verdict into gate
// evaluation. A false ConstitutionValid is an absolute veto on every
// phase, independent of any other gate condition.
type Overrides struct {
	ConstitutionValid  bool
	ConstitutionReason string
}

// Evaluate runs the gate for a phase against read-only state. It does
// no I/O of its own and never mutates its inputs, so re-running it with
// the same state, verifier answers, and overrides yields an identical
// result. Score and ConsensusScore are echoed from the stored consensus
// record, never computed here.
func Evaluate(phase pipeline.Phase, st *pipeline.PipelineState, verifier Verifier, ov *Overrides) *pipeline.GateResult {
	result := &pipeline.GateResult{
		Phase:    phase,
		Blockers: []string{},
	}

	def, ok := Lookup(phase)
	if !ok {
		result.Blockers = append(result.Blockers, fmt.Sprintf("phase %s is terminal, no gate to evaluate", phase))
		applyConstitutionVeto(result, ov)
		return result
	}

	for _, typ := range def.RequiredArtifacts {
		latest := st.LatestArtifact(typ)
		switch {
		case latest == nil:
			result.MissingArtifacts = append(result.MissingArtifacts, string(typ))
			result.Blockers = append(result.Blockers, fmt.Sprintf("missing required artifact: %s", typ))
		case !verifier.Verify(latest):
			// A tampered or vanished artifact gates exactly like a
			// missing one.
			result.MissingArtifacts = append(result.MissingArtifacts, string(typ))
			result.Blockers = append(result.Blockers, fmt.Sprintf("artifact failed verification: %s", typ))
		}
	}

	for _, check := range def.RequiredChecks {
		if !st.CheckPassed(phase, check) {
			result.FailedChecks = append(result.FailedChecks, string(check))
			result.Blockers = append(result.Blockers, fmt.Sprintf("required check not passing: %s", check))
		}
	}

	if phase.IsConsensus() {
		rec := st.Consensus[phase]
		if rec == nil {
			result.Blockers = append(result.Blockers, "no consensus round recorded")
		} else {
			score := rec.WeightedScore
			result.Score = &score
			result.ConsensusScore = &score
			if rec.WeightedScore < def.ConsensusThreshold {
				result.Blockers = append(result.Blockers,
					fmt.Sprintf("consensus score %.2f below threshold %.2f", rec.WeightedScore, def.ConsensusThreshold))
			}
			if rec.Participating < def.Quorum {
				result.Blockers = append(result.Blockers,
					fmt.Sprintf("quorum not met: %d of %d reviewers participated", rec.Participating, def.Quorum))
			}
		}
	}

	applyConstitutionVeto(result, ov)

	result.Passed = len(result.Blockers) == 0
	return result
}

func applyConstitutionVeto(result *pipeline.GateResult, ov *Overrides) {
	if ov != nil && !ov.ConstitutionValid {
		reason := ov.ConstitutionReason
		if reason == "" {
			reason = "constitution verification failed"
		}
		result.Blockers = append(result.Blockers, "constitution: "+reason)
	}
}

// Merge combines a fresh evaluation with a previously stored result for
// the same phase. Pass, blockers, missing artifacts, and failed checks
// come from the new evaluation; a score already stored for the phase is
// the sunk cost of a completed review round and is carried forward
// unchanged.
func Merge(old, fresh *pipeline.GateResult) *pipeline.GateResult {
	if fresh == nil {
		return old
	}
	merged := *fresh
	if old != nil {
		if old.Score != nil {
			merged.Score = old.Score
		}
		if old.ConsensusScore != nil {
			merged.ConsensusScore = old.ConsensusScore
		}
	}
	return &merged
}
