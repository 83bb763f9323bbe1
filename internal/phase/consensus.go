package phase

import (
	"context"
	"fmt"

	"github.com/lucasnoah/pipewright/internal/artifact"
	"github.com/lucasnoah/pipewright/internal/consensus"
	"github.com/lucasnoah/pipewright/internal/pipeline"
)

// reviewSubjects maps each consensus phase to the artifact type its
// reviewers judge.
var reviewSubjects = map[pipeline.Phase]pipeline.ArtifactType{
	pipeline.PhaseConsensusMasterPlan:   pipeline.ArtifactMasterPlan,
	pipeline.PhaseConsensusArchitecture: pipeline.ArtifactArchitecture,
	pipeline.PhaseConsensusRolePlans:    pipeline.ArtifactRolePlan,
}

// ConsensusHandler returns a built-in handler for consensus phases: it
// reads the artifact under review, polls every reviewer concurrently,
// and hands the votes back for scoring. The orchestrator owns scoring
// and persistence of the outcome.
func ConsensusHandler(reviewers []consensus.Reviewer, opts consensus.PollOpts) Handler {
	return Func(func(ctx context.Context, st *pipeline.PipelineState, env Env) (*Result, error) {
		subjectType, ok := reviewSubjects[st.Phase]
		if !ok {
			return nil, fmt.Errorf("phase %s is not a consensus phase", st.Phase)
		}

		entry := st.LatestArtifact(subjectType)
		if entry == nil {
			return nil, fmt.Errorf("no %s artifact to review", subjectType)
		}

		content, err := env.Artifacts.Read(entry)
		if err != nil {
			return nil, fmt.Errorf("read review subject: %w", err)
		}

		req := consensus.Request{
			Phase:    st.Phase,
			Subject:  artifact.Ref(entry),
			Content:  string(content),
			Guidance: st.SessionGuidance,
		}

		votes := consensus.Poll(ctx, reviewers, req, opts)
		return &Result{Votes: votes}, nil
	})
}
