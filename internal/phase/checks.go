package phase

import (
	"context"

	"github.com/lucasnoah/pipewright/internal/checks"
	"github.com/lucasnoah/pipewright/internal/pipeline"
)

// ChecksHandler returns a built-in handler that runs the configured
// checks in the project worktree and reports their results for gating.
// Phases that need more than checks (artifact production) compose this
// with their own handler.
func ChecksHandler(runner *checks.Runner, cfgs []checks.Config) Handler {
	return Func(func(ctx context.Context, st *pipeline.PipelineState, env Env) (*Result, error) {
		results, err := runner.RunAll(ctx, env.ProjectDir, cfgs)
		if err != nil {
			return nil, err
		}

		out := &Result{}
		for _, res := range results {
			out.CheckResults = append(out.CheckResults, res.ToCheckResult())
		}
		return out, nil
	})
}
