// Package phase defines the contract between the orchestrator and the
// phase handlers that do the actual work of each phase, plus built-in
// handlers for check-running and consensus phases.
package phase

import (
	"context"

	"github.com/lucasnoah/pipewright/internal/artifact"
	"github.com/lucasnoah/pipewright/internal/consensus"
	"github.com/lucasnoah/pipewright/internal/pipeline"
)

// Env is what a handler gets to work with: the project worktree and
// the pipeline's artifact store.
type Env struct {
	ProjectDir string
	Artifacts  *artifact.Store
}

// Result is everything a phase handler may hand back. The orchestrator
// treats the handler itself as opaque and only inspects these outputs;
// handlers add artifacts through the artifact store and never mutate
// pipeline state directly.
type Result struct {
	Artifacts      []pipeline.ArtifactEntry
	CheckResults   []pipeline.CheckResult
	Votes          []consensus.ReviewerVote
	Arbitration    *consensus.Arbitration
	ChangeRequests []pipeline.ChangeRequest
}

// Handler runs one phase of the pipeline against read-only state.
type Handler interface {
	Run(ctx context.Context, st *pipeline.PipelineState, env Env) (*Result, error)
}

// Func adapts a plain function to the Handler interface.
type Func func(ctx context.Context, st *pipeline.PipelineState, env Env) (*Result, error)

// Run implements Handler.
func (f Func) Run(ctx context.Context, st *pipeline.PipelineState, env Env) (*Result, error) {
	return f(ctx, st, env)
}

// Sequence chains handlers for one phase: each runs in order and their
// outputs are merged. A nil result from a handler is skipped.
func Sequence(handlers ...Handler) Handler {
	return Func(func(ctx context.Context, st *pipeline.PipelineState, env Env) (*Result, error) {
		merged := &Result{}
		for _, h := range handlers {
			res, err := h.Run(ctx, st, env)
			if err != nil {
				return nil, err
			}
			if res == nil {
				continue
			}
			merged.Artifacts = append(merged.Artifacts, res.Artifacts...)
			merged.CheckResults = append(merged.CheckResults, res.CheckResults...)
			merged.Votes = append(merged.Votes, res.Votes...)
			merged.ChangeRequests = append(merged.ChangeRequests, res.ChangeRequests...)
			if res.Arbitration != nil {
				merged.Arbitration = res.Arbitration
			}
		}
		return merged, nil
	})
}

// Registry maps phases to their handlers.
type Registry struct {
	handlers map[pipeline.Phase]Handler
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[pipeline.Phase]Handler)}
}

// Register binds a handler to a phase, replacing any previous binding.
func (r *Registry) Register(p pipeline.Phase, h Handler) {
	r.handlers[p] = h
}

// Handler returns the handler for a phase.
func (r *Registry) Handler(p pipeline.Phase) (Handler, bool) {
	h, ok := r.handlers[p]
	return h, ok
}
