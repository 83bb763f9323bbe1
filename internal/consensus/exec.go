package consensus

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
)

// ExecReviewer shells out to a provider CLI for each review: the
// request is written as JSON on stdin and the reviewer must answer
// with a single vote JSON document on stdout. The provider binary is
// invoked as `<provider> review --model <model>`.
type ExecReviewer struct {
	ReviewerID string
	Provider   string
	Model      string
}

// NewExecReviewer creates a reviewer backed by a provider CLI.
func NewExecReviewer(id, provider, model string) *ExecReviewer {
	return &ExecReviewer{ReviewerID: id, Provider: provider, Model: model}
}

// ID implements Reviewer.
func (r *ExecReviewer) ID() string {
	return r.ReviewerID
}

// Review implements Reviewer.
func (r *ExecReviewer) Review(ctx context.Context, req Request) (*ReviewerVote, error) {
	input, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal review request: %w", err)
	}

	args := []string{"review"}
	if r.Model != "" {
		args = append(args, "--model", r.Model)
	}
	cmd := exec.CommandContext(ctx, r.Provider, args...)
	cmd.Stdin = strings.NewReader(string(input))

	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("reviewer %s: %w", r.ReviewerID, err)
	}

	vote, err := ParseVote(out)
	if err != nil {
		return nil, fmt.Errorf("reviewer %s: %w", r.ReviewerID, err)
	}
	if vote.ReviewerID == "" {
		vote.ReviewerID = r.ReviewerID
	}
	if vote.Provider == "" {
		vote.Provider = r.Provider
	}
	if vote.Model == "" {
		vote.Model = r.Model
	}
	return vote, nil
}
