package consensus

import (
	"context"
	"sync"
	"time"

	"github.com/lucasnoah/pipewright/internal/pipeline"
)

// Request describes what a reviewer is asked to judge.
type Request struct {
	Phase    pipeline.Phase
	Subject  string // artifact ref under review
	Content  string
	Guidance string
}

// Reviewer is an independent vote source, typically backed by one AI
// provider/model pair.
type Reviewer interface {
	ID() string
	Review(ctx context.Context, req Request) (*ReviewerVote, error)
}

// PollOpts configures a polling round.
type PollOpts struct {
	Timeout time.Duration // per-reviewer; 0 means 2 minutes
	Retry   RetryPolicy
}

// Poll queries every reviewer concurrently, each under its own timeout
// and retry budget, and joins the results. A reviewer that times out or
// keeps erroring contributes no vote — it reduces participation rather
// than blocking the round. Votes come back in roster order.
func Poll(ctx context.Context, reviewers []Reviewer, req Request, opts PollOpts) []ReviewerVote {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}

	results := make([]*ReviewerVote, len(reviewers))
	var wg sync.WaitGroup

	for i, r := range reviewers {
		wg.Add(1)
		go func(i int, r Reviewer) {
			defer wg.Done()

			rctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			var vote *ReviewerVote
			err := opts.Retry.Do(rctx, func(c context.Context) error {
				v, err := r.Review(c, req)
				if err != nil {
					return err
				}
				vote = v
				return nil
			})
			if err != nil || vote == nil {
				return
			}
			if vote.ReviewerID == "" {
				vote.ReviewerID = r.ID()
			}
			results[i] = vote
		}(i, r)
	}
	wg.Wait()

	votes := make([]ReviewerVote, 0, len(reviewers))
	for _, v := range results {
		if v != nil {
			votes = append(votes, *v)
		}
	}
	return votes
}
