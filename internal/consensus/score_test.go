package consensus

import (
	"errors"
	"testing"
)

func TestScoreUnanimousApproval(t *testing.T) {
	votes := []ReviewerVote{
		{ReviewerID: "a", Vote: VoteApprove, Confidence: 1.0},
		{ReviewerID: "b", Vote: VoteApprove, Confidence: 1.0},
	}

	out := Score(votes, Rules{Threshold: 0.95, Quorum: 2}, nil)
	if out.WeightedScore != 1.0 {
		t.Errorf("WeightedScore = %v, want 1.0", out.WeightedScore)
	}
	if !out.Approved || out.Status != StatusApproved {
		t.Errorf("Approved = %v, Status = %q", out.Approved, out.Status)
	}
	if out.Participating != 2 {
		t.Errorf("Participating = %d, want 2", out.Participating)
	}
}

func TestScoreSplitVote(t *testing.T) {
	votes := []ReviewerVote{
		{ReviewerID: "a", Vote: VoteApprove, Confidence: 1.0},
		{ReviewerID: "b", Vote: VoteReject, Confidence: 1.0},
	}

	out := Score(votes, Rules{Threshold: 0.85, Quorum: 2}, nil)
	if out.WeightedScore != 0.5 {
		t.Errorf("WeightedScore = %v, want 0.5", out.WeightedScore)
	}
	if out.Approved || out.Status != StatusRejected {
		t.Errorf("Approved = %v, Status = %q, want rejected", out.Approved, out.Status)
	}
}

func TestScoreConditionalHalves(t *testing.T) {
	votes := []ReviewerVote{
		{ReviewerID: "a", Vote: VoteConditional, Confidence: 1.0},
	}

	out := Score(votes, Rules{Threshold: 0.4, Quorum: 1}, nil)
	if out.WeightedScore != 0.5 {
		t.Errorf("WeightedScore = %v, want 0.5", out.WeightedScore)
	}
}

func TestScoreConfidenceWeighting(t *testing.T) {
	// A confident approval outweighs a hesitant rejection.
	votes := []ReviewerVote{
		{ReviewerID: "a", Vote: VoteApprove, Confidence: 0.9},
		{ReviewerID: "b", Vote: VoteReject, Confidence: 0.1},
	}

	out := Score(votes, Rules{Threshold: 0.85, Quorum: 2}, nil)
	if out.WeightedScore != 0.9 {
		t.Errorf("WeightedScore = %v, want 0.9", out.WeightedScore)
	}
}

func TestScoreBlockingIssuesForceZero(t *testing.T) {
	// A vote mislabeled APPROVE but carrying blocking issues counts as
	// zero: a reviewer cannot approve around a blocker.
	votes := []ReviewerVote{
		{ReviewerID: "a", Vote: VoteApprove, Confidence: 1.0, BlockingIssues: []string{"secrets committed"}},
		{ReviewerID: "b", Vote: VoteApprove, Confidence: 1.0},
	}

	out := Score(votes, Rules{Threshold: 0.85, Quorum: 2}, nil)
	if out.WeightedScore != 0.5 {
		t.Errorf("WeightedScore = %v, want 0.5", out.WeightedScore)
	}
	if out.Approved {
		t.Error("must not approve with a blocking issue in play")
	}
}

func TestScoreQuorum(t *testing.T) {
	votes := []ReviewerVote{
		{ReviewerID: "a", Vote: VoteApprove, Confidence: 1.0},
	}

	out := Score(votes, Rules{Threshold: 0.85, Quorum: 2}, nil)
	if out.Approved {
		t.Error("a perfect score from one reviewer must not meet a quorum of 2")
	}
	if out.WeightedScore != 1.0 {
		t.Errorf("WeightedScore = %v, want 1.0", out.WeightedScore)
	}
}

func TestScoreNoVotes(t *testing.T) {
	out := Score(nil, Rules{Threshold: 0.85, Quorum: 2}, nil)
	if out.WeightedScore != 0 || out.Approved {
		t.Errorf("empty round = %+v, want score 0, not approved", out)
	}
}

func TestScoreZeroConfidenceVotes(t *testing.T) {
	votes := []ReviewerVote{
		{ReviewerID: "a", Vote: VoteApprove, Confidence: 0},
	}

	out := Score(votes, Rules{Threshold: 0.85, Quorum: 1}, nil)
	if out.WeightedScore != 0 {
		t.Errorf("WeightedScore = %v, want 0 when total weight is 0", out.WeightedScore)
	}
}

func TestScoreClampsConfidence(t *testing.T) {
	votes := []ReviewerVote{
		{ReviewerID: "a", Vote: VoteApprove, Confidence: 5.0},
		{ReviewerID: "b", Vote: VoteReject, Confidence: 1.0},
	}

	out := Score(votes, Rules{Threshold: 0.85, Quorum: 2}, nil)
	if out.WeightedScore != 0.5 {
		t.Errorf("WeightedScore = %v, want 0.5 with clamped confidence", out.WeightedScore)
	}
}

func TestScoreArbitrationOverrides(t *testing.T) {
	votes := []ReviewerVote{
		{ReviewerID: "a", Vote: VoteReject, Confidence: 1.0},
		{ReviewerID: "b", Vote: VoteReject, Confidence: 1.0},
	}
	arb := &Arbitration{ArbitratorID: "chief", Approved: true, Rationale: "rejections were stale"}

	out := Score(votes, Rules{Threshold: 0.85, Quorum: 2}, arb)
	if out.Status != StatusArbitrated {
		t.Errorf("Status = %q, want ARBITRATED", out.Status)
	}
	if !out.Approved {
		t.Error("arbitration verdict must override the tally")
	}
	if out.WeightedScore != 0 {
		t.Errorf("WeightedScore = %v, the tally itself is still reported", out.WeightedScore)
	}
}

func TestParseVote(t *testing.T) {
	raw := []byte(`{"reviewer_id":"sec-1","vote":"CONDITIONAL","confidence":0.7,"suggestions":["rename the flag"]}`)

	v, err := ParseVote(raw)
	if err != nil {
		t.Fatalf("ParseVote: %v", err)
	}
	if v.Vote != VoteConditional || v.Confidence != 0.7 {
		t.Errorf("vote = %+v", v)
	}
}

func TestParseVoteRejectsMalformed(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"not json", `approve, i guess`},
		{"unknown label", `{"reviewer_id":"a","vote":"MAYBE","confidence":0.5}`},
		{"confidence too high", `{"reviewer_id":"a","vote":"APPROVE","confidence":1.5}`},
		{"confidence negative", `{"reviewer_id":"a","vote":"APPROVE","confidence":-0.1}`},
		{"missing reviewer", `{"vote":"APPROVE","confidence":0.5}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseVote([]byte(tc.raw))
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, ErrMalformedVote) {
				t.Errorf("error %v should wrap ErrMalformedVote", err)
			}
		})
	}
}
