// Package consensus turns independent reviewer votes into a single
// approval decision, polling reviewers concurrently with bounded
// timeouts so one slow reviewer can never stall a round.
package consensus

// Vote is a reviewer's verdict label.
type Vote string

const (
	VoteApprove     Vote = "APPROVE"
	VoteConditional Vote = "CONDITIONAL"
	VoteReject      Vote = "REJECT"
)

// Round status values.
const (
	StatusApproved   = "APPROVED"
	StatusRejected   = "REJECTED"
	StatusArbitrated = "ARBITRATED"
)

// ReviewerVote is one reviewer's contribution to a consensus round.
type ReviewerVote struct {
	ReviewerID     string   `json:"reviewer_id"`
	Provider       string   `json:"provider"`
	Model          string   `json:"model"`
	Vote           Vote     `json:"vote"`
	Confidence     float64  `json:"confidence"`
	BlockingIssues []string `json:"blocking_issues,omitempty"`
	Suggestions    []string `json:"suggestions,omitempty"`
	Evidence       []string `json:"evidence,omitempty"`
}

// value maps the vote to its numeric contribution. Any vote carrying
// blocking issues counts as zero regardless of its label: a reviewer
// cannot approve around a blocking issue.
func (v ReviewerVote) value() float64 {
	if len(v.BlockingIssues) > 0 {
		return 0.0
	}
	switch v.Vote {
	case VoteApprove:
		return 1.0
	case VoteConditional:
		return 0.5
	default:
		return 0.0
	}
}

// Rules configures a consensus round.
type Rules struct {
	Threshold    float64 `json:"threshold" yaml:"threshold"`
	Quorum       int     `json:"quorum" yaml:"quorum"`
	MinReviewers int     `json:"min_reviewers" yaml:"min_reviewers"`
}

// Arbitration is a tie-breaking verdict from a designated arbitrator.
// When present it overrides the pure vote tally.
type Arbitration struct {
	ArbitratorID string `json:"arbitrator_id"`
	Approved     bool   `json:"approved"`
	Rationale    string `json:"rationale,omitempty"`
}

// Outcome is the full result of scoring a consensus round.
type Outcome struct {
	Status        string         `json:"status"`
	Approved      bool           `json:"approved"`
	WeightedScore float64        `json:"weighted_score"`
	Participating int            `json:"participating"`
	Votes         []ReviewerVote `json:"votes"`
	Arbitration   *Arbitration   `json:"arbitration,omitempty"`
}
