package consensus

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedVote marks reviewer output that failed schema validation.
// Callers can distinguish it from transport errors with errors.Is.
var ErrMalformedVote = errors.New("malformed reviewer output")

// ParseVote validates raw reviewer output against the vote schema.
// AI responses are never trusted shapes: an unknown verdict label or an
// out-of-range confidence is rejected here rather than coerced.
func ParseVote(data []byte) (*ReviewerVote, error) {
	var v ReviewerVote
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedVote, err)
	}

	switch v.Vote {
	case VoteApprove, VoteConditional, VoteReject:
	default:
		return nil, fmt.Errorf("%w: unknown vote label %q", ErrMalformedVote, v.Vote)
	}

	if v.Confidence < 0 || v.Confidence > 1 {
		return nil, fmt.Errorf("%w: confidence %v outside [0,1]", ErrMalformedVote, v.Confidence)
	}

	if v.ReviewerID == "" {
		return nil, fmt.Errorf("%w: missing reviewer_id", ErrMalformedVote)
	}

	return &v, nil
}
