package consensus

// Score computes the approval decision for a set of votes under the
// given rules. The weighted score is the confidence-weighted mean of
// per-vote values (zero votes score zero). Approval requires both the
// threshold and the quorum; an arbitration verdict, when supplied,
// overrides the tally and marks the round ARBITRATED.
func Score(votes []ReviewerVote, rules Rules, arb *Arbitration) Outcome {
	var weighted, totalWeight float64
	for _, v := range votes {
		conf := clamp01(v.Confidence)
		weighted += v.value() * conf
		totalWeight += conf
	}

	score := 0.0
	if totalWeight > 0 {
		score = weighted / totalWeight
	}

	participating := len(votes)
	approved := score >= rules.Threshold && participating >= rules.Quorum

	out := Outcome{
		WeightedScore: score,
		Participating: participating,
		Votes:         votes,
	}

	if arb != nil {
		out.Status = StatusArbitrated
		out.Approved = arb.Approved
		out.Arbitration = arb
		return out
	}

	out.Approved = approved
	if approved {
		out.Status = StatusApproved
	} else {
		out.Status = StatusRejected
	}
	return out
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
