package agent

import (
	"context"

	"github.com/hpungsan/sift/internal/review"
)

// PrecedenceApprover wraps another approver and turns its approve into a
// revise whenever the reply carries a revision cue.
type PrecedenceApprover struct {
	inner review.Approver
}

// WithRevisionPrecedence wraps inner.
func WithRevisionPrecedence(inner review.Approver) *PrecedenceApprover {
	return &PrecedenceApprover{inner: inner}
}

// Decide implements review.Approver.
func (a *PrecedenceApprover) Decide(ctx context.Context, reply string, last review.Proposal) (review.Decision, error) {
	d, err := a.inner.Decide(ctx, reply, last)
	if err != nil {
		return review.Decision{}, err
	}
	if d.Approved() && HasRevisionCue(reply) {
		return review.Decision{Verdict: review.VerdictRevise, Reason: correction(reply)}, nil
	}
	return d, nil
}
