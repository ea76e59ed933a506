package review

import (
	"context"

	"github.com/hpungsan/sift/internal/errors"
	"github.com/hpungsan/sift/internal/record"
)

// Proposal is one structured classification of a note. It is never stored
// directly; an approved Proposal is materialized by the record store.
type Proposal struct {
	Informations []string `json:"informations"`
	Ideas        []string `json:"ideas"`
	Tasks        []string `json:"tasks"`
	// Approved lets the proposer report that the reply it was given already
	// signaled approval.
	Approved bool `json:"approved"`
}

// Clean trims every element and drops empty ones. Lists are never nil.
func (p Proposal) Clean() Proposal {
	return Proposal{
		Informations: record.CleanItems(p.Informations),
		Ideas:        record.CleanItems(p.Ideas),
		Tasks:        record.CleanItems(p.Tasks),
		Approved:     p.Approved,
	}
}

// Empty reports whether the proposal holds no items at all.
func (p Proposal) Empty() bool {
	return len(p.Informations) == 0 && len(p.Ideas) == 0 && len(p.Tasks) == 0
}

// Size returns the total number of items across the three lists.
func (p Proposal) Size() int {
	return len(p.Informations) + len(p.Ideas) + len(p.Tasks)
}

// Validate rejects a proposal that repeats an information inside itself,
// since the store could never save it.
func (p Proposal) Validate() error {
	seen := make(map[string]bool, len(p.Informations))
	for _, info := range p.Informations {
		if seen[info] {
			return errors.NewValidationFailed("proposal repeats information: " + info)
		}
		seen[info] = true
	}
	return nil
}

// Verdict is the approver's classification of a reply.
type Verdict string

const (
	VerdictApprove Verdict = "approve"
	VerdictRevise  Verdict = "revise"
)

// Decision is the approver's output. For revise, Reason carries the
// correction to apply.
type Decision struct {
	Verdict Verdict `json:"decision"`
	Reason  string  `json:"reason"`
}

// Approved reports whether the decision is an approval.
func (d Decision) Approved() bool { return d.Verdict == VerdictApprove }

// HistoryEntry records one rejected round.
type HistoryEntry struct {
	Proposal   Proposal `json:"proposal"`
	HumanReply string   `json:"human_reply"`
	Decision   Decision `json:"decision"`
}

// Proposer turns a note plus earlier rounds into a proposal.
type Proposer interface {
	Propose(ctx context.Context, rawText string, history []HistoryEntry) (Proposal, error)
}

// Approver classifies a human reply to the last proposal.
type Approver interface {
	Decide(ctx context.Context, reply string, last Proposal) (Decision, error)
}

// Reviewer presents a proposal to a human and returns their literal reply.
// It is the suspension point of the loop: console, chat and HTTP
// transports each implement it.
type Reviewer interface {
	Review(ctx context.Context, state LoopState) (string, error)
}

// ProposerFunc adapts a function to Proposer.
type ProposerFunc func(ctx context.Context, rawText string, history []HistoryEntry) (Proposal, error)

func (f ProposerFunc) Propose(ctx context.Context, rawText string, history []HistoryEntry) (Proposal, error) {
	return f(ctx, rawText, history)
}

// ApproverFunc adapts a function to Approver.
type ApproverFunc func(ctx context.Context, reply string, last Proposal) (Decision, error)

func (f ApproverFunc) Decide(ctx context.Context, reply string, last Proposal) (Decision, error) {
	return f(ctx, reply, last)
}

// ReviewerFunc adapts a function to Reviewer.
type ReviewerFunc func(ctx context.Context, state LoopState) (string, error)

func (f ReviewerFunc) Review(ctx context.Context, state LoopState) (string, error) {
	return f(ctx, state)
}
