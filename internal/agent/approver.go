package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/hpungsan/sift/internal/errors"
	"github.com/hpungsan/sift/internal/llm"
	"github.com/hpungsan/sift/internal/record"
	"github.com/hpungsan/sift/internal/review"
)

// NoCorrectionReason is the reason given for a rejection that names no change.
const NoCorrectionReason = "no correction given; propose a different arrangement"

// LLMApprover asks a model to classify the human reply.
type LLMApprover struct {
	client       Completer
	instructions string
}

// NewLLMApprover creates an approver with the given system instructions.
func NewLLMApprover(client Completer, instructions string) *LLMApprover {
	return &LLMApprover{client: client, instructions: instructions}
}

type wireDecision struct {
	Decision string `json:"decision"`
	Reason   string `json:"reason"`
}

// Decide implements review.Approver.
func (a *LLMApprover) Decide(ctx context.Context, reply string, last review.Proposal) (review.Decision, error) {
	var out wireDecision
	err := a.client.CompleteJSON(ctx, llm.Request{
		System: a.instructions,
		User:   approverInput(reply, last),
		Schema: decisionSchema,
	}, &out)
	if err != nil {
		return review.Decision{}, errors.NewApproverFailed(err)
	}

	verdict, ok := parseVerdict(out.Decision)
	if !ok {
		return review.Decision{}, errors.NewApproverFailed(fmt.Errorf("unknown decision %q", out.Decision))
	}
	reason := strings.TrimSpace(out.Reason)
	if verdict == review.VerdictRevise && reason == "" {
		reason = NoCorrectionReason
	}
	return review.Decision{Verdict: verdict, Reason: reason}, nil
}

// parseVerdict accepts English and Portuguese labels.
func parseVerdict(s string) (review.Verdict, bool) {
	switch record.Fold(s) {
	case "approve", "approved", "aprovar", "aprovado":
		return review.VerdictApprove, true
	case "revise", "revisar", "revision":
		return review.VerdictRevise, true
	}
	return "", false
}

func approverInput(reply string, last review.Proposal) string {
	var b strings.Builder
	b.WriteString("Suggestion shown to the user:\n")
	fmt.Fprintf(&b, "Informations: %s\n", joinOrNone(last.Informations))
	fmt.Fprintf(&b, "Ideas: %s\n", joinOrNone(last.Ideas))
	fmt.Fprintf(&b, "Tasks: %s\n", joinOrNone(last.Tasks))
	fmt.Fprintf(&b, "\nUser reply: %q\n", reply)
	return b.String()
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "(none)"
	}
	return strings.Join(items, "; ")
}
