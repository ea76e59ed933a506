package agent

import (
	"context"

	"github.com/hpungsan/sift/internal/errors"
	"github.com/hpungsan/sift/internal/llm"
	"github.com/hpungsan/sift/internal/review"
)

// LLMProposer asks a model to classify a note.
type LLMProposer struct {
	client       Completer
	instructions string
}

// NewLLMProposer creates a proposer with the given system instructions.
func NewLLMProposer(client Completer, instructions string) *LLMProposer {
	return &LLMProposer{client: client, instructions: instructions}
}

type wireProposal struct {
	Informations []string `json:"informations"`
	Ideas        []string `json:"ideas"`
	Tasks        []string `json:"tasks"`
	Approved     bool     `json:"approved"`
}

// Propose implements review.Proposer.
func (p *LLMProposer) Propose(ctx context.Context, rawText string, history []review.HistoryEntry) (review.Proposal, error) {
	var out wireProposal
	err := p.client.CompleteJSON(ctx, llm.Request{
		System: p.instructions,
		User:   review.BuildContext(rawText, history),
		Schema: proposalSchema,
	}, &out)
	if err != nil {
		return review.Proposal{}, errors.NewProposerFailed(err)
	}
	return review.Proposal{
		Informations: out.Informations,
		Ideas:        out.Ideas,
		Tasks:        out.Tasks,
		Approved:     out.Approved,
	}.Clean(), nil
}
