// Package suggest proposes tasks by matching an Information against
// existing Ideas on shared vocabulary. It never creates records.
package suggest

import (
	"sort"

	"github.com/hpungsan/sift/internal/record"
)

// Template renders the text of a suggested task. *prompts.Set implements it.
type Template interface {
	Suggestion(terms []string, idea string) string
}

// Candidate is one suggested task.
type Candidate struct {
	InformationID string   `json:"information_id"`
	IdeaID        string   `json:"idea_id"`
	IdeaContent   string   `json:"idea_content"`
	SharedTerms   []string `json:"shared_terms"`
	TaskContent   string   `json:"task_content"`
}

// Match returns one candidate per idea sharing at least one token with
// info, in idea order. Tokens are accent-folded and lowercased.
func Match(info record.Information, ideas []record.Idea, tmpl Template) []Candidate {
	infoTokens := make(map[string]bool)
	for _, tok := range record.Tokenize(info.Content) {
		infoTokens[tok] = true
	}

	candidates := []Candidate{}
	if len(infoTokens) == 0 {
		return candidates
	}

	for _, idea := range ideas {
		var shared []string
		for _, tok := range record.Tokenize(idea.Content) {
			if infoTokens[tok] {
				shared = append(shared, tok)
			}
		}
		if len(shared) == 0 {
			continue
		}
		sort.Strings(shared)
		candidates = append(candidates, Candidate{
			InformationID: info.ID,
			IdeaID:        idea.ID,
			IdeaContent:   idea.Content,
			SharedTerms:   shared,
			TaskContent:   tmpl.Suggestion(shared, idea.Content),
		})
	}
	return candidates
}

// Find returns the candidate for ideaID, if any.
func Find(candidates []Candidate, ideaID string) (Candidate, bool) {
	for _, c := range candidates {
		if c.IdeaID == ideaID {
			return c, true
		}
	}
	return Candidate{}, false
}
