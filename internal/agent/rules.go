package agent

import (
	"context"
	"strings"
	"unicode"

	"github.com/hpungsan/sift/internal/record"
	"github.com/hpungsan/sift/internal/review"
)

// Words are compared after accent folding, so "não" matches "nao".
var (
	// contrastCues introduce a correction after an approving opening.
	contrastCues = set("mas", "porem", "but", "however", "contudo", "entretanto", "exceto", "except")

	// exclusionCues are contrast words that belong to the correction itself.
	exclusionCues = set("exceto", "except")

	// leadingCues reject only as the first word: mid-sentence "no" is the
	// Portuguese contraction or an English "no changes".
	leadingCues = set("no", "n")

	// revisionCues ask for a change or reject outright.
	revisionCues = set(
		"remova", "remove", "retire", "tire", "adicione", "add", "inclua", "include",
		"mude", "change", "altere", "troque", "substitua", "replace", "descarte", "discard",
		"delete", "apague", "corrija", "fix", "revise", "revisar", "refaca", "redo",
		"errado", "wrong", "nao", "not", "nope", "reject", "rejeito",
	)

	// rejectionTerms reject without naming a change.
	rejectionTerms = set("n", "nao", "no", "nope", "reject", "rejeito", "revise", "revisar", "refaca", "redo")

	approvalTerms = set(
		"s", "sim", "y", "yes", "ok", "okay", "aprovado", "aprovo", "approve", "approved",
		"concordo", "perfeito", "otimo", "lgtm", "certo", "beleza", "isso", "exato",
	)

	approvalPhrases = []string{"esta bom", "ta bom", "pode seguir", "looks good", "sounds good", "tudo certo"}
)

func set(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}

// RuleApprover classifies replies with keyword rules and no model call.
// Any revision cue wins over approval wording; unrecognized text is taken
// as a correction instruction.
type RuleApprover struct{}

// NewRuleApprover creates a rule-based approver.
func NewRuleApprover() *RuleApprover { return &RuleApprover{} }

// Decide implements review.Approver.
func (a *RuleApprover) Decide(_ context.Context, reply string, _ review.Proposal) (review.Decision, error) {
	return a.Classify(reply), nil
}

// Classify is Decide without the context plumbing.
func (a *RuleApprover) Classify(reply string) review.Decision {
	words := record.Words(reply)
	if len(words) == 0 {
		return review.Decision{Verdict: review.VerdictRevise, Reason: NoCorrectionReason}
	}

	if HasRevisionCue(reply) {
		return review.Decision{Verdict: review.VerdictRevise, Reason: correction(reply)}
	}
	if approves(reply, words) {
		return review.Decision{Verdict: review.VerdictApprove, Reason: "reply approves the suggestion"}
	}
	return review.Decision{Verdict: review.VerdictRevise, Reason: strings.TrimSpace(reply)}
}

// HasRevisionCue reports whether reply contains a contrast or revision word.
// "change" right after "no" or "sem" is not a cue.
func HasRevisionCue(reply string) bool {
	words := record.Words(reply)
	for i, w := range words {
		if leadingCues[w] {
			if i == 0 {
				return true
			}
			continue
		}
		if w == "change" && i > 0 && (words[i-1] == "no" || words[i-1] == "sem") {
			continue
		}
		if contrastCues[w] || revisionCues[w] {
			return true
		}
	}
	return strings.Contains(record.Fold(reply), "nao gostei")
}

func approves(reply string, words []string) bool {
	for _, w := range words {
		if approvalTerms[w] {
			return true
		}
	}
	folded := record.Fold(reply)
	for _, p := range approvalPhrases {
		if strings.Contains(folded, p) {
			return true
		}
	}
	return false
}

// correction extracts the actionable part of a revise reply: the text after
// the first contrast word when there is one, otherwise the whole reply.
// Exclusion words ("exceto a ideia") stay in the correction.
// A reply made only of rejection words yields NoCorrectionReason.
func correction(reply string) string {
	fields := strings.Fields(reply)
	for i, f := range fields {
		cue := record.Fold(trimPunct(f))
		if contrastCues[cue] {
			rest := trimPunct(strings.Join(fields[i+1:], " "))
			if rest == "" {
				break
			}
			if exclusionCues[cue] {
				return trimPunct(f) + " " + rest
			}
			return rest
		}
	}

	pure := true
	for _, w := range record.Words(reply) {
		if !rejectionTerms[w] && !approvalTerms[w] && !contrastCues[w] {
			pure = false
			break
		}
	}
	if pure {
		return NoCorrectionReason
	}
	return strings.TrimSpace(reply)
}

func trimPunct(s string) string {
	return strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSpace(r)
	})
}
