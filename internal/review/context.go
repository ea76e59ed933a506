package review

import (
	"fmt"
	"strings"
)

// BuildContext renders the proposer input for one round: the original note
// always, then every earlier round with its proposal, the literal reply and
// the approver's decision and reason.
func BuildContext(rawText string, history []HistoryEntry) string {
	var b strings.Builder
	b.WriteString("Original inbox message:\n")
	b.WriteString(rawText)
	b.WriteString("\n")

	if len(history) == 0 {
		return b.String()
	}

	for i, h := range history {
		fmt.Fprintf(&b, "\n--- Round %d ---\n", i+1)
		b.WriteString("Your suggestion:\n")
		writeList(&b, "Informations", h.Proposal.Informations)
		writeList(&b, "Ideas", h.Proposal.Ideas)
		writeList(&b, "Tasks", h.Proposal.Tasks)
		fmt.Fprintf(&b, "User reply: %q\n", h.HumanReply)
		fmt.Fprintf(&b, "Approver decision: %s\n", h.Decision.Verdict)
		if h.Decision.Reason != "" {
			fmt.Fprintf(&b, "Approver reason: %s\n", h.Decision.Reason)
		}
	}

	b.WriteString("\nProduce a revised suggestion for the original message that applies the latest correction. ")
	b.WriteString("If no concrete correction was given, propose an arrangement different from the previous ones. ")
	b.WriteString("Set approved to true only if the latest user reply already approved the suggestion.\n")
	return b.String()
}

func writeList(b *strings.Builder, label string, items []string) {
	fmt.Fprintf(b, "%s:", label)
	if len(items) == 0 {
		b.WriteString(" (none)\n")
		return
	}
	b.WriteString("\n")
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
}
