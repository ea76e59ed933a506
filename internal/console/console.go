// Package console is the terminal transport of the review loop: it shows a
// proposal, reads the human reply from a line-oriented input, and prints
// the outcome of each processed note.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/hpungsan/sift/internal/review"
	"github.com/hpungsan/sift/internal/triage"
)

type readResult struct {
	line string
	err  error
}

// Reviewer implements review.Reviewer over a reader and a writer.
// It is not safe for concurrent use.
type Reviewer struct {
	in          *bufio.Reader
	out         io.Writer
	styles      styles
	interactive bool

	// pending holds a read that outlived a cancelled Review, so the next
	// call picks it up instead of racing it on the same reader.
	pending chan readResult
}

// NewReviewer creates a Reviewer. The prompt marker is printed only when
// in is a terminal.
func NewReviewer(in io.Reader, out io.Writer) *Reviewer {
	return &Reviewer{
		in:          bufio.NewReader(in),
		out:         out,
		styles:      newStyles(lipgloss.NewRenderer(out)),
		interactive: IsTerminal(in),
	}
}

// IsTerminal reports whether v is a file attached to a terminal.
func IsTerminal(v any) bool {
	f, ok := v.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Review prints the current proposal and returns the next input line with
// its line ending removed. End of input with nothing typed is io.EOF.
func (r *Reviewer) Review(ctx context.Context, state review.LoopState) (string, error) {
	fmt.Fprint(r.out, RenderState(r.styles, state))
	if r.interactive {
		fmt.Fprint(r.out, r.styles.prompt.Render("> "))
	}

	if r.pending == nil {
		r.pending = make(chan readResult, 1)
		go func(ch chan<- readResult) {
			line, err := r.in.ReadString('\n')
			ch <- readResult{line: line, err: err}
		}(r.pending)
	}

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-r.pending:
		r.pending = nil
		line := strings.TrimRight(res.line, "\r\n")
		if res.err != nil && (res.err != io.EOF || line == "") {
			return "", res.err
		}
		return line, nil
	}
}

// RenderState formats a proposal awaiting feedback.
func RenderState(s styles, state review.LoopState) string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(s.title.Render(fmt.Sprintf("Proposal %d of %d", state.Iteration, state.MaxIterations)))
	b.WriteString("\n")
	b.WriteString(s.muted.Render("Note: " + state.RawText))
	b.WriteString("\n")

	if state.Current != nil {
		writeSection(&b, s, "Informations", state.Current.Informations)
		writeSection(&b, s, "Ideas", state.Current.Ideas)
		writeSection(&b, s, "Tasks", state.Current.Tasks)
	}
	if d := state.LastDecision; d != nil && !d.Approved() && d.Reason != "" {
		b.WriteString(s.muted.Render("Applied correction: " + d.Reason))
		b.WriteString("\n")
	}
	b.WriteString("Reply to approve, or describe what to change:\n")
	return b.String()
}

func writeSection(b *strings.Builder, s styles, name string, items []string) {
	b.WriteString(s.section.Render(name + ":"))
	b.WriteString("\n")
	if len(items) == 0 {
		b.WriteString(s.muted.Render("  (none)"))
		b.WriteString("\n")
		return
	}
	for _, item := range items {
		b.WriteString("  - " + item + "\n")
	}
}

// PrintReports writes one line per processed note.
func PrintReports(w io.Writer, reports []triage.Report) {
	s := newStyles(lipgloss.NewRenderer(w))
	for _, rep := range reports {
		fmt.Fprintln(w, RenderReport(s, rep))
	}
}

// RenderReport formats one report.
func RenderReport(s styles, rep triage.Report) string {
	switch rep.Outcome {
	case triage.OutcomeEmpty:
		return s.muted.Render("inbox is empty")
	case triage.OutcomeSaved:
		n := 0
		if rep.Saved != nil {
			n = rep.Saved.Total()
		}
		return s.ok.Render(fmt.Sprintf("saved %s: %d records after %d rounds", rep.ItemID, n, rep.Iterations))
	default:
		line := fmt.Sprintf("%s %s after %d rounds", rep.Outcome, rep.ItemID, rep.Iterations)
		if rep.Reason != "" {
			line += ": " + rep.Reason
		}
		if rep.Queued() {
			line += " (still queued)"
		}
		return s.warn.Render(line)
	}
}
