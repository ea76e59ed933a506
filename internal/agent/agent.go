// Package agent holds the Proposer and Approver implementations: the
// model-backed ones, an offline rule-based approver, and the wrapper that
// gives revision cues precedence over a model's approval.
package agent

import (
	"context"

	"github.com/hpungsan/sift/internal/llm"
)

// Completer is the part of llm.Client the agents need.
type Completer interface {
	CompleteJSON(ctx context.Context, req llm.Request, out any) error
}

func stringArray() map[string]any {
	return map[string]any{"type": "array", "items": map[string]any{"type": "string"}}
}

var proposalSchema = &llm.Schema{
	Name: "proposal",
	Schema: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"informations": stringArray(),
			"ideas":        stringArray(),
			"tasks":        stringArray(),
			"approved":     map[string]any{"type": "boolean"},
		},
		"required":             []string{"informations", "ideas", "tasks", "approved"},
		"additionalProperties": false,
	},
}

var decisionSchema = &llm.Schema{
	Name: "decision",
	Schema: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"decision": map[string]any{"type": "string", "enum": []string{"approve", "revise"}},
			"reason":   map[string]any{"type": "string"},
		},
		"required":             []string{"decision", "reason"},
		"additionalProperties": false,
	},
}
