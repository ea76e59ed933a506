package mcp

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hpungsan/sift/internal/config"
	"github.com/hpungsan/sift/internal/prompts"
	"github.com/hpungsan/sift/internal/review"
	"github.com/hpungsan/sift/internal/triage"
)

// KnownTypes lists all valid type names.
var KnownTypes = []string{"inbox", "record", "plan", "suggestion", "review"}

// Deps are the non-storage collaborators of the tool handlers.
type Deps struct {
	// Prompts renders suggested tasks. Defaults to prompts.Default().
	Prompts *prompts.Set
	// Loop drives review_start and review_reply. Nil leaves the review
	// tools unregistered.
	Loop     *review.Loop
	Recorder triage.Recorder
	Logger   *slog.Logger
}

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"inbox_add": {
		def:     inboxAddToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleInboxAdd },
	},
	"inbox_list": {
		def:     inboxListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleInboxList },
	},
	"inbox_count": {
		def:     inboxCountToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleInboxCount },
	},
	"inbox_remove": {
		def:     inboxRemoveToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleInboxRemove },
	},
	"inbox_import": {
		def:     inboxImportToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleInboxImport },
	},
	"record_list": {
		def:     recordListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleRecordList },
	},
	"record_delete": {
		def:     recordDeleteToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleRecordDelete },
	},
	"record_link": {
		def:     recordLinkToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleRecordLink },
	},
	"record_export": {
		def:     recordExportToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleRecordExport },
	},
	"plan_compose": {
		def:     planComposeToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandlePlanCompose },
	},
	"suggestion_list": {
		def:     suggestionListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSuggestionList },
	},
	"suggestion_accept": {
		def:     suggestionAcceptToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSuggestionAccept },
	},
	"review_start": {
		def:     reviewStartToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleReviewStart },
	},
	"review_reply": {
		def:     reviewReplyToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleReviewReply },
	},
}

// AllToolNames returns a list of all valid tool names.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	return names
}

// ValidateDisabledTools returns a list of unknown tool names from the given list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// ValidateDisabledTypes returns a list of unknown type names from the given list.
func ValidateDisabledTypes(names []string) []string {
	known := make(map[string]bool, len(KnownTypes))
	for _, t := range KnownTypes {
		known[t] = true
	}

	unknown := make([]string, 0)
	for _, name := range names {
		if !known[name] {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// GetTypeForTool extracts the type name from a tool name.
// Tool names follow the pattern "type_action" (e.g., "inbox_add" → "inbox").
func GetTypeForTool(toolName string) string {
	if idx := strings.Index(toolName, "_"); idx > 0 {
		return toolName[:idx]
	}
	return ""
}

// ExpandTypesToTools returns all tool names belonging to the given types.
func ExpandTypesToTools(types []string) []string {
	if len(types) == 0 {
		return nil
	}

	typeSet := make(map[string]bool, len(types))
	for _, t := range types {
		typeSet[t] = true
	}

	tools := make([]string, 0)
	for name := range toolRegistry {
		if typeSet[GetTypeForTool(name)] {
			tools = append(tools, name)
		}
	}
	return tools
}

// enabledTools returns the registry names that survive cfg's disable lists
// and the available deps.
func enabledTools(cfg *config.Config, deps Deps) []string {
	disabled := make(map[string]bool)
	for _, tool := range ExpandTypesToTools(cfg.DisabledTypes) {
		disabled[tool] = true
	}
	for _, name := range cfg.DisabledTools {
		disabled[name] = true
	}
	if deps.Loop == nil {
		for _, tool := range ExpandTypesToTools([]string{"review"}) {
			disabled[tool] = true
		}
	}

	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		if !disabled[name] {
			names = append(names, name)
		}
	}
	return names
}

// NewServer creates a new MCP server with Sift tools registered.
// Tools listed in cfg.DisabledTools or belonging to cfg.DisabledTypes
// are excluded from registration.
func NewServer(db *sql.DB, cfg *config.Config, deps Deps, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"sift",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(db, cfg, deps)
	for _, name := range enabledTools(cfg, deps) {
		entry := toolRegistry[name]
		s.AddTool(entry.def, entry.handler(h))
	}
	return s
}

// Run starts the MCP server using stdio transport.
func Run(db *sql.DB, cfg *config.Config, deps Deps, version string) error {
	return server.ServeStdio(NewServer(db, cfg, deps, version))
}

// ToolHandlerFunc is the signature for tool handlers.
type ToolHandlerFunc func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)
