package mcp

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/sift/internal/config"
	"github.com/hpungsan/sift/internal/db"
	"github.com/hpungsan/sift/internal/errors"
	"github.com/hpungsan/sift/internal/ops"
	"github.com/hpungsan/sift/internal/prompts"
	"github.com/hpungsan/sift/internal/record"
	"github.com/hpungsan/sift/internal/review"
	"github.com/hpungsan/sift/internal/triage"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	db      *sql.DB
	cfg     *config.Config
	prompts *prompts.Set
	orch    *triage.Orchestrator

	// sessions holds open reviews by inbox item id.
	mu       sync.Mutex
	sessions map[string]triage.Session
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(database *sql.DB, cfg *config.Config, deps Deps) *Handlers {
	h := &Handlers{
		db:       database,
		cfg:      cfg,
		prompts:  deps.Prompts,
		sessions: make(map[string]triage.Session),
	}
	if h.prompts == nil {
		h.prompts = prompts.Default()
	}
	if deps.Loop != nil {
		logger := deps.Logger
		if logger == nil {
			logger = slog.New(slog.NewTextHandler(io.Discard, nil))
		}
		h.orch = triage.New(db.NewInbox(database), db.NewRecords(database), deps.Loop, nil,
			triage.WithLogger(logger),
			triage.WithRecorder(deps.Recorder),
			triage.WithLinkSiblings(cfg.AutoLinkEnabled()),
		)
	}
	return h
}

// Request types for each tool

// InboxAddRequest represents the arguments for inbox_add.
type InboxAddRequest struct {
	RawText string `json:"raw_text"`
}

// PageRequest represents the arguments for list tools.
type PageRequest struct {
	Kind   string `json:"kind,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

// RecordRequest addresses one record.
type RecordRequest struct {
	Kind string `json:"kind,omitempty"`
	ID   string `json:"id"`
}

// PathRequest represents the arguments for export and import.
type PathRequest struct {
	Path string `json:"path,omitempty"`
}

// LinkRequest represents the arguments for record_link.
type LinkRequest struct {
	InformationID string `json:"information_id"`
	IdeaID        string `json:"idea_id,omitempty"`
	TaskID        string `json:"task_id,omitempty"`
}

// PlanRequest represents the arguments for plan_compose.
type PlanRequest struct {
	IdeaID  string   `json:"idea_id"`
	TaskIDs []string `json:"task_ids"`
}

// SuggestionRequest represents the arguments for suggestion tools.
type SuggestionRequest struct {
	InformationID string `json:"information_id"`
	IdeaID        string `json:"idea_id,omitempty"`
}

// ReviewReplyRequest represents the arguments for review_reply.
type ReviewReplyRequest struct {
	ItemID string `json:"item_id"`
	Reply  string `json:"reply"`
}

// ReviewResponse is returned by review_start and review_reply. Exactly one
// of Proposal (review open) and Report (review finished) is set.
type ReviewResponse struct {
	ItemID        string           `json:"item_id,omitempty"`
	RawText       string           `json:"raw_text,omitempty"`
	State         review.State     `json:"state,omitempty"`
	Iteration     int              `json:"iteration,omitempty"`
	MaxIterations int              `json:"max_iterations,omitempty"`
	Proposal      *review.Proposal `json:"proposal,omitempty"`
	LastDecision  *review.Decision `json:"last_decision,omitempty"`
	Report        *triage.Report   `json:"report,omitempty"`
}

// Handler implementations

// HandleInboxAdd handles the inbox_add tool call.
func (h *Handlers) HandleInboxAdd(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[InboxAddRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	result, err := ops.InboxAdd(ctx, h.db, ops.InboxAddInput{RawText: input.RawText})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleInboxList handles the inbox_list tool call.
func (h *Handlers) HandleInboxList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[PageRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	result, err := ops.InboxList(ctx, h.db, ops.InboxListInput{Limit: input.Limit, Offset: input.Offset})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleInboxCount handles the inbox_count tool call.
func (h *Handlers) HandleInboxCount(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := ops.InboxCount(ctx, h.db)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleInboxRemove handles the inbox_remove tool call. An open review of
// the item is dropped with it.
func (h *Handlers) HandleInboxRemove(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[RecordRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	result, err := ops.InboxRemove(ctx, h.db, ops.InboxRemoveInput{ID: input.ID})
	if err != nil {
		return errorResult(err), nil
	}
	h.dropSession(result.ID)
	return successResult(result)
}

// HandleInboxImport handles the inbox_import tool call.
func (h *Handlers) HandleInboxImport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[PathRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	result, err := ops.Import(ctx, h.db, h.cfg, ops.ImportInput{Path: input.Path})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleRecordList handles the record_list tool call.
func (h *Handlers) HandleRecordList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[PageRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	result, err := ops.List(ctx, h.db, ops.ListInput{Kind: input.Kind, Limit: input.Limit, Offset: input.Offset})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleRecordDelete handles the record_delete tool call.
func (h *Handlers) HandleRecordDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[RecordRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	result, err := ops.Delete(ctx, h.db, ops.DeleteInput{Kind: input.Kind, ID: input.ID})
	if err != nil {
		return errorResult(err), nil
	}
	if result.Kind == record.KindInbox {
		h.dropSession(result.ID)
	}
	return successResult(result)
}

// HandleRecordLink handles the record_link tool call.
func (h *Handlers) HandleRecordLink(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[LinkRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	result, err := ops.Link(ctx, h.db, ops.LinkInput{
		InformationID: input.InformationID,
		IdeaID:        input.IdeaID,
		TaskID:        input.TaskID,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleRecordExport handles the record_export tool call.
func (h *Handlers) HandleRecordExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[PathRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	result, err := ops.Export(ctx, h.db, h.cfg, ops.ExportInput{Path: input.Path})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandlePlanCompose handles the plan_compose tool call.
func (h *Handlers) HandlePlanCompose(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[PlanRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	result, err := ops.ComposePlan(ctx, h.db, ops.ComposePlanInput{IdeaID: input.IdeaID, TaskIDs: input.TaskIDs})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleSuggestionList handles the suggestion_list tool call.
func (h *Handlers) HandleSuggestionList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SuggestionRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	result, err := ops.Suggest(ctx, h.db, h.prompts, ops.SuggestInput{InformationID: input.InformationID})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleSuggestionAccept handles the suggestion_accept tool call.
func (h *Handlers) HandleSuggestionAccept(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SuggestionRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	result, err := ops.AcceptSuggestion(ctx, h.db, h.prompts, ops.AcceptSuggestionInput{
		InformationID: input.InformationID,
		IdeaID:        input.IdeaID,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleReviewStart handles the review_start tool call. Calling it again
// while the oldest item is under review returns the open proposal.
func (h *Handlers) HandleReviewStart(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if h.orch == nil {
		return errorResult(errors.NewInvalidRequest("review is not configured")), nil
	}
	item, err := db.NewInbox(h.db).PeekOldest(ctx)
	if err != nil {
		return errorResult(err), nil
	}
	if item == nil {
		return successResult(ReviewResponse{Report: &triage.Report{Outcome: triage.OutcomeEmpty}})
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if s, ok := h.sessions[item.ID]; ok {
		return successResult(sessionResponse(&s, nil))
	}
	s, rep, err := h.orch.BeginItem(ctx, *item)
	if err != nil {
		return errorResult(err), nil
	}
	if s != nil {
		h.sessions[item.ID] = *s
	}
	return successResult(sessionResponse(s, rep))
}

// HandleReviewReply handles the review_reply tool call.
func (h *Handlers) HandleReviewReply(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if h.orch == nil {
		return errorResult(errors.NewInvalidRequest("review is not configured")), nil
	}
	input, err := decode[ReviewReplyRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.sessions[input.ItemID]
	if !ok {
		return errorResult(errors.NewNotFound("review", input.ItemID)), nil
	}
	next, rep := h.orch.Reply(ctx, s, input.Reply)
	if next != nil {
		h.sessions[input.ItemID] = *next
	} else {
		delete(h.sessions, input.ItemID)
	}
	return successResult(sessionResponse(next, rep))
}

func (h *Handlers) dropSession(itemID string) {
	h.mu.Lock()
	delete(h.sessions, itemID)
	h.mu.Unlock()
}

func sessionResponse(s *triage.Session, rep *triage.Report) ReviewResponse {
	if s == nil {
		resp := ReviewResponse{Report: rep}
		if rep != nil {
			resp.ItemID = rep.ItemID
			resp.Iteration = rep.Iterations
		}
		return resp
	}
	return ReviewResponse{
		ItemID:        s.Item.ID,
		RawText:       s.Item.RawText,
		State:         s.State.State,
		Iteration:     s.State.Iteration,
		MaxIterations: s.State.MaxIterations,
		Proposal:      s.State.Current,
		LastDecision:  s.State.LastDecision,
	}
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Internal error details are not exposed.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if sErr, ok := errors.As(err); ok {
		errorObj := map[string]any{
			"code":    sErr.Code,
			"message": sErr.Message,
			"status":  sErr.Status,
		}
		if sErr.Code != errors.ErrInternal && sErr.Details != nil {
			errorObj["details"] = sErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
