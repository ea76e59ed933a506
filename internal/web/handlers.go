package web

import (
	"database/sql"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hpungsan/sift/internal/config"
	"github.com/hpungsan/sift/internal/errors"
	"github.com/hpungsan/sift/internal/metrics"
	"github.com/hpungsan/sift/internal/ops"
	"github.com/hpungsan/sift/internal/record"
	"github.com/hpungsan/sift/internal/suggest"
)

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	db          *sql.DB
	cfg         *config.Config
	suggestions suggest.Template
	metrics     *metrics.Metrics
	renderer    *Renderer
}

// HandleInbox handles GET /inbox — list queued notes oldest first.
func (h *Handlers) HandleInbox(w http.ResponseWriter, r *http.Request) {
	result, err := ops.InboxList(r.Context(), h.db, ops.InboxListInput{
		Limit:  parseIntParam(r, "limit", ops.DefaultListLimit),
		Offset: parseIntParam(r, "offset", 0),
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	h.metrics.SetInboxDepth(result.Pagination.Total)

	notes := make([]NoteView, 0, len(result.Items))
	for _, item := range result.Items {
		notes = append(notes, NoteView{Item: item, Rendered: renderMarkdown(item.RawText)})
	}

	h.renderer.renderPage(w, r, "inbox", InboxPageData{
		PageData:   h.renderer.page("Inbox", "inbox"),
		Items:      notes,
		Pagination: result.Pagination,
	})
}

// HandleInboxAdd handles POST /inbox — queue a note from the form.
func (h *Handlers) HandleInboxAdd(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
		return
	}

	item, err := ops.InboxAdd(r.Context(), h.db, ops.InboxAddInput{RawText: r.FormValue("raw_text")})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusCreated, item)
		return
	}
	http.Redirect(w, r, "/inbox", http.StatusSeeOther)
}

// HandleInboxRemove handles DELETE /inbox/{id} — drop a queued note.
func (h *Handlers) HandleInboxRemove(w http.ResponseWriter, r *http.Request) {
	result, err := ops.InboxRemove(r.Context(), h.db, ops.InboxRemoveInput{ID: chi.URLParam(r, "id")})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	h.respondDeleted(w, r, "/inbox", map[string]any{
		"removed": result.Removed,
		"id":      result.ID,
	})
}

// HandleRecords handles GET /records/{kind} — list one kind of record.
func (h *Handlers) HandleRecords(w http.ResponseWriter, r *http.Request) {
	result, err := ops.List(r.Context(), h.db, ops.ListInput{
		Kind:   chi.URLParam(r, "kind"),
		Limit:  parseIntParam(r, "limit", ops.DefaultListLimit),
		Offset: parseIntParam(r, "offset", 0),
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	if result.Kind == record.KindInbox {
		http.Redirect(w, r, "/inbox", http.StatusFound)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	h.renderer.renderPage(w, r, "records", RecordsPageData{
		PageData:   h.renderer.page(kindTitle(result.Kind), string(result.Kind)),
		Kind:       result.Kind,
		Items:      result.Items,
		Pagination: result.Pagination,
	})
}

// HandleRecordDelete handles DELETE /records/{kind}/{id}.
func (h *Handlers) HandleRecordDelete(w http.ResponseWriter, r *http.Request) {
	result, err := ops.Delete(r.Context(), h.db, ops.DeleteInput{
		Kind: chi.URLParam(r, "kind"),
		ID:   chi.URLParam(r, "id"),
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	h.respondDeleted(w, r, "/records/"+string(result.Kind), map[string]any{
		"deleted":        result.Deleted,
		"kind":           result.Kind,
		"id":             result.ID,
		"cascaded_tasks": result.CascadedTasks,
	})
}

// HandleSuggestions handles GET /information/{id}/suggestions.
func (h *Handlers) HandleSuggestions(w http.ResponseWriter, r *http.Request) {
	result, err := ops.Suggest(r.Context(), h.db, h.suggestions, ops.SuggestInput{InformationID: chi.URLParam(r, "id")})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	h.renderer.renderPage(w, r, "suggestions", SuggestionsPageData{
		PageData:    h.renderer.page("Suggestions", string(record.KindInformation)),
		Information: result.Information,
		Suggestions: result.Suggestions,
	})
}

// HandleSuggestionAccept handles POST /information/{id}/suggestions/{ideaID}
// — store the suggested task.
func (h *Handlers) HandleSuggestionAccept(w http.ResponseWriter, r *http.Request) {
	result, err := ops.AcceptSuggestion(r.Context(), h.db, h.suggestions, ops.AcceptSuggestionInput{
		InformationID: chi.URLParam(r, "id"),
		IdeaID:        chi.URLParam(r, "ideaID"),
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusCreated, result)
		return
	}
	http.Redirect(w, r, "/records/task", http.StatusSeeOther)
}

// respondDeleted answers a successful DELETE for htmx, JSON and plain clients.
func (h *Handlers) respondDeleted(w http.ResponseWriter, r *http.Request, redirect string, body map[string]any) {
	// HTMX request: redirect via HX-Redirect header
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", redirect)
		w.WriteHeader(http.StatusOK)
		return
	}
	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, body)
		return
	}
	http.Redirect(w, r, redirect, http.StatusFound)
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}

func kindTitle(k record.Kind) string {
	switch k {
	case record.KindInformation:
		return "Informations"
	case record.KindIdea:
		return "Ideas"
	case record.KindTask:
		return "Tasks"
	case record.KindPlan:
		return "Plans"
	}
	return "Inbox"
}
