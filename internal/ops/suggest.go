package ops

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hpungsan/sift/internal/db"
	"github.com/hpungsan/sift/internal/errors"
	"github.com/hpungsan/sift/internal/record"
	"github.com/hpungsan/sift/internal/suggest"
)

// SuggestInput contains parameters for the Suggest operation.
type SuggestInput struct {
	InformationID string
}

// SuggestOutput contains the result of the Suggest operation.
type SuggestOutput struct {
	Information record.Information  `json:"information"`
	Suggestions []suggest.Candidate `json:"suggestions"`
}

// Suggest lists tasks that would connect an Information to the Ideas it
// shares vocabulary with. Nothing is stored.
func Suggest(ctx context.Context, database *sql.DB, tmpl suggest.Template, input SuggestInput) (*SuggestOutput, error) {
	infoID, err := requireID("information_id", input.InformationID)
	if err != nil {
		return nil, err
	}

	store := db.NewRecords(database)
	info, err := store.GetInformation(ctx, infoID)
	if err != nil {
		return nil, err
	}
	ideas, err := store.ListIdeas(ctx)
	if err != nil {
		return nil, err
	}
	return &SuggestOutput{
		Information: *info,
		Suggestions: suggest.Match(*info, ideas, tmpl),
	}, nil
}

// AcceptSuggestionInput contains parameters for the AcceptSuggestion operation.
type AcceptSuggestionInput struct {
	InformationID string
	IdeaID        string
}

// AcceptSuggestionOutput contains the result of the AcceptSuggestion operation.
type AcceptSuggestionOutput struct {
	Task       record.Task       `json:"task"`
	Suggestion suggest.Candidate `json:"suggestion"`
}

// AcceptSuggestion stores the suggested task for one Idea, linked to the
// Information it came from. The suggestion is recomputed, so an Idea that
// no longer shares a term is refused.
func AcceptSuggestion(ctx context.Context, database *sql.DB, tmpl suggest.Template, input AcceptSuggestionInput) (*AcceptSuggestionOutput, error) {
	ideaID, err := requireID("idea_id", input.IdeaID)
	if err != nil {
		return nil, err
	}
	out, err := Suggest(ctx, database, tmpl, SuggestInput{InformationID: input.InformationID})
	if err != nil {
		return nil, err
	}

	candidate, ok := suggest.Find(out.Suggestions, ideaID)
	if !ok {
		if _, err := db.NewRecords(database).GetIdea(ctx, ideaID); err != nil {
			return nil, err
		}
		return nil, errors.NewInvalidRequest(fmt.Sprintf("idea %s shares no terms with information %s", ideaID, out.Information.ID))
	}

	task, err := db.NewRecords(database).CreateTask(ctx, candidate.TaskContent, out.Information.ID)
	if err != nil {
		return nil, err
	}
	return &AcceptSuggestionOutput{Task: *task, Suggestion: candidate}, nil
}
