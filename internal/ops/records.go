package ops

import (
	"context"
	"database/sql"

	"github.com/hpungsan/sift/internal/db"
	"github.com/hpungsan/sift/internal/errors"
	"github.com/hpungsan/sift/internal/record"
)

// ListInput contains parameters for the List operation.
type ListInput struct {
	Kind   string // required; aliases and plurals accepted
	Limit  int    // default: 20, max: 100
	Offset int
}

// ListOutput contains the result of the List operation.
type ListOutput struct {
	Kind       record.Kind     `json:"kind"`
	Items      []record.Record `json:"items"`
	Pagination Pagination      `json:"pagination"`
}

// List returns the records of one kind, oldest first. The inbox is listed
// through the same interface.
func List(ctx context.Context, database *sql.DB, input ListInput) (*ListOutput, error) {
	kind, err := record.ParseKind(input.Kind)
	if err != nil {
		return nil, err
	}

	var recs []record.Record
	if kind == record.KindInbox {
		items, err := db.NewInbox(database).List(ctx)
		if err != nil {
			return nil, err
		}
		recs = make([]record.Record, 0, len(items))
		for _, item := range items {
			recs = append(recs, item)
		}
	} else {
		recs, err = db.NewRecords(database).List(ctx, kind)
		if err != nil {
			return nil, err
		}
	}

	page, pagination := paginate(recs, input.Limit, input.Offset)
	return &ListOutput{Kind: kind, Items: page, Pagination: pagination}, nil
}

// DeleteInput contains parameters for the Delete operation.
type DeleteInput struct {
	Kind string
	ID   string
}

// DeleteOutput contains the result of the Delete operation.
type DeleteOutput struct {
	Deleted       bool        `json:"deleted"`
	Kind          record.Kind `json:"kind"`
	ID            string      `json:"id"`
	CascadedTasks int         `json:"cascaded_tasks,omitempty"`
}

// Delete removes one record of any kind. Deleting a plan deletes its tasks.
func Delete(ctx context.Context, database *sql.DB, input DeleteInput) (*DeleteOutput, error) {
	kind, err := record.ParseKind(input.Kind)
	if err != nil {
		return nil, err
	}
	id, err := requireID("id", input.ID)
	if err != nil {
		return nil, err
	}

	if kind == record.KindInbox {
		if err := db.NewInbox(database).Remove(ctx, id); err != nil {
			return nil, err
		}
		return &DeleteOutput{Deleted: true, Kind: kind, ID: id}, nil
	}

	res, err := db.NewRecords(database).Delete(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	return &DeleteOutput{Deleted: true, Kind: res.Kind, ID: res.ID, CascadedTasks: res.CascadedTasks}, nil
}

// LinkInput contains parameters for the Link operation. Exactly one of
// IdeaID and TaskID must be set.
type LinkInput struct {
	InformationID string
	IdeaID        string
	TaskID        string
}

// LinkOutput contains the result of the Link operation.
type LinkOutput struct {
	Linked        bool        `json:"linked"`
	InformationID string      `json:"information_id"`
	TargetKind    record.Kind `json:"target_kind"`
	TargetID      string      `json:"target_id"`
}

// Link records that an Information supports an Idea or a Task.
func Link(ctx context.Context, database *sql.DB, input LinkInput) (*LinkOutput, error) {
	infoID, err := requireID("information_id", input.InformationID)
	if err != nil {
		return nil, err
	}

	var target record.Kind
	var targetID string
	switch {
	case input.IdeaID != "" && input.TaskID != "":
		return nil, errors.NewInvalidRequest("specify either idea_id or task_id, not both")
	case input.IdeaID != "":
		target, targetID = record.KindIdea, input.IdeaID
	case input.TaskID != "":
		target, targetID = record.KindTask, input.TaskID
	default:
		return nil, errors.NewInvalidRequest("idea_id or task_id is required")
	}
	if targetID, err = requireID(string(target)+"_id", targetID); err != nil {
		return nil, err
	}

	if err := db.NewRecords(database).Link(ctx, infoID, target, targetID); err != nil {
		return nil, err
	}
	return &LinkOutput{Linked: true, InformationID: infoID, TargetKind: target, TargetID: targetID}, nil
}
