package ops

import (
	"context"
	"database/sql"

	"github.com/hpungsan/sift/internal/db"
	"github.com/hpungsan/sift/internal/record"
)

// InboxAddInput contains parameters for the InboxAdd operation.
type InboxAddInput struct {
	RawText string
}

// InboxAdd queues a raw note.
func InboxAdd(ctx context.Context, database *sql.DB, input InboxAddInput) (*record.InboxItem, error) {
	return db.NewInbox(database).Enqueue(ctx, input.RawText)
}

// InboxListInput contains parameters for the InboxList operation.
type InboxListInput struct {
	Limit  int // default: 20, max: 100
	Offset int
}

// InboxListOutput contains the result of the InboxList operation.
type InboxListOutput struct {
	Items      []record.InboxItem `json:"items"`
	Pagination Pagination         `json:"pagination"`
	Sort       string             `json:"sort"`
}

// InboxList returns queued notes oldest first.
func InboxList(ctx context.Context, database *sql.DB, input InboxListInput) (*InboxListOutput, error) {
	items, err := db.NewInbox(database).List(ctx)
	if err != nil {
		return nil, err
	}
	page, pagination := paginate(items, input.Limit, input.Offset)
	return &InboxListOutput{
		Items:      page,
		Pagination: pagination,
		Sort:       "arrival_asc",
	}, nil
}

// InboxCountOutput contains the result of the InboxCount operation.
type InboxCountOutput struct {
	Count int `json:"count"`
}

// InboxCount returns the number of queued notes.
func InboxCount(ctx context.Context, database *sql.DB) (*InboxCountOutput, error) {
	n, err := db.NewInbox(database).Count(ctx)
	if err != nil {
		return nil, err
	}
	return &InboxCountOutput{Count: n}, nil
}

// InboxRemoveInput contains parameters for the InboxRemove operation.
type InboxRemoveInput struct {
	ID string
}

// InboxRemoveOutput contains the result of the InboxRemove operation.
type InboxRemoveOutput struct {
	Removed bool   `json:"removed"`
	ID      string `json:"id"`
}

// InboxRemove discards a queued note without triaging it.
func InboxRemove(ctx context.Context, database *sql.DB, input InboxRemoveInput) (*InboxRemoveOutput, error) {
	id, err := requireID("id", input.ID)
	if err != nil {
		return nil, err
	}
	if err := db.NewInbox(database).Remove(ctx, id); err != nil {
		return nil, err
	}
	return &InboxRemoveOutput{Removed: true, ID: id}, nil
}
