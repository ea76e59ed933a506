package ops

import (
	"context"
	"database/sql"

	"github.com/hpungsan/sift/internal/db"
	"github.com/hpungsan/sift/internal/record"
)

// ComposePlanInput contains parameters for the ComposePlan operation.
type ComposePlanInput struct {
	IdeaID  string
	TaskIDs []string // at least 2 distinct ids, in plan order
}

// ComposePlan groups an existing Idea with existing Tasks into a Plan.
func ComposePlan(ctx context.Context, database *sql.DB, input ComposePlanInput) (*record.Plan, error) {
	ideaID, err := requireID("idea_id", input.IdeaID)
	if err != nil {
		return nil, err
	}
	return db.NewRecords(database).ComposePlan(ctx, ideaID, input.TaskIDs)
}
