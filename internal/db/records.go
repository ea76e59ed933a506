package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/hpungsan/sift/internal/errors"
	"github.com/hpungsan/sift/internal/record"
	"github.com/hpungsan/sift/internal/review"
)

// kindTables maps each record kind to its table. Generic operations
// dispatch through it instead of switching on concrete types.
var kindTables = map[record.Kind]string{
	record.KindInformation: "informations",
	record.KindIdea:        "ideas",
	record.KindTask:        "tasks",
	record.KindPlan:        "plans",
}

// Records stores approved Information, Idea, Task and Plan records.
type Records struct {
	db  *sql.DB
	now func() time.Time
}

// NewRecords returns a Records store backed by db.
func NewRecords(db *sql.DB) *Records {
	return &Records{db: db, now: time.Now}
}

// SaveInput is an approved proposal to materialize.
type SaveInput struct {
	Proposal review.Proposal
	// SourceItemID is the inbox item the proposal was derived from.
	SourceItemID string
	// LinkSiblings links every saved Information to every saved Idea and
	// Task of the same proposal.
	LinkSiblings bool
}

// SaveResult lists the records created by SaveProposal.
type SaveResult struct {
	Informations []record.Information `json:"informations"`
	Ideas        []record.Idea        `json:"ideas"`
	Tasks        []record.Task        `json:"tasks"`
}

// checkSource fails with NOT_FOUND when the inbox item is gone and with
// CONSTRAINT_VIOLATION when records derived from it already exist.
func checkSource(ctx context.Context, tx *sql.Tx, itemID string) error {
	var one int
	err := tx.QueryRowContext(ctx, `SELECT 1 FROM inbox_items WHERE id = ?`, itemID).Scan(&one)
	if err == sql.ErrNoRows {
		return errors.NewNotFound("inbox", itemID)
	}
	if err != nil {
		return storeError(err)
	}

	err = tx.QueryRowContext(ctx, `
		SELECT 1 FROM informations WHERE source_item_id = ?
		UNION ALL SELECT 1 FROM ideas WHERE source_item_id = ?
		UNION ALL SELECT 1 FROM tasks WHERE source_item_id = ?
		LIMIT 1`, itemID, itemID, itemID,
	).Scan(&one)
	switch {
	case err == sql.ErrNoRows:
		return nil
	case err != nil:
		return storeError(err)
	}
	return errors.NewConstraintViolation(
		fmt.Sprintf("records for inbox item %s are already saved", itemID),
		map[string]any{"item_id": itemID},
	)
}

// Total returns the number of records created.
func (r *SaveResult) Total() int {
	return len(r.Informations) + len(r.Ideas) + len(r.Tasks)
}

// SaveProposal creates one record per proposal item in a single
// transaction. A duplicate Information content rolls back everything.
// When SourceItemID is set the item must still be queued and must not
// already have saved records; otherwise nothing is written.
func (r *Records) SaveProposal(ctx context.Context, in SaveInput) (*SaveResult, error) {
	p := in.Proposal.Clean()
	if err := p.Validate(); err != nil {
		return nil, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storeError(err)
	}
	defer tx.Rollback()

	if in.SourceItemID != "" {
		if err := checkSource(ctx, tx, in.SourceItemID); err != nil {
			return nil, err
		}
	}

	now := r.now()
	createdAt := now.Unix()
	source := toNullString(in.SourceItemID)
	result := &SaveResult{
		Informations: []record.Information{},
		Ideas:        []record.Idea{},
		Tasks:        []record.Task{},
	}

	for _, content := range p.Informations {
		info := record.Information{ID: NewID(now), Content: content, SourceItemID: in.SourceItemID, CreatedAt: createdAt}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO informations (id, content, source_item_id, created_at) VALUES (?, ?, ?, ?)`,
			info.ID, info.Content, source, info.CreatedAt,
		)
		if err != nil {
			if isUniqueConstraintError(err) {
				return nil, errors.NewDuplicateInformation(content)
			}
			return nil, storeError(err)
		}
		result.Informations = append(result.Informations, info)
	}

	for _, content := range p.Ideas {
		idea := record.Idea{ID: NewID(now), Content: content, SourceItemID: in.SourceItemID, CreatedAt: createdAt}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO ideas (id, content, source_item_id, created_at) VALUES (?, ?, ?, ?)`,
			idea.ID, idea.Content, source, idea.CreatedAt,
		)
		if err != nil {
			return nil, storeError(err)
		}
		result.Ideas = append(result.Ideas, idea)
	}

	for _, content := range p.Tasks {
		task := record.Task{ID: NewID(now), Content: content, SourceItemID: in.SourceItemID, CreatedAt: createdAt}
		if err := insertTask(ctx, tx, task); err != nil {
			return nil, storeError(err)
		}
		result.Tasks = append(result.Tasks, task)
	}

	if in.LinkSiblings {
		for i := range result.Informations {
			info := &result.Informations[i]
			for j := range result.Ideas {
				if err := linkInformation(ctx, tx, record.KindIdea, info.ID, result.Ideas[j].ID); err != nil {
					return nil, storeError(err)
				}
				info.IdeaIDs = append(info.IdeaIDs, result.Ideas[j].ID)
				result.Ideas[j].InformationIDs = append(result.Ideas[j].InformationIDs, info.ID)
			}
			for j := range result.Tasks {
				if err := linkInformation(ctx, tx, record.KindTask, info.ID, result.Tasks[j].ID); err != nil {
					return nil, storeError(err)
				}
				info.TaskIDs = append(info.TaskIDs, result.Tasks[j].ID)
				result.Tasks[j].InformationIDs = append(result.Tasks[j].InformationIDs, info.ID)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, storeError(err)
	}
	return result, nil
}

// CreateTask creates a single Task linked to an existing Information.
// Used when a suggested task is accepted.
func (r *Records) CreateTask(ctx context.Context, content, informationID string) (*record.Task, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, errors.NewInvalidRequest("task content must not be empty")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storeError(err)
	}
	defer tx.Rollback()

	ok, err := exists(ctx, tx, kindTables[record.KindInformation], informationID)
	if err != nil {
		return nil, storeError(err)
	}
	if !ok {
		return nil, errors.NewNotFound(string(record.KindInformation), informationID)
	}

	now := r.now()
	task := record.Task{
		ID:             NewID(now),
		Content:        content,
		CreatedAt:      now.Unix(),
		InformationIDs: []string{informationID},
	}
	if err := insertTask(ctx, tx, task); err != nil {
		return nil, storeError(err)
	}
	if err := linkInformation(ctx, tx, record.KindTask, informationID, task.ID); err != nil {
		return nil, storeError(err)
	}

	if err := tx.Commit(); err != nil {
		return nil, storeError(err)
	}
	return &task, nil
}

func insertTask(ctx context.Context, q querier, t record.Task) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO tasks (id, content, source_item_id, created_at) VALUES (?, ?, ?, ?)`,
		t.ID, t.Content, toNullString(t.SourceItemID), t.CreatedAt,
	)
	return err
}

func linkInformation(ctx context.Context, q querier, target record.Kind, informationID, targetID string) error {
	var query string
	switch target {
	case record.KindIdea:
		query = `INSERT OR IGNORE INTO information_ideas (information_id, idea_id) VALUES (?, ?)`
	case record.KindTask:
		query = `INSERT OR IGNORE INTO information_tasks (information_id, task_id) VALUES (?, ?)`
	default:
		return errors.NewInvalidRequest(fmt.Sprintf("information can only be linked to an idea or task, not %s", target))
	}
	_, err := q.ExecContext(ctx, query, informationID, targetID)
	return err
}

// Link records that an Information supports an Idea or Task. Linking twice
// is a no-op.
func (r *Records) Link(ctx context.Context, informationID string, target record.Kind, targetID string) error {
	if target != record.KindIdea && target != record.KindTask {
		return errors.NewInvalidRequest(fmt.Sprintf("information can only be linked to an idea or task, not %s", target))
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return storeError(err)
	}
	defer tx.Rollback()

	checks := []struct {
		kind record.Kind
		id   string
	}{
		{record.KindInformation, informationID},
		{target, targetID},
	}
	for _, c := range checks {
		ok, err := exists(ctx, tx, kindTables[c.kind], c.id)
		if err != nil {
			return storeError(err)
		}
		if !ok {
			return errors.NewNotFound(string(c.kind), c.id)
		}
	}

	if err := linkInformation(ctx, tx, target, informationID, targetID); err != nil {
		return storeError(err)
	}
	return storeError(tx.Commit())
}

// ComposePlan groups an existing Idea with at least two existing Tasks.
// Repeated task ids are collapsed before the size check. A task may belong
// to one plan and an idea may have one plan.
func (r *Records) ComposePlan(ctx context.Context, ideaID string, taskIDs []string) (*record.Plan, error) {
	ids := dedupe(taskIDs)
	if len(ids) < record.MinPlanTasks {
		return nil, errors.NewPlanTooSmall(record.MinPlanTasks, len(ids))
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storeError(err)
	}
	defer tx.Rollback()

	idea, err := getIdea(ctx, tx, ideaID)
	if err != nil {
		return nil, err
	}
	if idea.PlanID != "" {
		return nil, errors.NewConstraintViolation(
			fmt.Sprintf("idea %s already has plan %s", ideaID, idea.PlanID),
			map[string]any{"idea_id": ideaID, "plan_id": idea.PlanID},
		)
	}

	tasks := make([]record.Task, 0, len(ids))
	for _, id := range ids {
		task, err := getTask(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		if task.PlanID != "" {
			return nil, errors.NewConstraintViolation(
				fmt.Sprintf("task %s already belongs to plan %s", id, task.PlanID),
				map[string]any{"task_id": id, "plan_id": task.PlanID},
			)
		}
		tasks = append(tasks, *task)
	}

	now := r.now()
	plan, err := record.NewPlan(NewID(now), *idea, tasks, now.Unix())
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO plans (id, idea_id, created_at) VALUES (?, ?, ?)`,
		plan.ID, plan.IdeaID, plan.CreatedAt,
	)
	if err != nil {
		return nil, storeError(err)
	}
	for pos, task := range plan.Tasks {
		_, err := tx.ExecContext(ctx,
			`UPDATE tasks SET plan_id = ?, plan_position = ? WHERE id = ?`,
			plan.ID, pos, task.ID,
		)
		if err != nil {
			return nil, storeError(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, storeError(err)
	}
	return plan, nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range record.CleanItems(ids) {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// DeleteResult reports what a delete removed.
type DeleteResult struct {
	Kind record.Kind `json:"kind"`
	ID   string      `json:"id"`
	// CascadedTasks counts the tasks removed with a plan.
	CascadedTasks int `json:"cascaded_tasks,omitempty"`
}

// deleteGuards run inside the delete transaction before the row goes.
var deleteGuards = map[record.Kind]func(ctx context.Context, q querier, id string) (int, error){
	record.KindIdea: func(ctx context.Context, q querier, id string) (int, error) {
		var planID string
		err := q.QueryRowContext(ctx, `SELECT id FROM plans WHERE idea_id = ?`, id).Scan(&planID)
		if err == sql.ErrNoRows {
			return 0, nil
		}
		if err != nil {
			return 0, storeError(err)
		}
		return 0, errors.NewConstraintViolation(
			fmt.Sprintf("idea %s is used by plan %s; delete the plan first", id, planID),
			map[string]any{"idea_id": id, "plan_id": planID},
		)
	},
	record.KindTask: func(ctx context.Context, q querier, id string) (int, error) {
		var planID sql.NullString
		if err := q.QueryRowContext(ctx, `SELECT plan_id FROM tasks WHERE id = ?`, id).Scan(&planID); err != nil {
			return 0, storeError(err)
		}
		if !planID.Valid {
			return 0, nil
		}
		var remaining int
		if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks WHERE plan_id = ?`, planID.String).Scan(&remaining); err != nil {
			return 0, storeError(err)
		}
		if remaining-1 < record.MinPlanTasks {
			return 0, errors.NewConstraintViolation(
				fmt.Sprintf("task %s is one of the last %d tasks of plan %s; delete the plan instead", id, record.MinPlanTasks, planID.String),
				map[string]any{"task_id": id, "plan_id": planID.String},
			)
		}
		return 0, nil
	},
	record.KindPlan: func(ctx context.Context, q querier, id string) (int, error) {
		var n int
		if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks WHERE plan_id = ?`, id).Scan(&n); err != nil {
			return 0, storeError(err)
		}
		return n, nil
	},
}

// Delete removes one record by kind and id. Links go with it; a plan takes
// its tasks with it.
func (r *Records) Delete(ctx context.Context, kind record.Kind, id string) (*DeleteResult, error) {
	table, ok := kindTables[kind]
	if !ok {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("cannot delete records of kind %s", kind))
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storeError(err)
	}
	defer tx.Rollback()

	found, err := exists(ctx, tx, table, id)
	if err != nil {
		return nil, storeError(err)
	}
	if !found {
		return nil, errors.NewNotFound(string(kind), id)
	}

	result := &DeleteResult{Kind: kind, ID: id}
	if guard, ok := deleteGuards[kind]; ok {
		cascaded, err := guard(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		result.CascadedTasks = cascaded
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE id = ?", id); err != nil {
		return nil, storeError(err)
	}
	if err := tx.Commit(); err != nil {
		return nil, storeError(err)
	}
	return result, nil
}

// List returns every record of kind through the Record interface.
func (r *Records) List(ctx context.Context, kind record.Kind) ([]record.Record, error) {
	var out []record.Record
	switch kind {
	case record.KindInformation:
		infos, err := r.ListInformations(ctx)
		if err != nil {
			return nil, err
		}
		for _, v := range infos {
			out = append(out, v)
		}
	case record.KindIdea:
		ideas, err := r.ListIdeas(ctx)
		if err != nil {
			return nil, err
		}
		for _, v := range ideas {
			out = append(out, v)
		}
	case record.KindTask:
		tasks, err := r.ListTasks(ctx)
		if err != nil {
			return nil, err
		}
		for _, v := range tasks {
			out = append(out, v)
		}
	case record.KindPlan:
		plans, err := r.ListPlans(ctx)
		if err != nil {
			return nil, err
		}
		for _, v := range plans {
			out = append(out, v)
		}
	default:
		return nil, errors.NewInvalidRequest(fmt.Sprintf("records store does not hold kind %s", kind))
	}
	if out == nil {
		out = []record.Record{}
	}
	return out, nil
}

// ListInformations returns all Information records with their links.
func (r *Records) ListInformations(ctx context.Context) ([]record.Information, error) {
	ideaLinks, err := linkMap(ctx, r.db, `SELECT information_id, idea_id FROM information_ideas ORDER BY idea_id`)
	if err != nil {
		return nil, storeError(err)
	}
	taskLinks, err := linkMap(ctx, r.db, `SELECT information_id, task_id FROM information_tasks ORDER BY task_id`)
	if err != nil {
		return nil, storeError(err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, content, source_item_id, created_at FROM informations
		ORDER BY created_at ASC, id ASC
	`)
	if err != nil {
		return nil, storeError(err)
	}
	defer rows.Close()

	infos := []record.Information{}
	for rows.Next() {
		var (
			info   record.Information
			source sql.NullString
		)
		if err := rows.Scan(&info.ID, &info.Content, &source, &info.CreatedAt); err != nil {
			return nil, storeError(err)
		}
		info.SourceItemID = source.String
		info.IdeaIDs = ideaLinks[info.ID]
		info.TaskIDs = taskLinks[info.ID]
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError(err)
	}
	return infos, nil
}

// GetInformation retrieves one Information by id.
func (r *Records) GetInformation(ctx context.Context, id string) (*record.Information, error) {
	var (
		info   record.Information
		source sql.NullString
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, content, source_item_id, created_at FROM informations WHERE id = ?`, id,
	).Scan(&info.ID, &info.Content, &source, &info.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(string(record.KindInformation), id)
	}
	if err != nil {
		return nil, storeError(err)
	}
	info.SourceItemID = source.String

	ideaLinks, err := linkMap(ctx, r.db, `SELECT information_id, idea_id FROM information_ideas WHERE information_id = ? ORDER BY idea_id`, id)
	if err != nil {
		return nil, storeError(err)
	}
	taskLinks, err := linkMap(ctx, r.db, `SELECT information_id, task_id FROM information_tasks WHERE information_id = ? ORDER BY task_id`, id)
	if err != nil {
		return nil, storeError(err)
	}
	info.IdeaIDs = ideaLinks[id]
	info.TaskIDs = taskLinks[id]
	return &info, nil
}

const ideaColumns = `
	SELECT i.id, i.content, i.source_item_id, i.created_at, p.id
	FROM ideas i LEFT JOIN plans p ON p.idea_id = i.id
`

func scanIdea(scan func(dest ...any) error) (record.Idea, error) {
	var (
		idea   record.Idea
		source sql.NullString
		planID sql.NullString
	)
	if err := scan(&idea.ID, &idea.Content, &source, &idea.CreatedAt, &planID); err != nil {
		return record.Idea{}, err
	}
	idea.SourceItemID = source.String
	idea.PlanID = planID.String
	return idea, nil
}

// ListIdeas returns all Ideas with their linked informations and plan.
func (r *Records) ListIdeas(ctx context.Context) ([]record.Idea, error) {
	links, err := linkMap(ctx, r.db, `SELECT idea_id, information_id FROM information_ideas ORDER BY information_id`)
	if err != nil {
		return nil, storeError(err)
	}

	rows, err := r.db.QueryContext(ctx, ideaColumns+` ORDER BY i.created_at ASC, i.id ASC`)
	if err != nil {
		return nil, storeError(err)
	}
	defer rows.Close()

	ideas := []record.Idea{}
	for rows.Next() {
		idea, err := scanIdea(rows.Scan)
		if err != nil {
			return nil, storeError(err)
		}
		idea.InformationIDs = links[idea.ID]
		ideas = append(ideas, idea)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError(err)
	}
	return ideas, nil
}

// GetIdea retrieves one Idea by id.
func (r *Records) GetIdea(ctx context.Context, id string) (*record.Idea, error) {
	return getIdea(ctx, r.db, id)
}

func getIdea(ctx context.Context, q querier, id string) (*record.Idea, error) {
	idea, err := scanIdea(q.QueryRowContext(ctx, ideaColumns+` WHERE i.id = ?`, id).Scan)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(string(record.KindIdea), id)
	}
	if err != nil {
		return nil, storeError(err)
	}
	links, err := linkMap(ctx, q, `SELECT idea_id, information_id FROM information_ideas WHERE idea_id = ? ORDER BY information_id`, id)
	if err != nil {
		return nil, storeError(err)
	}
	idea.InformationIDs = links[id]
	return &idea, nil
}

const taskColumns = `SELECT id, content, source_item_id, plan_id, created_at FROM tasks`

func scanTask(scan func(dest ...any) error) (record.Task, error) {
	var (
		task   record.Task
		source sql.NullString
		planID sql.NullString
	)
	if err := scan(&task.ID, &task.Content, &source, &planID, &task.CreatedAt); err != nil {
		return record.Task{}, err
	}
	task.SourceItemID = source.String
	task.PlanID = planID.String
	return task, nil
}

// ListTasks returns all Tasks with their linked informations.
func (r *Records) ListTasks(ctx context.Context) ([]record.Task, error) {
	return listTasks(ctx, r.db, taskColumns+` ORDER BY created_at ASC, id ASC`)
}

func listTasks(ctx context.Context, q querier, query string, args ...any) ([]record.Task, error) {
	links, err := linkMap(ctx, q, `SELECT task_id, information_id FROM information_tasks ORDER BY information_id`)
	if err != nil {
		return nil, storeError(err)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeError(err)
	}
	defer rows.Close()

	tasks := []record.Task{}
	for rows.Next() {
		task, err := scanTask(rows.Scan)
		if err != nil {
			return nil, storeError(err)
		}
		task.InformationIDs = links[task.ID]
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError(err)
	}
	return tasks, nil
}

// GetTask retrieves one Task by id.
func (r *Records) GetTask(ctx context.Context, id string) (*record.Task, error) {
	return getTask(ctx, r.db, id)
}

func getTask(ctx context.Context, q querier, id string) (*record.Task, error) {
	task, err := scanTask(q.QueryRowContext(ctx, taskColumns+` WHERE id = ?`, id).Scan)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(string(record.KindTask), id)
	}
	if err != nil {
		return nil, storeError(err)
	}
	links, err := linkMap(ctx, q, `SELECT task_id, information_id FROM information_tasks WHERE task_id = ? ORDER BY information_id`, id)
	if err != nil {
		return nil, storeError(err)
	}
	task.InformationIDs = links[id]
	return &task, nil
}

// ListPlans returns every plan with its ordered tasks.
func (r *Records) ListPlans(ctx context.Context) ([]record.Plan, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT p.id, p.idea_id, i.content, p.created_at
		FROM plans p JOIN ideas i ON i.id = p.idea_id
		ORDER BY p.created_at ASC, p.id ASC
	`)
	if err != nil {
		return nil, storeError(err)
	}
	plans := []record.Plan{}
	for rows.Next() {
		var p record.Plan
		if err := rows.Scan(&p.ID, &p.IdeaID, &p.IdeaContent, &p.CreatedAt); err != nil {
			rows.Close()
			return nil, storeError(err)
		}
		plans = append(plans, p)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, storeError(err)
	}
	rows.Close()

	for i := range plans {
		tasks, err := listTasks(ctx, r.db, taskColumns+` WHERE plan_id = ? ORDER BY plan_position ASC`, plans[i].ID)
		if err != nil {
			return nil, err
		}
		plans[i].Tasks = tasks
	}
	return plans, nil
}

// GetPlan retrieves one plan with its ordered tasks.
func (r *Records) GetPlan(ctx context.Context, id string) (*record.Plan, error) {
	var p record.Plan
	err := r.db.QueryRowContext(ctx, `
		SELECT p.id, p.idea_id, i.content, p.created_at
		FROM plans p JOIN ideas i ON i.id = p.idea_id
		WHERE p.id = ?
	`, id).Scan(&p.ID, &p.IdeaID, &p.IdeaContent, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(string(record.KindPlan), id)
	}
	if err != nil {
		return nil, storeError(err)
	}
	tasks, err := listTasks(ctx, r.db, taskColumns+` WHERE plan_id = ? ORDER BY plan_position ASC`, id)
	if err != nil {
		return nil, err
	}
	p.Tasks = tasks
	return &p, nil
}
