package record

import (
	"fmt"
	"strings"

	"github.com/hpungsan/sift/internal/errors"
)

// Kind names a record table.
type Kind string

const (
	KindInbox       Kind = "inbox"
	KindInformation Kind = "information"
	KindIdea        Kind = "idea"
	KindTask        Kind = "task"
	KindPlan        Kind = "plan"
)

// Kinds lists every kind in display order.
var Kinds = []Kind{KindInbox, KindInformation, KindIdea, KindTask, KindPlan}

// kindAliases accepts plurals and the labels people actually type.
var kindAliases = map[string]Kind{
	"inbox":        KindInbox,
	"items":        KindInbox,
	"information":  KindInformation,
	"informations": KindInformation,
	"info":         KindInformation,
	"infos":        KindInformation,
	"idea":         KindIdea,
	"ideas":        KindIdea,
	"task":         KindTask,
	"tasks":        KindTask,
	"plan":         KindPlan,
	"plans":        KindPlan,
}

// ParseKind resolves a user-supplied kind name.
func ParseKind(s string) (Kind, error) {
	if k, ok := kindAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return k, nil
	}
	return "", errors.NewInvalidRequest(fmt.Sprintf("unknown kind %q (want one of: inbox, information, idea, task, plan)", s))
}

// MinPlanTasks is the smallest number of tasks a plan may hold.
const MinPlanTasks = 2

// Record is the capability shared by every stored entity. Renderers and
// generic operations work through it and never switch on the concrete type.
type Record interface {
	RecordID() string
	RecordKind() Kind
	DisplayContent() string
	// DisplayDetails is a short, optional annotation (link counts, plan
	// membership). Empty when there is nothing to add.
	DisplayDetails() string
}

// InboxItem is a raw note waiting for triage.
type InboxItem struct {
	ID        string `json:"id"`
	RawText   string `json:"raw_text"`
	CreatedAt int64  `json:"created_at"`
}

func (i InboxItem) RecordID() string       { return i.ID }
func (i InboxItem) RecordKind() Kind       { return KindInbox }
func (i InboxItem) DisplayContent() string { return i.RawText }
func (i InboxItem) DisplayDetails() string { return "" }

// Information is an objective fact. Content is unique across all records.
type Information struct {
	ID           string   `json:"id"`
	Content      string   `json:"content"`
	SourceItemID string   `json:"source_item_id,omitempty"`
	CreatedAt    int64    `json:"created_at"`
	IdeaIDs      []string `json:"idea_ids,omitempty"`
	TaskIDs      []string `json:"task_ids,omitempty"`
}

func (i Information) RecordID() string       { return i.ID }
func (i Information) RecordKind() Kind       { return KindInformation }
func (i Information) DisplayContent() string { return i.Content }
func (i Information) DisplayDetails() string {
	if len(i.IdeaIDs) == 0 && len(i.TaskIDs) == 0 {
		return ""
	}
	return fmt.Sprintf("supports %d ideas, %d tasks", len(i.IdeaIDs), len(i.TaskIDs))
}

// Idea is a vague or undecided thought, possibly a project that is not yet
// broken down.
type Idea struct {
	ID             string   `json:"id"`
	Content        string   `json:"content"`
	SourceItemID   string   `json:"source_item_id,omitempty"`
	CreatedAt      int64    `json:"created_at"`
	InformationIDs []string `json:"information_ids,omitempty"`
	PlanID         string   `json:"plan_id,omitempty"`
}

func (i Idea) RecordID() string       { return i.ID }
func (i Idea) RecordKind() Kind       { return KindIdea }
func (i Idea) DisplayContent() string { return i.Content }
func (i Idea) DisplayDetails() string {
	details := fmt.Sprintf("linked informations: %d", len(i.InformationIDs))
	if i.PlanID != "" {
		details += " | plan: " + i.PlanID
	}
	return details
}

// Task is a concrete action doable in a few hours.
type Task struct {
	ID             string   `json:"id"`
	Content        string   `json:"content"`
	SourceItemID   string   `json:"source_item_id,omitempty"`
	CreatedAt      int64    `json:"created_at"`
	InformationIDs []string `json:"information_ids,omitempty"`
	PlanID         string   `json:"plan_id,omitempty"`
}

func (t Task) RecordID() string       { return t.ID }
func (t Task) RecordKind() Kind       { return KindTask }
func (t Task) DisplayContent() string { return t.Content }
func (t Task) DisplayDetails() string {
	plan := t.PlanID
	if plan == "" {
		plan = "n/a"
	}
	return fmt.Sprintf("plan: %s | linked informations: %d", plan, len(t.InformationIDs))
}

// Plan groups one Idea with the ordered Tasks that realize it. Tasks are
// owned: deleting the plan deletes them.
type Plan struct {
	ID          string `json:"id"`
	IdeaID      string `json:"idea_id"`
	IdeaContent string `json:"idea_content"`
	Tasks       []Task `json:"tasks"`
	CreatedAt   int64  `json:"created_at"`
}

// NewPlan builds a plan, refusing fewer than MinPlanTasks tasks.
func NewPlan(id string, idea Idea, tasks []Task, createdAt int64) (*Plan, error) {
	if len(tasks) < MinPlanTasks {
		return nil, errors.NewPlanTooSmall(MinPlanTasks, len(tasks))
	}
	owned := make([]Task, len(tasks))
	for i, t := range tasks {
		t.PlanID = id
		owned[i] = t
	}
	return &Plan{
		ID:          id,
		IdeaID:      idea.ID,
		IdeaContent: idea.Content,
		Tasks:       owned,
		CreatedAt:   createdAt,
	}, nil
}

// TaskIDs returns the ids of the plan's tasks in order.
func (p Plan) TaskIDs() []string {
	ids := make([]string, len(p.Tasks))
	for i, t := range p.Tasks {
		ids[i] = t.ID
	}
	return ids
}

func (p Plan) RecordID() string       { return p.ID }
func (p Plan) RecordKind() Kind       { return KindPlan }
func (p Plan) DisplayContent() string { return "Plan for idea: " + p.IdeaContent }
func (p Plan) DisplayDetails() string { return fmt.Sprintf("tasks: %d", len(p.Tasks)) }
