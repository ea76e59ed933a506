package mcp

import "github.com/mark3labs/mcp-go/mcp"

var stringItems = mcp.Items(map[string]any{"type": "string"})

var inboxAddToolDef = mcp.NewTool("inbox_add",
	mcp.WithDescription("Queue a raw note for triage. The note is split into informations, ideas and tasks later, after human review."),
	mcp.WithString("raw_text", mcp.Required(), mcp.Description("The note text, exactly as written")),
)

var inboxListToolDef = mcp.NewTool("inbox_list",
	mcp.WithDescription("List queued notes, oldest first."),
	mcp.WithNumber("limit", mcp.Description("Max items (default 20, max 100)")),
	mcp.WithNumber("offset", mcp.Description("Items to skip")),
	mcp.WithReadOnlyHintAnnotation(true),
)

var inboxCountToolDef = mcp.NewTool("inbox_count",
	mcp.WithDescription("Count queued notes."),
	mcp.WithReadOnlyHintAnnotation(true),
)

var inboxRemoveToolDef = mcp.NewTool("inbox_remove",
	mcp.WithDescription("Discard a queued note without triaging it."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Inbox item id")),
	mcp.WithDestructiveHintAnnotation(true),
)

var inboxImportToolDef = mcp.NewTool("inbox_import",
	mcp.WithDescription("Queue every note of a .txt (one note per line) or .jsonl ({\"raw_text\": ...} per line) file. Nothing is queued if any line is invalid."),
	mcp.WithString("path", mcp.Required(), mcp.Description("File in ~/.sift/exports or an allowed_paths directory")),
)

var recordListToolDef = mcp.NewTool("record_list",
	mcp.WithDescription("List stored records of one kind, oldest first."),
	mcp.WithString("kind", mcp.Required(), mcp.Description("inbox, information, idea, task or plan"), mcp.Enum("inbox", "information", "idea", "task", "plan")),
	mcp.WithNumber("limit", mcp.Description("Max items (default 20, max 100)")),
	mcp.WithNumber("offset", mcp.Description("Items to skip")),
	mcp.WithReadOnlyHintAnnotation(true),
)

var recordDeleteToolDef = mcp.NewTool("record_delete",
	mcp.WithDescription("Delete a record. Deleting a plan deletes its tasks. An idea held by a plan, or one of a plan's last two tasks, cannot be deleted."),
	mcp.WithString("kind", mcp.Required(), mcp.Enum("inbox", "information", "idea", "task", "plan")),
	mcp.WithString("id", mcp.Required()),
	mcp.WithDestructiveHintAnnotation(true),
)

var recordLinkToolDef = mcp.NewTool("record_link",
	mcp.WithDescription("Record that an information supports an idea or a task. Provide exactly one of idea_id and task_id."),
	mcp.WithString("information_id", mcp.Required()),
	mcp.WithString("idea_id"),
	mcp.WithString("task_id"),
)

var recordExportToolDef = mcp.NewTool("record_export",
	mcp.WithDescription("Write the inbox and every record to a JSONL file."),
	mcp.WithString("path", mcp.Description("Destination .jsonl (default ~/.sift/exports/sift-<timestamp>.jsonl)")),
)

var planComposeToolDef = mcp.NewTool("plan_compose",
	mcp.WithDescription("Group an idea with at least two existing, unplanned tasks into a plan."),
	mcp.WithString("idea_id", mcp.Required()),
	mcp.WithArray("task_ids", mcp.Required(), mcp.Description("Task ids in plan order"), stringItems),
)

var suggestionListToolDef = mcp.NewTool("suggestion_list",
	mcp.WithDescription("Suggest tasks connecting an information to the ideas it shares words with. Nothing is stored."),
	mcp.WithString("information_id", mcp.Required()),
	mcp.WithReadOnlyHintAnnotation(true),
)

var suggestionAcceptToolDef = mcp.NewTool("suggestion_accept",
	mcp.WithDescription("Store the suggested task for one idea, linked to the information."),
	mcp.WithString("information_id", mcp.Required()),
	mcp.WithString("idea_id", mcp.Required()),
)

var reviewStartToolDef = mcp.NewTool("review_start",
	mcp.WithDescription("Propose a classification for the oldest queued note. Show the proposal to the user and pass their literal reply to review_reply."),
)

var reviewReplyToolDef = mcp.NewTool("review_reply",
	mcp.WithDescription("Pass the user's literal reply to an open review. Approval saves the records and removes the note; anything else produces a revised proposal until the round limit."),
	mcp.WithString("item_id", mcp.Required(), mcp.Description("item_id returned by review_start")),
	mcp.WithString("reply", mcp.Required(), mcp.Description("The user's words, unedited")),
)
