package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/hpungsan/sift/internal/errors"
	"github.com/hpungsan/sift/internal/record"
)

// Inbox is the durable FIFO of raw notes awaiting triage.
type Inbox struct {
	db  *sql.DB
	now func() time.Time
}

// NewInbox returns an Inbox backed by db.
func NewInbox(db *sql.DB) *Inbox {
	return &Inbox{db: db, now: time.Now}
}

// Enqueue stores a new note. Blank text is rejected.
func (i *Inbox) Enqueue(ctx context.Context, rawText string) (*record.InboxItem, error) {
	rawText = strings.TrimSpace(rawText)
	if rawText == "" {
		return nil, errors.NewInvalidRequest("raw_text must not be empty")
	}

	now := i.now()
	item := &record.InboxItem{
		ID:        NewID(now),
		RawText:   rawText,
		CreatedAt: now.Unix(),
	}

	_, err := i.db.ExecContext(ctx,
		`INSERT INTO inbox_items (id, raw_text, created_at) VALUES (?, ?, ?)`,
		item.ID, item.RawText, item.CreatedAt,
	)
	if err != nil {
		return nil, storeError(err)
	}
	return item, nil
}

// EnqueueAll stores several notes in one transaction, in order. Any blank
// entry rejects the whole batch.
func (i *Inbox) EnqueueAll(ctx context.Context, rawTexts []string) ([]record.InboxItem, error) {
	texts := make([]string, len(rawTexts))
	for n, raw := range rawTexts {
		texts[n] = strings.TrimSpace(raw)
		if texts[n] == "" {
			return nil, errors.NewInvalidRequest(fmt.Sprintf("raw_text %d must not be empty", n+1))
		}
	}

	tx, err := i.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storeError(err)
	}
	defer tx.Rollback()

	now := i.now()
	items := make([]record.InboxItem, 0, len(texts))
	for _, text := range texts {
		item := record.InboxItem{ID: NewID(now), RawText: text, CreatedAt: now.Unix()}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO inbox_items (id, raw_text, created_at) VALUES (?, ?, ?)`,
			item.ID, item.RawText, item.CreatedAt,
		)
		if err != nil {
			return nil, storeError(err)
		}
		items = append(items, item)
	}

	if err := tx.Commit(); err != nil {
		return nil, storeError(err)
	}
	return items, nil
}

// PeekOldest returns the oldest queued item by arrival, ties broken by id
// ascending. Returns nil, nil when the inbox is empty.
func (i *Inbox) PeekOldest(ctx context.Context) (*record.InboxItem, error) {
	var item record.InboxItem
	err := i.db.QueryRowContext(ctx, `
		SELECT id, raw_text, created_at FROM inbox_items
		ORDER BY created_at ASC, id ASC
		LIMIT 1
	`).Scan(&item.ID, &item.RawText, &item.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, storeError(err)
	}
	return &item, nil
}

// Get retrieves a queued item by id.
func (i *Inbox) Get(ctx context.Context, id string) (*record.InboxItem, error) {
	var item record.InboxItem
	err := i.db.QueryRowContext(ctx,
		`SELECT id, raw_text, created_at FROM inbox_items WHERE id = ?`, id,
	).Scan(&item.ID, &item.RawText, &item.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(string(record.KindInbox), id)
	}
	if err != nil {
		return nil, storeError(err)
	}
	return &item, nil
}

// Remove deletes a queued item. Missing ids are NOT_FOUND.
func (i *Inbox) Remove(ctx context.Context, id string) error {
	result, err := i.db.ExecContext(ctx, `DELETE FROM inbox_items WHERE id = ?`, id)
	if err != nil {
		return storeError(err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return storeError(err)
	}
	if rowsAffected == 0 {
		return errors.NewNotFound(string(record.KindInbox), id)
	}
	return nil
}

// Count returns the number of queued items.
func (i *Inbox) Count(ctx context.Context) (int, error) {
	var n int
	if err := i.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM inbox_items`).Scan(&n); err != nil {
		return 0, storeError(err)
	}
	return n, nil
}

// List returns every queued item in FIFO order.
func (i *Inbox) List(ctx context.Context) ([]record.InboxItem, error) {
	rows, err := i.db.QueryContext(ctx, `
		SELECT id, raw_text, created_at FROM inbox_items
		ORDER BY created_at ASC, id ASC
	`)
	if err != nil {
		return nil, storeError(err)
	}
	defer rows.Close()

	items := []record.InboxItem{}
	for rows.Next() {
		var item record.InboxItem
		if err := rows.Scan(&item.ID, &item.RawText, &item.CreatedAt); err != nil {
			return nil, storeError(err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError(err)
	}
	return items, nil
}
