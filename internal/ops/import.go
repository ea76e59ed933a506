package ops

import (
	"bufio"
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/hpungsan/sift/internal/config"
	"github.com/hpungsan/sift/internal/db"
	"github.com/hpungsan/sift/internal/errors"
	"github.com/hpungsan/sift/internal/record"
)

// maxImportLine bounds a single import line.
const maxImportLine = 1 << 20

// ImportInput contains parameters for the Import operation.
type ImportInput struct {
	Path string // required; .jsonl or .txt
}

// ImportOutput contains the result of the Import operation.
type ImportOutput struct {
	Imported int                `json:"imported"`
	Skipped  int                `json:"skipped"`
	Items    []record.InboxItem `json:"items"`
	Errors   []ImportError      `json:"errors"`
}

// ImportError describes a line that could not be read.
type ImportError struct {
	Line    int    `json:"line"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// importLine accepts either {"raw_text": "..."} or an export line of kind
// inbox, so an export can seed a fresh inbox.
type importLine struct {
	RawText    string          `json:"raw_text"`
	Kind       record.Kind     `json:"kind"`
	Record     json.RawMessage `json:"record"`
	SiftExport bool            `json:"_sift_export"`
}

// Import enqueues notes from a file. A .txt file holds one note per line; a
// .jsonl file holds one object per line. Any unreadable line aborts the
// import before anything is written; the batch is enqueued atomically.
// Non-inbox lines of an export file are skipped.
func Import(ctx context.Context, database *sql.DB, cfg *config.Config, input ImportInput) (*ImportOutput, error) {
	if err := ValidatePath(input.Path, PathCheckRead, cfg); err != nil {
		return nil, err
	}

	file, err := openFileNoFollow(input.Path, os.O_RDONLY, 0)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var texts []string
	out := &ImportOutput{Items: []record.InboxItem{}, Errors: []ImportError{}}
	if filepath.Ext(input.Path) == ".txt" {
		texts, out.Errors = parseTextLines(file)
	} else {
		texts, out.Skipped, out.Errors = parseJSONLines(file)
	}
	if len(out.Errors) > 0 {
		return out, nil
	}
	if ctx.Err() != nil {
		return nil, errors.NewCancelled("import")
	}
	if len(texts) == 0 {
		return out, nil
	}

	items, err := db.NewInbox(database).EnqueueAll(ctx, texts)
	if err != nil {
		return nil, err
	}
	out.Items = items
	out.Imported = len(items)
	return out, nil
}

func newScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxImportLine)
	return scanner
}

func parseTextLines(r io.Reader) ([]string, []ImportError) {
	var texts []string
	var errs []ImportError
	scanner := newScanner(r)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			texts = append(texts, line)
		}
	}
	if err := scanner.Err(); err != nil {
		errs = append(errs, ImportError{Line: len(texts) + 1, Code: "READ_ERROR", Message: fmt.Sprintf("failed to read file: %v", err)})
	}
	return texts, errs
}

func parseJSONLines(r io.Reader) ([]string, int, []ImportError) {
	var texts []string
	var errs []ImportError
	skipped := 0
	lineNum := 0

	scanner := newScanner(r)
	for scanner.Scan() {
		lineNum++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}

		var line importLine
		if err := json.Unmarshal(raw, &line); err != nil {
			errs = append(errs, ImportError{Line: lineNum, Code: "PARSE_ERROR", Message: fmt.Sprintf("invalid JSON: %v", err)})
			continue
		}
		if line.SiftExport {
			continue
		}

		text := line.RawText
		if line.Kind != "" {
			if line.Kind != record.KindInbox {
				skipped++
				continue
			}
			var item record.InboxItem
			if err := json.Unmarshal(line.Record, &item); err != nil {
				errs = append(errs, ImportError{Line: lineNum, Code: "INVALID_RECORD", Message: fmt.Sprintf("invalid inbox record: %v", err)})
				continue
			}
			text = item.RawText
		}

		if strings.TrimSpace(text) == "" {
			errs = append(errs, ImportError{Line: lineNum, Code: "INVALID_RECORD", Message: "missing raw_text"})
			continue
		}
		texts = append(texts, text)
	}
	if err := scanner.Err(); err != nil {
		errs = append(errs, ImportError{Line: lineNum, Code: "READ_ERROR", Message: fmt.Sprintf("failed to read file: %v", err)})
	}
	return texts, skipped, errs
}
