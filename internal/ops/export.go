package ops

import (
	"bufio"
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/hpungsan/sift/internal/config"
	"github.com/hpungsan/sift/internal/db"
	"github.com/hpungsan/sift/internal/errors"
	"github.com/hpungsan/sift/internal/record"
)

// ExportSchemaVersion is written into every export header.
const ExportSchemaVersion = "1"

// ExportInput contains parameters for the Export operation.
type ExportInput struct {
	Path string // optional, default: ~/.sift/exports/sift-<timestamp>.jsonl
}

// ExportOutput contains the result of the Export operation.
type ExportOutput struct {
	Path       string              `json:"path"`
	Count      int                 `json:"count"`
	Counts     map[record.Kind]int `json:"counts"`
	ExportedAt int64               `json:"exported_at"`
}

// ExportHeader is the first line of an export file.
type ExportHeader struct {
	SiftExport    bool   `json:"_sift_export"`
	SchemaVersion string `json:"schema_version"`
	ExportedAt    int64  `json:"exported_at"`
}

// ExportLine is one record of an export file.
type ExportLine struct {
	Kind   record.Kind     `json:"kind"`
	Record json.RawMessage `json:"record"`
}

// Export writes the inbox and every stored record to a JSONL file. The file
// is written to a temp name and renamed into place, so a failed export
// leaves any previous file untouched.
func Export(ctx context.Context, database *sql.DB, cfg *config.Config, input ExportInput) (*ExportOutput, error) {
	now := time.Now()

	exportPath := input.Path
	if exportPath == "" {
		dir, err := DefaultExportsDir()
		if err != nil {
			return nil, err
		}
		exportPath = filepath.Join(dir, fmt.Sprintf("sift-%s.jsonl", now.Format("2006-01-02T150405")))
	}
	if err := ValidatePath(exportPath, PathCheckWrite, cfg); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(exportPath), 0700); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create export directory: %w", err))
	}

	randBytes := make([]byte, 8)
	if _, err := rand.Read(randBytes); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to generate temp file name: %w", err))
	}
	tempPath := exportPath + "." + hex.EncodeToString(randBytes) + ".tmp"
	file, err := openFileNoFollow(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create export file: %w", err))
	}

	success := false
	defer func() {
		if file != nil {
			file.Close()
		}
		if !success {
			os.Remove(tempPath)
		}
	}()

	w := bufio.NewWriter(file)
	enc := json.NewEncoder(w)
	if err := enc.Encode(ExportHeader{SiftExport: true, SchemaVersion: ExportSchemaVersion, ExportedAt: now.Unix()}); err != nil {
		return nil, errors.NewInternal(err)
	}

	out := &ExportOutput{Path: exportPath, Counts: map[record.Kind]int{}, ExportedAt: now.Unix()}
	records, err := exportRecords(ctx, database)
	if err != nil {
		return nil, err
	}
	for _, r := range records {
		if ctx.Err() != nil {
			return nil, errors.NewCancelled("export")
		}
		data, err := json.Marshal(r)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		if err := enc.Encode(ExportLine{Kind: r.RecordKind(), Record: data}); err != nil {
			return nil, errors.NewInternal(err)
		}
		out.Counts[r.RecordKind()]++
		out.Count++
	}

	if err := w.Flush(); err != nil {
		return nil, errors.NewInternal(err)
	}
	if err := file.Sync(); err != nil {
		return nil, errors.NewInternal(err)
	}
	// Close before the rename (required on Windows).
	if err := file.Close(); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to close export file: %w", err))
	}
	file = nil

	// os.Rename would follow a symlink planted at the destination.
	if info, err := os.Lstat(exportPath); err == nil && info.Mode()&os.ModeSymlink != 0 {
		return nil, errors.NewInvalidRequest("export path is a symlink")
	}
	if err := os.Rename(tempPath, exportPath); err != nil {
		if runtime.GOOS == "windows" {
			if _, statErr := os.Stat(exportPath); statErr == nil {
				return nil, errors.NewInvalidRequest("export destination already exists; choose a new path or delete the existing file")
			}
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to finalize export: %w", err))
	}

	success = true
	return out, nil
}

// exportRecords collects every kind in display order: inbox first, plans last.
func exportRecords(ctx context.Context, database *sql.DB) ([]record.Record, error) {
	items, err := db.NewInbox(database).List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]record.Record, 0, len(items))
	for _, item := range items {
		out = append(out, item)
	}

	store := db.NewRecords(database)
	for _, kind := range record.Kinds {
		if kind == record.KindInbox {
			continue
		}
		recs, err := store.List(ctx, kind)
		if err != nil {
			return nil, err
		}
		out = append(out, recs...)
	}
	return out, nil
}
