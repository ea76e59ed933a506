package ops

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hpungsan/sift/internal/config"
	"github.com/hpungsan/sift/internal/errors"
)

// withHome points the default exports directory into a temp dir.
func withHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
	dir := filepath.Join(home, ".sift", "exports")
	if err := os.MkdirAll(dir, 0700); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	return dir
}

func TestValidatePath_TraversalRejected(t *testing.T) {
	cfg := config.DefaultConfig()

	for _, path := range []string{
		"../backup.jsonl",
		"../../etc/backup.jsonl",
		"/tmp/../etc/backup.jsonl",
		"/tmp/safe/../../../etc/shadow.jsonl",
	} {
		t.Run(path, func(t *testing.T) {
			err := ValidatePath(path, PathCheckWrite, cfg)
			if !errors.Is(err, errors.ErrInvalidRequest) {
				t.Errorf("ValidatePath(%q) = %v, want INVALID_REQUEST", path, err)
			}
		})
	}
}

func TestValidatePath_ExtensionsByMode(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.AllowUnsafePaths = true

	notes := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(notes, []byte("uma nota\n"), 0600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		path    string
		mode    PathCheckMode
		wantErr bool
	}{
		{"export jsonl", filepath.Join(dir, "out.jsonl"), PathCheckWrite, false},
		{"export txt", filepath.Join(dir, "out.txt"), PathCheckWrite, true},
		{"export json", filepath.Join(dir, "out.json"), PathCheckWrite, true},
		{"import txt", notes, PathCheckRead, false},
		{"import no extension", filepath.Join(dir, "notes"), PathCheckRead, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidatePath(tc.path, tc.mode, cfg)
			if (err != nil) != tc.wantErr {
				t.Errorf("ValidatePath() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestValidatePath_DirectoryRestriction(t *testing.T) {
	exportsDir := withHome(t)
	cfg := config.DefaultConfig()

	if err := ValidatePath(filepath.Join(t.TempDir(), "backup.jsonl"), PathCheckWrite, cfg); !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("outside allowed dirs: error = %v, want INVALID_REQUEST", err)
	}
	if err := ValidatePath(filepath.Join(exportsDir, "backup.jsonl"), PathCheckWrite, cfg); err != nil {
		t.Errorf("exports dir: error = %v, want nil", err)
	}
	if err := ValidatePath(filepath.Join(exportsDir, "sub", "backup.jsonl"), PathCheckWrite, cfg); err == nil {
		t.Error("subdirectory: expected error, got nil")
	}
}

func TestValidatePath_AllowedPaths(t *testing.T) {
	withHome(t)
	extra := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.AllowedPaths = []string{extra, "relative/ignored"}

	if err := ValidatePath(filepath.Join(extra, "backup.jsonl"), PathCheckWrite, cfg); err != nil {
		t.Errorf("allowed path: error = %v, want nil", err)
	}
}

func TestValidatePath_MissingImportFile(t *testing.T) {
	exportsDir := withHome(t)

	err := ValidatePath(filepath.Join(exportsDir, "missing.txt"), PathCheckRead, config.DefaultConfig())
	if !errors.Is(err, errors.ErrFileNotFound) {
		t.Errorf("error = %v, want FILE_NOT_FOUND", err)
	}
}

func TestValidatePath_SymlinkRejected(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.AllowUnsafePaths = true

	target := filepath.Join(dir, "target.jsonl")
	if err := os.WriteFile(target, []byte("{}\n"), 0600); err != nil {
		t.Fatal(err)
	}
	link := filepath.Join(dir, "link.jsonl")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	if err := ValidatePath(link, PathCheckWrite, cfg); !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("error = %v, want INVALID_REQUEST", err)
	}
}
