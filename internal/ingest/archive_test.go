package ingest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mediaflow/internal/store"
	"mediaflow/internal/testsupport"
)

func TestArchiveInputMovesFile(t *testing.T) {
	base := t.TempDir()
	folder := &store.Watchfolder{ArchivePath: filepath.Join(base, "archive")}
	input := filepath.Join(base, "in", "clip.mov")
	testsupport.WriteFile(t, input, 64)

	dest, err := ArchiveInput(folder, &store.Job{InputPath: input})
	if err != nil {
		t.Fatalf("ArchiveInput: %v", err)
	}
	want := filepath.Join(folder.ArchivePath, "clip.mov")
	if dest != want {
		t.Fatalf("dest = %q, want %q", dest, want)
	}
	if _, err := os.Stat(input); !os.IsNotExist(err) {
		t.Fatalf("input still present after archive: %v", err)
	}
	if _, err := os.Stat(dest); err != nil {
		t.Fatalf("archived file missing: %v", err)
	}
}

func TestArchiveInputSuffixesOnCollision(t *testing.T) {
	base := t.TempDir()
	folder := &store.Watchfolder{ArchivePath: filepath.Join(base, "archive")}
	testsupport.WriteFile(t, filepath.Join(folder.ArchivePath, "clip.mov"), 16)

	input := filepath.Join(base, "in", "clip.mov")
	testsupport.WriteFile(t, input, 64)

	dest, err := ArchiveInput(folder, &store.Job{InputPath: input})
	if err != nil {
		t.Fatalf("ArchiveInput: %v", err)
	}
	name := filepath.Base(dest)
	if !strings.HasPrefix(name, "clip_") || !strings.HasSuffix(name, ".mov") {
		t.Fatalf("collision name = %q, want clip_<timestamp>.mov", name)
	}
	if name == "clip.mov" {
		t.Fatal("collision overwrote existing archive entry")
	}
	if _, err := os.Stat(dest); err != nil {
		t.Fatalf("archived file missing: %v", err)
	}
}

func TestArchiveInputNoopWithoutArchivePath(t *testing.T) {
	base := t.TempDir()
	input := filepath.Join(base, "in", "clip.mov")
	testsupport.WriteFile(t, input, 64)

	dest, err := ArchiveInput(&store.Watchfolder{}, &store.Job{InputPath: input})
	if err != nil {
		t.Fatalf("ArchiveInput: %v", err)
	}
	if dest != "" {
		t.Fatalf("dest = %q, want empty", dest)
	}
	if _, err := os.Stat(input); err != nil {
		t.Fatalf("input should stay in place: %v", err)
	}
}

func TestArchiveInputMissingInput(t *testing.T) {
	base := t.TempDir()
	folder := &store.Watchfolder{ArchivePath: filepath.Join(base, "archive")}

	_, err := ArchiveInput(folder, &store.Job{InputPath: filepath.Join(base, "in", "gone.mov")})
	if err == nil {
		t.Fatal("expected error for missing input")
	}
}

func TestHandleJobSuccessArchivesInput(t *testing.T) {
	ctx := context.Background()
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	base := t.TempDir()
	preset := testsupport.NewPreset(t, st, "archive-preset")
	folder := testsupport.NewLocalWatchfolder(t, st, "archive", base, preset.ID)
	job := testsupport.NewPendingJob(t, st, folder, "clip.mov")
	testsupport.WriteFile(t, job.InputPath, 128)

	m := NewManager(cfg, st, nil)
	m.HandleJobSuccess(ctx, job)

	if _, err := os.Stat(job.InputPath); !os.IsNotExist(err) {
		t.Fatalf("input still present after success hook: %v", err)
	}
	if _, err := os.Stat(filepath.Join(folder.ArchivePath, "clip.mov")); err != nil {
		t.Fatalf("archived file missing: %v", err)
	}
}
