package logs_test

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"mediaflow/internal/logs"
)

func TestTailFileReturnsTrailingLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daemon.log")
	if err := os.WriteFile(path, []byte("one\ntwo\nthree\nfour\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	lines, err := logs.TailFile(path, 2)
	if err != nil {
		t.Fatalf("TailFile: %v", err)
	}
	if want := []string{"three", "four"}; !reflect.DeepEqual(lines, want) {
		t.Fatalf("lines = %v, want %v", lines, want)
	}
}

func TestTailFileShortFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daemon.log")
	if err := os.WriteFile(path, []byte("only\n"), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	lines, err := logs.TailFile(path, 10)
	if err != nil {
		t.Fatalf("TailFile: %v", err)
	}
	if want := []string{"only"}; !reflect.DeepEqual(lines, want) {
		t.Fatalf("lines = %v, want %v", lines, want)
	}
}

func TestTailFileMissingFile(t *testing.T) {
	lines, err := logs.TailFile(filepath.Join(t.TempDir(), "absent.log"), 5)
	if err != nil {
		t.Fatalf("TailFile: %v", err)
	}
	if lines != nil {
		t.Fatalf("lines = %v, want nil", lines)
	}
}
