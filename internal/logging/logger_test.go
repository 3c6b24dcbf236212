package logging_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mediaflow/internal/logging"
	"mediaflow/internal/services"
)

func TestNewConsoleWritesComponentPrefix(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "out.log")

	logger, err := logging.New(logging.Options{
		Level:            "info",
		Format:           "console",
		OutputPaths:      []string{logPath},
		ErrorOutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logging.WithComponent(logger, "dispatcher").Info("job claimed",
		logging.Int64(logging.FieldJobID, 7),
		logging.Int64(logging.FieldWorkerID, 2),
	)

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	line := string(data)
	if !strings.Contains(line, "dispatcher: job claimed") {
		t.Fatalf("missing component prefix: %q", line)
	}
	if !strings.Contains(line, "job_id=7") || !strings.Contains(line, "worker_id=2") {
		t.Fatalf("missing attrs: %q", line)
	}
}

func TestNewJSONEmitsStructuredRecord(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "out.log")

	logger, err := logging.New(logging.Options{
		Level:       "debug",
		Format:      "json",
		OutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.Info("poll cycle", logging.Int64(logging.FieldWatchfolderID, 3))

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	var record map[string]any
	if err := json.Unmarshal(data, &record); err != nil {
		t.Fatalf("unmarshal record: %v (%q)", err, data)
	}
	if record["msg"] != "poll cycle" {
		t.Fatalf("unexpected msg: %v", record["msg"])
	}
	if record["watchfolder_id"] != float64(3) {
		t.Fatalf("unexpected watchfolder_id: %v", record["watchfolder_id"])
	}
}

func TestConsoleQuotesAndPrefixesGroups(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "out.log")

	logger, err := logging.New(logging.Options{Format: "console", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.WithGroup("ftp").Info("listing complete",
		logging.String("file", "my clip.mov"),
		logging.Int("entries", 4),
	)

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	line := string(data)
	if !strings.Contains(line, `ftp.file="my clip.mov"`) {
		t.Fatalf("group prefix or quoting missing: %q", line)
	}
	if !strings.Contains(line, "ftp.entries=4") {
		t.Fatalf("numeric attr missing: %q", line)
	}
	if !strings.Contains(line, "INFO") {
		t.Fatalf("level label missing: %q", line)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWithContextAnnotatesFields(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "out.log")

	logger, err := logging.New(logging.Options{Format: "console", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := contextWithIDs(t)
	logging.WithContext(ctx, logger).Info("executing")

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "job_id=11") {
		t.Fatalf("missing context field: %q", data)
	}
}

func contextWithIDs(t *testing.T) context.Context {
	t.Helper()
	return services.WithJobID(context.Background(), 11)
}
