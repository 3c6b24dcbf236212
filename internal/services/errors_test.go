package services_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"mediaflow/internal/services"
)

func TestWrapTagsMarker(t *testing.T) {
	base := errors.New("connection refused")
	err := services.Wrap(services.ErrIngestion, "ftp-poller", "list", "host unreachable", base)

	if !errors.Is(err, services.ErrIngestion) {
		t.Fatalf("expected ErrIngestion marker, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped base error, got %v", err)
	}
	for _, want := range []string{"ftp-poller", "list", "host unreachable", "connection refused"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q missing %q", err.Error(), want)
		}
	}
}

func TestWrapDefaultsToExecution(t *testing.T) {
	err := services.Wrap(nil, "executor", "run", "", nil)
	if !errors.Is(err, services.ErrExecution) {
		t.Fatalf("expected ErrExecution fallback, got %v", err)
	}
}

func TestContextCarriers(t *testing.T) {
	ctx := services.WithJobID(context.Background(), 42)
	ctx = services.WithWatchfolderID(ctx, 7)
	ctx = services.WithWorkerID(ctx, 3)
	ctx = services.WithRequestID(ctx, "req-1")

	if id, ok := services.JobIDFromContext(ctx); !ok || id != 42 {
		t.Fatalf("job id = %d, %v", id, ok)
	}
	if id, ok := services.WatchfolderIDFromContext(ctx); !ok || id != 7 {
		t.Fatalf("watchfolder id = %d, %v", id, ok)
	}
	if id, ok := services.WorkerIDFromContext(ctx); !ok || id != 3 {
		t.Fatalf("worker id = %d, %v", id, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-1" {
		t.Fatalf("request id = %q, %v", rid, ok)
	}
}
