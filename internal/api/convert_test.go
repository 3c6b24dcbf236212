package api_test

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"mediaflow/internal/api"
	"mediaflow/internal/store"
)

func TestFromWatchfolderNeverCarriesPassword(t *testing.T) {
	folder := &store.Watchfolder{
		ID:          7,
		Name:        "ftp-ingest",
		WatchType:   store.WatchFTP,
		Active:      true,
		FTPHost:     "media.example.com",
		FTPUser:     "ingest",
		FTPPassword: "hunter2",
	}

	dto := api.FromWatchfolder(folder)
	if !dto.HasFTPPassword {
		t.Fatal("HasFTPPassword should be true")
	}

	raw, err := json.Marshal(dto)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(raw), "hunter2") {
		t.Fatalf("serialized watchfolder leaked the password: %s", raw)
	}
}

func TestFromWatchfolderSurfacesDerivedStatus(t *testing.T) {
	folder := &store.Watchfolder{Name: "paused", Active: false, Status: store.WatchfolderIdle}
	if got := api.FromWatchfolder(folder).Status; got != string(store.WatchfolderDisabled) {
		t.Fatalf("status = %q, want disabled", got)
	}
}

func TestFromJobFormatsTimestamps(t *testing.T) {
	started := time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)
	job := &store.Job{
		ID:        1,
		Status:    store.JobProcessing,
		CreatedAt: started.Add(-time.Minute),
		StartedAt: &started,
	}

	dto := api.FromJob(job)
	if dto.StartedAt != "2025-03-10T09:30:00.000Z" {
		t.Fatalf("StartedAt = %q", dto.StartedAt)
	}
	if dto.CompletedAt != "" {
		t.Fatalf("CompletedAt = %q, want empty", dto.CompletedAt)
	}
}

func TestToWatchfolderDefaultsActive(t *testing.T) {
	req := api.WatchfolderRequest{Name: "in", WatchType: "local"}
	if !req.ToWatchfolder().Active {
		t.Fatal("unset active flag should default to true")
	}

	inactive := false
	req.Active = &inactive
	if req.ToWatchfolder().Active {
		t.Fatal("explicit active=false should carry through")
	}
}

func TestFromWorkerLoadDerivesStatus(t *testing.T) {
	load := &store.WorkerLoad{
		Worker:      store.Worker{ID: 1, Name: "encoder", MaxConcurrentJobs: 2, Active: true},
		CurrentJobs: 1,
	}
	if got := api.FromWorkerLoad(load).Status; got != string(store.WorkerRunning) {
		t.Fatalf("status = %q, want running", got)
	}
}
