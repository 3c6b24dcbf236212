package testsupport

import (
	"context"
	"testing"

	"mediaflow/internal/config"
	"mediaflow/internal/store"
)

// MustOpenStore opens a store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// NewPreset inserts a minimal valid preset for tests.
func NewPreset(t testing.TB, st *store.Store, name string) *store.Preset {
	t.Helper()

	preset, err := st.CreatePreset(context.Background(), &store.Preset{
		Name:       name,
		VideoCodec: "libx264",
		AudioCodec: "aac",
		Container:  "mp4",
	})
	if err != nil {
		t.Fatalf("store.CreatePreset: %v", err)
	}
	return preset
}

// NewWorker inserts an active worker with the given concurrency limit.
func NewWorker(t testing.TB, st *store.Store, name string, maxJobs int) *store.Worker {
	t.Helper()

	worker, err := st.CreateWorker(context.Background(), &store.Worker{
		Name:              name,
		MaxConcurrentJobs: maxJobs,
		Active:            true,
	})
	if err != nil {
		t.Fatalf("store.CreateWorker: %v", err)
	}
	return worker
}

// NewLocalWatchfolder inserts an active local watchfolder rooted in temp
// directories under base.
func NewLocalWatchfolder(t testing.TB, st *store.Store, name, base string, presetID int64) *store.Watchfolder {
	t.Helper()

	folder, err := st.CreateWatchfolder(context.Background(), &store.Watchfolder{
		Name:        name,
		WatchType:   store.WatchLocal,
		Active:      true,
		PresetID:    presetID,
		Path:        base + "/in",
		OutputPath:  base + "/out",
		ArchivePath: base + "/archive",
	})
	if err != nil {
		t.Fatalf("store.CreateWatchfolder: %v", err)
	}
	return folder
}

// NewFTPWatchfolder inserts an active FTP watchfolder staging under base.
// The host and credentials are placeholders; tests that exercise the network
// path override them.
func NewFTPWatchfolder(t testing.TB, st *store.Store, name, base string, presetID int64) *store.Watchfolder {
	t.Helper()

	folder, err := st.CreateWatchfolder(context.Background(), &store.Watchfolder{
		Name:           name,
		WatchType:      store.WatchFTP,
		Active:         true,
		PresetID:       presetID,
		OutputPath:     base + "/out",
		FTPHost:        "127.0.0.1",
		FTPPort:        21,
		FTPUser:        "ingest",
		FTPPassword:    "ingest-secret",
		FTPRemotePath:  "/incoming",
		FTPStagingPath: base + "/staging",
	})
	if err != nil {
		t.Fatalf("store.CreateWatchfolder: %v", err)
	}
	return folder
}

// NewPendingJob inserts a pending job for the watchfolder and preset.
func NewPendingJob(t testing.TB, st *store.Store, folder *store.Watchfolder, filename string) *store.Job {
	t.Helper()

	job, err := st.CreateJob(context.Background(), store.NewJobParams{
		WatchfolderID: folder.ID,
		PresetID:      folder.PresetID,
		InputFilename: filename,
		InputPath:     folder.Path + "/" + filename,
		InputSize:     1024,
		Fingerprint:   "fp-" + filename,
	})
	if err != nil {
		t.Fatalf("store.CreateJob: %v", err)
	}
	return job
}
