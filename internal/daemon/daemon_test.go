package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"mediaflow/internal/api"
	"mediaflow/internal/config"
	"mediaflow/internal/logging"
	"mediaflow/internal/store"
	"mediaflow/internal/testsupport"
)

type daemonFixture struct {
	daemon *Daemon
	base   string
	store  *store.Store
	cfg    *config.Config
}

func startDaemon(t *testing.T) *daemonFixture {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	d, err := New(cfg, st, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := d.Start(ctx); err != nil {
		t.Fatalf("daemon.Start: %v", err)
	}
	t.Cleanup(d.Stop)

	return &daemonFixture{
		daemon: d,
		base:   "http://" + d.APIAddr(),
		store:  st,
		cfg:    cfg,
	}
}

func (f *daemonFixture) request(t *testing.T, method, path string, body, target any) int {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequest(method, f.base+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	if target != nil {
		if err := json.NewDecoder(resp.Body).Decode(target); err != nil && err != io.EOF {
			t.Fatalf("decode %s %s response: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func TestDaemonSingleInstance(t *testing.T) {
	f := startDaemon(t)

	second, err := New(f.cfg, f.store, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := second.Start(context.Background()); err == nil {
		second.Stop()
		t.Fatal("second daemon should fail to start while the lock is held")
	}
}

func TestAPIPresetCRUD(t *testing.T) {
	f := startDaemon(t)

	var created api.PresetResponse
	code := f.request(t, http.MethodPost, "/api/presets", api.PresetRequest{
		Name:       "broadcast-h264",
		VideoCodec: "libx264",
		AudioCodec: "aac",
		Container:  "mp4",
	}, &created)
	if code != http.StatusCreated {
		t.Fatalf("create preset status = %d", code)
	}
	if created.Preset.ID == 0 || created.Preset.Name != "broadcast-h264" {
		t.Fatalf("unexpected created preset: %+v", created.Preset)
	}

	var invalid api.ErrorResponse
	code = f.request(t, http.MethodPost, "/api/presets", api.PresetRequest{Name: "incomplete"}, &invalid)
	if code != http.StatusBadRequest {
		t.Fatalf("invalid preset status = %d", code)
	}

	var list api.PresetListResponse
	if code := f.request(t, http.MethodGet, "/api/presets", nil, &list); code != http.StatusOK {
		t.Fatalf("list presets status = %d", code)
	}
	if len(list.Presets) != 1 {
		t.Fatalf("len(presets) = %d, want 1", len(list.Presets))
	}

	var updated api.PresetResponse
	code = f.request(t, http.MethodPut, fmt.Sprintf("/api/presets/%d", created.Preset.ID), api.PresetRequest{
		Name:         "broadcast-h264",
		VideoCodec:   "libx265",
		VideoBitrate: "10M",
		AudioCodec:   "aac",
		Container:    "mp4",
	}, &updated)
	if code != http.StatusOK {
		t.Fatalf("update preset status = %d", code)
	}
	if updated.Preset.VideoCodec != "libx265" || updated.Preset.VideoBitrate != "10M" {
		t.Fatalf("unexpected updated preset: %+v", updated.Preset)
	}

	if code := f.request(t, http.MethodDelete, fmt.Sprintf("/api/presets/%d", created.Preset.ID), nil, nil); code != http.StatusNoContent {
		t.Fatalf("delete preset status = %d", code)
	}
	if code := f.request(t, http.MethodGet, fmt.Sprintf("/api/presets/%d", created.Preset.ID), nil, nil); code != http.StatusNotFound {
		t.Fatalf("get deleted preset status = %d", code)
	}
}

func TestAPIPresetDeleteBlockedWhileReferenced(t *testing.T) {
	f := startDaemon(t)

	preset := testsupport.NewPreset(t, f.store, "referenced")
	testsupport.NewLocalWatchfolder(t, f.store, "user", t.TempDir(), preset.ID)

	code := f.request(t, http.MethodDelete, fmt.Sprintf("/api/presets/%d", preset.ID), nil, nil)
	if code != http.StatusConflict {
		t.Fatalf("delete referenced preset status = %d, want 409", code)
	}
}

func TestAPIWatchfolderPasswordWriteOnly(t *testing.T) {
	f := startDaemon(t)
	preset := testsupport.NewPreset(t, f.store, "ftp-preset")

	base := t.TempDir()
	var created api.WatchfolderResponse
	code := f.request(t, http.MethodPost, "/api/watchfolders", api.WatchfolderRequest{
		Name:           "ftp-ingest",
		WatchType:      "ftp",
		PresetID:       preset.ID,
		OutputPath:     filepath.Join(base, "out"),
		FTPHost:        "media.example.com",
		FTPUser:        "ingest",
		FTPPassword:    "secret",
		FTPRemotePath:  "/incoming",
		FTPStagingPath: filepath.Join(base, "staging"),
	}, &created)
	if code != http.StatusCreated {
		t.Fatalf("create watchfolder status = %d", code)
	}
	if !created.Watchfolder.HasFTPPassword {
		t.Fatal("hasFtpPassword should be true after create")
	}

	// The raw payload must never carry the credential.
	resp, err := http.Get(f.base + fmt.Sprintf("/api/watchfolders/%d", created.Watchfolder.ID))
	if err != nil {
		t.Fatalf("get watchfolder: %v", err)
	}
	raw, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if bytes.Contains(raw, []byte("secret")) {
		t.Fatalf("response leaked the FTP password: %s", raw)
	}

	// An update with an empty password keeps the stored credential.
	var updated api.WatchfolderResponse
	code = f.request(t, http.MethodPut, fmt.Sprintf("/api/watchfolders/%d", created.Watchfolder.ID), api.WatchfolderRequest{
		Name:           "ftp-ingest-renamed",
		WatchType:      "ftp",
		PresetID:       preset.ID,
		OutputPath:     filepath.Join(base, "out"),
		FTPHost:        "media.example.com",
		FTPUser:        "ingest",
		FTPRemotePath:  "/incoming",
		FTPStagingPath: filepath.Join(base, "staging"),
	}, &updated)
	if code != http.StatusOK {
		t.Fatalf("update watchfolder status = %d", code)
	}
	stored, err := f.store.WatchfolderByID(context.Background(), created.Watchfolder.ID)
	if err != nil {
		t.Fatalf("WatchfolderByID: %v", err)
	}
	if stored.FTPPassword != "secret" {
		t.Fatalf("stored password = %q, want preserved credential", stored.FTPPassword)
	}
	if stored.Name != "ftp-ingest-renamed" {
		t.Fatalf("stored name = %q", stored.Name)
	}
}

func TestAPIWatchfolderActiveToggle(t *testing.T) {
	f := startDaemon(t)
	preset := testsupport.NewPreset(t, f.store, "toggle-preset")
	folder := testsupport.NewLocalWatchfolder(t, f.store, "toggle", t.TempDir(), preset.ID)

	var resp api.WatchfolderResponse
	code := f.request(t, http.MethodPatch, fmt.Sprintf("/api/watchfolders/%d/active", folder.ID), api.ActiveRequest{Active: false}, &resp)
	if code != http.StatusOK {
		t.Fatalf("toggle status = %d", code)
	}
	if resp.Watchfolder.Active {
		t.Fatal("watchfolder should be inactive")
	}
	if resp.Watchfolder.Status != string(store.WatchfolderDisabled) {
		t.Fatalf("status = %q, want disabled", resp.Watchfolder.Status)
	}
}

func TestAPIJobListAndRetry(t *testing.T) {
	f := startDaemon(t)
	ctx := context.Background()

	preset := testsupport.NewPreset(t, f.store, "job-preset")
	first := testsupport.NewLocalWatchfolder(t, f.store, "first", t.TempDir(), preset.ID)
	second := testsupport.NewLocalWatchfolder(t, f.store, "second", t.TempDir(), preset.ID)
	jobA := testsupport.NewPendingJob(t, f.store, first, "a.mov")
	testsupport.NewPendingJob(t, f.store, second, "b.mov")

	var list api.JobListResponse
	code := f.request(t, http.MethodGet, fmt.Sprintf("/api/jobs?watchfolder=%d", first.ID), nil, &list)
	if code != http.StatusOK {
		t.Fatalf("list jobs status = %d", code)
	}
	if len(list.Jobs) != 1 || list.Jobs[0].ID != jobA.ID {
		t.Fatalf("filtered jobs = %+v, want just job %d", list.Jobs, jobA.ID)
	}

	// A pending job cannot be retried.
	code = f.request(t, http.MethodPost, fmt.Sprintf("/api/jobs/%d/retry", jobA.ID), nil, nil)
	if code != http.StatusConflict {
		t.Fatalf("retry pending job status = %d, want 409", code)
	}

	worker := testsupport.NewWorker(t, f.store, "encoder", 1)
	claimed, err := f.store.ClaimJob(ctx, jobA.ID, worker.ID)
	if err != nil || !claimed {
		t.Fatalf("ClaimJob: claimed=%v err=%v", claimed, err)
	}
	if err := f.store.FailJob(ctx, jobA.ID, "ffmpeg exited with an error"); err != nil {
		t.Fatalf("FailJob: %v", err)
	}

	var retried api.JobResponse
	code = f.request(t, http.MethodPost, fmt.Sprintf("/api/jobs/%d/retry", jobA.ID), nil, &retried)
	if code != http.StatusOK {
		t.Fatalf("retry failed job status = %d", code)
	}
	if retried.Job.Status != string(store.JobPending) || retried.Job.Progress != 0 {
		t.Fatalf("retried job = %+v, want pending at 0%%", retried.Job)
	}
	if retried.Job.ErrorMessage != "" {
		t.Fatalf("retried job kept error %q", retried.Job.ErrorMessage)
	}
}

func TestAPIWorkerDetailReportsLoad(t *testing.T) {
	f := startDaemon(t)
	ctx := context.Background()

	preset := testsupport.NewPreset(t, f.store, "load-preset")
	folder := testsupport.NewLocalWatchfolder(t, f.store, "load-folder", t.TempDir(), preset.ID)
	worker := testsupport.NewWorker(t, f.store, "busy-worker", 2)
	job := testsupport.NewPendingJob(t, f.store, folder, "clip.mov")

	claimed, err := f.store.ClaimJob(ctx, job.ID, worker.ID)
	if err != nil || !claimed {
		t.Fatalf("ClaimJob: claimed=%v err=%v", claimed, err)
	}

	var detail api.WorkerResponse
	code := f.request(t, http.MethodGet, fmt.Sprintf("/api/workers/%d", worker.ID), nil, &detail)
	if code != http.StatusOK {
		t.Fatalf("get worker status = %d", code)
	}
	if detail.Worker.CurrentJobs != 1 {
		t.Fatalf("currentJobs = %d, want 1", detail.Worker.CurrentJobs)
	}
	if detail.Worker.Status != string(store.WorkerRunning) {
		t.Fatalf("status = %q, want running", detail.Worker.Status)
	}
	if len(detail.Worker.CurrentJobIDs) != 1 || detail.Worker.CurrentJobIDs[0] != job.ID {
		t.Fatalf("currentJobIds = %v, want [%d]", detail.Worker.CurrentJobIDs, job.ID)
	}

	var renamed api.WorkerResponse
	code = f.request(t, http.MethodPut, fmt.Sprintf("/api/workers/%d", worker.ID), api.WorkerRequest{
		Name:              "busy-worker-renamed",
		MaxConcurrentJobs: 2,
	}, &renamed)
	if code != http.StatusOK {
		t.Fatalf("update worker status = %d", code)
	}
	if renamed.Worker.CurrentJobs != 1 {
		t.Fatalf("currentJobs after update = %d, want 1", renamed.Worker.CurrentJobs)
	}
}

func TestAPIStatusView(t *testing.T) {
	f := startDaemon(t)

	preset := testsupport.NewPreset(t, f.store, "status-preset")
	folder := testsupport.NewLocalWatchfolder(t, f.store, "status", t.TempDir(), preset.ID)
	testsupport.NewWorker(t, f.store, "encoder", 2)

	testsupport.NewPendingJob(t, f.store, folder, "one.mov")
	testsupport.NewPendingJob(t, f.store, folder, "two.mov")

	var status api.StatusResponse
	if code := f.request(t, http.MethodGet, "/api/status", nil, &status); code != http.StatusOK {
		t.Fatalf("status endpoint = %d", code)
	}
	if !status.Running {
		t.Fatal("status should report running")
	}
	if len(status.Watchfolders) != 1 {
		t.Fatalf("len(watchfolders) = %d, want 1", len(status.Watchfolders))
	}
	view := status.Watchfolders[0]
	if view.Total != 2 || view.Pending != 2 {
		t.Fatalf("counts total=%d pending=%d, want 2/2", view.Total, view.Pending)
	}
	if len(view.RecentJobs) != 2 {
		t.Fatalf("len(recentJobs) = %d, want 2", len(view.RecentJobs))
	}
	if len(status.Workers) != 1 || status.Workers[0].Status != string(store.WorkerIdle) {
		t.Fatalf("workers = %+v, want one idle worker", status.Workers)
	}
}

func TestAPILogTail(t *testing.T) {
	f := startDaemon(t)

	if err := os.MkdirAll(f.cfg.Paths.LogDir, 0o755); err != nil {
		t.Fatalf("mkdir log dir: %v", err)
	}
	content := "line one\nline two\nline three\n"
	if err := os.WriteFile(f.daemon.logPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	var tail api.LogTailResponse
	if code := f.request(t, http.MethodGet, "/api/logs?lines=2", nil, &tail); code != http.StatusOK {
		t.Fatalf("log tail status = %d", code)
	}
	if len(tail.Lines) != 2 || tail.Lines[1] != "line three" {
		t.Fatalf("tail lines = %v", tail.Lines)
	}

	resp, err := http.Get(f.base + "/api/logs/download")
	if err != nil {
		t.Fatalf("download logs: %v", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read download: %v", err)
	}
	if string(raw) != content {
		t.Fatalf("downloaded log = %q, want full file", raw)
	}
}
