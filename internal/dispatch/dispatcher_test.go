package dispatch

import (
	"context"
	"sync"
	"testing"
	"time"

	"mediaflow/internal/store"
	"mediaflow/internal/testsupport"
)

type recordingRunner struct {
	mu   sync.Mutex
	jobs []*store.Job
}

func (r *recordingRunner) Run(_ context.Context, job *store.Job, _ *store.Preset, _ *store.Watchfolder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs = append(r.jobs, job)
}

func (r *recordingRunner) ids() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]int64, 0, len(r.jobs))
	for _, job := range r.jobs {
		ids = append(ids, job.ID)
	}
	return ids
}

func TestDispatchOnceFIFO(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	folder := testsupport.NewLocalWatchfolder(t, st, "ingest", t.TempDir(), 0)
	testsupport.NewWorker(t, st, "wk1", 3)

	first := testsupport.NewPendingJob(t, st, folder, "a.mov")
	second := testsupport.NewPendingJob(t, st, folder, "b.mov")
	third := testsupport.NewPendingJob(t, st, folder, "c.mov")

	runner := &recordingRunner{}
	d := New(cfg, st, runner, nil)
	if err := d.dispatchOnce(context.Background()); err != nil {
		t.Fatalf("dispatchOnce: %v", err)
	}
	d.executors.Wait()

	got := runner.ids()
	want := []int64{first.ID, second.ID, third.ID}
	if len(got) != len(want) {
		t.Fatalf("dispatched %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("dispatch order %v, want %v", got, want)
		}
	}
}

func TestDispatchOnceRespectsCapacity(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	folder := testsupport.NewLocalWatchfolder(t, st, "ingest", t.TempDir(), 0)
	worker := testsupport.NewWorker(t, st, "wk1", 2)

	for _, name := range []string{"a.mov", "b.mov", "c.mov"} {
		testsupport.NewPendingJob(t, st, folder, name)
	}

	runner := &recordingRunner{}
	d := New(cfg, st, runner, nil)
	if err := d.dispatchOnce(context.Background()); err != nil {
		t.Fatalf("dispatchOnce: %v", err)
	}
	d.executors.Wait()

	if len(runner.ids()) != 2 {
		t.Fatalf("dispatched %d jobs, want 2", len(runner.ids()))
	}
	pending, err := st.PendingJobsFIFO(context.Background(), 0)
	if err != nil {
		t.Fatalf("PendingJobsFIFO: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("pending = %d, want 1", len(pending))
	}
	loads, err := st.ListWorkersWithLoad(context.Background())
	if err != nil {
		t.Fatalf("ListWorkersWithLoad: %v", err)
	}
	if loads[0].ID != worker.ID || loads[0].CurrentJobs != 2 {
		t.Fatalf("worker load = %+v", loads[0])
	}
}

func TestDispatchPrefersLeastLoadedWorker(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	folder := testsupport.NewLocalWatchfolder(t, st, "ingest", t.TempDir(), 0)
	busy := testsupport.NewWorker(t, st, "busy", 2)
	idle := testsupport.NewWorker(t, st, "idle", 2)

	seed := testsupport.NewPendingJob(t, st, folder, "seed.mov")
	if _, err := st.ClaimJob(context.Background(), seed.ID, busy.ID); err != nil {
		t.Fatalf("ClaimJob: %v", err)
	}

	job := testsupport.NewPendingJob(t, st, folder, "next.mov")
	runner := &recordingRunner{}
	d := New(cfg, st, runner, nil)
	if err := d.dispatchOnce(context.Background()); err != nil {
		t.Fatalf("dispatchOnce: %v", err)
	}
	d.executors.Wait()

	assigned, err := st.JobByID(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("JobByID: %v", err)
	}
	if assigned.AssignedWorkerID != idle.ID {
		t.Fatalf("assigned worker = %d, want %d", assigned.AssignedWorkerID, idle.ID)
	}
}

// flakyClaimStore drops the first claim attempt the way a concurrent claimer
// would, then behaves normally.
type flakyClaimStore struct {
	*store.Store
	dropped bool
}

func (f *flakyClaimStore) ClaimJob(ctx context.Context, jobID, workerID int64) (bool, error) {
	if !f.dropped {
		f.dropped = true
		return false, nil
	}
	return f.Store.ClaimJob(ctx, jobID, workerID)
}

func TestDispatchRetriesOldestJobAfterLostClaim(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	folder := testsupport.NewLocalWatchfolder(t, st, "ingest", t.TempDir(), 0)
	testsupport.NewWorker(t, st, "wk1", 3)

	first := testsupport.NewPendingJob(t, st, folder, "a.mov")
	second := testsupport.NewPendingJob(t, st, folder, "b.mov")

	runner := &recordingRunner{}
	d := New(cfg, st, runner, nil)
	d.store = &flakyClaimStore{Store: st}
	if err := d.dispatchOnce(context.Background()); err != nil {
		t.Fatalf("dispatchOnce: %v", err)
	}
	d.executors.Wait()

	got := runner.ids()
	want := []int64{first.ID, second.ID}
	if len(got) != len(want) {
		t.Fatalf("dispatched %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("lost claim let a newer job jump the queue: %v, want %v", got, want)
		}
	}
}

func TestDispatchSkipsInactiveWorkers(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	folder := testsupport.NewLocalWatchfolder(t, st, "ingest", t.TempDir(), 0)
	worker := testsupport.NewWorker(t, st, "wk1", 1)
	if err := st.SetWorkerActive(context.Background(), worker.ID, false); err != nil {
		t.Fatalf("SetWorkerActive: %v", err)
	}
	testsupport.NewPendingJob(t, st, folder, "a.mov")

	runner := &recordingRunner{}
	d := New(cfg, st, runner, nil)
	if err := d.dispatchOnce(context.Background()); err != nil {
		t.Fatalf("dispatchOnce: %v", err)
	}
	d.executors.Wait()

	if len(runner.ids()) != 0 {
		t.Fatalf("dispatched to inactive worker: %v", runner.ids())
	}
}

func TestReclaimOnceFailsStaleJobs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Dispatch.HeartbeatTimeout = 0
	st := testsupport.MustOpenStore(t, cfg)
	folder := testsupport.NewLocalWatchfolder(t, st, "ingest", t.TempDir(), 0)
	worker := testsupport.NewWorker(t, st, "wk1", 1)

	job := testsupport.NewPendingJob(t, st, folder, "a.mov")
	if _, err := st.ClaimJob(context.Background(), job.ID, worker.ID); err != nil {
		t.Fatalf("ClaimJob: %v", err)
	}

	// Zero timeout makes the just-written heartbeat already stale.
	time.Sleep(10 * time.Millisecond)
	d := New(cfg, st, &recordingRunner{}, nil)
	d.reclaimOnce(context.Background())

	reclaimed, err := st.JobByID(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("JobByID: %v", err)
	}
	if reclaimed.Status != store.JobFailed {
		t.Fatalf("status = %q", reclaimed.Status)
	}
}

func TestStartStop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	d := New(cfg, st, &recordingRunner{}, nil)
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := d.Start(context.Background()); err == nil {
		t.Fatal("expected second Start to fail")
	}
	d.Stop()
	// Stop is idempotent.
	d.Stop()
}
