package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"mediaflow/internal/config"
	"mediaflow/internal/logging"
	"mediaflow/internal/services"
	"mediaflow/internal/store"
)

// Runner executes a claimed job to its terminal state. Satisfied by
// encode.Executor.
type Runner interface {
	Run(ctx context.Context, job *store.Job, preset *store.Preset, folder *store.Watchfolder)
}

// pendingScanLimit bounds how many pending jobs one cycle considers. A
// starved queue longer than this just waits for the next cycle.
const pendingScanLimit = 100

// jobStore is the slice of the store the dispatcher reads and claims through.
type jobStore interface {
	PendingJobsFIFO(ctx context.Context, limit int) ([]*store.Job, error)
	AvailableWorkers(ctx context.Context) ([]*store.WorkerLoad, error)
	ClaimJob(ctx context.Context, jobID, workerID int64) (bool, error)
	JobByID(ctx context.Context, id int64) (*store.Job, error)
	PresetByID(ctx context.Context, id int64) (*store.Preset, error)
	WatchfolderByID(ctx context.Context, id int64) (*store.Watchfolder, error)
	ReclaimStale(ctx context.Context, cutoff time.Time) (int64, error)
}

// Dispatcher owns the scan loop and the stale-job sweep.
type Dispatcher struct {
	cfg    *config.Config
	store  jobStore
	runner Runner
	logger *slog.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	executors sync.WaitGroup
}

// New builds a dispatcher around the given runner.
func New(cfg *config.Config, st *store.Store, runner Runner, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Dispatcher{
		cfg:    cfg,
		store:  st,
		runner: runner,
		logger: logging.WithComponent(logger, "dispatch"),
	}
}

// Start begins the dispatch and reclaim loops.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return errors.New("dispatcher already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.running = true

	d.wg.Add(2)
	go d.runDispatchLoop(runCtx)
	go d.runReclaimLoop(runCtx)
	return nil
}

// Stop halts the loops and waits for in-flight executors to finish.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	cancel := d.cancel
	d.running = false
	d.cancel = nil
	d.mu.Unlock()

	cancel()
	d.wg.Wait()
	d.executors.Wait()
}

func (d *Dispatcher) runDispatchLoop(ctx context.Context) {
	defer d.wg.Done()
	interval := time.Duration(d.cfg.Dispatch.PollInterval) * time.Second
	errInterval := time.Duration(d.cfg.Dispatch.ErrorRetryInterval) * time.Second

	for {
		wait := interval
		if err := d.dispatchOnce(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			d.logger.Error("dispatch cycle failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check scheduler database access"))
			wait = errInterval
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

// dispatchOnce performs one FIFO scan. Candidate workers come back least
// loaded first; the local load bookkeeping keeps that order meaningful
// across several claims in the same cycle, and the store's atomic claim is
// the actual gate.
func (d *Dispatcher) dispatchOnce(ctx context.Context) error {
	pending, err := d.store.PendingJobsFIFO(ctx, pendingScanLimit)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		return nil
	}

	workers, err := d.store.AvailableWorkers(ctx)
	if err != nil {
		return err
	}
	if len(workers) == 0 {
		return nil
	}

	for _, job := range pending {
		for {
			worker := leastLoaded(workers)
			if worker == nil {
				return nil
			}
			claimed, err := d.store.ClaimJob(ctx, job.ID, worker.ID)
			if err != nil {
				return err
			}
			if claimed {
				worker.CurrentJobs++
				d.spawnExecutor(ctx, job.ID)
				break
			}
			// Lost the race or the worker filled up. The oldest job keeps
			// its turn: refresh the candidates and retry it, moving on only
			// once it is no longer pending.
			current, err := d.store.JobByID(ctx, job.ID)
			if err != nil {
				if errors.Is(err, services.ErrNotFound) {
					break
				}
				return err
			}
			if current.Status != store.JobPending {
				break
			}
			workers, err = d.store.AvailableWorkers(ctx)
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func leastLoaded(workers []*store.WorkerLoad) *store.WorkerLoad {
	var best *store.WorkerLoad
	for _, worker := range workers {
		if !worker.Available() {
			continue
		}
		if best == nil || worker.CurrentJobs < best.CurrentJobs ||
			(worker.CurrentJobs == best.CurrentJobs && worker.ID < best.ID) {
			best = worker
		}
	}
	return best
}

func (d *Dispatcher) spawnExecutor(ctx context.Context, jobID int64) {
	job, err := d.store.JobByID(ctx, jobID)
	if err != nil {
		d.logger.Error("load claimed job", logging.Int64(logging.FieldJobID, jobID), logging.Error(err))
		return
	}

	var preset *store.Preset
	if job.PresetID != 0 {
		if preset, err = d.store.PresetByID(ctx, job.PresetID); err != nil {
			d.logger.Warn("load preset for job",
				logging.Int64(logging.FieldJobID, jobID), logging.Error(err))
			preset = nil
		}
	}
	var folder *store.Watchfolder
	if job.WatchfolderID != 0 {
		if folder, err = d.store.WatchfolderByID(ctx, job.WatchfolderID); err != nil {
			d.logger.Warn("load watchfolder for job",
				logging.Int64(logging.FieldJobID, jobID), logging.Error(err))
			folder = nil
		}
	}

	d.logger.Info("job dispatched",
		logging.Int64(logging.FieldJobID, job.ID),
		logging.Int64(logging.FieldWorkerID, job.AssignedWorkerID),
		logging.String("input", job.InputFilename))

	d.executors.Add(1)
	go func() {
		defer d.executors.Done()
		d.runner.Run(ctx, job, preset, folder)
	}()
}

func (d *Dispatcher) runReclaimLoop(ctx context.Context) {
	defer d.wg.Done()
	interval := time.Duration(d.cfg.Dispatch.HeartbeatInterval) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.reclaimOnce(ctx)
		}
	}
}

func (d *Dispatcher) reclaimOnce(ctx context.Context) {
	cutoff := time.Now().Add(-time.Duration(d.cfg.Dispatch.HeartbeatTimeout) * time.Second)
	reclaimed, err := d.store.ReclaimStale(ctx, cutoff)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			d.logger.Error("reclaim stale jobs", logging.Error(err))
		}
		return
	}
	if reclaimed > 0 {
		d.logger.Warn("reclaimed stale processing jobs",
			logging.Int64("count", reclaimed),
			logging.String(logging.FieldErrorHint, "an executor stopped heartbeating"))
	}
}
