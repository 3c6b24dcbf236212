// Package daemon supervises the mediaflow background services: the SQLite
// store, the watchfolder ingest manager, the dispatcher, and the HTTP API.
// A file lock enforces a single daemon instance per data directory.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/gofrs/flock"

	"mediaflow/internal/api"
	"mediaflow/internal/config"
	"mediaflow/internal/dispatch"
	"mediaflow/internal/encode"
	"mediaflow/internal/ingest"
	"mediaflow/internal/logging"
	"mediaflow/internal/store"
)

// recentJobsLimit bounds the per-watchfolder job list in the status view.
const recentJobsLimit = 5

// Daemon coordinates the background services and enforces single-instance
// execution.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *store.Store

	ingest     *ingest.Manager
	dispatcher *dispatch.Dispatcher
	api        *apiServer

	logPath  string
	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
}

// New constructs a daemon with initialized dependencies. The executor's
// success hook feeds back into the ingest manager so completed inputs are
// archived.
func New(cfg *config.Config, st *store.Store, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || st == nil {
		return nil, errors.New("daemon requires config and store")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	ingestMgr := ingest.NewManager(cfg, st, logger)
	executor := encode.NewExecutor(cfg, st, logger, ingestMgr.HandleJobSuccess)
	dispatcher := dispatch.New(cfg, st, executor, logger)

	lockPath := filepath.Join(cfg.Paths.DataDir, "mediaflowd.lock")
	d := &Daemon{
		cfg:        cfg,
		logger:     logging.WithComponent(logger, "daemon"),
		store:      st,
		ingest:     ingestMgr,
		dispatcher: dispatcher,
		logPath:    filepath.Join(cfg.Paths.LogDir, logging.LogFileName),
		lockPath:   lockPath,
		lock:       flock.New(lockPath),
	}
	srv, err := newAPIServer(cfg, d, logger)
	if err != nil {
		return nil, err
	}
	d.api = srv
	return d, nil
}

// Start acquires the instance lock and launches the background services.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another mediaflow daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	if err := d.ingest.Start(runCtx); err != nil {
		d.releaseStart()
		return fmt.Errorf("start ingest: %w", err)
	}
	if err := d.dispatcher.Start(runCtx); err != nil {
		d.ingest.Stop()
		d.releaseStart()
		return fmt.Errorf("start dispatcher: %w", err)
	}
	if err := d.api.start(runCtx); err != nil {
		d.dispatcher.Stop()
		d.ingest.Stop()
		d.releaseStart()
		return fmt.Errorf("start api: %w", err)
	}

	d.running.Store(true)
	d.logger.Info("daemon started",
		logging.String("lock", d.lockPath),
		logging.String("database", d.store.Path()))
	return nil
}

func (d *Daemon) releaseStart() {
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	_ = d.lock.Unlock()
}

// Stop halts background services and releases the instance lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.api.stop()
	d.dispatcher.Stop()
	d.ingest.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("daemon stopped")
}

// Run starts the daemon and blocks until the context is cancelled.
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	d.Stop()
	return nil
}

// APIAddr reports the bound HTTP API address, or empty before Start.
func (d *Daemon) APIAddr() string {
	return d.api.addr()
}

// Status assembles the consolidated status view: per-watchfolder job counts
// with recent jobs, plus every worker with its derived load.
func (d *Daemon) Status(ctx context.Context) (api.StatusResponse, error) {
	resp := api.StatusResponse{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		DatabasePath: d.store.Path(),
		LockFilePath: d.lockPath,
	}

	folders, err := d.store.ListWatchfolders(ctx)
	if err != nil {
		return resp, fmt.Errorf("list watchfolders: %w", err)
	}
	stats, err := d.store.StatsByWatchfolder(ctx)
	if err != nil {
		return resp, fmt.Errorf("aggregate job stats: %w", err)
	}

	for _, folder := range folders {
		view := api.WatchfolderStatus{Watchfolder: api.FromWatchfolder(folder)}
		if s, ok := stats[folder.ID]; ok {
			view.Total = s.Total
			view.Pending = s.Pending
			view.Processing = s.Processing
			view.Completed = s.Completed
			view.Failed = s.Failed
		}
		recent, err := d.store.ListJobs(ctx, store.JobFilter{
			WatchfolderID: folder.ID,
			Limit:         recentJobsLimit,
		})
		if err != nil {
			return resp, fmt.Errorf("list recent jobs: %w", err)
		}
		view.RecentJobs = api.FromJobs(recent)
		resp.Watchfolders = append(resp.Watchfolders, view)
	}

	workers, err := d.store.ListWorkersWithLoad(ctx)
	if err != nil {
		return resp, fmt.Errorf("list workers: %w", err)
	}
	resp.Workers = api.FromWorkerLoads(workers)
	return resp, nil
}
