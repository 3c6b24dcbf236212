package ingest

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

// poller is one watchfolder's discovery loop.
type poller interface {
	run(ctx context.Context)
}

type runningPoller struct {
	cancel    context.CancelFunc
	updatedAt time.Time
}

// Manager reconciles poller goroutines against the watchfolder registry.
// Edits take effect without a daemon restart: the reconcile loop restarts a
// poller whose row changed and stops pollers for deactivated or deleted
// watchfolders.
type Manager struct {
	cfg    *config.Config
	store  *store.Store
	logger *slog.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	pollers map[int64]*runningPoller
	wg      sync.WaitGroup
}

// NewManager builds the ingest manager.
func NewManager(cfg *config.Config, st *store.Store, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Manager{
		cfg:     cfg,
		store:   st,
		logger:  logging.WithComponent(logger, "ingest"),
		pollers: make(map[int64]*runningPoller),
	}
}

// Start begins the reconcile loop.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return errors.New("ingest manager already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true

	m.wg.Add(1)
	go m.runReconcileLoop(runCtx)
	return nil
}

// Stop halts all pollers and waits for them to exit.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

func (m *Manager) runReconcileLoop(ctx context.Context) {
	defer m.wg.Done()
	interval := time.Duration(m.cfg.Ingest.LocalPollInterval) * time.Second

	for {
		if err := m.reconcile(ctx); err != nil && !errors.Is(err, context.Canceled) {
			m.logger.Error("reconcile watchfolders", logging.Error(err))
		}
		select {
		case <-ctx.Done():
			m.stopAll()
			return
		case <-time.After(interval):
		}
	}
}

// reconcile aligns running pollers with the set of active watchfolders.
func (m *Manager) reconcile(ctx context.Context) error {
	folders, err := m.store.ListActiveWatchfolders(ctx)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	want := make(map[int64]*store.Watchfolder, len(folders))
	for _, folder := range folders {
		want[folder.ID] = folder
	}

	for id, running := range m.pollers {
		folder, stillWanted := want[id]
		if stillWanted && folder.UpdatedAt.Equal(running.updatedAt) {
			continue
		}
		running.cancel()
		delete(m.pollers, id)
		if !stillWanted {
			m.logger.Info("watchfolder polling stopped", logging.Int64(logging.FieldWatchfolderID, id))
		}
	}

	for id, folder := range want {
		if _, alreadyRunning := m.pollers[id]; alreadyRunning {
			continue
		}
		m.startPoller(ctx, folder)
	}
	return nil
}

func (m *Manager) startPoller(ctx context.Context, folder *store.Watchfolder) {
	var p poller
	switch folder.WatchType {
	case store.WatchLocal:
		p = newLocalPoller(m.cfg, m.store, folder, m.logger)
	case store.WatchFTP:
		p = newFTPPoller(m.cfg, m.store, folder, m.logger)
	default:
		m.logger.Error("unknown watch type",
			logging.Int64(logging.FieldWatchfolderID, folder.ID),
			logging.String("watch_type", string(folder.WatchType)))
		return
	}

	pollCtx, cancel := context.WithCancel(services.WithWatchfolderID(ctx, folder.ID))
	m.pollers[folder.ID] = &runningPoller{cancel: cancel, updatedAt: folder.UpdatedAt}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		p.run(pollCtx)
	}()
}

func (m *Manager) stopAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, running := range m.pollers {
		running.cancel()
		delete(m.pollers, id)
	}
}

// ActivePollers reports how many watchfolder pollers are currently running.
func (m *Manager) ActivePollers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pollers)
}
