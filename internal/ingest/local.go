package ingest

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"mediaflow/internal/config"
	"mediaflow/internal/logging"
	"mediaflow/internal/store"
)

// observation is one sighting of a candidate file during the stability gate.
type observation struct {
	size   int64
	mtime  time.Time
	seenAt time.Time
}

// localPoller watches one local directory. An fsnotify watcher shortens the
// discovery latency; the periodic scan is the source of truth, so a missed
// event only delays a file by one poll interval.
type localPoller struct {
	cfg    *config.Config
	store  *store.Store
	folder *store.Watchfolder
	logger *slog.Logger

	candidates map[string]observation
}

func newLocalPoller(cfg *config.Config, st *store.Store, folder *store.Watchfolder, logger *slog.Logger) *localPoller {
	return &localPoller{
		cfg:    cfg,
		store:  st,
		folder: folder,
		logger: logging.WithComponent(logger, "ingest.local").With(
			logging.Int64(logging.FieldWatchfolderID, folder.ID),
			logging.String("watchfolder", folder.Name)),
		candidates: make(map[string]observation),
	}
}

func (p *localPoller) run(ctx context.Context) {
	interval := time.Duration(p.cfg.Ingest.LocalPollInterval) * time.Second

	var events chan struct{}
	watcher, err := fsnotify.NewWatcher()
	if err == nil {
		if err := watcher.Add(p.folder.Path); err != nil {
			p.logger.Warn("filesystem watch unavailable; relying on periodic scan", logging.Error(err))
			watcher.Close()
			watcher = nil
		}
	} else {
		p.logger.Warn("fsnotify init failed; relying on periodic scan", logging.Error(err))
		watcher = nil
	}
	if watcher != nil {
		defer watcher.Close()
		events = make(chan struct{}, 1)
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case _, ok := <-watcher.Events:
					if !ok {
						return
					}
					select {
					case events <- struct{}{}:
					default:
					}
				case _, ok := <-watcher.Errors:
					if !ok {
						return
					}
				}
			}
		}()
	}

	p.logger.Info("watchfolder polling started", logging.String("path", p.folder.Path))
	for {
		p.scanOnce(ctx)
		select {
		case <-ctx.Done():
			return
		case <-events:
			// A filesystem event starts the stability clock early; eligibility
			// is still decided by the scan.
		case <-time.After(interval):
		}
	}
}

// scanOnce walks the watch directory once, advancing the stability gate and
// creating jobs for files whose size held steady across the quiet interval.
func (p *localPoller) scanOnce(ctx context.Context) {
	entries, err := os.ReadDir(p.folder.Path)
	if err != nil {
		p.logger.Warn("scan watch directory", logging.Error(err))
		p.setStatus(ctx, store.WatchfolderError, err.Error())
		return
	}
	p.setStatus(ctx, store.WatchfolderIdle, "")

	quiet := time.Duration(p.cfg.Ingest.QuietInterval) * time.Second
	now := time.Now()
	seen := make(map[string]struct{}, len(entries))

	for _, entry := range entries {
		if entry.IsDir() || !p.cfg.AllowedExtension(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.Size() == 0 {
			continue
		}
		seen[entry.Name()] = struct{}{}

		prev, ok := p.candidates[entry.Name()]
		if !ok || prev.size != info.Size() {
			p.candidates[entry.Name()] = observation{size: info.Size(), mtime: info.ModTime(), seenAt: now}
			continue
		}
		if now.Sub(prev.seenAt) < quiet {
			continue
		}

		p.createJob(ctx, entry.Name(), info.Size(), prev.mtime)
		delete(p.candidates, entry.Name())
	}

	// Forget candidates that disappeared before becoming stable.
	for name := range p.candidates {
		if _, ok := seen[name]; !ok {
			delete(p.candidates, name)
		}
	}
}

func (p *localPoller) createJob(ctx context.Context, name string, size int64, mtime time.Time) {
	if p.folder.PresetID == 0 {
		p.logger.Debug("skipping file; watchfolder has no preset", logging.String("file", name))
		return
	}

	fingerprint := Fingerprint(name, size, mtime)
	job, err := p.store.CreateJob(ctx, store.NewJobParams{
		WatchfolderID: p.folder.ID,
		PresetID:      p.folder.PresetID,
		InputFilename: name,
		InputPath:     filepath.Join(p.folder.Path, name),
		InputSize:     size,
		Fingerprint:   fingerprint,
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicateJob) {
			p.logger.Debug("file already ingested", logging.String("file", name))
			return
		}
		p.logger.Error("create job", logging.String("file", name), logging.Error(err))
		return
	}
	p.logger.Info("job created",
		logging.Int64(logging.FieldJobID, job.ID),
		logging.String("file", name),
		logging.Int64("size", size))
}

func (p *localPoller) setStatus(ctx context.Context, status store.WatchfolderStatus, lastError string) {
	if p.folder.Status == status {
		return
	}
	if err := p.store.SetWatchfolderStatus(ctx, p.folder.ID, status, lastError); err != nil {
		p.logger.Warn("set watchfolder status", logging.Error(err))
		return
	}
	p.folder.Status = status
}
