package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/jlaffaye/ftp"

	"mediaflow/internal/config"
	"mediaflow/internal/logging"
	"mediaflow/internal/services"
	"mediaflow/internal/store"
)

// remote is the slice of the FTP protocol the poller needs. The real
// implementation wraps a logged-in ServerConn.
type remote interface {
	list(path string) ([]*ftp.Entry, error)
	retrieve(path string) (io.ReadCloser, error)
}

type ftpRemote struct {
	conn *ftp.ServerConn
}

func (r ftpRemote) list(p string) ([]*ftp.Entry, error) {
	return r.conn.List(p)
}

func (r ftpRemote) retrieve(p string) (io.ReadCloser, error) {
	return r.conn.Retr(p)
}

// ftpPoller lists a remote directory on a fixed cycle and downloads new
// files into local staging before creating jobs. There is no server push;
// every cycle is an active LIST.
type ftpPoller struct {
	cfg    *config.Config
	store  *store.Store
	folder *store.Watchfolder
	logger *slog.Logger

	// connect dials and logs in, returning the session and its close func.
	connect func(ctx context.Context) (remote, func(), error)

	candidates          map[string]observation
	consecutiveFailures int
}

func newFTPPoller(cfg *config.Config, st *store.Store, folder *store.Watchfolder, logger *slog.Logger) *ftpPoller {
	p := &ftpPoller{
		cfg:    cfg,
		store:  st,
		folder: folder,
		logger: logging.WithComponent(logger, "ingest.ftp").With(
			logging.Int64(logging.FieldWatchfolderID, folder.ID),
			logging.String("watchfolder", folder.Name)),
		candidates: make(map[string]observation),
	}
	p.connect = p.dial
	return p
}

func (p *ftpPoller) dial(ctx context.Context) (remote, func(), error) {
	timeout := time.Duration(p.cfg.Ingest.FTPTimeout) * time.Second
	addr := fmt.Sprintf("%s:%d", p.folder.FTPHost, p.folder.FTPPort)

	conn, err := ftp.Dial(addr, ftp.DialWithContext(ctx), ftp.DialWithTimeout(timeout))
	if err != nil {
		return nil, nil, services.Wrap(services.ErrIngestion, "ftp", "dial", addr, err)
	}
	if err := conn.Login(p.folder.FTPUser, p.folder.FTPPassword); err != nil {
		_ = conn.Quit()
		return nil, nil, services.Wrap(services.ErrIngestion, "ftp", "login", p.folder.FTPHost, err)
	}
	return ftpRemote{conn: conn}, func() { _ = conn.Quit() }, nil
}

func (p *ftpPoller) run(ctx context.Context) {
	p.logger.Info("ftp polling started",
		logging.String("host", p.folder.FTPHost),
		logging.String("remote_path", p.folder.FTPRemotePath))

	for {
		wait := p.pollCycle(ctx)
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

// pollCycle runs one poll and returns how long to sleep before the next.
// Failures back off exponentially up to the configured ceiling; the folder
// only surfaces status error once the failure threshold is crossed, so a
// single network blip does not alarm.
func (p *ftpPoller) pollCycle(ctx context.Context) time.Duration {
	base := time.Duration(p.cfg.Ingest.FTPPollInterval) * time.Second

	err := p.pollOnce(ctx)
	if err == nil {
		p.consecutiveFailures = 0
		p.setStatus(ctx, store.WatchfolderIdle, "")
		return base
	}
	if errors.Is(err, context.Canceled) {
		return base
	}

	p.consecutiveFailures++
	logger := p.logger.With(logging.Int("consecutive_failures", p.consecutiveFailures))
	if p.consecutiveFailures == p.cfg.Ingest.FTPFailureThreshold {
		logger.Error("ftp polling failing persistently", logging.Error(err),
			logging.String(logging.FieldErrorHint, "check host, credentials, and remote path"))
		p.setStatus(ctx, store.WatchfolderError, err.Error())
	} else {
		logger.Warn("ftp poll failed; will retry", logging.Error(err))
	}
	return backoff(base, p.consecutiveFailures, time.Duration(p.cfg.Ingest.FTPMaxBackoff)*time.Second)
}

func backoff(base time.Duration, failures int, ceiling time.Duration) time.Duration {
	wait := base
	for i := 1; i < failures; i++ {
		wait *= 2
		if wait >= ceiling {
			return ceiling
		}
	}
	if wait > ceiling {
		return ceiling
	}
	return wait
}

// pollOnce runs one LIST-and-download pass. A failed transfer leaves its
// candidate in place for the next cycle and counts as a failed cycle, so
// repeated transfer failures reach the error threshold like dial failures do.
func (p *ftpPoller) pollOnce(ctx context.Context) error {
	conn, closeConn, err := p.connect(ctx)
	if err != nil {
		return err
	}
	defer closeConn()

	entries, err := conn.list(p.folder.FTPRemotePath)
	if err != nil {
		return services.Wrap(services.ErrIngestion, "ftp", "list", p.folder.FTPRemotePath, err)
	}

	now := time.Now()
	seen := make(map[string]struct{}, len(entries))
	failedTransfers := 0
	var lastErr error
	for _, entry := range entries {
		if entry.Type != ftp.EntryTypeFile || !p.cfg.AllowedExtension(entry.Name) {
			continue
		}
		size := int64(entry.Size)
		if size == 0 {
			continue
		}
		seen[entry.Name] = struct{}{}

		fingerprint := Fingerprint(entry.Name, size, entry.Time)
		ingested, err := p.store.HasFingerprint(ctx, p.folder.ID, fingerprint)
		if err != nil {
			return err
		}
		if ingested {
			continue
		}

		// Remote uploads have no rename barrier, so require a steady size
		// across two poll cycles before downloading.
		prev, ok := p.candidates[entry.Name]
		if !ok || prev.size != size {
			p.candidates[entry.Name] = observation{size: size, mtime: entry.Time, seenAt: now}
			continue
		}

		if err := p.fetchAndCreate(ctx, conn, entry.Name, size, entry.Time); err != nil {
			// The candidate stays recorded, so the file retries next cycle
			// while the rest of the listing still gets a chance.
			p.logger.Warn("ftp transfer failed", logging.String("file", entry.Name), logging.Error(err))
			failedTransfers++
			lastErr = err
			continue
		}
		delete(p.candidates, entry.Name)
	}

	for name := range p.candidates {
		if _, ok := seen[name]; !ok {
			delete(p.candidates, name)
		}
	}
	if failedTransfers > 0 {
		return services.Wrap(services.ErrIngestion, "ftp", "transfer",
			fmt.Sprintf("%d of this cycle's transfers failed", failedTransfers), lastErr)
	}
	return nil
}

func (p *ftpPoller) fetchAndCreate(ctx context.Context, conn remote, name string, size int64, mtime time.Time) error {
	if p.folder.PresetID == 0 {
		p.logger.Debug("skipping file; watchfolder has no preset", logging.String("file", name))
		return nil
	}
	if err := os.MkdirAll(p.folder.FTPStagingPath, 0o755); err != nil {
		return services.Wrap(services.ErrIngestion, "ftp", "create staging directory", p.folder.FTPStagingPath, err)
	}

	localPath := filepath.Join(p.folder.FTPStagingPath, name)
	if err := p.download(conn, name, localPath); err != nil {
		_ = os.Remove(localPath)
		return err
	}

	info, err := os.Stat(localPath)
	if err != nil {
		return services.Wrap(services.ErrIngestion, "ftp", "stat download", localPath, err)
	}
	if info.Size() != size {
		_ = os.Remove(localPath)
		return services.Wrap(services.ErrIngestion, "ftp", "verify download",
			fmt.Sprintf("%s: remote %d bytes, transferred %d bytes", name, size, info.Size()), nil)
	}

	fingerprint := Fingerprint(name, size, mtime)
	job, err := p.store.CreateJob(ctx, store.NewJobParams{
		WatchfolderID: p.folder.ID,
		PresetID:      p.folder.PresetID,
		InputFilename: name,
		InputPath:     localPath,
		InputSize:     size,
		Fingerprint:   fingerprint,
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicateJob) {
			return nil
		}
		return err
	}
	p.logger.Info("job created from ftp download",
		logging.Int64(logging.FieldJobID, job.ID),
		logging.String("file", name),
		logging.Int64("size", size))
	return nil
}

func (p *ftpPoller) download(conn remote, name, localPath string) error {
	remotePath := path.Join(p.folder.FTPRemotePath, name)
	resp, err := conn.retrieve(remotePath)
	if err != nil {
		return services.Wrap(services.ErrIngestion, "ftp", "retrieve", remotePath, err)
	}
	defer resp.Close()

	out, err := os.Create(localPath)
	if err != nil {
		return services.Wrap(services.ErrIngestion, "ftp", "create staging file", localPath, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, resp); err != nil {
		return services.Wrap(services.ErrIngestion, "ftp", "download", remotePath, err)
	}
	return out.Close()
}

func (p *ftpPoller) setStatus(ctx context.Context, status store.WatchfolderStatus, lastError string) {
	if p.folder.Status == status {
		return
	}
	if err := p.store.SetWatchfolderStatus(ctx, p.folder.ID, status, lastError); err != nil {
		p.logger.Warn("set watchfolder status", logging.Error(err))
		return
	}
	p.folder.Status = status
}
