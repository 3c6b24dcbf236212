package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"mediaflow/internal/fileutil"
	"mediaflow/internal/logging"
	"mediaflow/internal/services"
	"mediaflow/internal/store"
)

const archiveSuffixFormat = "20060102_150405"

// ArchiveInput moves a completed job's input file into the watchfolder's
// archive directory. A name collision gets a timestamp suffix instead of
// overwriting the earlier archive. Archiving is best effort and never fails
// the job; a missing input just means someone already moved it.
func ArchiveInput(folder *store.Watchfolder, job *store.Job) (string, error) {
	if folder == nil || folder.ArchivePath == "" {
		return "", nil
	}
	if _, err := os.Stat(job.InputPath); err != nil {
		return "", services.Wrap(services.ErrIngestion, "archive", "stat input", job.InputPath, err)
	}
	if err := os.MkdirAll(folder.ArchivePath, 0o755); err != nil {
		return "", services.Wrap(services.ErrIngestion, "archive", "create directory", folder.ArchivePath, err)
	}

	dest := filepath.Join(folder.ArchivePath, filepath.Base(job.InputPath))
	dest = fileutil.UniquePath(dest, time.Now().UTC().Format(archiveSuffixFormat))

	if err := fileutil.MoveFile(job.InputPath, dest); err != nil {
		return "", services.Wrap(services.ErrIngestion, "archive", "move", fmt.Sprintf("%s to %s", job.InputPath, dest), err)
	}
	return dest, nil
}

// HandleJobSuccess is the executor's success hook: it archives the input of
// a completed job when the owning watchfolder configures an archive path.
func (m *Manager) HandleJobSuccess(ctx context.Context, job *store.Job) {
	logger := m.logger.With(logging.Int64(logging.FieldJobID, job.ID))
	if job.WatchfolderID == 0 {
		return
	}
	folder, err := m.store.WatchfolderByID(ctx, job.WatchfolderID)
	if err != nil {
		logger.Warn("load watchfolder for archive", logging.Error(err))
		return
	}
	dest, err := ArchiveInput(folder, job)
	if err != nil {
		logger.Warn("archive input failed; leaving source in place", logging.Error(err))
		return
	}
	if dest != "" {
		logger.Info("input archived", logging.String("destination", dest))
	}
}
