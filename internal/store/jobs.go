package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"mediaflow/internal/services"
)

const jobColumns = "id, watchfolder_id, preset_id, assigned_worker_id, input_filename, input_path, input_size, input_duration, output_path, output_size, output_duration, status, progress, error_message, fingerprint, created_at, started_at, completed_at, updated_at, last_heartbeat"

func scanJob(scanner rowScanner) (*Job, error) {
	var (
		id             int64
		watchfolderID  sql.NullInt64
		presetID       sql.NullInt64
		workerID       sql.NullInt64
		inputFilename  string
		inputPath      string
		inputSize      int64
		inputDuration  float64
		outputPath     sql.NullString
		outputSize     int64
		outputDuration float64
		statusStr      string
		progress       float64
		errorMessage   sql.NullString
		fingerprint    sql.NullString
		createdRaw     string
		startedRaw     sql.NullString
		completedRaw   sql.NullString
		updatedRaw     string
		heartbeatRaw   sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&watchfolderID,
		&presetID,
		&workerID,
		&inputFilename,
		&inputPath,
		&inputSize,
		&inputDuration,
		&outputPath,
		&outputSize,
		&outputDuration,
		&statusStr,
		&progress,
		&errorMessage,
		&fingerprint,
		&createdRaw,
		&startedRaw,
		&completedRaw,
		&updatedRaw,
		&heartbeatRaw,
	); err != nil {
		return nil, err
	}

	job := &Job{
		ID:               id,
		WatchfolderID:    watchfolderID.Int64,
		PresetID:         presetID.Int64,
		AssignedWorkerID: workerID.Int64,
		InputFilename:    inputFilename,
		InputPath:        inputPath,
		InputSize:        inputSize,
		InputDuration:    inputDuration,
		OutputPath:       outputPath.String,
		OutputSize:       outputSize,
		OutputDuration:   outputDuration,
		Status:           JobStatus(statusStr),
		Progress:         progress,
		ErrorMessage:     errorMessage.String,
		Fingerprint:      fingerprint.String,
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		job.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		job.UpdatedAt = updated
	}
	job.StartedAt = parseOptionalTime(startedRaw)
	job.CompletedAt = parseOptionalTime(completedRaw)
	job.LastHeartbeat = parseOptionalTime(heartbeatRaw)
	return job, nil
}

// NewJobParams carries everything an ingestion poller knows about a
// discovered file.
type NewJobParams struct {
	WatchfolderID int64
	PresetID      int64
	InputFilename string
	InputPath     string
	InputSize     int64
	Fingerprint   string
}

// CreateJob inserts a pending job unless the fingerprint was already seen by
// the same watchfolder, in which case ErrDuplicateJob is returned and no row
// is written. The dedup is backed by a unique index, so concurrent pollers
// cannot race past the precheck.
func (s *Store) CreateJob(ctx context.Context, params NewJobParams) (*Job, error) {
	if params.InputFilename == "" || params.InputPath == "" {
		return nil, services.Wrap(services.ErrConfiguration, "job", "create", "input filename and path are required", nil)
	}

	if params.Fingerprint != "" {
		seen, err := s.HasFingerprint(ctx, params.WatchfolderID, params.Fingerprint)
		if err != nil {
			return nil, err
		}
		if seen {
			return nil, fmt.Errorf("watchfolder %d fingerprint %s: %w", params.WatchfolderID, params.Fingerprint, ErrDuplicateJob)
		}
	}

	now := timestamp(time.Now())
	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO jobs (
            watchfolder_id, preset_id, input_filename, input_path, input_size,
            status, progress, fingerprint, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?, ?)`,
		nullableInt64(params.WatchfolderID),
		nullableInt64(params.PresetID),
		params.InputFilename,
		params.InputPath,
		params.InputSize,
		string(JobPending),
		nullableString(params.Fingerprint),
		now,
		now,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, fmt.Errorf("watchfolder %d fingerprint %s: %w", params.WatchfolderID, params.Fingerprint, ErrDuplicateJob)
		}
		return nil, fmt.Errorf("insert job: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.JobByID(ctx, id)
}

// HasFingerprint reports whether a watchfolder ever ingested this fingerprint.
func (s *Store) HasFingerprint(ctx context.Context, watchfolderID int64, fingerprint string) (bool, error) {
	ctx = ensureContext(ctx)
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM jobs WHERE watchfolder_id = ? AND fingerprint = ?",
		watchfolderID, fingerprint,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check fingerprint: %w", err)
	}
	return count > 0, nil
}

// JobByID fetches one job.
func (s *Store) JobByID(ctx context.Context, id int64) (*Job, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, "SELECT "+jobColumns+" FROM jobs WHERE id = ?", id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("job %d: %w", id, services.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query job: %w", err)
	}
	return job, nil
}

// JobFilter narrows ListJobs. Zero values mean no constraint.
type JobFilter struct {
	WatchfolderID int64
	Status        JobStatus
	Limit         int
}

// ListJobs returns jobs newest first, optionally filtered.
func (s *Store) ListJobs(ctx context.Context, filter JobFilter) ([]*Job, error) {
	ctx = ensureContext(ctx)

	query := "SELECT " + jobColumns + " FROM jobs"
	var (
		conds []string
		args  []any
	)
	if filter.WatchfolderID != 0 {
		conds = append(conds, "watchfolder_id = ?")
		args = append(args, filter.WatchfolderID)
	}
	if filter.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, string(filter.Status))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// PendingJobsFIFO returns pending jobs oldest first, the dispatch order.
func (s *Store) PendingJobsFIFO(ctx context.Context, limit int) ([]*Job, error) {
	ctx = ensureContext(ctx)
	query := "SELECT " + jobColumns + " FROM jobs WHERE status = ? ORDER BY created_at ASC, id ASC"
	args := []any{string(JobPending)}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list pending jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// StatsByWatchfolder aggregates job counts per watchfolder for the public
// status view. Jobs whose watchfolder was deleted are grouped under id 0.
func (s *Store) StatsByWatchfolder(ctx context.Context) (map[int64]*WatchfolderStats, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		`SELECT COALESCE(watchfolder_id, 0), status, COUNT(1)
         FROM jobs GROUP BY COALESCE(watchfolder_id, 0), status`)
	if err != nil {
		return nil, fmt.Errorf("job stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[int64]*WatchfolderStats)
	for rows.Next() {
		var (
			folderID int64
			status   string
			count    int
		)
		if err := rows.Scan(&folderID, &status, &count); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		entry := stats[folderID]
		if entry == nil {
			entry = &WatchfolderStats{WatchfolderID: folderID}
			stats[folderID] = entry
		}
		entry.Total += count
		switch JobStatus(status) {
		case JobPending:
			entry.Pending += count
		case JobProcessing:
			entry.Processing += count
		case JobCompleted:
			entry.Completed += count
		case JobFailed:
			entry.Failed += count
		}
	}
	return stats, rows.Err()
}
