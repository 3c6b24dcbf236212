package store

import (
	"context"
	"fmt"
	"time"
)

// maxStoredErrorLength bounds error_message so a runaway stderr dump never
// bloats the database or the API responses built from it.
const maxStoredErrorLength = 500

// ClaimJob atomically moves a pending job to processing on the given worker.
// The status check and the capacity check happen inside one guarded UPDATE,
// so two dispatch cycles can never claim the same job and a worker can never
// exceed max_concurrent_jobs, no matter how the calls interleave. Returns
// false without error when the job was already claimed, the worker is
// inactive, or the worker is at capacity.
func (s *Store) ClaimJob(ctx context.Context, jobID, workerID int64) (bool, error) {
	now := timestamp(time.Now())
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs SET
            status = ?, assigned_worker_id = ?, started_at = ?, last_heartbeat = ?, updated_at = ?
        WHERE id = ? AND status = ?
            AND (SELECT active FROM workers WHERE id = ?) = 1
            AND (SELECT COUNT(1) FROM jobs j2 WHERE j2.assigned_worker_id = ? AND j2.status = ?)
                < (SELECT max_concurrent_jobs FROM workers WHERE id = ?)`,
		string(JobProcessing),
		workerID,
		now,
		now,
		now,
		jobID,
		string(JobPending),
		workerID,
		workerID,
		string(JobProcessing),
		workerID,
	)
	if err != nil {
		return false, fmt.Errorf("claim job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected == 1, nil
}

// UpdateProgress records executor progress. Writes are guarded so progress
// never decreases and only processing jobs accept updates; a late write from
// a superseded executor is silently dropped. In-flight progress is capped at
// 99; only CompleteJob writes 100.
func (s *Store) UpdateProgress(ctx context.Context, jobID int64, progress float64) error {
	if progress < 0 {
		progress = 0
	}
	if progress > 99 {
		progress = 99
	}
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE jobs SET progress = ?, updated_at = ?
         WHERE id = ? AND status = ? AND progress <= ?`,
		progress,
		timestamp(time.Now()),
		jobID,
		string(JobProcessing),
		progress,
	); err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	return nil
}

// UpdateHeartbeat refreshes the liveness timestamp for an in-flight job.
func (s *Store) UpdateHeartbeat(ctx context.Context, jobID int64) error {
	now := timestamp(time.Now())
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE jobs SET last_heartbeat = ?, updated_at = ? WHERE id = ? AND status = ?`,
		now,
		now,
		jobID,
		string(JobProcessing),
	); err != nil {
		return fmt.Errorf("update heartbeat: %w", err)
	}
	return nil
}

// CompleteJob finalizes a successful transcode. Progress reaches 100 here
// and nowhere else. The guard on processing makes the terminal transition
// exactly-once; a second call reports ErrInvalidTransition.
func (s *Store) CompleteJob(ctx context.Context, jobID int64, outputPath string, outputSize int64, outputDuration float64) error {
	now := timestamp(time.Now())
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs SET
            status = ?, progress = 100, output_path = ?, output_size = ?,
            output_duration = ?, error_message = NULL, completed_at = ?,
            last_heartbeat = NULL, updated_at = ?
        WHERE id = ? AND status = ?`,
		string(JobCompleted),
		nullableString(outputPath),
		outputSize,
		outputDuration,
		now,
		now,
		jobID,
		string(JobProcessing),
	)
	if err != nil {
		return fmt.Errorf("complete job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("job %d is not processing: %w", jobID, ErrInvalidTransition)
	}
	return nil
}

// FailJob finalizes a failed transcode with a bounded error message.
func (s *Store) FailJob(ctx context.Context, jobID int64, message string) error {
	if len(message) > maxStoredErrorLength {
		message = message[:maxStoredErrorLength]
	}
	now := timestamp(time.Now())
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs SET
            status = ?, error_message = ?, completed_at = ?, last_heartbeat = NULL, updated_at = ?
        WHERE id = ? AND status = ?`,
		string(JobFailed),
		nullableString(message),
		now,
		now,
		jobID,
		string(JobProcessing),
	)
	if err != nil {
		return fmt.Errorf("fail job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("job %d is not processing: %w", jobID, ErrInvalidTransition)
	}
	return nil
}

// ReclaimStale fails processing jobs whose executor stopped heartbeating
// before the cutoff. This frees the derived worker capacity in the same
// statement, so a crashed executor can never pin a slot.
func (s *Store) ReclaimStale(ctx context.Context, cutoff time.Time) (int64, error) {
	now := timestamp(time.Now())
	cut := timestamp(cutoff)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs SET
            status = ?, error_message = ?, completed_at = ?, last_heartbeat = NULL, updated_at = ?
        WHERE status = ?
            AND ((last_heartbeat IS NOT NULL AND last_heartbeat < ?)
                OR (last_heartbeat IS NULL AND started_at < ?))`,
		string(JobFailed),
		"executor heartbeat expired; job reclaimed",
		now,
		now,
		string(JobProcessing),
		cut,
		cut,
	)
	if err != nil {
		return 0, fmt.Errorf("reclaim stale jobs: %w", err)
	}
	return res.RowsAffected()
}

// RetryFailed requeues a failed job as pending. There is no automatic retry;
// this is the operator-triggered path only.
func (s *Store) RetryFailed(ctx context.Context, jobID int64) error {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs SET
            status = ?, progress = 0, error_message = NULL, assigned_worker_id = NULL,
            output_path = NULL, output_size = 0, output_duration = 0,
            started_at = NULL, completed_at = NULL, last_heartbeat = NULL, updated_at = ?
        WHERE id = ? AND status = ?`,
		string(JobPending),
		timestamp(time.Now()),
		jobID,
		string(JobFailed),
	)
	if err != nil {
		return fmt.Errorf("retry job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("job %d is not failed: %w", jobID, ErrInvalidTransition)
	}
	return nil
}

// SetInputDuration records the probed input duration once known.
func (s *Store) SetInputDuration(ctx context.Context, jobID int64, seconds float64) error {
	if err := s.execWithoutResultRetry(
		ctx,
		"UPDATE jobs SET input_duration = ?, updated_at = ? WHERE id = ?",
		seconds,
		timestamp(time.Now()),
		jobID,
	); err != nil {
		return fmt.Errorf("set input duration: %w", err)
	}
	return nil
}
