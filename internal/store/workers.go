package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"mediaflow/internal/services"
)

const workerColumns = "id, name, description, max_concurrent_jobs, active, created_at, updated_at"

func scanWorker(scanner rowScanner) (*Worker, error) {
	var (
		id          int64
		name        string
		description sql.NullString
		maxJobs     int
		active      int64
		createdRaw  string
		updatedRaw  string
	)

	if err := scanner.Scan(&id, &name, &description, &maxJobs, &active, &createdRaw, &updatedRaw); err != nil {
		return nil, err
	}

	worker := &Worker{
		ID:                id,
		Name:              name,
		Description:       description.String,
		MaxConcurrentJobs: maxJobs,
		Active:            active != 0,
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		worker.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		worker.UpdatedAt = updated
	}
	return worker, nil
}

// CreateWorker validates and inserts a worker.
func (s *Store) CreateWorker(ctx context.Context, worker *Worker) (*Worker, error) {
	if err := worker.Validate(); err != nil {
		return nil, err
	}
	now := timestamp(time.Now())

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO workers (name, description, max_concurrent_jobs, active, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		worker.Name,
		nullableString(worker.Description),
		worker.MaxConcurrentJobs,
		boolToInt(worker.Active),
		now,
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert worker: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.WorkerByID(ctx, id)
}

// WorkerByID fetches one worker.
func (s *Store) WorkerByID(ctx context.Context, id int64) (*Worker, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, "SELECT "+workerColumns+" FROM workers WHERE id = ?", id)
	worker, err := scanWorker(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("worker %d: %w", id, services.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query worker: %w", err)
	}
	return worker, nil
}

// UpdateWorker validates and stores edits. Lowering max_concurrent_jobs
// below the current load stops new assignment until running jobs drain; it
// never interrupts them.
func (s *Store) UpdateWorker(ctx context.Context, worker *Worker) (*Worker, error) {
	if err := worker.Validate(); err != nil {
		return nil, err
	}

	res, err := s.execWithRetry(
		ctx,
		`UPDATE workers SET name = ?, description = ?, max_concurrent_jobs = ?, active = ?, updated_at = ?
         WHERE id = ?`,
		worker.Name,
		nullableString(worker.Description),
		worker.MaxConcurrentJobs,
		boolToInt(worker.Active),
		timestamp(time.Now()),
		worker.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("update worker: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return nil, fmt.Errorf("worker %d: %w", worker.ID, services.ErrNotFound)
	}
	return s.WorkerByID(ctx, worker.ID)
}

// SetWorkerActive toggles assignment eligibility without touching other fields.
func (s *Store) SetWorkerActive(ctx context.Context, id int64, active bool) error {
	res, err := s.execWithRetry(
		ctx,
		"UPDATE workers SET active = ?, updated_at = ? WHERE id = ?",
		boolToInt(active),
		timestamp(time.Now()),
		id,
	)
	if err != nil {
		return fmt.Errorf("set worker active: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("worker %d: %w", id, services.ErrNotFound)
	}
	return nil
}

// DeleteWorker removes a worker. Historical jobs keep their rows with the
// worker reference cleared; processing jobs assigned to it are reclaimed by
// the heartbeat sweep once the executor stops reporting.
func (s *Store) DeleteWorker(ctx context.Context, id int64) error {
	res, err := s.execWithRetry(ctx, "DELETE FROM workers WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete worker: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("worker %d: %w", id, services.ErrNotFound)
	}
	return nil
}

// ListWorkersWithLoad returns all workers joined with their derived load.
// Load is counted from processing jobs so it cannot drift from reality.
func (s *Store) ListWorkersWithLoad(ctx context.Context) ([]*WorkerLoad, error) {
	return s.queryWorkersWithLoad(ctx, "")
}

// WorkerWithLoad fetches one worker joined with its derived load, for detail
// views that report current assignments.
func (s *Store) WorkerWithLoad(ctx context.Context, id int64) (*WorkerLoad, error) {
	loads, err := s.queryWorkersWithLoad(ctx, "WHERE w.id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(loads) == 0 {
		return nil, fmt.Errorf("worker %d: %w", id, services.ErrNotFound)
	}
	return loads[0], nil
}

// AvailableWorkers returns active workers with spare capacity, least loaded
// first and ties broken by lowest id. This is the dispatcher's candidate
// order; the claim itself re-checks capacity atomically.
func (s *Store) AvailableWorkers(ctx context.Context) ([]*WorkerLoad, error) {
	loads, err := s.queryWorkersWithLoad(ctx, "WHERE w.active = 1")
	if err != nil {
		return nil, err
	}
	available := loads[:0]
	for _, load := range loads {
		if load.Available() {
			available = append(available, load)
		}
	}
	return available, nil
}

func (s *Store) queryWorkersWithLoad(ctx context.Context, where string, args ...any) ([]*WorkerLoad, error) {
	ctx = ensureContext(ctx)
	query := `SELECT w.id, w.name, w.description, w.max_concurrent_jobs, w.active,
            w.created_at, w.updated_at,
            COUNT(j.id) AS current_jobs,
            COALESCE(GROUP_CONCAT(j.id), '') AS current_job_ids
        FROM workers w
        LEFT JOIN jobs j ON j.assigned_worker_id = w.id AND j.status = 'processing'
        ` + where + `
        GROUP BY w.id
        ORDER BY current_jobs ASC, w.id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list workers: %w", err)
	}
	defer rows.Close()

	var loads []*WorkerLoad
	for rows.Next() {
		var (
			load        WorkerLoad
			description sql.NullString
			active      int64
			createdRaw  string
			updatedRaw  string
			jobIDsRaw   string
		)
		if err := rows.Scan(
			&load.ID,
			&load.Name,
			&description,
			&load.MaxConcurrentJobs,
			&active,
			&createdRaw,
			&updatedRaw,
			&load.CurrentJobs,
			&jobIDsRaw,
		); err != nil {
			return nil, fmt.Errorf("scan worker load: %w", err)
		}
		load.Description = description.String
		load.Active = active != 0
		if created, err := parseTimeString(createdRaw); err == nil {
			load.CreatedAt = created
		}
		if updated, err := parseTimeString(updatedRaw); err == nil {
			load.UpdatedAt = updated
		}
		load.CurrentJobIDs = parseJobIDList(jobIDsRaw)
		loads = append(loads, &load)
	}
	return loads, rows.Err()
}

func parseJobIDList(raw string) []int64 {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))
	for _, part := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}
