// Package store persists presets, watchfolders, workers, and jobs in SQLite
// and exposes the lifecycle operations the rest of the daemon coordinates
// through.
//
// The Store manages connections, schema initialization, fingerprint dedup,
// heartbeat tracking, stale-job recovery, and the job status transitions.
// Worker capacity is never stored as a counter; it is derived from the count
// of processing jobs assigned to each worker, so the concurrency limit cannot
// drift out of sync with reality. The pending to processing claim is a single
// guarded UPDATE so a job can never be dispatched twice and a worker can
// never exceed its limit.
//
// Treat this package as the single source of truth for job semantics; schema
// changes bump schemaVersion in schema.go.
package store
