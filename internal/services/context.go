package services

import "context"

type contextKey string

const (
	jobIDKey         contextKey = "job_id"
	watchfolderIDKey contextKey = "watchfolder_id"
	workerIDKey      contextKey = "worker_id"
	requestIDKey     contextKey = "request_id"
)

// WithJobID annotates context with the job identifier.
func WithJobID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, jobIDKey, id)
}

// JobIDFromContext extracts the job identifier if present.
func JobIDFromContext(ctx context.Context) (int64, bool) {
	v := ctx.Value(jobIDKey)
	if v == nil {
		return 0, false
	}
	switch val := v.(type) {
	case int64:
		return val, true
	case int:
		return int64(val), true
	default:
		return 0, false
	}
}

// WithWatchfolderID annotates context with the owning watchfolder identifier.
func WithWatchfolderID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, watchfolderIDKey, id)
}

// WatchfolderIDFromContext extracts the watchfolder identifier if present.
func WatchfolderIDFromContext(ctx context.Context) (int64, bool) {
	if v, ok := ctx.Value(watchfolderIDKey).(int64); ok {
		return v, true
	}
	return 0, false
}

// WithWorkerID annotates context with the claimed worker identifier.
func WithWorkerID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, workerIDKey, id)
}

// WorkerIDFromContext extracts the worker identifier if present.
func WorkerIDFromContext(ctx context.Context) (int64, bool) {
	if v, ok := ctx.Value(workerIDKey).(int64); ok {
		return v, true
	}
	return 0, false
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
