package store

import (
	"fmt"
	"strings"
	"time"

	"mediaflow/internal/services"
)

// JobStatus represents the lifecycle of a transcode job.
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// Terminal reports whether the status permits no further transitions.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// Valid reports whether the string names a known job status.
func (s JobStatus) Valid() bool {
	switch s {
	case JobPending, JobProcessing, JobCompleted, JobFailed:
		return true
	}
	return false
}

// WatchType distinguishes local directory watchfolders from FTP ones.
type WatchType string

const (
	WatchLocal WatchType = "local"
	WatchFTP   WatchType = "ftp"
)

// WatchfolderStatus is the operator-visible health of a watchfolder.
type WatchfolderStatus string

const (
	WatchfolderIdle     WatchfolderStatus = "idle"
	WatchfolderError    WatchfolderStatus = "error"
	WatchfolderDisabled WatchfolderStatus = "disabled"
)

// WorkerStatus is derived from a worker's active flag and current load.
type WorkerStatus string

const (
	WorkerIdle    WorkerStatus = "idle"
	WorkerRunning WorkerStatus = "running"
	WorkerOffline WorkerStatus = "offline"
)

// Preset is a named encode configuration. Bitrates are ffmpeg-style strings
// ("15M", "192k"); a zero sample rate or channel count leaves the stream
// untouched. Container is the output extension without the dot. ExtraParams
// holds additional ffmpeg arguments separated by whitespace; no quoting is
// honored, so each whitespace-delimited token becomes one argument.
type Preset struct {
	ID              int64
	Name            string
	Description     string
	VideoCodec      string
	VideoBitrate    string
	AudioCodec      string
	AudioBitrate    string
	AudioSampleRate int
	AudioChannels   int
	Container       string
	ExtraParams     string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Validate rejects presets that could not produce a usable ffmpeg invocation.
func (p *Preset) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return services.Wrap(services.ErrConfiguration, "preset", "validate", "name is required", nil)
	}
	if strings.TrimSpace(p.VideoCodec) == "" {
		return services.Wrap(services.ErrConfiguration, "preset", "validate", "video_codec is required", nil)
	}
	if strings.TrimSpace(p.AudioCodec) == "" {
		return services.Wrap(services.ErrConfiguration, "preset", "validate", "audio_codec is required", nil)
	}
	if strings.TrimSpace(p.Container) == "" {
		return services.Wrap(services.ErrConfiguration, "preset", "validate", "container is required", nil)
	}
	if p.AudioSampleRate < 0 || p.AudioChannels < 0 {
		return services.Wrap(services.ErrConfiguration, "preset", "validate", "audio_sample_rate and audio_channels must not be negative", nil)
	}
	return nil
}

// Watchfolder is a monitored ingest location. A zero PresetID means no preset
// is bound and discovered files are ignored until one is assigned. The FTP
// fields are meaningful only when WatchType is ftp; Path only when local.
type Watchfolder struct {
	ID          int64
	Name        string
	WatchType   WatchType
	Active      bool
	Status      WatchfolderStatus
	LastError   string
	PresetID    int64
	Path        string
	OutputPath  string
	ArchivePath string

	FTPHost        string
	FTPPort        int
	FTPUser        string
	FTPPassword    string
	FTPRemotePath  string
	FTPStagingPath string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate enforces the type-specific field requirements at write time.
func (w *Watchfolder) Validate() error {
	if strings.TrimSpace(w.Name) == "" {
		return services.Wrap(services.ErrConfiguration, "watchfolder", "validate", "name is required", nil)
	}
	if strings.TrimSpace(w.OutputPath) == "" {
		return services.Wrap(services.ErrConfiguration, "watchfolder", "validate", "output_path is required", nil)
	}
	switch w.WatchType {
	case WatchLocal:
		if strings.TrimSpace(w.Path) == "" {
			return services.Wrap(services.ErrConfiguration, "watchfolder", "validate", "path is required for local watchfolders", nil)
		}
	case WatchFTP:
		if strings.TrimSpace(w.FTPHost) == "" {
			return services.Wrap(services.ErrConfiguration, "watchfolder", "validate", "ftp_host is required for ftp watchfolders", nil)
		}
		if strings.TrimSpace(w.FTPRemotePath) == "" {
			return services.Wrap(services.ErrConfiguration, "watchfolder", "validate", "ftp_remote_path is required for ftp watchfolders", nil)
		}
		if strings.TrimSpace(w.FTPStagingPath) == "" {
			return services.Wrap(services.ErrConfiguration, "watchfolder", "validate", "ftp_staging_path is required for ftp watchfolders", nil)
		}
		if w.FTPPort < 0 || w.FTPPort > 65535 {
			return services.Wrap(services.ErrConfiguration, "watchfolder", "validate", fmt.Sprintf("ftp_port %d out of range", w.FTPPort), nil)
		}
	default:
		return services.Wrap(services.ErrConfiguration, "watchfolder", "validate", fmt.Sprintf("unknown watch_type %q", w.WatchType), nil)
	}
	return nil
}

// SurfaceStatus reports the operator-visible status, folding the active flag
// into the stored idle/error state.
func (w *Watchfolder) SurfaceStatus() WatchfolderStatus {
	if !w.Active {
		return WatchfolderDisabled
	}
	if w.Status == WatchfolderError {
		return WatchfolderError
	}
	return WatchfolderIdle
}

// Worker is a logical execution slot set with a concurrency limit.
type Worker struct {
	ID                int64
	Name              string
	Description       string
	MaxConcurrentJobs int
	Active            bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Validate rejects worker definitions that could never accept a job.
func (w *Worker) Validate() error {
	if strings.TrimSpace(w.Name) == "" {
		return services.Wrap(services.ErrConfiguration, "worker", "validate", "name is required", nil)
	}
	if w.MaxConcurrentJobs < 1 {
		return services.Wrap(services.ErrConfiguration, "worker", "validate", "max_concurrent_jobs must be at least 1", nil)
	}
	return nil
}

// WorkerLoad is a worker together with its derived load and status. The
// current job set is computed from processing jobs, never stored.
type WorkerLoad struct {
	Worker
	CurrentJobs   int
	CurrentJobIDs []int64
}

// SurfaceStatus derives the operator-visible worker status.
func (w *WorkerLoad) SurfaceStatus() WorkerStatus {
	if !w.Active {
		return WorkerOffline
	}
	if w.CurrentJobs > 0 {
		return WorkerRunning
	}
	return WorkerIdle
}

// Available reports whether the worker can accept another job right now.
func (w *WorkerLoad) Available() bool {
	return w.Active && w.CurrentJobs < w.MaxConcurrentJobs
}

// Job is one unit of transcode work. WatchfolderID, PresetID, and
// AssignedWorkerID are zero when the reference is absent or was cleared by a
// registry deletion.
type Job struct {
	ID               int64
	WatchfolderID    int64
	PresetID         int64
	AssignedWorkerID int64
	InputFilename    string
	InputPath        string
	InputSize        int64
	InputDuration    float64
	OutputPath       string
	OutputSize       int64
	OutputDuration   float64
	Status           JobStatus
	Progress         float64
	ErrorMessage     string
	Fingerprint      string
	CreatedAt        time.Time
	StartedAt        *time.Time
	CompletedAt      *time.Time
	UpdatedAt        time.Time
	LastHeartbeat    *time.Time
}

// WatchfolderStats aggregates job counts for the public status view.
type WatchfolderStats struct {
	WatchfolderID int64
	Total         int
	Pending       int
	Processing    int
	Completed     int
	Failed        int
}
