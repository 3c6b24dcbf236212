// Package api defines the transport representations exchanged by the daemon's
// HTTP API and the CLI. Store records are converted to and from these DTOs so
// wire compatibility is decoupled from the persistence model.
package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Preset describes an encode preset in a transport-friendly format.
type Preset struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	Description     string `json:"description,omitempty"`
	VideoCodec      string `json:"videoCodec"`
	VideoBitrate    string `json:"videoBitrate,omitempty"`
	AudioCodec      string `json:"audioCodec"`
	AudioBitrate    string `json:"audioBitrate,omitempty"`
	AudioSampleRate int    `json:"audioSampleRate,omitempty"`
	AudioChannels   int    `json:"audioChannels,omitempty"`
	Container       string `json:"container"`
	ExtraParams     string `json:"extraParams,omitempty"`
	CreatedAt       string `json:"createdAt,omitempty"`
	UpdatedAt       string `json:"updatedAt,omitempty"`
}

// Watchfolder describes a watchfolder for API consumers. The FTP password is
// write-only and never appears here; HasFTPPassword reports whether a
// credential is stored.
type Watchfolder struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	WatchType      string `json:"watchType"`
	Active         bool   `json:"active"`
	Status         string `json:"status"`
	LastError      string `json:"lastError,omitempty"`
	PresetID       int64  `json:"presetId,omitempty"`
	Path           string `json:"path,omitempty"`
	OutputPath     string `json:"outputPath"`
	ArchivePath    string `json:"archivePath,omitempty"`
	FTPHost        string `json:"ftpHost,omitempty"`
	FTPPort        int    `json:"ftpPort,omitempty"`
	FTPUser        string `json:"ftpUser,omitempty"`
	FTPRemotePath  string `json:"ftpRemotePath,omitempty"`
	FTPStagingPath string `json:"ftpStagingPath,omitempty"`
	HasFTPPassword bool   `json:"hasFtpPassword"`
	CreatedAt      string `json:"createdAt,omitempty"`
	UpdatedAt      string `json:"updatedAt,omitempty"`
}

// WatchfolderRequest carries watchfolder create/update payloads. FTPPassword
// is accepted here but never echoed back; an empty value on update keeps the
// stored credential.
type WatchfolderRequest struct {
	Name           string `json:"name"`
	WatchType      string `json:"watchType"`
	Active         *bool  `json:"active,omitempty"`
	PresetID       int64  `json:"presetId"`
	Path           string `json:"path"`
	OutputPath     string `json:"outputPath"`
	ArchivePath    string `json:"archivePath"`
	FTPHost        string `json:"ftpHost"`
	FTPPort        int    `json:"ftpPort"`
	FTPUser        string `json:"ftpUser"`
	FTPPassword    string `json:"ftpPassword"`
	FTPRemotePath  string `json:"ftpRemotePath"`
	FTPStagingPath string `json:"ftpStagingPath"`
}

// PresetRequest carries preset create/update payloads.
type PresetRequest struct {
	Name            string `json:"name"`
	Description     string `json:"description"`
	VideoCodec      string `json:"videoCodec"`
	VideoBitrate    string `json:"videoBitrate"`
	AudioCodec      string `json:"audioCodec"`
	AudioBitrate    string `json:"audioBitrate"`
	AudioSampleRate int    `json:"audioSampleRate"`
	AudioChannels   int    `json:"audioChannels"`
	Container       string `json:"container"`
	ExtraParams     string `json:"extraParams"`
}

// Worker describes a worker with its derived load and status.
type Worker struct {
	ID                int64   `json:"id"`
	Name              string  `json:"name"`
	Description       string  `json:"description,omitempty"`
	MaxConcurrentJobs int     `json:"maxConcurrentJobs"`
	Active            bool    `json:"active"`
	Status            string  `json:"status"`
	CurrentJobs       int     `json:"currentJobs"`
	CurrentJobIDs     []int64 `json:"currentJobIds,omitempty"`
	CreatedAt         string  `json:"createdAt,omitempty"`
	UpdatedAt         string  `json:"updatedAt,omitempty"`
}

// WorkerRequest carries worker create/update payloads.
type WorkerRequest struct {
	Name              string `json:"name"`
	Description       string `json:"description"`
	MaxConcurrentJobs int    `json:"maxConcurrentJobs"`
	Active            *bool  `json:"active,omitempty"`
}

// ActiveRequest is the partial-update payload for toggling an active flag.
type ActiveRequest struct {
	Active bool `json:"active"`
}

// Job describes a transcode job for API consumers.
type Job struct {
	ID               int64   `json:"id"`
	WatchfolderID    int64   `json:"watchfolderId,omitempty"`
	PresetID         int64   `json:"presetId,omitempty"`
	AssignedWorkerID int64   `json:"assignedWorkerId,omitempty"`
	InputFilename    string  `json:"inputFilename"`
	InputPath        string  `json:"inputPath"`
	InputSize        int64   `json:"inputSize"`
	InputDuration    float64 `json:"inputDuration,omitempty"`
	OutputPath       string  `json:"outputPath,omitempty"`
	OutputSize       int64   `json:"outputSize,omitempty"`
	OutputDuration   float64 `json:"outputDuration,omitempty"`
	Status           string  `json:"status"`
	Progress         float64 `json:"progress"`
	ErrorMessage     string  `json:"errorMessage,omitempty"`
	CreatedAt        string  `json:"createdAt,omitempty"`
	StartedAt        string  `json:"startedAt,omitempty"`
	CompletedAt      string  `json:"completedAt,omitempty"`
	UpdatedAt        string  `json:"updatedAt,omitempty"`
}

// WatchfolderStatus aggregates job counts and recent jobs for one watchfolder
// in the consolidated status view.
type WatchfolderStatus struct {
	Watchfolder Watchfolder `json:"watchfolder"`
	Total       int         `json:"total"`
	Pending     int         `json:"pending"`
	Processing  int         `json:"processing"`
	Completed   int         `json:"completed"`
	Failed      int         `json:"failed"`
	RecentJobs  []Job       `json:"recentJobs,omitempty"`
}

// StatusResponse is the consolidated daemon status view.
type StatusResponse struct {
	Running      bool                `json:"running"`
	PID          int                 `json:"pid"`
	DatabasePath string              `json:"databasePath"`
	LockFilePath string              `json:"lockFilePath"`
	Watchfolders []WatchfolderStatus `json:"watchfolders"`
	Workers      []Worker            `json:"workers"`
}

// LogTailResponse carries the most recent daemon log lines.
type LogTailResponse struct {
	Lines []string `json:"lines"`
}

// JobListResponse wraps a collection of jobs.
type JobListResponse struct {
	Jobs []Job `json:"jobs"`
}

// JobResponse wraps a single job.
type JobResponse struct {
	Job Job `json:"job"`
}

// WatchfolderListResponse wraps a collection of watchfolders.
type WatchfolderListResponse struct {
	Watchfolders []Watchfolder `json:"watchfolders"`
}

// WatchfolderResponse wraps a single watchfolder.
type WatchfolderResponse struct {
	Watchfolder Watchfolder `json:"watchfolder"`
}

// PresetListResponse wraps a collection of presets.
type PresetListResponse struct {
	Presets []Preset `json:"presets"`
}

// PresetResponse wraps a single preset.
type PresetResponse struct {
	Preset Preset `json:"preset"`
}

// WorkerListResponse wraps a collection of workers.
type WorkerListResponse struct {
	Workers []Worker `json:"workers"`
}

// WorkerResponse wraps a single worker.
type WorkerResponse struct {
	Worker Worker `json:"worker"`
}

// ErrorResponse is the uniform error payload.
type ErrorResponse struct {
	Error string `json:"error"`
}
