package api

import (
	"time"

	"mediaflow/internal/store"
)

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}

// FromPreset converts a preset record to its API representation.
func FromPreset(p *store.Preset) Preset {
	if p == nil {
		return Preset{}
	}
	return Preset{
		ID:              p.ID,
		Name:            p.Name,
		Description:     p.Description,
		VideoCodec:      p.VideoCodec,
		VideoBitrate:    p.VideoBitrate,
		AudioCodec:      p.AudioCodec,
		AudioBitrate:    p.AudioBitrate,
		AudioSampleRate: p.AudioSampleRate,
		AudioChannels:   p.AudioChannels,
		Container:       p.Container,
		ExtraParams:     p.ExtraParams,
		CreatedAt:       formatTime(p.CreatedAt),
		UpdatedAt:       formatTime(p.UpdatedAt),
	}
}

// FromPresets converts a slice of preset records into API DTOs.
func FromPresets(presets []*store.Preset) []Preset {
	if len(presets) == 0 {
		return nil
	}
	out := make([]Preset, 0, len(presets))
	for _, p := range presets {
		out = append(out, FromPreset(p))
	}
	return out
}

// ToPreset converts a preset request into a store record.
func (r PresetRequest) ToPreset() *store.Preset {
	return &store.Preset{
		Name:            r.Name,
		Description:     r.Description,
		VideoCodec:      r.VideoCodec,
		VideoBitrate:    r.VideoBitrate,
		AudioCodec:      r.AudioCodec,
		AudioBitrate:    r.AudioBitrate,
		AudioSampleRate: r.AudioSampleRate,
		AudioChannels:   r.AudioChannels,
		Container:       r.Container,
		ExtraParams:     r.ExtraParams,
	}
}

// FromWatchfolder converts a watchfolder record to its API representation.
// The stored FTP password is reported only as a presence flag, never echoed.
func FromWatchfolder(w *store.Watchfolder) Watchfolder {
	if w == nil {
		return Watchfolder{}
	}
	return Watchfolder{
		ID:             w.ID,
		Name:           w.Name,
		WatchType:      string(w.WatchType),
		Active:         w.Active,
		Status:         string(w.SurfaceStatus()),
		LastError:      w.LastError,
		PresetID:       w.PresetID,
		Path:           w.Path,
		OutputPath:     w.OutputPath,
		ArchivePath:    w.ArchivePath,
		FTPHost:        w.FTPHost,
		FTPPort:        w.FTPPort,
		FTPUser:        w.FTPUser,
		FTPRemotePath:  w.FTPRemotePath,
		FTPStagingPath: w.FTPStagingPath,
		HasFTPPassword: w.FTPPassword != "",
		CreatedAt:      formatTime(w.CreatedAt),
		UpdatedAt:      formatTime(w.UpdatedAt),
	}
}

// FromWatchfolders converts a slice of watchfolder records into API DTOs.
func FromWatchfolders(folders []*store.Watchfolder) []Watchfolder {
	if len(folders) == 0 {
		return nil
	}
	out := make([]Watchfolder, 0, len(folders))
	for _, w := range folders {
		out = append(out, FromWatchfolder(w))
	}
	return out
}

// ToWatchfolder converts a watchfolder request into a store record. An unset
// active flag defaults to true on create; update handlers overlay the request
// onto the stored row before saving.
func (r WatchfolderRequest) ToWatchfolder() *store.Watchfolder {
	active := true
	if r.Active != nil {
		active = *r.Active
	}
	return &store.Watchfolder{
		Name:           r.Name,
		WatchType:      store.WatchType(r.WatchType),
		Active:         active,
		PresetID:       r.PresetID,
		Path:           r.Path,
		OutputPath:     r.OutputPath,
		ArchivePath:    r.ArchivePath,
		FTPHost:        r.FTPHost,
		FTPPort:        r.FTPPort,
		FTPUser:        r.FTPUser,
		FTPPassword:    r.FTPPassword,
		FTPRemotePath:  r.FTPRemotePath,
		FTPStagingPath: r.FTPStagingPath,
	}
}

// FromWorkerLoad converts a worker-with-load record to its API representation.
func FromWorkerLoad(w *store.WorkerLoad) Worker {
	if w == nil {
		return Worker{}
	}
	return Worker{
		ID:                w.ID,
		Name:              w.Name,
		Description:       w.Description,
		MaxConcurrentJobs: w.MaxConcurrentJobs,
		Active:            w.Active,
		Status:            string(w.SurfaceStatus()),
		CurrentJobs:       w.CurrentJobs,
		CurrentJobIDs:     w.CurrentJobIDs,
		CreatedAt:         formatTime(w.CreatedAt),
		UpdatedAt:         formatTime(w.UpdatedAt),
	}
}

// FromWorkerLoads converts a slice of worker-with-load records into API DTOs.
func FromWorkerLoads(workers []*store.WorkerLoad) []Worker {
	if len(workers) == 0 {
		return nil
	}
	out := make([]Worker, 0, len(workers))
	for _, w := range workers {
		out = append(out, FromWorkerLoad(w))
	}
	return out
}

// ToWorker converts a worker request into a store record.
func (r WorkerRequest) ToWorker() *store.Worker {
	active := true
	if r.Active != nil {
		active = *r.Active
	}
	return &store.Worker{
		Name:              r.Name,
		Description:       r.Description,
		MaxConcurrentJobs: r.MaxConcurrentJobs,
		Active:            active,
	}
}

// FromJob converts a job record to its API representation.
func FromJob(j *store.Job) Job {
	if j == nil {
		return Job{}
	}
	return Job{
		ID:               j.ID,
		WatchfolderID:    j.WatchfolderID,
		PresetID:         j.PresetID,
		AssignedWorkerID: j.AssignedWorkerID,
		InputFilename:    j.InputFilename,
		InputPath:        j.InputPath,
		InputSize:        j.InputSize,
		InputDuration:    j.InputDuration,
		OutputPath:       j.OutputPath,
		OutputSize:       j.OutputSize,
		OutputDuration:   j.OutputDuration,
		Status:           string(j.Status),
		Progress:         j.Progress,
		ErrorMessage:     j.ErrorMessage,
		CreatedAt:        formatTime(j.CreatedAt),
		StartedAt:        formatTimePtr(j.StartedAt),
		CompletedAt:      formatTimePtr(j.CompletedAt),
		UpdatedAt:        formatTime(j.UpdatedAt),
	}
}

// FromJobs converts a slice of job records into API DTOs.
func FromJobs(jobs []*store.Job) []Job {
	if len(jobs) == 0 {
		return nil
	}
	out := make([]Job, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, FromJob(j))
	}
	return out
}
