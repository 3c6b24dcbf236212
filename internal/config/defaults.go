package config

const (
	defaultDataDir             = "~/.local/share/mediaflow"
	defaultLogDir              = "~/.local/share/mediaflow/logs"
	defaultStagingDir          = "~/.local/share/mediaflow/staging"
	defaultAPIBind             = "127.0.0.1:8670"
	defaultLocalPollInterval   = 5
	defaultQuietInterval       = 3
	defaultFTPPollInterval     = 10
	defaultFTPTimeout          = 60
	defaultFTPFailureThreshold = 5
	defaultFTPMaxBackoff       = 300
	defaultDispatchInterval    = 2
	defaultErrorRetryInterval  = 10
	defaultHeartbeatInterval   = 15
	defaultHeartbeatTimeout    = 120
	defaultFFmpegBinary        = "ffmpeg"
	defaultFFprobeBinary       = "ffprobe"
	defaultJobTimeout          = 14400
	defaultProgressInterval    = 2
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
)

func defaultExtensions() []string {
	return []string{".mp4", ".mov", ".avi", ".mxf", ".mkv", ".mts", ".m2ts"}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:    defaultDataDir,
			LogDir:     defaultLogDir,
			StagingDir: defaultStagingDir,
			APIBind:    defaultAPIBind,
		},
		Ingest: Ingest{
			LocalPollInterval:   defaultLocalPollInterval,
			QuietInterval:       defaultQuietInterval,
			FTPPollInterval:     defaultFTPPollInterval,
			FTPTimeout:          defaultFTPTimeout,
			FTPFailureThreshold: defaultFTPFailureThreshold,
			FTPMaxBackoff:       defaultFTPMaxBackoff,
			Extensions:          defaultExtensions(),
		},
		Dispatch: Dispatch{
			PollInterval:       defaultDispatchInterval,
			ErrorRetryInterval: defaultErrorRetryInterval,
			HeartbeatInterval:  defaultHeartbeatInterval,
			HeartbeatTimeout:   defaultHeartbeatTimeout,
		},
		Encode: Encode{
			FFmpegBinary:     defaultFFmpegBinary,
			FFprobeBinary:    defaultFFprobeBinary,
			JobTimeout:       defaultJobTimeout,
			ProgressInterval: defaultProgressInterval,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
