package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateIngest(); err != nil {
		return err
	}
	if err := c.validateDispatch(); err != nil {
		return err
	}
	if err := c.validateEncode(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.DataDir == "" {
		return errors.New("paths.data_dir must be set")
	}
	if c.Paths.LogDir == "" {
		return errors.New("paths.log_dir must be set")
	}
	if c.Paths.StagingDir == "" {
		return errors.New("paths.staging_dir must be set")
	}
	return nil
}

func (c *Config) validateIngest() error {
	return ensurePositiveMap(map[string]int{
		"ingest.local_poll_interval":   c.Ingest.LocalPollInterval,
		"ingest.quiet_interval":        c.Ingest.QuietInterval,
		"ingest.ftp_poll_interval":     c.Ingest.FTPPollInterval,
		"ingest.ftp_timeout":           c.Ingest.FTPTimeout,
		"ingest.ftp_failure_threshold": c.Ingest.FTPFailureThreshold,
		"ingest.ftp_max_backoff":       c.Ingest.FTPMaxBackoff,
	})
}

func (c *Config) validateDispatch() error {
	return ensurePositiveMap(map[string]int{
		"dispatch.poll_interval":        c.Dispatch.PollInterval,
		"dispatch.error_retry_interval": c.Dispatch.ErrorRetryInterval,
		"dispatch.heartbeat_interval":   c.Dispatch.HeartbeatInterval,
		"dispatch.heartbeat_timeout":    c.Dispatch.HeartbeatTimeout,
	})
}

func (c *Config) validateEncode() error {
	if c.Encode.FFmpegBinary == "" {
		return errors.New("encode.ffmpeg_binary must be set")
	}
	if c.Encode.FFprobeBinary == "" {
		return errors.New("encode.ffprobe_binary must be set")
	}
	if err := ensurePositiveMap(map[string]int{
		"encode.job_timeout":       c.Encode.JobTimeout,
		"encode.progress_interval": c.Encode.ProgressInterval,
	}); err != nil {
		return err
	}
	if c.Dispatch.HeartbeatTimeout <= c.Dispatch.HeartbeatInterval {
		return errors.New("dispatch.heartbeat_timeout must exceed dispatch.heartbeat_interval")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for name, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive, got %d", name, value)
		}
	}
	return nil
}
