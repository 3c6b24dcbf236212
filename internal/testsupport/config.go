// Package testsupport provides shared constructors for tests: temp-dir
// configs, throwaway SQLite stores, and fixture registry rows.
package testsupport

import (
	"path/filepath"
	"testing"

	"mediaflow/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.StagingDir = filepath.Join(base, "staging")
	cfg.Paths.APIBind = "127.0.0.1:0"

	for _, opt := range opts {
		opt(&cfg)
	}

	return &cfg
}

// WithQuietInterval overrides the local stability gate interval in seconds.
func WithQuietInterval(seconds int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Ingest.QuietInterval = seconds
	}
}

// WithEncodeBinaries points the executor at stub ffmpeg/ffprobe scripts.
func WithEncodeBinaries(ffmpeg, ffprobe string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Encode.FFmpegBinary = ffmpeg
		cfg.Encode.FFprobeBinary = ffprobe
	}
}
