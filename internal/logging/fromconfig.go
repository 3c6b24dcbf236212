package logging

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"mediaflow/internal/config"
)

// LogFileName is the daemon log file created under the configured log
// directory. The log API tails and serves this file.
const LogFileName = "mediaflow.log"

// NewFromConfig creates a logger using application config defaults. Output
// goes to stdout/stderr and, when a log directory is configured, to the
// daemon log file as well.
func NewFromConfig(cfg *config.Config) (*slog.Logger, error) {
	if cfg == nil {
		return New(Options{Level: "info", Format: "console"})
	}

	outputPaths := []string{"stdout"}
	errorOutputs := []string{"stderr"}
	if cfg.Paths.LogDir != "" {
		if err := os.MkdirAll(cfg.Paths.LogDir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure log directory: %w", err)
		}
		logPath := filepath.Join(cfg.Paths.LogDir, LogFileName)
		outputPaths = append(outputPaths, logPath)
		errorOutputs = append(errorOutputs, logPath)
	}

	return New(Options{
		Level:            cfg.Logging.Level,
		Format:           cfg.Logging.Format,
		OutputPaths:      outputPaths,
		ErrorOutputPaths: errorOutputs,
	})
}
