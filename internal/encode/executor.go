package encode

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"mediaflow/internal/config"
	"mediaflow/internal/logging"
	"mediaflow/internal/services"
	"mediaflow/internal/store"
)

// SuccessFunc is invoked after a job reaches completed, with the finished
// job reloaded from the store. The ingest layer uses it to archive the input.
type SuccessFunc func(ctx context.Context, job *store.Job)

// Executor runs a single claimed job to its terminal state.
type Executor struct {
	cfg       *config.Config
	store     *store.Store
	logger    *slog.Logger
	onSuccess SuccessFunc
}

// NewExecutor builds an executor. onSuccess may be nil.
func NewExecutor(cfg *config.Config, st *store.Store, logger *slog.Logger, onSuccess SuccessFunc) *Executor {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Executor{
		cfg:       cfg,
		store:     st,
		logger:    logging.WithComponent(logger, "executor"),
		onSuccess: onSuccess,
	}
}

// Run transcodes one processing job. Every exit path finalizes the job, so
// the worker slot derived from its status is always released. The context
// governs daemon shutdown; the configured job timeout is layered on top.
func (e *Executor) Run(ctx context.Context, job *store.Job, preset *store.Preset, folder *store.Watchfolder) {
	correlationID := uuid.NewString()
	logger := e.logger.With(
		logging.Int64(logging.FieldJobID, job.ID),
		logging.String(logging.FieldCorrelationID, correlationID),
	)
	ctx = services.WithJobID(ctx, job.ID)
	ctx = services.WithRequestID(ctx, correlationID)
	if job.AssignedWorkerID != 0 {
		ctx = services.WithWorkerID(ctx, job.AssignedWorkerID)
	}

	if preset == nil {
		e.fail(ctx, logger, job.ID, services.Wrap(services.ErrConfiguration, "executor", "prepare", "no preset bound to this job", nil))
		return
	}

	outputPath, err := e.prepareOutput(job, folder, preset)
	if err != nil {
		e.fail(ctx, logger, job.ID, err)
		return
	}

	if _, err := os.Stat(job.InputPath); err != nil {
		e.fail(ctx, logger, job.ID, services.Wrap(services.ErrExecution, "executor", "stat input",
			fmt.Sprintf("input file not found: %s", job.InputPath), nil))
		return
	}

	inputDuration := job.InputDuration
	if inputDuration <= 0 {
		probed, err := ProbeDuration(ctx, e.cfg.Encode.FFprobeBinary, job.InputPath)
		if err != nil {
			logger.Warn("input duration probe failed", logging.Error(err))
		} else if probed > 0 {
			inputDuration = probed
			if err := e.store.SetInputDuration(ctx, job.ID, probed); err != nil {
				logger.Warn("store input duration", logging.Error(err))
			}
		}
	}

	timeout := time.Duration(e.cfg.Encode.JobTimeout) * time.Second
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	logger.Info("starting transcode",
		logging.String("input", job.InputPath),
		logging.String("output", outputPath),
		logging.String("preset", preset.Name))

	runErr := e.runFFmpeg(runCtx, logger, job.ID, preset, job.InputPath, outputPath, inputDuration)

	if runErr != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			runErr = services.Wrap(services.ErrTimeout, "executor", "transcode",
				fmt.Sprintf("timed out after %s", timeout), nil)
		} else if !errors.Is(runErr, services.ErrExternalTool) {
			runErr = services.Wrap(services.ErrExecution, "executor", "transcode", "", runErr)
		}
		_ = os.Remove(outputPath)
		e.fail(ctx, logger, job.ID, runErr)
		return
	}

	info, err := os.Stat(outputPath)
	if err != nil {
		e.fail(ctx, logger, job.ID, services.Wrap(services.ErrExecution, "executor", "verify output",
			"encoder exited cleanly but produced no output file", nil))
		return
	}

	outputDuration, err := ProbeDuration(ctx, e.cfg.Encode.FFprobeBinary, outputPath)
	if err != nil {
		logger.Warn("output duration probe failed", logging.Error(err))
	}

	if err := e.store.CompleteJob(ctx, job.ID, outputPath, info.Size(), outputDuration); err != nil {
		logger.Error("complete job", logging.Error(err))
		return
	}
	logger.Info("transcode completed",
		logging.Int64("output_size", info.Size()),
		logging.Float64("output_duration", outputDuration))

	if e.onSuccess != nil {
		if finished, err := e.store.JobByID(ctx, job.ID); err == nil {
			e.onSuccess(ctx, finished)
		}
	}
}

func (e *Executor) prepareOutput(job *store.Job, folder *store.Watchfolder, preset *store.Preset) (string, error) {
	outputDir := ""
	if folder != nil {
		outputDir = folder.OutputPath
	}
	if outputDir == "" {
		return "", services.Wrap(services.ErrConfiguration, "executor", "prepare", "job has no output path configured", nil)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", services.Wrap(services.ErrExecution, "executor", "create output directory", outputDir, err)
	}
	return filepath.Join(outputDir, OutputName(job.InputFilename, preset.Container)), nil
}

func (e *Executor) runFFmpeg(ctx context.Context, logger *slog.Logger, jobID int64, preset *store.Preset, inputPath, outputPath string, inputDuration float64) error {
	args := BuildArgs(preset, inputPath, outputPath)
	cmd := exec.CommandContext(ctx, e.cfg.Encode.FFmpegBinary, args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("attach stdout: %v", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("attach stderr: %v", err)
	}

	tail := &stderrTail{}
	stderrDone := make(chan struct{})
	go func() {
		defer close(stderrDone)
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			tail.Append(scanner.Text())
		}
	}()

	sampler := logging.NewProgressSampler(1, time.Duration(e.cfg.Encode.ProgressInterval)*time.Second)
	progressDone := make(chan struct{})
	go func() {
		defer close(progressDone)
		_ = scanProgress(stdout, func(seconds float64) {
			if inputDuration <= 0 {
				return
			}
			percent := seconds / inputDuration * 100
			if !sampler.ShouldEmit(percent) {
				return
			}
			if err := e.store.UpdateProgress(ctx, jobID, percent); err != nil {
				logger.Warn("update progress", logging.Error(err))
			}
		})
	}()

	heartbeatDone := make(chan struct{})
	go func() {
		defer close(heartbeatDone)
		interval := time.Duration(e.cfg.Dispatch.HeartbeatInterval) * time.Second
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-progressDone:
				return
			case <-ticker.C:
				if err := e.store.UpdateHeartbeat(ctx, jobID); err != nil {
					logger.Warn("update heartbeat", logging.Error(err))
				}
			}
		}
	}()

	if err := cmd.Start(); err != nil {
		return services.Wrap(services.ErrExternalTool, "ffmpeg", "start", e.cfg.Encode.FFmpegBinary, err)
	}

	<-progressDone
	<-stderrDone
	waitErr := cmd.Wait()
	<-heartbeatDone

	if waitErr != nil {
		return errors.New(extractErrorMessage(tail.String(), waitErr))
	}
	return nil
}

func (e *Executor) fail(ctx context.Context, logger *slog.Logger, jobID int64, failErr error) {
	logger.Error("transcode failed", logging.Error(failErr))
	if err := e.store.FailJob(ctx, jobID, failErr.Error()); err != nil {
		logger.Error("record failure", logging.Error(err))
	}
}
