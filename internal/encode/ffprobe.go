package encode

import (
	"context"
	"encoding/json"
	"os/exec"
	"strconv"
	"time"

	"mediaflow/internal/services"
)

const probeTimeout = 10 * time.Second

type probeFormat struct {
	Format struct {
		Duration string `json:"duration"`
		Size     string `json:"size"`
	} `json:"format"`
}

// ProbeDuration reads a media file's duration in seconds via ffprobe.
func ProbeDuration(ctx context.Context, ffprobeBinary, path string) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, ffprobeBinary,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		return 0, services.Wrap(services.ErrExternalTool, "ffprobe", "probe", path, err)
	}

	var parsed probeFormat
	if err := json.Unmarshal(out, &parsed); err != nil {
		return 0, services.Wrap(services.ErrExternalTool, "ffprobe", "parse", path, err)
	}
	if parsed.Format.Duration == "" {
		return 0, nil
	}
	duration, err := strconv.ParseFloat(parsed.Format.Duration, 64)
	if err != nil {
		return 0, services.Wrap(services.ErrExternalTool, "ffprobe", "parse duration", parsed.Format.Duration, err)
	}
	return duration, nil
}
