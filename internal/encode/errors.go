package encode

import (
	"fmt"
	"strings"
	"sync"
)

const (
	maxErrorLength  = 500
	stderrTailLines = 50
)

// stderrTail keeps only the last lines of encoder stderr. ffmpeg writes its
// banner and stream maps there too, so an unbounded capture would grow with
// the input.
type stderrTail struct {
	mu    sync.Mutex
	lines []string
}

func (t *stderrTail) Append(line string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lines = append(t.lines, line)
	if len(t.lines) > stderrTailLines {
		t.lines = t.lines[len(t.lines)-stderrTailLines:]
	}
}

func (t *stderrTail) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return strings.Join(t.lines, "\n")
}

// extractErrorMessage distills encoder stderr into an operator-readable
// failure reason. Common ffmpeg failure signatures map to fixed messages;
// otherwise the last line mentioning an error wins, then the raw tail. The
// result is bounded and contains only what ffmpeg itself printed, so no
// credentials can leak through it.
func extractErrorMessage(stderr string, exitErr error) string {
	if strings.TrimSpace(stderr) == "" {
		if exitErr != nil {
			return truncateError(fmt.Sprintf("encoder failed: %v", exitErr))
		}
		return "encoder failed with no output"
	}

	lower := strings.ToLower(stderr)
	switch {
	case strings.Contains(lower, "permission denied"):
		return "permission denied accessing the input or output file"
	case strings.Contains(lower, "no such file or directory"):
		return "input file or output directory not found"
	case strings.Contains(lower, "invalid data found"):
		return "input file is corrupt or its format is unsupported"
	case strings.Contains(lower, "cannot open"):
		return "cannot open the file; check permissions and that it is not in use"
	}

	lines := strings.Split(strings.TrimSpace(stderr), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		lowered := strings.ToLower(lines[i])
		if strings.Contains(lowered, "error") || strings.Contains(lowered, "failed") {
			return truncateError(strings.TrimSpace(lines[i]))
		}
	}
	return truncateError(strings.TrimSpace(stderr))
}

func truncateError(message string) string {
	if len(message) > maxErrorLength {
		return message[len(message)-maxErrorLength:]
	}
	return message
}
