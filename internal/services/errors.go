package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConfiguration marks invalid preset/watchfolder/worker input. These are
	// rejected at write time and never stored.
	ErrConfiguration = errors.New("configuration error")
	// ErrIngestion marks transient source failures (unreachable FTP host,
	// permission denied, partial transfer). Pollers retry these with backoff.
	ErrIngestion = errors.New("ingestion error")
	// ErrExecution marks terminal encode failures recorded on the job.
	ErrExecution = errors.New("execution error")
	// ErrExternalTool marks failures launching or talking to ffmpeg/ffprobe.
	ErrExternalTool = errors.New("external tool error")
	// ErrTimeout marks executions that exceeded the configured maximum runtime.
	ErrTimeout = errors.New("timeout")
	// ErrNotFound marks lookups of entities that do not exist.
	ErrNotFound = errors.New("not found")
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrExecution
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
