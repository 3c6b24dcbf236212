package encode

import (
	"bufio"
	"io"
	"strconv"
	"strings"
)

// scanProgress consumes ffmpeg's -progress key=value stream and reports the
// encoded position in seconds after each progress block. The stream repeats
// blocks terminated by a "progress=" line; out_time_us carries the position
// in microseconds, with out_time as an HH:MM:SS.ffffff fallback on builds
// that omit it.
func scanProgress(r io.Reader, report func(seconds float64)) error {
	scanner := bufio.NewScanner(r)
	var (
		seconds float64
		haveAny bool
	)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		switch key {
		case "out_time_us", "out_time_ms":
			us, err := strconv.ParseInt(value, 10, 64)
			if err != nil || us < 0 {
				continue
			}
			seconds = float64(us) / 1e6
			haveAny = true
		case "out_time":
			if parsed, ok := parseClockTime(value); ok {
				seconds = parsed
				haveAny = true
			}
		case "progress":
			if haveAny {
				report(seconds)
			}
		}
	}
	return scanner.Err()
}

func parseClockTime(value string) (float64, bool) {
	parts := strings.Split(value, ":")
	if len(parts) != 3 {
		return 0, false
	}
	hours, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return 0, false
	}
	minutes, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return 0, false
	}
	seconds, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return 0, false
	}
	total := hours*3600 + minutes*60 + seconds
	if total < 0 {
		return 0, false
	}
	return total, true
}
