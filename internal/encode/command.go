package encode

import (
	"path/filepath"
	"strconv"
	"strings"

	"mediaflow/internal/store"
)

// BuildArgs assembles the ffmpeg argument list for a preset. Optional preset
// fields are omitted rather than passed empty so ffmpeg applies its own
// defaults. The -progress stream goes to stdout as key=value lines; -y
// overwrites a stale output from an earlier failed attempt.
//
// ExtraParams is split on whitespace with no shell quoting; an argument that
// must contain a space cannot be expressed there. See Preset.ExtraParams.
func BuildArgs(preset *store.Preset, inputPath, outputPath string) []string {
	args := []string{
		"-hide_banner",
		"-nostats",
		"-progress", "pipe:1",
		"-i", inputPath,
		"-c:v", preset.VideoCodec,
	}
	if preset.VideoBitrate != "" {
		args = append(args, "-b:v", preset.VideoBitrate)
	}
	args = append(args, "-c:a", preset.AudioCodec)
	if preset.AudioBitrate != "" {
		args = append(args, "-b:a", preset.AudioBitrate)
	}
	if preset.AudioSampleRate > 0 {
		args = append(args, "-ar", strconv.Itoa(preset.AudioSampleRate))
	}
	if preset.AudioChannels > 0 {
		args = append(args, "-ac", strconv.Itoa(preset.AudioChannels))
	}
	if params := strings.Fields(preset.ExtraParams); len(params) > 0 {
		args = append(args, params...)
	}
	return append(args, "-y", outputPath)
}

// OutputName maps an input filename onto the preset's container extension.
func OutputName(inputFilename, container string) string {
	base := strings.TrimSuffix(inputFilename, filepath.Ext(inputFilename))
	return base + "." + strings.TrimPrefix(container, ".")
}
