// Package encode runs ffmpeg transcodes for claimed jobs. It builds the
// command line from the job's preset, tracks encoder progress at a bounded
// write rate, heartbeats while the process runs, and finalizes the job with
// probed output metadata or a sanitized error message.
package encode
