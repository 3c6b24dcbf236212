// Package ingest discovers media files and turns them into pending jobs.
// The manager runs one poller goroutine per active watchfolder: local
// pollers combine fsnotify wake-ups with a periodic scan and admit a file
// only after its size holds steady across observations, FTP pollers list the
// remote directory and download into staging with size verification and
// exponential backoff. Discovered files are deduplicated by a metadata
// fingerprint so a re-scan never creates a second job. The package also owns
// archiving inputs after a job completes.
package ingest
