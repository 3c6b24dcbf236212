package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Fingerprint identifies a discovered file by name, size, and modification
// time. Hashing file contents would mean reading multi-gigabyte broadcast
// media twice, and the metadata triple already changes whenever the file
// does in practice.
func Fingerprint(name string, size int64, mtime time.Time) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%d|%d", name, size, mtime.UTC().Unix())))
	return hex.EncodeToString(sum[:])
}
