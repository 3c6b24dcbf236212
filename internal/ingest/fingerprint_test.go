package ingest

import (
	"testing"
	"time"
)

func TestFingerprintDeterministic(t *testing.T) {
	mtime := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	a := Fingerprint("clip.mov", 1024, mtime)
	b := Fingerprint("clip.mov", 1024, mtime)
	if a != b {
		t.Fatalf("fingerprint not deterministic: %q vs %q", a, b)
	}
	if len(a) != 64 {
		t.Fatalf("fingerprint length = %d", len(a))
	}
}

func TestFingerprintVariesByMetadata(t *testing.T) {
	mtime := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	base := Fingerprint("clip.mov", 1024, mtime)

	if Fingerprint("other.mov", 1024, mtime) == base {
		t.Fatal("fingerprint ignores name")
	}
	if Fingerprint("clip.mov", 2048, mtime) == base {
		t.Fatal("fingerprint ignores size")
	}
	if Fingerprint("clip.mov", 1024, mtime.Add(time.Second)) == base {
		t.Fatal("fingerprint ignores mtime")
	}
}

func TestFingerprintTimezoneInsensitive(t *testing.T) {
	utc := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	offset := utc.In(time.FixedZone("CET", 3600))
	if Fingerprint("clip.mov", 1024, utc) != Fingerprint("clip.mov", 1024, offset) {
		t.Fatal("fingerprint depends on timezone representation")
	}
}
