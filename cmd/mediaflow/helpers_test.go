package main

import (
	"strings"
	"testing"
)

func TestParseID(t *testing.T) {
	if _, err := parseID("abc"); err == nil {
		t.Fatal("expected error for non-numeric id")
	}
	if _, err := parseID("0"); err == nil {
		t.Fatal("expected error for zero id")
	}
	id, err := parseID("42")
	if err != nil || id != 42 {
		t.Fatalf("parseID(42) = %d, %v", id, err)
	}
}

func TestFormatSize(t *testing.T) {
	cases := []struct {
		size int64
		want string
	}{
		{512, "512 B"},
		{2048, "2.0 KiB"},
		{5 << 20, "5.0 MiB"},
		{3 << 30, "3.0 GiB"},
	}
	for _, tc := range cases {
		if got := formatSize(tc.size); got != tc.want {
			t.Errorf("formatSize(%d) = %q, want %q", tc.size, got, tc.want)
		}
	}
}

func TestFormatJobIDs(t *testing.T) {
	if got := formatJobIDs(nil); got != "-" {
		t.Fatalf("formatJobIDs(nil) = %q", got)
	}
	if got := formatJobIDs([]int64{3, 7}); got != "3, 7" {
		t.Fatalf("formatJobIDs = %q", got)
	}
}

func TestRenderTableIncludesHeadersAndRows(t *testing.T) {
	out := renderTable(
		[]string{"ID", "Name"},
		[][]string{{"1", "ingest"}},
		[]columnAlignment{alignRight, alignLeft},
	)
	if !strings.Contains(out, "ID") || !strings.Contains(out, "ingest") {
		t.Fatalf("table missing content:\n%s", out)
	}
}
