package encode

import (
	"strings"
	"testing"
)

func TestScanProgress(t *testing.T) {
	stream := strings.Join([]string{
		"frame=100",
		"out_time_us=1500000",
		"progress=continue",
		"out_time_us=3000000",
		"progress=continue",
		"out_time_us=4500000",
		"progress=end",
	}, "\n")

	var samples []float64
	if err := scanProgress(strings.NewReader(stream), func(seconds float64) {
		samples = append(samples, seconds)
	}); err != nil {
		t.Fatalf("scanProgress: %v", err)
	}

	want := []float64{1.5, 3.0, 4.5}
	if len(samples) != len(want) {
		t.Fatalf("samples = %v", samples)
	}
	for i := range want {
		if samples[i] != want[i] {
			t.Fatalf("samples[%d] = %v, want %v", i, samples[i], want[i])
		}
	}
}

func TestScanProgressOutTimeFallback(t *testing.T) {
	stream := "out_time=00:01:30.500000\nprogress=end\n"

	var samples []float64
	if err := scanProgress(strings.NewReader(stream), func(seconds float64) {
		samples = append(samples, seconds)
	}); err != nil {
		t.Fatalf("scanProgress: %v", err)
	}
	if len(samples) != 1 || samples[0] != 90.5 {
		t.Fatalf("samples = %v", samples)
	}
}

func TestScanProgressIgnoresGarbage(t *testing.T) {
	stream := "not progress at all\nout_time_us=banana\nprogress=end\n"

	called := false
	if err := scanProgress(strings.NewReader(stream), func(float64) {
		called = true
	}); err != nil {
		t.Fatalf("scanProgress: %v", err)
	}
	if called {
		t.Fatal("reported progress without a valid position")
	}
}

func TestExtractErrorMessage(t *testing.T) {
	cases := []struct {
		name   string
		stderr string
		want   string
	}{
		{"permission", "ffmpeg banner\n/in/clip.mov: Permission denied", "permission denied accessing the input or output file"},
		{"missing", "/in/clip.mov: No such file or directory", "input file or output directory not found"},
		{"corrupt", "clip.mov: Invalid data found when processing input", "input file is corrupt or its format is unsupported"},
		{"last error line", "banner\nsome noise\nError while decoding stream #0:0\ntrailer", "Error while decoding stream #0:0"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := extractErrorMessage(tc.stderr, nil); got != tc.want {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestExtractErrorMessageBounded(t *testing.T) {
	long := strings.Repeat("x", 5000)
	got := extractErrorMessage(long, nil)
	if len(got) > maxErrorLength {
		t.Fatalf("message length = %d", len(got))
	}
}
