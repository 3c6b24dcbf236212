package logging

import (
	"testing"
	"time"
)

func TestProgressSamplerBuckets(t *testing.T) {
	s := NewProgressSampler(5, 0)

	if !s.ShouldEmit(0) {
		t.Fatal("first observation should emit")
	}
	if s.ShouldEmit(3) {
		t.Fatal("same bucket should not emit")
	}
	if !s.ShouldEmit(5) {
		t.Fatal("bucket boundary should emit")
	}
	if !s.ShouldEmit(100) {
		t.Fatal("completion should emit")
	}
	if s.ShouldEmit(100) {
		t.Fatal("repeated completion should not emit")
	}
}

func TestProgressSamplerNeverRegresses(t *testing.T) {
	s := NewProgressSampler(1, 0)
	if !s.ShouldEmit(50) {
		t.Fatal("expected emit at 50")
	}
	if s.ShouldEmit(40) {
		t.Fatal("lower percent must not emit")
	}
}

func TestProgressSamplerMinInterval(t *testing.T) {
	current := time.Unix(0, 0)
	s := NewProgressSampler(1, time.Second)
	s.now = func() time.Time { return current }

	if !s.ShouldEmit(1) {
		t.Fatal("expected first emit")
	}
	current = current.Add(200 * time.Millisecond)
	if s.ShouldEmit(2) {
		t.Fatal("emit inside min interval")
	}
	current = current.Add(time.Second)
	if !s.ShouldEmit(2) {
		t.Fatal("expected emit after interval")
	}
}

func TestProgressSamplerUnknownPercent(t *testing.T) {
	s := NewProgressSampler(1, 0)
	if s.ShouldEmit(-1) {
		t.Fatal("unknown percent should not emit")
	}
}

func TestProgressSamplerReset(t *testing.T) {
	s := NewProgressSampler(1, 0)
	if !s.ShouldEmit(99) {
		t.Fatal("expected emit")
	}
	s.Reset()
	if !s.ShouldEmit(1) {
		t.Fatal("expected emit after reset")
	}
}
