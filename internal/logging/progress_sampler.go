package logging

import "time"

// ProgressSampler bounds the rate of progress writes and logs. It emits when
// enough wall time has passed since the last emission and the percent has
// crossed a bucket boundary, so a fast encode cannot amplify store writes.
type ProgressSampler struct {
	bucketSize  float64
	minInterval time.Duration
	lastBucket  int
	lastEmit    time.Time
	now         func() time.Time
}

// NewProgressSampler constructs a sampler emitting at most once per
// minInterval and only when percent crosses bucketSize boundaries (default 1%).
func NewProgressSampler(bucketSize float64, minInterval time.Duration) *ProgressSampler {
	if bucketSize <= 0 {
		bucketSize = 1
	}
	return &ProgressSampler{
		bucketSize:  bucketSize,
		minInterval: minInterval,
		lastBucket:  -1,
		now:         time.Now,
	}
}

// ShouldEmit reports whether a progress observation should be persisted.
// Percent can be negative to indicate "unknown", which never emits.
func (s *ProgressSampler) ShouldEmit(percent float64) bool {
	if s == nil {
		return true
	}
	if percent < 0 {
		return false
	}
	bucket := int(percent / s.bucketSize)
	if percent >= 100 {
		bucket = int(100 / s.bucketSize)
	}
	if bucket <= s.lastBucket {
		return false
	}
	if s.minInterval > 0 && !s.lastEmit.IsZero() && s.now().Sub(s.lastEmit) < s.minInterval {
		return false
	}
	s.lastBucket = bucket
	s.lastEmit = s.now()
	return true
}

// Reset clears the sampler state for a new job.
func (s *ProgressSampler) Reset() {
	if s == nil {
		return
	}
	s.lastBucket = -1
	s.lastEmit = time.Time{}
}
