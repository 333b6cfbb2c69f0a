package progress

import (
	"fmt"
	"time"
)

// RateSampler computes a transfer rate over a fixed trailing window.
// The rate only changes when a full window has elapsed since the last sample.
type RateSampler struct {
	window  time.Duration
	now     func() time.Time
	last    time.Time
	pending int64
	rate    float64
}

// NewRateSampler creates a sampler starting now.
func NewRateSampler(window time.Duration) *RateSampler {
	return newRateSamplerWithClock(window, time.Now)
}

func newRateSamplerWithClock(window time.Duration, now func() time.Time) *RateSampler {
	return &RateSampler{window: window, now: now, last: now()}
}

// Add records n transferred bytes. It returns the current rate in bytes per
// second and whether the rate was recomputed by this call.
func (s *RateSampler) Add(n int64) (float64, bool) {
	s.pending += n
	now := s.now()
	elapsed := now.Sub(s.last)
	if elapsed < s.window {
		return s.rate, false
	}
	s.rate = float64(s.pending) / elapsed.Seconds()
	s.pending = 0
	s.last = now
	return s.rate, true
}

// Rate returns the last computed rate.
func (s *RateSampler) Rate() float64 {
	return s.rate
}

// FormatBytes returns a human-readable byte count.
func FormatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// FormatSpeed returns a human-readable rate.
func FormatSpeed(bytesPerSec float64) string {
	return FormatBytes(int64(bytesPerSec)) + "/s"
}
