// Package stats keeps rolling per-stage latency figures for the pipeline.
package stats

import (
	"slices"
	"sync"
	"time"
)

type sample struct {
	at       time.Time
	duration time.Duration
	ok       bool
}

// Snapshot aggregates the samples of one stage still inside the window.
type Snapshot struct {
	Count    int     `json:"count" yaml:"count"`
	Failures int     `json:"failures" yaml:"failures"`
	MinMs    int64   `json:"min_ms" yaml:"min_ms"`
	MaxMs    int64   `json:"max_ms" yaml:"max_ms"`
	AvgMs    float64 `json:"avg_ms" yaml:"avg_ms"`
	P50Ms    float64 `json:"p50_ms" yaml:"p50_ms"`
	P95Ms    float64 `json:"p95_ms" yaml:"p95_ms"`
}

// StageStats records stage durations within a rolling window.
type StageStats struct {
	mu      sync.Mutex
	window  time.Duration
	samples map[string][]sample
	now     func() time.Time
}

// New returns a recorder that forgets samples older than window
// (one hour when window <= 0).
func New(window time.Duration) *StageStats {
	if window <= 0 {
		window = time.Hour
	}
	return &StageStats{
		window:  window,
		samples: make(map[string][]sample),
		now:     time.Now,
	}
}

// Record adds one run of stage. Negative durations count as zero.
func (s *StageStats) Record(stage string, d time.Duration, ok bool) {
	if d < 0 {
		d = 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.samples[stage] = append(prune(s.samples[stage], now.Add(-s.window)), sample{at: now, duration: d, ok: ok})
}

// Snapshot returns the aggregate for every stage with live samples.
func (s *StageStats) Snapshot() map[string]Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.window)
	out := make(map[string]Snapshot, len(s.samples))
	for stage, samples := range s.samples {
		samples = prune(samples, cutoff)
		if len(samples) == 0 {
			delete(s.samples, stage)
			continue
		}
		s.samples[stage] = samples
		out[stage] = aggregate(samples)
	}
	return out
}

func aggregate(samples []sample) Snapshot {
	values := make([]int64, 0, len(samples))
	var sum int64
	failures := 0
	for _, sm := range samples {
		ms := sm.duration.Milliseconds()
		values = append(values, ms)
		sum += ms
		if !sm.ok {
			failures++
		}
	}
	slices.Sort(values)

	return Snapshot{
		Count:    len(values),
		Failures: failures,
		MinMs:    values[0],
		MaxMs:    values[len(values)-1],
		AvgMs:    float64(sum) / float64(len(values)),
		P50Ms:    percentile(values, 50),
		P95Ms:    percentile(values, 95),
	}
}

// prune drops samples older than cutoff in place.
func prune(samples []sample, cutoff time.Time) []sample {
	keep := samples[:0]
	for _, sm := range samples {
		if !sm.at.Before(cutoff) {
			keep = append(keep, sm)
		}
	}
	return keep
}

// percentile interpolates linearly between the closest ranks.
func percentile(sorted []int64, pct float64) float64 {
	switch {
	case len(sorted) == 0:
		return 0
	case pct <= 0:
		return float64(sorted[0])
	case pct >= 100:
		return float64(sorted[len(sorted)-1])
	}

	idx := float64(len(sorted)-1) * pct / 100
	lower := int(idx)
	if lower+1 >= len(sorted) {
		return float64(sorted[lower])
	}
	lo, hi := float64(sorted[lower]), float64(sorted[lower+1])
	return lo + (hi-lo)*(idx-float64(lower))
}
