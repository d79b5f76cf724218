package watch

import "sync/atomic"

// Stats tracks suite-run counters for the lifetime of a watcher.
type Stats struct {
	runs   atomic.Int64
	failed atomic.Int64
}

// NewStats allocates fresh counters.
func NewStats() *Stats {
	return &Stats{}
}

// IncRuns increments the completed-run counter by one.
func (s *Stats) IncRuns() {
	s.runs.Add(1)
}

// IncFailed increments the failed-run counter by one. Load errors and runs
// with failing or erroring checks both count.
func (s *Stats) IncFailed() {
	s.failed.Add(1)
}

// Runs returns the completed-run count.
func (s *Stats) Runs() int64 {
	return s.runs.Load()
}

// Failed returns the failed-run count.
func (s *Stats) Failed() int64 {
	return s.failed.Load()
}
