// Package sample bounds the failing-row evidence attached to a report.
package sample

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"
)

// Strategy selects which failing rows survive the cut.
type Strategy string

const (
	// FirstN keeps the first n failing rows in row order.
	FirstN Strategy = "first_n"

	// LastN keeps the last n failing rows in row order.
	LastN Strategy = "last_n"

	// Random keeps n failing rows drawn uniformly without replacement.
	Random Strategy = "random"
)

// ParseStrategy resolves a strategy name. The head/tail aliases of earlier
// versions of this tool are accepted; an empty name means FirstN.
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "first_n", "head":
		return FirstN, nil
	case "last_n", "tail":
		return LastN, nil
	case "random":
		return Random, nil
	}
	return "", fmt.Errorf("unknown sample strategy %q (want first_n|last_n|random)", s)
}

// Sample is the bounded subset of failing rows attached to a report.
type Sample struct {
	// RowIDs are the selected failing row indices, ascending.
	RowIDs []int

	// Strategy that produced the selection.
	Strategy Strategy

	// Requested is the configured sample size before clamping.
	Requested int
}

// Sampler reduces a failing-row set to a bounded Sample. Immutable and safe
// for concurrent use.
type Sampler struct {
	size     int
	strategy Strategy
	seed     int64 // negative = nondeterministic
}

// Option adjusts a Sampler at construction.
type Option func(*Sampler)

// WithSeed pins the random source so Random selections reproduce across
// runs. Has no effect on the other strategies.
func WithSeed(seed int64) Option {
	return func(s *Sampler) { s.seed = seed }
}

// New creates a Sampler keeping at most size failing rows per report.
// A size <= 0 disables sampling: Sample then returns nil for every input.
func New(size int, strategy Strategy, opts ...Option) *Sampler {
	s := &Sampler{size: size, strategy: strategy, seed: -1}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Enabled reports whether this sampler produces samples at all.
// A nil Sampler is disabled.
func (s *Sampler) Enabled() bool { return s != nil && s.size > 0 }

// Size returns the configured sample size.
func (s *Sampler) Size() int {
	if s == nil {
		return 0
	}
	return s.size
}

// Sample selects at most the configured number of rows from failing, which
// must be ascending (check results always are). Returns nil when sampling is
// disabled. With nothing failing it returns an empty, non-nil Sample:
// sampling ran, nothing to keep.
func (s *Sampler) Sample(failing []int) *Sample {
	if !s.Enabled() {
		return nil
	}
	out := &Sample{Strategy: s.strategy, Requested: s.size}
	n := len(failing)
	if n == 0 {
		out.RowIDs = []int{}
		return out
	}
	k := s.size
	if k > n {
		k = n
	}
	switch s.strategy {
	case LastN:
		out.RowIDs = append([]int(nil), failing[n-k:]...)
	case Random:
		ids := make([]int, 0, k)
		for _, idx := range s.rng().Perm(n)[:k] {
			ids = append(ids, failing[idx])
		}
		sort.Ints(ids)
		out.RowIDs = ids
	default: // FirstN
		out.RowIDs = append([]int(nil), failing[:k]...)
	}
	return out
}

func (s *Sampler) rng() *rand.Rand {
	if s.seed >= 0 {
		return rand.New(rand.NewSource(s.seed))
	}
	return rand.New(rand.NewSource(rand.Int63()))
}
