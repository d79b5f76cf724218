package inspect

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/datasmiths/tabinspect/pkg/dataset"
	"github.com/datasmiths/tabinspect/pkg/sink"
)

// Target pairs a dataset with its display label for a suite run.
type Target struct {
	Label   string
	Dataset dataset.Dataset
}

// Runner applies a fixed set of inspectors to each supplied dataset and
// aggregates what happened. It owns no construction and no delivery policy;
// both live with the inspectors.
type Runner struct {
	inspectors []*Inspector
	parallel   int
}

// RunnerOption adjusts a Runner at construction.
type RunnerOption func(*Runner)

// WithParallel evaluates up to n inspector × dataset pairs concurrently.
// Values below 2 keep the sequential baseline. Parallel runs are safe
// because checks are pure and datasets read-only; sinks serialise their own
// access.
func WithParallel(n int) RunnerOption {
	return func(r *Runner) { r.parallel = n }
}

// NewRunner creates a Runner over a fixed inspector set.
func NewRunner(inspectors []*Inspector, opts ...RunnerOption) *Runner {
	r := &Runner{inspectors: inspectors}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Entry records one inspector × dataset evaluation.
type Entry struct {
	Inspector string
	Dataset   string
	Report    *sink.Report
	Outcomes  []sink.Outcome

	// Err holds the evaluation error (invalid parameters). An entry error
	// never stops the rest of the run; it surfaces here and in the summary
	// counts instead.
	Err error
}

// Summary aggregates a whole suite run.
type Summary struct {
	RunID    string
	Started  time.Time
	Duration time.Duration

	// Entries in inspector-major, dataset-minor order, regardless of
	// parallelism.
	Entries []Entry
}

// Passed counts entries whose check passed.
func (s *Summary) Passed() int {
	n := 0
	for _, e := range s.Entries {
		if e.Report != nil && e.Report.Result.Passed {
			n++
		}
	}
	return n
}

// Failed counts entries whose check found violations.
func (s *Summary) Failed() int {
	n := 0
	for _, e := range s.Entries {
		if e.Report != nil && !e.Report.Result.Passed {
			n++
		}
	}
	return n
}

// Errs counts entries that could not be evaluated.
func (s *Summary) Errs() int {
	n := 0
	for _, e := range s.Entries {
		if e.Err != nil {
			n++
		}
	}
	return n
}

// SinkFailures counts failed delivery outcomes across all entries.
// Suppressed outcomes don't count.
func (s *Summary) SinkFailures() int {
	n := 0
	for _, e := range s.Entries {
		for _, o := range e.Outcomes {
			if o.Err != nil {
				n++
			}
		}
	}
	return n
}

// Ok reports whether every check was evaluated and passed. Sink failures do
// not affect Ok; delivery trouble is operational, not a data-quality fact.
func (s *Summary) Ok() bool {
	return s.Errs() == 0 && s.Failed() == 0
}

// Run evaluates every inspector against every target and returns the
// aggregated summary. It never returns an error: per-pair failures are
// recorded in their entries.
func (r *Runner) Run(ctx context.Context, targets []Target) *Summary {
	started := time.Now()
	entries := make([]Entry, len(r.inspectors)*len(targets))

	if r.parallel > 1 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(r.parallel)
		idx := 0
		for _, in := range r.inspectors {
			in := in
			for _, t := range targets {
				t := t
				i := idx
				idx++
				g.Go(func() error {
					entries[i] = evaluate(gctx, in, t)
					return nil
				})
			}
		}
		_ = g.Wait() // workers never error; failures live in the entries
	} else {
		idx := 0
		for _, in := range r.inspectors {
			for _, t := range targets {
				entries[idx] = evaluate(ctx, in, t)
				idx++
			}
		}
	}

	return &Summary{
		RunID:    uuid.NewString(),
		Started:  started,
		Duration: time.Since(started),
		Entries:  entries,
	}
}

func evaluate(ctx context.Context, in *Inspector, t Target) Entry {
	rep, outs, err := in.Inspect(ctx, t.Dataset, t.Label)
	return Entry{
		Inspector: in.Name(),
		Dataset:   t.Label,
		Report:    rep,
		Outcomes:  outs,
		Err:       err,
	}
}
