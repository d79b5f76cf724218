// Package inspect binds a configured check to a sampler and a set of sinks,
// and applies the binding to datasets. The Inspector is the unit of reuse:
// construct once, run against any number of datasets.
package inspect

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/datasmiths/tabinspect/internal/metrics"
	"github.com/datasmiths/tabinspect/pkg/check"
	"github.com/datasmiths/tabinspect/pkg/dataset"
	"github.com/datasmiths/tabinspect/pkg/sample"
	"github.com/datasmiths/tabinspect/pkg/sink"
)

// Inspector binds one check to a sampler and an ordered list of sinks.
// Immutable after New; safe for concurrent use when its sinks are.
type Inspector struct {
	name    string
	fn      check.Func
	sampler *sample.Sampler
	sinks   []sink.Sink
	now     func() time.Time
}

// Option adjusts an Inspector at construction.
type Option func(*Inspector)

// WithSampler bounds the failing-row evidence attached to reports.
// A nil or disabled sampler leaves Report.Sample nil.
func WithSampler(s *sample.Sampler) Option {
	return func(in *Inspector) { in.sampler = s }
}

// WithSinks sets the delivery targets, in emit order.
func WithSinks(sinks ...sink.Sink) Option {
	return func(in *Inspector) { in.sinks = sinks }
}

// WithNow overrides the report clock. Tests only.
func WithNow(now func() time.Time) Option {
	return func(in *Inspector) { in.now = now }
}

// New builds an Inspector. name identifies it in reports, outcomes and logs.
func New(name string, fn check.Func, opts ...Option) (*Inspector, error) {
	if name == "" {
		return nil, fmt.Errorf("inspect: name is required")
	}
	if fn == nil {
		return nil, fmt.Errorf("inspect: check func is required")
	}
	in := &Inspector{name: name, fn: fn, now: time.Now}
	for _, o := range opts {
		o(in)
	}
	return in, nil
}

// Name returns the inspector identifier.
func (in *Inspector) Name() string { return in.name }

// Inspect runs the check against ds and fans the report out to every sink.
// label names the dataset in the report and the logs.
//
// The error return carries only check-evaluation failures (invalid
// parameters); sink trouble is recorded per sink in the outcomes and never
// fails the inspection.
func (in *Inspector) Inspect(ctx context.Context, ds dataset.Dataset, label string) (*sink.Report, []sink.Outcome, error) {
	res, err := in.fn(ds)
	if err != nil {
		metrics.CheckErrors.Inc()
		return nil, nil, fmt.Errorf("inspector %q on %q: %w", in.name, label, err)
	}

	r := &sink.Report{
		ID:        uuid.NewString(),
		Inspector: in.name,
		Dataset:   label,
		Timestamp: in.now(),
		Result:    res,
	}
	if s := in.sampler.Sample(res.FailingRows); s != nil {
		r.Sample = s
		if len(s.RowIDs) > 0 {
			r.Columns = ds.Columns()
			r.SampleRows = dataset.Rows(ds, s.RowIDs)
		}
	}

	result := "pass"
	if !res.Passed {
		result = "fail"
	}
	metrics.ChecksRun.WithLabelValues(result).Inc()
	metrics.RowsInspected.Add(float64(res.TotalRows))

	outcomes := make([]sink.Outcome, 0, len(in.sinks))
	for _, s := range in.sinks {
		outcomes = append(outcomes, deliver(ctx, s, r))
	}

	ev := log.Info()
	if !res.Passed {
		ev = log.Warn()
	}
	ev.
		Str("report", r.ID).
		Str("inspector", in.name).
		Str("dataset", label).
		Bool("passed", res.Passed).
		Int("total_rows", res.TotalRows).
		Int("failing", len(res.FailingRows)).
		Msg("inspection complete")

	return r, outcomes, nil
}

// deliver emits to a single sink, converting errors and panics into failed
// outcomes. One sink can never abort the inspection or starve another.
func deliver(ctx context.Context, s sink.Sink, r *sink.Report) (o sink.Outcome) {
	o = sink.Outcome{Sink: s.Name()}
	defer func() {
		if rec := recover(); rec != nil {
			o.Delivered = false
			o.Suppressed = false
			o.Err = &sink.DeliveryError{Kind: sink.KindFormatting, Err: fmt.Errorf("sink panic: %v", rec)}
			metrics.SinkDeliveries.WithLabelValues(o.Sink, "failed").Inc()
			log.Error().Str("sink", o.Sink).Str("report", r.ID).Interface("panic", rec).Msg("sink panicked")
		}
	}()

	err := s.Emit(ctx, r)
	switch {
	case err == nil:
		o.Delivered = true
		metrics.SinkDeliveries.WithLabelValues(o.Sink, "delivered").Inc()
	case errors.Is(err, sink.ErrSuppressed):
		o.Suppressed = true
		metrics.SinkDeliveries.WithLabelValues(o.Sink, "suppressed").Inc()
		log.Debug().Str("sink", o.Sink).Str("report", r.ID).Msg("alert suppressed")
	default:
		o.Err = err
		metrics.SinkDeliveries.WithLabelValues(o.Sink, "failed").Inc()
		log.Error().Err(err).Str("sink", o.Sink).Str("report", r.ID).Msg("sink delivery failed")
	}
	return o
}
