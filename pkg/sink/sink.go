// Package sink routes inspection reports to pluggable destinations. A sink
// failure is data, not control flow: Emit errors become per-sink outcomes
// and never abort an inspection or starve another sink.
package sink

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/datasmiths/tabinspect/pkg/check"
	"github.com/datasmiths/tabinspect/pkg/sample"
)

// Report is the payload fanned out to sinks after a check runs.
// It is shared read-only across sinks; none of them may mutate it.
type Report struct {
	// ID correlates this report across sinks and log lines.
	ID string

	// Inspector is the name of the inspector that produced the report.
	Inspector string

	// Dataset labels the inspected dataset (file path, table name, ...).
	Dataset string

	// Timestamp is when the check finished.
	Timestamp time.Time

	// Result of the check. Never nil on reports built by an Inspector.
	Result *check.Result

	// Sample of failing rows. Nil exactly when sampling is disabled;
	// non-nil and empty when sampling ran and nothing failed.
	Sample *sample.Sample

	// Columns and SampleRows carry the rendered cells of the sampled rows,
	// SampleRows[i] matching Sample.RowIDs[i]. Empty when there is no
	// sample to show.
	Columns    []string
	SampleRows [][]string
}

// Sink delivers inspection reports to one destination.
type Sink interface {
	// Name returns the sink identifier for logging and outcomes.
	Name() string

	// Emit delivers a single report. A returned error is recorded as a
	// failed outcome by the caller; Emit must not panic.
	Emit(ctx context.Context, r *Report) error

	// Close performs graceful shutdown.
	Close() error
}

// HealthChecker is an optional sink capability probed by readiness checks.
type HealthChecker interface {
	Healthy(ctx context.Context) error
}

// ErrSuppressed is returned by a cooldown-wrapped sink when a repeat alert
// is withheld inside the cooldown window. Not a delivery failure.
var ErrSuppressed = errors.New("alert suppressed by cooldown")

// ErrorKind classifies sink delivery failures.
type ErrorKind string

const (
	// KindTransport covers unreachable endpoints and I/O faults.
	KindTransport ErrorKind = "transport_unavailable"

	// KindFormatting covers payloads the destination cannot accept.
	KindFormatting ErrorKind = "formatting_error"

	// KindTimeout covers deliveries that ran out of time.
	KindTimeout ErrorKind = "timeout"
)

// DeliveryError is a classified sink failure.
type DeliveryError struct {
	Kind ErrorKind
	Err  error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// KindOf extracts the failure class from a sink error. Context deadline
// errors count as timeouts; anything else unclassified as transport.
func KindOf(err error) ErrorKind {
	var de *DeliveryError
	if errors.As(err, &de) {
		return de.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindTransport
}

// Outcome records one sink's delivery attempt for one report.
type Outcome struct {
	// Sink is the sink name.
	Sink string

	// Delivered is true when the sink accepted the report.
	Delivered bool

	// Suppressed is true when a cooldown withheld the report.
	Suppressed bool

	// Err holds the delivery error for failed outcomes, nil otherwise.
	Err error
}

// Kind classifies the outcome's error. Empty for delivered or suppressed
// outcomes.
func (o Outcome) Kind() ErrorKind {
	if o.Err == nil {
		return ""
	}
	return KindOf(o.Err)
}
