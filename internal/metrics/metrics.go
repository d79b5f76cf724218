// Package metrics defines package-level Prometheus metric variables for
// tabinspect. Call Register() once at startup to expose them on the default
// registry, or RegisterWith() to use an isolated registry in tests.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// ChecksRun counts completed check evaluations, labelled by result.
	ChecksRun = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tabinspect_checks_total",
		Help: "Completed check evaluations, by result (pass|fail).",
	}, []string{"result"})

	// CheckErrors counts evaluations aborted by invalid parameters.
	CheckErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tabinspect_check_errors_total",
		Help: "Check evaluations aborted by invalid parameters.",
	})

	// RowsInspected counts rows scanned across all check evaluations.
	RowsInspected = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tabinspect_rows_inspected_total",
		Help: "Rows scanned across all check evaluations.",
	})

	// SinkDeliveries counts per-sink delivery outcomes.
	SinkDeliveries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tabinspect_sink_deliveries_total",
		Help: "Sink delivery outcomes, by sink and outcome (delivered|failed|suppressed).",
	}, []string{"sink", "outcome"})

	// SinkErrors counts sink faults, labelled by classified kind.
	// Valid kinds: transport_unavailable, formatting_error, timeout.
	SinkErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tabinspect_sink_errors_total",
		Help: "Sink delivery faults, by sink and kind (transport_unavailable|formatting_error|timeout).",
	}, []string{"sink", "kind"})

	// RunsTotal counts whole-suite runs, by status.
	RunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tabinspect_runs_total",
		Help: "Suite runs, by status (ok|failing|error).",
	}, []string{"status"})

	// LastRunUnix is the Unix time of the most recent completed suite run.
	LastRunUnix = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "tabinspect_last_run_timestamp_seconds",
		Help: "Unix time of the most recent completed suite run.",
	})

	// StoreSizeBytes is the on-disk size of the alert-suppression database.
	StoreSizeBytes = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "tabinspect_store_size_bytes",
		Help: "On-disk size of the alert-suppression database.",
	})
)

// Register registers all metrics with prometheus.DefaultRegisterer.
// Call once at process startup.
func Register() {
	RegisterWith(prometheus.DefaultRegisterer)
}

// RegisterWith registers all metrics with the given registerer.
// Use an isolated prometheus.NewRegistry() in tests to avoid conflicts.
func RegisterWith(reg prometheus.Registerer) {
	reg.MustRegister(
		ChecksRun,
		CheckErrors,
		RowsInspected,
		SinkDeliveries,
		SinkErrors,
		RunsTotal,
		LastRunUnix,
		StoreSizeBytes,
	)
}
