// Package watch implements the recurring runtime: re-run the inspection
// suite on an interval and on dataset file changes, with metrics and health
// endpoints.
package watch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/datasmiths/tabinspect/internal/config"
	"github.com/datasmiths/tabinspect/internal/metrics"
	"github.com/datasmiths/tabinspect/internal/suppress"
	"github.com/datasmiths/tabinspect/pkg/inspect"
	"github.com/datasmiths/tabinspect/pkg/sink"
)

const janitorEvery = 5 * time.Minute

// LoadFunc produces a fresh set of targets for each suite run, so edits to
// the dataset files are picked up without a restart.
type LoadFunc func() ([]inspect.Target, error)

// Watcher runs the suite repeatedly until stopped. It owns the suppression
// store and the sinks: Close releases both.
type Watcher struct {
	cfg     *config.Config
	runner  *inspect.Runner
	sinks   []sink.Sink
	store   suppress.Store
	load    LoadFunc
	stats   *Stats
	httpSrv *http.Server // nil when MetricsAddr == ""
}

// New assembles the recurring runtime.
func New(cfg *config.Config, runner *inspect.Runner, sinks []sink.Sink, store suppress.Store, load LoadFunc) *Watcher {
	w := &Watcher{
		cfg:    cfg,
		runner: runner,
		sinks:  sinks,
		store:  store,
		load:   load,
		stats:  NewStats(),
	}
	w.httpSrv = w.metricsServer(cfg.MetricsAddr)
	return w
}

// metricsServer builds the HTTP server exposing Prometheus metrics plus the
// liveness and readiness probes. Returns nil when addr is empty.
func (w *Watcher) metricsServer(addr string) *http.Server {
	if addr == "" {
		return nil
	}
	m := http.NewServeMux()
	m.Handle("/metrics", promhttp.Handler())
	m.HandleFunc("/healthz", func(rw http.ResponseWriter, _ *http.Request) {
		rw.WriteHeader(http.StatusOK)
		_, _ = rw.Write([]byte("ok"))
	})
	m.HandleFunc("/readyz", w.handleReady)
	return &http.Server{
		Addr:         addr,
		Handler:      m,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	}
}

// handleReady reports 503 while any health-checkable sink is down, so an
// orchestrator can hold traffic until alerts can actually be delivered.
func (w *Watcher) handleReady(rw http.ResponseWriter, req *http.Request) {
	if err := w.Healthy(req.Context()); err != nil {
		http.Error(rw, err.Error(), http.StatusServiceUnavailable)
		return
	}
	rw.WriteHeader(http.StatusOK)
	_, _ = rw.Write([]byte("ok"))
}

// Stats exposes the run counters, for shutdown reporting and tests.
func (w *Watcher) Stats() *Stats { return w.stats }

// Run executes the suite immediately, then again on every interval tick and
// every (debounced) dataset file change, until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	if w.httpSrv != nil {
		go w.serveMetrics()
	}

	var fileEvents <-chan time.Time
	if w.cfg.WatchFiles {
		fw, err := newFileWatcher(ctx, w.cfg.DatasetPaths())
		if err != nil {
			return fmt.Errorf("watch: %w", err)
		}
		fileEvents = fw.C
	}

	go runJanitor(ctx, w.store, janitorEvery)

	log.Info().
		Dur("interval", w.cfg.Interval).
		Bool("watch_files", w.cfg.WatchFiles).
		Int("parallel", w.cfg.Parallel).
		Str("log_level", w.cfg.LogLevel).
		Msg("watch started")

	w.runOnce(ctx)

	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().
				Int64("runs", w.stats.Runs()).
				Int64("failed", w.stats.Failed()).
				Msg("watch stopped")
			return nil

		case <-ticker.C:
			w.runOnce(ctx)

		case <-fileEvents:
			log.Info().Msg("dataset change detected")
			w.runOnce(ctx)
			// Restart the countdown so a change-triggered run isn't followed
			// by an interval run moments later.
			ticker.Reset(w.cfg.Interval)
		}
	}
}

func (w *Watcher) serveMetrics() {
	log.Info().Str("addr", w.httpSrv.Addr).Msg("metrics server listening")
	err := w.httpSrv.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Msg("metrics server error")
	}
}

func (w *Watcher) runOnce(ctx context.Context) {
	targets, err := w.load()
	if err != nil {
		w.stats.IncFailed()
		metrics.RunsTotal.WithLabelValues("error").Inc()
		log.Error().Err(err).Msg("dataset load failed")
		return
	}

	sum := w.runner.Run(ctx, targets)
	w.stats.IncRuns()

	status := "ok"
	if !sum.Ok() {
		status = "failing"
		w.stats.IncFailed()
	}
	metrics.RunsTotal.WithLabelValues(status).Inc()
	metrics.LastRunUnix.Set(float64(time.Now().Unix()))

	log.Info().
		Str("run", sum.RunID).
		Int("passed", sum.Passed()).
		Int("failed", sum.Failed()).
		Int("errors", sum.Errs()).
		Int("sink_failures", sum.SinkFailures()).
		Dur("took", sum.Duration).
		Msg("suite run complete")
}

// Healthy probes every sink that exposes a health check.
func (w *Watcher) Healthy(ctx context.Context) error {
	for _, s := range w.sinks {
		h, ok := s.(sink.HealthChecker)
		if !ok {
			continue
		}
		if err := h.Healthy(ctx); err != nil {
			return fmt.Errorf("sink %s: %w", s.Name(), err)
		}
	}
	return nil
}

// Close performs graceful shutdown: stop the HTTP server, prune and close
// the store, close the sinks.
func (w *Watcher) Close() {
	w.stopMetrics()

	if err := w.store.Prune(); err != nil {
		log.Warn().Err(err).Msg("final suppression prune failed")
	}
	if err := w.store.Close(); err != nil {
		log.Warn().Err(err).Msg("closing suppression store failed")
	}
	for _, s := range w.sinks {
		if err := s.Close(); err != nil {
			log.Warn().Err(err).Str("sink", s.Name()).Msg("closing sink failed")
		}
	}
}

func (w *Watcher) stopMetrics() {
	if w.httpSrv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := w.httpSrv.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("metrics server shutdown failed")
	}
}
