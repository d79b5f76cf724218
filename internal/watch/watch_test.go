package watch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datasmiths/tabinspect/internal/config"
	"github.com/datasmiths/tabinspect/internal/suppress"
	"github.com/datasmiths/tabinspect/pkg/check"
	"github.com/datasmiths/tabinspect/pkg/dataset"
	"github.com/datasmiths/tabinspect/pkg/inspect"
	"github.com/datasmiths/tabinspect/pkg/sink"
)

type plainSink struct{ closed bool }

func (s *plainSink) Name() string                             { return "plain" }
func (s *plainSink) Emit(context.Context, *sink.Report) error { return nil }
func (s *plainSink) Close() error                             { s.closed = true; return nil }

type downSink struct{ err error }

func (s *downSink) Name() string                             { return "health-err" }
func (s *downSink) Emit(context.Context, *sink.Report) error { return nil }
func (s *downSink) Healthy(context.Context) error            { return s.err }
func (s *downSink) Close() error                             { return nil }

type failingCloseSink struct{}

func (s *failingCloseSink) Name() string                             { return "close-err" }
func (s *failingCloseSink) Emit(context.Context, *sink.Report) error { return nil }
func (s *failingCloseSink) Close() error                             { return errors.New("sink close failed") }

func baseWatchConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		LogLevel:   "info",
		DataDir:    t.TempDir(),
		Interval:   time.Hour,
		WatchFiles: false,
		Parallel:   1,
	}
}

func passingLoad() ([]inspect.Target, error) {
	ds, err := dataset.New([]string{"id"}, [][]string{{"1"}})
	if err != nil {
		return nil, err
	}
	return []inspect.Target{{Label: "users", Dataset: ds}}, nil
}

func newTestWatcher(t *testing.T, cfg *config.Config, sinks []sink.Sink) *Watcher {
	t.Helper()
	ins, err := inspect.New("ok", func(ds dataset.Dataset) (*check.Result, error) {
		return check.NewResult(ds.RowCount(), nil, "ok"), nil
	}, inspect.WithSinks(sinks...))
	require.NoError(t, err)
	return New(cfg, inspect.NewRunner([]*inspect.Inspector{ins}), sinks, suppress.NewMemStore(0), passingLoad)
}

func TestNew_NoMetricsServerWithoutAddr(t *testing.T) {
	w := newTestWatcher(t, baseWatchConfig(t), nil)
	assert.Nil(t, w.httpSrv)
}

func TestMetricsServer_Endpoints(t *testing.T) {
	cfg := baseWatchConfig(t)
	cfg.MetricsAddr = "127.0.0.1:0"
	w := newTestWatcher(t, cfg, []sink.Sink{&plainSink{}})
	require.NotNil(t, w.httpSrv)

	healthRec := httptest.NewRecorder()
	w.httpSrv.Handler.ServeHTTP(healthRec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, healthRec.Code)
	assert.Equal(t, "ok", healthRec.Body.String())

	metricsRec := httptest.NewRecorder()
	w.httpSrv.Handler.ServeHTTP(metricsRec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, metricsRec.Code)

	readyRec := httptest.NewRecorder()
	w.httpSrv.Handler.ServeHTTP(readyRec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, readyRec.Code)

	badCfg := baseWatchConfig(t)
	badCfg.MetricsAddr = "127.0.0.1:0"
	bad := newTestWatcher(t, badCfg, []sink.Sink{&downSink{err: errors.New("webhook down")}})
	badRec := httptest.NewRecorder()
	bad.httpSrv.Handler.ServeHTTP(badRec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, badRec.Code)
	assert.Contains(t, badRec.Body.String(), "webhook down")
}

func TestWatcher_Healthy(t *testing.T) {
	t.Run("skips sinks without a health check", func(t *testing.T) {
		w := newTestWatcher(t, baseWatchConfig(t), []sink.Sink{&plainSink{}})
		assert.NoError(t, w.Healthy(context.Background()))
	})

	t.Run("reports the failing sink by name", func(t *testing.T) {
		sinks := []sink.Sink{&plainSink{}, &downSink{err: errors.New("webhook down")}}
		w := newTestWatcher(t, baseWatchConfig(t), sinks)
		err := w.Healthy(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "sink health-err")
		assert.Contains(t, err.Error(), "webhook down")
	})
}

func TestRun_ImmediateRunThenStop(t *testing.T) {
	w := newTestWatcher(t, baseWatchConfig(t), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	require.NoError(t, w.Run(ctx))

	assert.Equal(t, int64(1), w.Stats().Runs())
	assert.Equal(t, int64(0), w.Stats().Failed())
}

func TestRun_LoadErrorCountsFailed(t *testing.T) {
	w := New(baseWatchConfig(t), inspect.NewRunner(nil), nil, suppress.NewMemStore(0),
		func() ([]inspect.Target, error) { return nil, errors.New("exports unavailable") })

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	require.NoError(t, w.Run(ctx))

	assert.Equal(t, int64(0), w.Stats().Runs())
	assert.Equal(t, int64(1), w.Stats().Failed())
}

func TestRun_FailingChecksCountAsFailed(t *testing.T) {
	ins, err := inspect.New("always-fails", func(ds dataset.Dataset) (*check.Result, error) {
		return check.NewResult(ds.RowCount(), []int{0}, "bad"), nil
	})
	require.NoError(t, err)
	w := New(baseWatchConfig(t), inspect.NewRunner([]*inspect.Inspector{ins}), nil,
		suppress.NewMemStore(0), passingLoad)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	require.NoError(t, w.Run(ctx))

	assert.Equal(t, int64(1), w.Stats().Runs())
	assert.Equal(t, int64(1), w.Stats().Failed())
}

// NOTE: rides the real 2 s file debounce, so this test takes a few seconds.
func TestRun_FileChangeTriggersSecondRun(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "users.csv")
	require.NoError(t, os.WriteFile(path, []byte("id\n1\n"), 0o644))

	cfg := baseWatchConfig(t)
	cfg.WatchFiles = true
	cfg.Datasets = []config.DatasetRef{{Label: "users", Path: path}}
	w := newTestWatcher(t, cfg, nil)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- w.Run(ctx) }()

	require.Eventually(t, func() bool { return w.Stats().Runs() == 1 },
		2*time.Second, 20*time.Millisecond, "initial run")

	require.NoError(t, os.WriteFile(path, []byte("id\n1\n2\n"), 0o644))
	require.Eventually(t, func() bool { return w.Stats().Runs() >= 2 },
		debounceDelay+5*time.Second, 50*time.Millisecond, "change-triggered run")

	cancel()
	require.NoError(t, <-errCh)
}

func TestClose_ReleasesStoreAndSinks(t *testing.T) {
	ps := &plainSink{}
	w := newTestWatcher(t, baseWatchConfig(t), []sink.Sink{ps})
	w.Close()
	assert.True(t, ps.closed)
}

func TestClose_SurvivesCloseError(t *testing.T) {
	cfg := baseWatchConfig(t)
	cfg.MetricsAddr = "127.0.0.1:0"
	w := newTestWatcher(t, cfg, []sink.Sink{&failingCloseSink{}})
	assert.NotPanics(t, func() { w.Close() })
}
