package sink

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

// LogFile appends one structured JSON event per report to a file. The sink
// owns the handle; rotation is the operator's concern.
type LogFile struct {
	mu  sync.Mutex
	f   *os.File
	cw  *captureWriter
	log zerolog.Logger
}

// Compile-time interface check.
var _ Sink = (*LogFile)(nil)

// NewLogFile opens (or creates) the log file at path in append mode.
func NewLogFile(path string) (*LogFile, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logfile sink: open %s: %w", path, err)
	}
	cw := &captureWriter{w: f}
	return &LogFile{
		f:   f,
		cw:  cw,
		log: zerolog.New(cw).With().Timestamp().Logger(),
	}, nil
}

func (l *LogFile) Name() string { return "logfile" }

func (l *LogFile) Emit(_ context.Context, r *Report) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cw.err = nil

	ev := l.log.Info()
	if r.Result != nil && !r.Result.Passed {
		ev = l.log.Error()
	}
	ev = ev.
		Str("report_id", r.ID).
		Str("inspector", r.Inspector).
		Str("dataset", r.Dataset).
		Time("inspected_at", r.Timestamp)
	if r.Result != nil {
		ev = ev.
			Bool("passed", r.Result.Passed).
			Int("total_rows", r.Result.TotalRows).
			Int("failing_rows", len(r.Result.FailingRows)).
			Str("detail", r.Result.Message)
	}
	if r.Sample != nil {
		ev = ev.Ints("sample_rows", r.Sample.RowIDs).Str("sample_strategy", string(r.Sample.Strategy))
	}
	ev.Msg("inspection")

	if l.cw.err != nil {
		return &DeliveryError{Kind: KindTransport, Err: l.cw.err}
	}
	return nil
}

func (l *LogFile) Close() error { return l.f.Close() }

// captureWriter remembers the last write error so Emit can surface it;
// zerolog itself swallows writer errors.
type captureWriter struct {
	w   io.Writer
	err error
}

func (c *captureWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	if err != nil {
		c.err = err
	}
	return n, err
}
