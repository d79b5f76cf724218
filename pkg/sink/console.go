package sink

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// Console writes one status line per report, in the
// "Title::STATUS::detail::label" shape this tool has always used.
// Writes are mutex-serialised so concurrent inspections don't interleave.
type Console struct {
	mu sync.Mutex
	w  io.Writer
}

// Compile-time interface check.
var _ Sink = (*Console)(nil)

// NewConsole creates a console sink writing to w. A nil w means stdout.
func NewConsole(w io.Writer) *Console {
	if w == nil {
		w = os.Stdout
	}
	return &Console{w: w}
}

func (c *Console) Name() string { return "console" }

func (c *Console) Emit(_ context.Context, r *Report) error {
	line := consoleLine(r)
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := fmt.Fprintln(c.w, line); err != nil {
		return &DeliveryError{Kind: KindTransport, Err: err}
	}
	return nil
}

func (c *Console) Close() error { return nil }

// consoleLine joins the non-empty parts with "::" and appends the sampled
// row ids when a non-empty sample is attached.
func consoleLine(r *Report) string {
	status := "PASS"
	msg := ""
	if r.Result != nil {
		if !r.Result.Passed {
			status = "FAIL"
		}
		msg = r.Result.Message
	}
	parts := make([]string, 0, 4)
	for _, p := range []string{r.Inspector, status, msg, r.Dataset} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	line := strings.Join(parts, "::")
	if r.Sample != nil && len(r.Sample.RowIDs) > 0 {
		line += fmt.Sprintf(" sample_rows=%v", r.Sample.RowIDs)
	}
	return line
}
