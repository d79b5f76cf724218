package sink

import (
	"context"

	"github.com/rs/zerolog/log"
)

// Gate decides whether an alert for a key may fire and records the ones
// that did. Implementations must be safe for concurrent use.
type Gate interface {
	Allow(key string) bool
	Record(key string) error
}

// WithCooldown wraps a sink so repeat failing reports for the same
// (inspector, dataset) pair return ErrSuppressed while a previous alert's
// window is active. Passing reports bypass the gate entirely, and the
// window starts only after a successful delivery, so a failed send never
// silences the next attempt.
func WithCooldown(inner Sink, gate Gate) Sink {
	return &cooldownSink{inner: inner, gate: gate}
}

type cooldownSink struct {
	inner Sink
	gate  Gate
}

var _ Sink = (*cooldownSink)(nil)
var _ HealthChecker = (*cooldownSink)(nil)

func (c *cooldownSink) Name() string { return c.inner.Name() }

func (c *cooldownSink) Emit(ctx context.Context, r *Report) error {
	if r.Result == nil || r.Result.Passed {
		return c.inner.Emit(ctx, r)
	}
	key := r.Inspector + "|" + r.Dataset
	if !c.gate.Allow(key) {
		return ErrSuppressed
	}
	if err := c.inner.Emit(ctx, r); err != nil {
		return err
	}
	if err := c.gate.Record(key); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("cooldown record failed")
	}
	return nil
}

// Healthy forwards to the wrapped sink when it exposes a health check, so
// wrapping does not hide the capability from readiness probes.
func (c *cooldownSink) Healthy(ctx context.Context) error {
	if h, ok := c.inner.(HealthChecker); ok {
		return h.Healthy(ctx)
	}
	return nil
}

func (c *cooldownSink) Close() error { return c.inner.Close() }
