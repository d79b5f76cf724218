// Package chat delivers inspection alerts to a Slack-compatible webhook.
package chat

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/datasmiths/tabinspect/internal/metrics"
	"github.com/datasmiths/tabinspect/pkg/sink"
)

const (
	defaultTimeout = 15 * time.Second
	healthTimeout  = 5 * time.Second
	maxRetries     = 3
	initialBackoff = 2 * time.Second
)

// ClientConfig holds configuration for the chat webhook client.
type ClientConfig struct {
	WebhookURL   string
	Channel      string
	NotifyOnPass bool          // also post passing reports
	RatePerMin   int           // ceiling on webhook posts; <= 0 means unlimited
	Timeout      time.Duration // per-attempt; 0 = default
}

// Client implements the sink.Sink interface for a chat webhook.
type Client struct {
	url        string
	channel    string
	notifyPass bool
	timeout    time.Duration
	limiter    *rate.Limiter // nil when unlimited
	httpClient *http.Client
}

// Compile-time interface checks.
var (
	_ sink.Sink          = (*Client)(nil)
	_ sink.HealthChecker = (*Client)(nil)
)

// NewClient creates a new chat webhook sink client.
func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	var limiter *rate.Limiter
	if cfg.RatePerMin > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RatePerMin)), cfg.RatePerMin)
	}

	httpClient := &http.Client{
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12},
		},
	}

	return &Client{
		url:        cfg.WebhookURL,
		channel:    cfg.Channel,
		notifyPass: cfg.NotifyOnPass,
		timeout:    timeout,
		limiter:    limiter,
		httpClient: httpClient,
	}
}

func (c *Client) Name() string { return "chat" }

// payload is the Slack-compatible webhook body.
type payload struct {
	Channel  string `json:"channel,omitempty"`
	Text     string `json:"text"`
	ReportID string `json:"report_id,omitempty"`
}

// fail counts the fault and wraps it for the caller.
func (c *Client) fail(kind sink.ErrorKind, err error) error {
	metrics.SinkErrors.WithLabelValues("chat", string(kind)).Inc()
	return &sink.DeliveryError{Kind: kind, Err: err}
}

// Emit posts the report to the webhook with retry logic. Passing reports are
// skipped unless the client is configured to notify on pass.
func (c *Client) Emit(ctx context.Context, r *sink.Report) error {
	if r.Result != nil && r.Result.Passed && !c.notifyPass {
		return nil
	}

	body, err := json.Marshal(payload{Channel: c.channel, Text: message(r), ReportID: r.ID})
	if err != nil {
		return c.fail(sink.KindFormatting, err)
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return c.fail(sink.KindTimeout, err)
		}
	}

	log.Debug().
		Str("report", r.ID).
		Str("inspector", r.Inspector).
		Str("dataset", r.Dataset).
		Msg("posting chat alert")

	return c.postWithRetry(ctx, r.ID, body)
}

// retryableStatus reports whether a response status is worth another attempt.
func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

func (c *Client) postWithRetry(ctx context.Context, reportID string, body []byte) error {
	backoff := initialBackoff
	for attempt := 1; ; attempt++ {
		code, respBody, err := c.post(ctx, body)

		switch {
		case err != nil && ctx.Err() != nil:
			// Caller cancellation, not a webhook fault.
			return c.fail(sink.KindTimeout, ctx.Err())

		case err == nil && code >= 200 && code < 300:
			return nil

		case err == nil && !retryableStatus(code):
			// 4xx: the payload is wrong for this webhook; retrying cannot help.
			return c.fail(sink.KindFormatting,
				fmt.Errorf("webhook rejected request (http %d): %s", code, trim(respBody)))
		}

		if attempt == maxRetries {
			if err != nil {
				kind := sink.KindTransport
				if errors.Is(err, context.DeadlineExceeded) {
					kind = sink.KindTimeout
				}
				return c.fail(kind, fmt.Errorf("all %d attempts failed: %w", maxRetries, err))
			}
			return c.fail(sink.KindTransport,
				fmt.Errorf("webhook returned http %d after %d attempts: %s", code, maxRetries, trim(respBody)))
		}

		log.Warn().
			Int("attempt", attempt).
			Int("max", maxRetries).
			Int("http", code).
			Dur("wait", backoff).
			Str("report", reportID).
			Msg("chat retry")
		if werr := c.wait(ctx, backoff); werr != nil {
			return c.fail(sink.KindTimeout, werr)
		}
		backoff *= 2
	}
}

// wait sleeps for d unless ctx ends first.
func (c *Client) wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) post(ctx context.Context, body []byte) (int, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return resp.StatusCode, respBody, nil
}

// Healthy checks webhook reachability without posting a message. Any HTTP
// response proves the endpoint is up; webhooks reject non-POST requests
// without delivering anything.
func (c *Client) Healthy(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("chat webhook unreachable: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	return nil
}

func (c *Client) Close() error { return nil }

// message renders the alert text for a report.
func message(r *sink.Report) string {
	status := "PASSED"
	detail := ""
	if r.Result != nil {
		if !r.Result.Passed {
			status = "FAILED"
		}
		detail = r.Result.Message
	}
	text := fmt.Sprintf("%s %s on %s", r.Inspector, status, r.Dataset)
	if detail != "" {
		text += ": " + detail
	}
	if r.Sample != nil && len(r.Sample.RowIDs) > 0 {
		text += fmt.Sprintf(" (sample rows %v)", r.Sample.RowIDs)
	}
	return text
}

func trim(body []byte) string {
	const max = 200
	if len(body) > max {
		body = body[:max]
	}
	return string(body)
}
