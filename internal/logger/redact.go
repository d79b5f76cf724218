// Package logger keeps secrets out of log output. The chat sink posts to a
// webhook whose URL embeds a signing secret, and that URL shows up in error
// messages whenever delivery fails; RedactWriter masks it (and any bearer
// tokens) before the bytes reach the terminal or a log shipper.
package logger

import (
	"io"
	"regexp"
)

var (
	// Webhook URLs of the /services/T.../B.../token form; the path is the secret.
	webhookRe = regexp.MustCompile(`https?://[^\s"'\\]+/services/[A-Za-z0-9/_-]+`)

	// Authorization headers and "bearer xyz" log fields.
	bearerRe = regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9\-._~+/]+=*`)
)

// Redact masks webhook URLs and bearer tokens in b. Clean input comes back
// unchanged.
func Redact(b []byte) []byte {
	b = webhookRe.ReplaceAllLiteral(b, []byte("[REDACTED-WEBHOOK-URL]"))
	b = bearerRe.ReplaceAllLiteral(b, []byte("bearer [REDACTED]"))
	return b
}

// RedactWriter applies Redact to everything written through it. It reports
// len(p) back regardless of how masking changed the length, so wrapped
// loggers never see a short write.
type RedactWriter struct{ w io.Writer }

// NewRedactWriter wraps w in a masking writer.
func NewRedactWriter(w io.Writer) *RedactWriter { return &RedactWriter{w: w} }

func (rw *RedactWriter) Write(p []byte) (int, error) {
	_, err := rw.w.Write(Redact(p))
	return len(p), err
}
