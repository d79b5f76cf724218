package logger

import (
	"bytes"
	"errors"
	"testing"
)

func TestRedact(t *testing.T) {
	cases := map[string]struct{ in, want string }{
		"webhook url in prose": {
			in:   `posting to https://hooks.example.com/services/T0AAA/B0BBB/s3cr3tT0ken failed`,
			want: `posting to [REDACTED-WEBHOOK-URL] failed`,
		},
		"webhook url in json field": {
			in:   `{"webhook":"https://hooks.example.com/services/T0AAA/B0BBB/s3cr3t"}`,
			want: `{"webhook":"[REDACTED-WEBHOOK-URL]"}`,
		},
		"bearer token": {
			in:   "Authorization: Bearer my.secret.token",
			want: "Authorization: bearer [REDACTED]",
		},
		"clean line untouched": {
			in:   "suite run finished",
			want: "suite run finished",
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			if got := string(Redact([]byte(tc.in))); got != tc.want {
				t.Errorf("Redact(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestRedactWriter_ReportsFullLength(t *testing.T) {
	var buf bytes.Buffer
	rw := NewRedactWriter(&buf)

	line := "error: https://hooks.example.com/services/T1/B2/token3456 gave 404"
	n, err := rw.Write([]byte(line))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Masking shortens the output; the reported count must still cover the
	// whole original write or zerolog would treat it as a short write.
	if n != len(line) {
		t.Errorf("n = %d, want %d", n, len(line))
	}
	if got := buf.String(); got != "error: [REDACTED-WEBHOOK-URL] gave 404" {
		t.Errorf("masked output = %q", got)
	}
}

type failWriter struct{ err error }

func (f *failWriter) Write([]byte) (int, error) { return 0, f.err }

func TestRedactWriter_PropagatesWriteErrors(t *testing.T) {
	wantErr := errors.New("disk full")
	rw := NewRedactWriter(&failWriter{err: wantErr})

	n, err := rw.Write([]byte("anything"))
	if !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want %v", err, wantErr)
	}
	if n != len("anything") {
		t.Errorf("n = %d on error, want the full length", n)
	}
}
