package sink

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// SampleDir writes the sampled failing records of failing reports as one CSV
// file per report into a directory. Passing reports and reports without a
// sample produce nothing.
type SampleDir struct {
	dir string
}

// Compile-time interface check.
var _ Sink = (*SampleDir)(nil)

// NewSampleDir creates the target directory if needed and returns the sink.
func NewSampleDir(dir string) (*SampleDir, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("sampledir sink: %w", err)
	}
	return &SampleDir{dir: dir}, nil
}

func (s *SampleDir) Name() string { return "sampledir" }

func (s *SampleDir) Emit(_ context.Context, r *Report) error {
	if r.Result == nil || r.Result.Passed || r.Sample == nil || len(r.Sample.RowIDs) == 0 {
		return nil
	}

	f, err := os.Create(filepath.Join(s.dir, sampleFilename(r)))
	if err != nil {
		return &DeliveryError{Kind: KindTransport, Err: err}
	}

	w := csv.NewWriter(f)
	_ = w.Write(append([]string{"row"}, r.Columns...))
	for i, id := range r.Sample.RowIDs {
		rec := []string{strconv.Itoa(id)}
		if i < len(r.SampleRows) {
			rec = append(rec, r.SampleRows[i]...)
		}
		_ = w.Write(rec)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = f.Close()
		return &DeliveryError{Kind: KindFormatting, Err: err}
	}
	if err := f.Close(); err != nil {
		return &DeliveryError{Kind: KindTransport, Err: err}
	}
	return nil
}

func (s *SampleDir) Close() error { return nil }

// Dir returns the directory sample files are written to.
func (s *SampleDir) Dir() string { return s.dir }

// sampleFilename builds "<utc stamp>_<inspector>_<dataset>[_<id8>].csv" with
// unsafe characters replaced.
func sampleFilename(r *Report) string {
	name := fmt.Sprintf("%s_%s_%s",
		r.Timestamp.UTC().Format("20060102T150405"),
		slug(r.Inspector), slug(r.Dataset))
	if len(r.ID) >= 8 {
		name += "_" + r.ID[:8]
	}
	return name + ".csv"
}

func slug(s string) string {
	var b strings.Builder
	for _, c := range s {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
			b.WriteRune(c)
		default:
			b.WriteByte('-')
		}
	}
	return b.String()
}
