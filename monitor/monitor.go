// Package monitor writes per-run scalar metric series for external
// visualization: one CSV under runs/<stamp>-<name>/.
package monitor

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// SummaryWriter appends (series, step, value) rows to the run's scalar log.
type SummaryWriter struct {
	Dir string

	f *os.File
	w *csv.Writer
}

// NewSummaryWriter creates runs/<stamp>-<name>/scalars.csv.
func NewSummaryWriter(root, name string) (*SummaryWriter, error) {
	dir := filepath.Join(root, time.Now().Format("Jan02_15-04-05")+"-"+name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	f, err := os.Create(filepath.Join(dir, "scalars.csv"))
	if err != nil {
		return nil, err
	}
	w := csv.NewWriter(f)
	if err := w.Write([]string{"series", "step", "value"}); err != nil {
		f.Close()
		return nil, err
	}
	return &SummaryWriter{Dir: dir, f: f, w: w}, nil
}

// AddScalar records one value of a named series at the given step.
func (s *SummaryWriter) AddScalar(series string, step int, value float64) error {
	return s.w.Write([]string{
		series,
		strconv.Itoa(step),
		strconv.FormatFloat(value, 'g', -1, 64),
	})
}

// Close flushes pending rows and closes the file.
func (s *SummaryWriter) Close() error {
	s.w.Flush()
	if err := s.w.Error(); err != nil {
		s.f.Close()
		return fmt.Errorf("flush scalars: %w", err)
	}
	return s.f.Close()
}
