// Package report aggregates per-record outcomes of a batch run.
package report

import (
	"log/slog"
	"strings"
)

// Status is the outcome of processing a single record. The zero value is
// not an outcome and is never counted.
type Status int

const (
	Success Status = iota + 1
	Failed
	Skipped
)

func (s Status) String() string {
	switch s {
	case Success:
		return "success"
	case Failed:
		return "failed"
	case Skipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Progress receives one tick per processed record. *progressbar.ProgressBar satisfies it.
type Progress interface {
	Add(num int) error
}

// Tick advances p if it is set.
func Tick(p Progress) {
	if p != nil {
		_ = p.Add(1)
	}
}

// Summary counts outcomes across a batch.
type Summary struct {
	Successful int
	Failed     int
	Skipped    int
}

// Record adds one outcome to the summary.
func (s *Summary) Record(status Status) {
	switch status {
	case Success:
		s.Successful++
	case Failed:
		s.Failed++
	case Skipped:
		s.Skipped++
	}
}

// Total is the number of records that were processed.
func (s Summary) Total() int {
	return s.Successful + s.Failed + s.Skipped
}

// Log writes the end-of-run summary lines.
func (s Summary) Log(logger *slog.Logger, title string) {
	logger.Info("=== " + strings.ToUpper(title) + " COMPLETE ===")
	logger.Info("summary",
		"successful", s.Successful,
		"failed", s.Failed,
		"skipped", s.Skipped,
		"total", s.Total(),
	)
}
