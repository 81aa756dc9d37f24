package report

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

type countingProgress struct{ n int }

func (c *countingProgress) Add(num int) error {
	c.n += num
	return nil
}

func TestSummary_Record(t *testing.T) {
	var s Summary
	s.Record(Success)
	s.Record(Failed)
	s.Record(Failed)
	s.Record(Skipped)

	assert.Equal(t, 1, s.Successful)
	assert.Equal(t, 2, s.Failed)
	assert.Equal(t, 1, s.Skipped)
	assert.Equal(t, 4, s.Total())
}

func TestSummary_Record_UnsetStatus(t *testing.T) {
	var s Summary
	var unset Status
	s.Record(unset)

	assert.Equal(t, Summary{}, s)
	assert.Equal(t, "unknown", unset.String())
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "success", Success.String())
	assert.Equal(t, "failed", Failed.String())
	assert.Equal(t, "skipped", Skipped.String())
	assert.Equal(t, "unknown", Status(42).String())
}

func TestSummary_Log(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	s := Summary{Successful: 3, Failed: 1, Skipped: 2}
	s.Log(logger, "face cropping")

	out := buf.String()
	assert.Contains(t, out, "FACE CROPPING COMPLETE")
	assert.Contains(t, out, "successful=3")
	assert.Contains(t, out, "failed=1")
	assert.Contains(t, out, "skipped=2")
	assert.Contains(t, out, "total=6")
}

func TestTick(t *testing.T) {
	p := &countingProgress{}
	Tick(p)
	Tick(p)
	Tick(nil)

	assert.Equal(t, 2, p.n)
}
