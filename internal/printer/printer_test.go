package printer

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shiftcal/internal/calendar"
	"shiftcal/internal/model"
)

func newTestPrinter() (*Printer, *bytes.Buffer, *bytes.Buffer) {
	DisableColor()
	var out, errOut bytes.Buffer
	return New(&out, &errOut), &out, &errOut
}

func TestError(t *testing.T) {
	t.Run("returns error with title only", func(t *testing.T) {
		p, _, errOut := newTestPrinter()
		err := p.Error("Gemini not configured", "No API key was found.", nil)
		require.Error(t, err)
		assert.Equal(t, "Gemini not configured", err.Error())
		assert.Contains(t, errOut.String(), "No API key was found.")
	})

	t.Run("single suggestion is printed plainly", func(t *testing.T) {
		p, _, errOut := newTestPrinter()
		_ = p.Error("T", "E", []string{"Set GEMINI_API_KEY"})
		assert.Contains(t, errOut.String(), "\nSet GEMINI_API_KEY\n")
		assert.NotContains(t, errOut.String(), "Either:")
	})

	t.Run("multiple suggestions are numbered", func(t *testing.T) {
		p, _, errOut := newTestPrinter()
		_ = p.Error("T", "E", []string{"first", "second"})
		assert.Contains(t, errOut.String(), "Either:\n  1. first\n  2. second\n")
	})
}

func TestRecords(t *testing.T) {
	p, out, _ := newTestPrinter()
	p.Records([]model.Record{
		{ID: 0, Date: "2024-02-10", StartTime: "09:00", EndTime: "17:30", Title: "Early"},
	})
	assert.Contains(t, out.String(), "ID")
	assert.Contains(t, out.String(), "2024-02-10")
	assert.Contains(t, out.String(), "Early")

	out.Reset()
	p.Records(nil)
	assert.Equal(t, "(no shifts)\n", out.String())
}

func TestCalendarsMarksTarget(t *testing.T) {
	p, out, _ := newTestPrinter()
	p.Calendars([]calendar.Calendar{
		{ID: "a", Title: "Team", AllowsModifications: true},
		{ID: "b", Title: "Me", IsPrimary: true},
	}, "b")
	lines := bytes.Split(bytes.TrimSpace(out.Bytes()), []byte("\n"))
	require.Len(t, lines, 3)
	assert.True(t, bytes.HasPrefix(lines[2], []byte("*")))
	assert.False(t, bytes.HasPrefix(lines[1], []byte("*")))
}

func TestReport(t *testing.T) {
	p, out, _ := newTestPrinter()
	p.Report(calendar.Report{CalendarID: "c", Attempted: 2, Succeeded: 2})
	assert.Contains(t, out.String(), "✓ 2 shift(s) registered in calendar c")

	out.Reset()
	p.Report(calendar.Report{
		CalendarID: "c",
		Attempted:  2,
		Succeeded:  1,
		Failures: []calendar.Failure{{
			Record: model.Record{ID: 1, Date: "2024-02-11", Title: "Late"},
			Cause:  errors.New("boom"),
		}},
	})
	assert.Contains(t, out.String(), "1 of 2 shift(s)")
	assert.Contains(t, out.String(), "#1 2024-02-11 Late: boom")
}
