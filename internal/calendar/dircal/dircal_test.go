package dircal

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shiftcal/internal/calendar"
	"shiftcal/internal/model"
)

func TestEnsureDefault(t *testing.T) {
	p := New(filepath.Join(t.TempDir(), "cals"), "Shift Calendar App")

	require.NoError(t, p.EnsureDefault())
	require.NoError(t, p.EnsureDefault())

	cals, err := p.ListCalendars(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []calendar.Calendar{
		{ID: DefaultID, Title: "Shifts", IsPrimary: true, AllowsModifications: true},
	}, cals)
}

func TestListCalendars_MissingRootIsEmpty(t *testing.T) {
	p := New(filepath.Join(t.TempDir(), "nope"), "x")
	cals, err := p.ListCalendars(context.Background())
	require.NoError(t, err)
	assert.Empty(t, cals)
}

func TestListCalendars_SkipsBrokenMeta(t *testing.T) {
	root := t.TempDir()
	p := New(root, "x")
	require.NoError(t, p.AddCalendar("work", "Work", false, false))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "junk"), 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(root, "junk", metaFile), []byte("{"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(root, "stray.txt"), []byte("hi"), 0o600))

	cals, err := p.ListCalendars(context.Background())
	require.NoError(t, err)
	require.Len(t, cals, 1)
	assert.Equal(t, "work", cals[0].ID)
}

func TestCreateEvent_RoundTrip(t *testing.T) {
	loc, err := model.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)

	p := New(t.TempDir(), "Shift Calendar App")
	require.NoError(t, p.AddCalendar("work", "Work", true, false))

	start := time.Date(2024, 2, 10, 9, 0, 0, 0, loc)
	id, err := p.CreateEvent(context.Background(), "work", calendar.Event{
		UID:       "abc-123",
		Title:     "Early",
		Start:     start,
		End:       start.Add(8*time.Hour + 30*time.Minute),
		TimeZone:  "Asia/Tokyo",
		Reminders: []calendar.Reminder{{OffsetMinutes: 60, Method: calendar.MethodAlert}},
	})
	require.NoError(t, err)
	assert.Equal(t, "abc-123", id)

	events, err := p.Events("work")
	require.NoError(t, err)
	require.Len(t, events, 1)

	ev := events[0]
	assert.Equal(t, "abc-123", ev.UID)
	assert.Equal(t, "Early", ev.Summary)
	assert.Equal(t, "Asia/Tokyo", ev.TZID)
	assert.True(t, ev.Start.Equal(start), "start %s", ev.Start)
	require.Len(t, ev.Alarms, 1)
	assert.Equal(t, time.Hour, ev.Alarms[0].Before)
}

func TestCreateEvent_ReadOnlyIsPermissionDenied(t *testing.T) {
	p := New(t.TempDir(), "x")
	require.NoError(t, p.AddCalendar("holidays", "Holidays", false, true))

	_, err := p.CreateEvent(context.Background(), "holidays", calendar.Event{UID: "u1", Title: "t"})
	assert.ErrorIs(t, err, calendar.ErrPermissionDenied)
}

func TestCreateEvent_RejectsPathEscapes(t *testing.T) {
	p := New(t.TempDir(), "x")
	require.NoError(t, p.AddCalendar("work", "Work", true, false))

	_, err := p.CreateEvent(context.Background(), "../work", calendar.Event{UID: "u1"})
	assert.Error(t, err)
	_, err = p.CreateEvent(context.Background(), "work", calendar.Event{UID: "../../etc"})
	assert.Error(t, err)
	assert.Error(t, p.AddCalendar("a/b", "x", false, false))
}

func TestMaterializerAgainstDirectory(t *testing.T) {
	loc, err := model.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)

	p := New(t.TempDir(), "x")
	require.NoError(t, p.AddCalendar("archive", "Archive", false, true))
	require.NoError(t, p.AddCalendar("shifts", "Shifts", false, false))

	recs := []model.Record{
		{ID: 0, UID: "u0", Date: "2024-02-10", StartTime: "09:00", EndTime: "17:30", Title: "A"},
		{ID: 1, UID: "u1", Date: "2024-02-11", StartTime: "22:00", EndTime: "06:00", Title: "B"},
	}
	report, err := calendar.NewMaterializer(p, loc, 60).Commit(context.Background(), recs)
	require.NoError(t, err)
	assert.Equal(t, "shifts", report.CalendarID)
	assert.True(t, report.Complete())

	events, err := p.Events("shifts")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "A", events[0].Summary)
	assert.Equal(t, "B", events[1].Summary)
}
