package ics

import (
	"fmt"
	"time"

	ical "github.com/arran4/golang-ical"

	"shiftcal/internal/model"
)

const (
	// Filename is the download name for an exported batch.
	Filename = "shifts.ics"
	// ContentType is the MIME type an exported batch is served with.
	ContentType = "text/calendar;charset=utf-8"

	// stampLayout renders local wall-clock time as YYYYMMDDTHHMMSS.
	stampLayout = "20060102T150405"
)

// Options controls document-level properties.
type Options struct {
	// ProductID is inserted as PRODID:-//<ProductID>//EN.
	ProductID string
	// Location is the single zone every DTSTART/DTEND is qualified with.
	Location *time.Location
}

// Alarm is a display reminder that fires Before the event start.
type Alarm struct {
	Before time.Duration
}

// Event is one VEVENT as written to or read from a calendar file.
type Event struct {
	UID     string
	Summary string
	Start   time.Time
	End     time.Time
	// TZID is set by Decode from the DTSTART parameter.
	TZID   string
	Alarms []Alarm
}

// Stamp formats t as local wall-clock YYYYMMDDTHHMMSS in loc.
func Stamp(t time.Time, loc *time.Location) string {
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format(stampLayout)
}

// Encode renders the batch as one calendar document: a VEVENT per shift in
// batch order carrying UID, SUMMARY, DTSTART and DTEND. The output depends
// only on its inputs.
func Encode(shifts []model.Shift, opts Options) string {
	events := make([]Event, 0, len(shifts))
	for _, s := range shifts {
		uid := s.UID
		if uid == "" {
			uid = fmt.Sprintf("shift-%d@shiftcal", s.RecordID)
		}
		events = append(events, Event{
			UID:     uid,
			Summary: s.Title,
			Start:   s.Start,
			End:     s.End,
		})
	}
	return EncodeEvents(events, opts)
}

// EncodeEvents renders arbitrary events, including their alarms.
func EncodeEvents(events []Event, opts Options) string {
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	tzid := &ical.KeyValues{Key: string(ical.ParameterTzid), Value: []string{loc.String()}}

	cal := ical.NewCalendar()
	cal.SetVersion("2.0")
	cal.SetProductId("-//" + opts.ProductID + "//EN")

	for _, ev := range events {
		ve := cal.AddEvent(ev.UID)
		ve.SetSummary(ev.Summary)
		ve.SetProperty(ical.ComponentPropertyDtStart, Stamp(ev.Start, loc), tzid)
		ve.SetProperty(ical.ComponentPropertyDtEnd, Stamp(ev.End, loc), tzid)

		for _, a := range ev.Alarms {
			alarm := ve.AddAlarm()
			alarm.SetAction(ical.ActionDisplay)
			alarm.SetTrigger(fmt.Sprintf("-PT%dM", int(a.Before/time.Minute)))
		}
	}

	return cal.Serialize()
}
