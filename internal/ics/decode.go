package ics

import (
	"bytes"
	"errors"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "shiftcal/internal/log"
)

var textUnescaper = strings.NewReplacer(`\\`, `\`, `\;`, `;`, `\,`, `,`, `\n`, "\n", `\N`, "\n")

// Decode parses a calendar file into events.
//
//   - DTSTART/DTEND go through the library's TZID handling.
//   - A VEVENT that lacks a UID or a start is logged and skipped; the rest
//     are still returned.
//   - Alarms are read back from -PT<n>M triggers only.
func Decode(body []byte) ([]Event, error) {
	if len(body) == 0 {
		return nil, errors.New("empty ICS body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		appLog.Error("ics parse failed", err)
		return nil, err
	}

	events := make([]Event, 0)
	for _, comp := range cal.Events() {
		ev, perr := decodeVEvent(comp)
		if perr != nil {
			appLog.Error("ics vevent parse failed", perr)
			continue
		}
		events = append(events, ev)
	}

	appLog.Debug("ics parse completed", "event_count", len(events))
	return events, nil
}

func decodeVEvent(ve *ical.VEvent) (Event, error) {
	var out Event

	uidProp := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uidProp == nil || uidProp.Value == "" {
		return out, errors.New("missing UID")
	}
	out.UID = uidProp.Value

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Summary = textUnescaper.Replace(p.Value)
	}

	start, err := ve.GetStartAt()
	if err != nil {
		return out, err
	}
	out.Start = start
	if end, err := ve.GetEndAt(); err == nil {
		out.End = end
	}

	if dt := ve.GetProperty(ical.ComponentPropertyDtStart); dt != nil {
		if tzs, ok := dt.ICalParameters[string(ical.ParameterTzid)]; ok && len(tzs) > 0 {
			out.TZID = tzs[0]
		}
	}

	for _, alarm := range ve.Alarms() {
		trig := alarm.GetProperty(ical.ComponentPropertyTrigger)
		if trig == nil {
			continue
		}
		if d, ok := parseTrigger(trig.Value); ok {
			out.Alarms = append(out.Alarms, Alarm{Before: d})
		}
	}

	return out, nil
}

// parseTrigger understands the -PT<n>M / -PT<n>H forms written by
// EncodeEvents.
func parseTrigger(v string) (time.Duration, bool) {
	v = strings.TrimSpace(v)
	if !strings.HasPrefix(v, "-PT") {
		return 0, false
	}
	d, err := time.ParseDuration(strings.ToLower(v[3:]))
	if err != nil || d <= 0 {
		return 0, false
	}
	return d, true
}
