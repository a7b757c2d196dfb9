package calendar

import (
	"context"
	"errors"
	"fmt"
	"time"

	appLog "shiftcal/internal/log"
	"shiftcal/internal/model"
)

// Failure records why one record was not written.
type Failure struct {
	Record model.Record `json:"record"`
	Cause  error        `json:"-"`
}

// Report is the outcome of one Commit.
type Report struct {
	CalendarID string    `json:"calendarId"`
	Attempted  int       `json:"attempted"`
	Succeeded  int       `json:"succeeded"`
	Failures   []Failure `json:"failures"`
	// EventIDs maps record ids to the provider's event ids.
	EventIDs map[int]string `json:"eventIds"`
}

// Complete reports whether every attempted record was written.
func (r Report) Complete() bool {
	return r.Succeeded == r.Attempted
}

// Materializer commits record batches to the target calendar of a Provider.
type Materializer struct {
	provider        Provider
	loc             *time.Location
	reminderMinutes int
}

// NewMaterializer builds a Materializer. Every event is anchored to loc
// and gets one alert reminderMinutes before its start.
func NewMaterializer(p Provider, loc *time.Location, reminderMinutes int) *Materializer {
	if loc == nil {
		loc = time.Local
	}
	return &Materializer{provider: p, loc: loc, reminderMinutes: reminderMinutes}
}

// Target lists calendars and resolves the one Commit would write to.
func (m *Materializer) Target(ctx context.Context) (Calendar, []Calendar, error) {
	cals, err := m.provider.ListCalendars(ctx)
	if err != nil {
		return Calendar{}, nil, fmt.Errorf("calendar: list calendars: %w", err)
	}
	appLog.Info("calendar list loaded", "calendar_count", len(cals))

	target, err := SelectTarget(cals)
	if err != nil {
		return Calendar{}, cals, err
	}
	return target, cals, nil
}

// Commit resolves the target calendar and then creates one event per record,
// strictly in batch order and one at a time. A record that fails validation
// or creation is logged and listed in the report; the loop continues.
// An empty batch, a listing failure or ErrNoWritableCalendar abort before
// any write.
func (m *Materializer) Commit(ctx context.Context, records []model.Record) (Report, error) {
	if len(records) == 0 {
		return Report{}, model.ErrEmptyBatch
	}

	target, _, err := m.Target(ctx)
	if err != nil {
		return Report{}, err
	}

	report := Report{
		CalendarID: target.ID,
		EventIDs:   make(map[int]string, len(records)),
	}

	for _, rec := range records {
		report.Attempted++

		id, err := m.commitOne(ctx, target.ID, rec)
		if err != nil {
			appLog.Error("calendar event create failed", err, "record_id", rec.ID, "calendar_id", target.ID)
			report.Failures = append(report.Failures, Failure{Record: rec, Cause: err})
			continue
		}

		report.Succeeded++
		report.EventIDs[rec.ID] = id
		appLog.Debug("calendar event created", "record_id", rec.ID, "calendar_id", target.ID, "event_id", id)
	}

	appLog.Info("calendar commit finished",
		"calendar_id", target.ID,
		"attempted", report.Attempted,
		"succeeded", report.Succeeded,
	)
	return report, nil
}

func (m *Materializer) commitOne(ctx context.Context, calendarID string, rec model.Record) (string, error) {
	shift, err := rec.Validate(m.loc)
	if err != nil {
		return "", err
	}

	ev := Event{
		UID:      shift.UID,
		Title:    shift.Title,
		Start:    shift.Start,
		End:      shift.End,
		TimeZone: m.loc.String(),
		Reminders: []Reminder{
			{OffsetMinutes: m.reminderMinutes, Method: MethodAlert},
		},
	}

	id, err := m.provider.CreateEvent(ctx, calendarID, ev)
	if err != nil {
		if errors.Is(err, ErrPermissionDenied) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	return id, nil
}
