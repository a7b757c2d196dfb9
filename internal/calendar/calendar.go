// Package calendar writes shift batches into a native calendar through a
// Provider. Providers live in subpackages: gcal (Google Calendar API) and
// dircal (a local directory of .ics files).
package calendar

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNoWritableCalendar means no calendar is primary or accepts
	// modifications. Nothing is written.
	ErrNoWritableCalendar = errors.New("no writable calendar")
	// ErrPermissionDenied is returned by providers when calendar access was
	// refused.
	ErrPermissionDenied = errors.New("calendar permission denied")
	// ErrWriteFailed marks a single event creation failure inside a Report.
	ErrWriteFailed = errors.New("event creation failed")
)

// Calendar is one calendar a Provider exposes.
type Calendar struct {
	ID                  string `json:"id"`
	Title               string `json:"title"`
	IsPrimary           bool   `json:"isPrimary"`
	AllowsModifications bool   `json:"allowsModifications"`
}

// Reminder methods.
const (
	MethodAlert = "alert"
	MethodEmail = "email"
)

// Reminder fires OffsetMinutes before the event start.
type Reminder struct {
	OffsetMinutes int    `json:"offsetMinutes"`
	Method        string `json:"method"`
}

// Event is the creation request for one shift.
type Event struct {
	UID       string
	Title     string
	Start     time.Time
	End       time.Time
	TimeZone  string
	Reminders []Reminder
}

// Provider abstracts a calendar store the user can write to.
type Provider interface {
	ListCalendars(ctx context.Context) ([]Calendar, error)
	CreateEvent(ctx context.Context, calendarID string, ev Event) (string, error)
}

// SelectTarget picks the first primary calendar, else the first calendar
// that accepts modifications. List order only matters within each rule.
func SelectTarget(cals []Calendar) (Calendar, error) {
	for _, c := range cals {
		if c.IsPrimary {
			return c, nil
		}
	}
	for _, c := range cals {
		if c.AllowsModifications {
			return c, nil
		}
	}
	return Calendar{}, ErrNoWritableCalendar
}
