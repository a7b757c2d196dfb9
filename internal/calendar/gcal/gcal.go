// Package gcal is a calendar.Provider for the Google Calendar API.
package gcal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	gcalendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"shiftcal/internal/calendar"
	appLog "shiftcal/internal/log"
)

// UIDProperty is the private extended property that carries the shift uid.
const UIDProperty = "shiftcalUID"

// Provider talks to one authenticated Google account.
type Provider struct {
	svc *gcalendar.Service
}

// New authenticates with a service-account or OAuth client credentials file.
func New(ctx context.Context, credentialsFile string) (*Provider, error) {
	if credentialsFile == "" {
		return nil, errors.New("gcal: credentials file is required")
	}
	return NewWithOptions(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(gcalendar.CalendarScope),
	)
}

// NewWithOptions builds a Provider from raw client options.
func NewWithOptions(ctx context.Context, opts ...option.ClientOption) (*Provider, error) {
	svc, err := gcalendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gcal: new service: %w", err)
	}
	return &Provider{svc: svc}, nil
}

// ListCalendars walks every page of the account's calendar list.
func (p *Provider) ListCalendars(ctx context.Context) ([]calendar.Calendar, error) {
	var cals []calendar.Calendar
	err := p.svc.CalendarList.List().Pages(ctx, func(page *gcalendar.CalendarList) error {
		for _, item := range page.Items {
			cals = append(cals, calendar.Calendar{
				ID:                  item.Id,
				Title:               item.Summary,
				IsPrimary:           item.Primary,
				AllowsModifications: item.AccessRole == "owner" || item.AccessRole == "writer",
			})
		}
		return nil
	})
	if err != nil {
		return nil, mapError(err)
	}
	return cals, nil
}

// CreateEvent inserts ev and returns the server-assigned event id.
func (p *Provider) CreateEvent(ctx context.Context, calendarID string, ev calendar.Event) (string, error) {
	body := &gcalendar.Event{
		Summary: ev.Title,
		Start:   dateTime(ev.Start, ev.TimeZone),
		End:     dateTime(ev.End, ev.TimeZone),
		Reminders: &gcalendar.EventReminders{
			UseDefault:      false,
			ForceSendFields: []string{"UseDefault"},
		},
	}
	if ev.UID != "" {
		body.ExtendedProperties = &gcalendar.EventExtendedProperties{
			Private: map[string]string{UIDProperty: ev.UID},
		}
	}
	for _, r := range ev.Reminders {
		body.Reminders.Overrides = append(body.Reminders.Overrides, &gcalendar.EventReminder{
			Method:  reminderMethod(r.Method),
			Minutes: int64(r.OffsetMinutes),
		})
	}

	created, err := p.svc.Events.Insert(calendarID, body).Context(ctx).Do()
	if err != nil {
		return "", mapError(err)
	}
	appLog.Debug("gcal event inserted", "calendar_id", calendarID, "event_id", created.Id)
	return created.Id, nil
}

func dateTime(t time.Time, tz string) *gcalendar.EventDateTime {
	if tz != "" {
		if loc, err := time.LoadLocation(tz); err == nil {
			t = t.In(loc)
		}
	}
	return &gcalendar.EventDateTime{
		DateTime: t.Format(time.RFC3339),
		TimeZone: tz,
	}
}

func reminderMethod(m string) string {
	if m == calendar.MethodEmail {
		return "email"
	}
	return "popup"
}

// mapError turns 401/403 responses into calendar.ErrPermissionDenied.
func mapError(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %s", calendar.ErrPermissionDenied, gerr.Message)
		}
	}
	return err
}
