// Package dircal is a calendar.Provider backed by a local directory.
//
// Each calendar is a subdirectory of the root holding a meta.json and one
// <uid>.ics file per created event. Any client that imports .ics files (or
// syncs a folder) can pick the events up from there.
package dircal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"shiftcal/internal/calendar"
	"shiftcal/internal/ics"
	appLog "shiftcal/internal/log"
)

const (
	metaFile = "meta.json"
	// DefaultID is the calendar EnsureDefault creates.
	DefaultID = "default"
)

// meta is the on-disk description of one calendar directory.
type meta struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Primary  bool   `json:"primary"`
	ReadOnly bool   `json:"read_only"`
}

// Provider stores calendars as directories under root.
type Provider struct {
	root      string
	productID string
}

// New returns a Provider rooted at dir. productID is written into every
// event file's PRODID.
func New(dir, productID string) *Provider {
	if dir == "" {
		dir = "./var/calendars"
	}
	return &Provider{root: dir, productID: productID}
}

// Root returns the directory the provider reads and writes.
func (p *Provider) Root() string { return p.root }

// EnsureDefault creates a primary, writable calendar named DefaultID when
// the root holds no calendars yet.
func (p *Provider) EnsureDefault() error {
	cals, err := p.ListCalendars(context.Background())
	if err != nil {
		return err
	}
	if len(cals) > 0 {
		return nil
	}
	appLog.Info("dircal creating default calendar", "root", p.root)
	return p.AddCalendar(DefaultID, "Shifts", true, false)
}

// AddCalendar creates (or overwrites the metadata of) one calendar.
func (p *Provider) AddCalendar(id, name string, primary, readOnly bool) error {
	if err := validID(id); err != nil {
		return err
	}
	dir := filepath.Join(p.root, id)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(&meta{ID: id, Name: name, Primary: primary, ReadOnly: readOnly}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, metaFile), data, 0o600)
}

// ListCalendars returns every subdirectory that carries a readable
// meta.json, sorted by id. Directories with broken metadata are skipped.
func (p *Provider) ListCalendars(ctx context.Context) ([]calendar.Calendar, error) {
	entries, err := os.ReadDir(p.root)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if errors.Is(err, os.ErrPermission) {
		return nil, fmt.Errorf("%w: %v", calendar.ErrPermissionDenied, err)
	}
	if err != nil {
		return nil, err
	}

	cals := make([]calendar.Calendar, 0, len(entries))
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !e.IsDir() {
			continue
		}
		m, err := p.loadMeta(e.Name())
		if err != nil {
			appLog.Error("dircal meta load failed", err, "dir", e.Name())
			continue
		}
		cals = append(cals, calendar.Calendar{
			ID:                  m.ID,
			Title:               m.Name,
			IsPrimary:           m.Primary,
			AllowsModifications: !m.ReadOnly,
		})
	}
	sort.Slice(cals, func(i, j int) bool { return cals[i].ID < cals[j].ID })
	return cals, nil
}

// CreateEvent writes ev as <uid>.ics into the calendar directory and
// returns the uid.
func (p *Provider) CreateEvent(ctx context.Context, calendarID string, ev calendar.Event) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := validID(calendarID); err != nil {
		return "", err
	}
	m, err := p.loadMeta(calendarID)
	if err != nil {
		return "", fmt.Errorf("dircal: calendar %q: %w", calendarID, err)
	}
	if m.ReadOnly {
		return "", fmt.Errorf("%w: calendar %q is read-only", calendar.ErrPermissionDenied, calendarID)
	}
	if err := validID(ev.UID); err != nil {
		return "", fmt.Errorf("dircal: event uid: %w", err)
	}

	loc := time.Local
	if ev.TimeZone != "" {
		if loc, err = time.LoadLocation(ev.TimeZone); err != nil {
			return "", err
		}
	}

	out := ics.Event{
		UID:     ev.UID,
		Summary: ev.Title,
		Start:   ev.Start,
		End:     ev.End,
	}
	for _, r := range ev.Reminders {
		out.Alarms = append(out.Alarms, ics.Alarm{Before: time.Duration(r.OffsetMinutes) * time.Minute})
	}
	body := ics.EncodeEvents([]ics.Event{out}, ics.Options{ProductID: p.productID, Location: loc})

	path := filepath.Join(p.root, calendarID, ev.UID+".ics")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		if errors.Is(err, os.ErrPermission) {
			return "", fmt.Errorf("%w: %v", calendar.ErrPermissionDenied, err)
		}
		return "", err
	}
	return ev.UID, nil
}

// Events reads back every event stored in a calendar, sorted by start.
func (p *Provider) Events(calendarID string) ([]ics.Event, error) {
	if err := validID(calendarID); err != nil {
		return nil, err
	}
	files, err := filepath.Glob(filepath.Join(p.root, calendarID, "*.ics"))
	if err != nil {
		return nil, err
	}

	var all []ics.Event
	for _, f := range files {
		body, err := os.ReadFile(f)
		if err != nil {
			appLog.Error("dircal event read failed", err, "file", f)
			continue
		}
		evs, err := ics.Decode(body)
		if err != nil {
			appLog.Error("dircal event decode failed", err, "file", f)
			continue
		}
		all = append(all, evs...)
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].Start.Before(all[j].Start) })
	return all, nil
}

func (p *Provider) loadMeta(id string) (meta, error) {
	var m meta
	data, err := os.ReadFile(filepath.Join(p.root, id, metaFile))
	if err != nil {
		return m, err
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return meta{}, err
	}
	// The directory name is authoritative.
	m.ID = id
	return m, nil
}

// validID rejects names that would escape the calendar root.
func validID(id string) error {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return fmt.Errorf("dircal: invalid id %q", id)
	}
	return nil
}
