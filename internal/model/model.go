package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"
)

// Layouts of the textual date and time fields carried by a Record.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// ErrEmptyBatch is returned when a batch with no records is handed to a
// materializer.
var ErrEmptyBatch = errors.New("no shifts to register")

// ErrNonexistentTime means the wall-clock time falls in a DST gap of the
// zone and cannot be represented as written.
var ErrNonexistentTime = errors.New("time does not exist in this zone")

// Field names one editable attribute of a Record.
type Field string

const (
	FieldDate      Field = "date"
	FieldStartTime Field = "startTime"
	FieldEndTime   Field = "endTime"
	FieldTitle     Field = "title"
)

// ParseField maps the wire name of a field to a Field.
func ParseField(s string) (Field, bool) {
	switch f := Field(s); f {
	case FieldDate, FieldStartTime, FieldEndTime, FieldTitle:
		return f, true
	}
	return "", false
}

// Record is one extracted shift as the user sees and edits it. Every field
// is free-form text until Validate is called.
type Record struct {
	// ID is the zero-based position the record had in its extraction
	// response. It is never renumbered.
	ID int `json:"id"`
	// UID is assigned once at extraction and becomes the calendar event UID.
	UID string `json:"uid"`

	Date      string `json:"date"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	Title     string `json:"title"`
}

// Get returns the value of the named field.
func (r Record) Get(f Field) string {
	switch f {
	case FieldDate:
		return r.Date
	case FieldStartTime:
		return r.StartTime
	case FieldEndTime:
		return r.EndTime
	case FieldTitle:
		return r.Title
	}
	return ""
}

// With returns a copy of r with the named field replaced. Unknown fields
// leave the record unchanged.
func (r Record) With(f Field, value string) Record {
	switch f {
	case FieldDate:
		r.Date = value
	case FieldStartTime:
		r.StartTime = value
	case FieldEndTime:
		r.EndTime = value
	case FieldTitle:
		r.Title = value
	}
	return r
}

// Shift is a Record whose date and times parsed. Materializers only
// consume Shifts.
type Shift struct {
	RecordID int
	UID      string
	Title    string
	Start    time.Time
	End      time.Time
}

// FieldError reports a record field that did not parse.
type FieldError struct {
	RecordID int    `json:"id"`
	Field    Field  `json:"field"`
	Value    string `json:"value"`
	Err      error  `json:"-"`
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("record %d: invalid %s %q: %v", e.RecordID, e.Field, e.Value, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

// ValidationErrors collects every FieldError found in a batch.
type ValidationErrors []*FieldError

func (v ValidationErrors) Error() string {
	msgs := make([]string, 0, len(v))
	for _, e := range v {
		msgs = append(msgs, e.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate parses the date and both times in loc. The first failing field
// is returned as a *FieldError. An end before the start is accepted.
func (r Record) Validate(loc *time.Location) (Shift, error) {
	errs := r.validate(loc)
	if len(errs) > 0 {
		return Shift{}, errs[0]
	}
	start, _ := parseLocal(r.Date, r.StartTime, loc)
	end, _ := parseLocal(r.Date, r.EndTime, loc)
	return Shift{
		RecordID: r.ID,
		UID:      r.UID,
		Title:    r.Title,
		Start:    start,
		End:      end,
	}, nil
}

func (r Record) validate(loc *time.Location) ValidationErrors {
	var errs ValidationErrors
	if _, err := time.ParseInLocation(DateLayout, strings.TrimSpace(r.Date), loc); err != nil {
		errs = append(errs, &FieldError{RecordID: r.ID, Field: FieldDate, Value: r.Date, Err: err})
	}
	dateOK := len(errs) == 0
	for _, f := range []Field{FieldStartTime, FieldEndTime} {
		v := r.Get(f)
		clock, err := time.Parse(TimeLayout, strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, &FieldError{RecordID: r.ID, Field: f, Value: v, Err: err})
			continue
		}
		if !dateOK {
			continue
		}
		// A wall-clock time skipped by a DST transition would be normalized
		// to another hour.
		t, _ := parseLocal(r.Date, v, loc)
		if t.Hour() != clock.Hour() || t.Minute() != clock.Minute() {
			errs = append(errs, &FieldError{RecordID: r.ID, Field: f, Value: v, Err: ErrNonexistentTime})
		}
	}
	return errs
}

// ValidateAll validates every record. On any failure no shifts are returned
// and the error is a ValidationErrors listing all bad fields in batch order.
func ValidateAll(records []Record, loc *time.Location) ([]Shift, error) {
	var all ValidationErrors
	for _, r := range records {
		all = append(all, r.validate(loc)...)
	}
	if len(all) > 0 {
		return nil, all
	}

	shifts := make([]Shift, 0, len(records))
	for _, r := range records {
		s, err := r.Validate(loc)
		if err != nil {
			return nil, ValidationErrors{asFieldError(err)}
		}
		shifts = append(shifts, s)
	}
	return shifts, nil
}

func asFieldError(err error) *FieldError {
	var fe *FieldError
	if errors.As(err, &fe) {
		return fe
	}
	return &FieldError{Err: err}
}

func parseLocal(date, clock string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(DateLayout+" "+TimeLayout, strings.TrimSpace(date)+" "+strings.TrimSpace(clock), loc)
}

// LoadLocation resolves an IANA zone name using the embedded tz database,
// so hosts without zoneinfo still resolve Asia/Tokyo.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" {
		return nil, errors.New("model: empty time zone name")
	}
	return time.LoadLocation(name)
}
