package ics

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shiftcal/internal/model"
)

func tokyo(t *testing.T) *time.Location {
	t.Helper()
	loc, err := model.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)
	return loc
}

// lines splits a document on CRLF or LF and unfolds continuation lines.
func lines(doc string) []string {
	doc = strings.ReplaceAll(doc, "\r\n", "\n")
	doc = strings.ReplaceAll(doc, "\n ", "")
	return strings.Split(strings.TrimRight(doc, "\n"), "\n")
}

func shiftsFor(t *testing.T, records ...model.Record) []model.Shift {
	t.Helper()
	shifts, err := model.ValidateAll(records, tokyo(t))
	require.NoError(t, err)
	return shifts
}

func TestEncode_SingleShiftLines(t *testing.T) {
	shifts := shiftsFor(t, model.Record{ID: 0, UID: "uid-0", Date: "2024-02-10", StartTime: "09:00", EndTime: "17:30", Title: "Shift A"})

	got := lines(Encode(shifts, Options{ProductID: "Shift Calendar App", Location: tokyo(t)}))

	assert.Equal(t, "BEGIN:VCALENDAR", got[0])
	assert.Equal(t, "END:VCALENDAR", got[len(got)-1])
	assert.Contains(t, got, "VERSION:2.0")
	assert.Contains(t, got, "PRODID:-//Shift Calendar App//EN")
	assert.Contains(t, got, "BEGIN:VEVENT")
	assert.Contains(t, got, "UID:uid-0")
	assert.Contains(t, got, "SUMMARY:Shift A")
	assert.Contains(t, got, "DTSTART;TZID=Asia/Tokyo:20240210T090000")
	assert.Contains(t, got, "DTEND;TZID=Asia/Tokyo:20240210T173000")
	assert.Contains(t, got, "END:VEVENT")
}

func TestEncode_OrderAndCountFollowBatch(t *testing.T) {
	shifts := shiftsFor(t,
		model.Record{ID: 4, UID: "d", Date: "2024-03-04", StartTime: "09:00", EndTime: "10:00", Title: "late"},
		model.Record{ID: 0, UID: "a", Date: "2024-03-01", StartTime: "09:00", EndTime: "10:00", Title: "early"},
		model.Record{ID: 2, UID: "c", Date: "2024-03-03", StartTime: "09:00", EndTime: "10:00", Title: "middle"},
	)
	doc := Encode(shifts, Options{ProductID: "p", Location: tokyo(t)})

	var summaries []string
	begins := 0
	for _, l := range lines(doc) {
		if l == "BEGIN:VEVENT" {
			begins++
		}
		if strings.HasPrefix(l, "SUMMARY:") {
			summaries = append(summaries, strings.TrimPrefix(l, "SUMMARY:"))
		}
	}
	assert.Equal(t, 3, begins)
	assert.Equal(t, []string{"late", "early", "middle"}, summaries)
}

func TestEncode_Deterministic(t *testing.T) {
	shifts := shiftsFor(t,
		model.Record{ID: 0, UID: "a", Date: "2024-03-01", StartTime: "09:00", EndTime: "10:00", Title: "x"},
		model.Record{ID: 1, Date: "2024-03-02", StartTime: "09:00", EndTime: "10:00", Title: "y"},
	)
	opts := Options{ProductID: "p", Location: tokyo(t)}
	assert.Equal(t, Encode(shifts, opts), Encode(shifts, opts))
	assert.Contains(t, lines(Encode(shifts, opts)), "UID:shift-1@shiftcal")
}

func TestEncode_EmptyBatch(t *testing.T) {
	got := lines(Encode(nil, Options{ProductID: "p", Location: tokyo(t)}))
	assert.Equal(t, "BEGIN:VCALENDAR", got[0])
	assert.NotContains(t, got, "BEGIN:VEVENT")
}

func TestEncode_ConvertsToDocumentZone(t *testing.T) {
	start := time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC)
	doc := EncodeEvents([]Event{{UID: "u", Summary: "s", Start: start, End: start.Add(time.Hour)}},
		Options{ProductID: "p", Location: tokyo(t)})
	assert.Contains(t, lines(doc), "DTSTART;TZID=Asia/Tokyo:20240210T090000")
}

func TestDecode_RoundTrip(t *testing.T) {
	loc := tokyo(t)
	start := time.Date(2024, 2, 10, 9, 0, 0, 0, loc)
	in := []Event{{
		UID:     "uid-1",
		Summary: "Early shift",
		Start:   start,
		End:     start.Add(8*time.Hour + 30*time.Minute),
		Alarms:  []Alarm{{Before: time.Hour}},
	}}

	out, err := Decode([]byte(EncodeEvents(in, Options{ProductID: "p", Location: loc})))
	require.NoError(t, err)
	require.Len(t, out, 1)

	assert.Equal(t, "uid-1", out[0].UID)
	assert.Equal(t, "Early shift", out[0].Summary)
	assert.Equal(t, "Asia/Tokyo", out[0].TZID)
	assert.True(t, out[0].Start.Equal(in[0].Start), "start %v", out[0].Start)
	assert.True(t, out[0].End.Equal(in[0].End), "end %v", out[0].End)
	require.Len(t, out[0].Alarms, 1)
	assert.Equal(t, time.Hour, out[0].Alarms[0].Before)
}

func TestDecode_SkipsEventsWithoutUID(t *testing.T) {
	body := "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:-//x//EN\r\n" +
		"BEGIN:VEVENT\r\nSUMMARY:no uid\r\nDTSTART:20240210T090000Z\r\nEND:VEVENT\r\n" +
		"BEGIN:VEVENT\r\nUID:ok\r\nSUMMARY:fine\r\nDTSTART:20240210T090000Z\r\nDTEND:20240210T100000Z\r\nEND:VEVENT\r\n" +
		"END:VCALENDAR\r\n"
	out, err := Decode([]byte(body))
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "ok", out[0].UID)
}

func TestDecode_Empty(t *testing.T) {
	_, err := Decode(nil)
	assert.Error(t, err)
}

func TestParseTrigger(t *testing.T) {
	d, ok := parseTrigger("-PT60M")
	assert.True(t, ok)
	assert.Equal(t, time.Hour, d)

	_, ok = parseTrigger("PT5M")
	assert.False(t, ok)
}

func TestEncode_StampsMatchRecordDigitsAcrossDST(t *testing.T) {
	ny, err := model.LoadLocation("America/New_York")
	require.NoError(t, err)

	records := []model.Record{
		{ID: 0, UID: "a", Date: "2024-03-10", StartTime: "03:30", EndTime: "11:00", Title: "After spring forward"},
		{ID: 1, UID: "b", Date: "2024-11-03", StartTime: "01:30", EndTime: "09:00", Title: "Fall back"},
	}
	shifts, err := model.ValidateAll(records, ny)
	require.NoError(t, err)

	got := lines(Encode(shifts, Options{ProductID: "p", Location: ny}))
	assert.Contains(t, got, "DTSTART;TZID=America/New_York:20240310T033000")
	assert.Contains(t, got, "DTEND;TZID=America/New_York:20240310T110000")
	assert.Contains(t, got, "DTSTART;TZID=America/New_York:20241103T013000")

	_, err = model.ValidateAll([]model.Record{
		{ID: 2, Date: "2024-03-10", StartTime: "02:30", EndTime: "09:00"},
	}, ny)
	assert.ErrorIs(t, err.(model.ValidationErrors)[0], model.ErrNonexistentTime)
}
