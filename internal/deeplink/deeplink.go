// Package deeplink builds Google Calendar "quick add" URLs for one shift.
package deeplink

import (
	"net/url"
	"strings"
	"time"

	"shiftcal/internal/ics"
	"shiftcal/internal/model"
)

const baseURL = "https://www.google.com/calendar/render"

// Dates returns the "<start>/<end>" range in local YYYYMMDDTHHMMSS form.
func Dates(s model.Shift, loc *time.Location) string {
	return ics.Stamp(s.Start, loc) + "/" + ics.Stamp(s.End, loc)
}

// Build returns the quick-add URL for s. The title is percent-encoded the
// way encodeURIComponent does it, so spaces become %20.
func Build(s model.Shift, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	var b strings.Builder
	b.WriteString(baseURL)
	b.WriteString("?action=TEMPLATE&text=")
	b.WriteString(escape(s.Title))
	b.WriteString("&dates=")
	b.WriteString(Dates(s, loc))
	b.WriteString("&ctz=")
	b.WriteString(loc.String())
	return b.String()
}

// uriComponent undoes QueryEscape for the characters encodeURIComponent
// leaves alone.
var uriComponent = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

func escape(s string) string {
	return uriComponent.Replace(url.QueryEscape(s))
}
