// Package printer renders CLI output: colored status lines, shift tables
// and errors that carry suggestions.
package printer

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"

	"shiftcal/internal/calendar"
	"shiftcal/internal/model"
)

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed, color.Bold)
	cyan   = color.New(color.FgCyan)
	faint  = color.New(color.Faint)
)

// Printer writes to an output and an error stream.
type Printer struct {
	out io.Writer
	err io.Writer
}

// New returns a Printer. Nil writers default to stdout and stderr.
func New(out, errOut io.Writer) *Printer {
	if out == nil {
		out = os.Stdout
	}
	if errOut == nil {
		errOut = os.Stderr
	}
	return &Printer{out: out, err: errOut}
}

// DisableColor turns off ANSI colors for every Printer.
func DisableColor() { color.NoColor = true }

// Success prints a green line prefixed with a checkmark.
func (p *Printer) Success(format string, a ...any) {
	green.Fprintf(p.out, "✓ %s\n", fmt.Sprintf(format, a...))
}

// Info prints an uncolored line.
func (p *Printer) Info(format string, a ...any) {
	fmt.Fprintf(p.out, format+"\n", a...)
}

// Warning prints a yellow line.
func (p *Printer) Warning(format string, a ...any) {
	yellow.Fprintf(p.out, "! %s\n", fmt.Sprintf(format, a...))
}

// Step prints a cyan progress line.
func (p *Printer) Step(format string, a ...any) {
	cyan.Fprintf(p.out, "→ %s\n", fmt.Sprintf(format, a...))
}

// Error prints title, explanation and suggestions to the error stream and
// returns an error holding only the title, so cobra does not repeat the
// details.
func (p *Printer) Error(title, explanation string, suggestions []string) error {
	red.Fprintf(p.err, "%s\n", title)
	if explanation != "" {
		fmt.Fprintf(p.err, "\n%s\n", explanation)
	}
	switch len(suggestions) {
	case 0:
	case 1:
		fmt.Fprintf(p.err, "\n%s\n", suggestions[0])
	default:
		fmt.Fprintf(p.err, "\nEither:\n")
		for i, s := range suggestions {
			fmt.Fprintf(p.err, "  %d. %s\n", i+1, s)
		}
	}
	return fmt.Errorf("%s", title)
}

// Records prints the batch as an aligned table.
func (p *Printer) Records(records []model.Record) {
	if len(records) == 0 {
		faint.Fprintln(p.out, "(no shifts)")
		return
	}
	tw := tabwriter.NewWriter(p.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tSTART\tEND\tTITLE")
	for _, r := range records {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", r.ID, r.Date, r.StartTime, r.EndTime, r.Title)
	}
	_ = tw.Flush()
}

// Calendars prints the calendar list and marks the selected target.
func (p *Printer) Calendars(cals []calendar.Calendar, targetID string) {
	if len(cals) == 0 {
		faint.Fprintln(p.out, "(no calendars)")
		return
	}
	tw := tabwriter.NewWriter(p.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "\tID\tTITLE\tPRIMARY\tWRITABLE")
	for _, c := range cals {
		mark := ""
		if c.ID == targetID {
			mark = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", mark, c.ID, c.Title, yesNo(c.IsPrimary), yesNo(c.AllowsModifications))
	}
	_ = tw.Flush()
}

// Report summarizes a commit. Failed records are listed with their cause.
func (p *Printer) Report(r calendar.Report) {
	if r.Complete() {
		p.Success("%d shift(s) registered in calendar %s", r.Succeeded, r.CalendarID)
		return
	}
	p.Warning("%d of %d shift(s) registered in calendar %s", r.Succeeded, r.Attempted, r.CalendarID)
	for _, f := range r.Failures {
		fmt.Fprintf(p.out, "  - #%d %s %s: %v\n", f.Record.ID, f.Record.Date, strings.TrimSpace(f.Record.Title), f.Cause)
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
