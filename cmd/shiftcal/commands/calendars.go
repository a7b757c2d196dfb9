package commands

import (
	"errors"

	"github.com/spf13/cobra"

	"shiftcal/internal/calendar"
)

var calendarsCmd = &cobra.Command{
	Use:   "calendars",
	Short: "List calendars and the one shifts would be written to",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := newMaterializer(cmd.Context())
		if err != nil {
			return explain(err)
		}
		target, cals, err := m.Target(cmd.Context())
		if err != nil && !errors.Is(err, calendar.ErrNoWritableCalendar) {
			return explain(err)
		}
		out.Calendars(cals, target.ID)
		if err != nil {
			out.Warning("no writable calendar; --commit would fail")
		}
		return nil
	},
}
