package commands

import (
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"shiftcal/internal/ics"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect FILE.ics",
	Short: "Print the events of a calendar file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		body, err := os.ReadFile(args[0])
		if err != nil {
			return out.Error("Cannot read calendar file", err.Error(), nil)
		}
		events, err := ics.Decode(body)
		if err != nil {
			return out.Error("Not a valid calendar file", err.Error(), nil)
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		_, _ = tw.Write([]byte("UID\tSTART\tEND\tTZID\tSUMMARY\n"))
		for _, ev := range events {
			_, _ = tw.Write([]byte(ev.UID + "\t" +
				ev.Start.In(loc).Format("2006-01-02 15:04") + "\t" +
				ev.End.In(loc).Format("2006-01-02 15:04") + "\t" +
				ev.TZID + "\t" + ev.Summary + "\n"))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		out.Success("%d event(s)", len(events))
		return nil
	},
}
