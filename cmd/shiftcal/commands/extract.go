package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"shiftcal/internal/deeplink"
	"shiftcal/internal/extract"
	"shiftcal/internal/ics"
	"shiftcal/internal/model"
)

var (
	icsOut    string
	showLinks bool
	doCommit  bool
)

var extractCmd = &cobra.Command{
	Use:   "extract IMAGE",
	Short: "Extract shifts from a roster photo",
	Long: `Extract sends IMAGE to the model once and prints the shifts it found.

The result can then be written as an .ics file (--ics), printed as
quick-add links (--links), or registered in the configured calendar
(--commit).`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runExtract(cmd, args[0])
	},
}

func init() {
	extractCmd.Flags().StringVar(&icsOut, "ics", "", "write the shifts to this .ics file")
	extractCmd.Flags().BoolVar(&showLinks, "links", false, "print a quick-add link per shift")
	extractCmd.Flags().BoolVar(&doCommit, "commit", false, "register the shifts in the configured calendar")
}

func runExtract(cmd *cobra.Command, imagePath string) error {
	ctx := cmd.Context()

	data, err := os.ReadFile(imagePath)
	if err != nil {
		return out.Error("Cannot read image", err.Error(), nil)
	}

	ex, err := newExtractor(ctx)
	if err != nil {
		return explain(err)
	}

	out.Step("reading shifts from %s", imagePath)
	records, err := ex.Extract(ctx, extract.Image{Data: data, MIMEType: extract.DetectMIME(imagePath, data)})
	if err != nil {
		return explain(err)
	}
	out.Records(records)
	if len(records) == 0 {
		return explain(model.ErrEmptyBatch)
	}

	if icsOut != "" || showLinks {
		shifts, err := model.ValidateAll(records, loc)
		if err != nil {
			return explain(err)
		}
		if icsOut != "" {
			body := ics.Encode(shifts, ics.Options{ProductID: cfg.ProductID, Location: loc})
			if err := os.WriteFile(icsOut, []byte(body), 0o644); err != nil {
				return out.Error("Cannot write calendar file", err.Error(), nil)
			}
			out.Success("wrote %d event(s) to %s", len(shifts), icsOut)
		}
		if showLinks {
			for _, s := range shifts {
				out.Info("#%d %s", s.RecordID, deeplink.Build(s, loc))
			}
		}
	}

	if doCommit {
		m, err := newMaterializer(ctx)
		if err != nil {
			return explain(err)
		}
		out.Step("registering %d shift(s)", len(records))
		report, err := m.Commit(ctx, records)
		if err != nil {
			return explain(err)
		}
		out.Report(report)
		if !report.Complete() {
			return fmt.Errorf("%d shift(s) not registered", len(report.Failures))
		}
	}
	return nil
}
