package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"shiftcal/internal/config"
	appLog "shiftcal/internal/log"
	"shiftcal/internal/model"
	"shiftcal/internal/printer"
)

var (
	configPath string
	logLevel   string
	noColor    bool

	cfg *config.Config
	loc *time.Location
	out = printer.New(nil, nil)
)

var rootCmd = &cobra.Command{
	Use:   "shiftcal",
	Short: "Turn a photographed shift roster into calendar events",
	Long: `shiftcal sends a photo of a work-shift roster to a multimodal model,
lets you review the extracted shifts, and then exports them as an .ics
file, per-shift quick-add links, or events written straight into a
calendar (Google Calendar or a local directory of .ics files).`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command. Errors are printed by the printer, so cobra
// is told to stay quiet.
func Execute() error {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	return rootCmd.Execute()
}

// SetVersionInfo sets the string shown by --version.
func SetVersionInfo(v, c, d string) {
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.config/shiftcal/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(serveCmd, extractCmd, calendarsCmd, inspectCmd)
}

// setup loads the configuration and the time zone every command shares.
func setup() error {
	if noColor || os.Getenv("NO_COLOR") != "" {
		printer.DisableColor()
	}

	lvl, ok := appLog.ParseLevel(logLevel)
	if !ok {
		return out.Error(
			fmt.Sprintf("Unknown log level %q", logLevel),
			"The log level must be one of debug, info, warn or error.",
			nil,
		)
	}
	appLog.SetLevel(lvl)

	path := configPath
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return out.Error("Cannot locate config", err.Error(), []string{"Pass --config PATH explicitly"})
		}
		path = p
	}

	c, err := config.Load(path)
	if err != nil {
		return out.Error(
			"Failed to load config",
			fmt.Sprintf("%s: %v", path, err),
			[]string{"Fix or delete the file; a default one is written when it is missing"},
		)
	}
	c.ApplyEnv(os.Getenv)
	c.Normalize()

	l, err := model.LoadLocation(c.Timezone)
	if err != nil {
		return out.Error(
			fmt.Sprintf("Unknown time zone %q", c.Timezone),
			err.Error(),
			[]string{"Set timezone in the config to an IANA name such as Asia/Tokyo"},
		)
	}

	cfg, loc = c, l
	appLog.Debug("config loaded", "path", path, "timezone", c.Timezone, "provider", c.Calendar.Provider)
	return nil
}
