package main

import (
	"os"

	"shiftcal/cmd/shiftcal/commands"
)

// Set by -ldflags at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)

	// The printer has already reported the failure.
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
