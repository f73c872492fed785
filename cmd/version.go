package cmd

import (
	"runtime"

	"github.com/spf13/cobra"
)

// Build information, overridden at release time via -ldflags.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("wipeout %s\n", Version)
		cmd.Printf("  commit: %s\n", Commit)
		cmd.Printf("  built:  %s\n", BuildTime)
		cmd.Printf("  go:     %s\n", runtime.Version())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
