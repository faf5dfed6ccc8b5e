package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "quartz",
		Short: "Reactive rendering runtime for server-driven UIs",
		Long: `Quartz is a reactive rendering runtime: tagged-template fragments and
component invocations resolved against DOM parts, scheduled across
priority lanes, and committed in three ordered phases.

The quartz CLI wraps the reference websocket backend:

  • quartz serve: run the demo server (websocket patches, /metrics, /healthz)
  • quartz bench: drive the scheduler with synthetic updates and report`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		serveCmd(),
		benchCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("quartz %s (%s)\n", version, commit)
		},
	}
}
