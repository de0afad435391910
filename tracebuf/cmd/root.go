// Package cmd provides the command-line interface for the trace buffer.
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use: "tracebuf",
	Short: "Tracebuf CLI can run a host process with an embedded trace " +
		"buffer and control it remotely.",
	Long: `Tracebuf CLI can run a host process with an embedded trace ` +
		`buffer, and control, inspect, and dump the trace of a running ` +
		`host over its monitoring server.`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("addr", "http://localhost:8080",
		"address of the monitoring server to talk to")
}
