package cmd

import (
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/spf13/cobra"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start tracing on a running host.",
	Run: func(cmd *cobra.Command, _ []string) {
		groups, _ := cmd.Flags().GetString("groups")
		postControl(cmd, "/api/trace/start?groups="+groups)
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop tracing on a running host, freezing the readable trace.",
	Run: func(cmd *cobra.Command, _ []string) {
		postControl(cmd, "/api/trace/stop")
	},
}

var rewindCmd = &cobra.Command{
	Use:   "rewind",
	Short: "Discard the recorded trace of a running host.",
	Run: func(cmd *cobra.Command, _ []string) {
		postControl(cmd, "/api/trace/rewind")
	},
}

func postControl(cmd *cobra.Command, path string) {
	addr, _ := cmd.Flags().GetString("addr")

	resp, err := http.Post(addr+path, "", nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		fmt.Fprintf(os.Stderr, "Error: server returned %s: %s\n",
			resp.Status, body)
		os.Exit(1)
	}
}

func init() {
	startCmd.Flags().String("groups", "0",
		"event groups to enable, 0 enables all groups")

	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(rewindCmd)
}
