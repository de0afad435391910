package cmd

import (
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/sarchlab/tracebuf/datarecording"
	"github.com/sarchlab/tracebuf/reader"
)

var dumpCmd = &cobra.Command{
	Use: "dump",
	Short: "Fetch the trace of a running host and store it in a SQLite " +
		"database.",
	Run: func(cmd *cobra.Command, _ []string) {
		addr, _ := cmd.Flags().GetString("addr")
		out, _ := cmd.Flags().GetString("out")

		snapshot := fetchTrace(addr)

		backend := datarecording.NewDataRecorder(out)
		writer := reader.NewDBWriter(backend)
		count := writer.WriteAll(snapshot)

		fmt.Printf("Stored %d records (%d bytes) in session %s\n",
			count, len(snapshot), writer.Session())
	},
}

func fetchTrace(addr string) []byte {
	resp, err := http.Get(addr + "/api/trace")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(os.Stderr, "Error: server returned %s\n",
			resp.Status)
		os.Exit(1)
	}

	snapshot, err := io.ReadAll(resp.Body)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	return snapshot
}

func init() {
	dumpCmd.Flags().String("out", "",
		"output database path, without the .sqlite3 suffix")

	rootCmd.AddCommand(dumpCmd)
}
