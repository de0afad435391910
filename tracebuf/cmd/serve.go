package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	"github.com/sarchlab/tracebuf/monitoring"
	"github.com/sarchlab/tracebuf/trace"
)

// Event numbers of the demo workload.
const evHeartbeat = 0x100

var serveCmd = &cobra.Command{
	Use: "serve",
	Short: "Run a demo host process with an embedded trace buffer and " +
		"a monitoring server.",
	Run: func(cmd *cobra.Command, _ []string) {
		loadEnvConfig(cmd)

		bufsizeMB, _ := cmd.Flags().GetInt("bufsize-mb")
		grpmask, _ := cmd.Flags().GetUint32("grpmask")
		port, _ := cmd.Flags().GetInt("port")
		open, _ := cmd.Flags().GetBool("open")

		b := trace.NewBuffer(bufsizeMB * 1024 * 1024).
			WithLiveReporter(monitoring.NewThreadReporter())

		err := b.Init(trace.Group(grpmask))
		if err != nil {
			fmt.Fprintf(os.Stderr, "tracing disabled: %v\n", err)
		}

		monitor := monitoring.NewMonitor().WithPortNumber(port)
		monitor.RegisterBuffer(b)
		actualPort := monitor.StartServer()

		if open {
			url := fmt.Sprintf("http://localhost:%d/api/status",
				actualPort)
			if err := browser.OpenURL(url); err != nil {
				fmt.Fprintf(os.Stderr,
					"cannot open browser: %v\n", err)
			}
		}

		emitHeartbeat(b)
	},
}

// emitHeartbeat gives the demo host something to trace: a probe record
// every interval, forever.
func emitHeartbeat(b *trace.Buffer) {
	tag := trace.NewTag(evHeartbeat, trace.GrpProbe, trace.RecordSize)

	seq := uint32(0)
	for range time.Tick(100 * time.Millisecond) {
		seq++
		b.Event(tag, seq, 0, 0, 0)
	}
}

// loadEnvConfig folds .env and environment variables into flag defaults,
// so hosts can be configured the same way in containers and scripts.
// Flags given on the command line win over the environment.
func loadEnvConfig(cmd *cobra.Command) {
	_ = godotenv.Load()

	setFromEnv(cmd, "bufsize-mb", "TRACEBUF_BUFSIZE_MB")
	setFromEnv(cmd, "grpmask", "TRACEBUF_GRPMASK")
	setFromEnv(cmd, "port", "TRACEBUF_PORT")
}

func setFromEnv(cmd *cobra.Command, flag, env string) {
	if cmd.Flags().Changed(flag) {
		return
	}

	v, ok := os.LookupEnv(env)
	if !ok {
		return
	}

	if err := cmd.Flags().Set(flag, v); err != nil {
		fmt.Fprintf(os.Stderr, "invalid %s: %v\n", env, err)
	}
}

func init() {
	serveCmd.Flags().Int("bufsize-mb", 16,
		"trace buffer size in MB, 0 disables tracing")
	serveCmd.Flags().Uint32("grpmask", uint32(trace.GrpAll),
		"initially enabled event groups")
	serveCmd.Flags().Int("port", 0,
		"monitoring server port, 0 picks a random port")
	serveCmd.Flags().Bool("open", false,
		"open the status page in a browser")

	rootCmd.AddCommand(serveCmd)
}
