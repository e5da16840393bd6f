// Package cli implements the reqcraft command-line surface (§6):
// `reqcraft init|dev|build`, layering flags over environment variables
// over defaults the way the teacher's pkg/cli/serve.go does.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Version is injected at build time via -ldflags, matching the
	// teacher's pkg/cli.Version/Commit/BuildDate convention.
	Version = "dev"
	// Commit is injected at build time via -ldflags.
	Commit = "none"
	// BuildDate is injected at build time via -ldflags.
	BuildDate = "unknown"
)

// rootCmd is the base command when reqcraft is invoked with no subcommand.
var rootCmd = &cobra.Command{
	Use:   "reqcraft",
	Short: "reqcraft turns a declarative .rqc API surface into a running local service",
	Long: `reqcraft parses a .rqc source tree (or an imported OpenAPI document) into a
normalized API model, then serves that model to a browser-based testing
client: mock responses synthesized from declared schemas, an outbound
proxy for CORS bypass, a Socket.IO relay, and a hot-reload notification
channel that keeps the client in lockstep with the source files.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. It is the sole entry point main() calls.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitCodeFor(err)
	}
	return 0
}

func init() {
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(devCmd)
	rootCmd.AddCommand(buildCmd)
}
