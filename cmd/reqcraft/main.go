// Command reqcraft is the CLI entry point: reqcraft init|dev|build.
package main

import (
	"os"

	"github.com/moonrailgun/reqcraft/pkg/cli"
)

// Build-time variables set via -ldflags.
var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	cli.Version = version
	cli.Commit = commit
	cli.BuildDate = buildDate
	os.Exit(cli.Execute())
}
