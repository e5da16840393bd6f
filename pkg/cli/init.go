package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const starterSource = `config {
  baseUrl http://localhost:3000
}
`

// initCmd implements `reqcraft init`: write a starter api.rqc in the
// current directory. Exit codes per §6: 0 OK, 1 file exists, 2 I/O error.
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter api.rqc in the current directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		const target = "api.rqc"

		if _, err := os.Stat(target); err == nil {
			return withExit(1, fmt.Errorf("%s already exists", target))
		} else if !os.IsNotExist(err) {
			return withExit(2, fmt.Errorf("checking %s: %w", target, err))
		}

		if err := os.WriteFile(target, []byte(starterSource), 0o644); err != nil {
			return withExit(2, fmt.Errorf("writing %s: %w", target, err))
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", target)
		return nil
	},
}
