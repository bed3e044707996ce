// Command excikin simulates the photochemical kinetics of a reaction
// network from quantum-chemistry outputs.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/excikin/excikin/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		// Commands write their own formatted error output; anything
		// without an exit code is a usage-level failure.
		var exitErr *cli.ExitError
		if !errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
