// Command stepsim runs discrete-time simulation models.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/stepsim/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
