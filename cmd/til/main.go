// Command til browses, votes on and shares short facts.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/til/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
