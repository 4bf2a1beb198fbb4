package main

import (
	"fmt"
	"os"

	"github.com/roach88/tally/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "tally: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
