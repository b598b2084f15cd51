package main

import (
	"fmt"
	"os"

	"github.com/roach88/worldscribe/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		if !cli.IsReported(err) {
			fmt.Fprintln(os.Stderr, "Error:", err.Error())
		}
		os.Exit(cli.GetExitCode(err))
	}
}
