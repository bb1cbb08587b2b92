package main

import (
	"os"

	"github.com/harrierhub/hareline/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		os.Exit(cli.ExitError)
	}
}
