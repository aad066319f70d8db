// Package main is the entry point for the Keysmith CLI.
package main

import (
	"os"

	"github.com/keysmith/keysmith/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(cli.ExitCode(err))
	}
}
