// Package main is the entry point for the tickvoice CLI.
package main

import (
	"os"

	"github.com/tickvoice/tickvoice/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
