// Package main is the entry point for the portfolioscan CLI.
package main

import (
	"os"

	"github.com/jmylchreest/portfolioscan/cmd/portfolioscan/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
