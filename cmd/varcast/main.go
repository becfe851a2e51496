package main

import (
	"os"

	"github.com/quantlab/varcast/cmd/varcast/commands"
)

// main is the entry point for the varcast CLI
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
