// Package main is the entry point for the pppscrape CLI.
package main

import (
	"os"

	"github.com/jmylchreest/pppscrape/cmd/pppscrape/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
