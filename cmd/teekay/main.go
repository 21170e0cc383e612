// Package main is the teekay CLI entry point.
package main

import (
	"fmt"
	"os"

	"github.com/teekay-ai/teekay/cmd/teekay/commands"
)

// version is injected at build time via ldflags.
var version = "dev"

func main() {
	rootCmd := commands.NewRootCmd(version)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
