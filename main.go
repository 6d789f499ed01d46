// Package main is the entry point for the tether CLI application.
package main

import (
	"fmt"
	"os"

	"github.com/danielolaszy/tether/cmd"
	"github.com/danielolaszy/tether/internal/logging"
)

// main is the entry point of the application.
// It executes the root command and handles any errors that occur.
func main() {
	logging.Debug("starting tether", "log_level", logging.LevelFromEnv())

	if err := cmd.Execute(); err != nil {
		logging.Error("command execution failed", "error", err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
