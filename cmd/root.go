// Package cmd provides the command-line interface for the tether CLI tool.
package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "tether",
	Short: "Tether pulls public GitHub issues into an internal Jira project",
	Long: `Tether synchronizes GitHub issues into an internal Jira project, one-way.
It creates a Jira record for each pulled issue, keeps the record's workflow
state and mirrored comments in step with the issue on later pulls, and never
creates duplicates: records are linked to issues through a custom field
holding the issue's canonical URL.

Changes made in Jira are never pushed back to GitHub.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Available to all commands
	rootCmd.PersistentFlags().StringP("repository", "r", "", "GitHub repository name (e.g., 'username/repo')")
}
