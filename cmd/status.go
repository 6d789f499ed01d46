package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danielolaszy/tether/internal/tracker"
)

// statusCmd reports how much of the Jira project is forge-linked.
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show how many Jira records are linked to GitHub issues",
	Long: `Display statistics about the configured Jira project: the total number
of records and how many of them carry a GitHub back-reference.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		trackerClient, err := tracker.NewClient()
		if err != nil {
			return fmt.Errorf("failed to initialize jira client: %w", err)
		}

		total, linked, err := trackerClient.ProjectStats(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to fetch jira statistics: %w", err)
		}

		fmt.Println("Jira project statistics:")
		fmt.Printf("- Total records: %d\n", total)
		fmt.Printf("- Records linked to GitHub issues: %d\n", linked)
		fmt.Printf("- %s\n", linkageMessage(total, linked))

		return nil
	},
}

func linkageMessage(total, linked int) string {
	if total == 0 {
		return "Project is empty"
	}
	percentage := float64(linked) / float64(total) * 100
	return fmt.Sprintf("%.1f%% of records are linked (%d/%d)", percentage, linked, total)
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
