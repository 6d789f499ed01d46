package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/danielolaszy/tether/internal/config"
)

// findCmd looks up the record linked to an issue, read-only.
var findCmd = &cobra.Command{
	Use:   "find <issue-number>",
	Short: "Find the Jira record linked to a GitHub issue",
	Long: `Look up the Jira record whose back-reference field points at the given
GitHub issue. Read-only: nothing is created or modified. Useful for checking
whether an issue is already tracked before pulling it.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repository, err := cmd.Flags().GetString("repository")
		if err != nil {
			return err
		}
		if repository == "" {
			return fmt.Errorf("repository flag is required")
		}

		number, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid issue number %q", args[0])
		}

		cfg, err := config.LoadConfig()
		if err != nil {
			return err
		}

		engine, err := newEngine(cfg.Sync.Label)
		if err != nil {
			return err
		}

		record, err := engine.FindTracked(cmd.Context(), repository, number)
		if err != nil {
			return fmt.Errorf("lookup failed: %w", err)
		}

		if record == nil {
			fmt.Printf("%s#%d: no linked record\n", repository, number)
			return nil
		}

		fmt.Printf("%s#%d: %s (%s), %d mirrored comment(s)\n",
			repository, number, record.Key, record.State, len(record.Comments))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(findCmd)
}
