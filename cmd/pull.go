package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/danielolaszy/tether/internal/apierr"
	"github.com/danielolaszy/tether/internal/config"
	"github.com/danielolaszy/tether/internal/forge"
	"github.com/danielolaszy/tether/internal/logging"
	"github.com/danielolaszy/tether/internal/sync"
	"github.com/danielolaszy/tether/internal/tracker"
	"github.com/danielolaszy/tether/pkg/models"
)

// pullCmd pulls one issue, or the whole labeled backlog, into the tracker.
var pullCmd = &cobra.Command{
	Use:   "pull [issue-number]",
	Short: "Pull GitHub issues into the Jira project",
	Long: `Pull a single GitHub issue, or every issue carrying the tracking label,
into the configured Jira project.

For each issue, an existing linked record is updated (workflow state and new
comments only; title and description stay as the Jira editors left them) and
an unlinked issue gets a new record. Use --dry-run to see what would happen
without writing anything, and --allow-existing to force a duplicate record
even when one is already linked.

Examples:
  tether pull -r org/x 42
  tether pull -r org/x --all
  tether pull -r org/x --all --dry-run`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repository, err := cmd.Flags().GetString("repository")
		if err != nil {
			return err
		}
		if repository == "" {
			return fmt.Errorf("repository flag is required")
		}

		all, err := cmd.Flags().GetBool("all")
		if err != nil {
			return err
		}
		dryRun, err := cmd.Flags().GetBool("dry-run")
		if err != nil {
			return err
		}
		allowExisting, err := cmd.Flags().GetBool("allow-existing")
		if err != nil {
			return err
		}
		label, err := cmd.Flags().GetString("label")
		if err != nil {
			return err
		}

		if all == (len(args) == 1) {
			return fmt.Errorf("specify either an issue number or --all")
		}

		cfg, err := config.LoadConfig()
		if err != nil {
			return err
		}
		if label == "" {
			label = cfg.Sync.Label
		}

		engine, err := newEngine(label)
		if err != nil {
			return err
		}

		opts := sync.Options{
			DryRun:        dryRun,
			AllowExisting: allowExisting,
		}

		if !all {
			number, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid issue number %q", args[0])
			}

			outcome, err := engine.PullOne(cmd.Context(), repository, number, opts)
			fmt.Println(outcomeLine(outcome))
			return err
		}

		logging.Info("starting batch pull",
			"repository", repository,
			"label", label,
			"dry_run", dryRun)

		var counts = map[models.SyncAction]int{}
		for outcome, err := range engine.PullAll(cmd.Context(), repository, opts) {
			if err != nil {
				return fmt.Errorf("batch pull aborted: %w", err)
			}
			counts[outcome.Action]++
			fmt.Println(outcomeLine(outcome))
		}

		fmt.Println(summaryLine(counts))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pullCmd)
	pullCmd.Flags().Bool("all", false, "pull every issue carrying the tracking label")
	pullCmd.Flags().Bool("dry-run", false, "compute plans without writing to Jira")
	pullCmd.Flags().Bool("allow-existing", false, "create a record even when one is already linked")
	pullCmd.Flags().StringP("label", "l", "", "tracking label (defaults to TRACKING_LABEL)")
}

// newEngine builds the sync engine with live clients.
func newEngine(label string) (*sync.Engine, error) {
	forgeClient, err := forge.NewClient()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize github client: %w", err)
	}

	trackerClient, err := tracker.NewClient()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize jira client: %w", err)
	}

	return sync.NewEngine(forgeClient, trackerClient, label), nil
}

// outcomeLine renders one issue's result for the report.
func outcomeLine(outcome models.SyncOutcome) string {
	switch outcome.Action {
	case models.ActionCreated:
		return fmt.Sprintf("%s: created %s", outcome.Ref(), outcome.Record.Key)
	case models.ActionUpdated:
		if outcome.Record != nil {
			return fmt.Sprintf("%s: updated %s", outcome.Ref(), outcome.Record.Key)
		}
		return fmt.Sprintf("%s: updated", outcome.Ref())
	case models.ActionSkipped:
		if outcome.Plan != nil {
			return fmt.Sprintf("%s: dry run, would %s (%d comment(s))",
				outcome.Ref(), outcome.Plan.Action, len(outcome.Plan.Comments))
		}
		return fmt.Sprintf("%s: skipped", outcome.Ref())
	case models.ActionFailed:
		return fmt.Sprintf("%s: failed (%s): %v", outcome.Ref(), apierr.Kind(outcome.Err), outcome.Err)
	default:
		return fmt.Sprintf("%s: %s", outcome.Ref(), outcome.Action)
	}
}

// summaryLine renders the batch totals.
func summaryLine(counts map[models.SyncAction]int) string {
	return fmt.Sprintf("done: %d created, %d updated, %d skipped, %d failed",
		counts[models.ActionCreated],
		counts[models.ActionUpdated],
		counts[models.ActionSkipped],
		counts[models.ActionFailed])
}
