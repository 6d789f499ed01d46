package sync

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/danielolaszy/tether/internal/apierr"
	"github.com/danielolaszy/tether/internal/logging"
	"github.com/danielolaszy/tether/pkg/models"
)

// ForgeClient is the capability the engine needs from the issue-hosting
// side: fetch one issue, or lazily list the labeled backlog.
type ForgeClient interface {
	GetIssue(ctx context.Context, repository string, number int) (models.SourceIssue, error)
	ListLabeledIssues(ctx context.Context, repository, label string) iter.Seq2[models.SourceIssue, error]
	IssueURL(repository string, number int) string
}

// TrackerClient is the capability the engine needs from the work-item side.
type TrackerClient interface {
	FindByLinkedURL(ctx context.Context, url string) (*models.TrackedRecord, error)
	Create(ctx context.Context, payload models.RecordPayload) (models.TrackedRecord, error)
	TransitionState(ctx context.Context, id int, state models.RecordState) error
	AppendComment(ctx context.Context, id int, author, body string) error
	GetByID(ctx context.Context, id int) (models.TrackedRecord, error)
}

// Options are the per-run flags. They are immutable for the duration of a
// run; the engine holds no other mutable state across issues.
type Options struct {
	// DryRun computes plans without calling any mutating tracker operation
	DryRun bool

	// AllowExisting skips the linking-key lookup and deliberately creates
	// a duplicate record even if one is already linked
	AllowExisting bool
}

// Engine orchestrates lookups and reconciliation across one issue or a
// labeled batch, sequentially. Sequential processing is deliberate: two
// concurrent pulls of the same issue could both observe "absent" and both
// create a record.
type Engine struct {
	forge   ForgeClient
	tracker TrackerClient
	label   string
}

// NewEngine wires an engine to its clients. The label selects the backlog
// for batch pulls.
func NewEngine(forge ForgeClient, tracker TrackerClient, label string) *Engine {
	return &Engine{
		forge:   forge,
		tracker: tracker,
		label:   label,
	}
}

// PullOne synchronizes a single issue. A missing issue is terminal for the
// call. The returned error is non-nil whenever the outcome is not a
// successful (or dry-run) sync, so single-issue callers can exit non-zero.
func (e *Engine) PullOne(ctx context.Context, repository string, number int, opts Options) (models.SyncOutcome, error) {
	issue, err := e.forge.GetIssue(ctx, repository, number)
	if err != nil {
		return models.SyncOutcome{
			Repository: repository,
			Number:     number,
			Action:     models.ActionFailed,
			Err:        err,
		}, err
	}

	outcome := e.syncIssue(ctx, issue, opts)
	if outcome.Action == models.ActionFailed {
		return outcome, outcome.Err
	}
	return outcome, nil
}

// PullAll synchronizes every issue carrying the tracking label, lazily, in
// the order the forge returns them. Each pair is either (outcome, nil) or,
// when the run as a whole cannot continue (listing failure, invalid
// credential, cancellation), a final (outcome, err) after which the
// sequence ends. Per-issue failures arrive as failed outcomes with a nil
// iteration error and do not block subsequent issues.
func (e *Engine) PullAll(ctx context.Context, repository string, opts Options) iter.Seq2[models.SyncOutcome, error] {
	return func(yield func(models.SyncOutcome, error) bool) {
		for issue, err := range e.forge.ListLabeledIssues(ctx, repository, e.label) {
			if err != nil && issue.Number == 0 {
				// The listing itself failed; nothing more will come.
				yield(models.SyncOutcome{
					Repository: repository,
					Action:     models.ActionFailed,
					Err:        err,
				}, err)
				return
			}

			if ctx.Err() != nil {
				yield(models.SyncOutcome{
					Repository: repository,
					Action:     models.ActionFailed,
					Err:        ctx.Err(),
				}, ctx.Err())
				return
			}

			var outcome models.SyncOutcome
			if err != nil {
				// One issue could not be fully loaded (comment fetch);
				// isolate it and keep going.
				outcome = models.SyncOutcome{
					Repository: issue.Repository,
					Number:     issue.Number,
					URL:        issue.URL,
					Action:     models.ActionFailed,
					Err:        err,
				}
			} else {
				outcome = e.syncIssue(ctx, issue, opts)
			}

			if outcome.Action == models.ActionFailed && errors.Is(outcome.Err, apierr.ErrAuth) {
				// No partial progress is meaningful without a valid
				// credential; stop the run.
				yield(outcome, outcome.Err)
				return
			}

			if !yield(outcome, nil) {
				return
			}
		}
	}
}

// FindTracked looks up the record linked to an issue without side effects.
// It returns nil when no record is linked. The canonical URL is built
// locally, so inspection costs one tracker round-trip and no forge call.
func (e *Engine) FindTracked(ctx context.Context, repository string, number int) (*models.TrackedRecord, error) {
	return e.tracker.FindByLinkedURL(ctx, e.forge.IssueURL(repository, number))
}

// syncIssue runs lookup, plan, and execution for one issue, converting any
// failure into a failed outcome at this boundary.
func (e *Engine) syncIssue(ctx context.Context, issue models.SourceIssue, opts Options) models.SyncOutcome {
	outcome := models.SyncOutcome{
		Repository: issue.Repository,
		Number:     issue.Number,
		URL:        issue.URL,
	}

	// The lookup must be fresh on every pass: a record may have appeared
	// since any previous run, and caching would reintroduce the
	// duplicate-creation race.
	var existing *models.TrackedRecord
	if !opts.AllowExisting {
		found, err := e.tracker.FindByLinkedURL(ctx, issue.URL)
		if err != nil {
			outcome.Action = models.ActionFailed
			outcome.Err = fmt.Errorf("lookup for %s: %w", issue.Ref(), err)
			return outcome
		}
		existing = found
	}

	plan := Plan(issue, existing, opts.AllowExisting)

	if opts.DryRun {
		logging.Info("dry run, plan not applied",
			"issue", issue.Ref(),
			"action", plan.Action,
			"comments", len(plan.Comments))
		outcome.Action = models.ActionSkipped
		outcome.Plan = &plan
		return outcome
	}

	record, err := e.execute(ctx, plan)
	if err != nil {
		outcome.Action = models.ActionFailed
		outcome.Err = fmt.Errorf("applying plan for %s: %w", issue.Ref(), err)
		return outcome
	}

	outcome.Record = record
	if plan.Action == models.PlanCreate {
		outcome.Action = models.ActionCreated
	} else {
		outcome.Action = models.ActionUpdated
	}

	logging.Info("synchronized issue",
		"issue", issue.Ref(),
		"action", outcome.Action,
		"record", record.Key)

	return outcome
}

// execute applies a plan against the tracker: create, then the status
// transition, then comment appends, in that order. Status moves before
// comments so a record is never momentarily active with closing comments
// already attached.
func (e *Engine) execute(ctx context.Context, plan models.ReconciliationPlan) (*models.TrackedRecord, error) {
	var record models.TrackedRecord

	if plan.Action == models.PlanCreate {
		created, err := e.tracker.Create(ctx, *plan.Payload)
		if err != nil {
			return nil, err
		}
		record = created
	} else {
		record.ID = plan.RecordID
	}

	if plan.Transition != nil {
		if err := e.tracker.TransitionState(ctx, record.ID, *plan.Transition); err != nil {
			return nil, err
		}
	}

	for _, comment := range plan.Comments {
		if err := e.tracker.AppendComment(ctx, record.ID, comment.Author, comment.Body); err != nil {
			return nil, err
		}
	}

	final, err := e.tracker.GetByID(ctx, record.ID)
	if err != nil {
		// The plan applied; a failed re-read should not fail the issue.
		logging.Warn("could not re-read record after applying plan",
			"record_id", record.ID,
			"error", err)
		return &record, nil
	}

	return &final, nil
}
