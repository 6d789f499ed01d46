// Package sync decides and applies what it takes to keep tracker records
// mirroring forge issues. The forge is always ground truth; nothing is ever
// pushed back to it.
package sync

import (
	"github.com/danielolaszy/tether/pkg/models"
)

// Plan computes the create-or-update decision for one issue against the
// current state of its (possibly absent) linked record. It is a pure
// function: it never fails and performs no I/O, so repeated invocation with
// the same inputs always yields the same plan.
//
// The existing record must come from a fresh linking-key lookup; nil means
// no record is linked. When allowExisting is set the lookup result is
// ignored and a duplicate record is deliberately planned.
//
// Update plans never touch title or body: once created, a record's
// descriptive text belongs to the tracker's editors. Only the workflow
// state and the mirrored-comment window are reconciled.
func Plan(issue models.SourceIssue, existing *models.TrackedRecord, allowExisting bool) models.ReconciliationPlan {
	desired := models.StateActive
	if issue.Closed {
		desired = models.StateResolved
	}

	if existing == nil || allowExisting {
		plan := models.ReconciliationPlan{
			Action: models.PlanCreate,
			Payload: &models.RecordPayload{
				Title:       issue.Title,
				Description: issue.Body,
				State:       desired,
				SourceURL:   issue.URL,
			},
			Comments: pendingComments(issue.Comments, 0),
		}

		// A record is created in the tracker's initial (active) state,
		// so a closed issue needs a follow-up transition.
		if desired != models.StateActive {
			plan.Transition = &desired
		}

		return plan
	}

	plan := models.ReconciliationPlan{
		Action:   models.PlanUpdate,
		RecordID: existing.ID,
		Comments: pendingComments(issue.Comments, len(existing.Comments)),
	}

	// Covers both directions: closing a record whose issue was closed and
	// reactivating a resolved record whose issue was reopened. A record
	// already in the desired state gets no redundant transition.
	if existing.State != desired {
		plan.Transition = &desired
	}

	return plan
}

// pendingComments returns the append actions for issue comments beyond the
// mirrored count. Comments are append-only and never edited in this model,
// so the count alone identifies the unmirrored tail.
func pendingComments(comments []models.IssueComment, mirrored int) []models.CommentAppend {
	if mirrored >= len(comments) {
		return nil
	}

	pending := make([]models.CommentAppend, 0, len(comments)-mirrored)
	for _, comment := range comments[mirrored:] {
		pending = append(pending, models.CommentAppend{
			Author: comment.Author,
			Body:   comment.Body,
		})
	}
	return pending
}
