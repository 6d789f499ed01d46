// Package models defines data structures shared across the application.
package models

import (
	"fmt"
	"time"
)

// SourceIssue represents a forge issue with the fields the sync cares about.
// It is read-only from the engine's perspective; (Repository, Number) is its
// immutable identity.
type SourceIssue struct {
	// Repository is the forge repository in "owner/repo" format
	Repository string

	// Number is the issue number within the repository (e.g., 42)
	Number int

	// Title is the issue's title or summary
	Title string

	// Body is the full body text of the issue
	Body string

	// Closed reports whether the issue is closed on the forge
	Closed bool

	// Labels is a slice of label names attached to the issue
	Labels []string

	// URL is the canonical web URL of the issue; it is the linking key
	// stored on the tracked record
	URL string

	// UpdatedAt is the timestamp when the issue was last updated
	UpdatedAt time.Time

	// Comments holds the issue's comments in the order the forge returns them
	Comments []IssueComment
}

// Ref returns the issue's "owner/repo#42" shorthand for logs and reports.
func (i SourceIssue) Ref() string {
	return fmt.Sprintf("%s#%d", i.Repository, i.Number)
}

// IssueComment is a single comment, on either side of the sync.
type IssueComment struct {
	// Author is the login of the comment's author
	Author string

	// Body is the comment text
	Body string
}

// RecordState reduces the tracker's workflow statuses to the two categories
// the sync acts on. Mapping to and from board-specific status names happens
// inside the tracker client, never in the core.
type RecordState string

const (
	// StateActive covers any non-terminal tracker status
	StateActive RecordState = "active"

	// StateResolved covers terminal (done/closed) tracker statuses
	StateResolved RecordState = "resolved"
)

// TrackedRecord represents a work item in the tracker.
type TrackedRecord struct {
	// ID is the numeric id assigned by the tracker on creation
	ID int

	// Key is the tracker's display identifier (e.g., "PROJ-123")
	Key string

	// Title is the record's summary field
	Title string

	// Description is the full body text of the record
	Description string

	// State is the record's workflow status, reduced to a category
	State RecordState

	// SourceURL is the back-reference to the forge issue this record
	// mirrors; it is the sole identity lookup key
	SourceURL string

	// Comments holds only the comments mirrored from the forge, in
	// append order; tracker-native comments are excluded
	Comments []IssueComment

	// CreatedAt is the timestamp when the record was created
	CreatedAt time.Time
}

// RecordPayload carries the field values for a record about to be created.
type RecordPayload struct {
	Title       string
	Description string

	// State is the state the record should end up in once created; a
	// freshly created record starts active, so a resolved target needs
	// a follow-up transition
	State RecordState

	SourceURL string
}

// CommentAppend is a single pending "append comment" action in a plan.
type CommentAppend struct {
	Author string
	Body   string
}

// PlanAction names the create-or-update decision of a reconciliation plan.
type PlanAction string

const (
	PlanCreate PlanAction = "create"
	PlanUpdate PlanAction = "update"
)

// ReconciliationPlan is the computed decision for one issue: whether to
// create or update, and the field-level delta to apply.
type ReconciliationPlan struct {
	Action PlanAction

	// Payload is set when Action is PlanCreate
	Payload *RecordPayload

	// RecordID identifies the record to update when Action is PlanUpdate
	RecordID int

	// Transition, when non-nil, is the workflow state the record must be
	// moved to; nil means the state already matches
	Transition *RecordState

	// Comments are the issue comments not yet mirrored on the record
	Comments []CommentAppend
}

// Empty reports whether an update plan has nothing to apply.
func (p ReconciliationPlan) Empty() bool {
	return p.Action == PlanUpdate && p.Transition == nil && len(p.Comments) == 0
}

// SyncAction names what happened to one issue during a sync run.
type SyncAction string

const (
	ActionCreated SyncAction = "created"
	ActionUpdated SyncAction = "updated"
	ActionSkipped SyncAction = "skipped"
	ActionFailed  SyncAction = "failed"
)

// SyncOutcome is the per-issue result of a sync invocation. It lives only
// for the duration of the run; callers consume it for reporting.
type SyncOutcome struct {
	Repository string
	Number     int
	URL        string

	Action SyncAction

	// Record is set on created/updated outcomes when the record is known
	Record *TrackedRecord

	// Plan carries the computed-but-unapplied plan on dry-run outcomes
	Plan *ReconciliationPlan

	// Err describes the failure on failed outcomes
	Err error
}

// Ref returns the outcome's "owner/repo#42" shorthand.
func (o SyncOutcome) Ref() string {
	return fmt.Sprintf("%s#%d", o.Repository, o.Number)
}
