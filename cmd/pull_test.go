package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/danielolaszy/tether/internal/apierr"
	"github.com/danielolaszy/tether/pkg/models"
)

func TestOutcomeLine(t *testing.T) {
	record := &models.TrackedRecord{ID: 10001, Key: "PROJ-7"}
	plan := &models.ReconciliationPlan{
		Action: models.PlanCreate,
		Comments: []models.CommentAppend{
			{Author: "alice", Body: "hi"},
		},
	}

	tests := []struct {
		name    string
		outcome models.SyncOutcome
		want    string
	}{
		{
			name: "created",
			outcome: models.SyncOutcome{
				Repository: "org/x", Number: 42,
				Action: models.ActionCreated, Record: record,
			},
			want: "org/x#42: created PROJ-7",
		},
		{
			name: "updated",
			outcome: models.SyncOutcome{
				Repository: "org/x", Number: 42,
				Action: models.ActionUpdated, Record: record,
			},
			want: "org/x#42: updated PROJ-7",
		},
		{
			name: "dry run",
			outcome: models.SyncOutcome{
				Repository: "org/x", Number: 42,
				Action: models.ActionSkipped, Plan: plan,
			},
			want: "org/x#42: dry run, would create (1 comment(s))",
		},
		{
			name: "failed",
			outcome: models.SyncOutcome{
				Repository: "org/x", Number: 42,
				Action: models.ActionFailed, Err: apierr.Transient("jira is down"),
			},
			want: "org/x#42: failed (transient): jira is down: transient service failure",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, outcomeLine(tt.outcome))
		})
	}
}

func TestSummaryLine(t *testing.T) {
	counts := map[models.SyncAction]int{
		models.ActionCreated: 3,
		models.ActionFailed:  1,
	}

	assert.Equal(t, "done: 3 created, 0 updated, 0 skipped, 1 failed", summaryLine(counts))
}
