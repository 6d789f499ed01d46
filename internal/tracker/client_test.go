package tracker

import (
	"errors"
	"net/http"
	"testing"
	"time"

	jira "github.com/andygrunwald/go-jira"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trivago/tgo/tcontainer"

	"github.com/danielolaszy/tether/internal/apierr"
	"github.com/danielolaszy/tether/pkg/models"
)

func TestMirrorBodyRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		author string
		body   string
	}{
		{name: "simple", author: "alice", body: "fixed in v2"},
		{name: "multiline body", author: "bob", body: "line one\nline two"},
		{name: "empty body", author: "carol", body: ""},
		{name: "body containing brackets", author: "dave", body: "see [RFC] for details"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rendered := mirrorBody(tt.author, tt.body)

			author, body, ok := parseMirror(rendered)
			require.True(t, ok)
			assert.Equal(t, tt.author, author)
			assert.Equal(t, tt.body, body)
		})
	}
}

func TestParseMirrorRejectsOperatorComments(t *testing.T) {
	tests := []string{
		"a plain jira comment",
		"[mirrored from alice] missing blank line",
		"",
	}

	for _, body := range tests {
		_, _, ok := parseMirror(body)
		assert.False(t, ok, "comment %q must not count as mirrored", body)
	}
}

func TestStateOf(t *testing.T) {
	tests := []struct {
		name   string
		status *jira.Status
		want   models.RecordState
	}{
		{
			name:   "done category is resolved",
			status: &jira.Status{Name: "Done", StatusCategory: jira.StatusCategory{Key: "done"}},
			want:   models.StateResolved,
		},
		{
			name:   "new category is active",
			status: &jira.Status{Name: "To Do", StatusCategory: jira.StatusCategory{Key: "new"}},
			want:   models.StateActive,
		},
		{
			name:   "indeterminate category is active",
			status: &jira.Status{Name: "In Progress", StatusCategory: jira.StatusCategory{Key: "indeterminate"}},
			want:   models.StateActive,
		},
		{
			name:   "missing status defaults to active",
			status: nil,
			want:   models.StateActive,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stateOf(tt.status))
		})
	}
}

func transition(id, name, categoryKey string) jira.Transition {
	return jira.Transition{
		ID:   id,
		Name: name,
		To: jira.Status{
			Name:           name,
			StatusCategory: jira.StatusCategory{Key: categoryKey},
		},
	}
}

func TestFindTransitionToResolved(t *testing.T) {
	transitions := []jira.Transition{
		transition("11", "Start Progress", "indeterminate"),
		transition("21", "Done", "done"),
	}

	got := findTransition(transitions, models.StateResolved)
	require.NotNil(t, got)
	assert.Equal(t, "21", got.ID)
}

func TestFindTransitionReactivationPrefersNewCategory(t *testing.T) {
	transitions := []jira.Transition{
		transition("11", "Start Progress", "indeterminate"),
		transition("31", "Reopen", "new"),
	}

	got := findTransition(transitions, models.StateActive)
	require.NotNil(t, got)
	assert.Equal(t, "31", got.ID, "reopened records should land back at the start of the board")
}

func TestFindTransitionReactivationFallsBackToInProgress(t *testing.T) {
	transitions := []jira.Transition{
		transition("21", "Done", "done"),
		transition("11", "Start Progress", "indeterminate"),
	}

	got := findTransition(transitions, models.StateActive)
	require.NotNil(t, got)
	assert.Equal(t, "11", got.ID)
}

func TestFindTransitionNoneAvailable(t *testing.T) {
	transitions := []jira.Transition{
		transition("11", "Start Progress", "indeterminate"),
	}

	assert.Nil(t, findTransition(transitions, models.StateResolved))
	assert.Nil(t, findTransition(nil, models.StateActive))
}

func TestLinkFieldNumber(t *testing.T) {
	c := &Client{linkField: "customfield_10100"}
	assert.Equal(t, "10100", c.linkFieldNumber())
}

func TestConvertIssue(t *testing.T) {
	c := &Client{linkField: "customfield_10100"}

	unknowns := tcontainer.NewMarshalMap()
	unknowns["customfield_10100"] = "https://github.com/org/x/issues/42"

	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	issue := &jira.Issue{
		ID:  "10001",
		Key: "PROJ-7",
		Fields: &jira.IssueFields{
			Summary:     "Fix the flux capacitor",
			Description: "It drains the battery.",
			Status:      &jira.Status{Name: "Done", StatusCategory: jira.StatusCategory{Key: "done"}},
			Created:     jira.Time(created),
			Unknowns:    unknowns,
			Comments: &jira.Comments{
				Comments: []*jira.Comment{
					{Body: mirrorBody("alice", "root cause found")},
					{Body: "an operator note added directly in jira"},
					{Body: mirrorBody("bob", "fixed in v2")},
				},
			},
		},
	}

	record, err := c.convertIssue(issue)
	require.NoError(t, err)

	assert.Equal(t, 10001, record.ID)
	assert.Equal(t, "PROJ-7", record.Key)
	assert.Equal(t, "Fix the flux capacitor", record.Title)
	assert.Equal(t, models.StateResolved, record.State)
	assert.Equal(t, "https://github.com/org/x/issues/42", record.SourceURL)
	assert.Equal(t, created, record.CreatedAt)

	// only mirrored comments count toward the comment window
	require.Len(t, record.Comments, 2)
	assert.Equal(t, "alice", record.Comments[0].Author)
	assert.Equal(t, "fixed in v2", record.Comments[1].Body)
}

func TestConvertIssueRejectsNonNumericID(t *testing.T) {
	c := &Client{linkField: "customfield_10100"}

	_, err := c.convertIssue(&jira.Issue{ID: "PROJ-7"})
	assert.Error(t, err)
}

func TestClassify(t *testing.T) {
	response := func(status int) *jira.Response {
		return &jira.Response{Response: &http.Response{StatusCode: status}}
	}

	tests := []struct {
		name     string
		resp     *jira.Response
		sentinel error
	}{
		{name: "404 is not found", resp: response(404), sentinel: apierr.ErrNotFound},
		{name: "401 is auth", resp: response(401), sentinel: apierr.ErrAuth},
		{name: "403 is auth", resp: response(403), sentinel: apierr.ErrAuth},
		{name: "503 is transient", resp: response(503), sentinel: apierr.ErrTransient},
		{name: "nil response is transient", resp: nil, sentinel: apierr.ErrTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classify(tt.resp, errors.New("boom"), "jira call failed")
			assert.ErrorIs(t, err, tt.sentinel)
		})
	}
}

func TestRetryable(t *testing.T) {
	transient := apierr.Transient("flaky")
	assert.Equal(t, transient, retryable(transient), "transient faults pass through for retry")

	permanent := retryable(apierr.Auth("rejected"))
	assert.ErrorIs(t, permanent, apierr.ErrAuth, "non-transient faults are wrapped as permanent")
}
