// Package tracker provides the client for the internal work-item system
// (Jira). Records are linked to forge issues through a custom field holding
// the issue's canonical URL; that field is the only identity mechanism.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	jira "github.com/andygrunwald/go-jira"
	"github.com/cenkalti/backoff/v4"
	"github.com/trivago/tgo/tcontainer"

	"github.com/danielolaszy/tether/internal/apierr"
	"github.com/danielolaszy/tether/internal/config"
	"github.com/danielolaszy/tether/internal/logging"
	"github.com/danielolaszy/tether/pkg/models"
)

// mirrorPrefix marks comments this tool mirrored from the forge. Only
// comments carrying it count toward the mirrored-comment window, so
// operator comments added in Jira never shift it.
const mirrorPrefix = "[mirrored from "

// searchFields are the issue fields every lookup needs.
var searchFields = []string{"summary", "description", "status", "comment", "created"}

// Client handles interactions with the Jira API.
type Client struct {
	client    *jira.Client
	project   string
	linkField string
}

// NewClient creates a new Jira client from environment configuration and
// verifies the credential with a self lookup.
func NewClient() (*Client, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := config.ValidateJiraConfig(cfg); err != nil {
		return nil, err
	}

	tp := jira.BasicAuthTransport{
		Username: cfg.Jira.Username,
		Password: cfg.Jira.Token,
	}

	client, err := jira.NewClient(tp.Client(), cfg.Jira.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to create jira client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	self, resp, err := client.User.GetSelfWithContext(ctx)
	if err != nil {
		return nil, classify(resp, err, "error testing jira credentials")
	}

	logging.Info("jira authentication successful",
		"url", cfg.Jira.URL,
		"username", self.Name,
		"project", cfg.Jira.ProjectKey,
		"link_field", cfg.Jira.LinkFieldID,
		"token", logging.MaskSensitive(cfg.Jira.Token))

	return &Client{
		client:    client,
		project:   cfg.Jira.ProjectKey,
		linkField: cfg.Jira.LinkFieldID,
	}, nil
}

// FindByLinkedURL searches the project for a record whose link field equals
// the given issue URL. It returns nil (not an error) when no record is
// linked. When more than one record carries the URL, which is reachable via
// repeated allow-existing runs, the most recently created one wins and a
// warning is logged.
func (c *Client) FindByLinkedURL(ctx context.Context, url string) (*models.TrackedRecord, error) {
	jql := fmt.Sprintf(`project = %q AND cf[%s] ~ %q ORDER BY created DESC`,
		c.project, c.linkFieldNumber(), url)

	issues, err := c.searchWithRetry(ctx, jql, &jira.SearchOptions{
		MaxResults: 10,
		Fields:     append([]string{c.linkField}, searchFields...),
	})
	if err != nil {
		return nil, err
	}

	// JQL "~" is a text match; re-check for exact equality
	var matches []jira.Issue
	for _, issue := range issues {
		if c.linkedURL(&issue) == url {
			matches = append(matches, issue)
		}
	}

	if len(matches) == 0 {
		return nil, nil
	}

	if len(matches) > 1 {
		logging.Warn("multiple records share one linked url, using newest",
			"url", url,
			"count", len(matches),
			"chosen", matches[0].Key)
	}

	record, err := c.convertIssue(&matches[0])
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// Create materializes a new record from the payload. The link field is set
// atomically with creation so a crash can never leave an unlinked record.
// The returned record reflects a fresh read, since the create response only
// carries the id and key.
func (c *Client) Create(ctx context.Context, payload models.RecordPayload) (models.TrackedRecord, error) {
	if payload.Title == "" {
		return models.TrackedRecord{}, apierr.Validation("record payload has no title")
	}
	if payload.SourceURL == "" {
		return models.TrackedRecord{}, apierr.Validation("record payload has no source url")
	}

	unknowns := tcontainer.NewMarshalMap()
	unknowns[c.linkField] = payload.SourceURL

	fields := &jira.IssueFields{
		Project: jira.Project{
			Key: c.project,
		},
		Type: jira.IssueType{
			Name: "Task",
		},
		Summary:     payload.Title,
		Description: payload.Description,
		Unknowns:    unknowns,
	}

	created, resp, err := c.client.Issue.CreateWithContext(ctx, &jira.Issue{Fields: fields})
	if err != nil {
		return models.TrackedRecord{}, classify(resp, err, fmt.Sprintf("failed to create record for %s", payload.SourceURL))
	}

	logging.Info("created tracker record",
		"key", created.Key,
		"source_url", payload.SourceURL)

	id, err := strconv.Atoi(created.ID)
	if err != nil {
		return models.TrackedRecord{}, fmt.Errorf("unexpected non-numeric record id %q: %w", created.ID, err)
	}

	return c.GetByID(ctx, id)
}

// GetByID retrieves a record by its numeric id.
func (c *Client) GetByID(ctx context.Context, id int) (models.TrackedRecord, error) {
	var issue *jira.Issue

	op := func() error {
		got, resp, err := c.client.Issue.GetWithContext(ctx, strconv.Itoa(id), nil)
		if err != nil {
			return retryable(classify(resp, err, fmt.Sprintf("failed to get record %d", id)))
		}
		issue = got
		return nil
	}

	if err := c.retry(ctx, op); err != nil {
		return models.TrackedRecord{}, err
	}

	return c.convertIssue(issue)
}

// TransitionState moves a record into the given state category by walking
// the transitions Jira offers from the record's current status and applying
// the first one whose destination sits in the target category. Workflow
// names stay board-specific; only the category matters here.
func (c *Client) TransitionState(ctx context.Context, id int, state models.RecordState) error {
	transitions, resp, err := c.client.Issue.GetTransitionsWithContext(ctx, strconv.Itoa(id))
	if err != nil {
		return classify(resp, err, fmt.Sprintf("failed to list transitions for record %d", id))
	}

	target := findTransition(transitions, state)
	if target == nil {
		return apierr.Validation("no workflow transition from record %d to state %s", id, state)
	}

	resp, err = c.client.Issue.DoTransitionWithContext(ctx, strconv.Itoa(id), target.ID)
	if err != nil {
		return classify(resp, err, fmt.Sprintf("failed to transition record %d to %s", id, state))
	}

	logging.Debug("transitioned record",
		"id", id,
		"state", state,
		"transition", target.Name)

	return nil
}

// AppendComment mirrors one forge comment onto the record. The body is
// prefixed with the mirror signature naming the originating author.
func (c *Client) AppendComment(ctx context.Context, id int, author, body string) error {
	comment := &jira.Comment{
		Body: mirrorBody(author, body),
	}

	_, resp, err := c.client.Issue.AddCommentWithContext(ctx, strconv.Itoa(id), comment)
	if err != nil {
		return classify(resp, err, fmt.Sprintf("failed to append comment to record %d", id))
	}

	return nil
}

// ProjectStats reports how many records the project holds in total and how
// many of them carry a forge back-reference.
func (c *Client) ProjectStats(ctx context.Context) (total int, linked int, err error) {
	total, err = c.countWithRetry(ctx, fmt.Sprintf(`project = %q`, c.project))
	if err != nil {
		return 0, 0, err
	}

	linked, err = c.countWithRetry(ctx, fmt.Sprintf(`project = %q AND cf[%s] is not EMPTY`,
		c.project, c.linkFieldNumber()))
	if err != nil {
		return 0, 0, err
	}

	return total, linked, nil
}

// linkFieldNumber strips the "customfield_" prefix for JQL cf[] syntax.
func (c *Client) linkFieldNumber() string {
	return strings.TrimPrefix(c.linkField, "customfield_")
}

// linkedURL reads the link custom field off a raw issue.
func (c *Client) linkedURL(issue *jira.Issue) string {
	if issue.Fields == nil || issue.Fields.Unknowns == nil {
		return ""
	}
	url, _ := issue.Fields.Unknowns.String(c.linkField)
	return url
}

// convertIssue maps a Jira issue onto the internal record model.
func (c *Client) convertIssue(issue *jira.Issue) (models.TrackedRecord, error) {
	id, err := strconv.Atoi(issue.ID)
	if err != nil {
		return models.TrackedRecord{}, fmt.Errorf("unexpected non-numeric record id %q: %w", issue.ID, err)
	}

	record := models.TrackedRecord{
		ID:  id,
		Key: issue.Key,
	}

	if issue.Fields == nil {
		return record, nil
	}

	record.Title = issue.Fields.Summary
	record.Description = issue.Fields.Description
	record.State = stateOf(issue.Fields.Status)
	record.SourceURL = c.linkedURL(issue)
	record.CreatedAt = time.Time(issue.Fields.Created)

	if issue.Fields.Comments != nil {
		for _, comment := range issue.Fields.Comments.Comments {
			author, body, ok := parseMirror(comment.Body)
			if !ok {
				continue
			}
			record.Comments = append(record.Comments, models.IssueComment{
				Author: author,
				Body:   body,
			})
		}
	}

	return record, nil
}

// stateOf reduces a Jira status to a state category.
func stateOf(status *jira.Status) models.RecordState {
	if status != nil && status.StatusCategory.Key == "done" {
		return models.StateResolved
	}
	return models.StateActive
}

// findTransition picks a transition whose destination matches the target
// state category. Reactivation prefers a "new"-category destination over an
// in-progress one so reopened records land back at the start of the board.
func findTransition(transitions []jira.Transition, state models.RecordState) *jira.Transition {
	wanted := func(key string) bool {
		if state == models.StateResolved {
			return key == "done"
		}
		return key != "done"
	}

	var fallback *jira.Transition
	for i := range transitions {
		key := transitions[i].To.StatusCategory.Key
		if !wanted(key) {
			continue
		}
		if state == models.StateResolved || key == "new" {
			return &transitions[i]
		}
		if fallback == nil {
			fallback = &transitions[i]
		}
	}
	return fallback
}

// mirrorBody renders a forge comment for the tracker, carrying the
// originating author in the signature line.
func mirrorBody(author, body string) string {
	return fmt.Sprintf("%s%s]\n\n%s", mirrorPrefix, author, body)
}

// parseMirror inverts mirrorBody. The ok result is false for comments that
// were not mirrored by this tool.
func parseMirror(body string) (author, text string, ok bool) {
	if !strings.HasPrefix(body, mirrorPrefix) {
		return "", "", false
	}
	rest := body[len(mirrorPrefix):]
	end := strings.Index(rest, "]\n\n")
	if end < 0 {
		return "", "", false
	}
	return rest[:end], rest[end+len("]\n\n"):], true
}

// searchWithRetry runs a JQL search, retrying transient faults. Searches
// are read-only, so retrying cannot violate the linkage invariant.
func (c *Client) searchWithRetry(ctx context.Context, jql string, opts *jira.SearchOptions) ([]jira.Issue, error) {
	var issues []jira.Issue

	op := func() error {
		found, resp, err := c.client.Issue.SearchWithContext(ctx, jql, opts)
		if err != nil {
			return retryable(classify(resp, err, "jira search failed"))
		}
		issues = found
		return nil
	}

	if err := c.retry(ctx, op); err != nil {
		return nil, err
	}
	return issues, nil
}

// countWithRetry runs a JQL search for its total only.
func (c *Client) countWithRetry(ctx context.Context, jql string) (int, error) {
	var total int

	op := func() error {
		_, resp, err := c.client.Issue.SearchWithContext(ctx, jql, &jira.SearchOptions{MaxResults: 0})
		if err != nil {
			return retryable(classify(resp, err, "jira search failed"))
		}
		total = resp.Total
		return nil
	}

	if err := c.retry(ctx, op); err != nil {
		return 0, err
	}
	return total, nil
}

// retry wraps read-only operations in a short exponential backoff.
func (c *Client) retry(ctx context.Context, op backoff.Operation) error {
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	return backoff.Retry(op, policy)
}

// retryable marks only transient faults as retryable.
func retryable(err error) error {
	if errors.Is(err, apierr.ErrTransient) {
		return err
	}
	return backoff.Permanent(err)
}

// classify maps a Jira API failure onto the error taxonomy.
func classify(resp *jira.Response, err error, msg string) error {
	if resp != nil {
		switch resp.StatusCode {
		case 404:
			return apierr.NotFound("%s", msg)
		case 401, 403:
			return apierr.Auth("%s: %v", msg, err)
		}
	}
	return apierr.Transient("%s: %v", msg, err)
}
