// Package forge provides the read-only client for the public issue-hosting
// API (GitHub, including Enterprise domains). The sync never writes back to
// the forge.
package forge

import (
	"context"
	"fmt"
	"iter"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v41/github"
	"golang.org/x/oauth2"

	"github.com/danielolaszy/tether/internal/apierr"
	"github.com/danielolaszy/tether/internal/config"
	"github.com/danielolaszy/tether/internal/logging"
	"github.com/danielolaszy/tether/pkg/models"
)

// Client encapsulates the GitHub API client.
type Client struct {
	client *github.Client
	domain string
}

// NewClient creates a new GitHub API client using configuration from
// environment variables. It initializes the client with the appropriate
// base URL, authenticates, and tests the connection.
func NewClient() (*Client, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	token := cfg.GitHub.Token
	if token == "" {
		return nil, fmt.Errorf("github token not found in configuration")
	}

	domain := cfg.GitHub.Domain
	if domain == "" {
		domain = "github.com"
	}

	var apiURL string
	if domain == "github.com" {
		apiURL = "https://api.github.com/"
	} else {
		apiURL = fmt.Sprintf("https://%s/api/v3/", domain)
	}

	logging.Info("github configuration",
		"domain", domain,
		"api_url", apiURL,
		"token", logging.MaskSensitive(token))

	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	tc := oauth2.NewClient(context.Background(), ts)

	client := github.NewClient(tc)

	// If not using default GitHub.com, set custom API endpoint
	if domain != "github.com" {
		parsedURL, err := url.Parse(apiURL)
		if err != nil {
			return nil, fmt.Errorf("invalid github api url: %w", err)
		}

		client.BaseURL = parsedURL
		client.UploadURL = parsedURL
	}

	// Test the token
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	user, resp, err := client.Users.Get(ctx, "")
	if err != nil {
		return nil, classify(resp, err, "error testing github token")
	}

	logging.Info("github authentication successful",
		"username", user.GetLogin())

	return &Client{client: client, domain: domain}, nil
}

// IssueURL builds the canonical web URL for an issue. Fetched issues carry
// the same locally built URL, so linking-key lookups always agree with what
// was stored at creation time regardless of API redirects.
func (c *Client) IssueURL(repository string, number int) string {
	return fmt.Sprintf("https://%s/%s/issues/%d", c.domain, repository, number)
}

// GetIssue retrieves a single issue, including its comments. The repository
// should be in the format "owner/repo". Pull requests are reported as
// not found since they are not issues for syncing purposes.
func (c *Client) GetIssue(ctx context.Context, repository string, number int) (models.SourceIssue, error) {
	owner, repo, err := splitRepository(repository)
	if err != nil {
		return models.SourceIssue{}, err
	}

	issue, resp, err := c.client.Issues.Get(ctx, owner, repo, number)
	if err != nil {
		return models.SourceIssue{}, classify(resp, err, fmt.Sprintf("failed to get issue %s#%d", repository, number))
	}

	if issue.PullRequestLinks != nil {
		return models.SourceIssue{}, apierr.NotFound("%s#%d is a pull request, not an issue", repository, number)
	}

	src := c.convertIssue(repository, issue)

	if issue.GetComments() > 0 {
		comments, err := c.listComments(ctx, owner, repo, repository, number)
		if err != nil {
			return models.SourceIssue{}, err
		}
		src.Comments = comments
	}

	return src, nil
}

// ListLabeledIssues returns a lazy sequence of the repository's issues
// carrying the given label, open and closed, in the order the forge pages
// them. Each element pairs an issue with an error: a non-nil error with a
// zero issue number means listing itself failed and the sequence ends; a
// non-nil error alongside an issue number means that one issue could not be
// fully loaded and the sequence continues. Pull requests are filtered out.
func (c *Client) ListLabeledIssues(ctx context.Context, repository, label string) iter.Seq2[models.SourceIssue, error] {
	return func(yield func(models.SourceIssue, error) bool) {
		owner, repo, err := splitRepository(repository)
		if err != nil {
			yield(models.SourceIssue{Repository: repository}, err)
			return
		}

		opts := &github.IssueListByRepoOptions{
			State:  "all",
			Labels: []string{label},
			ListOptions: github.ListOptions{
				PerPage: 100,
			},
		}

		for {
			issues, resp, err := c.client.Issues.ListByRepo(ctx, owner, repo, opts)
			if err != nil {
				yield(models.SourceIssue{Repository: repository},
					classify(resp, err, fmt.Sprintf("failed to list issues for %s", repository)))
				return
			}

			for _, issue := range issues {
				// PRs are also returned by the Issues API
				if issue.PullRequestLinks != nil {
					continue
				}

				src := c.convertIssue(repository, issue)

				var issueErr error
				if issue.GetComments() > 0 {
					src.Comments, issueErr = c.listComments(ctx, owner, repo, repository, src.Number)
				}

				if !yield(src, issueErr) {
					return
				}
			}

			if resp.NextPage == 0 {
				return
			}
			opts.Page = resp.NextPage
		}
	}
}

// listComments pages through an issue's comments in creation order.
func (c *Client) listComments(ctx context.Context, owner, repo, repository string, number int) ([]models.IssueComment, error) {
	opts := &github.IssueListCommentsOptions{
		ListOptions: github.ListOptions{
			PerPage: 100,
		},
	}

	var result []models.IssueComment
	for {
		comments, resp, err := c.client.Issues.ListComments(ctx, owner, repo, number, opts)
		if err != nil {
			return nil, classify(resp, err, fmt.Sprintf("failed to list comments for %s#%d", repository, number))
		}

		for _, comment := range comments {
			result = append(result, models.IssueComment{
				Author: comment.GetUser().GetLogin(),
				Body:   comment.GetBody(),
			})
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return result, nil
}

// convertIssue maps a GitHub API issue to the internal model.
func (c *Client) convertIssue(repository string, issue *github.Issue) models.SourceIssue {
	labelNames := make([]string, 0, len(issue.Labels))
	for _, label := range issue.Labels {
		labelNames = append(labelNames, label.GetName())
	}

	return models.SourceIssue{
		Repository: repository,
		Number:     issue.GetNumber(),
		Title:      issue.GetTitle(),
		Body:       issue.GetBody(),
		Closed:     issue.GetState() == "closed",
		Labels:     labelNames,
		URL:        c.IssueURL(repository, issue.GetNumber()),
		UpdatedAt:  issue.GetUpdatedAt(),
	}
}

// splitRepository parses an "owner/repo" string.
func splitRepository(repository string) (string, string, error) {
	parts := strings.Split(repository, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repository format: %s, expected format: owner/repo", repository)
	}
	return parts[0], parts[1], nil
}

// classify maps a GitHub API failure onto the error taxonomy.
func classify(resp *github.Response, err error, msg string) error {
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
