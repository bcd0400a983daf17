package reltag

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/go-github/v49/github"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/oauth2"
)

// Valid commit status states accepted by the GitHub API.
const (
	StatusPending = "pending"
	StatusSuccess = "success"
	StatusError   = "error"
	StatusFailure = "failure"
)

// GitHubPublisher publishes releases, commit statuses and pull request
// comments for one repository. It implements ReleasePublisher.
type GitHubPublisher struct {
	owner  string
	repo   string
	client *github.Client
}

// NewGitHubPublisher builds a publisher for owner/repo authenticated with
// a personal access token. Transport-level failures are retried.
func NewGitHubPublisher(owner, repo, token string) (*GitHubPublisher, error) {
	if owner == "" {
		return nil, fmt.Errorf("owner is required")
	}
	if repo == "" {
		return nil, fmt.Errorf("repo is required")
	}
	if token == "" {
		return nil, fmt.Errorf("token is required")
	}

	retry := retryablehttp.NewClient()
	retry.Logger = nil

	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, retry.StandardClient())
	httpClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))

	return &GitHubPublisher{
		owner:  owner,
		repo:   repo,
		client: github.NewClient(httpClient),
	}, nil
}

// PublishRelease publishes a release for the given tag. Any existing
// release for the same tag is deleted first, so publishing twice with the
// same version replaces rather than fails.
func (p *GitHubPublisher) PublishRelease(ctx context.Context, version, body string, draft, prerelease bool) (*Release, error) {
	existing, resp, err := p.client.Repositories.GetReleaseByTag(ctx, p.owner, p.repo, version)
	switch {
	case err == nil:
		if _, err := p.client.Repositories.DeleteRelease(ctx, p.owner, p.repo, existing.GetID()); err != nil {
			return nil, fmt.Errorf("deleting existing release for %s: %w", version, err)
		}
	case resp != nil && resp.StatusCode == http.StatusNotFound:
		// No release for this tag yet.
	default:
		return nil, fmt.Errorf("looking up release for %s: %w", version, err)
	}

	created, _, err := p.client.Repositories.CreateRelease(ctx, p.owner, p.repo, &github.RepositoryRelease{
		TagName:    github.String(version),
		Name:       github.String(version),
		Body:       github.String(body),
		Draft:      github.Bool(draft),
		Prerelease: github.Bool(prerelease),
	})
	if err != nil {
		return nil, fmt.Errorf("creating release for %s: %w", version, err)
	}

	return &Release{
		ID:      created.GetID(),
		TagName: version,
		URL:     created.GetHTMLURL(),
	}, nil
}

// SetCommitStatus reports a status for a commit, e.g. from a pipeline
// stage. state must be one of pending, success, error or failure.
func (p *GitHubPublisher) SetCommitStatus(ctx context.Context, sha, state, targetURL, description, statusContext string) error {
	switch state {
	case StatusPending, StatusSuccess, StatusError, StatusFailure:
	default:
		return fmt.Errorf("unrecognized status state %q", state)
	}

	status := &github.RepoStatus{State: github.String(state)}
	if targetURL != "" {
		status.TargetURL = github.String(targetURL)
	}
	if description != "" {
		status.Description = github.String(description)
	}
	if statusContext != "" {
		status.Context = github.String(statusContext)
	}

	if _, _, err := p.client.Repositories.CreateStatus(ctx, p.owner, p.repo, sha, status); err != nil {
		return fmt.Errorf("setting status for %s: %w", sha, err)
	}

	return nil
}

// CommentOnPR adds a comment to a pull request.
func (p *GitHubPublisher) CommentOnPR(ctx context.Context, number int, body string) error {
	comment := &github.IssueComment{Body: github.String(body)}
	if _, _, err := p.client.Issues.CreateComment(ctx, p.owner, p.repo, number, comment); err != nil {
		return fmt.Errorf("commenting on pull request #%d: %w", number, err)
	}

	return nil
}
