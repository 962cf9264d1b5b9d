package github

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	gh "github.com/google/go-github/v68/github"

	"github.com/byte4ever/contribgen/contrib/git"
)

// Config holds the settings needed to create a GitHub
// forge provider.
type Config struct {
	// RepoOwner is the GitHub user or organisation
	// that owns the repository.
	RepoOwner string
	// Repo is the repository name (without owner).
	Repo string
	// AccessToken is a personal access token or
	// GitHub App token used for authentication.
	AccessToken string
	// EnterpriseHost is an optional GitHub Enterprise
	// hostname (e.g. "git.corp.example.com"). Leave
	// empty for github.com.
	EnterpriseHost string
}

// Provider creates pull requests and review comments on
// GitHub.
//
// Pattern: Strategy -- implements git.ForgeProvider.
type Provider struct {
	client    *gh.Client
	repoOwner string
	repo      string
}

// NewProvider validates cfg and returns a Provider ready
// to create pull requests.
func NewProvider(cfg Config) (*Provider, error) {
	const errCtx = "creating github provider"

	if cfg.RepoOwner == "" {
		return nil, fmt.Errorf(
			"%s: repo owner must be set", errCtx,
		)
	}

	if cfg.Repo == "" {
		return nil, fmt.Errorf(
			"%s: repo must be set", errCtx,
		)
	}

	if cfg.AccessToken == "" {
		return nil, fmt.Errorf(
			"%s: access token must be set", errCtx,
		)
	}

	client := gh.NewClient(nil).
		WithAuthToken(cfg.AccessToken)

	if cfg.EnterpriseHost != "" {
		baseURL := "https://" +
			cfg.EnterpriseHost + "/api/v3/"
		uploadURL := "https://" +
			cfg.EnterpriseHost + "/api/uploads/"

		var err error

		client, err = client.WithEnterpriseURLs(
			baseURL, uploadURL,
		)
		if err != nil {
			return nil, fmt.Errorf(
				"%s: enterprise urls: %w",
				errCtx, err,
			)
		}
	}

	return &Provider{
		client:    client,
		repoOwner: cfg.RepoOwner,
		repo:      cfg.Repo,
	}, nil
}

// CreatePR creates a pull request from branch "head" into
// branch "base" and returns a handle to it.
func (p *Provider) CreatePR(
	ctx context.Context,
	head string,
	base string,
	title string,
	body string,
) (*git.PullRequest, error) {
	const errCtx = "creating github pull request"

	pr := &gh.NewPullRequest{
		Title: &title,
		Head:  &head,
		Base:  &base,
		Body:  &body,
	}

	created, resp, err := p.client.PullRequests.Create(
		ctx, p.repoOwner, p.repo, pr,
	)
	if err == nil {
		slog.Info(
			"created pull request",
			"number", created.GetNumber(),
			"url", created.GetHTMLURL(),
		)

		return &git.PullRequest{
			Number: created.GetNumber(),
			URL:    created.GetHTMLURL(),
		}, nil
	}

	// HTTP 422: PR already exists for this head/base
	// pair. Branches are timestamped so this should
	// not happen; without a handle the review step
	// cannot run, so surface the error.
	if resp != nil &&
		resp.StatusCode ==
			http.StatusUnprocessableEntity {
		slog.Warn(
			"pull request already exists",
			"head", head,
			"base", base,
		)
	}

	logResponseBody(resp)

	return nil, fmt.Errorf("%s: %w", errCtx, err)
}

// PostReview posts a comment-only review on pr. The
// event is always COMMENT; GitHub rejects approving or
// requesting changes on one's own pull request.
func (p *Provider) PostReview(
	ctx context.Context,
	pr *git.PullRequest,
	body string,
) error {
	const errCtx = "creating github review"

	event := "COMMENT"

	review := &gh.PullRequestReviewRequest{
		Body:  &body,
		Event: &event,
	}

	created, resp, err := p.client.PullRequests.CreateReview(
		ctx, p.repoOwner, p.repo, pr.Number, review,
	)
	if err != nil {
		logResponseBody(resp)

		return fmt.Errorf("%s: %w", errCtx, err)
	}

	slog.Info(
		"posted review comment",
		"pr", pr.Number,
		"review", created.GetID(),
	)

	return nil
}

// logResponseBody logs the response body for debugging.
func logResponseBody(resp *gh.Response) {
	if resp == nil || resp.Body == nil {
		return
	}

	defer resp.Body.Close() //nolint:errcheck

	rb, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		slog.Warn(
			"cannot read response body",
			"error", readErr,
		)

		return
	}

	slog.Warn("github response", "body", string(rb))
}
