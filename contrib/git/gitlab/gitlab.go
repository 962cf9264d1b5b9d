package gitlab

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	gl "gitlab.com/gitlab-org/api/client-go"

	"github.com/byte4ever/contribgen/contrib/git"
)

// Config holds the settings needed to create a GitLab
// forge provider.
type Config struct {
	// Host is the base URL of the GitLab instance
	// (e.g. "https://gitlab.com").
	Host string
	// Repo is the full project path
	// (e.g. "org/project").
	Repo string
	// AccessToken is a personal or project access
	// token used for authentication.
	AccessToken string
}

// Provider creates merge requests and notes on GitLab.
//
// Pattern: Strategy -- implements git.ForgeProvider.
type Provider struct {
	client *gl.Client
	repo   string
}

// NewProvider validates cfg and returns a Provider ready
// to create merge requests.
func NewProvider(cfg Config) (*Provider, error) {
	const errCtx = "creating gitlab provider"

	if cfg.AccessToken == "" {
		return nil, fmt.Errorf(
			"%s: access token must be set", errCtx,
		)
	}

	if cfg.Repo == "" {
		return nil, fmt.Errorf(
			"%s: repo must be set", errCtx,
		)
	}

	host := cfg.Host
	if host == "" {
		host = "https://gitlab.com"
	}

	client, err := gl.NewClient(
		cfg.AccessToken,
		gl.WithBaseURL(host),
	)
	if err != nil {
		return nil, fmt.Errorf(
			"%s: new client: %w", errCtx, err,
		)
	}

	return &Provider{
		client: client,
		repo:   cfg.Repo,
	}, nil
}

// CreatePR creates a merge request from branch "head"
// into branch "base" and returns a handle to it.
func (p *Provider) CreatePR(
	ctx context.Context,
	head string,
	base string,
	title string,
	body string,
) (*git.PullRequest, error) {
	const errCtx = "creating gitlab merge request"

	opts := gl.CreateMergeRequestOptions{
		Title:        &title,
		Description:  &body,
		SourceBranch: &head,
		TargetBranch: &base,
	}

	created, resp, err := p.client.MergeRequests.CreateMergeRequest(
		p.repo, &opts, gl.WithContext(ctx),
	)
	if err == nil {
		slog.Info(
			"created merge request",
			"iid", created.IID,
			"url", created.WebURL,
		)

		return &git.PullRequest{
			Number: int(created.IID),
			URL:    created.WebURL,
		}, nil
	}

	// HTTP 409: MR already exists for this source
	// branch. Without a handle the review step cannot
	// run, so surface the error.
	if resp != nil &&
		resp.StatusCode == http.StatusConflict {
		slog.Warn(
			"merge request already exists",
			"head", head,
			"base", base,
		)
	}

	logResponseBody(resp)

	return nil, fmt.Errorf("%s: %w", errCtx, err)
}

// PostReview posts the review as a note on the merge
// request.
func (p *Provider) PostReview(
	ctx context.Context,
	pr *git.PullRequest,
	body string,
) error {
	const errCtx = "creating gitlab note"

	opts := gl.CreateMergeRequestNoteOptions{
		Body: &body,
	}

	note, resp, err := p.client.Notes.CreateMergeRequestNote(
		p.repo, int64(pr.Number), &opts, gl.WithContext(ctx),
	)
	if err != nil {
		logResponseBody(resp)

		return fmt.Errorf("%s: %w", errCtx, err)
	}

	slog.Info(
		"posted review note",
		"mr", pr.Number,
		"note", note.ID,
	)

	return nil
}

// logResponseBody logs the response body for debugging.
func logResponseBody(resp *gl.Response) {
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

	slog.Warn("gitlab response", "body", string(rb))
}
