package bitbucket

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/byte4ever/contribgen/contrib/git"
)

// Config holds the settings needed to create a Bitbucket
// Server forge provider.
type Config struct {
	// APIEndpoint is the full Bitbucket Server REST
	// API URL for pull requests, including project
	// and repo path (e.g.
	// "https://bb.example.com/rest/api/1.0/
	// projects/PROJ/repos/repo/pull-requests").
	APIEndpoint string
	// User is the Bitbucket API username.
	User string
	// Password is the Bitbucket API password (or
	// personal access token).
	Password string
	// ProjectKey is the Bitbucket project key of the
	// repository.
	ProjectKey string
	// RepoSlug is the repository slug within the
	// project.
	RepoSlug string
}

// Provider creates pull requests and comments on
// Bitbucket Server.
//
// Pattern: Strategy -- implements git.ForgeProvider.
type Provider struct {
	endpoint string
	user     string
	password string
	project  string
	slug     string
}

type project struct {
	Key string `json:"key,omitempty"`
}

type repository struct {
	Slug    string  `json:"slug,omitempty"`
	Project project `json:"project"`
}

type pullrequestEndpoint struct {
	ID         string     `json:"id,omitempty"`
	Repository repository `json:"repository,omitempty"`
}

type pullrequest struct {
	Title       string               `json:"title,omitempty"`
	Description string               `json:"description,omitempty"`
	State       string               `json:"state,omitempty"`
	Open        bool                 `json:"open"`
	Closed      bool                 `json:"closed"`
	FromRef     *pullrequestEndpoint `json:"fromRef,omitempty"`
	ToRef       *pullrequestEndpoint `json:"toRef,omitempty"`
	Locked      bool                 `json:"locked"`
	Reviewers   []account            `json:"reviewers,omitempty"`
}

type account struct {
	User user `json:"user"`
}

type user struct {
	Name string `json:"name,omitempty"`
}

// createdPR mirrors the fields of the PR creation
// response needed for the handle.
type createdPR struct {
	ID    int `json:"id"`
	Links struct {
		Self []struct {
			Href string `json:"href"`
		} `json:"self"`
	} `json:"links"`
}

// comment is the payload of the PR comments endpoint.
type comment struct {
	Text string `json:"text"`
}

// NewProvider validates cfg and returns a Provider ready
// to create pull requests.
func NewProvider(cfg Config) (*Provider, error) {
	const errCtx = "creating bitbucket provider"

	if cfg.APIEndpoint == "" {
		return nil, fmt.Errorf(
			"%s: api endpoint must be set",
			errCtx,
		)
	}

	if cfg.User == "" {
		return nil, fmt.Errorf(
			"%s: user must be set", errCtx,
		)
	}

	if cfg.Password == "" {
		return nil, fmt.Errorf(
			"%s: password must be set", errCtx,
		)
	}

	if cfg.ProjectKey == "" {
		return nil, fmt.Errorf(
			"%s: project key must be set", errCtx,
		)
	}

	if cfg.RepoSlug == "" {
		return nil, fmt.Errorf(
			"%s: repo slug must be set", errCtx,
		)
	}

	return &Provider{
		endpoint: strings.TrimSuffix(
			cfg.APIEndpoint, "/",
		),
		user:     cfg.User,
		password: cfg.Password,
		project:  cfg.ProjectKey,
		slug:     cfg.RepoSlug,
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
	const errCtx = "creating bitbucket pull request"

	repo := repository{
		Slug:    p.slug,
		Project: project{Key: p.project},
	}

	pr := pullrequest{
		Title:       title,
		Description: body,
		State:       "OPEN",
		Open:        true,
		Closed:      false,
		FromRef: &pullrequestEndpoint{
			ID:         "refs/heads/" + head,
			Repository: repo,
		},
		ToRef: &pullrequestEndpoint{
			ID:         "refs/heads/" + base,
			Repository: repo,
		},
		Locked:    false,
		Reviewers: []account{},
	}

	payload, err := json.Marshal(&pr)
	if err != nil {
		return nil, fmt.Errorf(
			"%s: marshal request: %w", errCtx, err,
		)
	}

	status, rb, err := p.post(
		ctx, p.endpoint, payload,
	)
	if err != nil {
		return nil, fmt.Errorf(
			"%s: %w", errCtx, err,
		)
	}

	slog.Info(
		"bitbucket response",
		"status", status,
		"body", string(rb),
	)

	// 409 Conflict: PR already exists. Without a
	// handle the review step cannot run, so surface
	// the error.
	if status == http.StatusConflict {
		slog.Warn(
			"pull request already exists",
			"head", head,
			"base", base,
		)
	}

	if status != http.StatusCreated {
		return nil, fmt.Errorf(
			"%s: unexpected status %d",
			errCtx, status,
		)
	}

	var created createdPR
	if err := json.Unmarshal(rb, &created); err != nil {
		return nil, fmt.Errorf(
			"%s: parse response: %w", errCtx, err,
		)
	}

	handle := &git.PullRequest{Number: created.ID}
	if len(created.Links.Self) > 0 {
		handle.URL = created.Links.Self[0].Href
	}

	slog.Info(
		"created pull request",
		"id", handle.Number,
		"url", handle.URL,
	)

	return handle, nil
}

// PostReview posts the review as a pull request comment.
func (p *Provider) PostReview(
	ctx context.Context,
	pr *git.PullRequest,
	body string,
) error {
	const errCtx = "creating bitbucket comment"

	payload, err := json.Marshal(
		&comment{Text: body},
	)
	if err != nil {
		return fmt.Errorf(
			"%s: marshal request: %w", errCtx, err,
		)
	}

	url := fmt.Sprintf(
		"%s/%d/comments", p.endpoint, pr.Number,
	)

	status, rb, err := p.post(ctx, url, payload)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	if status != http.StatusCreated {
		slog.Warn(
			"bitbucket response",
			"status", status,
			"body", string(rb),
		)

		return fmt.Errorf(
			"%s: unexpected status %d",
			errCtx, status,
		)
	}

	slog.Info("posted review comment", "pr", pr.Number)

	return nil
}

// post sends an authenticated JSON POST and returns the
// status code and response body.
func (p *Provider) post(
	ctx context.Context,
	url string,
	payload []byte,
) (int, []byte, error) {
	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		url,
		bytes.NewBuffer(payload),
	)
	if err != nil {
		return 0, nil, fmt.Errorf(
			"build request: %w", err,
		)
	}

	req.Header.Set(
		"Content-Type",
		"application/json; charset=utf-8",
	)
	req.SetBasicAuth(p.user, p.password)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf(
			"send request: %w", err,
		)
	}

	defer resp.Body.Close() //nolint:errcheck

	rb, err := io.ReadAll(resp.Body)
	if err != nil {
		slog.Warn(
			"cannot read response body",
			"error", err,
		)

		rb = nil
	}

	return resp.StatusCode, rb, nil
}
