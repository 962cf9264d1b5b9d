package git

import "context"

// Pattern: Strategy -- swap forge platform without
// changing the orchestration logic.

// PullRequest is a handle to a created pull request,
// used to post the follow-up review.
type PullRequest struct {
	// Number is the forge-assigned PR number (IID on
	// GitLab).
	Number int
	// URL is the web URL of the pull request.
	URL string
}

// ForgeProvider creates pull requests and posts review
// comments on a git hosting platform. PostReview must
// only ever comment; self-review approval is rejected by
// the forges and is never attempted.
type ForgeProvider interface {
	CreatePR(
		ctx context.Context,
		head string,
		base string,
		title string,
		body string,
	) (*PullRequest, error)

	PostReview(
		ctx context.Context,
		pr *PullRequest,
		body string,
	) error
}
