// Package message generates the text written by a
// simulation run: activity file lines, commit messages,
// pull request title and body, and review comments.
package message

import (
	"time"

	"github.com/valyala/fasttemplate"
)

// timeLayout is the human-readable timestamp format used
// in activity lines and commit messages.
const timeLayout = "2006-01-02 15:04:05"

// DefaultCommitTemplate is the commit message template
// used when none is configured. The {{timestamp}}
// placeholder receives the commit time.
const DefaultCommitTemplate = "Automated commit on {{timestamp}}"

// ActivityHeader is the first line of a freshly created
// activity file.
const ActivityHeader = "Activity Log"

// PRTitle is the title of created pull requests.
const PRTitle = "Automated Pull Request: Bot Update"

// PRBody is the body of created pull requests.
const PRBody = "This pull request was created automatically by the bot."

// reviewIssues simulates a review that found minor
// problems.
const reviewIssues = "Automated review:\n" +
	"- Found minor style issues in the diff.\n" +
	"- Consider refactoring for better clarity.\n" +
	"Note: This is a self-review comment; please address these issues."

// reviewClean simulates a review with nothing to report.
const reviewClean = "Automated review: Everything looks good. (Self-review comment)"

// Commit renders a commit message from tpl, substituting
// {{timestamp}} with at. Empty tpl selects
// DefaultCommitTemplate.
func Commit(tpl string, at time.Time) string {
	if tpl == "" {
		tpl = DefaultCommitTemplate
	}

	ft := fasttemplate.New(tpl, "{{", "}}")

	return ft.ExecuteString(map[string]any{
		"timestamp": at.Format(timeLayout),
	})
}

// ActivityLine is the line appended to the activity file
// for one commit.
func ActivityLine(at time.Time) string {
	return "Update at " + at.Format(timeLayout)
}

// Review returns the review comment body. issues selects
// the variant that reports simulated findings.
func Review(issues bool) string {
	if issues {
		return reviewIssues
	}

	return reviewClean
}
