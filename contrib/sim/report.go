package sim

import (
	"fmt"
	"os"
	"time"

	json "github.com/goccy/go-json"
)

// Report is the machine-readable summary of one run.
type Report struct {
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	// DaysWalked counts the days of the range after
	// weekend filtering.
	DaysWalked int `json:"days_walked"`
	// ActiveDays counts days that received commits.
	ActiveDays int `json:"active_days"`
	// Commits counts generated commits.
	Commits int `json:"commits"`
	// Branch is the pushed branch name, empty when no
	// remote was configured.
	Branch string `json:"branch,omitempty"`
	// PullRequestURL is the created PR, empty when the
	// forge phase did not complete.
	PullRequestURL string `json:"pull_request_url,omitempty"`
}

// writeReport serializes rp as JSON to path.
func writeReport(path string, rp *Report) error {
	const errCtx = "writing run report"

	payload, err := json.MarshalIndent(rp, "", "  ")
	if err != nil {
		return fmt.Errorf(
			"%s: marshal: %w", errCtx, err,
		)
	}

	//nolint:gosec // report path from config
	if err := os.WriteFile(
		path, append(payload, '\n'), 0o644,
	); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}
