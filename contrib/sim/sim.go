package sim

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/byte4ever/contribgen/contrib/git"
	"github.com/byte4ever/contribgen/contrib/message"
	"github.com/byte4ever/contribgen/contrib/schedule"
)

// ProviderFactory creates a forge provider for the
// "owner/repo" identifier resolved from the remote URL.
type ProviderFactory func(
	ownerRepo string,
) (git.ForgeProvider, error)

// Config holds all settings for a simulation run. Use a
// Config struct instead of many arguments.
type Config struct {
	// WorkDir is the local repository directory
	// (empty means current directory).
	WorkDir string

	// Repository is the remote URL. Empty disables
	// push, PR, and review.
	Repository string

	// MaxCommits bounds commits per active day.
	MaxCommits int

	// Frequency is the percentage chance (0-100) that
	// a day receives commits.
	Frequency int

	// SkipWeekends drops Saturdays and Sundays from
	// the date range.
	SkipWeekends bool

	// DaysBefore is the number of days before today to
	// backdate into.
	DaysBefore int

	// DaysAfter is the number of days after today to
	// generate.
	DaysAfter int

	// File is the activity file path relative to
	// WorkDir.
	File string

	// BaseBranch is the PR target branch.
	BaseBranch string

	// CommitTemplate renders commit messages; empty
	// selects the default template.
	CommitTemplate string

	// PRTitle is the title for the created pull
	// request; empty selects the fixed default.
	PRTitle string

	// PRBody is the body for the created pull request;
	// empty selects the fixed default.
	PRBody string

	// Token authenticates against the forge. Empty
	// skips PR creation with a logged error.
	Token string

	// NewProvider builds the forge provider once the
	// repository identifier is known. Nil skips PR
	// creation.
	NewProvider ProviderFactory

	// ReportPath, when set, receives a JSON run
	// summary.
	ReportPath string

	// Rand supplies uniform draws; nil selects the
	// shared process-wide generator.
	Rand schedule.Source

	// Now supplies the current time; nil selects
	// time.Now. Tests inject a fixed clock.
	Now func() time.Time
}

// Run executes the full simulation workflow: repository
// setup, backdated commit generation, and the optional
// branch/push/PR/review phase. The returned error is
// non-nil only for failures that abort the run; every
// post-commit forge failure is logged and skipped.
func Run(ctx context.Context, cfg Config) error {
	const errCtx = "running contribution simulation"

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	file := cfg.File
	if file == "" {
		file = "activity.txt"
	}

	report := Report{StartedAt: now()}

	repo := &git.Repo{
		Dir:        cfg.WorkDir,
		RemoteName: "origin",
	}

	// Step 1: Ensure the repository exists.
	if err := repo.EnsureInit(); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	// Step 2: Ensure the remote when configured.
	if cfg.Repository != "" {
		if err := repo.EnsureRemote(
			cfg.Repository,
		); err != nil {
			return fmt.Errorf("%s: %w", errCtx, err)
		}
	}

	// Step 3: Walk the date range and commit.
	if err := generateCommits(
		repo, cfg, file, now(), &report,
	); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	// Step 4: Branch, push, PR, and review -- only
	// with a remote configured.
	if cfg.Repository == "" {
		slog.Info(
			"no remote repository configured, " +
				"skipping push and pull request",
		)
	} else if err := forgePhase(
		ctx, repo, cfg, now(), &report,
	); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	report.FinishedAt = now()

	if cfg.ReportPath != "" {
		if err := writeReport(
			cfg.ReportPath, &report,
		); err != nil {
			// Advisory output only; the run already
			// succeeded.
			slog.Error(
				"failed to write run report",
				"path", cfg.ReportPath,
				"error", err,
			)
		}
	}

	slog.Info(
		"simulation finished",
		"days", report.DaysWalked,
		"active_days", report.ActiveDays,
		"commits", report.Commits,
	)

	return nil
}

// generateCommits walks the configured range and creates
// one backdated commit per planned event, appending a
// matching activity line for each.
func generateCommits(
	repo *git.Repo,
	cfg Config,
	file string,
	today time.Time,
	report *Report,
) error {
	const errCtx = "generating commits"

	if err := repo.EnsureActivityFile(
		file, message.ActivityHeader,
	); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	walker := schedule.Walker{
		Today:        today,
		DaysBefore:   cfg.DaysBefore,
		DaysAfter:    cfg.DaysAfter,
		SkipWeekends: cfg.SkipWeekends,
	}

	planner := schedule.Planner{
		MaxCommits: cfg.MaxCommits,
		Frequency:  cfg.Frequency,
		Template:   cfg.CommitTemplate,
		Rand:       cfg.Rand,
	}

	for day := range walker.Days() {
		report.DaysWalked++

		events := planner.Plan(day)
		if len(events) == 0 {
			continue
		}

		report.ActiveDays++

		for _, ev := range events {
			if err := repo.AppendAndCommit(
				file,
				message.ActivityLine(ev.When),
				ev.Message,
				ev.When,
			); err != nil {
				return fmt.Errorf(
					"%s: %w", errCtx, err,
				)
			}

			report.Commits++
		}
	}

	return nil
}

// forgePhase creates the timestamped branch, pushes it,
// and opens the pull request with its review comment.
// Branch creation failure aborts the run; everything
// else is logged and the remaining steps are skipped.
func forgePhase(
	ctx context.Context,
	repo *git.Repo,
	cfg Config,
	now time.Time,
	report *Report,
) error {
	branch := "auto_pr_" + now.Format("20060102_150405")

	if err := repo.CreateBranch(branch); err != nil {
		return err
	}

	report.Branch = branch

	if err := repo.PushBranch(branch); err != nil {
		// Local commits remain valuable without the
		// push.
		slog.Error(
			"failed to push branch",
			"branch", branch,
			"error", err,
		)
	}

	ownerRepo := repo.RemoteRepoName()
	if ownerRepo == "" {
		slog.Error(
			"cannot determine forge repository, " +
				"skipping pull request",
		)

		return nil
	}

	if cfg.Token == "" {
		slog.Error(
			"forge token not set, " +
				"skipping pull request",
		)

		return nil
	}

	if cfg.NewProvider == nil {
		slog.Error(
			"no forge provider configured, " +
				"skipping pull request",
		)

		return nil
	}

	provider, err := cfg.NewProvider(ownerRepo)
	if err != nil {
		slog.Error(
			"failed to create forge provider",
			"repo", ownerRepo,
			"error", err,
		)

		return nil
	}

	title := cfg.PRTitle
	if title == "" {
		title = message.PRTitle
	}

	body := cfg.PRBody
	if body == "" {
		body = message.PRBody
	}

	base := cfg.BaseBranch
	if base == "" {
		base = "main"
	}

	pr, err := provider.CreatePR(
		ctx, branch, base, title, body,
	)
	if err != nil {
		slog.Error(
			"failed to create pull request",
			"error", err,
		)

		return nil
	}

	report.PullRequestURL = pr.URL

	if err := provider.PostReview(
		ctx, pr, message.Review(coinFlip(cfg.Rand)),
	); err != nil {
		slog.Error(
			"failed to post review comment",
			"pr", pr.Number,
			"error", err,
		)
	}

	return nil
}

// coinFlip draws an unweighted boolean from src, falling
// back to the shared generator when src is nil.
func coinFlip(src schedule.Source) bool {
	if src == nil {
		return rand.IntN(2) == 0
	}

	return src.IntN(2) == 0
}
