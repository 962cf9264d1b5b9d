// Command contribgen backdates synthetic commits into a
// local repository over a date range and, when a remote
// is configured, pushes a timestamped branch, opens a
// pull request on the configured forge, and posts an
// automated review comment.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/robfig/cron/v3"

	"github.com/byte4ever/contribgen/contrib/git"
	"github.com/byte4ever/contribgen/contrib/git/bitbucket"
	"github.com/byte4ever/contribgen/contrib/git/github"
	"github.com/byte4ever/contribgen/contrib/git/gitlab"
	"github.com/byte4ever/contribgen/contrib/sim"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

//nolint:funlen // CLI flag setup is inherently long
func run() error {
	const errCtx = "running contribgen"

	// Simulation flags.
	repository := flag.String(
		"repository", "",
		"Remote repository URL (optional)",
	)
	maxCommits := flag.Int(
		"max_commits", 12,
		"Maximum commits per active day",
	)
	frequency := flag.Int(
		"frequency", 60,
		"Percentage of days with commits (0-100)",
	)
	noWeekends := flag.Bool(
		"no_weekends", false,
		"Do not commit on weekends",
	)
	daysBefore := flag.Int(
		"days_before", 365,
		"Days before today to start committing",
	)
	daysAfter := flag.Int(
		"days_after", 0,
		"Days after today to commit",
	)
	file := flag.String(
		"file", "activity.txt",
		"Activity file updated by commits",
	)
	workDir := flag.String(
		"workdir", "",
		"Repository directory (default current)",
	)

	// Pull request flags.
	baseBranch := flag.String(
		"base_branch", "main",
		"Base branch for the pull request",
	)
	commitTemplate := flag.String(
		"commit_template", "",
		"Commit message template "+
			"({{timestamp}} placeholder)",
	)
	prTitle := flag.String(
		"pr_title", "",
		"Title for the created pull request",
	)
	prBody := flag.String(
		"pr_body", "",
		"Body for the created pull request",
	)

	// Forge selection.
	forge := flag.String(
		"forge", "github",
		"Forge platform: github, gitlab, "+
			"or bitbucket",
	)
	ghEnterprise := flag.String(
		"github_enterprise_host", "",
		"GitHub Enterprise hostname",
	)
	glHost := flag.String(
		"gitlab_host", "",
		"GitLab instance URL",
	)
	bbEndpoint := flag.String(
		"bitbucket_api_endpoint", "",
		"Bitbucket Server pull-requests REST URL",
	)
	bbUser := flag.String(
		"bitbucket_user", "",
		"Bitbucket API username",
	)

	// Run control flags.
	configPath := flag.String(
		"config", "",
		"YAML configuration file",
	)
	logFile := flag.String(
		"log_file", "contribgen.log",
		"Persistent log file path",
	)
	reportPath := flag.String(
		"report", "",
		"Write a JSON run summary to this path",
	)
	scheduleSpec := flag.String(
		"schedule", "",
		"Cron expression; repeat the run on this "+
			"schedule instead of running once",
	)

	flag.Parse()

	// Config file values apply only where the flag was
	// not set explicitly on the command line.
	if *configPath != "" {
		fc, err := loadFileConfig(*configPath)
		if err != nil {
			return fmt.Errorf("%s: %w", errCtx, err)
		}

		set := make(map[string]bool)

		flag.Visit(func(f *flag.Flag) {
			set[f.Name] = true
		})

		fc.apply(set, fileTargets{
			repository:     repository,
			maxCommits:     maxCommits,
			frequency:      frequency,
			noWeekends:     noWeekends,
			daysBefore:     daysBefore,
			daysAfter:      daysAfter,
			file:           file,
			baseBranch:     baseBranch,
			commitTemplate: commitTemplate,
			prTitle:        prTitle,
			prBody:         prBody,
			forge:          forge,
		})
	}

	closeLog, err := setupLogger(*logFile)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	defer closeLog()

	token := forgeToken(*forge)

	cfg := sim.Config{
		WorkDir:        *workDir,
		Repository:     *repository,
		MaxCommits:     *maxCommits,
		Frequency:      *frequency,
		SkipWeekends:   *noWeekends,
		DaysBefore:     *daysBefore,
		DaysAfter:      *daysAfter,
		File:           *file,
		BaseBranch:     *baseBranch,
		CommitTemplate: *commitTemplate,
		PRTitle:        *prTitle,
		PRBody:         *prBody,
		Token:          token,
		ReportPath:     *reportPath,
		NewProvider: newProviderFactory(
			*forge,
			providerFlags{
				ghEnterprise: *ghEnterprise,
				glHost:       *glHost,
				bbEndpoint:   *bbEndpoint,
				bbUser:       *bbUser,
			},
			token,
		),
	}

	ctx := context.Background()

	if *scheduleSpec != "" {
		return runScheduled(ctx, cfg, *scheduleSpec)
	}

	if err := sim.Run(ctx, cfg); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	return nil
}

// runScheduled repeats the simulation on a cron schedule
// until the process is terminated.
func runScheduled(
	ctx context.Context,
	cfg sim.Config,
	spec string,
) error {
	const errCtx = "running on schedule"

	c := cron.New()

	if _, err := c.AddFunc(spec, func() {
		if err := sim.Run(ctx, cfg); err != nil {
			slog.Error(
				"scheduled run failed",
				"error", err,
			)
		}
	}); err != nil {
		return fmt.Errorf(
			"%s: parse %q: %w", errCtx, spec, err,
		)
	}

	slog.Info("running on schedule", "spec", spec)

	c.Run()

	return nil
}

// setupLogger installs the default slog logger writing
// to stderr and, when path is non-empty, a persistent
// log file. Returns a close function for the file.
func setupLogger(path string) (func(), error) {
	const errCtx = "setting up logger"

	var w io.Writer = os.Stderr

	closeLog := func() {}

	if path != "" {
		//nolint:gosec // log path from CLI flag
		f, err := os.OpenFile(
			path,
			os.O_APPEND|os.O_CREATE|os.O_WRONLY,
			0o644,
		)
		if err != nil {
			return nil, fmt.Errorf(
				"%s: %w", errCtx, err,
			)
		}

		w = io.MultiWriter(os.Stderr, f)
		closeLog = func() {
			f.Close() //nolint:errcheck,gosec
		}
	}

	slog.SetDefault(slog.New(
		slog.NewTextHandler(w, nil),
	))

	return closeLog, nil
}

// forgeToken reads the authentication token for the
// selected forge from the environment.
func forgeToken(forge string) string {
	switch forge {
	case "gitlab":
		return os.Getenv("GITLAB_TOKEN")
	case "bitbucket":
		return os.Getenv("BITBUCKET_TOKEN")
	default:
		return os.Getenv("GITHUB_TOKEN")
	}
}

// providerFlags bundles forge-specific flag values to
// keep newProviderFactory's signature small.
type providerFlags struct {
	ghEnterprise string
	glHost       string
	bbEndpoint   string
	bbUser       string
}

// newProviderFactory returns a factory building the
// forge provider once the repository identifier is
// resolved. Pattern: Factory -- selects platform
// implementation at runtime.
func newProviderFactory(
	forge string,
	pf providerFlags,
	token string,
) sim.ProviderFactory {
	return func(
		ownerRepo string,
	) (git.ForgeProvider, error) {
		const errCtx = "creating forge provider"

		owner, name, _ := strings.Cut(
			ownerRepo, "/",
		)

		switch forge {
		case "github":
			p, err := github.NewProvider(
				github.Config{
					RepoOwner:      owner,
					Repo:           name,
					AccessToken:    token,
					EnterpriseHost: pf.ghEnterprise,
				},
			)
			if err != nil {
				return nil, fmt.Errorf(
					"%s: %w", errCtx, err,
				)
			}

			return p, nil

		case "gitlab":
			p, err := gitlab.NewProvider(
				gitlab.Config{
					Host:        pf.glHost,
					Repo:        ownerRepo,
					AccessToken: token,
				},
			)
			if err != nil {
				return nil, fmt.Errorf(
					"%s: %w", errCtx, err,
				)
			}

			return p, nil

		case "bitbucket":
			p, err := bitbucket.NewProvider(
				bitbucket.Config{
					APIEndpoint: pf.bbEndpoint,
					User:        pf.bbUser,
					Password:    token,
					ProjectKey:  owner,
					RepoSlug:    name,
				},
			)
			if err != nil {
				return nil, fmt.Errorf(
					"%s: %w", errCtx, err,
				)
			}

			return p, nil

		default:
			return nil, fmt.Errorf(
				"%s: unknown forge %q",
				errCtx, forge,
			)
		}
	}
}

// fileConfig mirrors the YAML configuration file. Only
// present keys override flag defaults.
type fileConfig struct {
	Repository     *string `yaml:"repository"`
	MaxCommits     *int    `yaml:"max_commits"`
	Frequency      *int    `yaml:"frequency"`
	NoWeekends     *bool   `yaml:"no_weekends"`
	DaysBefore     *int    `yaml:"days_before"`
	DaysAfter      *int    `yaml:"days_after"`
	File           *string `yaml:"file"`
	BaseBranch     *string `yaml:"base_branch"`
	CommitTemplate *string `yaml:"commit_template"`
	PRTitle        *string `yaml:"pr_title"`
	PRBody         *string `yaml:"pr_body"`
	Forge          *string `yaml:"forge"`
}

// fileTargets collects the flag value pointers that the
// config file may override.
type fileTargets struct {
	repository     *string
	maxCommits     *int
	frequency      *int
	noWeekends     *bool
	daysBefore     *int
	daysAfter      *int
	file           *string
	baseBranch     *string
	commitTemplate *string
	prTitle        *string
	prBody         *string
	forge          *string
}

// loadFileConfig parses the YAML configuration file at
// path.
func loadFileConfig(path string) (*fileConfig, error) {
	const errCtx = "loading config file"

	raw, err := os.ReadFile(path) //nolint:gosec // path from CLI flag
	if err != nil {
		return nil, fmt.Errorf(
			"%s: %w", errCtx, err,
		)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return nil, fmt.Errorf(
			"%s: parse yaml: %w", errCtx, err,
		)
	}

	return &fc, nil
}

// apply copies file values into flag targets, skipping
// flags set explicitly on the command line.
//
//nolint:gocyclo // flat option mapping
func (fc *fileConfig) apply(
	set map[string]bool,
	tg fileTargets,
) {
	if fc.Repository != nil && !set["repository"] {
		*tg.repository = *fc.Repository
	}

	if fc.MaxCommits != nil && !set["max_commits"] {
		*tg.maxCommits = *fc.MaxCommits
	}

	if fc.Frequency != nil && !set["frequency"] {
		*tg.frequency = *fc.Frequency
	}

	if fc.NoWeekends != nil && !set["no_weekends"] {
		*tg.noWeekends = *fc.NoWeekends
	}

	if fc.DaysBefore != nil && !set["days_before"] {
		*tg.daysBefore = *fc.DaysBefore
	}

	if fc.DaysAfter != nil && !set["days_after"] {
		*tg.daysAfter = *fc.DaysAfter
	}

	if fc.File != nil && !set["file"] {
		*tg.file = *fc.File
	}

	if fc.BaseBranch != nil && !set["base_branch"] {
		*tg.baseBranch = *fc.BaseBranch
	}

	if fc.CommitTemplate != nil &&
		!set["commit_template"] {
		*tg.commitTemplate = *fc.CommitTemplate
	}

	if fc.PRTitle != nil && !set["pr_title"] {
		*tg.prTitle = *fc.PRTitle
	}

	if fc.PRBody != nil && !set["pr_body"] {
		*tg.prBody = *fc.PRBody
	}

	if fc.Forge != nil && !set["forge"] {
		*tg.forge = *fc.Forge
	}
}
