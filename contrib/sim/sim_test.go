package sim_test

import (
	"context"
	"os"
	oe "os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byte4ever/contribgen/contrib/git"
	"github.com/byte4ever/contribgen/contrib/sim"
)

// fixedSource replays a predetermined draw sequence,
// wrapping around when exhausted.
type fixedSource struct {
	draws []int
	pos   int
}

func (f *fixedSource) IntN(n int) int {
	v := f.draws[f.pos%len(f.draws)]
	f.pos++

	return v % n
}

// createCall records one CreatePR invocation.
type createCall struct {
	head  string
	base  string
	title string
	body  string
}

// stubProvider is a ForgeProvider that records calls.
type stubProvider struct {
	pr      *git.PullRequest
	created []createCall
	reviews []string
}

func (s *stubProvider) CreatePR(
	_ context.Context,
	head string,
	base string,
	title string,
	body string,
) (*git.PullRequest, error) {
	s.created = append(s.created, createCall{
		head:  head,
		base:  base,
		title: title,
		body:  body,
	})

	return s.pr, nil
}

func (s *stubProvider) PostReview(
	_ context.Context,
	_ *git.PullRequest,
	body string,
) error {
	s.reviews = append(s.reviews, body)

	return nil
}

// monday is the injected clock anchor.
var monday = time.Date(
	2024, time.April, 8,
	10, 30, 0, 0, time.UTC,
)

// setupWorkDir prepares a git repository with identity
// configured but no commits, so Run's EnsureInit is a
// no-op and commits succeed without global git config.
func setupWorkDir(tb testing.TB) string {
	tb.Helper()

	dir := tb.TempDir()

	cmds := [][]string{
		{"init", "-b", "main"},
		{
			"config",
			"user.email", "test@test.com",
		},
		{"config", "user.name", "Test"},
		{
			"config", "core.hooksPath",
			"/dev/null",
		},
	}

	for _, args := range cmds {
		gitCmd(tb, dir, args...)
	}

	return dir
}

func TestRun_local_only(t *testing.T) {
	t.Parallel()

	dir := setupWorkDir(t)
	reportPath := filepath.Join(dir, "report.json")

	cfg := sim.Config{
		WorkDir:    dir,
		MaxCommits: 1,
		Frequency:  100,
		DaysBefore: 2,
		File:       "activity.txt",
		ReportPath: reportPath,
		Rand: &fixedSource{
			draws: []int{0, 0, 9, 15, 30},
		},
		Now: func() time.Time { return monday },
	}

	require.NoError(t, sim.Run(context.Background(), cfg))

	// Exactly one commit per day of the range.
	out := gitOut(t, dir, "rev-list", "--count", "HEAD")
	assert.Equal(t, "3", strings.TrimSpace(out))

	// One activity line per commit, after the header.
	by, err := os.ReadFile(
		filepath.Join(dir, "activity.txt"),
	)
	require.NoError(t, err)

	lines := strings.Split(
		strings.TrimRight(string(by), "\n"), "\n",
	)
	require.Len(t, lines, 4)
	assert.Equal(t, "Activity Log", lines[0])

	for _, line := range lines[1:] {
		assert.True(
			t,
			strings.HasPrefix(line, "Update at "),
		)
	}

	// Commit author dates match the calendar days.
	out = gitOut(
		t, dir,
		"log", "--pretty=%ad", "--date=format:%Y-%m-%d",
	)
	assert.ElementsMatch(
		t,
		[]string{"2024-04-08", "2024-04-07", "2024-04-06"},
		strings.Fields(out),
	)

	// No branch was created without a remote.
	out = gitOut(t, dir, "branch", "--show-current")
	assert.Equal(t, "main", strings.TrimSpace(out))

	rp := readReport(t, reportPath)
	assert.Equal(t, 3, rp.DaysWalked)
	assert.Equal(t, 3, rp.ActiveDays)
	assert.Equal(t, 3, rp.Commits)
	assert.Empty(t, rp.Branch)
	assert.Empty(t, rp.PullRequestURL)
}

func TestRun_frequency_zero(t *testing.T) {
	t.Parallel()

	dir := setupWorkDir(t)
	reportPath := filepath.Join(dir, "report.json")

	cfg := sim.Config{
		WorkDir:    dir,
		MaxCommits: 12,
		Frequency:  0,
		DaysBefore: 5,
		ReportPath: reportPath,
		Rand:       &fixedSource{draws: []int{0}},
		Now:        func() time.Time { return monday },
	}

	require.NoError(t, sim.Run(context.Background(), cfg))

	// The activity file is created with only the
	// header line.
	by, err := os.ReadFile(
		filepath.Join(dir, "activity.txt"),
	)
	require.NoError(t, err)
	assert.Equal(t, "Activity Log\n", string(by))

	rp := readReport(t, reportPath)
	assert.Equal(t, 6, rp.DaysWalked)
	assert.Equal(t, 0, rp.ActiveDays)
	assert.Equal(t, 0, rp.Commits)
}

func TestRun_skip_weekends(t *testing.T) {
	t.Parallel()

	dir := setupWorkDir(t)
	saturday := monday.AddDate(0, 0, -2)
	reportPath := filepath.Join(dir, "report.json")

	cfg := sim.Config{
		WorkDir:      dir,
		MaxCommits:   3,
		Frequency:    100,
		SkipWeekends: true,
		ReportPath:   reportPath,
		Rand: &fixedSource{
			draws: []int{0, 0, 9, 15, 30},
		},
		Now: func() time.Time { return saturday },
	}

	require.NoError(t, sim.Run(context.Background(), cfg))

	// Today is a Saturday and weekends are skipped:
	// nothing is walked, nothing committed.
	rp := readReport(t, reportPath)
	assert.Equal(t, 0, rp.DaysWalked)
	assert.Equal(t, 0, rp.Commits)
}

func TestRun_missing_token_skips_pr(t *testing.T) {
	t.Parallel()

	dir := setupWorkDir(t)

	factoryCalled := false

	cfg := sim.Config{
		WorkDir:    dir,
		Repository: "git@github.com:user/repo.git",
		MaxCommits: 1,
		Frequency:  100,
		File:       "activity.txt",
		Rand: &fixedSource{
			draws: []int{0, 0, 9, 15, 30},
		},
		Now: func() time.Time { return monday },
		NewProvider: func(
			string,
		) (git.ForgeProvider, error) {
			factoryCalled = true

			return nil, nil
		},
	}

	// Push fails (the remote does not exist) and the
	// missing token skips the PR, but the run still
	// completes.
	require.NoError(t, sim.Run(context.Background(), cfg))

	// The branch was created and switched to.
	out := gitOut(t, dir, "branch", "--show-current")
	assert.Equal(
		t,
		"auto_pr_20240408_103000",
		strings.TrimSpace(out),
	)

	assert.False(t, factoryCalled)
}

func TestRun_forge_phase(t *testing.T) {
	t.Parallel()

	dir := setupWorkDir(t)

	stub := &stubProvider{
		pr: &git.PullRequest{
			Number: 42,
			URL:    "https://github.com/user/repo/pull/42",
		},
	}

	var factoryRepo string

	cfg := sim.Config{
		WorkDir: dir,
		// The remote does not exist, so the push fails
		// and is logged; the PR phase still proceeds.
		Repository: "git@github.com:user/repo.git",
		MaxCommits: 1,
		Frequency:  100,
		DaysBefore: 1,
		Token:      "tok",
		BaseBranch: "main",
		Rand: &fixedSource{
			draws: []int{0, 0, 9, 15, 30},
		},
		Now: func() time.Time { return monday },
		NewProvider: func(
			ownerRepo string,
		) (git.ForgeProvider, error) {
			factoryRepo = ownerRepo

			return stub, nil
		},
	}

	require.NoError(
		t, sim.Run(context.Background(), cfg),
	)

	assert.Equal(t, "user/repo", factoryRepo)

	require.Len(t, stub.created, 1)
	call := stub.created[0]
	assert.Equal(
		t, "auto_pr_20240408_103000", call.head,
	)
	assert.Equal(t, "main", call.base)
	assert.Equal(
		t,
		"Automated Pull Request: Bot Update",
		call.title,
	)
	assert.NotEmpty(t, call.body)

	require.Len(t, stub.reviews, 1)
	assert.Contains(
		t, stub.reviews[0], "Automated review",
	)
}

func TestRun_push_to_local_remote(t *testing.T) {
	t.Parallel()

	dir := setupWorkDir(t)
	remote := t.TempDir()

	gitCmd(t, remote, "init", "--bare", "-b", "main")

	cfg := sim.Config{
		WorkDir:    dir,
		Repository: remote,
		MaxCommits: 1,
		Frequency:  100,
		Rand: &fixedSource{
			draws: []int{0, 0, 9, 15, 30},
		},
		Now: func() time.Time { return monday },
	}

	// Filesystem remotes do not resolve to a forge
	// identifier, so the PR phase is skipped, but the
	// branch push itself succeeds.
	require.NoError(t, sim.Run(context.Background(), cfg))

	out := gitOut(
		t, remote,
		"rev-list", "--count",
		"auto_pr_20240408_103000",
	)
	assert.Equal(t, "1", strings.TrimSpace(out))
}

// readReport parses the JSON run report at path.
func readReport(tb testing.TB, path string) sim.Report {
	tb.Helper()

	by, err := os.ReadFile(path) //nolint:gosec // test
	require.NoError(tb, err)

	var rp sim.Report

	require.NoError(tb, json.Unmarshal(by, &rp))

	return rp
}

// gitCmd runs a git command in the given directory.
func gitCmd(
	tb testing.TB,
	dir string,
	args ...string,
) {
	tb.Helper()

	gitOut(tb, dir, args...)
}

// gitOut runs a git command and returns its combined
// output.
func gitOut(
	tb testing.TB,
	dir string,
	args ...string,
) string {
	tb.Helper()

	//nolint:gosec // test helper
	cmd := oe.CommandContext(
		context.Background(), "git", args...,
	)
	cmd.Dir = dir

	out, err := cmd.CombinedOutput()
	if err != nil {
		tb.Fatalf(
			"git %v failed: %s: %v",
			args, string(out), err,
		)
	}

	return string(out)
}
