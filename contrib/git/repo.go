package git

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/byte4ever/contribgen/contrib/exec"
)

// Repo is a local git repository rooted at Dir.
type Repo struct {
	// Dir is the filesystem location of the repository.
	Dir string
	// RemoteName is the name of the upstream remote.
	RemoteName string
}

// FatalError marks a failure that must abort the run.
// Only branch creation produces it; every other failure
// past the commit phase is logged and skipped.
type FatalError struct {
	Err error
}

// Error returns the wrapped error message.
func (e *FatalError) Error() string {
	return e.Err.Error()
}

// Unwrap returns the wrapped error.
func (e *FatalError) Unwrap() error {
	return e.Err
}

// EnsureInit initializes a git repository in Dir unless
// one already exists. Idempotent.
func (r *Repo) EnsureInit() error {
	const errCtx = "ensuring repository"

	gitDir := filepath.Join(r.Dir, ".git")
	if _, err := os.Stat(gitDir); err == nil {
		slog.Info(
			"repository already initialized",
			"dir", r.Dir,
		)

		return nil
	}

	if _, err := exec.Ex(r.Dir, "git", "init"); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	slog.Info("initialized repository", "dir", r.Dir)

	return nil
}

// EnsureRemote adds RemoteName pointing at url unless a
// remote of that name is already configured. Idempotent.
func (r *Repo) EnsureRemote(url string) error {
	const errCtx = "ensuring remote"

	out, err := exec.Ex(r.Dir, "git", "remote")
	if err != nil {
		return fmt.Errorf(
			"%s: list remotes: %w", errCtx, err,
		)
	}

	for _, name := range strings.Fields(out) {
		if name == r.RemoteName {
			slog.Info(
				"remote already configured",
				"remote", r.RemoteName,
			)

			return nil
		}
	}

	if _, err := exec.Ex(
		r.Dir, "git",
		"remote", "add", r.RemoteName, url,
	); err != nil {
		return fmt.Errorf(
			"%s: add remote: %w", errCtx, err,
		)
	}

	slog.Info(
		"remote configured",
		"remote", r.RemoteName,
		"url", url,
	)

	return nil
}

// EnsureActivityFile creates the activity file at
// relPath with header as its first line unless the file
// already exists. Idempotent.
func (r *Repo) EnsureActivityFile(
	relPath string,
	header string,
) error {
	const errCtx = "ensuring activity file"

	path := filepath.Join(r.Dir, relPath)

	if _, err := os.Stat(path); err == nil {
		slog.Info(
			"using existing activity file",
			"path", path,
		)

		return nil
	}

	//nolint:gosec // activity file path from config
	if err := os.WriteFile(
		path, []byte(header+"\n"), 0o644,
	); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	slog.Info("created activity file", "path", path)

	return nil
}

// AppendAndCommit appends line to the file at relPath,
// stages it, and commits with msg. Both author and
// committer dates are forced to at through the commit
// environment so the local clock never leaks into the
// recorded timestamp.
func (r *Repo) AppendAndCommit(
	relPath string,
	line string,
	msg string,
	at time.Time,
) error {
	const errCtx = "committing activity"

	if err := r.appendLine(relPath, line); err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	// ISO-8601 with a numeric offset; git's date parser
	// is stricter than RFC 3339 about the "Z" suffix.
	const gitDateLayout = "2006-01-02T15:04:05-07:00"

	stamp := at.Format(gitDateLayout)

	dateEnv := []string{
		"GIT_AUTHOR_DATE=" + stamp,
		"GIT_COMMITTER_DATE=" + stamp,
	}

	if _, err := exec.Ex(
		r.Dir, "git", "add", relPath,
	); err != nil {
		return fmt.Errorf(
			"%s: stage %s: %w", errCtx, relPath, err,
		)
	}

	if _, err := exec.ExEnv(
		r.Dir, dateEnv,
		"git", "commit", "-m", msg,
	); err != nil {
		return fmt.Errorf(
			"%s: commit: %w", errCtx, err,
		)
	}

	slog.Info("committed", "message", msg)

	return nil
}

// appendLine appends line to the activity file.
func (r *Repo) appendLine(
	relPath string,
	line string,
) error {
	path := filepath.Join(r.Dir, relPath)

	//nolint:gosec // activity file path from config
	f, err := os.OpenFile(
		path,
		os.O_APPEND|os.O_CREATE|os.O_WRONLY,
		0o644,
	)
	if err != nil {
		return fmt.Errorf("open activity file: %w", err)
	}

	defer f.Close() //nolint:errcheck

	if _, err := f.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("write line: %w", err)
	}

	return nil
}

// CreateBranch creates and switches to a new branch.
// Failure is fatal to the run and is reported as a
// *FatalError.
func (r *Repo) CreateBranch(name string) error {
	const errCtx = "creating branch"

	if _, err := exec.Ex(
		r.Dir, "git", "checkout", "-b", name,
	); err != nil {
		return &FatalError{Err: fmt.Errorf(
			"%s %s: %w", errCtx, name, err,
		)}
	}

	slog.Info("created branch", "branch", name)

	return nil
}

// PushBranch pushes name to the remote and sets it as
// upstream. Errors are returned for the caller to log;
// a failed push never aborts the run because the local
// commits remain valuable on their own.
func (r *Repo) PushBranch(name string) error {
	const errCtx = "pushing branch"

	if _, err := exec.Ex(
		r.Dir, "git",
		"push", "--set-upstream", r.RemoteName, name,
	); err != nil {
		return fmt.Errorf(
			"%s %s: %w", errCtx, name, err,
		)
	}

	slog.Info("pushed branch", "branch", name)

	return nil
}

// RemoteRepoName resolves the configured remote URL to an
// "owner/repo" identifier. Returns empty string when no
// URL is configured or its shape is not recognized;
// callers must treat that as "forge operations cannot
// proceed".
func (r *Repo) RemoteRepoName() string {
	out, err := exec.Ex(
		r.Dir, "git",
		"config", "--get",
		"remote."+r.RemoteName+".url",
	)
	if err != nil {
		slog.Error(
			"cannot read remote url",
			"remote", r.RemoteName,
			"error", err,
		)

		return ""
	}

	name := ParseRemoteURL(strings.TrimSpace(out))
	if name == "" {
		slog.Error(
			"unrecognized remote url shape",
			"url", strings.TrimSpace(out),
		)

		return ""
	}

	slog.Info("resolved forge repository", "repo", name)

	return name
}

// ParseRemoteURL normalizes a git remote URL into an
// "owner/repo" identifier. Recognized shapes are the SSH
// form "git@host:owner/repo" and the HTTPS form
// "https://host/owner/repo", each with an optional
// ".git" suffix. Returns empty string for anything else.
func ParseRemoteURL(url string) string {
	var rest string

	switch {
	case strings.HasPrefix(url, "git@"):
		_, after, ok := strings.Cut(
			strings.TrimPrefix(url, "git@"), ":",
		)
		if !ok {
			return ""
		}

		rest = after

	case strings.HasPrefix(url, "https://"):
		_, after, ok := strings.Cut(
			strings.TrimPrefix(url, "https://"), "/",
		)
		if !ok {
			return ""
		}

		rest = after

	default:
		return ""
	}

	rest = strings.TrimSuffix(rest, ".git")
	rest = strings.Trim(rest, "/")

	// The identifier must be exactly owner/repo.
	if strings.Count(rest, "/") != 1 {
		return ""
	}

	return rest
}
