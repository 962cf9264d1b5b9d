// Package git provides local git repository operations and a strategy
// interface for pull request automation across git hosting platforms.
//
// Repo wraps a working directory with idempotent setup (EnsureInit,
// EnsureRemote), backdated activity commits (AppendAndCommit), branch
// creation and push, and remote URL normalization. Branch creation is
// the one operation whose failure is wrapped in FatalError; callers
// treat everything else downstream of the commit phase as advisory.
//
// The ForgeProvider interface abstracts pull request creation and
// review comments. Implementations exist for GitHub, GitLab, and
// Bitbucket Server in sub-packages.
package git
