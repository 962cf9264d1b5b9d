// Package sim orchestrates a contribution simulation run. It ensures
// the local repository and remote exist, walks the configured date
// range generating backdated activity commits, and, when a remote is
// configured, creates a timestamped branch, pushes it, opens a pull
// request via a git.ForgeProvider, and posts an automated review
// comment.
//
// The main entry point is Run, which accepts a Config struct with all
// parameters for the workflow.
package sim
