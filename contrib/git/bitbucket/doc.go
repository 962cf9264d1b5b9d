// Package bitbucket implements a git.ForgeProvider for Bitbucket
// Server (Stash) using its REST API directly. Pull requests are
// created on the configured pull-requests endpoint and reviews are
// posted as pull request comments.
package bitbucket
