// Package gitlab implements a git.ForgeProvider that creates merge
// requests on GitLab and posts review comments as merge request notes.
// GitLab has no comment-only review event; a note on the merge request
// is the equivalent surface, and no approval is ever submitted.
package gitlab
