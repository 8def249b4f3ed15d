// Package github provides a minimal GitHub REST API client for reading pull
// requests: metadata, the commit list, per-commit and whole-request diffs, and
// merge bases through the compare API.
//
// [PullRequestSource] adapts a [Client] bound to one repository to the
// changes.Source interface, with the pull request number as request ID.
// Owner and repository can be detected from the local git remote with
// [DetectRepo].
package github
