package github

import (
	"context"
	"fmt"
	"strconv"

	"github.com/dshills/prchanges/internal/commitgraph"
)

// PullRequestSource reads the pull requests of one repository. Request IDs
// are pull request numbers.
type PullRequestSource struct {
	client *Client
	owner  string
	repo   string
}

// NewPullRequestSource binds c to owner/repo.
func NewPullRequestSource(c *Client, owner, repo string) *PullRequestSource {
	return &PullRequestSource{client: c, owner: owner, repo: repo}
}

func parseNumber(requestID string) (int, error) {
	n, err := strconv.Atoi(requestID)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid pull request number %q", requestID)
	}
	return n, nil
}

// PullRequest fetches the metadata of a request.
func (s *PullRequestSource) PullRequest(ctx context.Context, requestID string) (*PullRequest, error) {
	n, err := parseNumber(requestID)
	if err != nil {
		return nil, err
	}
	return s.client.GetPullRequest(ctx, s.owner, s.repo, n)
}

// Commits lists every commit of the pull request.
func (s *PullRequestSource) Commits(ctx context.Context, requestID string) ([]commitgraph.Commit, error) {
	n, err := parseNumber(requestID)
	if err != nil {
		return nil, err
	}
	listed, err := s.client.ListPullCommits(ctx, s.owner, s.repo, n)
	if err != nil {
		return nil, err
	}
	commits := make([]commitgraph.Commit, len(listed))
	for i, c := range listed {
		commits[i] = commitgraph.Commit{
			ID:        c.SHA,
			Parents:   c.Parents,
			Author:    c.Author,
			Email:     c.Email,
			Message:   c.Message,
			Timestamp: c.Date,
		}
	}
	return commits, nil
}

// CommitDiff fetches the diff of one commit.
func (s *PullRequestSource) CommitDiff(ctx context.Context, commitID string) (string, error) {
	return s.client.GetCommitDiff(ctx, s.owner, s.repo, commitID)
}

// RequestDiff fetches the diff of the whole pull request.
func (s *PullRequestSource) RequestDiff(ctx context.Context, requestID string) (string, error) {
	n, err := parseNumber(requestID)
	if err != nil {
		return "", err
	}
	return s.client.GetPRDiff(ctx, s.owner, s.repo, n)
}

// MergeBase resolves the merge base of two refs.
func (s *PullRequestSource) MergeBase(ctx context.Context, baseRef, headRef string) (string, error) {
	return s.client.GetMergeBase(ctx, s.owner, s.repo, baseRef, headRef)
}
