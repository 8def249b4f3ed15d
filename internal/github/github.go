package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/exec"
	"regexp"
	"strings"
	"time"
)

const (
	defaultAPIURL = "https://api.github.com"
	// commitsPerPage is the largest page size the commits endpoint accepts.
	commitsPerPage = 100

	acceptJSON = "application/vnd.github.v3+json"
	acceptDiff = "application/vnd.github.v3.diff"
)

var (
	// ErrNoToken is returned when no API token was configured.
	ErrNoToken = errors.New("GitHub token is not set")
	// ErrAuth is returned for 401 and 403 responses.
	ErrAuth = errors.New("authentication failed")
	// ErrNotFound is returned for 404 responses.
	ErrNotFound = errors.New("not found")
)

// Client provides access to the GitHub REST API.
type Client struct {
	token   string
	apiURL  string
	httpCli *http.Client
}

// NewClient creates a new GitHub client. An empty apiURL selects api.github.com.
func NewClient(token, apiURL string) (*Client, error) {
	if token == "" {
		return nil, ErrNoToken
	}
	if apiURL == "" {
		apiURL = defaultAPIURL
	}
	apiURL = strings.TrimRight(apiURL, "/")

	return &Client{
		token:   token,
		apiURL:  apiURL,
		httpCli: &http.Client{Timeout: 60 * time.Second},
	}, nil
}

// get performs an authenticated GET and returns the body of a 200 response.
func (c *Client) get(ctx context.Context, url, accept, what string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", accept)

	resp, err := c.httpCli.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", what, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%s: %w", what, ErrNotFound)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: %s", ErrAuth, strings.TrimSpace(string(body)))
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("GitHub API error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}

func (c *Client) repoURL(owner, repo, format string, args ...any) string {
	return fmt.Sprintf("%s/repos/%s/%s/", c.apiURL, owner, repo) + fmt.Sprintf(format, args...)
}

// Ref is one side of a pull request.
type Ref struct {
	Ref   string `json:"ref"`
	SHA   string `json:"sha"`
	Label string `json:"label"`
}

// PullRequest is the subset of pull request metadata the tool reads.
type PullRequest struct {
	Number  int    `json:"number"`
	Title   string `json:"title"`
	State   string `json:"state"`
	HTMLURL string `json:"html_url"`
	User    struct {
		Login string `json:"login"`
	} `json:"user"`
	Base    Ref `json:"base"`
	Head    Ref `json:"head"`
	Commits int `json:"commits"`
}

// GetPullRequest fetches pull request metadata.
func (c *Client) GetPullRequest(ctx context.Context, owner, repo string, prNumber int) (*PullRequest, error) {
	body, err := c.get(ctx, c.repoURL(owner, repo, "pulls/%d", prNumber), acceptJSON, fmt.Sprintf("PR #%d in %s/%s", prNumber, owner, repo))
	if err != nil {
		return nil, err
	}
	var pr PullRequest
	if err := json.Unmarshal(body, &pr); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}
	return &pr, nil
}

// GetPRDiff fetches the diff for a pull request.
func (c *Client) GetPRDiff(ctx context.Context, owner, repo string, prNumber int) (string, error) {
	body, err := c.get(ctx, c.repoURL(owner, repo, "pulls/%d", prNumber), acceptDiff, fmt.Sprintf("PR #%d in %s/%s", prNumber, owner, repo))
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// GetCommitDiff fetches the diff a single commit introduces.
func (c *Client) GetCommitDiff(ctx context.Context, owner, repo, sha string) (string, error) {
	body, err := c.get(ctx, c.repoURL(owner, repo, "commits/%s", sha), acceptDiff, "commit "+sha)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

type apiCommit struct {
	SHA    string `json:"sha"`
	Commit struct {
		Message string `json:"message"`
		Author  struct {
			Name  string    `json:"name"`
			Email string    `json:"email"`
			Date  time.Time `json:"date"`
		} `json:"author"`
	} `json:"commit"`
	Parents []struct {
		SHA string `json:"sha"`
	} `json:"parents"`
}

// Commit is a pull request commit with its parent hashes.
type Commit struct {
	SHA     string
	Parents []string
	Author  string
	Email   string
	Message string
	Date    time.Time
}

// ListPullCommits returns every commit of a pull request, following pages
// until a short page is returned.
func (c *Client) ListPullCommits(ctx context.Context, owner, repo string, prNumber int) ([]Commit, error) {
	var commits []Commit
	for page := 1; ; page++ {
		url := c.repoURL(owner, repo, "pulls/%d/commits?per_page=%d&page=%d", prNumber, commitsPerPage, page)
		body, err := c.get(ctx, url, acceptJSON, fmt.Sprintf("commits of PR #%d", prNumber))
		if err != nil {
			return nil, err
		}

		var batch []apiCommit
		if err := json.Unmarshal(body, &batch); err != nil {
			return nil, fmt.Errorf("parsing response: %w", err)
		}
		for _, ac := range batch {
			cm := Commit{
				SHA:     ac.SHA,
				Author:  ac.Commit.Author.Name,
				Email:   ac.Commit.Author.Email,
				Message: ac.Commit.Message,
				Date:    ac.Commit.Author.Date,
			}
			for _, p := range ac.Parents {
				cm.Parents = append(cm.Parents, p.SHA)
			}
			commits = append(commits, cm)
		}
		if len(batch) < commitsPerPage {
			return commits, nil
		}
	}
}

// GetMergeBase resolves the merge base of two refs with the compare API.
func (c *Client) GetMergeBase(ctx context.Context, owner, repo, base, head string) (string, error) {
	body, err := c.get(ctx, c.repoURL(owner, repo, "compare/%s...%s", base, head), acceptJSON, fmt.Sprintf("comparison %s...%s", base, head))
	if err != nil {
		return "", err
	}
	var cmp struct {
		MergeBaseCommit struct {
			SHA string `json:"sha"`
		} `json:"merge_base_commit"`
	}
	if err := json.Unmarshal(body, &cmp); err != nil {
		return "", fmt.Errorf("parsing response: %w", err)
	}
	if cmp.MergeBaseCommit.SHA == "" {
		return "", fmt.Errorf("comparison %s...%s has no merge base", base, head)
	}
	return cmp.MergeBaseCommit.SHA, nil
}

var (
	httpsRemoteRe = regexp.MustCompile(`https?://[^/]+/([^/]+)/([^/.\s]+)`)
	sshRemoteRe   = regexp.MustCompile(`[^@]+@[^:]+:([^/]+)/([^/.\s]+)`)
)

// DetectRepo parses owner/repo from the origin remote of the repository in dir.
func DetectRepo(ctx context.Context, dir string) (owner, repo string, err error) {
	out, err := exec.CommandContext(ctx, "git", "-C", dir, "remote", "get-url", "origin").Output()
	if err != nil {
		return "", "", fmt.Errorf("cannot detect repo: git remote get-url origin failed: %w", err)
	}
	url := strings.TrimSpace(string(out))
	return ParseRemoteURL(url)
}

// ParseRemoteURL extracts owner/repo from a git remote URL.
func ParseRemoteURL(url string) (owner, repo string, err error) {
	url = strings.TrimSuffix(url, ".git")

	if m := httpsRemoteRe.FindStringSubmatch(url); len(m) == 3 {
		return m[1], m[2], nil
	}
	if m := sshRemoteRe.FindStringSubmatch(url); len(m) == 3 {
		return m[1], m[2], nil
	}
	return "", "", fmt.Errorf("cannot parse owner/repo from remote URL: %s", url)
}
