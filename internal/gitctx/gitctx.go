package gitctx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/dshills/prchanges/internal/commitgraph"
)

// ErrInvalidRange is returned for revision ranges that cannot be split into a
// base and a head.
var ErrInvalidRange = errors.New("invalid revision range")

const (
	recordSep = "\x1e"
	fieldSep  = "\x1f"
	// logFormat prints hash, parents, author name, author email, author date
	// and raw body, one record per commit.
	logFormat = "--format=" + recordSep + "%H" + fieldSep + "%P" + fieldSep + "%an" + fieldSep + "%ae" + fieldSep + "%aI" + fieldSep + "%B"
)

// diffFlags pin the diff output to plain unified text whatever the user's git
// config says about external diff tools, textconv drivers or path prefixes.
var diffFlags = []string{"-M", "--no-color", "--no-ext-diff", "--no-textconv", "--src-prefix=a/", "--dst-prefix=b/"}

// RepoMeta contains git repository metadata.
type RepoMeta struct {
	Root   string
	Head   string
	Branch string
}

// Repo runs git against one repository.
type Repo struct {
	dir string
}

// Open binds a Repo to the repository containing dir.
func Open(ctx context.Context, dir string) (*Repo, error) {
	r := &Repo{dir: dir}
	root, err := r.git(ctx, "rev-parse", "--show-toplevel")
	if err != nil {
		return nil, fmt.Errorf("not a git repository: %w", err)
	}
	r.dir = strings.TrimSpace(root)
	return r, nil
}

// Dir returns the repository root.
func (r *Repo) Dir() string { return r.dir }

// Meta collects repository metadata.
func (r *Repo) Meta(ctx context.Context) RepoMeta {
	head, err := r.git(ctx, "rev-parse", "HEAD")
	if err != nil {
		head = "" // new repo with no commits
	}
	branch, err := r.git(ctx, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		branch = ""
	}
	return RepoMeta{
		Root:   r.dir,
		Head:   strings.TrimSpace(head),
		Branch: strings.TrimSpace(branch),
	}
}

// ParseRevRange splits "base..head" or "base...head" into its refs. A missing
// head means HEAD and a bare ref is taken as the base.
func ParseRevRange(revRange string) (base, head string, err error) {
	revRange = strings.TrimSpace(revRange)
	sep := ".."
	if strings.Contains(revRange, "...") {
		sep = "..."
	}
	base, head, found := strings.Cut(revRange, sep)
	if !found {
		base, head = revRange, ""
	}
	if base == "" {
		return "", "", fmt.Errorf("%w: %q has no base", ErrInvalidRange, revRange)
	}
	if head == "" {
		head = "HEAD"
	}
	return base, head, nil
}

// Commits returns every commit reachable from the head of revRange but not
// from its base, oldest first, with parent hashes.
func (r *Repo) Commits(ctx context.Context, revRange string) ([]commitgraph.Commit, error) {
	base, head, err := ParseRevRange(revRange)
	if err != nil {
		return nil, err
	}
	out, err := r.git(ctx, "log", "--reverse", logFormat, base+".."+head, "--")
	if err != nil {
		return nil, fmt.Errorf("git log %s: %w", revRange, err)
	}
	return parseLog(out)
}

func parseLog(out string) ([]commitgraph.Commit, error) {
	var commits []commitgraph.Commit
	for _, record := range strings.Split(out, recordSep) {
		if strings.TrimSpace(record) == "" {
			continue
		}
		fields := strings.SplitN(record, fieldSep, 6)
		if len(fields) != 6 {
			return nil, fmt.Errorf("unexpected git log record %q", record)
		}
		ts, err := time.Parse(time.RFC3339, fields[4])
		if err != nil {
			return nil, fmt.Errorf("commit %s: parsing date: %w", fields[0], err)
		}
		commits = append(commits, commitgraph.Commit{
			ID:        strings.TrimSpace(fields[0]),
			Parents:   strings.Fields(fields[1]),
			Author:    fields[2],
			Email:     fields[3],
			Timestamp: ts,
			Message:   strings.TrimRight(fields[5], "\n"),
		})
	}
	return commits, nil
}

// CommitDiff returns the diff a commit introduces relative to its first
// parent. Root commits are diffed against the empty tree.
func (r *Repo) CommitDiff(ctx context.Context, sha string) (string, error) {
	out, err := r.git(ctx, "rev-list", "--parents", "-n", "1", sha)
	if err != nil {
		return "", fmt.Errorf("git rev-list %s: %w", sha, err)
	}
	fields := strings.Fields(out)
	if len(fields) < 2 {
		args := append([]string{"diff-tree", "-p", "--root", "--no-commit-id"}, diffFlags...)
		diff, err := r.git(ctx, append(args, sha)...)
		if err != nil {
			return "", fmt.Errorf("git diff-tree %s: %w", sha, err)
		}
		return diff, nil
	}
	parent := fields[1]
	args := append([]string{"diff"}, diffFlags...)
	diff, err := r.git(ctx, append(args, parent, sha, "--")...)
	if err != nil {
		return "", fmt.Errorf("git diff %s %s: %w", parent, sha, err)
	}
	return diff, nil
}

// RangeDiff returns the combined diff of a revision range against the merge
// base of its two ends.
func (r *Repo) RangeDiff(ctx context.Context, revRange string) (string, error) {
	base, head, err := ParseRevRange(revRange)
	if err != nil {
		return "", err
	}
	args := append([]string{"diff"}, diffFlags...)
	diff, err := r.git(ctx, append(args, base+"..."+head, "--")...)
	if err != nil {
		return "", fmt.Errorf("git diff %s: %w", revRange, err)
	}
	return diff, nil
}

// RequestDiff is RangeDiff under the name changes.Source expects.
func (r *Repo) RequestDiff(ctx context.Context, revRange string) (string, error) {
	return r.RangeDiff(ctx, revRange)
}

// MergeBase returns the best common ancestor of two refs.
func (r *Repo) MergeBase(ctx context.Context, base, head string) (string, error) {
	out, err := r.git(ctx, "merge-base", base, head)
	if err != nil {
		return "", fmt.Errorf("git merge-base %s %s: %w", base, head, err)
	}
	return strings.TrimSpace(out), nil
}

// Fetch makes refs from remote available locally.
func (r *Repo) Fetch(ctx context.Context, remote string, refs ...string) error {
	args := append([]string{"fetch", "--quiet", remote}, refs...)
	if _, err := r.git(ctx, args...); err != nil {
		return fmt.Errorf("git fetch %s: %w", remote, err)
	}
	return nil
}

func (r *Repo) git(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", append([]string{"-C", r.dir}, args...)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return "", context.Cause(ctx)
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return string(out), fmt.Errorf("%s: %s", err, strings.TrimSpace(stderr.String()))
		}
		return "", err
	}
	return string(out), nil
}
