package gitctx

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/prchanges/internal/changes"
	"github.com/dshills/prchanges/internal/patch"
)

var _ changes.Source = (*Repo)(nil)

type testRepo struct {
	t   *testing.T
	dir string
}

func (tr *testRepo) run(args ...string) string {
	tr.t.Helper()
	cmd := exec.Command(args[0], args[1:]...)
	cmd.Dir = tr.dir
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_NAME=test",
		"GIT_AUTHOR_EMAIL=test@test.com",
		"GIT_COMMITTER_NAME=test",
		"GIT_COMMITTER_EMAIL=test@test.com",
	)
	out, err := cmd.CombinedOutput()
	require.NoError(tr.t, err, "command %v: %s", args, out)
	return strings.TrimSpace(string(out))
}

func (tr *testRepo) commitFile(name, content, msg string) string {
	tr.t.Helper()
	path := filepath.Join(tr.dir, name)
	require.NoError(tr.t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(tr.t, os.WriteFile(path, []byte(content), 0o644))
	tr.run("git", "add", name)
	tr.run("git", "commit", "-m", msg)
	return tr.run("git", "rev-parse", "HEAD")
}

func setupTestRepo(t *testing.T) *testRepo {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
	tr := &testRepo{t: t, dir: t.TempDir()}
	tr.run("git", "init")
	tr.run("git", "checkout", "-b", "main")
	tr.commitFile("main.go", "package main\n\nfunc main() {}\n", "init")
	return tr
}

func openRepo(t *testing.T, tr *testRepo) *Repo {
	t.Helper()
	r, err := Open(context.Background(), tr.dir)
	require.NoError(t, err)
	return r
}

func TestParseRevRange(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		base    string
		head    string
		wantErr bool
	}{
		{"main..feature", "main", "feature", false},
		{"main...feature", "main", "feature", false},
		{"main..", "main", "HEAD", false},
		{"origin/main", "origin/main", "HEAD", false},
		{" v1.0..v1.1 ", "v1.0", "v1.1", false},
		{"..feature", "", "", true},
		{"", "", "", true},
	}
	for _, tt := range tests {
		base, head, err := ParseRevRange(tt.in)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrInvalidRange, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.base, base, tt.in)
		assert.Equal(t, tt.head, head, tt.in)
	}
}

func TestParseLog(t *testing.T) {
	t.Parallel()

	out := recordSep + "bbb" + fieldSep + "aaa" + fieldSep + "Dev" + fieldSep + "dev@x" + fieldSep + "2024-05-01T10:00:00+02:00" + fieldSep + "second\n\nbody\n\n" +
		recordSep + "ccc" + fieldSep + "bbb aaa" + fieldSep + "Dev" + fieldSep + "dev@x" + fieldSep + "2024-05-02T10:00:00Z" + fieldSep + "merge\n"
	commits, err := parseLog(out)
	require.NoError(t, err)
	require.Len(t, commits, 2)

	assert.Equal(t, "second\n\nbody", commits[0].Message)
	assert.Equal(t, "second", commits[0].Subject())
	assert.Equal(t, []string{"bbb", "aaa"}, commits[1].Parents)

	_, err = parseLog(recordSep + "only" + fieldSep + "two")
	assert.Error(t, err, "truncated record")
}

func TestOpen_NotARepo(t *testing.T) {
	t.Parallel()

	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
	_, err := Open(context.Background(), t.TempDir())
	assert.Error(t, err)
}

func TestRepo_CommitsAndDiffs(t *testing.T) {
	t.Parallel()

	tr := setupTestRepo(t)
	initSHA := tr.run("git", "rev-parse", "HEAD")
	tr.run("git", "checkout", "-b", "feature")
	a := tr.commitFile("a.go", "package main\n", "add a.go")
	b := tr.commitFile("b.go", "package main\n", "add b.go")

	r := openRepo(t, tr)
	ctx := context.Background()

	commits, err := r.Commits(ctx, "main..feature")
	require.NoError(t, err)
	require.Len(t, commits, 2)
	assert.Equal(t, a, commits[0].ID)
	assert.Equal(t, b, commits[1].ID)
	assert.Equal(t, []string{initSHA}, commits[0].Parents)
	assert.Equal(t, "add b.go", commits[1].Subject())
	assert.Equal(t, "test", commits[1].Author)
	assert.False(t, commits[1].Timestamp.IsZero())

	diff, err := r.CommitDiff(ctx, b)
	require.NoError(t, err)
	assert.Contains(t, diff, "+++ b/b.go")
	assert.NotContains(t, diff, "a.go")

	rootDiff, err := r.CommitDiff(ctx, initSHA)
	require.NoError(t, err)
	assert.Contains(t, rootDiff, "+++ b/main.go")

	rangeDiff, err := r.RequestDiff(ctx, "main..feature")
	require.NoError(t, err)
	assert.Contains(t, rangeDiff, "+++ b/a.go")
	assert.Contains(t, rangeDiff, "+++ b/b.go")

	mb, err := r.MergeBase(ctx, "main", "feature")
	require.NoError(t, err)
	assert.Equal(t, initSHA, mb)

	meta := r.Meta(ctx)
	assert.Equal(t, "feature", meta.Branch)
	assert.Equal(t, b, meta.Head)
	assert.Equal(t, r.Dir(), meta.Root)
}

func TestRepo_DiffsIgnoreUserDiffConfig(t *testing.T) {
	t.Parallel()

	tr := setupTestRepo(t)
	root := tr.run("git", "rev-parse", "HEAD")
	tr.run("git", "config", "diff.external", "echo EXTERNAL-TOOL-OUTPUT")
	tr.run("git", "config", "diff.noprefix", "true")
	tr.run("git", "config", "diff.upper.textconv", "tr a-z A-Z")
	tr.run("git", "checkout", "-b", "feature")
	tr.commitFile(".gitattributes", "*.go diff=upper\n", "attributes")
	head := tr.commitFile("a.go", "package a\n", "add a")

	r := openRepo(t, tr)
	ctx := context.Background()

	diffs := map[string]func() (string, error){
		"root":   func() (string, error) { return r.CommitDiff(ctx, root) },
		"commit": func() (string, error) { return r.CommitDiff(ctx, head) },
		"range":  func() (string, error) { return r.RangeDiff(ctx, "main..feature") },
	}
	for name, get := range diffs {
		diff, err := get()
		require.NoError(t, err, name)
		assert.NotContains(t, diff, "EXTERNAL-TOOL-OUTPUT", "%s diff ran the external tool", name)
		assert.NotContains(t, diff, "PACKAGE", "%s diff ran the textconv driver", name)
		assert.Contains(t, diff, "+++ b/", "%s diff lost its path prefixes", name)

		_, err = patch.Parse(diff)
		assert.NoError(t, err, "%s diff does not parse", name)
	}
}

func TestRepo_RangeDiffIgnoresBaseProgress(t *testing.T) {
	t.Parallel()

	tr := setupTestRepo(t)
	tr.run("git", "checkout", "-b", "feature")
	tr.commitFile("feature.go", "package main\n", "feature work")
	tr.run("git", "checkout", "main")
	tr.commitFile("hotfix.go", "package main\n", "hotfix on main")

	r := openRepo(t, tr)
	diff, err := r.RangeDiff(context.Background(), "main..feature")
	require.NoError(t, err)
	assert.NotContains(t, diff, "hotfix.go", "three-dot diff should not include base-only changes")
	assert.Contains(t, diff, "feature.go")
}

func TestRepo_MergeCommitParents(t *testing.T) {
	t.Parallel()

	tr := setupTestRepo(t)
	tr.run("git", "checkout", "-b", "feature")
	left := tr.commitFile("left.go", "package main\n", "left")
	tr.run("git", "checkout", "-b", "side", "main")
	right := tr.commitFile("right.go", "package main\n", "right")
	tr.run("git", "checkout", "feature")
	tr.run("git", "merge", "--no-ff", "-m", "merge side", "side")
	merge := tr.run("git", "rev-parse", "HEAD")

	r := openRepo(t, tr)
	commits, err := r.Commits(context.Background(), "main..feature")
	require.NoError(t, err)
	require.Len(t, commits, 3)

	last := commits[len(commits)-1]
	assert.Equal(t, merge, last.ID)
	assert.Equal(t, []string{left, right}, last.Parents)

	diff, err := r.CommitDiff(context.Background(), merge)
	require.NoError(t, err)
	assert.Contains(t, diff, "right.go", "merge is diffed against its first parent")
	assert.NotContains(t, diff, "left.go")
}

func TestRepo_EmptyRange(t *testing.T) {
	t.Parallel()

	tr := setupTestRepo(t)
	r := openRepo(t, tr)

	commits, err := r.Commits(context.Background(), "HEAD..HEAD")
	require.NoError(t, err)
	assert.Empty(t, commits)
}

func TestRepo_UnknownRevision(t *testing.T) {
	t.Parallel()

	tr := setupTestRepo(t)
	r := openRepo(t, tr)

	_, err := r.CommitDiff(context.Background(), "deadbeefdeadbeef")
	assert.Error(t, err)
}

func TestRepo_CancelledContext(t *testing.T) {
	t.Parallel()

	tr := setupTestRepo(t)
	r := openRepo(t, tr)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.Commits(ctx, "HEAD..HEAD")
	assert.ErrorIs(t, err, context.Canceled)
}
