package output

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/prchanges/internal/changes"
	"github.com/dshills/prchanges/internal/commitgraph"
	"github.com/dshills/prchanges/internal/patch"
)

const mainDiff = `diff --git a/main.go b/main.go
index 1111111..2222222 100644
--- a/main.go
+++ b/main.go
@@ -1,2 +1,2 @@
 package main
-func main() { println("hello world") }
+func main() { println("hello gophers") }
`

const readmeDiff = `diff --git a/README.md b/README.md
new file mode 100644
index 0000000..3333333
--- /dev/null
+++ b/README.md
@@ -0,0 +1 @@
+# demo
`

func mustParse(t *testing.T, text string) []patch.FilePatch {
	t.Helper()
	patches, err := patch.Parse(text)
	require.NoError(t, err)
	return patches
}

func testView(t *testing.T) *View {
	t.Helper()
	c1 := commitgraph.Commit{ID: "aaaaaaa1111", Author: "Ada", Message: "add readme", Timestamp: time.Now().Add(-2 * time.Hour)}
	c2 := commitgraph.Commit{ID: "bbbbbbb2222", Parents: []string{c1.ID}, Author: "Ada", Message: "greet gophers\n\nbody"}
	b := changes.Assemble("main", "ccccccc3333", []changes.CommitPatchSet{
		{Commit: c1, Patches: mustParse(t, readmeDiff)},
		{Commit: c2, Parents: []string{c1.ID}, Patches: mustParse(t, mainDiff)},
	}, mustParse(t, readmeDiff+mainDiff))
	return NewView("dshills/demo#7", b)
}

func assertContainsAll(t *testing.T, out string, wants ...string) {
	t.Helper()
	for _, want := range wants {
		assert.Contains(t, out, want)
	}
}

func TestGetWriter(t *testing.T) {
	t.Parallel()

	for _, format := range []string{"text", "json", "yaml", "markdown"} {
		_, err := GetWriter(format, Options{})
		assert.NoError(t, err, format)
	}
	_, err := GetWriter("sarif", Options{})
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestTextWriter_All(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, (&TextWriter{}).Write(&buf, testView(t)))

	out := buf.String()
	assertContainsAll(t, out, "dshills/demo#7", "Base: main", "ccccccc", "All commits (2)", "README.md", "main.go", "Go", "greet gophers", "2 hours ago")
	assert.NotContains(t, out, "\x1b[", "colour disabled output should not contain escape codes")
	assert.NotContains(t, out, "@@", "patch bodies should be hidden without ShowPatch")
}

func TestTextWriter_SelectedCommitWithPatch(t *testing.T) {
	t.Parallel()

	v := testView(t)
	require.NoError(t, v.Selection.Select(2))

	var buf bytes.Buffer
	require.NoError(t, (&TextWriter{Options: Options{ShowPatch: true}}).Write(&buf, v))

	out := buf.String()
	assert.Contains(t, out, "[2/2] bbbbbbb greet gophers")
	assert.Contains(t, out, `+func main() { println("hello gophers") }`)
	assert.NotContains(t, out, "+# demo", "only the selected commit's patches should be printed")
}

func TestTextWriter_WordDiff(t *testing.T) {
	t.Parallel()

	v := testView(t)
	require.NoError(t, v.Selection.Select(2))

	var plain bytes.Buffer
	require.NoError(t, (&TextWriter{Options: Options{ShowPatch: true, WordDiff: true}}).Write(&plain, v))
	assert.Contains(t, plain.String(), `-func main() { println("hello world") }`, "word diff without colour should reproduce the lines")

	var colored bytes.Buffer
	require.NoError(t, (&TextWriter{Options: Options{ShowPatch: true, WordDiff: true, Color: true}}).Write(&colored, v))
	assert.Contains(t, colored.String(), "\x1b[")
	assert.Contains(t, colored.String(), "gophers")
}

func TestPairRun(t *testing.T) {
	t.Parallel()

	lines := []string{"-a", "-b", "+c", " ctx", "-d"}
	removed, added := pairRun(lines, 0)
	assert.Len(t, removed, 2)
	assert.Len(t, added, 1)

	removed, added = pairRun(lines, 4)
	assert.Len(t, removed, 1)
	assert.Empty(t, added)

	// Body lines that look like file headers still pair up.
	removed, added = pairRun([]string{"--- comment", "+++ counter", " x"}, 0)
	assert.Equal(t, []string{"--- comment"}, removed)
	assert.Equal(t, []string{"+++ counter"}, added)
}

func TestTextWriter_HeaderLookalikesInsideHunk(t *testing.T) {
	t.Parallel()

	fp := patch.FilePatch{
		OldPath: "q.sql",
		NewPath: "q.sql",
		Status:  patch.StatusModified,
		Body: "diff --git a/q.sql b/q.sql\n--- a/q.sql\n+++ b/q.sql\n" +
			"@@ -1,2 +1,2 @@\n--- comment\n+++ counter\n select 1;\n",
	}

	var buf bytes.Buffer
	ew := &errWriter{w: &buf}
	(&TextWriter{Options: Options{ShowPatch: true, Color: true}}).writePatch(ew, newPalette(true), fp)
	require.NoError(t, ew.err)

	p := newPalette(true)
	assertContainsAll(t, buf.String(),
		p.meta.Sprint("--- a/q.sql"),
		p.meta.Sprint("+++ b/q.sql"),
		p.removed.Sprint("--- comment"),
		p.added.Sprint("+++ counter"),
	)
}

func TestJSONWriter(t *testing.T) {
	t.Parallel()

	v := testView(t)

	var buf bytes.Buffer
	require.NoError(t, (&JSONWriter{}).Write(&buf, v))
	var doc map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Contains(t, doc, "bundle", "all-commits view should carry the bundle")
	assert.Equal(t, "dshills/demo#7", doc["title"])

	require.NoError(t, v.Selection.Select(1))
	buf.Reset()
	require.NoError(t, (&JSONWriter{}).Write(&buf, v))
	doc = nil
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.NotContains(t, doc, "bundle", "commit view should not carry the bundle")

	commit, ok := doc["commit"].(map[string]any)
	require.True(t, ok, "commit = %v", doc["commit"])
	patches, ok := commit["patches"].([]any)
	require.True(t, ok)
	assert.Len(t, patches, 1)
}

func TestYAMLWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, (&YAMLWriter{}).Write(&buf, testView(t)))
	assertContainsAll(t, buf.String(), "selection: All commits (2)", "baseRef: main", "newPath: README.md")
}

func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	v := testView(t)
	var buf bytes.Buffer
	require.NoError(t, (&MarkdownWriter{Options: Options{ShowPatch: true}}).Write(&buf, v))
	assertContainsAll(t, buf.String(), "## dshills/demo#7", "| 2 | `bbbbbbb` | greet gophers |", "<details>", "```diff", "1 added, 1 modified")

	buf.Reset()
	require.NoError(t, (&MarkdownWriter{}).Write(&buf, v))
	assert.NotContains(t, buf.String(), "<details>", "patch sections should be omitted without ShowPatch")
}

func TestMarkdownWriter_EmptySelection(t *testing.T) {
	t.Parallel()

	b := changes.Assemble("main", "mb", []changes.CommitPatchSet{{Commit: commitgraph.Commit{ID: "c1"}}}, nil)
	var buf bytes.Buffer
	require.NoError(t, (&MarkdownWriter{}).Write(&buf, NewView("", b)))
	assert.Contains(t, buf.String(), "No file changes.")
}

func TestMdEscape(t *testing.T) {
	t.Parallel()

	assert.Equal(t, `a\|b c`, mdEscape("a|b\nc"))
}

func TestWriteGraph(t *testing.T) {
	t.Parallel()

	b := changes.Assemble("main", "mb", []changes.CommitPatchSet{
		{Commit: commitgraph.Commit{ID: "root0000000", Message: "root"}},
		{Commit: commitgraph.Commit{ID: "left0000000", Message: "left"}, Parents: []string{"root0000000"}},
		{Commit: commitgraph.Commit{ID: "rght0000000", Message: "right"}, Parents: []string{"root0000000"}},
		{Commit: commitgraph.Commit{ID: "merg0000000", Message: "merge"}, Parents: []string{"left0000000", "rght0000000"}},
	}, nil)

	var buf bytes.Buffer
	require.NoError(t, WriteGraph(&buf, b, "text"))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[3], "M merg000 <- left000, rght000  merge  (head)")

	buf.Reset()
	require.NoError(t, WriteGraph(&buf, b, "json"))
	var nodes []graphNode
	require.NoError(t, json.Unmarshal(buf.Bytes(), &nodes))
	require.Len(t, nodes, 4)
	assert.True(t, nodes[3].Head)
	assert.Empty(t, nodes[0].Parents)

	assert.ErrorIs(t, WriteGraph(&buf, b, "markdown"), ErrUnsupportedFormat)
}

func TestWriteBundle_File(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out.json")
	require.NoError(t, WriteBundle(testView(t), "json", path, Options{}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, json.Valid(data), "output file should hold valid JSON")
}

func TestLanguage(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Go", language("cmd/main.go"))
	assert.Empty(t, language("notes.unknownext"))
}
