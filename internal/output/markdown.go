package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/dshills/prchanges/internal/commitgraph"
	"github.com/dshills/prchanges/internal/patch"
)

// MarkdownWriter outputs a PR-comment-friendly markdown view.
type MarkdownWriter struct {
	Options
}

func (m *MarkdownWriter) Write(w io.Writer, v *View) error {
	ew := &errWriter{w: w}

	title := v.Title
	if title == "" {
		title = "Changes"
	}
	ew.printf("## %s\n\n", title)
	ew.printf("**Base:** `%s` · **Merge base:** `%s` · **Commits:** %d\n\n",
		v.Bundle.BaseRef(), commitgraph.ShortID(v.Bundle.MergeBaseRef()), v.Bundle.Len())

	// Commit table
	ew.printf("| # | Commit | Subject | Files | + | - |\n")
	ew.printf("|---|--------|---------|-------|---|---|\n")
	for i, set := range v.Bundle.Commits() {
		totals := patch.Stats(set.Patches)
		ew.printf("| %d | `%s` | %s | %d | %d | %d |\n",
			i+1, commitgraph.ShortID(set.Commit.ID), mdEscape(set.Commit.Subject()),
			totals.Files, totals.Added, totals.Deleted)
	}
	ew.println("")

	patches := v.Selection.Patches()
	ew.printf("### %s\n\n", mdEscape(v.Selection.Label()))
	if len(patches) == 0 {
		ew.println("No file changes.")
		return ew.err
	}
	totals := patch.Stats(patches)
	ew.printf("%d files changed (%s), +%d −%d\n\n",
		totals.Files, strings.Join(statusCounts(patches), ", "), totals.Added, totals.Deleted)

	for _, fp := range patches {
		summary := fmt.Sprintf("<code>%s</code> %s +%d −%d", displayPath(fp), fp.Status, fp.Added, fp.Deleted)
		if lang := language(fp.Path()); lang != "" {
			summary += " · " + lang
		}
		if !m.ShowPatch || fp.Body == "" {
			ew.printf("- %s\n", summary)
			continue
		}
		ew.printf("<details>\n<summary>%s</summary>\n\n", summary)
		ew.printf("```diff\n%s\n```\n\n", strings.TrimRight(fp.Body, "\n"))
		ew.printf("</details>\n\n")
	}
	return ew.err
}

// mdEscape keeps table cells on one row.
func mdEscape(s string) string {
	return strings.NewReplacer("|", `\|`, "\n", " ").Replace(s)
}
