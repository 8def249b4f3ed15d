package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/dshills/prchanges/internal/commitgraph"
	"github.com/dshills/prchanges/internal/patch"
)

const ruleWidth = 60

// TextWriter outputs a human-readable text view.
type TextWriter struct {
	Options
}

func (t *TextWriter) Write(w io.Writer, v *View) error {
	ew := &errWriter{w: w}
	p := newPalette(t.Color)

	if v.Title != "" {
		ew.println(p.title.Sprint(v.Title))
	}
	ew.printf("Base: %s  Merge base: %s  Commits: %d\n",
		v.Bundle.BaseRef(), commitgraph.ShortID(v.Bundle.MergeBaseRef()), v.Bundle.Len())
	ew.println(strings.Repeat("─", ruleWidth))
	ew.println(commitTable(v))
	ew.println(strings.Repeat("─", ruleWidth))

	patches := v.Selection.Patches()
	ew.println(p.title.Sprint(v.Selection.Label()))
	if len(patches) == 0 {
		ew.println("\nNo file changes.")
		return ew.err
	}
	ew.println(fileTable(patches))

	if t.ShowPatch {
		for _, fp := range patches {
			ew.println("")
			t.writePatch(ew, p, fp)
		}
	}
	return ew.err
}

func commitTable(v *View) string {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.DrawBorder = false
	tbl.Style().Options.SeparateColumns = false
	tbl.AppendHeader(table.Row{"", "#", "Commit", "Author", "Age", "Subject", "Files", "+", "-"})

	all := v.Bundle.RequestPatches()
	allTotals := patch.Stats(all)
	tbl.AppendRow(table.Row{marker(v.Selection.IsAll()), 0, "", "", "", "All commits", allTotals.Files, allTotals.Added, allTotals.Deleted})

	for i, set := range v.Bundle.Commits() {
		totals := patch.Stats(set.Patches)
		tbl.AppendRow(table.Row{
			marker(v.Selection.Index() == i+1),
			i + 1,
			commitgraph.ShortID(set.Commit.ID),
			set.Commit.Author,
			age(set.Commit),
			truncate(set.Commit.Subject(), 50),
			totals.Files,
			totals.Added,
			totals.Deleted,
		})
	}
	return tbl.Render()
}

func fileTable(patches []patch.FilePatch) string {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.DrawBorder = false
	tbl.Style().Options.SeparateColumns = false
	tbl.AppendHeader(table.Row{"Status", "Path", "Language", "+", "-", "Size"})

	for _, fp := range patches {
		tbl.AppendRow(table.Row{
			fp.Status,
			displayPath(fp),
			language(fp.Path()),
			fp.Added,
			fp.Deleted,
			humanize.Bytes(uint64(len(fp.Body))),
		})
	}
	totals := patch.Stats(patches)
	tbl.AppendFooter(table.Row{"", fmt.Sprintf("%d files", totals.Files), "", totals.Added, totals.Deleted, humanize.Bytes(uint64(totals.Bytes))})
	return tbl.Render()
}

func (t *TextWriter) writePatch(ew *errWriter, p palette, fp patch.FilePatch) {
	if fp.Binary {
		ew.println(p.meta.Sprintf("Binary file %s", displayPath(fp)))
		return
	}
	lines := strings.Split(strings.TrimRight(fp.Body, "\n"), "\n")
	hunks := firstHunk(lines)
	for i := 0; i < len(lines); i++ {
		line := lines[i]
		switch {
		case i < hunks:
			ew.println(p.meta.Sprint(line))
		case strings.HasPrefix(line, "@@"):
			ew.println(p.hunk.Sprint(line))
		case strings.HasPrefix(line, "-"):
			if t.WordDiff {
				removed, added := pairRun(lines, i)
				if len(added) > 0 {
					writeWordDiff(ew, p, removed, added)
					i += len(removed) + len(added) - 1
					continue
				}
			}
			ew.println(p.removed.Sprint(line))
		case strings.HasPrefix(line, "+"):
			ew.println(p.added.Sprint(line))
		default:
			ew.println(line)
		}
	}
}

// pairRun returns the run of removed lines starting at i and the run of added
// lines directly after it. Inside a hunk "--- x" is a removed "-- x".
func pairRun(lines []string, i int) (removed, added []string) {
	j := i
	for j < len(lines) && strings.HasPrefix(lines[j], "-") {
		removed = append(removed, lines[j])
		j++
	}
	for j < len(lines) && strings.HasPrefix(lines[j], "+") {
		added = append(added, lines[j])
		j++
	}
	return removed, added
}

// writeWordDiff prints a removed run followed by an added run, highlighting
// the changed words of lines paired by position.
func writeWordDiff(ew *errWriter, p palette, removed, added []string) {
	oldSegs := make([][]patch.Segment, len(removed))
	newSegs := make([][]patch.Segment, len(added))
	for k := 0; k < len(removed) && k < len(added); k++ {
		oldSegs[k], newSegs[k] = patch.WordDiff(removed[k][1:], added[k][1:])
	}
	for k, line := range removed {
		ew.println(renderSegments(line, oldSegs[k], p.removed, p.removedWord))
	}
	for k, line := range added {
		ew.println(renderSegments(line, newSegs[k], p.added, p.addedWord))
	}
}

func renderSegments(line string, segs []patch.Segment, base, changed *color.Color) string {
	if segs == nil {
		return base.Sprint(line)
	}
	var sb strings.Builder
	sb.WriteString(base.Sprint(line[:1]))
	for _, s := range segs {
		if s.Changed {
			sb.WriteString(changed.Sprint(s.Text))
		} else {
			sb.WriteString(base.Sprint(s.Text))
		}
	}
	return sb.String()
}

// firstHunk returns the index of the first hunk header of a file body. Every
// line before it is file header.
func firstHunk(lines []string) int {
	for i, line := range lines {
		if strings.HasPrefix(line, "@@") {
			return i
		}
	}
	return len(lines)
}

type palette struct {
	title, meta, hunk, added, removed, addedWord, removedWord *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		title:       color.New(color.Bold),
		meta:        color.New(color.Bold, color.FgWhite),
		hunk:        color.New(color.FgCyan),
		added:       color.New(color.FgGreen),
		removed:     color.New(color.FgRed),
		addedWord:   color.New(color.FgBlack, color.BgGreen),
		removedWord: color.New(color.FgBlack, color.BgRed),
	}
	for _, c := range []*color.Color{p.title, p.meta, p.hunk, p.added, p.removed, p.addedWord, p.removedWord} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func displayPath(fp patch.FilePatch) string {
	if fp.Status == patch.StatusRenamed || fp.Status == patch.StatusCopied {
		return fp.OldPath + " → " + fp.NewPath
	}
	return fp.Path()
}

func marker(selected bool) string {
	if selected {
		return ">"
	}
	return ""
}

func age(c commitgraph.Commit) string {
	if c.Timestamp.IsZero() {
		return ""
	}
	return humanize.Time(c.Timestamp)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// errWriter wraps an io.Writer and captures the first error.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

func (ew *errWriter) println(s string) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintln(ew.w, s)
}

// statusCounts tallies patches by status in a stable order for summaries.
func statusCounts(patches []patch.FilePatch) []string {
	order := []patch.Status{patch.StatusAdded, patch.StatusModified, patch.StatusDeleted, patch.StatusRenamed, patch.StatusCopied}
	counts := make(map[patch.Status]int)
	for _, fp := range patches {
		counts[fp.Status]++
	}
	var out []string
	for _, s := range order {
		if counts[s] > 0 {
			out = append(out, fmt.Sprintf("%d %s", counts[s], s))
		}
	}
	return out
}
