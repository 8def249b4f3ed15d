package patch

import (
	"github.com/sergi/go-diff/diffmatchpatch"
)

// Segment is a run of text within a line that either survived unchanged or was
// changed between the old and the new version.
type Segment struct {
	Text    string
	Changed bool
}

// WordDiff splits a removed/added line pair into segments so that only the
// changed portions need highlighting.
func WordDiff(oldLine, newLine string) (oldSegs, newSegs []Segment) {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffCleanupSemantic(dmp.DiffMain(oldLine, newLine, false))

	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			oldSegs = append(oldSegs, Segment{Text: d.Text})
			newSegs = append(newSegs, Segment{Text: d.Text})
		case diffmatchpatch.DiffDelete:
			oldSegs = append(oldSegs, Segment{Text: d.Text, Changed: true})
		case diffmatchpatch.DiffInsert:
			newSegs = append(newSegs, Segment{Text: d.Text, Changed: true})
		}
	}
	return oldSegs, newSegs
}
