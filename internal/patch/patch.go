package patch

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/sourcegraph/go-diff/diff"
)

// ErrUnparseableDiff is returned when diff text is not well-formed.
var ErrUnparseableDiff = errors.New("unparseable diff")

const devNull = "/dev/null"

// Status describes what happened to a file.
type Status string

const (
	StatusAdded    Status = "added"
	StatusDeleted  Status = "deleted"
	StatusModified Status = "modified"
	StatusRenamed  Status = "renamed"
	StatusCopied   Status = "copied"
)

// FilePatch is one file's change within a diff.
type FilePatch struct {
	OldPath string `json:"oldPath,omitempty" yaml:"oldPath,omitempty"`
	NewPath string `json:"newPath,omitempty" yaml:"newPath,omitempty"`
	Status  Status `json:"status" yaml:"status"`
	Binary  bool   `json:"binary,omitempty" yaml:"binary,omitempty"`
	Added   int    `json:"added" yaml:"added"`
	Deleted int    `json:"deleted" yaml:"deleted"`
	Hunks   int    `json:"hunks" yaml:"hunks"`
	Body    string `json:"body" yaml:"body"`
}

// Path returns the path the change is best known by: the new path, or the old
// one for deletions.
func (p FilePatch) Path() string {
	if p.NewPath != "" {
		return p.NewPath
	}
	return p.OldPath
}

// Parse turns a unified-diff text blob into file patches in the order the file
// sections appear. Text with lines outside any file section, hunks whose line
// counts disagree with their headers, or combined merge diffs is rejected.
func Parse(diffText string) ([]FilePatch, error) {
	if strings.TrimSpace(diffText) == "" {
		return []FilePatch{}, nil
	}
	if err := scan(diffText); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnparseableDiff, err)
	}

	fds, err := diff.ParseMultiFileDiff([]byte(diffText))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnparseableDiff, err)
	}
	if len(fds) == 0 {
		return nil, fmt.Errorf("%w: no file sections found", ErrUnparseableDiff)
	}

	patches := make([]FilePatch, 0, len(fds))
	for i, fd := range fds {
		p, err := fromFileDiff(fd)
		if err != nil {
			return nil, fmt.Errorf("%w: file %d: %w", ErrUnparseableDiff, i, err)
		}
		patches = append(patches, p)
	}
	return patches, nil
}

func fromFileDiff(fd *diff.FileDiff) (FilePatch, error) {
	body, err := diff.PrintFileDiff(fd)
	if err != nil {
		return FilePatch{}, err
	}

	p := FilePatch{
		OldPath: trimSide(fd.OrigName, "a/"),
		NewPath: trimSide(fd.NewName, "b/"),
		Status:  StatusModified,
		Hunks:   len(fd.Hunks),
		Body:    string(body),
	}

	for _, x := range fd.Extended {
		switch {
		case strings.HasPrefix(x, "new file mode"):
			p.Status = StatusAdded
		case strings.HasPrefix(x, "deleted file mode"):
			p.Status = StatusDeleted
		case strings.HasPrefix(x, "rename from"):
			p.Status = StatusRenamed
		case strings.HasPrefix(x, "copy from"):
			p.Status = StatusCopied
		case strings.HasPrefix(x, "Binary files"), strings.HasPrefix(x, "GIT binary patch"):
			p.Binary = true
		}
	}
	if fd.OrigName == devNull {
		p.Status = StatusAdded
	}
	if fd.NewName == devNull {
		p.Status = StatusDeleted
	}

	for _, h := range fd.Hunks {
		added, deleted := countLines(h.Body)
		p.Added += added
		p.Deleted += deleted
	}
	return p, nil
}

func trimSide(name, prefix string) string {
	if name == devNull {
		return ""
	}
	return strings.TrimPrefix(name, prefix)
}

func countLines(body []byte) (added, deleted int) {
	for _, line := range bytes.Split(body, []byte{'\n'}) {
		if len(line) == 0 {
			continue
		}
		switch line[0] {
		case '+':
			added++
		case '-':
			deleted++
		}
	}
	return added, deleted
}

// Totals summarises a list of patches.
type Totals struct {
	Files   int `json:"files" yaml:"files"`
	Added   int `json:"added" yaml:"added"`
	Deleted int `json:"deleted" yaml:"deleted"`
	Bytes   int `json:"bytes" yaml:"bytes"`
}

// Stats sums line counts and body sizes across patches.
func Stats(patches []FilePatch) Totals {
	t := Totals{Files: len(patches)}
	for _, p := range patches {
		t.Added += p.Added
		t.Deleted += p.Deleted
		t.Bytes += len(p.Body)
	}
	return t
}
