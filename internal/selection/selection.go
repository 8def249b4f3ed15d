package selection

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dshills/prchanges/internal/changes"
	"github.com/dshills/prchanges/internal/commitgraph"
	"github.com/dshills/prchanges/internal/patch"
)

// AllIndex is the position that selects the whole request.
const AllIndex = 0

var (
	// ErrOutOfRange is returned when a position does not exist.
	ErrOutOfRange = errors.New("selection out of range")
	// ErrUnknownCommit is returned when no commit matches an identifier.
	ErrUnknownCommit = errors.New("unknown commit")
)

// State is the current position within a bundle.
type State struct {
	bundle *changes.Bundle
	index  int
}

// New returns a State over b positioned on the whole request.
func New(b *changes.Bundle) *State {
	return &State{bundle: b}
}

// Index returns the current position: 0 for all commits, i for the i-th commit.
func (s *State) Index() int { return s.index }

// Len returns the number of positions, one more than the number of commits.
func (s *State) Len() int { return s.bundle.Len() + 1 }

// IsAll reports whether the whole request is selected.
func (s *State) IsAll() bool { return s.index == AllIndex }

// Next moves to the following commit. It reports false at the last commit.
func (s *State) Next() bool {
	if s.index >= s.bundle.Len() {
		return false
	}
	s.index++
	return true
}

// Previous moves back one position. It reports false on the whole request.
func (s *State) Previous() bool {
	if s.index == AllIndex {
		return false
	}
	s.index--
	return true
}

// Select moves to position i.
func (s *State) Select(i int) error {
	if i < 0 || i > s.bundle.Len() {
		return fmt.Errorf("%w: %d not in [0, %d]", ErrOutOfRange, i, s.bundle.Len())
	}
	s.index = i
	return nil
}

// SelectCommit moves to the commit whose ID equals or starts with id.
func (s *State) SelectCommit(id string) error {
	i := s.bundle.IndexOf(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownCommit, id)
	}
	s.index = i + 1
	return nil
}

// SelectAll moves to the whole request.
func (s *State) SelectAll() { s.index = AllIndex }

// Apply interprets a user selector: "" or "all" selects the whole request, a
// number selects that position and anything else is taken as a commit ID.
func (s *State) Apply(selector string) error {
	selector = strings.TrimSpace(selector)
	if selector == "" || strings.EqualFold(selector, "all") {
		s.SelectAll()
		return nil
	}
	// Hashes made only of digits are possible, so numbers beyond the last
	// position fall back to commit lookup.
	if i, err := strconv.Atoi(selector); err == nil && i >= 0 && i <= s.bundle.Len() {
		return s.Select(i)
	}
	return s.SelectCommit(selector)
}

// Commit returns the selected commit change set. It reports false when the
// whole request is selected.
func (s *State) Commit() (changes.CommitPatchSet, bool) {
	if s.IsAll() {
		return changes.CommitPatchSet{}, false
	}
	return s.bundle.CommitAt(s.index - 1)
}

// Patches returns the file patches of the current position.
func (s *State) Patches() []patch.FilePatch {
	if set, ok := s.Commit(); ok {
		return set.Patches
	}
	return s.bundle.RequestPatches()
}

// Label describes the current position for headings.
func (s *State) Label() string {
	set, ok := s.Commit()
	if !ok {
		return fmt.Sprintf("All commits (%d)", s.bundle.Len())
	}
	label := fmt.Sprintf("[%d/%d] %s", s.index, s.bundle.Len(), commitgraph.ShortID(set.Commit.ID))
	if subject := set.Commit.Subject(); subject != "" {
		label += " " + subject
	}
	return label
}
