package selection_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/prchanges/internal/changes"
	"github.com/dshills/prchanges/internal/commitgraph"
	"github.com/dshills/prchanges/internal/patch"
	"github.com/dshills/prchanges/internal/selection"
)

func bundle() *changes.Bundle {
	return changes.Assemble("main", "mb", []changes.CommitPatchSet{
		{
			Commit:  commitgraph.Commit{ID: "1111aaaa2222", Message: "add parser\n\nlong body"},
			Patches: []patch.FilePatch{{NewPath: "parser.go"}},
		},
		{
			Commit:  commitgraph.Commit{ID: "3333bbbb4444", Parents: []string{"1111aaaa2222"}},
			Parents: []string{"1111aaaa2222"},
			Patches: []patch.FilePatch{{NewPath: "lexer.go"}},
		},
	}, []patch.FilePatch{{NewPath: "parser.go"}, {NewPath: "lexer.go"}})
}

func TestState_StartsOnAll(t *testing.T) {
	t.Parallel()

	s := selection.New(bundle())
	assert.True(t, s.IsAll())
	assert.Equal(t, 0, s.Index())
	assert.Equal(t, 3, s.Len())
	assert.Len(t, s.Patches(), 2)
	assert.Equal(t, "All commits (2)", s.Label())

	_, ok := s.Commit()
	assert.False(t, ok)
}

func TestState_NextPrevious(t *testing.T) {
	t.Parallel()

	s := selection.New(bundle())
	assert.False(t, s.Previous())

	require.True(t, s.Next())
	assert.Equal(t, "[1/2] 1111aaa add parser", s.Label())
	require.True(t, s.Next())
	assert.Equal(t, "[2/2] 3333bbb", s.Label())
	assert.False(t, s.Next())
	assert.Equal(t, 2, s.Index())

	set, ok := s.Commit()
	require.True(t, ok)
	assert.Equal(t, "lexer.go", s.Patches()[0].Path())
	assert.Equal(t, []string{"1111aaaa2222"}, set.Parents)

	require.True(t, s.Previous())
	require.True(t, s.Previous())
	assert.True(t, s.IsAll())
}

func TestState_Select(t *testing.T) {
	t.Parallel()

	s := selection.New(bundle())
	require.NoError(t, s.Select(2))
	assert.Equal(t, 2, s.Index())

	require.ErrorIs(t, s.Select(3), selection.ErrOutOfRange)
	require.ErrorIs(t, s.Select(-1), selection.ErrOutOfRange)
	assert.Equal(t, 2, s.Index(), "failed selection keeps the position")

	require.NoError(t, s.SelectCommit("1111aaaa"))
	assert.Equal(t, 1, s.Index())
	require.ErrorIs(t, s.SelectCommit("ffff"), selection.ErrUnknownCommit)

	s.SelectAll()
	assert.True(t, s.IsAll())
}

func TestState_Apply(t *testing.T) {
	t.Parallel()

	tests := []struct {
		selector string
		want     int
		wantErr  error
	}{
		{"", 0, nil},
		{"all", 0, nil},
		{"ALL", 0, nil},
		{"1", 1, nil},
		{"2", 2, nil},
		{"3333bbb", 2, nil},
		{"1111", 1, nil},
		{"9999", 0, selection.ErrUnknownCommit},
		{"nope", 0, selection.ErrUnknownCommit},
	}
	for _, tt := range tests {
		t.Run(tt.selector, func(t *testing.T) {
			t.Parallel()
			s := selection.New(bundle())
			err := s.Apply(tt.selector)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, s.Index())
		})
	}
}

func TestState_EmptyBundle(t *testing.T) {
	t.Parallel()

	s := selection.New(changes.Assemble("main", "mb", nil, nil))
	assert.False(t, s.Next())
	assert.Equal(t, 1, s.Len())
	assert.Empty(t, s.Patches())
}
