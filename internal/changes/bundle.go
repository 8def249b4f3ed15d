package changes

import (
	"encoding/json"
	"slices"
	"strings"

	"github.com/dshills/prchanges/internal/commitgraph"
	"github.com/dshills/prchanges/internal/patch"
)

// minPrefixLen is the shortest abbreviated hash IndexOf accepts.
const minPrefixLen = 4

// CommitPatchSet is the change set of one commit.
type CommitPatchSet struct {
	Commit commitgraph.Commit `json:"commit" yaml:"commit"`
	// Parents lists the parents that are part of the fetched commit range.
	Parents []string          `json:"parents" yaml:"parents"`
	Patches []patch.FilePatch `json:"patches" yaml:"patches"`
}

func (s CommitPatchSet) clone() CommitPatchSet {
	s.Commit.Parents = slices.Clone(s.Commit.Parents)
	s.Parents = nonNil(slices.Clone(s.Parents))
	s.Patches = nonNil(slices.Clone(s.Patches))
	return s
}

// Bundle is the finished result: per-commit change sets in post-order plus the
// change set of the whole request. It is never modified after Assemble;
// accessors hand out copies.
type Bundle struct {
	baseRef      string
	mergeBaseRef string
	commits      []CommitPatchSet
	request      []patch.FilePatch
}

// Assemble builds a Bundle from already ordered commit patch sets and the
// request-wide patches. It copies its inputs.
func Assemble(baseRef, mergeBaseRef string, sets []CommitPatchSet, requestPatches []patch.FilePatch) *Bundle {
	commits := make([]CommitPatchSet, len(sets))
	for i, s := range sets {
		commits[i] = s.clone()
	}
	return &Bundle{
		baseRef:      baseRef,
		mergeBaseRef: mergeBaseRef,
		commits:      commits,
		request:      nonNil(slices.Clone(requestPatches)),
	}
}

// BaseRef returns the ref the request targets.
func (b *Bundle) BaseRef() string { return b.baseRef }

// MergeBaseRef returns the merge base of the base ref and the head.
func (b *Bundle) MergeBaseRef() string { return b.mergeBaseRef }

// Len returns the number of commits.
func (b *Bundle) Len() int { return len(b.commits) }

// Commits returns the per-commit change sets, oldest first.
func (b *Bundle) Commits() []CommitPatchSet {
	out := make([]CommitPatchSet, len(b.commits))
	for i, s := range b.commits {
		out[i] = s.clone()
	}
	return out
}

// CommitAt returns the i-th commit change set in post-order.
func (b *Bundle) CommitAt(i int) (CommitPatchSet, bool) {
	if i < 0 || i >= len(b.commits) {
		return CommitPatchSet{}, false
	}
	return b.commits[i].clone(), true
}

// IndexOf returns the post-order position of the commit whose ID equals id or
// starts with it, or -1.
func (b *Bundle) IndexOf(id string) int {
	if id == "" {
		return -1
	}
	for i, s := range b.commits {
		if s.Commit.ID == id || (len(id) >= minPrefixLen && strings.HasPrefix(s.Commit.ID, id)) {
			return i
		}
	}
	return -1
}

// RequestPatches returns the change set of the whole request.
func (b *Bundle) RequestPatches() []patch.FilePatch {
	return slices.Clone(b.request)
}

// Filter returns a new bundle keeping only patches whose paths pass
// patch.Filter. Commits without remaining patches are kept.
func (b *Bundle) Filter(include, exclude []string) *Bundle {
	return b.Map(func(ps []patch.FilePatch) []patch.FilePatch {
		return patch.Filter(ps, include, exclude)
	})
}

// Map returns a new bundle with fn applied to the patches of every commit and
// to the request patches. Commits, their order and the refs are unchanged.
func (b *Bundle) Map(fn func([]patch.FilePatch) []patch.FilePatch) *Bundle {
	sets := make([]CommitPatchSet, len(b.commits))
	for i, s := range b.commits {
		s.Patches = fn(slices.Clone(s.Patches))
		sets[i] = s
	}
	return Assemble(b.baseRef, b.mergeBaseRef, sets, fn(slices.Clone(b.request)))
}

type bundleDocument struct {
	BaseRef        string            `json:"baseRef" yaml:"baseRef"`
	MergeBaseRef   string            `json:"mergeBaseRef" yaml:"mergeBaseRef"`
	Commits        []CommitPatchSet  `json:"commits" yaml:"commits"`
	RequestPatches []patch.FilePatch `json:"requestPatches" yaml:"requestPatches"`
}

func (b *Bundle) document() bundleDocument {
	return bundleDocument{
		BaseRef:        b.baseRef,
		MergeBaseRef:   b.mergeBaseRef,
		Commits:        b.Commits(),
		RequestPatches: b.RequestPatches(),
	}
}

// MarshalJSON encodes the bundle.
func (b *Bundle) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.document())
}

// MarshalYAML encodes the bundle for gopkg.in/yaml.v3.
func (b *Bundle) MarshalYAML() (any, error) {
	return b.document(), nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
