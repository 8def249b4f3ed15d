package patch

import (
	"path/filepath"
	"strings"
)

// matchAll is the include pattern that selects every path.
const matchAll = "**/*"

// Filter keeps patches whose path matches one of include (all paths when
// include is empty) and none of exclude. Order is preserved.
func Filter(patches []FilePatch, include, exclude []string) []FilePatch {
	includeAll := len(include) == 0
	for _, p := range include {
		if p == matchAll {
			includeAll = true
		}
	}

	kept := make([]FilePatch, 0, len(patches))
	for _, p := range patches {
		path := p.Path()
		if !includeAll && !MatchesAny(path, include) {
			continue
		}
		if MatchesAny(path, exclude) {
			continue
		}
		kept = append(kept, p)
	}
	return kept
}

// MatchesAny returns true if the path matches any of the given glob patterns.
// A leading "**/" matches at any depth and a trailing "/**" matches everything
// below a directory.
func MatchesAny(path string, patterns []string) bool {
	for _, pattern := range patterns {
		if matched, err := filepath.Match(pattern, path); err == nil && matched {
			return true
		}
		if dir, ok := strings.CutSuffix(pattern, "/**"); ok && !strings.ContainsAny(dir, "*?[") {
			if strings.HasPrefix(path, dir+"/") {
				return true
			}
		}
		clean := strings.TrimPrefix(pattern, "**/")
		if clean != pattern {
			if matched, err := filepath.Match(clean, filepath.Base(path)); err == nil && matched {
				return true
			}
			if matched, err := filepath.Match(clean, path); err == nil && matched {
				return true
			}
		}
	}
	return false
}
