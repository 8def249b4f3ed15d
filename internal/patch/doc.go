// Package patch parses unified-diff text into per-file patch records.
//
// [Parse] delegates the syntax to github.com/sourcegraph/go-diff and maps each
// file section onto a [FilePatch], preserving the order in which sections
// appear. An empty diff is a valid, empty result; text that contains no file
// sections or that the parser rejects is reported as [ErrUnparseableDiff].
//
// [Filter] applies include/exclude path globs and [WordDiff] splits a changed
// line pair into equal and changed segments for display.
package patch
