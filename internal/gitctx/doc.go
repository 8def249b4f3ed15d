// Package gitctx reads commits and diffs from a local git repository by
// shelling out to git.
//
// A [Repo] is bound to one working tree. It lists the commits of a revision
// range with their parents, produces the diff of a single commit against its
// first parent (root commits diff against the empty tree) and the three-dot
// diff of a whole range. [Repo] satisfies changes.Source with the revision
// range as request ID, so local branches can be inspected the same way as
// pull requests.
package gitctx
