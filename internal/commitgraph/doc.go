// Package commitgraph reconstructs commit ancestry from a flat, unordered list
// of commit records.
//
// [Build] indexes the records by identity, picks the single head commit (the
// last record in input order that no other record names as a parent) and walks
// parent links depth-first from it. Nodes live in an indexed arena guarded by a
// visited set, so the walk terminates even on cyclic input. Parents that are not
// part of the input terminate traversal at that node, which makes shallow commit
// ranges legal.
//
// [Graph.PostOrder] returns the reachable commits oldest-ancestor-first with the
// head last; this is the order in which per-commit changes are presented.
package commitgraph
