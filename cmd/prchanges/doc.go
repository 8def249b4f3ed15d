// Prchanges shows the changes of a pull request commit by commit.
//
// It rebuilds the commit graph of a GitHub pull request or a local revision
// range, fetches the diff of every commit and of the whole request
// concurrently, and prints them oldest first, with per-file statistics and
// optional patch bodies.
//
// Usage:
//
//	prchanges changes 42                       # all commits of PR #42
//	prchanges changes 42 --commit 3 --patch    # the third commit with its patches
//	prchanges changes --local origin/main..HEAD --format json
//	prchanges graph 42                         # post-order commit graph
//	prchanges config init                      # write a default config file
//	prchanges cache show                       # commit diff cache statistics
package main
