// Package cache provides a file-based cache for commit diffs.
//
// A commit hash names immutable content, so the diff of a commit never changes
// and can be reused across runs. Entries are keyed by a SHA-256 hash of the
// repository scope and commit hash, store the diff LZ4-compressed together with
// a creation timestamp and a TTL (in seconds). Expired entries are skipped on
// read and removed during cache-clear operations.
//
// [Source] wraps a changes.Source and serves CommitDiff from the cache. Commit
// lists, request diffs and merge bases always go to the wrapped source.
//
// The default cache directory is $XDG_CACHE_HOME/prchanges (or the
// OS-appropriate equivalent).
package cache
