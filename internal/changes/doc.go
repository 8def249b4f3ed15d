// Package changes turns a pull request's commits into per-commit and overall
// file changes.
//
// A [Builder] reads commits, commit diffs and the whole-request diff from a
// [Source]. [Builder.Build] reconstructs the commit graph, then
// [Builder.Orchestrate] starts one diff fetch per commit plus one for the
// request, all at once, and joins the results in graph post-order so the
// per-commit change sets run oldest first with the head last. Any failed fetch
// or unparseable diff aborts the whole build and cancels the fetches still in
// flight; no partial [Bundle] is ever returned.
//
// Cancellation of the caller's context, or a cancellation raised by the source
// itself, is reported as [ErrCancelled] and never as a transport failure.
// [Resolve] folds a result into an [Outcome] for callers that prefer matching
// on OK, Cancelled or Failed.
package changes
