package changes

import (
	"context"

	"github.com/dshills/prchanges/internal/commitgraph"
)

// Source is the transport a Builder reads from. Implementations own
// authentication, throttling and timeouts; the Builder never retries.
type Source interface {
	// Commits returns every commit of the request, fully drained.
	Commits(ctx context.Context, requestID string) ([]commitgraph.Commit, error)
	// CommitDiff returns the unified diff a commit introduces.
	CommitDiff(ctx context.Context, commitID string) (string, error)
	// RequestDiff returns the unified diff of the whole request.
	RequestDiff(ctx context.Context, requestID string) (string, error)
	// MergeBase resolves the merge base of two refs.
	MergeBase(ctx context.Context, baseRef, headRef string) (string, error)
}
