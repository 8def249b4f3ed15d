package changes

import (
	"context"
	"errors"
	"fmt"

	"github.com/dshills/prchanges/internal/commitgraph"
	"github.com/dshills/prchanges/internal/patch"
)

var (
	// ErrCancelled marks a build that stopped because it was cancelled.
	ErrCancelled = errors.New("cancelled")
	// ErrTransport marks a failure reported by a Source.
	ErrTransport = errors.New("transport failure")

	// ErrMalformedHistory is re-exported from commitgraph.
	ErrMalformedHistory = commitgraph.ErrMalformedHistory
	// ErrUnparseableDiff is re-exported from patch.
	ErrUnparseableDiff = patch.ErrUnparseableDiff
)

// FetchError attaches the commit or request a failure belongs to. Kind is
// ErrTransport or ErrUnparseableDiff; Err is the underlying error, left
// uninterpreted.
type FetchError struct {
	Kind   error
	Target string
	Err    error
}

func (e *FetchError) Error() string {
	if e == nil {
		return ""
	}
	if errors.Is(e.Err, e.Kind) {
		return fmt.Sprintf("%s: %v", e.Target, e.Err)
	}
	return fmt.Sprintf("%s: %v: %v", e.Target, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() []error { return []error{e.Kind, e.Err} }

func transportError(target string, err error) error {
	return &FetchError{Kind: ErrTransport, Target: target, Err: err}
}

func cancelled(cause error) error {
	if cause == nil {
		return ErrCancelled
	}
	if errors.Is(cause, ErrCancelled) {
		return cause
	}
	return fmt.Errorf("%w: %w", ErrCancelled, cause)
}

// isCancellation reports whether err is a cancellation rather than a failure.
// Deadline errors count only through the caller's context, since a transport
// timing out on its own is a real failure.
func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, ErrCancelled)
}
