package changes

import "errors"

// OutcomeKind tags how a build ended.
type OutcomeKind int

const (
	OutcomeOK OutcomeKind = iota
	OutcomeCancelled
	OutcomeFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeOK:
		return "ok"
	case OutcomeCancelled:
		return "cancelled"
	default:
		return "failed"
	}
}

// Outcome is a build result as a tagged variant: exactly one of Bundle (OK) or
// Err (Cancelled, Failed) is set.
type Outcome struct {
	Kind   OutcomeKind
	Bundle *Bundle
	Err    error
}

// Resolve folds a (bundle, error) pair into an Outcome.
func Resolve(bundle *Bundle, err error) Outcome {
	switch {
	case err == nil:
		return Outcome{Kind: OutcomeOK, Bundle: bundle}
	case errors.Is(err, ErrCancelled):
		return Outcome{Kind: OutcomeCancelled, Err: err}
	default:
		return Outcome{Kind: OutcomeFailed, Err: err}
	}
}

// Failure returns the sentinel classifying a failed outcome:
// ErrMalformedHistory, ErrUnparseableDiff or ErrTransport. It returns nil for
// OK and ErrCancelled for cancelled outcomes; unclassified errors are
// returned unchanged.
func (o Outcome) Failure() error {
	switch o.Kind {
	case OutcomeOK:
		return nil
	case OutcomeCancelled:
		return ErrCancelled
	}
	for _, kind := range []error{ErrMalformedHistory, ErrUnparseableDiff, ErrTransport} {
		if errors.Is(o.Err, kind) {
			return kind
		}
	}
	return o.Err
}
