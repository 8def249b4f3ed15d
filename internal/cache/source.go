package cache

import (
	"context"
	"log/slog"

	"github.com/dshills/prchanges/internal/changes"
	"github.com/dshills/prchanges/internal/observability"
)

// Source serves commit diffs from a Cache and forwards everything else to the
// wrapped source.
type Source struct {
	changes.Source
	cache   *Cache
	scope   string
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewSource wraps inner. Scope identifies the repository inner reads from.
func NewSource(inner changes.Source, c *Cache, scope string, m *observability.Metrics) *Source {
	return &Source{
		Source:  inner,
		cache:   c,
		scope:   scope,
		metrics: m,
		logger:  observability.Discard(),
	}
}

// WithLogger sets the logger used to report cache write failures.
func (s *Source) WithLogger(l *slog.Logger) *Source {
	s.logger = l
	return s
}

// CommitDiff returns the cached diff of commitID or fetches and stores it.
func (s *Source) CommitDiff(ctx context.Context, commitID string) (string, error) {
	if !s.cache.Enabled() {
		return s.Source.CommitDiff(ctx, commitID)
	}

	key := CommitDiffKey(s.scope, commitID)
	if diff, ok := s.cache.Get(key); ok {
		s.metrics.CacheLookup(true)
		return diff, nil
	}
	s.metrics.CacheLookup(false)

	diff, err := s.Source.CommitDiff(ctx, commitID)
	if err != nil {
		return "", err
	}
	if err := s.cache.Put(key, diff); err != nil {
		s.logger.WarnContext(ctx, "cache write failed", "commit", commitID, "error", err)
	}
	return diff, nil
}
