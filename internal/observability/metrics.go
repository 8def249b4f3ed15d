package observability

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "prchanges"

// Fetch kinds.
const (
	FetchCommit  = "commit"
	FetchRequest = "request"
)

// Outcome labels.
const (
	OutcomeOK        = "ok"
	OutcomeError     = "error"
	OutcomeCancelled = "cancelled"
)

// fetchBuckets covers fast cache-warm local git calls up to slow API pages.
var fetchBuckets = []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}

// Metrics holds the Prometheus collectors of the fetch pipeline. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	fetches       *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
	patches       prometheus.Counter
	cacheLookups  *prometheus.CounterVec
	bundles       *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "diff_fetches_total",
			Help:      "Diff fetches by kind and outcome.",
		}, []string{"kind", "outcome"}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "diff_fetch_duration_seconds",
			Help:      "Diff fetch latency by kind.",
			Buckets:   fetchBuckets,
		}, []string{"kind"}),
		patches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "file_patches_parsed_total",
			Help:      "File patches parsed from fetched diffs.",
		}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Commit diff cache lookups by result.",
		}, []string{"result"}),
		bundles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bundles_total",
			Help:      "Changes bundle builds by outcome.",
		}, []string{"outcome"}),
	}

	for _, c := range []prometheus.Collector{m.fetches, m.fetchDuration, m.patches, m.cacheLookups, m.bundles} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
	}
	return m, nil
}

// ObserveFetch records one finished fetch.
func (m *Metrics) ObserveFetch(kind, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.fetches.WithLabelValues(kind, outcome).Inc()
	m.fetchDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
}

// AddPatches counts parsed file patches.
func (m *Metrics) AddPatches(n int) {
	if m == nil {
		return
	}
	m.patches.Add(float64(n))
}

// CacheLookup records a cache hit or miss.
func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// ObserveBundle records the outcome of one bundle build.
func (m *Metrics) ObserveBundle(outcome string) {
	if m == nil {
		return
	}
	m.bundles.WithLabelValues(outcome).Inc()
}

// WriteTextfile dumps everything gathered by g to path in the Prometheus text
// exposition format.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}
