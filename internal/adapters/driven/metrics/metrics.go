// Package metrics provides a Prometheus implementation of the fetch observer.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/custodia-labs/federa/internal/core/domain"
	"github.com/custodia-labs/federa/internal/core/ports/driven"
)

// Ensure Metrics implements the interface.
var _ driven.FetchObserver = (*Metrics)(nil)

// Query outcome label values.
const (
	OutcomeOK          = "ok"
	OutcomeInvalid     = "invalid"
	OutcomeUnsupported = "unsupported"
	OutcomeError       = "error"
)

// Metrics records federated query and per-source fetch observations.
type Metrics struct {
	// Fetch latencies by source
	FetchLatency *prometheus.HistogramVec

	// Items returned by source
	FetchItems *prometheus.CounterVec

	// Failed fetches by source
	FetchErrors *prometheus.CounterVec

	// Overall query latency
	QueryLatency prometheus.Histogram

	// Queries by outcome: ok, invalid, unsupported, error
	Queries *prometheus.CounterVec
}

// New registers the federation metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		FetchLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "federa_source_fetch_duration_seconds",
			Help:    "Duration of source fetches by source key",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"source"}),

		FetchItems: f.NewCounterVec(prometheus.CounterOpts{
			Name: "federa_source_items_total",
			Help: "Total items returned by source fetches",
		}, []string{"source"}),

		FetchErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "federa_source_fetch_errors_total",
			Help: "Total failed source fetches",
		}, []string{"source"}),

		QueryLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "federa_query_duration_seconds",
			Help:    "Duration of federated queries including every source fetch",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),

		Queries: f.NewCounterVec(prometheus.CounterOpts{
			Name: "federa_queries_total",
			Help: "Total federated queries by outcome",
		}, []string{"outcome"}),
	}
}

// ObserveFetch records one source fetch.
func (m *Metrics) ObserveFetch(source string, elapsed time.Duration, items int, err error) {
	if m == nil {
		return
	}
	m.FetchLatency.WithLabelValues(source).Observe(elapsed.Seconds())
	if err != nil {
		m.FetchErrors.WithLabelValues(source).Inc()
		return
	}
	m.FetchItems.WithLabelValues(source).Add(float64(items))
}

// ObserveQuery records one federated query.
func (m *Metrics) ObserveQuery(elapsed time.Duration, _ int, err error) {
	if m == nil {
		return
	}
	m.QueryLatency.Observe(elapsed.Seconds())
	m.Queries.WithLabelValues(Outcome(err)).Inc()
}

// Outcome classifies a query error as a label value.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrInvalidCursor):
		return OutcomeInvalid
	case errors.Is(err, domain.ErrUnsupportedOperation):
		return OutcomeUnsupported
	}
	return OutcomeError
}
