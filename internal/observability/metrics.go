package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the counters of a harvest run. Each instance owns its
// registry, so tests and repeated runs never collide. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// PagesFetched counts HTTP fetches by host and outcome (ok, error, cached).
	PagesFetched *prometheus.CounterVec

	// FetchRetries counts retried fetch attempts by host.
	FetchRetries *prometheus.CounterVec

	// RecordsCollected counts faculty records emitted, by college.
	RecordsCollected *prometheus.CounterVec

	// CollegesFailed counts colleges whose collection failed.
	CollegesFailed prometheus.Counter

	// RecordsMerged counts folds that merged into an existing record.
	RecordsMerged prometheus.Counter

	// NamesakesAppended counts folds that kept a same-name record separate.
	NamesakesAppended prometheus.Counter

	// LibrarySearches counts library searches by outcome (ok, error).
	LibrarySearches *prometheus.CounterVec

	// DocumentsScored counts article documents scored for authorship.
	DocumentsScored prometheus.Counter

	// DocumentsAccepted counts documents attributed to a faculty member.
	DocumentsAccepted prometheus.Counter
}

// NewMetrics creates the harvest metrics under the given namespace
func NewMetrics(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		PagesFetched: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "pages_total",
			Help:      "HTTP fetches by host and outcome",
		}, []string{"host", "outcome"}),
		FetchRetries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "retries_total",
			Help:      "Retried fetch attempts by host",
		}, []string{"host"}),
		RecordsCollected: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "faculty",
			Name:      "records_collected_total",
			Help:      "Faculty records emitted by college",
		}, []string{"college"}),
		CollegesFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "faculty",
			Name:      "colleges_failed_total",
			Help:      "Colleges whose collection failed",
		}),
		RecordsMerged: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "faculty",
			Name:      "records_merged_total",
			Help:      "Records merged into an existing identity",
		}),
		NamesakesAppended: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "faculty",
			Name:      "namesakes_total",
			Help:      "Records kept apart from a same-name identity",
		}),
		LibrarySearches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "library",
			Name:      "searches_total",
			Help:      "Library searches by outcome",
		}, []string{"outcome"}),
		DocumentsScored: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "library",
			Name:      "documents_scored_total",
			Help:      "Article documents scored for authorship",
		}),
		DocumentsAccepted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "library",
			Name:      "documents_accepted_total",
			Help:      "Documents attributed to a faculty member",
		}),
	}
}

// Handler serves the metrics in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordFetch records one fetch outcome for a host
func (m *Metrics) RecordFetch(host, outcome string) {
	if m == nil {
		return
	}
	m.PagesFetched.WithLabelValues(host, outcome).Inc()
}

// RecordRetry records a retried fetch attempt
func (m *Metrics) RecordRetry(host string) {
	if m == nil {
		return
	}
	m.FetchRetries.WithLabelValues(host).Inc()
}

// RecordCollected records the records a college produced
func (m *Metrics) RecordCollected(college string, count int) {
	if m == nil {
		return
	}
	m.RecordsCollected.WithLabelValues(college).Add(float64(count))
}

// RecordCollegeFailed records a failed college
func (m *Metrics) RecordCollegeFailed() {
	if m == nil {
		return
	}
	m.CollegesFailed.Inc()
}

// RecordFold records the outcome of folding records into the index
func (m *Metrics) RecordFold(merged, namesakes int) {
	if m == nil {
		return
	}
	m.RecordsMerged.Add(float64(merged))
	m.NamesakesAppended.Add(float64(namesakes))
}

// RecordSearch records one library search outcome
func (m *Metrics) RecordSearch(outcome string) {
	if m == nil {
		return
	}
	m.LibrarySearches.WithLabelValues(outcome).Inc()
}

// RecordScored records one scored document and whether it was accepted
func (m *Metrics) RecordScored(accepted bool) {
	if m == nil {
		return
	}
	m.DocumentsScored.Inc()
	if accepted {
		m.DocumentsAccepted.Inc()
	}
}
