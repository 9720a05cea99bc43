package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters and histograms for the ETL and
// query paths.
type Metrics struct {
	RecordsFetched    *prometheus.CounterVec // labels: source={cases,vaccinations}
	RecordsInserted   *prometheus.CounterVec // labels: table
	DuplicatesSkipped *prometheus.CounterVec // labels: table
	FetchErrors       *prometheus.CounterVec // labels: source
	StoreErrors       *prometheus.CounterVec // labels: op={insert,query,admin}

	FetchDuration  *prometheus.HistogramVec // labels: source
	IngestDuration prometheus.Histogram

	CacheLookups *prometheus.CounterVec // labels: result={hit,miss}
}

// NewMetrics creates and registers all service metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()

	prometheus.MustRegister(
		m.RecordsFetched,
		m.RecordsInserted,
		m.DuplicatesSkipped,
		m.FetchErrors,
		m.StoreErrors,
		m.FetchDuration,
		m.IngestDuration,
		m.CacheLookups,
	)

	return m
}

// NewMetricsForTesting creates Metrics without registering them, so
// parallel tests never hit "already registered" panics.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		RecordsFetched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "covid_etl",
			Name:      "records_fetched_total",
			Help:      "Records retrieved from the upstream API after date filtering.",
		}, []string{"source"}),
		RecordsInserted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "covid_etl",
			Name:      "records_inserted_total",
			Help:      "Rows actually written, excluding ignored duplicates.",
		}, []string{"table"}),
		DuplicatesSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "covid_etl",
			Name:      "duplicates_skipped_total",
			Help:      "Rows skipped by conflict-ignore inserts.",
		}, []string{"table"}),
		FetchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "covid_etl",
			Name:      "fetch_errors_total",
			Help:      "Upstream fetch failures (transport, status, decode).",
		}, []string{"source"}),
		StoreErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "covid_etl",
			Name:      "store_errors_total",
			Help:      "Store failures by operation.",
		}, []string{"op"}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "covid_etl",
			Name:      "fetch_duration_seconds",
			Help:      "Upstream API request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"source"}),
		IngestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "covid_etl",
			Name:      "ingest_duration_seconds",
			Help:      "Duration of a complete fetch-transform-insert cycle.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "covid_etl",
			Name:      "dashboard_cache_total",
			Help:      "Dashboard query cache lookups by result.",
		}, []string{"result"}),
	}
}
