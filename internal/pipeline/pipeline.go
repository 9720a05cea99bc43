// Package pipeline wires the fetch-normalize-insert cycle together.
// One call runs one country/date-range request to completion; there is
// no scheduler or background worker.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/couchcryptid/covid-stats-etl/internal/domain"
	"github.com/couchcryptid/covid-stats-etl/internal/observability"
)

// Source fetches raw timelines from the upstream API. Implementations
// are fail-soft: an empty result covers both "no data" and "fetch
// failed" (the failure is logged at the source).
type Source interface {
	FetchCases(ctx context.Context, country string, start, end time.Time) []domain.RawCaseRecord
	FetchVaccinations(ctx context.Context, country string, start, end time.Time) []domain.VaccinationInput
}

// Sink persists normalized records, returning the count actually
// inserted (duplicates and rolled-back batches excluded).
type Sink interface {
	InsertCases(ctx context.Context, records []domain.CaseRecord) int64
	InsertVaccinations(ctx context.Context, records []domain.VaccinationRecord) int64
}

// Report summarizes one ingest run.
type Report struct {
	Country  string
	Fetched  int
	Inserted int64
}

// Ingestor runs synchronous fetch-normalize-insert cycles.
type Ingestor struct {
	source  Source
	sink    Sink
	logger  *slog.Logger
	metrics *observability.Metrics
}

// New creates an Ingestor with the given stages and observability.
func New(source Source, sink Sink, logger *slog.Logger, metrics *observability.Metrics) *Ingestor {
	return &Ingestor{
		source:  source,
		sink:    sink,
		logger:  logger,
		metrics: metrics,
	}
}

// IngestCases fetches, normalizes, and stores case records for one
// country over [start, end] inclusive.
func (i *Ingestor) IngestCases(ctx context.Context, country string, start, end time.Time) Report {
	started := time.Now()

	raws := i.source.FetchCases(ctx, country, start, end)
	records := domain.NormalizeCases(raws)
	inserted := i.sink.InsertCases(ctx, records)

	i.metrics.IngestDuration.Observe(time.Since(started).Seconds())
	i.logger.Info("case ingest complete",
		"country", country,
		"fetched", len(raws),
		"inserted", inserted,
	)
	return Report{Country: country, Fetched: len(raws), Inserted: inserted}
}

// IngestVaccinations is IngestCases for the vaccination timeline.
func (i *Ingestor) IngestVaccinations(ctx context.Context, country string, start, end time.Time) Report {
	started := time.Now()

	inputs := i.source.FetchVaccinations(ctx, country, start, end)
	records := domain.NormalizeVaccinations(inputs)
	inserted := i.sink.InsertVaccinations(ctx, records)

	i.metrics.IngestDuration.Observe(time.Since(started).Seconds())
	i.logger.Info("vaccination ingest complete",
		"country", country,
		"fetched", len(inputs),
		"inserted", inserted,
	)
	return Report{Country: country, Fetched: len(inputs), Inserted: inserted}
}
