// Package query holds the fixed catalog of named aggregate queries
// over the case and vaccination tables.
//
// Every query has a deterministic sort order: aggregates ordered by a
// computed total carry a secondary country ASC key, so equal totals
// cannot reorder across runs or storage engines. Metric names are never
// interpolated into SQL without first passing the domain.Metric enum.
package query

import (
	"context"
	"fmt"
	"strconv"

	"github.com/couchcryptid/covid-stats-etl/internal/domain"
)

// Store is the read surface the engine runs on. Execution failures
// surface as empty results per the store's fail-soft contract.
type Store interface {
	Query(ctx context.Context, query string, args ...any) []map[string]any
}

// Engine executes the query catalog against a Store.
type Engine struct {
	store Store
}

// NewEngine creates an Engine over the given store.
func NewEngine(store Store) *Engine {
	return &Engine{store: store}
}

// TrendPoint is one day of a single metric for one country.
type TrendPoint struct {
	Date  string `json:"date"`
	Value int64  `json:"value"`
}

// CountryTotal is a per-country sum of one metric.
type CountryTotal struct {
	Country string `json:"country"`
	Total   int64  `json:"total"`
}

// Summary holds the global column sums of the case table.
type Summary struct {
	Cases     int64 `json:"cases"`
	Deaths    int64 `json:"deaths"`
	Recovered int64 `json:"recovered"`
}

// RecoveryRate is a per-country recovered/cases percentage.
type RecoveryRate struct {
	Country   string  `json:"country"`
	Recovered int64   `json:"recovered"`
	Cases     int64   `json:"cases"`
	Rate      float64 `json:"rate"`
}

// DayStats is one full row of the case table for one country.
type DayStats struct {
	Date      string `json:"date"`
	Cases     int64  `json:"cases"`
	Deaths    int64  `json:"deaths"`
	Recovered int64  `json:"recovered"`
}

// DailyTrends returns the day-by-day values of a metric for one
// country, ascending by date.
func (e *Engine) DailyTrends(ctx context.Context, country string, metric domain.Metric) []TrendPoint {
	q := fmt.Sprintf(`SELECT date, %s AS value FROM %s WHERE country = ? ORDER BY date`,
		metric.Column(), metric.Table())

	rows := e.store.Query(ctx, q, country)
	out := make([]TrendPoint, 0, len(rows))
	for _, row := range rows {
		out = append(out, TrendPoint{Date: asString(row["date"]), Value: asInt64(row["value"])})
	}
	return out
}

// TotalCases returns the summed case count per country, largest first.
func (e *Engine) TotalCases(ctx context.Context) []CountryTotal {
	return e.totals(ctx, domain.MetricCases)
}

// TotalVaccinations returns the summed vaccination count per country,
// largest first.
func (e *Engine) TotalVaccinations(ctx context.Context) []CountryTotal {
	return e.totals(ctx, domain.MetricVaccinations)
}

// TopNByMetric returns at most n countries by summed metric,
// descending.
func (e *Engine) TopNByMetric(ctx context.Context, metric domain.Metric, n int) []CountryTotal {
	q := fmt.Sprintf(`SELECT country, SUM(%s) AS total FROM %s
		GROUP BY country ORDER BY total DESC, country LIMIT ?`,
		metric.Column(), metric.Table())

	return e.countryTotals(ctx, q, n)
}

// GlobalSummary returns the column sums over the whole case table.
// An empty table yields all zeros.
func (e *Engine) GlobalSummary(ctx context.Context) Summary {
	rows := e.store.Query(ctx, `SELECT SUM(cases) AS total_cases,
		SUM(deaths) AS total_deaths, SUM(recovered) AS total_recovered FROM covid_stats`)
	if len(rows) == 0 {
		return Summary{}
	}
	return Summary{
		Cases:     asInt64(rows[0]["total_cases"]),
		Deaths:    asInt64(rows[0]["total_deaths"]),
		Recovered: asInt64(rows[0]["total_recovered"]),
	}
}

// CountriesWithZeroTotal returns the countries whose metric sums to
// zero, sorted by name.
func (e *Engine) CountriesWithZeroTotal(ctx context.Context, metric domain.Metric) []string {
	q := fmt.Sprintf(`SELECT country FROM %s GROUP BY country
		HAVING SUM(%s) = 0 ORDER BY country`,
		metric.Table(), metric.Column())

	rows := e.store.Query(ctx, q)
	out := make([]string, 0, len(rows))
	for _, row := range rows {
		out = append(out, asString(row["country"]))
	}
	return out
}

// MostCritical returns the five countries with the highest summed
// death counts.
func (e *Engine) MostCritical(ctx context.Context) []CountryTotal {
	return e.countryTotals(ctx, `SELECT country, SUM(deaths) AS total FROM covid_stats
		GROUP BY country ORDER BY total DESC, country LIMIT 5`)
}

// DefaultRecoveryThreshold is the recovery-rate cutoff in percent.
const DefaultRecoveryThreshold = 50.0

// RecoveredRateOverThreshold returns countries whose recovery rate
// (summed recovered / summed cases × 100) strictly exceeds the
// threshold. Countries with zero total cases are excluded outright, not
// reported as infinite.
func (e *Engine) RecoveredRateOverThreshold(ctx context.Context, threshold float64) []RecoveryRate {
	rows := e.store.Query(ctx, `SELECT country,
		SUM(recovered) AS total_recovered,
		SUM(cases) AS total_cases,
		ROUND(SUM(recovered) * 100.0 / SUM(cases), 2) AS rate
	FROM covid_stats
	GROUP BY country
	HAVING SUM(cases) > 0 AND (SUM(recovered) * 100.0 / SUM(cases)) > ?
	ORDER BY rate DESC, country`, threshold)

	out := make([]RecoveryRate, 0, len(rows))
	for _, row := range rows {
		out = append(out, RecoveryRate{
			Country:   asString(row["country"]),
			Recovered: asInt64(row["total_recovered"]),
			Cases:     asInt64(row["total_cases"]),
			Rate:      asFloat64(row["rate"]),
		})
	}
	return out
}

// AllForCountry returns every stored case row for a country, ascending
// by date.
func (e *Engine) AllForCountry(ctx context.Context, country string) []DayStats {
	rows := e.store.Query(ctx, `SELECT date, cases, deaths, recovered
		FROM covid_stats WHERE country = ? ORDER BY date`, country)

	out := make([]DayStats, 0, len(rows))
	for _, row := range rows {
		out = append(out, DayStats{
			Date:      asString(row["date"]),
			Cases:     asInt64(row["cases"]),
			Deaths:    asInt64(row["deaths"]),
			Recovered: asInt64(row["recovered"]),
		})
	}
	return out
}

func (e *Engine) totals(ctx context.Context, metric domain.Metric) []CountryTotal {
	q := fmt.Sprintf(`SELECT country, SUM(%s) AS total FROM %s
		GROUP BY country ORDER BY total DESC, country`,
		metric.Column(), metric.Table())
	return e.countryTotals(ctx, q)
}

func (e *Engine) countryTotals(ctx context.Context, q string, args ...any) []CountryTotal {
	rows := e.store.Query(ctx, q, args...)
	out := make([]CountryTotal, 0, len(rows))
	for _, row := range rows {
		out = append(out, CountryTotal{Country: asString(row["country"]), Total: asInt64(row["total"])})
	}
	return out
}

// Generic-row coercion helpers. Drivers disagree on scan types (int64
// vs float64 vs text), so conversions stay permissive.

func asString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

func asInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	case string:
		i, _ := strconv.ParseInt(n, 10, 64)
		return i
	default:
		return 0
	}
}

func asFloat64(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	case string:
		f, _ := strconv.ParseFloat(n, 64)
		return f
	default:
		return 0
	}
}
