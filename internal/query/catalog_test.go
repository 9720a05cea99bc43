package query

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/couchcryptid/covid-stats-etl/internal/adapter/sqlstore"
	"github.com/couchcryptid/covid-stats-etl/internal/config"
	"github.com/couchcryptid/covid-stats-etl/internal/domain"
	"github.com/couchcryptid/covid-stats-etl/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEngine(t *testing.T) (*Engine, *sqlstore.Store) {
	t.Helper()

	cfg := &config.Config{
		DatabaseDriver: "sqlite",
		DatabaseURL:    filepath.Join(t.TempDir(), "test.db"),
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s, err := sqlstore.Open(cfg, observability.NewMetricsForTesting(), logger)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.CreateTables(context.Background()))

	return NewEngine(s), s
}

func rec(country string, y int, m time.Month, d int, cases, deaths, recovered int64) domain.CaseRecord {
	return domain.CaseRecord{
		Country:   country,
		Date:      time.Date(y, m, d, 0, 0, 0, 0, time.UTC),
		Cases:     cases,
		Deaths:    deaths,
		Recovered: recovered,
	}
}

// seedUSAScenario loads the two-day USA fixture used across tests.
func seedUSAScenario(t *testing.T, s *sqlstore.Store) {
	t.Helper()
	n := s.InsertCases(context.Background(), []domain.CaseRecord{
		rec("USA", 2021, 1, 1, 100, 2, 50),
		rec("USA", 2021, 1, 2, 150, 3, 80),
	})
	require.Equal(t, int64(2), n)
}

func TestDailyTrends(t *testing.T) {
	e, s := testEngine(t)
	seedUSAScenario(t, s)

	got := e.DailyTrends(context.Background(), "USA", domain.MetricCases)

	require.Len(t, got, 2)
	assert.Equal(t, TrendPoint{Date: "2021-01-01", Value: 100}, got[0])
	assert.Equal(t, TrendPoint{Date: "2021-01-02", Value: 150}, got[1])
}

func TestDailyTrends_UnknownCountry(t *testing.T) {
	e, s := testEngine(t)
	seedUSAScenario(t, s)

	assert.Empty(t, e.DailyTrends(context.Background(), "Atlantis", domain.MetricCases))
}

func TestDailyTrends_VaccinationMetricRoutesToVaccinationTable(t *testing.T) {
	e, s := testEngine(t)
	ctx := context.Background()

	s.InsertVaccinations(ctx, []domain.VaccinationRecord{
		{Country: "Norway", Date: time.Date(2021, 3, 4, 0, 0, 0, 0, time.UTC), Vaccinations: 128000},
		{Country: "Norway", Date: time.Date(2021, 3, 5, 0, 0, 0, 0, time.UTC), Vaccinations: 131500},
	})

	got := e.DailyTrends(ctx, "Norway", domain.MetricVaccinations)
	require.Len(t, got, 2)
	assert.Equal(t, int64(128000), got[0].Value)
}

func TestTotalCases(t *testing.T) {
	e, s := testEngine(t)
	seedUSAScenario(t, s)

	got := e.TotalCases(context.Background())

	require.Len(t, got, 1)
	assert.Equal(t, CountryTotal{Country: "USA", Total: 250}, got[0])
}

func TestTotalCases_DescendingWithCountryTiebreak(t *testing.T) {
	e, s := testEngine(t)
	ctx := context.Background()

	s.InsertCases(ctx, []domain.CaseRecord{
		rec("Albania", 2021, 1, 1, 10, 0, 0),
		rec("Brazil", 2021, 1, 1, 500, 0, 0),
		rec("Chile", 2021, 1, 1, 10, 0, 0),
	})

	got := e.TotalCases(ctx)

	require.Len(t, got, 3)
	assert.Equal(t, "Brazil", got[0].Country)
	// Equal totals resolve alphabetically.
	assert.Equal(t, "Albania", got[1].Country)
	assert.Equal(t, "Chile", got[2].Country)
}

func TestTopNByMetric(t *testing.T) {
	e, s := testEngine(t)
	ctx := context.Background()

	s.InsertCases(ctx, []domain.CaseRecord{
		rec("Albania", 2021, 1, 1, 10, 1, 0),
		rec("Brazil", 2021, 1, 1, 500, 30, 0),
		rec("Chile", 2021, 1, 1, 200, 10, 0),
		rec("Denmark", 2021, 1, 1, 300, 5, 0),
	})

	got := e.TopNByMetric(ctx, domain.MetricCases, 3)

	require.Len(t, got, 3)
	assert.Equal(t, "Brazil", got[0].Country)
	assert.Equal(t, "Denmark", got[1].Country)
	assert.Equal(t, "Chile", got[2].Country)
	assert.Greater(t, got[0].Total, got[1].Total)
	assert.Greater(t, got[1].Total, got[2].Total)
}

func TestTopNByMetric_FewerCountriesThanN(t *testing.T) {
	e, s := testEngine(t)
	seedUSAScenario(t, s)

	got := e.TopNByMetric(context.Background(), domain.MetricDeaths, 10)
	assert.Len(t, got, 1)
}

func TestGlobalSummary(t *testing.T) {
	e, s := testEngine(t)
	ctx := context.Background()

	s.InsertCases(ctx, []domain.CaseRecord{
		rec("USA", 2021, 1, 1, 100, 2, 50),
		rec("Brazil", 2021, 1, 1, 200, 8, 120),
	})

	got := e.GlobalSummary(ctx)
	assert.Equal(t, Summary{Cases: 300, Deaths: 10, Recovered: 170}, got)
}

func TestGlobalSummary_EmptyTable(t *testing.T) {
	e, _ := testEngine(t)
	assert.Equal(t, Summary{}, e.GlobalSummary(context.Background()))
}

func TestCountriesWithZeroTotal(t *testing.T) {
	e, s := testEngine(t)
	ctx := context.Background()

	s.InsertCases(ctx, []domain.CaseRecord{
		rec("USA", 2021, 1, 1, 100, 2, 50),
		rec("NewZealand", 2021, 1, 1, 5, 0, 5),
		rec("Tonga", 2021, 1, 1, 3, 0, 3),
	})

	got := e.CountriesWithZeroTotal(ctx, domain.MetricDeaths)
	assert.Equal(t, []string{"NewZealand", "Tonga"}, got)
}

func TestMostCritical_TopFiveByDeaths(t *testing.T) {
	e, s := testEngine(t)
	ctx := context.Background()

	countries := []struct {
		name   string
		deaths int64
	}{
		{"A", 10}, {"B", 60}, {"C", 30}, {"D", 50}, {"E", 20}, {"F", 40},
	}
	for _, c := range countries {
		s.InsertCases(ctx, []domain.CaseRecord{rec(c.name, 2021, 1, 1, 100, c.deaths, 0)})
	}

	got := e.MostCritical(ctx)

	require.Len(t, got, 5)
	assert.Equal(t, "B", got[0].Country)
	assert.Equal(t, int64(60), got[0].Total)
	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, got[i-1].Total, got[i].Total)
	}
	// The lowest-death country fell off the top five.
	for _, ct := range got {
		assert.NotEqual(t, "A", ct.Country)
	}
}

func TestRecoveredRateOverThreshold(t *testing.T) {
	e, s := testEngine(t)
	ctx := context.Background()

	s.InsertCases(ctx, []domain.CaseRecord{
		rec("High", 2021, 1, 1, 100, 0, 80),     // 80% -> included
		rec("Boundary", 2021, 1, 1, 100, 0, 50), // exactly 50% -> excluded, strict >
		rec("Low", 2021, 1, 1, 100, 0, 10),      // 10% -> excluded
		rec("NoCases", 2021, 1, 1, 0, 0, 5),     // zero cases -> excluded, no division
	})

	got := e.RecoveredRateOverThreshold(ctx, DefaultRecoveryThreshold)

	require.Len(t, got, 1)
	assert.Equal(t, "High", got[0].Country)
	assert.InDelta(t, 80.0, got[0].Rate, 0.001)
	assert.Equal(t, int64(100), got[0].Cases)
	assert.Equal(t, int64(80), got[0].Recovered)
}

func TestRecoveredRateOverThreshold_AggregatesAcrossDays(t *testing.T) {
	e, s := testEngine(t)
	ctx := context.Background()

	// 130 recovered / 250 cases = 52% over both days.
	seedUSAScenario(t, s)

	got := e.RecoveredRateOverThreshold(ctx, 50)
	require.Len(t, got, 1)
	assert.Equal(t, "USA", got[0].Country)
	assert.InDelta(t, 52.0, got[0].Rate, 0.001)
}

func TestAllForCountry(t *testing.T) {
	e, s := testEngine(t)
	seedUSAScenario(t, s)

	got := e.AllForCountry(context.Background(), "USA")

	require.Len(t, got, 2)
	assert.Equal(t, DayStats{Date: "2021-01-01", Cases: 100, Deaths: 2, Recovered: 50}, got[0])
	assert.Equal(t, DayStats{Date: "2021-01-02", Cases: 150, Deaths: 3, Recovered: 80}, got[1])
}

func TestTotalVaccinations(t *testing.T) {
	e, s := testEngine(t)
	ctx := context.Background()

	s.InsertVaccinations(ctx, []domain.VaccinationRecord{
		{Country: "Norway", Date: time.Date(2021, 3, 4, 0, 0, 0, 0, time.UTC), Vaccinations: 100},
		{Country: "Norway", Date: time.Date(2021, 3, 5, 0, 0, 0, 0, time.UTC), Vaccinations: 150},
		{Country: "Chile", Date: time.Date(2021, 3, 4, 0, 0, 0, 0, time.UTC), Vaccinations: 400},
	})

	got := e.TotalVaccinations(ctx)

	require.Len(t, got, 2)
	assert.Equal(t, CountryTotal{Country: "Chile", Total: 400}, got[0])
	assert.Equal(t, CountryTotal{Country: "Norway", Total: 250}, got[1])
}
