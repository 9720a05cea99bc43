// Command covidctl is the ETL and analysis CLI.
//
// Usage:
//
//	covidctl create_tables
//	covidctl fetch_data <country> <start> <end>
//	covidctl fetch_vaccine_data <country> <start> <end>
//	covidctl query_data <query_type> [-country C] [-metric M] [-n N] [-threshold T]
//	covidctl query_data_vaccine <query_type> [-country C] [-n N]
//	covidctl list_tables
//	covidctl drop_table <table>
//	covidctl drop_tables
//
// Dates use YYYY-MM-DD. Configuration comes from environment variables
// (see internal/config), with an optional .env file in the working
// directory.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/joho/godotenv"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/couchcryptid/covid-stats-etl/internal/adapter/diseasesh"
	"github.com/couchcryptid/covid-stats-etl/internal/adapter/sqlstore"
	"github.com/couchcryptid/covid-stats-etl/internal/config"
	"github.com/couchcryptid/covid-stats-etl/internal/domain"
	"github.com/couchcryptid/covid-stats-etl/internal/observability"
	"github.com/couchcryptid/covid-stats-etl/internal/pipeline"
	"github.com/couchcryptid/covid-stats-etl/internal/query"
)

const usage = `usage: covidctl <command> [args]

commands:
  create_tables                              bootstrap the schema
  fetch_data <country> <start> <end>         fetch and store case data
  fetch_vaccine_data <country> <start> <end> fetch and store vaccination data
  query_data <query_type> [flags]            run a case query
  query_data_vaccine <query_type> [flags]    run a vaccination query
  list_tables                                list database tables
  drop_table <table>                         drop one table
  drop_tables                                drop every table

case query types:
  daily_trends, total_cases, top_n_countries_by_metric, global_summary,
  countries_with_zero_total, most_critical_cases,
  recovered_rate_over_threshold, show_all_for_country

vaccination query types:
  total_vaccinations, daily_trends, top_n_countries
`

// num renders counts with thousands separators for terminal output.
var num = message.NewPrinter(language.English)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	// Optional .env for local development; absence is fine.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "covidctl: config: %v\n", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	store, err := sqlstore.Open(cfg, metrics, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "covidctl: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	app := &app{cfg: cfg, store: store, metrics: metrics, logger: logger}

	ctx := context.Background()
	if err := app.run(ctx, os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "covidctl: %v\n", err)
		os.Exit(1)
	}
}

type app struct {
	cfg     *config.Config
	store   *sqlstore.Store
	metrics *observability.Metrics
	logger  *slog.Logger
}

func (a *app) run(ctx context.Context, command string, args []string) error {
	switch command {
	case "create_tables":
		return a.store.CreateTables(ctx)
	case "fetch_data":
		return a.fetch(ctx, args, false)
	case "fetch_vaccine_data":
		return a.fetch(ctx, args, true)
	case "query_data":
		return a.queryData(ctx, args)
	case "query_data_vaccine":
		return a.queryVaccine(ctx, args)
	case "list_tables":
		return a.listTables(ctx)
	case "drop_table":
		if len(args) != 1 {
			return fmt.Errorf("usage: covidctl drop_table <table>")
		}
		if err := a.store.DropTable(ctx, args[0]); err != nil {
			return err
		}
		fmt.Printf("Table %q dropped.\n", args[0])
		return nil
	case "drop_tables":
		if err := a.store.DropAllTables(ctx); err != nil {
			return err
		}
		fmt.Println("All tables dropped.")
		return nil
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}

func (a *app) fetch(ctx context.Context, args []string, vaccine bool) error {
	if len(args) != 3 {
		return fmt.Errorf("usage: covidctl fetch_data <country> <start> <end>")
	}
	country := args[0]
	start, err := domain.ParseDate(args[1])
	if err != nil {
		return err
	}
	end, err := domain.ParseDate(args[2])
	if err != nil {
		return err
	}
	if end.Before(start) {
		// Not an error by contract: no date satisfies the filter.
		fmt.Println("0 records inserted (start is after end)")
		return nil
	}

	client := diseasesh.NewClient(a.cfg.APIBaseURL, a.cfg.FetchTimeout, a.metrics, a.logger)
	ingestor := pipeline.New(client, a.store, a.logger, a.metrics)

	var report pipeline.Report
	if vaccine {
		report = ingestor.IngestVaccinations(ctx, country, start, end)
	} else {
		report = ingestor.IngestCases(ctx, country, start, end)
	}

	num.Printf("%d records inserted for %s (%d fetched)\n", report.Inserted, report.Country, report.Fetched)
	return nil
}

func (a *app) listTables(ctx context.Context) error {
	fmt.Println("Available tables:")
	for _, name := range a.store.ListTables(ctx) {
		fmt.Printf("  - %s\n", name)
	}
	return nil
}

func (a *app) queryData(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: covidctl query_data <query_type> [flags]")
	}
	queryType := args[0]

	fs := flag.NewFlagSet("query_data", flag.ContinueOnError)
	country := fs.String("country", "", "country name")
	metricName := fs.String("metric", "cases", "metric: cases, deaths, or recovered")
	n := fs.Int("n", 5, "number of countries for top_n queries")
	threshold := fs.Float64("threshold", query.DefaultRecoveryThreshold, "recovery rate cutoff in percent")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	metric, err := domain.ParseMetric(*metricName)
	if err != nil {
		return err
	}

	engine := query.NewEngine(a.store)

	switch queryType {
	case "daily_trends":
		if *country == "" {
			return fmt.Errorf("daily_trends requires -country")
		}
		return printTrends(engine.DailyTrends(ctx, *country, metric), metric)
	case "total_cases":
		return printTotals(engine.TotalCases(ctx), "Total Cases")
	case "top_n_countries_by_metric":
		return printTotals(engine.TopNByMetric(ctx, metric, *n), "Total "+metric.String())
	case "global_summary":
		s := engine.GlobalSummary(ctx)
		w := newTable()
		fmt.Fprintln(w, "Total Cases\tTotal Deaths\tTotal Recovered")
		num.Fprintf(w, "%d\t%d\t%d\n", s.Cases, s.Deaths, s.Recovered)
		return w.Flush()
	case "countries_with_zero_total":
		countries := engine.CountriesWithZeroTotal(ctx, metric)
		fmt.Printf("Countries with zero total %s:\n", metric)
		for _, c := range countries {
			fmt.Printf("  - %s\n", c)
		}
		return nil
	case "most_critical_cases":
		return printTotals(engine.MostCritical(ctx), "Total Deaths")
	case "recovered_rate_over_threshold":
		rates := engine.RecoveredRateOverThreshold(ctx, *threshold)
		w := newTable()
		fmt.Fprintln(w, "Country\tRecovered\tCases\tRecovery Rate (%)")
		for _, r := range rates {
			num.Fprintf(w, "%s\t%d\t%d\t%.2f\n", r.Country, r.Recovered, r.Cases, r.Rate)
		}
		return w.Flush()
	case "show_all_for_country":
		if *country == "" {
			return fmt.Errorf("show_all_for_country requires -country")
		}
		days := engine.AllForCountry(ctx, *country)
		w := newTable()
		fmt.Fprintln(w, "Date\tCases\tDeaths\tRecovered")
		for _, d := range days {
			num.Fprintf(w, "%s\t%d\t%d\t%d\n", d.Date, d.Cases, d.Deaths, d.Recovered)
		}
		return w.Flush()
	default:
		return fmt.Errorf("unknown query type %q", queryType)
	}
}

func (a *app) queryVaccine(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: covidctl query_data_vaccine <query_type> [flags]")
	}
	queryType := args[0]

	fs := flag.NewFlagSet("query_data_vaccine", flag.ContinueOnError)
	country := fs.String("country", "", "country name")
	n := fs.Int("n", 5, "number of countries for top_n queries")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	engine := query.NewEngine(a.store)

	switch queryType {
	case "total_vaccinations":
		return printTotals(engine.TotalVaccinations(ctx), "Total Vaccinations")
	case "daily_trends":
		if *country == "" {
			return fmt.Errorf("daily_trends requires -country")
		}
		return printTrends(engine.DailyTrends(ctx, *country, domain.MetricVaccinations), domain.MetricVaccinations)
	case "top_n_countries":
		return printTotals(engine.TopNByMetric(ctx, domain.MetricVaccinations, *n), "Total Vaccinations")
	default:
		return fmt.Errorf("unknown vaccination query type %q", queryType)
	}
}

func newTable() *tabwriter.Writer {
	return tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
}

func printTrends(points []query.TrendPoint, metric domain.Metric) error {
	w := newTable()
	fmt.Fprintf(w, "Date\t%s\n", metric)
	for _, p := range points {
		num.Fprintf(w, "%s\t%d\n", p.Date, p.Value)
	}
	return w.Flush()
}

func printTotals(totals []query.CountryTotal, header string) error {
	w := newTable()
	fmt.Fprintf(w, "Country\t%s\n", header)
	for _, t := range totals {
		num.Fprintf(w, "%s\t%d\n", t.Country, t.Total)
	}
	return w.Flush()
}
