// Package http serves the dashboard JSON API plus health and metrics
// endpoints. It is a read-only consumer of the store and query engine;
// all filtering and grouping beyond the fixed catalog happens here, on
// top of the store's raw query results.
package http

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/covid-stats-etl/internal/domain"
	"github.com/couchcryptid/covid-stats-etl/internal/geo"
	"github.com/couchcryptid/covid-stats-etl/internal/observability"
	"github.com/couchcryptid/covid-stats-etl/internal/query"
)

// Store is the raw read surface the dashboard needs beyond the query
// catalog.
type Store interface {
	Query(ctx context.Context, q string, args ...any) []map[string]any
	ListTables(ctx context.Context) []string
}

// Server exposes the dashboard API, health, and metrics HTTP endpoints.
type Server struct {
	httpServer *http.Server
	store      Store
	engine     *query.Engine
	geoTable   *geo.Table
	cache      *queryCache
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewServer creates the dashboard HTTP server. cacheTTL bounds how
// stale cached query results may get; pass a fake clock in tests.
func NewServer(addr string, store Store, engine *query.Engine, geoTable *geo.Table,
	cacheTTL time.Duration, clock clockwork.Clock,
	metrics *observability.Metrics, logger *slog.Logger) *Server {

	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		store:    store,
		engine:   engine,
		geoTable: geoTable,
		cache:    newQueryCache(cacheTTL, clock),
		metrics:  metrics,
		logger:   logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/tables", s.handleTables)
	mux.HandleFunc("GET /api/summary", s.handleSummary)
	mux.HandleFunc("GET /api/trends", s.handleTrends)
	mux.HandleFunc("GET /api/top", s.handleTop)
	mux.HandleFunc("GET /api/map", s.handleMap)
	mux.HandleFunc("GET /api/export.csv", s.handleExport)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("dashboard server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// handleReady reports ready once the schema exists: a dashboard with no
// tables serves nothing useful.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	for _, name := range s.store.ListTables(ctx) {
		if name == domain.CaseTable {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
			return
		}
	}
	writeJSON(w, http.StatusServiceUnavailable, map[string]string{
		"status": "not ready",
		"error":  "schema not created",
	})
}

func (s *Server) handleTables(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"tables": s.store.ListTables(r.Context())})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	s.cached(w, r, func(ctx context.Context) any {
		return s.engine.GlobalSummary(ctx)
	})
}

func (s *Server) handleTrends(w http.ResponseWriter, r *http.Request) {
	country := r.URL.Query().Get("country")
	if country == "" {
		writeError(w, http.StatusBadRequest, "country is required")
		return
	}
	metric, err := parseMetricParam(r, domain.MetricCases)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.cached(w, r, func(ctx context.Context) any {
		return s.engine.DailyTrends(ctx, country, metric)
	})
}

func (s *Server) handleTop(w http.ResponseWriter, r *http.Request) {
	metric, err := parseMetricParam(r, domain.MetricCases)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	n := 7
	if raw := r.URL.Query().Get("n"); raw != "" {
		n, err = strconv.Atoi(raw)
		if err != nil || n < 1 || n > 100 {
			writeError(w, http.StatusBadRequest, "n must be an integer between 1 and 100")
			return
		}
	}

	s.cached(w, r, func(ctx context.Context) any {
		return s.engine.TopNByMetric(ctx, metric, n)
	})
}

// mapPoint is one country's total joined with its map coordinate.
type mapPoint struct {
	Country string  `json:"country"`
	Total   int64   `json:"total"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

// handleMap joins per-country totals with the embedded coordinate
// table. Countries missing from the reference table are left off the
// map rather than plotted at the origin.
func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) {
	metric, err := parseMetricParam(r, domain.MetricCases)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.cached(w, r, func(ctx context.Context) any {
		var totals []query.CountryTotal
		if metric == domain.MetricVaccinations {
			totals = s.engine.TotalVaccinations(ctx)
		} else {
			totals = s.engine.TopNByMetric(ctx, metric, 100)
		}

		points := make([]mapPoint, 0, len(totals))
		for _, t := range totals {
			p, ok := s.geoTable.Lookup(t.Country)
			if !ok {
				continue
			}
			points = append(points, mapPoint{Country: t.Country, Total: t.Total, Lat: p.Lat, Lon: p.Lon})
		}
		return points
	})
}

// exportColumns fixes CSV column order per table; generic rows carry no
// ordering of their own.
var exportColumns = map[string][]string{
	domain.CaseTable:        {"country", "date", "cases", "deaths", "recovered"},
	domain.VaccinationTable: {"country", "date", "vaccinations"},
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	table := r.URL.Query().Get("table")
	cols, ok := exportColumns[table]
	if !ok {
		writeError(w, http.StatusBadRequest, "table must be covid_stats or vaccination_data")
		return
	}

	rows := s.store.Query(r.Context(), fmt.Sprintf("SELECT * FROM %s ORDER BY country, date", table))

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.csv", table))

	cw := csv.NewWriter(w)
	_ = cw.Write(cols)
	for _, row := range rows {
		record := make([]string, len(cols))
		for i, col := range cols {
			record[i] = fmt.Sprint(row[col])
		}
		_ = cw.Write(record)
	}
	cw.Flush()
}

// cached serves a JSON response through the TTL cache, keyed by request
// path and query string.
func (s *Server) cached(w http.ResponseWriter, r *http.Request, load func(context.Context) any) {
	key := r.URL.Path + "?" + r.URL.RawQuery
	if v, ok := s.cache.get(key); ok {
		s.metrics.CacheLookups.WithLabelValues("hit").Inc()
		writeJSON(w, http.StatusOK, v)
		return
	}
	s.metrics.CacheLookups.WithLabelValues("miss").Inc()

	v := load(r.Context())
	s.cache.put(key, v)
	writeJSON(w, http.StatusOK, v)
}

func parseMetricParam(r *http.Request, fallback domain.Metric) (domain.Metric, error) {
	raw := r.URL.Query().Get("metric")
	if raw == "" {
		return fallback, nil
	}
	return domain.ParseMetric(raw)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
