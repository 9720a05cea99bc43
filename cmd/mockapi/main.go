// Command mockapi serves a local disease.sh-compatible API with
// deterministic synthetic timelines, for developing and demoing the
// pipeline without hitting the real service.
//
// Usage:
//
//	go run ./cmd/mockapi -addr :9090 -days 120
//	API_BASE_URL=http://localhost:9090 covidctl fetch_data Norway 2021-01-01 2021-03-01
//
// Timelines are a pure function of the country name, so repeated
// fetches of the same country always insert the same rows.
package main

import (
	"encoding/json"
	"flag"
	"hash/fnv"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/couchcryptid/covid-stats-etl/internal/domain"
)

// baseDate anchors every generated timeline so fixtures stay stable
// across runs.
var baseDate = time.Date(2021, time.January, 1, 0, 0, 0, 0, time.UTC)

func main() {
	addr := flag.String("addr", ":9090", "listen address")
	days := flag.Int("days", 120, "number of timeline days per country")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	mux := http.NewServeMux()
	mux.HandleFunc("GET /historical/{country}", func(w http.ResponseWriter, r *http.Request) {
		country := r.PathValue("country")
		writeJSON(w, map[string]any{
			"country": country,
			"timeline": map[string]any{
				"cases":     timeline(country, "cases", *days),
				"deaths":    timeline(country, "deaths", *days),
				"recovered": timeline(country, "recovered", *days),
			},
		})
		logger.Info("served case history", "country", country)
	})
	mux.HandleFunc("GET /vaccine/coverage/countries/{country}", func(w http.ResponseWriter, r *http.Request) {
		country := r.PathValue("country")
		writeJSON(w, map[string]any{
			"country":  country,
			"timeline": timeline(country, "vaccinations", *days),
		})
		logger.Info("served vaccination history", "country", country)
	})

	logger.Info("mock API listening", "addr", *addr, "days", *days)
	if err := http.ListenAndServe(*addr, mux); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// timeline builds a cumulative date→count map keyed by the upstream
// M/D/YY format, seeded by country and metric name.
func timeline(country, metric string, days int) map[string]int64 {
	h := fnv.New64a()
	h.Write([]byte(country + "|" + metric))
	seed := h.Sum64()

	points := make(map[string]int64, days)
	var total int64
	for i := 0; i < days; i++ {
		// Small deterministic daily increment in [1, 100].
		seed = seed*6364136223846793005 + 1442695040888963407
		total += int64(seed%100) + 1
		date := baseDate.AddDate(0, 0, i)
		points[date.Format(domain.TimelineDateFormat)] = total
	}
	return points
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
