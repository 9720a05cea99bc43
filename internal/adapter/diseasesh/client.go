package diseasesh

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/couchcryptid/covid-stats-etl/internal/domain"
	"github.com/couchcryptid/covid-stats-etl/internal/observability"
)

// Client fetches historical case and vaccination timelines from a
// disease.sh-compatible API.
//
// Both fetch methods are fail-soft: any transport, status, or decode
// failure is logged and counted, and an empty slice is returned.
// Callers treat zero records as the uniform degraded-service signal;
// there is no distinct "fetch failed" result. Unparseable timeline date
// keys are skipped per point, yielding a partial result rather than an
// aborted fetch.
type Client struct {
	baseURL    string
	httpClient *http.Client
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates an API client. baseURL is the API root without a
// trailing slash, e.g. "https://disease.sh/v3/covid-19".
func NewClient(baseURL string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		metrics: metrics,
		logger:  logger,
	}
}

// FetchCases retrieves the full case history for a country and filters
// it to [start, end] inclusive on the parsed date. The upstream
// response carries three parallel date→count maps keyed by M/D/YY
// strings; deaths and recovered are looked up under the cases map's
// keys and default to 0 when absent.
func (c *Client) FetchCases(ctx context.Context, country string, start, end time.Time) []domain.RawCaseRecord {
	u := fmt.Sprintf("%s/historical/%s?lastdays=all", c.baseURL, url.PathEscape(country))

	var resp historicalResponse
	if !c.doRequest(ctx, u, "cases", &resp) {
		return nil
	}
	if resp.Timeline == nil {
		c.logger.Warn("no timeline in response", "country", country)
		return nil
	}

	records := make([]domain.RawCaseRecord, 0, len(resp.Timeline.Cases))
	for dateStr, cases := range resp.Timeline.Cases {
		date, err := domain.ParseTimelineDate(dateStr)
		if err != nil {
			c.logger.Warn("skipping invalid timeline date", "country", country, "date", dateStr)
			continue
		}
		if !domain.InRange(date, start, end) {
			continue
		}
		records = append(records, domain.RawCaseRecord{
			Country:   country,
			Date:      domain.FormatDate(date),
			Cases:     cases,
			Deaths:    resp.Timeline.Deaths[dateStr],
			Recovered: resp.Timeline.Recovered[dateStr],
		})
	}
	sortByDate(records, func(r domain.RawCaseRecord) string { return r.Date })

	c.metrics.RecordsFetched.WithLabelValues("cases").Add(float64(len(records)))
	c.logger.Info("fetched case records",
		"country", country,
		"records", len(records),
		"start", domain.FormatDate(start),
		"end", domain.FormatDate(end),
	)
	return records
}

// FetchVaccinations retrieves the cumulative vaccination history for a
// country. The vaccine endpoint returns a single flat date→count map
// instead of the three parallel case maps; the same date-filter and
// parse-skip rules apply.
func (c *Client) FetchVaccinations(ctx context.Context, country string, start, end time.Time) []domain.VaccinationInput {
	u := fmt.Sprintf("%s/vaccine/coverage/countries/%s?lastdays=all", c.baseURL, url.PathEscape(country))

	var resp vaccineResponse
	if !c.doRequest(ctx, u, "vaccinations", &resp) {
		return nil
	}
	if len(resp.Timeline) == 0 {
		c.logger.Warn("no timeline in response", "country", country)
		return nil
	}

	inputs := make([]domain.VaccinationInput, 0, len(resp.Timeline))
	for dateStr, doses := range resp.Timeline {
		date, err := domain.ParseTimelineDate(dateStr)
		if err != nil {
			c.logger.Warn("skipping invalid timeline date", "country", country, "date", dateStr)
			continue
		}
		if !domain.InRange(date, start, end) {
			continue
		}
		inputs = append(inputs, domain.VaccinationInput{
			Country:      country,
			Date:         domain.FormatDate(date),
			Vaccinations: doses,
		})
	}
	sortByDate(inputs, func(v domain.VaccinationInput) string { return v.Date })

	c.metrics.RecordsFetched.WithLabelValues("vaccinations").Add(float64(len(inputs)))
	c.logger.Info("fetched vaccination records",
		"country", country,
		"records", len(inputs),
		"start", domain.FormatDate(start),
		"end", domain.FormatDate(end),
	)
	return inputs
}

// doRequest executes a GET and decodes the JSON body into out. Returns
// false after logging and counting the failure.
func (c *Client) doRequest(ctx context.Context, fullURL, source string, out any) bool {
	started := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		c.fetchError(source, "create request", err)
		return false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.fetchError(source, "request", err)
		return false
	}
	defer resp.Body.Close()
	c.metrics.FetchDuration.WithLabelValues(source).Observe(time.Since(started).Seconds())

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.fetchError(source, "status", fmt.Errorf("status %d: %s", resp.StatusCode, body))
		return false
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		c.fetchError(source, "decode response", err)
		return false
	}
	return true
}

func (c *Client) fetchError(source, stage string, err error) {
	c.metrics.FetchErrors.WithLabelValues(source).Inc()
	c.logger.Error("fetch failed", "source", source, "stage", stage, "error", err)
}

// sortByDate orders records ascending by their canonical date string.
// Timeline maps iterate in random order; sorting keeps fetch output
// deterministic.
func sortByDate[T any](items []T, key func(T) string) {
	sort.Slice(items, func(i, j int) bool {
		return key(items[i]) < key(items[j])
	})
}

// Upstream API response types.

type historicalResponse struct {
	Country  string    `json:"country"`
	Timeline *timeline `json:"timeline"`
}

type timeline struct {
	Cases     map[string]any `json:"cases"`
	Deaths    map[string]any `json:"deaths"`
	Recovered map[string]any `json:"recovered"`
}

type vaccineResponse struct {
	Country  string         `json:"country"`
	Timeline map[string]any `json:"timeline"`
}
