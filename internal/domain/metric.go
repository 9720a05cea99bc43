package domain

import "fmt"

// Metric is the closed set of aggregatable columns. Validating against
// this set before building SQL keeps metric names out of reach of query
// injection: only enum values are ever interpolated as identifiers.
type Metric string

const (
	MetricCases        Metric = "cases"
	MetricDeaths       Metric = "deaths"
	MetricRecovered    Metric = "recovered"
	MetricVaccinations Metric = "vaccinations"
)

// CaseTable and VaccinationTable are the two persistent tables the
// store owns.
const (
	CaseTable        = "covid_stats"
	VaccinationTable = "vaccination_data"
)

// ParseMetric validates a user-supplied metric name.
func ParseMetric(s string) (Metric, error) {
	m := Metric(s)
	switch m {
	case MetricCases, MetricDeaths, MetricRecovered, MetricVaccinations:
		return m, nil
	default:
		return "", fmt.Errorf("unknown metric %q (want cases, deaths, recovered, or vaccinations)", s)
	}
}

// Column returns the SQL column name for the metric.
func (m Metric) Column() string {
	return string(m)
}

// Table returns the table the metric lives in.
func (m Metric) Table() string {
	if m == MetricVaccinations {
		return VaccinationTable
	}
	return CaseTable
}

func (m Metric) String() string {
	return string(m)
}
