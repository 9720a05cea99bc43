package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMetric(t *testing.T) {
	tests := []struct {
		in      string
		want    Metric
		wantErr bool
	}{
		{"cases", MetricCases, false},
		{"deaths", MetricDeaths, false},
		{"recovered", MetricRecovered, false},
		{"vaccinations", MetricVaccinations, false},
		{"Cases", "", true},
		{"", "", true},
		{"cases; DROP TABLE covid_stats", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMetric(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMetricTable(t *testing.T) {
	assert.Equal(t, CaseTable, MetricCases.Table())
	assert.Equal(t, CaseTable, MetricDeaths.Table())
	assert.Equal(t, CaseTable, MetricRecovered.Table())
	assert.Equal(t, VaccinationTable, MetricVaccinations.Table())
}
