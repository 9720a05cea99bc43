package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeCases(t *testing.T) {
	t.Run("well-formed record", func(t *testing.T) {
		raws := []RawCaseRecord{
			{Country: "USA", Date: "2021-01-01", Cases: float64(100), Deaths: float64(2), Recovered: float64(50)},
		}
		got := NormalizeCases(raws)

		require.Len(t, got, 1)
		assert.Equal(t, "USA", got[0].Country)
		assert.Equal(t, time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC), got[0].Date)
		assert.Equal(t, int64(100), got[0].Cases)
		assert.Equal(t, int64(2), got[0].Deaths)
		assert.Equal(t, int64(50), got[0].Recovered)
	})

	t.Run("missing deaths yields zero", func(t *testing.T) {
		raws := []RawCaseRecord{
			{Country: "USA", Date: "2021-01-01", Cases: float64(100), Recovered: float64(50)},
		}
		got := NormalizeCases(raws)

		require.Len(t, got, 1)
		assert.Equal(t, int64(0), got[0].Deaths)
		assert.Equal(t, int64(100), got[0].Cases)
	})

	t.Run("non-numeric cases yields zero, keeps record", func(t *testing.T) {
		raws := []RawCaseRecord{
			{Country: "USA", Date: "2021-01-01", Cases: "abc", Deaths: float64(2), Recovered: float64(50)},
		}
		got := NormalizeCases(raws)

		require.Len(t, got, 1)
		assert.Equal(t, int64(0), got[0].Cases)
		assert.Equal(t, int64(2), got[0].Deaths)
	})

	t.Run("missing country becomes Unknown", func(t *testing.T) {
		raws := []RawCaseRecord{
			{Date: "2021-01-01", Cases: float64(1)},
		}
		got := NormalizeCases(raws)

		require.Len(t, got, 1)
		assert.Equal(t, "Unknown", got[0].Country)
	})

	t.Run("unparseable date drops only that record", func(t *testing.T) {
		raws := []RawCaseRecord{
			{Country: "USA", Date: "not-a-date", Cases: float64(1)},
			{Country: "USA", Date: "2021-01-02", Cases: float64(2)},
		}
		got := NormalizeCases(raws)

		require.Len(t, got, 1)
		assert.Equal(t, int64(2), got[0].Cases)
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, NormalizeCases(nil))
	})
}

func TestNormalizeVaccinations(t *testing.T) {
	inputs := []VaccinationInput{
		{Country: "Norway", Date: "2021-03-04", Vaccinations: float64(128000)},
		{Country: "Norway", Date: "2021-03-05", Vaccinations: "131500"},
		{Country: "Norway", Date: "2021-03-06", Vaccinations: nil},
		{Country: "Norway", Date: "bogus", Vaccinations: float64(1)},
	}
	got := NormalizeVaccinations(inputs)

	require.Len(t, got, 3)
	assert.Equal(t, int64(128000), got[0].Vaccinations)
	assert.Equal(t, int64(131500), got[1].Vaccinations)
	assert.Equal(t, int64(0), got[2].Vaccinations)
	assert.Equal(t, time.Date(2021, 3, 4, 0, 0, 0, 0, time.UTC), got[0].Date)
}

func TestVaccinationInput_UnmarshalJSON(t *testing.T) {
	t.Run("object encoding", func(t *testing.T) {
		var in VaccinationInput
		err := json.Unmarshal([]byte(`{"country":"Norway","date":"2021-03-04","vaccinations":128000}`), &in)

		require.NoError(t, err)
		assert.Equal(t, "Norway", in.Country)
		assert.Equal(t, "2021-03-04", in.Date)
		assert.Equal(t, float64(128000), in.Vaccinations)
	})

	t.Run("tuple encoding", func(t *testing.T) {
		var in VaccinationInput
		err := json.Unmarshal([]byte(`["Norway","2021-03-04",128000]`), &in)

		require.NoError(t, err)
		assert.Equal(t, "Norway", in.Country)
		assert.Equal(t, "2021-03-04", in.Date)
		assert.Equal(t, float64(128000), in.Vaccinations)
	})

	t.Run("both shapes normalize identically", func(t *testing.T) {
		var fromObj, fromTuple VaccinationInput
		require.NoError(t, json.Unmarshal([]byte(`{"country":"Norway","date":"2021-03-04","vaccinations":128000}`), &fromObj))
		require.NoError(t, json.Unmarshal([]byte(`["Norway","2021-03-04",128000]`), &fromTuple))

		assert.Equal(t, NormalizeVaccinations([]VaccinationInput{fromObj}), NormalizeVaccinations([]VaccinationInput{fromTuple}))
	})

	t.Run("short tuple", func(t *testing.T) {
		var in VaccinationInput
		err := json.Unmarshal([]byte(`["Norway"]`), &in)

		require.NoError(t, err)
		assert.Equal(t, "Norway", in.Country)
		assert.Empty(t, in.Date)
		assert.Nil(t, in.Vaccinations)
	})

	t.Run("invalid JSON", func(t *testing.T) {
		var in VaccinationInput
		assert.Error(t, json.Unmarshal([]byte(`{broken`), &in))
	})
}

func TestCoerceCount(t *testing.T) {
	tests := []struct {
		name     string
		in       any
		expected int64
	}{
		{"float64", float64(42), 42},
		{"int", 7, 7},
		{"int64", int64(9), 9},
		{"numeric string", "1234", 1234},
		{"float string", "12.9", 12},
		{"json.Number", json.Number("55"), 55},
		{"json.Number float", json.Number("55.7"), 55},
		{"nil", nil, 0},
		{"garbage string", "abc", 0},
		{"empty string", "", 0},
		{"bool", true, 0},
		{"map", map[string]any{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, coerceCount(tt.in))
		})
	}
}

func TestParseTimelineDate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		got, err := ParseTimelineDate("3/4/21")
		require.NoError(t, err)
		assert.Equal(t, time.Date(2021, 3, 4, 0, 0, 0, 0, time.UTC), got)
	})

	t.Run("two-digit day", func(t *testing.T) {
		got, err := ParseTimelineDate("12/31/20")
		require.NoError(t, err)
		assert.Equal(t, time.Date(2020, 12, 31, 0, 0, 0, 0, time.UTC), got)
	})

	t.Run("invalid", func(t *testing.T) {
		_, err := ParseTimelineDate("2021-03-04")
		assert.Error(t, err)
	})
}

func TestInRange(t *testing.T) {
	start := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2021, 1, 31, 0, 0, 0, 0, time.UTC)

	assert.True(t, InRange(start, start, end), "start boundary is inclusive")
	assert.True(t, InRange(end, start, end), "end boundary is inclusive")
	assert.True(t, InRange(start.AddDate(0, 0, 15), start, end))
	assert.False(t, InRange(start.AddDate(0, 0, -1), start, end))
	assert.False(t, InRange(end.AddDate(0, 0, 1), start, end))
}
