package domain

import (
	"fmt"
	"time"
)

// DateFormat is the canonical day-granular date form used in storage
// and on the CLI (ISO 8601 calendar date).
const DateFormat = "2006-01-02"

// TimelineDateFormat is the date-key format used by the upstream API's
// timeline maps, e.g. "3/4/21" for March 4th 2021.
const TimelineDateFormat = "1/2/06"

// CaseRecord is one normalized day of case statistics for a country.
// Rows are unique on (country, date); re-inserting an existing pair is
// a no-op at the store layer.
type CaseRecord struct {
	Country   string
	Date      time.Time
	Cases     int64
	Deaths    int64
	Recovered int64
}

// VaccinationRecord is one normalized day of the cumulative vaccination
// counter for a country. Same (country, date) uniqueness as CaseRecord,
// in its own table.
type VaccinationRecord struct {
	Country      string
	Date         time.Time
	Vaccinations int64
}

// RawCaseRecord is the API-shaped case record handed from the fetcher
// to the transformer. Numeric fields are deliberately untyped: the
// upstream source occasionally emits strings or nulls where counts are
// expected, and normalization zeroes those per field rather than
// dropping the record.
type RawCaseRecord struct {
	Country   any    `json:"country"`
	Date      string `json:"date"`
	Cases     any    `json:"cases"`
	Deaths    any    `json:"deaths"`
	Recovered any    `json:"recovered"`
}

// ParseDate parses a canonical YYYY-MM-DD date string into a UTC
// midnight time.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateFormat, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}

// ParseTimelineDate parses an upstream M/D/YY timeline key into a UTC
// midnight time.
func ParseTimelineDate(s string) (time.Time, error) {
	t, err := time.Parse(TimelineDateFormat, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timeline date %q: %w", s, err)
	}
	return t, nil
}

// FormatDate renders a time in the canonical YYYY-MM-DD form.
func FormatDate(t time.Time) string {
	return t.Format(DateFormat)
}

// InRange reports whether d lies within [start, end] inclusive.
func InRange(d, start, end time.Time) bool {
	return !d.Before(start) && !d.After(end)
}
