package domain

import (
	"encoding/json"
	"strconv"
	"strings"
)

// NormalizeCases converts API-shaped case records into typed records
// ready for storage. Each numeric field is coerced independently and
// zeroed on type error, so one malformed field never drops the whole
// record. A record with an unparseable date is dropped: there is no
// row key to store it under. Country falls back to "Unknown" when the
// source omits it.
func NormalizeCases(raws []RawCaseRecord) []CaseRecord {
	out := make([]CaseRecord, 0, len(raws))
	for _, raw := range raws {
		date, err := ParseDate(raw.Date)
		if err != nil {
			continue
		}
		out = append(out, CaseRecord{
			Country:   coerceCountry(raw.Country),
			Date:      date,
			Cases:     coerceCount(raw.Cases),
			Deaths:    coerceCount(raw.Deaths),
			Recovered: coerceCount(raw.Recovered),
		})
	}
	return out
}

// NormalizeVaccinations converts vaccination inputs, in either variant
// shape, into typed records with the same per-field coercion as the
// case path. Country is always present on the vaccination path since
// inputs originate from the fetcher's own construction.
func NormalizeVaccinations(inputs []VaccinationInput) []VaccinationRecord {
	out := make([]VaccinationRecord, 0, len(inputs))
	for _, in := range inputs {
		date, err := ParseDate(in.Date)
		if err != nil {
			continue
		}
		out = append(out, VaccinationRecord{
			Country:      in.Country,
			Date:         date,
			Vaccinations: coerceCount(in.Vaccinations),
		})
	}
	return out
}

// VaccinationInput is the transformer-facing vaccination shape. Two
// wire encodings are accepted: a three-element array
// ["Norway","2021-03-04",128000] and an object with named fields. Both
// normalize identically, so stored fixtures from either era replay
// cleanly.
type VaccinationInput struct {
	Country      string `json:"country"`
	Date         string `json:"date"`
	Vaccinations any    `json:"vaccinations"`
}

// UnmarshalJSON accepts both the tuple and the object encoding.
func (v *VaccinationInput) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var tuple []any
		if err := json.Unmarshal(data, &tuple); err != nil {
			return err
		}
		if len(tuple) > 0 {
			v.Country, _ = tuple[0].(string)
		}
		if len(tuple) > 1 {
			v.Date, _ = tuple[1].(string)
		}
		if len(tuple) > 2 {
			v.Vaccinations = tuple[2]
		}
		return nil
	}

	type plain VaccinationInput
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*v = VaccinationInput(p)
	return nil
}

// coerceCount converts an untyped JSON value to a count, returning 0
// for anything that is not a number or a numeric string. Fractional
// values are truncated toward zero, matching integer column storage.
func coerceCount(v any) int64 {
	switch n := v.(type) {
	case nil:
		return 0
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i
		}
		if f, err := n.Float64(); err == nil {
			return int64(f)
		}
		return 0
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0
		}
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return int64(f)
		}
		return 0
	default:
		return 0
	}
}

// coerceCountry returns the country name, or "Unknown" when the field
// is absent or not a string.
func coerceCountry(v any) string {
	s, ok := v.(string)
	if !ok || s == "" {
		return "Unknown"
	}
	return s
}
