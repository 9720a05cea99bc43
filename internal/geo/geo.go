// Package geo provides the static country → coordinate reference table
// the dashboard uses for map rendering. The table ships embedded in the
// binary; country names follow the upstream API's naming.
package geo

import (
	_ "embed"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
)

//go:embed countries.csv
var countriesCSV string

// Point is a WGS-84 latitude/longitude pair.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Table maps country names to coordinates.
type Table struct {
	points map[string]Point
}

// NewTable parses the embedded reference CSV.
func NewTable() (*Table, error) {
	r := csv.NewReader(strings.NewReader(countriesCSV))
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse countries csv: %w", err)
	}

	points := make(map[string]Point, len(rows))
	for i, row := range rows {
		if i == 0 {
			continue // header
		}
		if len(row) != 3 {
			return nil, fmt.Errorf("countries csv row %d: want 3 fields, got %d", i+1, len(row))
		}
		lat, err := strconv.ParseFloat(row[1], 64)
		if err != nil {
			return nil, fmt.Errorf("countries csv row %d: %w", i+1, err)
		}
		lon, err := strconv.ParseFloat(row[2], 64)
		if err != nil {
			return nil, fmt.Errorf("countries csv row %d: %w", i+1, err)
		}
		points[row[0]] = Point{Lat: lat, Lon: lon}
	}

	return &Table{points: points}, nil
}

// Lookup returns the coordinates for a country, if known.
func (t *Table) Lookup(country string) (Point, bool) {
	p, ok := t.points[country]
	return p, ok
}

// Len returns the number of countries in the table.
func (t *Table) Len() int {
	return len(t.points)
}
