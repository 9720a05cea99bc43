// Package domain models COVID-19 case and vaccination time-series data.
//
// # Data Source
//
// Records originate from the disease.sh open API. The historical
// endpoint returns a "timeline" object holding three parallel
// date→count maps (cases, deaths, recovered); the vaccine coverage
// endpoint returns a single flat date→count map of cumulative doses.
// Timeline keys use the upstream's M/D/YY convention ("3/4/21"), which
// differs from the canonical YYYY-MM-DD form used everywhere else in
// this service.
//
// # Normalization Conventions
//
// Upstream data is inconsistently typed: counts occasionally arrive as
// strings or nulls. Normalization coerces each numeric field
// independently and substitutes 0 on type error, so a single bad field
// never discards the surrounding record. A missing country name on the
// case path becomes the literal "Unknown".
//
// Vaccination inputs carry two historical wire encodings — a
// three-element array and an object with named fields. Both are
// decoded by [VaccinationInput] and normalize identically.
//
// # Uniqueness
//
// Normalized records are keyed by (country, date). The store inserts
// with conflict-ignore semantics: the first write for a pair wins and
// later duplicates are silently skipped, which makes re-fetching an
// overlapping date range safe.
package domain
