// Package sqlstore owns the persistent relational schema and is the
// single reader/writer of the covid_stats and vaccination_data tables.
//
// Write and read paths are fail-soft: insert methods return the count
// of rows actually written (0 after a rolled-back batch) and Query
// returns an empty result on execution failure, with the error logged
// and counted. Administrative operations (CreateTables, drops) return
// errors, since they run interactively from the CLI.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/couchcryptid/covid-stats-etl/internal/config"
	"github.com/couchcryptid/covid-stats-etl/internal/domain"
	"github.com/couchcryptid/covid-stats-etl/internal/observability"

	_ "github.com/lib/pq"  // postgres driver
	_ "modernc.org/sqlite" // pure-Go sqlite driver
)

// Row is one generic result row, keyed by column name.
type Row = map[string]any

// Store is a database/sql store over sqlite or postgres.
type Store struct {
	db      *sql.DB
	driver  string
	metrics *observability.Metrics
	logger  *slog.Logger
}

// Open connects to the database named by the config. The sqlite driver
// accepts a file path or ":memory:"; postgres takes a DSN.
func Open(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.DatabaseDriver, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s database: %w", cfg.DatabaseDriver, err)
	}

	logger.Info("database connected", "driver", cfg.DatabaseDriver)
	return &Store{db: db, driver: cfg.DatabaseDriver, metrics: metrics, logger: logger}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateTables applies the fixed schema DDL. Idempotent per statement.
func (s *Store) CreateTables(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		s.metrics.StoreErrors.WithLabelValues("admin").Inc()
		return fmt.Errorf("create tables: %w", err)
	}
	s.logger.Info("tables created")
	return nil
}

// InsertCases bulk-inserts case records in a single transaction with
// conflict-ignore semantics: an existing (country, date) row is left
// untouched and does not count toward the result. Any other failure
// rolls back the entire batch, is logged, and yields 0.
func (s *Store) InsertCases(ctx context.Context, records []domain.CaseRecord) int64 {
	q := s.rebind(`INSERT INTO covid_stats (country, date, cases, deaths, recovered)
		VALUES (?, ?, ?, ?, ?) ON CONFLICT (country, date) DO NOTHING`)

	return s.insertBatch(ctx, domain.CaseTable, len(records), func(tx *sql.Tx) (int64, error) {
		stmt, err := tx.PrepareContext(ctx, q)
		if err != nil {
			return 0, err
		}
		defer stmt.Close()

		var inserted int64
		for _, r := range records {
			res, err := stmt.ExecContext(ctx, r.Country, domain.FormatDate(r.Date), r.Cases, r.Deaths, r.Recovered)
			if err != nil {
				return 0, err
			}
			n, err := res.RowsAffected()
			if err != nil {
				return 0, err
			}
			inserted += n
		}
		return inserted, nil
	})
}

// InsertVaccinations is InsertCases for the vaccination table.
func (s *Store) InsertVaccinations(ctx context.Context, records []domain.VaccinationRecord) int64 {
	q := s.rebind(`INSERT INTO vaccination_data (country, date, vaccinations)
		VALUES (?, ?, ?) ON CONFLICT (country, date) DO NOTHING`)

	return s.insertBatch(ctx, domain.VaccinationTable, len(records), func(tx *sql.Tx) (int64, error) {
		stmt, err := tx.PrepareContext(ctx, q)
		if err != nil {
			return 0, err
		}
		defer stmt.Close()

		var inserted int64
		for _, r := range records {
			res, err := stmt.ExecContext(ctx, r.Country, domain.FormatDate(r.Date), r.Vaccinations)
			if err != nil {
				return 0, err
			}
			n, err := res.RowsAffected()
			if err != nil {
				return 0, err
			}
			inserted += n
		}
		return inserted, nil
	})
}

// insertBatch runs fn inside a transaction. All-or-nothing: a failure
// anywhere rolls back every row of the batch.
func (s *Store) insertBatch(ctx context.Context, table string, batch int, fn func(*sql.Tx) (int64, error)) int64 {
	if batch == 0 {
		return 0
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.insertError(table, err)
		return 0
	}

	inserted, err := fn(tx)
	if err != nil {
		_ = tx.Rollback()
		s.insertError(table, err)
		return 0
	}
	if err := tx.Commit(); err != nil {
		s.insertError(table, err)
		return 0
	}

	skipped := int64(batch) - inserted
	s.metrics.RecordsInserted.WithLabelValues(table).Add(float64(inserted))
	s.metrics.DuplicatesSkipped.WithLabelValues(table).Add(float64(skipped))
	s.logger.Info("batch inserted", "table", table, "inserted", inserted, "duplicates_skipped", skipped)
	return inserted
}

func (s *Store) insertError(table string, err error) {
	s.metrics.StoreErrors.WithLabelValues("insert").Inc()
	s.logger.Error("insert batch failed, rolled back", "table", table, "error", err)
}

// Query executes a read query and returns generic rows. Placeholders
// use ? regardless of driver. Execution failure is logged and counted
// and surfaces as an empty result, mirroring the fetcher's fail-soft
// contract.
func (s *Store) Query(ctx context.Context, query string, args ...any) []Row {
	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		s.queryError(query, err)
		return nil
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		s.queryError(query, err)
		return nil
	}

	var out []Row
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			s.queryError(query, err)
			return nil
		}

		row := make(Row, len(cols))
		for i, col := range cols {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
				continue
			}
			row[col] = values[i]
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		s.queryError(query, err)
		return nil
	}
	return out
}

func (s *Store) queryError(query string, err error) {
	s.metrics.StoreErrors.WithLabelValues("query").Inc()
	s.logger.Error("query failed", "query", strings.Join(strings.Fields(query), " "), "error", err)
}

// ListTables returns the user table names in the database, sorted.
func (s *Store) ListTables(ctx context.Context) []string {
	var q string
	if s.driver == "postgres" {
		q = `SELECT tablename FROM pg_tables WHERE schemaname = 'public' ORDER BY tablename`
	} else {
		q = `SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`
	}

	rows := s.Query(ctx, q)
	names := make([]string, 0, len(rows))
	for _, row := range rows {
		for _, v := range row {
			if name, ok := v.(string); ok {
				names = append(names, name)
			}
		}
	}
	return names
}

// DropTable removes a table unconditionally (IF EXISTS semantics).
func (s *Store) DropTable(ctx context.Context, name string) error {
	if _, err := s.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+quoteIdent(name)); err != nil {
		s.metrics.StoreErrors.WithLabelValues("admin").Inc()
		return fmt.Errorf("drop table %s: %w", name, err)
	}
	s.logger.Info("table dropped", "table", name)
	return nil
}

// DropAllTables removes every user table in the database.
func (s *Store) DropAllTables(ctx context.Context) error {
	for _, name := range s.ListTables(ctx) {
		if err := s.DropTable(ctx, name); err != nil {
			return err
		}
	}
	return nil
}

// rebind converts ?-style placeholders to the $N form when running on
// postgres. Written SQL always uses ?, the common subset style.
func (s *Store) rebind(query string) string {
	if s.driver != "postgres" {
		return query
	}

	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// quoteIdent wraps an identifier in double quotes, escaping embedded
// quotes, so arbitrary table names from the CLI cannot splice SQL.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
