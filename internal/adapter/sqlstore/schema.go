package sqlstore

// Schema bootstrap DDL. Safe to run repeatedly: every statement uses
// IF NOT EXISTS. Dates are stored in canonical YYYY-MM-DD text form,
// which compares and sorts correctly on both sqlite and postgres.
const schema = `
CREATE TABLE IF NOT EXISTS covid_stats (
    country   TEXT   NOT NULL,
    date      TEXT   NOT NULL,
    cases     BIGINT NOT NULL DEFAULT 0,
    deaths    BIGINT NOT NULL DEFAULT 0,
    recovered BIGINT NOT NULL DEFAULT 0,
    PRIMARY KEY (country, date)
);

CREATE TABLE IF NOT EXISTS vaccination_data (
    country      TEXT   NOT NULL,
    date         TEXT   NOT NULL,
    vaccinations BIGINT NOT NULL DEFAULT 0,
    PRIMARY KEY (country, date)
);

CREATE INDEX IF NOT EXISTS idx_covid_stats_date ON covid_stats(date);
CREATE INDEX IF NOT EXISTS idx_vaccination_data_date ON vaccination_data(date);
`
