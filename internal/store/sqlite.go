package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/rumoo/internal/db"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	*queries
	db *sql.DB
}

type sqlConn struct {
	db *sql.DB
}

// bindArgs dereferences pointer arguments so optional fields bind as NULL or
// their value.
func bindArgs(args []any) ([]any, error) {
	out := make([]any, len(args))
	for i, a := range args {
		v, err := driver.DefaultParameterConverter.ConvertValue(a)
		if err != nil {
			return nil, eris.Wrapf(err, "sqlite: bind arg %d", i+1)
		}
		out[i] = v
	}
	return out, nil
}

type errRow struct{ err error }

func (r errRow) Scan(...any) error { return r.err }

type sqlRows struct{ *sql.Rows }

func (r sqlRows) Close() { _ = r.Rows.Close() }

func (c sqlConn) exec(ctx context.Context, query string, args ...any) (int64, error) {
	bound, err := bindArgs(args)
	if err != nil {
		return 0, err
	}
	res, err := c.db.ExecContext(ctx, query, bound...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: rows affected")
	}
	return n, nil
}

func (c sqlConn) queryRow(ctx context.Context, query string, args ...any) rowScanner {
	bound, err := bindArgs(args)
	if err != nil {
		return errRow{err: err}
	}
	return c.db.QueryRowContext(ctx, query, bound...)
}

func (c sqlConn) query(ctx context.Context, query string, args ...any) (rowIter, error) {
	bound, err := bindArgs(args)
	if err != nil {
		return nil, err
	}
	rows, err := c.db.QueryContext(ctx, query, bound...)
	if err != nil {
		return nil, err
	}
	return sqlRows{rows}, nil
}

func (sqlConn) isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	// Pragmas below are per connection and SQLite has a single writer.
	sqlDB.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := sqlDB.Exec(pragma); err != nil {
			sqlDB.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{
		queries: &queries{c: sqlConn{db: sqlDB}, ph: db.Question, prefix: "sqlite"},
		db:      sqlDB,
	}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS sources (
	id                  TEXT PRIMARY KEY,
	source_url          TEXT NOT NULL UNIQUE,
	source              TEXT NOT NULL DEFAULT 'manual',
	ingest_mode         TEXT NOT NULL,
	external_id         TEXT NOT NULL DEFAULT '',
	raw_json            TEXT,
	scrape_attempted_at DATETIME,
	scrape_success      BOOLEAN,
	scrape_provider     TEXT NOT NULL DEFAULT '',
	created_at          DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at          DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS properties (
	id                 TEXT PRIMARY KEY,
	source_id          TEXT REFERENCES sources(id),
	title              TEXT NOT NULL DEFAULT '',
	address            TEXT NOT NULL,
	price              REAL,
	beds               INTEGER,
	baths              REAL,
	sqft               INTEGER,
	year_built         INTEGER,
	property_type      TEXT NOT NULL DEFAULT '',
	description        TEXT NOT NULL DEFAULT '',
	image_urls         TEXT NOT NULL DEFAULT '[]',
	lat                REAL,
	lng                REAL,
	city               TEXT NOT NULL DEFAULT '',
	state              TEXT NOT NULL DEFAULT '',
	zip                TEXT NOT NULL DEFAULT '',
	geohash            TEXT NOT NULL DEFAULT '',
	location           BLOB,
	photo_insights     TEXT,
	photo_insights_at  DATETIME,
	status             TEXT NOT NULL,
	needs_confirmation BOOLEAN NOT NULL DEFAULT 0,
	confirmation_token TEXT UNIQUE,
	confirmed_at       DATETIME,
	error_message      TEXT NOT NULL DEFAULT '',
	created_at         DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at         DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_properties_status ON properties(status, updated_at);

CREATE TABLE IF NOT EXISTS ingest_jobs (
	id                     TEXT PRIMARY KEY,
	property_id            TEXT NOT NULL REFERENCES properties(id),
	geocode_done           BOOLEAN NOT NULL DEFAULT 0,
	location_insights_done BOOLEAN NOT NULL DEFAULT 0,
	photo_analysis_done    BOOLEAN NOT NULL DEFAULT 0,
	certificate_done       BOOLEAN NOT NULL DEFAULT 0,
	certificate_id         TEXT,
	error_message          TEXT NOT NULL DEFAULT '',
	created_at             DATETIME NOT NULL DEFAULT (datetime('now')),
	completed_at           DATETIME
);

CREATE TABLE IF NOT EXISTS location_insights (
	id                   TEXT PRIMARY KEY,
	property_id          TEXT NOT NULL UNIQUE REFERENCES properties(id),
	walkability          TEXT NOT NULL,
	daily_convenience    TEXT NOT NULL,
	traffic_exposure     TEXT NOT NULL,
	neighbourhood_energy TEXT NOT NULL,
	proximity_score      INTEGER NOT NULL,
	amenities            TEXT NOT NULL,
	solar                TEXT NOT NULL,
	noise                TEXT NOT NULL,
	lifestyle            TEXT NOT NULL,
	geohash              TEXT NOT NULL DEFAULT '',
	updated_at           DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS spaces (
	id            TEXT PRIMARY KEY,
	name          TEXT NOT NULL,
	address_label TEXT NOT NULL DEFAULT '',
	city          TEXT NOT NULL,
	country       TEXT NOT NULL DEFAULT '',
	neighborhood  TEXT,
	property_type TEXT NOT NULL,
	floor         TEXT NOT NULL,
	area_m2       REAL NOT NULL,
	listing_price REAL,
	created_at    DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS certificates (
	id            TEXT PRIMARY KEY,
	property_id   TEXT REFERENCES properties(id),
	space_id      TEXT REFERENCES spaces(id),
	tier          TEXT NOT NULL,
	status        TEXT NOT NULL DEFAULT 'pending',
	version       TEXT NOT NULL,
	document      TEXT,
	source_inputs TEXT,
	error_message TEXT NOT NULL DEFAULT '',
	created_at    DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at    DATETIME NOT NULL DEFAULT (datetime('now')),
	completed_at  DATETIME
);

CREATE INDEX IF NOT EXISTS idx_certificates_space_id ON certificates(space_id, tier);

CREATE TABLE IF NOT EXISTS mobile_sessions (
	id           TEXT PRIMARY KEY,
	phone_number TEXT NOT NULL,
	property_id  TEXT REFERENCES properties(id),
	channel      TEXT NOT NULL,
	state        TEXT NOT NULL,
	created_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);
`

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
