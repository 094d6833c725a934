package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/rumoo/internal/db"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	*queries
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

type pgConn struct {
	pool db.Pool
}

func (c pgConn) exec(ctx context.Context, query string, args ...any) (int64, error) {
	tag, err := c.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (c pgConn) queryRow(ctx context.Context, query string, args ...any) rowScanner {
	return c.pool.QueryRow(ctx, query, args...)
}

func (c pgConn) query(ctx context.Context, query string, args ...any) (rowIter, error) {
	return c.pool.Query(ctx, query, args...)
}

func (pgConn) isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return newPostgresStore(pool, pool.Close), nil
}

func newPostgresStore(pool db.Pool, closeFn func()) *PostgresStore {
	return &PostgresStore{
		queries: &queries{c: pgConn{pool: pool}, ph: db.Dollar, prefix: "postgres"},
		pool:    pool,
		closeFn: closeFn,
	}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS sources (
	id                  TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	source_url          TEXT NOT NULL UNIQUE,
	source              TEXT NOT NULL DEFAULT 'manual',
	ingest_mode         TEXT NOT NULL,
	external_id         TEXT NOT NULL DEFAULT '',
	raw_json            JSONB,
	scrape_attempted_at TIMESTAMPTZ,
	scrape_success      BOOLEAN,
	scrape_provider     TEXT NOT NULL DEFAULT '',
	created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at          TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS properties (
	id                 TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	source_id          TEXT REFERENCES sources(id),
	title              TEXT NOT NULL DEFAULT '',
	address            TEXT NOT NULL,
	price              DOUBLE PRECISION,
	beds               INTEGER,
	baths              DOUBLE PRECISION,
	sqft               INTEGER,
	year_built         INTEGER,
	property_type      TEXT NOT NULL DEFAULT '',
	description        TEXT NOT NULL DEFAULT '',
	image_urls         JSONB NOT NULL DEFAULT '[]',
	lat                DOUBLE PRECISION,
	lng                DOUBLE PRECISION,
	city               TEXT NOT NULL DEFAULT '',
	state              TEXT NOT NULL DEFAULT '',
	zip                TEXT NOT NULL DEFAULT '',
	geohash            TEXT NOT NULL DEFAULT '',
	location           BYTEA,
	photo_insights     JSONB,
	photo_insights_at  TIMESTAMPTZ,
	status             TEXT NOT NULL,
	needs_confirmation BOOLEAN NOT NULL DEFAULT false,
	confirmation_token TEXT UNIQUE,
	confirmed_at       TIMESTAMPTZ,
	error_message      TEXT NOT NULL DEFAULT '',
	created_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at         TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_properties_status ON properties(status, updated_at);
CREATE INDEX IF NOT EXISTS idx_properties_geohash ON properties(geohash);

CREATE TABLE IF NOT EXISTS ingest_jobs (
	id                     TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	property_id            TEXT NOT NULL REFERENCES properties(id),
	geocode_done           BOOLEAN NOT NULL DEFAULT false,
	location_insights_done BOOLEAN NOT NULL DEFAULT false,
	photo_analysis_done    BOOLEAN NOT NULL DEFAULT false,
	certificate_done       BOOLEAN NOT NULL DEFAULT false,
	certificate_id         TEXT,
	error_message          TEXT NOT NULL DEFAULT '',
	created_at             TIMESTAMPTZ NOT NULL DEFAULT now(),
	completed_at           TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_ingest_jobs_property_id ON ingest_jobs(property_id);

CREATE TABLE IF NOT EXISTS location_insights (
	id                   TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	property_id          TEXT NOT NULL UNIQUE REFERENCES properties(id),
	walkability          TEXT NOT NULL,
	daily_convenience    TEXT NOT NULL,
	traffic_exposure     TEXT NOT NULL,
	neighbourhood_energy TEXT NOT NULL,
	proximity_score      INTEGER NOT NULL,
	amenities            JSONB NOT NULL,
	solar                JSONB NOT NULL,
	noise                JSONB NOT NULL,
	lifestyle            JSONB NOT NULL,
	geohash              TEXT NOT NULL DEFAULT '',
	updated_at           TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS spaces (
	id            TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	name          TEXT NOT NULL,
	address_label TEXT NOT NULL DEFAULT '',
	city          TEXT NOT NULL,
	country       TEXT NOT NULL DEFAULT '',
	neighborhood  TEXT,
	property_type TEXT NOT NULL,
	floor         TEXT NOT NULL,
	area_m2       DOUBLE PRECISION NOT NULL,
	listing_price DOUBLE PRECISION,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_spaces_city ON spaces(city, property_type);

CREATE TABLE IF NOT EXISTS certificates (
	id            TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	property_id   TEXT REFERENCES properties(id),
	space_id      TEXT REFERENCES spaces(id),
	tier          TEXT NOT NULL,
	status        TEXT NOT NULL DEFAULT 'pending',
	version       TEXT NOT NULL,
	document      JSONB,
	source_inputs JSONB,
	error_message TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	completed_at  TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_certificates_property_id ON certificates(property_id);
CREATE INDEX IF NOT EXISTS idx_certificates_space_id ON certificates(space_id, tier);

CREATE TABLE IF NOT EXISTS mobile_sessions (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	phone_number TEXT NOT NULL,
	property_id  TEXT REFERENCES properties(id),
	channel      TEXT NOT NULL,
	state        TEXT NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_mobile_sessions_phone ON mobile_sessions(phone_number);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}
