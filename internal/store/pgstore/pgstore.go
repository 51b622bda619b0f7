// Package pgstore is the Postgres Store, selected with database.driver
// postgres or DATABASE_URL.
package pgstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nelson-zack/job-radar/internal/domain"
	"github.com/nelson-zack/job-radar/internal/store"
)

type Store struct {
	db  *pgxpool.Pool
	now func() time.Time
}

var _ store.Store = (*Store)(nil)

// Open connects, pings and migrates.
func Open(ctx context.Context, connString string) (*Store, error) {
	// Render/Heroku style URLs
	if strings.HasPrefix(connString, "postgresql+psycopg://") {
		connString = "postgresql://" + strings.TrimPrefix(connString, "postgresql+psycopg://")
	}
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("pgstore parse url: %w", err)
	}
	config.MaxConns = 10
	config.MinConns = 1
	config.MaxConnLifetime = time.Hour
	// poolers in transaction mode cannot keep prepared statements
	config.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeExec

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("pgstore connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pgstore ping: %w", err)
	}
	s := &Store{db: pool, now: func() time.Time { return time.Now().UTC() }}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		s.db.Close()
	}
	return nil
}

var schema = []string{
	`
CREATE TABLE IF NOT EXISTS companies (
  id BIGSERIAL PRIMARY KEY,
  name TEXT NOT NULL,
  slug TEXT NOT NULL UNIQUE,
  website TEXT
);

CREATE TABLE IF NOT EXISTS jobs (
  id BIGSERIAL PRIMARY KEY,
  provider TEXT NOT NULL,
  external_id TEXT NOT NULL,
  url TEXT NOT NULL,
  company_id BIGINT NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
  title TEXT NOT NULL,
  location TEXT,
  is_remote BOOLEAN NOT NULL DEFAULT FALSE,
  level TEXT NOT NULL DEFAULT 'unknown',
  posted_at TIMESTAMPTZ,
  description TEXT,
  active BOOLEAN NOT NULL DEFAULT TRUE,
  created_at TIMESTAMPTZ NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL,
  CONSTRAINT uq_job_provider_external UNIQUE (provider, external_id)
);

CREATE INDEX IF NOT EXISTS ix_jobs_posted_at ON jobs(posted_at);
CREATE INDEX IF NOT EXISTS ix_jobs_company_posted_at ON jobs(company_id, posted_at);
CREATE INDEX IF NOT EXISTS ix_jobs_provider ON jobs(provider);
CREATE INDEX IF NOT EXISTS ix_jobs_level ON jobs(level);

CREATE TABLE IF NOT EXISTS job_skills (
  id BIGSERIAL PRIMARY KEY,
  job_id BIGINT NOT NULL REFERENCES jobs(id) ON DELETE CASCADE,
  skill TEXT NOT NULL,
  score INTEGER NOT NULL DEFAULT 1,
  CONSTRAINT uq_job_skill UNIQUE (job_id, skill)
);
`,
	`
CREATE TABLE IF NOT EXISTS crawl_runs (
  id TEXT PRIMARY KEY,
  provider TEXT NOT NULL,
  started_at TIMESTAMPTZ NOT NULL,
  finished_at TIMESTAMPTZ,
  pages_fetched INTEGER NOT NULL DEFAULT 0,
  jobs_discovered INTEGER NOT NULL DEFAULT 0,
  errors INTEGER NOT NULL DEFAULT 0,
  notes TEXT
);
`,
}

// migrate tracks applied steps in schema_version, the way SQLite uses
// user_version.
func (s *Store) migrate(ctx context.Context) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("pgstore migrate begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL);`); err != nil {
		return fmt.Errorf("pgstore schema_version: %w", err)
	}
	var v int
	err = tx.QueryRow(ctx, `SELECT version FROM schema_version LIMIT 1;`).Scan(&v)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		if _, err := tx.Exec(ctx, `INSERT INTO schema_version(version) VALUES (0);`); err != nil {
			return err
		}
	case err != nil:
		return fmt.Errorf("pgstore read version: %w", err)
	}

	for i := v; i < len(schema); i++ {
		if _, err := tx.Exec(ctx, schema[i]); err != nil {
			return fmt.Errorf("pgstore schema v%d: %w", i+1, err)
		}
	}
	if _, err := tx.Exec(ctx, `UPDATE schema_version SET version = $1;`, len(schema)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// UpsertJob follows the same contract as the SQLite store.
func (s *Store) UpsertJob(ctx context.Context, rec store.JobRecord) (int64, bool, error) {
	if strings.TrimSpace(rec.ExternalID) == "" {
		return 0, false, errors.New("upsert job: external_id is required")
	}
	if rec.Level == "" {
		rec.Level = domain.LevelUnknown
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return 0, false, fmt.Errorf("upsert job begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	cid, err := companyID(ctx, tx, rec.Company)
	if err != nil {
		return 0, false, err
	}
	id, err := findJob(ctx, tx, rec)
	if err != nil {
		return 0, false, err
	}

	now := s.now()
	created := id == 0
	if created {
		err = tx.QueryRow(ctx, `
INSERT INTO jobs (provider, external_id, url, company_id, title, location, is_remote, level, posted_at, description, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)
RETURNING id;`,
			string(rec.Provider), rec.ExternalID, rec.URL, cid, rec.Title, rec.Location,
			rec.Remote, string(rec.Level), rec.PostedAt, rec.Description, now,
		).Scan(&id)
		if err != nil {
			return 0, false, fmt.Errorf("insert job: %w", err)
		}
	} else {
		_, err = tx.Exec(ctx, `
UPDATE jobs SET
  url = $1,
  company_id = $2,
  title = $3,
  location = COALESCE($4, location),
  is_remote = $5,
  level = CASE WHEN $6::text = 'unknown' THEN level ELSE $6::text END,
  posted_at = COALESCE(posted_at, $7),
  description = COALESCE($8, description),
  active = TRUE,
  updated_at = $9
WHERE id = $10;`,
			rec.URL, cid, rec.Title, rec.Location, rec.Remote, string(rec.Level),
			rec.PostedAt, rec.Description, now, id,
		)
		if err != nil {
			return 0, false, fmt.Errorf("update job: %w", err)
		}
	}

	if rec.Skills != nil {
		if _, err := tx.Exec(ctx, `DELETE FROM job_skills WHERE job_id = $1;`, id); err != nil {
			return 0, false, fmt.Errorf("clear skills: %w", err)
		}
		for _, sk := range store.CleanSkills(rec.Skills) {
			if _, err := tx.Exec(ctx,
				`INSERT INTO job_skills(job_id, skill) VALUES ($1, $2) ON CONFLICT DO NOTHING;`, id, sk,
			); err != nil {
				return 0, false, fmt.Errorf("insert skill: %w", err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, false, fmt.Errorf("upsert job commit: %w", err)
	}
	return id, created, nil
}

func companyID(ctx context.Context, tx pgx.Tx, name string) (int64, error) {
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		name = "Unknown"
	}
	var id int64
	// DO UPDATE so RETURNING yields the existing row too
	err := tx.QueryRow(ctx, `
INSERT INTO companies(name, slug) VALUES ($1, $2)
ON CONFLICT (slug) DO UPDATE SET slug = EXCLUDED.slug
RETURNING id;`, name, domain.Slugify(name)).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("company get-or-create: %w", err)
	}
	return id, nil
}

func findJob(ctx context.Context, tx pgx.Tx, rec store.JobRecord) (int64, error) {
	var id int64
	err := tx.QueryRow(ctx,
		`SELECT id FROM jobs WHERE provider = $1 AND external_id = $2 LIMIT 1;`,
		string(rec.Provider), rec.ExternalID,
	).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("find job: %w", err)
	}

	legacy := strings.TrimSpace(rec.LegacyExternalID)
	if legacy == "" || legacy == rec.ExternalID {
		return 0, nil
	}
	err = tx.QueryRow(ctx,
		`SELECT id FROM jobs WHERE provider = $1 AND external_id = $2 LIMIT 1;`,
		string(rec.Provider), legacy,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		err = tx.QueryRow(ctx, `SELECT id FROM jobs WHERE external_id = $1 ORDER BY id LIMIT 1;`, legacy).Scan(&id)
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("find legacy job: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`UPDATE jobs SET external_id = $1, provider = $2 WHERE id = $3;`,
		rec.ExternalID, string(rec.Provider), id,
	); err != nil {
		return 0, fmt.Errorf("rekey legacy job: %w", err)
	}
	return id, nil
}
