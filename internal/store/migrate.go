package store

import (
	"database/sql"
	"fmt"
)

// schema steps; step i brings user_version to i+1.
var schema = []string{
	`
CREATE TABLE IF NOT EXISTS companies (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL,
  slug TEXT NOT NULL UNIQUE,
  website TEXT
);

CREATE TABLE IF NOT EXISTS jobs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  provider TEXT NOT NULL,
  external_id TEXT NOT NULL,
  url TEXT NOT NULL,
  company_id INTEGER NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
  title TEXT NOT NULL,
  location TEXT,
  is_remote INTEGER NOT NULL DEFAULT 0,
  level TEXT NOT NULL DEFAULT 'unknown',
  posted_at TEXT,
  description TEXT,
  active INTEGER NOT NULL DEFAULT 1,
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL,
  UNIQUE(provider, external_id)
);

CREATE INDEX IF NOT EXISTS ix_jobs_posted_at ON jobs(posted_at);
CREATE INDEX IF NOT EXISTS ix_jobs_company_posted_at ON jobs(company_id, posted_at);
CREATE INDEX IF NOT EXISTS ix_jobs_provider ON jobs(provider);
CREATE INDEX IF NOT EXISTS ix_jobs_level ON jobs(level);

CREATE TABLE IF NOT EXISTS job_skills (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  job_id INTEGER NOT NULL REFERENCES jobs(id) ON DELETE CASCADE,
  skill TEXT NOT NULL,
  score INTEGER NOT NULL DEFAULT 1,
  UNIQUE(job_id, skill)
);

CREATE INDEX IF NOT EXISTS ix_job_skills_job_id ON job_skills(job_id);
`,
	`
CREATE TABLE IF NOT EXISTS crawl_runs (
  id TEXT PRIMARY KEY,
  provider TEXT NOT NULL,
  started_at TEXT NOT NULL,
  finished_at TEXT,
  pages_fetched INTEGER NOT NULL DEFAULT 0,
  jobs_discovered INTEGER NOT NULL DEFAULT 0,
  errors INTEGER NOT NULL DEFAULT 0,
  notes TEXT
);

CREATE INDEX IF NOT EXISTS ix_crawl_runs_started_at ON crawl_runs(started_at);
`,
}

// Migrate applies every schema step above the database's user_version.
func Migrate(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var v int
	if err := tx.QueryRow(`PRAGMA user_version;`).Scan(&v); err != nil {
		return err
	}
	if v >= len(schema) {
		return tx.Commit()
	}

	for i := v; i < len(schema); i++ {
		if _, err := tx.Exec(schema[i]); err != nil {
			return fmt.Errorf("schema v%d: %w", i+1, err)
		}
	}

	// Back-compat for dev DBs created before jobs carried descriptions.
	if !columnExists(tx, "jobs", "description") {
		if _, err := tx.Exec(`ALTER TABLE jobs ADD COLUMN description TEXT;`); err != nil {
			return err
		}
	}

	if _, err := tx.Exec(fmt.Sprintf(`PRAGMA user_version = %d;`, len(schema))); err != nil {
		return err
	}
	return tx.Commit()
}

func columnExists(q interface {
	QueryRow(query string, args ...any) *sql.Row
}, table, col string) bool {
	query := fmt.Sprintf(`
SELECT 1
FROM pragma_table_info('%s')
WHERE name = ?
LIMIT 1;
`, table)

	var one int
	err := q.QueryRow(query, col).Scan(&one)
	return err == nil
}
