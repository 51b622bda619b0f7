package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// SaveRun records one pipeline run; saving the same id again overwrites it.
func (d *DB) SaveRun(ctx context.Context, r Run) error {
	if r.ID == "" {
		return errors.New("save run: id is required")
	}
	var finished any
	if !r.FinishedAt.IsZero() {
		finished = formatTS(r.FinishedAt)
	}
	_, err := d.Pool.ExecContext(ctx, `
INSERT INTO crawl_runs(id, provider, started_at, finished_at, pages_fetched, jobs_discovered, errors, notes)
VALUES(?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
  finished_at = excluded.finished_at,
  pages_fetched = excluded.pages_fetched,
  jobs_discovered = excluded.jobs_discovered,
  errors = excluded.errors,
  notes = excluded.notes;
`, r.ID, r.Provider, formatTS(r.StartedAt), finished, r.Fetched, r.Kept, r.Errors, r.Notes)
	if err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	return nil
}

// LastRun returns the most recently started run, or ErrNotFound.
func (d *DB) LastRun(ctx context.Context) (Run, error) {
	var (
		r        Run
		started  string
		finished sql.NullString
		notes    sql.NullString
	)
	err := d.Pool.QueryRowContext(ctx, `
SELECT id, provider, started_at, finished_at, pages_fetched, jobs_discovered, errors, notes
FROM crawl_runs
ORDER BY started_at DESC
LIMIT 1;
`).Scan(&r.ID, &r.Provider, &started, &finished, &r.Fetched, &r.Kept, &r.Errors, &notes)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, ErrNotFound
	}
	if err != nil {
		return Run{}, fmt.Errorf("last run: %w", err)
	}
	r.StartedAt = parseTS(started)
	if t := parseNullTS(finished); t != nil {
		r.FinishedAt = *t
	}
	r.Notes = notes.String
	return r, nil
}
