package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/nelson-zack/job-radar/internal/domain"
)

// UpsertJob inserts or updates one job keyed by (provider, external_id) and
// replaces its skills when rec.Skills is non-nil.
func (d *DB) UpsertJob(ctx context.Context, rec JobRecord) (int64, bool, error) {
	if strings.TrimSpace(rec.ExternalID) == "" {
		return 0, false, errors.New("upsert job: external_id is required")
	}
	if rec.Level == "" {
		rec.Level = domain.LevelUnknown
	}

	tx, err := d.Pool.BeginTx(ctx, nil)
	if err != nil {
		return 0, false, fmt.Errorf("upsert job begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	cid, err := companyID(ctx, tx, rec.Company)
	if err != nil {
		return 0, false, err
	}

	id, err := findJob(ctx, tx, rec)
	if err != nil {
		return 0, false, err
	}

	now := formatTS(d.now())
	created := id == 0
	if created {
		res, err := tx.ExecContext(ctx, `
INSERT INTO jobs (provider, external_id, url, company_id, title, location, is_remote, level, posted_at, description, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`,
			string(rec.Provider), rec.ExternalID, rec.URL, cid, rec.Title, nullString(rec.Location),
			rec.Remote, string(rec.Level), nullTS(rec.PostedAt), nullString(rec.Description), now, now,
		)
		if err != nil {
			return 0, false, fmt.Errorf("insert job: %w", err)
		}
		if id, err = res.LastInsertId(); err != nil {
			return 0, false, err
		}
	} else {
		// posted_at is only filled when empty; other nullable fields keep
		// their stored value when rec has none, and an unknown level never
		// replaces a known one
		_, err := tx.ExecContext(ctx, `
UPDATE jobs SET
  url = ?,
  company_id = ?,
  title = ?,
  location = COALESCE(?, location),
  is_remote = ?,
  level = CASE WHEN ? = 'unknown' THEN level ELSE ? END,
  posted_at = COALESCE(posted_at, ?),
  description = COALESCE(?, description),
  active = 1,
  updated_at = ?
WHERE id = ?;`,
			rec.URL, cid, rec.Title, nullString(rec.Location), rec.Remote, string(rec.Level), string(rec.Level),
			nullTS(rec.PostedAt), nullString(rec.Description), now, id,
		)
		if err != nil {
			return 0, false, fmt.Errorf("update job: %w", err)
		}
	}

	if rec.Skills != nil {
		if err := replaceSkills(ctx, tx, id, rec.Skills); err != nil {
			return 0, false, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, false, fmt.Errorf("upsert job commit: %w", err)
	}
	return id, created, nil
}

// findJob resolves the row for rec: by (provider, external_id), then by the
// legacy id with and without the provider. A legacy hit is rekeyed.
func findJob(ctx context.Context, tx *sql.Tx, rec JobRecord) (int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx,
		`SELECT id FROM jobs WHERE provider = ? AND external_id = ? LIMIT 1;`,
		string(rec.Provider), rec.ExternalID,
	).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("find job: %w", err)
	}

	legacy := strings.TrimSpace(rec.LegacyExternalID)
	if legacy == "" || legacy == rec.ExternalID {
		return 0, nil
	}
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM jobs WHERE provider = ? AND external_id = ? LIMIT 1;`,
		string(rec.Provider), legacy,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		// rows from before provider tagging
		err = tx.QueryRowContext(ctx,
			`SELECT id FROM jobs WHERE external_id = ? ORDER BY id LIMIT 1;`, legacy,
		).Scan(&id)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("find legacy job: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE jobs SET external_id = ?, provider = ? WHERE id = ?;`,
		rec.ExternalID, string(rec.Provider), id,
	); err != nil {
		return 0, fmt.Errorf("rekey legacy job: %w", err)
	}
	return id, nil
}

func replaceSkills(ctx context.Context, tx *sql.Tx, jobID int64, skills []string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM job_skills WHERE job_id = ?;`, jobID); err != nil {
		return fmt.Errorf("clear skills: %w", err)
	}
	for _, s := range CleanSkills(skills) {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO job_skills(job_id, skill) VALUES(?, ?);`, jobID, s,
		); err != nil {
			return fmt.Errorf("insert skill: %w", err)
		}
	}
	return nil
}

// CleanSkills trims skills and drops blanks and case-insensitive repeats.
func CleanSkills(in []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		k := strings.ToLower(s)
		if s == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, s)
	}
	return out
}
