package pgstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/nelson-zack/job-radar/internal/domain"
	"github.com/nelson-zack/job-radar/internal/store"
)

const jobColumns = `j.id, j.provider, j.external_id, c.slug, c.name, j.title, j.url, j.location,
  j.is_remote, j.level, j.posted_at, j.description, j.created_at, j.updated_at`

const jobFrom = `FROM jobs j JOIN companies c ON c.id = j.company_id`

func pgTS(t time.Time) any { return t.UTC() }

func (s *Store) ListJobs(ctx context.Context, f store.JobFilter) ([]store.Job, int, error) {
	f = f.Paged()
	where, args := store.WhereJobs(f, store.Dollar, pgTS)

	var total int
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) `+jobFrom+` `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count jobs: %w", err)
	}
	jobs, err := s.selectJobs(ctx, where, args, f)
	if err != nil {
		return nil, 0, err
	}
	return jobs, total, nil
}

func (s *Store) ScanJobs(ctx context.Context, f store.JobFilter) ([]store.Job, error) {
	f = f.Normalized()
	where, args := store.WhereJobs(f, store.Dollar, pgTS)
	return s.selectJobs(ctx, where, args, f)
}

func (s *Store) selectJobs(ctx context.Context, where string, args []any, f store.JobFilter) ([]store.Job, error) {
	n := len(args)
	query := fmt.Sprintf(`SELECT %s %s %s ORDER BY %s LIMIT $%d OFFSET $%d`,
		jobColumns, jobFrom, where, store.OrderClause(f.Order), n+1, n+2)

	rows, err := s.db.Query(ctx, query, append(args, f.Limit, f.Offset)...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	out := []store.Job{}
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

func scanJob(r pgx.Row) (store.Job, error) {
	var (
		j               store.Job
		provider, level string
	)
	if err := r.Scan(
		&j.ID, &provider, &j.ExternalID, &j.CompanySlug, &j.CompanyName, &j.Title, &j.URL, &j.Location,
		&j.Remote, &level, &j.PostedAt, &j.Description, &j.CreatedAt, &j.UpdatedAt,
	); err != nil {
		return store.Job{}, fmt.Errorf("scan job: %w", err)
	}
	j.Provider = domain.Source(provider)
	j.Level = domain.ParseLevel(level)
	if j.PostedAt != nil {
		t := j.PostedAt.UTC()
		j.PostedAt = &t
	}
	j.CreatedAt = j.CreatedAt.UTC()
	j.UpdatedAt = j.UpdatedAt.UTC()
	return j, nil
}

func (s *Store) GetJob(ctx context.Context, id int64) (store.Job, error) {
	j, err := scanJob(s.db.QueryRow(ctx, `SELECT `+jobColumns+` `+jobFrom+` WHERE j.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return store.Job{}, store.ErrNotFound
	}
	if err != nil {
		return store.Job{}, err
	}

	rows, err := s.db.Query(ctx, `SELECT skill FROM job_skills WHERE job_id = $1 ORDER BY id`, id)
	if err != nil {
		return store.Job{}, fmt.Errorf("job skills: %w", err)
	}
	skills, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return store.Job{}, fmt.Errorf("job skills: %w", err)
	}
	j.Skills = skills
	if j.Skills == nil {
		j.Skills = []string{}
	}
	return j, nil
}

func (s *Store) ListCompanies(ctx context.Context) ([]store.CompanyCount, error) {
	rows, err := s.db.Query(ctx, `
SELECT c.name, c.slug, COUNT(j.id) AS jobs
FROM companies c
JOIN jobs j ON j.company_id = c.id
GROUP BY c.id, c.name, c.slug
ORDER BY jobs DESC, c.name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list companies: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (store.CompanyCount, error) {
		var c store.CompanyCount
		err := r.Scan(&c.Name, &c.Slug, &c.Jobs)
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("list companies: %w", err)
	}
	if out == nil {
		out = []store.CompanyCount{}
	}
	return out, nil
}

func (s *Store) UndatedJobs(ctx context.Context, provider domain.Source) ([]store.Job, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+jobColumns+` `+jobFrom+` WHERE j.provider = $1 AND j.posted_at IS NULL ORDER BY j.id`,
		string(provider))
	if err != nil {
		return nil, fmt.Errorf("undated jobs: %w", err)
	}
	defer rows.Close()

	var out []store.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

func (s *Store) SetPostedAt(ctx context.Context, id int64, t time.Time) error {
	_, err := s.db.Exec(ctx,
		`UPDATE jobs SET posted_at = $1, updated_at = $2 WHERE id = $3 AND posted_at IS NULL`,
		t.UTC(), s.now(), id)
	if err != nil {
		return fmt.Errorf("set posted_at: %w", err)
	}
	return nil
}

func (s *Store) SaveRun(ctx context.Context, r store.Run) error {
	if r.ID == "" {
		return errors.New("save run: id is required")
	}
	var finished *time.Time
	if !r.FinishedAt.IsZero() {
		finished = &r.FinishedAt
	}
	_, err := s.db.Exec(ctx, `
INSERT INTO crawl_runs(id, provider, started_at, finished_at, pages_fetched, jobs_discovered, errors, notes)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (id) DO UPDATE SET
  finished_at = EXCLUDED.finished_at,
  pages_fetched = EXCLUDED.pages_fetched,
  jobs_discovered = EXCLUDED.jobs_discovered,
  errors = EXCLUDED.errors,
  notes = EXCLUDED.notes`,
		r.ID, r.Provider, r.StartedAt.UTC(), finished, r.Fetched, r.Kept, r.Errors, r.Notes)
	if err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	return nil
}

func (s *Store) LastRun(ctx context.Context) (store.Run, error) {
	var (
		r        store.Run
		finished *time.Time
		notes    *string
	)
	err := s.db.QueryRow(ctx, `
SELECT id, provider, started_at, finished_at, pages_fetched, jobs_discovered, errors, notes
FROM crawl_runs
ORDER BY started_at DESC
LIMIT 1`).Scan(&r.ID, &r.Provider, &r.StartedAt, &finished, &r.Fetched, &r.Kept, &r.Errors, &notes)
	if errors.Is(err, pgx.ErrNoRows) {
		return store.Run{}, store.ErrNotFound
	}
	if err != nil {
		return store.Run{}, fmt.Errorf("last run: %w", err)
	}
	r.StartedAt = r.StartedAt.UTC()
	if finished != nil {
		r.FinishedAt = finished.UTC()
	}
	if notes != nil {
		r.Notes = *notes
	}
	return r, nil
}

func (s *Store) MergedAt(context.Context, string) (*time.Time, error) { return nil, nil }

func (s *Store) FirstSeenAt(ctx context.Context, key string) (*time.Time, error) {
	return s.lookupTS(ctx, `SELECT created_at FROM jobs WHERE external_id = $1 ORDER BY created_at ASC LIMIT 1`, key)
}

func (s *Store) LastModifiedAt(ctx context.Context, key string) (*time.Time, error) {
	return s.lookupTS(ctx, `SELECT updated_at FROM jobs WHERE external_id = $1 ORDER BY updated_at DESC LIMIT 1`, key)
}

func (s *Store) lookupTS(ctx context.Context, query, key string) (*time.Time, error) {
	var t *time.Time
	err := s.db.QueryRow(ctx, query, key).Scan(&t)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("provenance lookup: %w", err)
	}
	if t != nil {
		u := t.UTC()
		t = &u
	}
	return t, nil
}
