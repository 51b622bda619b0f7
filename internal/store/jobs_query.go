package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nelson-zack/job-radar/internal/domain"
)

const jobColumns = `j.id, j.provider, j.external_id, c.slug, c.name, j.title, j.url, j.location,
  j.is_remote, j.level, j.posted_at, j.description, j.created_at, j.updated_at`

const jobFrom = `FROM jobs j JOIN companies c ON c.id = j.company_id`

// ListJobs returns one page of jobs and the total matching count.
func (d *DB) ListJobs(ctx context.Context, f JobFilter) ([]Job, int, error) {
	f = f.Paged()
	where, args := WhereJobs(f, Question, sqliteTS)

	var total int
	if err := d.Pool.QueryRowContext(ctx, `SELECT COUNT(*) `+jobFrom+` `+where+`;`, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count jobs: %w", err)
	}
	jobs, err := d.selectJobs(ctx, where, args, f)
	if err != nil {
		return nil, 0, err
	}
	return jobs, total, nil
}

func (d *DB) ScanJobs(ctx context.Context, f JobFilter) ([]Job, error) {
	f = f.Normalized()
	where, args := WhereJobs(f, Question, sqliteTS)
	return d.selectJobs(ctx, where, args, f)
}

func (d *DB) selectJobs(ctx context.Context, where string, args []any, f JobFilter) ([]Job, error) {
	query := fmt.Sprintf(`
SELECT %s
%s
%s
ORDER BY %s
LIMIT ? OFFSET ?;
`, jobColumns, jobFrom, where, OrderClause(f.Order))

	rows, err := d.Pool.QueryContext(ctx, query, append(args, f.Limit, f.Offset)...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	out := []Job{}
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(r rowScanner) (Job, error) {
	var (
		j                    Job
		provider, level      string
		loc, posted, desc    sql.NullString
		createdAt, updatedAt string
	)
	if err := r.Scan(
		&j.ID, &provider, &j.ExternalID, &j.CompanySlug, &j.CompanyName, &j.Title, &j.URL, &loc,
		&j.Remote, &level, &posted, &desc, &createdAt, &updatedAt,
	); err != nil {
		return Job{}, fmt.Errorf("scan job: %w", err)
	}
	j.Provider = domain.Source(provider)
	j.Level = domain.ParseLevel(level)
	j.Location = stringPtr(loc)
	j.PostedAt = parseNullTS(posted)
	j.Description = stringPtr(desc)
	j.CreatedAt = parseTS(createdAt)
	j.UpdatedAt = parseTS(updatedAt)
	return j, nil
}

// GetJob returns one job with its skills, or ErrNotFound.
func (d *DB) GetJob(ctx context.Context, id int64) (Job, error) {
	row := d.Pool.QueryRowContext(ctx, `SELECT `+jobColumns+` `+jobFrom+` WHERE j.id = ?;`, id)
	j, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Job{}, ErrNotFound
	}
	if err != nil {
		return Job{}, err
	}

	rows, err := d.Pool.QueryContext(ctx, `SELECT skill FROM job_skills WHERE job_id = ? ORDER BY id;`, id)
	if err != nil {
		return Job{}, fmt.Errorf("job skills: %w", err)
	}
	defer rows.Close()
	j.Skills = []string{}
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return Job{}, err
		}
		j.Skills = append(j.Skills, s)
	}
	return j, rows.Err()
}

// UndatedJobs lists a provider's rows that still have no posted_at.
func (d *DB) UndatedJobs(ctx context.Context, provider domain.Source) ([]Job, error) {
	rows, err := d.Pool.QueryContext(ctx,
		`SELECT `+jobColumns+` `+jobFrom+` WHERE j.provider = ? AND j.posted_at IS NULL ORDER BY j.id;`,
		string(provider))
	if err != nil {
		return nil, fmt.Errorf("undated jobs: %w", err)
	}
	defer rows.Close()

	var out []Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

// SetPostedAt fills posted_at for id when it is still empty.
func (d *DB) SetPostedAt(ctx context.Context, id int64, t time.Time) error {
	_, err := d.Pool.ExecContext(ctx,
		`UPDATE jobs SET posted_at = ?, updated_at = ? WHERE id = ? AND posted_at IS NULL;`,
		formatTS(t), formatTS(d.now()), id)
	if err != nil {
		return fmt.Errorf("set posted_at: %w", err)
	}
	return nil
}
