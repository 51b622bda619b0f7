package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/nelson-zack/job-radar/internal/domain"
)

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// companyID returns the id for name's slug, creating the row on first sight.
func companyID(ctx context.Context, q queryer, name string) (int64, error) {
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		name = "Unknown"
	}
	slug := domain.Slugify(name)

	var id int64
	err := q.QueryRowContext(ctx, `SELECT id FROM companies WHERE slug = ? LIMIT 1;`, slug).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("company lookup: %w", err)
	}

	res, err := q.ExecContext(ctx, `INSERT INTO companies(name, slug) VALUES(?, ?);`, name, slug)
	if err != nil {
		return 0, fmt.Errorf("company insert: %w", err)
	}
	return res.LastInsertId()
}

func (d *DB) ListCompanies(ctx context.Context) ([]CompanyCount, error) {
	rows, err := d.Pool.QueryContext(ctx, `
SELECT c.name, c.slug, COUNT(j.id) AS jobs
FROM companies c
JOIN jobs j ON j.company_id = c.id
GROUP BY c.id, c.name, c.slug
ORDER BY jobs DESC, c.name ASC;
`)
	if err != nil {
		return nil, fmt.Errorf("list companies: %w", err)
	}
	defer rows.Close()

	out := []CompanyCount{}
	for rows.Next() {
		var c CompanyCount
		if err := rows.Scan(&c.Name, &c.Slug, &c.Jobs); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
