package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// The store only knows when it first and last saw a posting; it has no
// merge history, so MergedAt always reports nothing.

func (d *DB) MergedAt(context.Context, string) (*time.Time, error) { return nil, nil }

func (d *DB) FirstSeenAt(ctx context.Context, key string) (*time.Time, error) {
	return d.lookupTS(ctx, `SELECT created_at FROM jobs WHERE external_id = ? ORDER BY created_at ASC LIMIT 1;`, key)
}

func (d *DB) LastModifiedAt(ctx context.Context, key string) (*time.Time, error) {
	return d.lookupTS(ctx, `SELECT updated_at FROM jobs WHERE external_id = ? ORDER BY updated_at DESC LIMIT 1;`, key)
}

func (d *DB) lookupTS(ctx context.Context, query, key string) (*time.Time, error) {
	var s sql.NullString
	err := d.Pool.QueryRowContext(ctx, query, key).Scan(&s)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("provenance lookup: %w", err)
	}
	return parseNullTS(s), nil
}
