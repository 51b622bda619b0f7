// Package store persists pipeline output: companies, jobs keyed by
// (provider, external_id), matched skills and run records.
package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/nelson-zack/job-radar/internal/domain"
)

// ErrNotFound is returned by lookups that match no row.
var ErrNotFound = errors.New("not found")

// Store is the persistence surface shared by the SQLite and Postgres
// backends. It also answers provenance lookups for date inference.
type Store interface {
	UpsertJob(ctx context.Context, rec JobRecord) (id int64, created bool, err error)
	ListJobs(ctx context.Context, f JobFilter) ([]Job, int, error)
	// ScanJobs is ListJobs without the page-size cap or the total count.
	ScanJobs(ctx context.Context, f JobFilter) ([]Job, error)
	GetJob(ctx context.Context, id int64) (Job, error)
	ListCompanies(ctx context.Context) ([]CompanyCount, error)
	SaveRun(ctx context.Context, r Run) error
	LastRun(ctx context.Context) (Run, error)

	UndatedJobs(ctx context.Context, provider domain.Source) ([]Job, error)
	SetPostedAt(ctx context.Context, id int64, t time.Time) error

	MergedAt(ctx context.Context, key string) (*time.Time, error)
	FirstSeenAt(ctx context.Context, key string) (*time.Time, error)
	LastModifiedAt(ctx context.Context, key string) (*time.Time, error)

	Close() error
}

// JobRecord is one upsert. Nil pointer fields never overwrite stored values
// and PostedAt only fills an empty column. A nil Skills leaves the stored
// skills alone.
type JobRecord struct {
	Provider   domain.Source
	ExternalID string
	// LegacyExternalID is tried when no row matches ExternalID; a hit is
	// rekeyed to ExternalID.
	LegacyExternalID string

	URL         string
	Company     string
	Title       string
	Location    *string
	Remote      bool
	Level       domain.Level
	PostedAt    *time.Time
	Description *string
	Skills      []string
}

// Job is a stored row as the API returns it.
type Job struct {
	ID          int64         `json:"id"`
	Provider    domain.Source `json:"provider"`
	ExternalID  string        `json:"external_id"`
	CompanySlug string        `json:"company"`
	CompanyName string        `json:"company_name"`
	Title       string        `json:"title"`
	URL         string        `json:"url"`
	Location    *string       `json:"location"`
	Remote      bool          `json:"is_remote"`
	Level       domain.Level  `json:"level"`
	PostedAt    *time.Time    `json:"posted_at"`
	Description *string       `json:"description,omitempty"`
	Skills      []string      `json:"skills,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

type CompanyCount struct {
	Name string `json:"company"`
	Slug string `json:"slug"`
	Jobs int    `json:"jobs"`
}

// Run is one pipeline execution as recorded in crawl_runs.
type Run struct {
	ID         string    `json:"run_id"`
	Provider   string    `json:"provider"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Fetched    int       `json:"fetched"`
	Kept       int       `json:"kept"`
	Errors     int       `json:"errors"`
	Notes      string    `json:"notes,omitempty"`
}

// Job orderings accepted by ListJobs.
const (
	OrderPostedDesc = "posted_at_desc"
	OrderPostedAsc  = "posted_at_asc"
	OrderIDDesc     = "id_desc"
	OrderIDAsc      = "id_asc"
)

// JobFilter narrows ListJobs. Zero values mean "no filter".
type JobFilter struct {
	Limit  int
	Offset int

	Level     string
	Remote    *bool
	Providers []domain.Source
	Company   string // slug
	Q         string
	Days      int
	Order     string
	SkillsAny []string
	// USRemoteOnly keeps remote rows only.
	USRemoteOnly bool

	// TitleExclude and DescExclude are lowercase LIKE prefilters for the
	// entry-level filter.
	TitleExclude []string
	DescExclude  []string

	Now time.Time
}

// Paged clamps Limit to 1..100 (default 25) the way the API does.
func (f JobFilter) Paged() JobFilter {
	if f.Limit <= 0 {
		f.Limit = 25
	}
	if f.Limit > 100 {
		f.Limit = 100
	}
	return f.Normalized()
}

// Normalized fills defaults without capping Limit.
func (f JobFilter) Normalized() JobFilter {
	if f.Limit <= 0 {
		f.Limit = 25
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	switch f.Order {
	case OrderPostedDesc, OrderPostedAsc, OrderIDDesc, OrderIDAsc:
	default:
		f.Order = OrderPostedDesc
	}
	if f.Now.IsZero() {
		f.Now = time.Now().UTC()
	}
	f.Q = strings.TrimSpace(f.Q)
	return f
}

// OrderClause is shared by both backends. NULL posted_at sorts last when
// descending and first when ascending.
func OrderClause(order string) string {
	switch order {
	case OrderPostedAsc:
		return "j.posted_at IS NOT NULL, j.posted_at ASC, j.id ASC"
	case OrderIDAsc:
		return "j.id ASC"
	case OrderIDDesc:
		return "j.id DESC"
	default:
		return "j.posted_at IS NULL, j.posted_at DESC, j.id DESC"
	}
}

func lowerList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
