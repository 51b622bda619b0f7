package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/nelson-zack/job-radar/internal/domain"
)

func TestWhereJobsDollar(t *testing.T) {
	now := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	where, args := WhereJobs(JobFilter{
		Providers: []domain.Source{domain.SourceGreenhouse, domain.SourceGitHub},
		Company:   "acme",
		Days:      2,
		Now:       now,
	}, Dollar, func(t time.Time) any { return t })

	assert.Equal(t, "WHERE j.provider IN ($1, $2) AND c.slug = $3 AND j.posted_at IS NOT NULL AND j.posted_at >= $4", where)
	assert.Equal(t, []any{"greenhouse", "github", "acme", now.Add(-48 * time.Hour)}, args)
}

func TestWhereJobsEmpty(t *testing.T) {
	where, args := WhereJobs(JobFilter{}, Question, sqliteTS)
	assert.Empty(t, where)
	assert.Empty(t, args)
}

func TestPagedClampsLimit(t *testing.T) {
	assert.Equal(t, 25, JobFilter{}.Paged().Limit)
	assert.Equal(t, 100, JobFilter{Limit: 500}.Paged().Limit)
	assert.Equal(t, 500, JobFilter{Limit: 500}.Normalized().Limit)
	assert.Equal(t, OrderPostedDesc, JobFilter{Order: "bogus"}.Paged().Order)
}
