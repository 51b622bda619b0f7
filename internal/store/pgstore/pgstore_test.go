package pgstore

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nelson-zack/job-radar/internal/domain"
	"github.com/nelson-zack/job-radar/internal/store"
)

// These run against a throwaway database named by RADAR_TEST_DATABASE_URL.
func openTest(t *testing.T) *Store {
	t.Helper()
	url := os.Getenv("RADAR_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("RADAR_TEST_DATABASE_URL not set")
	}
	s, err := Open(context.Background(), url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestUpsertContract(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	ext := uuid.NewString()

	posted := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	loc := "Remote - US"
	id, created, err := s.UpsertJob(ctx, store.JobRecord{
		Provider: domain.SourceGreenhouse, ExternalID: ext, URL: "https://example.com/" + ext,
		Company: "PG Test Co", Title: "Software Engineer I", Level: domain.LevelJunior,
		PostedAt: &posted, Location: &loc, Skills: []string{"go", "Go", "sql"},
	})
	require.NoError(t, err)
	assert.True(t, created)

	later := posted.AddDate(0, 0, 5)
	id2, created, err := s.UpsertJob(ctx, store.JobRecord{
		Provider: domain.SourceGreenhouse, ExternalID: ext, URL: "https://example.com/" + ext,
		Company: "PG Test Co", Title: "Software Engineer I", Level: domain.LevelUnknown, PostedAt: &later,
	})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, id, id2)

	got, err := s.GetJob(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got.PostedAt)
	assert.True(t, posted.Equal(*got.PostedAt))
	require.NotNil(t, got.Location)
	assert.Equal(t, loc, *got.Location)
	assert.Equal(t, []string{"go", "sql"}, got.Skills)
	assert.Equal(t, "pg-test-co", got.CompanySlug)
	assert.Equal(t, domain.LevelJunior, got.Level)

	jobs, total, err := s.ListJobs(ctx, store.JobFilter{Company: "pg-test-co", Q: "engineer"})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, total, 1)
	assert.NotEmpty(t, jobs)

	first, err := s.FirstSeenAt(ctx, ext)
	require.NoError(t, err)
	assert.NotNil(t, first)
}

func TestRuns(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	id := uuid.NewString()
	start := time.Now().UTC().Truncate(time.Second)

	require.NoError(t, s.SaveRun(ctx, store.Run{ID: id, Provider: "all", StartedAt: start, FinishedAt: start.Add(time.Second), Kept: 2}))
	got, err := s.LastRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, 2, got.Kept)
}
