package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nelson-zack/job-radar/internal/domain"
)

func newTestDB(t *testing.T, now time.Time) *DB {
	t.Helper()
	db, err := OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	db.now = func() time.Time { return now }
	return db
}

func ptr[T any](v T) *T { return &v }

func rec(provider domain.Source, id, company, title string) JobRecord {
	return JobRecord{
		Provider:   provider,
		ExternalID: id,
		URL:        "https://example.com/" + id,
		Company:    company,
		Title:      title,
		Level:      domain.LevelJunior,
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := newTestDB(t, time.Now())
	require.NoError(t, Migrate(db.Pool))

	var v int
	require.NoError(t, db.Pool.QueryRow(`PRAGMA user_version;`).Scan(&v))
	assert.Equal(t, len(schema), v)
}

func TestUpsertKeepsPostedAtAndNonNullFields(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))

	first := time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC)
	r := rec(domain.SourceGreenhouse, "101", "Acme Corp", "Software Engineer I")
	r.PostedAt = &first
	r.Location = ptr("Remote - US")
	r.Description = ptr("Build things")
	r.Skills = []string{"Go", "go", " SQL "}

	id, created, err := db.UpsertJob(ctx, r)
	require.NoError(t, err)
	assert.True(t, created)

	later := time.Date(2026, 2, 27, 0, 0, 0, 0, time.UTC)
	r2 := rec(domain.SourceGreenhouse, "101", "Acme Corp", "Software Engineer I (Backend)")
	r2.PostedAt = &later
	id2, created, err := db.UpsertJob(ctx, r2)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, id, id2)

	got, err := db.GetJob(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Software Engineer I (Backend)", got.Title)
	require.NotNil(t, got.PostedAt)
	assert.True(t, first.Equal(*got.PostedAt))
	require.NotNil(t, got.Location)
	assert.Equal(t, "Remote - US", *got.Location)
	require.NotNil(t, got.Description)
	assert.Equal(t, "Build things", *got.Description)
	assert.Equal(t, []string{"Go", "SQL"}, got.Skills)
	assert.Equal(t, "acme-corp", got.CompanySlug)
	assert.Equal(t, "Acme Corp", got.CompanyName)
}

func TestUpsertKeepsKnownLevel(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t, time.Now().UTC())

	id, _, err := db.UpsertJob(ctx, rec(domain.SourceLever, "7", "Acme", "Software Engineer I"))
	require.NoError(t, err)

	unknown := rec(domain.SourceLever, "7", "Acme", "Software Engineer")
	unknown.Level = domain.LevelUnknown
	_, _, err = db.UpsertJob(ctx, unknown)
	require.NoError(t, err)

	got, err := db.GetJob(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.LevelJunior, got.Level)

	mid := rec(domain.SourceLever, "7", "Acme", "Software Engineer II")
	mid.Level = domain.LevelMid
	_, _, err = db.UpsertJob(ctx, mid)
	require.NoError(t, err)

	got, err = db.GetJob(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.LevelMid, got.Level)
}

func TestUpsertFillsMissingPostedAt(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t, time.Now().UTC())

	id, _, err := db.UpsertJob(ctx, rec(domain.SourceGitHub, "abc", "Initech", "New Grad SWE"))
	require.NoError(t, err)

	when := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	r := rec(domain.SourceGitHub, "abc", "Initech", "New Grad SWE")
	r.PostedAt = &when
	_, _, err = db.UpsertJob(ctx, r)
	require.NoError(t, err)

	got, err := db.GetJob(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got.PostedAt)
	assert.True(t, when.Equal(*got.PostedAt))
}

func TestUpsertLegacyExternalID(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t, time.Now().UTC())

	old := rec(domain.SourceGitHub, "https://example.com/x", "Initech", "SWE")
	id, _, err := db.UpsertJob(ctx, old)
	require.NoError(t, err)

	r := rec(domain.SourceGitHub, "hash-1", "Initech", "SWE")
	r.LegacyExternalID = "https://example.com/x"
	id2, created, err := db.UpsertJob(ctx, r)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, id, id2)

	got, err := db.GetJob(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "hash-1", got.ExternalID)
}

func TestUpsertRequiresExternalID(t *testing.T) {
	db := newTestDB(t, time.Now().UTC())
	_, _, err := db.UpsertJob(context.Background(), rec(domain.SourceLever, " ", "Acme", "SWE"))
	require.Error(t, err)
}

func TestSkillsNilLeavesStoredSkills(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t, time.Now().UTC())

	r := rec(domain.SourceLever, "l1", "Acme", "SWE")
	r.Skills = []string{"python"}
	id, _, err := db.UpsertJob(ctx, r)
	require.NoError(t, err)

	_, _, err = db.UpsertJob(ctx, rec(domain.SourceLever, "l1", "Acme", "SWE"))
	require.NoError(t, err)

	got, err := db.GetJob(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{"python"}, got.Skills)
}

func seedJobs(t *testing.T, db *DB) {
	t.Helper()
	ctx := context.Background()
	now := db.now()
	day := 24 * time.Hour

	rows := []JobRecord{
		{Provider: domain.SourceGreenhouse, ExternalID: "g1", URL: "https://a/1", Company: "Acme", Title: "Software Engineer I",
			Remote: true, Level: domain.LevelJunior, PostedAt: ptr(now.Add(-1 * day)), Skills: []string{"go"}},
		{Provider: domain.SourceGreenhouse, ExternalID: "g2", URL: "https://a/2", Company: "Acme", Title: "Senior Engineer",
			Level: domain.LevelSenior, PostedAt: ptr(now.Add(-2 * day))},
		{Provider: domain.SourceGitHub, ExternalID: "h1", URL: "https://b/1", Company: "Initech", Title: "New Grad SWE",
			Remote: true, Level: domain.LevelJunior, Description: ptr("Requires 5+ years of experience"), Skills: []string{"python"}},
		{Provider: domain.SourceWorkday, ExternalID: "w1", URL: "https://c/1", Company: "Globex", Title: "Junior Developer",
			Level: domain.LevelJunior, PostedAt: ptr(now.Add(-20 * day))},
	}
	for _, r := range rows {
		_, _, err := db.UpsertJob(ctx, r)
		require.NoError(t, err)
	}
}

func titles(jobs []Job) []string {
	out := make([]string, len(jobs))
	for i, j := range jobs {
		out[i] = j.Title
	}
	return out
}

func TestListJobsFilters(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	db := newTestDB(t, now)
	seedJobs(t, db)
	ctx := context.Background()

	cases := []struct {
		name  string
		f     JobFilter
		want  []string
		total int
	}{
		{"default order puts undated last", JobFilter{}, []string{"Software Engineer I", "Senior Engineer", "Junior Developer", "New Grad SWE"}, 4},
		{"posted asc puts undated first", JobFilter{Order: OrderPostedAsc}, []string{"New Grad SWE", "Junior Developer", "Senior Engineer", "Software Engineer I"}, 4},
		{"level", JobFilter{Level: "senior"}, []string{"Senior Engineer"}, 1},
		{"remote", JobFilter{Remote: ptr(true), Order: OrderIDAsc}, []string{"Software Engineer I", "New Grad SWE"}, 2},
		{"providers", JobFilter{Providers: []domain.Source{domain.SourceGitHub, domain.SourceWorkday}, Order: OrderIDAsc}, []string{"New Grad SWE", "Junior Developer"}, 2},
		{"company slug", JobFilter{Company: "initech"}, []string{"New Grad SWE"}, 1},
		{"days drops undated and old", JobFilter{Days: 7}, []string{"Software Engineer I", "Senior Engineer"}, 2},
		{"q matches company name", JobFilter{Q: "GLOBEX"}, []string{"Junior Developer"}, 1},
		{"skills any", JobFilter{SkillsAny: []string{"Python", "rust"}}, []string{"New Grad SWE"}, 1},
		{"title exclusion", JobFilter{TitleExclude: []string{"senior"}, Order: OrderIDAsc}, []string{"Software Engineer I", "New Grad SWE", "Junior Developer"}, 3},
		{"desc exclusion", JobFilter{DescExclude: []string{"%5+%year%"}, Order: OrderIDAsc}, []string{"Software Engineer I", "Senior Engineer", "Junior Developer"}, 3},
		{"paging", JobFilter{Order: OrderIDAsc, Limit: 2, Offset: 1}, []string{"Senior Engineer", "New Grad SWE"}, 4},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.f.Now = now
			jobs, total, err := db.ListJobs(ctx, tc.f)
			require.NoError(t, err)
			assert.Equal(t, tc.want, titles(jobs))
			assert.Equal(t, tc.total, total)
		})
	}
}

func TestListKept(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	db := newTestDB(t, now)
	seedJobs(t, db)

	notSenior := func(j Job) bool { return j.Level != domain.LevelSenior }
	jobs, total, err := ListKept(context.Background(), db, JobFilter{Order: OrderIDAsc, Limit: 1, Offset: 1, Now: now}, notSenior)
	require.NoError(t, err)
	assert.Equal(t, []string{"New Grad SWE"}, titles(jobs))
	assert.Equal(t, 3, total)
}

func TestListCompanies(t *testing.T) {
	db := newTestDB(t, time.Now().UTC())
	seedJobs(t, db)

	got, err := db.ListCompanies(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, CompanyCount{Name: "Acme", Slug: "acme", Jobs: 2}, got[0])
	assert.Equal(t, "globex", got[1].Slug)
}

func TestGetJobNotFound(t *testing.T) {
	db := newTestDB(t, time.Now().UTC())
	_, err := db.GetJob(context.Background(), 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRuns(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t, time.Now().UTC())

	_, err := db.LastRun(ctx)
	assert.ErrorIs(t, err, ErrNotFound)

	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, db.SaveRun(ctx, Run{ID: "r1", Provider: "all", StartedAt: start}))
	require.NoError(t, db.SaveRun(ctx, Run{ID: "r1", Provider: "all", StartedAt: start, FinishedAt: start.Add(time.Minute), Fetched: 10, Kept: 3, Errors: 1}))

	got, err := db.LastRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, "r1", got.ID)
	assert.Equal(t, 10, got.Fetched)
	assert.Equal(t, 3, got.Kept)
	assert.True(t, start.Add(time.Minute).Equal(got.FinishedAt))
}

func TestProvenanceAndBackfill(t *testing.T) {
	ctx := context.Background()
	seen := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	db := newTestDB(t, seen)
	seedJobs(t, db)

	first, err := db.FirstSeenAt(ctx, "h1")
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.True(t, seen.Equal(*first))

	merged, err := db.MergedAt(ctx, "h1")
	require.NoError(t, err)
	assert.Nil(t, merged)

	missing, err := db.LastModifiedAt(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	when := time.Date(2026, 1, 20, 0, 0, 0, 0, time.UTC)
	res, err := BackfillPostedAt(ctx, db, domain.SourceGitHub, map[string]time.Time{"h1": when})
	require.NoError(t, err)
	assert.Equal(t, BackfillResult{Provider: domain.SourceGitHub, Checked: 1, Updated: 1}, res)

	left, err := db.UndatedJobs(ctx, domain.SourceGitHub)
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestSaveJobs(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t, time.Now().UTC())
	jobs := []domain.NormalizedJob{
		{Title: "SWE I", Company: "Acme", URL: "https://a/1", Source: domain.SourceLever, ExternalID: "x1", Level: domain.LevelJunior},
		{Title: "SWE II", Company: "Acme", URL: "https://a/2", Source: domain.SourceLever, ExternalID: "x2", Level: domain.LevelMid},
	}
	st, err := SaveJobs(ctx, db, jobs)
	require.NoError(t, err)
	assert.Equal(t, 2, st.Created)
	assert.True(t, st.New["lever:x1"])

	st, err = SaveJobs(ctx, db, jobs)
	require.NoError(t, err)
	assert.Equal(t, 0, st.Created)
	assert.Equal(t, 2, st.Updated)
	assert.Empty(t, st.New)
}
