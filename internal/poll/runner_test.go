package poll

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nelson-zack/job-radar/internal/config"
	"github.com/nelson-zack/job-radar/internal/domain"
	"github.com/nelson-zack/job-radar/internal/events"
	"github.com/nelson-zack/job-radar/internal/notify"
	"github.com/nelson-zack/job-radar/internal/scheduler"
	"github.com/nelson-zack/job-radar/internal/scrape/types"
	"github.com/nelson-zack/job-radar/internal/store"
)

var (
	quiet    = log.New(io.Discard, "", 0)
	fixedNow = time.Date(2025, 9, 18, 12, 0, 0, 0, time.UTC)
)

type stubProvider struct {
	src      domain.Source
	postings []domain.RawPosting
}

func (s stubProvider) Name() domain.Source { return s.src }

func (s stubProvider) Fetch(_ context.Context, co domain.CompanyEntry) types.FetchResult {
	out := make([]domain.RawPosting, len(s.postings))
	copy(out, s.postings)
	for i := range out {
		out[i].Source = s.src
		if out[i].Company == "" {
			out[i].Company = co.Company
		}
	}
	return types.FetchResult{Source: s.src, Company: co.Company, Postings: out}
}

type noPages struct{}

func (noPages) FetchPage(_ context.Context, url string) types.Page {
	return types.Page{URL: url, Status: 404, Failure: "status 404"}
}

type captureSender struct{ texts []string }

func (c *captureSender) Send(_ context.Context, text string) error {
	c.texts = append(c.texts, text)
	return nil
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	dir := t.TempDir()
	companies := filepath.Join(dir, "companies.json")
	require.NoError(t, os.WriteFile(companies, []byte(`[{"provider":"greenhouse","company":"Acme","token":"acme"}]`), 0o644))

	cfg := config.Default()
	cfg.CompaniesFile = companies
	cfg.Scheduler.LockFile = filepath.Join(dir, "radar.lock")
	return cfg
}

func newRunner(t *testing.T, cfg config.Config) (*Runner, *store.DB) {
	t.Helper()
	db, err := store.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	greenhouse := stubProvider{src: domain.SourceGreenhouse, postings: []domain.RawPosting{
		{ExternalID: "1", Title: "Software Engineer", URL: "https://boards.greenhouse.io/acme/jobs/1", Timestamps: []string{"2025-09-15T00:00:00Z"}},
		{ExternalID: "2", Title: "Backend Engineer", URL: "https://boards.greenhouse.io/acme/jobs/2", Location: "Remote - US"},
	}}
	return &Runner{
		Cfg:       cfg,
		Store:     db,
		Providers: []types.Provider{greenhouse},
		Pages:     noPages{},
		Logger:    quiet,
		Now:       func() time.Time { return fixedNow },
	}, db
}

func drain(ch chan string) []string {
	var seen []string
	for {
		select {
		case raw := <-ch:
			var e events.Event
			if json.Unmarshal([]byte(raw), &e) == nil {
				seen = append(seen, e.Type)
			}
		default:
			return seen
		}
	}
}

func TestRunOnceSavesAndNotifiesOnlyNew(t *testing.T) {
	ctx := context.Background()
	r, db := newRunner(t, testConfig(t))
	sender := &captureSender{}
	r.Digest = &notify.Digest{Sender: sender, TopN: 10, Now: r.Now, Logger: quiet}
	r.Hub = events.NewHub()
	sub := r.Hub.Subscribe()
	defer r.Hub.Unsubscribe(sub)

	out, err := r.RunOnce(ctx, "req-1")
	require.NoError(t, err)
	assert.Len(t, out.Result.Jobs, 2)
	assert.Equal(t, 2, out.Saved.Created)
	assert.Equal(t, 2, out.Notified)
	require.Len(t, sender.texts, 1)
	assert.Contains(t, sender.texts[0], "Software Engineer")
	assert.Equal(t, []string{events.RunStarted, events.RunFinished}, drain(sub))

	st := r.Status()
	assert.False(t, st.Running)
	assert.Equal(t, out.Result.RunID, st.RunID)
	assert.Equal(t, 2, st.LastSaved)
	assert.Empty(t, st.LastError)
	assert.NotEmpty(t, st.LastOkAt)

	last, err := db.LastRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, out.Result.RunID, last.ID)
	assert.Equal(t, "all", last.Provider)
	assert.Equal(t, 2, last.Kept)

	// second pass: same postings, nothing new to announce
	out, err = r.RunOnce(ctx, "req-2")
	require.NoError(t, err)
	assert.Equal(t, 0, out.Saved.Created)
	assert.Equal(t, 2, out.Saved.Updated)
	assert.Equal(t, 0, out.Notified)
	assert.Len(t, sender.texts, 1)
}

func TestRunOnceOnlyRestrictsSources(t *testing.T) {
	ctx := context.Background()
	r, db := newRunner(t, testConfig(t))

	out, err := r.RunOnce(ctx, "", domain.SourceGitHub)
	require.NoError(t, err)
	assert.Equal(t, 0, out.Result.Stats.Fetched)
	assert.Empty(t, out.Result.Jobs)

	last, err := db.LastRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, "github", last.Provider)
}

func TestRunOnceReadsLiveConfig(t *testing.T) {
	cfg := testConfig(t)
	r, _ := newRunner(t, cfg)

	live := cfg
	live.CompaniesFile = filepath.Join(t.TempDir(), "missing.json")
	r.Live = &atomic.Value{}
	r.Live.Store(live)

	out, err := r.RunOnce(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, out.Result.Jobs)
	assert.NotEmpty(t, out.Warnings)
}

func TestRunOnceBusyAndLocked(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	t.Run("busy in process", func(t *testing.T) {
		r, _ := newRunner(t, cfg)
		r.running.Store(true)
		_, err := r.RunOnce(ctx, "")
		assert.ErrorIs(t, err, ErrBusy)
	})

	t.Run("lock held elsewhere", func(t *testing.T) {
		r, _ := newRunner(t, cfg)
		fl := flock.New(cfg.Scheduler.LockFile)
		ok, err := fl.TryLock()
		require.NoError(t, err)
		require.True(t, ok)
		defer func() { _ = fl.Unlock() }()

		_, err = r.RunOnce(ctx, "")
		assert.ErrorIs(t, err, scheduler.ErrLocked)
		assert.False(t, r.running.Load())
	})
}

func TestBackfillPostedAt(t *testing.T) {
	ctx := context.Background()

	seed := func(t *testing.T, db *store.DB, ids ...string) {
		t.Helper()
		for _, id := range ids {
			_, _, err := db.UpsertJob(ctx, store.JobRecord{
				Provider: domain.SourceGitHub, ExternalID: id, URL: "https://jobs.example.com/" + id,
				Company: "Initech", Title: "New Grad Engineer " + id, Level: domain.LevelJunior,
			})
			require.NoError(t, err)
		}
	}
	curated := stubProvider{src: domain.SourceGitHub, postings: []domain.RawPosting{
		{ExternalID: "gh-1", Company: "Initech", Title: "New Grad Engineer", URL: "https://jobs.example.com/gh-1", Timestamps: []string{"2025-09-10T00:00:00Z"}},
		{ExternalID: "gh-2", Company: "Initech", Title: "New Grad Engineer II", URL: "https://jobs.example.com/gh-2"},
	}}

	tests := []struct {
		name      string
		inference bool
		want      store.BackfillResult
	}{
		{"scraped dates only", false, store.BackfillResult{Provider: domain.SourceGitHub, Checked: 3, Updated: 1, Missing: 2}},
		{"with inference", true, store.BackfillResult{Provider: domain.SourceGitHub, Checked: 3, Updated: 2, Missing: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			cfg.Sources.GitHub.Repos = []string{"example/new-grad"}
			cfg.Sources.GitHub.DateInference = tt.inference
			r, db := newRunner(t, cfg)
			r.Curated = curated
			seed(t, db, "gh-1", "gh-2", "gh-3")

			got, err := r.BackfillPostedAt(ctx, "req")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			undated, err := db.UndatedJobs(ctx, domain.SourceGitHub)
			require.NoError(t, err)
			assert.Len(t, undated, tt.want.Missing)
		})
	}
}

func TestProvidersCoverEverySource(t *testing.T) {
	cfg := config.Default()
	ps := Providers(cfg, NewClient(cfg), quiet)
	var got []domain.Source
	for _, p := range ps {
		got = append(got, p.Name())
	}
	assert.ElementsMatch(t, domain.AllSources, got)
}
