// Package poll ties one pipeline run to persistence, notification and the
// event hub. The engine's scheduler, the admin endpoints and the CLI all go
// through Runner.
package poll

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nelson-zack/job-radar/internal/classify"
	"github.com/nelson-zack/job-radar/internal/config"
	"github.com/nelson-zack/job-radar/internal/dateparse"
	"github.com/nelson-zack/job-radar/internal/domain"
	"github.com/nelson-zack/job-radar/internal/events"
	"github.com/nelson-zack/job-radar/internal/normalize"
	"github.com/nelson-zack/job-radar/internal/notify"
	"github.com/nelson-zack/job-radar/internal/pipeline"
	"github.com/nelson-zack/job-radar/internal/scheduler"
	"github.com/nelson-zack/job-radar/internal/scrape/github"
	"github.com/nelson-zack/job-radar/internal/scrape/mailseed"
	"github.com/nelson-zack/job-radar/internal/scrape/types"
	"github.com/nelson-zack/job-radar/internal/scrape/util"
	"github.com/nelson-zack/job-radar/internal/store"
)

// ErrBusy is returned when a run is already in progress in this process.
var ErrBusy = errors.New("a run is already in progress")

type Runner struct {
	Cfg config.Config
	// Live, when set, holds the current config.Config and wins over Cfg, so
	// edits through PUT /config reach the next run.
	Live *atomic.Value

	// Store, Hub, Digest and Mailbox are optional.
	Store   store.Store
	Hub     *events.Hub
	Digest  *notify.Digest
	Mailbox mailseed.Mailbox

	// Client is shared by the default providers and enrichment. Providers
	// and Pages override what Client would build.
	Client    *util.Client
	Providers []types.Provider
	Pages     types.PageFetcher
	// Curated serves the posted-at backfill; by default a GitHub provider
	// with date scraping on.
	Curated types.Provider

	Logger *log.Logger
	Now    func() time.Time

	clientOnce sync.Once
	running    atomic.Bool
	status     atomic.Value // types.RunStatus
}

// Outcome is what one RunOnce produced.
type Outcome struct {
	Result   pipeline.Result `json:"result"`
	Saved    store.SaveStats `json:"saved"`
	Notified int             `json:"notified"`
	Seeds    int             `json:"mail_seeds"`
	Warnings []string        `json:"warnings,omitempty"`
	Only     []domain.Source `json:"only,omitempty"`
}

func (r *Runner) logger() *log.Logger {
	if r.Logger == nil {
		return log.Default()
	}
	return r.Logger
}

func (r *Runner) now() time.Time {
	if r.Now == nil {
		return time.Now().UTC()
	}
	return r.Now().UTC()
}

func (r *Runner) config() config.Config {
	if r.Live != nil {
		if c, ok := r.Live.Load().(config.Config); ok {
			return c
		}
	}
	return r.Cfg
}

// rules reads pipeline.rules_file on every run so edits apply without a
// restart. A broken file falls back to the built-in terms.
func (r *Runner) rules(cfg config.Config) *classify.Classifier {
	rules, err := NewRules(cfg)
	if err != nil {
		r.logger().Printf("[poll] rules file=%q err=%v", cfg.Pipeline.RulesFile, err)
		return classify.Default()
	}
	return rules
}

func (r *Runner) client() *util.Client {
	r.clientOnce.Do(func() {
		if r.Client == nil {
			r.Client = NewClient(r.config())
		}
	})
	return r.Client
}

// Status is the last-run summary.
func (r *Runner) Status() types.RunStatus {
	if v, ok := r.status.Load().(types.RunStatus); ok {
		return v
	}
	return types.RunStatus{}
}

func (r *Runner) setStatus(fn func(*types.RunStatus)) {
	st := r.Status()
	fn(&st)
	r.status.Store(st)
}

// RunOnce runs the pipeline over the registry, the curated repos and the
// crawler seeds, then saves, notifies and emits events. only restricts the
// run to the named sources. The scheduler lock file, when configured, keeps
// a CLI run and the engine from overlapping.
func (r *Runner) RunOnce(ctx context.Context, reqID string, only ...domain.Source) (Outcome, error) {
	var out Outcome
	cfg := r.config()
	task := func(ctx context.Context) error {
		var err error
		out, err = r.run(ctx, cfg, reqID, only)
		return err
	}
	if lf := strings.TrimSpace(cfg.Scheduler.LockFile); lf != "" {
		task = scheduler.Locked(lf, task)
	}
	if !r.running.CompareAndSwap(false, true) {
		return out, ErrBusy
	}
	defer r.running.Store(false)

	err := task(ctx)
	return out, err
}

func (r *Runner) run(ctx context.Context, cfg config.Config, reqID string, only []domain.Source) (Outcome, error) {
	l := r.logger()
	out := Outcome{Only: only}
	started := r.now()

	r.setStatus(func(st *types.RunStatus) {
		st.Running = true
		st.LastRunAt = started.Format(time.RFC3339)
	})
	r.Hub.Emit(reqID, events.RunStarted, map[string]any{"only": only})

	out, err := r.execute(ctx, cfg, only, out)

	r.setStatus(func(st *types.RunStatus) {
		st.Running = false
		st.RunID = out.Result.RunID
		st.LastSaved = out.Saved.Created
		if err != nil {
			st.LastError = err.Error()
			return
		}
		st.LastError = ""
		st.LastOkAt = r.now().Format(time.RFC3339)
	})

	if err != nil {
		l.Printf("[poll] run_id=%s err=%v", out.Result.RunID, err)
		r.Hub.Emit(reqID, events.RunFailed, map[string]any{"run_id": out.Result.RunID, "error": err.Error()})
		return out, err
	}
	l.Printf("[poll] ok run_id=%s kept=%d created=%d updated=%d notified=%d",
		out.Result.RunID, len(out.Result.Jobs), out.Saved.Created, out.Saved.Updated, out.Notified)
	r.Hub.Emit(reqID, events.RunFinished, map[string]any{
		"run_id":   out.Result.RunID,
		"fetched":  out.Result.Stats.Fetched,
		"kept":     len(out.Result.Jobs),
		"created":  out.Saved.Created,
		"updated":  out.Saved.Updated,
		"notified": out.Notified,
	})
	return out, nil
}

func (r *Runner) execute(ctx context.Context, cfg config.Config, only []domain.Source, out Outcome) (Outcome, error) {
	l := r.logger()

	companies, v, err := config.LoadCompanies(cfg.CompaniesFile)
	if err != nil {
		return out, err
	}
	out.Warnings = append(out.Warnings, v.Warnings...)
	for _, w := range v.Warnings {
		l.Printf("[poll] companies warn=%q", w)
	}

	var seeds []string
	if r.Mailbox != nil && wants(only, domain.SourceCrawler) {
		mb := cfg.Sources.Crawler.Mailbox
		seeds, err = mailseed.Collect(ctx, r.Mailbox, mailseed.Options{
			SubjectAny: mb.SubjectAny,
			SinceDays:  mb.SinceDays,
			Now:        r.Now,
			Logger:     l,
		})
		if err != nil {
			// the rest of the run does not depend on the mailbox
			l.Printf("[poll] mailbox err=%v", err)
			out.Warnings = append(out.Warnings, err.Error())
		}
		out.Seeds = len(seeds)
	}

	var entries []domain.CompanyEntry
	for _, e := range pipeline.Entries(cfg, companies, seeds...) {
		if wants(only, e.Provider) {
			entries = append(entries, e)
		}
	}

	providers := r.Providers
	if providers == nil {
		providers = Providers(cfg, r.client(), l)
	}
	pages := r.Pages
	if pages == nil {
		pages = r.client()
	}
	deps := pipeline.Deps{
		Rules:     r.rules(cfg),
		Providers: providers,
		Pages:     pages,
		Logger:    l,
		Now:       r.Now,
	}
	if r.Store != nil {
		deps.Provenance = r.Store
	}

	res, err := pipeline.New(pipeline.OptionsFromConfig(cfg), deps).Run(ctx, entries)
	out.Result = res
	if err != nil {
		return out, err
	}

	var isNew func(domain.NormalizedJob) bool
	if r.Store != nil {
		saved, saveErr := store.SaveJobs(ctx, r.Store, res.Jobs)
		out.Saved = saved
		isNew = func(j domain.NormalizedJob) bool { return saved.New[store.Key(j)] }

		run := store.Run{
			ID:         res.RunID,
			Provider:   runLabel(only),
			StartedAt:  res.StartedAt,
			FinishedAt: res.FinishedAt,
			Fetched:    res.Stats.Fetched,
			Kept:       len(res.Jobs),
			Errors:     len(res.Stats.Failures) + saved.Failed,
		}
		if saveErr != nil {
			run.Notes = saveErr.Error()
		}
		if err := r.Store.SaveRun(ctx, run); err != nil {
			return out, fmt.Errorf("poll save run: %w", err)
		}
		if saveErr != nil {
			l.Printf("[poll] save failed=%d first=%v", saved.Failed, saveErr)
		}
	}

	if r.Digest != nil {
		n, err := r.Digest.Notify(ctx, res.Jobs, isNew)
		if err != nil {
			l.Printf("[notify] err=%v", err)
			out.Warnings = append(out.Warnings, err.Error())
		}
		out.Notified = n
	}
	return out, nil
}

// IngestCurated runs the pipeline over the curated GitHub lists only.
func (r *Runner) IngestCurated(ctx context.Context, reqID string) (Outcome, error) {
	out, err := r.RunOnce(ctx, reqID, domain.SourceGitHub)
	if err != nil {
		return out, err
	}
	r.Hub.Emit(reqID, events.IngestCurated, map[string]any{
		"source":  domain.SourceGitHub,
		"fetched": out.Result.Stats.Fetched,
		"saved":   out.Saved.Created + out.Saved.Updated,
	})
	return out, nil
}

// BackfillPostedAt re-reads the curated lists with date scraping on and
// fills posted_at on stored GitHub rows that have none. With date inference
// enabled, rows the lists cannot date fall back to the provenance chain.
func (r *Runner) BackfillPostedAt(ctx context.Context, reqID string) (store.BackfillResult, error) {
	if r.Store == nil {
		return store.BackfillResult{Provider: domain.SourceGitHub}, errors.New("backfill needs a store")
	}
	l := r.logger()
	cfg := r.config()

	curated := r.Curated
	if curated == nil {
		gh := cfg.Sources.GitHub
		curated = github.New(r.client(), github.Options{RemoteOnly: gh.RemoteOnly, USOnly: gh.USOnly, DateScrape: true})
	}
	norm := normalize.New(r.rules(cfg), cfg.Enrichment.MaxChars, r.Now)

	dates := map[string]time.Time{}
	for _, repo := range cfg.Sources.GitHub.Repos {
		res := curated.Fetch(ctx, domain.CompanyEntry{Provider: domain.SourceGitHub, Company: repo, Token: repo})
		if !res.OK() {
			l.Printf("[backfill] repo=%q failure=%q", repo, res.Failure)
		}
		for _, raw := range res.Postings {
			j, ok := norm.Normalize(raw)
			if !ok || j.ExternalID == "" {
				continue
			}
			if j.PostedAt == nil && cfg.Sources.GitHub.DateInference {
				j.PostedAt = dateparse.Infer(ctx, j.ExternalID, r.Store)
			}
			if j.PostedAt != nil {
				dates[j.ExternalID] = *j.PostedAt
			}
		}
	}
	if err := ctx.Err(); err != nil {
		return store.BackfillResult{Provider: domain.SourceGitHub}, err
	}

	res, err := store.BackfillPostedAt(ctx, r.Store, domain.SourceGitHub, dates)
	if err != nil {
		return res, err
	}
	l.Printf("[backfill] provider=github checked=%d updated=%d missing=%d", res.Checked, res.Updated, res.Missing)
	r.Hub.Emit(reqID, events.BackfillDone, res)
	return res, nil
}

func wants(only []domain.Source, src domain.Source) bool {
	if len(only) == 0 {
		return true
	}
	for _, s := range only {
		if s == src {
			return true
		}
	}
	return false
}

func runLabel(only []domain.Source) string {
	if len(only) == 0 {
		return "all"
	}
	parts := make([]string, len(only))
	for i, s := range only {
		parts[i] = string(s)
	}
	return strings.Join(parts, ",")
}
