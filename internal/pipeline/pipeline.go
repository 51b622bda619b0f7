// Package pipeline runs one batch through fetch, normalize, filter, enrich,
// score, threshold and dedup.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/nelson-zack/job-radar/internal/classify"
	"github.com/nelson-zack/job-radar/internal/dateparse"
	"github.com/nelson-zack/job-radar/internal/dedup"
	"github.com/nelson-zack/job-radar/internal/domain"
	"github.com/nelson-zack/job-radar/internal/normalize"
	"github.com/nelson-zack/job-radar/internal/rank"
	"github.com/nelson-zack/job-radar/internal/scrape/types"
)

// Deps are the collaborators a run needs. Only Providers is required for a
// useful run; a nil Pages disables every enrichment fetch.
type Deps struct {
	Rules      *classify.Classifier
	Providers  []types.Provider
	Pages      types.PageFetcher
	Provenance dateparse.Provenance
	Logger     *log.Logger
	Now        func() time.Time
}

type Orchestrator struct {
	opts       Options
	rules      *classify.Classifier
	norm       *normalize.Normalizer
	providers  map[domain.Source]types.Provider
	pages      types.PageFetcher
	provenance dateparse.Provenance
	log        *log.Logger
	now        func() time.Time
}

func New(opts Options, d Deps) *Orchestrator {
	o := &Orchestrator{
		opts:       opts.withDefaults(),
		rules:      d.Rules,
		providers:  map[domain.Source]types.Provider{},
		pages:      d.Pages,
		provenance: d.Provenance,
		log:        d.Logger,
		now:        d.Now,
	}
	if o.rules == nil {
		o.rules = classify.Default()
	}
	if o.log == nil {
		o.log = log.Default()
	}
	if o.now == nil {
		o.now = func() time.Time { return time.Now().UTC() }
	}
	for _, p := range d.Providers {
		if p != nil {
			o.providers[p.Name()] = p
		}
	}
	o.norm = normalize.New(o.rules, o.opts.MaxChars, o.now)
	return o
}

// Quiet returns a logger that discards output.
func Quiet() *log.Logger { return log.New(io.Discard, "", 0) }

// Result is the OUTPUT of one run.
type Result struct {
	RunID      string                 `json:"run_id"`
	StartedAt  time.Time              `json:"started_at"`
	FinishedAt time.Time              `json:"finished_at"`
	Raw        []domain.NormalizedJob `json:"-"`
	Jobs       []domain.NormalizedJob `json:"jobs"`
	Stats      Stats                  `json:"stats"`
}

// Run executes the whole state machine over entries. It only returns an
// error when ctx is cancelled; provider and page failures are recorded in
// Stats and never abort the batch.
func (o *Orchestrator) Run(ctx context.Context, entries []domain.CompanyEntry) (Result, error) {
	res := Result{RunID: uuid.NewString(), StartedAt: o.now(), Stats: newStats()}
	st := &res.Stats

	raws := o.fetch(ctx, entries, st)
	if err := ctx.Err(); err != nil {
		return res, fmt.Errorf("pipeline fetch: %w", err)
	}

	jobs := o.normalizeAll(raws, st)
	res.Raw = append([]domain.NormalizedJob(nil), jobs...)
	o.diagnose(jobs, st)

	jobs = o.basicFilter(jobs, st)

	o.enrich(ctx, jobs, st)
	if err := ctx.Err(); err != nil {
		return res, fmt.Errorf("pipeline enrich: %w", err)
	}

	if o.opts.USRemoteOnly {
		jobs = o.remoteFilter(jobs, st)
	}
	if o.opts.EntryExclusions {
		jobs = o.entryFilter(jobs, st)
	}
	jobs = o.recencyFilter(jobs, st)

	res.Jobs = o.rankAndCollapse(jobs, st)
	attachPriority(res.Jobs, entries)
	res.FinishedAt = o.now()

	st.Log(o.log)
	return res, nil
}

// fetch fans one task out per registry entry. Results land in a slot per
// entry so the batch order follows the registry.
func (o *Orchestrator) fetch(ctx context.Context, entries []domain.CompanyEntry, st *Stats) []domain.RawPosting {
	st.Entries = len(entries)
	slots := make([]types.FetchResult, len(entries))

	var g errgroup.Group
	g.SetLimit(o.opts.FetchWorkers)

	for i, e := range entries {
		p, ok := o.providers[e.Provider]
		if !ok {
			o.log.Printf("[pipeline] skip company=%q provider=%q: no provider registered", e.Company, e.Provider)
			st.Skipped++
			continue
		}
		g.Go(func() error {
			fctx, cancel := context.WithTimeout(ctx, o.opts.FetchTimeout)
			defer cancel()
			slots[i] = safeFetch(fctx, p, e)
			return nil
		})
	}
	_ = g.Wait()

	var out []domain.RawPosting
	for i, r := range slots {
		if r.Source == "" {
			continue
		}
		if !r.OK() {
			o.log.Printf("[ats:%s] company=%q err=%s", r.Source, entries[i].Company, r.Failure)
			st.Failures = append(st.Failures, Failure{Source: r.Source, Company: entries[i].Company, Reason: r.Failure})
		}
		for _, raw := range r.Postings {
			if raw.Source == "" {
				raw.Source = r.Source
			}
			out = append(out, raw)
			st.FetchedBySource[raw.Source]++
		}
	}
	st.Fetched = len(out)
	return out
}

func safeFetch(ctx context.Context, p types.Provider, e domain.CompanyEntry) (res types.FetchResult) {
	defer func() {
		if r := recover(); r != nil {
			res = types.Failed(p.Name(), e.Company, fmt.Sprintf("panic: %v", r))
		}
	}()
	res = p.Fetch(ctx, e)
	if res.Source == "" {
		res.Source = p.Name()
	}
	return res
}

func (o *Orchestrator) normalizeAll(raws []domain.RawPosting, st *Stats) []domain.NormalizedJob {
	out := make([]domain.NormalizedJob, 0, len(raws))
	for _, raw := range raws {
		job, ok := o.norm.Normalize(raw)
		if !ok {
			st.Malformed++
			continue
		}
		out = append(out, job)
	}
	return out
}

func (o *Orchestrator) diagnose(jobs []domain.NormalizedJob, st *Stats) {
	now := o.now()
	for i := range jobs {
		j := &jobs[i]
		if j.DescriptionSnippet != nil {
			st.WithSnippet++
			st.WithSnippetBySource[j.Source]++
		}
		if o.rules.LooksLikeEngineering(j.Title) {
			st.EngineeringLike++
		}
		if j.PostedAt != nil {
			st.Dated++
			if o.opts.RecentDays > 0 && classify.IsRecent(j.PostedAt, o.opts.RecentDays, now) {
				st.Recent++
			}
		}
	}
}

// basicFilter applies the eligibility gates in order.
func (o *Orchestrator) basicFilter(jobs []domain.NormalizedJob, st *Stats) []domain.NormalizedJob {
	out := jobs[:0:0]
	for i := range jobs {
		if reason := o.gate(&jobs[i], st); reason != "" {
			st.exclude(reason)
			continue
		}
		out = append(out, jobs[i])
	}
	st.BasicKept = len(out)
	return out
}

// gate returns the exclusion reason, or "" when j passes.
func (o *Orchestrator) gate(j *domain.NormalizedJob, st *Stats) string {
	if strings.TrimSpace(j.Title) == "" {
		return DropNoTitle
	}
	if !o.opts.JuniorOnly && !o.opts.USRemoteOnly {
		return ""
	}
	if !o.rules.LooksLikeEngineering(j.Title) {
		return DropNotEng
	}
	if o.opts.JuniorOnly {
		if o.rules.HasSeniorMarker(j.Title) {
			return DropSenior
		}
		// neutral titles pass; explicit ones are only counted
		if o.rules.IsJuniorTitleOrDesc(j.Title, j.SnippetText(), o.opts.Relax) {
			st.ExplicitJr++
		}
	}
	if o.opts.USRemoteOnly && !o.rules.PassesRemoteGate(j.LocationText()) {
		return DropNotUSRemote
	}
	return ""
}

// remoteFilter re-checks the US-remote gate once snippets are known. A
// record with no location passes unless its description places it outside
// the US.
func (o *Orchestrator) remoteFilter(jobs []domain.NormalizedJob, st *Stats) []domain.NormalizedJob {
	out := jobs[:0:0]
	for i := range jobs {
		j := &jobs[i]
		loc, snip := j.LocationText(), j.SnippetText()
		judged := strings.TrimSpace(loc) != "" || o.rules.HasNonUSMarker(snip)
		if judged && !o.rules.LooksRemoteUS(loc, snip) {
			st.exclude(DropNotUSRemote)
			continue
		}
		out = append(out, *j)
	}
	return out
}

func (o *Orchestrator) entryFilter(jobs []domain.NormalizedJob, st *Stats) []domain.NormalizedJob {
	if st.EntryKept == nil {
		st.EntryKept = map[string]int{}
	}
	out := jobs[:0:0]
	for i := range jobs {
		d := o.rules.FilterJob(&jobs[i])
		if !d.Keep {
			st.exclude("entry:" + d.Reason)
			continue
		}
		st.EntryKept[d.Reason]++
		out = append(out, jobs[i])
	}
	return out
}

func (o *Orchestrator) recencyFilter(jobs []domain.NormalizedJob, st *Stats) []domain.NormalizedJob {
	if o.opts.RecentDays <= 0 {
		return jobs
	}
	now := o.now()
	out := jobs[:0:0]
	for i := range jobs {
		j := &jobs[i]
		switch {
		case j.PostedAt == nil:
			if o.opts.RequireDate {
				st.exclude(DropUndated)
				continue
			}
		case !classify.IsRecent(j.PostedAt, o.opts.RecentDays, now):
			st.exclude(DropStale)
			continue
		}
		out = append(out, *j)
	}
	return out
}

// rankAndCollapse scores, thresholds, sorts, ranks by URL and then
// deduplicates, stamping each survivor with its best rank and score.
func (o *Orchestrator) rankAndCollapse(jobs []domain.NormalizedJob, st *Stats) []domain.NormalizedJob {
	sc := rank.NewSkillScorer(o.opts.SkillsAny, o.opts.SkillsAll, o.opts.SkillsHard, o.rules.LooksLikeEngineering)

	scored, gated := rank.ScoreAll(sc, jobs)
	if gated > 0 {
		st.Excluded[DropSkills] += gated
	}
	scored, dropped := rank.Threshold(scored, o.opts.MinScore)
	if dropped > 0 {
		st.Excluded[DropMinScore] += dropped
	}
	rank.Sort(scored)
	st.Scored = len(scored)

	ranks := rank.AssignRanks(scored)
	sorted := make([]domain.NormalizedJob, 0, len(scored))
	for i, s := range scored {
		if len(s.Matched) > 0 {
			st.Matched++
		}
		if i < 5 {
			st.TopByScore = append(st.TopByScore, fmt.Sprintf("%s [%d]", s.Job.Title, s.Score))
		}
		j := s.Job
		j.MatchedSkills = s.Matched
		sorted = append(sorted, j)
	}

	unique := dedup.Collapse(sorted)
	ranks.Apply(unique)
	st.Unique = len(unique)
	return unique
}

// attachPriority copies the registry priority onto output records by
// lowercased company name.
func attachPriority(jobs []domain.NormalizedJob, entries []domain.CompanyEntry) {
	byCompany := map[string]string{}
	for _, e := range entries {
		if name := strings.ToLower(strings.TrimSpace(e.Company)); name != "" && e.Priority != "" {
			byCompany[name] = e.Priority
		}
	}
	for i := range jobs {
		if p, ok := byCompany[strings.ToLower(strings.TrimSpace(jobs[i].Company))]; ok {
			jobs[i].CompanyPriority = p
		}
	}
}
