package pipeline

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/nelson-zack/job-radar/internal/dateparse"
	"github.com/nelson-zack/job-radar/internal/domain"
	"github.com/nelson-zack/job-radar/internal/normalize"
)

// enrich runs the three top-up passes one after the other. Each pass picks
// its candidates before dispatch; each task owns exactly one record and one
// page slot, so no locking is needed.
func (o *Orchestrator) enrich(ctx context.Context, jobs []domain.NormalizedJob, st *Stats) {
	pages := make([]string, len(jobs))

	if o.pages != nil {
		st.DescTopUp = o.fillSnippets(ctx, jobs, pages, o.descCandidates(jobs))
		if o.opts.JuniorOnly || o.opts.Relax {
			st.JuniorTopUp = o.fillSnippets(ctx, jobs, pages, o.juniorCandidates(jobs))
		}
	}
	st.DateBackfill = o.backfillDates(ctx, jobs, pages, st)

	for i := range jobs {
		o.norm.Refresh(&jobs[i])
	}
}

// descCandidates selects snippet-less records per source, up to
// cap minus the records of that source that already carry a snippet.
func (o *Orchestrator) descCandidates(jobs []domain.NormalizedJob) []int {
	have := map[domain.Source]int{}
	for i := range jobs {
		if jobs[i].DescriptionSnippet != nil {
			have[jobs[i].Source]++
		}
	}
	budget := map[domain.Source]int{}
	var out []int
	for i := range jobs {
		j := &jobs[i]
		if j.DescriptionSnippet != nil {
			continue
		}
		src := j.Source
		if _, ok := budget[src]; !ok {
			budget[src] = o.opts.descCap(src) - have[src]
		}
		if budget[src] <= 0 {
			continue
		}
		budget[src]--
		out = append(out, i)
	}
	return out
}

// juniorCandidates picks engineering-looking, non-senior records still
// without a snippet, explicit-junior titles first, under one global cap.
func (o *Orchestrator) juniorCandidates(jobs []domain.NormalizedJob) []int {
	var out []int
	for i := range jobs {
		j := &jobs[i]
		if j.DescriptionSnippet != nil {
			continue
		}
		if !o.rules.LooksLikeEngineering(j.Title) || o.rules.HasSeniorMarker(j.Title) {
			continue
		}
		out = append(out, i)
	}
	sort.SliceStable(out, func(a, b int) bool {
		return o.rules.IsExplicitJunior(jobs[out[a]].Title) && !o.rules.IsExplicitJunior(jobs[out[b]].Title)
	})
	if len(out) > o.opts.JuniorTopUpCap {
		out = out[:o.opts.JuniorTopUpCap]
	}
	return out
}

// fillSnippets fetches the detail page for each candidate and fills a
// missing snippet. Failures leave the record untouched.
func (o *Orchestrator) fillSnippets(ctx context.Context, jobs []domain.NormalizedJob, pages []string, idx []int) int {
	if len(idx) == 0 {
		return 0
	}
	filled := make([]bool, len(idx))

	var g errgroup.Group
	g.SetLimit(o.opts.EnrichWorkers)
	for n, i := range idx {
		g.Go(func() error {
			body := o.page(ctx, jobs[i].URL, pages, i)
			if body == "" {
				return nil
			}
			if s := normalize.Snippet(normalize.PageText(body), o.norm.MaxChars()); s != nil && jobs[i].DescriptionSnippet == nil {
				jobs[i].DescriptionSnippet = s
				filled[n] = true
			}
			return nil
		})
	}
	_ = g.Wait()
	return count(filled)
}

// backfillDates fills posted_at for undated records: text we already hold
// first, then a capped number of fresh fetches, then provenance inference
// for curated-list postings.
func (o *Orchestrator) backfillDates(ctx context.Context, jobs []domain.NormalizedJob, pages []string, st *Stats) int {
	var local, remote []int
	for i := range jobs {
		if jobs[i].PostedAt != nil {
			continue
		}
		if jobs[i].DescriptionSnippet != nil || pages[i] != "" || o.pages == nil {
			local = append(local, i)
		} else if len(remote) < o.opts.DateBackfillCap {
			remote = append(remote, i)
		} else {
			local = append(local, i)
		}
	}
	if len(local)+len(remote) == 0 {
		return 0
	}

	now := o.now()
	found := make([]bool, len(jobs))
	inferred := make([]bool, len(jobs))

	resolve := func(i int, fetch bool) {
		j := &jobs[i]
		if t := dateparse.FindInText(j.SnippetText(), now); t != nil {
			j.PostedAt, found[i] = t, true
			return
		}
		body := pages[i]
		if body == "" && fetch {
			body = o.page(ctx, j.URL, pages, i)
		}
		if body != "" {
			t := normalize.JSONLDDatePosted(body)
			if t == nil {
				t = dateparse.FindInText(normalize.PageText(body), now)
			}
			if t != nil {
				j.PostedAt, found[i] = t, true
				return
			}
		}
		if j.Source == domain.SourceGitHub && o.opts.DateInference && o.provenance != nil {
			if t := dateparse.Infer(ctx, j.ExternalID, o.provenance); t != nil {
				j.PostedAt, inferred[i] = t, true
			}
		}
	}

	var g errgroup.Group
	g.SetLimit(o.opts.EnrichWorkers)
	for _, i := range local {
		g.Go(func() error { resolve(i, false); return nil })
	}
	for _, i := range remote {
		g.Go(func() error { resolve(i, true); return nil })
	}
	_ = g.Wait()

	for _, i := range append(local, remote...) {
		switch {
		case found[i]:
			st.Provenance.Parsed++
		case inferred[i]:
			st.Provenance.Inferred++
		default:
			st.Provenance.Undated++
		}
	}
	return count(found) + count(inferred)
}

// page returns the cached body for slot i or fetches it once.
func (o *Orchestrator) page(ctx context.Context, url string, pages []string, i int) string {
	if pages[i] != "" {
		return pages[i]
	}
	if o.pages == nil || url == "" {
		return ""
	}
	fctx, cancel := context.WithTimeout(ctx, o.opts.DescTimeout)
	defer cancel()
	p := o.pages.FetchPage(fctx, url)
	if !p.OK() {
		o.log.Printf("[enrich] url=%q err=%s", url, p.Failure)
		return ""
	}
	pages[i] = p.Body
	return p.Body
}

func count(xs []bool) int {
	n := 0
	for _, x := range xs {
		if x {
			n++
		}
	}
	return n
}
