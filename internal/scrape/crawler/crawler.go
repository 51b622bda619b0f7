// Package crawler walks company career sites from seed URLs and extracts
// single-posting pages.
package crawler

import (
	"context"
	"log"

	"github.com/nelson-zack/job-radar/internal/domain"
	"github.com/nelson-zack/job-radar/internal/scrape/types"
	"github.com/nelson-zack/job-radar/internal/scrape/util"
)

const (
	DefaultMaxDepth = 2
	DefaultMaxPages = 40
)

type Provider struct {
	pages    types.PageFetcher
	reg      *Registry
	log      *log.Logger
	maxDepth int
	maxPages int
}

// New builds a crawler. A nil registry means heuristics only; a nil logger
// means log.Default().
func New(pages types.PageFetcher, reg *Registry, maxDepth, maxPages int, l *log.Logger) *Provider {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	if l == nil {
		l = log.Default()
	}
	return &Provider{pages: pages, reg: reg, log: l, maxDepth: maxDepth, maxPages: maxPages}
}

func (p *Provider) Name() domain.Source { return domain.SourceCrawler }

// Fetch crawls one seed (the entry's Host) up to the page cap.
func (p *Provider) Fetch(ctx context.Context, co domain.CompanyEntry) types.FetchResult {
	f := NewFrontier(co.Host, p.maxDepth)
	if f.Host() == "" {
		return types.Failed(domain.SourceCrawler, co.Company, "invalid seed url")
	}

	var (
		out     []domain.RawPosting
		fetched int
		failed  int
		seen    = map[string]bool{}
	)
	for fetched < p.maxPages {
		if ctx.Err() != nil {
			break
		}
		u, depth, ok := f.Pop()
		if !ok {
			break
		}
		page := p.pages.FetchPage(ctx, u)
		fetched++
		if !page.OK() {
			failed++
			continue
		}

		if rp, ok := p.extract(page.Body, u, co); ok && !seen[rp.ExternalID] {
			seen[rp.ExternalID] = true
			out = append(out, rp)
		}
		f.Enqueue(u, links(page.Body, u), depth)
	}

	p.log.Printf("[crawler] seed=%q pages=%d failed=%d postings=%d", co.Host, fetched, failed, len(out))
	res := types.FetchResult{Source: domain.SourceCrawler, Company: co.Company, Postings: out}
	if fetched > 0 && failed == fetched {
		res.Failure = "no page could be fetched"
	}
	return res
}

func (p *Provider) extract(body, pageURL string, co domain.CompanyEntry) (domain.RawPosting, bool) {
	var (
		ex Extracted
		ok bool
	)
	if fn, found := p.reg.For(pageURL); found {
		ex, ok = fn(body, pageURL)
	} else if IsJobPage(body, pageURL) {
		ex, ok = Extract(body, pageURL)
	}
	if !ok || ex.Title == "" {
		return domain.RawPosting{}, false
	}
	rp := domain.RawPosting{
		Source:          domain.SourceCrawler,
		ExternalID:      util.URLHash(pageURL + ex.Title),
		Company:         util.FirstNonEmpty(ex.Company, co.Company, util.HostOf(pageURL)),
		Title:           ex.Title,
		URL:             util.CanonicalizeURL(pageURL),
		Location:        ex.Location,
		DescriptionHTML: ex.DescriptionHTML,
		DetailHTML:      body,
	}
	if ex.DatePosted != "" {
		rp.Timestamps = []string{ex.DatePosted}
	}
	return rp, true
}
