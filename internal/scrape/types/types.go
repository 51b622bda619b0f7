package types

import (
	"context"

	"github.com/nelson-zack/job-radar/internal/domain"
)

// FetchResult is the outcome of one provider fetch for one registry entry.
// A non-empty Failure means the fetch was recovered locally; Postings may
// still hold whatever arrived before the failure.
type FetchResult struct {
	Source   domain.Source
	Company  string
	Postings []domain.RawPosting
	Failure  string
}

func (r FetchResult) OK() bool { return r.Failure == "" }

// Failed builds a recovered-failure result.
func Failed(src domain.Source, company, reason string) FetchResult {
	return FetchResult{Source: src, Company: company, Failure: reason}
}

// Page is the outcome of a best-effort detail page fetch.
type Page struct {
	URL     string
	Body    string
	Status  int
	Failure string
}

func (p Page) OK() bool { return p.Failure == "" && p.Body != "" }

// Provider fetches raw postings for one registry entry. Implementations must
// not return an error for ordinary HTTP problems; they report them in Failure.
type Provider interface {
	Name() domain.Source
	Fetch(ctx context.Context, co domain.CompanyEntry) FetchResult
}

// PageFetcher retrieves detail pages for enrichment.
type PageFetcher interface {
	FetchPage(ctx context.Context, url string) Page
}

// RunStatus is the last-run summary served by the API.
type RunStatus struct {
	RunID     string `json:"run_id"`
	LastRunAt string `json:"last_run_at"`
	LastOkAt  string `json:"last_ok_at"`
	LastError string `json:"last_error"`
	LastSaved int    `json:"last_saved"`
	Running   bool   `json:"running"`
}
