package util

import (
	"context"
	"strings"

	"github.com/nelson-zack/job-radar/internal/domain"
	"github.com/nelson-zack/job-radar/internal/scrape/types"
)

// AttachDetails fetches the detail page for up to limit postings that carry
// no description yet and stores the body in DetailHTML. It returns how many
// pages arrived. Failed pages are skipped and do not use up the quota.
func AttachDetails(ctx context.Context, pf types.PageFetcher, posts []domain.RawPosting, limit int) int {
	if pf == nil || limit <= 0 {
		return 0
	}
	got := 0
	for i := range posts {
		if got >= limit || ctx.Err() != nil {
			break
		}
		p := &posts[i]
		if p.URL == "" || strings.TrimSpace(p.DescriptionHTML) != "" || p.DetailHTML != "" {
			continue
		}
		page := pf.FetchPage(ctx, p.URL)
		if !page.OK() {
			continue
		}
		p.DetailHTML = page.Body
		got++
	}
	return got
}
