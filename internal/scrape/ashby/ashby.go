// Package ashby reads Ashby hosted job boards.
package ashby

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"strings"

	"github.com/nelson-zack/job-radar/internal/domain"
	"github.com/nelson-zack/job-radar/internal/scrape/types"
	"github.com/nelson-zack/job-radar/internal/scrape/util"
)

const (
	DefaultBoardBase = "https://jobs.ashbyhq.com"
	DefaultAPIBase   = "https://api.ashbyhq.com"
)

type Provider struct {
	c *util.Client

	BoardBase string
	APIBase   string
	DescCap   int
}

func New(c *util.Client, descCap int) *Provider {
	return &Provider{c: c, BoardBase: DefaultBoardBase, APIBase: DefaultAPIBase, DescCap: descCap}
}

func (p *Provider) Name() domain.Source { return domain.SourceAshby }

// posting covers both the org job-postings feed and the public posting API;
// the two disagree on key names.
type posting struct {
	ID               string `json:"id"`
	Title            string `json:"title"`
	JobTitle         string `json:"jobTitle"`
	JobPostingURL    string `json:"jobPostingUrl"`
	JobPostURL       string `json:"jobPostUrl"`
	JobURL           string `json:"jobUrl"`
	Slug             string `json:"slug"`
	Location         string `json:"location"`
	LocationText     string `json:"locationText"`
	CreatedAt        string `json:"createdAt"`
	UpdatedAt        string `json:"updatedAt"`
	PublishedAt      string `json:"publishedAt"`
	PublishedDate    string `json:"publishedDate"`
	DescriptionHTML  string `json:"descriptionHtml"`
	DescriptionPlain string `json:"descriptionPlain"`
	IsRemote         bool   `json:"isRemote"`
}

type envelope struct {
	JobPostings []posting `json:"jobPostings"`
	Jobs        []posting `json:"jobs"`
}

func (p *Provider) Fetch(ctx context.Context, co domain.CompanyEntry) types.FetchResult {
	token := strings.TrimSpace(co.Token)
	if token == "" {
		return types.Failed(domain.SourceAshby, co.Company, "missing org token")
	}

	list, err := p.list(ctx, fmt.Sprintf("%s/api/org/%s/job-postings", strings.TrimRight(p.BoardBase, "/"), url.PathEscape(token)))
	if err != nil {
		log.Printf("[ats:ashby] company=%q org feed err=%v; trying posting api", co.Company, err)
		list, err = p.list(ctx, fmt.Sprintf("%s/posting-api/job-board/%s", strings.TrimRight(p.APIBase, "/"), url.PathEscape(token)))
		if err != nil {
			return types.Failed(domain.SourceAshby, co.Company, err.Error())
		}
	}

	out := make([]domain.RawPosting, 0, len(list))
	for _, ap := range list {
		u := util.FirstNonEmpty(ap.JobPostingURL, ap.JobPostURL, ap.JobURL)
		if u == "" && ap.Slug != "" {
			u = fmt.Sprintf("%s/%s/job/%s", DefaultBoardBase, token, ap.Slug)
		}
		loc := util.FirstNonEmpty(ap.Location, ap.LocationText)
		if loc == "" && ap.IsRemote {
			loc = "Remote"
		}
		id := ap.ID
		if id == "" && u != "" {
			id = util.URLHash(u)
		}
		out = append(out, domain.RawPosting{
			Source:          domain.SourceAshby,
			ExternalID:      id,
			Company:         co.Company,
			Title:           util.FirstNonEmpty(ap.Title, ap.JobTitle),
			URL:             util.CanonicalizeURL(u),
			Location:        loc,
			DescriptionHTML: util.FirstNonEmpty(ap.DescriptionHTML, ap.DescriptionPlain),
			Timestamps:      []string{ap.CreatedAt, ap.UpdatedAt, ap.PublishedAt, ap.PublishedDate},
		})
	}
	util.AttachDetails(ctx, p.c, out, p.DescCap)
	return types.FetchResult{Source: domain.SourceAshby, Company: co.Company, Postings: out}
}

// list accepts either a bare array or an object wrapping jobPostings/jobs.
func (p *Provider) list(ctx context.Context, endpoint string) ([]posting, error) {
	body, err := p.c.Get(ctx, endpoint, "application/json")
	if err != nil {
		return nil, fmt.Errorf("ashby: %w", err)
	}
	body = bytes.TrimSpace(body)
	if bytes.HasPrefix(body, []byte("[")) {
		var arr []posting
		if err := json.Unmarshal(body, &arr); err != nil {
			return nil, fmt.Errorf("ashby decode: %w", err)
		}
		return arr, nil
	}
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("ashby decode: %w", err)
	}
	if len(env.JobPostings) > 0 {
		return env.JobPostings, nil
	}
	return env.Jobs, nil
}
