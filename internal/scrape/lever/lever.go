// Package lever reads the public Lever postings API.
package lever

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/nelson-zack/job-radar/internal/domain"
	"github.com/nelson-zack/job-radar/internal/scrape/types"
	"github.com/nelson-zack/job-radar/internal/scrape/util"
)

const DefaultBase = "https://api.lever.co"

type Provider struct {
	c       *util.Client
	Base    string
	DescCap int
}

func New(c *util.Client, descCap int) *Provider {
	return &Provider{c: c, Base: DefaultBase, DescCap: descCap}
}

func (p *Provider) Name() domain.Source { return domain.SourceLever }

type posting struct {
	ID         string `json:"id"`
	Text       string `json:"text"` // title
	HostedURL  string `json:"hostedUrl"`
	ApplyURL   string `json:"applyUrl"`
	CreatedAt  int64  `json:"createdAt"` // ms epoch
	Categories struct {
		Location string `json:"location"`
		Team     string `json:"team"`
	} `json:"categories"`
	Description      string `json:"description"`
	DescriptionPlain string `json:"descriptionPlain"`
}

func (p *Provider) Fetch(ctx context.Context, co domain.CompanyEntry) types.FetchResult {
	token := strings.TrimSpace(co.Token)
	if token == "" {
		return types.Failed(domain.SourceLever, co.Company, "missing site token")
	}
	endpoint := fmt.Sprintf("%s/v0/postings/%s?mode=json", strings.TrimRight(p.Base, "/"), url.PathEscape(token))

	var list []posting
	if err := p.c.GetJSON(ctx, endpoint, &list); err != nil {
		return types.Failed(domain.SourceLever, co.Company, fmt.Sprintf("lever api: %v", err))
	}

	out := make([]domain.RawPosting, 0, len(list))
	for _, lp := range list {
		rp := domain.RawPosting{
			Source:          domain.SourceLever,
			ExternalID:      lp.ID,
			Company:         co.Company,
			Title:           lp.Text,
			URL:             util.CanonicalizeURL(util.FirstNonEmpty(lp.HostedURL, lp.ApplyURL)),
			Location:        lp.Categories.Location,
			DescriptionHTML: util.FirstNonEmpty(lp.Description, lp.DescriptionPlain),
		}
		if lp.CreatedAt > 0 {
			rp.Timestamps = []string{strconv.FormatInt(lp.CreatedAt, 10)}
		}
		out = append(out, rp)
	}
	util.AttachDetails(ctx, p.c, out, p.DescCap)
	return types.FetchResult{Source: domain.SourceLever, Company: co.Company, Postings: out}
}
