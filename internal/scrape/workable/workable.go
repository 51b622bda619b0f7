// Package workable reads Workable job boards, preferring the public widget
// feed and falling back to the hosted HTML board.
package workable

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/nelson-zack/job-radar/internal/domain"
	"github.com/nelson-zack/job-radar/internal/scrape/types"
	"github.com/nelson-zack/job-radar/internal/scrape/util"
)

const (
	DefaultApplyBase       = "https://apply.workable.com"
	DefaultSubdomainFormat = "https://%s.workable.com/"
)

type Provider struct {
	c *util.Client

	ApplyBase       string
	SubdomainFormat string
	DescCap         int
}

func New(c *util.Client, descCap int) *Provider {
	return &Provider{c: c, ApplyBase: DefaultApplyBase, SubdomainFormat: DefaultSubdomainFormat, DescCap: descCap}
}

func (p *Provider) Name() domain.Source { return domain.SourceWorkable }

type widgetJob struct {
	Title         string `json:"title"`
	Shortcode     string `json:"shortcode"`
	URL           string `json:"url"`
	Shortlink     string `json:"shortlink"`
	City          string `json:"city"`
	State         string `json:"state"`
	Country       string `json:"country"`
	Telecommuting bool   `json:"telecommuting"`
	PublishedOn   string `json:"published_on"`
	CreatedAt     string `json:"created_at"`
	Description   string `json:"description"`
}

type widgetResponse struct {
	Name string      `json:"name"`
	Jobs []widgetJob `json:"jobs"`
}

func (p *Provider) Fetch(ctx context.Context, co domain.CompanyEntry) types.FetchResult {
	token := strings.TrimSpace(co.Token)
	if token == "" {
		return types.Failed(domain.SourceWorkable, co.Company, "missing account token")
	}

	posts, err := p.fetchWidget(ctx, co.Company, token)
	if err != nil {
		log.Printf("[ats:workable] company=%q widget err=%v; trying board html", co.Company, err)
		posts, err = p.fetchBoard(ctx, co.Company, token)
		if err != nil {
			return types.Failed(domain.SourceWorkable, co.Company, err.Error())
		}
	}
	util.AttachDetails(ctx, p.c, posts, p.DescCap)
	return types.FetchResult{Source: domain.SourceWorkable, Company: co.Company, Postings: posts}
}

func (p *Provider) fetchWidget(ctx context.Context, company, token string) ([]domain.RawPosting, error) {
	endpoint := fmt.Sprintf("%s/api/v1/widget/accounts/%s", strings.TrimRight(p.ApplyBase, "/"), url.PathEscape(token))
	var body widgetResponse
	if err := p.c.GetJSON(ctx, endpoint, &body); err != nil {
		return nil, fmt.Errorf("workable widget: %w", err)
	}
	out := make([]domain.RawPosting, 0, len(body.Jobs))
	for _, j := range body.Jobs {
		u := util.FirstNonEmpty(j.URL, j.Shortlink)
		if u == "" && j.Shortcode != "" {
			u = fmt.Sprintf("%s/%s/j/%s/", DefaultApplyBase, token, j.Shortcode)
		}
		id := j.Shortcode
		if id == "" {
			id = util.URLHash(u)
		}
		out = append(out, domain.RawPosting{
			Source:          domain.SourceWorkable,
			ExternalID:      id,
			Company:         company,
			Title:           j.Title,
			URL:             util.CanonicalizeURL(u),
			Location:        widgetLocation(j),
			DescriptionHTML: j.Description,
			Timestamps:      []string{j.PublishedOn, j.CreatedAt},
		})
	}
	return out, nil
}

func widgetLocation(j widgetJob) string {
	var parts []string
	for _, s := range []string{j.City, j.State, j.Country} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	loc := strings.Join(parts, ", ")
	if j.Telecommuting {
		if loc == "" {
			return "Remote"
		}
		return "Remote - " + loc
	}
	return loc
}

var reRemoteWord = regexp.MustCompile(`(?i)\bremote\b`)

// fetchBoard scrapes the hosted board. Links on apply.workable.com look
// like /<token>/j/<code>/ and on the subdomain like /jobs/<id>. Board
// markup carries no reliable dates.
func (p *Provider) fetchBoard(ctx context.Context, company, token string) ([]domain.RawPosting, error) {
	candidates := []string{
		fmt.Sprintf("%s/%s/", strings.TrimRight(p.ApplyBase, "/"), url.PathEscape(token)),
		fmt.Sprintf(p.SubdomainFormat, token),
	}
	var (
		raw     []byte
		base    string
		lastErr error
	)
	for _, c := range candidates {
		b, err := p.c.Get(ctx, c, "text/html")
		if err == nil && len(bytes.TrimSpace(b)) > 0 {
			raw, base = b, c
			break
		}
		lastErr = err
	}
	if raw == nil {
		return nil, fmt.Errorf("workable board: %w", lastErr)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("workable parse board html: %w", err)
	}

	seen := map[string]bool{}
	var out []domain.RawPosting
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href := strings.TrimSpace(a.AttrOr("href", ""))
		if href == "" {
			return
		}
		isApply := strings.Contains(href, "/"+token+"/j/") || strings.HasPrefix(href, "/j/")
		isSub := strings.Contains(href, "/jobs/")
		if !isApply && !isSub {
			return
		}
		abs := util.CanonicalizeURL(util.ResolveURL(base, href))
		title := util.CleanText(a.Text())
		if abs == "" || title == "" || seen[abs] {
			return
		}
		seen[abs] = true

		parent := a.Parent()
		loc := util.CleanText(parent.Find(".location").First().Text())
		if loc == "" {
			parent.Find("span").EachWithBreak(func(_ int, s *goquery.Selection) bool {
				if t := util.CleanText(s.Text()); reRemoteWord.MatchString(t) {
					loc = t
					return false
				}
				return true
			})
		}
		out = append(out, domain.RawPosting{
			Source:     domain.SourceWorkable,
			ExternalID: util.URLHash(abs),
			Company:    company,
			Title:      title,
			URL:        abs,
			Location:   loc,
		})
	})
	return out, nil
}
