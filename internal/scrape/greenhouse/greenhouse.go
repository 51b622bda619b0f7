// Package greenhouse reads public Greenhouse job boards.
package greenhouse

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/nelson-zack/job-radar/internal/domain"
	"github.com/nelson-zack/job-radar/internal/scrape/types"
	"github.com/nelson-zack/job-radar/internal/scrape/util"
)

const (
	DefaultAPIBase   = "https://boards-api.greenhouse.io"
	DefaultBoardBase = "https://boards.greenhouse.io"
)

type Provider struct {
	c *util.Client

	APIBase   string
	BoardBase string
	// DescCap is how many detail pages to fetch per board.
	DescCap int
}

func New(c *util.Client, descCap int) *Provider {
	return &Provider{c: c, APIBase: DefaultAPIBase, BoardBase: DefaultBoardBase, DescCap: descCap}
}

func (p *Provider) Name() domain.Source { return domain.SourceGreenhouse }

type apiJob struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	AbsoluteURL string `json:"absolute_url"`
	Location    struct {
		Name string `json:"name"`
	} `json:"location"`
	UpdatedAt            string `json:"updated_at"`
	CreatedAt            string `json:"created_at"`
	OpenedAt             string `json:"opened_at"`
	InternalJobUpdatedAt string `json:"internal_job_updated_at"`
	Content              string `json:"content"`
}

type apiResponse struct {
	Jobs []apiJob `json:"jobs"`
}

func (p *Provider) Fetch(ctx context.Context, co domain.CompanyEntry) types.FetchResult {
	res := types.FetchResult{Source: domain.SourceGreenhouse, Company: co.Company}
	token := strings.TrimSpace(co.Token)
	if token == "" {
		res.Failure = "missing board token"
		return res
	}

	posts, err := p.fetchAPI(ctx, co.Company, token)
	if err != nil {
		// some boards only answer on the hosted HTML page
		log.Printf("[ats:greenhouse] company=%q api err=%v; trying board html", co.Company, err)
		posts, err = p.fetchBoard(ctx, co.Company, token)
		if err != nil {
			res.Failure = err.Error()
			return res
		}
	}

	util.AttachDetails(ctx, p.c, posts, p.DescCap)
	for i := range posts {
		if posts[i].Title == "" && posts[i].DetailHTML != "" {
			posts[i].Title = titleFromDetail(posts[i].DetailHTML)
		}
	}
	res.Postings = posts
	return res
}

func titleFromDetail(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	return util.CleanText(doc.Find("h1").First().Text())
}

func (p *Provider) fetchAPI(ctx context.Context, company, token string) ([]domain.RawPosting, error) {
	endpoint := fmt.Sprintf("%s/v1/boards/%s/jobs", strings.TrimRight(p.APIBase, "/"), url.PathEscape(token))
	var body apiResponse
	if err := p.c.GetJSON(ctx, endpoint, &body); err != nil {
		return nil, fmt.Errorf("greenhouse api: %w", err)
	}
	out := make([]domain.RawPosting, 0, len(body.Jobs))
	for _, j := range body.Jobs {
		out = append(out, domain.RawPosting{
			Source:          domain.SourceGreenhouse,
			ExternalID:      strconv.FormatInt(j.ID, 10),
			Company:         company,
			Title:           j.Title,
			URL:             util.CanonicalizeURL(j.AbsoluteURL),
			Location:        j.Location.Name,
			DescriptionHTML: j.Content,
			Timestamps:      []string{j.UpdatedAt, j.CreatedAt, j.OpenedAt, j.InternalJobUpdatedAt},
		})
	}
	return out, nil
}

// fetchBoard scrapes the hosted board for anchors to /<token>/jobs/<id>.
func (p *Provider) fetchBoard(ctx context.Context, company, token string) ([]domain.RawPosting, error) {
	base := strings.TrimRight(p.BoardBase, "/")
	boardURL := base + "/" + url.PathEscape(token)
	raw, err := p.c.Get(ctx, boardURL, "text/html")
	if err != nil {
		return nil, fmt.Errorf("greenhouse get board: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("greenhouse parse board html: %w", err)
	}

	seen := map[string]bool{}
	var out []domain.RawPosting
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		abs := util.ResolveURL(boardURL, strings.TrimSpace(href))
		if abs == "" || !strings.Contains(strings.ToLower(abs), "/jobs/") {
			return
		}
		id := extractJobID(abs)
		if id == "" || seen[id] {
			return
		}
		seen[id] = true

		title := util.CleanText(a.Text())
		if looksLikeJunkTitle(title) {
			title = ""
		}
		loc := util.CleanText(a.ParentsFiltered(".opening").First().Find(".location").First().Text())
		out = append(out, domain.RawPosting{
			Source:     domain.SourceGreenhouse,
			ExternalID: id,
			Company:    company,
			Title:      title,
			URL:        util.CanonicalizeURL(abs),
			Location:   loc,
		})
	})
	return out, nil
}

// extractJobID takes the run of digits after /jobs/.
func extractJobID(u string) string {
	_, tail, ok := strings.Cut(u, "/jobs/")
	if !ok {
		return ""
	}
	end := 0
	for end < len(tail) && tail[end] >= '0' && tail[end] <= '9' {
		end++
	}
	return tail[:end]
}

func looksLikeJunkTitle(t string) bool {
	l := strings.ToLower(t)
	return l == "" || strings.HasPrefix(l, "view") || strings.HasPrefix(l, "apply")
}
