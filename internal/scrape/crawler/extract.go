package crawler

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/nelson-zack/job-radar/internal/normalize"
	"github.com/nelson-zack/job-radar/internal/scrape/util"
)

var (
	reJobWords     = regexp.MustCompile(`(?i)(apply|responsibilit|qualification|what you'll|what you will|requirements?)`)
	reLandingTitle = regexp.MustCompile(`(?i)(careers|search jobs|join us|because impact matters)`)
	reJobbyLink    = regexp.MustCompile(`(?i)\b(jobs?|careers?|openings?|positions?|opportunit(?:y|ies)|apply|join[- ]?us)\b|gh_jid=`)
)

var atsHosts = []string{"greenhouse.io", "lever.co", "workday.com", "bamboohr.com", "jobvite.com"}

// Extracted is one posting found on a crawled page.
type Extracted struct {
	Title           string
	Company         string
	Location        string
	DescriptionHTML string
	DatePosted      string
}

func parse(html string) *goquery.Document {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}
	return doc
}

// pageTitle prefers h1, then og:title or meta title, then <title>.
func pageTitle(doc *goquery.Document) string {
	if t := util.CleanText(doc.Find("h1").First().Text()); t != "" {
		return t
	}
	for _, sel := range []string{`meta[property="og:title"]`, `meta[name="title"]`} {
		if c, ok := doc.Find(sel).First().Attr("content"); ok && strings.TrimSpace(c) != "" {
			return strings.TrimSpace(c)
		}
	}
	return util.CleanText(doc.Find("title").First().Text())
}

// IsJobPage decides whether a page is a single posting rather than a
// landing or listing page.
func IsJobPage(html, pageURL string) bool {
	doc := parse(html)
	if doc == nil {
		return false
	}
	title := pageTitle(doc)
	if reLandingTitle.MatchString(title) {
		return false
	}
	if len(normalize.ExtractJobPostings(html)) > 0 {
		return true
	}
	text := strings.ToLower(util.CleanText(doc.Text()))
	if !reJobWords.MatchString(text) {
		return false
	}
	hasApply := false
	doc.Find("a, button").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if strings.Contains(strings.ToLower(s.Text()), "apply") {
			hasApply = true
			return false
		}
		return true
	})
	host := util.HostOf(pageURL)
	return hasApply || hasAny(host, atsHosts) || strings.Contains(text, "apply")
}

// Extract reads JSON-LD first and falls back to the largest content block
// that mentions job words.
func Extract(html, pageURL string) (Extracted, bool) {
	doc := parse(html)
	if doc == nil {
		return Extracted{}, false
	}

	if jps := normalize.ExtractJobPostings(html); len(jps) > 0 {
		jp := jps[0]
		title := util.FirstNonEmpty(jp.Title, pageTitle(doc))
		if reLandingTitle.MatchString(title) {
			return Extracted{}, false
		}
		loc := jp.Location
		if loc == "" {
			loc = util.FirstNonEmpty(util.FindLocation(doc), jp.LocationType)
		}
		return Extracted{
			Title:           title,
			Company:         jp.Company,
			Location:        loc,
			DescriptionHTML: jp.Description,
			DatePosted:      jp.DatePosted,
		}, true
	}

	title := pageTitle(doc)
	if reLandingTitle.MatchString(title) {
		return Extracted{}, false
	}
	desc := ""
	best := 0
	for _, sel := range []string{"article", "main", "section", "div"} {
		doc.Find(sel).Each(func(_ int, s *goquery.Selection) {
			txt := util.CleanText(s.Text())
			if len(txt) > 300 && len(txt) > best && reJobWords.MatchString(txt) {
				if h, err := s.Html(); err == nil {
					best, desc = len(txt), h
				}
			}
		})
	}
	if title == "" && desc == "" {
		return Extracted{}, false
	}
	return Extracted{
		Title:           title,
		Location:        util.FindLocation(doc),
		DescriptionHTML: desc,
	}, true
}

// links returns same-host hrefs whose path or query looks job related.
func links(html, base string) []string {
	doc := parse(html)
	if doc == nil {
		return nil
	}
	b, err := url.Parse(base)
	if err != nil {
		return nil
	}
	var out []string
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href := strings.TrimSpace(a.AttrOr("href", ""))
		if href == "" || strings.HasPrefix(href, "javascript:") || strings.HasPrefix(href, "mailto:") {
			return
		}
		h, err := url.Parse(href)
		if err != nil {
			return
		}
		abs := b.ResolveReference(h)
		if !strings.EqualFold(abs.Host, b.Host) {
			return
		}
		if !reJobbyLink.MatchString(strings.ToLower(abs.Path + "?" + abs.RawQuery)) {
			return
		}
		out = append(out, abs.String())
	})
	return out
}
