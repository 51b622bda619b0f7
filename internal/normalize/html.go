package normalize

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/nelson-zack/job-radar/internal/scrape/util"
)

// DefaultMaxChars caps description snippets.
const DefaultMaxChars = 1200

// Snippet converts HTML to plain text capped at maxChars runes. It returns nil
// for empty or unparseable input.
func Snippet(html string, maxChars int) *string {
	if strings.TrimSpace(html) == "" {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}
	doc.Find("script, style, noscript, template").Remove()
	doc.Find(blockSelectors).AfterHtml(" ")
	text := util.CleanText(doc.Text())
	if text == "" {
		return nil
	}
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	text = util.Truncate(text, maxChars)
	return &text
}

// blockSelectors get a trailing space so adjacent blocks do not run together.
const blockSelectors = "p, div, br, li, ul, ol, h1, h2, h3, h4, h5, h6, tr, td, th, section, article"

// JobPosting is the subset of a schema.org JobPosting we read.
type JobPosting struct {
	Title        string
	Company      string
	Description  string
	DatePosted   string
	Location     string
	LocationType string
}

// ExtractJobPostings returns every JobPosting object found in the page's
// JSON-LD blocks, including ones nested in arrays or @graph.
func ExtractJobPostings(html string) []JobPosting {
	if !strings.Contains(html, "ld+json") {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}
	var out []JobPosting
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		var v any
		if err := json.Unmarshal([]byte(strings.TrimSpace(s.Text())), &v); err != nil {
			return
		}
		walkLD(v, &out)
	})
	return out
}

func walkLD(v any, out *[]JobPosting) {
	switch t := v.(type) {
	case []any:
		for _, e := range t {
			walkLD(e, out)
		}
	case map[string]any:
		if g, ok := t["@graph"]; ok {
			walkLD(g, out)
		}
		if !isJobPosting(t["@type"]) {
			return
		}
		jp := JobPosting{
			Title:        str(t["title"]),
			Description:  str(t["description"]),
			DatePosted:   str(t["datePosted"]),
			LocationType: str(t["jobLocationType"]),
		}
		if org, ok := t["hiringOrganization"].(map[string]any); ok {
			jp.Company = str(org["name"])
		} else {
			jp.Company = str(t["hiringOrganization"])
		}
		jp.Location = ldLocation(t["jobLocation"])
		*out = append(*out, jp)
	}
}

func isJobPosting(v any) bool {
	switch t := v.(type) {
	case string:
		return strings.EqualFold(t, "JobPosting")
	case []any:
		for _, e := range t {
			if isJobPosting(e) {
				return true
			}
		}
	}
	return false
}

func ldLocation(v any) string {
	switch t := v.(type) {
	case []any:
		parts := make([]string, 0, len(t))
		for _, e := range t {
			if s := ldLocation(e); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "; ")
	case map[string]any:
		addr, ok := t["address"].(map[string]any)
		if !ok {
			return str(t["address"])
		}
		var parts []string
		for _, k := range []string{"addressLocality", "addressRegion", "addressCountry"} {
			if s := str(addr[k]); s != "" {
				parts = append(parts, s)
			} else if m, ok := addr[k].(map[string]any); ok {
				if s := str(m["name"]); s != "" {
					parts = append(parts, s)
				}
			}
		}
		return strings.Join(parts, ", ")
	}
	return ""
}

func str(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

// JSONLDDatePosted returns the first parseable datePosted on the page.
func JSONLDDatePosted(html string) *time.Time {
	for _, jp := range ExtractJobPostings(html) {
		if t := ParseTimestamp(jp.DatePosted); t != nil {
			return t
		}
	}
	return nil
}

// PageText picks the best description text from a fetched detail page:
// the JSON-LD description, then the main content region, then the body.
func PageText(html string) string {
	for _, jp := range ExtractJobPostings(html) {
		if jp.Description != "" {
			return jp.Description
		}
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	doc.Find("script, style, noscript, template, nav, header, footer").Remove()
	for _, sel := range []string{"#content", ".job-description", ".posting-page", "main", "article"} {
		if h, err := doc.Find(sel).First().Html(); err == nil && strings.TrimSpace(h) != "" {
			return h
		}
	}
	h, _ := doc.Find("body").Html()
	return h
}
