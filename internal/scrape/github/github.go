// Package github reads curated new-grad job lists kept as README tables in
// public GitHub repositories.
package github

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/nelson-zack/job-radar/internal/domain"
	"github.com/nelson-zack/job-radar/internal/scrape/types"
	"github.com/nelson-zack/job-radar/internal/scrape/util"
)

const (
	DefaultRawBase = "https://raw.githubusercontent.com"
	defaultTitle   = "Software Engineer (New Grad)"
)

// DefaultRepos are the lists used when the config names none.
var DefaultRepos = []string{
	"https://github.com/SimplifyJobs/New-Grad-Positions",
	"https://github.com/vanshb03/New-Grad-2026",
	"https://github.com/speedyapply/2026-SWE-College-Jobs/blob/main/NEW_GRAD_USA.md",
}

type Options struct {
	RemoteOnly bool
	USOnly     bool
	// DateScrape copies the row's date or age cell into DateText.
	DateScrape bool
}

type Provider struct {
	c    *util.Client
	opts Options

	RawBase string
}

func New(c *util.Client, opts Options) *Provider {
	return &Provider{c: c, opts: opts, RawBase: DefaultRawBase}
}

func (p *Provider) Name() domain.Source { return domain.SourceGitHub }

// row is one listing before filtering.
type row struct {
	company, title, location, url string
	date, age                    string
}

func (p *Provider) Fetch(ctx context.Context, co domain.CompanyEntry) types.FetchResult {
	src := util.FirstNonEmpty(co.Token, co.Host, co.Company)
	if src == "" {
		return types.Failed(domain.SourceGitHub, co.Company, "missing repository")
	}
	md, err := p.fetchMarkdown(ctx, src)
	if err != nil {
		return types.Failed(domain.SourceGitHub, co.Company, err.Error())
	}

	seen := map[string]bool{}
	var out []domain.RawPosting
	produced := 0
	lastCompany := ""
	take := func(r row) {
		// continuation rows ("↳") belong to the company above
		if cleanCompany(r.company) == "" {
			r.company = lastCompany
		} else {
			lastCompany = r.company
		}
		if rp, ok := p.toRaw(r); ok && !seen[rp.URL] {
			seen[rp.URL] = true
			out = append(out, rp)
			produced++
		}
	}

	for _, r := range rowsFromHTMLTables(md) {
		take(r)
	}
	for _, r := range rowsFromMarkdownTables(md) {
		take(r)
	}
	if produced == 0 {
		for _, r := range rowsFromBullets(md) {
			take(r)
		}
	}
	log.Printf("[ats:github] repo=%q rows=%d", src, len(out))
	return types.FetchResult{Source: domain.SourceGitHub, Company: co.Company, Postings: out}
}

func (p *Provider) toRaw(r row) (domain.RawPosting, bool) {
	if r.url == "" {
		return domain.RawPosting{}, false
	}
	u, ok := canonicalURL(r.url)
	if !ok {
		return domain.RawPosting{}, false
	}
	company := cleanCompany(r.company)
	title := strings.TrimSpace(r.title)
	loc := cleanLocation(r.location)

	remote := isRemote(loc) || strings.Contains(strings.ToLower(title), "remote")
	if p.opts.RemoteOnly && !remote {
		return domain.RawPosting{}, false
	}
	// strict: unconfirmed US rows are dropped
	if p.opts.USOnly && !looksUSOnly(loc) {
		return domain.RawPosting{}, false
	}

	if company == "" {
		company = domain.Slugify(util.HostOf(u))
	}
	if title == "" {
		title = defaultTitle
	}
	rp := domain.RawPosting{
		Source:     domain.SourceGitHub,
		ExternalID: util.URLHash(u),
		Company:    company,
		Title:      title,
		URL:        u,
		Location:   loc,
	}
	if p.opts.DateScrape {
		for _, c := range []string{r.date, r.age} {
			if c = cleanCell(c); c != "" {
				rp.DateText = c
				break
			}
		}
	}
	return rp, true
}

// candidateRawURLs maps a repository reference onto raw file URLs to try.
// Accepted forms: owner/repo, a github.com repo or blob URL, a raw URL, or
// any other URL which is used as-is.
func (p *Provider) candidateRawURLs(src string) []string {
	s := strings.TrimRight(strings.TrimSpace(src), "/")
	raw := strings.TrimRight(p.RawBase, "/")
	switch {
	case strings.HasPrefix(s, DefaultRawBase+"/"):
		return []string{raw + strings.TrimPrefix(s, DefaultRawBase)}
	case strings.HasPrefix(s, "https://github.com/"):
		s = strings.TrimPrefix(s, "https://github.com/")
	case strings.Contains(s, "://"):
		return []string{s}
	}

	var out []string
	if repo, rest, ok := strings.Cut(s, "/blob/"); ok {
		branch, path, found := strings.Cut(rest, "/")
		if !found {
			path = "README.md"
		}
		for _, b := range []string{branch, "main", "master"} {
			out = append(out, fmt.Sprintf("%s/%s/%s/%s", raw, repo, b, path))
		}
	} else {
		for _, b := range []string{"main", "master"} {
			for _, f := range []string{"README.md", "NEW_GRAD_USA.md", "US-NEW-GRAD.md"} {
				out = append(out, fmt.Sprintf("%s/%s/%s/%s", raw, s, b, f))
			}
		}
	}
	seen := map[string]bool{}
	uniq := out[:0]
	for _, u := range out {
		if !seen[u] {
			seen[u] = true
			uniq = append(uniq, u)
		}
	}
	return uniq
}

func (p *Provider) fetchMarkdown(ctx context.Context, src string) (string, error) {
	var lastErr error
	for _, u := range p.candidateRawURLs(src) {
		body, err := p.c.Get(ctx, u, "text/plain")
		if err == nil {
			return string(body), nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return "", fmt.Errorf("github fetch %s: %w", src, lastErr)
}

var (
	reMDLink   = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)
	reNumbered = regexp.MustCompile(`^\d+\.\s`)
)

// extractLink returns the link text and target of a markdown cell,
// preferring links whose text mentions apply.
func extractLink(cell string) (string, string) {
	cell = strings.TrimSpace(cell)
	ms := reMDLink.FindAllStringSubmatch(cell, -1)
	for _, m := range ms {
		if strings.Contains(strings.ToLower(m[1]), "apply") {
			return strings.TrimSpace(m[1]), strings.TrimSpace(m[2])
		}
	}
	if len(ms) > 0 {
		return strings.TrimSpace(ms[0][1]), strings.TrimSpace(ms[0][2])
	}
	if strings.HasPrefix(cell, "http://") || strings.HasPrefix(cell, "https://") {
		return cell, cell
	}
	// HTML anchors inside markdown cells are common too
	if strings.Contains(cell, "<a") {
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(cell)); err == nil {
			if href := pickHref(doc.Selection); href != "" {
				return util.CleanText(doc.Text()), href
			}
		}
	}
	return cell, ""
}

func stripLinks(s string) string {
	return strings.TrimSpace(reMDLink.ReplaceAllString(s, "$1"))
}

func cleanCell(s string) string {
	s = stripLinks(s)
	if strings.Contains(s, "<") {
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(s)); err == nil {
			s = doc.Text()
		}
	}
	return strings.Trim(util.CleanText(s), "*_ ")
}

// columns maps header cells onto field indexes; the first match wins.
func columns(header []string) map[string]int {
	idx := map[string]int{}
	set := func(k string, i int) {
		if _, ok := idx[k]; !ok {
			idx[k] = i
		}
	}
	for i, h := range header {
		hl := strings.ToLower(h)
		if containsAny(hl, "company", "organization", "employer") {
			set("company", i)
		}
		if containsAny(hl, "role", "position", "title") {
			set("title", i)
		}
		if containsAny(hl, "location") {
			set("location", i)
		}
		if containsAny(hl, "apply", "link", "url", "posting") {
			set("url", i)
		}
		if containsAny(hl, "date", "posted", "updated") {
			set("date", i)
		}
		if containsAny(hl, "age", "ago") {
			set("age", i)
		}
	}
	return idx
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func cellAt(cells []string, col map[string]int, key string) string {
	i, ok := col[key]
	if !ok || i >= len(cells) {
		return ""
	}
	return cells[i]
}

func rowsFromMarkdownTables(md string) []row {
	lines := strings.Split(md, "\n")
	var out []row
	for i := 0; i < len(lines); i++ {
		if !strings.Contains(lines[i], "|") {
			continue
		}
		sep := -1
		for j := i + 1; j < len(lines) && j < i+3; j++ {
			if isSeparator(lines[j]) {
				sep = j
				break
			}
		}
		if sep < 0 {
			continue
		}
		header := splitRow(lines[i])
		col := columns(header)
		k := sep + 1
		for ; k < len(lines) && strings.HasPrefix(strings.TrimSpace(lines[k]), "|"); k++ {
			if len(col) == 0 {
				continue
			}
			cells := splitRow(lines[k])
			urlCell := cellAt(cells, col, "url")
			_, link := extractLink(urlCell)
			title := cellAt(cells, col, "title")
			if _, ok := col["title"]; !ok && len(cells) > 0 {
				title = cells[0]
			}
			if link == "" {
				_, link = extractLink(title)
			}
			company := cellAt(cells, col, "company")
			if _, ok := col["company"]; !ok && len(cells) > 0 {
				company = cells[0]
			}
			out = append(out, row{
				company:  cleanCell(company),
				title:    cleanCell(title),
				location: cleanCell(cellAt(cells, col, "location")),
				url:      link,
				date:     cellAt(cells, col, "date"),
				age:      cellAt(cells, col, "age"),
			})
		}
		i = k - 1
	}
	return out
}

func isSeparator(line string) bool {
	t := strings.TrimSpace(line)
	if !strings.Contains(t, "---") {
		return false
	}
	return strings.Trim(t, "|:- ") == ""
}

func splitRow(line string) []string {
	s := strings.TrimSpace(line)
	s = strings.TrimPrefix(s, "|")
	s = strings.TrimSuffix(s, "|")
	parts := strings.Split(s, "|")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// rowsFromHTMLTables handles READMEs that embed raw HTML tables.
func rowsFromHTMLTables(md string) []row {
	if !strings.Contains(strings.ToLower(md), "<table") {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(md))
	if err != nil {
		return nil
	}
	var out []row
	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		var header []string
		table.Find("th").Each(func(_ int, th *goquery.Selection) {
			header = append(header, util.CleanText(th.Text()))
		})
		trs := table.Find("tr")
		if len(header) == 0 {
			trs.First().Find("td").Each(func(_ int, td *goquery.Selection) {
				header = append(header, util.CleanText(td.Text()))
			})
		}
		col := columns(header)
		if len(col) == 0 {
			return
		}
		trs.Each(func(i int, tr *goquery.Selection) {
			if i == 0 {
				return
			}
			tds := tr.Find("td, th")
			if tds.Length() == 0 {
				return
			}
			var cells []string
			tds.Each(func(_ int, td *goquery.Selection) {
				cells = append(cells, util.CleanText(td.Text()))
			})
			link := ""
			if i, ok := col["url"]; ok && i < tds.Length() {
				link = pickHref(tds.Eq(i))
			}
			if link == "" {
				link = pickHref(tr)
			}
			company := cells[0]
			if i, ok := col["company"]; ok && i < len(cells) {
				company = cells[i]
			}
			title := cells[0]
			if i, ok := col["title"]; ok && i < len(cells) {
				title = cells[i]
			}
			out = append(out, row{
				company:  company,
				title:    title,
				location: cellAt(cells, col, "location"),
				url:      link,
				date:     cellAt(cells, col, "date"),
				age:      cellAt(cells, col, "age"),
			})
		})
	})
	return out
}

// pickHref prefers an anchor whose text mentions apply, else the first.
func pickHref(s *goquery.Selection) string {
	best := ""
	s.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href := strings.TrimSpace(a.AttrOr("href", ""))
		if href == "" {
			return true
		}
		if best == "" {
			best = href
		}
		if strings.Contains(strings.ToLower(a.Text()), "apply") {
			best = href
			return false
		}
		return true
	})
	return best
}

// rowsFromBullets is the fallback for lists without tables: one link per
// bullet, "Company - Title" in the link text.
func rowsFromBullets(md string) []row {
	var out []row
	for _, ln := range strings.Split(md, "\n") {
		ls := strings.TrimLeft(ln, " \t")
		if !strings.HasPrefix(ls, "- ") && !strings.HasPrefix(ls, "* ") && !reNumbered.MatchString(ls) {
			continue
		}
		m := reMDLink.FindStringSubmatch(ls)
		if m == nil {
			continue
		}
		text := strings.TrimSpace(m[1])
		company, title := text, text
		for _, sep := range []string{"—", " - "} {
			if c, t, ok := strings.Cut(text, sep); ok {
				company, title = strings.TrimSpace(c), strings.TrimSpace(t)
				break
			}
		}
		out = append(out, row{company: company, title: title, url: strings.TrimSpace(m[2])})
	}
	return out
}
