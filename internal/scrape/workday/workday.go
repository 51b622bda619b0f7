// Package workday reads Workday candidate-experience job boards through the
// CXS JSON endpoint the hosted site itself calls.
package workday

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/nelson-zack/job-radar/internal/domain"
	"github.com/nelson-zack/job-radar/internal/scrape/types"
	"github.com/nelson-zack/job-radar/internal/scrape/util"
)

const (
	pageSize  = 50
	maxOffset = 5000
	// blockTTL is how long a Cloudflare-blocked host is skipped.
	blockTTL = time.Hour
)

var ErrWorkdayBlocked = errors.New("workday blocked by cloudflare")

type Provider struct {
	c   *util.Client
	now func() time.Time

	mu           sync.Mutex
	blockedUntil map[string]time.Time
}

func New(c *util.Client) *Provider {
	return &Provider{
		c:            c,
		now:          time.Now,
		blockedUntil: map[string]time.Time{},
	}
}

func (p *Provider) Name() domain.Source { return domain.SourceWorkday }

type board struct {
	Scheme string
	Host   string
	Tenant string
	Site   string
	Locale string
}

type WDRequest struct {
	AppliedFacets map[string]any `json:"appliedFacets"`
	Limit         int            `json:"limit"`
	Offset        int            `json:"offset"`
	SearchText    string         `json:"searchText"`
}

type WDResponse struct {
	Total       int         `json:"total"`
	JobPostings []WDPosting `json:"jobPostings"`
}

type WDPosting struct {
	ID               string   `json:"id"`
	Title            string   `json:"title"`
	ExternalPath     string   `json:"externalPath"`
	ExternalURL      string   `json:"externalUrl"`
	LocationsText    string   `json:"locationsText"`
	Location         string   `json:"location"`
	PostedOn         string   `json:"postedOn"`
	PostedOnDate     string   `json:"postedOnDate"`
	JobReqID         string   `json:"jobRequisitionId"`
	JobRequisitionID string   `json:"jobRequisitionID"`
	BulletFields     []string `json:"bulletFields"`
}

func (p *Provider) Fetch(ctx context.Context, co domain.CompanyEntry) types.FetchResult {
	b, err := boardFor(co)
	if err != nil {
		return types.Failed(domain.SourceWorkday, co.Company, err.Error())
	}
	posts, err := p.fetchBoard(ctx, co.Company, b)
	res := types.FetchResult{Source: domain.SourceWorkday, Company: co.Company, Postings: posts}
	if err != nil {
		res.Failure = err.Error()
	}
	return res
}

// boardFor derives the board from a registry entry. Host may be a bare host
// ("acme.wd5.myworkdayjobs.com") or a full board URL; Path is the site name
// and Token, when set, overrides the tenant taken from the host.
func boardFor(co domain.CompanyEntry) (board, error) {
	host := strings.TrimSpace(co.Host)
	if host == "" {
		return board{}, errors.New("missing workday host")
	}
	raw := host
	if !strings.Contains(host, "://") {
		raw = "https://" + host
	}
	u, err := url.Parse(raw)
	if err != nil {
		return board{}, err
	}
	if strings.Trim(u.Path, "/") == "" {
		u.Path = "/" + util.FirstNonEmpty(co.Path, "External")
	}
	b, err := parseBoardURL(u.String())
	if err != nil {
		return board{}, err
	}
	if t := strings.TrimSpace(co.Token); t != "" {
		b.Tenant = t
	}
	return b, nil
}

func parseBoardURL(raw string) (board, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return board{}, errors.New("empty board url")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return board{}, err
	}
	if u.Scheme == "" {
		u.Scheme = "https"
	}
	if u.Host == "" {
		return board{}, fmt.Errorf("missing host in %q", raw)
	}

	parts := strings.Split(u.Hostname(), ".")
	if len(parts) < 3 {
		return board{}, fmt.Errorf("unexpected host %q", u.Host)
	}

	segs := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segs) == 0 || segs[0] == "" {
		return board{}, fmt.Errorf("unexpected path %q", u.Path)
	}

	locale := ""
	if len(segs) >= 2 && looksLikeLocale(segs[0]) {
		locale = normalizeLocale(segs[0])
		segs = segs[1:]
	}

	return board{
		Scheme: u.Scheme,
		Host:   u.Host,
		Tenant: parts[0],
		Site:   segs[len(segs)-1],
		Locale: locale,
	}, nil
}

// looksLikeLocale accepts en-US, en-us and the like.
func looksLikeLocale(s string) bool {
	s = strings.TrimSpace(s)
	if len(s) != 5 || s[2] != '-' {
		return false
	}
	return isAlpha(s[0:2]) && isAlpha(s[3:5])
}

func normalizeLocale(s string) string {
	return strings.ToLower(s[0:2]) + "-" + strings.ToUpper(s[3:5])
}

func isAlpha(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !((c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')) {
			return false
		}
	}
	return true
}

func (b board) origin() string { return b.Scheme + "://" + b.Host }

func (b board) boardURL() string {
	if b.Locale != "" {
		return fmt.Sprintf("%s/%s/%s", b.origin(), b.Locale, b.Site)
	}
	return fmt.Sprintf("%s/%s", b.origin(), b.Site)
}

func (b board) jobsEndpoint() string {
	base := fmt.Sprintf("%s/wday/cxs/%s/%s/jobs", b.origin(), b.Tenant, b.Site)
	if b.Locale == "" {
		return base
	}
	return base + "?locale=" + url.QueryEscape(b.Locale)
}

func (b board) absoluteJobURL(p WDPosting) string {
	if p.ExternalURL != "" {
		return strings.TrimSpace(p.ExternalURL)
	}
	path := strings.TrimSpace(p.ExternalPath)
	if path == "" {
		return ""
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	// externalPath is relative to the site, e.g. /job/Remote-USA/Engineer_R123
	if !strings.HasPrefix(path, "/"+b.Site+"/") {
		return b.boardURL() + path
	}
	return b.origin() + path
}

func (p *Provider) isBlocked(host string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	until, ok := p.blockedUntil[host]
	return ok && p.now().Before(until)
}

func (p *Provider) block(host string) {
	p.mu.Lock()
	p.blockedUntil[host] = p.now().Add(blockTTL)
	p.mu.Unlock()
	log.Printf("[ats:workday] host=%q blocked by Cloudflare; skipping for %s", host, blockTTL)
}

// httpClient builds a per-company client with a cookie jar so the session
// and CSRF cookies persist between bootstrap and the job queries.
func (p *Provider) httpClient() *http.Client {
	jar, _ := cookiejar.New(nil)
	timeout := 30 * time.Second
	if p.c != nil && p.c.Timeout > 0 {
		timeout = 2 * p.c.Timeout
	}
	return &http.Client{Jar: jar, Timeout: timeout}
}

func (p *Provider) userAgent() string {
	if p.c != nil && p.c.UserAgent != "" {
		return p.c.UserAgent
	}
	return util.DefaultUserAgent
}

func (p *Provider) wait(ctx context.Context, endpoint string) error {
	if p.c == nil {
		return nil
	}
	return p.c.Limiter.WaitURL(ctx, endpoint)
}

func (p *Provider) fetchBoard(ctx context.Context, company string, b board) ([]domain.RawPosting, error) {
	if p.isBlocked(b.Host) {
		return nil, ErrWorkdayBlocked
	}

	hc := p.httpClient()
	endpoint := b.jobsEndpoint()

	// some tenants require CALYPSO_CSRF_TOKEN before the CXS call works
	csrf, bootErr := p.bootstrapSession(ctx, hc, b.boardURL())
	if errors.Is(bootErr, ErrWorkdayBlocked) {
		p.block(b.Host)
		return nil, ErrWorkdayBlocked
	}

	var out []domain.RawPosting
	offset := 0
	for {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		payload, _ := json.Marshal(WDRequest{AppliedFacets: map[string]any{}, Limit: pageSize, Offset: offset})

		status, data, err := p.post(ctx, hc, b, endpoint, payload, csrf)
		if err != nil {
			return out, fmt.Errorf("workday post jobs: %w", err)
		}
		if status >= 400 {
			if bootErr == nil {
				return out, fmt.Errorf("workday status %d body=%s", status, util.Truncate(oneLine(data), 240))
			}
			// bootstrap and retry once
			csrf2, err2 := p.bootstrapSession(ctx, hc, b.boardURL())
			if errors.Is(err2, ErrWorkdayBlocked) {
				p.block(b.Host)
				return out, ErrWorkdayBlocked
			}
			bootErr, csrf = nil, csrf2
			status, data, err = p.post(ctx, hc, b, endpoint, payload, csrf)
			if err != nil {
				return out, fmt.Errorf("workday retry post jobs: %w", err)
			}
			if status >= 400 {
				return out, fmt.Errorf("workday status %d body=%s", status, util.Truncate(oneLine(data), 240))
			}
		}

		var jr WDResponse
		if err := json.Unmarshal(data, &jr); err != nil {
			return out, fmt.Errorf("workday decode: %w body=%s", err, util.Truncate(oneLine(data), 240))
		}
		if len(jr.JobPostings) == 0 {
			break
		}
		for _, wp := range jr.JobPostings {
			if rp, ok := b.toRaw(company, wp); ok {
				out = append(out, rp)
			}
		}

		offset += pageSize
		if jr.Total > 0 && offset >= jr.Total {
			break
		}
		if offset > maxOffset {
			break
		}
	}
	return out, nil
}

func (b board) toRaw(company string, wp WDPosting) (domain.RawPosting, bool) {
	jobURL := b.absoluteJobURL(wp)
	if strings.TrimSpace(wp.Title) == "" || jobURL == "" {
		return domain.RawPosting{}, false
	}
	id := util.FirstNonEmpty(wp.JobReqID, wp.JobRequisitionID, wp.ID)
	if id == "" && len(wp.BulletFields) > 0 {
		id = strings.TrimSpace(wp.BulletFields[0])
	}
	if id == "" {
		id = util.URLHash(jobURL)
	}
	var ts []string
	if wp.PostedOnDate != "" {
		ts = []string{wp.PostedOnDate}
	}
	return domain.RawPosting{
		Source:     domain.SourceWorkday,
		ExternalID: id,
		Company:    company,
		Title:      wp.Title,
		URL:        util.CanonicalizeURL(jobURL),
		Location:   util.FirstNonEmpty(wp.LocationsText, wp.Location),
		Timestamps: ts,
		DateText:   postedOnText(wp.PostedOn),
	}, true
}

func (p *Provider) post(ctx context.Context, hc *http.Client, b board, endpoint string, payload []byte, csrf string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("User-Agent", p.userAgent())
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", b.origin())
	req.Header.Set("Referer", b.boardURL())
	req.Header.Set("Accept-Language", util.FirstNonEmpty(b.Locale, "en-US"))
	if csrf != "" {
		req.Header.Set("x-calypso-csrf-token", csrf)
	}
	if err := p.wait(ctx, endpoint); err != nil {
		return 0, nil, err
	}
	res, err := hc.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer res.Body.Close()
	data, err := io.ReadAll(io.LimitReader(res.Body, 8<<20))
	return res.StatusCode, data, err
}

func (p *Provider) bootstrapSession(ctx context.Context, client *http.Client, boardURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, boardURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", p.userAgent())
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US")

	if err := p.wait(ctx, boardURL); err != nil {
		return "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	// a small preview is enough for CF detection
	previewBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	_, _ = io.Copy(io.Discard, resp.Body)

	if looksLikeCloudflareBlock(resp, string(previewBytes)) {
		return "", ErrWorkdayBlocked
	}

	u, _ := url.Parse(boardURL)
	for _, c := range client.Jar.Cookies(u) {
		if c.Name == "CALYPSO_CSRF_TOKEN" && c.Value != "" {
			return c.Value, nil
		}
	}
	return "", fmt.Errorf("workday bootstrap: missing CALYPSO_CSRF_TOKEN cookie (status=%d)", resp.StatusCode)
}

func looksLikeCloudflareBlock(resp *http.Response, bodyPreview string) bool {
	server := strings.ToLower(resp.Header.Get("Server"))
	if strings.Contains(server, "cloudflare") && resp.Header.Get("CF-RAY") != "" {
		return true
	}

	low := strings.ToLower(bodyPreview)
	if strings.Contains(low, "/cdn-cgi/") ||
		(strings.Contains(low, "cloudflare") && strings.Contains(low, "checking your browser")) ||
		(strings.Contains(low, "attention required") && strings.Contains(low, "cloudflare")) {
		return true
	}

	return resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusTooManyRequests
}

var rePostedDays = regexp.MustCompile(`(?i)posted\s+(\d+)\+?\s+days?\s+ago`)

// postedOnText rewrites Workday's "Posted Today" style labels into the
// relative phrases the date parser understands.
func postedOnText(s string) string {
	low := strings.ToLower(strings.TrimSpace(s))
	switch {
	case low == "":
		return ""
	case strings.Contains(low, "today"):
		return "0 days ago"
	case strings.Contains(low, "yesterday"):
		return "1 day ago"
	}
	if m := rePostedDays.FindStringSubmatch(low); m != nil {
		return m[1] + " days ago"
	}
	return s
}

func oneLine(b []byte) string {
	s := strings.ReplaceAll(string(b), "\n", " ")
	return strings.TrimSpace(strings.ReplaceAll(s, "\r", " "))
}
