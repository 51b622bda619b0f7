// Package mailseed turns job-alert emails into crawler seed URLs.
package mailseed

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/nelson-zack/job-radar/internal/scrape/util"
)

// Mailbox is anything that can list recent messages. IMAPMailbox is the
// production implementation.
type Mailbox interface {
	Messages(ctx context.Context, since time.Time) ([]Message, error)
}

type Options struct {
	// SubjectAny keeps messages whose subject contains any of these,
	// case-insensitively. Empty keeps everything.
	SubjectAny []string
	SinceDays  int
	Now        func() time.Time
	Logger     *log.Logger
}

var (
	jobLinkRE = regexp.MustCompile(`(?i)/(jobs?|careers?|positions?|openings?|opportunities|apply)(/|\?|$)|gh_jid=`)

	atsHosts = []string{
		"greenhouse.io",
		"lever.co",
		"ashbyhq.com",
		"myworkdayjobs.com",
		"workable.com",
	}

	skipLinkRE = regexp.MustCompile(`(?i)unsubscribe|preferences|privacy|/settings|mailto:`)
)

// Collect reads messages from mb and returns canonical, de-duplicated
// job-like links in first-seen order.
func Collect(ctx context.Context, mb Mailbox, opts Options) ([]string, error) {
	l := opts.Logger
	if l == nil {
		l = log.Default()
	}
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	days := opts.SinceDays
	if days <= 0 {
		days = 7
	}
	since := now().UTC().AddDate(0, 0, -days)

	msgs, err := mb.Messages(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("mailseed messages: %w", err)
	}

	seen := map[string]bool{}
	var seeds []string
	for _, m := range msgs {
		subject, plain, htmlBody := parseRFC822(m.Raw, m.Subject)
		if !subjectMatches(subject, opts.SubjectAny) {
			continue
		}
		for _, raw := range extractLinks(plain, htmlBody) {
			u := unwrapRedirect(raw)
			if !looksLikeJobLink(u) {
				continue
			}
			u = util.CanonicalizeURL(u)
			if u == "" || seen[u] {
				continue
			}
			seen[u] = true
			seeds = append(seeds, u)
		}
	}
	l.Printf("[mailseed] messages=%d seeds=%d", len(msgs), len(seeds))
	return seeds, nil
}

func subjectMatches(subject string, terms []string) bool {
	if len(terms) == 0 {
		return true
	}
	s := strings.ToLower(subject)
	for _, a := range terms {
		if a = strings.ToLower(strings.TrimSpace(a)); a != "" && strings.Contains(s, a) {
			return true
		}
	}
	return false
}

func looksLikeJobLink(u string) bool {
	pu, err := url.Parse(u)
	if err != nil || (pu.Scheme != "http" && pu.Scheme != "https") || pu.Host == "" {
		return false
	}
	if skipLinkRE.MatchString(u) {
		return false
	}
	host := util.HostOf(u)
	for _, h := range atsHosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return jobLinkRE.MatchString(pu.Path + "?" + pu.RawQuery)
}

// unwrapRedirect follows tracking wrappers that carry the target in a query
// parameter (url=, u=, or Google's /url?q=).
func unwrapRedirect(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return raw
	}
	q := u.Query()
	if strings.Contains(u.Host, "google.") && u.Path == "/url" {
		if t := q.Get("q"); strings.HasPrefix(t, "http") {
			return t
		}
	}
	for _, k := range []string{"url", "u", "redirect", "target"} {
		if t := q.Get(k); strings.HasPrefix(t, "http://") || strings.HasPrefix(t, "https://") {
			return t
		}
	}
	return raw
}
