// Package normalize maps raw provider postings onto the canonical job record.
package normalize

import (
	"strings"
	"time"

	"github.com/nelson-zack/job-radar/internal/classify"
	"github.com/nelson-zack/job-radar/internal/dateparse"
	"github.com/nelson-zack/job-radar/internal/domain"
	"github.com/nelson-zack/job-radar/internal/scrape/util"
)

// Title collapses whitespace.
func Title(s string) string { return util.CleanText(s) }

// Company collapses whitespace.
func Company(s string) string { return util.CleanText(s) }

var locationAliases = []struct{ from, to string }{
	{"United States of America", "United States"},
	{"US-Remote", "Remote - US"},
	{"Remote-US", "Remote - US"},
	{"Remote, USA", "Remote - US"},
}

// Location canonicalizes a free-text location; blank input is nil.
func Location(s string) *string {
	loc := util.NormalizeLocation(s)
	if loc == "" {
		return nil
	}
	for _, a := range locationAliases {
		loc = strings.ReplaceAll(loc, a.from, a.to)
	}
	return &loc
}

// Normalizer turns RawPostings into NormalizedJobs. The zero value is not
// usable; build one with New.
type Normalizer struct {
	rules    *classify.Classifier
	maxChars int
	now      func() time.Time
}

func New(rules *classify.Classifier, maxChars int, now func() time.Time) *Normalizer {
	if rules == nil {
		rules = classify.Default()
	}
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Normalizer{rules: rules, maxChars: maxChars, now: now}
}

func (n *Normalizer) MaxChars() int { return n.maxChars }

// Normalize builds the canonical record. ok is false when the posting lacks a
// title, company or URL and cannot enter the pipeline.
func (n *Normalizer) Normalize(raw domain.RawPosting) (job domain.NormalizedJob, ok bool) {
	title := Title(raw.Title)
	company := Company(raw.Company)
	url := strings.TrimSpace(raw.URL)
	if title == "" || company == "" || url == "" {
		return job, false
	}

	descHTML := raw.DescriptionHTML
	if strings.TrimSpace(descHTML) == "" && raw.DetailHTML != "" {
		descHTML = PageText(raw.DetailHTML)
	}
	snippet := Snippet(descHTML, n.maxChars)

	var descText string
	if snippet != nil {
		descText = *snippet
	}

	externalID := strings.TrimSpace(raw.ExternalID)
	if externalID == "" {
		externalID = util.URLHash(url)
	}
	loc := Location(raw.Location)
	var locText string
	if loc != nil {
		locText = *loc
	}

	job = domain.NormalizedJob{
		Title:              title,
		Company:            company,
		URL:                url,
		Source:             raw.Source,
		ExternalID:         externalID,
		Location:           loc,
		Remote:             util.InferWorkModeFromText(locText, title, "") == "Remote",
		DescriptionSnippet: snippet,
		Level:              n.rules.InferLevel(title, descText),
		PostedAt:           n.postedAt(raw),
		Keywords:           []string{},
	}
	return job, true
}

// postedAt walks the provider's timestamps in priority order, then free-text
// date, then JSON-LD on the detail page. It never defaults to now.
func (n *Normalizer) postedAt(raw domain.RawPosting) *time.Time {
	for _, ts := range raw.Timestamps {
		if t := ParseTimestamp(ts); t != nil {
			return t
		}
	}
	if t := dateparse.Parse(raw.DateText, n.now()); t != nil {
		return t
	}
	if raw.DetailHTML != "" {
		return JSONLDDatePosted(raw.DetailHTML)
	}
	return nil
}

// Refresh re-derives fields that enrichment may have unlocked: a level still
// unknown is re-inferred now that a snippet exists. It never overwrites a
// field that is already set.
func (n *Normalizer) Refresh(job *domain.NormalizedJob) {
	if job.Level == domain.LevelUnknown || job.Level == "" {
		job.Level = n.rules.InferLevel(job.Title, job.SnippetText())
	}
}
