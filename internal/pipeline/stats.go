package pipeline

import (
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/nelson-zack/job-radar/internal/dateparse"
	"github.com/nelson-zack/job-radar/internal/domain"
)

// Exclusion reasons counted in Stats.Excluded.
const (
	DropNoTitle     = "no-title"
	DropNotEng      = "not-engineering"
	DropSenior      = "senior-title"
	DropNotUSRemote = "not-us-remote"
	DropStale       = "stale"
	DropUndated     = "undated"
	DropSkills      = "skills-gate"
	DropMinScore    = "min-score"
)

// Failure is one provider fetch that was recovered.
type Failure struct {
	Source  domain.Source `json:"source"`
	Company string        `json:"company"`
	Reason  string        `json:"reason"`
}

// Stats are the per-run diagnostics.
type Stats struct {
	Entries         int                   `json:"entries"`
	Skipped         int                   `json:"skipped_entries"`
	Fetched         int                   `json:"fetched"`
	FetchedBySource map[domain.Source]int `json:"fetched_by_source"`
	Failures        []Failure             `json:"failures"`
	Malformed       int                   `json:"malformed"`

	WithSnippet         int                   `json:"with_snippet"`
	WithSnippetBySource map[domain.Source]int `json:"with_snippet_by_source"`
	EngineeringLike     int                   `json:"engineering_like"`
	Dated               int                   `json:"dated"`
	Recent              int                   `json:"recent"`

	BasicKept    int `json:"basic_kept"`
	ExplicitJr   int `json:"explicit_junior"`
	DescTopUp    int `json:"desc_topup"`
	JuniorTopUp  int `json:"junior_topup"`
	DateBackfill int `json:"date_backfill"`

	Provenance dateparse.InferenceStats `json:"provenance"`

	Excluded   map[string]int `json:"excluded"`
	EntryKept  map[string]int `json:"entry_kept,omitempty"`
	Matched    int            `json:"skills_matched"`
	Scored     int            `json:"scored"`
	Unique     int            `json:"unique"`
	TopByScore []string       `json:"top_by_score,omitempty"`
}

func newStats() Stats {
	return Stats{
		FetchedBySource:     map[domain.Source]int{},
		WithSnippetBySource: map[domain.Source]int{},
		Excluded:            map[string]int{},
		Failures:            []Failure{},
	}
}

func (s *Stats) exclude(reason string) { s.Excluded[reason]++ }

// Log writes the run summary in the engine's bracketed key=value style.
func (s Stats) Log(l *log.Logger) {
	l.Printf("[pipeline] entries=%d skipped=%d fetched=%d failed=%d malformed=%d",
		s.Entries, s.Skipped, s.Fetched, len(s.Failures), s.Malformed)
	if len(s.FetchedBySource) > 0 {
		l.Printf("[pipeline] fetched_by_source %s", joinCounts(s.FetchedBySource))
	}
	l.Printf("[pipeline] descriptions with_snippet=%d/%d %s",
		s.WithSnippet, s.Fetched, joinCounts(s.WithSnippetBySource))
	l.Printf("[pipeline] engineering_like=%d/%d dated=%d recent=%d",
		s.EngineeringLike, s.Fetched, s.Dated, s.Recent)
	l.Printf("[pipeline] basic_kept=%d explicit_junior=%d topup desc=%d junior=%d date=%d",
		s.BasicKept, s.ExplicitJr, s.DescTopUp, s.JuniorTopUp, s.DateBackfill)
	if len(s.Excluded) > 0 {
		l.Printf("[pipeline] excluded %s", joinCounts(s.Excluded))
	}
	if len(s.EntryKept) > 0 {
		l.Printf("[pipeline] entry_kept %s", joinCounts(s.EntryKept))
	}
	l.Printf("[pipeline] scored=%d skills_matched=%d unique=%d", s.Scored, s.Matched, s.Unique)
	if len(s.TopByScore) > 0 {
		l.Printf("[pipeline] top %s", strings.Join(s.TopByScore, "; "))
	}
}

func joinCounts[K ~string](m map[K]int) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", k, m[K(k)]))
	}
	return strings.Join(parts, " ")
}
