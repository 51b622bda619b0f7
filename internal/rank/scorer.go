// Package rank scores postings against skill term lists and assigns ranks.
package rank

import (
	"sort"
	"strings"

	"github.com/nelson-zack/job-radar/internal/domain"
)

// Scorer scores a single record. keep is false when a hard gate rejects it.
type Scorer interface {
	Score(job *domain.NormalizedJob) (score int, tags []string, keep bool)
}

// SkillScorer matches Any and All terms case-insensitively against the title
// plus description snippet.
type SkillScorer struct {
	Any  []string
	All  []string
	Hard bool
	// Engineering grants the soft-mode baseline point to titles it accepts.
	Engineering func(title string) bool
}

// NewSkillScorer lowercases and de-duplicates the term lists.
func NewSkillScorer(anyTerms, allTerms []string, hard bool, engineering func(string) bool) SkillScorer {
	return SkillScorer{Any: terms(anyTerms), All: terms(allTerms), Hard: hard, Engineering: engineering}
}

func (s SkillScorer) Score(job *domain.NormalizedJob) (int, []string, bool) {
	score := 0
	var tags []string
	if len(s.Any) > 0 || len(s.All) > 0 {
		hay := strings.ToLower(job.Title + " " + job.SnippetText())
		for _, t := range s.Any {
			if strings.Contains(hay, t) {
				score++
				tags = append(tags, t)
			}
		}
		if len(s.All) > 0 {
			if containsAll(hay, s.All) {
				score += len(s.All)
				tags = append(tags, s.All...)
			} else if s.Hard {
				return 0, nil, false
			}
		}
		if s.Hard && score == 0 {
			return 0, nil, false
		}
	}
	// soft mode: engineering titles carry a baseline point on top of their
	// matches, so any match still outranks a bare engineering title
	if !s.Hard && s.Engineering != nil && s.Engineering(job.Title) {
		score++
	}
	return score, uniq(tags), true
}

func containsAll(hay string, all []string) bool {
	for _, t := range all {
		if !strings.Contains(hay, t) {
			return false
		}
	}
	return true
}

// Scored pairs a record with its score and the terms that matched.
type Scored struct {
	Job     domain.NormalizedJob
	Score   int
	Matched []string
}

// ScoreAll scores every record, dropping those a hard gate rejects.
func ScoreAll(sc Scorer, jobs []domain.NormalizedJob) (out []Scored, gated int) {
	out = make([]Scored, 0, len(jobs))
	for i := range jobs {
		score, tags, keep := sc.Score(&jobs[i])
		if !keep {
			gated++
			continue
		}
		out = append(out, Scored{Job: jobs[i], Score: score, Matched: tags})
	}
	return out, gated
}

// Threshold drops records scoring below min. min <= 0 keeps everything.
func Threshold(in []Scored, min int) (out []Scored, dropped int) {
	if min <= 0 {
		return in, 0
	}
	out = in[:0:0]
	for _, s := range in {
		if s.Score >= min {
			out = append(out, s)
		}
	}
	return out, len(in) - len(out)
}

// Sort orders by score descending; ties keep their incoming order.
func Sort(in []Scored) {
	sort.SliceStable(in, func(i, j int) bool { return in[i].Score > in[j].Score })
}

// URLRanks maps each URL to its best 1-based position and its highest score
// across a sorted sequence that may still contain duplicates.
type URLRanks struct {
	Rank  map[string]int
	Score map[string]int
}

func AssignRanks(sorted []Scored) URLRanks {
	r := URLRanks{Rank: make(map[string]int, len(sorted)), Score: make(map[string]int, len(sorted))}
	for i, s := range sorted {
		u := s.Job.URL
		if u == "" {
			continue
		}
		if prev, ok := r.Score[u]; !ok || s.Score > prev {
			r.Score[u] = s.Score
		}
		if _, ok := r.Rank[u]; !ok {
			r.Rank[u] = i + 1
		}
	}
	return r
}

// Apply stamps rank and score onto deduplicated survivors by URL.
func (r URLRanks) Apply(jobs []domain.NormalizedJob) {
	for i := range jobs {
		j := &jobs[i]
		j.SkillScore = r.Score[j.URL]
		if rk, ok := r.Rank[j.URL]; ok {
			v := rk
			j.Rank = &v
		} else {
			j.Rank = nil
		}
	}
}

func terms(in []string) []string {
	out := make([]string, 0, len(in))
	for _, t := range in {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			out = append(out, t)
		}
	}
	return uniq(out)
}

func uniq(in []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(in))
	for _, t := range in {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}
