package classify

import (
	"strconv"
	"strings"

	"github.com/nelson-zack/job-radar/internal/domain"
)

// EntryDecision is the verdict of the entry-level exclusion filter.
type EntryDecision struct {
	Keep   bool
	Reason string
}

const (
	ReasonNoTitle       = "no-title"
	ReasonTitleSenior   = "title-senior-term"
	ReasonDescPlusYears = "description-3plus-years"
	ReasonTitleJunior   = "title-junior-term"
	ReasonDefault       = "default"
)

// FilterText applies the entry-level exclusion rules to a title and the best
// available description text.
func (c *Classifier) FilterText(title, description string) EntryDecision {
	t := strings.TrimSpace(title)
	if t == "" {
		return EntryDecision{Keep: true, Reason: ReasonNoTitle}
	}
	if c.entryExclude.MatchString(t) {
		return EntryDecision{Keep: false, Reason: ReasonTitleSenior}
	}
	for _, m := range c.plusYears.FindAllStringSubmatch(description, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if n > c.entryMaxPlusYears {
			return EntryDecision{Keep: false, Reason: ReasonDescPlusYears}
		}
	}
	if c.entryInclude.MatchString(t) {
		return EntryDecision{Keep: true, Reason: ReasonTitleJunior}
	}
	return EntryDecision{Keep: true, Reason: ReasonDefault}
}

// FilterJob runs FilterText over a normalized record, reading its snippet.
func (c *Classifier) FilterJob(j *domain.NormalizedJob) EntryDecision {
	return c.FilterText(j.Title, j.SnippetText())
}

// TitleExclusionTerms are the title terms a SQL prefilter can reject cheaply.
// "sr" is left to the regex since a bare LIKE would hit unrelated words.
func TitleExclusionTerms() []string {
	return []string{"senior", "staff", "principal", "lead", "manager", "director", "head"}
}

// DescriptionExclusionPatterns are LIKE patterns for "N+ years" with N >= 3.
func DescriptionExclusionPatterns() []string {
	out := make([]string, 0, 13*4)
	for n := 3; n <= 15; n++ {
		ns := strconv.Itoa(n)
		out = append(out,
			"%"+ns+"+%year%", "%"+ns+"+%yrs%",
			"%"+ns+" +%year%", "%"+ns+" +%yrs%")
	}
	return out
}
