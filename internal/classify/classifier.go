// Package classify holds the text heuristics that decide whether a posting is an
// engineering role, how senior it is, and whether it is open to US remote hires.
package classify

import (
	"fmt"
	"log"
	"regexp"
	"strings"
	"sync"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/nelson-zack/job-radar/internal/domain"
)

// Classifier is compiled once from Terms and is safe for concurrent use.
// It is never mutated after New returns.
type Classifier struct {
	coreHints       *regexp.Regexp
	genericEngineer *regexp.Regexp
	nonSWEEngineer  *regexp.Regexp
	seniorBlock     *regexp.Regexp
	juniorTitle     *regexp.Regexp
	engineerL2      *regexp.Regexp
	engineerL3      *regexp.Regexp
	years0To3       *regexp.Regexp
	desc4Plus       *regexp.Regexp
	descSenior      *regexp.Regexp
	nonUS           *regexp.Regexp
	usToken         *regexp.Regexp
	entryExclude    *regexp.Regexp
	entryInclude    *regexp.Regexp
	plusYears       *regexp.Regexp

	juniorDescPositives []string
	levelJuniorTitle    []string
	levelJuniorDesc     []string
	levelSenior         []string
	levelMid            []string
	usPhrases           []string
	entryMaxPlusYears   int

	debug *log.Logger
}

// New compiles t into a Classifier.
func New(t Terms) (*Classifier, error) {
	c := &Classifier{
		juniorDescPositives: lowerAll(t.JuniorDescPositives),
		levelJuniorTitle:    lowerAll(t.LevelJuniorTitle),
		levelJuniorDesc:     lowerAll(t.LevelJuniorDesc),
		levelSenior:         lowerAll(t.LevelSenior),
		levelMid:            lowerAll(t.LevelMid),
		usPhrases:           lowerAll(t.USPhrases),
		entryMaxPlusYears:   t.EntryMaxPlusYears,
	}
	pats := []struct {
		dst  **regexp.Regexp
		name string
		src  string
	}{
		{&c.coreHints, "core_hints", t.CoreHints},
		{&c.genericEngineer, "generic_engineer", t.GenericEngineer},
		{&c.nonSWEEngineer, "non_swe_engineer", t.NonSWEEngineer},
		{&c.seniorBlock, "senior_block", t.SeniorBlock},
		{&c.juniorTitle, "junior_title", t.JuniorTitle},
		{&c.engineerL2, "engineer_l2", t.EngineerL2},
		{&c.engineerL3, "engineer_l3", t.EngineerL3},
		{&c.years0To3, "years_0_to_3", t.Years0To3},
		{&c.desc4Plus, "desc_4plus_years", t.Desc4PlusYears},
		{&c.descSenior, "desc_senior_words", t.DescSeniorWords},
		{&c.entryExclude, "entry_exclusion_title", t.EntryExclusionTitle},
		{&c.entryInclude, "entry_inclusion_title", t.EntryInclusionTitle},
		{&c.plusYears, "plus_years", t.PlusYears},
	}
	for _, p := range pats {
		re, err := regexp.Compile(`(?i)` + p.src)
		if err != nil {
			return nil, fmt.Errorf("classify compile %s: %w", p.name, err)
		}
		*p.dst = re
	}

	markers := make([]string, 0, len(t.NonUSMarkers))
	for _, m := range t.NonUSMarkers {
		if m = strings.TrimSpace(strings.ToLower(m)); m != "" {
			markers = append(markers, regexp.QuoteMeta(m))
		}
	}
	if len(markers) > 0 {
		c.nonUS = regexp.MustCompile(`\b(` + strings.Join(markers, "|") + `)\b`)
	}
	c.usToken = regexp.MustCompile(`\bus\b`)
	return c, nil
}

var defaultClassifier = sync.OnceValue(func() *Classifier {
	c, err := New(DefaultTerms())
	if err != nil {
		panic(err)
	}
	return c
})

// Default returns the shared Classifier built from DefaultTerms.
func Default() *Classifier { return defaultClassifier() }

// WithDebug returns a copy that logs every blocking/accepting decision to l.
func (c *Classifier) WithDebug(l *log.Logger) *Classifier {
	cp := *c
	cp.debug = l
	return &cp
}

func (c *Classifier) dbg(format string, args ...any) {
	if c.debug != nil {
		c.debug.Printf("[rules] "+format, args...)
	}
}

// LooksLikeEngineering reports whether title names a software engineering role.
func (c *Classifier) LooksLikeEngineering(title string) bool {
	t := strings.TrimSpace(title)
	if t == "" {
		return false
	}
	core := c.coreHints.MatchString(t)
	if c.nonSWEEngineer.MatchString(t) && !core {
		return false
	}
	return core || c.genericEngineer.MatchString(t)
}

// HasSeniorMarker reports whether the title carries any seniority block term.
func (c *Classifier) HasSeniorMarker(title string) bool {
	return c.seniorBlock.MatchString(title)
}

// IsExplicitJunior reports whether the title itself advertises a junior role.
func (c *Classifier) IsExplicitJunior(title string) bool {
	return c.juniorTitle.MatchString(title) || c.years0To3.MatchString(title)
}

// InferLevel derives seniority from the title and description. Junior signals
// are checked before senior ones.
func (c *Classifier) InferLevel(title, description string) domain.Level {
	t := " " + Fold(title) + " "
	d := Fold(description)

	if containsAny(t, c.levelJuniorTitle) {
		return domain.LevelJunior
	}
	juniorDesc := containsAny(d, c.levelJuniorDesc)
	if juniorDesc {
		return domain.LevelJunior
	}
	if containsAny(t, c.levelSenior) {
		return domain.LevelSenior
	}
	if containsAny(t, c.levelMid) {
		return domain.LevelMid
	}
	return domain.LevelUnknown
}

// IsJuniorTitleOrDesc decides junior eligibility. Relaxed mode lets description
// evidence recover a title that would otherwise fail, but never overrides a
// senior title.
func (c *Classifier) IsJuniorTitleOrDesc(title, description string, relaxed bool) bool {
	if c.seniorBlock.MatchString(title) {
		c.dbg("blocked by senior title: %s", title)
		return false
	}
	text := Fold(description)
	hasDesc := strings.TrimSpace(text) != ""

	if c.engineerL2.MatchString(title) {
		if !relaxed || !hasDesc {
			c.dbg("blocked by level II/2 title")
			return false
		}
		if !c.years0To3.MatchString(text) && !containsAny(text, c.juniorDescPositives) {
			c.dbg("blocked by level II/2 title (no junior positives in description)")
			return false
		}
	}
	if c.engineerL3.MatchString(title) {
		if !relaxed || !hasDesc || !c.years0To3.MatchString(text) {
			c.dbg("blocked by level III/3 title")
			return false
		}
	}
	if c.IsExplicitJunior(title) {
		c.dbg("accepted by title: %s", title)
		return true
	}
	if !relaxed || !hasDesc {
		return false
	}

	positive := containsAny(text, c.juniorDescPositives)
	if c.desc4Plus.MatchString(text) {
		c.dbg("blocked by 4+ years in description")
		return false
	}
	if c.descSenior.MatchString(text) && !positive {
		c.dbg("blocked by senior words in description without junior positives")
		return false
	}
	if positive {
		c.dbg("accepted by junior-positive phrase in description")
		return true
	}
	if c.years0To3.MatchString(text) {
		c.dbg("accepted by <=3 years in description")
		return true
	}
	return false
}

// LooksRemoteUS reports whether a posting is remote and open to US candidates.
// A non-US marker in the location without any US marker blocks outright; the
// description is consulted only when the location settled nothing.
func (c *Classifier) LooksRemoteUS(location, description string) bool {
	if loc := Fold(location); strings.TrimSpace(loc) != "" {
		if c.hasNonUS(loc) && !c.usish(loc, true) {
			return false
		}
		if strings.Contains(loc, "remote") && c.usish(loc, true) {
			return true
		}
	}
	if text := Fold(description); text != "" {
		if strings.Contains(text, "remote") && c.hasNonUS(text) && !c.usish(text, false) {
			return false
		}
		if strings.Contains(text, "remote") && c.usish(text, false) {
			return true
		}
	}
	return false
}

// PassesRemoteGate is the light location-only check used by the pipeline's
// US-remote gate. A missing location does not block.
func (c *Classifier) PassesRemoteGate(location string) bool {
	loc := Fold(location)
	if strings.TrimSpace(loc) == "" {
		return true
	}
	if !strings.Contains(loc, "remote") {
		return false
	}
	if c.hasNonUS(loc) && !c.usish(loc, true) {
		return false
	}
	return c.usish(loc, true)
}

// HasNonUSMarker reports whether text names a non-US country or region.
func (c *Classifier) HasNonUSMarker(text string) bool { return c.hasNonUS(Fold(text)) }

func (c *Classifier) hasNonUS(folded string) bool {
	return c.nonUS != nil && c.nonUS.MatchString(folded)
}

// usish matches the US phrase list; locations also accept a bare "US" token,
// which would be too noisy in free-form descriptions ("join us").
func (c *Classifier) usish(folded string, location bool) bool {
	if containsAny(folded, c.usPhrases) {
		return true
	}
	return location && c.usToken.MatchString(folded)
}

// IsRecent reports whether postedAt falls within the last days days of now.
// Timestamps are compared as UTC; an unknown date is never recent.
func IsRecent(postedAt *time.Time, days int, now time.Time) bool {
	if postedAt == nil {
		return false
	}
	return now.UTC().Sub(postedAt.UTC()) <= time.Duration(days)*24*time.Hour
}

var foldChain = sync.Pool{New: func() any {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}}

// Fold lowercases s and strips combining marks so "Développeur" matches "developpeur".
func Fold(s string) string {
	if s == "" {
		return ""
	}
	t := foldChain.Get().(transform.Transformer)
	defer foldChain.Put(t)
	t.Reset()
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(s); strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}

// containsAny reports whether any phrase occurs in text with word boundaries on
// its alphanumeric ends, so "engineer i" does not fire inside "engineer ii".
// A plural "s" is tolerated after words longer than three letters ("new grads").
func containsAny(text string, phrases []string) bool {
	for _, p := range phrases {
		if containsPhrase(text, p) {
			return true
		}
	}
	return false
}

func containsPhrase(text, phrase string) bool {
	if phrase == "" {
		return false
	}
	first, last := phrase[0], phrase[len(phrase)-1]
	plural := lastWordLen(phrase) > 3
	from := 0
	for {
		i := strings.Index(text[from:], phrase)
		if i < 0 {
			return false
		}
		start := from + i
		end := start + len(phrase)
		okStart := !isWordByte(first) || start == 0 || !isWordByte(text[start-1])
		okEnd := !isWordByte(last) || end == len(text) || !isWordByte(text[end])
		if !okEnd && plural && text[end] == 's' {
			okEnd = end+1 == len(text) || !isWordByte(text[end+1])
		}
		if okStart && okEnd {
			return true
		}
		from = start + 1
	}
}

func lastWordLen(phrase string) int {
	f := strings.Fields(phrase)
	if len(f) == 0 {
		return 0
	}
	return len(f[len(f)-1])
}

func isWordByte(b byte) bool {
	return b < 0x80 && (unicode.IsLetter(rune(b)) || unicode.IsDigit(rune(b)))
}
