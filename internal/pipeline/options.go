package pipeline

import (
	"time"

	"github.com/nelson-zack/job-radar/internal/config"
	"github.com/nelson-zack/job-radar/internal/domain"
	"github.com/nelson-zack/job-radar/internal/scrape/util"
)

// Options are the knobs of one run. Zero values disable the matching gate
// or pass.
type Options struct {
	Relax           bool
	JuniorOnly      bool
	USRemoteOnly    bool
	RecentDays      int
	RequireDate     bool
	MinScore        int
	EntryExclusions bool

	SkillsAny  []string
	SkillsAll  []string
	SkillsHard bool

	DescCap         int
	DescCapBySource map[domain.Source]int
	JuniorTopUpCap  int
	DateBackfillCap int
	MaxChars        int
	DescTimeout     time.Duration

	FetchWorkers  int
	EnrichWorkers int
	FetchTimeout  time.Duration

	// DateInference enables the provenance chain for curated-list postings.
	DateInference bool
}

// OptionsFromConfig maps the loaded config onto run options. Skill lists
// go through config.EffectiveSkills so the defaults file is honoured.
func OptionsFromConfig(cfg config.Config) Options {
	anyTerms, allTerms := cfg.EffectiveSkills()
	byProvider := map[domain.Source]int{}
	for _, src := range domain.AllSources {
		if _, ok := cfg.Enrichment.DescCapByProvider[string(src)]; ok {
			byProvider[src] = cfg.DescCapFor(src)
		}
	}
	return Options{
		Relax:           cfg.Pipeline.Relax,
		JuniorOnly:      cfg.Pipeline.JuniorOnly,
		USRemoteOnly:    cfg.Pipeline.USRemoteOnly,
		RecentDays:      cfg.Pipeline.RecentDays,
		RequireDate:     cfg.Pipeline.RequireDate,
		MinScore:        cfg.Pipeline.MinScore,
		EntryExclusions: cfg.Pipeline.EntryExclusions,

		SkillsAny:  anyTerms,
		SkillsAll:  allTerms,
		SkillsHard: cfg.Skills.Hard,

		DescCap:         cfg.Enrichment.DescCap,
		DescCapBySource: byProvider,
		JuniorTopUpCap:  cfg.Enrichment.JuniorTopUpCap,
		DateBackfillCap: cfg.Enrichment.DateBackfillCap,
		MaxChars:        cfg.Enrichment.MaxChars,
		DescTimeout:     cfg.DescTimeout(),

		FetchWorkers:  cfg.HTTP.FetchWorkers,
		EnrichWorkers: cfg.Enrichment.Workers,
		FetchTimeout:  5 * time.Minute,

		DateInference: cfg.Sources.GitHub.DateInference,
	}
}

func (o Options) descCap(src domain.Source) int {
	if n, ok := o.DescCapBySource[src]; ok {
		return n
	}
	return o.DescCap
}

func (o Options) withDefaults() Options {
	if o.FetchWorkers <= 0 {
		o.FetchWorkers = 10
	}
	if o.EnrichWorkers <= 0 {
		o.EnrichWorkers = 8
	}
	if o.FetchTimeout <= 0 {
		o.FetchTimeout = 5 * time.Minute
	}
	if o.DescTimeout <= 0 {
		o.DescTimeout = 8 * time.Second
	}
	return o
}

// Entries merges the companies registry with the config-driven sources:
// one entry per curated GitHub repo and one per crawler seed.
func Entries(cfg config.Config, companies []domain.CompanyEntry, extraSeeds ...string) []domain.CompanyEntry {
	out := make([]domain.CompanyEntry, 0, len(companies)+len(cfg.Sources.GitHub.Repos)+len(cfg.Sources.Crawler.Seeds))
	out = append(out, companies...)
	for _, repo := range cfg.Sources.GitHub.Repos {
		out = append(out, domain.CompanyEntry{
			Provider: domain.SourceGitHub, Company: repo, Token: repo, Priority: "normal",
		})
	}
	seen := map[string]bool{}
	for _, seed := range append(append([]string{}, cfg.Sources.Crawler.Seeds...), extraSeeds...) {
		if seed == "" || seen[seed] {
			continue
		}
		seen[seed] = true
		out = append(out, domain.CompanyEntry{
			Provider: domain.SourceCrawler, Company: util.HostOf(seed), Host: seed, Priority: "normal",
		})
	}
	return out
}
