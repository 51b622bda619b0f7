// Command radar runs one aggregation pass over the company registry and
// writes output/jobs_raw.json, output/jobs.json and a ranked CSV.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/nelson-zack/job-radar/internal/config"
	"github.com/nelson-zack/job-radar/internal/domain"
	"github.com/nelson-zack/job-radar/internal/export"
	"github.com/nelson-zack/job-radar/internal/pipeline"
	"github.com/nelson-zack/job-radar/internal/poll"
	"github.com/nelson-zack/job-radar/internal/scheduler"
)

type options struct {
	configPath string
	outDir     string
	csvOut     string
	only       string
	save       bool
	notify     bool
	noSummary  bool

	relax        bool
	juniorOnly   bool
	usRemoteOnly bool
	recentDays   int
	requireDate  bool
	minScore     int

	descCap      int
	descTimeout  int
	descMaxChars int

	skillsAny      string
	skillsAll      string
	skillsHard     bool
	skillsDefaults string
}

func main() {
	var o options
	flag.StringVar(&o.configPath, "config", "", "config file (default $RADAR_CONFIG or "+config.DefaultPath+")")
	flag.StringVar(&o.outDir, "out", "output", "directory for jobs_raw.json and jobs.json")
	flag.StringVar(&o.csvOut, "csv-out", filepath.Join("output", "jobs.csv"), "CSV output path")
	flag.StringVar(&o.only, "only", "", "comma-separated sources to run (default all)")
	flag.BoolVar(&o.save, "save", false, "persist results to the configured database")
	flag.BoolVar(&o.notify, "notify", false, "send the Telegram digest for new postings (implies -save)")
	flag.BoolVar(&o.noSummary, "no-summary", false, "suppress the run summary")

	flag.BoolVar(&o.relax, "relax", false, "accept neutral engineering titles as junior")
	flag.BoolVar(&o.juniorOnly, "junior-only", false, "keep only explicit junior postings")
	flag.BoolVar(&o.usRemoteOnly, "us-remote-only", false, "keep only US-remote postings")
	flag.IntVar(&o.recentDays, "recent-days", 0, "keep postings from the last N days (0 = off)")
	flag.BoolVar(&o.requireDate, "require-date", false, "drop undated postings when -recent-days is set")
	flag.IntVar(&o.minScore, "min-score", 0, "drop postings scoring below N")

	flag.IntVar(&o.descCap, "desc-cap", 0, "detail pages fetched per provider for snippets")
	flag.IntVar(&o.descTimeout, "desc-timeout", 0, "detail page timeout in seconds")
	flag.IntVar(&o.descMaxChars, "desc-max-chars", 0, "description snippet length")

	flag.StringVar(&o.skillsAny, "skills-any", "", "comma-separated terms; each match adds a point")
	flag.StringVar(&o.skillsAll, "skills-all", "", "comma-separated terms that must all match")
	flag.BoolVar(&o.skillsHard, "skills-hard", false, "drop postings that miss the skill gates")
	flag.StringVar(&o.skillsDefaults, "skills-defaults", "", "default skills file used when no lists are given")

	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: radar [flags] [companies.json]\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	cfg, err := config.Load(config.ResolvePath(o.configPath))
	if err != nil {
		log.Fatalf("[radar] config err=%v", err)
	}
	if flag.NArg() > 0 {
		cfg.CompaniesFile = flag.Arg(0)
	}
	o.apply(&cfg, set)

	cfg, v := config.NormalizeAndValidate(cfg)
	for _, w := range v.Warnings {
		log.Printf("[radar] config warn=%q", w)
	}
	if !v.OK() {
		log.Fatalf("[radar] invalid config: %s", strings.Join(v.Errors, "; "))
	}

	only, err := parseOnly(o.only)
	if err != nil {
		log.Fatalf("[radar] %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, o, only); err != nil {
		if errors.Is(err, scheduler.ErrLocked) {
			log.Fatalf("[radar] another run is in progress (lock=%s)", cfg.Scheduler.LockFile)
		}
		log.Fatalf("[radar] err=%v", err)
	}
}

// apply copies explicitly set flags onto the loaded config.
func (o options) apply(cfg *config.Config, set map[string]bool) {
	p := &cfg.Pipeline
	if set["relax"] {
		p.Relax = o.relax
	}
	if set["junior-only"] {
		p.JuniorOnly = o.juniorOnly
	}
	if set["us-remote-only"] {
		p.USRemoteOnly = o.usRemoteOnly
	}
	if set["recent-days"] {
		p.RecentDays = o.recentDays
	}
	if set["require-date"] {
		p.RequireDate = o.requireDate
	}
	if set["min-score"] {
		p.MinScore = o.minScore
	}

	e := &cfg.Enrichment
	if set["desc-cap"] {
		e.DescCap = o.descCap
	}
	if set["desc-timeout"] {
		e.DescTimeoutSeconds = o.descTimeout
	}
	if set["desc-max-chars"] {
		e.MaxChars = o.descMaxChars
	}

	s := &cfg.Skills
	if set["skills-any"] {
		s.Any = splitCSV(o.skillsAny)
	}
	if set["skills-all"] {
		s.All = splitCSV(o.skillsAll)
	}
	if set["skills-hard"] {
		s.Hard = o.skillsHard
	}
	if set["skills-defaults"] {
		cfg.DefaultSkillsFile = o.skillsDefaults
		s.UseDefaults = true
	}
}

func run(ctx context.Context, cfg config.Config, o options, only []domain.Source) error {
	r := &poll.Runner{Cfg: cfg}

	if o.save || o.notify {
		s, err := poll.OpenStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer s.Close()
		r.Store = s
	}
	if o.notify {
		d, err := poll.NewDigest(cfg)
		if err != nil {
			return err
		}
		if d == nil {
			log.Printf("[radar] -notify set but notify.telegram.enabled is false")
		}
		r.Digest = d
	}
	mb, err := poll.NewMailbox(cfg)
	if err != nil {
		log.Printf("[radar] mailbox disabled err=%v", err)
	} else if mb != nil {
		r.Mailbox = mb
	}

	out, err := r.RunOnce(ctx, "cli", only...)
	if err != nil {
		return err
	}

	paths := export.DefaultPaths(o.outDir)
	paths.CSV = o.csvOut
	if err := export.WriteAll(paths, out.Result.Raw, out.Result.Jobs, time.Now().UTC()); err != nil {
		return fmt.Errorf("write outputs: %w", err)
	}

	if !o.noSummary {
		printSummary(cfg, out, paths)
	}
	return nil
}

func printSummary(cfg config.Config, out poll.Outcome, paths export.Paths) {
	st := out.Result.Stats
	fmt.Printf("Summary: fetched=%d kept=%d unique=%d\n", st.Fetched, st.Scored, st.Unique)
	if len(st.Failures) > 0 {
		fmt.Printf("Failures: %d\n", len(st.Failures))
		for _, f := range st.Failures {
			fmt.Printf("  %s %s: %s\n", f.Source, f.Company, f.Reason)
		}
	}

	anyTerms, allTerms := cfg.EffectiveSkills()
	if len(anyTerms) > 0 || len(allTerms) > 0 {
		fmt.Printf("Skills filters: any=%v all=%v hard=%t\n", anyTerms, allTerms, cfg.Skills.Hard)
		fmt.Printf("Skills matches: >=1=%d/%d gated_drops=%d\n", st.Matched, st.Scored, st.Excluded[pipeline.DropSkills])
		if len(st.TopByScore) > 0 {
			fmt.Printf("Top by skills: %s\n", strings.Join(st.TopByScore, "; "))
		}
		if cfg.Pipeline.MinScore > 0 {
			fmt.Printf("Min-score filter: dropped=%d (threshold=%d)\n", st.Excluded[pipeline.DropMinScore], cfg.Pipeline.MinScore)
		}
	}
	if out.Saved.Created+out.Saved.Updated > 0 {
		fmt.Printf("Saved: created=%d updated=%d failed=%d\n", out.Saved.Created, out.Saved.Updated, out.Saved.Failed)
	}
	if out.Notified > 0 {
		fmt.Printf("Notified: %d\n", out.Notified)
	}
	for _, w := range out.Warnings {
		fmt.Printf("Warning: %s\n", w)
	}
	fmt.Printf("Wrote %s, %s, %s\n", paths.RawJSON, paths.JSON, paths.CSV)
}

func parseOnly(s string) ([]domain.Source, error) {
	var out []domain.Source
	for _, part := range splitCSV(s) {
		src, ok := domain.ParseSource(part)
		if !ok {
			return nil, fmt.Errorf("unknown source %q in -only", part)
		}
		out = append(out, src)
	}
	return out, nil
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
