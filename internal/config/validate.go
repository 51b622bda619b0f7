package config

import (
	"fmt"
	"strings"

	"github.com/nelson-zack/job-radar/internal/domain"
)

type Validation struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (v *Validation) addErr(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}
func (v *Validation) addWarn(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}
func (v Validation) OK() bool { return len(v.Errors) == 0 }

func trimList(xs []string) []string {
	seen := map[string]bool{}
	var ys []string
	for _, x := range xs {
		x = strings.TrimSpace(x)
		if x == "" {
			continue
		}
		key := strings.ToLower(x)
		if seen[key] {
			continue
		}
		seen[key] = true
		ys = append(ys, x)
	}
	return ys
}

// lowerList trims, lowercases and de-duplicates skill terms.
func lowerList(xs []string) []string {
	ys := trimList(xs)
	for i := range ys {
		ys[i] = strings.ToLower(ys[i])
	}
	return ys
}

// NormalizeAndValidate returns a normalized copy plus any problems found.
func NormalizeAndValidate(cfg Config) (Config, Validation) {
	var out = cfg
	var res Validation

	out.Skills.Any = lowerList(out.Skills.Any)
	out.Skills.All = lowerList(out.Skills.All)
	out.Sources.GitHub.Repos = trimList(out.Sources.GitHub.Repos)
	out.Sources.Crawler.Seeds = trimList(out.Sources.Crawler.Seeds)
	out.Sources.Crawler.Mailbox.SubjectAny = trimList(out.Sources.Crawler.Mailbox.SubjectAny)

	if out.App.Port <= 0 || out.App.Port > 65535 {
		res.addErr("app.port must be 1..65535")
	}

	switch out.Database.Driver {
	case "sqlite":
		if strings.TrimSpace(out.Database.Path) == "" {
			res.addErr("database.path is required when database.driver=sqlite")
		}
	case "postgres":
		if strings.TrimSpace(out.Database.URL) == "" {
			res.addErr("database.url (or DATABASE_URL) is required when database.driver=postgres")
		}
	default:
		res.addErr("database.driver must be sqlite or postgres, got %q", out.Database.Driver)
	}

	if out.Pipeline.RecentDays < 0 {
		res.addErr("pipeline.recent_days must be >= 0")
	}
	if out.Pipeline.RequireDate && out.Pipeline.RecentDays == 0 {
		res.addWarn("pipeline.require_date has no effect without pipeline.recent_days")
	}
	if out.Pipeline.MinScore < 0 {
		res.addErr("pipeline.min_score must be >= 0")
	}
	if out.Skills.Hard && len(out.Skills.Any) == 0 && len(out.Skills.All) == 0 && !out.Skills.UseDefaults {
		res.addWarn("skills.hard is set but no skill terms are configured; nothing will be gated")
	}

	e := out.Enrichment
	if e.DescCap < 0 || e.JuniorTopUpCap < 0 || e.DateBackfillCap < 0 {
		res.addErr("enrichment caps must be >= 0")
	}
	for name, n := range e.DescCapByProvider {
		if _, ok := domain.ParseSource(name); !ok {
			res.addWarn("enrichment.desc_cap_by_provider has unknown provider %q", name)
		}
		if n < 0 {
			res.addErr("enrichment.desc_cap_by_provider[%s] must be >= 0", name)
		}
	}
	if e.MaxChars <= 0 {
		res.addErr("enrichment.max_chars must be > 0")
	}
	if e.Workers <= 0 {
		res.addErr("enrichment.workers must be > 0")
	}

	if out.HTTP.RequestsPerSecond <= 0 {
		res.addErr("http.requests_per_second must be > 0")
	} else if out.HTTP.RequestsPerSecond > 10 {
		res.addWarn("http.requests_per_second is high (%.1f) and may trip provider rate limits.", out.HTTP.RequestsPerSecond)
	}
	if out.HTTP.FetchWorkers <= 0 {
		res.addErr("http.fetch_workers must be > 0")
	}

	c := out.Sources.Crawler
	if c.MaxDepth < 0 || c.MaxPages < 0 {
		res.addErr("sources.crawler.max_depth and max_pages must be >= 0")
	}
	for _, s := range c.Seeds {
		if !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
			res.addWarn("sources.crawler.seeds entry %q is not an http(s) URL", s)
		}
	}

	// password is not required here; it lives in the keychain
	if c.Mailbox.Enabled {
		if strings.TrimSpace(c.Mailbox.IMAPHost) == "" {
			res.addErr("sources.crawler.mailbox.imap_host is required when mailbox.enabled=true")
		}
		if c.Mailbox.IMAPPort == 0 {
			res.addErr("sources.crawler.mailbox.imap_port is required when mailbox.enabled=true")
		}
		if strings.TrimSpace(c.Mailbox.Username) == "" {
			res.addErr("sources.crawler.mailbox.username is required when mailbox.enabled=true")
		}
		if len(c.Mailbox.SubjectAny) == 0 {
			res.addWarn("sources.crawler.mailbox.subject_any is empty; every recent message will be scanned.")
		}
	}

	if out.Scheduler.IntervalMinutes <= 0 {
		res.addErr("scheduler.interval_minutes must be > 0")
	} else if out.Scheduler.IntervalMinutes < 15 {
		res.addWarn("scheduler.interval_minutes is very low (%d) and may cause rate limits.", out.Scheduler.IntervalMinutes)
	}

	if out.Notify.Telegram.Enabled && out.Notify.Telegram.ChatID == 0 {
		res.addErr("notify.telegram.chat_id is required when notify.telegram.enabled=true")
	}

	return out, res
}
