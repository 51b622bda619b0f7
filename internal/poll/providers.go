package poll

import (
	"log"
	"strings"

	"github.com/nelson-zack/job-radar/internal/config"
	"github.com/nelson-zack/job-radar/internal/domain"
	"github.com/nelson-zack/job-radar/internal/scrape/ashby"
	"github.com/nelson-zack/job-radar/internal/scrape/crawler"
	"github.com/nelson-zack/job-radar/internal/scrape/github"
	"github.com/nelson-zack/job-radar/internal/scrape/greenhouse"
	"github.com/nelson-zack/job-radar/internal/scrape/lever"
	"github.com/nelson-zack/job-radar/internal/scrape/types"
	"github.com/nelson-zack/job-radar/internal/scrape/util"
	"github.com/nelson-zack/job-radar/internal/scrape/workable"
	"github.com/nelson-zack/job-radar/internal/scrape/workday"
)

// NewClient builds the shared rate-limited HTTP client from the http section.
func NewClient(cfg config.Config) *util.Client {
	limiter := util.NewHostLimiter(cfg.HTTP.RequestsPerSecond, cfg.HTTP.Burst)
	for host, rps := range cfg.HTTP.HostRates {
		if rps > 0 {
			limiter.SetHostRate(strings.ToLower(host), rps)
		}
	}
	c := util.NewClient(limiter, cfg.HTTPTimeout())
	if ua := strings.TrimSpace(cfg.HTTP.UserAgent); ua != "" {
		c.UserAgent = ua
	}
	return c
}

// Providers returns one provider per source, all sharing c.
func Providers(cfg config.Config, c *util.Client, l *log.Logger) []types.Provider {
	if l == nil {
		l = log.Default()
	}
	gh := cfg.Sources.GitHub
	cr := cfg.Sources.Crawler
	return []types.Provider{
		greenhouse.New(c, cfg.DescCapFor(domain.SourceGreenhouse)),
		lever.New(c, cfg.DescCapFor(domain.SourceLever)),
		ashby.New(c, cfg.DescCapFor(domain.SourceAshby)),
		workable.New(c, cfg.DescCapFor(domain.SourceWorkable)),
		workday.New(c),
		github.New(c, github.Options{RemoteOnly: gh.RemoteOnly, USOnly: gh.USOnly, DateScrape: gh.DateScrape}),
		crawler.New(c, crawler.NewRegistry(), cr.MaxDepth, cr.MaxPages, l),
	}
}
