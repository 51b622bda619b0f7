package httpapi

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"github.com/nelson-zack/job-radar/internal/classify"
	"github.com/nelson-zack/job-radar/internal/config"
	"github.com/nelson-zack/job-radar/internal/domain"
	"github.com/nelson-zack/job-radar/internal/events"
	"github.com/nelson-zack/job-radar/internal/poll"
	"github.com/nelson-zack/job-radar/internal/scrape/types"
	"github.com/nelson-zack/job-radar/internal/store"
)

// Runner is the part of poll.Runner the admin endpoints drive.
type Runner interface {
	RunOnce(ctx context.Context, reqID string, only ...domain.Source) (poll.Outcome, error)
	IngestCurated(ctx context.Context, reqID string) (poll.Outcome, error)
	BackfillPostedAt(ctx context.Context, reqID string) (store.BackfillResult, error)
	Status() types.RunStatus
}

type Deps struct {
	Store  store.Store
	Runner Runner
	Hub    *events.Hub

	// Atomic stores
	CfgVal *atomic.Value // stores config.Config

	// Config persistence
	UserCfgPath string
	LoadCfg     func() (config.Config, error)

	// AdminToken returns the X-Token value admin endpoints require. An empty
	// token closes them.
	AdminToken func() string

	// SetSecret stores a keyring entry (inject for testability).
	SetSecret func(account, value string) error

	Now func() time.Time
}

func (d Deps) cfg() config.Config {
	if d.CfgVal == nil {
		return config.Default()
	}
	if c, ok := d.CfgVal.Load().(config.Config); ok {
		return c
	}
	return config.Default()
}

// rules follows pipeline.rules_file like the runner does.
func (d Deps) rules(cfg config.Config) *classify.Classifier {
	rules, err := poll.NewRules(cfg)
	if err != nil {
		log.Printf("[api] rules file=%q err=%v", cfg.Pipeline.RulesFile, err)
		return classify.Default()
	}
	return rules
}

func (d Deps) now() time.Time {
	if d.Now == nil {
		return time.Now().UTC()
	}
	return d.Now().UTC()
}
