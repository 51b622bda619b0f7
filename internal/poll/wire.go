package poll

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/nelson-zack/job-radar/internal/classify"
	"github.com/nelson-zack/job-radar/internal/config"
	"github.com/nelson-zack/job-radar/internal/notify"
	"github.com/nelson-zack/job-radar/internal/scrape/mailseed"
	"github.com/nelson-zack/job-radar/internal/secrets"
	"github.com/nelson-zack/job-radar/internal/store"
	"github.com/nelson-zack/job-radar/internal/store/pgstore"
)

// OpenStore opens the database named by cfg.Database.
func OpenStore(ctx context.Context, cfg config.Config) (store.Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Database.Driver)) {
	case "", "sqlite":
		return store.Open(cfg.Database.Path)
	case "postgres", "postgresql":
		if strings.TrimSpace(cfg.Database.URL) == "" {
			return nil, errors.New("database.driver=postgres needs database.url or DATABASE_URL")
		}
		return pgstore.Open(ctx, cfg.Database.URL)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
}

// NewDigest builds the Telegram digest when notify.telegram is enabled.
// It returns nil, nil when notifications are off.
func NewDigest(cfg config.Config) (*notify.Digest, error) {
	tg := cfg.Notify.Telegram
	if !tg.Enabled {
		return nil, nil
	}
	token, err := secrets.TelegramToken()
	if err != nil {
		return nil, fmt.Errorf("telegram token: %w", err)
	}
	sender, err := notify.NewTelegram(token, tg.ChatID, "")
	if err != nil {
		return nil, err
	}
	return &notify.Digest{Sender: sender, TopN: tg.TopN}, nil
}

// NewMailbox builds the crawler's IMAP seed mailbox when it is enabled.
// It returns nil, nil when the mailbox is off.
func NewMailbox(cfg config.Config) (mailseed.Mailbox, error) {
	mb := cfg.Sources.Crawler.Mailbox
	if !mb.Enabled {
		return nil, nil
	}
	pw, err := secrets.IMAPPassword(secrets.IMAPKeyringAccount(cfg))
	if err != nil {
		return nil, err
	}
	return mailseed.IMAPMailbox{
		Host:     mb.IMAPHost,
		Port:     mb.IMAPPort,
		Username: mb.Username,
		Password: pw,
		Mailbox:  mb.Mailbox,
		Max:      200,
	}, nil
}

// NewRules builds the classifier for cfg: the built-in terms, overlaid with
// pipeline.rules_file when set, logging decisions when pipeline.debug_rules
// is on.
func NewRules(cfg config.Config) (*classify.Classifier, error) {
	rules := classify.Default()
	if path := strings.TrimSpace(cfg.Pipeline.RulesFile); path != "" {
		terms, err := classify.LoadTerms(path)
		if err != nil {
			return nil, err
		}
		if rules, err = classify.New(terms); err != nil {
			return nil, fmt.Errorf("rules %s: %w", path, err)
		}
	}
	if cfg.Pipeline.DebugRules {
		rules = rules.WithDebug(log.Default())
	}
	return rules, nil
}
