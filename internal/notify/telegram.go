// Package notify posts a digest of new top-ranked postings after a run.
package notify

import (
	"context"
	"fmt"
	"html"
	"log"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/nelson-zack/job-radar/internal/domain"
)

// Sender delivers one formatted message.
type Sender interface {
	Send(ctx context.Context, text string) error
}

type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewTelegram authenticates the bot. endpoint overrides the Bot API URL
// format ("https://api.telegram.org/bot%s/%s") and may be empty.
func NewTelegram(token string, chatID int64, endpoint string) (*Telegram, error) {
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	bot, err := tgbotapi.NewBotAPIWithAPIEndpoint(token, endpoint)
	if err != nil {
		return nil, fmt.Errorf("telegram init: %w", err)
	}
	return &Telegram{bot: bot, chatID: chatID}, nil
}

func (t *Telegram) Send(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(t.chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}

// Digest sends the first topN jobs (already rank-ordered) for which isNew
// returns true. A nil isNew treats every job as new.
type Digest struct {
	Sender Sender
	TopN   int
	Now    func() time.Time
	Logger *log.Logger
}

// Notify returns how many postings were announced. Nothing is sent when no
// posting qualifies.
func (d Digest) Notify(ctx context.Context, jobs []domain.NormalizedJob, isNew func(domain.NormalizedJob) bool) (int, error) {
	l := d.Logger
	if l == nil {
		l = log.Default()
	}
	topN := d.TopN
	if topN <= 0 {
		topN = 10
	}
	now := time.Now().UTC()
	if d.Now != nil {
		now = d.Now()
	}

	var picked []domain.NormalizedJob
	for _, j := range jobs {
		if isNew != nil && !isNew(j) {
			continue
		}
		picked = append(picked, j)
		if len(picked) == topN {
			break
		}
	}
	if len(picked) == 0 || d.Sender == nil {
		return 0, nil
	}

	if err := d.Sender.Send(ctx, Format(picked, now)); err != nil {
		return 0, err
	}
	l.Printf("[notify] sent=%d", len(picked))
	return len(picked), nil
}

// Format renders jobs as a Telegram HTML message.
func Format(jobs []domain.NormalizedJob, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<b>%d new postings</b>\n", len(jobs))
	for i, j := range jobs {
		b.WriteString("\n")
		fmt.Fprintf(&b, "%d. <a href=\"%s\">%s</a> at %s",
			i+1, html.EscapeString(j.URL), html.EscapeString(j.Title), html.EscapeString(j.Company))
		var meta []string
		if loc := j.LocationText(); loc != "" {
			meta = append(meta, html.EscapeString(loc))
		}
		if d := j.PostedDaysAgo(now); d != nil {
			meta = append(meta, fmt.Sprintf("%dd ago", *d))
		}
		if j.SkillScore > 0 {
			meta = append(meta, fmt.Sprintf("score %d", j.SkillScore))
		}
		if len(meta) > 0 {
			b.WriteString("\n   " + strings.Join(meta, " · "))
		}
	}
	return b.String()
}
