package notify

import (
	"context"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nelson-zack/job-radar/internal/domain"
)

var quiet = log.New(io.Discard, "", 0)

type captureSender struct{ texts []string }

func (c *captureSender) Send(_ context.Context, text string) error {
	c.texts = append(c.texts, text)
	return nil
}

func job(title, company, url string) domain.NormalizedJob {
	return domain.NormalizedJob{Title: title, Company: company, URL: url, Source: domain.SourceGreenhouse, ExternalID: url}
}

func TestDigestPicksNewTopN(t *testing.T) {
	now := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	posted := now.Add(-48 * time.Hour)
	loc := "Remote - US"

	a := job("Software Engineer I", "Acme & Co", "https://a/1")
	a.Location = &loc
	a.PostedAt = &posted
	a.SkillScore = 3
	b := job("Old Posting", "Initech", "https://b/1")
	c := job("New Grad <SWE>", "Globex", "https://c/1")
	d := job("Another", "Hooli", "https://d/1")

	s := &captureSender{}
	n, err := Digest{Sender: s, TopN: 2, Now: func() time.Time { return now }, Logger: quiet}.
		Notify(context.Background(), []domain.NormalizedJob{a, b, c, d}, func(j domain.NormalizedJob) bool { return j.URL != "https://b/1" })
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, s.texts, 1)

	msg := s.texts[0]
	assert.Contains(t, msg, "<b>2 new postings</b>")
	assert.Contains(t, msg, `1. <a href="https://a/1">Software Engineer I</a> at Acme &amp; Co`)
	assert.Contains(t, msg, "Remote - US · 2d ago · score 3")
	assert.Contains(t, msg, "New Grad &lt;SWE&gt;")
	assert.NotContains(t, msg, "Old Posting")
	assert.NotContains(t, msg, "Hooli")
}

func TestDigestNothingNew(t *testing.T) {
	s := &captureSender{}
	n, err := Digest{Sender: s, Logger: quiet}.Notify(context.Background(),
		[]domain.NormalizedJob{job("x", "y", "https://z")}, func(domain.NormalizedJob) bool { return false })
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, s.texts)
}

func TestTelegramSend(t *testing.T) {
	var (
		mu   sync.Mutex
		sent = map[string]string{}
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/getMe"):
			_, _ = io.WriteString(w, `{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"radar","username":"radar_bot"}}`)
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			assert.NoError(t, r.ParseForm())
			mu.Lock()
			sent["chat_id"] = r.PostForm.Get("chat_id")
			sent["text"] = r.PostForm.Get("text")
			sent["parse_mode"] = r.PostForm.Get("parse_mode")
			mu.Unlock()
			_, _ = io.WriteString(w, `{"ok":true,"result":{"message_id":7,"date":0,"chat":{"id":42,"type":"private"}}}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	tg, err := NewTelegram("TOKEN", 42, srv.URL+"/bot%s/%s")
	require.NoError(t, err)
	require.NoError(t, tg.Send(context.Background(), "<b>hi</b>"))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "42", sent["chat_id"])
	assert.Equal(t, "<b>hi</b>", sent["text"])
	assert.Equal(t, "HTML", sent["parse_mode"])
}
