package mailseed

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMailbox struct {
	msgs  []Message
	err   error
	since time.Time
}

func (f *fakeMailbox) Messages(_ context.Context, since time.Time) ([]Message, error) {
	f.since = since
	return f.msgs, f.err
}

var quiet = log.New(io.Discard, "", 0)

func crlf(s string) []byte { return []byte(strings.ReplaceAll(s, "\n", "\r\n")) }

const alertMultipart = `From: alerts@example.com
To: me@example.com
Subject: =?UTF-8?Q?New_Job_Alert:_3_roles?=
MIME-Version: 1.0
Content-Type: multipart/alternative; boundary="XYZ"

--XYZ
Content-Type: text/plain; charset=utf-8

Backend role: https://boards.greenhouse.io/acme/jobs/123?utm_source=mail.
Unsubscribe: https://example.com/unsubscribe?id=9

--XYZ
Content-Type: text/html; charset=utf-8
Content-Transfer-Encoding: quoted-printable

<p><a href=3D"https://www.google.com/url?q=3Dhttps://initech.com/careers/42&amp;sa=3DD">Initech</a></p>
<p><a href=3D"https://example.com/privacy">Privacy</a></p>
<p><a href=3D"https://boards.greenhouse.io/acme/jobs/123">Acme again</a></p>
--XYZ--
`

const newsletter = `From: news@example.com
Subject: Weekly newsletter
Content-Type: text/plain

Read more at https://jobs.example.com/positions/7
`

func TestCollect(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	mb := &fakeMailbox{msgs: []Message{
		{Raw: crlf(alertMultipart)},
		{Raw: crlf(newsletter)},
	}}

	seeds, err := Collect(context.Background(), mb, Options{
		SubjectAny: []string{"job alert"},
		SinceDays:  3,
		Now:        func() time.Time { return now },
		Logger:     quiet,
	})
	require.NoError(t, err)

	assert.Equal(t, now.AddDate(0, 0, -3), mb.since)
	assert.Equal(t, []string{
		"https://initech.com/careers/42",
		"https://boards.greenhouse.io/acme/jobs/123",
	}, seeds)
}

func TestCollectNoSubjectFilter(t *testing.T) {
	mb := &fakeMailbox{msgs: []Message{{Raw: crlf(newsletter)}}}
	seeds, err := Collect(context.Background(), mb, Options{Logger: quiet})
	require.NoError(t, err)
	assert.Equal(t, []string{"https://jobs.example.com/positions/7"}, seeds)
}

func TestCollectMailboxError(t *testing.T) {
	mb := &fakeMailbox{err: errors.New("dial refused")}
	_, err := Collect(context.Background(), mb, Options{Logger: quiet})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dial refused")
}

func TestParseRFC822Base64(t *testing.T) {
	raw := crlf(`Subject: Hello
Content-Type: text/plain; charset=utf-8
Content-Transfer-Encoding: base64

aHR0cHM6Ly9hY21lLmNvbS9qb2JzLzE=
`)
	subject, plain, html := parseRFC822(raw, "fallback")
	assert.Equal(t, "Hello", subject)
	assert.Equal(t, "https://acme.com/jobs/1", strings.TrimSpace(plain))
	assert.Empty(t, html)
}

func TestLooksLikeJobLink(t *testing.T) {
	cases := []struct {
		url  string
		want bool
	}{
		{"https://acme.com/careers/42", true},
		{"https://jobs.lever.co/acme/abc-123", true},
		{"https://acme.com/blog/post", false},
		{"https://acme.com/jobs?unsubscribe=1", false},
		{"mailto:hr@acme.com", false},
		{"https://acme.com/apply?gh_jid=55", true},
	}
	for _, tc := range cases {
		t.Run(tc.url, func(t *testing.T) {
			assert.Equal(t, tc.want, looksLikeJobLink(tc.url))
		})
	}
}

func TestUnwrapRedirect(t *testing.T) {
	assert.Equal(t, "https://acme.com/jobs/1", unwrapRedirect("https://www.google.com/url?q=https://acme.com/jobs/1&sa=D"))
	assert.Equal(t, "https://acme.com/jobs/1", unwrapRedirect("https://click.example.com/t?url=https%3A%2F%2Facme.com%2Fjobs%2F1"))
	assert.Equal(t, "https://acme.com/jobs/1", unwrapRedirect("https://acme.com/jobs/1"))
}
