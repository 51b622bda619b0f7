package github

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nelson-zack/job-radar/internal/domain"
	"github.com/nelson-zack/job-radar/internal/scrape/util"
)

const readme = `# New Grad Positions

| Company | Role | Location | Application/Link | Date Posted |
| ------- | ---- | -------- | ---------------- | ----------- |
| **[Acme](https://acme.com)** | Software Engineer I | Remote in USA | [Apply](https://boards.greenhouse.io/acme/jobs/1?gh_jid=1&utm_source=simplify) | Sep 15 |
| ↳ | Backend Engineer | Toronto, Canada (Remote) | [Apply](https://acme.com/jobs/2) | Sep 14 |
| Globex | Data Engineer | New York, NY | [Apply](https://globex.com/jobs/3) | Sep 13 |
| Initech | New Grad SWE | Remote | <a href="https://initech.com/careers/4"><img alt="Apply"></a> | Sep 12 |
| Simplify | Company page | Remote | [Apply](https://simplify.jobs/about) | Sep 12 |
`

func newTestProvider(srv *httptest.Server, opts Options) *Provider {
	p := New(util.NewClient(nil, 2*time.Second), opts)
	p.RawBase = srv.URL
	return p
}

func serveReadme(t *testing.T, path, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != path {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchMarkdownTable(t *testing.T) {
	srv := serveReadme(t, "/owner/list/master/README.md", readme)

	res := newTestProvider(srv, Options{RemoteOnly: true, USOnly: true, DateScrape: true}).
		Fetch(context.Background(), domain.CompanyEntry{Company: "owner/list", Token: "owner/list"})
	require.True(t, res.OK(), res.Failure)
	require.Len(t, res.Postings, 2)

	a := res.Postings[0]
	assert.Equal(t, "Acme", a.Company)
	assert.Equal(t, "Software Engineer I", a.Title)
	assert.Equal(t, "https://boards.greenhouse.io/acme/jobs/1?gh_jid=1", a.URL)
	assert.Equal(t, "Remote (US)", a.Location)
	assert.Equal(t, "Sep 15", a.DateText)
	assert.Equal(t, util.URLHash(a.URL), a.ExternalID)

	b := res.Postings[1]
	assert.Equal(t, "Initech", b.Company)
	assert.Equal(t, "https://initech.com/careers/4", b.URL)
}

func TestFetchWithoutFilters(t *testing.T) {
	srv := serveReadme(t, "/owner/list/main/README.md", readme)

	res := newTestProvider(srv, Options{}).
		Fetch(context.Background(), domain.CompanyEntry{Token: "https://github.com/owner/list"})
	require.True(t, res.OK(), res.Failure)
	require.Len(t, res.Postings, 4, "the simplify company page is dropped")

	assert.Equal(t, "Acme", res.Postings[1].Company, "sub-row arrow is stripped")
	assert.Empty(t, res.Postings[1].Timestamps)
	assert.Empty(t, res.Postings[0].DateText, "dates only with date scrape enabled")
}

func TestFetchHTMLTable(t *testing.T) {
	html := `<table>
<thead><tr><th>Company</th><th>Role</th><th>Location</th><th>Application</th><th>Age</th></tr></thead>
<tbody>
<tr><td>Umbrella</td><td>Software Engineer</td><td>Remote, US</td><td><a href="https://simplify.jobs/c/umbrella">Simplify</a> <a href="https://umbrella.com/jobs/9">Apply</a></td><td>3d</td></tr>
</tbody></table>`
	srv := serveReadme(t, "/o/r/main/NEW_GRAD_USA.md", html)

	res := newTestProvider(srv, Options{USOnly: true, DateScrape: true}).
		Fetch(context.Background(), domain.CompanyEntry{Token: "https://github.com/o/r/blob/main/NEW_GRAD_USA.md"})
	require.True(t, res.OK(), res.Failure)
	require.Len(t, res.Postings, 1)
	assert.Equal(t, "https://umbrella.com/jobs/9", res.Postings[0].URL)
	assert.Equal(t, "3d", res.Postings[0].DateText)
}

func TestFetchBulletFallback(t *testing.T) {
	md := "# Jobs\n\n- [Hooli - Junior Engineer](https://hooli.com/j/1)\n1. [Pied Piper — Backend Dev](https://piedpiper.com/j/2)\n"
	srv := serveReadme(t, "/o/r/main/README.md", md)

	res := newTestProvider(srv, Options{}).Fetch(context.Background(), domain.CompanyEntry{Token: "o/r"})
	require.True(t, res.OK(), res.Failure)
	require.Len(t, res.Postings, 2)
	assert.Equal(t, "Hooli", res.Postings[0].Company)
	assert.Equal(t, "Junior Engineer", res.Postings[0].Title)
	assert.Equal(t, "Pied Piper", res.Postings[1].Company)
}

func TestFetchMissing(t *testing.T) {
	srv := serveReadme(t, "/nothing", "")
	res := newTestProvider(srv, Options{}).Fetch(context.Background(), domain.CompanyEntry{Token: "o/r"})
	assert.False(t, res.OK())
	assert.Contains(t, res.Failure, "status 404")
}

func TestCandidateRawURLs(t *testing.T) {
	p := New(nil, Options{})
	assert.Equal(t, []string{
		"https://raw.githubusercontent.com/o/r/dev/LIST.md",
		"https://raw.githubusercontent.com/o/r/main/LIST.md",
		"https://raw.githubusercontent.com/o/r/master/LIST.md",
	}, p.candidateRawURLs("https://github.com/o/r/blob/dev/LIST.md"))
	assert.Len(t, p.candidateRawURLs("o/r"), 6)
	assert.Equal(t, []string{"https://example.com/list.md"}, p.candidateRawURLs("https://example.com/list.md"))
}

func TestLooksUSOnly(t *testing.T) {
	tests := []struct {
		loc  string
		want bool
	}{
		{"Remote (US)", true},
		{"San Francisco, CA, USA", true},
		{"Remote", true},
		{"Remote - Canada", false},
		{"London, UK", false},
		{"Bangalore, India", false},
	}
	for _, tt := range tests {
		t.Run(tt.loc, func(t *testing.T) {
			assert.Equal(t, tt.want, looksUSOnly(tt.loc))
		})
	}
}
