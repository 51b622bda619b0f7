package workable

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

func newTestProvider(srv *httptest.Server) *Provider {
	p := New(util.NewClient(nil, 2*time.Second), 0)
	p.ApplyBase = srv.URL
	p.SubdomainFormat = srv.URL + "/sub/%s/"
	return p
}

func TestFetchWidget(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/widget/accounts/acme", r.URL.Path)
		_, _ = w.Write([]byte(`{"name":"Acme","jobs":[
			{"title":"Junior Developer","shortcode":"AB12","url":"https://apply.workable.com/j/AB12",
			 "city":"Austin","state":"Texas","country":"United States","telecommuting":true,
			 "published_on":"2025-09-10","created_at":"2025-09-08"},
			{"title":"Office Manager","shortcode":"CD34","city":"Berlin","country":"Germany"}
		]}`))
	}))
	defer srv.Close()

	res := newTestProvider(srv).Fetch(context.Background(), domain.CompanyEntry{Company: "Acme", Token: "acme"})
	require.True(t, res.OK(), res.Failure)
	require.Len(t, res.Postings, 2)

	a := res.Postings[0]
	assert.Equal(t, "AB12", a.ExternalID)
	assert.Equal(t, "Remote - Austin, Texas, United States", a.Location)
	assert.Equal(t, []string{"2025-09-10", "2025-09-08"}, a.Timestamps)

	b := res.Postings[1]
	assert.Equal(t, "Berlin, Germany", b.Location)
	assert.Equal(t, "https://apply.workable.com/acme/j/CD34/", b.URL)
}

func TestFetchBoardFallback(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/widget/accounts/acme", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	mux.HandleFunc("/acme/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	mux.HandleFunc("/sub/acme/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><ul>
			<li><a href="/jobs/101">Backend Engineer</a><span class="location">New York, NY</span></li>
			<li><a href="/jobs/102">Frontend Engineer</a><span>Fully Remote</span></li>
			<li><a href="/jobs/102">Frontend Engineer</a></li>
			<li><a href="/about">About us</a></li>
		</ul></body></html>`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	res := newTestProvider(srv).Fetch(context.Background(), domain.CompanyEntry{Company: "Acme", Token: "acme"})
	require.True(t, res.OK(), res.Failure)
	require.Len(t, res.Postings, 2)

	assert.Equal(t, "Backend Engineer", res.Postings[0].Title)
	assert.Equal(t, srv.URL+"/jobs/101", res.Postings[0].URL)
	assert.Equal(t, "New York, NY", res.Postings[0].Location)
	assert.Equal(t, "Fully Remote", res.Postings[1].Location)
	assert.Nil(t, res.Postings[1].Timestamps)
}

func TestFetchAllFail(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	res := newTestProvider(srv).Fetch(context.Background(), domain.CompanyEntry{Company: "Acme", Token: "acme"})
	assert.False(t, res.OK())
	assert.Contains(t, res.Failure, "workable board")
}
