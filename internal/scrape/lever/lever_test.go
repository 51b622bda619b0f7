package lever

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

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v0/postings/acme", r.URL.Path)
		assert.Equal(t, "json", r.URL.Query().Get("mode"))
		_, _ = w.Write([]byte(`[
			{"id":"abc","text":"Junior Backend Engineer","hostedUrl":"https://jobs.lever.co/acme/abc",
			 "createdAt":1757980800000,"categories":{"location":"Remote, US"},"description":"<p>Go and SQL</p>"},
			{"id":"def","text":"Designer","applyUrl":"https://jobs.lever.co/acme/def/apply",
			 "descriptionPlain":"Figma"}
		]`))
	}))
	defer srv.Close()

	p := New(util.NewClient(nil, 2*time.Second), 0)
	p.Base = srv.URL
	res := p.Fetch(context.Background(), domain.CompanyEntry{Company: "Acme", Token: "acme"})
	require.True(t, res.OK(), res.Failure)
	require.Len(t, res.Postings, 2)

	a := res.Postings[0]
	assert.Equal(t, "abc", a.ExternalID)
	assert.Equal(t, "https://jobs.lever.co/acme/abc", a.URL)
	assert.Equal(t, "Remote, US", a.Location)
	assert.Equal(t, []string{"1757980800000"}, a.Timestamps)
	assert.Equal(t, "<p>Go and SQL</p>", a.DescriptionHTML)

	b := res.Postings[1]
	assert.Equal(t, "https://jobs.lever.co/acme/def/apply", b.URL)
	assert.Nil(t, b.Timestamps)
	assert.Equal(t, "Figma", b.DescriptionHTML)
}

func TestFetchFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":false}`))
	}))
	defer srv.Close()

	p := New(util.NewClient(nil, 2*time.Second), 0)
	p.Base = srv.URL
	res := p.Fetch(context.Background(), domain.CompanyEntry{Company: "Acme", Token: "acme"})
	assert.False(t, res.OK())
	assert.Contains(t, res.Failure, "lever api")

	res = p.Fetch(context.Background(), domain.CompanyEntry{Company: "Acme"})
	assert.Equal(t, "missing site token", res.Failure)
}
