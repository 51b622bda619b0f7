package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nelson-zack/job-radar/internal/classify"
	"github.com/nelson-zack/job-radar/internal/domain"
)

var fixedNow = time.Date(2025, 9, 18, 15, 30, 0, 0, time.UTC)

func newNormalizer() *Normalizer {
	return New(classify.Default(), 40, func() time.Time { return fixedNow })
}

func TestLocation(t *testing.T) {
	tests := []struct {
		in   string
		want *string
	}{
		{"  United States of America ", strp("United States")},
		{"US-Remote", strp("Remote - US")},
		{"Remote,  Remote", strp("Remote")},
		{"", nil},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := Location(tt.in)
			assert.Equal(t, tt.want, got)
			if got != nil {
				assert.Equal(t, got, Location(*got))
			}
		})
	}
}

func TestSnippet(t *testing.T) {
	got := Snippet("<div><script>var x=1</script><p>Build   <b>APIs</b></p><p>in Go</p></div>", 0)
	require.NotNil(t, got)
	assert.Equal(t, "Build APIs in Go", *got)

	got = Snippet("<p>abcdefghij</p>", 4)
	require.NotNil(t, got)
	assert.Equal(t, "abcd", *got)

	assert.Nil(t, Snippet("   ", 10))
	assert.Nil(t, Snippet("<script>only()</script>", 10))
}

func TestParseTimestamp(t *testing.T) {
	want := time.Date(2025, 9, 14, 12, 0, 0, 0, time.UTC)
	for _, in := range []string{"2025-09-14T12:00:00Z", "2025-09-14T08:00:00-04:00", "2025-09-14T12:00:00", "1757851200000", "1757851200"} {
		got := ParseTimestamp(in)
		require.NotNil(t, got, in)
		assert.True(t, want.Equal(*got), in)
	}
	assert.Nil(t, ParseTimestamp("yesterday"))
}

const ldPage = `<html><head><script type="application/ld+json">
{"@context":"https://schema.org","@graph":[{"@type":"Organization","name":"Acme"},
{"@type":"JobPosting","title":"Software Engineer","datePosted":"2025-09-10",
"hiringOrganization":{"@type":"Organization","name":"Acme"},
"description":"<p>Work on the platform</p>",
"jobLocation":{"@type":"Place","address":{"addressLocality":"Austin","addressRegion":"TX"}}}]}
</script></head><body><main>ignored</main></body></html>`

func TestExtractJobPostings(t *testing.T) {
	got := ExtractJobPostings(ldPage)
	require.Len(t, got, 1)
	assert.Equal(t, "Acme", got[0].Company)
	assert.Equal(t, "Austin, TX", got[0].Location)
	assert.Equal(t, "<p>Work on the platform</p>", PageText(ldPage))

	d := JSONLDDatePosted(ldPage)
	require.NotNil(t, d)
	assert.Equal(t, time.Date(2025, 9, 10, 0, 0, 0, 0, time.UTC), *d)
}

func TestNormalize(t *testing.T) {
	n := newNormalizer()
	raw := domain.RawPosting{
		Source:          domain.SourceGreenhouse,
		ExternalID:      "123",
		Company:         " Acme   Corp ",
		Title:           "Associate   Software Engineer",
		URL:             "https://boards.greenhouse.io/acme/jobs/123",
		Location:        "US-Remote",
		DescriptionHTML: "<p>Great for new grads</p>",
		Timestamps:      []string{"", "2025-09-01T00:00:00Z"},
	}
	job, ok := n.Normalize(raw)
	require.True(t, ok)
	assert.Equal(t, "Associate Software Engineer", job.Title)
	assert.Equal(t, "Acme Corp", job.Company)
	assert.Equal(t, "Remote - US", job.LocationText())
	assert.True(t, job.Remote)
	assert.Equal(t, domain.LevelJunior, job.Level)
	assert.Equal(t, "Great for new grads", job.SnippetText())
	require.NotNil(t, job.PostedAt)
	assert.Equal(t, time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC), *job.PostedAt)

	again, ok := n.Normalize(raw)
	require.True(t, ok)
	assert.Equal(t, job, again)
}

func TestNormalizeDateFallbacks(t *testing.T) {
	n := newNormalizer()
	base := domain.RawPosting{Source: domain.SourceGitHub, Company: "Acme", Title: "Engineer", URL: "https://x/1"}

	withText := base
	withText.DateText = "3 days ago"
	job, _ := n.Normalize(withText)
	require.NotNil(t, job.PostedAt)
	assert.Equal(t, time.Date(2025, 9, 15, 0, 0, 0, 0, time.UTC), *job.PostedAt)

	withPage := base
	withPage.DetailHTML = ldPage
	job, _ = n.Normalize(withPage)
	require.NotNil(t, job.PostedAt)
	assert.Equal(t, time.Date(2025, 9, 10, 0, 0, 0, 0, time.UTC), *job.PostedAt)
	assert.Equal(t, "Work on the platform", job.SnippetText())

	job, _ = n.Normalize(base)
	assert.Nil(t, job.PostedAt)
	assert.Len(t, job.ExternalID, 16)
}

func TestNormalizeRejectsIncomplete(t *testing.T) {
	_, ok := newNormalizer().Normalize(domain.RawPosting{Title: "Engineer", URL: "u"})
	assert.False(t, ok)
}

func strp(s string) *string { return &s }
