package classify

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nelson-zack/job-radar/internal/domain"
)

func TestLooksLikeEngineering(t *testing.T) {
	c := Default()
	tests := []struct {
		title string
		want  bool
	}{
		{"Software Engineer", true},
		{"Backend Developer", true},
		{"Engineer", true},
		{"Sales Engineer", false},
		{"Customer Success Engineer", false},
		{"Solutions Engineer, Data Platform", true},
		{"Account Executive", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			assert.Equal(t, tt.want, c.LooksLikeEngineering(tt.title))
		})
	}
}

func TestInferLevel(t *testing.T) {
	c := Default()
	tests := []struct {
		name  string
		title string
		desc  string
		want  domain.Level
	}{
		{"associate title", "Associate Software Engineer", "Great for new grads", domain.LevelJunior},
		{"engineer one", "Software Engineer I", "", domain.LevelJunior},
		{"junior in description", "Software Engineer", "Ideal for early career engineers", domain.LevelJunior},
		{"senior title", "Senior Software Engineer", "", domain.LevelSenior},
		{"staff title", "Staff Engineer", "", domain.LevelSenior},
		{"level two", "Software Engineer II", "", domain.LevelMid},
		{"level two with junior description", "Software Engineer II", "open to new grad candidates", domain.LevelJunior},
		{"neutral", "Engineer", "", domain.LevelUnknown},
		{"accented", "Développeur Junior", "", domain.LevelJunior},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.InferLevel(tt.title, tt.desc))
		})
	}
}

func TestIsJuniorTitleOrDesc(t *testing.T) {
	c := Default()
	tests := []struct {
		name    string
		title   string
		desc    string
		relaxed bool
		want    bool
	}{
		{"senior blocked", "Senior Software Engineer", "new grad 0-2 years", true, false},
		{"explicit junior title", "Associate Engineer", "", false, true},
		{"years in title", "Software Engineer (0-2 years)", "", false, true},
		{"level two strict", "Software Engineer II", "0-2 years of experience", false, false},
		{"level two relaxed without text", "Software Engineer II", "", true, false},
		{"level two relaxed with years", "Software Engineer II", "0-2 years of experience", true, true},
		{"level two relaxed without positives", "Software Engineer II", "Build distributed systems", true, false},
		{"level three strict", "Software Engineer III", "1-2 years", false, false},
		{"level three relaxed", "Software Engineer III", "1-2 years", true, true},
		{"neutral strict", "Software Engineer", "Great for new grads", false, false},
		{"neutral relaxed no description", "Software Engineer", "", true, false},
		{"relaxed four plus years", "Software Engineer", "Requires 5+ years of experience", true, false},
		{"relaxed senior words", "Software Engineer", "You will report to a senior manager", true, false},
		{"relaxed senior words with positive", "Software Engineer", "Great for new grads who pair with senior engineers", true, true},
		{"relaxed positive", "Software Engineer", "This is an entry-level role", true, true},
		{"relaxed years", "Software Engineer", "1 year of experience with Go", true, true},
		{"relaxed nothing", "Software Engineer", "Build APIs in Go", true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.IsJuniorTitleOrDesc(tt.title, tt.desc, tt.relaxed))
		})
	}
}

func TestSeniorTitleAlwaysBlocked(t *testing.T) {
	c := Default()
	titles := []string{"Senior Engineer", "Staff SWE", "Principal Developer", "Lead Engineer", "Engineering Manager", "Sr. Software Engineer", "Solutions Architect"}
	descs := []string{"", "new grad", "0-1 years", "entry-level, junior, early career", "up to 3 years"}
	for _, title := range titles {
		for _, d := range descs {
			assert.False(t, c.IsJuniorTitleOrDesc(title, d, true), "%q / %q", title, d)
		}
	}
}

func TestLooksRemoteUS(t *testing.T) {
	c := Default()
	tests := []struct {
		name string
		loc  string
		desc string
		want bool
	}{
		{"remote us", "Remote - US", "", true},
		{"remote comma us", "Remote, US", "", true},
		{"remote canada", "Remote (Canada)", "", false},
		{"non us city blocks description", "Toronto, ON", "Remote role open anywhere in the United States", false},
		{"description fallback", "", "This role is remote within the United States", true},
		{"description non us remote", "Remote", "Remote across EMEA", false},
		{"onsite", "New York, NY", "", false},
		{"us inside a word", "Remote - Belarus", "", false},
		{"houston is not us", "Remote (Houston office)", "", false},
		{"no usa inside words", "Remote", "remote usage of tools", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.LooksRemoteUS(tt.loc, tt.desc))
		})
	}
}

func TestPassesRemoteGate(t *testing.T) {
	c := Default()
	assert.True(t, c.PassesRemoteGate(""))
	assert.True(t, c.PassesRemoteGate("Remote - US"))
	assert.True(t, c.PassesRemoteGate("Remote, United States"))
	assert.False(t, c.PassesRemoteGate("Remote (Canada)"))
	assert.False(t, c.PassesRemoteGate("San Francisco, CA"))
	assert.False(t, c.PassesRemoteGate("Remote"))
	assert.False(t, c.PassesRemoteGate("Remote - Belarus"))
	assert.False(t, c.PassesRemoteGate("Remote (Houston office)"))
	assert.True(t, c.PassesRemoteGate("Remote, US only"))
}

func TestIsRecent(t *testing.T) {
	now := time.Date(2025, 9, 18, 15, 30, 0, 0, time.UTC)
	threeDays := now.AddDate(0, 0, -3)
	tenDays := now.AddDate(0, 0, -10)

	assert.False(t, IsRecent(nil, 7, now))
	assert.True(t, IsRecent(&threeDays, 7, now))
	assert.False(t, IsRecent(&tenDays, 7, now))
}

func TestFilterText(t *testing.T) {
	c := Default()
	tests := []struct {
		title, desc string
		keep        bool
		reason      string
	}{
		{"Lead Intern", "", false, ReasonTitleSenior},
		{"Sr. Developer", "", false, ReasonTitleSenior},
		{"Software Engineer", "2+ years of experience", true, ReasonDefault},
		{"Software Engineer", "3+ years of experience", false, ReasonDescPlusYears},
		{"Junior Developer", "", true, ReasonTitleJunior},
		{"", "10+ years", true, ReasonNoTitle},
	}
	for _, tt := range tests {
		t.Run(tt.title+"/"+tt.desc, func(t *testing.T) {
			got := c.FilterText(tt.title, tt.desc)
			assert.Equal(t, tt.keep, got.Keep)
			assert.Equal(t, tt.reason, got.Reason)
		})
	}
}

func TestFilterJobReadsSnippet(t *testing.T) {
	snippet := "You bring 5+ yrs building services"
	j := &domain.NormalizedJob{Title: "Software Engineer", DescriptionSnippet: &snippet}
	got := Default().FilterJob(j)
	assert.False(t, got.Keep)
	assert.Equal(t, ReasonDescPlusYears, got.Reason)
}

func TestCustomTerms(t *testing.T) {
	terms := DefaultTerms()
	terms.NonUSMarkers = append(terms.NonUSMarkers, "mars")
	c, err := New(terms)
	require.NoError(t, err)

	assert.False(t, c.LooksRemoteUS("Remote - Mars", ""))
	assert.False(t, Default().HasNonUSMarker("Remote - Mars"))

	terms.SeniorBlock = `(`
	_, err = New(terms)
	assert.Error(t, err)
}

func TestLoadTerms(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yml")
	require.NoError(t, os.WriteFile(path, []byte("senior_block: '\\b(senior|distinguished)\\b'\n"), 0o644))

	terms, err := LoadTerms(path)
	require.NoError(t, err)
	c, err := New(terms)
	require.NoError(t, err)

	assert.True(t, c.HasSeniorMarker("Distinguished Engineer"))
	assert.False(t, c.HasSeniorMarker("Staff Engineer"))
	assert.True(t, c.LooksLikeEngineering("Staff Engineer"))
}
