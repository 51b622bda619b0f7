package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVisibleSources(t *testing.T) {
	assert.ElementsMatch(t, []Source{SourceGreenhouse, SourceGitHub}, VisibleSources(false))
	assert.ElementsMatch(t,
		[]Source{SourceGreenhouse, SourceLever, SourceAshby, SourceWorkday, SourceGitHub},
		VisibleSources(true))
	assert.False(t, IsVisible(SourceCrawler, true))
}

func TestParseSource(t *testing.T) {
	s, ok := ParseSource(" Greenhouse ")
	assert.True(t, ok)
	assert.Equal(t, SourceGreenhouse, s)

	_, ok = ParseSource("smartrecruiters")
	assert.False(t, ok)
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "acme-inc", Slugify("  Acme, Inc. "))
	assert.Equal(t, "unknown", Slugify("!!"))
}
