package domain

import "strings"

// Source tags where a posting came from.
type Source string

const (
	SourceGreenhouse Source = "greenhouse"
	SourceLever      Source = "lever"
	SourceAshby      Source = "ashby"
	SourceWorkday    Source = "workday"
	SourceWorkable   Source = "workable"
	SourceCrawler    Source = "crawler"
	SourceGitHub     Source = "github"
)

// AllSources in registry order.
var AllSources = []Source{
	SourceGreenhouse, SourceLever, SourceAshby, SourceWorkday,
	SourceWorkable, SourceCrawler, SourceGitHub,
}

// ParseSource accepts the provider names used in registry files.
func ParseSource(s string) (Source, bool) {
	v := Source(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllSources {
		if v == known {
			return v, true
		}
	}
	return "", false
}

// ProviderStatus is how far along a provider integration is.
type ProviderStatus string

const (
	StatusSupported    ProviderStatus = "supported"
	StatusExperimental ProviderStatus = "experimental"
	StatusPlanned      ProviderStatus = "planned"
)

var providerStatus = map[Source]ProviderStatus{
	SourceGreenhouse: StatusSupported,
	SourceGitHub:     StatusSupported,
	SourceAshby:      StatusExperimental,
	SourceWorkday:    StatusExperimental,
	SourceLever:      StatusExperimental,
}

// StatusOf returns the integration status; unknown providers are planned.
func StatusOf(s Source) ProviderStatus {
	if st, ok := providerStatus[s]; ok {
		return st
	}
	return StatusPlanned
}

// IsVisible reports whether the API should list jobs from s by default.
func IsVisible(s Source, experimental bool) bool {
	switch StatusOf(s) {
	case StatusSupported:
		return true
	case StatusExperimental:
		return experimental
	}
	return false
}

// VisibleSources lists the providers the API exposes by default.
func VisibleSources(experimental bool) []Source {
	out := make([]Source, 0, len(AllSources))
	for _, s := range AllSources {
		if IsVisible(s, experimental) {
			out = append(out, s)
		}
	}
	return out
}
