package domain

import (
	"regexp"
	"strings"
)

// CompanyEntry is one row of the company/provider registry.
type CompanyEntry struct {
	Provider Source `json:"provider" yaml:"provider"`
	Company  string `json:"company" yaml:"company"`
	Token    string `json:"token,omitempty" yaml:"token,omitempty"`
	Host     string `json:"host,omitempty" yaml:"host,omitempty"`
	Path     string `json:"path,omitempty" yaml:"path,omitempty"`
	Priority string `json:"priority,omitempty" yaml:"priority,omitempty"`
}

// Key identifies the entry in logs and run stats.
func (c CompanyEntry) Key() string {
	name := c.Company
	if name == "" {
		name = c.Token
	}
	return string(c.Provider) + ":" + name
}

var reSlugJunk = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify produces the stable company slug used by the store.
func Slugify(name string) string {
	s := reSlugJunk.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
	s = strings.Trim(s, "-")
	if s == "" {
		return "unknown"
	}
	return s
}
