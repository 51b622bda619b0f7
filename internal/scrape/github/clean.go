package github

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/nelson-zack/job-radar/internal/scrape/util"
)

var remoteHints = []string{
	"remote", "us-remote", "us remote", "united states (remote)",
	"anywhere in the us", "usa (remote)", "remote, us",
}

var unwantedRegions = []string{
	"india", "emea", "apac", "europe only", "singapore", "china", "japan",
	"korea", "latam", "canada", "canada only", "europe",
}

var (
	reNonLetters   = regexp.MustCompile(`[^a-z]+`)
	reUSWord       = regexp.MustCompile(`\b(us|u s|u s a|usa|united states)\b`)
	reUSPunct      = regexp.MustCompile(`\(us\)|us-remote|remote-us|us only|us-based`)
	reRemoteRepeat = regexp.MustCompile(`(?i)(,\s*)?remote(\s*,\s*remote)+`)
	reRemoteInUSA  = regexp.MustCompile(`(?i)\bremote\s+in\s+usa\b`)
	reLeadingJunk  = regexp.MustCompile(`^[^\p{L}\p{N}\(\[]+`)
)

func isRemote(loc string) bool {
	l := strings.ToLower(loc)
	for _, h := range remoteHints {
		if strings.Contains(l, h) {
			return true
		}
	}
	return false
}

// looksUSOnly rejects explicit non-US regions, accepts explicit US tokens,
// and otherwise accepts plain remote.
func looksUSOnly(loc string) bool {
	l := strings.ToLower(loc)
	for _, bad := range unwantedRegions {
		if strings.Contains(l, bad) {
			return false
		}
	}
	if reUSWord.MatchString(reNonLetters.ReplaceAllString(l, " ")) {
		return true
	}
	if reUSPunct.MatchString(l) {
		return true
	}
	return strings.Contains(l, "remote")
}

func cleanLocation(loc string) string {
	s := util.CleanText(loc)
	s = reRemoteRepeat.ReplaceAllString(s, " remote")
	s = reRemoteInUSA.ReplaceAllString(s, "Remote (US)")
	return strings.TrimSpace(s)
}

// cleanCompany strips list markers such as the sub-row arrow.
func cleanCompany(name string) string {
	return util.CleanText(reLeadingJunk.ReplaceAllString(strings.TrimSpace(name), ""))
}

// canonicalURL keeps only gh_jid, forces https and drops simplify.jobs
// links that are not postings.
func canonicalURL(raw string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return "", false
	}
	if strings.EqualFold(u.Hostname(), "simplify.jobs") {
		first, _, _ := strings.Cut(strings.Trim(u.Path, "/"), "/")
		if first != "p" && first != "c" && u.Query().Get("gh_jid") == "" {
			return "", false
		}
	}
	return util.KeepParams(raw, "gh_jid"), true
}
