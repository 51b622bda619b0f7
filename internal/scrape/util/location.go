package util

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// FindLocation looks for a location on a posting page: known board selectors
// first, then "Location:" labels in the og:description or body text.
func FindLocation(doc *goquery.Document) string {
	candidates := []string{
		".location",
		".opening .location",
		".job__location",
		".posting-categories .location",
		".app-title + .location",
		"[data-testid='job-location']",
		"[data-testid='location']",
		"[data-ui='job-location']",
	}

	for _, sel := range candidates {
		if t := CleanText(doc.Find(sel).First().Text()); t != "" {
			return NormalizeLocation(t)
		}
	}

	if v, ok := doc.Find(`meta[property="og:description"]`).Attr("content"); ok {
		if loc := ExtractLocationFromLabeledText(v); loc != "" {
			return NormalizeLocation(loc)
		}
	}

	body := CleanText(doc.Find("body").Text())
	if loc := ExtractLocationFromLabeledText(body); loc != "" {
		return NormalizeLocation(loc)
	}

	return ""
}

// ExtractLocationFromLabeledText returns the text after a "Location:" label.
func ExtractLocationFromLabeledText(s string) string {
	low := strings.ToLower(s)

	for _, lab := range []string{"job location:", "locations:", "location:"} {
		i := strings.Index(low, lab)
		if i < 0 {
			continue
		}
		rest := strings.TrimSpace(s[i+len(lab):])
		for _, cut := range []string{"\n", "\r", " | ", " · "} {
			if j := strings.Index(rest, cut); j >= 0 {
				rest = rest[:j]
			}
		}
		rest = CleanText(rest)
		if rest != "" && len(rest) <= 80 {
			return rest
		}
	}
	return ""
}
