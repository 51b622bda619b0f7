// Package dateparse turns the date text job boards print ("Sep 17", "3 days ago",
// "2w") into UTC timestamps. Nothing here ever guesses: unparseable input is nil.
package dateparse

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var months = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March, "apr": time.April,
	"may": time.May, "jun": time.June, "jul": time.July, "aug": time.August,
	"sep": time.September, "oct": time.October, "nov": time.November, "dec": time.December,
}

var (
	reISODate  = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})$`)
	reMonthDay = regexp.MustCompile(`^(\w{3,})\s+(\d{1,2})$`)
	reDaysAgo  = regexp.MustCompile(`(?i)^(\d+)\s*days?\s*ago$`)
	reAgeShort = regexp.MustCompile(`(?i)^(\d+)([dhw])$`)
)

// futureSlack is how far ahead a year-less "Month DD" may land before it is
// taken to mean last year.
const futureSlack = 30 * 24 * time.Hour

// Parse reads one date expression relative to now. Formats are tried in order:
// ISO YYYY-MM-DD, "Month DD", "N days ago", then Nd/Nw/Nh short codes.
func Parse(text string, now time.Time) *time.Time {
	raw := strings.TrimSpace(text)
	if raw == "" {
		return nil
	}
	now = now.UTC()

	if m := reISODate.FindStringSubmatch(raw); m != nil {
		y, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		d, _ := strconv.Atoi(m[3])
		return date(y, time.Month(mo), d)
	}

	if m := reMonthDay.FindStringSubmatch(raw); m != nil {
		name := strings.ToLower(m[1])
		if len(name) > 3 {
			name = name[:3]
		}
		mo, ok := months[name]
		if !ok {
			return nil
		}
		d, _ := strconv.Atoi(m[2])
		t := date(now.Year(), mo, d)
		if t == nil {
			return nil
		}
		if t.Sub(now) > futureSlack {
			t = date(now.Year()-1, mo, d)
		}
		return t
	}

	if m := reDaysAgo.FindStringSubmatch(raw); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return nil
		}
		return midnight(now.AddDate(0, 0, -n))
	}

	if m := reAgeShort.FindStringSubmatch(raw); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return nil
		}
		switch strings.ToLower(m[2]) {
		case "d":
			return midnight(now.AddDate(0, 0, -n))
		case "w":
			return midnight(now.AddDate(0, 0, -7*n))
		case "h":
			return midnight(now)
		}
	}
	return nil
}

// date builds a UTC midnight, rejecting calendar overflow such as Feb 30.
func date(y int, m time.Month, d int) *time.Time {
	if m < time.January || m > time.December || d < 1 {
		return nil
	}
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	if t.Month() != m || t.Day() != d {
		return nil
	}
	return &t
}

func midnight(t time.Time) *time.Time {
	t = t.UTC()
	m := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return &m
}

var (
	findDaysAgo  = regexp.MustCompile(`(?i)\b(\d+)\s*days?\s*ago\b`)
	findISO      = regexp.MustCompile(`\b(\d{4}-\d{1,2}-\d{1,2})\b`)
	findPostedOn = regexp.MustCompile(`(?i)\bposted(?:\s+on)?[:\s]+((?:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*)\.?\s+(\d{1,2})\b`)
)

// FindInText scans free text (a page or snippet) for the first date phrase Parse
// understands. A year-less "Month DD" only counts right after "Posted".
func FindInText(text string, now time.Time) *time.Time {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if m := findDaysAgo.FindString(text); m != "" {
		if t := Parse(m, now); t != nil {
			return t
		}
	}
	if m := findISO.FindString(text); m != "" {
		if t := Parse(m, now); t != nil {
			return t
		}
	}
	if m := findPostedOn.FindStringSubmatch(text); m != nil {
		if t := Parse(m[1]+" "+m[2], now); t != nil {
			return t
		}
	}
	return nil
}
