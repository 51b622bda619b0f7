// Package dedup collapses records that describe the same posting.
package dedup

import (
	"strings"

	"github.com/nelson-zack/job-radar/internal/domain"
)

// Fingerprint is lowercase(title)|lowercase(company)|lowercase(url). URLs are
// compared exactly apart from case; tracking parameters must be stripped by
// the provider before this point.
func Fingerprint(j *domain.NormalizedJob) string {
	return strings.ToLower(j.Title) + "|" + strings.ToLower(j.Company) + "|" + strings.ToLower(j.URL)
}

// Collapse keeps exactly one record per fingerprint, taking every field from the
// last occurrence. Survivors are returned in order of first appearance.
func Collapse(jobs []domain.NormalizedJob) []domain.NormalizedJob {
	idx := make(map[string]int, len(jobs))
	out := make([]domain.NormalizedJob, 0, len(jobs))
	for i := range jobs {
		fp := Fingerprint(&jobs[i])
		if at, ok := idx[fp]; ok {
			out[at] = jobs[i]
			continue
		}
		idx[fp] = len(out)
		out = append(out, jobs[i])
	}
	return out
}
