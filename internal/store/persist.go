package store

import (
	"context"
	"fmt"
	"time"

	"github.com/nelson-zack/job-radar/internal/domain"
)

// RecordFromJob maps a pipeline record onto an upsert. Rows written before
// external ids were provider-assigned were keyed by URL, so the URL is the
// legacy id.
func RecordFromJob(j domain.NormalizedJob) JobRecord {
	rec := JobRecord{
		Provider:    j.Source,
		ExternalID:  j.ExternalID,
		URL:         j.URL,
		Company:     j.Company,
		Title:       j.Title,
		Location:    j.Location,
		Remote:      j.Remote,
		Level:       j.Level,
		PostedAt:    j.PostedAt,
		Description: j.DescriptionSnippet,
		Skills:      j.MatchedSkills,
	}
	if j.URL != j.ExternalID {
		rec.LegacyExternalID = j.URL
	}
	return rec
}

type SaveStats struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Failed  int `json:"failed"`
	// New holds Key(job) for every created row.
	New map[string]bool `json:"-"`
}

// Key identifies a job the way the jobs table does.
func Key(j domain.NormalizedJob) string { return string(j.Source) + ":" + j.ExternalID }

// SaveJobs upserts every job. A failed row is counted and skipped; the first
// error is returned alongside the counts.
func SaveJobs(ctx context.Context, s Store, jobs []domain.NormalizedJob) (SaveStats, error) {
	st := SaveStats{New: map[string]bool{}}
	var first error
	for _, j := range jobs {
		if err := ctx.Err(); err != nil {
			return st, err
		}
		_, created, err := s.UpsertJob(ctx, RecordFromJob(j))
		switch {
		case err != nil:
			st.Failed++
			if first == nil {
				first = fmt.Errorf("save %s:%s: %w", j.Source, j.ExternalID, err)
			}
		case created:
			st.Created++
			st.New[Key(j)] = true
		default:
			st.Updated++
		}
	}
	return st, first
}

type BackfillResult struct {
	Provider domain.Source `json:"provider"`
	Checked  int           `json:"checked"`
	Updated  int           `json:"updated"`
	Missing  int           `json:"missing"`
}

// BackfillPostedAt fills posted_at on a provider's undated rows from dates
// keyed by external id.
func BackfillPostedAt(ctx context.Context, s Store, provider domain.Source, dates map[string]time.Time) (BackfillResult, error) {
	res := BackfillResult{Provider: provider}
	rows, err := s.UndatedJobs(ctx, provider)
	if err != nil {
		return res, err
	}
	for _, j := range rows {
		res.Checked++
		t, ok := dates[j.ExternalID]
		if !ok || t.IsZero() {
			res.Missing++
			continue
		}
		if err := s.SetPostedAt(ctx, j.ID, t); err != nil {
			return res, err
		}
		res.Updated++
	}
	return res, nil
}
