// Package export writes run output as JSON and CSV.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/nelson-zack/job-radar/internal/domain"
)

// Row is a job as written to jobs.json.
type Row struct {
	domain.NormalizedJob
	PostedDaysAgo *int `json:"posted_days_ago"`
}

// CSVColumns is the CSV header, in order.
var CSVColumns = []string{
	"rank", "company", "title", "location", "source", "level",
	"posted_at", "posted_days_ago", "skill_score", "company_priority", "url",
}

func Rows(jobs []domain.NormalizedJob, now time.Time) []Row {
	out := make([]Row, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, Row{NormalizedJob: j, PostedDaysAgo: j.PostedDaysAgo(now)})
	}
	return out
}

// WriteJSON writes jobs as an indented JSON array.
func WriteJSON(w io.Writer, jobs []domain.NormalizedJob, now time.Time) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(Rows(jobs, now)); err != nil {
		return fmt.Errorf("export json: %w", err)
	}
	return nil
}

// WriteCSV writes one row per job under CSVColumns. Missing values are empty.
func WriteCSV(w io.Writer, jobs []domain.NormalizedJob, now time.Time) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVColumns); err != nil {
		return fmt.Errorf("export csv: %w", err)
	}
	for _, j := range jobs {
		rec := []string{
			intPtr(j.Rank),
			j.Company,
			j.Title,
			j.LocationText(),
			string(j.Source),
			string(j.Level),
			"",
			intPtr(j.PostedDaysAgo(now)),
			strconv.Itoa(j.SkillScore),
			j.CompanyPriority,
			j.URL,
		}
		if j.PostedAt != nil {
			rec[6] = j.PostedAt.UTC().Format(time.RFC3339)
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("export csv: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("export csv: %w", err)
	}
	return nil
}

func intPtr(p *int) string {
	if p == nil {
		return ""
	}
	return strconv.Itoa(*p)
}

// Paths names the files one CLI run writes. Empty paths are skipped.
type Paths struct {
	RawJSON string
	JSON    string
	CSV     string
}

// DefaultPaths puts everything under dir.
func DefaultPaths(dir string) Paths {
	return Paths{
		RawJSON: filepath.Join(dir, "jobs_raw.json"),
		JSON:    filepath.Join(dir, "jobs.json"),
		CSV:     filepath.Join(dir, "jobs.csv"),
	}
}

// WriteAll writes the pre-filter set and the final set.
func WriteAll(p Paths, raw, jobs []domain.NormalizedJob, now time.Time) error {
	steps := []struct {
		path  string
		write func(io.Writer) error
	}{
		{p.RawJSON, func(w io.Writer) error { return WriteJSON(w, raw, now) }},
		{p.JSON, func(w io.Writer) error { return WriteJSON(w, jobs, now) }},
		{p.CSV, func(w io.Writer) error { return WriteCSV(w, jobs, now) }},
	}
	for _, s := range steps {
		if s.path == "" {
			continue
		}
		if err := writeAtomic(s.path, s.write); err != nil {
			return err
		}
	}
	return nil
}

// writeAtomic writes via a temp file in the target directory and renames.
func writeAtomic(path string, write func(io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("export mkdir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("export tmp: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := write(tmp); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("export close: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("export rename: %w", err)
	}
	return nil
}
