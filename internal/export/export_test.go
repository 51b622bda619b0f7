package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nelson-zack/job-radar/internal/domain"
)

var now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func sample() []domain.NormalizedJob {
	posted := time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC)
	loc := "Remote - US"
	rank := 1
	return []domain.NormalizedJob{
		{
			Title: "Software Engineer I", Company: "Acme", URL: "https://a/1", Source: domain.SourceGreenhouse,
			ExternalID: "1", Location: &loc, PostedAt: &posted, Level: domain.LevelJunior,
			Keywords: []string{}, SkillScore: 2, Rank: &rank, CompanyPriority: "high",
		},
		{
			Title: "New Grad, Backend", Company: "Initech", URL: "https://b/1", Source: domain.SourceGitHub,
			ExternalID: "h", Level: domain.LevelUnknown, Keywords: []string{},
		},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sample(), now))

	recs, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, CSVColumns, recs[0])
	assert.Equal(t, []string{
		"1", "Acme", "Software Engineer I", "Remote - US", "greenhouse", "junior",
		"2026-03-07T00:00:00Z", "3", "2", "high", "https://a/1",
	}, recs[1])
	assert.Equal(t, []string{
		"", "Initech", "New Grad, Backend", "", "github", "unknown",
		"", "", "0", "", "https://b/1",
	}, recs[2])
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, sample(), now))

	var got []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "Software Engineer I", got[0]["title"])
	assert.Equal(t, float64(3), got[0]["posted_days_ago"])
	assert.Equal(t, float64(1), got[0]["rank"])
	assert.Nil(t, got[1]["posted_days_ago"])
	assert.Nil(t, got[1]["posted_at"])
}

func TestWriteAll(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "output")
	p := DefaultPaths(dir)
	p.RawJSON = ""
	require.NoError(t, WriteAll(p, nil, sample(), now))

	_, err := os.Stat(filepath.Join(dir, "jobs_raw.json"))
	assert.True(t, os.IsNotExist(err))

	b, err := os.ReadFile(filepath.Join(dir, "jobs.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(b), "rank,company,title")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}
