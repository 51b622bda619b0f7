package domain

import "time"

// Level is the inferred seniority of a posting.
type Level string

const (
	LevelJunior  Level = "junior"
	LevelMid     Level = "mid"
	LevelSenior  Level = "senior"
	LevelUnknown Level = "unknown"
)

// ParseLevel maps free text onto a Level; anything unrecognised is LevelUnknown.
func ParseLevel(s string) Level {
	switch Level(s) {
	case LevelJunior, LevelMid, LevelSenior:
		return Level(s)
	}
	return LevelUnknown
}

// RawPosting is one provider item as fetched. Providers fill the fields they have;
// nothing here is trusted until it has been through the normalizer.
type RawPosting struct {
	Source     Source
	ExternalID string
	Company    string
	Title      string
	URL        string
	Location   string

	// DescriptionHTML is the description the provider payload carried, if any.
	DescriptionHTML string
	// DetailHTML is the fetched detail page, used for snippets and JSON-LD dates.
	DetailHTML string

	// Timestamps in provider priority order (most authoritative first).
	Timestamps []string
	// DateText is free text such as "Sep 17" or "3 days ago".
	DateText string
}

// NormalizedJob is the canonical record the pipeline works on.
type NormalizedJob struct {
	Title              string     `json:"title"`
	Company            string     `json:"company"`
	URL                string     `json:"url"`
	Source             Source     `json:"source"`
	ExternalID         string     `json:"external_id"`
	Location           *string    `json:"location"`
	Remote             bool       `json:"is_remote"`
	PostedAt           *time.Time `json:"posted_at"`
	DescriptionSnippet *string    `json:"description_snippet"`
	Level              Level      `json:"level"`
	Keywords           []string   `json:"keywords"`

	SkillScore      int      `json:"skill_score"`
	Rank            *int     `json:"rank"`
	MatchedSkills   []string `json:"matched_skills,omitempty"`
	CompanyPriority string   `json:"company_priority,omitempty"`
}

// LocationText returns the location or "".
func (j *NormalizedJob) LocationText() string {
	if j.Location == nil {
		return ""
	}
	return *j.Location
}

// SnippetText returns the description snippet or "".
func (j *NormalizedJob) SnippetText() string {
	if j.DescriptionSnippet == nil {
		return ""
	}
	return *j.DescriptionSnippet
}

// PostedDaysAgo is whole days between PostedAt and now, or nil when undated.
func (j *NormalizedJob) PostedDaysAgo(now time.Time) *int {
	if j.PostedAt == nil {
		return nil
	}
	d := int(now.Sub(*j.PostedAt).Hours() / 24)
	if d < 0 {
		d = 0
	}
	return &d
}
