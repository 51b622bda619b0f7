package httpapi

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/nelson-zack/job-radar/internal/classify"
	"github.com/nelson-zack/job-radar/internal/domain"
	"github.com/nelson-zack/job-radar/internal/store"
)

type JobsHandler struct {
	Deps
}

// JobOut is the compact projection /jobs returns.
type JobOut struct {
	ID          int64         `json:"id"`
	Company     string        `json:"company"`
	CompanyName string        `json:"company_name"`
	Title       string        `json:"title"`
	Level       domain.Level  `json:"level"`
	Remote      bool          `json:"is_remote"`
	PostedAt    *time.Time    `json:"posted_at"`
	URL         string        `json:"url"`
	Provider    domain.Source `json:"provider"`
}

type JobsResponse struct {
	Items  []JobOut `json:"items"`
	Total  int      `json:"total"`
	Limit  int      `json:"limit"`
	Offset int      `json:"offset"`
}

type JobDetailOut struct {
	JobOut
	Location    *string  `json:"location"`
	Description *string  `json:"description"`
	Skills      []string `json:"skills"`
}

func jobOut(j store.Job) JobOut {
	return JobOut{
		ID:          j.ID,
		Company:     j.CompanySlug,
		CompanyName: j.CompanyName,
		Title:       j.Title,
		Level:       j.Level,
		Remote:      j.Remote,
		PostedAt:    j.PostedAt,
		URL:         j.URL,
		Provider:    j.Provider,
	}
}

var orders = map[string]bool{
	store.OrderPostedDesc: true,
	store.OrderPostedAsc:  true,
	store.OrderIDDesc:     true,
	store.OrderIDAsc:      true,
}

// filterFromQuery maps the /jobs query string onto a store filter. With no
// provider the visible providers apply; provider=all lifts the restriction.
func (h JobsHandler) filterFromQuery(r *http.Request) (store.JobFilter, error) {
	q := r.URL.Query()
	f := store.JobFilter{Now: h.now()}

	var err error
	if f.Limit, err = intParam(q, "limit", 25, 1, 100); err != nil {
		return f, err
	}
	if f.Offset, err = intParam(q, "offset", 0, 0, 1<<30); err != nil {
		return f, err
	}
	if f.Days, err = intParam(q, "days", 0, 0, 3650); err != nil {
		return f, err
	}
	if f.Remote, err = boolParam(q, "remote"); err != nil {
		return f, err
	}
	usRemote, err := boolParam(q, "us_remote_only")
	if err != nil {
		return f, err
	}
	f.USRemoteOnly = usRemote != nil && *usRemote

	f.Order = strings.TrimSpace(q.Get("order"))
	if f.Order == "" {
		f.Order = store.OrderPostedDesc
	}
	if !orders[f.Order] {
		return f, paramError{"order", "must be one of posted_at_desc, posted_at_asc, id_desc, id_asc"}
	}

	f.Level = strings.ToLower(strings.TrimSpace(q.Get("level")))
	f.Company = strings.TrimSpace(q.Get("company"))
	f.Q = strings.TrimSpace(q.Get("q"))
	f.SkillsAny = csvParam(q, "skills_any")

	provider := strings.ToLower(strings.TrimSpace(q.Get("provider")))
	switch provider {
	case "all":
	case "":
		f.Providers = domain.VisibleSources(h.cfg().API.EnableExperimental)
	default:
		f.Providers = []domain.Source{domain.Source(provider)}
	}
	return f, nil
}

func (h JobsHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		WriteError(w, r, http.StatusServiceUnavailable, CodeNotConfigured, "no database configured")
		return
	}
	f, err := h.filterFromQuery(r)
	if err != nil {
		WriteError(w, r, http.StatusBadRequest, CodeInvalidParam, err.Error())
		return
	}

	var (
		rows  []store.Job
		total int
	)
	if cfg := h.cfg(); cfg.Pipeline.EntryExclusions {
		f.TitleExclude = classify.TitleExclusionTerms()
		f.DescExclude = classify.DescriptionExclusionPatterns()
		rules := h.rules(cfg)
		excluded := 0
		rows, total, err = store.ListKept(r.Context(), h.Store, f, func(j store.Job) bool {
			desc := ""
			if j.Description != nil {
				desc = *j.Description
			}
			keep := rules.FilterText(j.Title, desc).Keep
			if !keep {
				excluded++
			}
			return keep
		})
		if excluded > 0 {
			log.Printf("[api] entry-filter excluded=%d kept=%d offset=%d limit=%d", excluded, total, f.Offset, f.Limit)
		}
	} else {
		rows, total, err = h.Store.ListJobs(r.Context(), f)
	}
	if err != nil {
		log.Printf("[api] jobs list err=%v", err)
		WriteError(w, r, http.StatusInternalServerError, CodeInternal, "failed to list jobs")
		return
	}

	items := make([]JobOut, 0, len(rows))
	for _, j := range rows {
		items = append(items, jobOut(j))
	}
	writeJSON(w, JobsResponse{Items: items, Total: total, Limit: f.Limit, Offset: f.Offset})
}

// Detail serves /jobs/{id}.
func (h JobsHandler) Detail(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		WriteError(w, r, http.StatusServiceUnavailable, CodeNotConfigured, "no database configured")
		return
	}
	idStr := strings.Trim(strings.TrimPrefix(r.URL.Path, "/jobs/"), "/")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		WriteError(w, r, http.StatusBadRequest, CodeInvalidParam, "invalid id")
		return
	}

	j, err := h.Store.GetJob(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		WriteError(w, r, http.StatusNotFound, CodeNotFound, "Job not found")
		return
	}
	if err != nil {
		log.Printf("[api] job id=%d err=%v", id, err)
		WriteError(w, r, http.StatusInternalServerError, CodeInternal, "failed to load job")
		return
	}

	skills := j.Skills
	if skills == nil {
		skills = []string{}
	}
	writeJSON(w, JobDetailOut{
		JobOut:      jobOut(j),
		Location:    j.Location,
		Description: j.Description,
		Skills:      skills,
	})
}

func (h JobsHandler) Companies(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		WriteError(w, r, http.StatusServiceUnavailable, CodeNotConfigured, "no database configured")
		return
	}
	rows, err := h.Store.ListCompanies(r.Context())
	if err != nil {
		log.Printf("[api] companies err=%v", err)
		WriteError(w, r, http.StatusInternalServerError, CodeInternal, "failed to list companies")
		return
	}
	if rows == nil {
		rows = []store.CompanyCount{}
	}
	writeJSON(w, rows)
}

type providerOut struct {
	Name    domain.Source         `json:"name"`
	Status  domain.ProviderStatus `json:"status"`
	Visible bool                  `json:"visible"`
}

func (h JobsHandler) Providers(w http.ResponseWriter, r *http.Request) {
	experimental := h.cfg().API.EnableExperimental
	out := make([]providerOut, 0, len(domain.AllSources))
	for _, s := range domain.AllSources {
		out = append(out, providerOut{Name: s, Status: domain.StatusOf(s), Visible: domain.IsVisible(s, experimental)})
	}
	writeJSON(w, map[string]any{
		"experimental_enabled": experimental,
		"providers":            out,
	})
}
