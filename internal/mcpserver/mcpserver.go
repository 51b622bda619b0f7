// Package mcpserver exposes the job store as MCP tools.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/nelson-zack/job-radar/internal/classify"
	"github.com/nelson-zack/job-radar/internal/domain"
	"github.com/nelson-zack/job-radar/internal/store"
)

const (
	Name    = "job-radar"
	Version = "0.2.0"

	defaultLimit = 10
	maxLimit     = 50
)

type Options struct {
	// Experimental lists experimental providers by default, as the API does
	// with enable_experimental.
	Experimental    bool
	EntryExclusions bool
	// Rules judges entry-level exclusions; nil means the built-in terms.
	Rules *classify.Classifier
	Now   func() time.Time
}

type tools struct {
	store store.Store
	opts  Options
}

// New builds an MCP server with search_jobs, get_job and list_companies.
func New(s store.Store, opts Options) *server.MCPServer {
	t := tools{store: s, opts: opts}
	srv := server.NewMCPServer(Name, Version, server.WithToolCapabilities(false))

	srv.AddTool(mcp.NewTool("search_jobs",
		mcp.WithDescription("Search stored job postings, newest first. Returns JSON with items and total."),
		mcp.WithString("q", mcp.Description("Substring match on title or company")),
		mcp.WithString("level", mcp.Description("junior, mid, senior or unknown")),
		mcp.WithBoolean("remote", mcp.Description("Only remote (true) or only on-site (false) postings")),
		mcp.WithString("provider", mcp.Description("Source provider, or 'all'. Defaults to the visible providers")),
		mcp.WithString("company", mcp.Description("Company slug")),
		mcp.WithNumber("days", mcp.Description("Only postings from the last N days")),
		mcp.WithString("skills_any", mcp.Description("Comma-separated skills; any may match")),
		mcp.WithNumber("limit", mcp.Description("Max results (default 10, max 50)")),
		mcp.WithNumber("offset", mcp.Description("Results to skip")),
	), t.searchJobs)

	srv.AddTool(mcp.NewTool("get_job",
		mcp.WithDescription("Fetch one stored job posting with its description and matched skills."),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Job id from search_jobs")),
	), t.getJob)

	srv.AddTool(mcp.NewTool("list_companies",
		mcp.WithDescription("List companies with their stored job counts, busiest first."),
		mcp.WithNumber("limit", mcp.Description("Max companies (default all)")),
	), t.listCompanies)

	return srv
}

// ServeStdio runs srv on stdin/stdout until the client disconnects.
func ServeStdio(srv *server.MCPServer) error {
	return server.ServeStdio(srv)
}

func args(req mcp.CallToolRequest) map[string]any {
	if m, ok := req.Params.Arguments.(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

func str(a map[string]any, k string) string {
	v, _ := a[k].(string)
	return strings.TrimSpace(v)
}

func num(a map[string]any, k string, def int) int {
	switch v := a[k].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return def
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("mcp encode: %w", err)
	}
	return mcp.NewToolResultText(string(b)), nil
}

func (t tools) now() time.Time {
	if t.opts.Now == nil {
		return time.Now().UTC()
	}
	return t.opts.Now()
}

func (t tools) searchJobs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	a := args(req)

	limit := num(a, "limit", defaultLimit)
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	f := store.JobFilter{
		Limit:   limit,
		Offset:  max(num(a, "offset", 0), 0),
		Level:   strings.ToLower(str(a, "level")),
		Company: str(a, "company"),
		Q:       str(a, "q"),
		Days:    max(num(a, "days", 0), 0),
		Order:   store.OrderPostedDesc,
		Now:     t.now(),
	}
	if v, ok := a["remote"].(bool); ok {
		f.Remote = &v
	}
	for _, s := range strings.Split(str(a, "skills_any"), ",") {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			f.SkillsAny = append(f.SkillsAny, s)
		}
	}
	switch p := strings.ToLower(str(a, "provider")); p {
	case "all":
	case "":
		f.Providers = domain.VisibleSources(t.opts.Experimental)
	default:
		src, ok := domain.ParseSource(p)
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("unknown provider %q", p)), nil
		}
		f.Providers = []domain.Source{src}
	}

	var (
		rows  []store.Job
		total int
		err   error
	)
	if t.opts.EntryExclusions {
		f.TitleExclude = classify.TitleExclusionTerms()
		f.DescExclude = classify.DescriptionExclusionPatterns()
		rules := t.opts.Rules
		if rules == nil {
			rules = classify.Default()
		}
		rows, total, err = store.ListKept(ctx, t.store, f, func(j store.Job) bool {
			desc := ""
			if j.Description != nil {
				desc = *j.Description
			}
			return rules.FilterText(j.Title, desc).Keep
		})
	} else {
		rows, total, err = t.store.ListJobs(ctx, f)
	}
	if err != nil {
		log.Printf("[mcp] search_jobs err=%v", err)
		return mcp.NewToolResultError("search failed: " + err.Error()), nil
	}

	// descriptions are for get_job
	for i := range rows {
		rows[i].Description = nil
	}
	if rows == nil {
		rows = []store.Job{}
	}
	return jsonResult(map[string]any{"items": rows, "total": total, "limit": f.Limit, "offset": f.Offset})
}

func (t tools) getJob(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := num(args(req), "id", 0)
	if id <= 0 {
		return mcp.NewToolResultError("id must be a positive integer"), nil
	}
	j, err := t.store.GetJob(ctx, int64(id))
	if errors.Is(err, store.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("job %d not found", id)), nil
	}
	if err != nil {
		log.Printf("[mcp] get_job id=%d err=%v", id, err)
		return mcp.NewToolResultError("lookup failed: " + err.Error()), nil
	}
	return jsonResult(j)
}

func (t tools) listCompanies(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rows, err := t.store.ListCompanies(ctx)
	if err != nil {
		log.Printf("[mcp] list_companies err=%v", err)
		return mcp.NewToolResultError("list failed: " + err.Error()), nil
	}
	if n := num(args(req), "limit", 0); n > 0 && n < len(rows) {
		rows = rows[:n]
	}
	if rows == nil {
		rows = []store.CompanyCount{}
	}
	return jsonResult(rows)
}
