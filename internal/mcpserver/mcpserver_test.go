package mcpserver

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nelson-zack/job-radar/internal/domain"
	"github.com/nelson-zack/job-radar/internal/store"
)

func newTools(t *testing.T, opts Options) (tools, *store.DB) {
	t.Helper()
	db, err := store.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	desc := "Build Go services. 1+ years."
	recs := []store.JobRecord{
		{Provider: domain.SourceGreenhouse, ExternalID: "1", URL: "https://a/1", Company: "Acme", Title: "Software Engineer", Description: &desc, Skills: []string{"go"}},
		{Provider: domain.SourceGreenhouse, ExternalID: "2", URL: "https://a/2", Company: "Acme", Title: "Senior Software Engineer"},
		{Provider: domain.SourceLever, ExternalID: "3", URL: "https://b/3", Company: "Initech", Title: "Data Engineer"},
	}
	for _, r := range recs {
		_, _, err := db.UpsertJob(context.Background(), r)
		require.NoError(t, err)
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Date(2025, 9, 18, 0, 0, 0, 0, time.UTC) }
	}
	return tools{store: db, opts: opts}, db
}

func call(a map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = a
	return req
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)
	switch c := res.Content[0].(type) {
	case mcp.TextContent:
		return c.Text
	case *mcp.TextContent:
		return c.Text
	}
	t.Fatalf("unexpected content %T", res.Content[0])
	return ""
}

type searchOut struct {
	Items []store.Job `json:"items"`
	Total int         `json:"total"`
	Limit int         `json:"limit"`
}

func TestSearchJobs(t *testing.T) {
	tests := []struct {
		name  string
		opts  Options
		args  map[string]any
		want  []string
		limit int
	}{
		{"visible providers by default", Options{}, map[string]any{}, []string{"Senior Software Engineer", "Software Engineer"}, 10},
		{"all providers", Options{}, map[string]any{"provider": "all"}, []string{"Data Engineer", "Senior Software Engineer", "Software Engineer"}, 10},
		{"query", Options{}, map[string]any{"provider": "all", "q": "data"}, []string{"Data Engineer"}, 10},
		{"skills", Options{}, map[string]any{"skills_any": "Go, rust"}, []string{"Software Engineer"}, 10},
		{"entry filter", Options{EntryExclusions: true}, map[string]any{}, []string{"Software Engineer"}, 10},
		{"limit capped", Options{}, map[string]any{"limit": float64(500)}, []string{"Senior Software Engineer", "Software Engineer"}, maxLimit},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tl, _ := newTools(t, tt.opts)
			res, err := tl.searchJobs(context.Background(), call(tt.args))
			require.NoError(t, err)
			require.False(t, res.IsError, text(t, res))

			var out searchOut
			require.NoError(t, json.Unmarshal([]byte(text(t, res)), &out))
			var got []string
			for _, j := range out.Items {
				got = append(got, j.Title)
				assert.Nil(t, j.Description)
			}
			assert.ElementsMatch(t, tt.want, got)
			assert.Equal(t, len(tt.want), out.Total)
			assert.Equal(t, tt.limit, out.Limit)
		})
	}

	t.Run("unknown provider", func(t *testing.T) {
		tl, _ := newTools(t, Options{})
		res, err := tl.searchJobs(context.Background(), call(map[string]any{"provider": "monster"}))
		require.NoError(t, err)
		assert.True(t, res.IsError)
	})
}

func TestGetJob(t *testing.T) {
	tl, db := newTools(t, Options{})
	rows, _, err := db.ListJobs(context.Background(), store.JobFilter{Q: "software engineer", Order: store.OrderIDAsc})
	require.NoError(t, err)
	require.NotEmpty(t, rows)

	res, err := tl.getJob(context.Background(), call(map[string]any{"id": float64(rows[0].ID)}))
	require.NoError(t, err)
	require.False(t, res.IsError)
	var j store.Job
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &j))
	assert.Equal(t, "Software Engineer", j.Title)
	assert.Equal(t, []string{"go"}, j.Skills)
	require.NotNil(t, j.Description)

	res, err = tl.getJob(context.Background(), call(map[string]any{"id": float64(999)}))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	res, err = tl.getJob(context.Background(), call(map[string]any{}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestListCompanies(t *testing.T) {
	tl, _ := newTools(t, Options{})
	res, err := tl.listCompanies(context.Background(), call(map[string]any{"limit": float64(1)}))
	require.NoError(t, err)

	var rows []store.CompanyCount
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &rows))
	assert.Equal(t, []store.CompanyCount{{Name: "Acme", Slug: "acme", Jobs: 2}}, rows)
}

func TestNewRegistersTools(t *testing.T) {
	_, db := newTools(t, Options{})
	srv := New(db, Options{})
	ctx := context.Background()

	srv.HandleMessage(ctx, []byte(`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-03-26","capabilities":{},"clientInfo":{"name":"test","version":"0"}}}`))
	resp := srv.HandleMessage(ctx, []byte(`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`))
	b, err := json.Marshal(resp)
	require.NoError(t, err)
	for _, name := range []string{"search_jobs", "get_job", "list_companies"} {
		assert.Contains(t, string(b), `"name":"`+name+`"`)
	}
}
