package store

import (
	"fmt"
	"strings"
	"time"
)

// Placeholder renders the n-th (1-based) bind parameter for a dialect.
type Placeholder func(n int) string

// Question is SQLite's placeholder.
func Question(int) string { return "?" }

// Dollar is Postgres' placeholder.
func Dollar(n int) string { return fmt.Sprintf("$%d", n) }

type whereBuilder struct {
	ph    Placeholder
	conds []string
	args  []any
}

func (w *whereBuilder) arg(v any) string {
	w.args = append(w.args, v)
	return w.ph(len(w.args))
}

func (w *whereBuilder) add(cond string) { w.conds = append(w.conds, cond) }

// WhereJobs builds the WHERE clause for f over jobs j joined to companies c.
// Timestamps bind as values produced by ts so each dialect can pick its
// storage format.
func WhereJobs(f JobFilter, ph Placeholder, ts func(time.Time) any) (string, []any) {
	f = f.Normalized()
	w := &whereBuilder{ph: ph}

	if skills := lowerList(f.SkillsAny); len(skills) > 0 {
		in := make([]string, len(skills))
		for i, s := range skills {
			in[i] = w.arg(s)
		}
		w.add("EXISTS (SELECT 1 FROM job_skills s WHERE s.job_id = j.id AND lower(s.skill) IN (" + strings.Join(in, ", ") + "))")
	}
	if f.USRemoteOnly {
		w.add("j.is_remote = " + w.arg(true))
	}
	if f.Level != "" {
		w.add("j.level = " + w.arg(f.Level))
	}
	if f.Remote != nil {
		w.add("j.is_remote = " + w.arg(*f.Remote))
	}
	if len(f.Providers) > 0 {
		in := make([]string, len(f.Providers))
		for i, p := range f.Providers {
			in[i] = w.arg(string(p))
		}
		w.add("j.provider IN (" + strings.Join(in, ", ") + ")")
	}
	if f.Company != "" {
		w.add("c.slug = " + w.arg(f.Company))
	}
	if f.Days > 0 {
		cutoff := f.Now.UTC().Add(-time.Duration(f.Days) * 24 * time.Hour)
		w.add("j.posted_at IS NOT NULL AND j.posted_at >= " + w.arg(ts(cutoff)))
	}
	if f.Q != "" {
		like := "%" + strings.ToLower(f.Q) + "%"
		w.add("(lower(j.title) LIKE " + w.arg(like) + " OR lower(c.name) LIKE " + w.arg(like) + ")")
	}
	for _, term := range lowerList(f.TitleExclude) {
		w.add("lower(j.title) NOT LIKE " + w.arg("%"+term+"%"))
	}
	for _, pat := range lowerList(f.DescExclude) {
		w.add("lower(coalesce(j.description, '')) NOT LIKE " + w.arg(pat))
	}

	if len(w.conds) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(w.conds, " AND "), w.args
}
