package crawler

import (
	"container/heap"
	"net/url"
	"strings"
)

// pathHints mark URLs worth following and get popped first.
var pathHints = []string{"career", "job", "opportun", "opening", "position"}

// detailHints admit links without a path hint that still look like a posting.
var detailHints = []string{"/apply", "-job-", "/job/", "/position/"}

type item struct {
	url   string
	depth int
	prio  int
	seq   int
}

type queue []item

func (q queue) Len() int { return len(q) }
func (q queue) Less(i, j int) bool {
	if q[i].prio != q[j].prio {
		return q[i].prio < q[j].prio
	}
	return q[i].seq < q[j].seq
}
func (q queue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *queue) Push(x any)   { *q = append(*q, x.(item)) }
func (q *queue) Pop() any {
	old := *q
	it := old[len(old)-1]
	*q = old[:len(old)-1]
	return it
}

// Frontier is a single-host priority queue with dedupe. Hinted paths come
// out first; ties keep insertion order.
type Frontier struct {
	host     string
	maxDepth int
	seen     map[string]bool
	q        queue
	seq      int
}

func NewFrontier(seed string, maxDepth int) *Frontier {
	f := &Frontier{maxDepth: maxDepth, seen: map[string]bool{}}
	if u := canon(seed); u != "" {
		f.host = hostOf(u)
		f.push(u, 0)
	}
	return f
}

func (f *Frontier) Host() string { return f.host }

func (f *Frontier) push(u string, depth int) {
	f.seen[u] = true
	heap.Push(&f.q, item{url: u, depth: depth, prio: priority(u), seq: f.seq})
	f.seq++
}

// Pop returns the next URL and its depth.
func (f *Frontier) Pop() (string, int, bool) {
	if f.q.Len() == 0 {
		return "", 0, false
	}
	it := heap.Pop(&f.q).(item)
	return it.url, it.depth, true
}

// Enqueue resolves links found on base at depth and keeps same-host ones
// that look like career or posting pages.
func (f *Frontier) Enqueue(base string, links []string, depth int) int {
	if depth >= f.maxDepth {
		return 0
	}
	b, err := url.Parse(base)
	if err != nil {
		return 0
	}
	n := 0
	for _, href := range links {
		h, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			continue
		}
		u := canon(b.ResolveReference(h).String())
		if u == "" || f.seen[u] || hostOf(u) != f.host {
			continue
		}
		p := strings.ToLower(pathOf(u))
		if !hasAny(p, pathHints) && !hasAny(p, detailHints) {
			continue
		}
		f.push(u, depth+1)
		n++
	}
	return n
}

func priority(u string) int {
	if hasAny(strings.ToLower(pathOf(u)), pathHints) {
		return -2
	}
	return -1
}

// canon defaults the scheme, drops the fragment and gives an empty path "/".
func canon(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	u.Fragment = ""
	if u.Path == "" {
		u.Path = "/"
	}
	return u.String()
}

func hostOf(u string) string {
	p, err := url.Parse(u)
	if err != nil {
		return ""
	}
	return strings.ToLower(p.Host)
}

func pathOf(u string) string {
	p, err := url.Parse(u)
	if err != nil {
		return ""
	}
	return p.Path
}

func hasAny(s string, subs []string) bool {
	for _, x := range subs {
		if strings.Contains(s, x) {
			return true
		}
	}
	return false
}
