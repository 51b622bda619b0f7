package crawler

import (
	"strings"
	"sync"

	"github.com/nelson-zack/job-radar/internal/scrape/util"
)

// Extractor pulls one posting out of a page on a known site. It returns
// false when the page is not a posting.
type Extractor func(html, pageURL string) (Extracted, bool)

// Registry maps hosts to site-specific extractors.
type Registry struct {
	mu sync.RWMutex
	m  map[string]Extractor
}

func NewRegistry() *Registry { return &Registry{m: map[string]Extractor{}} }

func (r *Registry) Register(host string, fn Extractor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m[strings.ToLower(strings.TrimSpace(host))] = fn
}

// For returns the extractor registered for the host of pageURL, if any.
func (r *Registry) For(pageURL string) (Extractor, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.m[util.HostOf(pageURL)]
	return fn, ok
}
