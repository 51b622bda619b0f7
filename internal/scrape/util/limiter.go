package util

import (
	"context"
	"net/url"
	"sync"

	"golang.org/x/time/rate"
)

// HostLimiter rate-limits per hostname (boards-api.greenhouse.io, api.lever.co, ...).
// Hosts listed in overrides get their own rate instead of the default.
type HostLimiter struct {
	mu        sync.Mutex
	m         map[string]*rate.Limiter
	r         rate.Limit
	b         int
	overrides map[string]rate.Limit
}

func NewHostLimiter(reqPerSec float64, burst int) *HostLimiter {
	if burst < 1 {
		burst = 1
	}
	return &HostLimiter{
		m:         make(map[string]*rate.Limiter),
		r:         rate.Limit(reqPerSec),
		b:         burst,
		overrides: make(map[string]rate.Limit),
	}
}

// SetHostRate gives host its own requests-per-second budget. Call before use.
func (hl *HostLimiter) SetHostRate(host string, reqPerSec float64) {
	hl.mu.Lock()
	defer hl.mu.Unlock()
	hl.overrides[host] = rate.Limit(reqPerSec)
	delete(hl.m, host)
}

func (hl *HostLimiter) limiterFor(host string) *rate.Limiter {
	hl.mu.Lock()
	defer hl.mu.Unlock()

	if lim, ok := hl.m[host]; ok {
		return lim
	}
	r := hl.r
	if o, ok := hl.overrides[host]; ok {
		r = o
	}
	lim := rate.NewLimiter(r, hl.b)
	hl.m[host] = lim
	return lim
}

// WaitURL blocks until the host of raw may be contacted again.
func (hl *HostLimiter) WaitURL(ctx context.Context, raw string) error {
	if hl == nil {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return hl.limiterFor("_").Wait(ctx)
	}
	return hl.limiterFor(u.Host).Wait(ctx)
}
