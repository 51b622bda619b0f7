package dateparse

import (
	"context"
	"log"
	"time"
)

// Provenance answers "when did this posting show up" from an external record of
// history, keyed by the posting's stable identifier. Each lookup returns nil
// when it has nothing.
type Provenance interface {
	MergedAt(ctx context.Context, key string) (*time.Time, error)
	FirstSeenAt(ctx context.Context, key string) (*time.Time, error)
	LastModifiedAt(ctx context.Context, key string) (*time.Time, error)
}

// Infer walks the provenance lookups in preference order (merge event, first
// appearance, last modification) and returns the first hit in UTC. Lookup
// errors are logged and treated as no data.
func Infer(ctx context.Context, key string, p Provenance) *time.Time {
	if p == nil || key == "" {
		return nil
	}
	lookups := []struct {
		name string
		fn   func(context.Context, string) (*time.Time, error)
	}{
		{"merged", p.MergedAt},
		{"first_seen", p.FirstSeenAt},
		{"last_modified", p.LastModifiedAt},
	}
	for _, l := range lookups {
		t, err := l.fn(ctx, key)
		if err != nil {
			log.Printf("[dateparse] provenance=%s key=%q err=%v", l.name, key, err)
			continue
		}
		if t != nil && !t.IsZero() {
			u := t.UTC()
			return &u
		}
	}
	return nil
}

// InferenceStats counts how undated records fared against the inference chain.
type InferenceStats struct {
	Parsed   int `json:"parsed"`
	Inferred int `json:"inferred"`
	Undated  int `json:"undated"`
}

func (s InferenceStats) Total() int { return s.Parsed + s.Inferred + s.Undated }

// Log writes the one-line summary the GitHub provider emits after a run.
func (s InferenceStats) Log(provider string) {
	log.Printf("[dateparse] provider=%s parsed=%d inferred=%d undated=%d total=%d",
		provider, s.Parsed, s.Inferred, s.Undated, s.Total())
}
