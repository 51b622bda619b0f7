package httpapi

import "net/http"

// NewMux returns the raw mux so main() can still attach /shutdown (needs srv+token).
func NewMux(d Deps) *http.ServeMux {
	mux := http.NewServeMux()
	admin := func(h http.HandlerFunc) http.HandlerFunc { return RequireAdmin(d.AdminToken, h) }

	hh := HealthHandler{}
	mux.HandleFunc("/", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: hh.Root,
	}))
	mux.HandleFunc("/healthz", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: hh.Health,
	}))

	// Jobs
	jh := JobsHandler{Deps: d}
	mux.HandleFunc("/jobs", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: jh.List,
	}))
	mux.HandleFunc("/jobs/", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: jh.Detail, // expects /jobs/{id}
	}))
	mux.HandleFunc("/companies", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: jh.Companies,
	}))
	mux.HandleFunc("/providers", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: jh.Providers,
	}))

	// Runs
	ah := AdminHandler{Deps: d}
	mux.HandleFunc("/ingest/curated", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: admin(ah.IngestCurated),
	}))
	mux.HandleFunc("/scan/ats", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: admin(ah.ScanATS),
	}))
	mux.HandleFunc("/admin/backfill-posted-at", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: admin(ah.BackfillPostedAt),
	}))
	mux.HandleFunc("/scan/status", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ah.Status,
	}))
	mux.HandleFunc("/runs/last", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: ah.LastRun,
	}))

	// Config (use CfgVal, NOT a snapshot cfg)
	ch := ConfigHandler{Deps: d}
	mux.HandleFunc("/config", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: admin(ch.Get),
		http.MethodPut: admin(ch.Put),
	}))
	mux.HandleFunc("/config/path", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: admin(ch.Path),
	}))
	mux.HandleFunc("/config/validate", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: admin(ch.Validate),
	}))

	// Secrets
	sh := SecretsHandler{Deps: d}
	mux.HandleFunc("/secrets/imap", methodMux(map[string]http.HandlerFunc{
		http.MethodPost: admin(sh.SetIMAPPassword),
	}))

	// SSE events
	eh := EventsHandler{Hub: d.Hub}
	mux.HandleFunc("/events", methodMux(map[string]http.HandlerFunc{
		http.MethodGet: eh.ServeSSE,
	}))

	return mux
}

// NewHandler is NewMux behind the standard middleware chain.
func NewHandler(d Deps) http.Handler {
	return Chain(NewMux(d), RequestID, Recover, AccessLog, Cors)
}
