package httpapi

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/nelson-zack/job-radar/internal/domain"
	"github.com/nelson-zack/job-radar/internal/poll"
	"github.com/nelson-zack/job-radar/internal/store"
)

type AdminHandler struct {
	Deps
}

func (h AdminHandler) runnerReady(w http.ResponseWriter, r *http.Request) bool {
	if h.Runner == nil {
		WriteError(w, r, http.StatusServiceUnavailable, CodeNotConfigured, "no runner configured")
		return false
	}
	return true
}

func runError(w http.ResponseWriter, r *http.Request, what string, err error) {
	if errors.Is(err, poll.ErrBusy) {
		WriteError(w, r, http.StatusConflict, CodeConflict, "a run is already in progress")
		return
	}
	log.Printf("[api] %s err=%v", what, err)
	WriteError(w, r, http.StatusInternalServerError, CodeInternal, what+" failed: "+err.Error())
}

// IngestCurated runs the curated GitHub lists through the pipeline and saves
// the result.
func (h AdminHandler) IngestCurated(w http.ResponseWriter, r *http.Request) {
	if !h.runnerReady(w, r) {
		return
	}
	out, err := h.Runner.IngestCurated(r.Context(), RequestIDFrom(r.Context()))
	if err != nil {
		runError(w, r, "ingest", err)
		return
	}
	writeJSON(w, map[string]any{
		"source":  domain.SourceGitHub,
		"run_id":  out.Result.RunID,
		"fetched": out.Result.Stats.Fetched,
		"kept":    len(out.Result.Jobs),
		"saved":   out.Saved.Created + out.Saved.Updated,
		"created": out.Saved.Created,
	})
}

// ScanATS starts a full run in the background; progress is on /scan/status
// and /events.
func (h AdminHandler) ScanATS(w http.ResponseWriter, r *http.Request) {
	if !h.runnerReady(w, r) {
		return
	}
	if h.Runner.Status().Running {
		WriteError(w, r, http.StatusConflict, CodeConflict, "a run is already in progress")
		return
	}

	reqID := RequestIDFrom(r.Context())
	ctx := context.WithoutCancel(r.Context())
	go func() {
		if _, err := h.Runner.RunOnce(ctx, reqID); err != nil {
			log.Printf("[api] scan request_id=%s err=%v", reqID, err)
		}
	}()
	WriteJSON(w, http.StatusAccepted, map[string]any{"status": "started", "request_id": reqID})
}

func (h AdminHandler) BackfillPostedAt(w http.ResponseWriter, r *http.Request) {
	if !h.runnerReady(w, r) {
		return
	}
	res, err := h.Runner.BackfillPostedAt(r.Context(), RequestIDFrom(r.Context()))
	if err != nil {
		runError(w, r, "backfill", err)
		return
	}
	writeJSON(w, res)
}

func (h AdminHandler) Status(w http.ResponseWriter, r *http.Request) {
	if !h.runnerReady(w, r) {
		return
	}
	writeJSON(w, h.Runner.Status())
}

func (h AdminHandler) LastRun(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		WriteError(w, r, http.StatusServiceUnavailable, CodeNotConfigured, "no database configured")
		return
	}
	run, err := h.Store.LastRun(r.Context())
	if errors.Is(err, store.ErrNotFound) {
		WriteError(w, r, http.StatusNotFound, CodeNotFound, "no runs recorded")
		return
	}
	if err != nil {
		log.Printf("[api] last run err=%v", err)
		WriteError(w, r, http.StatusInternalServerError, CodeInternal, "failed to load run")
		return
	}
	writeJSON(w, run)
}
