package httpapi

import "net/http"

type HealthHandler struct{}

func (HealthHandler) Root(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		WriteError(w, r, http.StatusNotFound, CodeNotFound, "not found")
		return
	}
	writeJSON(w, map[string]any{"message": "Job Radar API is running"})
}

func (HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{"status": "ok"})
}
