package httpapi

import (
	"encoding/json"
	"log"
	"net/http"
	"path/filepath"

	"github.com/nelson-zack/job-radar/internal/config"
)

type ConfigHandler struct {
	Deps
}

func (h ConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.cfg())
}

// Put validates, saves and reloads the config. Env overrides are applied by
// the reload, so the response shows the effective values.
func (h ConfigHandler) Put(w http.ResponseWriter, r *http.Request) {
	if h.CfgVal == nil || h.UserCfgPath == "" || h.LoadCfg == nil {
		WriteError(w, r, http.StatusServiceUnavailable, CodeNotConfigured, "config is read-only")
		return
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var incoming config.Config
	if err := dec.Decode(&incoming); err != nil {
		WriteError(w, r, http.StatusBadRequest, CodeBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if dec.More() {
		WriteError(w, r, http.StatusBadRequest, CodeBadRequest, "invalid JSON: trailing data")
		return
	}

	normalized, vr := config.NormalizeAndValidate(incoming)
	if !vr.OK() {
		// structured errors so a client can show them per field
		WriteJSON(w, http.StatusBadRequest, vr)
		return
	}

	if err := config.SaveAtomic(h.UserCfgPath, normalized); err != nil {
		WriteError(w, r, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}

	saved, err := h.LoadCfg()
	if err != nil {
		WriteError(w, r, http.StatusInternalServerError, CodeInternal, "saved but reload failed: "+err.Error())
		return
	}
	h.CfgVal.Store(saved)
	log.Printf("[api] config saved path=%q warnings=%d", h.UserCfgPath, len(vr.Warnings))
	writeJSON(w, saved)
}

func (h ConfigHandler) Path(w http.ResponseWriter, r *http.Request) {
	abs, _ := filepath.Abs(h.UserCfgPath)
	writeJSON(w, map[string]any{"path": abs})
}

func (h ConfigHandler) Validate(w http.ResponseWriter, r *http.Request) {
	_, vr := config.NormalizeAndValidate(h.cfg())
	writeJSON(w, vr)
}
