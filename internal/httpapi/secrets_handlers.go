package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/nelson-zack/job-radar/internal/secrets"
)

type SecretsHandler struct {
	Deps
}

type setIMAPPasswordReq struct {
	Password string `json:"password"`
}

// SetIMAPPassword stores the mailbox password in the keyring under the
// account derived from the current mailbox config.
func (h SecretsHandler) SetIMAPPassword(w http.ResponseWriter, r *http.Request) {
	var req setIMAPPasswordReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, r, http.StatusBadRequest, CodeBadRequest, "invalid json")
		return
	}
	if strings.TrimSpace(req.Password) == "" {
		WriteError(w, r, http.StatusBadRequest, CodeInvalidParam, "password is required")
		return
	}

	cfg := h.cfg()
	mb := cfg.Sources.Crawler.Mailbox
	if strings.TrimSpace(mb.IMAPHost) == "" || strings.TrimSpace(mb.Username) == "" {
		WriteError(w, r, http.StatusBadRequest, CodeNotConfigured, "mailbox imap_host and username must be set first")
		return
	}
	account := secrets.IMAPKeyringAccount(cfg)
	set := h.SetSecret
	if set == nil {
		set = secrets.Set
	}
	if err := set(account, req.Password); err != nil {
		WriteError(w, r, http.StatusInternalServerError, CodeInternal, "failed to store password: "+err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
