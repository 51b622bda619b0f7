package httpapi

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

func writeJSON(w http.ResponseWriter, v any) {
	WriteJSON(w, http.StatusOK, v)
}

func methodMux(m map[string]http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h, ok := m[r.Method]; ok {
			h(w, r)
			return
		}
		WriteError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	}
}

// paramError names the offending query parameter.
type paramError struct {
	name, msg string
}

func (e paramError) Error() string { return e.name + ": " + e.msg }

func intParam(q url.Values, name string, def, lo, hi int) (int, error) {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, paramError{name, "must be an integer"}
	}
	if n < lo || n > hi {
		return 0, paramError{name, fmt.Sprintf("must be between %d and %d", lo, hi)}
	}
	return n, nil
}

// boolParam returns nil when the parameter is absent.
func boolParam(q url.Values, name string) (*bool, error) {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, paramError{name, "must be a boolean"}
	}
	return &b, nil
}

func csvParam(q url.Values, name string) []string {
	var out []string
	for _, part := range strings.Split(q.Get(name), ",") {
		if s := strings.ToLower(strings.TrimSpace(part)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
