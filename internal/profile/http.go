package profile

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"
)

type Handler struct {
	repo         Repo
	userResolver func(*http.Request) (string, bool)
}

func NewHandler(repo Repo) *Handler {
	return &Handler{repo: repo}
}

// SetUserResolver supplies the acting user's ID, normally from the auth
// session middleware.
func (h *Handler) SetUserResolver(fn func(*http.Request) (string, bool)) {
	h.userResolver = fn
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"error": msg})
}

// /api/profile
func (h *Handler) ProfileRoot(w http.ResponseWriter, r *http.Request) {
	userID := ""
	if h.userResolver != nil {
		if id, ok := h.userResolver(r); ok {
			userID = id
		}
	}
	if userID == "" {
		writeErr(w, 401, "unauthorized")
		return
	}

	switch r.Method {
	case http.MethodGet:
		p, err := h.repo.Get(userID)
		if errors.Is(err, ErrNotFound) {
			writeErr(w, 404, "not found")
			return
		}
		if err != nil {
			writeErr(w, 500, err.Error())
			return
		}
		writeJSON(w, 200, p)

	case http.MethodPatch:
		var patch Patch
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			writeErr(w, 400, "bad json")
			return
		}
		if patch.Timezone != nil {
			tz := strings.TrimSpace(*patch.Timezone)
			if tz != "" {
				if _, err := time.LoadLocation(tz); err != nil {
					writeErr(w, 400, "unknown timezone: "+tz)
					return
				}
				patch.Timezone = &tz
			}
		}
		if patch.Username != nil {
			v := strings.TrimSpace(*patch.Username)
			if len(v) > 60 {
				writeErr(w, 400, "username too long")
				return
			}
			patch.Username = &v
		}
		if patch.FullName != nil {
			v := strings.TrimSpace(*patch.FullName)
			if len(v) > 120 {
				writeErr(w, 400, "name too long")
				return
			}
			patch.FullName = &v
		}

		p, err := h.repo.Update(userID, patch, time.Now())
		if errors.Is(err, ErrNotFound) {
			writeErr(w, 404, "not found")
			return
		}
		if err != nil {
			writeErr(w, 500, err.Error())
			return
		}
		writeJSON(w, 200, p)

	default:
		writeErr(w, 405, "method not allowed")
	}
}
