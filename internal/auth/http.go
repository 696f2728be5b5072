package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/tanushreec24/Streaker/internal/telemetry"
)

// MailSender delivers the sign-in link. The reminder package provides the
// SMTP implementation; development setups log the link instead.
type MailSender interface {
	Send(to, subject, body string) error
}

type Handler struct {
	service *Service
	mail    MailSender
	events  telemetry.Repository
}

func NewHandler(service *Service, mail MailSender) *Handler {
	return &Handler{service: service, mail: mail}
}

func (h *Handler) SetEventRepository(events telemetry.Repository) {
	h.events = events
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"error": msg})
}

func decodeJSON(r *http.Request, out any) error {
	return json.NewDecoder(r.Body).Decode(out)
}

// POST /api/auth/request-link
func (h *Handler) RequestLink(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var in struct {
		Email string `json:"email"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}

	link, exp, err := h.service.RequestLink(in.Email, time.Now())
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidEmail):
			writeErr(w, http.StatusBadRequest, err.Error())
		default:
			writeErr(w, http.StatusInternalServerError, "could not create sign-in link")
		}
		return
	}

	if h.mail != nil {
		body := "Sign in to Streaker:\n\n" + link + "\n\nThe link expires at " + exp.Format(time.RFC3339) + "."
		if err := h.mail.Send(strings.TrimSpace(in.Email), "Your Streaker sign-in link", body); err != nil {
			h.service.logger.Printf("[auth] could not send sign-in link: %v", err)
			writeErr(w, http.StatusInternalServerError, "could not send sign-in link")
			return
		}
	} else {
		h.service.logger.Printf("[auth] sign-in link for %s: %s (expires %s)",
			in.Email, link, exp.Format(time.RFC3339))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":        true,
		"expiresAt": exp.Format(time.RFC3339),
	})
}

// GET /api/auth/verify?token=
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	token := strings.TrimSpace(r.URL.Query().Get("token"))
	if token == "" {
		writeErr(w, http.StatusBadRequest, "missing token")
		return
	}

	u, sessionToken, exp, err := h.service.VerifyLink(token, time.Now())
	if err != nil {
		switch {
		case errors.Is(err, ErrTokenExpired):
			writeErr(w, http.StatusUnauthorized, err.Error())
		case errors.Is(err, ErrInvalidToken):
			writeErr(w, http.StatusUnauthorized, err.Error())
		default:
			writeErr(w, http.StatusInternalServerError, "could not verify sign-in link")
		}
		return
	}

	h.service.SetSessionCookie(w, r, sessionToken, exp)
	if h.events != nil {
		_ = h.events.RecordEvent(telemetry.EventSignIn, telemetry.EventMetadata{"user_id": u.ID})
	}

	// Browser clicks land here; send them into the app.
	if strings.Contains(r.Header.Get("Accept"), "text/html") {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true,
		"user": map[string]any{
			"id":    u.ID,
			"email": u.Email,
		},
		"expiresAt": exp.Format(time.RFC3339),
	})
}

// GET /api/auth/session
func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	u, sess, ok := h.service.AuthenticateRequest(r, time.Now())
	if !ok {
		writeErr(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true,
		"user": map[string]any{
			"id":    u.ID,
			"email": u.Email,
		},
		"session": map[string]any{
			"id":        sess.ID,
			"expiresAt": sess.ExpiresAt.Format(time.RFC3339),
			"lastSeen":  sess.LastSeen.Format(time.RFC3339),
		},
	})
}

// POST /api/auth/logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	h.service.RevokeSessionForRequest(r)
	h.service.ClearSessionCookie(w, r)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
