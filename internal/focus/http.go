package focus

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/tanushreec24/Streaker/internal/model"
	"github.com/tanushreec24/Streaker/internal/telemetry"
)

type Handler struct {
	repo         Repo
	repoResolver func(*http.Request) Repo
	events       telemetry.Repository
	validate     *validator.Validate
}

func NewHandler(repo Repo) *Handler {
	return &Handler{repo: repo, validate: validator.New()}
}

func (h *Handler) SetRepoResolver(fn func(*http.Request) Repo) {
	h.repoResolver = fn
}

func (h *Handler) SetEventRepository(events telemetry.Repository) {
	h.events = events
}

func (h *Handler) repoForRequest(r *http.Request) Repo {
	if h.repoResolver != nil {
		if repo := h.repoResolver(r); repo != nil {
			return repo
		}
	}
	return h.repo
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"error": msg})
}

type sessionInput struct {
	HabitID   *string    `json:"habitId,omitempty"`
	Minutes   int        `json:"minutes" validate:"required,gte=1,lte=1440"`
	StartedAt *time.Time `json:"startedAt,omitempty"`
}

// /api/focus/sessions
func (h *Handler) SessionsRoot(w http.ResponseWriter, r *http.Request) {
	repo := h.repoForRequest(r)

	switch r.Method {
	case http.MethodGet:
		filter := Filter{Limit: 100}
		q := r.URL.Query()
		if v := strings.TrimSpace(q.Get("habitId")); v != "" {
			id := model.HabitID(v)
			filter.HabitID = &id
		}
		if v := strings.TrimSpace(q.Get("limit")); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 || n > 1000 {
				writeErr(w, 400, "invalid limit")
				return
			}
			filter.Limit = n
		}
		if v := strings.TrimSpace(q.Get("since")); v != "" {
			ts, err := time.Parse(time.RFC3339, v)
			if err != nil {
				writeErr(w, 400, "invalid since, want RFC 3339")
				return
			}
			filter.Since = ts
		}
		sessions, err := repo.List(filter)
		if err != nil {
			writeErr(w, 500, err.Error())
			return
		}
		writeJSON(w, 200, sessions)

	case http.MethodPost:
		var in sessionInput
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeErr(w, 400, "bad json")
			return
		}
		if err := h.validate.Struct(in); err != nil {
			writeErr(w, 400, err.Error())
			return
		}

		s := Session{Minutes: in.Minutes}
		if in.HabitID != nil && *in.HabitID != "" {
			id := model.HabitID(*in.HabitID)
			s.HabitID = &id
		}
		if in.StartedAt != nil {
			s.StartedAt = *in.StartedAt
		}

		created, err := repo.Create(s)
		if err != nil {
			writeErr(w, 500, err.Error())
			return
		}
		if h.events != nil {
			meta := telemetry.EventMetadata{"minutes": created.Minutes}
			if created.HabitID != nil {
				meta["habit_id"] = string(*created.HabitID)
			}
			_ = h.events.RecordEvent(telemetry.EventFocusLogged, meta)
		}
		writeJSON(w, 201, created)

	default:
		writeErr(w, 405, "method not allowed")
	}
}

// /api/focus/sessions/total
func (h *Handler) Total(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, 405, "method not allowed")
		return
	}
	repo := h.repoForRequest(r)

	var since time.Time
	if v := strings.TrimSpace(r.URL.Query().Get("since")); v != "" {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeErr(w, 400, "invalid since, want RFC 3339")
			return
		}
		since = ts
	}

	total, err := repo.TotalMinutes(since)
	if err != nil {
		writeErr(w, 500, err.Error())
		return
	}
	writeJSON(w, 200, map[string]any{"totalMinutes": total})
}
