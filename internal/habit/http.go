package habit

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/tanushreec24/Streaker/internal/model"
	"github.com/tanushreec24/Streaker/internal/streak"
	"github.com/tanushreec24/Streaker/internal/telemetry"
)

type Handler struct {
	repo         Repo
	repoResolver func(*http.Request) Repo
	locResolver  func(*http.Request) *time.Location
	share        ShareRepo
	events       telemetry.Repository
	validate     *validator.Validate
}

func NewHandler(repo Repo) *Handler {
	return &Handler{
		repo:     repo,
		validate: validator.New(),
	}
}

func (h *Handler) SetRepoResolver(fn func(*http.Request) Repo) {
	h.repoResolver = fn
}

// SetLocationResolver supplies the acting user's timezone; "today" is always
// derived in that zone, never from the server's local clock.
func (h *Handler) SetLocationResolver(fn func(*http.Request) *time.Location) {
	h.locResolver = fn
}

func (h *Handler) SetEventRepository(events telemetry.Repository) {
	h.events = events
}

// SetShareRepo enables the unauthenticated share view.
func (h *Handler) SetShareRepo(share ShareRepo) {
	h.share = share
}

func (h *Handler) repoForRequest(r *http.Request) Repo {
	if h.repoResolver != nil {
		if repo := h.repoResolver(r); repo != nil {
			return repo
		}
	}
	return h.repo
}

// todayFor resolves the reference day for streak math: an explicit ?today=
// override when valid, otherwise the current day in the user's timezone.
func (h *Handler) todayFor(r *http.Request) string {
	if v := strings.TrimSpace(r.URL.Query().Get("today")); v != "" && streak.ValidDay(v) {
		return v
	}
	loc := time.UTC
	if h.locResolver != nil {
		if l := h.locResolver(r); l != nil {
			loc = l
		}
	}
	return time.Now().In(loc).Format(streak.DayFormat)
}

func (h *Handler) record(t telemetry.EventType, meta telemetry.EventMetadata) {
	if h.events == nil {
		return
	}
	_ = h.events.RecordEvent(t, meta)
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

// HabitUpsert is the create/replace payload.
type HabitUpsert struct {
	Name            string   `json:"name" validate:"required,max=120"`
	Description     *string  `json:"description,omitempty" validate:"omitempty,max=500"`
	Emoji           string   `json:"emoji" validate:"omitempty,max=16"`
	Color           string   `json:"color" validate:"omitempty,hexcolor"`
	ReminderTime    *string  `json:"reminderTime,omitempty" validate:"omitempty,len=5"`
	ReminderEnabled *bool    `json:"reminderEnabled,omitempty"`
	ActiveDays      []string `json:"activeDays,omitempty" validate:"omitempty,dive,oneof=sunday monday tuesday wednesday thursday friday saturday"`
	TargetCount     int      `json:"targetCount,omitempty" validate:"omitempty,gte=1,lte=100"`
}

// /api/habits  (collection)
func (h *Handler) HabitsRoot(w http.ResponseWriter, r *http.Request) {
	repo := h.repoForRequest(r)

	switch r.Method {
	case http.MethodGet:
		habits, err := repo.List()
		if err != nil {
			writeErr(w, 500, err.Error())
			return
		}
		writeJSON(w, 200, habits)

	case http.MethodPost:
		var in HabitUpsert
		if err := decodeJSON(r, &in); err != nil {
			writeErr(w, 400, "bad json")
			return
		}
		if err := h.validate.Struct(in); err != nil {
			writeErr(w, 400, err.Error())
			return
		}

		reminderEnabled := true
		if in.ReminderEnabled != nil {
			reminderEnabled = *in.ReminderEnabled
		}
		created, err := repo.Create(model.Habit{
			Name:            strings.TrimSpace(in.Name),
			Description:     in.Description,
			Emoji:           in.Emoji,
			Color:           in.Color,
			ReminderTime:    in.ReminderTime,
			ReminderEnabled: reminderEnabled,
			ActiveDays:      in.ActiveDays,
			TargetCount:     in.TargetCount,
		})
		if err != nil {
			writeErr(w, 500, err.Error())
			return
		}
		h.record(telemetry.EventHabitCreated, telemetry.EventMetadata{"habit_id": string(created.ID)})
		writeJSON(w, 201, created)

	default:
		writeErr(w, 405, "method not allowed")
	}
}

// /api/habits/stats  (batch)
func (h *Handler) BatchStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, 405, "method not allowed")
		return
	}
	repo := h.repoForRequest(r)
	out, err := BatchSnapshots(repo, h.todayFor(r))
	if err != nil {
		writeErr(w, 500, err.Error())
		return
	}
	writeJSON(w, 200, out)
}

// /api/habits/{id} and subresources
func (h *Handler) HabitsSub(w http.ResponseWriter, r *http.Request) {
	repo := h.repoForRequest(r)

	tail := strings.TrimPrefix(r.URL.Path, "/api/habits/")
	tail = strings.Trim(tail, "/")
	if tail == "" {
		writeErr(w, 404, "not found")
		return
	}

	parts := strings.Split(tail, "/")
	id := model.HabitID(parts[0])

	if len(parts) == 1 {
		h.habitByID(w, r, repo, id)
		return
	}

	if len(parts) == 2 {
		switch parts[1] {
		case "toggle":
			h.toggle(w, r, repo, id)
			return
		case "stats":
			h.stats(w, r, repo, id)
			return
		case "entries":
			h.entries(w, r, repo, id)
			return
		}
	}

	writeErr(w, 404, "not found")
}

func (h *Handler) habitByID(w http.ResponseWriter, r *http.Request, repo Repo, id model.HabitID) {
	switch r.Method {
	case http.MethodGet:
		habit, err := repo.Get(id)
		if errors.Is(err, ErrNotFound) {
			writeErr(w, 404, "not found")
			return
		}
		if err != nil {
			writeErr(w, 500, err.Error())
			return
		}
		writeJSON(w, 200, habit)

	case http.MethodPatch:
		var p Patch
		if err := decodeJSON(r, &p); err != nil {
			writeErr(w, 400, "bad json")
			return
		}
		if p.ActiveDays != nil {
			for _, day := range *p.ActiveDays {
				if !model.IsWeekdayName(day) {
					writeErr(w, 400, "unknown weekday: "+day)
					return
				}
			}
		}
		habit, err := repo.Update(id, p)
		if errors.Is(err, ErrNotFound) {
			writeErr(w, 404, "not found")
			return
		}
		if err != nil {
			writeErr(w, 500, err.Error())
			return
		}
		writeJSON(w, 200, habit)

	case http.MethodDelete:
		err := repo.Delete(id)
		if errors.Is(err, ErrNotFound) {
			writeErr(w, 404, "not found")
			return
		}
		if err != nil {
			writeErr(w, 500, err.Error())
			return
		}
		h.record(telemetry.EventHabitDeleted, telemetry.EventMetadata{"habit_id": string(id)})
		writeJSON(w, 200, map[string]any{"ok": true})

	default:
		writeErr(w, 405, "method not allowed")
	}
}

// POST /api/habits/{id}/toggle
func (h *Handler) toggle(w http.ResponseWriter, r *http.Request, repo Repo, id model.HabitID) {
	if r.Method != http.MethodPost {
		writeErr(w, 405, "method not allowed")
		return
	}
	var in struct {
		Date string `json:"date"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeErr(w, 400, "bad json")
		return
	}
	date := strings.TrimSpace(in.Date)
	if date == "" {
		date = h.todayFor(r)
	}
	if !streak.ValidDay(date) {
		writeErr(w, 400, "invalid date, want YYYY-MM-DD")
		return
	}

	action, err := repo.Toggle(id, date)
	switch {
	case errors.Is(err, ErrNotFound):
		writeErr(w, 404, "not found")
		return
	case errors.Is(err, ErrEntryExists):
		// A concurrent toggle won the insert race; the day is completed
		// either way.
		action = ActionCreated
	case err != nil:
		writeErr(w, 500, err.Error())
		return
	}

	eventType := telemetry.EventEntryToggledOn
	if action == ActionDeleted {
		eventType = telemetry.EventEntryToggledOff
	}
	h.record(eventType, telemetry.EventMetadata{"habit_id": string(id), "date": date})

	// Derived numbers go stale on every successful toggle; hand the fresh
	// snapshot back so clients re-render instead of patching counters.
	snap, err := Snapshot(repo, id, h.todayFor(r))
	if err != nil {
		writeJSON(w, 200, map[string]any{"action": action})
		return
	}
	writeJSON(w, 200, map[string]any{"action": action, "stats": snap})
}

// GET /api/habits/{id}/stats
func (h *Handler) stats(w http.ResponseWriter, r *http.Request, repo Repo, id model.HabitID) {
	if r.Method != http.MethodGet {
		writeErr(w, 405, "method not allowed")
		return
	}
	snap, err := Snapshot(repo, id, h.todayFor(r))
	if errors.Is(err, ErrNotFound) {
		writeErr(w, 404, "not found")
		return
	}
	if err != nil {
		writeErr(w, 500, err.Error())
		return
	}
	writeJSON(w, 200, snap)
}

// GET /api/habits/{id}/entries?start=&end=
func (h *Handler) entries(w http.ResponseWriter, r *http.Request, repo Repo, id model.HabitID) {
	if r.Method != http.MethodGet {
		writeErr(w, 405, "method not allowed")
		return
	}
	filter, ok := entryFilterFromQuery(w, r)
	if !ok {
		return
	}
	filter.HabitID = id

	if _, err := repo.Get(id); errors.Is(err, ErrNotFound) {
		writeErr(w, 404, "not found")
		return
	} else if err != nil {
		writeErr(w, 500, err.Error())
		return
	}

	entries, err := repo.Entries(filter)
	if err != nil {
		writeErr(w, 500, err.Error())
		return
	}
	writeJSON(w, 200, entries)
}

// /api/entries?start=&end=  (all habits, calendar view)
func (h *Handler) EntriesRoot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, 405, "method not allowed")
		return
	}
	repo := h.repoForRequest(r)
	filter, ok := entryFilterFromQuery(w, r)
	if !ok {
		return
	}
	entries, err := repo.Entries(filter)
	if err != nil {
		writeErr(w, 500, err.Error())
		return
	}
	writeJSON(w, 200, entries)
}

// GET /api/public/habits/{username}/{habitName}
//
// The share view needs no session: anyone with the link sees the habit's
// display fields and streak numbers, resolved by the owner's username.
// Reminder settings and row IDs stay private.
func (h *Handler) PublicHabit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, 405, "method not allowed")
		return
	}
	if h.share == nil {
		writeErr(w, 404, "not found")
		return
	}

	tail := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/public/habits/"), "/")
	parts := strings.SplitN(tail, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		writeErr(w, 404, "not found")
		return
	}

	view, err := h.share.FindShared(parts[0], parts[1])
	if errors.Is(err, ErrNotFound) {
		writeErr(w, 404, "not found")
		return
	}
	if err != nil {
		writeErr(w, 500, err.Error())
		return
	}

	// "Today" follows the owner's zone so the streak the visitor sees matches
	// the owner's dashboard.
	today := strings.TrimSpace(r.URL.Query().Get("today"))
	if today == "" || !streak.ValidDay(today) {
		loc, err := time.LoadLocation(view.Timezone)
		if err != nil {
			loc = time.UTC
		}
		today = time.Now().In(loc).Format(streak.DayFormat)
	}

	snap, err := snapshotFromDates(view.Dates, today)
	if err != nil {
		writeErr(w, 500, err.Error())
		return
	}

	writeJSON(w, 200, map[string]any{
		"username": view.Username,
		"habit": map[string]any{
			"name":        view.Habit.Name,
			"description": view.Habit.Description,
			"emoji":       view.Habit.Emoji,
			"color":       view.Habit.Color,
			"activeDays":  view.Habit.ActiveDays,
			"targetCount": view.Habit.TargetCount,
			"createdAt":   view.Habit.CreatedAt,
		},
		"stats": snap,
		"dates": view.Dates,
	})
}

func entryFilterFromQuery(w http.ResponseWriter, r *http.Request) (EntryFilter, bool) {
	q := r.URL.Query()
	filter := EntryFilter{
		Start: strings.TrimSpace(q.Get("start")),
		End:   strings.TrimSpace(q.Get("end")),
	}
	if filter.Start != "" && !streak.ValidDay(filter.Start) {
		writeErr(w, 400, "invalid start date")
		return EntryFilter{}, false
	}
	if filter.End != "" && !streak.ValidDay(filter.End) {
		writeErr(w, 400, "invalid end date")
		return EntryFilter{}, false
	}
	if filter.Start != "" && filter.End != "" && filter.End < filter.Start {
		writeErr(w, 400, "end is before start")
		return EntryFilter{}, false
	}
	return filter, true
}
