package habit

import (
	"errors"

	"github.com/tanushreec24/Streaker/internal/model"
)

var (
	ErrNotFound = errors.New("habit not found")

	// ErrEntryExists is the expected race outcome when two toggles both saw
	// the day as incomplete: the (habit, date) uniqueness constraint rejected
	// the second insert. Callers treat it as "already completed", not as a
	// storage failure.
	ErrEntryExists = errors.New("entry already exists for this day")
)

// Action reports which side of the toggle ran.
type Action string

const (
	ActionCreated Action = "created"
	ActionDeleted Action = "deleted"
)

// Patch is a partial habit update.
// nil pointer => "no change"
// empty string for Description/ReminderTime => clear (set to nil)
type Patch struct {
	Name            *string   `json:"name,omitempty"`
	Description     *string   `json:"description,omitempty"`
	Emoji           *string   `json:"emoji,omitempty"`
	Color           *string   `json:"color,omitempty"`
	ReminderTime    *string   `json:"reminderTime,omitempty"`
	ReminderEnabled *bool     `json:"reminderEnabled,omitempty"`
	ActiveDays      *[]string `json:"activeDays,omitempty"`
	TargetCount     *int      `json:"targetCount,omitempty"`
}

// EntryFilter narrows entry listings. HabitID empty means all of the user's
// habits; Start/End are inclusive date strings, empty means unbounded.
type EntryFilter struct {
	HabitID model.HabitID
	Start   string
	End     string
}

// SharedView is the public read of one habit, resolved by the owner's
// username instead of a session. It carries only what the share page renders.
type SharedView struct {
	Habit    model.Habit
	Username string
	Timezone string
	Dates    []string
}

// ShareRepo backs the unauthenticated share page. Lookups match username and
// habit name case-insensitively; owners without a username share nothing.
type ShareRepo interface {
	FindShared(username, habitName string) (SharedView, error)
}

type Repo interface {
	Create(h model.Habit) (model.Habit, error)
	Get(id model.HabitID) (model.Habit, error)
	Update(id model.HabitID, patch Patch) (model.Habit, error)
	Delete(id model.HabitID) error
	List() ([]model.Habit, error)

	// Toggle atomically flips the completion entry for (habit, date):
	// absent => insert with count 1, present => delete. The existence check
	// and mutation happen under one lock or transaction.
	Toggle(id model.HabitID, date string) (Action, error)

	// EntryDates returns every completion date for the habit, ascending.
	EntryDates(id model.HabitID) ([]string, error)

	Entries(filter EntryFilter) ([]model.Entry, error)
}

func applyPatch(h *model.Habit, p Patch) {
	if p.Name != nil {
		h.Name = *p.Name
	}
	if p.Description != nil {
		if *p.Description == "" {
			h.Description = nil
		} else {
			h.Description = p.Description
		}
	}
	if p.Emoji != nil {
		h.Emoji = *p.Emoji
	}
	if p.Color != nil {
		h.Color = *p.Color
	}
	if p.ReminderTime != nil {
		if *p.ReminderTime == "" {
			h.ReminderTime = nil
		} else {
			h.ReminderTime = p.ReminderTime
		}
	}
	if p.ReminderEnabled != nil {
		h.ReminderEnabled = *p.ReminderEnabled
	}
	if p.ActiveDays != nil {
		if *p.ActiveDays == nil {
			h.ActiveDays = []string{}
		} else {
			h.ActiveDays = *p.ActiveDays
		}
	}
	if p.TargetCount != nil && *p.TargetCount > 0 {
		h.TargetCount = *p.TargetCount
	}
}

// normalizeHabit fills the creation defaults the original app applies.
func normalizeHabit(h *model.Habit) {
	if h.Emoji == "" {
		h.Emoji = "🎯"
	}
	if h.Color == "" {
		h.Color = "#d4af37"
	}
	if h.ActiveDays == nil {
		h.ActiveDays = []string{"monday", "tuesday", "wednesday", "thursday", "friday"}
	}
	if h.TargetCount <= 0 {
		h.TargetCount = 1
	}
}
