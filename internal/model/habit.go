package model

import (
	"time"
)

type HabitID string

type EntryID string

// Weekday names as stored in Habit.ActiveDays, always lowercase.
var WeekdayNames = []string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}

func WeekdayName(d time.Weekday) string {
	return WeekdayNames[int(d)%7]
}

func IsWeekdayName(s string) bool {
	for _, name := range WeekdayNames {
		if s == name {
			return true
		}
	}
	return false
}

type Habit struct {
	ID          HabitID `json:"id"`
	UserID      string  `json:"userId"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	Emoji       string  `json:"emoji"`
	Color       string  `json:"color"`

	// ReminderTime is "HH:MM" in the owner's timezone; nil means no fixed time.
	ReminderTime    *string  `json:"reminderTime,omitempty"`
	ReminderEnabled bool     `json:"reminderEnabled"`
	ActiveDays      []string `json:"activeDays"`
	TargetCount     int      `json:"targetCount"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ActiveOn reports whether the habit is scheduled on the given weekday.
func (h Habit) ActiveOn(d time.Weekday) bool {
	name := WeekdayName(d)
	for _, day := range h.ActiveDays {
		if day == name {
			return true
		}
	}
	return false
}

// Entry records that a habit was completed on a calendar date. CompletedAt is
// a whole-day fact ("2006-01-02"), never a timestamp. At most one entry may
// exist per (habit, date) pair.
type Entry struct {
	ID          EntryID   `json:"id"`
	HabitID     HabitID   `json:"habitId"`
	UserID      string    `json:"userId"`
	CompletedAt string    `json:"completedAt"`
	Count       int       `json:"count"`
	Notes       *string   `json:"notes,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// StreakSnapshot is derived from the full entry set on demand and never stored.
type StreakSnapshot struct {
	CurrentStreak    int `json:"currentStreak"`
	LongestStreak    int `json:"longestStreak"`
	TotalCompletions int `json:"totalCompletions"`
	CompletionRate   int `json:"completionRate"`
}
