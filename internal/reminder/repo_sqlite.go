package reminder

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/tanushreec24/Streaker/internal/model"
)

// Candidate is a habit with reminders switched on, joined with the fields of
// its owner the digest needs.
type Candidate struct {
	Habit    model.Habit
	Email    string
	Timezone string
}

type Repo interface {
	// Candidates returns every habit with reminders enabled and a reminder
	// time set, across all users.
	Candidates() ([]Candidate, error)
	// CompletedOn reports whether the habit has an entry for the given day.
	CompletedOn(habitID model.HabitID, day string) (bool, error)
}

type SQLiteRepo struct {
	db *sql.DB
}

func NewSQLiteRepo(db *sql.DB) *SQLiteRepo {
	return &SQLiteRepo{db: db}
}

func (r *SQLiteRepo) Candidates() ([]Candidate, error) {
	rows, err := r.db.Query(`SELECT h.id, h.user_id, h.name, h.emoji, h.reminder_time, h.active_days,
			p.email, p.timezone
		FROM habits h
		JOIN profiles p ON p.id = h.user_id
		WHERE h.reminder_enabled = 1 AND h.reminder_time IS NOT NULL`)
	if err != nil {
		return nil, fmt.Errorf("select reminder candidates: %w", err)
	}
	defer rows.Close()

	out := []Candidate{}
	for rows.Next() {
		var (
			c            Candidate
			reminderTime sql.NullString
			activeDays   string
		)
		err := rows.Scan(&c.Habit.ID, &c.Habit.UserID, &c.Habit.Name, &c.Habit.Emoji,
			&reminderTime, &activeDays, &c.Email, &c.Timezone)
		if err != nil {
			return nil, err
		}
		if reminderTime.Valid {
			c.Habit.ReminderTime = &reminderTime.String
		}
		if err := json.Unmarshal([]byte(activeDays), &c.Habit.ActiveDays); err != nil {
			return nil, fmt.Errorf("decode active days for %s: %w", c.Habit.ID, err)
		}
		c.Habit.ReminderEnabled = true
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *SQLiteRepo) CompletedOn(habitID model.HabitID, day string) (bool, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(1) FROM habit_entries WHERE habit_id = ? AND completed_at = ?`,
		string(habitID), day).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check completion: %w", err)
	}
	return n > 0, nil
}
