package habit

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tanushreec24/Streaker/internal/model"
)

// SQLiteRepo is the persistent habit repository. It is user-scoped; call
// ForUser(userID) to get a scoped view sharing the same database handle.
type SQLiteRepo struct {
	db     *sql.DB
	userID string
}

func NewSQLiteRepo(db *sql.DB) *SQLiteRepo {
	return &SQLiteRepo{db: db, userID: "default"}
}

func (r *SQLiteRepo) ForUser(userID string) *SQLiteRepo {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		userID = "default"
	}
	return &SQLiteRepo{db: r.db, userID: userID}
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func marshalDays(days []string) string {
	if days == nil {
		days = []string{}
	}
	b, _ := json.Marshal(days)
	return string(b)
}

func unmarshalDays(s string) []string {
	var days []string
	if err := json.Unmarshal([]byte(s), &days); err != nil || days == nil {
		return []string{}
	}
	return days
}

const habitColumns = `id, user_id, name, description, emoji, color,
	reminder_time, reminder_enabled, active_days, target_count,
	created_at, updated_at`

func scanHabit(row interface{ Scan(...any) error }) (model.Habit, error) {
	var (
		h        model.Habit
		days     string
		enabled  int
		desc, rt sql.NullString
	)
	err := row.Scan(&h.ID, &h.UserID, &h.Name, &desc, &h.Emoji, &h.Color,
		&rt, &enabled, &days, &h.TargetCount, &h.CreatedAt, &h.UpdatedAt)
	if err != nil {
		return model.Habit{}, err
	}
	if desc.Valid {
		h.Description = &desc.String
	}
	if rt.Valid {
		h.ReminderTime = &rt.String
	}
	h.ReminderEnabled = enabled != 0
	h.ActiveDays = unmarshalDays(days)
	return h, nil
}

func (r *SQLiteRepo) Create(h model.Habit) (model.Habit, error) {
	now := time.Now()
	h.ID = newHabitID()
	h.UserID = r.userID
	h.CreatedAt = now
	h.UpdatedAt = now
	normalizeHabit(&h)

	enabled := 0
	if h.ReminderEnabled {
		enabled = 1
	}
	_, err := r.db.Exec(`INSERT INTO habits (`+habitColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		h.ID, h.UserID, h.Name, h.Description, h.Emoji, h.Color,
		h.ReminderTime, enabled, marshalDays(h.ActiveDays), h.TargetCount,
		h.CreatedAt, h.UpdatedAt)
	if err != nil {
		return model.Habit{}, fmt.Errorf("insert habit: %w", err)
	}
	return h, nil
}

func (r *SQLiteRepo) Get(id model.HabitID) (model.Habit, error) {
	row := r.db.QueryRow(`SELECT `+habitColumns+` FROM habits
		WHERE id = ? AND user_id = ?`, id, r.userID)
	h, err := scanHabit(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Habit{}, ErrNotFound
	}
	if err != nil {
		return model.Habit{}, fmt.Errorf("select habit: %w", err)
	}
	return h, nil
}

func (r *SQLiteRepo) Update(id model.HabitID, p Patch) (model.Habit, error) {
	h, err := r.Get(id)
	if err != nil {
		return model.Habit{}, err
	}
	applyPatch(&h, p)
	h.UpdatedAt = time.Now()

	enabled := 0
	if h.ReminderEnabled {
		enabled = 1
	}
	_, err = r.db.Exec(`UPDATE habits SET name = ?, description = ?, emoji = ?,
		color = ?, reminder_time = ?, reminder_enabled = ?, active_days = ?,
		target_count = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		h.Name, h.Description, h.Emoji, h.Color, h.ReminderTime, enabled,
		marshalDays(h.ActiveDays), h.TargetCount, h.UpdatedAt, id, r.userID)
	if err != nil {
		return model.Habit{}, fmt.Errorf("update habit: %w", err)
	}
	return h, nil
}

func (r *SQLiteRepo) Delete(id model.HabitID) error {
	res, err := r.db.Exec(`DELETE FROM habits WHERE id = ? AND user_id = ?`, id, r.userID)
	if err != nil {
		return fmt.Errorf("delete habit: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SQLiteRepo) List() ([]model.Habit, error) {
	rows, err := r.db.Query(`SELECT `+habitColumns+` FROM habits
		WHERE user_id = ? ORDER BY created_at ASC, id ASC`, r.userID)
	if err != nil {
		return nil, fmt.Errorf("list habits: %w", err)
	}
	defer rows.Close()

	out := make([]model.Habit, 0)
	for rows.Next() {
		h, err := scanHabit(rows)
		if err != nil {
			return nil, fmt.Errorf("scan habit: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// Toggle flips the entry for (habit, date) inside one transaction. Should a
// concurrent toggle slip between the existence check and the insert anyway,
// the UNIQUE(habit_id, completed_at) constraint rejects the duplicate and the
// caller gets ErrEntryExists instead of a corrupted invariant.
func (r *SQLiteRepo) Toggle(id model.HabitID, date string) (Action, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return "", fmt.Errorf("begin toggle: %w", err)
	}
	defer tx.Rollback()

	var owner string
	err = tx.QueryRow(`SELECT user_id FROM habits WHERE id = ?`, id).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && owner != r.userID) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("check habit: %w", err)
	}

	var entryID model.EntryID
	err = tx.QueryRow(`SELECT id FROM habit_entries
		WHERE habit_id = ? AND completed_at = ?`, id, date).Scan(&entryID)
	switch {
	case err == nil:
		if _, err := tx.Exec(`DELETE FROM habit_entries WHERE id = ?`, entryID); err != nil {
			return "", fmt.Errorf("delete entry: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return "", fmt.Errorf("commit toggle: %w", err)
		}
		return ActionDeleted, nil

	case errors.Is(err, sql.ErrNoRows):
		_, err := tx.Exec(`INSERT INTO habit_entries
			(id, habit_id, user_id, completed_at, count, notes, created_at)
			VALUES (?, ?, ?, ?, 1, NULL, ?)`,
			newEntryID(), id, r.userID, date, time.Now())
		if isUniqueViolation(err) {
			return "", ErrEntryExists
		}
		if err != nil {
			return "", fmt.Errorf("insert entry: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return "", fmt.Errorf("commit toggle: %w", err)
		}
		return ActionCreated, nil

	default:
		return "", fmt.Errorf("check entry: %w", err)
	}
}

func (r *SQLiteRepo) EntryDates(id model.HabitID) ([]string, error) {
	if _, err := r.Get(id); err != nil {
		return nil, err
	}
	rows, err := r.db.Query(`SELECT completed_at FROM habit_entries
		WHERE habit_id = ? AND user_id = ?
		ORDER BY completed_at ASC`, id, r.userID)
	if err != nil {
		return nil, fmt.Errorf("list entry dates: %w", err)
	}
	defer rows.Close()

	dates := make([]string, 0)
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scan entry date: %w", err)
		}
		dates = append(dates, d)
	}
	return dates, rows.Err()
}

// FindShared resolves a habit for the public share page by owner username and
// habit name, both case-insensitive. It ignores the repo's user scope: the
// whole point is that the viewer has no session.
func (r *SQLiteRepo) FindShared(username, habitName string) (SharedView, error) {
	row := r.db.QueryRow(`SELECT h.id, h.user_id, h.name, h.description, h.emoji, h.color,
		h.reminder_time, h.reminder_enabled, h.active_days, h.target_count,
		h.created_at, h.updated_at, p.username, p.timezone
		FROM habits h
		JOIN profiles p ON p.id = h.user_id
		WHERE p.username IS NOT NULL
		  AND LOWER(p.username) = LOWER(?)
		  AND LOWER(h.name) = LOWER(?)
		ORDER BY h.created_at ASC, h.id ASC
		LIMIT 1`, strings.TrimSpace(username), strings.TrimSpace(habitName))

	var (
		h        model.Habit
		days     string
		enabled  int
		desc, rt sql.NullString
		owner    string
		tz       string
	)
	err := row.Scan(&h.ID, &h.UserID, &h.Name, &desc, &h.Emoji, &h.Color,
		&rt, &enabled, &days, &h.TargetCount, &h.CreatedAt, &h.UpdatedAt,
		&owner, &tz)
	if errors.Is(err, sql.ErrNoRows) {
		return SharedView{}, ErrNotFound
	}
	if err != nil {
		return SharedView{}, fmt.Errorf("select shared habit: %w", err)
	}
	if desc.Valid {
		h.Description = &desc.String
	}
	if rt.Valid {
		h.ReminderTime = &rt.String
	}
	h.ReminderEnabled = enabled != 0
	h.ActiveDays = unmarshalDays(days)

	rows, err := r.db.Query(`SELECT completed_at FROM habit_entries
		WHERE habit_id = ? ORDER BY completed_at ASC`, h.ID)
	if err != nil {
		return SharedView{}, fmt.Errorf("list shared entry dates: %w", err)
	}
	defer rows.Close()

	dates := make([]string, 0)
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return SharedView{}, fmt.Errorf("scan shared entry date: %w", err)
		}
		dates = append(dates, d)
	}
	if err := rows.Err(); err != nil {
		return SharedView{}, err
	}
	return SharedView{Habit: h, Username: owner, Timezone: tz, Dates: dates}, nil
}

func (r *SQLiteRepo) Entries(filter EntryFilter) ([]model.Entry, error) {
	q := `SELECT id, habit_id, user_id, completed_at, count, notes, created_at
		FROM habit_entries WHERE user_id = ?`
	args := []any{r.userID}
	if filter.HabitID != "" {
		q += ` AND habit_id = ?`
		args = append(args, filter.HabitID)
	}
	if filter.Start != "" {
		q += ` AND completed_at >= ?`
		args = append(args, filter.Start)
	}
	if filter.End != "" {
		q += ` AND completed_at <= ?`
		args = append(args, filter.End)
	}
	q += ` ORDER BY completed_at ASC, id ASC`

	rows, err := r.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	out := make([]model.Entry, 0)
	for rows.Next() {
		var (
			e     model.Entry
			notes sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.HabitID, &e.UserID, &e.CompletedAt,
			&e.Count, &notes, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		if notes.Valid {
			e.Notes = &notes.String
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
