package focus

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tanushreec24/Streaker/internal/model"
)

// SQLiteRepo persists focus sessions. Like the habit repo it is user-scoped:
// ForUser returns a view that only sees one user's rows.
type SQLiteRepo struct {
	db     *sql.DB
	userID string
}

func NewSQLiteRepo(db *sql.DB) *SQLiteRepo {
	return &SQLiteRepo{db: db}
}

func (r *SQLiteRepo) ForUser(userID string) *SQLiteRepo {
	return &SQLiteRepo{db: r.db, userID: userID}
}

func (r *SQLiteRepo) Create(s Session) (Session, error) {
	if s.ID == "" {
		s.ID = "focus_" + uuid.NewString()
	}
	s.UserID = r.userID
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	if s.StartedAt.IsZero() {
		s.StartedAt = s.CreatedAt
	}

	var habitID any
	if s.HabitID != nil {
		habitID = string(*s.HabitID)
	}
	_, err := r.db.Exec(`INSERT INTO focus_sessions (id, user_id, habit_id, minutes, started_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		s.ID, s.UserID, habitID, s.Minutes, s.StartedAt, s.CreatedAt)
	if err != nil {
		return Session{}, fmt.Errorf("insert focus session: %w", err)
	}
	return s, nil
}

func (r *SQLiteRepo) List(f Filter) ([]Session, error) {
	query := `SELECT id, user_id, habit_id, minutes, started_at, created_at
		FROM focus_sessions WHERE user_id = ?`
	args := []any{r.userID}
	if f.HabitID != nil {
		query += ` AND habit_id = ?`
		args = append(args, string(*f.HabitID))
	}
	if !f.Since.IsZero() {
		query += ` AND started_at >= ?`
		args = append(args, f.Since)
	}
	query += ` ORDER BY started_at DESC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list focus sessions: %w", err)
	}
	defer rows.Close()

	out := []Session{}
	for rows.Next() {
		var (
			s       Session
			habitID sql.NullString
		)
		if err := rows.Scan(&s.ID, &s.UserID, &habitID, &s.Minutes, &s.StartedAt, &s.CreatedAt); err != nil {
			return nil, err
		}
		if habitID.Valid {
			id := model.HabitID(habitID.String)
			s.HabitID = &id
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SQLiteRepo) TotalMinutes(since time.Time) (int, error) {
	query := `SELECT COALESCE(SUM(minutes), 0) FROM focus_sessions WHERE user_id = ?`
	args := []any{r.userID}
	if !since.IsZero() {
		query += ` AND started_at >= ?`
		args = append(args, since)
	}
	var total int
	if err := r.db.QueryRow(query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("sum focus minutes: %w", err)
	}
	return total, nil
}
