package profile

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tanushreec24/Streaker/internal/model"
)

type SQLiteRepo struct {
	db *sql.DB
}

func NewSQLiteRepo(db *sql.DB) *SQLiteRepo {
	return &SQLiteRepo{db: db}
}

func (r *SQLiteRepo) Get(userID string) (model.Profile, error) {
	row := r.db.QueryRow(`SELECT id, email, full_name, username, avatar_url, timezone, created_at, updated_at
		FROM profiles WHERE id = ?`, userID)
	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Profile{}, ErrNotFound
	}
	if err != nil {
		return model.Profile{}, fmt.Errorf("select profile: %w", err)
	}
	return p, nil
}

func (r *SQLiteRepo) Update(userID string, patch Patch, now time.Time) (model.Profile, error) {
	p, err := r.Get(userID)
	if err != nil {
		return model.Profile{}, err
	}
	applyPatch(&p, patch)
	p.UpdatedAt = now

	_, err = r.db.Exec(`UPDATE profiles SET full_name = ?, username = ?, avatar_url = ?, timezone = ?, updated_at = ?
		WHERE id = ?`,
		p.FullName, p.Username, p.AvatarURL, p.Timezone, p.UpdatedAt, userID)
	if err != nil {
		return model.Profile{}, fmt.Errorf("update profile: %w", err)
	}
	return p, nil
}

func scanProfile(row *sql.Row) (model.Profile, error) {
	var (
		p                            model.Profile
		fullName, username, avatarURL sql.NullString
	)
	err := row.Scan(&p.ID, &p.Email, &fullName, &username, &avatarURL,
		&p.Timezone, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return model.Profile{}, err
	}
	if fullName.Valid {
		p.FullName = &fullName.String
	}
	if username.Valid {
		p.Username = &username.String
	}
	if avatarURL.Valid {
		p.AvatarURL = &avatarURL.String
	}
	return p, nil
}
