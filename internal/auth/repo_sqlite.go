package auth

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tanushreec24/Streaker/internal/model"
)

// Repo persists profiles and sessions for the auth service.
type Repo interface {
	// GetOrCreateUser resolves the profile for an email, creating it on first
	// sign-in. The second return reports whether the profile was created.
	GetOrCreateUser(email string, now time.Time) (model.Profile, bool, error)
	GetUserByID(id string) (model.Profile, bool)

	CreateSession(s Session) error
	GetSessionByTokenHash(hash string) (Session, bool)
	DeleteSessionByID(id string) error
	DeleteSessionByTokenHash(hash string) error
	TouchSession(id string, now time.Time) error
}

type SQLiteRepo struct {
	db *sql.DB
}

func NewSQLiteRepo(db *sql.DB) *SQLiteRepo {
	return &SQLiteRepo{db: db}
}

func newID(prefix string) string {
	return prefix + "_" + uuid.NewString()
}

func scanProfile(row interface{ Scan(...any) error }) (model.Profile, error) {
	var (
		p                        model.Profile
		fullName, username, avat sql.NullString
	)
	err := row.Scan(&p.ID, &p.Email, &fullName, &username, &avat,
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
	if avat.Valid {
		p.AvatarURL = &avat.String
	}
	return p, nil
}

const profileColumns = `id, email, full_name, username, avatar_url, timezone, created_at, updated_at`

func (r *SQLiteRepo) GetOrCreateUser(email string, now time.Time) (model.Profile, bool, error) {
	row := r.db.QueryRow(`SELECT `+profileColumns+` FROM profiles WHERE email = ?`, email)
	p, err := scanProfile(row)
	if err == nil {
		return p, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return model.Profile{}, false, fmt.Errorf("select profile: %w", err)
	}

	p = model.Profile{
		ID:        newID("user"),
		Email:     email,
		Timezone:  "UTC",
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err = r.db.Exec(`INSERT INTO profiles (id, email, timezone, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`, p.ID, p.Email, p.Timezone, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		// A concurrent first sign-in may have inserted the same email; the
		// UNIQUE constraint makes the re-read authoritative.
		row := r.db.QueryRow(`SELECT `+profileColumns+` FROM profiles WHERE email = ?`, email)
		if existing, selErr := scanProfile(row); selErr == nil {
			return existing, false, nil
		}
		return model.Profile{}, false, fmt.Errorf("insert profile: %w", err)
	}
	return p, true, nil
}

func (r *SQLiteRepo) GetUserByID(id string) (model.Profile, bool) {
	row := r.db.QueryRow(`SELECT `+profileColumns+` FROM profiles WHERE id = ?`, id)
	p, err := scanProfile(row)
	if err != nil {
		return model.Profile{}, false
	}
	return p, true
}

func (r *SQLiteRepo) CreateSession(s Session) error {
	_, err := r.db.Exec(`INSERT INTO sessions (id, user_id, token_hash, created_at, last_seen, expires_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		s.ID, s.UserID, s.TokenHash, s.CreatedAt, s.LastSeen, s.ExpiresAt)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (r *SQLiteRepo) GetSessionByTokenHash(hash string) (Session, bool) {
	var s Session
	err := r.db.QueryRow(`SELECT id, user_id, token_hash, created_at, last_seen, expires_at
		FROM sessions WHERE token_hash = ?`, hash).
		Scan(&s.ID, &s.UserID, &s.TokenHash, &s.CreatedAt, &s.LastSeen, &s.ExpiresAt)
	if err != nil {
		return Session{}, false
	}
	return s, true
}

func (r *SQLiteRepo) DeleteSessionByID(id string) error {
	_, err := r.db.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	return err
}

func (r *SQLiteRepo) DeleteSessionByTokenHash(hash string) error {
	_, err := r.db.Exec(`DELETE FROM sessions WHERE token_hash = ?`, hash)
	return err
}

func (r *SQLiteRepo) TouchSession(id string, now time.Time) error {
	_, err := r.db.Exec(`UPDATE sessions SET last_seen = ? WHERE id = ?`, now, id)
	return err
}
