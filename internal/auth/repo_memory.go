package auth

import (
	"sync"
	"time"

	"github.com/tanushreec24/Streaker/internal/model"
)

// MemoryRepo keeps profiles and sessions in memory. Used by tests and by
// setups that do not need persistence.
type MemoryRepo struct {
	mu       sync.Mutex
	users    map[string]model.Profile // keyed by ID
	byEmail  map[string]string
	sessions map[string]Session // keyed by ID
	byHash   map[string]string
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		users:    map[string]model.Profile{},
		byEmail:  map[string]string{},
		sessions: map[string]Session{},
		byHash:   map[string]string{},
	}
}

func (r *MemoryRepo) GetOrCreateUser(email string, now time.Time) (model.Profile, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.byEmail[email]; ok {
		return r.users[id], false, nil
	}
	p := model.Profile{
		ID:        newID("user"),
		Email:     email,
		Timezone:  "UTC",
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.users[p.ID] = p
	r.byEmail[email] = p.ID
	return p, true, nil
}

func (r *MemoryRepo) GetUserByID(id string) (model.Profile, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.users[id]
	return p, ok
}

func (r *MemoryRepo) CreateSession(s Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID] = s
	r.byHash[s.TokenHash] = s.ID
	return nil
}

func (r *MemoryRepo) GetSessionByTokenHash(hash string) (Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byHash[hash]
	if !ok {
		return Session{}, false
	}
	s, ok := r.sessions[id]
	return s, ok
}

func (r *MemoryRepo) DeleteSessionByID(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		delete(r.byHash, s.TokenHash)
		delete(r.sessions, id)
	}
	return nil
}

func (r *MemoryRepo) DeleteSessionByTokenHash(hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.byHash[hash]; ok {
		delete(r.sessions, id)
		delete(r.byHash, hash)
	}
	return nil
}

func (r *MemoryRepo) TouchSession(id string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[id]; ok {
		s.LastSeen = now
		r.sessions[id] = s
	}
	return nil
}
