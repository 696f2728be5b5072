package habit

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tanushreec24/Streaker/internal/model"
)

type memoryState struct {
	habits map[model.HabitID]model.Habit
	// entries[habitID][date] — the map key is the uniqueness invariant.
	entries map[model.HabitID]map[string]model.Entry
	// owners[userID] feeds shared-view lookups; the SQLite repo reads the
	// profiles table instead.
	owners map[string]model.Profile
}

type memoryStore struct {
	mu sync.RWMutex
	s  memoryState
}

// MemoryRepo is an in-memory, user-scoped habit repository. It backs tests
// and mirrors the SQLite repo's semantics, including toggle atomicity (the
// store mutex spans the existence check and the mutation).
type MemoryRepo struct {
	store  *memoryStore
	userID string
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		store: &memoryStore{
			s: memoryState{
				habits:  map[model.HabitID]model.Habit{},
				entries: map[model.HabitID]map[string]model.Entry{},
				owners:  map[string]model.Profile{},
			},
		},
		userID: "default",
	}
}

func (r *MemoryRepo) ForUser(userID string) *MemoryRepo {
	if userID == "" {
		userID = "default"
	}
	return &MemoryRepo{store: r.store, userID: userID}
}

func newHabitID() model.HabitID {
	return model.HabitID(uuid.NewString())
}

func newEntryID() model.EntryID {
	return model.EntryID(uuid.NewString())
}

func (r *MemoryRepo) owned(id model.HabitID) (model.Habit, bool) {
	h, ok := r.store.s.habits[id]
	if !ok || h.UserID != r.userID {
		return model.Habit{}, false
	}
	return h, true
}

func (r *MemoryRepo) Create(h model.Habit) (model.Habit, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	now := time.Now()
	h.ID = newHabitID()
	h.UserID = r.userID
	h.CreatedAt = now
	h.UpdatedAt = now
	normalizeHabit(&h)

	r.store.s.habits[h.ID] = h
	return h, nil
}

func (r *MemoryRepo) Get(id model.HabitID) (model.Habit, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	h, ok := r.owned(id)
	if !ok {
		return model.Habit{}, ErrNotFound
	}
	return h, nil
}

func (r *MemoryRepo) Update(id model.HabitID, p Patch) (model.Habit, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	h, ok := r.owned(id)
	if !ok {
		return model.Habit{}, ErrNotFound
	}
	applyPatch(&h, p)
	h.UpdatedAt = time.Now()
	r.store.s.habits[id] = h
	return h, nil
}

func (r *MemoryRepo) Delete(id model.HabitID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.owned(id); !ok {
		return ErrNotFound
	}
	delete(r.store.s.habits, id)
	delete(r.store.s.entries, id)
	return nil
}

func (r *MemoryRepo) List() ([]model.Habit, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	out := make([]model.Habit, 0)
	for _, h := range r.store.s.habits {
		if h.UserID == r.userID {
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *MemoryRepo) Toggle(id model.HabitID, date string) (Action, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.owned(id); !ok {
		return "", ErrNotFound
	}

	byDate, ok := r.store.s.entries[id]
	if !ok {
		byDate = map[string]model.Entry{}
		r.store.s.entries[id] = byDate
	}

	if _, exists := byDate[date]; exists {
		delete(byDate, date)
		return ActionDeleted, nil
	}

	byDate[date] = model.Entry{
		ID:          newEntryID(),
		HabitID:     id,
		UserID:      r.userID,
		CompletedAt: date,
		Count:       1,
		CreatedAt:   time.Now(),
	}
	return ActionCreated, nil
}

func (r *MemoryRepo) EntryDates(id model.HabitID) ([]string, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	if _, ok := r.owned(id); !ok {
		return nil, ErrNotFound
	}
	dates := make([]string, 0, len(r.store.s.entries[id]))
	for d := range r.store.s.entries[id] {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return dates, nil
}

// SetOwner registers a profile for shared-view lookups.
func (r *MemoryRepo) SetOwner(p model.Profile) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.s.owners[p.ID] = p
}

func (r *MemoryRepo) FindShared(username, habitName string) (SharedView, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	username = strings.TrimSpace(username)
	habitName = strings.TrimSpace(habitName)

	matches := make([]model.Habit, 0)
	for _, h := range r.store.s.habits {
		owner, ok := r.store.s.owners[h.UserID]
		if !ok || owner.Username == nil {
			continue
		}
		if !strings.EqualFold(*owner.Username, username) || !strings.EqualFold(h.Name, habitName) {
			continue
		}
		matches = append(matches, h)
	}
	if len(matches) == 0 {
		return SharedView{}, ErrNotFound
	}
	sort.Slice(matches, func(i, j int) bool {
		if !matches[i].CreatedAt.Equal(matches[j].CreatedAt) {
			return matches[i].CreatedAt.Before(matches[j].CreatedAt)
		}
		return matches[i].ID < matches[j].ID
	})
	h := matches[0]
	owner := r.store.s.owners[h.UserID]

	dates := make([]string, 0, len(r.store.s.entries[h.ID]))
	for d := range r.store.s.entries[h.ID] {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	return SharedView{
		Habit:    h,
		Username: *owner.Username,
		Timezone: owner.Timezone,
		Dates:    dates,
	}, nil
}

func (r *MemoryRepo) Entries(filter EntryFilter) ([]model.Entry, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	out := make([]model.Entry, 0)
	for habitID, byDate := range r.store.s.entries {
		if filter.HabitID != "" && habitID != filter.HabitID {
			continue
		}
		h, ok := r.store.s.habits[habitID]
		if !ok || h.UserID != r.userID {
			continue
		}
		for date, e := range byDate {
			// YYYY-MM-DD compares lexicographically.
			if filter.Start != "" && date < filter.Start {
				continue
			}
			if filter.End != "" && date > filter.End {
				continue
			}
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CompletedAt != out[j].CompletedAt {
			return out[i].CompletedAt < out[j].CompletedAt
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
