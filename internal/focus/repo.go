package focus

import (
	"errors"
	"time"

	"github.com/tanushreec24/Streaker/internal/model"
)

var ErrNotFound = errors.New("focus session not found")

// Session is one logged block of focused work, optionally tied to a habit.
type Session struct {
	ID        string         `json:"id"`
	UserID    string         `json:"userId"`
	HabitID   *model.HabitID `json:"habitId,omitempty"`
	Minutes   int            `json:"minutes"`
	StartedAt time.Time      `json:"startedAt"`
	CreatedAt time.Time      `json:"createdAt"`
}

type Filter struct {
	HabitID *model.HabitID
	Since   time.Time // zero means unbounded
	Limit   int       // zero means no limit
}

type Repo interface {
	Create(s Session) (Session, error)
	List(f Filter) ([]Session, error)
	TotalMinutes(since time.Time) (int, error)
}
