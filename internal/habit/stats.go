package habit

import (
	"github.com/tanushreec24/Streaker/internal/model"
	"github.com/tanushreec24/Streaker/internal/streak"
)

// StatsWindowDays is the canonical completion-rate window: a trailing 30-day
// window ending at "today". The same window backs every view; there is no
// separate days-in-month variant.
const StatsWindowDays = 30

// Snapshot recomputes a habit's streak numbers from its full completion
// history. It is called after every toggle and on every stats read; derived
// numbers are never cached or hand-adjusted.
func Snapshot(repo Repo, id model.HabitID, today string) (model.StreakSnapshot, error) {
	dates, err := repo.EntryDates(id)
	if err != nil {
		return model.StreakSnapshot{}, err
	}
	return snapshotFromDates(dates, today)
}

func snapshotFromDates(dates []string, today string) (model.StreakSnapshot, error) {
	stats, err := streak.ComputeStats(dates, today)
	if err != nil {
		return model.StreakSnapshot{}, err
	}

	start, end, err := streak.TrailingWindow(today, StatsWindowDays)
	if err != nil {
		return model.StreakSnapshot{}, err
	}
	rate, err := streak.CompletionRate(dates, start, end)
	if err != nil {
		return model.StreakSnapshot{}, err
	}

	return model.StreakSnapshot{
		CurrentStreak:    stats.CurrentStreak,
		LongestStreak:    stats.LongestStreak,
		TotalCompletions: stats.TotalCompletions,
		CompletionRate:   rate,
	}, nil
}

// HabitStats pairs a habit with its snapshot for the batch endpoint. OK is
// false when this habit's stats could not be computed; the batch still
// succeeds and the habit degrades to a zero snapshot.
type HabitStats struct {
	HabitID model.HabitID        `json:"habitId"`
	OK      bool                 `json:"ok"`
	Stats   model.StreakSnapshot `json:"stats"`
}

// BatchSnapshots computes snapshots for all of a user's habits. A failure on
// one habit never aborts the rest.
func BatchSnapshots(repo Repo, today string) ([]HabitStats, error) {
	habits, err := repo.List()
	if err != nil {
		return nil, err
	}
	out := make([]HabitStats, 0, len(habits))
	for _, h := range habits {
		snap, err := Snapshot(repo, h.ID, today)
		if err != nil {
			out = append(out, HabitStats{HabitID: h.ID, OK: false})
			continue
		}
		out = append(out, HabitStats{HabitID: h.ID, OK: true, Stats: snap})
	}
	return out, nil
}
