// Package streak derives streak and completion-rate statistics from a habit's
// completion dates. All functions are pure: the reference day is an explicit
// parameter, never read from the system clock, so callers decide whose
// calendar "today" means.
package streak

import (
	"errors"
	"math"
	"sort"
	"time"
)

// DayFormat is the calendar-date wire format used throughout the service.
const DayFormat = "2006-01-02"

var (
	ErrInvalidDate   = errors.New("invalid date, want YYYY-MM-DD")
	ErrInvalidWindow = errors.New("window end is before window start")
)

type Stats struct {
	CurrentStreak    int `json:"currentStreak"`
	LongestStreak    int `json:"longestStreak"`
	TotalCompletions int `json:"totalCompletions"`
}

func parseDay(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DayFormat, s, time.UTC)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return t, nil
}

// ValidDay reports whether s is a well-formed calendar date.
func ValidDay(s string) bool {
	_, err := parseDay(s)
	return err == nil
}

// sortedUniqueDays parses, sorts ascending, and dedupes. Duplicate dates for
// the same day must never count twice even if the storage invariant slipped.
func sortedUniqueDays(dates []string) ([]time.Time, error) {
	days := make([]time.Time, 0, len(dates))
	for _, s := range dates {
		d, err := parseDay(s)
		if err != nil {
			return nil, err
		}
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	out := days[:0]
	for i, d := range days {
		if i == 0 || !d.Equal(days[i-1]) {
			out = append(out, d)
		}
	}
	return out, nil
}

// ComputeStats calculates the current and longest streaks as of today.
//
// The current streak survives one not-yet-logged day: if the most recent
// completion is today or yesterday the run ending there is still alive, and
// only a most recent completion two or more days back resets it to zero.
func ComputeStats(dates []string, today string) (Stats, error) {
	ref, err := parseDay(today)
	if err != nil {
		return Stats{}, err
	}
	days, err := sortedUniqueDays(dates)
	if err != nil {
		return Stats{}, err
	}
	if len(days) == 0 {
		return Stats{}, nil
	}

	stats := Stats{TotalCompletions: len(days)}

	last := days[len(days)-1]
	yesterday := ref.AddDate(0, 0, -1)
	if !last.Before(yesterday) {
		// Walk backward from the most recent completion counting consecutive
		// calendar days until the first gap.
		stats.CurrentStreak = 1
		for i := len(days) - 2; i >= 0; i-- {
			if days[i+1].Sub(days[i]) != 24*time.Hour {
				break
			}
			stats.CurrentStreak++
		}
	}

	run := 1
	for i := 1; i < len(days); i++ {
		if days[i].Sub(days[i-1]) == 24*time.Hour {
			run++
		} else {
			run = 1
		}
		if run > stats.LongestStreak {
			stats.LongestStreak = run
		}
	}
	if stats.LongestStreak < 1 {
		stats.LongestStreak = 1
	}

	return stats, nil
}

// CompletionRate is the percentage of calendar days in [windowStart,
// windowEnd] (inclusive) with a completion, rounded half away from zero to an
// integer 0..100. The denominator counts every calendar day in the window
// regardless of the habit's active weekdays.
func CompletionRate(dates []string, windowStart, windowEnd string) (int, error) {
	start, err := parseDay(windowStart)
	if err != nil {
		return 0, err
	}
	end, err := parseDay(windowEnd)
	if err != nil {
		return 0, err
	}
	if end.Before(start) {
		return 0, ErrInvalidWindow
	}

	days, err := sortedUniqueDays(dates)
	if err != nil {
		return 0, err
	}

	total := int(end.Sub(start).Hours()/24) + 1
	completed := 0
	for _, d := range days {
		if !d.Before(start) && !d.After(end) {
			completed++
		}
	}

	rate := int(math.Round(float64(completed) / float64(total) * 100))
	if rate > 100 {
		rate = 100
	}
	return rate, nil
}

// TrailingWindow returns the canonical stats window: the days-1 dates leading
// up to and including today.
func TrailingWindow(today string, days int) (string, string, error) {
	ref, err := parseDay(today)
	if err != nil {
		return "", "", err
	}
	if days <= 0 {
		return "", "", ErrInvalidWindow
	}
	start := ref.AddDate(0, 0, -(days - 1))
	return start.Format(DayFormat), today, nil
}
