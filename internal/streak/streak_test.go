package streak

import (
	"errors"
	"fmt"
	"testing"
)

func mustStats(t *testing.T, dates []string, today string) Stats {
	t.Helper()
	s, err := ComputeStats(dates, today)
	if err != nil {
		t.Fatalf("ComputeStats(%v, %s): %v", dates, today, err)
	}
	return s
}

func TestComputeStats_EmptyHistoryIsAllZero(t *testing.T) {
	s := mustStats(t, nil, "2024-01-04")
	if s.CurrentStreak != 0 || s.LongestStreak != 0 || s.TotalCompletions != 0 {
		t.Fatalf("expected zero stats for empty history, got %+v", s)
	}
}

func TestComputeStats_SingleCompletionToday(t *testing.T) {
	s := mustStats(t, []string{"2024-01-04"}, "2024-01-04")
	if s.CurrentStreak != 1 || s.LongestStreak != 1 || s.TotalCompletions != 1 {
		t.Fatalf("expected 1/1/1, got %+v", s)
	}
}

func TestComputeStats_GraceWindowKeepsYesterdayRunAlive(t *testing.T) {
	dates := []string{"2024-01-01", "2024-01-02", "2024-01-03"}
	s := mustStats(t, dates, "2024-01-04")
	if s.CurrentStreak != 3 {
		t.Fatalf("expected current streak 3 via grace window, got %d", s.CurrentStreak)
	}
	if s.LongestStreak != 3 {
		t.Fatalf("expected longest streak 3, got %d", s.LongestStreak)
	}
}

func TestComputeStats_TwoDayGapResetsCurrentStreak(t *testing.T) {
	dates := []string{"2024-01-01", "2024-01-02", "2024-01-03"}
	s := mustStats(t, dates, "2024-01-06")
	if s.CurrentStreak != 0 {
		t.Fatalf("expected lapsed streak to reset to 0, got %d", s.CurrentStreak)
	}
	if s.LongestStreak != 3 {
		t.Fatalf("longest streak must survive the lapse, got %d", s.LongestStreak)
	}
}

func TestComputeStats_GapInMiddleBoundsCurrentRun(t *testing.T) {
	s := mustStats(t, []string{"2024-01-01", "2024-01-03"}, "2024-01-03")
	if s.CurrentStreak != 1 || s.LongestStreak != 1 {
		t.Fatalf("expected 1/1 for isolated days, got %+v", s)
	}
}

func TestComputeStats_NonContiguousDaysNeverMerge(t *testing.T) {
	s := mustStats(t, []string{"2024-01-01", "2024-01-05"}, "2024-01-05")
	if s.LongestStreak != 1 {
		t.Fatalf("isolated days must each count as a run of 1, got %d", s.LongestStreak)
	}
}

func TestComputeStats_ConsecutiveCompletionIncrementsStreak(t *testing.T) {
	dates := []string{"2024-02-01", "2024-02-02", "2024-02-03"}
	before := mustStats(t, dates, "2024-02-04")
	after := mustStats(t, append(dates, "2024-02-04"), "2024-02-04")
	if after.CurrentStreak != before.CurrentStreak+1 {
		t.Fatalf("completing today should extend streak %d -> %d, got %d",
			before.CurrentStreak, before.CurrentStreak+1, after.CurrentStreak)
	}
}

func TestComputeStats_DuplicateDatesCountOnce(t *testing.T) {
	s := mustStats(t, []string{"2024-03-01", "2024-03-01", "2024-03-02"}, "2024-03-02")
	if s.TotalCompletions != 2 {
		t.Fatalf("duplicate dates must dedupe, got total %d", s.TotalCompletions)
	}
	if s.CurrentStreak != 2 || s.LongestStreak != 2 {
		t.Fatalf("expected 2/2 after dedupe, got %+v", s)
	}
}

func TestComputeStats_IsDeterministic(t *testing.T) {
	dates := []string{"2024-01-03", "2024-01-01", "2024-01-02"}
	a := mustStats(t, dates, "2024-01-04")
	b := mustStats(t, dates, "2024-01-04")
	if a != b {
		t.Fatalf("same inputs produced different stats: %+v vs %+v", a, b)
	}
}

func TestComputeStats_RejectsMalformedDates(t *testing.T) {
	if _, err := ComputeStats([]string{"01/04/2024"}, "2024-01-04"); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
	if _, err := ComputeStats(nil, "not-a-date"); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate for bad today, got %v", err)
	}
}

func TestCompletionRate_HalfWindowIsFiftyPercent(t *testing.T) {
	dates := make([]string, 0, 15)
	for day := 1; day <= 15; day++ {
		dates = append(dates, fmt.Sprintf("2024-01-%02d", day))
	}
	rate, err := CompletionRate(dates, "2024-01-01", "2024-01-30")
	if err != nil {
		t.Fatalf("CompletionRate: %v", err)
	}
	if rate != 50 {
		t.Fatalf("15 of 30 days should be 50%%, got %d", rate)
	}
}

func TestCompletionRate_EmptyHistoryIsZero(t *testing.T) {
	rate, err := CompletionRate(nil, "2024-01-01", "2024-01-30")
	if err != nil {
		t.Fatalf("CompletionRate: %v", err)
	}
	if rate != 0 {
		t.Fatalf("expected 0%%, got %d", rate)
	}
}

func TestCompletionRate_RoundsToNearest(t *testing.T) {
	// 1 of 3 days = 33.33 -> 33, 2 of 3 = 66.66 -> 67.
	one, err := CompletionRate([]string{"2024-01-01"}, "2024-01-01", "2024-01-03")
	if err != nil {
		t.Fatalf("CompletionRate: %v", err)
	}
	if one != 33 {
		t.Fatalf("expected 33, got %d", one)
	}
	two, err := CompletionRate([]string{"2024-01-01", "2024-01-02"}, "2024-01-01", "2024-01-03")
	if err != nil {
		t.Fatalf("CompletionRate: %v", err)
	}
	if two != 67 {
		t.Fatalf("expected 67, got %d", two)
	}
}

func TestCompletionRate_DatesOutsideWindowIgnored(t *testing.T) {
	dates := []string{"2023-12-31", "2024-01-01", "2024-02-01"}
	rate, err := CompletionRate(dates, "2024-01-01", "2024-01-02")
	if err != nil {
		t.Fatalf("CompletionRate: %v", err)
	}
	if rate != 50 {
		t.Fatalf("only 2024-01-01 falls inside, expected 50, got %d", rate)
	}
}

func TestCompletionRate_RejectsInvertedWindow(t *testing.T) {
	if _, err := CompletionRate(nil, "2024-01-02", "2024-01-01"); !errors.Is(err, ErrInvalidWindow) {
		t.Fatalf("expected ErrInvalidWindow, got %v", err)
	}
}

func TestTrailingWindow(t *testing.T) {
	start, end, err := TrailingWindow("2024-01-30", 30)
	if err != nil {
		t.Fatalf("TrailingWindow: %v", err)
	}
	if start != "2024-01-01" || end != "2024-01-30" {
		t.Fatalf("unexpected window %s..%s", start, end)
	}
	if _, _, err := TrailingWindow("2024-01-30", 0); !errors.Is(err, ErrInvalidWindow) {
		t.Fatalf("expected ErrInvalidWindow for zero-day window, got %v", err)
	}
}
