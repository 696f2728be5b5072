// Package reminder sends a daily digest email for habits that are due and not
// yet completed. Due-ness is evaluated in each owner's timezone, so one sweep
// serves users across zones.
package reminder

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tanushreec24/Streaker/internal/streak"
	"github.com/tanushreec24/Streaker/internal/telemetry"
)

type Options struct {
	// Window is how far from the habit's reminder time the sweep still counts
	// it as due, on either side. Defaults to one hour.
	Window time.Duration
	// Interval between sweeps in Run. Defaults to 15 minutes.
	Interval time.Duration
}

type Service struct {
	repo   Repo
	sender Sender
	events telemetry.Repository
	logger *log.Logger

	window   time.Duration
	interval time.Duration

	mu   sync.Mutex
	sent map[string]bool // userID|day, so one digest per user per day
}

func NewService(repo Repo, sender Sender, logger *log.Logger, opts Options) *Service {
	if logger == nil {
		logger = log.Default()
	}
	if opts.Window <= 0 {
		opts.Window = time.Hour
	}
	if opts.Interval <= 0 {
		opts.Interval = 15 * time.Minute
	}
	return &Service{
		repo:     repo,
		sender:   sender,
		logger:   logger,
		window:   opts.Window,
		interval: opts.Interval,
		sent:     map[string]bool{},
	}
}

func (s *Service) SetEventRepository(events telemetry.Repository) {
	s.events = events
}

// Due is one habit that should appear in its owner's digest right now.
type Due struct {
	Candidate
	LocalDay string
}

// DueHabits evaluates every candidate against now: scheduled today in the
// owner's zone, reminder time within the window, and not yet completed.
func (s *Service) DueHabits(now time.Time) ([]Due, error) {
	candidates, err := s.repo.Candidates()
	if err != nil {
		return nil, err
	}

	due := []Due{}
	for _, c := range candidates {
		loc, err := time.LoadLocation(c.Timezone)
		if err != nil {
			loc = time.UTC
		}
		local := now.In(loc)
		if !c.Habit.ActiveOn(local.Weekday()) {
			continue
		}

		if c.Habit.ReminderTime == nil {
			continue
		}
		var hh, mm int
		if _, err := fmt.Sscanf(*c.Habit.ReminderTime, "%d:%d", &hh, &mm); err != nil || hh < 0 || hh > 23 || mm < 0 || mm > 59 {
			s.logger.Printf("[reminder] habit %s has bad reminder time %q, skipping", c.Habit.ID, *c.Habit.ReminderTime)
			continue
		}
		reminderAt := time.Date(local.Year(), local.Month(), local.Day(), hh, mm, 0, 0, loc)
		delta := local.Sub(reminderAt)
		if delta < -s.window || delta > s.window {
			continue
		}

		day := local.Format(streak.DayFormat)
		done, err := s.repo.CompletedOn(c.Habit.ID, day)
		if err != nil {
			return nil, err
		}
		if done {
			continue
		}

		due = append(due, Due{Candidate: c, LocalDay: day})
	}
	return due, nil
}

// pruneSent evicts dedupe keys for past days so the map stays bounded on a
// long-running server. Two days of slack covers zones behind UTC whose local
// day lags the server's.
func (s *Service) pruneSent(now time.Time) {
	cutoff := now.UTC().AddDate(0, 0, -2).Format(streak.DayFormat)

	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.sent {
		if i := strings.LastIndex(key, "|"); i >= 0 && key[i+1:] < cutoff {
			delete(s.sent, key)
		}
	}
}

// RunOnce performs one sweep: group due habits per user, send each user at
// most one digest per local day.
func (s *Service) RunOnce(now time.Time) (sent int, err error) {
	s.pruneSent(now)

	due, err := s.DueHabits(now)
	if err != nil {
		return 0, err
	}
	if len(due) == 0 {
		return 0, nil
	}

	byUser := map[string][]Due{}
	for _, d := range due {
		byUser[d.Habit.UserID] = append(byUser[d.Habit.UserID], d)
	}

	userIDs := make([]string, 0, len(byUser))
	for id := range byUser {
		userIDs = append(userIDs, id)
	}
	sort.Strings(userIDs)

	for _, userID := range userIDs {
		items := byUser[userID]
		key := userID + "|" + items[0].LocalDay

		s.mu.Lock()
		already := s.sent[key]
		if !already {
			s.sent[key] = true
		}
		s.mu.Unlock()
		if already {
			continue
		}

		if err := s.sender.Send(items[0].Email, digestSubject(items), digestBody(items)); err != nil {
			s.logger.Printf("[reminder] digest for %s failed: %v", items[0].Email, err)
			s.mu.Lock()
			delete(s.sent, key)
			s.mu.Unlock()
			continue
		}
		sent++

		if s.events != nil {
			for _, d := range items {
				_ = s.events.RecordEvent(telemetry.EventReminderSent, telemetry.EventMetadata{
					"habit_id": string(d.Habit.ID),
					"date":     d.LocalDay,
				})
			}
		}
	}
	return sent, nil
}

// Run sweeps on a ticker until the context is cancelled.
func (s *Service) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n, err := s.RunOnce(now); err != nil {
				s.logger.Printf("[reminder] sweep failed: %v", err)
			} else if n > 0 {
				s.logger.Printf("[reminder] sent %d digest(s)", n)
			}
		}
	}
}

func digestSubject(items []Due) string {
	if len(items) == 1 {
		return "Reminder: " + items[0].Habit.Name
	}
	return fmt.Sprintf("Reminder: %d habits are waiting", len(items))
}

func digestBody(items []Due) string {
	var b strings.Builder
	b.WriteString("Still open today:\n\n")
	for _, d := range items {
		b.WriteString("  ")
		if d.Habit.Emoji != "" {
			b.WriteString(d.Habit.Emoji)
			b.WriteString(" ")
		}
		b.WriteString(d.Habit.Name)
		b.WriteString("\n")
	}
	b.WriteString("\nCheck them off to keep the streak alive.\n")
	return b.String()
}
