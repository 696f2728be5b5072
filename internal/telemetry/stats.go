package telemetry

import (
	"encoding/json"
	"time"
)

type Stats struct {
	Period        string            `json:"period"`
	EventCounts   map[EventType]int `json:"event_counts"`
	TogglesOn     int               `json:"toggles_on"`
	TogglesOff    int               `json:"toggles_off"`
	SignIns       int               `json:"sign_ins"`
	RemindersSent int               `json:"reminders_sent"`
	FocusMinutes  int               `json:"focus_minutes"`
	TogglesPerDay float64           `json:"toggles_per_day"`
}

// CalculateStats aggregates usage events recorded since the given time.
func CalculateStats(events []Event, since time.Time, now time.Time) (Stats, error) {
	stats := Stats{
		Period:      since.Format("2006-01-02"),
		EventCounts: make(map[EventType]int),
	}

	for _, event := range events {
		stats.EventCounts[event.Type]++

		var metadata EventMetadata
		if err := json.Unmarshal([]byte(event.Metadata), &metadata); err != nil {
			continue
		}

		switch event.Type {
		case EventEntryToggledOn:
			stats.TogglesOn++
		case EventEntryToggledOff:
			stats.TogglesOff++
		case EventSignIn:
			stats.SignIns++
		case EventReminderSent:
			stats.RemindersSent++
		case EventFocusLogged:
			if minutes, ok := metadata["minutes"].(float64); ok {
				stats.FocusMinutes += int(minutes)
			}
		}
	}

	days := now.Sub(since).Hours() / 24
	if days >= 1 {
		stats.TogglesPerDay = float64(stats.TogglesOn+stats.TogglesOff) / days
	}

	return stats, nil
}
