package telemetry

import "time"

type EventType string

const (
	EventHabitCreated    EventType = "habit_created"
	EventHabitDeleted    EventType = "habit_deleted"
	EventEntryToggledOn  EventType = "entry_toggled_on"
	EventEntryToggledOff EventType = "entry_toggled_off"
	EventReminderSent    EventType = "reminder_sent"
	EventFocusLogged     EventType = "focus_logged"
	EventSignIn          EventType = "sign_in"
)

type Event struct {
	ID        int       `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Metadata  string    `json:"metadata"`
}

type EventMetadata map[string]interface{}
