package models

import (
	"time"
)

// maxManagedDuration is the longest event the lifecycle engine will manage.
// All-day events and events longer than this are never auto-cancelled or
// auto-ended.
const maxManagedDuration = 6 * time.Hour

// MeetingInfo holds the locally-owned lifecycle flags for a calendar event.
// The calendar stays authoritative for scheduling fields; these flags are
// authoritative for started/cancelled/ended-early semantics and are keyed by
// the external event id.
type MeetingInfo struct {
	ID           string `json:"id"`
	IsStarted    bool   `json:"is_started"`
	IsEndedEarly bool   `json:"is_ended_early"`
	IsCancelled  bool   `json:"is_cancelled"`
}

// Meeting is a calendar event merged with its locally-owned lifecycle flags.
// It is the unit the status engine reasons about.
type Meeting struct {
	ID                string    `json:"id"`
	Subject           string    `json:"subject,omitempty"`
	Organizer         string    `json:"organizer,omitempty"`
	Start             time.Time `json:"start"`
	End               time.Time `json:"end"`
	IsAllDay          bool      `json:"is_all_day,omitempty"`
	RequiredAttendees int       `json:"required_attendees"`
	OptionalAttendees int       `json:"optional_attendees"`
	ExternalAttendees int       `json:"external_attendees"`
	IsStarted         bool      `json:"is_started"`
	IsEndedEarly      bool      `json:"is_ended_early"`
	IsCancelled       bool      `json:"is_cancelled"`
	IsNotManaged      bool      `json:"is_not_managed"`
}

// Managed reports whether an event is eligible for automatic lifecycle
// mutation: not all-day and no longer than six hours.
func Managed(isAllDay bool, start, end time.Time) bool {
	if isAllDay {
		return false
	}
	d := end.Sub(start)
	if d < 0 {
		d = -d
	}
	return d <= maxManagedDuration
}
