// Package calendar defines the external calendar service boundary: the event
// model, the operations the room engine needs, and a REST client speaking an
// Outlook-style API.
package calendar

import (
	"context"
	"errors"
	"time"

	"github.com/roomninja/roomninja/internal/models"
)

// ErrAccessDenied is returned when the calendar reports that a mailbox or
// folder is missing or forbidden. Callers treat this differently from
// transient failures (e.g. by dropping the room from tracking), so it must
// stay distinguishable.
var ErrAccessDenied = errors.New("calendar: mailbox or folder not found, or access denied")

// Sensitivity values the calendar may attach to an event
const (
	SensitivityNormal  = "normal"
	SensitivityPrivate = "private"
)

// ShowAsFree marks events that do not block the room
const ShowAsFree = "free"

// Attendee is a single invitee on a calendar event
type Attendee struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

// Event is the external representation of a single meeting occurrence. It is
// read-only here except for the End field, which the lifecycle engine
// rewrites on the external system when a meeting is cancelled or ended early.
type Event struct {
	ID                string     `json:"id"`
	Subject           string     `json:"subject"`
	Sensitivity       string     `json:"sensitivity"`
	ShowAs            string     `json:"show_as"`
	Organizer         Attendee   `json:"organizer"`
	Start             time.Time  `json:"start"`
	End               time.Time  `json:"end"`
	IsAllDay          bool       `json:"is_all_day"`
	RequiredAttendees []Attendee `json:"required_attendees"`
	OptionalAttendees []Attendee `json:"optional_attendees"`
}

// Service is the calendar operations surface the room engine consumes
type Service interface {
	// FindUpcomingEvents lists the room's events overlapping the window
	FindUpcomingEvents(ctx context.Context, roomAddress string, windowStart, windowEnd time.Time) ([]*Event, error)

	// GetEvent fetches a single event from the room's calendar
	GetEvent(ctx context.Context, roomAddress, eventID string) (*Event, error)

	// RewriteEventEnd updates the event's end time on the external system
	RewriteEventEnd(ctx context.Context, roomAddress, eventID string, newEnd time.Time) error

	// CreateEvent books a new event on the room's calendar and returns its id
	CreateEvent(ctx context.Context, roomAddress string, start, end time.Time, subject, body string) (string, error)

	// ResolveRoomIdentity returns the room's display name, or ErrAccessDenied
	// when the mailbox does not exist
	ResolveRoomIdentity(ctx context.Context, roomAddress string) (string, error)

	// RoomLists returns the room lists defined on the calendar server
	RoomLists(ctx context.Context) ([]models.RoomList, error)

	// Rooms returns the rooms in the given room list
	Rooms(ctx context.Context, roomListAddress string) ([]models.Room, error)

	// SendEmail sends a notification mail from the service account
	SendEmail(ctx context.Context, to Attendee, cc []Attendee, subject, body string) error
}

// SubscriptionAPI is the push-subscription surface used by the renewal
// coordinator. Renewal extends an existing subscription; creation registers a
// new one against the room's event feed and returns its id.
type SubscriptionAPI interface {
	RenewSubscription(ctx context.Context, roomAddress, subscriptionID string, expiration time.Time) error
	CreateSubscription(ctx context.Context, roomAddress, notificationURL, clientState string, expiration time.Time) (string, error)
}
