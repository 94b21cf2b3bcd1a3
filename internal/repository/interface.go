// Package repository defines interfaces for the locally-owned data the room
// engine and subscription coordinator read and write: meeting lifecycle flags
// and per-organization room/subscription records.
package repository

import (
	"context"
	"errors"

	"github.com/roomninja/roomninja/internal/models"
)

// ErrNotFound is returned when a requested entity is not found
var ErrNotFound = errors.New("entity not found")

// MeetingInfoRepository stores the lifecycle flags overlaying external
// calendar events. The calendar owns scheduling; these flags own
// started/cancelled/ended-early.
type MeetingInfoRepository interface {
	// GetMeetingInfo returns one MeetingInfo per requested event id, in
	// order. Ids with no stored record come back with all flags false.
	GetMeetingInfo(ctx context.Context, eventIDs []string) ([]*models.MeetingInfo, error)

	// StartMeeting marks the event started
	StartMeeting(ctx context.Context, eventID string) error

	// CancelMeeting marks the event cancelled
	CancelMeeting(ctx context.Context, eventID string) error

	// EndMeeting marks the event ended early
	EndMeeting(ctx context.Context, eventID string) error
}

// SubscriptionRepository stores the per-organization room records the
// subscription coordinator walks, and each organization's calendar
// credentials.
type SubscriptionRepository interface {
	// Organizations lists all organization ids with room records
	Organizations(ctx context.Context) ([]string, error)

	// CalendarCredentials returns the organization's calendar application
	// credentials, or a not-found error when none are configured
	CalendarCredentials(ctx context.Context, orgID string) (models.CalendarCredentials, error)

	// Rooms lists the organization's room records
	Rooms(ctx context.Context, orgID string) ([]*models.RoomRecord, error)

	// Room returns a single room record, or a not-found error
	Room(ctx context.Context, orgID, roomID string) (*models.RoomRecord, error)

	// SaveSubscriptionID persists a newly created subscription id onto the
	// room record
	SaveSubscriptionID(ctx context.Context, orgID, roomID, subscriptionID string) error
}
