// Package service implements the room status & lifecycle engine and the
// subscription renewal coordinator, on top of the calendar, repository and
// messaging collaborators.
package service

import (
	"context"
	"errors"
)

// Common errors
var (
	// ErrUnauthorized is returned when the rights check does not grant access
	ErrUnauthorized = errors.New("access denied")
	// ErrEventNotFound is returned when the event id is not among the room's
	// upcoming meetings
	ErrEventNotFound = errors.New("meeting not found")
	// ErrNotManaged is returned when a lifecycle mutation targets an all-day
	// event or one longer than six hours
	ErrNotManaged = errors.New("meeting is not managed")
	// ErrRoomNotFree is returned when StartNewMeeting targets an occupied room
	ErrRoomNotFree = errors.New("room is not free")
)

// SecurityStatus is the result of a rights lookup
type SecurityStatus int

const (
	// SecurityUnknown means the checker could not determine rights
	SecurityUnknown SecurityStatus = iota
	// SecurityGranted means the caller may operate the room
	SecurityGranted
	// SecurityDenied means the caller may not operate the room
	SecurityDenied
)

// String returns the string representation of a security status
func (s SecurityStatus) String() string {
	return [...]string{"unknown", "granted", "denied"}[s]
}

// SecurityChecker resolves a caller's rights on a room
type SecurityChecker interface {
	GetRights(ctx context.Context, roomAddress, securityKey string) (SecurityStatus, error)
}

// SignatureService signs and verifies event ids, the alternate authorization
// path for start links mailed to organizers.
type SignatureService interface {
	Sign(eventID string) string
	Verify(eventID, sig string) bool
}

// ChangeTracker is the registry of rooms watched through push subscriptions
type ChangeTracker interface {
	IsTracked(roomAddress string) bool
	Track(roomAddress string)
	Untrack(roomAddress string)
}

// Broadcaster fans a room-updated notification out to connected clients.
// Fire-and-forget: implementations never block the caller on slow consumers.
type Broadcaster interface {
	NotifyRoomUpdated(roomAddress string)
}

// InstantMessenger delivers an instant message to a set of addresses
type InstantMessenger interface {
	SendInstantMessage(ctx context.Context, addresses []string, subject, body string, urgent bool) error
}

// SMSMessenger delivers a text message to a set of phone numbers
type SMSMessenger interface {
	SendSMS(ctx context.Context, numbers []string, body string) error
}

// SMSAddressLookup maps email addresses to the phone numbers on record for
// them. Addresses with no number are silently dropped.
type SMSAddressLookup interface {
	LookupSMSAddresses(ctx context.Context, emails []string) ([]string, error)
}
