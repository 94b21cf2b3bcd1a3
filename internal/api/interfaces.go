// Package api provides the HTTP handlers for the roomninja API
package api

import (
	"context"

	"github.com/roomninja/roomninja/internal/models"
)

// RoomServicer is the slice of the room service the HTTP handlers consume
type RoomServicer interface {
	GetStatus(ctx context.Context, roomAddress string) (*models.RoomStatusInfo, error)
	GetInfo(ctx context.Context, roomAddress, securityKey string) (*models.RoomInfo, error)
	StartMeeting(ctx context.Context, roomAddress, eventID, securityKey string) error
	StartMeetingFromClient(ctx context.Context, roomAddress, eventID, sig string) (bool, error)
	CancelMeeting(ctx context.Context, roomAddress, eventID, securityKey string) error
	EndMeeting(ctx context.Context, roomAddress, eventID, securityKey string) error
	MessageMeeting(ctx context.Context, roomAddress, eventID, securityKey string) error
	StartNewMeeting(ctx context.Context, roomAddress, securityKey, title string, minutes int) (string, error)
	RoomLists(ctx context.Context) ([]models.RoomList, error)
	Rooms(ctx context.Context, roomListAddress string) ([]models.Room, error)
	HandleRoomChanged(roomAddress string)
}

// RoomLookup resolves a change notification's correlation token back to a
// room record.
type RoomLookup interface {
	Room(ctx context.Context, orgID, roomID string) (*models.RoomRecord, error)
}
