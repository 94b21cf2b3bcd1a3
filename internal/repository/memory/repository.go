// Package memory provides in-memory implementations of the repository
// interfaces, used for development and tests.
package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/roomninja/roomninja/internal/models"
)

// ErrNotFound is returned when a requested entity is not found
var ErrNotFound = errors.New("entity not found")

// MeetingInfoRepository implements the meeting-info interface with in-memory
// storage.
type MeetingInfoRepository struct {
	mu    sync.RWMutex
	infos map[string]*models.MeetingInfo
}

// NewMeetingInfoRepository creates an empty in-memory meeting-info repository
func NewMeetingInfoRepository() *MeetingInfoRepository {
	return &MeetingInfoRepository{infos: make(map[string]*models.MeetingInfo)}
}

// GetMeetingInfo returns one MeetingInfo per requested event id, defaulting
// unknown ids to all-false flags.
func (r *MeetingInfoRepository) GetMeetingInfo(ctx context.Context, eventIDs []string) ([]*models.MeetingInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]*models.MeetingInfo, 0, len(eventIDs))
	for _, id := range eventIDs {
		if info, ok := r.infos[id]; ok {
			copied := *info
			infos = append(infos, &copied)
		} else {
			infos = append(infos, &models.MeetingInfo{ID: id})
		}
	}
	return infos, nil
}

// StartMeeting marks the event started
func (r *MeetingInfoRepository) StartMeeting(ctx context.Context, eventID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.info(eventID).IsStarted = true
	return nil
}

// CancelMeeting marks the event cancelled
func (r *MeetingInfoRepository) CancelMeeting(ctx context.Context, eventID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.info(eventID).IsCancelled = true
	return nil
}

// EndMeeting marks the event ended early
func (r *MeetingInfoRepository) EndMeeting(ctx context.Context, eventID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.info(eventID).IsEndedEarly = true
	return nil
}

// info returns the stored record for the event, creating it on first use.
// Callers must hold the write lock.
func (r *MeetingInfoRepository) info(eventID string) *models.MeetingInfo {
	if existing, ok := r.infos[eventID]; ok {
		return existing
	}
	created := &models.MeetingInfo{ID: eventID}
	r.infos[eventID] = created
	return created
}

// SubscriptionRepository implements the subscription interface with in-memory
// storage.
type SubscriptionRepository struct {
	mu          sync.RWMutex
	rooms       map[string]map[string]*models.RoomRecord // orgID -> roomID -> record
	credentials map[string]models.CalendarCredentials
}

// NewSubscriptionRepository creates an empty in-memory subscription repository
func NewSubscriptionRepository() *SubscriptionRepository {
	return &SubscriptionRepository{
		rooms:       make(map[string]map[string]*models.RoomRecord),
		credentials: make(map[string]models.CalendarCredentials),
	}
}

// AddRoom registers a room record, creating the organization on first use
func (r *SubscriptionRepository) AddRoom(record *models.RoomRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()

	orgRooms, ok := r.rooms[record.OrganizationID]
	if !ok {
		orgRooms = make(map[string]*models.RoomRecord)
		r.rooms[record.OrganizationID] = orgRooms
	}
	copied := *record
	orgRooms[record.RoomID] = &copied
}

// SetCredentials stores an organization's calendar credentials
func (r *SubscriptionRepository) SetCredentials(orgID string, creds models.CalendarCredentials) {
	r.mu.Lock()
	r.credentials[orgID] = creds
	r.mu.Unlock()
}

// Organizations lists all organization ids with room records
func (r *SubscriptionRepository) Organizations(ctx context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	orgs := make([]string, 0, len(r.rooms))
	for orgID := range r.rooms {
		orgs = append(orgs, orgID)
	}
	return orgs, nil
}

// CalendarCredentials returns the organization's calendar credentials
func (r *SubscriptionRepository) CalendarCredentials(ctx context.Context, orgID string) (models.CalendarCredentials, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	creds, ok := r.credentials[orgID]
	if !ok {
		return models.CalendarCredentials{}, ErrNotFound
	}
	return creds, nil
}

// Rooms lists the organization's room records
func (r *SubscriptionRepository) Rooms(ctx context.Context, orgID string) ([]*models.RoomRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	records := make([]*models.RoomRecord, 0, len(r.rooms[orgID]))
	for _, record := range r.rooms[orgID] {
		copied := *record
		records = append(records, &copied)
	}
	return records, nil
}

// Room returns a single room record
func (r *SubscriptionRepository) Room(ctx context.Context, orgID, roomID string) (*models.RoomRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, ok := r.rooms[orgID][roomID]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *record
	return &copied, nil
}

// SaveSubscriptionID persists a subscription id onto the room record
func (r *SubscriptionRepository) SaveSubscriptionID(ctx context.Context, orgID, roomID, subscriptionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.rooms[orgID][roomID]
	if !ok {
		return ErrNotFound
	}
	record.SubscriptionID = subscriptionID
	return nil
}
