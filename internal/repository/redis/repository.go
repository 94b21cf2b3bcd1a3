// Package redis provides Redis/Valkey implementations of the repository
// interfaces.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/roomninja/roomninja/internal/config"
	"github.com/roomninja/roomninja/internal/models"
)

// Common errors
var (
	ErrNotFound = errors.New("entity not found")
)

// Repository implements the repository interfaces with Redis storage
type Repository struct {
	client    *redis.Client
	keyPrefix string
}

// NewRepository creates a new Redis repository
func NewRepository(cfg config.RedisConfig) (*Repository, error) {
	var client *redis.Client

	// Use URI if provided, otherwise build connection from individual parameters
	if cfg.URI != "" {
		opt, err := redis.ParseURL(cfg.URI)
		if err != nil {
			return nil, fmt.Errorf("failed to parse Redis URI: %w", err)
		}

		if opt.DB == 0 {
			opt.DB = cfg.DB
		}
		if opt.Password == "" && cfg.Password != "" {
			opt.Password = cfg.Password
		}

		client = redis.NewClient(opt)
	} else {
		client = redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
			Username: cfg.Username,
			Password: cfg.Password,
			DB:       cfg.DB,
		})
	}

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Repository{
		client:    client,
		keyPrefix: cfg.KeyPrefix,
	}, nil
}

// Close closes the Redis connection
func (r *Repository) Close() error {
	return r.client.Close()
}

// meetingInfoKey returns the Redis key for an event's lifecycle flags
func (r *Repository) meetingInfoKey(eventID string) string {
	return fmt.Sprintf("%smeetinginfo:%s", r.keyPrefix, eventID)
}

// organizationsKey returns the Redis key of the organization id set
func (r *Repository) organizationsKey() string {
	return r.keyPrefix + "organizations"
}

// credentialsKey returns the Redis key of an organization's calendar credentials
func (r *Repository) credentialsKey(orgID string) string {
	return fmt.Sprintf("%sorg:%s:credentials", r.keyPrefix, orgID)
}

// roomsKey returns the Redis key of an organization's room-record hash
func (r *Repository) roomsKey(orgID string) string {
	return fmt.Sprintf("%sorg:%s:rooms", r.keyPrefix, orgID)
}

// GetMeetingInfo returns one MeetingInfo per requested event id, defaulting
// unknown ids to all-false flags.
func (r *Repository) GetMeetingInfo(ctx context.Context, eventIDs []string) ([]*models.MeetingInfo, error) {
	if len(eventIDs) == 0 {
		return []*models.MeetingInfo{}, nil
	}

	keys := make([]string, len(eventIDs))
	for i, id := range eventIDs {
		keys[i] = r.meetingInfoKey(id)
	}

	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get meeting info: %w", err)
	}

	infos := make([]*models.MeetingInfo, len(eventIDs))
	for i, value := range values {
		info := &models.MeetingInfo{ID: eventIDs[i]}
		if s, ok := value.(string); ok {
			if err := json.Unmarshal([]byte(s), info); err != nil {
				return nil, fmt.Errorf("failed to unmarshal meeting info %s: %w", eventIDs[i], err)
			}
			info.ID = eventIDs[i]
		}
		infos[i] = info
	}
	return infos, nil
}

// StartMeeting marks the event started
func (r *Repository) StartMeeting(ctx context.Context, eventID string) error {
	return r.updateMeetingInfo(ctx, eventID, func(info *models.MeetingInfo) {
		info.IsStarted = true
	})
}

// CancelMeeting marks the event cancelled
func (r *Repository) CancelMeeting(ctx context.Context, eventID string) error {
	return r.updateMeetingInfo(ctx, eventID, func(info *models.MeetingInfo) {
		info.IsCancelled = true
	})
}

// EndMeeting marks the event ended early
func (r *Repository) EndMeeting(ctx context.Context, eventID string) error {
	return r.updateMeetingInfo(ctx, eventID, func(info *models.MeetingInfo) {
		info.IsEndedEarly = true
	})
}

// updateMeetingInfo read-modify-writes one event's lifecycle flags
func (r *Repository) updateMeetingInfo(ctx context.Context, eventID string, mutate func(*models.MeetingInfo)) error {
	key := r.meetingInfoKey(eventID)

	info := &models.MeetingInfo{ID: eventID}
	data, err := r.client.Get(ctx, key).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to get meeting info %s: %w", eventID, err)
	}
	if err == nil {
		if err := json.Unmarshal([]byte(data), info); err != nil {
			return fmt.Errorf("failed to unmarshal meeting info %s: %w", eventID, err)
		}
	}

	mutate(info)

	encoded, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("failed to marshal meeting info %s: %w", eventID, err)
	}
	if err := r.client.Set(ctx, key, encoded, 0).Err(); err != nil {
		return fmt.Errorf("failed to save meeting info %s: %w", eventID, err)
	}
	return nil
}

// AddRoom registers a room record and its organization
func (r *Repository) AddRoom(ctx context.Context, record *models.RoomRecord) error {
	encoded, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal room record: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.SAdd(ctx, r.organizationsKey(), record.OrganizationID)
	pipe.HSet(ctx, r.roomsKey(record.OrganizationID), record.RoomID, encoded)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save room record: %w", err)
	}
	return nil
}

// SetCredentials stores an organization's calendar credentials
func (r *Repository) SetCredentials(ctx context.Context, orgID string, creds models.CalendarCredentials) error {
	encoded, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}
	if err := r.client.Set(ctx, r.credentialsKey(orgID), encoded, 0).Err(); err != nil {
		return fmt.Errorf("failed to save credentials for %s: %w", orgID, err)
	}
	return nil
}

// Organizations lists all organization ids with room records
func (r *Repository) Organizations(ctx context.Context) ([]string, error) {
	orgs, err := r.client.SMembers(ctx, r.organizationsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}
	return orgs, nil
}

// CalendarCredentials returns the organization's calendar credentials
func (r *Repository) CalendarCredentials(ctx context.Context, orgID string) (models.CalendarCredentials, error) {
	data, err := r.client.Get(ctx, r.credentialsKey(orgID)).Result()
	if errors.Is(err, redis.Nil) {
		return models.CalendarCredentials{}, ErrNotFound
	}
	if err != nil {
		return models.CalendarCredentials{}, fmt.Errorf("failed to get credentials for %s: %w", orgID, err)
	}

	var creds models.CalendarCredentials
	if err := json.Unmarshal([]byte(data), &creds); err != nil {
		return models.CalendarCredentials{}, fmt.Errorf("failed to unmarshal credentials for %s: %w", orgID, err)
	}
	return creds, nil
}

// Rooms lists the organization's room records
func (r *Repository) Rooms(ctx context.Context, orgID string) ([]*models.RoomRecord, error) {
	entries, err := r.client.HGetAll(ctx, r.roomsKey(orgID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms for %s: %w", orgID, err)
	}

	records := make([]*models.RoomRecord, 0, len(entries))
	for roomID, data := range entries {
		var record models.RoomRecord
		if err := json.Unmarshal([]byte(data), &record); err != nil {
			return nil, fmt.Errorf("failed to unmarshal room %s: %w", roomID, err)
		}
		records = append(records, &record)
	}
	return records, nil
}

// Room returns a single room record
func (r *Repository) Room(ctx context.Context, orgID, roomID string) (*models.RoomRecord, error) {
	data, err := r.client.HGet(ctx, r.roomsKey(orgID), roomID).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get room %s/%s: %w", orgID, roomID, err)
	}

	var record models.RoomRecord
	if err := json.Unmarshal([]byte(data), &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal room %s: %w", roomID, err)
	}
	return &record, nil
}

// SaveSubscriptionID persists a subscription id onto the room record
func (r *Repository) SaveSubscriptionID(ctx context.Context, orgID, roomID, subscriptionID string) error {
	record, err := r.Room(ctx, orgID, roomID)
	if err != nil {
		return err
	}
	record.SubscriptionID = subscriptionID

	encoded, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal room record: %w", err)
	}
	if err := r.client.HSet(ctx, r.roomsKey(orgID), roomID, encoded).Err(); err != nil {
		return fmt.Errorf("failed to save subscription id for %s/%s: %w", orgID, roomID, err)
	}
	return nil
}
