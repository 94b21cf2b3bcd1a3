package models_test

import (
	"testing"
	"time"

	"github.com/roomninja/roomninja/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestManaged(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name     string
		isAllDay bool
		start    time.Time
		end      time.Time
		expected bool
	}{
		{
			name:     "one hour meeting is managed",
			start:    now,
			end:      now.Add(time.Hour),
			expected: true,
		},
		{
			name:     "exactly six hours is still managed",
			start:    now,
			end:      now.Add(6 * time.Hour),
			expected: true,
		},
		{
			name:     "longer than six hours is not managed",
			start:    now,
			end:      now.Add(6*time.Hour + time.Minute),
			expected: false,
		},
		{
			name:     "all day event is not managed",
			isAllDay: true,
			start:    now,
			end:      now.Add(time.Hour),
			expected: false,
		},
		{
			name:     "inverted window longer than six hours is not managed",
			start:    now.Add(7 * time.Hour),
			end:      now,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, models.Managed(tt.isAllDay, tt.start, tt.end))
		})
	}
}

func TestRoomStatusString(t *testing.T) {
	assert.Equal(t, "free", models.StatusFree.String())
	assert.Equal(t, "busy", models.StatusBusy.String())
	assert.Equal(t, "busy_not_confirmed", models.StatusBusyNotConfirmed.String())
}

func TestRoomRecordClientState(t *testing.T) {
	record := &models.RoomRecord{OrganizationID: "acme", RoomID: "room-1"}
	assert.Equal(t, "acme_room-1", record.ClientState())
}

func TestParseClientState(t *testing.T) {
	item := models.ChangeNotificationItem{ClientState: "acme_room-1"}
	org, room, ok := item.ParseClientState()
	assert.True(t, ok)
	assert.Equal(t, "acme", org)
	assert.Equal(t, "room-1", room)

	item = models.ChangeNotificationItem{ClientState: "garbage"}
	_, _, ok = item.ParseClientState()
	assert.False(t, ok)

	item = models.ChangeNotificationItem{ClientState: "_room"}
	_, _, ok = item.ParseClientState()
	assert.False(t, ok)
}

func TestCalendarCredentialsValid(t *testing.T) {
	creds := models.CalendarCredentials{TenantID: "t", ClientID: "c", ClientSecret: "s"}
	assert.True(t, creds.Valid())

	creds.ClientSecret = ""
	assert.False(t, creds.Valid())
}
