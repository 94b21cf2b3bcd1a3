package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roomninja/roomninja/internal/models"
	"github.com/roomninja/roomninja/internal/repository/memory"
)

func TestMeetingInfoLifecycle(t *testing.T) {
	repo := memory.NewMeetingInfoRepository()
	ctx := context.Background()

	infos, err := repo.GetMeetingInfo(ctx, []string{"ev1"})
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.False(t, infos[0].IsStarted)

	require.NoError(t, repo.StartMeeting(ctx, "ev1"))
	require.NoError(t, repo.CancelMeeting(ctx, "ev2"))
	require.NoError(t, repo.EndMeeting(ctx, "ev1"))

	infos, err = repo.GetMeetingInfo(ctx, []string{"ev1", "ev2"})
	require.NoError(t, err)
	assert.True(t, infos[0].IsStarted)
	assert.True(t, infos[0].IsEndedEarly)
	assert.True(t, infos[1].IsCancelled)
	assert.False(t, infos[1].IsStarted)
}

func TestGetMeetingInfoReturnsCopies(t *testing.T) {
	repo := memory.NewMeetingInfoRepository()
	ctx := context.Background()

	require.NoError(t, repo.StartMeeting(ctx, "ev1"))

	infos, err := repo.GetMeetingInfo(ctx, []string{"ev1"})
	require.NoError(t, err)
	infos[0].IsCancelled = true

	infos, err = repo.GetMeetingInfo(ctx, []string{"ev1"})
	require.NoError(t, err)
	assert.False(t, infos[0].IsCancelled)
}

func TestSubscriptionRepository(t *testing.T) {
	repo := memory.NewSubscriptionRepository()
	ctx := context.Background()

	repo.AddRoom(&models.RoomRecord{
		OrganizationID: "acme",
		RoomID:         "tardis",
		RoomAddress:    "tardis@acme.example",
	})
	repo.SetCredentials("acme", models.CalendarCredentials{TenantID: "t", ClientID: "c", ClientSecret: "s"})

	orgs, err := repo.Organizations(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"acme"}, orgs)

	rooms, err := repo.Rooms(ctx, "acme")
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, "tardis@acme.example", rooms[0].RoomAddress)

	creds, err := repo.CalendarCredentials(ctx, "acme")
	require.NoError(t, err)
	assert.True(t, creds.Valid())

	_, err = repo.CalendarCredentials(ctx, "other")
	assert.ErrorIs(t, err, memory.ErrNotFound)
}

func TestSaveSubscriptionID(t *testing.T) {
	repo := memory.NewSubscriptionRepository()
	ctx := context.Background()

	repo.AddRoom(&models.RoomRecord{OrganizationID: "acme", RoomID: "tardis"})

	require.NoError(t, repo.SaveSubscriptionID(ctx, "acme", "tardis", "sub-1"))

	room, err := repo.Room(ctx, "acme", "tardis")
	require.NoError(t, err)
	assert.Equal(t, "sub-1", room.SubscriptionID)

	assert.ErrorIs(t, repo.SaveSubscriptionID(ctx, "acme", "nope", "sub-2"), memory.ErrNotFound)
}
