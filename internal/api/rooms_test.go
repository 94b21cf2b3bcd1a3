package api_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roomninja/roomninja/internal/api"
	"github.com/roomninja/roomninja/internal/models"
	"github.com/roomninja/roomninja/internal/repository"
	"github.com/roomninja/roomninja/internal/service"
)

// fakeRoomService records calls and returns canned results
type fakeRoomService struct {
	status     *models.RoomStatusInfo
	err        error
	calls      []string
	lastKey    string
	lastSig    string
	sigValid   bool
	newEventID string
	changed    []string
}

func (f *fakeRoomService) GetStatus(ctx context.Context, roomAddress string) (*models.RoomStatusInfo, error) {
	f.calls = append(f.calls, "status "+roomAddress)
	return f.status, f.err
}

func (f *fakeRoomService) GetInfo(ctx context.Context, roomAddress, securityKey string) (*models.RoomInfo, error) {
	f.calls = append(f.calls, "info "+roomAddress)
	f.lastKey = securityKey
	if f.err != nil {
		return nil, f.err
	}
	return &models.RoomInfo{DisplayName: "The Tardis", SecurityStatus: "granted"}, nil
}

func (f *fakeRoomService) StartMeeting(ctx context.Context, roomAddress, eventID, securityKey string) error {
	f.calls = append(f.calls, "start "+eventID)
	f.lastKey = securityKey
	return f.err
}

func (f *fakeRoomService) StartMeetingFromClient(ctx context.Context, roomAddress, eventID, sig string) (bool, error) {
	f.calls = append(f.calls, "start-from-client "+eventID)
	f.lastSig = sig
	return f.sigValid, f.err
}

func (f *fakeRoomService) CancelMeeting(ctx context.Context, roomAddress, eventID, securityKey string) error {
	f.calls = append(f.calls, "cancel "+eventID)
	return f.err
}

func (f *fakeRoomService) EndMeeting(ctx context.Context, roomAddress, eventID, securityKey string) error {
	f.calls = append(f.calls, "end "+eventID)
	return f.err
}

func (f *fakeRoomService) MessageMeeting(ctx context.Context, roomAddress, eventID, securityKey string) error {
	f.calls = append(f.calls, "message "+eventID)
	return f.err
}

func (f *fakeRoomService) StartNewMeeting(ctx context.Context, roomAddress, securityKey, title string, minutes int) (string, error) {
	f.calls = append(f.calls, "new "+title)
	f.lastKey = securityKey
	return f.newEventID, f.err
}

func (f *fakeRoomService) RoomLists(ctx context.Context) ([]models.RoomList, error) {
	return []models.RoomList{{Name: "HQ", Address: "hq@acme.example"}}, f.err
}

func (f *fakeRoomService) Rooms(ctx context.Context, roomListAddress string) ([]models.Room, error) {
	return []models.Room{{Name: "Tardis", Address: "tardis@acme.example"}}, f.err
}

func (f *fakeRoomService) HandleRoomChanged(roomAddress string) {
	f.changed = append(f.changed, roomAddress)
}

type fakeRoomLookup struct {
	records map[string]*models.RoomRecord // orgID/roomID -> record
}

func (f *fakeRoomLookup) Room(ctx context.Context, orgID, roomID string) (*models.RoomRecord, error) {
	if record, ok := f.records[orgID+"/"+roomID]; ok {
		return record, nil
	}
	return nil, repository.ErrNotFound
}

func newTestMux(svc *fakeRoomService) *http.ServeMux {
	return api.SetupRoutes(svc, &fakeRoomLookup{}, nil, nil)
}

func TestHealthEndpoints(t *testing.T) {
	mux := newTestMux(&fakeRoomService{})

	for _, path := range []string{"/health/live", "/health/ready"} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "UP")
	}
}

func TestGetStatus(t *testing.T) {
	svc := &fakeRoomService{status: &models.RoomStatusInfo{Status: models.StatusBusy}}
	mux := newTestMux(svc)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/rooms/tardis@acme.example/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":1`)
	assert.Equal(t, []string{"status tardis@acme.example"}, svc.calls)
}

func TestStartMeetingPassesSecurityKey(t *testing.T) {
	svc := &fakeRoomService{}
	mux := newTestMux(svc)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/rooms/tardis@acme.example/meetings/ev1/start?securityKey=sesame", nil)
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"start ev1"}, svc.calls)
	assert.Equal(t, "sesame", svc.lastKey)
}

func TestServiceErrorMapping(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{service.ErrUnauthorized, http.StatusForbidden},
		{service.ErrEventNotFound, http.StatusNotFound},
		{service.ErrNotManaged, http.StatusConflict},
		{service.ErrRoomNotFree, http.StatusConflict},
	}

	for _, tt := range tests {
		svc := &fakeRoomService{err: tt.err}
		mux := newTestMux(svc)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/rooms/tardis@acme.example/meetings/ev1/end", nil)
		mux.ServeHTTP(rec, req)

		assert.Equal(t, tt.code, rec.Code, "error %v", tt.err)
	}
}

func TestStartFromClientBadSignature(t *testing.T) {
	svc := &fakeRoomService{sigValid: false}
	mux := newTestMux(svc)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/rooms/tardis@acme.example/meetings/ev1/start-from-client?signature=bogus", nil)
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "bogus", svc.lastSig)
}

func TestStartFromClientGoodSignature(t *testing.T) {
	svc := &fakeRoomService{sigValid: true}
	mux := newTestMux(svc)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/rooms/tardis@acme.example/meetings/ev1/start-from-client?signature=good", nil)
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStartNewMeeting(t *testing.T) {
	svc := &fakeRoomService{newEventID: "created-1"}
	mux := newTestMux(svc)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/rooms/tardis@acme.example/meetings?securityKey=sesame",
		strings.NewReader(`{"title":"huddle","minutes":30}`))
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), "created-1")
	assert.Equal(t, []string{"new huddle"}, svc.calls)
}

func TestUnknownMeetingAction(t *testing.T) {
	mux := newTestMux(&fakeRoomService{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/rooms/tardis@acme.example/meetings/ev1/explode", nil)
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRoomLists(t *testing.T) {
	mux := newTestMux(&fakeRoomService{})

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/roomlists", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "hq@acme.example")

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/roomlists/hq@acme.example/rooms", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "tardis@acme.example")
}
