package api

import (
	"net/http"

	"github.com/roomninja/roomninja/internal/nlu"
)

// SetupRoutes configures the HTTP routes for the API. events, when non-nil,
// is mounted as the SSE stream; nluService, when non-nil, enables the
// conversation endpoints.
func SetupRoutes(roomService RoomServicer, rooms RoomLookup, events http.Handler, nluService nlu.Service) *http.ServeMux {
	mux := http.NewServeMux()

	// Health check endpoints for Kubernetes
	mux.HandleFunc("/health/live", HealthLiveHandler)
	mux.HandleFunc("/health/ready", HealthReadyHandler)

	// Calendar push-notification endpoint
	mux.Handle("/webhook/calendar", NewWebhookHandler(rooms, roomService))

	// Room status and meeting lifecycle endpoints
	roomHandler := NewRoomHandler(roomService)
	mux.Handle("/api/rooms/", roomHandler)

	// Room-list discovery endpoints
	roomListHandler := NewRoomListHandler(roomService)
	mux.Handle("/api/roomlists", roomListHandler)
	mux.Handle("/api/roomlists/", roomListHandler)

	// Slot-filling conversation endpoints for chat frontends
	if nluService != nil {
		conversationHandler := NewConversationHandler(nluService)
		mux.Handle("/api/conversations", conversationHandler)
		mux.Handle("/api/conversations/", conversationHandler)
	}

	// Server-sent events stream for connected status boards
	if events != nil {
		mux.Handle("/events", events)
	}

	return mux
}
