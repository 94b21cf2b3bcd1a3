// Package web exposes the server-sent-events stream that pushes room updates
// to connected status boards.
package web

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/r3labs/sse/v2"

	"github.com/roomninja/roomninja/internal/utils"
)

// roomStream is the single stream all room updates are published on; clients
// filter by room address themselves.
const roomStream = "rooms"

// Hub broadcasts room-updated notifications over SSE. It implements
// service.Broadcaster.
type Hub struct {
	server *sse.Server
}

// NewHub creates a hub with its stream registered
func NewHub() *Hub {
	server := sse.New()
	// connecting clients only care about updates from now on
	server.AutoReplay = false
	server.CreateStream(roomStream)
	return &Hub{server: server}
}

type roomUpdatedPayload struct {
	RoomAddress string `json:"room_address"`
}

// NotifyRoomUpdated publishes a room_updated event to every connected client.
// Fire-and-forget: publishing never blocks on slow consumers.
func (h *Hub) NotifyRoomUpdated(roomAddress string) {
	data, err := json.Marshal(roomUpdatedPayload{RoomAddress: roomAddress})
	if err != nil {
		log.Printf("Error marshalling room update for %s: %v", utils.SanitizeLogString(roomAddress), err)
		return
	}
	h.server.Publish(roomStream, &sse.Event{
		Event: []byte("room_updated"),
		Data:  data,
	})
}

// Handler returns the HTTP handler clients subscribe through. The stream
// query parameter is filled in when absent, so plain `GET /events` works.
func (h *Hub) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("stream") == "" {
			q := r.URL.Query()
			q.Set("stream", roomStream)
			r.URL.RawQuery = q.Encode()
		}
		h.server.ServeHTTP(w, r)
	})
}

// Close shuts the hub down, disconnecting all clients
func (h *Hub) Close() {
	h.server.Close()
}
