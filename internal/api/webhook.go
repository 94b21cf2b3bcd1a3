package api

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/roomninja/roomninja/internal/models"
	"github.com/roomninja/roomninja/internal/utils"
)

// maxNotificationBody bounds the webhook request body
const maxNotificationBody = 1 << 20

// WebhookHandler receives push notifications from the calendar service for
// tracked rooms. Each notification's client state is resolved back to a room
// record; the room service then evicts and rebroadcasts.
type WebhookHandler struct {
	rooms   RoomLookup
	service RoomServicer
}

// NewWebhookHandler creates a webhook handler
func NewWebhookHandler(rooms RoomLookup, service RoomServicer) *WebhookHandler {
	return &WebhookHandler{rooms: rooms, service: service}
}

// calendar-side wire format of one notification item
type wireNotification struct {
	Value []struct {
		SubscriptionID string `json:"SubscriptionId"`
		ClientState    string `json:"ClientState"`
		ChangeType     string `json:"ChangeType"`
		Resource       string `json:"Resource"`
	} `json:"value"`
}

// ServeHTTP handles POST /webhook/calendar
func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// subscription-creation handshake: echo the validation token back in
	// plain text
	if token := r.URL.Query().Get("validationtoken"); token != "" {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, token)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxNotificationBody))
	if err != nil {
		log.Printf("Error reading notification body: %v", err)
		http.Error(w, "Error reading request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	var wire wireNotification
	if err := json.Unmarshal(body, &wire); err != nil {
		log.Printf("Error parsing notification JSON: %v", err)
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	for _, v := range wire.Value {
		item := models.ChangeNotificationItem{
			SubscriptionID: v.SubscriptionID,
			ClientState:    v.ClientState,
			ChangeType:     v.ChangeType,
			Resource:       v.Resource,
		}

		orgID, roomID, ok := item.ParseClientState()
		if !ok {
			log.Printf("Dropping notification with malformed client state %q", utils.SanitizeLogString(item.ClientState))
			continue
		}

		record, err := h.rooms.Room(ctx, orgID, roomID)
		if err != nil {
			log.Printf("Dropping notification for unknown room %s/%s: %v",
				utils.SanitizeLogString(orgID), utils.SanitizeLogString(roomID), err)
			continue
		}
		if record.SubscriptionID != "" && record.SubscriptionID != item.SubscriptionID {
			log.Printf("Dropping notification with stale subscription id for %s", utils.SanitizeLogString(record.RoomAddress))
			continue
		}

		h.service.HandleRoomChanged(record.RoomAddress)
	}

	// the calendar service only needs to know delivery succeeded
	w.WriteHeader(http.StatusAccepted)
}
