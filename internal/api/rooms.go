package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/roomninja/roomninja/internal/calendar"
	"github.com/roomninja/roomninja/internal/service"
	"github.com/roomninja/roomninja/internal/utils"
)

// RoomHandler handles HTTP requests for room status and meeting lifecycle
type RoomHandler struct {
	service RoomServicer
}

// NewRoomHandler creates a new room handler with the given room service
func NewRoomHandler(service RoomServicer) *RoomHandler {
	return &RoomHandler{service: service}
}

// ServeHTTP routes room requests.
// Path formats:
//
//	/api/rooms/{address}/status
//	/api/rooms/{address}/info
//	/api/rooms/{address}/meetings
//	/api/rooms/{address}/meetings/{eventID}/{action}
func (h *RoomHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	pathParts := strings.Split(r.URL.Path, "/")
	if len(pathParts) < 5 || pathParts[3] == "" {
		http.NotFound(w, r)
		return
	}
	roomAddress := pathParts[3]

	switch {
	case r.Method == http.MethodGet && len(pathParts) == 5 && pathParts[4] == "status":
		h.getStatus(w, r, roomAddress)
	case r.Method == http.MethodGet && len(pathParts) == 5 && pathParts[4] == "info":
		h.getInfo(w, r, roomAddress)
	case r.Method == http.MethodPost && len(pathParts) == 5 && pathParts[4] == "meetings":
		h.startNewMeeting(w, r, roomAddress)
	case r.Method == http.MethodPost && len(pathParts) == 7 && pathParts[4] == "meetings" && pathParts[5] != "":
		h.meetingAction(w, r, roomAddress, pathParts[5], pathParts[6])
	default:
		http.NotFound(w, r)
	}
}

func securityKey(r *http.Request) string {
	return r.URL.Query().Get("securityKey")
}

// getStatus handles GET /api/rooms/{address}/status
func (h *RoomHandler) getStatus(w http.ResponseWriter, r *http.Request, roomAddress string) {
	status, err := h.service.GetStatus(r.Context(), roomAddress)
	if err != nil {
		log.Printf("Error getting status for %s: %v", utils.SanitizeLogString(roomAddress), err)
		writeServiceError(w, err)
		return
	}
	json.NewEncoder(w).Encode(status)
}

// getInfo handles GET /api/rooms/{address}/info
func (h *RoomHandler) getInfo(w http.ResponseWriter, r *http.Request, roomAddress string) {
	info, err := h.service.GetInfo(r.Context(), roomAddress, securityKey(r))
	if err != nil {
		log.Printf("Error getting info for %s: %v", utils.SanitizeLogString(roomAddress), err)
		writeServiceError(w, err)
		return
	}
	json.NewEncoder(w).Encode(info)
}

// startNewMeeting handles POST /api/rooms/{address}/meetings
func (h *RoomHandler) startNewMeeting(w http.ResponseWriter, r *http.Request, roomAddress string) {
	var req struct {
		Title   string `json:"title"`
		Minutes int    `json:"minutes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	eventID, err := h.service.StartNewMeeting(r.Context(), roomAddress, securityKey(r), req.Title, req.Minutes)
	if err != nil {
		log.Printf("Error starting new meeting in %s: %v", utils.SanitizeLogString(roomAddress), err)
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]string{"event_id": eventID})
}

// meetingAction handles POST /api/rooms/{address}/meetings/{eventID}/{action}
func (h *RoomHandler) meetingAction(w http.ResponseWriter, r *http.Request, roomAddress, eventID, action string) {
	ctx := r.Context()
	key := securityKey(r)

	var err error
	switch action {
	case "start":
		err = h.service.StartMeeting(ctx, roomAddress, eventID, key)
	case "start-from-client":
		ok, verr := h.service.StartMeetingFromClient(ctx, roomAddress, eventID, r.URL.Query().Get("signature"))
		if verr != nil {
			err = verr
			break
		}
		if !ok {
			http.Error(w, "Invalid signature", http.StatusForbidden)
			return
		}
	case "end":
		err = h.service.EndMeeting(ctx, roomAddress, eventID, key)
	case "cancel":
		err = h.service.CancelMeeting(ctx, roomAddress, eventID, key)
	case "message":
		err = h.service.MessageMeeting(ctx, roomAddress, eventID, key)
	default:
		http.NotFound(w, r)
		return
	}

	if err != nil {
		log.Printf("Error on %s of meeting %s in %s: %v",
			utils.SanitizeLogString(action), utils.SanitizeLogString(eventID), utils.SanitizeLogString(roomAddress), err)
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"result": "ok"})
}

// RoomListHandler handles HTTP requests for room-list discovery
type RoomListHandler struct {
	service RoomServicer
}

// NewRoomListHandler creates a new room-list handler
func NewRoomListHandler(service RoomServicer) *RoomListHandler {
	return &RoomListHandler{service: service}
}

// ServeHTTP routes room-list requests.
// Path formats: /api/roomlists and /api/roomlists/{address}/rooms
func (h *RoomListHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")

	pathParts := strings.Split(strings.TrimRight(r.URL.Path, "/"), "/")
	switch {
	case len(pathParts) == 3:
		lists, err := h.service.RoomLists(r.Context())
		if err != nil {
			log.Printf("Error listing room lists: %v", err)
			writeServiceError(w, err)
			return
		}
		json.NewEncoder(w).Encode(lists)
	case len(pathParts) == 5 && pathParts[4] == "rooms":
		rooms, err := h.service.Rooms(r.Context(), pathParts[3])
		if err != nil {
			log.Printf("Error listing rooms in %s: %v", utils.SanitizeLogString(pathParts[3]), err)
			writeServiceError(w, err)
			return
		}
		json.NewEncoder(w).Encode(rooms)
	default:
		http.NotFound(w, r)
	}
}

// writeServiceError maps service errors onto HTTP statuses
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrUnauthorized):
		http.Error(w, "Access denied", http.StatusForbidden)
	case errors.Is(err, service.ErrEventNotFound):
		http.Error(w, "Meeting not found", http.StatusNotFound)
	case errors.Is(err, calendar.ErrAccessDenied):
		http.Error(w, "Room not found", http.StatusNotFound)
	case errors.Is(err, service.ErrNotManaged), errors.Is(err, service.ErrRoomNotFree):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, "Internal error", http.StatusInternalServerError)
	}
}
