package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/roomninja/roomninja/internal/bot"
	"github.com/roomninja/roomninja/internal/nlu"
	"github.com/roomninja/roomninja/internal/utils"
)

// ConversationHandler exposes the slot-filling dialog engine over HTTP. A
// chat frontend starts a conversation with the user's initiating utterance
// and relays replies until the dialog reaches a terminal state.
type ConversationHandler struct {
	nlu     nlu.Service
	dialogs *bot.Manager
}

// NewConversationHandler creates a conversation handler
func NewConversationHandler(nluService nlu.Service) *ConversationHandler {
	return &ConversationHandler{
		nlu:     nluService,
		dialogs: bot.NewManager(),
	}
}

// turnResponse is the JSON shape of one dialog turn
type turnResponse struct {
	ConversationID string            `json:"conversation_id"`
	State          string            `json:"state"`
	Prompt         string            `json:"prompt,omitempty"`
	Notice         string            `json:"notice,omitempty"`
	Booking        *criteriaResponse `json:"booking,omitempty"`
	Search         *criteriaResponse `json:"search,omitempty"`
	Status         *criteriaResponse `json:"status,omitempty"`
}

type criteriaResponse struct {
	Room      string     `json:"room,omitempty"`
	Office    string     `json:"office,omitempty"`
	StartTime *time.Time `json:"start_time,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty"`
}

func turnToResponse(conversationID string, turn *bot.Turn) turnResponse {
	resp := turnResponse{
		ConversationID: conversationID,
		State:          turn.State.String(),
		Prompt:         turn.Prompt,
		Notice:         turn.Notice,
	}
	if turn.Booking != nil {
		resp.Booking = &criteriaResponse{
			Room:      turn.Booking.Room,
			StartTime: turn.Booking.StartTime,
			EndTime:   turn.Booking.EndTime,
		}
	}
	if turn.Search != nil {
		resp.Search = &criteriaResponse{
			Office:    turn.Search.Office,
			StartTime: turn.Search.StartTime,
			EndTime:   turn.Search.EndTime,
		}
	}
	if turn.Status != nil {
		resp.Status = &criteriaResponse{
			Room:      turn.Status.Room,
			StartTime: turn.Status.StartTime,
			EndTime:   turn.Status.EndTime,
		}
	}
	return resp
}

// ServeHTTP routes conversation requests.
// Path formats: /api/conversations and /api/conversations/{id}/messages
func (h *ConversationHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")

	pathParts := strings.Split(strings.TrimRight(r.URL.Path, "/"), "/")
	switch {
	case len(pathParts) == 3:
		h.begin(w, r)
	case len(pathParts) == 5 && pathParts[4] == "messages" && pathParts[3] != "":
		h.message(w, r, pathParts[3])
	default:
		http.NotFound(w, r)
	}
}

// begin handles POST /api/conversations: runs the initiating utterance
// through the NLU model, pre-fills criteria, and opens a dialog for whatever
// is still missing.
func (h *ConversationHandler) begin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Kind    string `json:"kind"`
		Office  string `json:"office"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	loc := time.UTC
	if req.Office != "" {
		officeLoc, err := bot.OfficeLocation(req.Office)
		if err != nil {
			http.Error(w, "Unknown office", http.StatusBadRequest)
			return
		}
		loc = officeLoc
	}

	result := &nlu.Result{}
	if req.Message != "" {
		var err error
		result, err = h.nlu.Query(r.Context(), req.Message)
		if err != nil {
			log.Printf("Error querying NLU service: %v", err)
			http.Error(w, "Language service unavailable", http.StatusBadGateway)
			return
		}
	}

	var dialog *bot.Dialog
	switch req.Kind {
	case "booking":
		dialog = bot.NewBookingDialog(h.nlu, loc, bot.ParseBookingCriteria(result, loc))
	case "search":
		criteria := bot.ParseSearchCriteria(result, loc)
		if criteria.Office == "" {
			criteria.Office = req.Office
		}
		dialog = bot.NewSearchDialog(h.nlu, loc, criteria)
	case "status":
		dialog = bot.NewStatusDialog(h.nlu, loc, bot.ParseStatusCriteria(result, loc))
	default:
		http.Error(w, "Unknown conversation kind", http.StatusBadRequest)
		return
	}

	conversationID := uuid.NewString()
	turn := h.dialogs.Begin(conversationID, dialog)

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(turnToResponse(conversationID, turn))
}

// message handles POST /api/conversations/{id}/messages
func (h *ConversationHandler) message(w http.ResponseWriter, r *http.Request, conversationID string) {
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	turn, err := h.dialogs.Handle(r.Context(), conversationID, req.Text)
	if errors.Is(err, bot.ErrNoDialog) {
		http.Error(w, "No such conversation", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Printf("Error handling conversation %s: %v", utils.SanitizeLogString(conversationID), err)
		http.Error(w, "Language service unavailable", http.StatusBadGateway)
		return
	}

	json.NewEncoder(w).Encode(turnToResponse(conversationID, turn))
}
