package models

// RoomStatus represents the occupancy state of a room
type RoomStatus int

const (
	// StatusFree means no current meeting occupies the room
	StatusFree RoomStatus = iota
	// StatusBusy means a meeting occupies the room and has been started
	StatusBusy
	// StatusBusyNotConfirmed means a meeting's scheduled window has begun but
	// nobody has confirmed occupancy by starting it
	StatusBusyNotConfirmed
)

// String returns the string representation of a room status
func (s RoomStatus) String() string {
	return [...]string{"free", "busy", "busy_not_confirmed"}[s]
}

// RoomStatusInfo is a derived snapshot of a room's occupancy, recomputed on
// every request and never mutated in place.
type RoomStatusInfo struct {
	IsTrackingChanges bool       `json:"is_tracking_changes"`
	NearTermMeetings  []*Meeting `json:"near_term_meetings"`
	PreviousMeeting   *Meeting   `json:"previous_meeting,omitempty"`
	CurrentMeeting    *Meeting   `json:"current_meeting,omitempty"`
	NextMeeting       *Meeting   `json:"next_meeting,omitempty"`
	Status            RoomStatus `json:"status"`
	NextChangeSeconds float64    `json:"next_change_seconds,omitempty"`
}

// RoomInfo is the result of resolving a room's identity
type RoomInfo struct {
	CurrentTime    int64  `json:"current_time"`
	DisplayName    string `json:"display_name"`
	SecurityStatus string `json:"security_status"`
}
