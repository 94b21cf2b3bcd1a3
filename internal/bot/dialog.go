package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/roomninja/roomninja/internal/nlu"
)

// State identifies which field, if any, a dialog is waiting on
type State int

const (
	// StateAwaitingRoom means the dialog prompted for a room name
	StateAwaitingRoom State = iota
	// StateAwaitingBuilding means the dialog prompted for a building/office
	StateAwaitingBuilding
	// StateAwaitingStartTime means the dialog prompted for a start time
	StateAwaitingStartTime
	// StateAwaitingEndTime means the dialog prompted for an end time
	StateAwaitingEndTime
	// StateComplete means all required fields are filled
	StateComplete
	// StateAbandoned means the user cancelled or a time could not be understood
	StateAbandoned
)

// String returns the string representation of a dialog state
func (s State) String() string {
	return [...]string{"awaiting_room", "awaiting_building", "awaiting_start_time", "awaiting_end_time", "complete", "abandoned"}[s]
}

// Kind identifies which criteria a dialog gathers
type Kind int

const (
	// KindBooking gathers room booking criteria (room, start, end)
	KindBooking Kind = iota
	// KindSearch gathers room search criteria (office, start, end)
	KindSearch
	// KindStatus gathers room status criteria (room only)
	KindStatus
)

// Turn is what the engine hands back after starting a dialog or processing a
// user reply: either a prompt for the next field, or a terminal state with
// the finished criteria (nil on abandonment).
type Turn struct {
	State  State
	Prompt string // next question, set while the dialog is still gathering
	Notice string // user-facing note, e.g. when a time was not understood

	Booking *RoomBookingCriteria // set when a booking dialog completes
	Search  *RoomSearchCriteria  // set when a search dialog completes
	Status  *RoomStatusCriteria  // set when a status dialog completes
}

// Done reports whether the dialog reached a terminal state
func (t *Turn) Done() bool {
	return t.State == StateComplete || t.State == StateAbandoned
}

// Dialog is the slot-filling state machine for one conversation. It always
// prompts for the first unfilled required field in the kind's fixed order and
// suspends until the next user message. Callers must not invoke it
// concurrently for the same conversation; Manager enforces that.
type Dialog struct {
	nlu  nlu.Service
	loc  *time.Location
	kind Kind

	state   State
	booking *RoomBookingCriteria
	search  *RoomSearchCriteria
	status  *RoomStatusCriteria
}

// NewBookingDialog creates a dialog that fills the given booking criteria.
// A nil criteria starts from scratch.
func NewBookingDialog(svc nlu.Service, loc *time.Location, criteria *RoomBookingCriteria) *Dialog {
	if criteria == nil {
		criteria = &RoomBookingCriteria{}
	}
	return &Dialog{nlu: svc, loc: loc, kind: KindBooking, booking: criteria}
}

// NewSearchDialog creates a dialog that fills the given search criteria
func NewSearchDialog(svc nlu.Service, loc *time.Location, criteria *RoomSearchCriteria) *Dialog {
	if criteria == nil {
		criteria = &RoomSearchCriteria{}
	}
	return &Dialog{nlu: svc, loc: loc, kind: KindSearch, search: criteria}
}

// NewStatusDialog creates a dialog that fills the given status criteria
func NewStatusDialog(svc nlu.Service, loc *time.Location, criteria *RoomStatusCriteria) *Dialog {
	if criteria == nil {
		criteria = &RoomStatusCriteria{}
	}
	return &Dialog{nlu: svc, loc: loc, kind: KindStatus, status: criteria}
}

// Start evaluates the criteria as pre-filled from the initiating utterance
// and returns either the first prompt or an already-complete turn.
func (d *Dialog) Start() *Turn {
	return d.promptNext()
}

// Handle processes one user reply for the pending field and returns the next
// turn. An empty reply, "cancel" or "stop" abandons the dialog. A time field
// that cannot be resolved abandons the dialog with a notice; there is no
// automatic re-prompt for time fields.
func (d *Dialog) Handle(ctx context.Context, text string) (*Turn, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || isAbandonWord(trimmed) {
		d.state = StateAbandoned
		return &Turn{State: StateAbandoned}, nil
	}

	switch d.state {
	case StateAwaitingRoom:
		d.setRoom(trimmed)

	case StateAwaitingBuilding:
		d.search.Office = trimmed

	case StateAwaitingStartTime:
		result, err := d.nlu.Query(ctx, trimmed)
		if err != nil {
			return nil, fmt.Errorf("querying start time: %w", err)
		}
		base := d.base()
		base.LoadTimeCriteria(result, d.loc)
		if base.StartTime == nil {
			d.state = StateAbandoned
			return &Turn{State: StateAbandoned, Notice: "Sorry, I couldn't understand that start time."}, nil
		}

	case StateAwaitingEndTime:
		result, err := d.nlu.Query(ctx, trimmed)
		if err != nil {
			return nil, fmt.Errorf("querying end time: %w", err)
		}
		base := d.base()
		base.LoadEndTimeCriteria(result, d.loc)
		if base.EndTime == nil {
			d.state = StateAbandoned
			return &Turn{State: StateAbandoned, Notice: "Sorry, I couldn't understand that end time or duration."}, nil
		}

	default:
		return nil, fmt.Errorf("dialog is not awaiting input (state %s)", d.state)
	}

	return d.promptNext(), nil
}

// promptNext advances to the first unfilled required field, or completes
func (d *Dialog) promptNext() *Turn {
	switch d.kind {
	case KindBooking:
		if d.booking.Room == "" {
			d.state = StateAwaitingRoom
			return &Turn{State: d.state, Prompt: "For what room?"}
		}
		if d.booking.StartTime == nil {
			d.state = StateAwaitingStartTime
			return &Turn{State: d.state, Prompt: "Starting when?"}
		}
		if d.booking.EndTime == nil {
			d.state = StateAwaitingEndTime
			return &Turn{State: d.state, Prompt: "Ending when?"}
		}
		d.state = StateComplete
		return &Turn{State: StateComplete, Booking: d.booking}

	case KindSearch:
		if d.search.Office == "" {
			d.state = StateAwaitingBuilding
			return &Turn{State: d.state, Prompt: "In which office?"}
		}
		if d.search.StartTime == nil {
			d.state = StateAwaitingStartTime
			return &Turn{State: d.state, Prompt: "Starting when?"}
		}
		if d.search.EndTime == nil {
			d.state = StateAwaitingEndTime
			return &Turn{State: d.state, Prompt: "Ending when?"}
		}
		d.state = StateComplete
		return &Turn{State: StateComplete, Search: d.search}

	default:
		if d.status.Room == "" {
			d.state = StateAwaitingRoom
			return &Turn{State: d.state, Prompt: "For what room?"}
		}
		d.state = StateComplete
		return &Turn{State: StateComplete, Status: d.status}
	}
}

func (d *Dialog) setRoom(room string) {
	if d.kind == KindStatus {
		d.status.Room = room
		return
	}
	d.booking.Room = room
}

// base returns the shared time-window criteria for the dialog's kind
func (d *Dialog) base() *RoomBaseCriteria {
	switch d.kind {
	case KindBooking:
		return &d.booking.RoomBaseCriteria
	case KindSearch:
		return &d.search.RoomBaseCriteria
	default:
		return &d.status.RoomBaseCriteria
	}
}

func isAbandonWord(text string) bool {
	switch strings.ToLower(text) {
	case "cancel", "stop":
		return true
	}
	return false
}

// ErrNoDialog is returned when a conversation has no dialog in progress
var ErrNoDialog = errors.New("no dialog in progress")

// Manager tracks at most one active dialog per conversation and serializes
// turns within a conversation. Independent conversations proceed in parallel.
type Manager struct {
	mu      sync.Mutex
	dialogs map[string]*managedDialog
}

type managedDialog struct {
	mu     sync.Mutex
	dialog *Dialog
}

// NewManager creates an empty dialog manager
func NewManager() *Manager {
	return &Manager{dialogs: make(map[string]*managedDialog)}
}

// Begin registers a dialog for the conversation and returns its first turn.
// A dialog already in progress for the conversation is replaced.
func (m *Manager) Begin(conversationID string, d *Dialog) *Turn {
	turn := d.Start()
	if turn.Done() {
		return turn
	}

	m.mu.Lock()
	m.dialogs[conversationID] = &managedDialog{dialog: d}
	m.mu.Unlock()
	return turn
}

// Handle feeds one user message to the conversation's pending dialog. The
// dialog is removed once it reaches a terminal state.
func (m *Manager) Handle(ctx context.Context, conversationID, text string) (*Turn, error) {
	m.mu.Lock()
	md, ok := m.dialogs[conversationID]
	m.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w for conversation %s", ErrNoDialog, conversationID)
	}

	md.mu.Lock()
	defer md.mu.Unlock()

	turn, err := md.dialog.Handle(ctx, text)
	if err != nil {
		return nil, err
	}
	if turn.Done() {
		m.mu.Lock()
		delete(m.dialogs, conversationID)
		m.mu.Unlock()
	}
	return turn, nil
}

// Abandon drops any dialog in progress for the conversation
func (m *Manager) Abandon(conversationID string) {
	m.mu.Lock()
	delete(m.dialogs, conversationID)
	m.mu.Unlock()
}
