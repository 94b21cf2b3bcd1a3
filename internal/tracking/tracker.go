// Package tracking keeps the registry of rooms whose calendars are watched
// through push subscriptions. For a tracked room, cache freshness relies on
// incoming change notifications instead of TTL expiry.
package tracking

import (
	"sync"
)

// Tracker is a concurrency-safe registry of tracked room addresses
type Tracker struct {
	mu    sync.RWMutex
	rooms map[string]struct{}
}

// NewTracker creates an empty tracker
func NewTracker() *Tracker {
	return &Tracker{rooms: make(map[string]struct{})}
}

// Track registers a room for change notifications
func (t *Tracker) Track(roomAddress string) {
	t.mu.Lock()
	t.rooms[roomAddress] = struct{}{}
	t.mu.Unlock()
}

// Untrack removes a room, e.g. after the calendar reports access denied
func (t *Tracker) Untrack(roomAddress string) {
	t.mu.Lock()
	delete(t.rooms, roomAddress)
	t.mu.Unlock()
}

// IsTracked reports whether the room is registered for change notifications
func (t *Tracker) IsTracked(roomAddress string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.rooms[roomAddress]
	return ok
}
