package tracking_test

import (
	"sync"
	"testing"

	"github.com/roomninja/roomninja/internal/tracking"
	"github.com/stretchr/testify/assert"
)

func TestTracker(t *testing.T) {
	tracker := tracking.NewTracker()

	assert.False(t, tracker.IsTracked("room@example.com"))

	tracker.Track("room@example.com")
	assert.True(t, tracker.IsTracked("room@example.com"))
	assert.False(t, tracker.IsTracked("other@example.com"))

	tracker.Untrack("room@example.com")
	assert.False(t, tracker.IsTracked("room@example.com"))
}

func TestTrackerConcurrentAccess(t *testing.T) {
	tracker := tracking.NewTracker()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tracker.Track("room@example.com")
			_ = tracker.IsTracked("room@example.com")
		}()
	}
	wg.Wait()

	assert.True(t, tracker.IsTracked("room@example.com"))
}
