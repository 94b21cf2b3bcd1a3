package web_test

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/r3labs/sse/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roomninja/roomninja/internal/web"
)

func TestHubBroadcastsRoomUpdates(t *testing.T) {
	hub := web.NewHub()
	defer hub.Close()

	srv := httptest.NewServer(hub.Handler())
	defer srv.Close()

	client := sse.NewClient(srv.URL)
	events := make(chan *sse.Event)
	require.NoError(t, client.SubscribeChan("rooms", events))
	defer client.Unsubscribe(events)

	// subscription setup is asynchronous, keep publishing until it lands
	done := make(chan struct{})
	defer close(done)
	go func() {
		for {
			select {
			case <-done:
				return
			default:
				hub.NotifyRoomUpdated("tardis@acme.example")
				time.Sleep(20 * time.Millisecond)
			}
		}
	}()

	select {
	case ev := <-events:
		assert.Equal(t, "room_updated", string(ev.Event))
		assert.Contains(t, string(ev.Data), "tardis@acme.example")
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a room update")
	}
}

func TestNotifyWithoutSubscribersDoesNotBlock(t *testing.T) {
	hub := web.NewHub()
	defer hub.Close()

	donech := make(chan struct{})
	go func() {
		hub.NotifyRoomUpdated("tardis@acme.example")
		close(donech)
	}()

	select {
	case <-donech:
	case <-time.After(time.Second):
		t.Fatal("publish blocked with no subscribers")
	}
}
