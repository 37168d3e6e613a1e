package events_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"

	"github.com/amberops/ambulance-dispatch-api/api/events"
)

func TestPublishOnNilHub(t *testing.T) {
	var h *events.Hub
	// must not panic or block when the feed is not running
	h.Publish(events.Event{Type: events.EventIncidentCreated})
}

func TestPublishNeverBlocks(t *testing.T) {
	h := events.NewHub()
	// no Run loop draining; overflow past the buffer is dropped
	for i := 0; i < 200; i++ {
		h.Publish(events.Event{Type: events.EventStatusChanged})
	}
}

func TestHubDeliversToConnectedClient(t *testing.T) {
	h := events.NewHub()
	go h.Run()

	srv := httptest.NewServer(http.HandlerFunc(h.ServeWS))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	assert.NoError(t, err)
	defer conn.Close()

	// allow the registration to reach the fan-out loop
	time.Sleep(100 * time.Millisecond)

	sent := events.Event{
		Type:       events.EventIncidentCreated,
		IncidentID: "5fc51f58c72ff10004dca382",
		Status:     "pending",
		At:         time.Now().UTC(),
	}
	h.Publish(sent)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got events.Event
	err = conn.ReadJSON(&got)
	assert.NoError(t, err)
	assert.Equal(t, sent.Type, got.Type)
	assert.Equal(t, sent.IncidentID, got.IncidentID)
	assert.Equal(t, sent.Status, got.Status)
}
